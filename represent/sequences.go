package represent

import (
	"fmt"
	"reflect"
)

// handleSequence covers Go slices (ordered, reference-semantics) and
// fixed-size arrays (the value-semantics stand-in for Python's tuple).
// Byte slices are claimed earlier by handlePrimitive and never reach
// here.
func handleSequence(v reflect.Value, env *Env) (Triple, bool, error) {
	if !v.IsValid() {
		return Triple{}, false, nil
	}

	switch v.Kind() {
	case reflect.Slice:
		if v.Type().Elem().Kind() == reflect.Uint8 {
			return Triple{}, false, nil
		}
		if v.IsNil() {
			return Triple{
				Expr:    fmt.Sprintf("%s(nil)", goTypeName(v.Type())),
				Imports: typeImports(v.Type()),
				Pure:    true,
			}, true, nil
		}
		return buildOrderedTriple(v, v.Len(), v.Type())

	case reflect.Array:
		return buildOrderedTriple(v, v.Len(), v.Type())
	}

	return Triple{}, false, nil
}

// buildOrderedTriple assembles a composite literal Triple{Type{a0, a1,
// ...}} where each element becomes a named Arg the graph builder will
// resolve into its own node.
func buildOrderedTriple(v reflect.Value, n int, t reflect.Type) (Triple, bool, error) {
	args := make([]Arg, n)
	parts := make([]string, n)
	for i := 0; i < n; i++ {
		name := fmt.Sprintf("_e%d", i)
		args[i] = Arg{Name: name, Value: elemInterface(v.Index(i))}
		parts[i] = name
	}
	expr := goTypeName(t) + "{"
	for i, p := range parts {
		if i > 0 {
			expr += ", "
		}
		expr += p
	}
	expr += "}"
	return Triple{Expr: expr, Args: args, Imports: typeImports(t), Pure: true}, true, nil
}

func elemInterface(v reflect.Value) any {
	if v.CanInterface() {
		return v.Interface()
	}
	return v
}
