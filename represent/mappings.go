package represent

import (
	"fmt"
	"reflect"
	"sort"
)

// handleMapping covers bare Go maps. OrderedMap instances never reach
// here: they implement Representable directly (see types.go) and are
// claimed earlier in the chain by handleRepresentable.
func handleMapping(v reflect.Value, env *Env) (Triple, bool, error) {
	if !v.IsValid() || v.Kind() != reflect.Map {
		return Triple{}, false, nil
	}
	// map[T]struct{} is the set encoding; leave it for handleSet.
	if v.Type().Elem().Kind() == reflect.Struct && v.Type().Elem().NumField() == 0 {
		return Triple{}, false, nil
	}

	typeName := goTypeName(v.Type())
	imports := typeImports(v.Type())
	if v.IsNil() {
		return Triple{Expr: fmt.Sprintf("%s(nil)", typeName), Imports: imports, Pure: true}, true, nil
	}

	keys := v.MapKeys()
	// Determinism: a bare map has no recoverable insertion order, so
	// entries are sorted by their formatted key text. The reducer does
	// not reorder Args, so this is also the order of the rendered literal.
	sort.Slice(keys, func(i, j int) bool {
		return fmt.Sprintf("%v", keys[i].Interface()) < fmt.Sprintf("%v", keys[j].Interface())
	})

	args := make([]Arg, 0, 2*len(keys))
	parts := make([]string, 0, len(keys))
	for i, k := range keys {
		keyName := fmt.Sprintf("_k%d", i)
		valName := fmt.Sprintf("_v%d", i)
		args = append(args, Arg{Name: keyName, Value: k.Interface()}, Arg{Name: valName, Value: v.MapIndex(k).Interface()})
		parts = append(parts, keyName+": "+valName)
	}

	expr := typeName + "{"
	for i, p := range parts {
		if i > 0 {
			expr += ", "
		}
		expr += p
	}
	expr += "}"
	return Triple{Expr: expr, Args: args, Imports: imports, Pure: true}, true, nil
}
