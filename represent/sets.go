package represent

import (
	"fmt"
	"reflect"
	"sort"
)

// handleSet covers map[T]struct{}, the idiomatic Go encoding of a set.
// Element order in the rendered literal is the sort order of each
// element's formatted text (fmt %v). The reducer does not reorder the
// elements afterward, so the names it assigns play no part in the order.
func handleSet(v reflect.Value, env *Env) (Triple, bool, error) {
	if !v.IsValid() || v.Kind() != reflect.Map {
		return Triple{}, false, nil
	}
	if v.Type().Elem().Kind() != reflect.Struct || v.Type().Elem().NumField() != 0 {
		return Triple{}, false, nil
	}

	typeName := goTypeName(v.Type())
	imports := typeImports(v.Type())
	if v.IsNil() {
		return Triple{Expr: fmt.Sprintf("%s(nil)", typeName), Imports: imports, Pure: true}, true, nil
	}

	keys := v.MapKeys()
	sort.Slice(keys, func(i, j int) bool {
		return fmt.Sprintf("%v", keys[i].Interface()) < fmt.Sprintf("%v", keys[j].Interface())
	})

	args := make([]Arg, len(keys))
	parts := make([]string, len(keys))
	for i, k := range keys {
		name := fmt.Sprintf("_k%d", i)
		args[i] = Arg{Name: name, Value: k.Interface()}
		parts[i] = name + ": {}"
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
