package represent

import (
	"reflect"
	"sort"
	"strconv"
)

func itoa(n int) string { return strconv.Itoa(n) }

// goTypeOf renders a generic type parameter's Go syntax name via a nil
// pointer trick, since T itself carries no reflect.Type without a value.
func goTypeOf[T any]() string {
	var zero T
	return reflect.TypeOf(&zero).Elem().String()
}

// goTypeName renders t the way it would read in Go source. reflect's
// String() already produces valid Go syntax for builtin, slice, array,
// map and pointer types; named types from other packages render
// package-qualified ("pkg.Type").
func goTypeName(t reflect.Type) string {
	return t.String()
}

// typeImports walks t's structure and collects the imports its rendered
// name (goTypeName) needs: itself if it's a named type from another
// package, plus anything its element/key types need. Handlers that embed
// a type name in their Expr must merge this in, or the emitted file will
// reference an unqualified package that was never imported.
func typeImports(t reflect.Type) []Import {
	if t == nil {
		return nil
	}
	var out []Import
	if t.PkgPath() != "" {
		out = append(out, Import{Path: t.PkgPath()})
	}
	switch t.Kind() {
	case reflect.Ptr, reflect.Slice, reflect.Array, reflect.Chan:
		out = mergeImports(out, typeImports(t.Elem()))
	case reflect.Map:
		out = mergeImports(out, typeImports(t.Key()), typeImports(t.Elem()))
	}
	return out
}

// mergeImports concatenates and de-duplicates import lists from
// sub-expressions. Order follows first appearance then gets sorted by
// the emitter at file-assembly time, so no sorting happens here.
func mergeImports(lists ...[]Import) []Import {
	seen := make(map[string]bool)
	var out []Import
	for _, l := range lists {
		for _, imp := range l {
			key := imp.Path + "|" + imp.Alias
			if seen[key] {
				continue
			}
			seen[key] = true
			out = append(out, imp)
		}
	}
	return out
}

// sortedStringKeys returns m's keys sorted, for deterministic iteration
// over a string-keyed map. The map and set handlers sort MapKeys
// themselves and do not use it.
func sortedStringKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
