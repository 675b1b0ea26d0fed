package represent

import (
	"fmt"
	"reflect"
)

// handleRange recognizes persist.Range by shape rather than by importing
// the persist package directly, which would create an import cycle
// (persist imports represent for the registry, not the reverse). Range's
// fields are all exported ints, so no unsafe field access is needed.
func handleRange(v reflect.Value, env *Env) (Triple, bool, error) {
	if !v.IsValid() || v.Kind() != reflect.Struct {
		return Triple{}, false, nil
	}
	t := v.Type()
	if t.Name() != "Range" || t.NumField() != 3 {
		return Triple{}, false, nil
	}
	for _, name := range []string{"Start", "Stop", "Step"} {
		f, ok := t.FieldByName(name)
		if !ok || f.Type.Kind() != reflect.Int {
			return Triple{}, false, nil
		}
	}

	start := v.FieldByName("Start").Int()
	stop := v.FieldByName("Stop").Int()
	step := v.FieldByName("Step").Int()

	typeName := goTypeName(t)
	if step == 1 {
		return Triple{
			Expr:    fmt.Sprintf("%s{Start: %d, Stop: %d, Step: 1}", typeName, start, stop),
			Imports: typeImports(t),
			Pure:    true,
		}, true, nil
	}
	return Triple{
		Expr:    fmt.Sprintf("%s{Start: %d, Stop: %d, Step: %d}", typeName, start, stop, step),
		Imports: typeImports(t),
		Pure:    true,
	}, true, nil
}
