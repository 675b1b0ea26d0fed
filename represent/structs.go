package represent

import (
	"fmt"
	"reflect"
	"sort"
)

// handleStruct is the final fallback: any struct (or pointer to struct)
// that reached here without a custom representer and without satisfying
// Reducible/NewArgsProvider is allocated at its zero value and has state
// applied onto it directly. The type's own constructor, if any, is
// deliberately never called — state restoration never re-runs it.
func handleStruct(v reflect.Value, env *Env) (Triple, bool, error) {
	if !v.IsValid() {
		return Triple{}, false, nil
	}

	isPtr := false
	t := v.Type()
	if t.Kind() == reflect.Ptr {
		if v.IsNil() {
			return Triple{}, false, nil // handlePrimitive already claims nil pointers
		}
		isPtr = true
		t = t.Elem()
		v = v.Elem()
	}
	if t.Kind() != reflect.Struct {
		return Triple{}, false, nil
	}

	typeName := goTypeName(t)
	alloc := typeName + "{}"
	if isPtr {
		alloc = "&" + typeName + "{}"
	}

	if sp, ok := asInterface(addrOf(v), stateProviderType); ok {
		state, err := sp.(StateProvider).PersistGetState()
		if err != nil {
			return Triple{}, false, err
		}
		applyExpr, args, imports, err := applyState(addrOf(v), state, "v")
		if err != nil {
			return Triple{}, false, err
		}
		typeImps := typeImports(t)
		if applyExpr == "" {
			return Triple{Expr: alloc, Imports: typeImps, Pure: true}, true, nil
		}
		retType := typeName
		if isPtr {
			retType = "*" + typeName
		}
		expr := fmt.Sprintf("func() %s {\n\tv := %s\n%s\treturn v\n}()", retType, alloc, applyExpr)
		return Triple{Expr: expr, Args: args, Imports: mergeImports(typeImps, imports), Pure: true}, true, nil
	}

	return exportedFieldTriple(v, t, typeName, isPtr)
}

// exportedFieldTriple handles the common case directly: every field is
// exported, so the value renders as a single composite literal
// (T{Field: expr, ...}) instead of a zero-value-plus-assignment wrapper.
// A struct with any unexported or embedded field renders as its zero
// value (T{} or &T{}) and none of its fields, exported or not, are
// carried: composite literals cannot set unexported fields outside their
// own package, and there is no safe default reach into an unexported
// field without Representable.
func exportedFieldTriple(v reflect.Value, t reflect.Type, typeName string, isPtr bool) (Triple, bool, error) {
	type field struct {
		name string
		val  any
	}
	var fields []field
	hasUnexported := false
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if f.PkgPath != "" {
			hasUnexported = true
			continue
		}
		if f.Anonymous {
			hasUnexported = true // embedded fields need dedicated handling this fallback does not attempt
			continue
		}
		fields = append(fields, field{f.Name, v.Field(i).Interface()})
	}

	if hasUnexported {
		// No Representable, no StateProvider: nothing safe to apply.
		// Render the zero value only, matching "state restoration never
		// re-runs the user constructor" with no state to restore.
		alloc := typeName + "{}"
		if isPtr {
			alloc = "&" + typeName + "{}"
		}
		return Triple{Expr: alloc, Imports: typeImports(t), Pure: true}, true, nil
	}

	sort.Slice(fields, func(i, j int) bool { return fields[i].name < fields[j].name })

	args := make([]Arg, len(fields))
	parts := make([]string, len(fields))
	for i, f := range fields {
		name := fmt.Sprintf("_f%d", i)
		args[i] = Arg{Name: name, Value: f.val}
		parts[i] = f.name + ": " + name
	}

	expr := typeName + "{"
	for i, p := range parts {
		if i > 0 {
			expr += ", "
		}
		expr += p
	}
	expr += "}"
	if isPtr {
		expr = "&" + expr
	}

	return Triple{Expr: expr, Args: args, Imports: typeImports(t), Pure: true}, true, nil
}

func addrOf(v reflect.Value) reflect.Value {
	if v.CanAddr() {
		return v.Addr()
	}
	return v
}
