package represent

import (
	"fmt"
	"reflect"
	"sort"
)

var (
	reducibleType       = reflect.TypeOf((*Reducible)(nil)).Elem()
	newArgsProviderType = reflect.TypeOf((*NewArgsProvider)(nil)).Elem()
	stateProviderType   = reflect.TypeOf((*StateProvider)(nil)).Elem()
	stateReceiverType   = reflect.TypeOf((*StateReceiver)(nil)).Elem()
)

// handleReconstitution implements the three-tier decision table: a
// Reducible type supplies its own constructor call and state; a
// NewArgsProvider supplies arguments for a zero-value allocation, with
// StateProvider state applied afterward when present; any
// other type reaching here falls through to the struct fallback, which
// never calls a user constructor.
func handleReconstitution(v reflect.Value, env *Env) (Triple, bool, error) {
	if !v.IsValid() {
		return Triple{}, false, nil
	}

	if iface, ok := asInterface(v, reducibleType); ok {
		return buildReducibleTriple(iface.(Reducible), env)
	}

	if iface, ok := asInterface(v, newArgsProviderType); ok {
		return buildNewArgsTriple(v, iface.(NewArgsProvider), env)
	}

	return Triple{}, false, nil
}

// asInterface returns v (or its address, if addressable) as iface when
// the underlying type implements it.
func asInterface(v reflect.Value, iface reflect.Type) (any, bool) {
	if v.Type().Implements(iface) {
		return v.Interface(), true
	}
	if v.CanAddr() && reflect.PtrTo(v.Type()).Implements(iface) {
		return v.Addr().Interface(), true
	}
	return nil, false
}

func buildReducibleTriple(r Reducible, env *Env) (Triple, bool, error) {
	ctor, state, err := r.PersistReduce()
	if err != nil {
		return Triple{}, false, err
	}

	args := append([]Arg(nil), ctor.Args...)
	imports := append([]Import(nil), ctor.Imports...)

	applyExpr, stateArgs, stateImports, err := applyState(reflect.ValueOf(r), state, "v")
	if err != nil {
		return Triple{}, false, err
	}
	args = append(args, stateArgs...)
	imports = mergeImports(imports, stateImports)

	rt := reflect.TypeOf(r)
	typeName := goTypeName(rt)
	expr := fmt.Sprintf("func() %s {\n\tv := %s\n%s\treturn v\n}()", typeName, ctor.Expr, applyExpr)

	return Triple{Expr: expr, Args: args, Imports: mergeImports(imports, typeImports(rt)), Pure: ctor.Pure}, true, nil
}

func buildNewArgsTriple(v reflect.Value, p NewArgsProvider, env *Env) (Triple, bool, error) {
	argVals, err := p.PersistNewArgs()
	if err != nil {
		return Triple{}, false, err
	}

	t := v.Type()
	isPtr := t.Kind() == reflect.Ptr
	elemType := t
	if isPtr {
		elemType = t.Elem()
	}
	typeName := goTypeName(elemType)

	alloc := "&" + typeName + "{}"
	if !isPtr {
		alloc = typeName + "{}"
	}

	var args []Arg
	var callParts []string
	for i, av := range argVals {
		name := fmt.Sprintf("_a%d", i)
		args = append(args, Arg{Name: name, Value: av})
		callParts = append(callParts, name)
	}

	// PersistApplyArgs is not one of the four named capability
	// interfaces: it is a convention a NewArgsProvider implementation is
	// expected to pair with, applying its own constructor arguments onto
	// the zero value in whatever way the type's real constructor would
	// have.
	applyExpr := ""
	if len(callParts) > 0 {
		applyExpr = fmt.Sprintf("\tif err := v.PersistApplyArgs(%s); err != nil {\n\t\tpanic(err)\n\t}\n", joinComma(callParts))
	}

	// State from a StateProvider is applied after the arguments.
	if sp, ok := asInterface(v, stateProviderType); ok {
		state, err := sp.(StateProvider).PersistGetState()
		if err != nil {
			return Triple{}, false, err
		}
		stateExpr, stateArgs, _, err := applyState(v, state, "v")
		if err != nil {
			return Triple{}, false, err
		}
		applyExpr += stateExpr
		args = append(args, stateArgs...)
	}

	expr := fmt.Sprintf("func() %s {\n\tv := %s\n%s\treturn v\n}()", goTypeName(t), alloc, applyExpr)
	return Triple{Expr: expr, Args: args, Imports: typeImports(t), Pure: true}, true, nil
}

// applyState renders the statement(s) that apply state onto the local
// variable named recv: a call to PersistSetState if the type implements
// StateReceiver, otherwise bulk assignment of state's exported fields.
func applyState(v reflect.Value, state any, recv string) (expr string, args []Arg, imports []Import, err error) {
	if state == nil {
		return "", nil, nil, nil
	}

	if sr, ok := asInterface(v, stateReceiverType); ok {
		_ = sr
		args = append(args, Arg{Name: "_state", Value: state})
		expr = fmt.Sprintf("\t%s.PersistSetState(_state)\n", recv)
		return expr, args, nil, nil
	}

	sv := reflect.ValueOf(state)
	for sv.Kind() == reflect.Ptr {
		sv = sv.Elem()
	}
	if sv.Kind() != reflect.Struct {
		// No structural shape to assign field-by-field; bind the whole
		// state value to the receiver's PersistSetState if present, else
		// drop it — there is nothing else safe to do with an opaque
		// non-struct state value.
		return "", nil, nil, nil
	}

	type field struct {
		name string
		val  any
	}
	var fields []field
	st := sv.Type()
	for i := 0; i < st.NumField(); i++ {
		f := st.Field(i)
		if f.PkgPath != "" {
			continue // unexported: reach requires the Representable capability
		}
		fields = append(fields, field{f.Name, sv.Field(i).Interface()})
	}
	sort.Slice(fields, func(i, j int) bool { return fields[i].name < fields[j].name })

	var sb []byte
	for i, f := range fields {
		argName := fmt.Sprintf("_s%d", i)
		args = append(args, Arg{Name: argName, Value: f.val})
		sb = append(sb, []byte(fmt.Sprintf("\t%s.%s = %s\n", recv, f.name, argName))...)
	}
	return string(sb), args, nil, nil
}

func joinComma(parts []string) string {
	out := ""
	for i, p := range parts {
		if i > 0 {
			out += ", "
		}
		out += p
	}
	return out
}
