package represent

import "reflect"

var representableType = reflect.TypeOf((*Representable)(nil)).Elem()

// handleRepresentable defers entirely to a value's own PersistRepr,
// taking priority over every generic fallback below it in the chain.
func handleRepresentable(v reflect.Value, env *Env) (Triple, bool, error) {
	if !v.IsValid() {
		return Triple{}, false, nil
	}
	if !v.Type().Implements(representableType) {
		if v.CanAddr() && reflect.PtrTo(v.Type()).Implements(representableType) {
			v = v.Addr()
		} else {
			return Triple{}, false, nil
		}
	}

	r, ok := v.Interface().(Representable)
	if !ok {
		return Triple{}, false, nil
	}
	t, err := r.PersistRepr(env)
	if err != nil {
		return Triple{}, false, err
	}
	return t, true, nil
}
