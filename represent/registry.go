package represent

import (
	"reflect"

	"github.com/phobologic/persist/persisterr"
)

// Handler inspects a reflect.Value and, if it accepts it, returns the
// Triple that reconstructs it. ok=false means "not my kind of value";
// the registry tries the next handler in the chain.
type Handler func(v reflect.Value, env *Env) (t Triple, ok bool, err error)

// Registry holds the chain of handlers consulted in priority order, the
// same one-handler-per-kind shape as lang.Languages, but ordered rather
// than keyed, since priority (not name lookup) is what Represent needs.
type Registry struct {
	handlers []namedHandler
}

type namedHandler struct {
	name string
	fn   Handler
}

// NewRegistry returns a registry pre-loaded with the built-in handler
// chain in priority order: primitives, sequences, mappings, sets,
// ranges, arrays, package-level functions, Representable, the
// reconstitution protocol, then the struct fallback.
func NewRegistry() *Registry {
	r := &Registry{}
	r.Register("primitive", handlePrimitive)
	r.Register("sequence", handleSequence)
	r.Register("mapping", handleMapping)
	r.Register("set", handleSet)
	r.Register("range", handleRange)
	r.Register("array", handleArray)
	r.Register("function", handleFunction)
	r.Register("representable", handleRepresentable)
	r.Register("reconstitution", handleReconstitution)
	r.Register("struct", handleStruct)
	return r
}

// Register appends a handler to the end of the chain, so it runs after
// every built-in handler and only sees values none of them claimed. To
// run ahead of a built-in, use InsertBefore instead.
func (r *Registry) Register(name string, fn Handler) {
	r.handlers = append(r.handlers, namedHandler{name, fn})
}

// InsertBefore inserts fn immediately before the named handler, letting a
// caller intercept a kind of value before a built-in handler would claim
// it. If before is not found, fn is appended.
func (r *Registry) InsertBefore(before, name string, fn Handler) {
	for i, h := range r.handlers {
		if h.name == before {
			r.handlers = append(r.handlers[:i:i], append([]namedHandler{{name, fn}}, r.handlers[i:]...)...)
			return
		}
	}
	r.Register(name, fn)
}

// Represent walks the handler chain in order and returns the first
// accepted Triple. The caller is responsible for resolving args.Value
// into child nodes; Represent only builds the triple for v itself.
func (r *Registry) Represent(v reflect.Value, env *Env) (Triple, error) {
	for _, h := range r.handlers {
		t, ok, err := h.fn(v, env)
		if err != nil {
			return Triple{}, err
		}
		if ok {
			return t, nil
		}
	}
	var typ reflect.Type
	if v.IsValid() {
		typ = v.Type()
	}
	return Triple{}, &persisterr.NotRepresentableError{Type: typ}
}
