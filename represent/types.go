// Package represent turns arbitrary Go values into rep triples: a
// constructor expression plus the sub-values that expression references.
// It is the first stage of the archive pipeline — graph building, name
// reduction and code emission all consume the triples this package
// produces, never the original values directly.
package represent

import "encoding/binary"

// Import is a single package import an emitted expression requires.
type Import struct {
	Path  string
	Alias string // "" when the package's default name is used
}

// Arg is one named reference from a Triple's expression to a sub-value
// that must itself be represented and wired into the graph. Name is the
// free identifier the expression uses for this argument; it is rewritten
// during reduction if the node it refers to is renamed.
type Arg struct {
	Name  string
	Value any
}

// Triple is the output of representing one value: the expression that
// reconstructs it, the sub-values ("Args") that expression's free
// identifiers resolve to, and any imports the expression needs.
//
// Pure triples may be inlined into their single consumer during
// reduction; impure ones (sidecar-backed arrays, custom representers with
// side effects) never are.
type Triple struct {
	Expr    string
	Args    []Arg
	Imports []Import
	Pure    bool
}

// Env is threaded through every handler invocation. It gives handlers
// access to the registry (for representing nested values) and the array
// sidecar (for partitioning large numeric payloads), without handlers
// needing to import the orchestration packages that own those concerns.
type Env struct {
	Registry       *Registry
	ArrayThreshold int
	Sidecar        ArraySink
	// DataName is the ambient sidecar-lookup variable name partitioned
	// arrays are rendered as a subscript into. Defaults to "_arrays".
	DataName string
}

// ArraySink is the subset of sidecar.Store a representer needs: record an
// array and get back its lookup key. Kept as an interface here so
// represent does not import sidecar.
type ArraySink interface {
	Put(a Array) string
}

// Array is the shape handlers expect of a large numeric payload,
// structurally identical to sidecar.Array so any type (ndarray.Array
// included) satisfies both without either package importing the other.
type Array interface {
	Shape() []int
	Dtype() string
	ByteOrder() binary.ByteOrder
	ElementCount() int
	Bytes() []byte
}

// Representable is the custom-representer capability: a type that knows
// how to represent itself bypasses every other handler in the chain.
type Representable interface {
	PersistRepr(env *Env) (Triple, error)
}

// Reducible is the strongest reconstitution-protocol hook: the type
// supplies both its constructor call and the state to apply afterward.
type Reducible interface {
	PersistReduce() (ctor Triple, state any, err error)
}

// NewArgsProvider supplies constructor arguments, when the type cannot
// produce a full Triple itself. The emitted code passes them to a
// PersistApplyArgs method on the zero value, which the type must define.
type NewArgsProvider interface {
	PersistNewArgs() (args []any, err error)
}

// StateProvider supplies the state to apply onto a freshly allocated
// zero value, in place of the default "every exported field" reach.
type StateProvider interface {
	PersistGetState() (state any, err error)
}

// StateReceiver applies previously captured state onto a receiver,
// in place of the default bulk exported-field assignment.
type StateReceiver interface {
	PersistSetState(state any) error
}

// OrderedMap is the order-preserving map wrapper callers use when
// insertion order matters to how the archive renders their data. A bare
// map[K]V loses insertion order the moment it's constructed, so the
// registry falls back to sorting by formatted key text for those; OrderedMap
// opts out of that by carrying its own order.
type OrderedMap[K comparable, V any] struct {
	keys   []K
	values map[K]V
}

// NewOrderedMap returns an empty ordered map.
func NewOrderedMap[K comparable, V any]() *OrderedMap[K, V] {
	return &OrderedMap[K, V]{values: make(map[K]V)}
}

// Set inserts or updates a key, appending it to the order on first insert.
func (m *OrderedMap[K, V]) Set(k K, v V) {
	if _, ok := m.values[k]; !ok {
		m.keys = append(m.keys, k)
	}
	m.values[k] = v
}

// Keys returns the keys in insertion order.
func (m *OrderedMap[K, V]) Keys() []K { return append([]K(nil), m.keys...) }

// Get returns the value for k and whether it was present.
func (m *OrderedMap[K, V]) Get(k K) (V, bool) {
	v, ok := m.values[k]
	return v, ok
}

// Len reports the number of entries.
func (m *OrderedMap[K, V]) Len() int { return len(m.keys) }

// PersistRepr implements Representable directly rather than relying on
// the reflection-based mapping handler: a generic type's instantiations
// each get a distinct reflect.Type that the registry cannot enumerate
// ahead of time, so OrderedMap represents itself using its own
// insertion order instead of asking the registry to reconstruct it from
// unexported fields.
func (m *OrderedMap[K, V]) PersistRepr(env *Env) (Triple, error) {
	args := make([]Arg, 0, 2*len(m.keys))
	sets := make([]string, 0, len(m.keys))

	for i, k := range m.keys {
		keyName := "_k" + itoa(i)
		valName := "_v" + itoa(i)
		args = append(args, Arg{Name: keyName, Value: any(k)}, Arg{Name: valName, Value: any(m.values[k])})
		sets = append(sets, "m.Set("+keyName+", "+valName+")")
	}

	expr := "func() *represent.OrderedMap[" + goTypeOf[K]() + ", " + goTypeOf[V]() + "] {\n"
	expr += "\tm := represent.NewOrderedMap[" + goTypeOf[K]() + ", " + goTypeOf[V]() + "]()\n"
	for _, s := range sets {
		expr += "\t" + s + "\n"
	}
	expr += "\treturn m\n}()"

	return Triple{
		Expr:    expr,
		Args:    args,
		Imports: []Import{{Path: "github.com/phobologic/persist/represent"}},
		Pure:    true,
	}, nil
}
