package represent

import (
	"math"
	"reflect"
	"strings"
	"testing"

	"github.com/phobologic/persist/ndarray"
)

func newTestEnv() *Env {
	return &Env{Registry: NewRegistry(), ArrayThreshold: DefaultArrayThreshold}
}

func TestRepresentPrimitives(t *testing.T) {
	t.Parallel()

	env := newTestEnv()
	cases := []struct {
		in   any
		want string
	}{
		{42, "42"},
		{true, "true"},
		{false, "false"},
		{"hi", `"hi"`},
		{3.5, "3.5"},
	}
	for _, c := range cases {
		tr, err := env.Registry.Represent(reflect.ValueOf(c.in), env)
		if err != nil {
			t.Fatalf("Represent(%v): %v", c.in, err)
		}
		if tr.Expr != c.want {
			t.Errorf("Represent(%v).Expr = %q, want %q", c.in, tr.Expr, c.want)
		}
		if !tr.Pure {
			t.Errorf("Represent(%v) should be pure", c.in)
		}
	}
}

func TestRepresentNonFiniteFloats(t *testing.T) {
	t.Parallel()

	env := newTestEnv()
	tr, err := env.Registry.Represent(reflect.ValueOf(math.Inf(1)), env)
	if err != nil {
		t.Fatalf("Represent(+Inf): %v", err)
	}
	if tr.Expr != "math.Inf(1)" {
		t.Errorf("Expr = %q", tr.Expr)
	}
	if len(tr.Imports) != 1 || tr.Imports[0].Path != "math" {
		t.Errorf("Imports = %v", tr.Imports)
	}
}

func TestRepresentSlice(t *testing.T) {
	t.Parallel()

	env := newTestEnv()
	tr, err := env.Registry.Represent(reflect.ValueOf([]int{1, 2, 3}), env)
	if err != nil {
		t.Fatalf("Represent: %v", err)
	}
	if !strings.HasPrefix(tr.Expr, "[]int{") {
		t.Errorf("Expr = %q", tr.Expr)
	}
	if len(tr.Args) != 3 {
		t.Fatalf("Args = %v, want 3", tr.Args)
	}
	for i, a := range tr.Args {
		if a.Value.(int) != i+1 {
			t.Errorf("Args[%d] = %v, want %d", i, a.Value, i+1)
		}
	}
}

func TestRepresentByteSlice(t *testing.T) {
	t.Parallel()

	env := newTestEnv()
	tr, err := env.Registry.Represent(reflect.ValueOf([]byte("ab")), env)
	if err != nil {
		t.Fatalf("Represent: %v", err)
	}
	if tr.Expr != `[]byte("ab")` {
		t.Errorf("Expr = %q", tr.Expr)
	}
}

func TestRepresentMap(t *testing.T) {
	t.Parallel()

	env := newTestEnv()
	tr, err := env.Registry.Represent(reflect.ValueOf(map[string]int{"b": 2, "a": 1}), env)
	if err != nil {
		t.Fatalf("Represent: %v", err)
	}
	if len(tr.Args) != 4 {
		t.Fatalf("Args = %v, want 4 (2 keys + 2 values)", tr.Args)
	}
	// sorted by formatted key text: "a" before "b"
	if tr.Args[0].Value.(string) != "a" {
		t.Errorf("first key = %v, want a", tr.Args[0].Value)
	}
}

func TestRepresentSet(t *testing.T) {
	t.Parallel()

	env := newTestEnv()
	set := map[string]struct{}{"z": {}, "a": {}}
	tr, err := env.Registry.Represent(reflect.ValueOf(set), env)
	if err != nil {
		t.Fatalf("Represent: %v", err)
	}
	if len(tr.Args) != 2 {
		t.Fatalf("Args = %v, want 2", tr.Args)
	}
	if tr.Args[0].Value.(string) != "a" {
		t.Errorf("first set element = %v, want a", tr.Args[0].Value)
	}
}

type customRepr struct {
	n int
}

func (c customRepr) PersistRepr(env *Env) (Triple, error) {
	return Triple{Expr: "customRepr{n: _n}", Args: []Arg{{Name: "_n", Value: c.n}}, Pure: true}, nil
}

func TestRepresentCustomRepresenter(t *testing.T) {
	t.Parallel()

	env := newTestEnv()
	tr, err := env.Registry.Represent(reflect.ValueOf(customRepr{n: 7}), env)
	if err != nil {
		t.Fatalf("Represent: %v", err)
	}
	if tr.Expr != "customRepr{n: _n}" {
		t.Errorf("Expr = %q", tr.Expr)
	}
}

type plainStruct struct {
	A int
	B string
}

func TestRepresentPlainStruct(t *testing.T) {
	t.Parallel()

	env := newTestEnv()
	tr, err := env.Registry.Represent(reflect.ValueOf(plainStruct{A: 1, B: "x"}), env)
	if err != nil {
		t.Fatalf("Represent: %v", err)
	}
	if !strings.Contains(tr.Expr, "plainStruct{") {
		t.Errorf("Expr = %q", tr.Expr)
	}
	if len(tr.Args) != 2 {
		t.Fatalf("Args = %v, want 2", tr.Args)
	}
}

type structWithUnexported struct {
	A       int
	private string
}

func TestRepresentStructWithUnexportedFallsBackToZeroValue(t *testing.T) {
	t.Parallel()

	env := newTestEnv()
	tr, err := env.Registry.Represent(reflect.ValueOf(structWithUnexported{A: 1, private: "secret"}), env)
	if err != nil {
		t.Fatalf("Represent: %v", err)
	}
	if !strings.HasSuffix(tr.Expr, "structWithUnexported{}") {
		t.Errorf("Expr = %q, want zero-value literal", tr.Expr)
	}
}

func TestRepresentUnrepresentable(t *testing.T) {
	t.Parallel()

	env := newTestEnv()
	ch := make(chan int)
	_, err := env.Registry.Represent(reflect.ValueOf(ch), env)
	if err == nil {
		t.Fatal("Represent(chan) should fail")
	}
}

func TestOrderedMapPreservesInsertionOrder(t *testing.T) {
	t.Parallel()

	m := NewOrderedMap[string, int]()
	m.Set("z", 1)
	m.Set("a", 2)

	env := newTestEnv()
	tr, err := m.PersistRepr(env)
	if err != nil {
		t.Fatalf("PersistRepr: %v", err)
	}
	if len(tr.Args) != 4 {
		t.Fatalf("Args = %v, want 4", tr.Args)
	}
	if tr.Args[0].Value.(string) != "z" {
		t.Errorf("first key = %v, want z (insertion order, not sorted)", tr.Args[0].Value)
	}
}

func TestRangeHandler(t *testing.T) {
	t.Parallel()

	type Range struct{ Start, Stop, Step int }
	env := newTestEnv()
	tr, ok, err := handleRange(reflect.ValueOf(Range{Start: 0, Stop: 10, Step: 2}), env)
	if err != nil || !ok {
		t.Fatalf("handleRange: ok=%v err=%v", ok, err)
	}
	if !strings.Contains(tr.Expr, "Step: 2") {
		t.Errorf("Expr = %q", tr.Expr)
	}
}

type recordingSink struct {
	keys []string
}

func (s *recordingSink) Put(a Array) string {
	key := "array_" + itoa(len(s.keys))
	s.keys = append(s.keys, key)
	return key
}

func TestRepresentArrayAboveThresholdGoesToSidecar(t *testing.T) {
	t.Parallel()

	sink := &recordingSink{}
	env := &Env{Registry: NewRegistry(), ArrayThreshold: 5, Sidecar: sink}

	big := ndarray.NewFloat64([]int{8}, make([]float64, 8))
	tr, err := env.Registry.Represent(reflect.ValueOf(big), env)
	if err != nil {
		t.Fatalf("Represent: %v", err)
	}
	if !strings.Contains(tr.Expr, `_arrays["array_0"]`) {
		t.Errorf("Expr = %q, want a sidecar reference", tr.Expr)
	}
	if tr.Pure {
		t.Error("sidecar-backed triple must be impure (never inlined)")
	}
	if len(sink.keys) != 1 {
		t.Errorf("sink recorded %d arrays, want 1", len(sink.keys))
	}
}

func TestRepresentArrayBelowThresholdInlines(t *testing.T) {
	t.Parallel()

	sink := &recordingSink{}
	env := &Env{Registry: NewRegistry(), ArrayThreshold: 5, Sidecar: sink}

	small := ndarray.NewFloat64([]int{3}, []float64{1, 2, 3})
	tr, err := env.Registry.Represent(reflect.ValueOf(small), env)
	if err != nil {
		t.Fatalf("Represent: %v", err)
	}
	if !strings.HasPrefix(tr.Expr, "ndarray.New(") {
		t.Errorf("Expr = %q, want an inline ndarray.New call", tr.Expr)
	}
	if len(sink.keys) != 0 {
		t.Errorf("small array must not reach the sidecar, got %v", sink.keys)
	}
}
