// Package identity computes the de-duplication key the graph builder
// uses to decide whether a value has already been visited.
package identity

import (
	"fmt"
	"reflect"

	"github.com/fxamacker/cbor/v2"
	"github.com/zeebo/blake3"
)

// Key identifies a value for graph de-duplication purposes. Two values
// with equal keys are treated as the same node.
type Key struct {
	kind   string
	ptr    uintptr
	typ    string
	digest [32]byte
}

// referenceKinds are the reflect kinds that carry Go's native notion of
// object identity: the same underlying storage is reachable through more
// than one Go value, so aliased references must collapse to one node.
var referenceKinds = map[reflect.Kind]bool{
	reflect.Ptr:   true,
	reflect.Slice: true,
	reflect.Map:   true,
	reflect.Chan:  true,
	reflect.Func:  true,
}

// String renders a key for diagnostic output (e.g. a cycle's path).
func (k Key) String() string {
	if k.kind == "ref" {
		return fmt.Sprintf("%s@%#x", k.typ, k.ptr)
	}
	if k.kind == "val" {
		return fmt.Sprintf("%s#%x", k.typ, k.digest[:4])
	}
	return "nil"
}

// Of computes v's identity key. Reference-kind values key on their
// runtime pointer (tagged with the dynamic type, since two different
// types can share a numeric pointer value — not in practice with Go's
// type-safe pointers, but the tag costs nothing and removes any doubt).
// Everything else is an "equal but identity-unstable" value-equality
// atom: its key is a content hash of its canonical encoding, so two
// separately constructed but equal values collapse into one node exactly
// as the archive's invariants require.
func Of(v reflect.Value) (Key, error) {
	if !v.IsValid() {
		return Key{kind: "nil"}, nil
	}

	if referenceKinds[v.Kind()] {
		if v.IsNil() {
			return Key{kind: "nil"}, nil
		}
		return Key{kind: "ref", ptr: v.Pointer(), typ: v.Type().String()}, nil
	}

	digest, err := contentHash(v)
	if err != nil {
		return Key{}, fmt.Errorf("identity: hashing %s: %w", v.Type(), err)
	}
	return Key{kind: "val", typ: v.Type().String(), digest: digest}, nil
}

func contentHash(v reflect.Value) ([32]byte, error) {
	var payload any
	if v.CanInterface() {
		payload = v.Interface()
	} else {
		payload = fmt.Sprintf("%v", v)
	}

	enc, err := cbor.Marshal(payload)
	if err != nil {
		// Not every Go value round-trips through CBOR (e.g. funcs,
		// chans) — those never reach here since they're reference
		// kinds, but a defensive fallback keeps Of total.
		enc = []byte(fmt.Sprintf("%#v", payload))
	}
	return blake3.Sum256(enc), nil
}
