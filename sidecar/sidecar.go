// Package sidecar implements the array-sidecar protocol: partitioning
// large numeric arrays out of emitted source and into an out-of-band
// on-disk store, referenced from the emitted source via subscripts into
// an ambient lookup variable.
//
// Sidecar keys are dense, zero-based, and assigned in first-encounter
// order, matching the invariant in the archive's data model.
package sidecar

import (
	"encoding/binary"
	"fmt"
)

// Array is the observable interface the sidecar and the representation
// registry require of a large numeric payload: shape, dtype, byte order,
// element count and a raw byte payload. Any type satisfying this
// interface — not just ndarray.Array — can be inserted into an archive
// and partitioned to the sidecar once it crosses the array threshold.
type Array interface {
	Shape() []int
	Dtype() string
	ByteOrder() binary.ByteOrder
	ElementCount() int
	Bytes() []byte
}

// Backend selects the on-disk format a Store is saved in.
type Backend string

const (
	NPY  Backend = "npy"
	HDF5 Backend = "hdf5"
)

// Store accumulates arrays during graph building and partitions them to
// disk on Save. One Store belongs to exactly one Archive.
type Store struct {
	arrays   []Array
	keys     []string
	Compress bool
}

// NewStore returns an empty array store.
func NewStore() *Store {
	return &Store{}
}

// Put records an array and returns its dense, first-encounter-order key
// ("array_0", "array_1", ...).
func (s *Store) Put(a Array) string {
	key := fmt.Sprintf("array_%d", len(s.arrays))
	s.arrays = append(s.arrays, a)
	s.keys = append(s.keys, key)
	return key
}

// Len reports how many arrays have been recorded.
func (s *Store) Len() int { return len(s.arrays) }

// Keys returns the recorded keys in first-encounter order.
func (s *Store) Keys() []string {
	return append([]string(nil), s.keys...)
}

// Save writes every recorded array to dir using the chosen backend.
func (s *Store) Save(dir string, backend Backend) error {
	switch backend {
	case NPY:
		return saveNPY(dir, s.arrays, s.keys, s.Compress)
	case HDF5:
		return saveHDF5(dir, s.arrays, s.keys)
	default:
		return fmt.Errorf("sidecar: unknown backend %q", backend)
	}
}

// Load is the inverse of Save: it reads every array recorded in dir back
// into a key-to-Array map, the same shape the emitted loader boilerplate
// constructs for the ambient _arrays lookup.
func Load(dir string, backend Backend) (map[string]Array, error) {
	switch backend {
	case NPY:
		return loadNPY(dir)
	case HDF5:
		return loadHDF5(dir)
	default:
		return nil, fmt.Errorf("sidecar: unknown backend %q", backend)
	}
}

// MustLoad is Load with a panicking error path, for the ambient loader
// variable the packager emits into generated source: a sidecar that
// fails to load is always a defect in how the archive was published
// (the sidecar directory travels with its generated source and is never
// expected to be absent or corrupt at the point the archive is
// compiled in), not a condition the generated package's own callers can
// meaningfully recover from.
func MustLoad(dir string, backend Backend) map[string]Array {
	arrays, err := Load(dir, backend)
	if err != nil {
		panic(fmt.Sprintf("sidecar: loading %s: %v", dir, err))
	}
	return arrays
}

func itemSize(dtype string) (int, error) {
	switch dtype {
	case "float64", "int64", "uint64":
		return 8, nil
	case "float32", "int32", "uint32":
		return 4, nil
	case "int16", "uint16":
		return 2, nil
	case "int8", "uint8", "bool":
		return 1, nil
	default:
		return 0, fmt.Errorf("sidecar: unknown dtype %q", dtype)
	}
}
