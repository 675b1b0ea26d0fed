// Package ndarray provides a minimal dense numeric array, the first-party
// implementation of the sidecar.Array interface that the representation
// registry targets when a caller hasn't supplied one of their own.
//
// It is deliberately small: shape, dtype, byte order and a raw byte
// payload, enough to round-trip through the NPY and HDF5 sidecar backends
// bit-exactly. It is not a tensor library and has no arithmetic.
package ndarray

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Array is a dense, row-major, fixed-dtype numeric array.
type Array struct {
	shape []int
	dtype string
	order binary.ByteOrder
	data  []byte
}

// New builds an Array from a raw byte payload. dtype follows NumPy's
// short names ("float64", "float32", "int64", "int32", "uint8", ...).
func New(dtype string, shape []int, order binary.ByteOrder, data []byte) *Array {
	if order == nil {
		order = binary.LittleEndian
	}
	return &Array{shape: append([]int(nil), shape...), dtype: dtype, order: order, data: data}
}

// NewFloat64 builds an Array from a flat []float64 laid out in row-major
// order for the given shape.
func NewFloat64(shape []int, values []float64) *Array {
	buf := make([]byte, len(values)*8)
	for i, v := range values {
		binary.LittleEndian.PutUint64(buf[i*8:], math.Float64bits(v))
	}
	return New("float64", shape, binary.LittleEndian, buf)
}

// NewInt64 builds an Array from a flat []int64 laid out in row-major order.
func NewInt64(shape []int, values []int64) *Array {
	buf := make([]byte, len(values)*8)
	for i, v := range values {
		binary.LittleEndian.PutUint64(buf[i*8:], uint64(v))
	}
	return New("int64", shape, binary.LittleEndian, buf)
}

// Shape returns the array's dimensions.
func (a *Array) Shape() []int { return append([]int(nil), a.shape...) }

// Dtype returns the NumPy-style dtype name.
func (a *Array) Dtype() string { return a.dtype }

// ByteOrder returns the byte order the payload is encoded in.
func (a *Array) ByteOrder() binary.ByteOrder { return a.order }

// ElementCount returns the product of the shape's dimensions.
func (a *Array) ElementCount() int {
	n := 1
	for _, d := range a.shape {
		n *= d
	}
	if len(a.shape) == 0 {
		return 1
	}
	return n
}

// Bytes returns the raw payload, ElementCount()*itemsize(Dtype()) long.
func (a *Array) Bytes() []byte { return a.data }

// ItemSize returns the byte width of one element of Dtype().
func ItemSize(dtype string) (int, error) {
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
		return 0, fmt.Errorf("ndarray: unknown dtype %q", dtype)
	}
}

// Float64 decodes the payload back into a flat []float64. It is a round
// trip helper for tests and for consumers of loaded sidecar arrays, not
// part of the persisted representation itself.
func (a *Array) Float64() ([]float64, error) {
	if a.dtype != "float64" {
		return nil, fmt.Errorf("ndarray: dtype is %q, not float64", a.dtype)
	}
	n := len(a.data) / 8
	out := make([]float64, n)
	for i := range out {
		out[i] = math.Float64frombits(a.order.Uint64(a.data[i*8:]))
	}
	return out, nil
}

// Int64 decodes the payload back into a flat []int64.
func (a *Array) Int64() ([]int64, error) {
	if a.dtype != "int64" {
		return nil, fmt.Errorf("ndarray: dtype is %q, not int64", a.dtype)
	}
	n := len(a.data) / 8
	out := make([]int64, n)
	for i := range out {
		out[i] = int64(a.order.Uint64(a.data[i*8:]))
	}
	return out, nil
}
