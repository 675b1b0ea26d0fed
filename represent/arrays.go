package represent

import (
	"encoding/binary"
	"fmt"
	"reflect"
	"strconv"
	"strings"
)

// DefaultArrayThreshold is the element count at or above which an array
// is partitioned to the sidecar instead of rendered as an inline
// literal. Env.ArrayThreshold overrides this per archive.
const DefaultArrayThreshold = 64

var arrayInterfaceType = reflect.TypeOf((*Array)(nil)).Elem()

// handleArray covers any value implementing the Array capability
// (shape, dtype, byte order, element count, byte payload). Values at or
// above the threshold are partitioned to the sidecar and rendered as a
// lookup into the ambient loader variable; smaller ones are rendered as
// an inline ndarray.New(...) literal.
func handleArray(v reflect.Value, env *Env) (Triple, bool, error) {
	if !v.IsValid() {
		return Triple{}, false, nil
	}
	if !v.Type().Implements(arrayInterfaceType) {
		if v.CanAddr() && reflect.PtrTo(v.Type()).Implements(arrayInterfaceType) {
			v = v.Addr()
		} else {
			return Triple{}, false, nil
		}
	}

	arr, ok := v.Interface().(Array)
	if !ok {
		return Triple{}, false, nil
	}

	threshold := env.ArrayThreshold
	if threshold <= 0 {
		threshold = DefaultArrayThreshold
	}

	if arr.ElementCount() >= threshold && env.Sidecar != nil {
		dataName := env.DataName
		if dataName == "" {
			dataName = "_arrays"
		}
		key := env.Sidecar.Put(arr)
		// _arrays holds the sidecar.Array interface type; every array this
		// registry ever constructs is a *ndarray.Array, so the asserted type
		// here always matches what Put recorded.
		return Triple{
			Expr:    fmt.Sprintf("%s[%s].(*ndarray.Array)", dataName, strconv.Quote(key)),
			Imports: []Import{{Path: "github.com/phobologic/persist/ndarray"}},
			Pure:    false,
		}, true, nil
	}

	return inlineArrayTriple(arr), true, nil
}

func inlineArrayTriple(arr Array) Triple {
	shapeParts := make([]string, len(arr.Shape()))
	for i, d := range arr.Shape() {
		shapeParts[i] = strconv.Itoa(d)
	}
	order := "binary.LittleEndian"
	if arr.ByteOrder() == binary.BigEndian {
		order = "binary.BigEndian"
	}

	expr := fmt.Sprintf(
		"ndarray.New(%s, []int{%s}, %s, []byte(%s))",
		strconv.Quote(arr.Dtype()),
		strings.Join(shapeParts, ", "),
		order,
		strconv.Quote(string(arr.Bytes())),
	)

	return Triple{
		Expr: expr,
		Imports: []Import{
			{Path: "encoding/binary"},
			{Path: "github.com/phobologic/persist/ndarray"},
		},
		Pure: true,
	}
}
