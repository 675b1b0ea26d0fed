package represent

import (
	"math"
	"math/big"
	"reflect"
	"strconv"
)

func handlePrimitive(v reflect.Value, env *Env) (Triple, bool, error) {
	if !v.IsValid() {
		return Triple{Expr: "nil", Pure: true}, true, nil
	}

	switch v.Kind() {
	case reflect.Ptr, reflect.Interface, reflect.Chan, reflect.Func, reflect.UnsafePointer:
		if v.IsNil() {
			return Triple{Expr: "nil", Pure: true}, true, nil
		}
		return Triple{}, false, nil

	case reflect.Bool:
		if v.Bool() {
			return Triple{Expr: "true", Pure: true}, true, nil
		}
		return Triple{Expr: "false", Pure: true}, true, nil

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return Triple{Expr: strconv.FormatInt(v.Int(), 10), Pure: true}, true, nil

	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return Triple{Expr: strconv.FormatUint(v.Uint(), 10), Pure: true}, true, nil

	case reflect.Float32:
		return floatTriple(v.Float(), 32), true, nil

	case reflect.Float64:
		return floatTriple(v.Float(), 64), true, nil

	case reflect.Complex64, reflect.Complex128:
		c := v.Complex()
		bits := 128
		if v.Kind() == reflect.Complex64 {
			bits = 64
		}
		re, im := floatTriple(real(c), bits/2), floatTriple(imag(c), bits/2)
		expr := "complex(" + re.Expr + ", " + im.Expr + ")"
		return Triple{Expr: expr, Imports: mergeImports(re.Imports, im.Imports), Pure: true}, true, nil

	case reflect.String:
		return Triple{Expr: strconv.Quote(v.String()), Pure: true}, true, nil

	case reflect.Slice:
		if v.Type().Elem().Kind() == reflect.Uint8 {
			b := v.Bytes()
			if b == nil {
				return Triple{Expr: "[]byte(nil)", Pure: true}, true, nil
			}
			return Triple{
				Expr:    "[]byte(" + strconv.Quote(string(b)) + ")",
				Pure:    true,
			}, true, nil
		}
		return Triple{}, false, nil
	}

	if bi, ok := v.Interface().(big.Int); ok {
		return bigIntTriple(&bi), true, nil
	}
	if bi, ok := v.Interface().(*big.Int); ok && bi != nil {
		return bigIntTriple(bi), true, nil
	}

	return Triple{}, false, nil
}

func bigIntTriple(bi *big.Int) Triple {
	return Triple{
		Expr:    `func() *big.Int { n, _ := new(big.Int).SetString(` + strconv.Quote(bi.String()) + `, 10); return n }()`,
		Imports: []Import{{Path: "math/big"}},
		Pure:    true,
	}
}

// floatTriple renders a float with a fixed verb and bit size so the
// literal round-trips exactly, never via %v which can vary in precision.
// Non-finite values have no Go literal syntax, so they go through helper
// calls imported from math, the Go reading of the "inf = float('inf')"
// free-identifier pattern.
func floatTriple(f float64, bits int) Triple {
	switch {
	case math.IsInf(f, 1):
		return Triple{Expr: "math.Inf(1)", Imports: []Import{{Path: "math"}}, Pure: true}
	case math.IsInf(f, -1):
		return Triple{Expr: "math.Inf(-1)", Imports: []Import{{Path: "math"}}, Pure: true}
	case math.IsNaN(f):
		return Triple{Expr: "math.NaN()", Imports: []Import{{Path: "math"}}, Pure: true}
	}
	return Triple{Expr: strconv.FormatFloat(f, 'g', -1, bits), Pure: true}
}
