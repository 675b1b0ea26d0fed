package represent

import (
	"reflect"
	"runtime"
	"strings"
)

// handleFunction covers package-level function values (not closures
// capturing state, which runtime.FuncForPC cannot name meaningfully).
// The emitted reference is an import-backed qualified identifier, the
// Go reading of "rendered as an import-backed identifier" for a value
// that's reachable by module path rather than needing its body
// reconstructed.
func handleFunction(v reflect.Value, env *Env) (Triple, bool, error) {
	if !v.IsValid() || v.Kind() != reflect.Func || v.IsNil() {
		return Triple{}, false, nil
	}

	fn := runtime.FuncForPC(v.Pointer())
	if fn == nil {
		return Triple{}, false, nil
	}
	full := fn.Name()
	if full == "" || strings.Contains(full, ".func") {
		// Anonymous closures render as "pkg.Outer.func1"; these have no
		// stable top-level reference and cannot be represented.
		return Triple{}, false, nil
	}

	pkgPath, symbol := splitFuncName(full)
	if pkgPath == "" {
		return Triple{}, false, nil
	}

	alias := pkgAlias(pkgPath)
	expr := symbol
	if alias != "" {
		expr = alias + "." + lastSegment(symbol)
	}

	return Triple{
		Expr:    expr,
		Imports: []Import{{Path: pkgPath}},
		Pure:    true,
	}, true, nil
}

// splitFuncName turns "github.com/user/pkg.Foo" or
// "github.com/user/pkg.(*T).Method" into (pkgPath, symbol).
func splitFuncName(full string) (pkgPath, symbol string) {
	lastSlash := strings.LastIndex(full, "/")
	rest := full
	prefix := ""
	if lastSlash >= 0 {
		prefix = full[:lastSlash+1]
		rest = full[lastSlash+1:]
	}
	dot := strings.Index(rest, ".")
	if dot < 0 {
		return "", ""
	}
	pkgName := rest[:dot]
	symbol = rest[dot+1:]
	return prefix + pkgName, symbol
}

func lastSegment(symbol string) string {
	if i := strings.LastIndex(symbol, "."); i >= 0 {
		return symbol[i+1:]
	}
	return symbol
}

func pkgAlias(pkgPath string) string {
	if i := strings.LastIndex(pkgPath, "/"); i >= 0 {
		return pkgPath[i+1:]
	}
	return pkgPath
}
