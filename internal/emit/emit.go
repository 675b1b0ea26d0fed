// Package emit turns a reduce.Plan into Go source text: a package
// clause, a hoisted and sorted import block, and one package-level var
// declaration per retained node. Output is assembled as parts joined
// once at the end, never written incrementally, so two emissions of
// the same plan are byte-identical.
package emit

import (
	"fmt"
	"sort"
	"strings"

	"github.com/phobologic/persist/internal/reduce"
)

// Options configures how a plan is rendered into a source file.
type Options struct {
	PackageName string
	// DataName is the ambient sidecar-lookup variable name; referenced
	// directly by any retained expression that partitioned an array, so
	// the emitter only needs it to decide whether to declare the
	// loader var itself (SidecarKeys non-empty) under this name.
	DataName string
	// SidecarKeys, when non-empty, causes the emitter to prepend a
	// loader declaration binding DataName to the result of loaderExpr
	// (supplied by the packager, which knows the on-disk layout).
	SidecarKeys []string
	LoaderExpr  string
	// SingleItem renders the sole root under an exported "Value" name
	// instead of the name it was inserted under — the Go substitute for
	// Python's "importing the module yields the value" (no runtime
	// module-table surgery exists in Go).
	SingleItem bool
}

// Emit renders plan as a complete Go source file.
func Emit(plan *reduce.Plan, opts Options) (string, error) {
	if opts.SingleItem && len(plan.RootName) != 1 {
		return "", fmt.Errorf("emit: single-item mode requires exactly one root, got %d", len(plan.RootName))
	}

	var parts []string
	parts = append(parts, "package "+opts.PackageName)

	imports := collectImports(plan, opts)
	if len(imports) > 0 {
		var b strings.Builder
		b.WriteString("import (\n")
		for _, imp := range imports {
			b.WriteString("\t" + imp + "\n")
		}
		b.WriteString(")")
		parts = append(parts, b.String())
	}

	if len(opts.SidecarKeys) > 0 {
		name := opts.DataName
		if name == "" {
			name = "_arrays"
		}
		parts = append(parts, fmt.Sprintf("var %s = %s", name, opts.LoaderExpr))
	}

	rootNodeNames := topLevelDisplayNames(plan, opts)

	var decls []string
	for _, a := range plan.Order {
		name := a.Name
		if display, ok := rootNodeNames[a.NodeID]; ok {
			name = display
		}
		decls = append(decls, fmt.Sprintf("var %s = %s", name, a.FinalExpr))
	}
	parts = append(parts, strings.Join(decls, "\n"))

	return strings.Join(parts, "\n\n") + "\n", nil
}

// topLevelDisplayNames maps a root's node id to the name it should be
// declared under, applying the single-item-mode "Value" substitution.
func topLevelDisplayNames(plan *reduce.Plan, opts Options) map[int]string {
	out := make(map[int]string, len(plan.RootName))
	byName := make(map[string]int, len(plan.Order))
	for _, a := range plan.Order {
		byName[a.Name] = a.NodeID
	}
	for _, name := range plan.RootName {
		id, ok := byName[name]
		if !ok {
			continue
		}
		if opts.SingleItem {
			out[id] = "Value"
			continue
		}
		out[id] = name
	}
	return out
}

func collectImports(plan *reduce.Plan, opts Options) []string {
	seen := make(map[string]bool)
	var out []string
	if len(opts.SidecarKeys) > 0 {
		// The loader declaration references the sidecar package itself.
		imp := `"github.com/phobologic/persist/sidecar"`
		seen[imp] = true
		out = append(out, imp)
	}
	for _, a := range plan.Order {
		for _, imp := range a.Imports {
			if !seen[imp] {
				seen[imp] = true
				out = append(out, imp)
			}
		}
	}
	sort.Strings(out)
	return out
}
