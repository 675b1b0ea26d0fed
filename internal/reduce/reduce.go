// Package reduce turns a graphbuild.Graph into an emission plan: every
// node gets a final name (or is folded into its sole consumer), nodes
// are ordered so dependencies are emitted before dependents, and each
// retained node's expression has its child placeholders rewritten to
// reference the names the reducer assigned. This is the densest
// subsystem in the pipeline — name collisions, single-use inlining and
// topological ordering all interact, and every step must stay
// deterministic regardless of Go's randomized map iteration.
package reduce

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/phobologic/persist/internal/gosyntax"
	"github.com/phobologic/persist/internal/graphbuild"
	"github.com/phobologic/persist/persisterr"
)

// Options controls which substitution strategy the reducer uses and
// whether single-use inlining runs at all.
type Options struct {
	// Scoped selects scoped emission (every node keeps its own
	// declaration); flat lets single-use pure nodes fold into their
	// consumer. Inlining only applies in flat mode.
	Scoped bool
	// RobustReplace selects the syntax-tree substitution strategy
	// (internal/gosyntax.SubstituteSyntaxTree) over the default textual
	// one, for expressions whose literals might contain
	// identifier-shaped substrings.
	RobustReplace bool
}

// Assignment is one node's final disposition.
type Assignment struct {
	NodeID    int
	Name      string // "" if Inlined
	Inlined   bool
	FinalExpr string
	Imports   []string
}

// Plan is the reducer's output: every retained node in emission order,
// plus the final name bound to each root.
type Plan struct {
	Order    []Assignment // retained nodes, dependencies before dependents
	RootName []string     // RootName[i] is the name bound to roots[i]
}

// Reduce computes the plan for g. rootNames must be parallel to
// g.TopIDs and already collision-checked by the caller (Archive.Insert
// rejects a colliding top-level name before the graph is ever built).
func Reduce(g *graphbuild.Graph, rootNames []string, opts Options) (*Plan, error) {
	n := len(g.Nodes)

	isTop := make([]bool, n)
	topName := make(map[int]string, len(g.TopIDs))
	for i, id := range g.TopIDs {
		isTop[id] = g.Nodes[id].Classification == graphbuild.TopLevel
		topName[id] = rootNames[i]
	}

	reverse := buildReverseRefs(g)

	for _, node := range g.Nodes {
		if err := checkPlaceholders(node); err != nil {
			return nil, err
		}
	}

	// In flat mode generated names share one namespace with every free
	// identifier any expression references, so all of those are reserved
	// up front. Scoped mode keeps each node a separate declaration whose
	// initializer is its own scope, so only assigned names can collide.
	var reserved map[string]bool
	if !opts.Scoped {
		reserved = freeIdentifiers(g)
	}

	names, err := assignNames(g, isTop, topName, reserved)
	if err != nil {
		return nil, err
	}

	inlined := make([]bool, n)
	if !opts.Scoped {
		inlined = computeInlining(g, isTop, reverse)
	}

	order, err := topoOrder(g)
	if err != nil {
		return nil, err
	}

	finalExpr := make([]string, n)
	plan := &Plan{RootName: append([]string(nil), rootNames...)}

	for _, id := range order {
		node := g.Nodes[id]
		expr, err := substituteArgs(node, g, finalExpr, names, inlined, opts)
		if err != nil {
			return nil, err
		}
		finalExpr[id] = expr

		if inlined[id] {
			continue
		}
		plan.Order = append(plan.Order, Assignment{
			NodeID:    id,
			Name:      names[id],
			Inlined:   false,
			FinalExpr: expr,
			Imports:   importPaths(node),
		})
	}

	return plan, nil
}

func importPaths(node *graphbuild.Node) []string {
	out := make([]string, len(node.Triple.Imports))
	for i, imp := range node.Triple.Imports {
		if imp.Alias != "" {
			out[i] = imp.Alias + " " + fmt.Sprintf("%q", imp.Path)
		} else {
			out[i] = fmt.Sprintf("%q", imp.Path)
		}
	}
	return out
}

// buildReverseRefs maps each node id to the (parent id, arg index)
// pairs that reference it, the information single-use inlining needs to
// find a node's sole consumer.
type parentRef struct {
	parentID int
	argIdx   int
}

func buildReverseRefs(g *graphbuild.Graph) map[int][]parentRef {
	refs := make(map[int][]parentRef)
	for _, node := range g.Nodes {
		for i, cid := range node.ChildIDs {
			refs[cid] = append(refs[cid], parentRef{parentID: node.ID, argIdx: i})
		}
	}
	return refs
}

var (
	identTokenRE  = regexp.MustCompile(`[A-Za-z_][A-Za-z0-9_]*`)
	placeholderRE = regexp.MustCompile(`^_(?:[ekvfsa][0-9]+|state)$`)
)

// checkPlaceholders verifies every placeholder-shaped identifier a
// representer's expression references was actually declared in its Args.
// A stray one would survive substitution and reach the emitted source as
// an identifier nothing defines — a representer bug, reported before any
// rewriting happens. The scan is textual, so a string literal spelling a
// placeholder can false-positive, the same caveat the textual
// substitution strategy carries.
func checkPlaceholders(node *graphbuild.Node) error {
	declared := make(map[string]bool, len(node.Triple.Args))
	for _, a := range node.Triple.Args {
		declared[a.Name] = true
	}
	for _, tok := range identTokenRE.FindAllString(node.Triple.Expr, -1) {
		if placeholderRE.MatchString(tok) && !declared[tok] {
			return &persisterr.UnboundIdentifierError{Name: tok, Expr: node.Triple.Expr}
		}
	}
	return nil
}

// freeIdentifiers collects every identifier-shaped token appearing in
// any expression, the set flat-mode generated names must avoid.
func freeIdentifiers(g *graphbuild.Graph) map[string]bool {
	out := make(map[string]bool)
	for _, node := range g.Nodes {
		for _, tok := range identTokenRE.FindAllString(node.Triple.Expr, -1) {
			out[tok] = true
		}
	}
	return out
}

// assignNames gives every top-level node its user name and every
// internal node a monotonic "_gN", renumbering on collision against any
// name already claimed (by a top-level binding, an earlier "_gN", or a
// reserved free identifier).
func assignNames(g *graphbuild.Graph, isTop []bool, topName map[int]string, reserved map[string]bool) (map[int]string, error) {
	names := make(map[int]string, len(g.Nodes))

	// Top-level names only collide with each other; free identifiers
	// inside expressions live in closure scopes or import qualifiers and
	// never contest a top-level binding's slot.
	used := make(map[string]bool)
	for id, name := range topName {
		if used[name] {
			return nil, &persisterr.NameCollisionError{Name: name}
		}
		used[name] = true
		names[id] = name
	}
	for name := range reserved {
		used[name] = true
	}

	counter := 0
	for _, node := range g.Nodes {
		if isTop[node.ID] {
			continue
		}
		var name string
		for {
			name = fmt.Sprintf("_g%d", counter)
			counter++
			if !used[name] {
				break
			}
		}
		used[name] = true
		names[node.ID] = name
	}

	return names, nil
}

// computeInlining runs the single-use-inlining fixed point: a node
// inlines into its sole consumer when it has exactly one reference, is
// not itself a top-level binding, and its representer tagged it pure.
// Leaves (higher node ids in this builder's discovery order) are tried
// before containers each pass, and the whole pass repeats until no node
// changes state.
func computeInlining(g *graphbuild.Graph, isTop []bool, reverse map[int][]parentRef) []bool {
	inlined := make([]bool, len(g.Nodes))

	ids := make([]int, len(g.Nodes))
	for i := range ids {
		ids[i] = i
	}
	sort.Sort(sort.Reverse(sort.IntSlice(ids)))

	for {
		changed := false
		for _, id := range ids {
			if inlined[id] || isTop[id] {
				continue
			}
			node := g.Nodes[id]
			if !node.Triple.Pure || node.RefCount != 1 {
				continue
			}
			refs := reverse[id]
			if len(refs) != 1 {
				continue
			}
			inlined[id] = true
			changed = true
		}
		if !changed {
			break
		}
	}
	return inlined
}

// topoOrder returns every node id in dependency order: a node never
// appears before any node it depends on. Traversal starts from each
// root in insertion order, ties break by node id, and the walk is
// iterative to avoid recursion depth limits, same as graphbuild.Build.
func topoOrder(g *graphbuild.Graph) ([]int, error) {
	visited := make([]bool, len(g.Nodes))
	onStack := make([]bool, len(g.Nodes))
	var order []int

	type frame struct {
		id       int
		childIdx int
	}

	for _, root := range g.TopIDs {
		if visited[root] {
			continue
		}
		var stack []frame
		stack = append(stack, frame{id: root})
		onStack[root] = true

		for len(stack) > 0 {
			top := &stack[len(stack)-1]
			node := g.Nodes[top.id]

			if top.childIdx < len(node.ChildIDs) {
				cid := node.ChildIDs[top.childIdx]
				top.childIdx++
				if visited[cid] {
					continue
				}
				if onStack[cid] {
					return nil, &persisterr.BadRepresenterError{NodeID: cid, Reason: "residual cycle survived graph building"}
				}
				onStack[cid] = true
				stack = append(stack, frame{id: cid})
				continue
			}

			visited[top.id] = true
			onStack[top.id] = false
			order = append(order, top.id)
			stack = stack[:len(stack)-1]
		}
	}

	return order, nil
}

var primaryExprRE = regexp.MustCompile(`^&?[A-Za-z0-9_.\[\]]+[({]`)

// parenthesize wraps an inlined child expression in parentheses unless
// it is already a primary expression — a bare literal, an identifier, a
// quoted string, a call, or a composite literal — which embeds into any
// parent position without changing how it parses.
func parenthesize(expr string) string {
	switch {
	case !strings.ContainsAny(expr, " \t\n"):
		return expr
	case strings.HasPrefix(expr, `"`) && strings.HasSuffix(expr, `"`):
		return expr
	case strings.HasPrefix(expr, "func("):
		return expr
	case primaryExprRE.MatchString(expr):
		return expr
	}
	return "(" + expr + ")"
}

// substituteArgs rewrites node's expression, replacing each arg
// placeholder with the reference its child resolved to: the child's
// assigned name if retained, or the child's own already-computed final
// expression (parenthesized) if it was inlined.
func substituteArgs(node *graphbuild.Node, g *graphbuild.Graph, finalExpr []string, names map[int]string, inlined []bool, opts Options) (string, error) {
	var renames []gosyntax.Rename
	for i, arg := range node.Triple.Args {
		cid := node.ChildIDs[i]
		var to string
		if inlined[cid] {
			to = parenthesize(finalExpr[cid])
		} else {
			to = names[cid]
		}
		renames = append(renames, gosyntax.Rename{From: arg.Name, To: to})
	}
	if len(renames) == 0 {
		return node.Triple.Expr, nil
	}

	if opts.RobustReplace {
		return gosyntax.SubstituteSyntaxTree(node.Triple.Expr, renames)
	}
	return gosyntax.SubstituteTextual(node.Triple.Expr, renames), nil
}
