// Package graphbuild walks a set of root values and builds the
// de-duplicated dependency graph the reducer and emitter consume. The
// walk is iterative (an explicit worklist, not call-stack recursion) so
// a deep user object graph can never exhaust the call stack.
package graphbuild

import (
	"reflect"

	"github.com/phobologic/persist/internal/identity"
	"github.com/phobologic/persist/persisterr"
	"github.com/phobologic/persist/represent"
)

// Classification records why a node exists: a user-named top-level
// binding, or an internal node the reducer names itself.
type Classification int

const (
	Internal Classification = iota
	TopLevel
)

// Node is one value in the graph: its triple, a Name field that Build
// leaves empty (the reducer keeps the names it assigns in its own plan),
// and the bookkeeping the reducer needs to make inlining and ordering
// decisions.
type Node struct {
	ID             int
	Triple         represent.Triple
	Name           string
	Classification Classification
	RefCount       int
	// ChildIDs parallels Triple.Args: ChildIDs[i] is the node id that
	// Args[i].Value resolved to.
	ChildIDs []int
}

// Root is one top-level value to insert, carrying the user-supplied
// name it should keep (collision checked by the caller before Build).
type Root struct {
	Name  string
	Value any
}

// Graph is the de-duplicated, cycle-free node set Build produces.
type Graph struct {
	Nodes  []*Node
	TopIDs []int // node ids for each Root, in Root order
	byKey  map[identity.Key]int
}

// ref points at the single slot a resolved child id must be written
// into: either a Root's TopIDs entry, or a parent node's ChildIDs entry.
type ref struct {
	rootIdx int // >= 0 for a root slot, -1 otherwise
	nodeID  int // >= 0 for a node's ChildIDs slot, -1 otherwise
	argIdx  int
}

type frame struct {
	enter bool // true = visit this value; false = this is an exit marker
	value reflect.Value
	dest  ref
	// exit-only fields
	key identity.Key
}

// Build walks every root's value graph with an explicit stack, assigning
// one Node per distinct identity key and recording parent→child edges by
// filling in ChildIDs as each child resolves. A value still being walked
// that is re-entered (a genuine cycle, not a repeat of an already
// finished value) fails with persisterr.CyclicError; no source is
// emitted for a failed build.
func Build(roots []Root, env *represent.Env) (*Graph, error) {
	g := &Graph{byKey: make(map[identity.Key]int)}
	g.TopIDs = make([]int, len(roots))

	inProgress := make(map[identity.Key]bool)
	var path []identity.Key

	var stack []frame
	// Push in reverse so roots are visited in their given order (stack
	// is LIFO).
	for i := len(roots) - 1; i >= 0; i-- {
		stack = append(stack, frame{
			enter: true,
			value: reflect.ValueOf(roots[i].Value),
			dest:  ref{rootIdx: i, nodeID: -1},
		})
	}

	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if !f.enter {
			delete(inProgress, f.key)
			path = path[:len(path)-1]
			continue
		}

		key, err := identity.Of(f.value)
		if err != nil {
			return nil, err
		}

		// A value re-entered while its own children are still being
		// walked is a genuine cycle; it must be caught before the
		// dedup lookup, since a node is registered there the moment it
		// is allocated.
		if inProgress[key] {
			return nil, &persisterr.CyclicError{Path: describePath(append(path, key))}
		}

		if id, ok := g.byKey[key]; ok {
			g.Nodes[id].RefCount++
			writeDest(g, f.dest, id)
			continue
		}

		triple, err := env.Registry.Represent(f.value, env)
		if err != nil {
			return nil, err
		}

		node := &Node{
			ID:       len(g.Nodes),
			Triple:   triple,
			RefCount: 1,
		}
		node.ChildIDs = make([]int, len(triple.Args))
		for i := range node.ChildIDs {
			node.ChildIDs[i] = -1
		}
		g.Nodes = append(g.Nodes, node)
		g.byKey[key] = node.ID
		writeDest(g, f.dest, node.ID)

		if len(triple.Args) == 0 {
			continue
		}

		inProgress[key] = true
		path = append(path, key)
		stack = append(stack, frame{enter: false, key: key})

		// Push children in reverse so they're visited left to right.
		for i := len(triple.Args) - 1; i >= 0; i-- {
			stack = append(stack, frame{
				enter: true,
				value: reflect.ValueOf(triple.Args[i].Value),
				dest:  ref{rootIdx: -1, nodeID: node.ID, argIdx: i},
			})
		}
	}

	for _, id := range g.TopIDs {
		g.Nodes[id].Classification = TopLevel
	}

	return g, nil
}

func writeDest(g *Graph, d ref, id int) {
	if d.rootIdx >= 0 {
		g.TopIDs[d.rootIdx] = id
		return
	}
	g.Nodes[d.nodeID].ChildIDs[d.argIdx] = id
}

func describePath(keys []identity.Key) []string {
	out := make([]string, len(keys))
	for i, k := range keys {
		out[i] = k.String()
	}
	return out
}
