// Package bridges finds the links whose loss would partition a mesh.
//
// The search numbers a spanning tree in pre-order and then sweeps it bottom
// up, tracking for every subtree the lowest and highest pre-order number it
// reaches through tree links plus one non-tree link. A tree link into a
// subtree is a bridge exactly when nothing in that subtree reaches outside
// the subtree's own number range. The whole search is linear in the size of
// the graph and uses no recursion.
package bridges

import (
	"errors"
	"fmt"

	"github.com/ritzau/meshchurn/pkg/topology"
)

// ErrCycleInTree means the spanning tree revisited a vertex while being
// numbered. It indicates a bug in the spanning tree, not bad input.
var ErrCycleInTree = errors.New("bridges: cycle in spanning tree")

// Find returns the bridges of a connected graph in g.Edges() order, with
// their current quality. It fails with topology.ErrDisconnected when g has
// more than one component. g is not modified.
func Find(g *topology.Graph) ([]topology.Edge, error) {
	if g.Order() == 0 {
		return nil, nil
	}

	tree, err := g.SpanningTree()
	if err != nil {
		return nil, err
	}

	f := newFinder(g, tree)
	if err := f.number(0); err != nil {
		return nil, err
	}
	keys := f.sweep()

	if len(keys) == 0 {
		return nil, nil
	}
	out := make([]topology.Edge, 0, len(keys))
	for _, e := range g.Edges() {
		if keys[e.Key()] {
			out = append(out, e)
		}
	}
	return out, nil
}

// Eligible returns the links of g that are not bridges, i.e. the links that
// can fail without partitioning the graph.
func Eligible(g *topology.Graph) ([]topology.Edge, error) {
	found, err := Find(g)
	if err != nil {
		return nil, err
	}
	isBridge := make(map[topology.EdgeKey]bool, len(found))
	for _, e := range found {
		isBridge[e.Key()] = true
	}

	all := g.Edges()
	out := make([]topology.Edge, 0, len(all)-len(found))
	for _, e := range all {
		if !isBridge[e.Key()] {
			out = append(out, e)
		}
	}
	return out, nil
}

// finder holds the scratch state of one search. Slices named by pre-order
// number are indexed by that number, everything else by vertex index.
type finder struct {
	graph *topology.Graph
	tree  *topology.Graph

	pre    []int // vertex -> pre-order number, -1 while unvisited
	order  []int // pre-order number -> vertex
	parent []int // pre-order number -> parent's pre-order number, -1 at the root

	low  []int // by pre-order number
	high []int // by pre-order number
	desc []int // by pre-order number, subtree size including the node
}

func newFinder(g, tree *topology.Graph) *finder {
	n := g.Order()
	f := &finder{
		graph:  g,
		tree:   tree,
		pre:    make([]int, n),
		order:  make([]int, 0, n),
		parent: make([]int, n),
		low:    make([]int, n),
		high:   make([]int, n),
		desc:   make([]int, n),
	}
	for i := range f.pre {
		f.pre[i] = -1
	}
	return f
}

// number walks the tree depth first from root and assigns pre-order
// numbers 0, 1, 2, ... in visiting order.
func (f *finder) number(root int) error {
	n := f.graph.Order()
	via := make([]int, n) // vertex that pushed each vertex
	for i := range via {
		via[i] = -1
	}

	stack := []int{root}
	for len(stack) > 0 {
		v := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if f.pre[v] != -1 {
			return fmt.Errorf("%w: vertex %s reached twice", ErrCycleInTree, f.graph.VertexAt(v).ID)
		}
		num := len(f.order)
		f.pre[v] = num
		f.order = append(f.order, v)
		f.parent[num] = -1
		if p := via[v]; p != -1 {
			f.parent[num] = f.pre[p]
		}

		// Push in reverse so the lowest index is visited first.
		children := f.tree.NeighborIndices(v)
		for k := len(children) - 1; k >= 0; k-- {
			w := children[k]
			if w == via[v] {
				continue
			}
			via[w] = v
			stack = append(stack, w)
		}
	}

	if len(f.order) != n {
		return fmt.Errorf("numbered %d of %d vertices: %w", len(f.order), n, topology.ErrDisconnected)
	}
	return nil
}

// sweep visits nodes in decreasing pre-order number. Every child has a
// larger number than its parent, so each subtree is complete when its root
// is reached and can be folded into the parent right away.
func (f *finder) sweep() map[topology.EdgeKey]bool {
	n := len(f.order)
	for p := 0; p < n; p++ {
		f.low[p] = p
		f.high[p] = p
		f.desc[p] = 1
	}

	found := make(map[topology.EdgeKey]bool)
	for p := n - 1; p >= 0; p-- {
		v := f.order[p]
		for _, w := range f.crossNeighbors(v) {
			q := f.pre[w]
			f.low[p] = min(f.low[p], q)
			f.high[p] = max(f.high[p], q)
		}

		par := f.parent[p]
		if par < 0 {
			continue
		}
		if f.low[p] == p && f.high[p] < p+f.desc[p] {
			u := f.graph.VertexAt(f.order[par]).ID
			found[topology.MakeKey(u, f.graph.VertexAt(v).ID)] = true
		}
		f.low[par] = min(f.low[par], f.low[p])
		f.high[par] = max(f.high[par], f.high[p])
		f.desc[par] += f.desc[p]
	}
	return found
}

// crossNeighbors returns the graph neighbours of v that are not its tree
// neighbours. Both lists are sorted, so a merge suffices.
func (f *finder) crossNeighbors(v int) []int {
	all := f.graph.NeighborIndices(v)
	inTree := f.tree.NeighborIndices(v)

	var out []int
	j := 0
	for _, w := range all {
		for j < len(inTree) && inTree[j] < w {
			j++
		}
		if j < len(inTree) && inTree[j] == w {
			continue
		}
		out = append(out, w)
	}
	return out
}
