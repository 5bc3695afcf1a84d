package topology

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/graph/path"
	"gonum.org/v1/gonum/graph/topo"
)

// Components returns the vertex indices of each connected component. Each
// component is sorted ascending and components are ordered by their first
// vertex.
func (g *Graph) Components() [][]int {
	ccs := topo.ConnectedComponents(g.graph)
	out := make([][]int, 0, len(ccs))
	for _, cc := range ccs {
		ids := make([]int, len(cc))
		for i, n := range cc {
			ids[i] = int(n.ID())
		}
		sort.Ints(ids)
		out = append(out, ids)
	}
	sort.Slice(out, func(i, j int) bool { return out[i][0] < out[j][0] })
	return out
}

// IsConnected reports whether the graph has at most one connected component.
func (g *Graph) IsConnected() bool {
	return len(topo.ConnectedComponents(g.graph)) <= 1
}

// SpanningTree returns a spanning tree of the graph over the same vertices.
// It fails with ErrDisconnected when the graph has more than one component.
func (g *Graph) SpanningTree() (*Graph, error) {
	if n := len(topo.ConnectedComponents(g.graph)); n > 1 {
		return nil, fmt.Errorf("spanning tree over %d components: %w", n, ErrDisconnected)
	}

	// Kruskal adds every node to the destination itself.
	tree := g.shell()
	path.Kruskal(tree.graph, g.graph)
	if n := tree.Order(); n > 0 {
		tree.size = n - 1
	}
	return tree, nil
}

// LargestComponent returns the subgraph induced by the largest connected
// component. Ties go to the component holding the earliest inserted
// vertex; vertex order is preserved.
func (g *Graph) LargestComponent() *Graph {
	sub := NewGraph()
	ccs := g.Components()
	if len(ccs) == 0 {
		return sub
	}

	best := ccs[0]
	for _, cc := range ccs[1:] {
		if len(cc) > len(best) {
			best = cc
		}
	}

	for _, i := range best {
		v := g.vertices[i]
		// IDs are unique in g, so this cannot fail.
		_ = sub.AddVertex(v.ID, v.Coords)
	}
	for _, e := range g.Edges() {
		if _, ok := sub.ids[e.Src]; !ok {
			continue
		}
		_ = sub.AddEdge(e.Src, e.Dst, e.Quality)
	}
	return sub
}
