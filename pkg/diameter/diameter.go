// Package diameter finds the two sites of a mesh that are farthest apart.
package diameter

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/path"

	"github.com/ritzau/meshchurn/pkg/topology"
)

// Result is the most distant pair of sites and their shortest-path distance.
type Result struct {
	Src      string  `json:"src"`
	Dst      string  `json:"dst"`
	Distance float64 `json:"distance"`
}

// hopCount hides the edge weights of the wrapped graph, so path searches
// count links instead of summing qualities.
type hopCount struct {
	graph.Undirected
}

// Longest returns the pair of vertices with the largest finite
// shortest-path distance. Link quality is the length of a link; with hops
// set every link has length one instead. Pairs without a path are skipped,
// so on a partitioned mesh the result lies within one component. Among
// pairs at the same distance the one found first in vertex insertion order
// wins.
//
// A single vertex has diameter zero. An empty graph, or one where no two
// vertices are connected, has no finite maximum and yields ErrDisconnected.
func Longest(g *topology.Graph, hops bool) (Result, error) {
	n := g.Order()
	if n == 0 {
		return Result{}, fmt.Errorf("diameter of empty graph: %w", topology.ErrDisconnected)
	}
	first := g.VertexAt(0).ID
	if n == 1 {
		return Result{Src: first, Dst: first}, nil
	}

	var search graph.Graph = g.Graph()
	if hops {
		search = hopCount{g.Graph()}
	}
	paths := path.DijkstraAllPaths(search)

	var best Result
	found := false
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			d := paths.Weight(int64(i), int64(j))
			if math.IsInf(d, 1) {
				continue
			}
			if !found || d > best.Distance {
				best = Result{Src: g.VertexAt(i).ID, Dst: g.VertexAt(j).ID, Distance: d}
				found = true
			}
		}
	}
	if !found {
		return Result{}, fmt.Errorf("no two of %d vertices are connected: %w", n, topology.ErrDisconnected)
	}
	return best, nil
}
