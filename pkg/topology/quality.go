package topology

import (
	"fmt"

	"github.com/ritzau/meshchurn/pkg/sample"
)

// SetQuality assigns a quality to each of the given links, sampling q once
// per link. A nil edges slice means every link in the graph.
func (g *Graph) SetQuality(q sample.Param, edges []Edge) error {
	if edges == nil {
		edges = g.Edges()
	}
	for _, e := range edges {
		uid, uok := g.ids[e.Src]
		vid, vok := g.ids[e.Dst]
		if !uok || !vok || !g.graph.HasEdgeBetween(uid, vid) {
			return fmt.Errorf("%w: (%s,%s)", ErrEdgeNotFound, e.Src, e.Dst)
		}
		v := q.Sample()
		if !(v > 0) {
			return fmt.Errorf("%w: sampled %v for (%s,%s)", ErrBadQuality, v, e.Src, e.Dst)
		}
		g.graph.SetWeightedEdge(g.graph.NewWeightedEdge(g.graph.Node(uid), g.graph.Node(vid), v))
	}
	return nil
}
