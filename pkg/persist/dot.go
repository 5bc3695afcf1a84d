package persist

import (
	"fmt"
	"io"

	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/encoding"
	"gonum.org/v1/gonum/graph/encoding/dot"
	"gonum.org/v1/gonum/graph/simple"

	"github.com/ritzau/meshchurn/pkg/topology"
)

// dotNode is a vertex as rendered in DOT.
type dotNode struct {
	id     int64
	name   string
	coords *topology.Coordinates
}

func (n dotNode) ID() int64     { return n.id }
func (n dotNode) DOTID() string { return n.name }

func (n dotNode) Attributes() []encoding.Attribute {
	if n.coords == nil {
		return nil
	}
	return []encoding.Attribute{
		{Key: "pos", Value: fmt.Sprintf("%g,%g!", n.coords.Lon, n.coords.Lat)},
	}
}

// dotEdge is a link as rendered in DOT. Bridges are drawn bold and red.
type dotEdge struct {
	from, to graph.Node
	quality  float64
	bridge   bool
}

func (e dotEdge) From() graph.Node { return e.from }
func (e dotEdge) To() graph.Node   { return e.to }

func (e dotEdge) ReversedEdge() graph.Edge {
	return dotEdge{from: e.to, to: e.from, quality: e.quality, bridge: e.bridge}
}

func (e dotEdge) Attributes() []encoding.Attribute {
	attrs := []encoding.Attribute{{Key: "quality", Value: formatFloat(e.quality)}}
	if e.bridge {
		attrs = append(attrs,
			encoding.Attribute{Key: "color", Value: "red"},
			encoding.Attribute{Key: "style", Value: "bold"},
		)
	}
	return attrs
}

// WriteDOT writes g as an undirected GraphViz graph. DOT output is for
// viewing only; it is not read back.
func WriteDOT(w io.Writer, g *topology.Graph, bridges []topology.Edge) error {
	isBridge := make(map[topology.EdgeKey]bool, len(bridges))
	for _, b := range bridges {
		isBridge[b.Key()] = true
	}

	view := simple.NewUndirectedGraph()
	nodes := make(map[string]dotNode, g.Order())
	for i, v := range g.Vertices() {
		n := dotNode{id: int64(i), name: v.ID, coords: v.Coords}
		nodes[v.ID] = n
		view.AddNode(n)
	}
	for _, e := range g.Edges() {
		view.SetEdge(dotEdge{
			from:    nodes[e.Src],
			to:      nodes[e.Dst],
			quality: e.Quality,
			bridge:  isBridge[e.Key()],
		})
	}

	data, err := dot.Marshal(view, "mesh", "", "\t")
	if err != nil {
		return fmt.Errorf("failed to write DOT: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		return err
	}
	_, err = io.WriteString(w, "\n")
	return err
}
