package model

import (
	"fmt"

	"github.com/ritzau/meshchurn/pkg/topology"
)

// Topology is the wire form of a mesh: what the web API serves and what
// the JSON output format stores.
type Topology struct {
	Nodes []*Node `json:"nodes" yaml:"nodes"`
	Links []*Link `json:"links" yaml:"links"`
}

// NewTopology creates a new empty topology.
func NewTopology() *Topology {
	return &Topology{
		Nodes: make([]*Node, 0),
		Links: make([]*Link, 0),
	}
}

// Node represents a site.
type Node struct {
	ID       string                 `json:"id" yaml:"id"`
	Index    int                    `json:"index" yaml:"index"`
	Lon      *float64               `json:"lon,omitempty" yaml:"lon,omitempty"`
	Lat      *float64               `json:"lat,omitempty" yaml:"lat,omitempty"`
	Metadata map[string]interface{} `json:"metadata,omitempty" yaml:"metadata,omitempty"`
}

// Link represents an undirected radio link between two sites.
type Link struct {
	Source  string  `json:"source" yaml:"source"`
	Target  string  `json:"target" yaml:"target"`
	Quality float64 `json:"quality" yaml:"quality"`
	Bridge  bool    `json:"bridge" yaml:"bridge"` // Losing it would partition the mesh
}

// AddNode appends a node.
func (t *Topology) AddNode(node *Node) {
	t.Nodes = append(t.Nodes, node)
}

// AddLink appends a link.
func (t *Topology) AddLink(link *Link) {
	t.Links = append(t.Links, link)
}

// FromGraph converts g, flagging the links in bridges.
func FromGraph(g *topology.Graph, bridges []topology.Edge) *Topology {
	isBridge := make(map[topology.EdgeKey]bool, len(bridges))
	for _, b := range bridges {
		isBridge[b.Key()] = true
	}

	t := NewTopology()
	for i, v := range g.Vertices() {
		n := &Node{ID: v.ID, Index: i}
		if v.Coords != nil {
			lon, lat := v.Coords.Lon, v.Coords.Lat
			n.Lon, n.Lat = &lon, &lat
		}
		t.AddNode(n)
	}
	for _, e := range g.Edges() {
		t.AddLink(&Link{
			Source:  e.Src,
			Target:  e.Dst,
			Quality: e.Quality,
			Bridge:  isBridge[e.Key()],
		})
	}
	return t
}

// ToGraph rebuilds a topology.Graph. Nodes keep their listed order, which
// need not match Index.
func (t *Topology) ToGraph() (*topology.Graph, error) {
	g := topology.NewGraph()
	for _, n := range t.Nodes {
		var coords *topology.Coordinates
		if n.Lon != nil && n.Lat != nil {
			coords = &topology.Coordinates{Lon: *n.Lon, Lat: *n.Lat}
		}
		if err := g.AddVertex(n.ID, coords); err != nil {
			return nil, err
		}
	}
	for _, l := range t.Links {
		q := l.Quality
		if q == 0 {
			q = topology.DefaultQuality
		}
		if err := g.AddEdge(l.Source, l.Target, q); err != nil {
			return nil, fmt.Errorf("link %s-%s: %w", l.Source, l.Target, err)
		}
	}
	return g, nil
}
