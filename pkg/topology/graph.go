// Package topology holds the in-memory model of a mesh network: sites as
// vertices and point-to-point radio links as undirected, quality-labelled
// edges. The graph is simple (no self-loops, at most one link per pair of
// sites) and is backed by a gonum weighted undirected graph whose edge
// weights are the link qualities.
package topology

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/simple"
)

// DefaultQuality is the quality given to links whose quality is not known.
const DefaultQuality = 3

var (
	// ErrEmptyVertexID indicates a vertex was added without an identifier.
	ErrEmptyVertexID = errors.New("topology: vertex ID is empty")

	// ErrDuplicateVertex indicates a vertex with the same ID already exists.
	ErrDuplicateVertex = errors.New("topology: duplicate vertex")

	// ErrVertexNotFound indicates an operation referenced an unknown vertex.
	ErrVertexNotFound = errors.New("topology: vertex not found")

	// ErrSelfLoop indicates an edge from a vertex to itself.
	ErrSelfLoop = errors.New("topology: self-loop not allowed")

	// ErrDuplicateEdge indicates a second edge between the same pair of vertices.
	ErrDuplicateEdge = errors.New("topology: duplicate edge")

	// ErrEdgeNotFound indicates an operation referenced an absent edge.
	ErrEdgeNotFound = errors.New("topology: edge not found")

	// ErrBadQuality indicates a link quality that is not a positive number.
	ErrBadQuality = errors.New("topology: quality must be positive")

	// ErrDisconnected indicates the graph has more than one connected component.
	ErrDisconnected = errors.New("topology: graph is not connected")
)

// Coordinates is the geographic position of a site. It is carried for
// import/export only.
type Coordinates struct {
	Lon float64 `json:"lon"`
	Lat float64 `json:"lat"`
}

// Vertex is a site in the network.
type Vertex struct {
	ID     string
	Coords *Coordinates
}

// Edge is an undirected link between two sites.
type Edge struct {
	Src     string
	Dst     string
	Quality float64
}

// EdgeKey identifies an undirected edge independently of endpoint order.
type EdgeKey struct {
	A, B string
}

// MakeKey returns the canonical key for the pair (u, v).
func MakeKey(u, v string) EdgeKey {
	if v < u {
		u, v = v, u
	}
	return EdgeKey{A: u, B: v}
}

// Key returns the canonical key of the edge.
func (e Edge) Key() EdgeKey {
	return MakeKey(e.Src, e.Dst)
}

func (e Edge) String() string {
	return fmt.Sprintf("(%s,%s,%g)", e.Src, e.Dst, e.Quality)
}

// Graph is a simple undirected graph of sites and links.
//
// Vertices get dense gonum node IDs in insertion order; that ID doubles as
// the vertex index used when exporting events. A Graph is not safe for
// concurrent mutation.
type Graph struct {
	graph    *simple.WeightedUndirectedGraph
	vertices []*Vertex        // indexed by node ID
	ids      map[string]int64 // vertex ID to node ID
	size     int
}

// NewGraph creates an empty graph.
func NewGraph() *Graph {
	return &Graph{
		graph: newBacking(),
		ids:   make(map[string]int64),
	}
}

func newBacking() *simple.WeightedUndirectedGraph {
	return simple.NewWeightedUndirectedGraph(0, math.Inf(1))
}

// AddVertex adds a site. coords may be nil.
func (g *Graph) AddVertex(id string, coords *Coordinates) error {
	if id == "" {
		return ErrEmptyVertexID
	}
	if _, exists := g.ids[id]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateVertex, id)
	}

	nid := int64(len(g.vertices))
	var c *Coordinates
	if coords != nil {
		cp := *coords
		c = &cp
	}
	g.vertices = append(g.vertices, &Vertex{ID: id, Coords: c})
	g.ids[id] = nid
	g.graph.AddNode(simple.Node(nid))
	return nil
}

// AddEdge adds a link between u and v with the given quality.
func (g *Graph) AddEdge(u, v string, quality float64) error {
	if u == v {
		return fmt.Errorf("%w: %s", ErrSelfLoop, u)
	}
	if !(quality > 0) || math.IsInf(quality, 0) {
		return fmt.Errorf("%w: %v on (%s,%s)", ErrBadQuality, quality, u, v)
	}
	uid, err := g.nodeID(u)
	if err != nil {
		return err
	}
	vid, err := g.nodeID(v)
	if err != nil {
		return err
	}
	if g.graph.HasEdgeBetween(uid, vid) {
		return fmt.Errorf("%w: (%s,%s)", ErrDuplicateEdge, u, v)
	}

	g.graph.SetWeightedEdge(g.graph.NewWeightedEdge(simple.Node(uid), simple.Node(vid), quality))
	g.size++
	return nil
}

// RemoveEdge removes the link between u and v.
func (g *Graph) RemoveEdge(u, v string) error {
	uid, uok := g.ids[u]
	vid, vok := g.ids[v]
	if !uok || !vok || !g.graph.HasEdgeBetween(uid, vid) {
		return fmt.Errorf("%w: (%s,%s)", ErrEdgeNotFound, u, v)
	}
	g.graph.RemoveEdge(uid, vid)
	g.size--
	return nil
}

// HasEdge reports whether u and v are linked.
func (g *Graph) HasEdge(u, v string) bool {
	uid, uok := g.ids[u]
	vid, vok := g.ids[v]
	return uok && vok && g.graph.HasEdgeBetween(uid, vid)
}

// Quality returns the quality of the link between u and v.
func (g *Graph) Quality(u, v string) (float64, bool) {
	uid, uok := g.ids[u]
	vid, vok := g.ids[v]
	if !uok || !vok || !g.graph.HasEdgeBetween(uid, vid) {
		return 0, false
	}
	return g.graph.Weight(uid, vid)
}

// Neighbors returns the sites linked to v in insertion order.
func (g *Graph) Neighbors(v string) ([]string, error) {
	vid, err := g.nodeID(v)
	if err != nil {
		return nil, err
	}
	ids := g.neighborIDs(vid)
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = g.vertices[id].ID
	}
	return out, nil
}

// neighborIDs returns the node IDs adjacent to id, ascending.
func (g *Graph) neighborIDs(id int64) []int64 {
	it := g.graph.From(id)
	var ids []int64
	for it.Next() {
		ids = append(ids, it.Node().ID())
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// NeighborIndices returns the indices of the vertices adjacent to the
// vertex at index i, ascending.
func (g *Graph) NeighborIndices(i int) []int {
	ids := g.neighborIDs(int64(i))
	out := make([]int, len(ids))
	for k, id := range ids {
		out[k] = int(id)
	}
	return out
}

// Vertex returns the vertex with the given ID.
func (g *Graph) Vertex(id string) (*Vertex, bool) {
	nid, ok := g.ids[id]
	if !ok {
		return nil, false
	}
	return g.vertices[nid], true
}

// VertexAt returns the vertex at index i.
func (g *Graph) VertexAt(i int) *Vertex {
	return g.vertices[i]
}

// Index returns the insertion index of a vertex.
func (g *Graph) Index(id string) (int, bool) {
	nid, ok := g.ids[id]
	return int(nid), ok
}

// Vertices returns all vertices in insertion order.
func (g *Graph) Vertices() []*Vertex {
	out := make([]*Vertex, len(g.vertices))
	copy(out, g.vertices)
	return out
}

// Edges returns all links ordered by the indices of their endpoints. Src
// is always the endpoint inserted first.
func (g *Graph) Edges() []Edge {
	edges := make([]Edge, 0, g.Size())
	for i := range g.vertices {
		uid := int64(i)
		for _, vid := range g.neighborIDs(uid) {
			if vid <= uid {
				continue
			}
			w, _ := g.graph.Weight(uid, vid)
			edges = append(edges, Edge{
				Src:     g.vertices[uid].ID,
				Dst:     g.vertices[vid].ID,
				Quality: w,
			})
		}
	}
	return edges
}

// Order returns the number of vertices.
func (g *Graph) Order() int {
	return len(g.vertices)
}

// Size returns the number of edges.
func (g *Graph) Size() int {
	return g.size
}

// Graph returns the underlying gonum graph. Node IDs are vertex indices
// and edge weights are qualities. Callers must not modify it.
func (g *Graph) Graph() *simple.WeightedUndirectedGraph {
	return g.graph
}

// Copy returns a deep, independent copy of the graph.
func (g *Graph) Copy() *Graph {
	c := g.shell()
	for _, n := range graph.NodesOf(g.graph.Nodes()) {
		c.graph.AddNode(n)
	}
	it := g.graph.WeightedEdges()
	for it.Next() {
		e := it.WeightedEdge()
		c.graph.SetWeightedEdge(c.graph.NewWeightedEdge(e.From(), e.To(), e.Weight()))
	}
	c.size = g.size
	return c
}

// shell copies the vertex bookkeeping into a graph with an empty backing
// graph, not even holding nodes.
func (g *Graph) shell() *Graph {
	c := &Graph{
		graph:    newBacking(),
		vertices: make([]*Vertex, len(g.vertices)),
		ids:      make(map[string]int64, len(g.ids)),
	}
	for i, v := range g.vertices {
		cv := &Vertex{ID: v.ID}
		if v.Coords != nil {
			coords := *v.Coords
			cv.Coords = &coords
		}
		c.vertices[i] = cv
		c.ids[v.ID] = int64(i)
	}
	return c
}

func (g *Graph) nodeID(id string) (int64, error) {
	nid, ok := g.ids[id]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrVertexNotFound, id)
	}
	return nid, nil
}

func (g *Graph) String() string {
	return fmt.Sprintf("graph(V=%d, E=%d)", g.Order(), g.Size())
}
