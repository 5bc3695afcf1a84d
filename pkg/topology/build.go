package topology

// Build creates a graph from a vertex list and a link list. Vertices
// referenced only by links are added after the listed ones, in the order
// they first appear.
func Build(vertices []string, edges []Edge) (*Graph, error) {
	g := NewGraph()
	for _, id := range vertices {
		if err := g.AddVertex(id, nil); err != nil {
			return nil, err
		}
	}
	for _, e := range edges {
		for _, id := range []string{e.Src, e.Dst} {
			if _, ok := g.ids[id]; !ok {
				if err := g.AddVertex(id, nil); err != nil {
					return nil, err
				}
			}
		}
		q := e.Quality
		if q == 0 {
			q = DefaultQuality
		}
		if err := g.AddEdge(e.Src, e.Dst, q); err != nil {
			return nil, err
		}
	}
	return g, nil
}
