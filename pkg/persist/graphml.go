package persist

import (
	"encoding/xml"
	"fmt"
	"io"
	"strconv"

	"github.com/ritzau/meshchurn/pkg/topology"
)

const graphmlNS = "http://graphml.graphdrawing.org/xmlns"

// Attribute names. Files written by other tools are matched on attr.name,
// not on key ids.
const (
	attrName    = "name"
	attrLon     = "lon"
	attrLat     = "lat"
	attrQuality = "quality"
)

type graphmlDoc struct {
	XMLName xml.Name     `xml:"graphml"`
	XMLNS   string       `xml:"xmlns,attr,omitempty"`
	Keys    []graphmlKey `xml:"key"`
	Graph   graphmlGraph `xml:"graph"`
}

type graphmlKey struct {
	ID   string `xml:"id,attr"`
	For  string `xml:"for,attr"`
	Name string `xml:"attr.name,attr"`
	Type string `xml:"attr.type,attr"`
}

type graphmlGraph struct {
	ID          string        `xml:"id,attr,omitempty"`
	EdgeDefault string        `xml:"edgedefault,attr"`
	Nodes       []graphmlNode `xml:"node"`
	Edges       []graphmlEdge `xml:"edge"`
}

type graphmlNode struct {
	ID   string        `xml:"id,attr"`
	Data []graphmlData `xml:"data"`
}

type graphmlEdge struct {
	Source string        `xml:"source,attr"`
	Target string        `xml:"target,attr"`
	Data   []graphmlData `xml:"data"`
}

type graphmlData struct {
	Key   string `xml:"key,attr"`
	Value string `xml:",chardata"`
}

// WriteGraphML writes g as GraphML. Nodes get ids n0, n1, ... in vertex
// order and carry the vertex ID as their name.
func WriteGraphML(w io.Writer, g *topology.Graph) error {
	doc := graphmlDoc{
		XMLNS: graphmlNS,
		Keys: []graphmlKey{
			{ID: "v_" + attrName, For: "node", Name: attrName, Type: "string"},
			{ID: "v_" + attrLon, For: "node", Name: attrLon, Type: "double"},
			{ID: "v_" + attrLat, For: "node", Name: attrLat, Type: "double"},
			{ID: "e_" + attrQuality, For: "edge", Name: attrQuality, Type: "double"},
		},
		Graph: graphmlGraph{ID: "G", EdgeDefault: "undirected"},
	}

	for i, v := range g.Vertices() {
		n := graphmlNode{
			ID:   nodeID(i),
			Data: []graphmlData{{Key: "v_" + attrName, Value: v.ID}},
		}
		if v.Coords != nil {
			n.Data = append(n.Data,
				graphmlData{Key: "v_" + attrLon, Value: formatFloat(v.Coords.Lon)},
				graphmlData{Key: "v_" + attrLat, Value: formatFloat(v.Coords.Lat)},
			)
		}
		doc.Graph.Nodes = append(doc.Graph.Nodes, n)
	}
	for _, e := range g.Edges() {
		src, _ := g.Index(e.Src)
		dst, _ := g.Index(e.Dst)
		doc.Graph.Edges = append(doc.Graph.Edges, graphmlEdge{
			Source: nodeID(src),
			Target: nodeID(dst),
			Data:   []graphmlData{{Key: "e_" + attrQuality, Value: formatFloat(e.Quality)}},
		})
	}

	if _, err := io.WriteString(w, xml.Header); err != nil {
		return err
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("failed to write GraphML: %w", err)
	}
	if err := enc.Close(); err != nil {
		return err
	}
	_, err := io.WriteString(w, "\n")
	return err
}

// ReadGraphML reads an undirected GraphML topology. A node without a name
// attribute is named by its GraphML id; an edge without a quality gets
// topology.DefaultQuality.
func ReadGraphML(r io.Reader) (*topology.Graph, error) {
	var doc graphmlDoc
	if err := xml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to parse GraphML: %w", err)
	}

	keys := make(map[string]string, len(doc.Keys)) // key id -> attr.name
	for _, k := range doc.Keys {
		keys[k.ID] = k.Name
	}
	data := func(items []graphmlData) map[string]string {
		out := make(map[string]string, len(items))
		for _, d := range items {
			if name, ok := keys[d.Key]; ok {
				out[name] = d.Value
			} else {
				out[d.Key] = d.Value
			}
		}
		return out
	}

	g := topology.NewGraph()
	names := make(map[string]string, len(doc.Graph.Nodes)) // GraphML id -> vertex ID
	for _, n := range doc.Graph.Nodes {
		attrs := data(n.Data)
		name := attrs[attrName]
		if name == "" {
			name = n.ID
		}

		var coords *topology.Coordinates
		lon, lonErr := strconv.ParseFloat(attrs[attrLon], 64)
		lat, latErr := strconv.ParseFloat(attrs[attrLat], 64)
		if lonErr == nil && latErr == nil {
			coords = &topology.Coordinates{Lon: lon, Lat: lat}
		}

		if err := g.AddVertex(name, coords); err != nil {
			return nil, err
		}
		names[n.ID] = name
	}

	for _, e := range doc.Graph.Edges {
		src, ok := names[e.Source]
		if !ok {
			return nil, fmt.Errorf("edge source %q: %w", e.Source, topology.ErrVertexNotFound)
		}
		dst, ok := names[e.Target]
		if !ok {
			return nil, fmt.Errorf("edge target %q: %w", e.Target, topology.ErrVertexNotFound)
		}

		quality := float64(topology.DefaultQuality)
		if s, ok := data(e.Data)[attrQuality]; ok {
			q, err := strconv.ParseFloat(s, 64)
			if err != nil {
				return nil, fmt.Errorf("edge %s-%s quality %q: %w", src, dst, s, err)
			}
			quality = q
		}
		if err := g.AddEdge(src, dst, quality); err != nil {
			return nil, err
		}
	}
	return g, nil
}

func nodeID(i int) string {
	return "n" + strconv.Itoa(i)
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}
