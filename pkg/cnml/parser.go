// Package cnml imports mesh topologies from guifi.net CNML documents.
//
// Only sites whose status is Working become vertices. A link becomes an
// edge when it hangs off an interface on the 172.x mesh range, its status
// is Working and its far end is a working site. Each pair is added once and
// the topology is reduced to its largest connected component.
package cnml

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/ritzau/meshchurn/pkg/topology"
)

// ErrNoWorkingNodes means the document has no site with status Working.
var ErrNoWorkingNodes = errors.New("cnml: no working nodes")

const (
	statusWorking = "Working"
	meshPrefix    = "172"
)

// Parser handles parsing of CNML documents into a topology
type Parser struct{}

// NewParser creates a new CNML parser
func NewParser() *Parser {
	return &Parser{}
}

type site struct {
	id     string
	coords *topology.Coordinates
}

type link struct {
	src, dst string
}

// Parse reads a CNML document. The document is walked as a token stream,
// so whole-area dumps never have to be held as a tree.
func (p *Parser) Parse(data []byte) (*topology.Graph, error) {
	sites, links, err := p.scan(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	if len(sites) == 0 {
		return nil, ErrNoWorkingNodes
	}

	g := topology.NewGraph()
	working := make(map[string]bool, len(sites))
	for _, s := range sites {
		if working[s.id] {
			continue
		}
		if err := g.AddVertex(s.id, s.coords); err != nil {
			return nil, err
		}
		working[s.id] = true
	}

	for _, l := range links {
		// Every link is listed on both ends; keep one direction.
		if !working[l.dst] || !(l.src < l.dst) || g.HasEdge(l.src, l.dst) {
			continue
		}
		if err := g.AddEdge(l.src, l.dst, topology.DefaultQuality); err != nil {
			return nil, fmt.Errorf("link %s-%s: %w", l.src, l.dst, err)
		}
	}

	return g.LargestComponent(), nil
}

func (p *Parser) scan(r io.Reader) ([]site, []link, error) {
	dec := xml.NewDecoder(r)
	dec.Strict = false

	var (
		sites []site
		links []link

		current   string // id of the working node being read, if any
		nodeDepth int    // element depth of that node
		meshIface int    // depth of the enclosing 172.x interface, 0 if none
		depth     int
	)

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("failed to parse CNML: %w", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			depth++
			switch t.Name.Local {
			case "node":
				if attr(t, "status") != statusWorking {
					continue
				}
				id := attr(t, "id")
				if id == "" {
					continue
				}
				current, nodeDepth = id, depth
				sites = append(sites, site{id: id, coords: coordinates(t)})
			case "interface":
				if current != "" && strings.HasPrefix(attr(t, "ipv4"), meshPrefix) {
					meshIface = depth
				}
			case "link":
				if meshIface == 0 || attr(t, "link_status") != statusWorking {
					continue
				}
				if dst := attr(t, "linked_node_id"); dst != "" {
					links = append(links, link{src: current, dst: dst})
				}
			}
		case xml.EndElement:
			if depth == meshIface {
				meshIface = 0
			}
			if depth == nodeDepth {
				current, nodeDepth = "", 0
			}
			depth--
		}
	}
	return sites, links, nil
}

func attr(e xml.StartElement, name string) string {
	for _, a := range e.Attr {
		if a.Name.Local == name {
			return a.Value
		}
	}
	return ""
}

func coordinates(e xml.StartElement) *topology.Coordinates {
	lon, err := strconv.ParseFloat(attr(e, "lon"), 64)
	if err != nil {
		return nil
	}
	lat, err := strconv.ParseFloat(attr(e, "lat"), 64)
	if err != nil {
		return nil
	}
	return &topology.Coordinates{Lon: lon, Lat: lat}
}
