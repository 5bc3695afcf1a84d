package persist

import (
	"encoding/json"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/ritzau/meshchurn/pkg/model"
	"github.com/ritzau/meshchurn/pkg/topology"
)

func writeJSON(w io.Writer, g *topology.Graph, bridges []topology.Edge) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "\t")
	if err := enc.Encode(model.FromGraph(g, bridges)); err != nil {
		return fmt.Errorf("failed to write JSON: %w", err)
	}
	return nil
}

func readJSON(r io.Reader) (*topology.Graph, error) {
	var doc model.Topology
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to parse JSON: %w", err)
	}
	return doc.ToGraph()
}

func writeYAML(w io.Writer, g *topology.Graph, bridges []topology.Edge) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(model.FromGraph(g, bridges)); err != nil {
		return fmt.Errorf("failed to write YAML: %w", err)
	}
	return enc.Close()
}

func readYAML(r io.Reader) (*topology.Graph, error) {
	var doc model.Topology
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	return doc.ToGraph()
}
