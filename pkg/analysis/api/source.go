package api

import (
	"context"

	"github.com/ritzau/meshchurn/pkg/config"
	"github.com/ritzau/meshchurn/pkg/topology"
)

// Source represents a place a mesh topology can be loaded from.
// Implementations should encapsulate the logic for gathering data (e.g., fetching CNML, reading files)
// and transforming it into a topology.Graph.
type Source interface {
	// Name returns the unique name of the source (e.g., "CNML", "GraphMLFile").
	Name() string

	// Load fetches and builds the topology.
	// It should respect the context for cancellation.
	Load(ctx context.Context, cfg *config.Config) (*topology.Graph, error)
}
