package persist

import (
	"context"

	"github.com/ritzau/meshchurn/pkg/analysis/api"
	"github.com/ritzau/meshchurn/pkg/config"
	"github.com/ritzau/meshchurn/pkg/logging"
	"github.com/ritzau/meshchurn/pkg/topology"
)

// FileSource implements api.Source for a topology file on disk
type FileSource struct {
	store *Store
}

// NewFileSource creates a file source reading through store
func NewFileSource(store *Store) api.Source {
	return &FileSource{store: store}
}

func (s *FileSource) Name() string {
	return "File"
}

func (s *FileSource) Load(ctx context.Context, cfg *config.Config) (*topology.Graph, error) {
	logger := logging.New("source.file")
	logger.Info("Reading topology", "path", cfg.Input)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	g, err := s.store.Load(cfg.Input)
	if err != nil {
		return nil, err
	}

	logger.Info("Topology read", "nodes", g.Order(), "links", g.Size())
	return g, nil
}
