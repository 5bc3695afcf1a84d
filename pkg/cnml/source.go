package cnml

import (
	"context"
	"time"

	"github.com/ritzau/meshchurn/pkg/analysis/api"
	"github.com/ritzau/meshchurn/pkg/config"
	"github.com/ritzau/meshchurn/pkg/logging"
	"github.com/ritzau/meshchurn/pkg/topology"
)

// Source implements api.Source for a guifi.net CNML area
type Source struct {
	client Client
	parser *Parser
}

// NewSource creates a CNML source talking to the configured endpoint
func NewSource(cfg *config.Config) api.Source {
	return &Source{
		client: NewHTTPClient(cfg.Endpoint, time.Duration(cfg.Timeout)*time.Second),
		parser: NewParser(),
	}
}

func (s *Source) Name() string {
	return "CNML"
}

func (s *Source) Load(ctx context.Context, cfg *config.Config) (*topology.Graph, error) {
	logger := logging.New("source.cnml")
	logger.Info("Fetching CNML area", "area", cfg.Area)

	data, err := s.client.Fetch(ctx, cfg.Area)
	if err != nil {
		return nil, err
	}

	logger.Info("CNML fetch complete", "bytes", len(data))

	g, err := s.parser.Parse(data)
	if err != nil {
		return nil, err
	}

	logger.Info("CNML import complete", "nodes", g.Order(), "links", g.Size())
	return g, nil
}
