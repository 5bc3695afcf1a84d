package web

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"

	"github.com/ritzau/meshchurn/pkg/analysis"
	"github.com/ritzau/meshchurn/pkg/logging"
	"github.com/ritzau/meshchurn/pkg/metrics"
	"github.com/ritzau/meshchurn/pkg/model"
	"github.com/ritzau/meshchurn/pkg/pubsub"
	"github.com/ritzau/meshchurn/pkg/simulate"
)

//go:embed static/*
var staticFiles embed.FS

var logger = logging.New("web")

// eventBatchSize bounds the number of link events per SSE message.
const eventBatchSize = 500

// Simulator re-runs the analysis pipeline on request. *analysis.Runner
// implements it.
type Simulator interface {
	Run(ctx context.Context, opts analysis.Options) (*analysis.Report, error)
}

// Server represents the web server
type Server struct {
	router    *mux.Router
	publisher *pubsub.SSEPublisher
	metrics   *metrics.Registry

	simulator Simulator
	defaults  analysis.Options // base options for POST /api/simulate

	mu       sync.RWMutex
	report   *analysis.Report
	topology *model.Topology   // derived from report
	events   []model.LinkEvent // derived from report
}

// NewServer creates a new web server exposing reg at /metrics. A nil reg
// uses the default registry.
func NewServer(reg *metrics.Registry) *Server {
	if reg == nil {
		reg = metrics.DefaultRegistry()
	}
	s := &Server{
		router:    mux.NewRouter(),
		publisher: pubsub.NewSSEPublisher(),
		metrics:   reg,
	}
	s.setupRoutes()
	return s
}

// SetSimulator wires the runner used by POST /api/simulate. Requests start
// from defaults and always reuse the loaded topology.
func (s *Server) SetSimulator(sim Simulator, defaults analysis.Options) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.simulator = sim
	s.defaults = defaults
}

// PublishRunStatus publishes a run status event
func (s *Server) PublishRunStatus(phase, message string, step, total int) {
	status := pubsub.RunStatus{
		Phase:   phase,
		Message: message,
		Step:    step,
		Total:   total,
	}
	if err := s.publisher.Publish(pubsub.TopicRunStatus, phase, status); err != nil {
		logger.Warn("Could not publish run status", "phase", phase, "error", err)
	}
}

// PublishLinkEvents replaces the buffered link events with log, sent in
// batches.
func (s *Server) PublishLinkEvents(log simulate.Log) {
	s.publisher.Reset(pubsub.TopicLinkEvents)

	events := model.EventsFromLog(log)
	for offset := 0; offset < len(events) || offset == 0; offset += eventBatchSize {
		end := min(offset+eventBatchSize, len(events))
		batch := pubsub.LinkEventBatch{
			Offset:   offset,
			Events:   events[offset:end],
			Complete: end == len(events),
		}
		if err := s.publisher.Publish(pubsub.TopicLinkEvents, "batch", batch); err != nil {
			logger.Warn("Could not publish link events", "offset", offset, "error", err)
			return
		}
	}
}

// SetReport stores the latest analysis result for the API.
func (s *Server) SetReport(report *analysis.Report) {
	topo := model.FromGraph(report.Graph, report.Bridges)
	events := model.EventsFromLog(report.Log)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.report = report
	s.topology = topo
	s.events = events
}

func (s *Server) setupRoutes() {
	// SSE subscription endpoint
	s.router.HandleFunc("/api/subscribe/{topic}", s.handleSubscribe).Methods("GET")

	s.router.HandleFunc("/api/summary", s.handleSummary).Methods("GET")
	s.router.HandleFunc("/api/topology", s.handleTopology).Methods("GET")
	s.router.HandleFunc("/api/bridges", s.handleBridges).Methods("GET")
	s.router.HandleFunc("/api/diameter", s.handleDiameter).Methods("GET")
	s.router.HandleFunc("/api/events", s.handleEvents).Methods("GET")
	s.router.HandleFunc("/api/simulate", s.handleSimulate).Methods("POST")

	s.router.Handle("/metrics", s.metrics.Handler()).Methods("GET")

	// Serve static files
	staticFS, err := fs.Sub(staticFiles, "static")
	if err != nil {
		logging.Fatal("Static files missing", "error", err)
	}
	s.router.PathPrefix("/").Handler(http.FileServer(http.FS(staticFS)))
}

// Handler returns the router wrapped in request logging.
func (s *Server) Handler() http.Handler {
	return s.withRequestLog(s.router)
}

// Start serves on the specified port until ctx is cancelled
func (s *Server) Start(ctx context.Context, port int) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		logger.Info("Starting web server", "url", fmt.Sprintf("http://localhost:%d", port))
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	logger.Info("Shutting down web server")
	// Ends the SSE streams so Shutdown does not wait on them.
	s.publisher.Close()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Close ends all subscriptions.
func (s *Server) Close() error {
	return s.publisher.Close()
}
