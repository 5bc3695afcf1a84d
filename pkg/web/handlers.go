package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/ritzau/meshchurn/pkg/analysis"
	"github.com/ritzau/meshchurn/pkg/logging"
	"github.com/ritzau/meshchurn/pkg/model"
	"github.com/ritzau/meshchurn/pkg/persist"
	"github.com/ritzau/meshchurn/pkg/pubsub"
	"github.com/ritzau/meshchurn/pkg/sample"
	"github.com/ritzau/meshchurn/pkg/simulate"
	"github.com/ritzau/meshchurn/pkg/topology"
)

// SimulateRequest overrides the server's default run options. Absent
// fields keep their defaults.
type SimulateRequest struct {
	Wait         *string  `json:"wait"`
	Off          *string  `json:"off"`
	Quality      *string  `json:"quality"`
	Duration     *float64 `json:"duration"`
	Simultaneous *bool    `json:"simultaneous"`
	Seed         *uint64  `json:"seed"`
	Verify       *bool    `json:"verify"`
}

func (req SimulateRequest) apply(opts analysis.Options) analysis.Options {
	if req.Wait != nil {
		opts.Wait = *req.Wait
	}
	if req.Off != nil {
		opts.Off = *req.Off
	}
	if req.Quality != nil {
		opts.Quality = *req.Quality
	}
	if req.Duration != nil {
		opts.Duration = *req.Duration
	}
	if req.Simultaneous != nil {
		opts.Simultaneous = *req.Simultaneous
	}
	if req.Seed != nil {
		opts.Seed = *req.Seed
	}
	if req.Verify != nil {
		opts.Verify = *req.Verify
	}
	return opts
}

var topics = map[string]bool{
	pubsub.TopicRunStatus:  true,
	pubsub.TopicLinkEvents: true,
}

func (s *Server) handleSubscribe(w http.ResponseWriter, r *http.Request) {
	topic := mux.Vars(r)["topic"]
	if !topics[topic] {
		http.Error(w, fmt.Sprintf("unknown topic %q", topic), http.StatusNotFound)
		return
	}

	sub, err := s.publisher.Subscribe(r.Context(), topic)
	if err != nil {
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	}
	defer sub.Close()

	// Set SSE headers
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*") // CORS support

	flusher, _ := w.(http.Flusher)

	// Send initial comment to establish connection (Safari compatibility)
	fmt.Fprintf(w, ": connected\n\n")
	if flusher != nil {
		flusher.Flush()
	}

	for {
		select {
		case <-r.Context().Done():
			return
		case event, ok := <-sub.Events():
			if !ok {
				return
			}
			if err := pubsub.WriteSSE(w, event); err != nil {
				logging.WarnContext(r.Context(), "Error writing SSE event", "topic", topic, "error", err)
				return
			}
			if flusher != nil {
				flusher.Flush()
			}
		}
	}
}

// current returns the latest report, or writes 503 and returns nil.
func (s *Server) current(w http.ResponseWriter) *analysis.Report {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.report == nil {
		writeError(w, http.StatusServiceUnavailable, "no analysis has completed yet")
	}
	return s.report
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	if report := s.current(w); report != nil {
		writeJSON(w, http.StatusOK, report.Summary)
	}
}

func (s *Server) handleTopology(w http.ResponseWriter, r *http.Request) {
	if s.current(w) == nil {
		return
	}
	s.mu.RLock()
	topo := s.topology
	s.mu.RUnlock()
	writeJSON(w, http.StatusOK, topo)
}

func (s *Server) handleBridges(w http.ResponseWriter, r *http.Request) {
	report := s.current(w)
	if report == nil {
		return
	}
	links := make([]*model.Link, 0, len(report.Bridges))
	for _, e := range report.Bridges {
		links = append(links, &model.Link{Source: e.Src, Target: e.Dst, Quality: e.Quality, Bridge: true})
	}
	writeJSON(w, http.StatusOK, links)
}

func (s *Server) handleDiameter(w http.ResponseWriter, r *http.Request) {
	report := s.current(w)
	if report == nil {
		return
	}
	if report.Diameter == nil {
		writeError(w, http.StatusNotFound, "diameter undefined for this topology")
		return
	}
	writeJSON(w, http.StatusOK, report.Diameter)
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	if s.current(w) == nil {
		return
	}
	s.mu.RLock()
	events := s.events
	s.mu.RUnlock()
	writeJSON(w, http.StatusOK, events)
}

func (s *Server) handleSimulate(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	sim, opts := s.simulator, s.defaults
	s.mu.RUnlock()
	if sim == nil {
		writeError(w, http.StatusServiceUnavailable, "simulation is not available")
		return
	}

	var req SimulateRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return
	}

	opts = req.apply(opts)
	opts.Reason = "simulate request"
	opts.Reuse = true
	opts.Output = ""

	report, err := sim.Run(r.Context(), opts)
	if err != nil {
		logging.WarnContext(r.Context(), "Simulate request failed", "error", err)
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, report.Summary)
}

// statusFor maps run errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, sample.ErrBadSpec),
		errors.Is(err, simulate.ErrInvalidOptions),
		errors.Is(err, simulate.ErrNegativeSample),
		errors.Is(err, simulate.ErrStalled),
		errors.Is(err, topology.ErrBadQuality),
		errors.Is(err, persist.ErrUnknownFormat):
		return http.StatusBadRequest
	case errors.Is(err, analysis.ErrNoTopology):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Warn("Failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
