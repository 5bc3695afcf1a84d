// Package metrics exposes Prometheus counters for bridge searches and
// simulated link churn.
package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry holds all metrics for the application
type Registry struct {
	// Bridge Metrics
	BridgeSearchesTotal  prometheus.Counter
	BridgeSearchDuration prometheus.Histogram
	Bridges              prometheus.Gauge
	TopologyVertices     prometheus.Gauge
	TopologyEdges        prometheus.Gauge

	// Simulation Metrics
	SimulationsTotal     *prometheus.CounterVec
	SimulationDuration   prometheus.Histogram
	LinkEventsTotal      *prometheus.CounterVec
	VerificationFailures prometheus.Counter

	registry *prometheus.Registry
}

var (
	defaultRegistry *Registry
	once            sync.Once
)

// DefaultRegistry returns the process-wide registry.
func DefaultRegistry() *Registry {
	once.Do(func() {
		defaultRegistry = NewRegistry()
	})
	return defaultRegistry
}

// NewRegistry creates a new metrics registry with all metrics initialized
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()

	r := &Registry{
		registry: reg,
	}

	r.initBridgeMetrics()
	r.initSimulationMetrics()

	return r
}

func (r *Registry) initBridgeMetrics() {
	r.BridgeSearchesTotal = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: "meshchurn_bridge_searches_total",
			Help: "Total number of bridge searches",
		},
	)

	r.BridgeSearchDuration = promauto.With(r.registry).NewHistogram(
		prometheus.HistogramOpts{
			Name:    "meshchurn_bridge_search_duration_seconds",
			Help:    "Duration of bridge searches in seconds",
			Buckets: prometheus.ExponentialBuckets(0.0001, 4, 8),
		},
	)

	r.Bridges = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "meshchurn_bridges",
			Help: "Number of bridges found by the last search",
		},
	)

	r.TopologyVertices = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "meshchurn_topology_vertices",
			Help: "Number of sites in the loaded topology",
		},
	)

	r.TopologyEdges = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "meshchurn_topology_edges",
			Help: "Number of links in the loaded topology",
		},
	)
}

func (r *Registry) initSimulationMetrics() {
	r.SimulationsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "meshchurn_simulations_total",
			Help: "Total number of simulation runs",
		},
		[]string{"mode"}, // sequential, simultaneous
	)

	r.SimulationDuration = promauto.With(r.registry).NewHistogram(
		prometheus.HistogramOpts{
			Name:    "meshchurn_simulation_duration_seconds",
			Help:    "Wall-clock duration of simulation runs in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 4, 8),
		},
	)

	r.LinkEventsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "meshchurn_link_events_total",
			Help: "Total number of simulated link events",
		},
		[]string{"kind"}, // down, up
	)

	r.VerificationFailures = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: "meshchurn_verification_failures_total",
			Help: "Number of logs that removed a bridge when replayed",
		},
	)
}

// RecordBridgeSearch records one bridge search and its result size.
func (r *Registry) RecordBridgeSearch(vertices, edges, bridges int, duration time.Duration) {
	r.BridgeSearchesTotal.Inc()
	r.BridgeSearchDuration.Observe(duration.Seconds())
	r.Bridges.Set(float64(bridges))
	r.TopologyVertices.Set(float64(vertices))
	r.TopologyEdges.Set(float64(edges))
}

// RecordSimulation records a finished simulation run.
func (r *Registry) RecordSimulation(mode string, downs, ups int, duration time.Duration) {
	r.SimulationsTotal.WithLabelValues(mode).Inc()
	r.SimulationDuration.Observe(duration.Seconds())
	r.LinkEventsTotal.WithLabelValues("down").Add(float64(downs))
	r.LinkEventsTotal.WithLabelValues("up").Add(float64(ups))
}

// RecordVerificationFailure counts a log that failed replay.
func (r *Registry) RecordVerificationFailure() {
	r.VerificationFailures.Inc()
}

// Gatherer returns the underlying Prometheus registry.
func (r *Registry) Gatherer() prometheus.Gatherer {
	return r.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}
