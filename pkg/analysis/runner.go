// Package analysis runs the full pipeline over a mesh topology: load it,
// find its bridges and diameter, simulate link churn and save the results.
package analysis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/ritzau/meshchurn/pkg/analysis/api"
	"github.com/ritzau/meshchurn/pkg/bridges"
	"github.com/ritzau/meshchurn/pkg/config"
	"github.com/ritzau/meshchurn/pkg/diameter"
	"github.com/ritzau/meshchurn/pkg/logging"
	"github.com/ritzau/meshchurn/pkg/metrics"
	"github.com/ritzau/meshchurn/pkg/model"
	"github.com/ritzau/meshchurn/pkg/persist"
	"github.com/ritzau/meshchurn/pkg/sample"
	"github.com/ritzau/meshchurn/pkg/simulate"
	"github.com/ritzau/meshchurn/pkg/topology"
)

// Run phases, in order.
const (
	PhaseLoading    = "loading"
	PhaseQuality    = "quality"
	PhaseBridges    = "bridges"
	PhaseDiameter   = "diameter"
	PhaseSimulating = "simulating"
	PhaseVerifying  = "verifying"
	PhaseSaving     = "saving"
	PhaseReady      = "ready"
	PhaseFailed     = "failed"
)

const totalSteps = 7

// ErrNoTopology is returned when a run asks to reuse a topology before
// any has been loaded.
var ErrNoTopology = errors.New("analysis: no topology loaded")

// Sink receives progress and results of analysis runs. The web server
// implements it; a nil Sink discards everything.
type Sink interface {
	PublishRunStatus(phase, message string, step, total int)
	PublishLinkEvents(log simulate.Log)
	SetReport(report *Report)
}

// Options configures one analysis run
type Options struct {
	Reason string // e.g., "initial analysis", "input changed"

	// Reuse skips loading and runs on the topology of the previous run.
	Reuse bool

	Wait         string
	Off          string
	Quality      string // empty keeps the loaded qualities
	Duration     float64
	Simultaneous bool
	Seed         uint64 // 0 picks a seed from the clock
	Verify       bool
	Hops         bool // diameter in links rather than quality

	Output string // base path; empty skips saving
	Format string
}

// OptionsFromConfig builds run options from the loaded configuration.
func OptionsFromConfig(cfg *config.Config, reason string) Options {
	return Options{
		Reason:       reason,
		Wait:         cfg.Wait,
		Off:          cfg.Off,
		Quality:      cfg.Quality,
		Duration:     cfg.Duration,
		Simultaneous: cfg.Simultaneous,
		Seed:         cfg.Seed,
		Verify:       cfg.Verify,
		Hops:         cfg.Hops,
		Output:       cfg.Output,
		Format:       cfg.Format,
	}
}

// Report is the outcome of a run.
type Report struct {
	Graph    *topology.Graph
	Bridges  []topology.Edge
	Diameter *diameter.Result
	Log      simulate.Log
	Seed     uint64
	Summary  model.Summary
}

// Runner orchestrates the analysis process
type Runner struct {
	cfg     *config.Config
	source  api.Source
	store   *persist.Store
	sink    Sink
	metrics *metrics.Registry
	logger  *slog.Logger

	mu     sync.Mutex // Prevent concurrent analysis runs
	base   *topology.Graph
	latest *Report
}

// NewRunner creates a new analysis runner. store may be nil when runs never
// save, and reg may be nil to skip metrics.
func NewRunner(cfg *config.Config, source api.Source, store *persist.Store, sink Sink, reg *metrics.Registry) *Runner {
	if sink == nil {
		sink = nopSink{}
	}
	if store == nil {
		store = persist.NewStore(nil)
	}
	return &Runner{
		cfg:     cfg,
		source:  source,
		store:   store,
		sink:    sink,
		metrics: reg,
		logger:  logging.New("analysis"),
	}
}

// SetConfig replaces the configuration handed to the source on the next
// load.
func (r *Runner) SetConfig(cfg *config.Config) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cfg = cfg
}

// Latest returns the report of the last successful run, or nil.
func (r *Runner) Latest() *Report {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.latest
}

// Run executes the analysis with the given options
func (r *Runner) Run(ctx context.Context, opts Options) (*Report, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.logger.Info("Starting analysis", "reason", opts.Reason)
	start := time.Now()

	report, err := r.run(ctx, opts)
	if err != nil {
		r.logger.Error("Analysis failed", "reason", opts.Reason, "error", err)
		r.sink.PublishRunStatus(PhaseFailed, err.Error(), totalSteps, totalSteps)
		return nil, err
	}

	r.latest = report
	r.sink.SetReport(report)
	r.sink.PublishRunStatus(PhaseReady, "Analysis complete", totalSteps, totalSteps)
	r.logger.Info("Analysis complete", "reason", opts.Reason, "elapsed", time.Since(start).Round(time.Millisecond))
	return report, nil
}

func (r *Runner) run(ctx context.Context, opts Options) (*Report, error) {
	seed := opts.Seed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	rng := rand.New(rand.NewPCG(seed, seed>>32|seed<<32))

	// Parse parameters before loading so a typo fails fast.
	wait, err := sample.Parse(opts.Wait, rng)
	if err != nil {
		return nil, fmt.Errorf("wait: %w", err)
	}
	off, err := sample.Parse(opts.Off, rng)
	if err != nil {
		return nil, fmt.Errorf("off: %w", err)
	}
	var quality sample.Param
	if opts.Quality != "" {
		if quality, err = sample.Parse(opts.Quality, rng); err != nil {
			return nil, fmt.Errorf("quality: %w", err)
		}
	}

	// Phase 1: Load
	r.status(PhaseLoading, "Loading topology...", 1)
	if !opts.Reuse || r.base == nil {
		if opts.Reuse {
			return nil, ErrNoTopology
		}
		g, err := r.source.Load(ctx, r.cfg)
		if err != nil {
			return nil, fmt.Errorf("load from %s: %w", r.source.Name(), err)
		}
		r.base = g
	}
	g := r.base.Copy()
	r.logger.Info("Topology loaded", "step", "1/7", "source", r.source.Name(), "nodes", g.Order(), "links", g.Size())

	// Phase 2: Quality
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !quality.IsZero() {
		r.status(PhaseQuality, "Assigning link qualities...", 2)
		if err := g.SetQuality(quality, nil); err != nil {
			return nil, err
		}
		r.logger.Debug("Link qualities assigned", "step", "2/7", "quality", quality)
	}

	// Phase 3: Bridges
	r.status(PhaseBridges, "Finding bridges...", 3)
	searchStart := time.Now()
	found, err := bridges.Find(g)
	if err != nil {
		return nil, fmt.Errorf("bridge search: %w", err)
	}
	if r.metrics != nil {
		r.metrics.RecordBridgeSearch(g.Order(), g.Size(), len(found), time.Since(searchStart))
	}
	r.logger.Info("Bridges found", "step", "3/7", "bridges", len(found), "eligible", g.Size()-len(found))

	// Phase 4: Diameter
	r.status(PhaseDiameter, "Measuring diameter...", 4)
	var diam *diameter.Result
	if d, err := diameter.Longest(g, opts.Hops); err != nil {
		r.logger.Warn("Diameter unavailable", "step", "4/7", "error", err)
	} else {
		diam = &d
		r.logger.Info("Diameter measured", "step", "4/7", "src", d.Src, "dst", d.Dst, "distance", d.Distance)
	}

	// Phase 5: Simulate
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.status(PhaseSimulating, "Simulating link churn...", 5)
	simOpts := simulate.Options{
		Wait:         wait,
		Off:          off,
		Duration:     opts.Duration,
		Simultaneous: opts.Simultaneous,
		Rand:         rng,
	}
	simStart := time.Now()
	log, err := simulate.Run(g, simOpts)
	if err != nil {
		return nil, fmt.Errorf("simulation: %w", err)
	}
	if r.metrics != nil {
		r.metrics.RecordSimulation(simOpts.Mode(), log.Downs(), log.Ups(), time.Since(simStart))
	}
	r.logger.Info("Simulation complete", "step", "5/7", "mode", simOpts.Mode(),
		"downs", log.Downs(), "ups", log.Ups(), "horizon", log.Horizon())
	r.sink.PublishLinkEvents(log)

	// Phase 6: Verify
	verified := false
	if opts.Verify {
		r.status(PhaseVerifying, "Replaying event log...", 6)
		if err := simulate.Verify(g, log); err != nil {
			if r.metrics != nil {
				r.metrics.RecordVerificationFailure()
			}
			return nil, fmt.Errorf("verification: %w", err)
		}
		verified = true
		r.logger.Info("Event log verified", "step", "6/7", "events", len(log))
	}

	// Phase 7: Save
	var written []string
	if opts.Output != "" {
		r.status(PhaseSaving, "Writing results...", 7)
		format, err := persist.ParseFormat(opts.Format)
		if err != nil {
			return nil, err
		}
		written, err = r.store.Save(g, opts.Output, persist.SaveOptions{
			Format:  format,
			Bridges: found,
			Log:     log,
			Changes: len(log) > 0,
		})
		if err != nil {
			return nil, fmt.Errorf("save: %w", err)
		}
		for _, path := range written {
			r.logger.Info("Wrote file", "step", "7/7", "path", path)
		}
	}

	return &Report{
		Graph:    g,
		Bridges:  found,
		Diameter: diam,
		Log:      log,
		Seed:     seed,
		Summary: model.Summary{
			Source:       r.source.Name(),
			Nodes:        g.Order(),
			Links:        g.Size(),
			Bridges:      len(found),
			Diameter:     diam,
			Mode:         simOpts.Mode(),
			Downs:        log.Downs(),
			Ups:          log.Ups(),
			Horizon:      log.Horizon(),
			Verified:     verified,
			WrittenFiles: written,
		},
	}, nil
}

func (r *Runner) status(phase, message string, step int) {
	r.sink.PublishRunStatus(phase, message, step, totalSteps)
}

type nopSink struct{}

func (nopSink) PublishRunStatus(string, string, int, int) {}
func (nopSink) PublishLinkEvents(simulate.Log)            {}
func (nopSink) SetReport(*Report)                         {}
