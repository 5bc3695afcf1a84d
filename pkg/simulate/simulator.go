// Package simulate generates random link failures over a mesh topology.
//
// A run takes links down one at a time, each for a sampled off duration,
// spaced by sampled waits, until a time horizon is reached. A link is only
// taken down if it is not a bridge of the live topology, so the simulated
// network never partitions in sequential mode. The result is a
// delta-encoded Log that can be persisted and replayed.
package simulate

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/ritzau/meshchurn/pkg/bridges"
	"github.com/ritzau/meshchurn/pkg/sample"
	"github.com/ritzau/meshchurn/pkg/topology"
)

var (
	// ErrInvalidOptions indicates options that cannot drive a simulation.
	ErrInvalidOptions = errors.New("simulate: invalid options")

	// ErrNegativeSample indicates a sampled wait or off duration below zero.
	ErrNegativeSample = errors.New("simulate: negative time sample")

	// ErrStalled indicates a run whose clock stopped advancing because its
	// samples kept coming out zero.
	ErrStalled = errors.New("simulate: clock not advancing")
)

// maxStalledSteps bounds consecutive steps that leave the clock where it
// was. Zero samples are valid, for example from a normal distribution
// clamped at zero, but a run of this many means the horizon is unreachable.
const maxStalledSteps = 1000

// Options configures a simulation run.
type Options struct {
	// Wait is the time between failures.
	Wait sample.Param
	// Off is how long a failed link stays down.
	Off sample.Param
	// Duration is the horizon in seconds. Nothing happens at or after it.
	Duration float64
	// Simultaneous lets the next failure start while earlier ones are
	// still down. Otherwise the clock also waits out each off duration.
	Simultaneous bool
	// Rand picks the failing link. A nil Rand uses a randomly seeded one.
	Rand *rand.Rand
}

// Mode returns "simultaneous" or "sequential".
func (o Options) Mode() string {
	if o.Simultaneous {
		return "simultaneous"
	}
	return "sequential"
}

func (o Options) validate() error {
	if !(o.Duration > 0) || math.IsInf(o.Duration, 1) {
		return fmt.Errorf("%w: duration %v must be a positive number", ErrInvalidOptions, o.Duration)
	}
	if o.Wait.IsZero() {
		return fmt.Errorf("%w: wait is not set", ErrInvalidOptions)
	}
	if o.Off.IsZero() {
		return fmt.Errorf("%w: off is not set", ErrInvalidOptions)
	}
	if v, ok := o.Wait.Value(); ok && !(v > 0) {
		return fmt.Errorf("%w: fixed wait %v must be positive", ErrInvalidOptions, v)
	}
	if v, ok := o.Off.Value(); ok && !(v >= 0) {
		return fmt.Errorf("%w: fixed off %v must not be negative", ErrInvalidOptions, v)
	}
	return nil
}

// Run simulates link failures on a private copy of g and returns the
// resulting log. g itself is never modified.
//
// The first failure happens after one wait. Each step picks a uniformly
// random eligible link, records it going down and schedules it to come back
// after an off duration. The clock then advances by a wait, plus that off
// duration in sequential mode, and every restoration due by then is
// applied. Restorations at or after the horizon are dropped. A run whose
// clock stays put for maxStalledSteps steps in a row fails with ErrStalled.
//
// In sequential mode the eligible set is refreshed after every change to
// the live topology. In simultaneous mode it is refreshed once per step,
// after restorations, while earlier failures may still be pending.
func Run(g *topology.Graph, opts Options) (Log, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	r := opts.Rand
	if r == nil {
		r = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}

	s := &simulation{opts: opts, rand: r, live: g.Copy()}
	if err := s.run(); err != nil {
		return nil, err
	}
	return Encode(s.changes), nil
}

type simulation struct {
	opts Options
	rand *rand.Rand
	live *topology.Graph

	queue    restoreQueue
	seq      int
	changes  []Change
	eligible []topology.Edge
	dirty    bool
}

func (s *simulation) run() error {
	t, err := draw(s.opts.Wait, "wait")
	if err != nil {
		return err
	}
	if err := s.refresh(); err != nil {
		return err
	}

	stalled := 0
	for t < s.opts.Duration {
		off, err := draw(s.opts.Off, "off")
		if err != nil {
			return err
		}
		wait, err := draw(s.opts.Wait, "wait")
		if err != nil {
			return err
		}

		next := t + wait
		if len(s.eligible) > 0 {
			e := s.eligible[s.rand.IntN(len(s.eligible))]
			if err := s.fail(t, e, t+off); err != nil {
				return err
			}
			if !s.opts.Simultaneous {
				next = t + off + wait
			}
		}
		stalled++
		if next > t {
			stalled = 0
		} else if stalled >= maxStalledSteps {
			return fmt.Errorf("%w: still at %gs after %d steps", ErrStalled, t, stalled)
		}
		t = next

		if err := s.drain(t); err != nil {
			return err
		}
		if s.opts.Simultaneous || s.dirty {
			if err := s.refresh(); err != nil {
				return err
			}
		}
	}
	return nil
}

func (s *simulation) fail(at float64, e topology.Edge, until float64) error {
	if err := s.live.RemoveEdge(e.Src, e.Dst); err != nil {
		return err
	}
	s.changes = append(s.changes, Change{At: at, Src: e.Src, Dst: e.Dst, Quality: 0})
	s.queue.schedule(until, e, s.seq)
	s.seq++
	s.dirty = true
	return nil
}

// drain applies every restoration due by now, in time order.
func (s *simulation) drain(now float64) error {
	for {
		next, ok := s.queue.due(now, s.opts.Duration)
		if !ok {
			return nil
		}
		e := next.edge
		if err := s.live.AddEdge(e.Src, e.Dst, e.Quality); err != nil {
			return err
		}
		s.changes = append(s.changes, Change{At: next.at, Src: e.Src, Dst: e.Dst, Quality: e.Quality})
		s.dirty = true
	}
}

func (s *simulation) refresh() error {
	eligible, err := bridges.Eligible(s.live)
	if err != nil {
		return err
	}
	s.eligible = eligible
	s.dirty = false
	return nil
}

func draw(p sample.Param, name string) (float64, error) {
	v := p.Sample()
	if !(v >= 0) {
		return 0, fmt.Errorf("%w: %s sampled %v", ErrNegativeSample, name, v)
	}
	return v, nil
}
