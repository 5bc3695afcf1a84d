package simulate

import (
	"errors"
	"fmt"

	"github.com/ritzau/meshchurn/pkg/bridges"
	"github.com/ritzau/meshchurn/pkg/topology"
)

// ErrBridgeRemoved indicates a log that takes down a link which was a
// bridge at the time.
var ErrBridgeRemoved = errors.New("simulate: bridge taken down")

// Replay applies the log to a private copy of g, event by event. visit is
// called before each event is applied, with the event's absolute time and
// the live topology as it stands just before it; it must not modify live.
// A down for an absent link or an up for a present one is an error.
func Replay(g *topology.Graph, log Log, visit func(i int, at float64, e Event, live *topology.Graph) error) error {
	live := g.Copy()
	var at float64
	for i, e := range log {
		at += e.Elapsed
		if e.Elapsed < 0 {
			return fmt.Errorf("event %d (%s): time goes backwards", i, e)
		}
		if visit != nil {
			if err := visit(i, at, e, live); err != nil {
				return err
			}
		}

		var err error
		if e.Down() {
			err = live.RemoveEdge(e.Src, e.Dst)
		} else {
			err = live.AddEdge(e.Src, e.Dst, e.Quality)
		}
		if err != nil {
			return fmt.Errorf("event %d at %gs: %w", i, at, err)
		}
	}
	return nil
}

// Verify replays the log against g and checks that no down event removes a
// bridge of the topology immediately before it.
func Verify(g *topology.Graph, log Log) error {
	return Replay(g, log, func(i int, at float64, e Event, live *topology.Graph) error {
		if !e.Down() {
			return nil
		}
		found, err := bridges.Find(live)
		if err != nil {
			return fmt.Errorf("event %d at %gs: %w", i, at, err)
		}
		key := topology.MakeKey(e.Src, e.Dst)
		for _, b := range found {
			if b.Key() == key {
				return fmt.Errorf("%w: (%s,%s) at %gs", ErrBridgeRemoved, e.Src, e.Dst, at)
			}
		}
		return nil
	})
}
