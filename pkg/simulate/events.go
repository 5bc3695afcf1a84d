package simulate

import (
	"fmt"
	"time"
)

// Change is a link state change at an absolute time, in seconds since the
// start of the simulation. Quality 0 means the link went down; a positive
// quality means it came back with that quality.
type Change struct {
	At      float64
	Src     string
	Dst     string
	Quality float64
}

// Down reports whether the change takes the link down.
func (c Change) Down() bool {
	return c.Quality == 0
}

// Event is a delta-encoded Change: Elapsed is the number of seconds since
// the previous event of the log, or since the start for the first one.
type Event struct {
	Elapsed float64
	Src     string
	Dst     string
	Quality float64
}

// Down reports whether the event takes the link down.
func (e Event) Down() bool {
	return e.Quality == 0
}

// Duration returns Elapsed as a time.Duration.
func (e Event) Duration() time.Duration {
	return time.Duration(e.Elapsed * float64(time.Second))
}

func (e Event) String() string {
	state := "up"
	if e.Down() {
		state = "down"
	}
	return fmt.Sprintf("+%gs %s-%s %s (%g)", e.Elapsed, e.Src, e.Dst, state, e.Quality)
}

// Log is a time-ordered, delta-encoded sequence of link events.
type Log []Event

// Encode delta-encodes changes, which must be ordered by time.
func Encode(changes []Change) Log {
	if len(changes) == 0 {
		return nil
	}
	log := make(Log, len(changes))
	var current float64
	for i, c := range changes {
		log[i] = Event{Elapsed: c.At - current, Src: c.Src, Dst: c.Dst, Quality: c.Quality}
		current = c.At
	}
	return log
}

// Absolute decodes the log back into absolute-time changes.
func (l Log) Absolute() []Change {
	if len(l) == 0 {
		return nil
	}
	out := make([]Change, len(l))
	var at float64
	for i, e := range l {
		at += e.Elapsed
		out[i] = Change{At: at, Src: e.Src, Dst: e.Dst, Quality: e.Quality}
	}
	return out
}

// Downs returns the number of down events.
func (l Log) Downs() int {
	n := 0
	for _, e := range l {
		if e.Down() {
			n++
		}
	}
	return n
}

// Ups returns the number of restore events.
func (l Log) Ups() int {
	return len(l) - l.Downs()
}

// Horizon returns the absolute time of the last event.
func (l Log) Horizon() float64 {
	var sum float64
	for _, e := range l {
		sum += e.Elapsed
	}
	return sum
}
