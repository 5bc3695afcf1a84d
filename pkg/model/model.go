package model

import (
	"github.com/ritzau/meshchurn/pkg/diameter"
	"github.com/ritzau/meshchurn/pkg/simulate"
)

// LinkState is the state a link event moves a link into.
type LinkState string

const (
	LinkDown LinkState = "down"
	LinkUp   LinkState = "up"
)

// LinkEvent is one entry of a simulation log.
type LinkEvent struct {
	Elapsed float64   `json:"elapsed"` // Seconds since the previous event
	At      float64   `json:"at"`      // Seconds since the start
	Source  string    `json:"source"`
	Target  string    `json:"target"`
	State   LinkState `json:"state"`
	Quality float64   `json:"quality"`
}

// EventsFromLog converts a simulation log.
func EventsFromLog(log simulate.Log) []LinkEvent {
	events := make([]LinkEvent, 0, len(log))
	var at float64
	for _, e := range log {
		at += e.Elapsed
		state := LinkUp
		if e.Down() {
			state = LinkDown
		}
		events = append(events, LinkEvent{
			Elapsed: e.Elapsed,
			At:      at,
			Source:  e.Src,
			Target:  e.Dst,
			State:   state,
			Quality: e.Quality,
		})
	}
	return events
}

// Summary condenses one analysis run.
type Summary struct {
	Source       string           `json:"source"`
	Nodes        int              `json:"nodes"`
	Links        int              `json:"links"`
	Bridges      int              `json:"bridges"`
	Diameter     *diameter.Result `json:"diameter,omitempty"`
	Mode         string           `json:"mode"`
	Downs        int              `json:"downs"`
	Ups          int              `json:"ups"`
	Horizon      float64          `json:"horizon"`
	Verified     bool             `json:"verified"`
	WrittenFiles []string         `json:"written_files,omitempty"`
}
