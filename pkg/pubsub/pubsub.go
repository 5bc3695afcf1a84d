// Package pubsub fans analysis progress and simulated link events out to
// browser subscribers.
package pubsub

import (
	"context"
	"encoding/json"
	"errors"
)

// Topics published by the analysis runner.
const (
	TopicRunStatus  = "run_status"
	TopicLinkEvents = "link_events"
)

// ErrClosed is returned by a publisher after Close.
var ErrClosed = errors.New("pubsub: publisher is closed")

// Event represents a pub/sub event
type Event struct {
	Topic   string          `json:"topic"`   // Subscription topic (e.g., "run_status", "link_events")
	Type    string          `json:"type"`    // Event type (e.g., "loading", "simulating", "batch")
	Data    json.RawMessage `json:"data"`    // Event payload
	Version int             `json:"version"` // Version number for ordering
}

// Subscription represents a client subscription to a topic
type Subscription interface {
	Topic() string

	// Events returns a channel for receiving events
	Events() <-chan Event

	Close() error
}

// Publisher manages pub/sub subscriptions and event publishing
type Publisher interface {
	// Subscribe creates a new subscription to a topic.
	// Context cancellation will close the subscription
	Subscribe(ctx context.Context, topic string) (Subscription, error)

	// Publish sends an event to all subscribers of a topic
	Publish(topic string, eventType string, data interface{}) error

	// Close shuts down the publisher and all subscriptions
	Close() error
}

// RunStatus reports which phase of an analysis run is executing.
type RunStatus struct {
	Phase   string `json:"phase"`   // loading, bridges, diameter, simulating, verifying, saving, ready, failed
	Message string `json:"message"` // Human-readable status message
	Step    int    `json:"step"`    // Current step number (1-based)
	Total   int    `json:"total"`   // Total number of steps
}

// LinkEventBatch carries a slice of simulated link events.
type LinkEventBatch struct {
	Offset   int         `json:"offset"` // index of the first event in the full log
	Events   interface{} `json:"events"`
	Complete bool        `json:"complete"` // True on the last batch of a run
}
