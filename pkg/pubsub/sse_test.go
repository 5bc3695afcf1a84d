package pubsub

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestEventBuffer(t *testing.T) {
	pub := NewSSEPublisher()
	defer pub.Close()

	// Configure topic with buffer size 3, replay all
	pub.ConfigureTopic("status", TopicConfig{
		BufferSize: 3,
		ReplayAll:  true,
	})

	// Publish 5 events
	for i := 1; i <= 5; i++ {
		err := pub.Publish("status", "event", RunStatus{Phase: "loading", Step: i, Total: 5})
		if err != nil {
			t.Fatalf("Failed to publish event %d: %v", i, err)
		}
	}

	// Subscribe and verify we get last 3 events
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	sub, err := pub.Subscribe(ctx, "status")
	if err != nil {
		t.Fatalf("Failed to subscribe: %v", err)
	}
	defer sub.Close()

	// Should receive last 3 events (3, 4, 5)
	receivedCount := 0
	for receivedCount < 3 {
		select {
		case event := <-sub.Events():
			receivedCount++
			t.Logf("Received replayed event version %d", event.Version)
			// Events should be 3, 4, 5 (last 3 of 5)
			expectedVersion := receivedCount + 2
			if event.Version != expectedVersion {
				t.Errorf("Expected version %d, got %d", expectedVersion, event.Version)
			}
		case <-time.After(100 * time.Millisecond):
			t.Fatalf("Timeout waiting for event %d", receivedCount+1)
		}
	}

	if receivedCount != 3 {
		t.Errorf("Expected 3 replayed events, got %d", receivedCount)
	}
}

func TestReplayLastOnly(t *testing.T) {
	pub := NewSSEPublisher()
	defer pub.Close()

	// Configure topic with buffer size 5, replay only last
	pub.ConfigureTopic("status", TopicConfig{
		BufferSize: 5,
		ReplayAll:  false,
	})

	// Publish 3 events
	for i := 1; i <= 3; i++ {
		err := pub.Publish("status", "event", RunStatus{Phase: "loading", Step: i, Total: 5})
		if err != nil {
			t.Fatalf("Failed to publish event %d: %v", i, err)
		}
	}

	// Subscribe and verify we get only last event
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	sub, err := pub.Subscribe(ctx, "status")
	if err != nil {
		t.Fatalf("Failed to subscribe: %v", err)
	}
	defer sub.Close()

	// Should receive only last event (version 3)
	select {
	case event := <-sub.Events():
		if event.Version != 3 {
			t.Errorf("Expected version 3, got %d", event.Version)
		}
		t.Logf("Received last event version %d", event.Version)
	case <-time.After(100 * time.Millisecond):
		t.Fatal("Timeout waiting for event")
	}

	// Verify no more events are sent
	select {
	case event := <-sub.Events():
		t.Errorf("Received unexpected extra event version %d", event.Version)
	case <-time.After(50 * time.Millisecond):
		// Good, no extra events
	}
}

func TestNoBuffer(t *testing.T) {
	pub := NewSSEPublisher()
	defer pub.Close()

	// Configure topic with no buffer
	pub.ConfigureTopic("status", TopicConfig{
		BufferSize: 0,
		ReplayAll:  false,
	})

	// Publish events before subscribing
	for i := 1; i <= 3; i++ {
		err := pub.Publish("status", "event", RunStatus{Phase: "loading", Step: i, Total: 5})
		if err != nil {
			t.Fatalf("Failed to publish event %d: %v", i, err)
		}
	}

	// Subscribe - should not receive any replayed events
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	sub, err := pub.Subscribe(ctx, "status")
	if err != nil {
		t.Fatalf("Failed to subscribe: %v", err)
	}
	defer sub.Close()

	// Verify no events are received (because none were buffered)
	select {
	case event := <-sub.Events():
		t.Errorf("Received unexpected replayed event version %d", event.Version)
	case <-time.After(50 * time.Millisecond):
		// Good, no events replayed
		t.Log("Correctly received no events (buffer disabled)")
	}

	// Now publish a new event - subscriber should receive it
	err = pub.Publish("status", "event", RunStatus{Phase: "ready", Step: 4, Total: 4})
	if err != nil {
		t.Fatalf("Failed to publish new event: %v", err)
	}

	select {
	case event := <-sub.Events():
		if event.Version != 4 {
			t.Errorf("Expected version 4, got %d", event.Version)
		}
		t.Logf("Received new event version %d", event.Version)
	case <-time.After(100 * time.Millisecond):
		t.Fatal("Timeout waiting for new event")
	}
}

func TestDefaultTopics(t *testing.T) {
	pub := NewSSEPublisher()
	defer pub.Close()

	for i := 1; i <= 3; i++ {
		if err := pub.Publish(TopicRunStatus, "phase", RunStatus{Step: i, Total: 3}); err != nil {
			t.Fatalf("Publish: %v", err)
		}
		if err := pub.Publish(TopicLinkEvents, "batch", LinkEventBatch{Offset: i}); err != nil {
			t.Fatalf("Publish: %v", err)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	status, err := pub.Subscribe(ctx, TopicRunStatus)
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	if got := len(status.Events()); got != 1 {
		t.Errorf("run_status replayed %d events, want 1", got)
	}

	events, err := pub.Subscribe(ctx, TopicLinkEvents)
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	if got := len(events.Events()); got != 3 {
		t.Errorf("link_events replayed %d events, want 3", got)
	}

	first := <-events.Events()
	var batch LinkEventBatch
	if err := json.Unmarshal(first.Data, &batch); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if batch.Offset != 1 {
		t.Errorf("first batch offset = %d, want 1", batch.Offset)
	}
}

func TestReset(t *testing.T) {
	pub := NewSSEPublisher()
	defer pub.Close()

	if err := pub.Publish(TopicLinkEvents, "batch", LinkEventBatch{}); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	pub.Reset(TopicLinkEvents)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sub, err := pub.Subscribe(ctx, TopicLinkEvents)
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	if got := len(sub.Events()); got != 0 {
		t.Errorf("replayed %d events after Reset, want 0", got)
	}
}

func TestSubscriptionLifecycle(t *testing.T) {
	pub := NewSSEPublisher()

	ctx, cancel := context.WithCancel(context.Background())
	sub, err := pub.Subscribe(ctx, TopicRunStatus)
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	if sub.Topic() != TopicRunStatus {
		t.Errorf("Topic() = %q", sub.Topic())
	}
	if n := pub.Subscribers(TopicRunStatus); n != 1 {
		t.Fatalf("Subscribers = %d, want 1", n)
	}

	cancel()
	deadline := time.Now().Add(time.Second)
	for pub.Subscribers(TopicRunStatus) != 0 {
		if time.Now().After(deadline) {
			t.Fatal("subscription not removed after context cancellation")
		}
		time.Sleep(5 * time.Millisecond)
	}

	if err := pub.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := pub.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}
	if _, err := pub.Subscribe(context.Background(), TopicRunStatus); !errors.Is(err, ErrClosed) {
		t.Errorf("Subscribe after Close: err = %v, want ErrClosed", err)
	}
	if err := pub.Publish(TopicRunStatus, "phase", RunStatus{}); !errors.Is(err, ErrClosed) {
		t.Errorf("Publish after Close: err = %v, want ErrClosed", err)
	}
}

func TestWriteSSE(t *testing.T) {
	var buf bytes.Buffer
	event := Event{Topic: TopicRunStatus, Type: "ready", Data: json.RawMessage(`{"phase":"ready"}`), Version: 7}

	if err := WriteSSE(&buf, event); err != nil {
		t.Fatalf("WriteSSE: %v", err)
	}

	out := buf.String()
	if !strings.HasPrefix(out, "data: ") || !strings.HasSuffix(out, "\n\n") {
		t.Fatalf("unexpected framing: %q", out)
	}
	var decoded Event
	if err := json.Unmarshal([]byte(strings.TrimSpace(strings.TrimPrefix(out, "data: "))), &decoded); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if decoded.Version != 7 || decoded.Type != "ready" {
		t.Errorf("decoded = %+v", decoded)
	}
}
