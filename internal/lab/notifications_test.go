package lab

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

// mockNotifier is a configurable notifier for manager tests.
type mockNotifier struct {
	mu       sync.Mutex
	id       string
	failures int // fail this many Notify calls before succeeding
	calls    int
	closed   bool
	events   []LabEvent
}

func (m *mockNotifier) ID() string   { return m.id }
func (m *mockNotifier) Type() string { return "mock" }

func (m *mockNotifier) Notify(_ context.Context, event LabEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.failures > 0 {
		m.failures--
		return errors.New("simulated failure")
	}
	m.events = append(m.events, event)
	return nil
}

func (m *mockNotifier) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

func (m *mockNotifier) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func (m *mockNotifier) Events() []LabEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]LabEvent, len(m.events))
	copy(out, m.events)
	return out
}

func TestNotificationManager_RegisterUnregister(t *testing.T) {
	nm := NewNotificationManager()
	defer nm.Close()

	n := &mockNotifier{id: "mock-1"}
	if err := nm.RegisterNotifier(n); err != nil {
		t.Fatalf("RegisterNotifier failed: %v", err)
	}

	if err := nm.RegisterNotifier(&mockNotifier{id: "mock-1"}); err == nil {
		t.Error("Expected duplicate registration to fail")
	}
	if err := nm.RegisterNotifier(nil); err == nil {
		t.Error("Expected nil notifier to be rejected")
	}
	if err := nm.RegisterNotifier(&mockNotifier{id: ""}); err == nil {
		t.Error("Expected empty ID to be rejected")
	}

	if got, ok := nm.GetNotifier("mock-1"); !ok || got != n {
		t.Error("Expected to retrieve registered notifier")
	}
	if ids := nm.ListNotifiers(); len(ids) != 1 || ids[0] != "mock-1" {
		t.Errorf("Unexpected notifier list: %v", ids)
	}

	if err := nm.UnregisterNotifier("mock-1"); err != nil {
		t.Fatalf("UnregisterNotifier failed: %v", err)
	}
	if !n.closed {
		t.Error("Expected unregister to close the notifier")
	}
	if err := nm.UnregisterNotifier("mock-1"); err == nil {
		t.Error("Expected unregister of unknown ID to fail")
	}
}

func TestNotificationManager_NotifySync(t *testing.T) {
	nm := NewNotificationManager()
	defer nm.Close()

	good := &mockNotifier{id: "good"}
	bad := &mockNotifier{id: "bad", failures: 100}
	_ = nm.RegisterNotifier(good)
	_ = nm.RegisterNotifier(bad)

	event := LabEvent{Type: EventPourCompleted, SessionID: "sess-1"}

	if err := nm.Notify(context.Background(), event, []string{"good"}); err != nil {
		t.Errorf("Expected sync notify to succeed: %v", err)
	}
	if len(good.Events()) != 1 {
		t.Errorf("Expected 1 delivered event, got %d", len(good.Events()))
	}

	if err := nm.Notify(context.Background(), event, []string{"bad"}); err == nil {
		t.Error("Expected sync notify to report failure")
	}
	if err := nm.Notify(context.Background(), event, []string{"missing"}); err == nil {
		t.Error("Expected sync notify to unknown notifier to fail")
	}
	if err := nm.Notify(context.Background(), event, nil); err != nil {
		t.Errorf("Expected notify with no targets to be a no-op: %v", err)
	}
}

func TestNotificationManager_EnqueueDelivers(t *testing.T) {
	nm := NewNotificationManager()

	n := &mockNotifier{id: "mock-1"}
	_ = nm.RegisterNotifier(n)

	nm.Enqueue(LabEvent{Type: EventReactionFired, SessionID: "sess-1"}, []string{"mock-1"})
	nm.Enqueue(LabEvent{Type: EventPourCompleted, SessionID: "sess-1"}, []string{"mock-1"})

	// Close waits for the worker to drain the queue.
	if err := nm.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	events := n.Events()
	if len(events) != 2 {
		t.Fatalf("Expected 2 delivered events, got %d", len(events))
	}
	if events[0].Type != EventReactionFired {
		t.Errorf("Expected reaction event first, got %s", events[0].Type)
	}
}

func TestNotificationManager_RetriesTransientFailure(t *testing.T) {
	nm := NewNotificationManager()

	// Fails twice, then succeeds on the third attempt.
	n := &mockNotifier{id: "flaky", failures: 2}
	_ = nm.RegisterNotifier(n)

	nm.Enqueue(LabEvent{Type: EventPourCompleted}, []string{"flaky"})

	deadline := time.After(5 * time.Second)
	for len(n.Events()) == 0 {
		select {
		case <-deadline:
			t.Fatal("Timed out waiting for delivery")
		case <-time.After(10 * time.Millisecond):
		}
	}

	if n.Calls() != 3 {
		t.Errorf("Expected 3 attempts, got %d", n.Calls())
	}
	_ = nm.Close()
}

func TestNotificationManager_EnqueueAfterClose(t *testing.T) {
	nm := NewNotificationManager()
	n := &mockNotifier{id: "mock-1"}
	_ = nm.RegisterNotifier(n)

	if err := nm.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if !n.closed {
		t.Error("Expected close to close registered notifiers")
	}

	// Both are safe no-ops after close.
	nm.Enqueue(LabEvent{Type: EventPourCompleted}, []string{"mock-1"})
	if err := nm.Close(); err != nil {
		t.Errorf("Expected second close to be a no-op: %v", err)
	}
}

func TestLabEvent_JSON(t *testing.T) {
	event := LabEvent{
		Type:         EventReactionFired,
		SessionID:    "sess-1",
		ExperimentID: "exp-1",
		Outcome:      "Reaction occurred",
		Effects:      []Effect{{Kind: EffectBubbles, Intensity: 0.8}},
	}

	data, err := event.JSON()
	if err != nil {
		t.Fatalf("JSON failed: %v", err)
	}
	if len(data) == 0 {
		t.Error("Expected non-empty JSON")
	}
}
