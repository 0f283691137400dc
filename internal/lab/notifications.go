package lab

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"
)

// EventType distinguishes the kinds of LabEvent a session emits.
type EventType string

const (
	EventReactionFired EventType = "reaction_fired"
	EventPourCompleted EventType = "pour_completed"
)

// LabEvent is emitted when something observable happens in a session: a pour
// completed or a reaction fired. It is what notifiers deliver to the outside.
type LabEvent struct {
	Type      EventType `json:"type"`
	SessionID SessionID `json:"session_id"`
	Timestamp int64     `json:"timestamp"`
	Tick      int64     `json:"tick"`

	// Pour fields
	ChemicalID string  `json:"chemical_id,omitempty"`
	FromVessel string  `json:"from_vessel,omitempty"`
	ToVessel   string  `json:"to_vessel,omitempty"`
	Amount     float32 `json:"amount,omitempty"`

	// Reaction fields
	ExperimentID ExperimentID `json:"experiment_id,omitempty"`
	Outcome      string       `json:"outcome,omitempty"`
	Effects      []Effect     `json:"effects,omitempty"`
}

// JSON returns the event as JSON bytes
func (e LabEvent) JSON() ([]byte, error) {
	return json.Marshal(e)
}

// Notifier is the interface that all notification channels must implement
type Notifier interface {
	// ID returns a unique identifier for this notifier
	ID() string

	// Type returns the type of notifier (e.g., "webhook", "websocket")
	Type() string

	// Notify sends a lab event. Returns an error if delivery fails.
	// The context can be used for cancellation and timeout.
	Notify(ctx context.Context, event LabEvent) error

	// Close closes the notifier and releases any resources
	Close() error
}

// notificationJob represents a job to be processed by the notification queue
type notificationJob struct {
	Event       LabEvent
	NotifierIDs []string
}

// NotificationManager manages all notifiers and routes events to them
type NotificationManager struct {
	mu        sync.RWMutex
	notifiers map[string]Notifier
	jobs      chan notificationJob
	closed    bool
	wg        sync.WaitGroup
	logger    Logger
}

// NewNotificationManager creates a new notification manager
func NewNotificationManager() *NotificationManager {
	return NewNotificationManagerWithLogger(NewNoOpLogger())
}

// NewNotificationManagerWithLogger creates a notification manager using the
// given logger for delivery failures.
func NewNotificationManagerWithLogger(logger Logger) *NotificationManager {
	if logger == nil {
		logger = NewNoOpLogger()
	}
	mgr := &NotificationManager{
		notifiers: make(map[string]Notifier),
		jobs:      make(chan notificationJob, 1024),
		logger:    logger,
	}
	mgr.startWorkers(1)
	return mgr
}

// RegisterNotifier registers a notifier with the manager
func (nm *NotificationManager) RegisterNotifier(notifier Notifier) error {
	if notifier == nil {
		return fmt.Errorf("notifier cannot be nil")
	}

	id := notifier.ID()
	if id == "" {
		return fmt.Errorf("notifier ID cannot be empty")
	}

	nm.mu.Lock()
	defer nm.mu.Unlock()

	if _, exists := nm.notifiers[id]; exists {
		return fmt.Errorf("notifier with ID %s already exists", id)
	}

	nm.notifiers[id] = notifier
	return nil
}

// UnregisterNotifier removes a notifier from the manager
func (nm *NotificationManager) UnregisterNotifier(id string) error {
	nm.mu.Lock()
	notifier, exists := nm.notifiers[id]
	nm.mu.Unlock()

	if !exists {
		return fmt.Errorf("notifier with ID %s not found", id)
	}

	if err := notifier.Close(); err != nil {
		return fmt.Errorf("error closing notifier %s: %w", id, err)
	}

	nm.mu.Lock()
	delete(nm.notifiers, id)
	nm.mu.Unlock()

	return nil
}

// GetNotifier retrieves a notifier by ID
func (nm *NotificationManager) GetNotifier(id string) (Notifier, bool) {
	nm.mu.RLock()
	defer nm.mu.RUnlock()
	notifier, exists := nm.notifiers[id]
	return notifier, exists
}

// ListNotifiers returns a list of all registered notifier IDs
func (nm *NotificationManager) ListNotifiers() []string {
	nm.mu.RLock()
	defer nm.mu.RUnlock()
	ids := make([]string, 0, len(nm.notifiers))
	for id := range nm.notifiers {
		ids = append(ids, id)
	}
	return ids
}

// Enqueue enqueues an event to be delivered asynchronously by the worker
// goroutines. This method is non-blocking and drops the event if the queue
// is full; delivery is best effort relative to the frame loop.
func (nm *NotificationManager) Enqueue(event LabEvent, notifierIDs []string) {
	if len(notifierIDs) == 0 {
		return
	}

	nm.mu.RLock()
	closed := nm.closed
	nm.mu.RUnlock()

	if closed {
		return
	}

	select {
	case nm.jobs <- notificationJob{Event: event, NotifierIDs: notifierIDs}:
	default:
		nm.logger.Warnf("notification queue full, dropping event: type=%s session=%s", event.Type, event.SessionID)
	}
}

// startWorkers starts n worker goroutines to process notification jobs
func (nm *NotificationManager) startWorkers(n int) {
	for range n {
		nm.wg.Add(1)
		go nm.worker()
	}
}

// worker processes notification jobs from the queue
func (nm *NotificationManager) worker() {
	defer nm.wg.Done()
	for job := range nm.jobs {
		nm.dispatchJob(job)
	}
}

// dispatchJob dispatches a notification job to all specified notifiers
func (nm *NotificationManager) dispatchJob(job notificationJob) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	for _, id := range job.NotifierIDs {
		nm.notifyWithRetry(ctx, id, job.Event)
	}
}

// notifyWithRetry attempts delivery with exponential backoff retry
func (nm *NotificationManager) notifyWithRetry(ctx context.Context, notifierID string, event LabEvent) {
	nm.mu.RLock()
	notifier, ok := nm.notifiers[notifierID]
	nm.mu.RUnlock()

	if !ok {
		nm.logger.Warnf("notification failed: notifier=%s error=notifier not found", notifierID)
		return
	}

	const maxRetries = 3
	backoff := 100 * time.Millisecond

	for attempt := 0; attempt <= maxRetries; attempt++ {
		err := notifier.Notify(ctx, event)
		if err == nil {
			return
		}

		nm.logger.Warnf("notification failed: notifier=%s attempt=%d error=%v", notifierID, attempt+1, err)

		if attempt == maxRetries {
			nm.logger.Errorf("notification failed after %d attempts: notifier=%s", maxRetries+1, notifierID)
			return
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(backoff):
			backoff *= 2
		}
	}
}

// Notify delivers an event to the specified notifiers synchronously. For
// async processing relative to the frame loop, use Enqueue instead.
func (nm *NotificationManager) Notify(ctx context.Context, event LabEvent, notifierIDs []string) error {
	if len(notifierIDs) == 0 {
		return nil
	}

	var errors []error
	for _, id := range notifierIDs {
		nm.mu.RLock()
		notifier, exists := nm.notifiers[id]
		nm.mu.RUnlock()

		if !exists {
			errors = append(errors, fmt.Errorf("notifier %s not found", id))
			continue
		}

		if err := notifier.Notify(ctx, event); err != nil {
			errors = append(errors, fmt.Errorf("notifier %s failed: %w", id, err))
		}
	}

	if len(errors) > 0 {
		return fmt.Errorf("notification errors: %v", errors)
	}

	return nil
}

// Close closes all registered notifiers and shuts down worker goroutines
func (nm *NotificationManager) Close() error {
	nm.mu.Lock()
	if nm.closed {
		nm.mu.Unlock()
		return nil
	}
	nm.closed = true
	close(nm.jobs)
	nm.mu.Unlock()

	nm.wg.Wait()

	nm.mu.Lock()
	var errors []error
	for id, notifier := range nm.notifiers {
		if err := notifier.Close(); err != nil {
			errors = append(errors, fmt.Errorf("error closing notifier %s: %w", id, err))
		}
	}
	nm.notifiers = make(map[string]Notifier)
	nm.mu.Unlock()

	if len(errors) > 0 {
		return fmt.Errorf("errors closing notifiers: %v", errors)
	}

	return nil
}
