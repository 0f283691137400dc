// Package store defines the experiment catalog and user progress records and
// the persistence contract both SQL backends implement. Failures are always
// returned as recoverable errors for the caller to surface; nothing here
// panics or retries.
package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a catalog row or progress row does not exist.
var ErrNotFound = errors.New("store: not found")

// Experiment is one row of the read-mostly experiment catalog.
type Experiment struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Difficulty  string `json:"difficulty"`
	Duration    int    `json:"duration"` // minutes
	Category    string `json:"category"`
	Thumbnail   string `json:"thumbnail"`
}

// UserProgress is the per-user, per-experiment progress row.
type UserProgress struct {
	UserID             string    `json:"user_id"`
	ExperimentID       string    `json:"experiment_id"`
	ProgressPercentage float64   `json:"progress_percentage"`
	Completed          bool      `json:"completed"`
	LastAccessedAt     time.Time `json:"last_accessed_at"`
}

// Store is the persistence contract for the catalog and progress data.
type Store interface {
	// ListExperiments returns the full catalog.
	ListExperiments(ctx context.Context) ([]Experiment, error)

	// GetExperiment returns one catalog row, or ErrNotFound.
	GetExperiment(ctx context.Context, id string) (Experiment, error)

	// InsertExperiment adds a catalog row. An empty ID gets a generated one;
	// the stored row is returned.
	InsertExperiment(ctx context.Context, exp Experiment) (Experiment, error)

	// GetProgress returns one progress row, or ErrNotFound.
	GetProgress(ctx context.Context, userID, experimentID string) (UserProgress, error)

	// ListProgress returns every progress row for a user.
	ListProgress(ctx context.Context, userID string) ([]UserProgress, error)

	// UpsertProgress inserts or updates a progress row.
	UpsertProgress(ctx context.Context, p UserProgress) error

	// Close releases the underlying database handle.
	Close() error
}
