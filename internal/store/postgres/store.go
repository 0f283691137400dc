// Package postgres provides the Postgres-backed store used in shared
// deployments. The schema is applied on startup so a fresh database is
// usable without migrations.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	"github.com/chemverse/labsim/internal/store"
	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib" // register pgx as a database/sql driver
)

// Compile-time contract assertion ensuring the store satisfies the interface.
var _ store.Store = (*Store)(nil)

const (
	defaultDriver = "pgx"
	defaultDSN    = "postgres://localhost/labsim?sslmode=disable"
)

var (
	sqlOpen = sql.Open
	openMu  sync.Mutex
)

var ddlStatements = []string{
	`CREATE TABLE IF NOT EXISTS experiments (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		difficulty TEXT NOT NULL DEFAULT '',
		duration INTEGER NOT NULL DEFAULT 0,
		category TEXT NOT NULL DEFAULT '',
		thumbnail TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE TABLE IF NOT EXISTS user_progress (
		user_id TEXT NOT NULL,
		experiment_id TEXT NOT NULL,
		progress_percentage DOUBLE PRECISION NOT NULL DEFAULT 0,
		completed BOOLEAN NOT NULL DEFAULT FALSE,
		last_accessed_at TIMESTAMPTZ NOT NULL,
		PRIMARY KEY (user_id, experiment_id)
	)`,
}

// Store is a Postgres-backed store.Store.
type Store struct {
	db *sql.DB
}

// NewStore opens a Postgres-backed store using the provided DSN (falls back
// to defaultDSN), pings it, and applies the DDL.
func NewStore(dsn string) (*Store, error) {
	if dsn == "" {
		dsn = defaultDSN
	}
	openMu.Lock()
	db, err := sqlOpen(defaultDriver, dsn)
	openMu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	ctx := context.Background()
	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	for _, stmt := range ddlStatements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return nil, fmt.Errorf("execute ddl: %w", err)
		}
	}
	return &Store{db: db}, nil
}

// DB exposes the underlying sql.DB for integration testing hooks.
func (s *Store) DB() *sql.DB { return s.db }

// Close closes the database handle.
func (s *Store) Close() error { return s.db.Close() }

// ListExperiments returns the full catalog ordered by title.
func (s *Store) ListExperiments(ctx context.Context) ([]store.Experiment, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, title, description, difficulty, duration, category, thumbnail
		 FROM experiments ORDER BY title`)
	if err != nil {
		return nil, fmt.Errorf("list experiments: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []store.Experiment
	for rows.Next() {
		var e store.Experiment
		if err := rows.Scan(&e.ID, &e.Title, &e.Description, &e.Difficulty, &e.Duration, &e.Category, &e.Thumbnail); err != nil {
			return nil, fmt.Errorf("scan experiment: %w", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list experiments: %w", err)
	}
	return out, nil
}

// GetExperiment returns one catalog row, or store.ErrNotFound.
func (s *Store) GetExperiment(ctx context.Context, id string) (store.Experiment, error) {
	var e store.Experiment
	err := s.db.QueryRowContext(ctx,
		`SELECT id, title, description, difficulty, duration, category, thumbnail
		 FROM experiments WHERE id = $1`, id).
		Scan(&e.ID, &e.Title, &e.Description, &e.Difficulty, &e.Duration, &e.Category, &e.Thumbnail)
	if errors.Is(err, sql.ErrNoRows) {
		return store.Experiment{}, store.ErrNotFound
	}
	if err != nil {
		return store.Experiment{}, fmt.Errorf("get experiment: %w", err)
	}
	return e, nil
}

// InsertExperiment adds a catalog row, generating an ID when absent.
func (s *Store) InsertExperiment(ctx context.Context, exp store.Experiment) (store.Experiment, error) {
	if exp.ID == "" {
		exp.ID = uuid.NewString()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO experiments (id, title, description, difficulty, duration, category, thumbnail)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		exp.ID, exp.Title, exp.Description, exp.Difficulty, exp.Duration, exp.Category, exp.Thumbnail)
	if err != nil {
		return store.Experiment{}, fmt.Errorf("insert experiment: %w", err)
	}
	return exp, nil
}

// GetProgress returns one progress row, or store.ErrNotFound.
func (s *Store) GetProgress(ctx context.Context, userID, experimentID string) (store.UserProgress, error) {
	var p store.UserProgress
	err := s.db.QueryRowContext(ctx,
		`SELECT user_id, experiment_id, progress_percentage, completed, last_accessed_at
		 FROM user_progress WHERE user_id = $1 AND experiment_id = $2`, userID, experimentID).
		Scan(&p.UserID, &p.ExperimentID, &p.ProgressPercentage, &p.Completed, &p.LastAccessedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return store.UserProgress{}, store.ErrNotFound
	}
	if err != nil {
		return store.UserProgress{}, fmt.Errorf("get progress: %w", err)
	}
	return p, nil
}

// ListProgress returns every progress row for a user.
func (s *Store) ListProgress(ctx context.Context, userID string) ([]store.UserProgress, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT user_id, experiment_id, progress_percentage, completed, last_accessed_at
		 FROM user_progress WHERE user_id = $1`, userID)
	if err != nil {
		return nil, fmt.Errorf("list progress: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []store.UserProgress
	for rows.Next() {
		var p store.UserProgress
		if err := rows.Scan(&p.UserID, &p.ExperimentID, &p.ProgressPercentage, &p.Completed, &p.LastAccessedAt); err != nil {
			return nil, fmt.Errorf("scan progress: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list progress: %w", err)
	}
	return out, nil
}

// UpsertProgress inserts or updates the progress row for (user, experiment).
func (s *Store) UpsertProgress(ctx context.Context, p store.UserProgress) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO user_progress (user_id, experiment_id, progress_percentage, completed, last_accessed_at)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (user_id, experiment_id) DO UPDATE SET
			progress_percentage = EXCLUDED.progress_percentage,
			completed = EXCLUDED.completed,
			last_accessed_at = EXCLUDED.last_accessed_at`,
		p.UserID, p.ExperimentID, p.ProgressPercentage, p.Completed, p.LastAccessedAt)
	if err != nil {
		return fmt.Errorf("upsert progress: %w", err)
	}
	return nil
}
