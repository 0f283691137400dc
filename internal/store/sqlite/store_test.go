package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/chemverse/labsim/internal/store"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(filepath.Join(t.TempDir(), "labsim.db"))
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestStore_InsertAndGetExperiment(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	exp := store.Experiment{
		Title:       "Acid-Base Neutralization",
		Description: "Combine HCl and NaOH",
		Difficulty:  "beginner",
		Duration:    20,
		Category:    "acid-base",
		Thumbnail:   "/thumbs/neutralization.png",
	}

	inserted, err := s.InsertExperiment(ctx, exp)
	if err != nil {
		t.Fatalf("InsertExperiment failed: %v", err)
	}
	if inserted.ID == "" {
		t.Fatal("Expected generated ID")
	}

	got, err := s.GetExperiment(ctx, inserted.ID)
	if err != nil {
		t.Fatalf("GetExperiment failed: %v", err)
	}
	if got.Title != exp.Title || got.Duration != 20 || got.Category != "acid-base" {
		t.Errorf("Unexpected experiment: %+v", got)
	}
}

func TestStore_InsertExperimentKeepsID(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	inserted, err := s.InsertExperiment(ctx, store.Experiment{ID: "exp-1", Title: "T"})
	if err != nil {
		t.Fatalf("InsertExperiment failed: %v", err)
	}
	if inserted.ID != "exp-1" {
		t.Errorf("Expected provided ID preserved, got %s", inserted.ID)
	}

	// A duplicate ID violates the primary key.
	if _, err := s.InsertExperiment(ctx, store.Experiment{ID: "exp-1", Title: "T2"}); err == nil {
		t.Error("Expected duplicate insert to fail")
	}
}

func TestStore_GetExperimentNotFound(t *testing.T) {
	s := newTestStore(t)

	_, err := s.GetExperiment(context.Background(), "missing")
	if !errors.Is(err, store.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestStore_ListExperiments(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	exps, err := s.ListExperiments(ctx)
	if err != nil {
		t.Fatalf("ListExperiments failed: %v", err)
	}
	if len(exps) != 0 {
		t.Errorf("Expected empty catalog, got %d", len(exps))
	}

	_, _ = s.InsertExperiment(ctx, store.Experiment{ID: "b", Title: "Precipitation"})
	_, _ = s.InsertExperiment(ctx, store.Experiment{ID: "a", Title: "Combustion"})

	exps, err = s.ListExperiments(ctx)
	if err != nil {
		t.Fatalf("ListExperiments failed: %v", err)
	}
	if len(exps) != 2 {
		t.Fatalf("Expected 2 experiments, got %d", len(exps))
	}
	// Ordered by title.
	if exps[0].Title != "Combustion" || exps[1].Title != "Precipitation" {
		t.Errorf("Unexpected order: %s, %s", exps[0].Title, exps[1].Title)
	}
}

func TestStore_ProgressUpsertAndGet(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	now := time.Now().UTC().Truncate(time.Second)
	p := store.UserProgress{
		UserID:             "user-1",
		ExperimentID:       "exp-1",
		ProgressPercentage: 40,
		Completed:          false,
		LastAccessedAt:     now,
	}

	if err := s.UpsertProgress(ctx, p); err != nil {
		t.Fatalf("UpsertProgress failed: %v", err)
	}

	got, err := s.GetProgress(ctx, "user-1", "exp-1")
	if err != nil {
		t.Fatalf("GetProgress failed: %v", err)
	}
	if got.ProgressPercentage != 40 || got.Completed {
		t.Errorf("Unexpected progress: %+v", got)
	}

	// Upsert on the same key overwrites.
	p.ProgressPercentage = 100
	p.Completed = true
	if err := s.UpsertProgress(ctx, p); err != nil {
		t.Fatalf("Second upsert failed: %v", err)
	}

	got, err = s.GetProgress(ctx, "user-1", "exp-1")
	if err != nil {
		t.Fatalf("GetProgress failed: %v", err)
	}
	if got.ProgressPercentage != 100 || !got.Completed {
		t.Errorf("Expected overwritten progress, got %+v", got)
	}

	rows, err := s.ListProgress(ctx, "user-1")
	if err != nil {
		t.Fatalf("ListProgress failed: %v", err)
	}
	if len(rows) != 1 {
		t.Errorf("Expected 1 progress row, got %d", len(rows))
	}
}

func TestStore_GetProgressNotFound(t *testing.T) {
	s := newTestStore(t)

	_, err := s.GetProgress(context.Background(), "nobody", "nothing")
	if !errors.Is(err, store.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestStore_ListProgressPerUser(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	for _, p := range []store.UserProgress{
		{UserID: "user-1", ExperimentID: "exp-1", ProgressPercentage: 10, LastAccessedAt: now},
		{UserID: "user-1", ExperimentID: "exp-2", ProgressPercentage: 20, LastAccessedAt: now},
		{UserID: "user-2", ExperimentID: "exp-1", ProgressPercentage: 30, LastAccessedAt: now},
	} {
		if err := s.UpsertProgress(ctx, p); err != nil {
			t.Fatalf("UpsertProgress failed: %v", err)
		}
	}

	rows, err := s.ListProgress(ctx, "user-1")
	if err != nil {
		t.Fatalf("ListProgress failed: %v", err)
	}
	if len(rows) != 2 {
		t.Errorf("Expected 2 rows for user-1, got %d", len(rows))
	}
}
