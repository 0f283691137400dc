package lab

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Snapshot represents a point-in-time capture of a session's persistent
// state: vessel contents and the combined-chemical sets. Particles and
// gestures are transient and deliberately excluded.
type Snapshot struct {
	SessionID SessionID                 `json:"session_id"`
	Tick      int64                     `json:"tick"`
	Vessels   []Vessel                  `json:"vessels"`
	Combined  map[ExperimentID][]string `json:"combined,omitempty"`
}

// ValidateSnapshot performs validation checks on a snapshot.
// It verifies that:
//   - All vessel IDs are non-empty and unique
//   - No vessel's volume is negative or above its capacity
//
// Returns an error if validation fails, nil otherwise.
func ValidateSnapshot(snapshot Snapshot) error {
	seenIDs := make(map[VesselID]struct{})

	for i, v := range snapshot.Vessels {
		if v.ID == "" {
			return fmt.Errorf("vessel at index %d has empty ID", i)
		}
		if _, exists := seenIDs[v.ID]; exists {
			return fmt.Errorf("duplicate vessel ID: %s", v.ID)
		}
		seenIDs[v.ID] = struct{}{}

		if v.Volume < 0 {
			return fmt.Errorf("vessel %s has negative volume", v.ID)
		}
		if v.Capacity > 0 && v.Volume > v.Capacity {
			return fmt.Errorf("vessel %s volume %.3f exceeds capacity %.3f", v.ID, v.Volume, v.Capacity)
		}
	}

	return nil
}

// EncodeSnapshotJSON encodes a snapshot to JSON format.
// Returns the JSON bytes and any encoding error.
func EncodeSnapshotJSON(snapshot Snapshot) ([]byte, error) {
	data, err := json.Marshal(snapshot)
	if err != nil {
		return nil, fmt.Errorf("failed to encode snapshot: %w", err)
	}
	return data, nil
}

// DecodeSnapshotJSON decodes a snapshot from JSON format.
// Returns the decoded snapshot and any decoding error.
func DecodeSnapshotJSON(data []byte) (Snapshot, error) {
	var snapshot Snapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return Snapshot{}, fmt.Errorf("failed to decode snapshot: %w", err)
	}
	return snapshot, nil
}

// SnapshotPath returns the file path a session's snapshot lives at.
func SnapshotPath(dir string, id SessionID) string {
	return filepath.Join(dir, string(id)+".json")
}

// WriteSnapshotFile writes a snapshot under dir as <session-id>.json,
// creating the directory if needed. Periodic snapshots overwrite the same
// file.
func WriteSnapshotFile(dir string, snapshot Snapshot) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create snapshot dir: %w", err)
	}
	data, err := EncodeSnapshotJSON(snapshot)
	if err != nil {
		return err
	}
	if err := os.WriteFile(SnapshotPath(dir, snapshot.SessionID), data, 0o644); err != nil {
		return fmt.Errorf("failed to write snapshot: %w", err)
	}
	return nil
}

// ReadSnapshotFile reads and decodes a snapshot file.
func ReadSnapshotFile(path string) (Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Snapshot{}, fmt.Errorf("failed to read snapshot: %w", err)
	}
	return DecodeSnapshotJSON(data)
}
