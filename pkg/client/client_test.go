package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/chemverse/labsim/internal/store"
)

func TestSceneBuilder(t *testing.T) {
	scene := NewScene("test-scene").
		Camera([3]float32{0, 4, 8}, [3]float32{0, 1, 0}).
		Vessel(NewVessel("beaker-1", "beaker", "Beaker A", 250).
			Volume(100).
			Color(0.2, 0.4, 0.9).
			At(-1, 0.5, 0).
			Bound("y", 0.5, 3)).
		Vessel(NewVessel("bottle-1", "bottle", "HCl", 500).
			Volume(500).
			Capped().
			Fixed().
			At(1, 0.5, 0)).
		Chemical("hcl", "Hydrochloric acid", "bottle-1", 2.5).
		Experiment("exp-1", "Neutralization", "acid-base")

	cfg := scene.Build()

	if cfg.Name != "test-scene" {
		t.Errorf("Expected name 'test-scene', got '%s'", cfg.Name)
	}

	if cfg.Camera == nil {
		t.Fatal("Expected camera config to be set")
	}
	if cfg.Camera.Position != [3]float32{0, 4, 8} {
		t.Errorf("Unexpected camera position: %v", cfg.Camera.Position)
	}

	if len(cfg.Vessels) != 2 {
		t.Fatalf("Expected 2 vessels, got %d", len(cfg.Vessels))
	}

	beaker := cfg.Vessels[0]
	if beaker.ID != "beaker-1" || beaker.Kind != "beaker" {
		t.Errorf("Unexpected first vessel: %+v", beaker)
	}
	if beaker.Volume != 100 || beaker.Capacity != 250 {
		t.Errorf("Unexpected beaker volumes: %+v", beaker)
	}
	if beaker.Color == nil || beaker.Color.B != 0.9 {
		t.Errorf("Unexpected beaker color: %+v", beaker.Color)
	}
	if len(beaker.Bounds) != 1 || beaker.Bounds[0].Axis != "y" {
		t.Errorf("Unexpected beaker bounds: %+v", beaker.Bounds)
	}

	bottle := cfg.Vessels[1]
	if !bottle.Capped || !bottle.Fixed {
		t.Errorf("Expected bottle to be capped and fixed: %+v", bottle)
	}

	if len(cfg.Chemicals) != 1 || cfg.Chemicals[0].VesselID != "bottle-1" {
		t.Errorf("Unexpected chemicals: %+v", cfg.Chemicals)
	}

	if len(cfg.Experiments) != 1 || cfg.Experiments[0].Category != "acid-base" {
		t.Errorf("Unexpected experiments: %+v", cfg.Experiments)
	}
}

func TestApplyScene(t *testing.T) {
	var gotPath string
	var gotBody map[string]any

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		if r.Method != http.MethodPost {
			t.Errorf("Expected POST, got %s", r.Method)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("Expected application/json, got %s", ct)
		}
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("Failed to decode request body: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	scene := NewScene("bench").
		Vessel(NewVessel("beaker-1", "beaker", "Beaker", 250))

	if err := ApplyScene(context.Background(), server.URL, "sess-1", scene); err != nil {
		t.Fatalf("ApplyScene failed: %v", err)
	}

	if gotPath != "/session/sess-1/scene" {
		t.Errorf("Expected path /session/sess-1/scene, got %s", gotPath)
	}
	if gotBody["name"] != "bench" {
		t.Errorf("Expected scene name 'bench' in body, got %v", gotBody["name"])
	}
}

func TestApplyScene_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "invalid scene", http.StatusBadRequest)
	}))
	defer server.Close()

	err := ApplyScene(context.Background(), server.URL, "sess-1", NewScene("bad"))
	if err == nil {
		t.Fatal("Expected error for 400 response, got nil")
	}
}

func TestSendPointer(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/session/sess-1/pointer" {
			t.Errorf("Unexpected path: %s", r.URL.Path)
		}
		var ev PointerEvent
		if err := json.NewDecoder(r.Body).Decode(&ev); err != nil {
			t.Errorf("Failed to decode pointer event: %v", err)
		}
		if ev.Type != "down" || ev.X != 640 || ev.Y != 360 {
			t.Errorf("Unexpected pointer event: %+v", ev)
		}
		_ = json.NewEncoder(w).Encode(PointerResult{Stream: "stream-1"})
	}))
	defer server.Close()

	result, err := SendPointer(context.Background(), server.URL, "sess-1", PointerEvent{
		Type: "down", X: 640, Y: 360,
	})
	if err != nil {
		t.Fatalf("SendPointer failed: %v", err)
	}
	if result.Stream != "stream-1" {
		t.Errorf("Expected stream 'stream-1', got '%s'", result.Stream)
	}
}

func TestTick(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/session/sess-1/tick" {
			t.Errorf("Unexpected path: %s", r.URL.Path)
		}
		if dt := r.URL.Query().Get("dt"); dt != "0.016" {
			t.Errorf("Expected dt=0.016, got %s", dt)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	if err := Tick(context.Background(), server.URL, "sess-1", 0.016); err != nil {
		t.Fatalf("Tick failed: %v", err)
	}
}

func TestStartStop(t *testing.T) {
	var paths []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
		if r.URL.Path == "/session/sess-1/start" {
			if iv := r.URL.Query().Get("interval"); iv != "32" {
				t.Errorf("Expected interval=32, got %s", iv)
			}
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	ctx := context.Background()
	if err := Start(ctx, server.URL, "sess-1", 32); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if err := Stop(ctx, server.URL, "sess-1"); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}

	if len(paths) != 2 || paths[1] != "/session/sess-1/stop" {
		t.Errorf("Unexpected request paths: %v", paths)
	}
}

func TestState(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/session/sess-1/state" {
			t.Errorf("Unexpected path: %s", r.URL.Path)
		}
		_, _ = w.Write([]byte(`{"session_id":"sess-1","name":"bench","tick":42}`))
	}))
	defer server.Close()

	state, err := State(context.Background(), server.URL, "sess-1")
	if err != nil {
		t.Fatalf("State failed: %v", err)
	}
	if state.Name != "bench" {
		t.Errorf("Expected scene name 'bench', got '%s'", state.Name)
	}
	if state.Tick != 42 {
		t.Errorf("Expected tick 42, got %d", state.Tick)
	}
}

func TestExperiments(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/experiments" {
			t.Errorf("Unexpected path: %s", r.URL.Path)
		}
		_, _ = w.Write([]byte(`[{"id":"exp-1","title":"Neutralization","category":"acid-base"}]`))
	}))
	defer server.Close()

	exps, err := Experiments(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("Experiments failed: %v", err)
	}
	if len(exps) != 1 || exps[0].ID != "exp-1" {
		t.Errorf("Unexpected experiments: %+v", exps)
	}
}

func TestProgressRoundTrip(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/progress" {
			t.Errorf("Unexpected path: %s", r.URL.Path)
		}
		switch r.Method {
		case http.MethodPost:
			var p store.UserProgress
			if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
				t.Errorf("Failed to decode progress: %v", err)
			}
			if p.UserID != "user-1" || p.ProgressPercentage != 75 {
				t.Errorf("Unexpected progress payload: %+v", p)
			}
			w.WriteHeader(http.StatusOK)
		case http.MethodGet:
			if r.URL.Query().Get("user_id") != "user-1" {
				t.Errorf("Expected user_id=user-1, got %s", r.URL.Query().Get("user_id"))
			}
			_, _ = w.Write([]byte(`{"user_id":"user-1","experiment_id":"exp-1","progress_percentage":75}`))
		}
	}))
	defer server.Close()

	ctx := context.Background()
	err := UpsertProgress(ctx, server.URL, store.UserProgress{
		UserID:             "user-1",
		ExperimentID:       "exp-1",
		ProgressPercentage: 75,
	})
	if err != nil {
		t.Fatalf("UpsertProgress failed: %v", err)
	}

	got, err := Progress(ctx, server.URL, "user-1", "exp-1")
	if err != nil {
		t.Fatalf("Progress failed: %v", err)
	}
	if got.ProgressPercentage != 75 {
		t.Errorf("Expected 75%%, got %v", got.ProgressPercentage)
	}
}
