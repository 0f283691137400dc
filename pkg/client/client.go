// Package client provides a Go client for a labsim server: a fluent builder
// for scene configurations plus helpers for the session, catalog, and
// progress endpoints.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/chemverse/labsim/internal/lab"
	"github.com/chemverse/labsim/internal/store"
)

// SceneBuilder provides a fluent API for building scene configurations.
// Use it to lay out glassware, bind chemicals to vessels, and seed the
// experiments a session plays through.
type SceneBuilder struct {
	name        string
	camera      *lab.CameraConfig
	vessels     []*VesselBuilder
	chemicals   []lab.ChemicalConfig
	experiments []lab.ExperimentConfig
	sim         *lab.SimConfig
}

// NewScene creates a new scene builder with the given name.
func NewScene(name string) *SceneBuilder {
	return &SceneBuilder{
		name:      name,
		vessels:   make([]*VesselBuilder, 0),
		chemicals: make([]lab.ChemicalConfig, 0),
	}
}

// Camera sets the camera position and look-at target.
func (sb *SceneBuilder) Camera(position, target [3]float32) *SceneBuilder {
	sb.camera = &lab.CameraConfig{Position: position, Target: target}
	return sb
}

// Vessel adds a vessel definition to the scene.
func (sb *SceneBuilder) Vessel(vb *VesselBuilder) *SceneBuilder {
	sb.vessels = append(sb.vessels, vb)
	return sb
}

// Chemical binds a pourable chemical to its source vessel.
func (sb *SceneBuilder) Chemical(id, name, vesselID string, flowRate float32) *SceneBuilder {
	sb.chemicals = append(sb.chemicals, lab.ChemicalConfig{
		ID:       id,
		Name:     name,
		VesselID: vesselID,
		FlowRate: flowRate,
	})
	return sb
}

// Experiment seeds one experiment into the scene's reaction table.
// The category is matched case-insensitively against the known reaction
// families; anything else falls back to the generic result.
func (sb *SceneBuilder) Experiment(id, title, category string) *SceneBuilder {
	sb.experiments = append(sb.experiments, lab.ExperimentConfig{
		ID:       id,
		Title:    title,
		Category: category,
	})
	return sb
}

// Sim overrides the particle simulation tuning.
func (sb *SceneBuilder) Sim(cfg lab.SimConfig) *SceneBuilder {
	sb.sim = &cfg
	return sb
}

// Build converts the builder to a SceneConfig that can be used with
// ApplyScene or other labsim APIs.
func (sb *SceneBuilder) Build() lab.SceneConfig {
	vessels := make([]lab.VesselConfig, 0, len(sb.vessels))
	for _, vb := range sb.vessels {
		vessels = append(vessels, vb.Build())
	}

	return lab.SceneConfig{
		Name:        sb.name,
		Camera:      sb.camera,
		Vessels:     vessels,
		Chemicals:   sb.chemicals,
		Experiments: sb.experiments,
		Sim:         sb.sim,
	}
}

// VesselBuilder provides a fluent API for building vessel configurations.
type VesselBuilder struct {
	cfg lab.VesselConfig
}

// NewVessel creates a vessel builder. Kind is one of "beaker", "flask",
// "bottle", "test-tube".
func NewVessel(id, kind, label string, capacity float32) *VesselBuilder {
	return &VesselBuilder{cfg: lab.VesselConfig{
		ID:       id,
		Kind:     kind,
		Label:    label,
		Capacity: capacity,
	}}
}

// Volume sets the initial liquid volume.
func (vb *VesselBuilder) Volume(v float32) *VesselBuilder {
	vb.cfg.Volume = v
	return vb
}

// Color sets the liquid color (components in [0,1]).
func (vb *VesselBuilder) Color(r, g, b float32) *VesselBuilder {
	vb.cfg.Color = &lab.Color{R: r, G: g, B: b}
	return vb
}

// Capped marks the vessel as capped; capped vessels neither pour nor receive.
func (vb *VesselBuilder) Capped() *VesselBuilder {
	vb.cfg.Capped = true
	return vb
}

// At places the vessel in the scene.
func (vb *VesselBuilder) At(x, y, z float32) *VesselBuilder {
	vb.cfg.Position = [3]float32{x, y, z}
	return vb
}

// Fixed makes the vessel non-draggable.
func (vb *VesselBuilder) Fixed() *VesselBuilder {
	vb.cfg.Fixed = true
	return vb
}

// Bound adds a drag clamp range on one axis ("x", "y" or "z").
func (vb *VesselBuilder) Bound(axis string, min, max float32) *VesselBuilder {
	vb.cfg.Bounds = append(vb.cfg.Bounds, lab.AxisBound{Axis: axis, Min: min, Max: max})
	return vb
}

// Build converts the builder to a VesselConfig.
func (vb *VesselBuilder) Build() lab.VesselConfig {
	return vb.cfg
}

// PointerEvent is a pointer gesture sent to a session.
type PointerEvent struct {
	Type string  `json:"type"` // "down", "move", "up" or "dblclick"
	X    float32 `json:"x"`
	Y    float32 `json:"y"`
}

// PointerResult is the server's response to a pointer event.
type PointerResult struct {
	Handle *lab.DragHandle `json:"handle,omitempty"`
	Stream string          `json:"stream,omitempty"`
}

// ApplyScene sends the scene configuration to a labsim server, creating or
// rebuilding the session with the given ID. The baseURL is the server's base
// URL (e.g., "http://localhost:8080").
func ApplyScene(ctx context.Context, baseURL, sessionID string, scene *SceneBuilder) error {
	cfg := scene.Build()
	return postJSON(ctx, baseURL, []string{"session", sessionID, "scene"}, cfg, nil)
}

// SendPointer delivers a pointer gesture to a session.
func SendPointer(ctx context.Context, baseURL, sessionID string, event PointerEvent) (PointerResult, error) {
	var result PointerResult
	err := postJSON(ctx, baseURL, []string{"session", sessionID, "pointer"}, event, &result)
	return result, err
}

// Tick advances a session by one frame of dt seconds.
func Tick(ctx context.Context, baseURL, sessionID string, dt float64) error {
	path := fmt.Sprintf("session/%s/tick?dt=%g", url.PathEscape(sessionID), dt)
	return postRaw(ctx, baseURL, path)
}

// Start begins a session's frame loop with the given interval in
// milliseconds; 0 uses the server default.
func Start(ctx context.Context, baseURL, sessionID string, intervalMs int) error {
	path := fmt.Sprintf("session/%s/start", url.PathEscape(sessionID))
	if intervalMs > 0 {
		path = fmt.Sprintf("%s?interval=%d", path, intervalMs)
	}
	return postRaw(ctx, baseURL, path)
}

// Stop halts a session's frame loop.
func Stop(ctx context.Context, baseURL, sessionID string) error {
	return postRaw(ctx, baseURL, fmt.Sprintf("session/%s/stop", url.PathEscape(sessionID)))
}

// State fetches the renderable state of a session.
func State(ctx context.Context, baseURL, sessionID string) (lab.SessionState, error) {
	var state lab.SessionState
	err := getJSON(ctx, baseURL, []string{"session", sessionID, "state"}, &state)
	return state, err
}

// SelectExperiment selects the experiment pours are recorded against.
func SelectExperiment(ctx context.Context, baseURL, sessionID, experimentID string) error {
	body := map[string]string{"experiment_id": experimentID}
	return postJSON(ctx, baseURL, []string{"session", sessionID, "experiment"}, body, nil)
}

// SaveSnapshot asks the server to persist the session's snapshot now.
func SaveSnapshot(ctx context.Context, baseURL, sessionID string) error {
	return postRaw(ctx, baseURL, fmt.Sprintf("session/%s/snapshot", url.PathEscape(sessionID)))
}

// Experiments fetches the experiment catalog.
func Experiments(ctx context.Context, baseURL string) ([]store.Experiment, error) {
	var out []store.Experiment
	err := getJSON(ctx, baseURL, []string{"experiments"}, &out)
	return out, err
}

// Experiment fetches one catalog entry by ID.
func Experiment(ctx context.Context, baseURL, id string) (store.Experiment, error) {
	var out store.Experiment
	err := getJSON(ctx, baseURL, []string{"experiments", id}, &out)
	return out, err
}

// UpsertProgress records a user's progress for an experiment.
func UpsertProgress(ctx context.Context, baseURL string, progress store.UserProgress) error {
	return postJSON(ctx, baseURL, []string{"progress"}, progress, nil)
}

// Progress fetches one progress row for a user and experiment.
func Progress(ctx context.Context, baseURL, userID, experimentID string) (store.UserProgress, error) {
	var out store.UserProgress
	path := fmt.Sprintf("progress?user_id=%s&experiment_id=%s",
		url.QueryEscape(userID), url.QueryEscape(experimentID))
	err := getJSONPath(ctx, baseURL, path, &out)
	return out, err
}

// postJSON marshals body, POSTs it to the joined path, and optionally
// decodes the response into out.
func postJSON(ctx context.Context, baseURL string, parts []string, body any, out any) error {
	jsonData, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	u, err := url.JoinPath(baseURL, parts...)
	if err != nil {
		return fmt.Errorf("failed to build URL: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(jsonData))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	return doRequest(req, out)
}

// postRaw POSTs to baseURL/path with no body. The path may carry a query
// string, which url.JoinPath would escape.
func postRaw(ctx context.Context, baseURL, path string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, joinRaw(baseURL, path), nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	return doRequest(req, nil)
}

func getJSON(ctx context.Context, baseURL string, parts []string, out any) error {
	u, err := url.JoinPath(baseURL, parts...)
	if err != nil {
		return fmt.Errorf("failed to build URL: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	return doRequest(req, out)
}

func getJSONPath(ctx context.Context, baseURL, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, joinRaw(baseURL, path), nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	return doRequest(req, out)
}

func joinRaw(baseURL, path string) string {
	for len(baseURL) > 0 && baseURL[len(baseURL)-1] == '/' {
		baseURL = baseURL[:len(baseURL)-1]
	}
	return baseURL + "/" + path
}

func doRequest(req *http.Request, out any) error {
	client := &http.Client{}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("server returned status %d: %s", resp.StatusCode, string(body))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
