package main

import (
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/chemverse/labsim/internal/lab"
	labnotifiers "github.com/chemverse/labsim/internal/lab/notifiers"
	"github.com/chemverse/labsim/internal/store"
)

// extractSessionID extracts the session ID from a path like "/session/{id}/..."
// Returns the session ID and the remaining path, or empty string if not found
func extractSessionID(path string) (lab.SessionID, string) {
	if !strings.HasPrefix(path, "/session/") {
		return "", ""
	}

	rest := path[len("/session/"):]

	idx := strings.Index(rest, "/")
	if idx == -1 {
		// No more path segments, the whole thing is the session ID
		return lab.SessionID(rest), ""
	}

	id := lab.SessionID(rest[:idx])
	remainingPath := rest[idx:]
	return id, remainingPath
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// handleSessionRoutes routes requests to session-specific handlers
// Handles paths like /session/{id}/scene, /session/{id}/pointer, etc.
func (s *Server) handleSessionRoutes(w http.ResponseWriter, r *http.Request) {
	id, remainingPath := extractSessionID(r.URL.Path)
	if id == "" {
		http.Error(w, "session ID is required in path: /session/{id}/...", http.StatusBadRequest)
		return
	}

	switch {
	case remainingPath == "/scene" && r.Method == http.MethodPost:
		s.handleScene(w, r)
	case remainingPath == "/pointer" && r.Method == http.MethodPost:
		s.handlePointer(w, r)
	case remainingPath == "/tick" && r.Method == http.MethodPost:
		s.handleTick(w, r)
	case remainingPath == "/start" && r.Method == http.MethodPost:
		s.handleStart(w, r)
	case remainingPath == "/stop" && r.Method == http.MethodPost:
		s.handleStop(w, r)
	case remainingPath == "/state" && r.Method == http.MethodGet:
		s.handleState(w, r)
	case remainingPath == "/experiment" && r.Method == http.MethodPost:
		s.handleSetExperiment(w, r)
	case remainingPath == "/snapshot" && r.Method == http.MethodPost:
		s.handleSaveSnapshot(w, r)
	case remainingPath == "/snapshot" && r.Method == http.MethodGet:
		s.handleGetSnapshot(w, r)
	case remainingPath == "/ws" && r.Method == http.MethodGet:
		s.handleWebSocket(w, r)
	case remainingPath == "" && r.Method == http.MethodDelete:
		s.handleDeleteSession(w, r)
	default:
		http.Error(w, "not found", http.StatusNotFound)
	}
}

// POST /session/{id}/scene
// Body: SceneConfig JSON
// Creates a new session with the given ID and scene, or rebuilds an existing one
func (s *Server) handleScene(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	id, _ := extractSessionID(r.URL.Path)

	var cfg lab.SceneConfig
	if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
		http.Error(w, "invalid scene json: "+err.Error(), http.StatusBadRequest)
		return
	}

	// Rebuild an existing session's scene, otherwise create one. Checking
	// existence up front keeps validation errors intact either way.
	var session *lab.Session
	var err error
	if _, exists := s.manager.GetSession(id); exists {
		session, err = s.manager.ReplaceScene(id, cfg)
	} else {
		session, err = s.manager.CreateSession(id, cfg)
	}
	if err != nil {
		s.logger.Errorf("Failed to load scene: session=%s error=%v", id, err)
		http.Error(w, "cannot load scene: "+err.Error(), http.StatusBadRequest)
		return
	}
	s.logger.Infof("Scene loaded: session=%s scene=%s", id, cfg.Name)

	s.configureSession(session)

	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("scene loaded"))
}

// POST /session/{id}/pointer
// Body: { "type": "down"|"move"|"up"|"dblclick", "x": ..., "y": ... }
type pointerRequest struct {
	Type string  `json:"type"`
	X    float32 `json:"x"`
	Y    float32 `json:"y"`
}

type pointerResponse struct {
	Handle *lab.DragHandle `json:"handle,omitempty"`
	Stream string          `json:"stream,omitempty"`
}

func (s *Server) handlePointer(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	id, _ := extractSessionID(r.URL.Path)
	session, exists := s.manager.GetSession(id)
	if !exists {
		http.Error(w, "session not found", http.StatusNotFound)
		return
	}

	var req pointerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json: "+err.Error(), http.StatusBadRequest)
		return
	}

	var resp pointerResponse
	switch req.Type {
	case "down":
		resp.Handle = session.PointerDown(req.X, req.Y)
	case "move":
		session.PointerMove(req.X, req.Y)
	case "up":
		session.PointerUp()
	case "dblclick":
		if streamID, ok := session.DoubleClick(req.X, req.Y); ok {
			resp.Stream = string(streamID)
		}
	default:
		http.Error(w, "unknown pointer event type: "+req.Type, http.StatusBadRequest)
		return
	}

	s.logger.Debugf("Pointer event: session=%s type=%s x=%.1f y=%.1f", id, req.Type, req.X, req.Y)

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		http.Error(w, "cannot encode: "+err.Error(), http.StatusInternalServerError)
		return
	}
}

// POST /session/{id}/tick
// Manually advance a single frame (useful for testing/debugging when
// auto-running is disabled). Query param: dt (seconds, default 0.016)
func (s *Server) handleTick(w http.ResponseWriter, r *http.Request) {
	id, _ := extractSessionID(r.URL.Path)
	session, exists := s.manager.GetSession(id)
	if !exists {
		http.Error(w, "session not found", http.StatusNotFound)
		return
	}

	dt := float32(0.016)
	if dtStr := r.URL.Query().Get("dt"); dtStr != "" {
		if v, err := strconv.ParseFloat(dtStr, 32); err == nil && v > 0 {
			dt = float32(v)
		} else {
			http.Error(w, "invalid dt: must be a positive number (seconds)", http.StatusBadRequest)
			return
		}
	}

	session.Step(dt)
	s.metrics.TicksServed.Inc()
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ticked"))
}

// POST /session/{id}/start
// Start the session frame loop with the specified interval (in milliseconds)
// Query param: interval (default: server tick interval)
func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	id, _ := extractSessionID(r.URL.Path)
	session, exists := s.manager.GetSession(id)
	if !exists {
		http.Error(w, "session not found", http.StatusNotFound)
		return
	}

	interval := s.tickInterval
	if intervalStr := r.URL.Query().Get("interval"); intervalStr != "" {
		if ms, err := strconv.Atoi(intervalStr); err == nil && ms > 0 {
			interval = time.Duration(ms) * time.Millisecond
		} else {
			http.Error(w, "invalid interval: must be a positive integer (milliseconds)", http.StatusBadRequest)
			return
		}
	}

	session.Run(interval)
	s.logger.Infof("Session started: session=%s interval=%v", id, interval)

	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("session started"))
}

// POST /session/{id}/stop
// Stop the session frame loop
func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	id, _ := extractSessionID(r.URL.Path)
	session, exists := s.manager.GetSession(id)
	if !exists {
		http.Error(w, "session not found", http.StatusNotFound)
		return
	}

	session.Stop()
	s.logger.Infof("Session stopped: session=%s", id)

	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("session stopped"))
}

// GET /session/{id}/state
func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	id, _ := extractSessionID(r.URL.Path)
	session, exists := s.manager.GetSession(id)
	if !exists {
		http.Error(w, "session not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(session.State()); err != nil {
		http.Error(w, "cannot encode: "+err.Error(), http.StatusInternalServerError)
		return
	}
}

// POST /session/{id}/experiment
// Body: { "experiment_id": "..." }
// Selects the experiment pours are recorded against
func (s *Server) handleSetExperiment(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	id, _ := extractSessionID(r.URL.Path)
	session, exists := s.manager.GetSession(id)
	if !exists {
		http.Error(w, "session not found", http.StatusNotFound)
		return
	}

	var req struct {
		ExperimentID string `json:"experiment_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json: "+err.Error(), http.StatusBadRequest)
		return
	}
	if req.ExperimentID == "" {
		http.Error(w, "experiment_id is required", http.StatusBadRequest)
		return
	}

	session.SetActiveExperiment(lab.ExperimentID(req.ExperimentID))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("experiment selected"))
}

// GET /session/{id}/ws
// Upgrades to a WebSocket that streams lab events
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	id, _ := extractSessionID(r.URL.Path)
	if _, exists := s.manager.GetSession(id); !exists {
		http.Error(w, "session not found", http.StatusNotFound)
		return
	}

	upgrader := s.wsNotifier.Upgrader()
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warnf("WebSocket upgrade failed: session=%s error=%v", id, err)
		return
	}

	s.wsNotifier.RegisterClient(conn)
	s.logger.Debugf("WebSocket client connected: session=%s", id)

	// Drain reads until the client goes away, then unregister.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				s.wsNotifier.UnregisterClient(conn)
				return
			}
		}
	}()
}

// DELETE /session/{id}
func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	id, _ := extractSessionID(r.URL.Path)

	if err := s.manager.DeleteSession(id); err != nil {
		s.logger.Warnf("Failed to delete session: session=%s error=%v", id, err)
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}

	s.logger.Infof("Session deleted: session=%s", id)

	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("session deleted"))
}

// GET /sessions
// List all session IDs
func (s *Server) handleListSessions(w http.ResponseWriter, _ *http.Request) {
	sessionIDs := s.manager.ListSessions()

	ids := make([]string, len(sessionIDs))
	for i, id := range sessionIDs {
		ids[i] = string(id)
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string][]string{"sessions": ids}); err != nil {
		http.Error(w, "cannot encode: "+err.Error(), http.StatusInternalServerError)
		return
	}
}

// POST /session/{id}/snapshot
// Triggers a synchronous snapshot save
func (s *Server) handleSaveSnapshot(w http.ResponseWriter, r *http.Request) {
	id, _ := extractSessionID(r.URL.Path)
	session, exists := s.manager.GetSession(id)
	if !exists {
		http.Error(w, "session not found", http.StatusNotFound)
		return
	}

	if s.snapshotDir == "" {
		http.Error(w, "snapshot directory not configured", http.StatusInternalServerError)
		return
	}
	session.SetSnapshotDir(s.snapshotDir)

	if err := session.SaveSnapshot(); err != nil {
		s.logger.Errorf("Failed to save snapshot: session=%s error=%v", id, err)
		http.Error(w, "failed to save snapshot: "+err.Error(), http.StatusInternalServerError)
		return
	}

	path := session.SnapshotPath()
	s.logger.Debugf("Snapshot saved: session=%s path=%s", id, path)

	response := map[string]string{
		"status": "ok",
		"path":   path,
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(response); err != nil {
		http.Error(w, "cannot encode response: "+err.Error(), http.StatusInternalServerError)
		return
	}
}

// GET /session/{id}/snapshot
// Returns the raw snapshot JSON if it exists
func (s *Server) handleGetSnapshot(w http.ResponseWriter, r *http.Request) {
	id, _ := extractSessionID(r.URL.Path)
	session, exists := s.manager.GetSession(id)
	if !exists {
		http.Error(w, "session not found", http.StatusNotFound)
		return
	}

	if s.snapshotDir == "" {
		http.Error(w, "snapshot directory not configured", http.StatusInternalServerError)
		return
	}
	session.SetSnapshotDir(s.snapshotDir)

	path := session.SnapshotPath()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			http.Error(w, "snapshot not found", http.StatusNotFound)
			return
		}
		http.Error(w, "failed to read snapshot: "+err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// handleExperimentsRoutes handles the experiment catalog endpoints
func (s *Server) handleExperimentsRoutes(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		http.Error(w, "experiment store not configured", http.StatusServiceUnavailable)
		return
	}

	switch {
	case r.URL.Path == "/experiments" && r.Method == http.MethodGet:
		s.handleListExperiments(w, r)
	case r.URL.Path == "/experiments" && r.Method == http.MethodPost:
		s.handleInsertExperiment(w, r)
	case strings.HasPrefix(r.URL.Path, "/experiments/") && r.Method == http.MethodGet:
		s.handleGetExperiment(w, r)
	default:
		http.Error(w, "not found", http.StatusNotFound)
	}
}

// GET /experiments
func (s *Server) handleListExperiments(w http.ResponseWriter, r *http.Request) {
	experiments, err := s.store.ListExperiments(r.Context())
	if err != nil {
		s.logger.Errorf("Failed to list experiments: %v", err)
		http.Error(w, "cannot list experiments: "+err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(experiments); err != nil {
		http.Error(w, "cannot encode: "+err.Error(), http.StatusInternalServerError)
		return
	}
}

// GET /experiments/{id}
func (s *Server) handleGetExperiment(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/experiments/")
	if id == "" {
		http.Error(w, "experiment ID is required", http.StatusBadRequest)
		return
	}

	exp, err := s.store.GetExperiment(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		http.Error(w, "experiment not found", http.StatusNotFound)
		return
	}
	if err != nil {
		s.logger.Errorf("Failed to get experiment: id=%s error=%v", id, err)
		http.Error(w, "cannot get experiment: "+err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(exp); err != nil {
		http.Error(w, "cannot encode: "+err.Error(), http.StatusInternalServerError)
		return
	}
}

// POST /experiments
// Body: store.Experiment JSON
func (s *Server) handleInsertExperiment(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	var exp store.Experiment
	if err := json.NewDecoder(r.Body).Decode(&exp); err != nil {
		http.Error(w, "invalid json: "+err.Error(), http.StatusBadRequest)
		return
	}
	if exp.Title == "" {
		http.Error(w, "experiment title is required", http.StatusBadRequest)
		return
	}

	stored, err := s.store.InsertExperiment(r.Context(), exp)
	if err != nil {
		s.logger.Errorf("Failed to insert experiment: %v", err)
		http.Error(w, "cannot insert experiment: "+err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(stored); err != nil {
		http.Error(w, "cannot encode: "+err.Error(), http.StatusInternalServerError)
		return
	}
}

// handleProgressRoutes handles the user progress endpoints
func (s *Server) handleProgressRoutes(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		http.Error(w, "progress store not configured", http.StatusServiceUnavailable)
		return
	}

	switch r.Method {
	case http.MethodGet:
		s.handleGetProgress(w, r)
	case http.MethodPost:
		s.handleUpsertProgress(w, r)
	default:
		http.Error(w, "not found", http.StatusNotFound)
	}
}

// GET /progress?user_id=...&experiment_id=...
// With experiment_id: one row (404 when absent). Without: every row for the user.
func (s *Server) handleGetProgress(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		http.Error(w, "user_id is required", http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "application/json")

	if expID := r.URL.Query().Get("experiment_id"); expID != "" {
		p, err := s.store.GetProgress(r.Context(), userID, expID)
		if errors.Is(err, store.ErrNotFound) {
			http.Error(w, "progress not found", http.StatusNotFound)
			return
		}
		if err != nil {
			s.logger.Errorf("Failed to get progress: user=%s experiment=%s error=%v", userID, expID, err)
			http.Error(w, "cannot get progress: "+err.Error(), http.StatusInternalServerError)
			return
		}
		if err := json.NewEncoder(w).Encode(p); err != nil {
			http.Error(w, "cannot encode: "+err.Error(), http.StatusInternalServerError)
		}
		return
	}

	rows, err := s.store.ListProgress(r.Context(), userID)
	if err != nil {
		s.logger.Errorf("Failed to list progress: user=%s error=%v", userID, err)
		http.Error(w, "cannot list progress: "+err.Error(), http.StatusInternalServerError)
		return
	}
	if err := json.NewEncoder(w).Encode(rows); err != nil {
		http.Error(w, "cannot encode: "+err.Error(), http.StatusInternalServerError)
	}
}

// POST /progress
// Body: store.UserProgress JSON; last_accessed_at defaults to now
func (s *Server) handleUpsertProgress(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	var p store.UserProgress
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		http.Error(w, "invalid json: "+err.Error(), http.StatusBadRequest)
		return
	}
	if p.UserID == "" || p.ExperimentID == "" {
		http.Error(w, "user_id and experiment_id are required", http.StatusBadRequest)
		return
	}
	if p.ProgressPercentage < 0 || p.ProgressPercentage > 100 {
		http.Error(w, "progress_percentage must be in [0,100]", http.StatusBadRequest)
		return
	}
	if p.LastAccessedAt.IsZero() {
		p.LastAccessedAt = time.Now().UTC()
	}

	if err := s.store.UpsertProgress(r.Context(), p); err != nil {
		s.logger.Errorf("Failed to upsert progress: user=%s experiment=%s error=%v", p.UserID, p.ExperimentID, err)
		http.Error(w, "cannot upsert progress: "+err.Error(), http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("progress saved"))
}

// handleNotifiersRoutes handles notifier management endpoints
func (s *Server) handleNotifiersRoutes(w http.ResponseWriter, r *http.Request) {
	switch {
	case r.URL.Path == "/notifiers" && r.Method == http.MethodGet:
		s.handleListNotifiers(w, r)
	case r.URL.Path == "/notifiers" && r.Method == http.MethodPost:
		s.handleRegisterNotifier(w, r)
	case strings.HasPrefix(r.URL.Path, "/notifiers/") && r.Method == http.MethodDelete:
		s.handleUnregisterNotifier(w, r)
	default:
		http.Error(w, "not found", http.StatusNotFound)
	}
}

// GET /notifiers
// List all registered notifiers
func (s *Server) handleListNotifiers(w http.ResponseWriter, _ *http.Request) {
	notifierIDs := s.notifierMgr.ListNotifiers()

	notifierList := make([]map[string]string, 0, len(notifierIDs))
	for _, id := range notifierIDs {
		notifier, exists := s.notifierMgr.GetNotifier(id)
		if exists {
			notifierList = append(notifierList, map[string]string{
				"id":   id,
				"type": notifier.Type(),
			})
		}
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string]any{"notifiers": notifierList}); err != nil {
		http.Error(w, "cannot encode: "+err.Error(), http.StatusInternalServerError)
		return
	}
}

// POST /notifiers
// Register a new notifier
// Body: { "type": "webhook", "id": "my-webhook", "config": { "url": "http://..." } }
type registerNotifierRequest struct {
	Type   string         `json:"type"`
	ID     string         `json:"id"`
	Config map[string]any `json:"config"`
}

func (s *Server) handleRegisterNotifier(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	var req registerNotifierRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json: "+err.Error(), http.StatusBadRequest)
		return
	}

	if req.ID == "" {
		http.Error(w, "notifier ID is required", http.StatusBadRequest)
		return
	}

	var notifier lab.Notifier

	switch req.Type {
	case "webhook":
		url, ok := req.Config["url"].(string)
		if !ok || url == "" {
			http.Error(w, "webhook URL is required", http.StatusBadRequest)
			return
		}
		wh := labnotifiers.NewWebhookNotifier(req.ID, url)

		// Set custom headers if provided
		if headers, ok := req.Config["headers"].(map[string]any); ok {
			for k, v := range headers {
				if vStr, ok := v.(string); ok {
					wh.SetHeader(k, vStr)
				}
			}
		}

		notifier = wh
	default:
		http.Error(w, "unknown notifier type: "+req.Type, http.StatusBadRequest)
		return
	}

	if err := s.notifierMgr.RegisterNotifier(notifier); err != nil {
		http.Error(w, "cannot register notifier: "+err.Error(), http.StatusBadRequest)
		return
	}

	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("notifier registered"))
}

// DELETE /notifiers/{id}
// Unregister a notifier
func (s *Server) handleUnregisterNotifier(w http.ResponseWriter, r *http.Request) {
	notifierID := strings.TrimPrefix(r.URL.Path, "/notifiers/")
	if notifierID == "" {
		http.Error(w, "notifier ID is required", http.StatusBadRequest)
		return
	}

	if err := s.notifierMgr.UnregisterNotifier(notifierID); err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}

	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("notifier unregistered"))
}
