package lab

import (
	"fmt"
	"sync"
)

// SessionManager manages multiple lab sessions, each isolated from others
type SessionManager struct {
	mu       sync.RWMutex
	sessions map[SessionID]*Session
	logger   Logger
}

// NewSessionManager creates a new session manager
func NewSessionManager() *SessionManager {
	return NewSessionManagerWithLogger(NewNoOpLogger())
}

// NewSessionManagerWithLogger creates a session manager that injects the
// given logger into every session it creates.
func NewSessionManagerWithLogger(logger Logger) *SessionManager {
	if logger == nil {
		logger = NewNoOpLogger()
	}
	return &SessionManager{
		sessions: make(map[SessionID]*Session),
		logger:   logger,
	}
}

// CreateSession builds a session from the scene config and registers it
// under the given ID. Returns an error if a session with that ID already
// exists or the config is invalid.
func (sm *SessionManager) CreateSession(id SessionID, cfg SceneConfig) (*Session, error) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if _, exists := sm.sessions[id]; exists {
		return nil, fmt.Errorf("session with id %s already exists", id)
	}

	s, err := BuildSessionFromConfig(cfg)
	if err != nil {
		return nil, err
	}
	s.SetID(id)
	s.SetLogger(sm.logger)
	sm.sessions[id] = s
	return s, nil
}

// GetSession retrieves a session by ID
// Returns the session and a boolean indicating if it was found
func (sm *SessionManager) GetSession(id SessionID) (*Session, bool) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	s, exists := sm.sessions[id]
	return s, exists
}

// DeleteSession stops and removes a session by ID
// Returns an error if the session doesn't exist
func (sm *SessionManager) DeleteSession(id SessionID) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	s, exists := sm.sessions[id]
	if !exists {
		return fmt.Errorf("session with id %s does not exist", id)
	}

	s.Stop()
	delete(sm.sessions, id)
	return nil
}

// ListSessions returns a list of all session IDs
func (sm *SessionManager) ListSessions() []SessionID {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	ids := make([]SessionID, 0, len(sm.sessions))
	for id := range sm.sessions {
		ids = append(ids, id)
	}
	return ids
}

// ReplaceScene rebuilds an existing session from a new scene config, keeping
// its ID. The old session is stopped first.
func (sm *SessionManager) ReplaceScene(id SessionID, cfg SceneConfig) (*Session, error) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	old, exists := sm.sessions[id]
	if !exists {
		return nil, fmt.Errorf("session with id %s does not exist", id)
	}
	old.Stop()

	s, err := BuildSessionFromConfig(cfg)
	if err != nil {
		return nil, err
	}
	s.SetID(id)
	s.SetLogger(sm.logger)
	sm.sessions[id] = s
	return s, nil
}
