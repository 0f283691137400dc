package lab

import "testing"

func TestSessionManager_CreateGetDelete(t *testing.T) {
	sm := NewSessionManager()

	s, err := sm.CreateSession("sess-1", benchScene())
	if err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}
	if s.ID() != "sess-1" {
		t.Errorf("Expected session ID sess-1, got %s", s.ID())
	}

	if _, err := sm.CreateSession("sess-1", benchScene()); err == nil {
		t.Error("Expected duplicate session ID to be rejected")
	}

	got, ok := sm.GetSession("sess-1")
	if !ok || got != s {
		t.Error("Expected to retrieve created session")
	}
	if _, ok := sm.GetSession("missing"); ok {
		t.Error("Expected unknown session to be absent")
	}

	if err := sm.DeleteSession("sess-1"); err != nil {
		t.Fatalf("DeleteSession failed: %v", err)
	}
	if _, ok := sm.GetSession("sess-1"); ok {
		t.Error("Expected session gone after delete")
	}
	if err := sm.DeleteSession("sess-1"); err == nil {
		t.Error("Expected delete of unknown session to fail")
	}
}

func TestSessionManager_CreateInvalidScene(t *testing.T) {
	sm := NewSessionManager()

	cfg := benchScene()
	cfg.Name = ""
	if _, err := sm.CreateSession("sess-1", cfg); err == nil {
		t.Error("Expected invalid scene to be rejected")
	}
	if len(sm.ListSessions()) != 0 {
		t.Error("Expected no session registered after failure")
	}
}

func TestSessionManager_ListSessions(t *testing.T) {
	sm := NewSessionManager()

	if len(sm.ListSessions()) != 0 {
		t.Error("Expected empty manager to list no sessions")
	}

	_, _ = sm.CreateSession("a", benchScene())
	_, _ = sm.CreateSession("b", benchScene())

	ids := sm.ListSessions()
	if len(ids) != 2 {
		t.Errorf("Expected 2 sessions, got %d", len(ids))
	}
}

func TestSessionManager_ReplaceScene(t *testing.T) {
	sm := NewSessionManager()

	old, err := sm.CreateSession("sess-1", benchScene())
	if err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}

	cfg := benchScene()
	cfg.Name = "bench-v2"
	replaced, err := sm.ReplaceScene("sess-1", cfg)
	if err != nil {
		t.Fatalf("ReplaceScene failed: %v", err)
	}
	if replaced == old {
		t.Error("Expected a fresh session instance")
	}
	if replaced.ID() != "sess-1" {
		t.Errorf("Expected ID preserved, got %s", replaced.ID())
	}
	if replaced.State().Name != "bench-v2" {
		t.Errorf("Expected new scene name, got %s", replaced.State().Name)
	}

	if _, err := sm.ReplaceScene("missing", cfg); err == nil {
		t.Error("Expected replace of unknown session to fail")
	}
}
