package main

import (
	"encoding/json"
	"net/http"
	"os"
	"time"

	"github.com/chemverse/labsim/internal/lab"
	"github.com/chemverse/labsim/internal/store"
	"github.com/chemverse/labsim/internal/store/postgres"
	"github.com/chemverse/labsim/internal/store/sqlite"
)

// openStore opens the configured experiment/progress store. Failures are
// recoverable for the server as a whole: it still serves sessions, and the
// catalog endpoints report the store as unavailable.
func openStore(cfg ServerConfig, logger *Logger) store.Store {
	var (
		st  store.Store
		err error
	)
	switch cfg.StoreDriver {
	case "postgres":
		st, err = postgres.NewStore(cfg.StoreDSN)
	case "sqlite", "":
		st, err = sqlite.NewStore(cfg.StoreDSN)
	default:
		logger.Errorf("Unknown store driver %q, catalog endpoints disabled", cfg.StoreDriver)
		return nil
	}
	if err != nil {
		logger.Errorf("Failed to open %s store: %v (catalog endpoints disabled)", cfg.StoreDriver, err)
		return nil
	}
	logger.Infof("Store opened: driver=%s", cfg.StoreDriver)
	return st
}

// loadInitialScene loads a scene config from a JSON file into a session with
// the given ID.
func loadInitialScene(srv *Server, path string, id lab.SessionID) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	var cfg lab.SceneConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return err
	}

	session, err := srv.manager.CreateSession(id, cfg)
	if err != nil {
		return err
	}
	srv.configureSession(session)
	return nil
}

func main() {
	cfg := loadServerConfig()
	logger := NewLogger(cfg.LogLevel)

	st := openStore(cfg, logger)
	srv := NewServer(logger, st)
	srv.SetSnapshotDir(cfg.SnapshotDir)
	srv.SetSnapshotEveryTicks(cfg.SnapshotEveryTicks)
	srv.SetTickInterval(time.Duration(cfg.TickIntervalMs) * time.Millisecond)

	if cfg.SceneFile != "" {
		if err := loadInitialScene(srv, cfg.SceneFile, "default"); err != nil {
			logger.Fatalf("Failed to load initial scene from %s: %v", cfg.SceneFile, err)
		}
		logger.Infof("Initial scene loaded: file=%s session=default", cfg.SceneFile)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", srv.handleHealth)
	mux.Handle("/metrics", srv.metrics.Handler())
	mux.HandleFunc("/sessions", srv.handleListSessions)
	mux.HandleFunc("/session/", srv.handleSessionRoutes)
	mux.HandleFunc("/experiments", srv.handleExperimentsRoutes)
	mux.HandleFunc("/experiments/", srv.handleExperimentsRoutes)
	mux.HandleFunc("/progress", srv.handleProgressRoutes)
	mux.HandleFunc("/notifiers", srv.handleNotifiersRoutes)
	mux.HandleFunc("/notifiers/", srv.handleNotifiersRoutes)

	logger.Infof("labsim-server listening on %s", cfg.Addr)
	if err := http.ListenAndServe(cfg.Addr, mux); err != nil {
		logger.Fatalf("server error: %v", err)
	}
}
