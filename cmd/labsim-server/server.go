package main

import (
	"time"

	"github.com/chemverse/labsim/internal/lab"
	"github.com/chemverse/labsim/internal/lab/notifiers"
	"github.com/chemverse/labsim/internal/store"
)

// labLoggerAdapter adapts the server's Logger to the lab.Logger interface
type labLoggerAdapter struct {
	logger *Logger
}

func (a *labLoggerAdapter) Debugf(format string, v ...any) {
	a.logger.Debugf(format, v...)
}

func (a *labLoggerAdapter) Infof(format string, v ...any) {
	a.logger.Infof(format, v...)
}

func (a *labLoggerAdapter) Warnf(format string, v ...any) {
	a.logger.Warnf(format, v...)
}

func (a *labLoggerAdapter) Errorf(format string, v ...any) {
	a.logger.Errorf(format, v...)
}

// Server represents the HTTP server for the virtual lab
type Server struct {
	manager     *lab.SessionManager
	notifierMgr *lab.NotificationManager
	wsNotifier  *notifiers.WebSocketNotifier
	store       store.Store
	metrics     *Metrics

	snapshotDir        string
	snapshotEveryTicks int
	tickInterval       time.Duration

	logger *Logger
}

// NewServer creates a new server instance. The store may be nil, in which
// case the catalog/progress endpoints report the store as unavailable.
func NewServer(logger *Logger, st store.Store) *Server {
	labLogger := &labLoggerAdapter{logger: logger}
	manager := lab.NewSessionManagerWithLogger(labLogger)
	notifierMgr := lab.NewNotificationManagerWithLogger(labLogger)
	wsNotifier := notifiers.NewWebSocketNotifier("ws")

	srv := &Server{
		manager:      manager,
		notifierMgr:  notifierMgr,
		wsNotifier:   wsNotifier,
		store:        st,
		metrics:      NewMetrics(manager),
		tickInterval: 16 * time.Millisecond,
		logger:       logger,
	}

	if err := notifierMgr.RegisterNotifier(wsNotifier); err != nil {
		logger.Errorf("Failed to register websocket notifier: %v", err)
	}
	if err := notifierMgr.RegisterNotifier(&metricsNotifier{metrics: srv.metrics}); err != nil {
		logger.Errorf("Failed to register metrics notifier: %v", err)
	}

	return srv
}

// SetSnapshotDir sets the snapshot directory for all sessions
func (s *Server) SetSnapshotDir(dir string) {
	s.snapshotDir = dir
}

// SetSnapshotEveryTicks sets the snapshot frequency for all sessions
func (s *Server) SetSnapshotEveryTicks(ticks int) {
	s.snapshotEveryTicks = ticks
}

// SetTickInterval sets the frame interval used by /start
func (s *Server) SetTickInterval(d time.Duration) {
	if d > 0 {
		s.tickInterval = d
	}
}

// configureSession applies the server-wide notification and snapshot
// settings to a freshly created session.
func (s *Server) configureSession(session *lab.Session) {
	session.SetNotificationManager(s.notifierMgr, s.notifierMgr.ListNotifiers()...)
	if s.snapshotDir != "" {
		session.SetSnapshotDir(s.snapshotDir)
	}
	if s.snapshotEveryTicks >= 0 {
		session.SetSnapshotEveryNTicks(s.snapshotEveryTicks)
	}
}
