package dashboard

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/mt5copier/tradecopier/internal/config"
)

const logPollInterval = 500 * time.Millisecond

// Server runs the dashboard's HTTP/WebSocket surface: process control,
// mapping CRUD, and log tail.
type Server struct {
	cfg      config.DashboardConfig
	hub      *Hub
	handlers *Handlers
	proc     *ProcessManager
	follower *follower
	server   *http.Server
	logger   *slog.Logger

	cancel context.CancelFunc
}

// NewServer wires the dashboard server to the engine's config and config
// files. copierArgs are the arguments passed to the copier binary when the
// dashboard starts it.
func NewServer(cfg config.Runtime, copierArgs []string, logger *slog.Logger) *Server {
	log := logger.With("component", "dashboard-server")
	hub := NewHub(log)
	proc := NewProcessManager(cfg.Dashboard.CopierBinary, copierArgs, log)
	handlers := NewHandlers(cfg.MappingFile, cfg.Audit.Path, cfg.Dashboard.AllowedOrigins, proc, hub, log)

	mux := http.NewServeMux()
	mux.HandleFunc("/health", handlers.HandleHealth)
	mux.HandleFunc("/api/mapping", handlers.HandleMapping)
	mux.HandleFunc("/api/log/tail", handlers.HandleLogTail)
	mux.HandleFunc("/api/process/start", handlers.HandleProcessStart)
	mux.HandleFunc("/api/process/stop", handlers.HandleProcessStop)
	mux.HandleFunc("/api/process/status", handlers.HandleProcessStatus)
	mux.HandleFunc("/ws", handlers.HandleWebSocket)

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Dashboard.Port),
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	if lines, err := readLastLines(cfg.Audit.Path, defaultLogTailLines); err != nil {
		log.Warn("failed to seed log-tail replay buffer", "error", err)
	} else {
		hub.Seed(lines)
	}

	follower := newFollower(cfg.Audit.Path, logPollInterval, log, hub.BroadcastLines)

	return &Server{
		cfg:      cfg.Dashboard,
		hub:      hub,
		handlers: handlers,
		proc:     proc,
		follower: follower,
		server:   httpServer,
		logger:   log,
	}
}

// Start runs the hub, the log-tail follower, and the HTTP listener. It
// blocks until the server stops; call Stop from another goroutine to shut
// it down.
func (s *Server) Start() error {
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel

	go s.hub.Run()
	go s.follower.Run(ctx)

	s.logger.Info("dashboard server starting", "addr", s.server.Addr)
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("dashboard server: %w", err)
	}
	return nil
}

// Stop gracefully shuts down the HTTP listener and the log-tail follower.
func (s *Server) Stop() error {
	s.logger.Info("stopping dashboard server")
	if s.cancel != nil {
		s.cancel()
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return s.server.Shutdown(ctx)
}

// ProcessManager exposes the subprocess manager so main() can stop the
// copier on dashboard shutdown.
func (s *Server) ProcessManager() *ProcessManager {
	return s.proc
}
