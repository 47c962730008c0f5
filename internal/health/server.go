// Package health serves readiness and metrics endpoints for the scheduled
// backtest process.
package health

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/yourusername/equity-backtest/internal/metrics"
)

const (
	defaultPort     = "8080"
	pingTimeout     = 3 * time.Second
	shutdownTimeout = 5 * time.Second
)

// DatabasePinger checks the connection used by scheduled runs
type DatabasePinger interface {
	Ping(ctx context.Context) error
}

// HealthResponse is the body of /health
type HealthResponse struct {
	Status    string `json:"status"`
	Service   string `json:"service"`
	Timestamp string `json:"timestamp"`
	Version   string `json:"version,omitempty"`
	Commit    string `json:"commit,omitempty"`
}

// ReadyResponse is the body of /ready
type ReadyResponse struct {
	Status  string            `json:"status"`
	Service string            `json:"service"`
	Checks  map[string]string `json:"checks"`
	LastRun string            `json:"last_run,omitempty"`
}

// runState is the outcome of the latest scheduled backtest
type runState struct {
	finished time.Time
	err      error
}

func (r runState) check() (string, bool) {
	switch {
	case r.finished.IsZero():
		return "pending", false
	case r.err != nil:
		return fmt.Sprintf("error: %v", r.err), false
	default:
		return "ok", true
	}
}

// Server reports whether the latest scheduled run succeeded
type Server struct {
	cfg    Config
	server *http.Server

	mu   sync.RWMutex
	last runState
}

// Config holds the health server settings
type Config struct {
	ServiceName string
	Version     string
	Commit      string
	Port        string
	Logger      *logrus.Logger
	DB          DatabasePinger
}

// NewServer creates a health server; nothing listens until Start
func NewServer(cfg Config) *Server {
	if cfg.Port == "" {
		cfg.Port = defaultPort
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}
	return &Server{cfg: cfg}
}

// RecordRun stores the outcome of the latest backtest run. A failed run
// keeps /ready unavailable until the next success.
func (s *Server) RecordRun(finished time.Time, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.last = runState{finished: finished, err: err}
}

// Handler returns the endpoint router
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/ready", s.handleReady)
	mux.Handle("/metrics", metrics.Handler())
	return mux
}

// Start binds the port and serves until ctx is cancelled. A port that
// cannot be bound is returned as an error.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", ":"+s.cfg.Port)
	if err != nil {
		return fmt.Errorf("failed to bind health port %s: %w", s.cfg.Port, err)
	}
	s.server = &http.Server{
		Handler:      s.Handler(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	log := s.cfg.Logger.WithFields(logrus.Fields{
		"port":    s.cfg.Port,
		"service": s.cfg.ServiceName,
	})
	log.Info("Health server listening")

	go func() {
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Error("Health server stopped")
		}
	}()
	go func() {
		<-ctx.Done()
		_ = s.Shutdown()
	}()
	return nil
}

// Shutdown stops the server, waiting briefly for open requests
func (s *Server) Shutdown() error {
	if s.server == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return s.server.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:    "ok",
		Service:   s.cfg.ServiceName,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Version:   s.cfg.Version,
		Commit:    s.cfg.Commit,
	})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	last := s.last
	s.mu.RUnlock()

	resp := ReadyResponse{Service: s.cfg.ServiceName, Checks: map[string]string{}}
	status, ready := last.check()
	resp.Checks["last_run"] = status
	if !last.finished.IsZero() {
		resp.LastRun = last.finished.UTC().Format(time.RFC3339)
	}

	if s.cfg.DB != nil {
		ctx, cancel := context.WithTimeout(r.Context(), pingTimeout)
		defer cancel()
		if err := s.cfg.DB.Ping(ctx); err != nil {
			ready = false
			resp.Checks["database"] = fmt.Sprintf("error: %v", err)
		} else {
			resp.Checks["database"] = "ok"
		}
	}

	code := http.StatusOK
	resp.Status = "ok"
	if !ready {
		code = http.StatusServiceUnavailable
		resp.Status = "not_ready"
	}
	writeJSON(w, code, resp)
}

func writeJSON(w http.ResponseWriter, code int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(body)
}
