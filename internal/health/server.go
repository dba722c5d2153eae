// Package health serves liveness, readiness and metrics endpoints for the scheduler daemon.
package health

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/yourusername/signal-backtest/internal/logger"
)

const (
	defaultPort        = "8080"
	defaultMetricsPath = "/metrics"
	checkTimeout       = 3 * time.Second
	shutdownTimeout    = 5 * time.Second
)

var errSchedulerStopped = errors.New("stopped")

// DatabasePinger defines the interface for checking database connectivity.
type DatabasePinger interface {
	Ping(ctx context.Context) error
}

// SchedulerStatus reports the state of the backtest scheduler.
type SchedulerStatus interface {
	IsRunning() bool
	GetNextRun() time.Time
}

// CheckFunc reports a dependency as healthy by returning nil
type CheckFunc func(ctx context.Context) error

type namedCheck struct {
	name string
	run  CheckFunc
}

// HealthResponse is the body of /health and /live.
type HealthResponse struct {
	Status    string `json:"status"`
	Service   string `json:"service"`
	Timestamp string `json:"timestamp,omitempty"`
	Version   string `json:"version,omitempty"`
	Commit    string `json:"commit,omitempty"`
}

// ReadyResponse is the body of /ready. Checks maps each dependency to "ok" or its failure.
type ReadyResponse struct {
	Status   string            `json:"status"`
	Service  string            `json:"service"`
	Checks   map[string]string `json:"checks,omitempty"`
	NextRun  string            `json:"next_run,omitempty"`
	Duration string            `json:"duration,omitempty"`
}

// Config holds the configuration for the health server.
type Config struct {
	ServiceName string
	Version     string
	Commit      string
	// Port falls back to HEALTH_PORT, then 8080
	Port      string
	Logger    *logrus.Logger
	DB        DatabasePinger
	Scheduler SchedulerStatus
	// MetricsHandler is mounted on MetricsPath when set
	MetricsHandler http.Handler
	MetricsPath    string
}

// Server answers health probes for one service.
type Server struct {
	cfg       Config
	logger    *logrus.Entry
	scheduler SchedulerStatus

	mu       sync.RWMutex
	ready    bool
	checks   []namedCheck
	server   *http.Server
	listener net.Listener
}

// NewServer creates a health server with database and scheduler checks for whichever
// of the two are configured.
func NewServer(cfg Config) *Server {
	if cfg.Port == "" {
		cfg.Port = os.Getenv("HEALTH_PORT")
	}
	if cfg.Port == "" {
		cfg.Port = defaultPort
	}
	if cfg.MetricsPath == "" {
		cfg.MetricsPath = defaultMetricsPath
	}

	s := &Server{
		cfg:       cfg,
		logger:    logger.OrDefault(cfg.Logger).WithField("component", "health"),
		scheduler: cfg.Scheduler,
	}
	if cfg.DB != nil {
		s.AddCheck("database", cfg.DB.Ping)
	}
	if cfg.Scheduler != nil {
		s.AddCheck("scheduler", func(context.Context) error {
			if !cfg.Scheduler.IsRunning() {
				return errSchedulerStopped
			}
			return nil
		})
	}
	return s
}

// AddCheck registers a readiness check. Checks run in registration order.
func (s *Server) AddCheck(name string, check CheckFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.checks = append(s.checks, namedCheck{name: name, run: check})
}

// SetReady marks the server as ready to accept traffic.
func (s *Server) SetReady(ready bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ready = ready
}

// IsReady returns whether the server is ready.
func (s *Server) IsReady() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ready
}

// Handler returns the routes served by the health server.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", getOnly(s.handleHealth))
	mux.HandleFunc("/live", getOnly(s.handleLive))
	mux.HandleFunc("/ready", getOnly(s.handleReady))
	if s.cfg.MetricsHandler != nil {
		mux.Handle(s.cfg.MetricsPath, s.cfg.MetricsHandler)
	}
	return mux
}

// Start binds the port and serves in the background until ctx is cancelled. A port
// that cannot be bound is returned as an error.
func (s *Server) Start(ctx context.Context) error {
	listener, err := net.Listen("tcp", ":"+s.cfg.Port)
	if err != nil {
		return fmt.Errorf("listen on port %s: %w", s.cfg.Port, err)
	}
	server := &http.Server{
		Handler:      s.Handler(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	s.mu.Lock()
	s.server, s.listener = server, listener
	s.mu.Unlock()

	s.logger.WithFields(logrus.Fields{
		"addr":    listener.Addr().String(),
		"service": s.cfg.ServiceName,
	}).Info("Health server listening")

	go func() {
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.WithError(err).Error("Health server stopped unexpectedly")
		}
	}()
	go func() {
		<-ctx.Done()
		_ = s.Shutdown()
	}()
	return nil
}

// Addr returns the bound address once Start has succeeded
func (s *Server) Addr() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Shutdown drains open connections. It is safe to call more than once.
func (s *Server) Shutdown() error {
	s.mu.Lock()
	server := s.server
	s.server = nil
	s.mu.Unlock()
	if server == nil {
		return nil
	}

	s.logger.Info("Health server shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return server.Shutdown(ctx)
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

func (s *Server) handleLive(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok", Service: s.cfg.ServiceName})
}

// handleReady fails while the server is not marked ready or any check fails
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	began := time.Now()
	response := ReadyResponse{
		Status:  "ok",
		Service: s.cfg.ServiceName,
		Checks:  map[string]string{"service": "ok"},
	}
	if !s.IsReady() {
		response.Status = "not_ready"
		response.Checks["service"] = "not_ready"
	}

	s.mu.RLock()
	checks := append([]namedCheck(nil), s.checks...)
	s.mu.RUnlock()

	ctx, cancel := context.WithTimeout(r.Context(), checkTimeout)
	defer cancel()
	for _, check := range checks {
		err := check.run(ctx)
		switch {
		case err == nil:
			response.Checks[check.name] = "ok"
		case errors.Is(err, errSchedulerStopped):
			response.Status = "not_ready"
			response.Checks[check.name] = err.Error()
		default:
			response.Status = "not_ready"
			response.Checks[check.name] = "error: " + err.Error()
		}
	}

	if s.scheduler != nil && s.scheduler.IsRunning() {
		if next := s.scheduler.GetNextRun(); !next.IsZero() {
			response.NextRun = next.UTC().Format(time.RFC3339)
		}
	}
	response.Duration = time.Since(began).String()

	status := http.StatusOK
	if response.Status != "ok" {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, response)
}

func getOnly(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			w.Header().Set("Allow", "GET, HEAD")
			http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
			return
		}
		next(w, r)
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
