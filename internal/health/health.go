package health

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/selivandex/news-pulse/pkg/logger"
	"github.com/selivandex/news-pulse/pkg/models"
)

const checkTimeout = 2 * time.Second

// Checker is a dependency the readiness probe pings
type Checker interface {
	Name() string
	Health(ctx context.Context) error
}

// Server provides health check HTTP endpoints for K8s
type Server struct {
	server    *http.Server
	checkers  []Checker
	lastRun   *models.RunReport
	startTime time.Time
	mu        sync.RWMutex
	ready     bool
}

// HealthStatus represents system health
type HealthStatus struct {
	Status    string            `json:"status"`
	Timestamp string            `json:"timestamp"`
	Uptime    string            `json:"uptime"`
	Checks    map[string]string `json:"checks,omitempty"`
}

// ReadinessStatus represents system readiness
type ReadinessStatus struct {
	Ready     bool              `json:"ready"`
	Timestamp string            `json:"timestamp"`
	Checks    map[string]string `json:"checks"`
	LastRun   *LastRun          `json:"lastRun,omitempty"`
}

// LastRun describes the most recent committed ingestion run
type LastRun struct {
	RunID    string `json:"runId"`
	At       string `json:"at"`
	Articles int    `json:"articles"`
}

// NewServer creates new health check server
func NewServer(port string, checkers ...Checker) *Server {
	s := &Server{
		checkers:  checkers,
		startTime: time.Now(),
	}

	s.server = &http.Server{
		Addr:         ":" + port,
		Handler:      s.Handler(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	return s
}

// Handler returns the probe routes
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)    // Liveness probe
	mux.HandleFunc("/ready", s.handleReadiness)  // Readiness probe
	mux.HandleFunc("/healthz", s.handleHealth)   // Alias
	mux.HandleFunc("/readyz", s.handleReadiness) // Alias
	return mux
}

// Start starts the health check server
func (s *Server) Start() error {
	logger.Info("health check server starting",
		zap.String("addr", s.server.Addr),
	)

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}

	return nil
}

// Stop gracefully stops the server
func (s *Server) Stop(ctx context.Context) error {
	logger.Info("stopping health check server...")
	return s.server.Shutdown(ctx)
}

// SetReady marks the service as ready
func (s *Server) SetReady(ready bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ready = ready

	if ready {
		logger.Info("✅ service marked as READY")
	} else {
		logger.Warn("⚠️ service marked as NOT READY")
	}
}

// OnRunCommitted implements workers.RunObserver
func (s *Server) OnRunCommitted(_ context.Context, report *models.RunReport) error {
	s.mu.Lock()
	s.lastRun = report
	s.mu.Unlock()
	return nil
}

// handleHealth handles liveness probe - /health
// Returns 200 if process is alive (even if dependencies are down)
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := HealthStatus{
		Status:    "healthy",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Uptime:    time.Since(s.startTime).Round(time.Second).String(),
	}

	if r.URL.Query().Get("verbose") == "true" {
		status.Checks, _ = s.runChecks(r.Context())
	}

	writeJSON(w, http.StatusOK, status)
}

// handleReadiness handles readiness probe - /ready
// Returns 200 only if startup is complete and every dependency is healthy
func (s *Server) handleReadiness(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	ready := s.ready
	lastRun := s.lastRun
	s.mu.RUnlock()

	checks, allHealthy := s.runChecks(r.Context())

	status := ReadinessStatus{
		Ready:     ready && allHealthy,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Checks:    checks,
	}
	if lastRun != nil {
		status.LastRun = &LastRun{
			RunID:    lastRun.RunID,
			At:       lastRun.StartedAt.UTC().Format(time.RFC3339),
			Articles: lastRun.Enriched,
		}
	}

	code := http.StatusOK
	if !status.Ready {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, status)
}

func (s *Server) runChecks(ctx context.Context) (map[string]string, bool) {
	ctx, cancel := context.WithTimeout(ctx, checkTimeout)
	defer cancel()

	checks := make(map[string]string, len(s.checkers))
	allHealthy := true
	for _, c := range s.checkers {
		if err := c.Health(ctx); err != nil {
			checks[c.Name()] = "unhealthy: " + err.Error()
			allHealthy = false
			continue
		}
		checks[c.Name()] = "healthy"
	}
	return checks, allHealthy
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}
