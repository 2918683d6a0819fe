package api

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/selivandex/news-pulse/internal/adapters/config"
	"github.com/selivandex/news-pulse/internal/dashboard"
	"github.com/selivandex/news-pulse/internal/explain"
	"github.com/selivandex/news-pulse/pkg/logger"
	"github.com/selivandex/news-pulse/pkg/models"
)

// Explainer is the on-demand explanation entry point
type Explainer interface {
	Explain(ctx context.Context, callerID string, req explain.Request) (*models.Explanation, error)
}

// Dashboard serves the read side
type Dashboard interface {
	ListArticles(ctx context.Context, category, cursor string, limit int) (*dashboard.Page, error)
	TopTopics(ctx context.Context, limit int) ([]models.TopicStat, error)
	IPOHeat(ctx context.Context) (*models.IPOHeat, error)
	MarketPulse(ctx context.Context) (*models.MarketPulse, error)
}

// Server is the public HTTP API
type Server struct {
	server    *http.Server
	auth      *Authenticator
	explainer Explainer
	dashboard Dashboard
	hub       *Hub
}

// NewServer creates new API server
func NewServer(cfg *config.APIConfig, explainer Explainer, dash Dashboard, hub *Hub) *Server {
	s := &Server{
		auth:      NewAuthenticator(cfg.Tokens),
		explainer: explainer,
		dashboard: dash,
		hub:       hub,
	}

	s.server = &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       120 * time.Second,
	}

	return s
}

// Handler returns the API routes
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/explain", s.handleExplain)
	mux.HandleFunc("GET /api/articles", s.handleArticles)
	mux.HandleFunc("GET /api/topics", s.handleTopics)
	mux.HandleFunc("GET /api/ipo-heat", s.handleIPOHeat)
	mux.HandleFunc("GET /api/pulse", s.handlePulse)
	if s.hub != nil {
		mux.Handle("GET /api/stream", s.hub)
	}

	return s.auth.Middleware(mux)
}

// Start starts the API server
func (s *Server) Start() error {
	logger.Info("api server starting", zap.String("addr", s.server.Addr))

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Stop gracefully stops the server and disconnects stream clients
func (s *Server) Stop(ctx context.Context) error {
	logger.Info("stopping api server...")
	if s.hub != nil {
		s.hub.Close()
	}
	return s.server.Shutdown(ctx)
}
