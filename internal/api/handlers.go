package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/selivandex/news-pulse/internal/dashboard"
	"github.com/selivandex/news-pulse/internal/explain"
	"github.com/selivandex/news-pulse/pkg/logger"
)

const maxExplainBody = 64 << 10

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func (s *Server) handleExplain(w http.ResponseWriter, r *http.Request) {
	caller := CallerFrom(r.Context())
	if caller == "" {
		writeError(w, http.StatusUnauthorized, string(explain.Unauthenticated), "authentication required")
		return
	}

	var req explain.Request
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxExplainBody)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, string(explain.InvalidArgument), "malformed request body")
		return
	}

	explanation, err := s.explainer.Explain(r.Context(), caller, req)
	if err != nil {
		writeExplainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, explanation)
}

func writeExplainError(w http.ResponseWriter, err error) {
	kind := explain.KindOf(err)

	message := "explanation is unavailable, try again later"
	var e *explain.Error
	if errors.As(err, &e) && kind != explain.Internal {
		message = e.Message
	}

	switch kind {
	case explain.Unauthenticated:
		writeError(w, http.StatusUnauthorized, string(kind), message)
	case explain.InvalidArgument:
		writeError(w, http.StatusBadRequest, string(kind), message)
	default:
		writeError(w, http.StatusInternalServerError, string(explain.Internal), message)
	}
}

func (s *Server) handleArticles(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, err := intParam(q.Get("limit"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_argument", "limit must be a number")
		return
	}

	page, err := s.dashboard.ListArticles(r.Context(), q.Get("category"), q.Get("cursor"), limit)
	if errors.Is(err, dashboard.ErrInvalidCursor) {
		writeError(w, http.StatusBadRequest, "invalid_argument", err.Error())
		return
	}
	if err != nil {
		internalError(w, "list articles", err)
		return
	}

	writeJSON(w, http.StatusOK, page)
}

func (s *Server) handleTopics(w http.ResponseWriter, r *http.Request) {
	limit, err := intParam(r.URL.Query().Get("limit"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_argument", "limit must be a number")
		return
	}

	topics, err := s.dashboard.TopTopics(r.Context(), limit)
	if err != nil {
		internalError(w, "top topics", err)
		return
	}

	writeJSON(w, http.StatusOK, topics)
}

func (s *Server) handleIPOHeat(w http.ResponseWriter, r *http.Request) {
	heat, err := s.dashboard.IPOHeat(r.Context())
	if err != nil {
		internalError(w, "ipo heat", err)
		return
	}

	writeJSON(w, http.StatusOK, heat)
}

func (s *Server) handlePulse(w http.ResponseWriter, r *http.Request) {
	pulse, err := s.dashboard.MarketPulse(r.Context())
	if errors.Is(err, dashboard.ErrNoPulse) {
		writeError(w, http.StatusNotFound, "not_found", err.Error())
		return
	}
	if err != nil {
		internalError(w, "market pulse", err)
		return
	}

	writeJSON(w, http.StatusOK, pulse)
}

func intParam(v string) (int, error) {
	if v == "" {
		return 0, nil
	}
	return strconv.Atoi(v)
}

func internalError(w http.ResponseWriter, op string, err error) {
	logger.Error("api request failed", zap.String("op", op), zap.Error(err))
	writeError(w, http.StatusInternalServerError, string(explain.Internal), "internal error")
}

func writeError(w http.ResponseWriter, code int, kind, message string) {
	writeJSON(w, code, errorResponse{Error: kind, Message: message})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Debug("failed to write response", zap.Error(err))
	}
}
