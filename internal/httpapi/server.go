// Package httpapi exposes the engine over HTTP: one endpoint to run a
// search and a small read surface over the persisted search history.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.temporal.io/sdk/temporal"
	"go.uber.org/zap"

	"github.com/scour-ai/scour/internal/db"
	"github.com/scour-ai/scour/internal/metrics"
	"github.com/scour-ai/scour/internal/models"
	"github.com/scour-ai/scour/internal/workflows"
)

// SearchRunner executes one search to completion. The production
// implementation drives a Temporal workflow; tests substitute a fake.
type SearchRunner interface {
	RunSearch(ctx context.Context, req models.SearchRequest) (workflows.SearchOutput, error)
}

// Server handles the engine's HTTP surface.
type Server struct {
	runner SearchRunner
	store  *db.Store // nil when persistence is disabled
	logger *zap.Logger
}

func NewServer(runner SearchRunner, store *db.Store, logger *zap.Logger) *Server {
	return &Server{runner: runner, store: store, logger: logger}
}

// RegisterRoutes registers all routes on the provided mux.
func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/v1/agent-search", s.handleAgentSearch)
	mux.HandleFunc("/v1/searches", s.handleListSearches)
	mux.HandleFunc("/v1/searches/", s.handleGetSearch)
}

func (s *Server) handleAgentSearch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req models.SearchRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		s.logger.Warn("Search request decode error", zap.Error(err))
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	// Reject malformed requests here as well so the caller gets a field
	// level message without a workflow round-trip.
	req.ApplyDefaults()
	if err := req.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	metrics.SearchesStarted.WithLabelValues(
		string(req.SearchStrategy), string(req.QueryStrategy)).Inc()
	start := time.Now()

	out, err := s.runner.RunSearch(r.Context(), req)
	metrics.SearchDuration.WithLabelValues(string(req.SearchStrategy)).
		Observe(time.Since(start).Seconds())
	if err != nil {
		status, errType := classifyError(err)
		metrics.SearchesCompleted.WithLabelValues(string(req.SearchStrategy), "error").Inc()
		s.logger.Error("Search failed",
			zap.String("query", req.Query),
			zap.String("error_type", errType),
			zap.Error(err),
		)
		writeError(w, status, err.Error())
		return
	}
	metrics.SearchesCompleted.WithLabelValues(string(req.SearchStrategy), out.Status).Inc()

	writeJSON(w, http.StatusOK, out)
}

// classifyError maps a workflow failure to an HTTP status using the
// error type attached by the workflow.
func classifyError(err error) (int, string) {
	var appErr *temporal.ApplicationError
	if errors.As(err, &appErr) {
		switch appErr.Type() {
		case workflows.ErrTypeRequestValidation:
			return http.StatusBadRequest, appErr.Type()
		case workflows.ErrTypeBackendUnavailable:
			return http.StatusBadGateway, appErr.Type()
		default:
			return http.StatusInternalServerError, appErr.Type()
		}
	}
	return http.StatusInternalServerError, "internal"
}

func (s *Server) handleListSearches(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if s.store == nil {
		writeError(w, http.StatusNotFound, "search history is not enabled")
		return
	}
	recs, err := s.store.RecentSearches(r.Context(), 20)
	if err != nil {
		s.logger.Error("Failed to list searches", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to list searches")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"searches": recs})
}

func (s *Server) handleGetSearch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if s.store == nil {
		writeError(w, http.StatusNotFound, "search history is not enabled")
		return
	}
	id, err := uuid.Parse(strings.TrimPrefix(r.URL.Path, "/v1/searches/"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid search id")
		return
	}
	rec, err := s.store.GetSearch(r.Context(), id)
	if err != nil {
		s.logger.Error("Failed to load search", zap.String("id", id.String()), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to load search")
		return
	}
	if rec == nil {
		writeError(w, http.StatusNotFound, "search not found")
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
