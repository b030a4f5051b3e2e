// Package httpapi exposes the flow engine over a small JSON HTTP API.
package httpapi

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kursio/weft"
	"github.com/kursio/weft/internal/logging"
	"github.com/kursio/weft/pkg/domain"
)

// Server binds a weft.Engine to HTTP routes.
type Server struct {
	engine  *weft.Engine
	logger  *slog.Logger
	metrics *metrics
}

// ServerOption configures the server.
type ServerOption func(*Server)

// WithLogger sets a structured logger.
func WithLogger(logger *slog.Logger) ServerOption {
	return func(s *Server) {
		s.logger = logger
	}
}

// NewHandler creates the HTTP handler for the engine.
func NewHandler(engine *weft.Engine, opts ...ServerOption) http.Handler {
	s := &Server{
		engine:  engine,
		logger:  logging.NewNop(),
		metrics: newMetrics(),
	}
	for _, opt := range opts {
		opt(s)
	}

	r := chi.NewRouter()
	r.Get("/healthz", s.health)
	r.Handle("/metrics", promhttp.HandlerFor(s.metrics.registry, promhttp.HandlerOpts{}))

	r.Route("/v1", func(r chi.Router) {
		r.Get("/graphs", s.listGraphs)
		r.Post("/sessions", s.createSession)
		r.Route("/sessions/{sessionID}", func(r chi.Router) {
			r.Post("/step", s.step)
			r.Get("/", s.getSession)
			r.Delete("/", s.deleteSession)
			r.Get("/analysis", s.analyze)
		})
	})

	return enableCORS(r)
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

type createSessionRequest struct {
	Graph string            `json:"graph"`
	Meta  map[string]string `json:"meta,omitempty"`
}

type createSessionResponse struct {
	SessionID string             `json:"session_id"`
	Result    *domain.StepResult `json:"result"`
}

type stepRequest struct {
	Graph   string `json:"graph"`
	Message string `json:"message"`
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "version": weft.Version})
}

func (s *Server) listGraphs(w http.ResponseWriter, _ *http.Request) {
	names, err := s.engine.Graphs().Names()
	if err != nil {
		s.writeError(w, "graphs", http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"graphs": names})
}

func (s *Server) createSession(w http.ResponseWriter, r *http.Request) {
	var body createSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.writeError(w, "create_session", http.StatusBadRequest, errors.New("invalid request body"))
		return
	}

	start := time.Now()
	sessionID, res, err := s.engine.StartSession(r.Context(), body.Graph, body.Meta)
	if err != nil {
		s.writeError(w, "create_session", statusFor(err), err)
		return
	}

	s.metrics.sessions.Inc()
	s.observeStep(res, start)
	writeJSON(w, http.StatusCreated, createSessionResponse{SessionID: sessionID, Result: res})
}

func (s *Server) step(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	var body stepRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.writeError(w, "step", http.StatusBadRequest, errors.New("invalid request body"))
		return
	}

	start := time.Now()
	res, err := s.engine.Step(r.Context(), body.Graph, sessionID, body.Message)
	if err != nil {
		s.writeError(w, "step", statusFor(err), err)
		return
	}

	s.observeStep(res, start)
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) getSession(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	st, err := s.engine.Sessions().Load(r.Context(), sessionID)
	if err != nil {
		s.writeError(w, "get_session", statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) deleteSession(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	if err := s.engine.EndSession(r.Context(), sessionID); err != nil {
		s.writeError(w, "delete_session", statusFor(err), err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) analyze(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	graphName := r.URL.Query().Get("graph")

	report, err := s.engine.Analyze(r.Context(), graphName, sessionID)
	if err != nil {
		s.writeError(w, "analyze", statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) observeStep(res *domain.StepResult, start time.Time) {
	s.metrics.steps.WithLabelValues(res.Action).Inc()
	s.metrics.stepDuration.Observe(time.Since(start).Seconds())
}

// statusFor maps interpreter errors onto HTTP statuses.
func statusFor(err error) int {
	var nf *domain.NodeNotFoundError
	var gf *domain.GraphFormatError
	switch {
	case errors.Is(err, domain.ErrSessionNotFound):
		return http.StatusNotFound
	case errors.As(err, &nf):
		return http.StatusUnprocessableEntity
	case errors.As(err, &gf):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeError(w http.ResponseWriter, route string, status int, err error) {
	s.metrics.errors.WithLabelValues(route).Inc()
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "route", route, "err", err)
	} else {
		s.logger.Warn("request rejected", "route", route, "status", status, "err", err)
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
