package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/couchcryptid/soil-water-etl/internal/domain"
)

// EvaluationProvider exposes the most recent root-zone evaluation.
type EvaluationProvider interface {
	LatestEvaluation() (domain.Evaluation, []domain.EvaluationRow, bool)
}

// Server exposes health, readiness, metrics, and evaluation HTTP endpoints.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
}

// NewServer creates an HTTP server with /healthz, /readyz, /metrics,
// /v1/rootzone, and /v1/evaluation routes.
func NewServer(addr string, ready sharedobs.ReadinessChecker, evals EvaluationProvider, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		logger: logger,
	}

	mux.HandleFunc("GET /healthz", sharedobs.LivenessHandler())
	mux.HandleFunc("GET /readyz", sharedobs.ReadinessHandler(ready))
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("GET /v1/rootzone", handleRootZone(evals))
	mux.HandleFunc("GET /v1/evaluation", handleEvaluation(evals))

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

// handleRootZone serves the published records of the latest evaluation.
func handleRootZone(evals EvaluationProvider) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		eval, _, ok := evals.LatestEvaluation()
		if !ok {
			writeNoEvaluation(w)
			return
		}
		sharedobs.WriteJSON(w, http.StatusOK, eval)
	}
}

// handleEvaluation serves simulated and observed values side by side.
func handleEvaluation(evals EvaluationProvider) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		eval, rows, ok := evals.LatestEvaluation()
		if !ok {
			writeNoEvaluation(w)
			return
		}
		sharedobs.WriteJSON(w, http.StatusOK, map[string]any{
			"site":         eval.Site,
			"processed_at": eval.ProcessedAt,
			"rows":         rows,
		})
	}
}

func writeNoEvaluation(w http.ResponseWriter) {
	sharedobs.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{
		"status": "unavailable",
		"error":  "no evaluation has completed yet",
	})
}
