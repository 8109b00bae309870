package httpserver

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tacedge/gateway/internal/config"
)

// ReadyCheck reports whether a dependency (queue backend, audit sink, ...) is
// currently reachable. A non-nil error is surfaced on /readyz.
type ReadyCheck func(ctx context.Context) error

// Server holds the HTTP server dependencies.
type Server struct {
	Router    *chi.Mux
	APIRouter chi.Router // authenticated /api/v1 sub-router, populated by NewServer
	Logger    *slog.Logger
	Metrics   *prometheus.Registry
	startedAt time.Time
	checks    map[string]ReadyCheck
}

// AuthMiddleware authenticates a request and attaches the caller's identity
// to its context, or responds with an error and stops the chain.
type AuthMiddleware func(http.Handler) http.Handler

// NewServer creates an HTTP server with middleware and health/metrics endpoints.
// Domain handlers should be mounted on APIRouter after calling NewServer.
func NewServer(cfg *config.Config, logger *slog.Logger, metricsReg *prometheus.Registry, authMW AuthMiddleware, checks map[string]ReadyCheck) *Server {
	s := &Server{
		Router:    chi.NewRouter(),
		Logger:    logger,
		Metrics:   metricsReg,
		startedAt: time.Now(),
		checks:    checks,
	}

	s.Router.Use(RequestID)
	s.Router.Use(Logger(logger))
	s.Router.Use(Metrics)
	s.Router.Use(middleware.Recoverer)
	s.Router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSAllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health endpoints (unauthenticated).
	s.Router.Get("/healthz", s.handleHealthz)
	s.Router.Get("/readyz", s.handleReadyz)

	// Prometheus metrics (unauthenticated).
	s.Router.Handle("/metrics", promhttp.HandlerFor(metricsReg, promhttp.HandlerOpts{}))

	// Authenticated API routes. Domain packages mount their handlers on
	// s.APIRouter after construction.
	s.Router.Route("/api/v1", func(r chi.Router) {
		r.Use(authMW)
		s.APIRouter = r
	})

	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.Router.ServeHTTP(w, r)
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	Respond(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleReadyz runs every registered ReadyCheck. The process is ready only if
// all of them succeed.
func (s *Server) handleReadyz(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	results := make(map[string]string, len(s.checks))
	allOK := true
	for name, check := range s.checks {
		if err := check(ctx); err != nil {
			s.Logger.Error("readiness check failed", "check", name, "error", err)
			results[name] = "error"
			allOK = false
			continue
		}
		results[name] = "ok"
	}

	status := http.StatusOK
	overall := "ready"
	if !allOK {
		status = http.StatusServiceUnavailable
		overall = "not_ready"
	}

	Respond(w, status, map[string]any{
		"status": overall,
		"checks": results,
	})
}

// statusResponse is the JSON shape returned by HandleStatus.
type statusResponse struct {
	Status        string `json:"status"`
	UptimeSeconds int64  `json:"uptime_seconds"`
}

// HandleStatus returns basic process health information.
func (s *Server) HandleStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	uptime := time.Since(s.startedAt)

	status := "ok"
	for name, check := range s.checks {
		if err := check(ctx); err != nil {
			s.Logger.Error("status check failed", "check", name, "error", err)
			status = "degraded"
		}
	}

	Respond(w, http.StatusOK, statusResponse{
		Status:        status,
		UptimeSeconds: int64(uptime.Seconds()),
	})
}
