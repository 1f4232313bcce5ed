// Package httptransport assembles the HTTP surface: the /api routes from
// each domain handler plus health and metrics endpoints.
package httptransport

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"certo/internal/platform/metrics"
	"certo/internal/platform/middleware"
)

// Registrar is implemented by each domain handler.
type Registrar interface {
	Register(r chi.Router)
}

// HealthChecker reports readiness of an infrastructure dependency.
type HealthChecker func(ctx context.Context) error

// Config carries everything the router needs.
type Config struct {
	Logger       *slog.Logger
	Metrics      *metrics.Metrics
	Registry     *prometheus.Registry
	Handlers     []Registrar
	HealthChecks map[string]HealthChecker
	Timeout      time.Duration
}

// NewRouter builds the full HTTP handler. API routes share one middleware
// chain; health and metrics stay outside it so they respond even when
// request logging or timeouts misbehave.
func NewRouter(cfg Config) http.Handler {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}

	root := chi.NewRouter()
	root.Get("/healthz", healthHandler(cfg.HealthChecks))
	root.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(cfg.Registry, promhttp.HandlerOpts{}))

	api := chi.NewRouter()
	api.Use(middleware.RequestID)
	api.Use(middleware.Recovery(cfg.Logger))
	api.Use(middleware.Logger(cfg.Logger))
	api.Use(middleware.Timeout(cfg.Timeout))
	api.Use(middleware.ContentTypeJSON)
	api.Use(middleware.Latency(cfg.Metrics))
	for _, handler := range cfg.Handlers {
		handler.Register(api)
	}
	root.Mount("/api", api)

	return root
}

func healthHandler(checks map[string]HealthChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		for name, check := range checks {
			if err := check(ctx); err != nil {
				http.Error(w, name+": "+err.Error(), http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}
}
