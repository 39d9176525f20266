// Package http assembles the service's HTTP surface: platform middleware,
// health and metrics endpoints, and the form engine routes.
package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"formflow/internal/form/handler"
	"formflow/internal/platform/metrics"
	"formflow/internal/platform/middleware"
	"formflow/internal/transport/http/shared"
)

type RouterConfig struct {
	Logger      *slog.Logger
	Metrics     *metrics.Metrics
	FormHandler *handler.Handler
	// ReadyChecks probe the configured backends for /readyz. Keyed by
	// backend name; a failing check marks the process not ready.
	ReadyChecks map[string]func(context.Context) error
}

// NewRouter wires the middleware chain and mounts all routes.
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RequestTime)
	r.Use(middleware.Metadata)
	r.Use(middleware.Recovery(cfg.Logger))
	r.Use(middleware.Logger(cfg.Logger))
	r.Use(middleware.Latency(cfg.Metrics))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/readyz", readyHandler(cfg.ReadyChecks))
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.ContentTypeJSON)
		cfg.FormHandler.Register(r)
	})

	return r
}

// readyHandler probes each backend with a short deadline. Readiness differs
// from liveness: the process can be up while a backend is not.
func readyHandler(checks map[string]func(context.Context) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		status := make(map[string]string, len(checks))
		ready := true
		for name, check := range checks {
			if err := check(ctx); err != nil {
				status[name] = err.Error()
				ready = false
				continue
			}
			status[name] = "ok"
		}
		if !ready {
			shared.WriteJSON(w, http.StatusServiceUnavailable, status)
			return
		}
		shared.WriteJSON(w, http.StatusOK, status)
	}
}
