package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/example/timeline-engine/internal/metrics"
)

// RouterConfig wires the handlers and optional middleware.
type RouterConfig struct {
	Events *EventHandler
	// Metrics enables /metrics and HTTP instrumentation when non-nil.
	Metrics *metrics.Metrics
	// Auth protects /events when non-nil.
	Auth Authenticator
	// RateLimit throttles /events per client when non-nil.
	RateLimit *RateLimiter
	// Health is probed by /healthz when non-nil.
	Health func(ctx context.Context) error
	Logger *slog.Logger
	// Middleware runs after the built-in stack, outermost first.
	Middleware []func(http.Handler) http.Handler
}

// NewRouter builds the API handler.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(RequestLogger(cfg.Logger))
	r.Use(middleware.Recoverer)
	if cfg.Metrics != nil {
		r.Use(cfg.Metrics.Middleware)
	}
	for _, mw := range cfg.Middleware {
		if mw != nil {
			r.Use(mw)
		}
	}

	r.Get("/healthz", healthHandler(cfg.Health, newResponder(cfg.Logger)))
	if cfg.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", cfg.Metrics.Handler())
	}

	if cfg.Events != nil {
		r.Group(func(r chi.Router) {
			if cfg.RateLimit != nil {
				r.Use(cfg.RateLimit.Middleware())
			}
			if cfg.Auth != nil {
				r.Use(RequireBasicAuth(cfg.Auth, "timeline", cfg.Logger))
			}
			r.Get("/events", cfg.Events.List)
			r.Post("/events", cfg.Events.Create)
			r.Get("/events.ics", cfg.Events.ExportICS)
			r.Patch("/events/{id}", cfg.Events.Update)
			r.Delete("/events/{id}", cfg.Events.Delete)
		})
	}

	return r
}

func healthHandler(check func(ctx context.Context) error, responder responder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if check != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := check(ctx); err != nil {
				responder.writeError(r.Context(), w, http.StatusServiceUnavailable, err)
				return
			}
		}
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}
}
