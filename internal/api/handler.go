// Package api implements the demo endpoints of the service.
//
// Every handler is a self-contained illustration of one instrumentation
// pattern: manual span creation, nested spans with events, intentional
// errors, randomized outcomes and artificial latency. None of them carry
// state beyond the shared instrument registry.
package api

import (
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/gath-stack/otelapp/internal/config"
	"github.com/gath-stack/otelapp/internal/metrics"
	"github.com/gath-stack/otelapp/internal/middleware"
)

// Handler holds the shared dependencies of all demo endpoints.
type Handler struct {
	cfg      config.Config
	tracer   trace.Tracer
	registry *metrics.Registry
	log      *zap.Logger
}

// NewHandler wires the endpoint dependencies.
func NewHandler(cfg config.Config, tracer trace.Tracer, registry *metrics.Registry, log *zap.Logger) *Handler {
	return &Handler{
		cfg:      cfg,
		tracer:   tracer,
		registry: registry,
		log:      log,
	}
}

// Router builds the chi router with the full middleware chain.
//
// The recoverer sits outside the telemetry middleware so a handler panic
// is first observed (recorded as a 500 with a closed span) and then
// converted into an error response.
func (h *Handler) Router(rt *middleware.RequestTelemetry) *chi.Mux {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(rt.Handler())

	r.Get("/", h.Home)
	r.Get("/users/{id}", h.GetUser)
	r.Get("/config", h.GetConfig)
	r.Post("/orders", h.CreateOrder)
	r.Get("/health", h.Health)
	r.Get("/metrics-demo", h.MetricsDemo)
	r.Get("/slow", h.Slow)
	r.Get("/error", h.Error)
	r.Get("/random", h.Random)

	return r
}
