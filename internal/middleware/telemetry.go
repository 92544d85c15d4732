// Package middleware contains the request telemetry middleware that ties
// the span, metric and log pipelines to every inbound HTTP request.
package middleware

import (
	"context"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/gath-stack/otelapp/internal/metrics"
)

// RequestTelemetry instruments every request with a server span, the
// request counter, the duration histogram and the running error-rate
// computation.
//
// It owns the process-wide request counters as atomic fields rather than
// package globals, so concurrent requests never lose updates and a test
// can construct an isolated instance.
type RequestTelemetry struct {
	tracer   trace.Tracer
	registry *metrics.Registry
	log      *zap.Logger

	totalRequests  atomic.Int64
	totalErrors    atomic.Int64
	activeRequests atomic.Int64
}

// NewRequestTelemetry creates the middleware state. One instance serves
// the whole router; counters start at zero and reset only on restart.
func NewRequestTelemetry(tracer trace.Tracer, registry *metrics.Registry, log *zap.Logger) *RequestTelemetry {
	return &RequestTelemetry{
		tracer:   tracer,
		registry: registry,
		log:      log,
	}
}

// Handler returns the chi-compatible middleware.
//
// Post-processing runs in a deferred block so the active-request
// decrement, metric recording and span closure happen exactly once on
// every exit path, including handler panics. Panics are re-raised
// unchanged after being observed; an outer recoverer turns them into 500
// responses.
func (rt *RequestTelemetry) Handler() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			active := rt.activeRequests.Add(1)
			rt.totalRequests.Add(1)

			ctx, span := rt.tracer.Start(r.Context(), "http_request",
				trace.WithSpanKind(trace.SpanKindServer),
				trace.WithAttributes(
					attribute.String("http.method", r.Method),
					attribute.String("http.url", r.URL.String()),
				),
			)
			rt.registry.ActiveRequests.Record(ctx, active)

			rt.log.Debug("Request started",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path))

			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)

			defer func() {
				rec := recover()

				status := ww.Status()
				if rec != nil {
					status = http.StatusInternalServerError
				} else if status == 0 {
					// Handler wrote a body without an explicit WriteHeader.
					status = http.StatusOK
				}

				rt.finish(ctx, span, r, status, time.Since(start))

				if rec != nil {
					panic(rec)
				}
			}()

			next.ServeHTTP(ww, r.WithContext(ctx))
		})
	}
}

// finish records the response metrics, updates the error rate and closes
// the span. Called exactly once per request.
func (rt *RequestTelemetry) finish(ctx context.Context, span trace.Span, r *http.Request, status int, duration time.Duration) {
	active := rt.activeRequests.Add(-1)
	rt.registry.ActiveRequests.Record(ctx, active)

	endpoint := routePattern(r)

	rt.registry.RequestCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("method", r.Method),
		attribute.String("endpoint", endpoint),
		attribute.String("status_code", strconv.Itoa(status)),
	))
	rt.registry.ResponseTime.Record(ctx, duration.Seconds(), metric.WithAttributes(
		attribute.String("method", r.Method),
		attribute.String("endpoint", endpoint),
	))

	if status >= 400 {
		rt.totalErrors.Add(1)
		rt.log.Error("Request failed",
			zap.String("method", r.Method),
			zap.String("endpoint", endpoint),
			zap.Int("status", status))
	}
	rt.registry.ErrorRate.Record(ctx, rt.ErrorRatePercent())

	span.SetAttributes(
		attribute.Int("http.status_code", status),
		attribute.Float64("http.response_time_ms", float64(duration.Microseconds())/1000),
	)
	if status >= 400 {
		span.SetStatus(codes.Error, http.StatusText(status))
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()

	rt.log.Info("Request completed",
		zap.String("method", r.Method),
		zap.String("endpoint", endpoint),
		zap.Int("status", status),
		zap.Duration("duration", duration))
}

// TotalRequests returns the number of requests observed since start.
func (rt *RequestTelemetry) TotalRequests() int64 {
	return rt.totalRequests.Load()
}

// TotalErrors returns the number of responses with status >= 400.
func (rt *RequestTelemetry) TotalErrors() int64 {
	return rt.totalErrors.Load()
}

// ActiveRequests returns the number of requests currently in flight.
func (rt *RequestTelemetry) ActiveRequests() int64 {
	return rt.activeRequests.Load()
}

// ErrorRatePercent returns totalErrors / totalRequests * 100, or 0 when
// no requests have been observed.
func (rt *RequestTelemetry) ErrorRatePercent() float64 {
	total := rt.totalRequests.Load()
	if total == 0 {
		return 0
	}
	return float64(rt.totalErrors.Load()) / float64(total) * 100
}

// routePattern extracts the chi route template (e.g. "/users/{id}") so
// metric labels stay low-cardinality. Falls back to the raw path for
// unrouted requests.
func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if pattern := rctx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return r.URL.Path
}
