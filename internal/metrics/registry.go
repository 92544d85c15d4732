// Package metrics declares the metric instruments of the demo service and
// the automatic runtime and host collectors that share its meter.
package metrics

import (
	"fmt"

	"go.opentelemetry.io/otel/metric"
)

// Instrument names exported by the registry. They follow the flat
// Prometheus-style naming used by the downstream dashboards rather than
// OTEL dotted semantic conventions.
const (
	RequestCounterName = "http_requests_custom_total"
	ResponseTimeName   = "http_request_duration_seconds"
	OrdersCounterName  = "orders_created_total"
	UserLookupsName    = "user_lookups_total"
	ActiveRequestsName = "active_requests_current"
	ErrorRateName      = "error_rate_current"
)

// Registry holds the fixed set of instruments of the demo service.
//
// It is created exactly once per process from the application meter and
// shared read-only by the middleware and all handlers. The instrument
// handles themselves are safe for concurrent use.
type Registry struct {
	// RequestCounter counts every completed HTTP request, tagged with
	// method, endpoint and status code.
	RequestCounter metric.Int64Counter

	// ResponseTime records request duration in seconds, tagged with
	// method and endpoint.
	ResponseTime metric.Float64Histogram

	// OrdersCounter counts created orders, tagged with order size and
	// currency.
	OrdersCounter metric.Int64Counter

	// UserLookups counts user lookups, tagged with user type.
	UserLookups metric.Int64Counter

	// ActiveRequests tracks the number of requests currently in flight.
	ActiveRequests metric.Int64Gauge

	// ErrorRate tracks the running error percentage across all requests.
	ErrorRate metric.Float64Gauge
}

// NewRegistry creates every instrument against the provided meter.
//
// Each instrument is registered once; a duplicate name with conflicting
// options is a configuration error reported by the meter, not a runtime
// condition, so the error return is fatal at startup.
func NewRegistry(meter metric.Meter) (*Registry, error) {
	r := &Registry{}

	var err error
	r.RequestCounter, err = meter.Int64Counter(
		RequestCounterName,
		metric.WithDescription("Total HTTP requests (custom counter)"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create request counter: %w", err)
	}

	r.ResponseTime, err = meter.Float64Histogram(
		ResponseTimeName,
		metric.WithDescription("HTTP request duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create response time histogram: %w", err)
	}

	r.OrdersCounter, err = meter.Int64Counter(
		OrdersCounterName,
		metric.WithDescription("Total orders created"),
		metric.WithUnit("{order}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create orders counter: %w", err)
	}

	r.UserLookups, err = meter.Int64Counter(
		UserLookupsName,
		metric.WithDescription("Total user lookups performed"),
		metric.WithUnit("{lookup}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create user lookups counter: %w", err)
	}

	r.ActiveRequests, err = meter.Int64Gauge(
		ActiveRequestsName,
		metric.WithDescription("Currently active HTTP requests"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create active requests gauge: %w", err)
	}

	r.ErrorRate, err = meter.Float64Gauge(
		ErrorRateName,
		metric.WithDescription("Current error rate percentage"),
		metric.WithUnit("%"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create error rate gauge: %w", err)
	}

	return r, nil
}

// Counter creates a generic Int64 counter on the given meter.
//
// Useful for one-off instruments that do not belong in the fixed registry.
func Counter(meter metric.Meter, name, description, unit string) (metric.Int64Counter, error) {
	return meter.Int64Counter(
		name,
		metric.WithDescription(description),
		metric.WithUnit(unit),
	)
}

// Histogram creates a generic Float64 histogram on the given meter,
// optionally with explicit bucket boundaries.
func Histogram(meter metric.Meter, name, description, unit string, buckets []float64) (metric.Float64Histogram, error) {
	opts := []metric.Float64HistogramOption{
		metric.WithDescription(description),
		metric.WithUnit(unit),
	}
	if len(buckets) > 0 {
		opts = append(opts, metric.WithExplicitBucketBoundaries(buckets...))
	}
	return meter.Float64Histogram(name, opts...)
}

// Gauge creates a generic Float64 gauge on the given meter.
func Gauge(meter metric.Meter, name, description, unit string) (metric.Float64Gauge, error) {
	return meter.Float64Gauge(
		name,
		metric.WithDescription(description),
		metric.WithUnit(unit),
	)
}
