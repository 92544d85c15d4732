package metrics

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

// newTestMeter returns a meter backed by a manual reader so tests can
// collect recorded values on demand.
func newTestMeter(t *testing.T) (metric.Meter, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })
	return provider.Meter("test"), reader
}

func collect(t *testing.T, reader *sdkmetric.ManualReader) metricdata.ResourceMetrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	return rm
}

func findMetric(rm metricdata.ResourceMetrics, name string) (metricdata.Metrics, bool) {
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name == name {
				return m, true
			}
		}
	}
	return metricdata.Metrics{}, false
}

func TestNewRegistryCreatesAllInstruments(t *testing.T) {
	meter, _ := newTestMeter(t)

	registry, err := NewRegistry(meter)
	require.NoError(t, err)

	assert.NotNil(t, registry.RequestCounter)
	assert.NotNil(t, registry.ResponseTime)
	assert.NotNil(t, registry.OrdersCounter)
	assert.NotNil(t, registry.UserLookups)
	assert.NotNil(t, registry.ActiveRequests)
	assert.NotNil(t, registry.ErrorRate)
}

func TestRegistryRecordsCounterValues(t *testing.T) {
	meter, reader := newTestMeter(t)
	registry, err := NewRegistry(meter)
	require.NoError(t, err)

	ctx := context.Background()
	registry.OrdersCounter.Add(ctx, 3, metric.WithAttributes(
		attribute.String("order_size", "large"),
		attribute.String("currency", "USD"),
	))
	registry.UserLookups.Add(ctx, 1, metric.WithAttributes(
		attribute.String("user_type", "standard"),
	))

	rm := collect(t, reader)

	orders, ok := findMetric(rm, OrdersCounterName)
	require.True(t, ok, "orders counter should be exported")
	sum, ok := orders.Data.(metricdata.Sum[int64])
	require.True(t, ok)
	require.Len(t, sum.DataPoints, 1)
	assert.Equal(t, int64(3), sum.DataPoints[0].Value)

	lookups, ok := findMetric(rm, UserLookupsName)
	require.True(t, ok, "user lookups counter should be exported")
	sum, ok = lookups.Data.(metricdata.Sum[int64])
	require.True(t, ok)
	require.Len(t, sum.DataPoints, 1)
	assert.Equal(t, int64(1), sum.DataPoints[0].Value)
}

func TestRegistryGaugesRecordLatestValue(t *testing.T) {
	meter, reader := newTestMeter(t)
	registry, err := NewRegistry(meter)
	require.NoError(t, err)

	ctx := context.Background()
	registry.ActiveRequests.Record(ctx, 4)
	registry.ActiveRequests.Record(ctx, 2)
	registry.ErrorRate.Record(ctx, 12.5)

	rm := collect(t, reader)

	active, ok := findMetric(rm, ActiveRequestsName)
	require.True(t, ok)
	gauge, ok := active.Data.(metricdata.Gauge[int64])
	require.True(t, ok)
	require.Len(t, gauge.DataPoints, 1)
	assert.Equal(t, int64(2), gauge.DataPoints[0].Value, "gauge should keep the latest value")

	errorRate, ok := findMetric(rm, ErrorRateName)
	require.True(t, ok)
	fgauge, ok := errorRate.Data.(metricdata.Gauge[float64])
	require.True(t, ok)
	require.Len(t, fgauge.DataPoints, 1)
	assert.InDelta(t, 12.5, fgauge.DataPoints[0].Value, 0.0001)
}

func TestRegistryHistogramRecordsDurations(t *testing.T) {
	meter, reader := newTestMeter(t)
	registry, err := NewRegistry(meter)
	require.NoError(t, err)

	ctx := context.Background()
	attrs := metric.WithAttributes(
		attribute.String("method", "GET"),
		attribute.String("endpoint", "/health"),
	)
	registry.ResponseTime.Record(ctx, 0.02, attrs)
	registry.ResponseTime.Record(ctx, 0.05, attrs)

	rm := collect(t, reader)

	duration, ok := findMetric(rm, ResponseTimeName)
	require.True(t, ok)
	hist, ok := duration.Data.(metricdata.Histogram[float64])
	require.True(t, ok)
	require.Len(t, hist.DataPoints, 1)
	assert.Equal(t, uint64(2), hist.DataPoints[0].Count)
	assert.InDelta(t, 0.07, hist.DataPoints[0].Sum, 0.0001)
}

func TestGenericInstrumentConstructors(t *testing.T) {
	meter, reader := newTestMeter(t)

	counter, err := Counter(meter, "jobs_processed_total", "Jobs processed", "{job}")
	require.NoError(t, err)
	hist, err := Histogram(meter, "job_duration_seconds", "Job duration", "s", []float64{0.1, 1, 10})
	require.NoError(t, err)
	gauge, err := Gauge(meter, "queue_depth_current", "Queue depth", "{job}")
	require.NoError(t, err)

	ctx := context.Background()
	counter.Add(ctx, 2)
	hist.Record(ctx, 0.5)
	gauge.Record(ctx, 7)

	rm := collect(t, reader)
	for _, name := range []string{"jobs_processed_total", "job_duration_seconds", "queue_depth_current"} {
		_, ok := findMetric(rm, name)
		assert.True(t, ok, "expected metric %q", name)
	}
}

func TestRuntimeCollectorExportsGoroutines(t *testing.T) {
	meter, reader := newTestMeter(t)

	_, err := NewRuntimeCollector(meter)
	require.NoError(t, err)

	rm := collect(t, reader)

	goroutines, ok := findMetric(rm, "go.goroutines")
	require.True(t, ok, "goroutine gauge should be exported")
	gauge, ok := goroutines.Data.(metricdata.Gauge[int64])
	require.True(t, ok)
	require.Len(t, gauge.DataPoints, 1)
	assert.Positive(t, gauge.DataPoints[0].Value)
}

func TestHostCollectorRegisters(t *testing.T) {
	meter, reader := newTestMeter(t)

	_, err := NewHostCollector(meter, HostCollectorConfig{})
	require.NoError(t, err)

	// Individual host statistics may be unreadable in constrained
	// environments; collection itself must still succeed.
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
}
