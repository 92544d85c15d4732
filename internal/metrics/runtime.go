package metrics

import (
	"context"
	"runtime"

	"go.opentelemetry.io/otel/metric"
)

// RuntimeCollector reports Go process state through asynchronous
// instruments: heap usage, garbage collection activity and goroutine
// count. Values are gathered by a meter callback on every export cycle,
// so no manual updates are required after construction.
type RuntimeCollector struct {
	heapAlloc   metric.Int64ObservableGauge
	heapInuse   metric.Int64ObservableGauge
	heapObjects metric.Int64ObservableGauge
	gcCount     metric.Int64ObservableCounter
	gcPauseLast metric.Int64ObservableGauge
	goroutines  metric.Int64ObservableGauge

	lastNumGC uint32
}

// NewRuntimeCollector registers the runtime observables with the provided
// meter and wires the collection callback.
func NewRuntimeCollector(meter metric.Meter) (*RuntimeCollector, error) {
	rc := &RuntimeCollector{}

	var err error
	rc.heapAlloc, err = meter.Int64ObservableGauge(
		"go.memory.heap.alloc",
		metric.WithDescription("Bytes of allocated heap objects"),
		metric.WithUnit("By"),
	)
	if err != nil {
		return nil, err
	}

	rc.heapInuse, err = meter.Int64ObservableGauge(
		"go.memory.heap.inuse",
		metric.WithDescription("Bytes in in-use spans"),
		metric.WithUnit("By"),
	)
	if err != nil {
		return nil, err
	}

	rc.heapObjects, err = meter.Int64ObservableGauge(
		"go.memory.heap.objects",
		metric.WithDescription("Number of allocated heap objects"),
		metric.WithUnit("{object}"),
	)
	if err != nil {
		return nil, err
	}

	rc.gcCount, err = meter.Int64ObservableCounter(
		"go.gc.count",
		metric.WithDescription("Number of completed GC cycles"),
		metric.WithUnit("{gc}"),
	)
	if err != nil {
		return nil, err
	}

	rc.gcPauseLast, err = meter.Int64ObservableGauge(
		"go.gc.pause.last",
		metric.WithDescription("Last GC pause duration in nanoseconds"),
		metric.WithUnit("ns"),
	)
	if err != nil {
		return nil, err
	}

	rc.goroutines, err = meter.Int64ObservableGauge(
		"go.goroutines",
		metric.WithDescription("Number of goroutines that currently exist"),
		metric.WithUnit("{goroutine}"),
	)
	if err != nil {
		return nil, err
	}

	_, err = meter.RegisterCallback(
		func(_ context.Context, o metric.Observer) error {
			rc.collect(o)
			return nil
		},
		rc.heapAlloc,
		rc.heapInuse,
		rc.heapObjects,
		rc.gcCount,
		rc.gcPauseLast,
		rc.goroutines,
	)
	if err != nil {
		return nil, err
	}

	return rc, nil
}

// collect reads the current runtime statistics into the observer.
// Cumulative GC cycles are reported as deltas between observations.
func (rc *RuntimeCollector) collect(o metric.Observer) {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	o.ObserveInt64(rc.heapAlloc, int64(m.HeapAlloc))
	o.ObserveInt64(rc.heapInuse, int64(m.HeapInuse))
	o.ObserveInt64(rc.heapObjects, int64(m.HeapObjects))

	if rc.lastNumGC > 0 {
		o.ObserveInt64(rc.gcCount, int64(m.NumGC-rc.lastNumGC))
	}
	rc.lastNumGC = m.NumGC

	if m.NumGC > 0 {
		idx := (m.NumGC - 1) % 256
		o.ObserveInt64(rc.gcPauseLast, int64(m.PauseNs[idx]))
	}

	o.ObserveInt64(rc.goroutines, int64(runtime.NumGoroutine()))
}

// NumGoroutines returns the number of currently active goroutines.
func NumGoroutines() int {
	return runtime.NumGoroutine()
}

// MemoryUsageMB reports the current heap allocation in megabytes, for
// startup logging and dashboards.
func MemoryUsageMB() float64 {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	return float64(m.HeapAlloc) / 1024 / 1024
}
