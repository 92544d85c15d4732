package metrics

import (
	"context"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"
	"go.opentelemetry.io/otel/metric"
)

// HostCollector reports host-level metrics (CPU, memory, disk, uptime)
// through asynchronous instruments. It complements RuntimeCollector with
// a view of the machine the demo service runs on.
//
// Failures to read an individual statistic skip that observation for the
// cycle instead of failing the whole callback; a container without access
// to host counters still exports the rest.
type HostCollector struct {
	cpuUsagePercent metric.Float64ObservableGauge
	memUsedPercent  metric.Float64ObservableGauge
	memAvailable    metric.Int64ObservableGauge
	diskUsedPercent metric.Float64ObservableGauge
	diskFreeBytes   metric.Int64ObservableGauge
	uptimeSeconds   metric.Int64ObservableGauge

	diskPath string
}

// HostCollectorConfig configures host metric collection.
//
// DiskPath is the mount point monitored for disk usage (default: "/").
type HostCollectorConfig struct {
	DiskPath string
}

// NewHostCollector registers the host observables with the provided meter
// and wires the collection callback.
func NewHostCollector(meter metric.Meter, cfg HostCollectorConfig) (*HostCollector, error) {
	if cfg.DiskPath == "" {
		cfg.DiskPath = "/"
	}

	hc := &HostCollector{diskPath: cfg.DiskPath}

	var err error
	hc.cpuUsagePercent, err = meter.Float64ObservableGauge(
		"system.cpu.usage",
		metric.WithDescription("Total CPU usage percentage"),
		metric.WithUnit("%"),
	)
	if err != nil {
		return nil, err
	}

	hc.memUsedPercent, err = meter.Float64ObservableGauge(
		"system.memory.used_percent",
		metric.WithDescription("Used memory percentage"),
		metric.WithUnit("%"),
	)
	if err != nil {
		return nil, err
	}

	hc.memAvailable, err = meter.Int64ObservableGauge(
		"system.memory.available",
		metric.WithDescription("Memory available for allocation"),
		metric.WithUnit("By"),
	)
	if err != nil {
		return nil, err
	}

	hc.diskUsedPercent, err = meter.Float64ObservableGauge(
		"system.disk.used_percent",
		metric.WithDescription("Disk usage percentage for the monitored path"),
		metric.WithUnit("%"),
	)
	if err != nil {
		return nil, err
	}

	hc.diskFreeBytes, err = meter.Int64ObservableGauge(
		"system.disk.free",
		metric.WithDescription("Free disk space for the monitored path"),
		metric.WithUnit("By"),
	)
	if err != nil {
		return nil, err
	}

	hc.uptimeSeconds, err = meter.Int64ObservableGauge(
		"system.uptime",
		metric.WithDescription("Host uptime in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	_, err = meter.RegisterCallback(
		func(_ context.Context, o metric.Observer) error {
			hc.collect(o)
			return nil
		},
		hc.cpuUsagePercent,
		hc.memUsedPercent,
		hc.memAvailable,
		hc.diskUsedPercent,
		hc.diskFreeBytes,
		hc.uptimeSeconds,
	)
	if err != nil {
		return nil, err
	}

	return hc, nil
}

// collect gathers host statistics into the observer. Each source is read
// independently; an unreadable source is skipped for this cycle.
func (hc *HostCollector) collect(o metric.Observer) {
	if percents, err := cpu.Percent(0, false); err == nil && len(percents) > 0 {
		o.ObserveFloat64(hc.cpuUsagePercent, percents[0])
	}

	if vm, err := mem.VirtualMemory(); err == nil {
		o.ObserveFloat64(hc.memUsedPercent, vm.UsedPercent)
		o.ObserveInt64(hc.memAvailable, int64(vm.Available))
	}

	if usage, err := disk.Usage(hc.diskPath); err == nil {
		o.ObserveFloat64(hc.diskUsedPercent, usage.UsedPercent)
		o.ObserveInt64(hc.diskFreeBytes, int64(usage.Free))
	}

	if uptime, err := host.Uptime(); err == nil {
		o.ObserveInt64(hc.uptimeSeconds, int64(uptime))
	}
}
