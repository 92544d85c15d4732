// Package otelapp provides the telemetry bootstrap for the demo service.
//
// It constructs a service resource and three independent OTLP export
// pipelines (traces, metrics, logs) against a single collector endpoint,
// each with its own batching cadence. The resulting Telemetry value is
// passed by reference to the middleware and handlers; no process-global
// provider state is mutated, so a second accidental initialization cannot
// silently overwrite the first.
//
// # Quick Start
//
//	cfg := config.MustLoad()
//	tel, err := otelapp.New(ctx, cfg, log)
//	if err != nil {
//	    log.Fatal("failed to init telemetry", zap.Error(err))
//	}
//	defer func() {
//	    if err := tel.Shutdown(context.Background()); err != nil {
//	        log.Error("telemetry shutdown failed", zap.Error(err))
//	    }
//	}()
//
//	tracer := tel.Tracer()
//	meter := tel.Meter()
//
// Export failures (collector unreachable, transient network errors) are
// absorbed by the batching layers of each pipeline. They never propagate
// to the request path; the only user-visible effect is missing telemetry.
package otelapp

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.17.0"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/gath-stack/otelapp/internal/config"
	"github.com/gath-stack/otelapp/internal/logs"
)

// Logger is the logging interface used by the telemetry bootstrap.
// It is satisfied by *zap.Logger.
type Logger interface {
	Debug(msg string, fields ...zap.Field)
	Info(msg string, fields ...zap.Field)
	Warn(msg string, fields ...zap.Field)
	Error(msg string, fields ...zap.Field)
}

// Telemetry owns the trace, metric and log pipelines of the process.
//
// Create it once at startup with New and hand it to every component that
// needs a tracer or meter. Shut it down during process exit to flush
// pending batches.
type Telemetry struct {
	cfg config.Config
	log Logger
	res *resource.Resource

	tracer trace.Tracer
	meter  metric.Meter
	logsP  *logs.Provider

	cleanupFuncs []func(context.Context) error
}

// New builds the resource descriptor and all three export pipelines.
//
// Exporter construction does not dial the collector eagerly; an
// unreachable endpoint surfaces later as export-time failures handled by
// the batching layers, not as an error here. New fails only on genuine
// configuration problems.
func New(ctx context.Context, cfg config.Config, log Logger) (*Telemetry, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	log.Info("Initializing telemetry",
		zap.String("service", cfg.ServiceName),
		zap.String("endpoint", cfg.CollectorEndpoint))

	res, err := newResource(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	t := &Telemetry{cfg: cfg, log: log, res: res}

	if err := t.initTraces(ctx); err != nil {
		return nil, fmt.Errorf("failed to initialize traces: %w", err)
	}
	if err := t.initMetrics(ctx); err != nil {
		t.rollback(ctx)
		return nil, fmt.Errorf("failed to initialize metrics: %w", err)
	}
	if err := t.initLogs(ctx); err != nil {
		t.rollback(ctx)
		return nil, fmt.Errorf("failed to initialize logs: %w", err)
	}

	log.Info("Telemetry initialized",
		zap.String("service", cfg.ServiceName),
		zap.String("version", cfg.ServiceVersion),
		zap.String("environment", cfg.Environment),
		zap.Duration("metric_export_interval", cfg.MetricExportInterval))

	return t, nil
}

// MustNew is like New but panics on error.
func MustNew(ctx context.Context, cfg config.Config, log Logger) *Telemetry {
	t, err := New(ctx, cfg, log)
	if err != nil {
		panic(fmt.Sprintf("failed to initialize telemetry: %v", err))
	}
	return t
}

// Tracer returns the tracer bound to the service resource.
func (t *Telemetry) Tracer() trace.Tracer {
	return t.tracer
}

// Meter returns the meter bound to the service resource.
func (t *Telemetry) Meter() metric.Meter {
	return t.meter
}

// Logs returns the log pipeline, for bridging application loggers.
func (t *Telemetry) Logs() *logs.Provider {
	return t.logsP
}

// Resource returns the immutable service identity descriptor.
func (t *Telemetry) Resource() *resource.Resource {
	return t.res
}

// Config returns the configuration the pipelines were built from.
func (t *Telemetry) Config() config.Config {
	return t.cfg
}

// Shutdown flushes all pipelines and releases their resources.
//
// Pipelines are shut down in reverse initialization order. Shutdown
// attempts every pipeline even if some fail and reports all failures.
func (t *Telemetry) Shutdown(ctx context.Context) error {
	if len(t.cleanupFuncs) == 0 {
		return nil
	}

	t.log.Info("Shutting down telemetry",
		zap.Int("pipelines", len(t.cleanupFuncs)))

	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	var errs []error
	for i := len(t.cleanupFuncs) - 1; i >= 0; i-- {
		if err := t.cleanupFuncs[i](shutdownCtx); err != nil {
			t.log.Error("Failed to shutdown telemetry pipeline",
				zap.Int("index", i),
				zap.Error(err))
			errs = append(errs, err)
		}
	}
	t.cleanupFuncs = nil

	if len(errs) > 0 {
		return fmt.Errorf("telemetry shutdown had %d errors: %v", len(errs), errs)
	}

	t.log.Info("Telemetry shutdown complete")
	return nil
}

// newResource builds the immutable service identity attached to all
// exported telemetry.
func newResource(ctx context.Context, cfg config.Config) (*resource.Resource, error) {
	return resource.New(
		ctx,
		resource.WithAttributes(
			semconv.ServiceName(cfg.ServiceName),
			semconv.ServiceVersion(cfg.ServiceVersion),
			semconv.ServiceInstanceID(cfg.InstanceID),
			semconv.DeploymentEnvironment(cfg.Environment),
		),
		resource.WithAttributes(
			attribute.String("telemetry.distro", "otelapp"),
		),
	)
}

// initTraces wires the span pipeline: OTLP gRPC exporter behind a
// batching span processor.
func (t *Telemetry) initTraces(ctx context.Context) error {
	exporter, err := otlptracegrpc.New(
		ctx,
		otlptracegrpc.WithEndpoint(t.cfg.CollectorEndpoint),
		otlptracegrpc.WithInsecure(),
	)
	if err != nil {
		return fmt.Errorf("failed to create OTLP trace exporter: %w", err)
	}

	provider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(t.res),
	)
	t.tracer = provider.Tracer(t.cfg.ServiceName)

	t.cleanupFuncs = append(t.cleanupFuncs, func(ctx context.Context) error {
		t.log.Debug("Shutting down tracer provider")
		return provider.Shutdown(ctx)
	})

	t.log.Debug("Trace pipeline initialized",
		zap.String("endpoint", t.cfg.CollectorEndpoint))
	return nil
}

// initMetrics wires the metric pipeline: OTLP gRPC exporter behind a
// periodic reader at the configured interval.
func (t *Telemetry) initMetrics(ctx context.Context) error {
	exporter, err := otlpmetricgrpc.New(
		ctx,
		otlpmetricgrpc.WithEndpoint(t.cfg.CollectorEndpoint),
		otlpmetricgrpc.WithInsecure(),
	)
	if err != nil {
		return fmt.Errorf("failed to create OTLP metric exporter: %w", err)
	}

	provider := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(
			exporter,
			sdkmetric.WithInterval(t.cfg.MetricExportInterval),
		)),
		sdkmetric.WithResource(t.res),
	)
	t.meter = provider.Meter(t.cfg.ServiceName)

	t.cleanupFuncs = append(t.cleanupFuncs, func(ctx context.Context) error {
		t.log.Debug("Shutting down meter provider")
		return provider.Shutdown(ctx)
	})

	t.log.Debug("Metric pipeline initialized",
		zap.String("endpoint", t.cfg.CollectorEndpoint),
		zap.Duration("interval", t.cfg.MetricExportInterval))
	return nil
}

// initLogs wires the log pipeline. The application logger is bridged
// separately through logs.NewBridgedLogger once the pipeline exists.
func (t *Telemetry) initLogs(ctx context.Context) error {
	provider, err := logs.NewProvider(ctx, t.cfg.CollectorEndpoint, t.res)
	if err != nil {
		return fmt.Errorf("failed to create log provider: %w", err)
	}
	t.logsP = provider

	t.cleanupFuncs = append(t.cleanupFuncs, func(ctx context.Context) error {
		t.log.Debug("Shutting down log provider")
		return provider.Shutdown(ctx)
	})

	t.log.Debug("Log pipeline initialized",
		zap.String("endpoint", t.cfg.CollectorEndpoint))
	return nil
}

// rollback tears down pipelines created so far when a later init step
// fails.
func (t *Telemetry) rollback(ctx context.Context) {
	for i := len(t.cleanupFuncs) - 1; i >= 0; i-- {
		if err := t.cleanupFuncs[i](ctx); err != nil {
			t.log.Error("Failed to rollback telemetry pipeline", zap.Error(err))
		}
	}
	t.cleanupFuncs = nil
}
