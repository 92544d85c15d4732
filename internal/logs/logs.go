// Package logs wires the OTLP log pipeline and bridges zap into it.
//
// Application code logs through zap as usual; a tee'd zapcore.Core mirrors
// every record into the OTLP exporter so logs arrive both on the local
// console and at the collector.
package logs

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploggrpc"
	"go.opentelemetry.io/otel/log"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Provider manages the OTLP log export pipeline.
type Provider struct {
	provider *sdklog.LoggerProvider
}

// NewProvider creates a log pipeline exporting to the given OTLP endpoint.
//
// Records flow through a batch processor; export failures are retried or
// dropped by the batching layer and never surface to callers.
func NewProvider(ctx context.Context, endpoint string, res *resource.Resource) (*Provider, error) {
	exporter, err := otlploggrpc.New(
		ctx,
		otlploggrpc.WithEndpoint(endpoint),
		otlploggrpc.WithInsecure(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create OTLP log exporter: %w", err)
	}

	provider := sdklog.NewLoggerProvider(
		sdklog.WithProcessor(sdklog.NewBatchProcessor(exporter,
			sdklog.WithExportTimeout(10*time.Second),
			sdklog.WithExportMaxBatchSize(512),
		)),
		sdklog.WithResource(res),
	)

	return &Provider{provider: provider}, nil
}

// Shutdown flushes pending records and stops the pipeline.
func (p *Provider) Shutdown(ctx context.Context) error {
	return p.provider.Shutdown(ctx)
}

// Core returns a zapcore.Core that forwards records at or above level to
// the provider. Combine with a console core via zapcore.NewTee.
func (p *Provider) Core(level zapcore.Level) zapcore.Core {
	return &otelCore{
		logger: p.provider.Logger("zap-otel-bridge"),
		level:  level,
	}
}

// NewBridgedLogger builds a zap logger that writes to both the local
// console (development encoder) and the OTLP pipeline.
func NewBridgedLogger(p *Provider, level zapcore.Level) *zap.Logger {
	consoleCfg := zap.NewDevelopmentConfig()
	consoleCfg.Level = zap.NewAtomicLevelAt(level)
	console, err := consoleCfg.Build()
	if err != nil {
		// NewDevelopmentConfig only fails on invalid output paths, which
		// the default config does not have.
		panic(fmt.Sprintf("failed to build console logger: %v", err))
	}

	tee := zapcore.NewTee(console.Core(), p.Core(level))
	return zap.New(tee, zap.AddCaller())
}

// otelCore is a zapcore.Core implementation that emits records through an
// OTEL logger.
type otelCore struct {
	logger log.Logger
	level  zapcore.Level
	fields []zapcore.Field
}

func (c *otelCore) Enabled(level zapcore.Level) bool {
	return level >= c.level
}

func (c *otelCore) With(fields []zapcore.Field) zapcore.Core {
	clone := *c
	clone.fields = append(clone.fields[:len(c.fields):len(c.fields)], fields...)
	return &clone
}

func (c *otelCore) Check(entry zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if c.Enabled(entry.Level) {
		return ce.AddCore(entry, c)
	}
	return ce
}

func (c *otelCore) Write(entry zapcore.Entry, fields []zapcore.Field) error {
	allFields := append(c.fields, fields...)

	attrs := make([]log.KeyValue, 0, len(allFields)+2)
	attrs = append(attrs,
		log.String("logger", entry.LoggerName),
		log.String("caller", entry.Caller.TrimmedPath()),
	)

	enc := zapcore.NewMapObjectEncoder()
	for _, field := range allFields {
		field.AddTo(enc)
	}
	for key, value := range enc.Fields {
		attrs = append(attrs, toLogKeyValue(key, value))
	}

	var record log.Record
	record.SetTimestamp(entry.Time)
	record.SetBody(log.StringValue(entry.Message))
	record.SetSeverity(toSeverity(entry.Level))
	record.AddAttributes(attrs...)

	c.logger.Emit(context.Background(), record)
	return nil
}

func (c *otelCore) Sync() error {
	return nil
}

// toSeverity converts a zap level to an OTEL severity.
func toSeverity(level zapcore.Level) log.Severity {
	switch level {
	case zapcore.DebugLevel:
		return log.SeverityDebug
	case zapcore.InfoLevel:
		return log.SeverityInfo
	case zapcore.WarnLevel:
		return log.SeverityWarn
	case zapcore.ErrorLevel:
		return log.SeverityError
	case zapcore.DPanicLevel, zapcore.PanicLevel, zapcore.FatalLevel:
		return log.SeverityFatal
	default:
		return log.SeverityInfo
	}
}

// toLogKeyValue converts an encoded zap field value to an OTEL attribute.
func toLogKeyValue(key string, value interface{}) log.KeyValue {
	switch v := value.(type) {
	case string:
		return log.String(key, v)
	case int:
		return log.Int(key, v)
	case int64:
		return log.Int64(key, v)
	case float64:
		return log.Float64(key, v)
	case bool:
		return log.Bool(key, v)
	default:
		return log.String(key, fmt.Sprintf("%v", v))
	}
}
