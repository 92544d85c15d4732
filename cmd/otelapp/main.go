// cmd/otelapp/main.go
//
// # Instrumented demo service
//
// Boots the full telemetry pipeline (traces, metrics, logs over OTLP),
// wires the demo HTTP API, and shuts everything down gracefully.
//
// Environment Variables:
//   - APP_NAME: Service name (default "otelapp-demo")
//   - APP_VERSION: Service version (default "1.0.0")
//   - APP_INSTANCE_ID: Instance id (default: random UUID)
//   - APP_ENV: Environment (development, staging, production)
//   - OTEL_COLLECTOR_ENDPOINT: OTLP gRPC endpoint (default "localhost:4317")
//   - OTEL_METRIC_EXPORT_INTERVAL_MS: Metric export interval (default 5000)
//   - HTTP_LISTEN_ADDR: Listen address (default ":8080")
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	otelapp "github.com/gath-stack/otelapp"
	"github.com/gath-stack/otelapp/internal/api"
	"github.com/gath-stack/otelapp/internal/config"
	"github.com/gath-stack/otelapp/internal/logs"
	"github.com/gath-stack/otelapp/internal/metrics"
	"github.com/gath-stack/otelapp/internal/middleware"
)

func main() {
	// ========================================
	// 1. Configuration
	// ========================================
	cfg := config.MustLoad()

	// ========================================
	// 2. Bootstrap Logger
	// ========================================
	// Console-only until the telemetry stack is up; upgraded to the
	// OTLP-bridged logger once the log pipeline exists.
	bootLog, err := zap.NewDevelopment()
	if err != nil {
		panic(err)
	}

	// ========================================
	// 3. Telemetry Stack
	// ========================================
	ctx := context.Background()
	tel := otelapp.MustNew(ctx, cfg, bootLog)
	defer func() {
		if err := tel.Shutdown(context.Background()); err != nil {
			bootLog.Error("Telemetry shutdown failed", zap.Error(err))
		}
	}()

	log := logs.NewBridgedLogger(tel.Logs(), zap.InfoLevel)
	defer func() { _ = log.Sync() }()

	log.Info("Telemetry initialized",
		zap.String("service", cfg.ServiceName),
		zap.String("version", cfg.ServiceVersion),
		zap.String("environment", cfg.Environment),
		zap.String("collector", cfg.CollectorEndpoint),
		zap.Duration("metric_interval", cfg.MetricExportInterval))

	// ========================================
	// 4. Metric Instruments & Collectors
	// ========================================
	registry, err := metrics.NewRegistry(tel.Meter())
	if err != nil {
		log.Fatal("Failed to create metric registry", zap.Error(err))
	}

	if _, err := metrics.NewRuntimeCollector(tel.Meter()); err != nil {
		log.Error("Runtime metrics unavailable", zap.Error(err))
	}
	if _, err := metrics.NewHostCollector(tel.Meter(), metrics.HostCollectorConfig{}); err != nil {
		log.Error("Host metrics unavailable", zap.Error(err))
	}

	// ========================================
	// 5. HTTP Server
	// ========================================
	rt := middleware.NewRequestTelemetry(tel.Tracer(), registry, log)
	handler := api.NewHandler(cfg, tel.Tracer(), registry, log)

	server := &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      handler.Router(rt),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		log.Info("HTTP server starting",
			zap.String("addr", server.Addr),
			zap.Int("goroutines", metrics.NumGoroutines()),
			zap.Float64("heap_mb", metrics.MemoryUsageMB()))
		serverErrors <- server.ListenAndServe()
	}()

	// ========================================
	// 6. Wait for shutdown signal
	// ========================================
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		log.Fatal("HTTP server failed", zap.Error(err))
	case sig := <-quit:
		log.Info("Received shutdown signal", zap.String("signal", sig.String()))
	}

	// ========================================
	// 7. Graceful Shutdown
	// ========================================
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
		server.Close()
	}

	log.Info("Server exited gracefully",
		zap.Int64("requests_served", rt.TotalRequests()),
		zap.Int64("errors", rt.TotalErrors()))
}
