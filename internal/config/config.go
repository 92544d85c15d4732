// Package config loads and validates the telemetry demo configuration.
//
// Configuration is environment-based with sensible defaults for local
// development, so the service starts against a collector on localhost
// without any variables set. A .env file in the working directory is
// honored if present.
//
// # Environment Variables
//
//   - APP_NAME: Service name (default: "otelapp-demo")
//   - APP_VERSION: Service version (default: "1.0.0")
//   - APP_INSTANCE_ID: Service instance identifier (default: generated UUID)
//   - APP_ENV: Environment (default: "development")
//   - OTEL_COLLECTOR_ENDPOINT: OTLP collector endpoint in host:port format
//     (default: "localhost:4317")
//   - OTEL_METRIC_EXPORT_INTERVAL_MS: Metric export interval in milliseconds
//     (default: 5000)
//   - HTTP_LISTEN_ADDR: HTTP listen address (default: ":8080")
//
// # Example Usage
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal("Invalid configuration", zap.Error(err))
//	}
//	fmt.Println("exporting to", cfg.CollectorEndpoint)
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
)

// Defaults applied by Load when the corresponding variable is unset.
const (
	DefaultServiceName       = "otelapp-demo"
	DefaultServiceVersion    = "1.0.0"
	DefaultEnvironment       = "development"
	DefaultCollectorEndpoint = "localhost:4317"
	DefaultExportIntervalMS  = 5000
	DefaultListenAddr        = ":8080"
)

// Config holds the complete service configuration.
//
// All fields are populated by Load. The zero value is not usable; always
// construct through Load or fill every field and call Validate.
type Config struct {
	// ServiceName identifies the application in exported telemetry.
	ServiceName string

	// ServiceVersion is the application version attached to the resource.
	ServiceVersion string

	// InstanceID distinguishes replicas of the same service.
	InstanceID string

	// Environment is the deployment environment (development, staging,
	// production and their short forms).
	Environment string

	// CollectorEndpoint is the OTLP collector endpoint in host:port format.
	// All three pipelines (traces, metrics, logs) export to it.
	CollectorEndpoint string

	// MetricExportInterval is the cadence of the periodic metric reader.
	MetricExportInterval time.Duration

	// ListenAddr is the HTTP server listen address.
	ListenAddr string
}

// Validation errors returned by Load and Validate.
var (
	// ErrMissingServiceName indicates ServiceName is empty.
	ErrMissingServiceName = errors.New("service name cannot be empty")

	// ErrMissingServiceVersion indicates ServiceVersion is empty.
	ErrMissingServiceVersion = errors.New("service version cannot be empty")

	// ErrInvalidEnvironment indicates Environment has an unrecognized value.
	ErrInvalidEnvironment = errors.New("environment must be one of: development, dev, local, staging, stage, test, production, prod")

	// ErrInvalidCollectorEndpoint indicates the collector endpoint is not host:port.
	ErrInvalidCollectorEndpoint = errors.New("collector endpoint must be in format host:port")

	// ErrInvalidExportInterval indicates the metric export interval is out of range.
	ErrInvalidExportInterval = errors.New("metric export interval must be between 100ms and 5m")
)

var validEnvs = map[string]bool{
	"development": true,
	"dev":         true,
	"local":       true,
	"staging":     true,
	"stage":       true,
	"test":        true,
	"production":  true,
	"prod":        true,
}

// Load reads configuration from the environment, applying defaults for
// anything unset, and validates the result.
//
// A .env file in the working directory is loaded first when present;
// real environment variables take precedence over its contents.
func Load() (Config, error) {
	// godotenv does not override variables that are already set.
	_ = godotenv.Load()

	cfg := Config{
		ServiceName:          getEnvString("APP_NAME", DefaultServiceName),
		ServiceVersion:       getEnvString("APP_VERSION", DefaultServiceVersion),
		InstanceID:           getEnvString("APP_INSTANCE_ID", ""),
		Environment:          getEnvString("APP_ENV", DefaultEnvironment),
		CollectorEndpoint:    getEnvString("OTEL_COLLECTOR_ENDPOINT", DefaultCollectorEndpoint),
		MetricExportInterval: time.Duration(getEnvInt("OTEL_METRIC_EXPORT_INTERVAL_MS", DefaultExportIntervalMS)) * time.Millisecond,
		ListenAddr:           getEnvString("HTTP_LISTEN_ADDR", DefaultListenAddr),
	}

	if cfg.InstanceID == "" {
		cfg.InstanceID = uuid.NewString()
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// MustLoad is like Load but panics on error. Intended for application
// startup where a configuration error should terminate the process.
func MustLoad() Config {
	cfg, err := Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load configuration: %v", err))
	}
	return cfg
}

// Validate verifies that the configuration is internally consistent.
//
// It checks service identity fields, the environment name, the collector
// endpoint format, and the metric export interval range. All failures are
// aggregated into a single error.
func (c Config) Validate() error {
	var problems []error

	if strings.TrimSpace(c.ServiceName) == "" {
		problems = append(problems, ErrMissingServiceName)
	}
	if strings.TrimSpace(c.ServiceVersion) == "" {
		problems = append(problems, ErrMissingServiceVersion)
	}
	if !validEnvs[strings.ToLower(c.Environment)] {
		problems = append(problems, fmt.Errorf("%w (got %q)", ErrInvalidEnvironment, c.Environment))
	}
	if !isValidEndpoint(c.CollectorEndpoint) {
		problems = append(problems, fmt.Errorf("%w (got %q)", ErrInvalidCollectorEndpoint, c.CollectorEndpoint))
	}
	if c.MetricExportInterval < 100*time.Millisecond || c.MetricExportInterval > 5*time.Minute {
		problems = append(problems, fmt.Errorf("%w (got %s)", ErrInvalidExportInterval, c.MetricExportInterval))
	}

	if len(problems) > 0 {
		return fmt.Errorf("configuration validation failed: %w", errors.Join(problems...))
	}
	return nil
}

// isValidEndpoint verifies that an endpoint string is in host:port format.
// A scheme prefix like "http://" is rejected; the OTLP gRPC exporters
// expect a bare host and port.
func isValidEndpoint(endpoint string) bool {
	parts := strings.Split(endpoint, ":")
	if len(parts) != 2 {
		return false
	}
	if _, err := strconv.Atoi(parts[1]); err != nil {
		return false
	}
	return parts[0] != ""
}

// getEnvString returns the value of an environment variable or a default.
func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt returns an environment variable parsed as an integer or a default.
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}
