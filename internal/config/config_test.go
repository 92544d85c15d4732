package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, DefaultServiceName, cfg.ServiceName)
	assert.Equal(t, DefaultServiceVersion, cfg.ServiceVersion)
	assert.Equal(t, DefaultEnvironment, cfg.Environment)
	assert.Equal(t, DefaultCollectorEndpoint, cfg.CollectorEndpoint)
	assert.Equal(t, 5*time.Second, cfg.MetricExportInterval)
	assert.Equal(t, DefaultListenAddr, cfg.ListenAddr)
	assert.NotEmpty(t, cfg.InstanceID, "instance id should be generated when unset")
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("APP_NAME", "orders-api")
	t.Setenv("APP_VERSION", "2.3.1")
	t.Setenv("APP_INSTANCE_ID", "instance-1")
	t.Setenv("APP_ENV", "staging")
	t.Setenv("OTEL_COLLECTOR_ENDPOINT", "collector.internal:4317")
	t.Setenv("OTEL_METRIC_EXPORT_INTERVAL_MS", "1000")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "orders-api", cfg.ServiceName)
	assert.Equal(t, "2.3.1", cfg.ServiceVersion)
	assert.Equal(t, "instance-1", cfg.InstanceID)
	assert.Equal(t, "staging", cfg.Environment)
	assert.Equal(t, "collector.internal:4317", cfg.CollectorEndpoint)
	assert.Equal(t, time.Second, cfg.MetricExportInterval)
}

func TestLoadRejectsInvalidEnvironment(t *testing.T) {
	t.Setenv("APP_ENV", "flying-circus")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "environment must be one of")
}

func TestLoadRejectsInvalidEndpoint(t *testing.T) {
	for _, endpoint := range []string{"http://localhost:4317", "localhost", ":4317", "localhost:port"} {
		t.Run(endpoint, func(t *testing.T) {
			t.Setenv("OTEL_COLLECTOR_ENDPOINT", endpoint)

			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), "host:port")
		})
	}
}

func TestValidateAggregatesFailures(t *testing.T) {
	cfg := Config{
		ServiceName:          "",
		ServiceVersion:       "",
		Environment:          "nope",
		CollectorEndpoint:    "bad",
		MetricExportInterval: time.Millisecond,
	}

	err := cfg.Validate()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMissingServiceName)
	assert.ErrorIs(t, err, ErrMissingServiceVersion)
	assert.ErrorIs(t, err, ErrInvalidEnvironment)
	assert.ErrorIs(t, err, ErrInvalidCollectorEndpoint)
	assert.ErrorIs(t, err, ErrInvalidExportInterval)
}

func TestValidateExportIntervalRange(t *testing.T) {
	cfg := Config{
		ServiceName:          "svc",
		ServiceVersion:       "1.0.0",
		Environment:          "test",
		CollectorEndpoint:    "localhost:4317",
		MetricExportInterval: 10 * time.Minute,
	}
	require.Error(t, cfg.Validate())

	cfg.MetricExportInterval = 5 * time.Second
	require.NoError(t, cfg.Validate())
}
