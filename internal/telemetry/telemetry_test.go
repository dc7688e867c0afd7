package telemetry

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
)

func TestConfig_Defaults(t *testing.T) {
	t.Parallel()

	cfg := &Config{}
	assert.Equal(t, DefaultServiceName, cfg.GetServiceName())
	assert.Equal(t, "unknown", cfg.GetServiceVersion())
	assert.Equal(t, DefaultEndpoint, cfg.GetEndpoint())
	assert.Equal(t, DefaultSampling, (&TracingConfig{}).GetSampling())

	cfg = &Config{ServiceName: "indexer-eu", ServiceVersion: "1.2.0", Endpoint: "otel:4318"}
	assert.Equal(t, "indexer-eu", cfg.GetServiceName())
	assert.Equal(t, "1.2.0", cfg.GetServiceVersion())
	assert.Equal(t, "otel:4318", cfg.GetEndpoint())
	assert.Equal(t, 0.5, (&TracingConfig{Sampling: 0.5}).GetSampling())
}

func TestConfig_Validate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		config  *Config
		wantErr string
	}{
		{name: "nil config"},
		{name: "disabled with bad sampling", config: &Config{Tracing: &TracingConfig{Enabled: true, Sampling: 3}}},
		{name: "valid", config: &Config{Enabled: true, Tracing: &TracingConfig{Enabled: true, Sampling: 1}}},
		{
			name:    "sampling above one",
			config:  &Config{Enabled: true, Tracing: &TracingConfig{Enabled: true, Sampling: 1.5}},
			wantErr: "tracing: sampling must be between 0.0 and 1.0",
		},
		{
			name:    "negative sampling",
			config:  &Config{Enabled: true, Tracing: &TracingConfig{Enabled: true, Sampling: -0.1}},
			wantErr: "tracing: sampling must be between 0.0 and 1.0",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := tt.config.Validate()
			if tt.wantErr != "" {
				assert.ErrorContains(t, err, tt.wantErr)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestNew_Disabled(t *testing.T) {
	t.Parallel()

	for _, opts := range [][]Option{
		nil,
		{WithTelemetryConfig(&Config{Enabled: false, Tracing: &TracingConfig{Enabled: true}})},
		{WithTelemetryConfig(&Config{Enabled: true})},
	} {
		tel, err := New(context.Background(), opts...)
		require.NoError(t, err)

		assert.IsType(t, tracenoop.TracerProvider{}, tel.TracerProvider())
		assert.IsType(t, metricnoop.MeterProvider{}, tel.MeterProvider())
		assert.Nil(t, tel.MetricsHandler())
		assert.NoError(t, tel.Shutdown(context.Background()))
	}
}

func TestNew_InvalidConfig(t *testing.T) {
	t.Parallel()

	_, err := New(context.Background(), WithTelemetryConfig(&Config{
		Enabled: true,
		Tracing: &TracingConfig{Enabled: true, Sampling: 2},
	}))
	assert.ErrorContains(t, err, "invalid telemetry configuration")
}

func TestNew_SDKProviders(t *testing.T) {
	t.Parallel()

	tel, err := New(context.Background(), WithTelemetryConfig(&Config{
		Enabled:  true,
		Endpoint: "127.0.0.1:1",
		Insecure: true,
		Tracing:  &TracingConfig{Enabled: true, Sampling: 1},
		Metrics:  &MetricsConfig{Enabled: true, Prometheus: true},
	}))
	require.NoError(t, err)

	assert.IsType(t, &sdktrace.TracerProvider{}, tel.TracerProvider())
	assert.IsType(t, &sdkmetric.MeterProvider{}, tel.MeterProvider())

	counter, err := tel.MeterProvider().Meter("test").Int64Counter("notebox_indexer_test_events")
	require.NoError(t, err)
	counter.Add(context.Background(), 3)

	handler := tel.MetricsHandler()
	require.NotNil(t, handler)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	body, err := io.ReadAll(rr.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "notebox_indexer_test_events")

	// The collector is unreachable, so the final flush may fail
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_ = tel.Shutdown(ctx)
}
