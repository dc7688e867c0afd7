package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/metric/noop"
	"go.uber.org/mock/gomock"

	"github.com/notebox/notebox-indexer/internal/clock"
	"github.com/notebox/notebox-indexer/internal/config"
	"github.com/notebox/notebox-indexer/internal/ids"
	recordsmocks "github.com/notebox/notebox-indexer/internal/records/mocks"
	"github.com/notebox/notebox-indexer/internal/search"
	pkgsync "github.com/notebox/notebox-indexer/internal/sync"
)

func newTestConfig() *config.Config {
	disabled := false
	return &config.Config{
		Database: &config.DatabaseConfig{
			Host:     "localhost",
			Port:     5432,
			User:     "indexer",
			Database: "notebox",
		},
		Search: &config.SearchConfig{
			Endpoint: "http://localhost:7700",
			APIKey:   "test-key",
		},
		Sync: &config.SyncConfig{
			Fields: &config.VariantSyncConfig{
				Major: &config.JobConfig{Enabled: &disabled},
			},
		},
	}
}

func TestBaseConfig(t *testing.T) {
	t.Parallel()

	t.Run("requires a config", func(t *testing.T) {
		t.Parallel()

		_, err := baseConfig()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "config cannot be nil")
	})

	t.Run("defaults", func(t *testing.T) {
		t.Parallel()

		cfg, err := baseConfig(WithConfig(newTestConfig()))
		require.NoError(t, err)
		assert.Equal(t, ":8080", cfg.address)
		assert.Equal(t, defaultProbeTimeout, cfg.probeTimeout)
		assert.IsType(t, clock.Real{}, cfg.clock)
		assert.IsType(t, ids.UUIDProvider{}, cfg.ids)
		assert.False(t, cfg.initialRun)
	})

	t.Run("address option wins over config", func(t *testing.T) {
		t.Parallel()

		c := newTestConfig()
		c.Server = &config.ServerConfig{Address: ":9000"}
		cfg, err := baseConfig(WithConfig(c), WithAddress("127.0.0.1:9100"))
		require.NoError(t, err)
		assert.Equal(t, "127.0.0.1:9100", cfg.address)
	})

	t.Run("config address", func(t *testing.T) {
		t.Parallel()

		c := newTestConfig()
		c.Server = &config.ServerConfig{Address: ":9000"}
		cfg, err := baseConfig(WithConfig(c))
		require.NoError(t, err)
		assert.Equal(t, ":9000", cfg.address)
	})

	t.Run("option error is returned", func(t *testing.T) {
		t.Parallel()

		_, err := baseConfig(WithConfig(newTestConfig()), WithAddress(""))
		require.Error(t, err)
	})
}

func TestWithAddress(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		address string
		wantErr bool
	}{
		{name: "port only", address: ":9999"},
		{name: "ip and port", address: "127.0.0.1:9999"},
		{name: "localhost and port", address: "localhost:9999"},
		{name: "empty address", address: "", wantErr: true},
		{name: "empty port", address: ":", wantErr: true},
		{name: "no port", address: "localhost", wantErr: true},
		{name: "port out of range", address: "localhost:999999", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := &indexerAppConfig{}
			err := WithAddress(tt.address)(cfg)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.address, cfg.address)
		})
	}
}

func TestOptions(t *testing.T) {
	t.Parallel()

	fixed := clock.Fixed(time.Date(2025, 1, 15, 3, 0, 0, 0, time.UTC))
	seq := ids.NewSequence("doc")
	mw := func(next http.Handler) http.Handler { return next }
	handler := http.NotFoundHandler()

	cfg, err := baseConfig(
		WithConfig(newTestConfig()),
		WithClock(fixed),
		WithIDProvider(seq),
		WithInitialSync(true),
		WithMiddlewares(mw),
		WithMeterProvider(noop.NewMeterProvider()),
		WithMetricsHandler(handler),
	)
	require.NoError(t, err)

	assert.Equal(t, fixed, cfg.clock)
	assert.Same(t, seq, cfg.ids)
	assert.True(t, cfg.initialRun)
	assert.Len(t, cfg.middlewares, 1)
	assert.NotNil(t, cfg.meterProvider)
	assert.NotNil(t, cfg.metricsHandler)
}

func TestBuildSearchComponents(t *testing.T) {
	t.Parallel()

	t.Run("builds a client from config", func(t *testing.T) {
		t.Parallel()

		c := newTestConfig()
		c.Search.NoteIndex = "notes_v2"
		b, err := baseConfig(WithConfig(c))
		require.NoError(t, err)

		comps := &Components{}
		require.NoError(t, buildSearchComponents(b, comps))
		assert.NotNil(t, comps.SearchClient)
		assert.Equal(t, "notes_v2", comps.NoteIndex.Name())
		assert.Equal(t, "note_fields", comps.FieldIndex.Name())
	})

	t.Run("uses an injected client", func(t *testing.T) {
		t.Parallel()

		client, err := search.NewClient("http://search.internal:7700")
		require.NoError(t, err)
		b, err := baseConfig(WithConfig(newTestConfig()), WithSearchClient(client))
		require.NoError(t, err)

		comps := &Components{}
		require.NoError(t, buildSearchComponents(b, comps))
		assert.Same(t, client, comps.SearchClient)
	})

	t.Run("unreadable api key file", func(t *testing.T) {
		t.Parallel()

		c := newTestConfig()
		c.Search.APIKey = ""
		c.Search.APIKeyFile = "/nonexistent/search-key"
		b, err := baseConfig(WithConfig(c))
		require.NoError(t, err)

		require.Error(t, buildSearchComponents(b, &Components{}))
	})
}

func TestBuildSyncComponents(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	store := recordsmocks.NewMockStore(ctrl)

	b, err := baseConfig(WithConfig(newTestConfig()), WithMeterProvider(noop.NewMeterProvider()))
	require.NoError(t, err)

	comps := &Components{}
	require.NoError(t, buildSearchComponents(b, comps))
	require.NoError(t, buildSyncComponents(b, comps, store))

	require.Len(t, comps.Runners, 2)
	assert.NotNil(t, comps.Runner(pkgsync.VariantNotes))
	assert.NotNil(t, comps.Runner(pkgsync.VariantFields))
	assert.Nil(t, comps.Runner(pkgsync.Variant("tags")))
	assert.NotNil(t, comps.Coordinator)
}

func TestBuildWithdrawalComponents(t *testing.T) {
	t.Parallel()

	t.Run("without kafka", func(t *testing.T) {
		t.Parallel()

		ctrl := gomock.NewController(t)
		b, err := baseConfig(WithConfig(newTestConfig()))
		require.NoError(t, err)

		comps := &Components{}
		require.NoError(t, buildSearchComponents(b, comps))
		require.NoError(t, buildWithdrawalComponents(b, comps, recordsmocks.NewMockStore(ctrl)))

		assert.NotNil(t, comps.Cascade)
		assert.Nil(t, comps.Producer)
		assert.Nil(t, comps.Consumer)
	})

	t.Run("kafka without brokers", func(t *testing.T) {
		t.Parallel()

		ctrl := gomock.NewController(t)
		c := newTestConfig()
		c.Kafka = &config.KafkaConfig{}
		b, err := baseConfig(WithConfig(c))
		require.NoError(t, err)

		comps := &Components{}
		require.NoError(t, buildSearchComponents(b, comps))
		require.Error(t, buildWithdrawalComponents(b, comps, recordsmocks.NewMockStore(ctrl)))
	})
}

func TestBuildHTTPServer(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		opts        []IndexerAppOptions
		wantAddress string
	}{
		{
			name:        "default middlewares",
			wantAddress: ":8080",
		},
		{
			name: "custom middlewares and address",
			opts: []IndexerAppOptions{
				WithAddress("127.0.0.1:9090"),
				WithMiddlewares(func(next http.Handler) http.Handler { return next }),
			},
			wantAddress: "127.0.0.1:9090",
		},
		{
			name:        "with meter provider",
			opts:        []IndexerAppOptions{WithMeterProvider(noop.NewMeterProvider())},
			wantAddress: ":8080",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			b, err := baseConfig(append([]IndexerAppOptions{WithConfig(newTestConfig())}, tt.opts...)...)
			require.NoError(t, err)

			server, err := buildHTTPServer(b, &Components{})
			require.NoError(t, err)
			assert.Equal(t, tt.wantAddress, server.Addr)
			assert.Equal(t, defaultReadTimeout, server.ReadTimeout)
			assert.Zero(t, server.WriteTimeout)

			rr := httptest.NewRecorder()
			req := httptest.NewRequestWithContext(context.Background(), http.MethodGet, "/health", nil)
			server.Handler.ServeHTTP(rr, req)
			assert.Equal(t, http.StatusOK, rr.Code)
		})
	}
}
