package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/netip"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/notebox/notebox-indexer/internal/api"
	"github.com/notebox/notebox-indexer/internal/clock"
	"github.com/notebox/notebox-indexer/internal/config"
	"github.com/notebox/notebox-indexer/internal/db"
	"github.com/notebox/notebox-indexer/internal/ids"
	"github.com/notebox/notebox-indexer/internal/kafka"
	"github.com/notebox/notebox-indexer/internal/records"
	"github.com/notebox/notebox-indexer/internal/search"
	"github.com/notebox/notebox-indexer/internal/search/fieldindex"
	"github.com/notebox/notebox-indexer/internal/search/noteindex"
	pkgsync "github.com/notebox/notebox-indexer/internal/sync"
	"github.com/notebox/notebox-indexer/internal/sync/coordinator"
	"github.com/notebox/notebox-indexer/internal/telemetry"
	"github.com/notebox/notebox-indexer/internal/withdrawal"
)

const (
	defaultProbeTimeout = 5 * time.Second
	defaultReadTimeout  = 10 * time.Second
	defaultIdleTimeout  = 60 * time.Second
)

// IndexerAppOptions is a function that configures the indexer app builder
type IndexerAppOptions func(*indexerAppConfig) error

// indexerAppConfig collects the configuration and the injected components
// of the app. Components left nil are built from the configuration.
type indexerAppConfig struct {
	config *config.Config

	pool         *pgxpool.Pool
	searchClient search.Client
	clock        clock.Clock
	ids          ids.Provider
	initialRun   bool

	// HTTP server options
	address      string
	middlewares  []func(http.Handler) http.Handler
	probeTimeout time.Duration
	readTimeout  time.Duration
	idleTimeout  time.Duration

	// Telemetry components
	meterProvider  metric.MeterProvider
	tracerProvider trace.TracerProvider
	metricsHandler http.Handler
}

func baseConfig(opts ...IndexerAppOptions) (*indexerAppConfig, error) {
	cfg := &indexerAppConfig{
		clock:        clock.Real{},
		ids:          ids.UUIDProvider{},
		probeTimeout: defaultProbeTimeout,
		readTimeout:  defaultReadTimeout,
		idleTimeout:  defaultIdleTimeout,
	}

	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, err
		}
	}

	if cfg.config == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if cfg.address == "" {
		cfg.address = cfg.config.GetServerAddress()
	}
	return cfg, nil
}

// WithConfig sets the configuration
func WithConfig(c *config.Config) IndexerAppOptions {
	return func(cfg *indexerAppConfig) error {
		cfg.config = c
		return nil
	}
}

// WithAddress overrides the ops server address of the configuration
func WithAddress(addr string) IndexerAppOptions {
	return func(cfg *indexerAppConfig) error {
		if addr == "" {
			return fmt.Errorf("address cannot be empty")
		}

		host, port, found := strings.Cut(addr, ":")
		if !found || port == "" {
			return fmt.Errorf("address is not a valid port: %s", addr)
		}
		switch host {
		case "localhost":
			host = "127.0.0.1"
		case "":
			host = "0.0.0.0"
		}
		if _, err := netip.ParseAddrPort(host + ":" + port); err != nil {
			return fmt.Errorf("address is not a valid port: %w", err)
		}

		cfg.address = addr
		return nil
	}
}

// WithMiddlewares replaces the default ops server middlewares
func WithMiddlewares(mw ...func(http.Handler) http.Handler) IndexerAppOptions {
	return func(cfg *indexerAppConfig) error {
		cfg.middlewares = mw
		return nil
	}
}

// WithPool injects a database pool. The app does not close it.
func WithPool(pool *pgxpool.Pool) IndexerAppOptions {
	return func(cfg *indexerAppConfig) error {
		cfg.pool = pool
		return nil
	}
}

// WithSearchClient injects the search engine client
func WithSearchClient(client search.Client) IndexerAppOptions {
	return func(cfg *indexerAppConfig) error {
		cfg.searchClient = client
		return nil
	}
}

// WithClock sets the clock used for sync windows and ledger timestamps
func WithClock(clk clock.Clock) IndexerAppOptions {
	return func(cfg *indexerAppConfig) error {
		cfg.clock = clk
		return nil
	}
}

// WithIDProvider sets the generator of field document and ledger ids
func WithIDProvider(p ids.Provider) IndexerAppOptions {
	return func(cfg *indexerAppConfig) error {
		cfg.ids = p
		return nil
	}
}

// WithInitialSync runs every scheduled job once at startup
func WithInitialSync(enabled bool) IndexerAppOptions {
	return func(cfg *indexerAppConfig) error {
		cfg.initialRun = enabled
		return nil
	}
}

// WithMeterProvider sets the OpenTelemetry meter provider
func WithMeterProvider(mp metric.MeterProvider) IndexerAppOptions {
	return func(cfg *indexerAppConfig) error {
		cfg.meterProvider = mp
		return nil
	}
}

// WithTracerProvider sets the OpenTelemetry tracer provider
func WithTracerProvider(tp trace.TracerProvider) IndexerAppOptions {
	return func(cfg *indexerAppConfig) error {
		cfg.tracerProvider = tp
		return nil
	}
}

// WithMetricsHandler serves a Prometheus scrape endpoint on the ops server
func WithMetricsHandler(h http.Handler) IndexerAppOptions {
	return func(cfg *indexerAppConfig) error {
		cfg.metricsHandler = h
		return nil
	}
}

// BuildComponents builds the stores, indexes, runners and withdrawal
// cascade without any server. The caller must Close the result.
func BuildComponents(ctx context.Context, opts ...IndexerAppOptions) (*Components, error) {
	cfg, err := baseConfig(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to build base configuration: %w", err)
	}
	return buildComponents(ctx, cfg)
}

func buildComponents(ctx context.Context, b *indexerAppConfig) (*Components, error) {
	c := &Components{Pool: b.pool}
	if c.Pool == nil {
		pool, err := db.NewPool(ctx, b.config.Database)
		if err != nil {
			return nil, err
		}
		c.Pool = pool
		c.ownsPool = true
	}

	success := false
	defer func() {
		if !success {
			c.Close()
		}
	}()

	var err error
	if err = buildSearchComponents(b, c); err != nil {
		return nil, fmt.Errorf("failed to build search components: %w", err)
	}
	store := records.NewStore(c.Pool)
	if err = buildSyncComponents(b, c, store); err != nil {
		return nil, fmt.Errorf("failed to build sync components: %w", err)
	}
	if err = buildWithdrawalComponents(b, c, store); err != nil {
		return nil, fmt.Errorf("failed to build withdrawal components: %w", err)
	}

	success = true
	return c, nil
}

// buildSearchComponents builds the engine client and both index access layers
func buildSearchComponents(b *indexerAppConfig, c *Components) error {
	searchCfg := b.config.Search
	c.SearchClient = b.searchClient
	if c.SearchClient == nil {
		apiKey, err := searchCfg.GetAPIKey()
		if err != nil {
			return err
		}

		transportOpts := []otelhttp.Option{}
		clientOpts := []search.Option{
			search.WithAPIKey(apiKey),
			search.WithMaxTries(searchCfg.GetMaxRetries()),
		}
		if b.tracerProvider != nil {
			transportOpts = append(transportOpts, otelhttp.WithTracerProvider(b.tracerProvider))
			clientOpts = append(clientOpts, search.WithTracer(b.tracerProvider.Tracer(search.TracerName)))
		}
		if b.meterProvider != nil {
			transportOpts = append(transportOpts, otelhttp.WithMeterProvider(b.meterProvider))
		}
		clientOpts = append(clientOpts, search.WithHTTPClient(&http.Client{
			Timeout:   searchCfg.GetTimeout(),
			Transport: otelhttp.NewTransport(http.DefaultTransport, transportOpts...),
		}))

		c.SearchClient, err = search.NewClient(searchCfg.Endpoint, clientOpts...)
		if err != nil {
			return err
		}
	}

	c.NoteIndex = noteindex.New(c.SearchClient, noteindex.WithIndexName(searchCfg.GetNoteIndex()))
	c.FieldIndex = fieldindex.New(c.SearchClient, fieldindex.WithIndexName(searchCfg.GetFieldIndex()))
	slog.Info("Search components initialized",
		"endpoint", searchCfg.Endpoint,
		"note_index", c.NoteIndex.Name(),
		"field_index", c.FieldIndex.Name())
	return nil
}

// buildSyncComponents builds a manager and a runner per index variant and
// the coordinator scheduling their enabled jobs
func buildSyncComponents(b *indexerAppConfig, c *Components, store records.Store) error {
	var managerOpts []pkgsync.Option
	if b.tracerProvider != nil {
		managerOpts = append(managerOpts, pkgsync.WithTracer(b.tracerProvider.Tracer(pkgsync.TracerName)))
	}
	if b.meterProvider != nil {
		syncMetrics, err := telemetry.NewSyncMetrics(b.meterProvider)
		if err != nil {
			return fmt.Errorf("failed to create sync metrics: %w", err)
		}
		managerOpts = append(managerOpts, pkgsync.WithMetrics(syncMetrics))
	}

	notes, err := pkgsync.NewManager(pkgsync.NewNoteStrategy(store, c.NoteIndex, b.clock), managerOpts...)
	if err != nil {
		return fmt.Errorf("failed to create notes manager: %w", err)
	}
	fields, err := pkgsync.NewManager(
		pkgsync.NewFieldStrategy(store, c.FieldIndex, b.ids, b.clock), managerOpts...)
	if err != nil {
		return fmt.Errorf("failed to create fields manager: %w", err)
	}

	syncCfg := b.config.Sync
	c.Runners = []*coordinator.Runner{
		coordinator.NewRunnerFromConfig(notes, b.clock, syncCfg),
		coordinator.NewRunnerFromConfig(fields, b.clock, syncCfg),
	}

	coordOpts := []coordinator.Option{coordinator.WithClock(b.clock)}
	if b.initialRun {
		coordOpts = append(coordOpts, coordinator.WithInitialRun())
	}
	jobs := coordinator.JobsFromConfig(syncCfg, pkgsync.VariantNotes, pkgsync.VariantFields)
	c.Coordinator, err = coordinator.New(c.Runners, jobs, coordOpts...)
	if err != nil {
		return fmt.Errorf("failed to create sync coordinator: %w", err)
	}

	slog.Info("Sync components initialized", "job_count", len(jobs))
	return nil
}

// buildWithdrawalComponents builds the cascade and, when Kafka is
// configured, the dead-letter producer and the withdrawal consumer
func buildWithdrawalComponents(b *indexerAppConfig, c *Components, store records.Store) error {
	opts := []withdrawal.Option{
		withdrawal.WithClock(b.clock),
		withdrawal.WithIDProvider(b.ids),
		withdrawal.WithAwaitTimeout(b.config.Search.GetAwaitTimeout()),
	}
	if b.tracerProvider != nil {
		opts = append(opts, withdrawal.WithTracer(b.tracerProvider.Tracer(withdrawal.TracerName)))
	}
	if b.meterProvider != nil {
		withdrawalMetrics, err := telemetry.NewWithdrawalMetrics(b.meterProvider)
		if err != nil {
			return fmt.Errorf("failed to create withdrawal metrics: %w", err)
		}
		opts = append(opts, withdrawal.WithMetrics(withdrawalMetrics))
	}

	kafkaCfg := b.config.Kafka
	if kafkaCfg != nil {
		producer, err := kafka.NewProducer(kafkaCfg.Brokers)
		if err != nil {
			return err
		}
		c.Producer = producer
		opts = append(opts, withdrawal.WithDeadLetters(
			withdrawal.NewTopicPublisher(producer, kafkaCfg.GetDeadLetterTopic())))
	}

	c.Cascade = withdrawal.NewCascade(store, c.NoteIndex, c.FieldIndex, c.SearchClient,
		withdrawal.NewHistoryStore(c.Pool), opts...)

	if kafkaCfg == nil {
		slog.Warn("No kafka configuration, withdrawal events will not be consumed")
		return nil
	}

	consumer, err := kafka.NewConsumer(kafkaCfg.Brokers, kafkaCfg.GetGroupID(),
		[]string{kafkaCfg.GetWithdrawalTopic()}, c.Cascade)
	if err != nil {
		return err
	}
	c.Consumer = consumer

	slog.Info("Withdrawal components initialized",
		"topic", kafkaCfg.GetWithdrawalTopic(),
		"dead_letter_topic", kafkaCfg.GetDeadLetterTopic(),
		"group_id", kafkaCfg.GetGroupID())
	return nil
}

// buildHTTPServer builds the ops server with probes for every dependency
func buildHTTPServer(b *indexerAppConfig, c *Components) (*http.Server, error) {
	if b.middlewares == nil {
		b.middlewares = []func(http.Handler) http.Handler{
			middleware.RequestID,
			middleware.RealIP,
			middleware.Recoverer,
			api.LoggingMiddleware,
		}
	}

	// Telemetry goes first to observe every request
	if b.meterProvider != nil {
		metricsMiddleware, err := telemetry.MetricsMiddleware(b.meterProvider)
		if err != nil {
			return nil, fmt.Errorf("failed to create metrics middleware: %w", err)
		}
		b.middlewares = append([]func(http.Handler) http.Handler{metricsMiddleware}, b.middlewares...)
	}
	if b.tracerProvider != nil {
		b.middlewares = append([]func(http.Handler) http.Handler{telemetry.TracingMiddleware(b.tracerProvider)},
			b.middlewares...)
	}

	runners := make([]api.SyncRunner, 0, len(c.Runners))
	for _, r := range c.Runners {
		runners = append(runners, r)
	}

	serverOpts := []api.ServerOption{
		api.WithMiddlewares(b.middlewares...),
		api.WithProbeTimeout(b.probeTimeout),
		api.WithSyncRunners(runners...),
	}
	if c.Pool != nil {
		serverOpts = append(serverOpts, api.WithReadinessCheck("database", c.Pool.Ping))
	}
	if c.SearchClient != nil {
		serverOpts = append(serverOpts, api.WithReadinessCheck("search", c.SearchClient.Health))
	}
	if c.Cascade != nil {
		serverOpts = append(serverOpts, api.WithWithdrawals(c.Cascade))
	}
	if c.Producer != nil {
		serverOpts = append(serverOpts, api.WithReadinessCheck("kafka", c.Producer.Ping))
	}
	if b.metricsHandler != nil {
		serverOpts = append(serverOpts, api.WithMetricsHandler(b.metricsHandler))
	}

	// Admin passes stream no body until done, so writes are not bounded
	server := &http.Server{
		Addr:              b.address,
		Handler:           api.NewServer(serverOpts...),
		ReadHeaderTimeout: b.readTimeout,
		ReadTimeout:       b.readTimeout,
		IdleTimeout:       b.idleTimeout,
	}

	slog.Info("HTTP server configured", "address", b.address)
	return server, nil
}

// NewIndexerApp builds every component and the ops server
func NewIndexerApp(ctx context.Context, opts ...IndexerAppOptions) (*IndexerApp, error) {
	cfg, err := baseConfig(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to build base configuration: %w", err)
	}

	components, err := buildComponents(ctx, cfg)
	if err != nil {
		return nil, err
	}

	httpServer, err := buildHTTPServer(cfg, components)
	if err != nil {
		components.Close()
		return nil, fmt.Errorf("failed to build HTTP server: %w", err)
	}

	appCtx, cancel := context.WithCancel(ctx)
	return &IndexerApp{
		config:     cfg.config,
		components: components,
		httpServer: httpServer,
		ctx:        appCtx,
		cancelFunc: cancel,
	}, nil
}
