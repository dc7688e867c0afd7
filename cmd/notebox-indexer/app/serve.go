package app

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/notebox/notebox-indexer/internal/app"
	"github.com/notebox/notebox-indexer/internal/config"
	"github.com/notebox/notebox-indexer/internal/telemetry"
	"github.com/notebox/notebox-indexer/internal/versions"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the scheduled sync jobs and the withdrawal consumer",
	Long: `Run the indexer until interrupted.

The configuration file (--config) specifies:
- The note database and the search engine
- The minor and major sync jobs of both indexes
- The Kafka topics of account withdrawals (optional)
- Telemetry export settings

An ops HTTP server exposes probes, metrics and on-demand admin passes.`,
	RunE: runServe,
}

const (
	defaultGracefulTimeout = 30 * time.Second // Kubernetes-friendly shutdown time
)

func init() {
	serveCmd.Flags().String("address", "", "Address of the ops server (overrides server.address)")
	serveCmd.Flags().String("config", "", "Path to configuration file (YAML format, required)")
	serveCmd.Flags().Bool("initial-sync", false, "Run every enabled sync job once at startup")

	for _, name := range []string{"address", "config", "initial-sync"} {
		if err := viper.BindPFlag(name, serveCmd.Flags().Lookup(name)); err != nil {
			panic(fmt.Sprintf("failed to bind %s flag: %v", name, err))
		}
	}
	viper.SetEnvPrefix(config.EnvPrefix)
	viper.AutomaticEnv()
}

func runServe(_ *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	configPath := viper.GetString("config")
	if configPath == "" {
		return fmt.Errorf("config is required")
	}
	cfg, err := config.LoadConfig(config.WithConfigPath(configPath))
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	slog.Info("Loaded configuration", "path", configPath)

	if cfg.Telemetry != nil && cfg.Telemetry.ServiceVersion == "" {
		cfg.Telemetry.ServiceVersion = versions.Version
	}
	tel, err := telemetry.New(ctx, telemetry.WithTelemetryConfig(cfg.Telemetry))
	if err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tel.Shutdown(shutdownCtx); err != nil {
			slog.Error("Failed to shut down telemetry", "error", err)
		}
	}()

	opts := []app.IndexerAppOptions{
		app.WithConfig(cfg),
		app.WithInitialSync(viper.GetBool("initial-sync")),
		app.WithMeterProvider(tel.MeterProvider()),
		app.WithTracerProvider(tel.TracerProvider()),
	}
	if address := viper.GetString("address"); address != "" {
		opts = append(opts, app.WithAddress(address))
	}
	if h := tel.MetricsHandler(); h != nil {
		opts = append(opts, app.WithMetricsHandler(h))
	}

	indexer, err := app.NewIndexerApp(context.WithoutCancel(ctx), opts...)
	if err != nil {
		return fmt.Errorf("failed to create indexer: %w", err)
	}

	errChan := make(chan error, 1)
	go func() {
		errChan <- indexer.Start()
	}()

	select {
	case err := <-errChan:
		// A worker failed before any signal
		if stopErr := indexer.Stop(defaultGracefulTimeout); stopErr != nil {
			slog.Error("Failed to stop indexer", "error", stopErr)
		}
		return err
	case <-ctx.Done():
		slog.Info("Received shutdown signal")
	}

	if err := indexer.Stop(defaultGracefulTimeout); err != nil {
		return err
	}
	return <-errChan
}
