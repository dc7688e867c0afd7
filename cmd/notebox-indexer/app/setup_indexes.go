package app

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/notebox/notebox-indexer/internal/app"
	"github.com/notebox/notebox-indexer/internal/kafka"
	"github.com/notebox/notebox-indexer/internal/search"
	"github.com/notebox/notebox-indexer/internal/versions"
)

var setupIndexesCmd = &cobra.Command{
	Use:   "setup-indexes",
	Short: "Create the search indexes and Kafka topics",
	Long: `Create both search indexes with their primary keys and filterable, sortable and
faceted attributes, then create the withdrawal and dead-letter topics when a kafka
section is configured. Existing indexes and topics are left in place.`,
	RunE: runSetupIndexes,
}

func init() {
	setupIndexesCmd.Flags().Int32("partitions", 3, "Partitions of newly created topics")
	setupIndexesCmd.Flags().Int16("replication-factor", -1, "Replication factor of newly created topics (-1 = broker default)")
	addConfigFlag(setupIndexesCmd, false)
}

func runSetupIndexes(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	partitions, err := cmd.Flags().GetInt32("partitions")
	if err != nil {
		return fmt.Errorf("failed to get partitions flag: %w", err)
	}
	replication, err := cmd.Flags().GetInt16("replication-factor")
	if err != nil {
		return fmt.Errorf("failed to get replication-factor flag: %w", err)
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	kafkaCfg := cfg.Kafka
	cfg.Kafka = nil
	components, err := app.BuildComponents(ctx, app.WithConfig(cfg))
	if err != nil {
		return err
	}
	defer components.Close()

	version, err := components.SearchClient.Version(ctx)
	if err != nil {
		return fmt.Errorf("failed to reach search engine: %w", err)
	}
	if !versions.AtLeast(version, search.MinEngineVersion) {
		slog.Warn("Search engine is older than the supported minimum",
			"version", version, "minimum", search.MinEngineVersion)
	}

	if err := components.NoteIndex.EnsureIndex(ctx); err != nil {
		return err
	}
	slog.Info("Index ready", "index", components.NoteIndex.Name())
	if err := components.FieldIndex.EnsureIndex(ctx); err != nil {
		return err
	}
	slog.Info("Index ready", "index", components.FieldIndex.Name())

	if kafkaCfg == nil {
		return nil
	}
	topics := []string{kafkaCfg.GetWithdrawalTopic(), kafkaCfg.GetDeadLetterTopic()}
	if err := kafka.EnsureTopics(ctx, kafkaCfg.Brokers, partitions, replication, topics...); err != nil {
		return err
	}
	slog.Info("Topics ready", "topics", topics)
	return nil
}
