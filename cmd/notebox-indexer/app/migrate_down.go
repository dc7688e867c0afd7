package app

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/notebox/notebox-indexer/database"
)

var migrateDownCmd = &cobra.Command{
	Use:   "down",
	Short: "Migrate the database down",
	Long: `Migrate the database schema down by reverting migrations.
WARNING: This operation can result in data loss. Use with caution.

Examples:
  # Migrate down by 1 step
  notebox-indexer migrate down --config config.yaml --num-steps 1 --yes

  # Migrate down all the way (WARNING: destroys all data)
  notebox-indexer migrate down --config config.yaml --yes`,
	RunE: runMigrateDown,
}

func runMigrateDown(cmd *cobra.Command, _ []string) error {
	target, err := newMigrationTarget(cmd)
	if err != nil {
		return err
	}

	if !target.yes && !confirm(cmd.InOrStdin(), cmd.OutOrStdout(), migrateDownPrompt(target)) {
		slog.Info("Migration cancelled")
		return fmt.Errorf("migration cancelled by user")
	}

	if target.numSteps == 0 {
		slog.Warn("Migrating down all steps - this will remove all schema!")
	} else {
		slog.Info("Migrating down", "num_steps", target.numSteps)
	}
	if err := database.MigrateDown(target.connString, target.numSteps); err != nil {
		return err
	}

	slog.Info("Migration completed successfully")
	displayMigrationVersion(target.connString)
	return nil
}

func migrateDownPrompt(target *migrationTarget) string {
	if target.numSteps == 0 {
		return fmt.Sprintf("WARNING: This will migrate %s down ALL steps and may result in complete data loss. Continue?",
			target.display)
	}
	return fmt.Sprintf("WARNING: This will migrate %s down %d step(s) and may result in data loss. Continue?",
		target.display, target.numSteps)
}
