package app

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/notebox/notebox-indexer/database"
)

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply pending database migrations",
	Long: `Apply pending database migrations to bring the schema up to date.
This command reads the database connection parameters from the config file
and applies every migration that hasn't been run yet.`,
	RunE: runMigrateUp,
}

func runMigrateUp(cmd *cobra.Command, _ []string) error {
	target, err := newMigrationTarget(cmd)
	if err != nil {
		return err
	}

	if !target.yes {
		prompt := fmt.Sprintf("About to apply migrations to database %s. Continue?", target.display)
		if !confirm(cmd.InOrStdin(), cmd.OutOrStdout(), prompt) {
			slog.Info("Migration cancelled by user")
			return nil
		}
	}

	slog.Info("Applying database migrations...", "num_steps", target.numSteps)
	if err := database.MigrateUp(target.connString, target.numSteps); err != nil {
		return err
	}

	displayMigrationVersion(target.connString)
	return nil
}
