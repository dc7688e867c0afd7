package app

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/notebox/notebox-indexer/internal/app"
	pkgsync "github.com/notebox/notebox-indexer/internal/sync"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Reconcile the search indexes with the note store",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return cmd.Usage()
	},
}

var syncRunCmd = &cobra.Command{
	Use:   "run",
	Short: "Run one sync pass and exit",
	Long: `Run one minor or major sync pass over one or both indexes and print the results.

A minor pass covers the notes modified in the previous hour. A major pass covers
every note modified before the start of the current day.

Examples:
  # Repair the per-field index over the last hour
  notebox-indexer sync run --config config.yaml --variant fields --mode minor

  # Full pass over both indexes
  notebox-indexer sync run --config config.yaml --mode major`,
	RunE: runSync,
}

// syncResult is the printed outcome of one pass
type syncResult struct {
	Variant  string         `json:"variant"`
	Mode     string         `json:"mode"`
	Total    int64          `json:"total"`
	Scanned  int            `json:"scanned"`
	Repaired map[string]int `json:"repaired"`
	Failed   int            `json:"failed"`
	Duration string         `json:"duration"`
	Error    string         `json:"error,omitempty"`
}

func init() {
	syncRunCmd.Flags().String("variant", "all", "Index to reconcile (notes, fields or all)")
	syncRunCmd.Flags().String("mode", string(pkgsync.ModeMinor), "Pass mode (minor or major)")
	addConfigFlag(syncRunCmd, false)

	syncCmd.AddCommand(syncRunCmd)
}

// parseSyncTargets validates the --variant and --mode values
func parseSyncTargets(variant, mode string) ([]pkgsync.Variant, pkgsync.Mode, error) {
	m := pkgsync.Mode(mode)
	if m != pkgsync.ModeMinor && m != pkgsync.ModeMajor {
		return nil, "", fmt.Errorf("unknown sync mode %q", mode)
	}
	switch pkgsync.Variant(variant) {
	case pkgsync.VariantNotes, pkgsync.VariantFields:
		return []pkgsync.Variant{pkgsync.Variant(variant)}, m, nil
	case "all", "":
		return []pkgsync.Variant{pkgsync.VariantNotes, pkgsync.VariantFields}, m, nil
	}
	return nil, "", fmt.Errorf("unknown sync variant %q", variant)
}

func newSyncResult(variant pkgsync.Variant, mode pkgsync.Mode, result *pkgsync.Result, err error) syncResult {
	out := syncResult{Variant: string(variant), Mode: string(mode), Repaired: map[string]int{}}
	if err != nil {
		out.Error = err.Error()
		return out
	}
	out.Total = result.Total
	out.Scanned = result.Scanned
	out.Failed = result.Failed
	out.Duration = result.Duration.String()
	for status, n := range result.Repaired {
		out.Repaired[status.String()] = n
	}
	return out
}

func runSync(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	variantFlag, err := cmd.Flags().GetString("variant")
	if err != nil {
		return fmt.Errorf("failed to get variant flag: %w", err)
	}
	modeFlag, err := cmd.Flags().GetString("mode")
	if err != nil {
		return fmt.Errorf("failed to get mode flag: %w", err)
	}
	variants, mode, err := parseSyncTargets(variantFlag, modeFlag)
	if err != nil {
		return err
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	components, err := app.BuildComponents(ctx, app.WithConfig(cfg))
	if err != nil {
		return err
	}
	defer components.Close()

	return sinkAll(ctx, cmd, components, variants, mode)
}

func sinkAll(
	ctx context.Context, cmd *cobra.Command, components *app.Components, variants []pkgsync.Variant, mode pkgsync.Mode,
) error {
	results := make([]syncResult, 0, len(variants))
	failed := false
	for _, variant := range variants {
		runner := components.Runner(variant)
		if runner == nil {
			return fmt.Errorf("no runner for variant %s", variant)
		}
		result, err := runner.Sink(ctx, mode)
		if err != nil {
			slog.Error("Sync pass failed", "variant", variant, "mode", mode, "error", err)
			failed = true
		}
		results = append(results, newSyncResult(variant, mode, result, err))
	}

	if err := printJSON(cmd.OutOrStdout(), results); err != nil {
		return err
	}
	if failed {
		return fmt.Errorf("one or more sync passes failed")
	}
	return nil
}
