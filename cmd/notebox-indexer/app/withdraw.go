package app

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/notebox/notebox-indexer/internal/app"
	"github.com/notebox/notebox-indexer/internal/withdrawal"
)

var withdrawCmd = &cobra.Command{
	Use:   "withdraw",
	Short: "Inspect and repair account withdrawals",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return cmd.Usage()
	},
}

var withdrawRemediateCmd = &cobra.Command{
	Use:   "remediate <subject-id>",
	Short: "Re-run withdrawal steps for one account",
	Long: `Re-run one or every step of the withdrawal cascade for an account and record
the outcome in the withdrawal history. Steps are NOTE_DELETE, NOTE_INDEX_DELETE
and NOTE_FIELD_INDEX_DELETE.

Examples:
  # Retry a failed index deletion
  notebox-indexer withdraw remediate 7f0c1e --config config.yaml --step NOTE_INDEX_DELETE

  # Re-run the whole cascade
  notebox-indexer withdraw remediate 7f0c1e --config config.yaml`,
	Args: cobra.ExactArgs(1),
	RunE: runWithdrawRemediate,
}

var withdrawHistoryCmd = &cobra.Command{
	Use:   "history <subject-id>",
	Short: "Print the withdrawal history of one account",
	Args:  cobra.ExactArgs(1),
	RunE:  runWithdrawHistory,
}

// remediation is the printed outcome of one step
type remediation struct {
	SubjectID string `json:"subjectId"`
	Process   string `json:"process"`
	Passed    bool   `json:"passed"`
	Error     string `json:"error,omitempty"`
}

func init() {
	withdrawRemediateCmd.Flags().String("step", "", "Step to run (default: every step in order)")
	addConfigFlag(withdrawRemediateCmd, false)
	addConfigFlag(withdrawHistoryCmd, false)

	withdrawCmd.AddCommand(withdrawRemediateCmd)
	withdrawCmd.AddCommand(withdrawHistoryCmd)
}

// parseSteps returns the steps named by the --step value
func parseSteps(step string) ([]withdrawal.Process, error) {
	if step == "" {
		return withdrawal.Processes, nil
	}
	process, err := withdrawal.ParseProcess(step)
	if err != nil {
		return nil, err
	}
	return []withdrawal.Process{process}, nil
}

func runWithdrawRemediate(cmd *cobra.Command, args []string) error {
	step, err := cmd.Flags().GetString("step")
	if err != nil {
		return fmt.Errorf("failed to get step flag: %w", err)
	}
	steps, err := parseSteps(step)
	if err != nil {
		return err
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	// The consumer is not needed to run steps by hand
	cfg.Kafka = nil
	components, err := app.BuildComponents(cmd.Context(), app.WithConfig(cfg))
	if err != nil {
		return err
	}
	defer components.Close()

	subjectID := args[0]
	results := make([]remediation, 0, len(steps))
	failed := 0
	for _, process := range steps {
		r := remediation{SubjectID: subjectID, Process: string(process), Passed: true}
		if err := components.Cascade.Remediate(cmd.Context(), subjectID, process); err != nil {
			r.Passed = false
			r.Error = err.Error()
			failed++
		}
		results = append(results, r)
	}

	if err := printJSON(cmd.OutOrStdout(), results); err != nil {
		return err
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d withdrawal steps failed", failed, len(steps))
	}
	return nil
}

func runWithdrawHistory(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	cfg.Kafka = nil
	components, err := app.BuildComponents(cmd.Context(), app.WithConfig(cfg))
	if err != nil {
		return err
	}
	defer components.Close()

	entries, err := components.Cascade.History(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("failed to read withdrawal history: %w", err)
	}
	if entries == nil {
		entries = []withdrawal.History{}
	}
	return printJSON(cmd.OutOrStdout(), entries)
}
