package coordinator

import (
	"github.com/notebox/notebox-indexer/internal/clock"
	"github.com/notebox/notebox-indexer/internal/config"
	pkgsync "github.com/notebox/notebox-indexer/internal/sync"
)

var modes = []pkgsync.Mode{pkgsync.ModeMinor, pkgsync.ModeMajor}

// JobsFromConfig returns the enabled jobs of the given variants
func JobsFromConfig(cfg *config.SyncConfig, variants ...pkgsync.Variant) []Job {
	var jobs []Job
	for _, variant := range variants {
		for _, mode := range modes {
			jobCfg := cfg.Job(string(variant), string(mode))
			if !jobCfg.IsEnabled() {
				continue
			}
			jobs = append(jobs, Job{
				Variant:  variant,
				Mode:     mode,
				Interval: jobCfg.GetInterval(string(mode)),
			})
		}
	}
	return jobs
}

// NewRunnerFromConfig creates the runner of manager with the configured batch sizes
func NewRunnerFromConfig(manager pkgsync.Manager, clk clock.Clock, cfg *config.SyncConfig) *Runner {
	variant := string(manager.Variant())
	return NewRunner(manager, clk,
		cfg.Job(variant, config.ModeMinor).GetBatchSize(config.ModeMinor),
		cfg.Job(variant, config.ModeMajor).GetBatchSize(config.ModeMajor),
	)
}
