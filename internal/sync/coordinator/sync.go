package coordinator

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/notebox/notebox-indexer/internal/clock"
	pkgsync "github.com/notebox/notebox-indexer/internal/sync"
)

// Runner computes the window of a pass from the current time and hands it to
// the manager of one index variant.
type Runner struct {
	manager        pkgsync.Manager
	clock          clock.Clock
	minorBatchSize int
	majorBatchSize int
}

// NewRunner creates a Runner for manager with the batch size of each mode.
func NewRunner(manager pkgsync.Manager, clk clock.Clock, minorBatchSize, majorBatchSize int) *Runner {
	return &Runner{
		manager:        manager,
		clock:          clk,
		minorBatchSize: minorBatchSize,
		majorBatchSize: majorBatchSize,
	}
}

// Variant returns the index variant the runner reconciles
func (r *Runner) Variant() pkgsync.Variant {
	return r.manager.Variant()
}

// Sink runs one pass of the given mode over the window computed from now.
func (r *Runner) Sink(ctx context.Context, mode pkgsync.Mode) (*pkgsync.Result, error) {
	now := r.clock.Now()
	switch mode {
	case pkgsync.ModeMinor:
		start, end := MinorWindow(now)
		return r.manager.SinkCurrentRecords(ctx, r.minorBatchSize, start, end)
	case pkgsync.ModeMajor:
		return r.manager.SinkAllRecords(ctx, r.majorBatchSize, MajorWindowStart(now))
	default:
		return nil, fmt.Errorf("unknown sync mode %q", mode)
	}
}

// RunMinorSink runs a minor pass. The outcome is only logged.
func (r *Runner) RunMinorSink(ctx context.Context) {
	r.run(ctx, pkgsync.ModeMinor)
}

// RunMajorSink runs a major pass. The outcome is only logged.
func (r *Runner) RunMajorSink(ctx context.Context) {
	r.run(ctx, pkgsync.ModeMajor)
}

func (r *Runner) run(ctx context.Context, mode pkgsync.Mode) {
	if _, err := r.Sink(ctx, mode); err != nil {
		slog.Warn("Scheduled sync did not complete",
			"variant", r.Variant(),
			"mode", mode,
			"error", err)
	}
}
