package coordinator

import (
	"context"
	"fmt"
	"log/slog"
	gosync "sync"
	"time"

	"github.com/notebox/notebox-indexer/internal/clock"
	pkgsync "github.com/notebox/notebox-indexer/internal/sync"
)

// Coordinator runs the scheduled sync jobs of every index variant
type Coordinator interface {
	// Start runs every job on its own timer.
	// Blocks until the context is cancelled or Stop is called
	Start(ctx context.Context) error

	// Stop cancels the jobs and waits for the in-flight passes to return
	Stop() error
}

// Job is one recurring pass of a variant in a mode
type Job struct {
	Variant  pkgsync.Variant
	Mode     pkgsync.Mode
	Interval time.Duration
}

func (j Job) String() string {
	return fmt.Sprintf("%s/%s", j.Variant, j.Mode)
}

type defaultCoordinator struct {
	runners    map[pkgsync.Variant]*Runner
	jobs       []Job
	clock      clock.Clock
	initialRun bool

	mu         gosync.Mutex
	started    bool
	cancelFunc context.CancelFunc
	done       chan struct{}
}

// Option is a function that configures the coordinator
type Option func(*defaultCoordinator)

// WithInitialRun runs every job once as soon as the coordinator starts
func WithInitialRun() Option {
	return func(c *defaultCoordinator) {
		c.initialRun = true
	}
}

// WithClock sets the clock used to align runs on interval boundaries
func WithClock(clk clock.Clock) Option {
	return func(c *defaultCoordinator) {
		c.clock = clk
	}
}

// New creates a coordinator running jobs with the runner of their variant.
func New(runners []*Runner, jobs []Job, opts ...Option) (Coordinator, error) {
	c := &defaultCoordinator{
		runners: make(map[pkgsync.Variant]*Runner, len(runners)),
		jobs:    jobs,
		clock:   clock.Real{},
		done:    make(chan struct{}),
	}
	for _, r := range runners {
		c.runners[r.Variant()] = r
	}
	for _, job := range jobs {
		if c.runners[job.Variant] == nil {
			return nil, fmt.Errorf("job %s: no runner for variant %s", job, job.Variant)
		}
		if job.Mode != pkgsync.ModeMinor && job.Mode != pkgsync.ModeMajor {
			return nil, fmt.Errorf("job %s: unknown mode", job)
		}
		if job.Interval <= 0 {
			return nil, fmt.Errorf("job %s: interval must be positive", job)
		}
	}

	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

// Start runs every job until ctx is cancelled or Stop is called. A
// coordinator can be started once.
func (c *defaultCoordinator) Start(ctx context.Context) error {
	slog.Info("Starting sync coordinator", "job_count", len(c.jobs))

	c.mu.Lock()
	if c.started {
		c.mu.Unlock()
		return fmt.Errorf("sync coordinator already started")
	}
	c.started = true
	coordCtx, cancel := context.WithCancel(ctx)
	c.cancelFunc = cancel
	c.mu.Unlock()
	defer func() {
		cancel()
		close(c.done)
		slog.Info("Sync coordinator shut down")
	}()

	var wg gosync.WaitGroup
	for _, job := range c.jobs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.runJob(coordCtx, job)
		}()
	}

	<-coordCtx.Done()
	slog.Info("Sync coordinator stopping")
	wg.Wait()
	return nil
}

// Stop gracefully stops the coordinator
func (c *defaultCoordinator) Stop() error {
	c.mu.Lock()
	cancel := c.cancelFunc
	c.mu.Unlock()

	if cancel != nil {
		slog.Info("Stopping sync coordinator")
		cancel()
		<-c.done
	}
	return nil
}

// runJob runs job at every multiple of its interval since the Unix epoch, so
// an hourly job fires on the hour whatever the start time.
func (c *defaultCoordinator) runJob(ctx context.Context, job Job) {
	runner := c.runners[job.Variant]
	slog.Info("Scheduled sync job", "job", job.String(), "interval", job.Interval.String())

	if c.initialRun {
		c.runOnce(ctx, runner, job)
	}

	timer := time.NewTimer(c.untilNextRun(job.Interval))
	defer timer.Stop()

	for {
		select {
		case <-timer.C:
			c.runOnce(ctx, runner, job)
			timer.Reset(c.untilNextRun(job.Interval))
		case <-ctx.Done():
			return
		}
	}
}

func (*defaultCoordinator) runOnce(ctx context.Context, runner *Runner, job Job) {
	if ctx.Err() != nil {
		return
	}
	slog.Debug("Running sync job", "job", job.String())
	switch job.Mode {
	case pkgsync.ModeMinor:
		runner.RunMinorSink(ctx)
	case pkgsync.ModeMajor:
		runner.RunMajorSink(ctx)
	}
}

func (c *defaultCoordinator) untilNextRun(interval time.Duration) time.Duration {
	now := c.clock.Now()
	next := now.Truncate(interval).Add(interval)
	return next.Sub(now)
}
