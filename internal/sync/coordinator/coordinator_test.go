package coordinator

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/mock/gomock"

	"github.com/notebox/notebox-indexer/internal/clock"
	"github.com/notebox/notebox-indexer/internal/config"
	"github.com/notebox/notebox-indexer/internal/sync"
	syncmocks "github.com/notebox/notebox-indexer/internal/sync/mocks"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

var threeAM = clock.Fixed(time.Date(2025, 1, 15, 3, 0, 0, 0, time.UTC))

func newMockManager(ctrl *gomock.Controller, variant sync.Variant) *syncmocks.MockManager {
	m := syncmocks.NewMockManager(ctrl)
	m.EXPECT().Variant().Return(variant).AnyTimes()
	return m
}

func TestRunner_Sink(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	manager := newMockManager(ctrl, sync.VariantNotes)
	runner := NewRunner(manager, threeAM, 50, 500)
	ctx := context.Background()

	t.Run("minor", func(t *testing.T) {
		manager.EXPECT().
			SinkCurrentRecords(ctx, 50,
				time.Date(2025, 1, 15, 1, 50, 0, 0, time.UTC),
				time.Date(2025, 1, 15, 2, 50, 0, 0, time.UTC)).
			Return(&sync.Result{Mode: sync.ModeMinor, Scanned: 3}, nil)

		result, err := runner.Sink(ctx, sync.ModeMinor)
		require.NoError(t, err)
		assert.Equal(t, 3, result.Scanned)
	})

	t.Run("major", func(t *testing.T) {
		manager.EXPECT().
			SinkAllRecords(ctx, 500, time.Date(2025, 1, 15, 0, 50, 0, 0, time.UTC)).
			Return(&sync.Result{Mode: sync.ModeMajor}, nil)

		result, err := runner.Sink(ctx, sync.ModeMajor)
		require.NoError(t, err)
		assert.Equal(t, sync.ModeMajor, result.Mode)
	})

	t.Run("unknown mode", func(t *testing.T) {
		_, err := runner.Sink(ctx, sync.Mode("weekly"))
		assert.EqualError(t, err, `unknown sync mode "weekly"`)
	})

	t.Run("entry points swallow errors", func(t *testing.T) {
		manager.EXPECT().SinkCurrentRecords(gomock.Any(), 50, gomock.Any(), gomock.Any()).
			Return(nil, errors.New("db down"))
		manager.EXPECT().SinkAllRecords(gomock.Any(), 500, gomock.Any()).
			Return(&sync.Result{}, nil)

		runner.RunMinorSink(ctx)
		runner.RunMajorSink(ctx)
	})
}

func TestNew(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	runner := NewRunner(newMockManager(ctrl, sync.VariantNotes), threeAM, 1, 1)

	tests := []struct {
		name    string
		jobs    []Job
		wantErr string
	}{
		{
			name: "valid jobs",
			jobs: []Job{
				{Variant: sync.VariantNotes, Mode: sync.ModeMinor, Interval: time.Hour},
				{Variant: sync.VariantNotes, Mode: sync.ModeMajor, Interval: 24 * time.Hour},
			},
		},
		{
			name:    "job without runner",
			jobs:    []Job{{Variant: sync.VariantFields, Mode: sync.ModeMinor, Interval: time.Hour}},
			wantErr: "job fields/minor: no runner for variant fields",
		},
		{
			name:    "unknown mode",
			jobs:    []Job{{Variant: sync.VariantNotes, Mode: "weekly", Interval: time.Hour}},
			wantErr: "job notes/weekly: unknown mode",
		},
		{
			name:    "zero interval",
			jobs:    []Job{{Variant: sync.VariantNotes, Mode: sync.ModeMinor}},
			wantErr: "job notes/minor: interval must be positive",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			c, err := New([]*Runner{runner}, tt.jobs)
			if tt.wantErr != "" {
				assert.EqualError(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, c)
		})
	}
}

func TestCoordinator_Stop_BeforeStart(t *testing.T) {
	t.Parallel()

	c, err := New(nil, nil)
	require.NoError(t, err)
	assert.NoError(t, c.Stop())
}

func TestCoordinator_StartTwice(t *testing.T) {
	t.Parallel()

	c, err := New(nil, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, c.Start(ctx))

	assert.NotPanics(t, func() {
		err = c.Start(context.Background())
	})
	assert.EqualError(t, err, "sync coordinator already started")
	assert.NoError(t, c.Stop())
}

// startCoordinator runs c in the background and returns a function waiting
// for Start to return.
func startCoordinator(t *testing.T, ctx context.Context, c Coordinator) func() {
	t.Helper()
	errCh := make(chan error, 1)
	go func() {
		errCh <- c.Start(ctx)
	}()
	return func() {
		select {
		case err := <-errCh:
			assert.NoError(t, err)
		case <-time.After(5 * time.Second):
			t.Fatal("coordinator did not stop")
		}
	}
}

func TestCoordinator_RunsJobsOnTheirTimers(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	notes := newMockManager(ctrl, sync.VariantNotes)
	fields := newMockManager(ctrl, sync.VariantFields)

	minorRuns := make(chan struct{}, 100)
	majorRuns := make(chan struct{}, 100)
	notes.EXPECT().SinkCurrentRecords(gomock.Any(), 10, gomock.Any(), gomock.Any()).
		DoAndReturn(func(context.Context, int, time.Time, time.Time) (*sync.Result, error) {
			minorRuns <- struct{}{}
			return &sync.Result{}, nil
		}).MinTimes(2)
	fields.EXPECT().SinkAllRecords(gomock.Any(), 20, gomock.Any()).
		DoAndReturn(func(context.Context, int, time.Time) (*sync.Result, error) {
			majorRuns <- struct{}{}
			return nil, errors.New("engine down")
		}).MinTimes(2)

	c, err := New(
		[]*Runner{NewRunner(notes, clock.Real{}, 10, 10), NewRunner(fields, clock.Real{}, 20, 20)},
		[]Job{
			{Variant: sync.VariantNotes, Mode: sync.ModeMinor, Interval: 10 * time.Millisecond},
			{Variant: sync.VariantFields, Mode: sync.ModeMajor, Interval: 15 * time.Millisecond},
		},
	)
	require.NoError(t, err)
	wait := startCoordinator(t, context.Background(), c)

	for range 2 {
		waitFor(t, minorRuns)
		waitFor(t, majorRuns)
	}

	require.NoError(t, c.Stop())
	wait()
}

func TestCoordinator_InitialRunAndContextCancel(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	notes := newMockManager(ctrl, sync.VariantNotes)
	runs := make(chan struct{}, 1)
	notes.EXPECT().SinkAllRecords(gomock.Any(), 7, time.Date(2025, 1, 15, 0, 50, 0, 0, time.UTC)).
		DoAndReturn(func(context.Context, int, time.Time) (*sync.Result, error) {
			runs <- struct{}{}
			return &sync.Result{}, nil
		})

	c, err := New(
		[]*Runner{NewRunner(notes, threeAM, 1, 7)},
		[]Job{{Variant: sync.VariantNotes, Mode: sync.ModeMajor, Interval: 24 * time.Hour}},
		WithInitialRun(),
	)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	wait := startCoordinator(t, ctx, c)
	waitFor(t, runs)

	cancel()
	wait()
	assert.NoError(t, c.Stop())
}

func TestJobsFromConfig(t *testing.T) {
	t.Parallel()

	disabled := false
	cfg := &config.SyncConfig{
		Notes: &config.VariantSyncConfig{
			Minor: &config.JobConfig{Interval: "30m", BatchSize: 25},
			Major: &config.JobConfig{Enabled: &disabled},
		},
	}

	jobs := JobsFromConfig(cfg, sync.VariantNotes, sync.VariantFields)

	assert.Equal(t, []Job{
		{Variant: sync.VariantNotes, Mode: sync.ModeMinor, Interval: 30 * time.Minute},
		{Variant: sync.VariantFields, Mode: sync.ModeMinor, Interval: time.Hour},
		{Variant: sync.VariantFields, Mode: sync.ModeMajor, Interval: 24 * time.Hour},
	}, jobs)

	ctrl := gomock.NewController(t)
	runner := NewRunnerFromConfig(newMockManager(ctrl, sync.VariantNotes), threeAM, cfg)
	assert.Equal(t, 25, runner.minorBatchSize)
	assert.Equal(t, 500, runner.majorBatchSize)
}

func waitFor(t *testing.T, ch <-chan struct{}) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for a sync run")
	}
}
