// Package telemetry provides OpenTelemetry instrumentation for the indexer.
package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	// SyncMetricsMeterName is the name used for the index sync metrics meter
	SyncMetricsMeterName = "github.com/notebox/notebox-indexer/sync"

	// WithdrawalMetricsMeterName is the name used for the withdrawal cascade metrics meter
	WithdrawalMetricsMeterName = "github.com/notebox/notebox-indexer/withdrawal"
)

// SyncMetrics holds the OpenTelemetry instruments for reconciliation passes
type SyncMetrics struct {
	passDuration   metric.Float64Histogram
	scanned        metric.Int64Counter
	repairs        metric.Int64Counter
	repairFailures metric.Int64Counter
}

// NewSyncMetrics creates a new SyncMetrics instance with the given meter provider.
// If provider is nil, it returns nil (no-op metrics).
func NewSyncMetrics(provider metric.MeterProvider) (*SyncMetrics, error) {
	if provider == nil {
		return nil, nil
	}

	meter := provider.Meter(SyncMetricsMeterName)

	passDuration, err := meter.Float64Histogram(
		"notebox_indexer_sync_pass_duration_seconds",
		metric.WithDescription("Duration of index reconciliation passes in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300, 900),
	)
	if err != nil {
		return nil, err
	}

	scanned, err := meter.Int64Counter(
		"notebox_indexer_sync_notes_scanned_total",
		metric.WithDescription("Number of notes classified by reconciliation passes"),
		metric.WithUnit("{note}"),
	)
	if err != nil {
		return nil, err
	}

	repairs, err := meter.Int64Counter(
		"notebox_indexer_sync_repairs_total",
		metric.WithDescription("Number of notes repaired, by drift status"),
		metric.WithUnit("{note}"),
	)
	if err != nil {
		return nil, err
	}

	repairFailures, err := meter.Int64Counter(
		"notebox_indexer_sync_repair_failures_total",
		metric.WithDescription("Number of note repairs that failed, by drift status"),
		metric.WithUnit("{note}"),
	)
	if err != nil {
		return nil, err
	}

	return &SyncMetrics{
		passDuration:   passDuration,
		scanned:        scanned,
		repairs:        repairs,
		repairFailures: repairFailures,
	}, nil
}

// RecordPass records the duration and size of one reconciliation pass
func (m *SyncMetrics) RecordPass(
	ctx context.Context, variant, mode string, scanned int, duration time.Duration, success bool,
) {
	if m == nil || m.passDuration == nil {
		return
	}

	attrs := metric.WithAttributes(
		attribute.String("variant", variant),
		attribute.String("mode", mode),
		attribute.Bool("success", success),
	)

	m.passDuration.Record(ctx, duration.Seconds(), attrs)
	m.scanned.Add(ctx, int64(scanned), attrs)
}

// RecordRepair records the outcome of one note repair
func (m *SyncMetrics) RecordRepair(ctx context.Context, variant, status string, success bool) {
	if m == nil || m.repairs == nil {
		return
	}

	attrs := metric.WithAttributes(
		attribute.String("variant", variant),
		attribute.String("status", status),
	)

	if success {
		m.repairs.Add(ctx, 1, attrs)
		return
	}
	m.repairFailures.Add(ctx, 1, attrs)
}

// WithdrawalMetrics holds the OpenTelemetry instruments for the withdrawal cascade
type WithdrawalMetrics struct {
	steps       metric.Int64Counter
	deadLetters metric.Int64Counter
}

// NewWithdrawalMetrics creates a new WithdrawalMetrics instance with the given meter provider.
// If provider is nil, it returns nil (no-op metrics).
func NewWithdrawalMetrics(provider metric.MeterProvider) (*WithdrawalMetrics, error) {
	if provider == nil {
		return nil, nil
	}

	meter := provider.Meter(WithdrawalMetricsMeterName)

	steps, err := meter.Int64Counter(
		"notebox_indexer_withdrawal_steps_total",
		metric.WithDescription("Number of withdrawal cascade steps, by process and outcome"),
		metric.WithUnit("{step}"),
	)
	if err != nil {
		return nil, err
	}

	deadLetters, err := meter.Int64Counter(
		"notebox_indexer_withdrawal_dead_letters_total",
		metric.WithDescription("Number of failed withdrawal steps forwarded to the dead-letter topic"),
		metric.WithUnit("{message}"),
	)
	if err != nil {
		return nil, err
	}

	return &WithdrawalMetrics{
		steps:       steps,
		deadLetters: deadLetters,
	}, nil
}

// RecordStep records the outcome of one cascade step
func (m *WithdrawalMetrics) RecordStep(ctx context.Context, process string, passed bool) {
	if m == nil || m.steps == nil {
		return
	}

	m.steps.Add(ctx, 1, metric.WithAttributes(
		attribute.String("process", process),
		attribute.Bool("passed", passed),
	))
}

// RecordDeadLetter records a message published to the dead-letter topic
func (m *WithdrawalMetrics) RecordDeadLetter(ctx context.Context, process string, published bool) {
	if m == nil || m.deadLetters == nil {
		return
	}

	m.deadLetters.Add(ctx, 1, metric.WithAttributes(
		attribute.String("process", process),
		attribute.Bool("published", published),
	))
}
