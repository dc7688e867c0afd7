package sync

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/notebox/notebox-indexer/internal/otel"
	"github.com/notebox/notebox-indexer/internal/records"
	"github.com/notebox/notebox-indexer/internal/telemetry"
)

// TracerName is the name of the tracer of sync passes
const TracerName = "github.com/notebox/notebox-indexer/sync"

// Variant names a search index kept in sync with the note store.
type Variant string

const (
	// VariantNotes is the whole-note index
	VariantNotes Variant = "notes"
	// VariantFields is the decomposed per-field index
	VariantFields Variant = "fields"
)

// Mode names the kind of reconciliation pass.
type Mode string

const (
	// ModeMinor reconciles notes modified inside a recent window
	ModeMinor Mode = "minor"
	// ModeMajor reconciles every note modified before a cutoff
	ModeMajor Mode = "major"
)

// Result summarizes one reconciliation pass
type Result struct {
	Variant Variant
	Mode    Mode
	// Total is the number of notes the pass was expected to scan.
	Total    int64
	Scanned  int
	Repaired map[DriftStatus]int
	Failed   int
	Duration time.Duration
}

// TotalRepaired returns the number of successful repairs across statuses.
func (r *Result) TotalRepaired() int {
	n := 0
	for _, c := range r.Repaired {
		n += c
	}
	return n
}

// Manager runs reconciliation passes for one index variant.
//
//go:generate mockgen -destination=mocks/mock_manager.go -package=mocks github.com/notebox/notebox-indexer/internal/sync Manager
type Manager interface {
	// Variant returns the index this manager reconciles.
	Variant() Variant

	// SinkCurrentRecords reconciles the notes modified in [start, end),
	// batchSize notes at a time.
	SinkCurrentRecords(ctx context.Context, batchSize int, start, end time.Time) (*Result, error)

	// SinkAllRecords reconciles every note modified strictly before start,
	// batchSize notes at a time.
	SinkAllRecords(ctx context.Context, batchSize int, start time.Time) (*Result, error)
}

// Repairer brings the index back in line with the note store for one note.
type Repairer func(ctx context.Context, noteID string) error

// Strategy supplies everything variant specific to the generic pass: how to
// read projections of type P, how to classify a page of them and how to
// repair each drift status.
type Strategy[P any] struct {
	Variant Variant

	CountBetween func(ctx context.Context, start, end time.Time) (int64, error)
	CountBefore  func(ctx context.Context, cutoff time.Time) (int64, error)
	FindBetween  func(ctx context.Context, start, end time.Time, page records.Page) ([]P, error)
	FindBefore   func(ctx context.Context, cutoff time.Time, page records.Page) ([]P, error)

	// Classify loads the index state of page and classifies every note.
	Classify func(ctx context.Context, page []P) (Classification, error)

	// Statuses lists every status Classify can emit.
	Statuses []DriftStatus
	// Repairers holds one Repairer per entry of Statuses.
	Repairers map[DriftStatus]Repairer
}

func (s *Strategy[P]) validate() error {
	if s.Variant == "" {
		return fmt.Errorf("strategy variant is required")
	}
	if s.CountBetween == nil || s.CountBefore == nil || s.FindBetween == nil || s.FindBefore == nil {
		return fmt.Errorf("strategy %s: count and find functions are required", s.Variant)
	}
	if s.Classify == nil {
		return fmt.Errorf("strategy %s: classify function is required", s.Variant)
	}
	for _, status := range s.Statuses {
		if s.Repairers[status] == nil {
			return fmt.Errorf("strategy %s: no repairer for status %s", s.Variant, status)
		}
	}
	return nil
}

// Option configures a Manager
type Option func(*options)

type options struct {
	metrics *telemetry.SyncMetrics
	tracer  trace.Tracer
}

// WithMetrics records pass and repair metrics
func WithMetrics(m *telemetry.SyncMetrics) Option {
	return func(o *options) {
		o.metrics = m
	}
}

// WithTracer records one span per pass
func WithTracer(tracer trace.Tracer) Option {
	return func(o *options) {
		o.tracer = tracer
	}
}

type recordSyncManager[P any] struct {
	strategy Strategy[P]
	metrics  *telemetry.SyncMetrics
	tracer   trace.Tracer
}

// NewManager creates a Manager running the generic pass with strategy.
func NewManager[P any](strategy Strategy[P], opts ...Option) (Manager, error) {
	if err := strategy.validate(); err != nil {
		return nil, err
	}
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	return &recordSyncManager[P]{strategy: strategy, metrics: o.metrics, tracer: o.tracer}, nil
}

func (m *recordSyncManager[P]) Variant() Variant {
	return m.strategy.Variant
}

func (m *recordSyncManager[P]) SinkCurrentRecords(
	ctx context.Context, batchSize int, start, end time.Time,
) (*Result, error) {
	return m.sink(ctx, ModeMinor, batchSize,
		func(ctx context.Context) (int64, error) {
			return m.strategy.CountBetween(ctx, start, end)
		},
		func(ctx context.Context, page records.Page) ([]P, error) {
			return m.strategy.FindBetween(ctx, start, end, page)
		},
		"start", start, "end", end)
}

func (m *recordSyncManager[P]) SinkAllRecords(ctx context.Context, batchSize int, start time.Time) (*Result, error) {
	return m.sink(ctx, ModeMajor, batchSize,
		func(ctx context.Context) (int64, error) {
			return m.strategy.CountBefore(ctx, start)
		},
		func(ctx context.Context, page records.Page) ([]P, error) {
			return m.strategy.FindBefore(ctx, start, page)
		},
		"before", start)
}

// sink counts the candidate notes, then classifies and repairs them page by
// page in ascending id order until the count is exhausted.
func (m *recordSyncManager[P]) sink(
	ctx context.Context,
	mode Mode,
	batchSize int,
	count func(context.Context) (int64, error),
	find func(context.Context, records.Page) ([]P, error),
	windowAttrs ...any,
) (result *Result, err error) {
	if batchSize <= 0 {
		return nil, fmt.Errorf("batch size must be positive, got %d", batchSize)
	}

	ctx, span := otel.StartSpan(ctx, m.tracer, "sync.Pass", trace.WithAttributes(
		otel.AttrSyncVariant.String(string(m.strategy.Variant)),
		otel.AttrSyncMode.String(string(mode)),
		otel.AttrBatchSize.Int(batchSize),
	))
	defer span.End()

	startTime := time.Now()
	result = &Result{
		Variant:  m.strategy.Variant,
		Mode:     mode,
		Repaired: make(map[DriftStatus]int),
	}
	logAttrs := append([]any{"variant", result.Variant, "mode", mode}, windowAttrs...)

	defer func() {
		result.Duration = time.Since(startTime)
		span.SetAttributes(
			otel.AttrScanned.Int(result.Scanned),
			otel.AttrRepaired.Int(result.TotalRepaired()),
			otel.AttrFailed.Int(result.Failed),
		)
		otel.RecordError(span, err)
		m.metrics.RecordPass(ctx, string(result.Variant), string(mode), result.Scanned, result.Duration, err == nil)
		if err != nil {
			slog.Error("Sync pass failed", append(logAttrs,
				"scanned", result.Scanned,
				"failed", result.Failed,
				"error", err)...)
			return
		}
		slog.Info("Sync pass completed", append(logAttrs,
			"total", result.Total,
			"scanned", result.Scanned,
			"repaired", result.TotalRepaired(),
			"failed", result.Failed,
			"duration", result.Duration.String())...)
	}()

	result.Total, err = count(ctx)
	if err != nil {
		return result, fmt.Errorf("failed to count %s candidates: %w", result.Variant, err)
	}
	slog.Debug("Sync pass started", append(logAttrs, "total", result.Total, "batch_size", batchSize)...)

	for page := (records.Page{Size: batchSize}); int64(result.Scanned) < result.Total; page = page.Next() {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		batch, err := find(ctx, page)
		if err != nil {
			return result, fmt.Errorf("failed to fetch page %d: %w", page.Number, err)
		}
		if len(batch) == 0 {
			break
		}

		classification, err := m.strategy.Classify(ctx, batch)
		if err != nil {
			return result, fmt.Errorf("failed to classify page %d: %w", page.Number, err)
		}
		m.repair(ctx, classification, result)
		result.Scanned += len(batch)

		if len(batch) < batchSize {
			break
		}
	}
	return result, nil
}

// repair runs the repairer of every classified note. A failed repair is
// logged and counted and never stops the remaining repairs.
func (m *recordSyncManager[P]) repair(ctx context.Context, classification Classification, result *Result) {
	for _, status := range Statuses {
		noteIDs := classification[status]
		if len(noteIDs) == 0 {
			continue
		}
		repairer := m.strategy.Repairers[status]
		for _, noteID := range noteIDs {
			var err error
			if repairer == nil {
				err = fmt.Errorf("no repairer for status %s", status)
			} else {
				err = repairer(ctx, noteID)
			}
			if err != nil {
				slog.Error("Failed to repair note",
					"variant", result.Variant,
					"status", status.String(),
					"note_id", noteID,
					"error", err)
				result.Failed++
				m.metrics.RecordRepair(ctx, string(result.Variant), status.String(), false)
				continue
			}
			slog.Debug("Repaired note", "variant", result.Variant, "status", status.String(), "note_id", noteID)
			result.Repaired[status]++
			m.metrics.RecordRepair(ctx, string(result.Variant), status.String(), true)
		}
	}
}
