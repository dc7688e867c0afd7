// Package withdrawal runs the deletion cascade of a withdrawn account: the
// subject's notes, then its whole-note documents, then its per-field
// documents. Every step is isolated, recorded in the history ledger and, on
// failure, forwarded to the dead-letter channel.
package withdrawal

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/notebox/notebox-indexer/internal/clock"
	"github.com/notebox/notebox-indexer/internal/ids"
	"github.com/notebox/notebox-indexer/internal/kafka"
	"github.com/notebox/notebox-indexer/internal/otel"
	"github.com/notebox/notebox-indexer/internal/records"
	"github.com/notebox/notebox-indexer/internal/search"
	"github.com/notebox/notebox-indexer/internal/search/fieldindex"
	"github.com/notebox/notebox-indexer/internal/search/noteindex"
	"github.com/notebox/notebox-indexer/internal/telemetry"
)

// TaskAwaiter waits for an engine task. search.Client implements it.
type TaskAwaiter interface {
	Await(ctx context.Context, task search.TaskHandle, timeout time.Duration) (bool, error)
}

// Event is the payload of an account withdrawal
type Event struct {
	SubjectID string `json:"subjectId"`
}

// Cascade deletes everything a withdrawn subject owns
type Cascade struct {
	store        records.Store
	noteIndex    noteindex.Index
	fieldIndex   fieldindex.Index
	awaiter      TaskAwaiter
	history      HistoryStore
	deadLetters  DeadLetterPublisher
	ids          ids.Provider
	clock        clock.Clock
	awaitTimeout time.Duration
	metrics      *telemetry.WithdrawalMetrics
	tracer       trace.Tracer
}

// TracerName is the name of the tracer of withdrawal steps
const TracerName = "github.com/notebox/notebox-indexer/withdrawal"

// Option configures a Cascade
type Option func(*Cascade)

// WithTracer records one span per consumed event and per step
func WithTracer(tracer trace.Tracer) Option {
	return func(c *Cascade) {
		c.tracer = tracer
	}
}

// WithDeadLetters forwards failed steps of consumed events to publisher
func WithDeadLetters(publisher DeadLetterPublisher) Option {
	return func(c *Cascade) {
		c.deadLetters = publisher
	}
}

// WithIDProvider sets the generator of ledger entry ids
func WithIDProvider(p ids.Provider) Option {
	return func(c *Cascade) {
		c.ids = p
	}
}

// WithClock sets the clock stamping ledger entries
func WithClock(clk clock.Clock) Option {
	return func(c *Cascade) {
		c.clock = clk
	}
}

// WithAwaitTimeout bounds the wait for an index deletion task
func WithAwaitTimeout(timeout time.Duration) Option {
	return func(c *Cascade) {
		c.awaitTimeout = timeout
	}
}

// WithMetrics records step outcomes and dead letters
func WithMetrics(m *telemetry.WithdrawalMetrics) Option {
	return func(c *Cascade) {
		c.metrics = m
	}
}

// NewCascade creates a Cascade
func NewCascade(
	store records.Store,
	noteIndex noteindex.Index,
	fieldIndex fieldindex.Index,
	awaiter TaskAwaiter,
	history HistoryStore,
	opts ...Option,
) *Cascade {
	c := &Cascade{
		store:        store,
		noteIndex:    noteIndex,
		fieldIndex:   fieldIndex,
		awaiter:      awaiter,
		history:      history,
		ids:          ids.UUIDProvider{},
		clock:        clock.Real{},
		awaitTimeout: search.DefaultAwaitTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Handle runs every step for the subject of a withdrawal message. A step
// failure never stops the following steps. A malformed payload or a ctx
// cancelled mid-cascade is returned as an error; in the latter case the
// remaining steps are skipped so the event can be handled again in full.
func (c *Cascade) Handle(ctx context.Context, msg *kafka.Message) error {
	var event Event
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		return fmt.Errorf("failed to decode withdrawal event: %w", err)
	}
	if event.SubjectID == "" {
		return fmt.Errorf("withdrawal event has no subject id")
	}

	ctx, span := otel.StartSpan(ctx, c.tracer, "withdrawal.Handle", trace.WithAttributes(
		otel.AttrSubjectID.String(event.SubjectID),
		otel.AttrKafkaTopic.String(msg.Topic),
		otel.AttrKafkaOffset.Int64(msg.Offset),
	))
	defer span.End()

	slog.Info("Processing account withdrawal", "subject_id", event.SubjectID, "offset", msg.Offset)

	for _, process := range Processes {
		err := c.Remediate(ctx, event.SubjectID, process)
		if ctxErr := ctx.Err(); ctxErr != nil {
			otel.RecordError(span, ctxErr)
			return fmt.Errorf("withdrawal of %s interrupted at %s: %w", event.SubjectID, process, ctxErr)
		}
		if err != nil {
			c.publishDeadLetter(ctx, msg, process, err)
		}
	}
	return nil
}

// Remediate runs a single step for subjectID and records its outcome.
func (c *Cascade) Remediate(ctx context.Context, subjectID string, process Process) (err error) {
	ctx, span := otel.StartSpan(ctx, c.tracer, "withdrawal.Step", trace.WithAttributes(
		otel.AttrSubjectID.String(subjectID),
		otel.AttrProcess.String(string(process)),
	))
	defer func() {
		otel.RecordError(span, err)
		span.End()
	}()

	switch process {
	case ProcessNoteDelete:
		err = c.DeleteNotes(ctx, subjectID)
	case ProcessNoteIndexDelete:
		err = c.DeleteNoteIndex(ctx, subjectID)
	case ProcessNoteFieldIndexDelete:
		err = c.DeleteNoteFieldIndex(ctx, subjectID)
	default:
		return fmt.Errorf("unknown withdrawal process %q", process)
	}

	if err != nil {
		slog.Error("Withdrawal step failed",
			"subject_id", subjectID,
			"process", process,
			"error", err)
	} else {
		slog.Info("Withdrawal step passed", "subject_id", subjectID, "process", process)
	}
	c.metrics.RecordStep(ctx, string(process), err == nil)
	c.appendHistory(ctx, subjectID, process, err == nil)
	return err
}

// DeleteNotes deletes every note of subjectID from the note store
func (c *Cascade) DeleteNotes(ctx context.Context, subjectID string) error {
	n, err := c.store.DeleteAllByOwner(ctx, subjectID)
	if err != nil {
		return fmt.Errorf("failed to delete notes: %w", err)
	}
	slog.Debug("Deleted notes", "subject_id", subjectID, "count", n)
	return nil
}

// DeleteNoteIndex deletes every whole-note document of subjectID and waits
// for the engine to apply the deletion
func (c *Cascade) DeleteNoteIndex(ctx context.Context, subjectID string) error {
	task, err := c.noteIndex.DeleteAllByOwner(ctx, subjectID)
	if err != nil {
		return fmt.Errorf("failed to delete note documents: %w", err)
	}
	return c.await(ctx, task)
}

// DeleteNoteFieldIndex deletes every per-field document of subjectID and
// waits for the engine to apply the deletion
func (c *Cascade) DeleteNoteFieldIndex(ctx context.Context, subjectID string) error {
	task, err := c.fieldIndex.DeleteAllByOwner(ctx, subjectID)
	if err != nil {
		return fmt.Errorf("failed to delete field documents: %w", err)
	}
	return c.await(ctx, task)
}

// History returns the ledger entries of subjectID
func (c *Cascade) History(ctx context.Context, subjectID string) ([]History, error) {
	return c.history.ListBySubject(ctx, subjectID)
}

func (c *Cascade) await(ctx context.Context, task search.TaskHandle) error {
	succeeded, err := c.awaiter.Await(ctx, task, c.awaitTimeout)
	if err != nil {
		return fmt.Errorf("failed to await task %d: %w", task.TaskUID, err)
	}
	if !succeeded {
		return fmt.Errorf("task %d did not succeed", task.TaskUID)
	}
	return nil
}

func (c *Cascade) appendHistory(ctx context.Context, subjectID string, process Process, passed bool) {
	entry := &History{
		ID:        c.ids.NewID(),
		SubjectID: subjectID,
		Process:   process,
		Passed:    passed,
		CreatedAt: c.clock.Now(),
	}
	if err := c.history.Append(ctx, entry); err != nil {
		slog.Error("Failed to record withdrawal history",
			"subject_id", subjectID,
			"process", process,
			"passed", passed,
			"error", err)
	}
}

func (c *Cascade) publishDeadLetter(ctx context.Context, msg *kafka.Message, process Process, stepErr error) {
	if c.deadLetters == nil {
		return
	}
	err := c.deadLetters.Publish(ctx, DeadLetter{
		OriginalKey:     string(msg.Key),
		OriginalPayload: string(msg.Value),
		Process:         process,
		Error:           stepErr.Error(),
	})
	c.metrics.RecordDeadLetter(ctx, string(process), err == nil)
	if err != nil {
		slog.Error("Failed to publish dead letter",
			"process", process,
			"key", string(msg.Key),
			"error", err)
	}
}
