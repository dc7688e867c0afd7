package sync

import (
	"context"
	"errors"
	"fmt"

	"github.com/notebox/notebox-indexer/internal/clock"
	"github.com/notebox/notebox-indexer/internal/records"
	"github.com/notebox/notebox-indexer/internal/search/noteindex"
)

// NewNoteStrategy returns the strategy reconciling the whole-note index.
func NewNoteStrategy(store records.Store, index noteindex.Index, clk clock.Clock) Strategy[records.Projection] {
	r := &noteRepairer{store: store, index: index, clock: clk}
	return Strategy[records.Projection]{
		Variant:      VariantNotes,
		CountBetween: store.CountModifiedBetween,
		CountBefore:  store.CountModifiedBefore,
		FindBetween:  store.FindModifiedBetween,
		FindBefore:   store.FindModifiedBefore,
		Classify: func(ctx context.Context, page []records.Projection) (Classification, error) {
			noteIDs := make([]string, len(page))
			for i, p := range page {
				noteIDs[i] = p.ExternalID
			}
			docs, err := index.FindByNoteIDs(ctx, noteIDs)
			if err != nil {
				return nil, fmt.Errorf("failed to load note documents: %w", err)
			}
			return ClassifyNotes(page, docs), nil
		},
		Statuses: Statuses,
		Repairers: map[DriftStatus]Repairer{
			NotIndexed: r.create,
			NotRemoved: r.remove,
			Stale:      r.recreate,
			Duplicated: r.recreate,
		},
	}
}

type noteRepairer struct {
	store records.Store
	index noteindex.Index
	clock clock.Clock
}

// create indexes the current state of the note. A note deleted or gone since
// it was classified has its documents removed instead.
func (r *noteRepairer) create(ctx context.Context, noteID string) error {
	note, err := r.store.FindByExternalID(ctx, noteID)
	if errors.Is(err, records.ErrNotFound) {
		return r.remove(ctx, noteID)
	}
	if err != nil {
		return err
	}
	if note.Status != records.StatusActive {
		return r.remove(ctx, noteID)
	}
	if _, err := r.index.Save(ctx, noteindex.NewDocument(note, r.clock.Now())); err != nil {
		return fmt.Errorf("failed to save note document: %w", err)
	}
	return nil
}

func (r *noteRepairer) remove(ctx context.Context, noteID string) error {
	if _, err := r.index.DeleteAllByNoteID(ctx, noteID); err != nil {
		return fmt.Errorf("failed to delete note documents: %w", err)
	}
	return nil
}

// recreate drops every document of the note, duplicates included, and
// indexes it again. The engine applies the two tasks in order.
func (r *noteRepairer) recreate(ctx context.Context, noteID string) error {
	if err := r.remove(ctx, noteID); err != nil {
		return err
	}
	return r.create(ctx, noteID)
}
