package sync

import (
	"context"
	"errors"
	"fmt"

	"github.com/notebox/notebox-indexer/internal/clock"
	"github.com/notebox/notebox-indexer/internal/ids"
	"github.com/notebox/notebox-indexer/internal/records"
	"github.com/notebox/notebox-indexer/internal/search/fieldindex"
)

// NewFieldStrategy returns the strategy reconciling the per-field index.
// Document ids come from idp.
func NewFieldStrategy(
	store records.Store, index fieldindex.Index, idp ids.Provider, clk clock.Clock,
) Strategy[records.FieldProjection] {
	r := &fieldRepairer{store: store, index: index, ids: idp, clock: clk}
	return Strategy[records.FieldProjection]{
		Variant:      VariantFields,
		CountBetween: store.CountModifiedBetween,
		CountBefore:  store.CountModifiedBefore,
		FindBetween:  store.FindFieldsModifiedBetween,
		FindBefore:   store.FindFieldsModifiedBefore,
		Classify: func(ctx context.Context, page []records.FieldProjection) (Classification, error) {
			noteIDs := make([]string, len(page))
			for i, p := range page {
				noteIDs[i] = p.ExternalID
			}
			docs, err := index.FindByNoteIDs(ctx, noteIDs)
			if err != nil {
				return nil, fmt.Errorf("failed to load field documents: %w", err)
			}
			return ClassifyFields(page, docs), nil
		},
		Statuses: []DriftStatus{NotIndexed, NotRemoved, Stale},
		Repairers: map[DriftStatus]Repairer{
			NotIndexed: r.create,
			NotRemoved: r.remove,
			Stale:      r.recreate,
		},
	}
}

type fieldRepairer struct {
	store records.Store
	index fieldindex.Index
	ids   ids.Provider
	clock clock.Clock
}

func (r *fieldRepairer) create(ctx context.Context, noteID string) error {
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
	docs := fieldindex.NewDocuments(note, r.ids, r.clock.Now())
	if len(docs) == 0 {
		return nil
	}
	if _, err := r.index.SaveAll(ctx, docs); err != nil {
		return fmt.Errorf("failed to save field documents: %w", err)
	}
	return nil
}

func (r *fieldRepairer) remove(ctx context.Context, noteID string) error {
	if _, err := r.index.DeleteAllByNoteID(ctx, noteID); err != nil {
		return fmt.Errorf("failed to delete field documents: %w", err)
	}
	return nil
}

func (r *fieldRepairer) recreate(ctx context.Context, noteID string) error {
	if err := r.remove(ctx, noteID); err != nil {
		return err
	}
	return r.create(ctx, noteID)
}
