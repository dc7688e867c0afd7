package records_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notebox/notebox-indexer/database"
	"github.com/notebox/notebox-indexer/internal/records"
)

func TestPage(t *testing.T) {
	t.Parallel()

	page := records.Page{Number: 0, Size: 50}
	assert.Equal(t, 0, page.Offset())
	assert.Equal(t, 100, page.Next().Next().Offset())
	assert.Equal(t, 50, page.Next().Size)
}

func TestStore_Integration(t *testing.T) {
	t.Parallel()

	pool, cleanup := database.SetupTestDB(t)
	t.Cleanup(cleanup)

	ctx := context.Background()
	store := records.NewStore(pool)

	base := time.Date(2025, 1, 15, 1, 0, 0, 0, time.UTC)
	for i := range 5 {
		_, err := store.Save(ctx, &records.Note{
			ExternalID:  fmt.Sprintf("note-%d", i),
			OwnerID:     "owner-a",
			Title:       fmt.Sprintf("Note %d", i),
			Fields:      []records.Field{{FieldID: "f-origin", Name: "Origin", Values: []string{"Ethiopia"}}},
			ContentHash: fmt.Sprintf("hash-%d", i),
			ModifiedAt:  base.Add(time.Duration(i) * 30 * time.Minute),
		})
		require.NoError(t, err)
	}
	_, err := store.Save(ctx, &records.Note{
		ExternalID:  "note-other",
		OwnerID:     "owner-b",
		ContentHash: "hash-other",
		ModifiedAt:  base,
	})
	require.NoError(t, err)

	t.Run("count and page a window", func(t *testing.T) {
		start, end := base, base.Add(90*time.Minute)

		count, err := store.CountModifiedBetween(ctx, start, end)
		require.NoError(t, err)
		assert.Equal(t, int64(4), count)

		first, err := store.FindModifiedBetween(ctx, start, end, records.Page{Size: 3})
		require.NoError(t, err)
		require.Len(t, first, 3)
		second, err := store.FindModifiedBetween(ctx, start, end, records.Page{Number: 1, Size: 3})
		require.NoError(t, err)
		require.Len(t, second, 1)

		assert.Less(t, first[0].InternalID, first[1].InternalID)
		assert.Less(t, first[2].InternalID, second[0].InternalID)
		assert.Equal(t, records.StatusActive, first[0].Status)
	})

	t.Run("before cutoff is exclusive", func(t *testing.T) {
		count, err := store.CountModifiedBefore(ctx, base.Add(30*time.Minute))
		require.NoError(t, err)
		assert.Equal(t, int64(2), count)

		found, err := store.FindFieldsModifiedBefore(ctx, base.Add(30*time.Minute), records.Page{Size: 10})
		require.NoError(t, err)
		require.Len(t, found, 2)
		assert.Equal(t, "note-0", found[0].ExternalID)
		assert.Equal(t, []records.Field{{FieldID: "f-origin", Name: "Origin", Values: []string{"Ethiopia"}}},
			found[0].Fields)
	})

	t.Run("find by external id", func(t *testing.T) {
		note, err := store.FindByExternalID(ctx, "note-2")
		require.NoError(t, err)
		assert.Equal(t, "Note 2", note.Title)
		assert.Equal(t, base.Add(time.Hour), note.ModifiedAt)

		_, err = store.FindByExternalID(ctx, "missing")
		assert.ErrorIs(t, err, records.ErrNotFound)
	})
}

func TestStore_DeleteAllByOwner_Integration(t *testing.T) {
	t.Parallel()

	pool, cleanup := database.SetupTestDB(t)
	t.Cleanup(cleanup)

	ctx := context.Background()
	store := records.NewStore(pool)

	for _, id := range []string{"a-1", "a-2"} {
		_, err := store.Save(ctx, &records.Note{ExternalID: id, OwnerID: "owner-a", ContentHash: "h"})
		require.NoError(t, err)
	}
	_, err := store.Save(ctx, &records.Note{ExternalID: "b-1", OwnerID: "owner-b", ContentHash: "h"})
	require.NoError(t, err)

	deleted, err := store.DeleteAllByOwner(ctx, "owner-a")
	require.NoError(t, err)
	assert.Equal(t, int64(2), deleted)

	again, err := store.DeleteAllByOwner(ctx, "owner-a")
	require.NoError(t, err)
	assert.Zero(t, again)

	note, err := store.FindByExternalID(ctx, "a-1")
	require.NoError(t, err)
	assert.Equal(t, records.StatusDeleted, note.Status)

	other, err := store.FindByExternalID(ctx, "b-1")
	require.NoError(t, err)
	assert.Equal(t, records.StatusActive, other.Status)
}
