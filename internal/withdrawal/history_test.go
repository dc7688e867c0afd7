package withdrawal_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notebox/notebox-indexer/database"
	"github.com/notebox/notebox-indexer/internal/withdrawal"
)

func TestHistoryStore_Integration(t *testing.T) {
	t.Parallel()

	pool, cleanup := database.SetupTestDB(t)
	t.Cleanup(cleanup)

	store := withdrawal.NewHistoryStore(pool)
	ctx := context.Background()
	base := time.Date(2025, 1, 15, 3, 0, 0, 0, time.UTC)

	for i, process := range withdrawal.Processes {
		require.NoError(t, store.Append(ctx, &withdrawal.History{
			ID:        uuid.NewString(),
			SubjectID: "u-1",
			Process:   process,
			Passed:    process == withdrawal.ProcessNoteDelete,
			CreatedAt: base.Add(time.Duration(i) * time.Second),
		}))
	}
	require.NoError(t, store.Append(ctx, &withdrawal.History{
		ID: uuid.NewString(), SubjectID: "u-2", Process: withdrawal.ProcessNoteDelete, Passed: true, CreatedAt: base,
	}))

	entries, err := store.ListBySubject(ctx, "u-1")
	require.NoError(t, err)
	require.Len(t, entries, 3)
	for i, e := range entries {
		assert.Equal(t, withdrawal.Processes[i], e.Process)
		assert.Equal(t, "u-1", e.SubjectID)
		assert.True(t, base.Add(time.Duration(i)*time.Second).Equal(e.CreatedAt))
		_, err := uuid.Parse(e.ID)
		assert.NoError(t, err)
	}
	assert.True(t, entries[0].Passed)
	assert.False(t, entries[1].Passed)

	empty, err := store.ListBySubject(ctx, "nobody")
	require.NoError(t, err)
	assert.Empty(t, empty)

	err = store.Append(ctx, &withdrawal.History{ID: "not-a-uuid", SubjectID: "u-3", Process: withdrawal.ProcessNoteDelete})
	assert.Error(t, err)
}
