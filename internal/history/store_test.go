package history

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestStore_Append(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	err := store.Append(ctx, Record{
		Filename: "counter",
		Element:  "button",
		Prompt:   "increment the counter",
		Status:   StatusSucceeded,
		Attempts: 1,
	})
	require.NoError(t, err)

	records, err := store.List(ctx, 10)
	require.NoError(t, err)
	require.Len(t, records, 1)

	// Missing ID and timestamp are filled in on write.
	assert.NotEmpty(t, records[0].ID)
	assert.False(t, records[0].CreatedAt.IsZero())
	assert.Equal(t, "counter", records[0].Filename)
	assert.Equal(t, StatusSucceeded, records[0].Status)
}

func TestStore_List_NewestFirst(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		err := store.Append(ctx, Record{
			ID:        string(rune('a' + i)),
			Filename:  "counter",
			Element:   "button",
			Prompt:    "increment",
			Status:    StatusSucceeded,
			Attempts:  1,
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		})
		require.NoError(t, err)
	}

	records, err := store.List(ctx, 10)
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, "c", records[0].ID)
	assert.Equal(t, "a", records[2].ID)
}

func TestStore_List_LimitClamped(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for i := 0; i < 60; i++ {
		require.NoError(t, store.Append(ctx, Record{
			Filename: "bulk",
			Element:  "button",
			Prompt:   "p",
			Status:   StatusFailed,
			Attempts: 4,
		}))
	}

	t.Run("non-positive limit falls back to the default page", func(t *testing.T) {
		records, err := store.List(ctx, 0)
		require.NoError(t, err)
		assert.Len(t, records, 50)
	})

	t.Run("oversized limit falls back to the default page", func(t *testing.T) {
		records, err := store.List(ctx, 10000)
		require.NoError(t, err)
		assert.Len(t, records, 50)
	})

	t.Run("explicit limit is honored", func(t *testing.T) {
		records, err := store.List(ctx, 5)
		require.NoError(t, err)
		assert.Len(t, records, 5)
	})
}

func TestStore_ByFilename(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Append(ctx, Record{Filename: "counter", Element: "button", Prompt: "a", Status: StatusSucceeded, Attempts: 1}))
	require.NoError(t, store.Append(ctx, Record{Filename: "toggle", Element: "button", Prompt: "b", Status: StatusFailed, Attempts: 4, Error: "generation failed"}))

	records, err := store.ByFilename(ctx, "counter")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "counter", records[0].Filename)

	records, err = store.ByFilename(ctx, "toggle")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "generation failed", records[0].Error)

	records, err = store.ByFilename(ctx, "missing")
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestStore_FileBacked(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "generations.db")

	store, err := NewStore(path)
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, store.Append(ctx, Record{Filename: "persisted", Element: "form", Prompt: "p", Status: StatusCached, Attempts: 0}))
	require.NoError(t, store.Close())

	reopened, err := NewStore(path)
	require.NoError(t, err)
	defer reopened.Close()

	records, err := reopened.List(ctx, 10)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "persisted", records[0].Filename)
}
