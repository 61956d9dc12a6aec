package database

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) Store {
	t.Helper()

	db, err := NewDB(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { CloseDB(db) })

	return NewStore(db, nil)
}

func TestStorePlaces(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("get missing place returns nil", func(t *testing.T) {
		t.Parallel()
		store := newTestStore(t)

		place, err := store.GetPlace(ctx, 404)
		require.NoError(t, err)
		assert.Nil(t, place)
	})

	t.Run("save and load round trip", func(t *testing.T) {
		t.Parallel()
		store := newTestStore(t)

		in := &Place{
			PlaceID:     42,
			Name:        "Jailbreak",
			URL:         "https://www.roblox.com/games/42/Jailbreak",
			UniverseID:  sql.NullInt64{Int64: 99, Valid: true},
			CreatorName: sql.NullString{String: "Badimo", Valid: true},
			CreatorType: sql.NullString{String: "Group", Valid: true},
			ResolvedAt:  time.Now().UTC(),
		}
		require.NoError(t, store.SavePlace(ctx, in))

		out, err := store.GetPlace(ctx, 42)
		require.NoError(t, err)
		require.NotNil(t, out)
		assert.Equal(t, "Jailbreak", out.Name)
		assert.Equal(t, in.URL, out.URL)
		assert.Equal(t, int64(99), out.UniverseID.Int64)
		assert.Equal(t, "Badimo", out.CreatorName.String)
		assert.True(t, out.Resolved())
		assert.False(t, out.CreatedAt.IsZero())
	})

	t.Run("upsert replaces an unresolved entry", func(t *testing.T) {
		t.Parallel()
		store := newTestStore(t)

		require.NoError(t, store.SavePlace(ctx, &Place{
			PlaceID:    7,
			Name:       UnresolvedName,
			URL:        "https://www.roblox.com/games/7",
			ResolvedAt: time.Now().UTC(),
		}))

		unresolved, err := store.GetPlace(ctx, 7)
		require.NoError(t, err)
		require.NotNil(t, unresolved)
		assert.False(t, unresolved.Resolved())

		require.NoError(t, store.SavePlace(ctx, &Place{
			PlaceID:    7,
			Name:       "Arsenal",
			URL:        "https://www.roblox.com/games/7/Arsenal",
			ResolvedAt: time.Now().UTC(),
		}))

		resolved, err := store.GetPlace(ctx, 7)
		require.NoError(t, err)
		require.NotNil(t, resolved)
		assert.Equal(t, "Arsenal", resolved.Name)
		assert.True(t, resolved.Resolved())
	})

	t.Run("get all places keys by id", func(t *testing.T) {
		t.Parallel()
		store := newTestStore(t)

		require.NoError(t, store.SavePlace(ctx, &Place{PlaceID: 1, Name: "A", ResolvedAt: time.Now().UTC()}))
		require.NoError(t, store.SavePlace(ctx, &Place{PlaceID: 2, Name: "B", ResolvedAt: time.Now().UTC()}))

		all, err := store.GetAllPlaces(ctx)
		require.NoError(t, err)
		require.Len(t, all, 2)
		assert.Equal(t, "A", all[1].Name)
		assert.Equal(t, "B", all[2].Name)
	})

	t.Run("invalid saves are rejected", func(t *testing.T) {
		t.Parallel()
		store := newTestStore(t)

		assert.Error(t, store.SavePlace(ctx, nil))
		assert.Error(t, store.SavePlace(ctx, &Place{PlaceID: 0, Name: "x"}))
		assert.Error(t, store.SavePlace(ctx, &Place{PlaceID: 1, Name: ""}))
	})

	t.Run("zero place id lookup is rejected", func(t *testing.T) {
		t.Parallel()
		store := newTestStore(t)

		_, err := store.GetPlace(ctx, 0)
		assert.Error(t, err)
	})
}

func TestCorruptDatabaseFallsBackToNoopStore(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	path := filepath.Join(t.TempDir(), "corrupt.db")
	require.NoError(t, os.WriteFile(path, []byte("this is not a sqlite file"), 0o600))

	_, err := NewDB(path)
	require.Error(t, err)

	// The process carries on with the no-op store instead of exiting.
	store := NewNoopStore(nil)
	require.NoError(t, store.Ping(ctx))

	all, err := store.GetAllPlaces(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestNoopStore(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := NewNoopStore(nil)

	t.Run("reads see an empty cache", func(t *testing.T) {
		t.Parallel()
		place, err := store.GetPlace(ctx, 42)
		require.NoError(t, err)
		assert.Nil(t, place)

		all, err := store.GetAllPlaces(ctx)
		require.NoError(t, err)
		assert.Empty(t, all)
	})

	t.Run("writes are dropped silently", func(t *testing.T) {
		t.Parallel()
		require.NoError(t, store.SavePlace(ctx, &Place{PlaceID: 42, Name: "Jailbreak"}))

		place, err := store.GetPlace(ctx, 42)
		require.NoError(t, err)
		assert.Nil(t, place)
	})

	t.Run("nil place is still rejected", func(t *testing.T) {
		t.Parallel()
		assert.Error(t, store.SavePlace(ctx, nil))
	})
}
