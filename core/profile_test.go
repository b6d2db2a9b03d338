package core

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"oddsbot/tools"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := OpenDatabase(":memory:")
	require.NoError(t, err)
	// One shared connection so every statement sees the same in-memory
	// database.
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestProfileStoreLifecycle(t *testing.T) {
	store := NewProfileStore(openTestDB(t))
	ctx := context.Background()

	_, found, err := store.View(ctx, "u1")
	require.NoError(t, err)
	assert.False(t, found)

	exists, err := store.Exists(ctx, "u1")
	require.NoError(t, err)
	assert.False(t, exists)

	require.NoError(t, store.Create(ctx, "u1", "# Profile\nName: Juan\nTeams: Millonarios"))

	content, found, err := store.View(ctx, "u1")
	require.NoError(t, err)
	require.True(t, found)
	assert.Contains(t, content, "Name: Juan")

	exists, err = store.Exists(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, exists)

	require.NoError(t, store.Delete(ctx, "u1"))

	exists, err = store.Exists(ctx, "u1")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestProfileStoreCreateOverwrites(t *testing.T) {
	store := NewProfileStore(openTestDB(t))
	ctx := context.Background()

	require.NoError(t, store.Create(ctx, "u1", "old content"))
	require.NoError(t, store.Create(ctx, "u1", "new content"))

	content, found, err := store.View(ctx, "u1")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "new content", content)
}

func TestProfileStoreReplace(t *testing.T) {
	store := NewProfileStore(openTestDB(t))
	ctx := context.Background()

	outcome, err := store.Replace(ctx, "u1", "a", "b")
	require.NoError(t, err)
	assert.Equal(t, tools.ReplaceProfileMissing, outcome)

	require.NoError(t, store.Create(ctx, "u1", "Teams: Millonarios\nLeagues: Liga BetPlay"))

	outcome, err = store.Replace(ctx, "u1", "Teams: Nacional", "Teams: Junior")
	require.NoError(t, err)
	assert.Equal(t, tools.ReplaceNoMatch, outcome)

	// A no-match replace must leave the content untouched.
	content, _, err := store.View(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "Teams: Millonarios\nLeagues: Liga BetPlay", content)

	outcome, err = store.Replace(ctx, "u1", "Teams: Millonarios", "Teams: Millonarios, Junior")
	require.NoError(t, err)
	assert.Equal(t, tools.ReplaceApplied, outcome)

	content, _, err = store.View(ctx, "u1")
	require.NoError(t, err)
	assert.Contains(t, content, "Teams: Millonarios, Junior")
}

func TestProfileStoreReplaceFirstOccurrenceOnly(t *testing.T) {
	store := NewProfileStore(openTestDB(t))
	ctx := context.Background()

	require.NoError(t, store.Create(ctx, "u1", "note note"))

	outcome, err := store.Replace(ctx, "u1", "note", "entry")
	require.NoError(t, err)
	assert.Equal(t, tools.ReplaceApplied, outcome)

	content, _, err := store.View(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "entry note", content)
}

func TestProfileStoreDeleteMissingIsNoError(t *testing.T) {
	store := NewProfileStore(openTestDB(t))
	assert.NoError(t, store.Delete(context.Background(), "ghost"))
}
