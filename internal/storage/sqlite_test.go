package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(":memory:", "")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestTokenLifecycle(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	_, err := store.GetToken(ctx, "u1")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, store.SetToken(ctx, "u1", "token-a"))
	token, err := store.GetToken(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "token-a", token)

	// Upsert replaces.
	require.NoError(t, store.SetToken(ctx, "u1", "token-b"))
	token, err = store.GetToken(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "token-b", token)

	require.NoError(t, store.DeleteToken(ctx, "u1"))
	_, err = store.GetToken(ctx, "u1")
	assert.ErrorIs(t, err, ErrNotFound)

	// Deleting an absent token is not an error.
	require.NoError(t, store.DeleteToken(ctx, "u1"))
}

func TestEncryptedTokenAtRest(t *testing.T) {
	ctx := context.Background()
	store, err := NewSQLiteStore(":memory:", "unit-test-key")
	require.NoError(t, err)
	defer store.Close()

	require.NoError(t, store.SetToken(ctx, "u1", "plain-token"))

	var stored string
	require.NoError(t, store.db.QueryRowContext(ctx,
		`SELECT token FROM user_tokens WHERE user_id = ?`, "u1").Scan(&stored))
	assert.NotEqual(t, "plain-token", stored)

	token, err := store.GetToken(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "plain-token", token)
}

func TestTodoistUserLinks(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	_, err := store.GetUserIDByTodoistID(ctx, "td-1")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, store.LinkTodoistUser(ctx, "td-1", "u1"))
	userID, err := store.GetUserIDByTodoistID(ctx, "td-1")
	require.NoError(t, err)
	assert.Equal(t, "u1", userID)

	// Relinking the same Todoist account moves the mapping.
	require.NoError(t, store.LinkTodoistUser(ctx, "td-1", "u2"))
	userID, err = store.GetUserIDByTodoistID(ctx, "td-1")
	require.NoError(t, err)
	assert.Equal(t, "u2", userID)

	require.NoError(t, store.UnlinkTodoistUser(ctx, "td-1"))
	_, err = store.GetUserIDByTodoistID(ctx, "td-1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStateConsumedExactlyOnce(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	require.NoError(t, store.StoreOAuthState(ctx, "abc123"))

	ok, err := store.ValidateAndConsumeState(ctx, "abc123")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = store.ValidateAndConsumeState(ctx, "abc123")
	require.NoError(t, err)
	assert.False(t, ok, "second consume of the same state must fail")
}

func TestUnknownStateRejected(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	ok, err := store.ValidateAndConsumeState(ctx, "never-stored")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestExpiredStateRejectedAndRemoved(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	t0 := time.Now()
	store.now = func() time.Time { return t0 }
	require.NoError(t, store.StoreOAuthState(ctx, "abc123"))

	// Past the five-minute window: rejected, and the row is gone.
	store.now = func() time.Time { return t0.Add(400 * time.Second) }
	ok, err := store.ValidateAndConsumeState(ctx, "abc123")
	require.NoError(t, err)
	assert.False(t, ok)

	// A retry reports plain invalidity, not some other error.
	store.now = func() time.Time { return t0.Add(401 * time.Second) }
	ok, err = store.ValidateAndConsumeState(ctx, "abc123")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStateFreshBoundary(t *testing.T) {
	t0 := time.Now()

	assert.True(t, stateFresh(t0.UnixMilli(), t0.Add(StateTTL-time.Second)))
	assert.False(t, stateFresh(t0.UnixMilli(), t0.Add(StateTTL+time.Second)))
}

func TestSubscriptionPayload(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	_, err := store.GetSubscription(ctx, "u1")
	assert.ErrorIs(t, err, ErrNotFound)

	payload := []byte(`{"status":"active"}`)
	require.NoError(t, store.SetSubscription(ctx, "u1", payload))

	got, err := store.GetSubscription(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, payload, got)

	// Upsert replaces.
	updated := []byte(`{"status":"cancelled"}`)
	require.NoError(t, store.SetSubscription(ctx, "u1", updated))
	got, err = store.GetSubscription(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, updated, got)
}
