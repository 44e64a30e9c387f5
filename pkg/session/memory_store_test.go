package session_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/sessionkit/pkg/session"
)

func record(ttl time.Duration, values map[string]any) *session.Data {
	c := &session.Cookie{Path: "/", HTTPOnly: true}
	if ttl != 0 {
		c.SetMaxAge(ttl)
	}
	return &session.Data{Cookie: c, Values: values}
}

func TestMemoryStore_CRUD(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := session.NewMemoryStore(0)
	t.Cleanup(func() { _ = store.Close() })

	data, err := store.Get(ctx, "missing")
	require.NoError(t, err)
	assert.Nil(t, data)

	require.NoError(t, store.Set(ctx, "a", record(time.Hour, map[string]any{"n": 1})))

	data, err = store.Get(ctx, "a")
	require.NoError(t, err)
	require.NotNil(t, data)
	assert.Equal(t, float64(1), data.Values["n"])
	assert.NotNil(t, data.Cookie.Expires())

	// Stored records are copies.
	data.Values["n"] = 2
	again, err := store.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, float64(1), again.Values["n"])

	require.NoError(t, store.Destroy(ctx, "a"))
	require.NoError(t, store.Destroy(ctx, "a"))
	data, err = store.Get(ctx, "a")
	require.NoError(t, err)
	assert.Nil(t, data)
}

func TestMemoryStore_Expiry(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := session.NewMemoryStore(0)
	t.Cleanup(func() { _ = store.Close() })

	require.NoError(t, store.Set(ctx, "gone", record(-time.Second, nil)))
	require.NoError(t, store.Set(ctx, "live", record(time.Hour, nil)))
	require.NoError(t, store.Set(ctx, "forever", record(0, nil)))

	data, err := store.Get(ctx, "gone")
	require.NoError(t, err)
	assert.Nil(t, data)

	n, err := store.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	all, err := store.All(ctx)
	require.NoError(t, err)
	assert.Contains(t, all, "live")
	assert.Contains(t, all, "forever")

	require.NoError(t, store.Clear(ctx))
	n, err = store.Len(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestMemoryStore_Touch(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := session.NewMemoryStore(0)
	t.Cleanup(func() { _ = store.Close() })

	require.NoError(t, store.Set(ctx, "a", record(time.Minute, map[string]any{"k": "v"})))

	// Touch only replaces the cookie.
	require.NoError(t, store.Touch(ctx, "a", record(time.Hour, map[string]any{"k": "other"})))
	data, err := store.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "v", data.Values["k"])
	left, _ := data.Cookie.MaxAge()
	assert.Greater(t, left, 30*time.Minute)

	// Touching a missing record does not create it.
	require.NoError(t, store.Touch(ctx, "b", record(time.Hour, nil)))
	data, err = store.Get(ctx, "b")
	require.NoError(t, err)
	assert.Nil(t, data)

	require.NoError(t, store.Touch(ctx, "a", nil))
}

func TestMemoryStore_CleanupLoop(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := session.NewMemoryStore(10 * time.Millisecond)
	t.Cleanup(func() { _ = store.Close() })

	require.NoError(t, store.Set(ctx, "short", record(20*time.Millisecond, nil)))

	assert.Eventually(t, func() bool {
		all, err := store.All(ctx)
		return err == nil && len(all) == 0
	}, time.Second, 10*time.Millisecond)

	require.NoError(t, store.Close())
	require.NoError(t, store.Close())
}
