package bolt_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.etcd.io/bbolt"

	"github.com/dmitrymomot/sessionkit/pkg/bolt"
	"github.com/dmitrymomot/sessionkit/pkg/session"
)

func newTestStore(t *testing.T) *bolt.Store {
	t.Helper()

	store, err := bolt.Open(bolt.Config{
		Path:        filepath.Join(t.TempDir(), "sessions.db"),
		Bucket:      "sessions",
		OpenTimeout: time.Second,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func record(ttl time.Duration, values map[string]any) *session.Data {
	c := &session.Cookie{Path: "/", HTTPOnly: true}
	if ttl != 0 {
		c.SetMaxAge(ttl)
	}
	return &session.Data{Cookie: c, Values: values}
}

func TestStore_CRUD(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := newTestStore(t)

	data, err := store.Get(ctx, "missing")
	require.NoError(t, err)
	assert.Nil(t, data)

	require.NoError(t, store.Set(ctx, "abc", record(time.Hour, map[string]any{"user": "ann"})))
	data, err = store.Get(ctx, "abc")
	require.NoError(t, err)
	require.NotNil(t, data)
	assert.Equal(t, "ann", data.Values["user"])
	assert.NotNil(t, data.Cookie.Expires())

	require.NoError(t, store.Set(ctx, "abc", record(time.Hour, map[string]any{"user": "bob"})))
	data, err = store.Get(ctx, "abc")
	require.NoError(t, err)
	assert.Equal(t, "bob", data.Values["user"])

	require.NoError(t, store.Destroy(ctx, "abc"))
	require.NoError(t, store.Destroy(ctx, "abc"))
	data, err = store.Get(ctx, "abc")
	require.NoError(t, err)
	assert.Nil(t, data)
}

func TestStore_Expiry(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := newTestStore(t)

	require.NoError(t, store.Set(ctx, "gone", record(-time.Second, nil)))
	require.NoError(t, store.Set(ctx, "live", record(time.Hour, nil)))
	require.NoError(t, store.Set(ctx, "browser", record(0, nil)))

	data, err := store.Get(ctx, "gone")
	require.NoError(t, err)
	assert.Nil(t, data)

	n, err := store.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	removed, err := store.DeleteExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	all, err := store.All(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)
	assert.Contains(t, all, "live")
	assert.Contains(t, all, "browser")
}

func TestStore_Touch(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := newTestStore(t)

	require.NoError(t, store.Set(ctx, "abc", record(time.Minute, map[string]any{"k": "v"})))
	require.NoError(t, store.Touch(ctx, "abc", record(time.Hour, map[string]any{"k": "ignored"})))

	data, err := store.Get(ctx, "abc")
	require.NoError(t, err)
	assert.Equal(t, "v", data.Values["k"])
	left, _ := data.Cookie.MaxAge()
	assert.Greater(t, left, 30*time.Minute)

	require.NoError(t, store.Touch(ctx, "missing", record(time.Hour, nil)))
	data, err = store.Get(ctx, "missing")
	require.NoError(t, err)
	assert.Nil(t, data)
}

func TestStore_Clear(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := newTestStore(t)

	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, store.Set(ctx, id, record(time.Hour, nil)))
	}
	require.NoError(t, store.Clear(ctx))

	n, err := store.Len(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	require.NoError(t, store.Set(ctx, "d", record(time.Hour, nil)))
	n, err = store.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestStore_Cleanup(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := newTestStore(t)
	store.StartCleanup(10 * time.Millisecond)

	require.NoError(t, store.Set(ctx, "short", record(20*time.Millisecond, nil)))

	assert.Eventually(t, func() bool {
		all, err := store.All(ctx)
		return err == nil && len(all) == 0
	}, time.Second, 10*time.Millisecond)
}

func TestStore_Persistence(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "sessions.db")

	store, err := bolt.Open(bolt.Config{Path: path, Bucket: "s", OpenTimeout: time.Second})
	require.NoError(t, err)
	require.NoError(t, store.Set(ctx, "abc", record(time.Hour, map[string]any{"n": 1})))
	require.NoError(t, store.Close())
	require.NoError(t, store.Close())

	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: time.Second})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	reopened, err := bolt.New(db, "s")
	require.NoError(t, err)
	t.Cleanup(func() { _ = reopened.Close() })

	data, err := reopened.Get(ctx, "abc")
	require.NoError(t, err)
	require.NotNil(t, data)
	assert.Equal(t, float64(1), data.Values["n"])
}

func TestNew_EmptyBucket(t *testing.T) {
	t.Parallel()

	_, err := bolt.Open(bolt.Config{Path: filepath.Join(t.TempDir(), "x.db")})
	assert.ErrorIs(t, err, bolt.ErrEmptyBucket)
}
