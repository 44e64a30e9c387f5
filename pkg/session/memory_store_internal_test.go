package session

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_EvictExpiredKeepsRewrittenRecord(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore(0)
	t.Cleanup(func() { _ = store.Close() })
	ctx := context.Background()

	past := time.Now().Add(-time.Minute)
	store.sessions["I1"] = memoryRecord{raw: []byte(`{}`), expires: &past}

	// A Get saw the expired record; a Set replaces it before the eviction runs.
	c := newCookie(CookieOptions{Path: "/", MaxAge: time.Hour}, false)
	require.NoError(t, store.Set(ctx, "I1", &Data{Cookie: c, Values: map[string]any{"k": "v"}}))
	store.evictExpired("I1", time.Now())

	data, err := store.Get(ctx, "I1")
	require.NoError(t, err)
	require.NotNil(t, data)
	assert.Equal(t, "v", data.Values["k"])

	store.sessions["I2"] = memoryRecord{raw: []byte(`{}`), expires: &past}
	store.evictExpired("I2", time.Now())
	_, ok := store.sessions["I2"]
	assert.False(t, ok)
}
