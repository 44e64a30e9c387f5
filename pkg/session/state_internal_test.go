package session

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/sessionkit/pkg/logger"
)

type countingStore struct {
	*MemoryStore
	sets    atomic.Int32
	touches atomic.Int32
}

func (s *countingStore) Set(ctx context.Context, id string, data *Data) error {
	s.sets.Add(1)
	return s.MemoryStore.Set(ctx, id, data)
}

func (s *countingStore) Touch(ctx context.Context, id string, data *Data) error {
	s.touches.Add(1)
	return s.MemoryStore.Touch(ctx, id, data)
}

func newTestState(t *testing.T, cookieID string, opts ...Option) (*requestState, *countingStore) {
	t.Helper()
	store := &countingStore{MemoryStore: NewMemoryStore(0)}
	m, err := New(append([]Option{WithSecrets("s"), WithStore(store), WithLogger(logger.Discard())}, opts...)...)
	require.NoError(t, err)

	st := &requestState{m: m, r: httptest.NewRequest(http.MethodGet, "/", nil), cookieID: cookieID}
	return st, store
}

func TestPredicates_NewSession(t *testing.T) {
	t.Parallel()

	st, _ := newTestState(t, "")
	require.NoError(t, st.start())

	assert.False(t, st.isModified(st.sess))
	assert.False(t, st.shouldSave())
	assert.False(t, st.shouldTouch())
	assert.False(t, st.shouldSetCookie())

	st.sess.Set("k", "v")
	assert.True(t, st.isModified(st.sess))
	assert.True(t, st.shouldSave())
	assert.True(t, st.shouldSetCookie())
}

func TestPredicates_LoadedSession(t *testing.T) {
	t.Parallel()

	st, _ := newTestState(t, "I1")
	st.inflate(&Data{Values: map[string]any{"k": "v"}})

	assert.Equal(t, "I1", st.id)
	assert.True(t, st.isSaved(st.sess))
	assert.False(t, st.shouldSave())
	assert.True(t, st.shouldTouch())
	assert.False(t, st.shouldSetCookie())

	// Cookie-only changes do not count as modifications.
	st.sess.Cookie().SetMaxAge(3600e9)
	assert.False(t, st.isModified(st.sess))

	st.sess.Set("k", "w")
	assert.True(t, st.shouldSave())
	assert.False(t, st.shouldTouch())
	assert.True(t, st.shouldSetCookie(), "expiring cookie is re-sent on change")
}

func TestPredicates_ResaveLeavesBaselineUnset(t *testing.T) {
	t.Parallel()

	st, _ := newTestState(t, "I1", WithResave(true))
	st.inflate(&Data{Values: map[string]any{"k": "v"}})

	assert.Empty(t, st.savedHash)
	assert.True(t, st.shouldSave())
}

func TestPredicates_Destroy(t *testing.T) {
	t.Parallel()

	st, _ := newTestState(t, "I1", WithUnset(UnsetDestroy))
	st.inflate(&Data{})
	assert.False(t, st.shouldDestroy())

	st.unset()
	assert.True(t, st.shouldDestroy())
	assert.False(t, st.shouldSave())
	assert.False(t, st.shouldSetCookie())
}

func TestPredicates_MalformedID(t *testing.T) {
	t.Parallel()

	st, _ := newTestState(t, "", WithSaveUninitialized(true), WithRolling(true))
	st.m.genID = func(*http.Request) (string, error) { return "", nil }
	require.NoError(t, st.start())
	st.sess.Set("k", "v")

	assert.False(t, st.shouldSave())
	assert.False(t, st.shouldTouch())
	assert.False(t, st.shouldSetCookie())
}

func TestFinalize_Once(t *testing.T) {
	t.Parallel()

	st, store := newTestState(t, "")
	require.NoError(t, st.start())
	st.sess.Set("k", "v")

	var wg sync.WaitGroup
	errs := make([]error, 8)
	for i := range errs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs[i] = st.finalize(context.Background())
		}()
	}
	wg.Wait()

	var ok, already int
	for _, err := range errs {
		switch err {
		case nil:
			ok++
		case ErrAlreadyFinalized:
			already++
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, len(errs)-1, already)
	assert.Equal(t, int32(1), store.sets.Load())
}

func TestEmitCookie_Once(t *testing.T) {
	t.Parallel()

	st, _ := newTestState(t, "")
	require.NoError(t, st.start())
	st.sess.Set("k", "v")

	rec := httptest.NewRecorder()
	w := newResponseWriter(rec, st)
	w.WriteHeader(http.StatusEarlyHints)
	_, _ = w.Write([]byte("a"))
	w.Flush()
	w.finish()
	w.finish()

	assert.Len(t, rec.Header().Values("Set-Cookie"), 1)
}

func TestTouch_OncePerRequest(t *testing.T) {
	t.Parallel()

	st, store := newTestState(t, "I1", WithMaxAge(3600e9))
	st.inflate(&Data{Values: map[string]any{"k": "v"}, Cookie: newCookie(CookieOptions{MaxAge: 60e9}, false)})

	st.touch()
	first := st.sess.Cookie().Expires()
	st.touch()
	assert.Equal(t, first, st.sess.Cookie().Expires())

	require.NoError(t, st.finalize(context.Background()))
	assert.Equal(t, int32(1), store.touches.Load())
	assert.Zero(t, store.sets.Load())
}

func TestFingerprint(t *testing.T) {
	t.Parallel()

	a := map[string]any{"a": 1, "b": []any{"x"}, "c": map[string]any{"z": 1, "y": 2}}
	b := map[string]any{"c": map[string]any{"y": 2, "z": 1}, "b": []any{"x"}, "a": 1}
	assert.Equal(t, fingerprint(a), fingerprint(b))
	assert.Equal(t, fingerprint(nil), fingerprint(map[string]any{}))
	assert.NotEqual(t, fingerprint(a), fingerprint(map[string]any{"a": 2}))

	// Unencodable values still hash deterministically.
	ch := map[string]any{"f": func() {}}
	assert.Equal(t, fingerprint(ch), fingerprint(ch))
}
