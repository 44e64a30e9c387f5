package session_test

import (
	"context"
	"crypto/tls"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/sessionkit/pkg/cookie"
	"github.com/dmitrymomot/sessionkit/pkg/session"
	"github.com/dmitrymomot/sessionkit/pkg/trustproxy"
)

func TestMiddleware_NewSessionWrite(t *testing.T) {
	t.Parallel()

	store := newRecordingStore()
	m := newManager(t, store)

	rec := serve(m, func(w http.ResponseWriter, r *http.Request) {
		s := session.MustFromContext(r.Context())
		s.Set("x", 1)
	}, request(""))

	c := sessionCookie(t, rec)
	require.NotNil(t, c)
	assert.True(t, strings.HasPrefix(c.Value, cookie.SignedPrefix))
	assert.True(t, c.HttpOnly)
	assert.Equal(t, "/", c.Path)

	id := cookieID(t, c)
	data, err := store.MemoryStore.Get(context.Background(), id)
	require.NoError(t, err)
	require.NotNil(t, data)
	assert.Equal(t, map[string]any{"x": float64(1)}, data.Values)
	assert.Equal(t, 1, store.count("set"))
}

func TestMiddleware_UninitializedSessionIsDropped(t *testing.T) {
	t.Parallel()

	store := newRecordingStore()
	m := newManager(t, store)

	var seen bool
	rec := serve(m, func(w http.ResponseWriter, r *http.Request) {
		_, seen = session.FromContext(r.Context())
	}, request(""))

	assert.True(t, seen, "handler still gets a session")
	assert.Nil(t, sessionCookie(t, rec))
	assert.Zero(t, store.count("set"))
}

func TestMiddleware_SaveUninitialized(t *testing.T) {
	t.Parallel()

	store := newRecordingStore()
	m := newManager(t, store, session.WithSaveUninitialized(true))

	rec := serve(m, noop, request(""))

	id := cookieID(t, sessionCookie(t, rec))
	assert.Equal(t, 1, store.count("set"))
	data, err := store.MemoryStore.Get(context.Background(), id)
	require.NoError(t, err)
	assert.NotNil(t, data)
}

func TestMiddleware_UnmodifiedExistingSession(t *testing.T) {
	t.Parallel()

	store := newRecordingStore()
	m := newManager(t, store)
	require.NoError(t, store.MemoryStore.Set(context.Background(), "I1", &session.Data{
		Cookie: &session.Cookie{Path: "/", HTTPOnly: true},
		Values: map[string]any{"x": 1},
	}))

	var x int
	rec := serve(m, func(w http.ResponseWriter, r *http.Request) {
		s := session.MustFromContext(r.Context())
		assert.Equal(t, "I1", s.ID())
		x, _ = s.GetInt("x")
	}, request("I1"))

	assert.Equal(t, 1, x)
	assert.Zero(t, store.count("set"))
	assert.Equal(t, 1, store.count("touch"), "unchanged sessions are touched")
	assert.Nil(t, sessionCookie(t, rec))
}

func TestMiddleware_Resave(t *testing.T) {
	t.Parallel()

	store := newRecordingStore()
	m := newManager(t, store, session.WithResave(true))
	require.NoError(t, store.MemoryStore.Set(context.Background(), "I1", &session.Data{Values: map[string]any{"x": 1}}))

	serve(m, noop, request("I1"))

	assert.Equal(t, 1, store.count("set"))
	assert.Zero(t, store.count("touch"))
}

func TestMiddleware_ModifiedExistingSession(t *testing.T) {
	t.Parallel()

	store := newRecordingStore()
	m := newManager(t, store)
	require.NoError(t, store.MemoryStore.Set(context.Background(), "I1", &session.Data{Values: map[string]any{"x": 1}}))

	rec := serve(m, func(w http.ResponseWriter, r *http.Request) {
		session.MustFromContext(r.Context()).Set("x", 2)
	}, request("I1"))

	assert.Equal(t, 1, store.count("set"))
	assert.Nil(t, sessionCookie(t, rec), "browser-session cookies are not re-sent on change")

	data, err := store.MemoryStore.Get(context.Background(), "I1")
	require.NoError(t, err)
	assert.Equal(t, float64(2), data.Values["x"])
}

func TestMiddleware_ModifiedSessionWithExpiryResendsCookie(t *testing.T) {
	t.Parallel()

	store := newRecordingStore()
	m := newManager(t, store, session.WithMaxAge(time.Hour))

	rec := serve(m, func(w http.ResponseWriter, r *http.Request) {
		session.MustFromContext(r.Context()).Set("x", 1)
	}, request(""))
	id := cookieID(t, sessionCookie(t, rec))

	rec = serve(m, func(w http.ResponseWriter, r *http.Request) {
		session.MustFromContext(r.Context()).Set("x", 2)
	}, request(id))

	c := sessionCookie(t, rec)
	require.NotNil(t, c)
	assert.Equal(t, id, cookieID(t, c))
	assert.WithinDuration(t, time.Now().Add(time.Hour), c.Expires, 5*time.Second)
}

func TestMiddleware_Rolling(t *testing.T) {
	t.Parallel()

	store := newRecordingStore()
	m := newManager(t, store, session.WithRolling(true), session.WithMaxAge(time.Hour))
	require.NoError(t, store.MemoryStore.Set(context.Background(), "I1", &session.Data{Values: map[string]any{"x": 1}}))

	for range 2 {
		rec := serve(m, noop, request("I1"))
		c := sessionCookie(t, rec)
		require.NotNil(t, c)
		assert.Equal(t, "I1", cookieID(t, c))
	}
	assert.Zero(t, store.count("set"))
}

func TestMiddleware_SecretRotation(t *testing.T) {
	t.Parallel()

	store := newRecordingStore()
	m := newManager(t, store, session.WithSecrets("new secret", testSecret))
	require.NoError(t, store.MemoryStore.Set(context.Background(), "I1", &session.Data{Values: map[string]any{"x": 1}}))

	var id string
	serve(m, func(w http.ResponseWriter, r *http.Request) {
		id = session.MustFromContext(r.Context()).ID()
	}, request("I1"))

	assert.Equal(t, "I1", id)
}

func TestMiddleware_InvalidCookies(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		value string
	}{
		{name: "unsigned", value: "I1"},
		{name: "signed without prefix", value: cookie.Sign("I1", testSecret)},
		{name: "wrong secret", value: cookie.Encode("I1", "other")},
		{name: "tampered", value: cookie.Encode("I1", testSecret) + "x"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			store := newRecordingStore()
			m := newManager(t, store)
			require.NoError(t, store.MemoryStore.Set(context.Background(), "I1", &session.Data{Values: map[string]any{"x": 1}}))

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.AddCookie(&http.Cookie{Name: session.DefaultCookieName, Value: tt.value})

			var id string
			rec := serve(m, func(w http.ResponseWriter, r *http.Request) {
				id = session.MustFromContext(r.Context()).ID()
			}, req)

			assert.Equal(t, http.StatusOK, rec.Code)
			assert.NotEqual(t, "I1", id)
			assert.Zero(t, store.count("get"), "no lookup for unverifiable ids")
		})
	}
}

func TestMiddleware_UnsetDestroy(t *testing.T) {
	t.Parallel()

	store := newRecordingStore()
	m := newManager(t, store, session.WithUnset(session.UnsetDestroy), session.WithRolling(true))
	require.NoError(t, store.MemoryStore.Set(context.Background(), "I1", &session.Data{Values: map[string]any{"x": 1}}))

	rec := serve(m, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, session.Unset(r.Context()))
		_, ok := session.FromContext(r.Context())
		assert.False(t, ok)
		assert.Equal(t, "I1", session.IDFromContext(r.Context()))
	}, request("I1"))

	assert.Equal(t, 1, store.count("destroy"))
	assert.Nil(t, sessionCookie(t, rec))
	data, err := store.MemoryStore.Get(context.Background(), "I1")
	require.NoError(t, err)
	assert.Nil(t, data)
}

func TestMiddleware_UnsetKeep(t *testing.T) {
	t.Parallel()

	store := newRecordingStore()
	m := newManager(t, store)
	require.NoError(t, store.MemoryStore.Set(context.Background(), "I1", &session.Data{Values: map[string]any{"x": 1}}))

	rec := serve(m, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, session.Unset(r.Context()))
	}, request("I1"))

	assert.Zero(t, store.count("destroy"))
	assert.Zero(t, store.count("set"))
	assert.Zero(t, store.count("touch"))
	assert.Nil(t, sessionCookie(t, rec))
}

func TestMiddleware_StoreDisconnected(t *testing.T) {
	t.Parallel()

	store := newRecordingStore()
	m := newManager(t, store)
	store.Disconnect()

	var ok bool
	rec := serve(m, func(w http.ResponseWriter, r *http.Request) {
		_, ok = session.FromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}, request("I1"))

	assert.False(t, ok)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Zero(t, store.total())
	assert.Nil(t, sessionCookie(t, rec))

	store.Connect()
	serve(m, func(w http.ResponseWriter, r *http.Request) {
		_, ok = session.FromContext(r.Context())
	}, request("I1"))
	assert.True(t, ok)
	assert.Equal(t, 1, store.count("get"))
}

func TestMiddleware_StoreUnavailableError(t *testing.T) {
	t.Parallel()

	store := newRecordingStore()
	store.getErr = session.ErrStoreUnavailable
	m := newManager(t, store)

	var ok, called bool
	rec := serve(m, func(w http.ResponseWriter, r *http.Request) {
		called = true
		_, ok = session.FromContext(r.Context())
	}, request("I1"))

	assert.True(t, called)
	assert.False(t, ok)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestMiddleware_GetError(t *testing.T) {
	t.Parallel()

	boom := errors.New("boom")

	t.Run("default handler", func(t *testing.T) {
		t.Parallel()
		store := newRecordingStore()
		store.getErr = boom
		m := newManager(t, store)

		called := false
		rec := serve(m, func(http.ResponseWriter, *http.Request) { called = true }, request("I1"))

		assert.False(t, called)
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
	})

	t.Run("custom handler", func(t *testing.T) {
		t.Parallel()
		store := newRecordingStore()
		store.getErr = boom
		var got error
		m := newManager(t, store, session.WithErrorHandler(func(w http.ResponseWriter, r *http.Request, err error) {
			got = err
			w.WriteHeader(http.StatusServiceUnavailable)
		}))

		rec := serve(m, noop, request("I1"))
		assert.ErrorIs(t, got, boom)
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	})

	t.Run("not found generates", func(t *testing.T) {
		t.Parallel()
		store := newRecordingStore()
		store.getErr = session.ErrNotFound
		m := newManager(t, store)

		var id string
		serve(m, func(w http.ResponseWriter, r *http.Request) {
			id = session.MustFromContext(r.Context()).ID()
		}, request("I1"))
		assert.NotEqual(t, "I1", id)
		assert.NotEmpty(t, id)
	})
}

func TestMiddleware_CommitError(t *testing.T) {
	t.Parallel()

	boom := errors.New("write failed")
	store := newRecordingStore()
	store.setErr = boom

	var got atomic.Value
	m := newManager(t, store, session.WithCommitErrorFunc(func(r *http.Request, err error) {
		got.Store(err)
	}))

	rec := serve(m, func(w http.ResponseWriter, r *http.Request) {
		session.MustFromContext(r.Context()).Set("x", 1)
		w.WriteHeader(http.StatusCreated)
	}, request(""))

	assert.Equal(t, http.StatusCreated, rec.Code)
	err, _ := got.Load().(error)
	assert.ErrorIs(t, err, boom)
}

func TestMiddleware_CommitTimeout(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	store := &slowStore{recordingStore: newRecordingStore(), release: release}
	reported := make(chan error, 1)
	m := newManager(t, store,
		session.WithCommitTimeout(20*time.Millisecond),
		session.WithCommitErrorFunc(func(r *http.Request, err error) { reported <- err }),
	)

	done := make(chan struct{})
	go func() {
		serve(m, func(w http.ResponseWriter, r *http.Request) {
			session.MustFromContext(r.Context()).Set("x", 1)
		}, request(""))
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("response held by a slow store")
	}

	close(release)
	select {
	case err := <-reported:
		assert.ErrorIs(t, err, errSlow)
	case <-time.After(2 * time.Second):
		t.Fatal("late store error not reported")
	}
}

var errSlow = errors.New("slow store failed")

type slowStore struct {
	*recordingStore
	release chan struct{}
}

func (s *slowStore) Set(ctx context.Context, id string, data *session.Data) error {
	<-s.release
	return errSlow
}

func TestMiddleware_CookieEmittedBeforeBody(t *testing.T) {
	t.Parallel()

	store := newRecordingStore()
	m := newManager(t, store)

	rec := serve(m, func(w http.ResponseWriter, r *http.Request) {
		session.MustFromContext(r.Context()).Set("x", 1)
		w.Header().Add("Set-Cookie", "other=1")
		_, _ = w.Write([]byte("hello"))
		// Changes after the headers went out are saved but cannot add a cookie.
		session.MustFromContext(r.Context()).Set("y", 2)
	}, request(""))

	assert.Equal(t, "hello", rec.Body.String())
	assert.Len(t, rec.Header().Values("Set-Cookie"), 2, "session cookie is appended")
	id := cookieID(t, sessionCookie(t, rec))

	data, err := store.MemoryStore.Get(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, float64(2), data.Values["y"])
}

func TestMiddleware_Nested(t *testing.T) {
	t.Parallel()

	store := newRecordingStore()
	m := newManager(t, store)

	var outer, inner *session.Session
	h := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		outer = session.MustFromContext(r.Context())
		m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			inner = session.MustFromContext(r.Context())
			inner.Set("x", 1)
		})).ServeHTTP(w, r)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, request(""))

	assert.Same(t, outer, inner)
	assert.Equal(t, 1, store.count("set"))
	assert.Len(t, rec.Header().Values("Set-Cookie"), 1)
}

func TestMiddleware_PathMismatch(t *testing.T) {
	t.Parallel()

	store := newRecordingStore()
	m := newManager(t, store, session.WithCookieOptions(session.CookieOptions{Path: "/app", HTTPOnly: true}))

	var ok bool
	serve(m, func(w http.ResponseWriter, r *http.Request) {
		_, ok = session.FromContext(r.Context())
	}, httptest.NewRequest(http.MethodGet, "/other", nil))
	assert.False(t, ok)

	rec := serve(m, func(w http.ResponseWriter, r *http.Request) {
		session.MustFromContext(r.Context()).Set("x", 1)
	}, httptest.NewRequest(http.MethodGet, "/app/home", nil))
	c := sessionCookie(t, rec)
	require.NotNil(t, c)
	assert.Equal(t, "/app", c.Path)
}

func TestMiddleware_SecureCookie(t *testing.T) {
	t.Parallel()

	write := func(w http.ResponseWriter, r *http.Request) {
		session.MustFromContext(r.Context()).Set("x", 1)
	}

	t.Run("secure cookie over plain http is withheld", func(t *testing.T) {
		t.Parallel()
		store := newRecordingStore()
		m := newManager(t, store, session.WithCookieOptions(session.CookieOptions{Path: "/", Secure: session.SecureOn}))

		rec := serve(m, write, request(""))
		assert.Nil(t, sessionCookie(t, rec))
		assert.Equal(t, 1, store.count("set"), "the session is still saved")
	})

	t.Run("secure cookie over tls", func(t *testing.T) {
		t.Parallel()
		m := newManager(t, newRecordingStore(), session.WithCookieOptions(session.CookieOptions{Path: "/", Secure: session.SecureOn}))

		req := request("")
		req.TLS = &tls.ConnectionState{}
		c := sessionCookie(t, serve(m, write, req))
		require.NotNil(t, c)
		assert.True(t, c.Secure)
	})

	t.Run("auto follows the connection", func(t *testing.T) {
		t.Parallel()
		m := newManager(t, newRecordingStore(), session.WithCookieOptions(session.CookieOptions{Path: "/", Secure: session.SecureAuto}))

		c := sessionCookie(t, serve(m, write, request("")))
		require.NotNil(t, c)
		assert.False(t, c.Secure)

		req := request("")
		req.TLS = &tls.ConnectionState{}
		c = sessionCookie(t, serve(m, write, req))
		require.NotNil(t, c)
		assert.True(t, c.Secure)
	})

	t.Run("trust proxy on honours forwarded proto", func(t *testing.T) {
		t.Parallel()
		m := newManager(t, newRecordingStore(),
			session.WithTrustProxy(session.TrustProxyOn),
			session.WithCookieOptions(session.CookieOptions{Path: "/", Secure: session.SecureOn}))

		req := request("")
		req.Header.Set("X-Forwarded-Proto", "https,http")
		assert.NotNil(t, sessionCookie(t, serve(m, write, req)))
	})

	t.Run("trust proxy off ignores forwarded proto", func(t *testing.T) {
		t.Parallel()
		m := newManager(t, newRecordingStore(),
			session.WithTrustProxy(session.TrustProxyOff),
			session.WithCookieOptions(session.CookieOptions{Path: "/", Secure: session.SecureOn}))

		req := request("")
		req.Header.Set("X-Forwarded-Proto", "https")
		assert.Nil(t, sessionCookie(t, serve(m, write, req)))
	})

	t.Run("trust proxy default reads upstream resolution", func(t *testing.T) {
		t.Parallel()
		m := newManager(t, newRecordingStore(),
			session.WithCookieOptions(session.CookieOptions{Path: "/", Secure: session.SecureOn}))
		res, err := trustproxy.New("loopback")
		require.NoError(t, err)

		req := request("")
		req.RemoteAddr = "127.0.0.1:4000"
		req.Header.Set("X-Forwarded-Proto", "https")

		rec := httptest.NewRecorder()
		res.Middleware(m.Middleware(http.HandlerFunc(write))).ServeHTTP(rec, req)
		assert.NotNil(t, sessionCookie(t, rec))

		req = request("")
		req.Header.Set("X-Forwarded-Proto", "https")
		assert.Nil(t, sessionCookie(t, serve(m, write, req)), "without the trustproxy middleware")
	})
}

func TestMiddleware_Regenerate(t *testing.T) {
	t.Parallel()

	store := newRecordingStore()
	m := newManager(t, store)
	require.NoError(t, store.MemoryStore.Set(context.Background(), "I1", &session.Data{Values: map[string]any{"x": 1}}))

	var newID string
	rec := serve(m, func(w http.ResponseWriter, r *http.Request) {
		s := session.MustFromContext(r.Context())
		require.NoError(t, s.Regenerate(r.Context()))
		newID = s.ID()
		assert.NotEqual(t, "I1", newID)
		assert.Zero(t, s.Len(), "fresh session starts empty")
		assert.Same(t, s, session.MustFromContext(r.Context()))
		s.Set("user", "u1")
	}, request("I1"))

	assert.Equal(t, newID, cookieID(t, sessionCookie(t, rec)))

	old, err := store.MemoryStore.Get(context.Background(), "I1")
	require.NoError(t, err)
	assert.Nil(t, old)

	data, err := store.MemoryStore.Get(context.Background(), newID)
	require.NoError(t, err)
	require.NotNil(t, data)
	assert.Equal(t, "u1", data.Values["user"])
}

func TestMiddleware_RegenerateWithoutChanges(t *testing.T) {
	t.Parallel()

	t.Run("loaded session", func(t *testing.T) {
		t.Parallel()
		store := newRecordingStore()
		m := newManager(t, store)
		require.NoError(t, store.MemoryStore.Set(context.Background(), "I1", &session.Data{Values: map[string]any{"x": 1}}))

		var newID string
		rec := serve(m, func(w http.ResponseWriter, r *http.Request) {
			s := session.MustFromContext(r.Context())
			require.NoError(t, s.Regenerate(r.Context()))
			newID = s.ID()
		}, request("I1"))

		assert.Equal(t, newID, cookieID(t, sessionCookie(t, rec)), "client is moved to the new id")
		assert.Equal(t, 1, store.count("set"))

		data, err := store.MemoryStore.Get(context.Background(), newID)
		require.NoError(t, err)
		assert.NotNil(t, data)

		old, err := store.MemoryStore.Get(context.Background(), "I1")
		require.NoError(t, err)
		assert.Nil(t, old)
	})

	t.Run("new session", func(t *testing.T) {
		t.Parallel()
		store := newRecordingStore()
		m := newManager(t, store)

		var newID string
		rec := serve(m, func(w http.ResponseWriter, r *http.Request) {
			s := session.MustFromContext(r.Context())
			require.NoError(t, s.Regenerate(r.Context()))
			newID = s.ID()
		}, request(""))

		assert.Equal(t, newID, cookieID(t, sessionCookie(t, rec)))
		assert.Equal(t, 1, store.count("set"))
	})
}

func TestMiddleware_RegenerateAfterUnset(t *testing.T) {
	t.Parallel()

	store := newRecordingStore()
	m := newManager(t, store, session.WithSaveUninitialized(true))

	var s *session.Session
	serve(m, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, session.Unset(r.Context()))
		var err error
		s, err = session.Regenerate(r.Context())
		require.NoError(t, err)
	}, request("I1"))

	require.NotNil(t, s)
	assert.NotEqual(t, "I1", s.ID())
}

func TestMiddleware_DestroyInHandler(t *testing.T) {
	t.Parallel()

	store := newRecordingStore()
	m := newManager(t, store, session.WithRolling(true))
	require.NoError(t, store.MemoryStore.Set(context.Background(), "I1", &session.Data{Values: map[string]any{"x": 1}}))

	rec := serve(m, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, session.MustFromContext(r.Context()).Destroy(r.Context()))
		_, ok := session.FromContext(r.Context())
		assert.False(t, ok)
	}, request("I1"))

	assert.Equal(t, 1, store.count("destroy"))
	assert.Zero(t, store.count("set"))
	assert.Nil(t, sessionCookie(t, rec))
}

func TestMiddleware_DestroyInHandlerWithDestroyPolicy(t *testing.T) {
	t.Parallel()

	store := newRecordingStore()
	m := newManager(t, store, session.WithUnset(session.UnsetDestroy))
	require.NoError(t, store.MemoryStore.Set(context.Background(), "I1", &session.Data{Values: map[string]any{"x": 1}}))

	serve(m, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, session.MustFromContext(r.Context()).Destroy(r.Context()))
	}, request("I1"))

	assert.Equal(t, 1, store.count("destroy"), "the record is destroyed once")
}

func TestMiddleware_DestroyThenRegenerateThenUnset(t *testing.T) {
	t.Parallel()

	store := newRecordingStore()
	m := newManager(t, store, session.WithUnset(session.UnsetDestroy))
	require.NoError(t, store.MemoryStore.Set(context.Background(), "I1", &session.Data{Values: map[string]any{"x": 1}}))

	serve(m, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, session.MustFromContext(r.Context()).Destroy(r.Context()))
		s, err := session.Regenerate(r.Context())
		require.NoError(t, err)
		s.Set("k", "v")
		require.NoError(t, s.Save(r.Context()))
		require.NoError(t, session.Unset(r.Context()))
	}, request("I1"))

	n, err := store.MemoryStore.Len(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n, "the regenerated record is still destroyed at the end")
}

func TestMiddleware_ExplicitSaveInHandler(t *testing.T) {
	t.Parallel()

	store := newRecordingStore()
	m := newManager(t, store)

	serve(m, func(w http.ResponseWriter, r *http.Request) {
		s := session.MustFromContext(r.Context())
		s.Set("x", 1)
		require.NoError(t, s.Save(r.Context()))
	}, request(""))

	assert.Equal(t, 1, store.count("set"), "saved state is not written twice")
}

func TestMiddleware_Reload(t *testing.T) {
	t.Parallel()

	store := newRecordingStore()
	m := newManager(t, store)
	require.NoError(t, store.MemoryStore.Set(context.Background(), "I1", &session.Data{Values: map[string]any{"x": 1}}))

	serve(m, func(w http.ResponseWriter, r *http.Request) {
		s := session.MustFromContext(r.Context())
		s.Set("x", 5)
		require.NoError(t, store.MemoryStore.Set(r.Context(), "I1", &session.Data{Values: map[string]any{"x": 7}}))
		require.NoError(t, s.Reload(r.Context()))
		x, _ := s.GetInt("x")
		assert.Equal(t, 7, x)
		assert.Same(t, s, session.MustFromContext(r.Context()))
	}, request("I1"))

	data, err := store.MemoryStore.Get(context.Background(), "I1")
	require.NoError(t, err)
	assert.Equal(t, float64(7), data.Values["x"])
}

func TestMiddleware_ReloadMissing(t *testing.T) {
	t.Parallel()

	m := newManager(t, newRecordingStore())

	serve(m, func(w http.ResponseWriter, r *http.Request) {
		err := session.MustFromContext(r.Context()).Reload(r.Context())
		assert.ErrorIs(t, err, session.ErrLoadFailed)
	}, request(""))
}

func TestMiddleware_MalformedGeneratedID(t *testing.T) {
	t.Parallel()

	store := newRecordingStore()
	m := newManager(t, store,
		session.WithSaveUninitialized(true),
		session.WithIDGenerator(func(*http.Request) (string, error) { return "bad id;", nil }))

	rec := serve(m, func(w http.ResponseWriter, r *http.Request) {
		session.MustFromContext(r.Context()).Set("x", 1)
	}, request(""))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Nil(t, sessionCookie(t, rec))
	assert.Zero(t, store.count("set"))
}

func TestMiddleware_IDGeneratorError(t *testing.T) {
	t.Parallel()

	boom := errors.New("no entropy")
	var got error
	m := newManager(t, newRecordingStore(),
		session.WithIDGenerator(func(*http.Request) (string, error) { return "", boom }),
		session.WithErrorHandler(func(w http.ResponseWriter, r *http.Request, err error) {
			got = err
			w.WriteHeader(http.StatusInternalServerError)
		}))

	rec := serve(m, noop, request(""))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.ErrorIs(t, got, session.ErrIDGeneration)
	assert.ErrorIs(t, got, boom)
}

func TestMiddleware_Flush(t *testing.T) {
	t.Parallel()

	m := newManager(t, newRecordingStore())

	rec := serve(m, func(w http.ResponseWriter, r *http.Request) {
		session.MustFromContext(r.Context()).Set("x", 1)
		require.NoError(t, http.NewResponseController(w).Flush())
	}, request(""))

	assert.True(t, rec.Flushed)
	assert.NotNil(t, sessionCookie(t, rec))
}

func TestContextHelpers_OutsideMiddleware(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	_, ok := session.FromContext(ctx)
	assert.False(t, ok)
	assert.Empty(t, session.IDFromContext(ctx))
	assert.ErrorIs(t, session.Unset(ctx), session.ErrNoActiveSession)
	_, err := session.Regenerate(ctx)
	assert.ErrorIs(t, err, session.ErrNoActiveSession)
	assert.Panics(t, func() { session.MustFromContext(ctx) })
}
