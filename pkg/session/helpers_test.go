package session_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/sessionkit/pkg/cookie"
	"github.com/dmitrymomot/sessionkit/pkg/logger"
	"github.com/dmitrymomot/sessionkit/pkg/session"
)

const testSecret = "keyboard cat"

// recordingStore wraps a MemoryStore and counts calls per operation.
type recordingStore struct {
	*session.MemoryStore
	session.Readiness

	mu     sync.Mutex
	calls  map[string]int
	getErr error
	setErr error
}

func newRecordingStore() *recordingStore {
	return &recordingStore{
		MemoryStore: session.NewMemoryStore(0),
		calls:       make(map[string]int),
	}
}

func (s *recordingStore) count(op string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[op]
}

func (s *recordingStore) total() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, c := range s.calls {
		n += c
	}
	return n
}

func (s *recordingStore) inc(op string) {
	s.mu.Lock()
	s.calls[op]++
	s.mu.Unlock()
}

func (s *recordingStore) Get(ctx context.Context, id string) (*session.Data, error) {
	s.inc("get")
	if s.getErr != nil {
		return nil, s.getErr
	}
	return s.MemoryStore.Get(ctx, id)
}

func (s *recordingStore) Set(ctx context.Context, id string, data *session.Data) error {
	s.inc("set")
	if s.setErr != nil {
		return s.setErr
	}
	return s.MemoryStore.Set(ctx, id, data)
}

func (s *recordingStore) Touch(ctx context.Context, id string, data *session.Data) error {
	s.inc("touch")
	return s.MemoryStore.Touch(ctx, id, data)
}

func (s *recordingStore) Destroy(ctx context.Context, id string) error {
	s.inc("destroy")
	return s.MemoryStore.Destroy(ctx, id)
}

func newManager(t *testing.T, store session.Store, opts ...session.Option) *session.Manager {
	t.Helper()
	base := []session.Option{
		session.WithSecrets(testSecret),
		session.WithStore(store),
		session.WithLogger(logger.Discard()),
	}
	m, err := session.New(append(base, opts...)...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = m.Close() })
	return m
}

// serve runs one request through the middleware.
func serve(m *session.Manager, h http.HandlerFunc, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	m.Middleware(h).ServeHTTP(rec, req)
	return rec
}

func request(sid string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if sid != "" {
		req.AddCookie(&http.Cookie{Name: session.DefaultCookieName, Value: cookie.Encode(sid, testSecret)})
	}
	return req
}

func sessionCookie(t *testing.T, rec *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range rec.Result().Cookies() {
		if c.Name == session.DefaultCookieName {
			return c
		}
	}
	return nil
}

func cookieID(t *testing.T, c *http.Cookie) string {
	t.Helper()
	require.NotNil(t, c)
	id, ok := cookie.Decode(c.Value, []string{testSecret})
	require.True(t, ok)
	return id
}

func noop(http.ResponseWriter, *http.Request) {}
