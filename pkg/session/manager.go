package session

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/dmitrymomot/sessionkit/pkg/async"
	"github.com/dmitrymomot/sessionkit/pkg/config"
	"github.com/dmitrymomot/sessionkit/pkg/cookie"
	"github.com/dmitrymomot/sessionkit/pkg/logger"
	"github.com/dmitrymomot/sessionkit/pkg/trustproxy"
)

// ErrorHandler writes the response for a request whose session could not be loaded.
type ErrorHandler func(w http.ResponseWriter, r *http.Request, err error)

// CommitErrorFunc receives store errors raised after the handler returned.
// The response is already on its way, so they can only be reported.
type CommitErrorFunc func(r *http.Request, err error)

// Manager handles session operations
type Manager struct {
	cfg           Config
	store         Store
	readier       Readier
	toucher       Toucher
	genID         IDGenerator
	logger        *slog.Logger
	onError       ErrorHandler
	onCommitError CommitErrorFunc
}

// New creates a session manager from DefaultConfig and opts.
func New(opts ...Option) (*Manager, error) {
	return NewFromConfig(DefaultConfig(), opts...)
}

// NewFromConfig creates a session manager from cfg. Configuration problems
// are reported here and never at request time.
func NewFromConfig(cfg Config, opts ...Option) (*Manager, error) {
	m := &Manager{
		cfg:    cfg,
		genID:  GenerateID,
		logger: slog.Default(),
	}

	for _, opt := range opts {
		opt(m)
	}

	if m.cfg.CookieName == "" {
		m.cfg.CookieName = DefaultCookieName
	}
	if m.cfg.Cookie.Path == "" {
		m.cfg.Cookie.Path = "/"
	}
	if m.cfg.Unset == "" {
		m.cfg.Unset = UnsetKeep
	}

	var errs []error
	if err := m.cfg.validate(); err != nil {
		errs = append(errs, err)
	}
	if m.genID == nil {
		errs = append(errs, ErrNilIDGenerator)
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}

	if m.logger == nil {
		m.logger = logger.Discard()
	}
	m.logger = m.logger.With(logger.Component("session"))

	if m.store == nil {
		m.store = NewMemoryStore(time.Minute)
	}
	if _, ok := m.store.(*MemoryStore); ok && m.cfg.Environment.IsProduction() {
		m.logger.Warn("memory store is not designed for production: it leaks memory under load and is not shared between processes",
			logger.Store("memory"))
	}

	m.readier, _ = m.store.(Readier)
	m.toucher, _ = m.store.(Toucher)
	if n, ok := m.store.(Notifier); ok {
		n.Subscribe(func(ready bool) {
			if ready {
				m.logger.Info("session store connected", logger.Event("store_connected"))
				return
			}
			m.logger.Warn("session store disconnected, serving requests without sessions", logger.Event("store_disconnected"))
		})
	}

	if m.onError == nil {
		m.onError = func(w http.ResponseWriter, r *http.Request, err error) {
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		}
	}
	if m.onCommitError == nil {
		m.onCommitError = func(r *http.Request, err error) {
			m.logger.ErrorContext(r.Context(), "failed to commit session", logger.Error(err))
		}
	}

	return m, nil
}

// NewFromEnv loads Config from the environment (see Config tags) and creates a manager.
func NewFromEnv(opts ...Option) (*Manager, error) {
	cfg := DefaultConfig()
	if err := config.Load(&cfg); err != nil {
		return nil, err
	}
	return NewFromConfig(cfg, opts...)
}

// Config returns the effective configuration.
func (m *Manager) Config() Config {
	return m.cfg
}

// Store returns the store sessions are persisted to.
func (m *Manager) Store() Store {
	return m.store
}

// Middleware loads the session before next runs and decides, once the
// response is under way, whether to emit the cookie and what to persist.
func (m *Manager) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		// Already handled further up the chain.
		if _, ok := stateFromContext(ctx); ok {
			next.ServeHTTP(w, r)
			return
		}

		if m.readier != nil && !m.readier.Ready() {
			m.logger.DebugContext(ctx, "store is disconnected", logger.Event("passthrough"))
			next.ServeHTTP(w, r)
			return
		}

		if !strings.HasPrefix(r.URL.Path, m.cfg.Cookie.Path) {
			m.logger.DebugContext(ctx, "pathname mismatch", logger.Event("passthrough"))
			next.ServeHTTP(w, r)
			return
		}

		st := &requestState{m: m, r: r, cookieID: m.readCookie(r)}

		if err := m.load(ctx, st); err != nil {
			if errors.Is(err, ErrStoreUnavailable) {
				m.logger.DebugContext(ctx, "store is unavailable", logger.Event("passthrough"))
				next.ServeHTTP(w, r)
				return
			}
			m.onError(w, r, err)
			return
		}

		st.r = r.WithContext(withState(ctx, st))
		rw := newResponseWriter(w, st)
		next.ServeHTTP(rw, st.r)
		rw.finish()
	})
}

// readCookie recovers the session id from the request cookie.
// A missing, unsigned or forged cookie yields an empty id.
func (m *Manager) readCookie(r *http.Request) string {
	c, err := r.Cookie(m.cfg.CookieName)
	if err != nil || c.Value == "" {
		return ""
	}
	id, ok := cookie.Decode(c.Value, m.cfg.Secrets)
	if !ok {
		m.logger.DebugContext(r.Context(), "cookie signature invalid", logger.Event("cookie_rejected"))
		return ""
	}
	return id
}

func (m *Manager) load(ctx context.Context, st *requestState) error {
	if st.cookieID == "" {
		return st.start()
	}

	data, err := m.store.Get(ctx, st.cookieID)
	if err != nil && !isNotFound(err) {
		m.logger.ErrorContext(ctx, "failed to load session", logger.SessionID(st.cookieID), logger.Error(err))
		return err
	}
	if data == nil || err != nil {
		m.logger.DebugContext(ctx, "no session found", logger.SessionID(st.cookieID))
		return st.start()
	}

	st.inflate(data)
	return nil
}

// commit runs op detached from the request's cancellation and waits for it,
// at most CommitTimeout when one is configured.
func (m *Manager) commit(ctx context.Context, r *http.Request, op func(context.Context) error) {
	start := time.Now()
	f := async.Run(context.WithoutCancel(ctx), op)

	report := func(_ struct{}, err error) {
		if err != nil {
			m.onCommitError(r, err)
		}
	}

	if m.cfg.CommitTimeout <= 0 {
		report(f.Await())
		return
	}

	timer := time.NewTimer(m.cfg.CommitTimeout)
	defer timer.Stop()

	select {
	case <-f.Done():
		report(f.Await())
	case <-timer.C:
		m.logger.WarnContext(ctx, "session commit still pending, response released",
			logger.Duration(time.Since(start)))
		f.OnComplete(report)
	}
}

// Close stops the store's background work when the store supports it.
func (m *Manager) Close() error {
	if c, ok := m.store.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

func isSecure(r *http.Request, trust TrustProxy) bool {
	if r.TLS != nil {
		return true
	}
	switch trust {
	case TrustProxyOff:
		return false
	case TrustProxyOn:
		return trustproxy.ForwardedProto(r) == "https"
	default:
		return trustproxy.IsSecure(r)
	}
}
