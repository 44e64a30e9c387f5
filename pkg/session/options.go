package session

import (
	"log/slog"
	"time"
)

// Option is a functional option for configuring the Manager
type Option func(*Manager)

// WithStore sets a custom session store
func WithStore(store Store) Option {
	return func(m *Manager) {
		m.store = store
	}
}

// WithConfig replaces the configuration
func WithConfig(cfg Config) Option {
	return func(m *Manager) {
		m.cfg = cfg
	}
}

// WithSecrets sets the signing secrets. The first one signs new cookies.
func WithSecrets(secrets ...string) Option {
	return func(m *Manager) {
		m.cfg.Secrets = secrets
	}
}

// WithCookieName sets the session cookie name
func WithCookieName(name string) Option {
	return func(m *Manager) {
		m.cfg.CookieName = name
	}
}

// WithCookieOptions sets the attributes of the session cookie
func WithCookieOptions(opts CookieOptions) Option {
	return func(m *Manager) {
		m.cfg.Cookie = opts
	}
}

// WithMaxAge sets the cookie max age. Zero means a browser-session cookie.
func WithMaxAge(d time.Duration) Option {
	return func(m *Manager) {
		m.cfg.Cookie.MaxAge = d
	}
}

func WithResave(resave bool) Option {
	return func(m *Manager) {
		m.cfg.Resave = resave
	}
}

func WithRolling(rolling bool) Option {
	return func(m *Manager) {
		m.cfg.Rolling = rolling
	}
}

func WithSaveUninitialized(save bool) Option {
	return func(m *Manager) {
		m.cfg.SaveUninitialized = save
	}
}

func WithUnset(policy UnsetPolicy) Option {
	return func(m *Manager) {
		m.cfg.Unset = policy
	}
}

func WithTrustProxy(trust TrustProxy) Option {
	return func(m *Manager) {
		m.cfg.TrustProxy = trust
	}
}

// WithCommitTimeout bounds how long a response waits for the store at the end of a request.
func WithCommitTimeout(d time.Duration) Option {
	return func(m *Manager) {
		m.cfg.CommitTimeout = d
	}
}

// WithIDGenerator replaces GenerateID. A nil generator is a configuration error.
func WithIDGenerator(gen IDGenerator) Option {
	return func(m *Manager) {
		m.genID = gen
	}
}

// WithLogger sets the logger. Nil discards logs.
func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) {
		m.logger = l
	}
}

// WithErrorHandler sets the handler used when a session cannot be loaded.
func WithErrorHandler(h ErrorHandler) Option {
	return func(m *Manager) {
		m.onError = h
	}
}

// WithCommitErrorFunc sets the receiver of store errors raised after the handler returned.
func WithCommitErrorFunc(fn CommitErrorFunc) Option {
	return func(m *Manager) {
		m.onCommitError = fn
	}
}
