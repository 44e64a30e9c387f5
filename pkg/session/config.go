package session

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/dmitrymomot/sessionkit/pkg/environment"
)

// DefaultCookieName is the cookie used when Config.CookieName is empty.
const DefaultCookieName = "connect.sid"

// Config holds session middleware configuration.
type Config struct {
	// CookieName is the name of the session cookie (default: "connect.sid")
	CookieName string `env:"SESSION_COOKIE_NAME" envDefault:"connect.sid"`

	// Secrets signs the session cookie. The first secret signs, all of them verify.
	Secrets []string `env:"SESSION_SECRETS" envSeparator:","`

	// Resave forces the session to be saved even when it was not modified.
	Resave bool `env:"SESSION_RESAVE" envDefault:"false"`

	// Rolling re-issues the cookie on every response, resetting its expiry.
	Rolling bool `env:"SESSION_ROLLING" envDefault:"false"`

	// SaveUninitialized persists and advertises sessions the handler never wrote to.
	SaveUninitialized bool `env:"SESSION_SAVE_UNINITIALIZED" envDefault:"false"`

	// Unset controls what happens when the handler unsets the request's session.
	Unset UnsetPolicy `env:"SESSION_UNSET" envDefault:"keep"`

	// TrustProxy controls how forwarded protocol headers are honoured for secure=auto.
	TrustProxy TrustProxy `env:"SESSION_TRUST_PROXY" envDefault:"default"`

	Cookie CookieOptions `envPrefix:"SESSION_COOKIE_"`

	// CommitTimeout bounds how long response completion waits for the store (0 waits indefinitely).
	// A store call outliving the timeout still completes and reports its error.
	CommitTimeout time.Duration `env:"SESSION_COMMIT_TIMEOUT" envDefault:"0s"`

	Environment environment.Environment `env:"APP_ENV" envDefault:"development"`
}

// CookieOptions describes how the session cookie is emitted.
type CookieOptions struct {
	Path   string `env:"PATH" envDefault:"/"`
	Domain string `env:"DOMAIN"`
	// MaxAge of zero produces a browser-session cookie without expiry.
	MaxAge      time.Duration `env:"MAX_AGE" envDefault:"0s"`
	Secure      SecureMode    `env:"SECURE" envDefault:"false"`
	HTTPOnly    bool          `env:"HTTP_ONLY" envDefault:"true"`
	SameSite    http.SameSite `env:"SAME_SITE" envDefault:"0"`
	Partitioned bool          `env:"PARTITIONED" envDefault:"false"`
}

// DefaultConfig returns default session configuration. Secrets must still be provided.
func DefaultConfig() Config {
	return Config{
		CookieName:  DefaultCookieName,
		Unset:       UnsetKeep,
		TrustProxy:  TrustProxyDefault,
		Environment: environment.Development,
		Cookie: CookieOptions{
			Path:     "/",
			HTTPOnly: true,
		},
	}
}

func (c Config) validate() error {
	if strings.TrimSpace(c.CookieName) == "" || strings.ContainsAny(c.CookieName, " \t;,=\"") {
		return fmt.Errorf("%w: %q", ErrInvalidCookieName, c.CookieName)
	}

	if len(c.Secrets) == 0 {
		return ErrNoSecret
	}
	for i, s := range c.Secrets {
		if s == "" {
			return fmt.Errorf("%w: secret %d is empty", ErrNoSecret, i)
		}
	}

	var errs []error
	if !c.Unset.valid() {
		errs = append(errs, fmt.Errorf("%w: %q", ErrInvalidUnset, string(c.Unset)))
	}
	if c.TrustProxy > TrustProxyOff {
		errs = append(errs, fmt.Errorf("%w: %d", ErrInvalidTrustProxy, c.TrustProxy))
	}
	if c.Cookie.Secure > SecureAuto {
		errs = append(errs, fmt.Errorf("%w: %d", ErrInvalidSecureMode, c.Cookie.Secure))
	}
	if c.Cookie.SameSite < 0 || c.Cookie.SameSite > http.SameSiteNoneMode {
		errs = append(errs, fmt.Errorf("%w: %d", ErrInvalidSameSite, c.Cookie.SameSite))
	}
	return errors.Join(errs...)
}

// UnsetPolicy decides the fate of a session the handler unset.
type UnsetPolicy string

const (
	// UnsetKeep leaves the stored record untouched.
	UnsetKeep UnsetPolicy = "keep"
	// UnsetDestroy removes the stored record at the end of the request.
	UnsetDestroy UnsetPolicy = "destroy"
)

func (p UnsetPolicy) valid() bool {
	return p == "" || p == UnsetKeep || p == UnsetDestroy
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (p *UnsetPolicy) UnmarshalText(text []byte) error {
	v := UnsetPolicy(strings.ToLower(strings.TrimSpace(string(text))))
	if !v.valid() {
		return fmt.Errorf("%w: %q", ErrInvalidUnset, string(text))
	}
	if v == "" {
		v = UnsetKeep
	}
	*p = v
	return nil
}

// TrustProxy selects how the connection's security is resolved.
type TrustProxy uint8

const (
	// TrustProxyDefault defers to the upstream proxy-trust resolution stored in the
	// request context (see package trustproxy), falling back to the TLS state.
	TrustProxyDefault TrustProxy = iota
	// TrustProxyOn honours the first X-Forwarded-Proto value.
	TrustProxyOn
	// TrustProxyOff only looks at the TLS state of the connection.
	TrustProxyOff
)

// String implements fmt.Stringer.
func (t TrustProxy) String() string {
	switch t {
	case TrustProxyOn:
		return "true"
	case TrustProxyOff:
		return "false"
	default:
		return "default"
	}
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *TrustProxy) UnmarshalText(text []byte) error {
	switch strings.ToLower(strings.TrimSpace(string(text))) {
	case "", "default":
		*t = TrustProxyDefault
	case "true", "1", "yes", "on":
		*t = TrustProxyOn
	case "false", "0", "no", "off":
		*t = TrustProxyOff
	default:
		return fmt.Errorf("%w: %q", ErrInvalidTrustProxy, string(text))
	}
	return nil
}

// SecureMode is the cookie descriptor's secure setting.
type SecureMode uint8

const (
	SecureOff SecureMode = iota
	SecureOn
	// SecureAuto marks the cookie secure only when the current request arrived over TLS.
	SecureAuto
)

// String implements fmt.Stringer.
func (m SecureMode) String() string {
	switch m {
	case SecureOn:
		return "true"
	case SecureAuto:
		return "auto"
	default:
		return "false"
	}
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *SecureMode) UnmarshalText(text []byte) error {
	switch strings.ToLower(strings.TrimSpace(string(text))) {
	case "", "false", "0", "no", "off":
		*m = SecureOff
	case "true", "1", "yes", "on":
		*m = SecureOn
	case "auto":
		*m = SecureAuto
	default:
		return fmt.Errorf("%w: %q", ErrInvalidSecureMode, string(text))
	}
	return nil
}
