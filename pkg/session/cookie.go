package session

import (
	"encoding/json"
	"net/http"
	"time"
)

// Cookie describes how the session cookie is emitted. It travels with the
// session record so the expiry survives store round-trips.
type Cookie struct {
	Path        string
	Domain      string
	Secure      bool
	HTTPOnly    bool
	SameSite    http.SameSite
	Partitioned bool

	expires        *time.Time
	originalMaxAge *time.Duration
}

func newCookie(opts CookieOptions, secure bool) *Cookie {
	c := &Cookie{
		Path:        opts.Path,
		Domain:      opts.Domain,
		Secure:      secure,
		HTTPOnly:    opts.HTTPOnly,
		SameSite:    opts.SameSite,
		Partitioned: opts.Partitioned,
	}
	if c.Path == "" {
		c.Path = "/"
	}
	if opts.MaxAge > 0 {
		c.SetMaxAge(opts.MaxAge)
	}
	return c
}

// Expires returns the absolute expiry, or nil for a browser-session cookie.
func (c *Cookie) Expires() *time.Time {
	if c == nil || c.expires == nil {
		return nil
	}
	t := *c.expires
	return &t
}

// SetExpires sets the absolute expiry. Nil turns the cookie into a browser-session cookie.
func (c *Cookie) SetExpires(t *time.Time) {
	if t == nil {
		c.expires = nil
		c.originalMaxAge = nil
		return
	}
	e := *t
	c.expires = &e
	d := time.Until(e)
	c.originalMaxAge = &d
}

// MaxAge returns the remaining lifetime. ok is false for browser-session cookies.
func (c *Cookie) MaxAge() (d time.Duration, ok bool) {
	if c == nil || c.expires == nil {
		return 0, false
	}
	return time.Until(*c.expires), true
}

// SetMaxAge sets the expiry relative to now and remembers d as the original max age.
func (c *Cookie) SetMaxAge(d time.Duration) {
	e := time.Now().Add(d)
	c.expires = &e
	c.originalMaxAge = &d
}

// OriginalMaxAge returns the max age the cookie was configured with.
func (c *Cookie) OriginalMaxAge() (time.Duration, bool) {
	if c == nil || c.originalMaxAge == nil {
		return 0, false
	}
	return *c.originalMaxAge, true
}

// ResetMaxAge pushes the expiry forward by the original max age.
func (c *Cookie) ResetMaxAge() {
	if c == nil || c.originalMaxAge == nil {
		return
	}
	c.SetMaxAge(*c.originalMaxAge)
}

// HTTPCookie builds the wire cookie carrying value.
func (c *Cookie) HTTPCookie(name, value string) *http.Cookie {
	hc := &http.Cookie{
		Name:        name,
		Value:       value,
		Path:        c.Path,
		Domain:      c.Domain,
		Secure:      c.Secure,
		HttpOnly:    c.HTTPOnly,
		SameSite:    c.SameSite,
		Partitioned: c.Partitioned,
	}
	if c.expires != nil {
		hc.Expires = c.expires.UTC()
	}
	return hc
}

func (c *Cookie) clone() *Cookie {
	if c == nil {
		return nil
	}
	cp := *c
	if c.expires != nil {
		e := *c.expires
		cp.expires = &e
	}
	if c.originalMaxAge != nil {
		d := *c.originalMaxAge
		cp.originalMaxAge = &d
	}
	return &cp
}

type cookieJSON struct {
	OriginalMaxAge *int64     `json:"originalMaxAge"`
	Expires        *time.Time `json:"expires"`
	Secure         bool       `json:"secure"`
	HTTPOnly       bool       `json:"httpOnly"`
	Domain         string     `json:"domain,omitempty"`
	Path           string     `json:"path"`
	SameSite       string     `json:"sameSite,omitempty"`
	Partitioned    bool       `json:"partitioned,omitempty"`
}

// MarshalJSON implements json.Marshaler. The max age is stored in milliseconds.
func (c Cookie) MarshalJSON() ([]byte, error) {
	v := cookieJSON{
		Expires:     c.expires,
		Secure:      c.Secure,
		HTTPOnly:    c.HTTPOnly,
		Domain:      c.Domain,
		Path:        c.Path,
		SameSite:    sameSiteName(c.SameSite),
		Partitioned: c.Partitioned,
	}
	if c.originalMaxAge != nil {
		ms := c.originalMaxAge.Milliseconds()
		v.OriginalMaxAge = &ms
	}
	return json.Marshal(v)
}

// UnmarshalJSON implements json.Unmarshaler.
func (c *Cookie) UnmarshalJSON(b []byte) error {
	var v cookieJSON
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	*c = Cookie{
		Path:        v.Path,
		Domain:      v.Domain,
		Secure:      v.Secure,
		HTTPOnly:    v.HTTPOnly,
		SameSite:    parseSameSite(v.SameSite),
		Partitioned: v.Partitioned,
		expires:     v.Expires,
	}
	if v.OriginalMaxAge != nil {
		d := time.Duration(*v.OriginalMaxAge) * time.Millisecond
		c.originalMaxAge = &d
	}
	return nil
}

func sameSiteName(s http.SameSite) string {
	switch s {
	case http.SameSiteLaxMode:
		return "lax"
	case http.SameSiteStrictMode:
		return "strict"
	case http.SameSiteNoneMode:
		return "none"
	default:
		return ""
	}
}

func parseSameSite(s string) http.SameSite {
	switch s {
	case "lax":
		return http.SameSiteLaxMode
	case "strict":
		return http.SameSiteStrictMode
	case "none":
		return http.SameSiteNoneMode
	default:
		return http.SameSiteDefaultMode
	}
}
