package session

import (
	"context"
	"maps"
)

// Data is the persisted form of a session. Every store reads and writes it.
type Data struct {
	Cookie *Cookie         `json:"cookie"`
	Values map[string]any `json:"values,omitempty"`
}

// Session represents the per-client key/value state of one request.
type Session struct {
	id     string
	values map[string]any
	cookie *Cookie
	ops    operations
}

// operations persists a session. The active session of a request is bound to
// a tracker that records save and reload outcomes on the request state.
type operations interface {
	save(ctx context.Context, s *Session) error
	reload(ctx context.Context, s *Session) error
	destroy(ctx context.Context, s *Session) error
	regenerate(ctx context.Context, s *Session) error
}

// NewSession builds a detached session bound to store. It is mostly useful
// for tooling and tests; request handlers get their session from FromContext.
func NewSession(store Store, id string, data *Data) *Session {
	s := sessionFromData(id, data)
	s.ops = storeOps{store: store}
	if s.cookie == nil {
		s.cookie = newCookie(DefaultConfig().Cookie, false)
	}
	return s
}

func sessionFromData(id string, data *Data) *Session {
	s := &Session{id: id, values: make(map[string]any)}
	if data == nil {
		return s
	}
	if data.Values != nil {
		maps.Copy(s.values, data.Values)
	}
	s.cookie = data.Cookie.clone()
	return s
}

// ID returns the session identifier.
func (s *Session) ID() string {
	if s == nil {
		return ""
	}
	return s.id
}

// Cookie returns the session's cookie descriptor. Changes to it are persisted
// with the session and reflected in the next Set-Cookie header.
func (s *Session) Cookie() *Cookie {
	if s == nil {
		return nil
	}
	return s.cookie
}

// Get retrieves a value from session data
func (s *Session) Get(key string) (any, bool) {
	if s == nil || s.values == nil {
		return nil, false
	}
	val, ok := s.values[key]
	return val, ok
}

// GetString retrieves a string value from session data
func (s *Session) GetString(key string) (string, bool) {
	val, ok := s.Get(key)
	if !ok {
		return "", false
	}
	str, ok := val.(string)
	return str, ok
}

// GetInt retrieves an int value from session data.
// Numbers decoded from a store arrive as float64 and are converted.
func (s *Session) GetInt(key string) (int, bool) {
	val, ok := s.Get(key)
	if !ok {
		return 0, false
	}
	switch v := val.(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	default:
		return 0, false
	}
}

// GetBool retrieves a bool value from session data
func (s *Session) GetBool(key string) (bool, bool) {
	val, ok := s.Get(key)
	if !ok {
		return false, false
	}
	b, ok := val.(bool)
	return b, ok
}

// Set stores a value in session data. Values must be JSON-serializable to survive a store round-trip.
func (s *Session) Set(key string, value any) {
	if s == nil {
		return
	}
	if s.values == nil {
		s.values = make(map[string]any)
	}
	s.values[key] = value
}

// Delete removes a value from session data
func (s *Session) Delete(key string) {
	if s == nil || s.values == nil {
		return
	}
	delete(s.values, key)
}

// Clear removes all data from the session
func (s *Session) Clear() {
	if s == nil {
		return
	}
	s.values = make(map[string]any)
}

// Values returns a copy of the session data.
func (s *Session) Values() map[string]any {
	if s == nil {
		return nil
	}
	return maps.Clone(s.values)
}

// Len returns the number of keys in the session.
func (s *Session) Len() int {
	if s == nil {
		return 0
	}
	return len(s.values)
}

// Touch resets the cookie expiry to now plus its original max age.
func (s *Session) Touch() {
	if s == nil {
		return
	}
	s.cookie.ResetMaxAge()
}

// Fingerprint returns the content hash of the session values. The cookie is not part of it.
func (s *Session) Fingerprint() string {
	if s == nil {
		return ""
	}
	return fingerprint(s.values)
}

// Save writes the session to the store.
func (s *Session) Save(ctx context.Context) error {
	if s == nil || s.ops == nil {
		return ErrNoActiveSession
	}
	return s.ops.save(ctx, s)
}

// Reload replaces the session contents with the stored record.
// The receiver stays valid; it returns ErrLoadFailed when the record is gone.
func (s *Session) Reload(ctx context.Context) error {
	if s == nil || s.ops == nil {
		return ErrNoActiveSession
	}
	return s.ops.reload(ctx, s)
}

// Destroy removes the session from the store. For the active session of a
// request it also unsets it, so nothing is saved at the end of the request.
func (s *Session) Destroy(ctx context.Context) error {
	if s == nil || s.ops == nil {
		return ErrNoActiveSession
	}
	return s.ops.destroy(ctx, s)
}

// Regenerate destroys the stored session and gives the request a fresh one
// with a new identifier. The receiver is updated in place.
func (s *Session) Regenerate(ctx context.Context) error {
	if s == nil || s.ops == nil {
		return ErrNoActiveSession
	}
	return s.ops.regenerate(ctx, s)
}

func (s *Session) data() *Data {
	return &Data{
		Cookie: s.cookie.clone(),
		Values: maps.Clone(s.values),
	}
}

// storeOps talks to the store directly.
type storeOps struct {
	store Store
}

func (o storeOps) save(ctx context.Context, s *Session) error {
	return o.store.Set(ctx, s.id, s.data())
}

func (o storeOps) reload(ctx context.Context, s *Session) error {
	data, err := o.store.Get(ctx, s.id)
	if err != nil && !isNotFound(err) {
		return err
	}
	if data == nil || err != nil {
		return ErrLoadFailed
	}
	fresh := sessionFromData(s.id, data)
	if fresh.cookie == nil {
		fresh.cookie = s.cookie
	}
	s.values = fresh.values
	s.cookie = fresh.cookie
	return nil
}

func (o storeOps) destroy(ctx context.Context, s *Session) error {
	return o.store.Destroy(ctx, s.id)
}

func (o storeOps) regenerate(ctx context.Context, s *Session) error {
	return ErrNoActiveSession
}
