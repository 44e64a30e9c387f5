package fingerprint

import (
	"crypto/subtle"
	"errors"
	"net/http"

	"github.com/dmitrymomot/sessionkit/pkg/session"
)

// SessionKey is the session value holding the bound fingerprint.
const SessionKey = "_fingerprint"

var (
	ErrNotBound = errors.New("fingerprint.not_bound")
	ErrMismatch = errors.New("fingerprint.mismatch")
)

// Bind records the fingerprint of r in s.
func Bind(r *http.Request, s *session.Session) {
	s.Set(SessionKey, fromRequest(r))
}

// Verify checks that r comes from the device s was bound to.
// It returns ErrNotBound when s carries no fingerprint.
func Verify(r *http.Request, s *session.Session) error {
	stored, ok := s.GetString(SessionKey)
	if !ok || stored == "" {
		return ErrNotBound
	}
	if subtle.ConstantTimeCompare([]byte(fromRequest(r)), []byte(stored)) != 1 {
		return ErrMismatch
	}
	return nil
}
