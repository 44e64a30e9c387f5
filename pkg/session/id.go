package session

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"net/http"
	"strings"
)

// idBytes is the entropy of generated identifiers.
const idBytes = 24

// IDGenerator produces a new session identifier for the request.
type IDGenerator func(r *http.Request) (string, error)

// GenerateID returns 24 random bytes encoded as unpadded base64url.
func GenerateID(_ *http.Request) (string, error) {
	b := make([]byte, idBytes)
	if _, err := rand.Read(b); err != nil {
		return "", errors.Join(ErrIDGeneration, err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// validID reports whether id can be carried in a cookie value.
// Anything else disables saving, touching and cookie emission.
func validID(id string) bool {
	if id == "" {
		return false
	}
	return !strings.ContainsFunc(id, func(r rune) bool {
		return r <= 0x20 || r >= 0x7f || r == '"' || r == ',' || r == ';' || r == '\\'
	})
}
