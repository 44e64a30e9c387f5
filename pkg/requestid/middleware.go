package requestid

import (
	"net/http"
	"strings"

	"github.com/google/uuid"
)

// Header is the default request id header.
const Header = "X-Request-ID"

const maxIDLength = 128

// Middleware tags every request with an id taken from the X-Request-ID
// header, or a new time-ordered UUID when the header is missing or unsafe.
func Middleware(next http.Handler) http.Handler {
	return WithHeader(Header)(next)
}

// WithHeader is Middleware reading and echoing a custom header.
func WithHeader(header string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get(header)
			if !valid(id) {
				id = New()
			}
			w.Header().Set(header, id)
			next.ServeHTTP(w, r.WithContext(WithContext(r.Context(), id)))
		})
	}
}

// New returns a fresh request id.
func New() string {
	if id, err := uuid.NewV7(); err == nil {
		return id.String()
	}
	return uuid.NewString()
}

func valid(id string) bool {
	if id == "" || len(id) > maxIDLength {
		return false
	}
	return !strings.ContainsFunc(id, func(r rune) bool {
		return !(r == '-' || r == '_' || (r >= '0' && r <= '9') || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z'))
	})
}
