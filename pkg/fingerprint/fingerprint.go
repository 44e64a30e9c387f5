package fingerprint

import (
	"crypto/subtle"
	"encoding/hex"
	"net"
	"net/http"
	"sort"
	"strings"

	"golang.org/x/crypto/blake2b"

	"github.com/dmitrymomot/sessionkit/pkg/trustproxy"
)

// Generate derives a device fingerprint from r: User-Agent, Accept headers,
// client IP and the set of common headers the client sent. The result is a
// 32-character hex string.
func Generate(r *http.Request) string {
	components := []string{
		r.UserAgent(),
		r.Header.Get("Accept-Language"),
		r.Header.Get("Accept-Encoding"),
		r.Header.Get("Accept"),
		clientIP(r),
		headerSet(r),
	}

	filtered := components[:0]
	for _, comp := range components {
		if comp != "" {
			filtered = append(filtered, comp)
		}
	}

	sum := blake2b.Sum256([]byte(strings.Join(filtered, "|")))
	return hex.EncodeToString(sum[:16])
}

// Validate reports whether r produces the stored fingerprint.
func Validate(r *http.Request, stored string) bool {
	if stored == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(Generate(r)), []byte(stored)) == 1
}

// clientIP prefers the address resolved by trustproxy.Resolver and falls
// back to the connection peer.
func clientIP(r *http.Request) string {
	if ip := trustproxy.ClientIPFromContext(r.Context()); ip != "" {
		return ip
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func headerSet(r *http.Request) string {
	var names []string
	for name := range r.Header {
		switch n := strings.ToLower(name); n {
		case "user-agent", "accept", "accept-language", "accept-encoding",
			"connection", "upgrade-insecure-requests", "sec-fetch-dest",
			"sec-fetch-mode", "sec-fetch-site", "cache-control":
			names = append(names, n)
		}
	}
	sort.Strings(names)
	return strings.Join(names, ",")
}
