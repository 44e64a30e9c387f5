package fingerprint

import (
	"context"
	"net/http"
)

type contextKey struct{}

// WithFingerprint stores fp in ctx.
func WithFingerprint(ctx context.Context, fp string) context.Context {
	return context.WithValue(ctx, contextKey{}, fp)
}

// FromContext returns the fingerprint stored by Middleware, or an empty string.
func FromContext(ctx context.Context) string {
	fp, _ := ctx.Value(contextKey{}).(string)
	return fp
}

// Middleware computes the request fingerprint once and stores it in the context.
// Mount it after trustproxy.Resolver.Middleware so the forwarded client IP is used.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := WithFingerprint(r.Context(), Generate(r))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func fromRequest(r *http.Request) string {
	if fp := FromContext(r.Context()); fp != "" {
		return fp
	}
	return Generate(r)
}
