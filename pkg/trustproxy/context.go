package trustproxy

import "context"

type infoContextKey struct{}

// WithInfo stores the resolved connection info in ctx.
func WithInfo(ctx context.Context, info Info) context.Context {
	return context.WithValue(ctx, infoContextKey{}, info)
}

// FromContext returns the connection info stored by Middleware.
func FromContext(ctx context.Context) (Info, bool) {
	info, ok := ctx.Value(infoContextKey{}).(Info)
	return info, ok
}

// ClientIPFromContext returns the resolved client IP, or an empty string.
func ClientIPFromContext(ctx context.Context) string {
	info, _ := FromContext(ctx)
	return info.ClientIP
}
