package session

import "context"

type stateContextKey struct{}

func withState(ctx context.Context, st *requestState) context.Context {
	return context.WithValue(ctx, stateContextKey{}, st)
}

func stateFromContext(ctx context.Context) (*requestState, bool) {
	st, ok := ctx.Value(stateContextKey{}).(*requestState)
	return st, ok
}

// FromContext returns the request's session. ok is false outside the
// middleware and after the session was unset or destroyed.
func FromContext(ctx context.Context) (*Session, bool) {
	st, ok := stateFromContext(ctx)
	if !ok || st.sess == nil {
		return nil, false
	}
	return st.sess, true
}

// MustFromContext retrieves a session from the context or panics
func MustFromContext(ctx context.Context) *Session {
	s, ok := FromContext(ctx)
	if !ok {
		panic("session: not found in context")
	}
	return s
}

// IDFromContext returns the request's session id. It stays available after
// the session was unset.
func IDFromContext(ctx context.Context) string {
	st, ok := stateFromContext(ctx)
	if !ok {
		return ""
	}
	return st.id
}

// Unset detaches the session from the request. With UnsetDestroy the stored
// record is removed when the request ends; with UnsetKeep it is left alone.
func Unset(ctx context.Context) error {
	st, ok := stateFromContext(ctx)
	if !ok {
		return ErrNoActiveSession
	}
	st.unset()
	return nil
}

// Regenerate destroys the current record and gives the request a new session
// with a fresh id. It works even when the session was unset.
func Regenerate(ctx context.Context) (*Session, error) {
	st, ok := stateFromContext(ctx)
	if !ok {
		return nil, ErrNoActiveSession
	}
	if st.sess != nil {
		s := st.sess
		err := s.Regenerate(ctx)
		return s, err
	}
	err := st.regenerate(ctx)
	return st.sess, err
}
