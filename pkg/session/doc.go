// Package session provides cookie based server-side sessions for net/http.
//
// A Manager wraps handlers with Middleware. For every request it recovers
// the session id from a signed cookie, loads the record from a Store (or
// creates a fresh session) and exposes it through FromContext. When the
// response starts, the middleware decides whether to emit the cookie; when
// the handler returns, it decides whether the record is saved, touched or
// destroyed. Both decisions happen exactly once per request.
//
// # Lifecycle rules
//
//   - A session is saved when its values changed since load, or always when
//     Resave is on. New sessions the handler never wrote to are neither saved
//     nor advertised unless SaveUninitialized is on.
//   - An unchanged session is touched (its expiry extended) when the store
//     implements Toucher.
//   - The cookie is sent for new sessions that are kept, on every response
//     when Rolling is on, and for changed sessions with an expiry.
//   - Secure cookies are never sent over plain connections. With
//     SecureAuto the flag follows the request, resolved through TrustProxy.
//   - Unset drops the session from the request; UnsetDestroy also removes
//     the record at the end of the request.
//
// Change detection compares a blake2b digest of the JSON encoded values, so
// it does not depend on the store's encoding or on map order.
//
// # Stores
//
// MemoryStore ships with the package and is meant for development. The
// redis, bolt, pg and mongo packages provide persistent stores. Stores whose
// backend can disappear implement Readier; while they report not ready,
// requests are served without a session instead of failing.
//
// # Usage
//
//	sessions, err := session.New(
//	    session.WithSecrets(os.Getenv("SESSION_SECRET")),
//	    session.WithMaxAge(24*time.Hour),
//	    session.WithStore(store),
//	)
//	if err != nil {
//	    return err
//	}
//	defer sessions.Close()
//
//	mux.HandleFunc("/login", func(w http.ResponseWriter, r *http.Request) {
//	    s := session.MustFromContext(r.Context())
//	    if err := s.Regenerate(r.Context()); err != nil {
//	        http.Error(w, "session error", http.StatusInternalServerError)
//	        return
//	    }
//	    s.Set("user_id", userID)
//	})
//	http.ListenAndServe(":8080", sessions.Middleware(mux))
//
// # Errors
//
// Configuration errors (ErrNoSecret, ErrInvalidUnset, ...) are returned by
// New. A forged or unsigned cookie is not an error: the client silently gets
// a new session. A store failure while loading is passed to the ErrorHandler
// and the handler is not called. Store failures after the handler returned go
// to the CommitErrorFunc and never hold up the response.
package session
