// Package fingerprint derives a device fingerprint from an HTTP request and
// binds sessions to it.
//
// The fingerprint hashes the User-Agent, the Accept headers, the client IP
// and the set of common header names with blake2b. The client IP comes from
// trustproxy when its middleware ran, so requests behind a trusted proxy are
// fingerprinted by the real client address.
//
// Binding a session after sign-in makes a stolen cookie useless from another
// device:
//
//	s, _ := session.Regenerate(r.Context())
//	s.Set("user", user)
//	fingerprint.Bind(r, s)
//
//	// later
//	if err := fingerprint.Verify(r, s); errors.Is(err, fingerprint.ErrMismatch) {
//	    _ = s.Destroy(r.Context())
//	}
package fingerprint
