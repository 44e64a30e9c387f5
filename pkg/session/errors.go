package session

import "errors"

var (
	// ErrNotFound is the tolerated "missing" error a store may return from Get.
	// The engine treats it exactly like a nil record.
	ErrNotFound = errors.New("session.not_found")

	// ErrStoreUnavailable is returned by stores whose backend is disconnected.
	ErrStoreUnavailable = errors.New("session.store_unavailable")

	// ErrLoadFailed indicates Reload found no record for the session id.
	ErrLoadFailed = errors.New("session.load_failed")

	// ErrIDGeneration indicates the identifier generator failed.
	ErrIDGeneration = errors.New("session.id_generation_failed")

	// ErrAlreadyFinalized is returned by every finalization attempt after the first.
	ErrAlreadyFinalized = errors.New("session.already_finalized")

	// ErrNoActiveSession indicates a request helper was used outside the middleware
	// or after the session was unset.
	ErrNoActiveSession = errors.New("session.no_active_session")
)

// Configuration errors. They are returned by New and never occur at request time.
var (
	ErrNoSecret          = errors.New("session.no_secret")
	ErrInvalidUnset      = errors.New("session.invalid_unset_policy")
	ErrInvalidTrustProxy = errors.New("session.invalid_trust_proxy")
	ErrInvalidSecureMode = errors.New("session.invalid_secure_mode")
	ErrInvalidSameSite   = errors.New("session.invalid_same_site")
	ErrNilIDGenerator    = errors.New("session.nil_id_generator")
	ErrInvalidCookieName = errors.New("session.invalid_cookie_name")
)
