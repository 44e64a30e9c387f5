package cookie

import "errors"

var (
	ErrNoSecret         = errors.New("cookie.no_secret")
	ErrCookieNotFound   = errors.New("cookie.not_found")
	ErrInvalidSignature = errors.New("cookie.invalid_signature")
)
