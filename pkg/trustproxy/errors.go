package trustproxy

import "errors"

// ErrInvalidProxy is returned by New for entries that are neither an address nor a CIDR.
var ErrInvalidProxy = errors.New("trustproxy.invalid_proxy")
