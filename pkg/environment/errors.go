package environment

import "errors"

// ErrUnknown is returned by Parse for unrecognized environment names.
var ErrUnknown = errors.New("environment.unknown")
