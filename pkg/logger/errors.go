package logger

import "errors"

// ErrInvalidFormat is reported for output formats other than json and text.
var ErrInvalidFormat = errors.New("logger.invalid_format")
