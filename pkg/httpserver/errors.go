package httpserver

import "errors"

var (
	ErrStart          = errors.New("failed to start HTTP server")
	ErrShutdown       = errors.New("failed to shutdown HTTP server gracefully")
	ErrAlreadyRunning = errors.New("HTTP server already running")
)

// ErrNotReady is reported by ReadyCheck probes.
var ErrNotReady = errors.New("dependency is not ready")
