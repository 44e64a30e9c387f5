// Package httpserver runs an http.Server with graceful shutdown.
//
// Serve (or Run, which opens the listener itself) blocks until the context
// is cancelled, SIGINT or SIGTERM arrives, or the server fails. Shutdown
// then drains in-flight requests within the shutdown timeout and closes
// every io.Closer registered with WithCloser, in order. Register the session
// manager and its store there: a request that is still committing its
// session finishes before the store goes away.
//
//	srv := httpserver.NewFromConfig(cfg,
//	    httpserver.WithLogger(log),
//	    httpserver.WithCloser(sessions),
//	    httpserver.WithCloser(store),
//	)
//	if err := srv.Run(ctx, router); err != nil {
//	    log.Error("server failed", logger.Error(err))
//	}
//
// LivenessHandler and ReadinessHandler serve health endpoints; ReadyCheck
// turns a store's Ready method into a readiness probe.
package httpserver
