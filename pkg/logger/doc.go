// Package logger builds *slog.Logger instances with functional options and
// attribute helpers shared by the rest of the module.
//
// New picks a text or JSON handler, applies static attributes and wraps the
// handler in LogHandlerDecorator, which pulls request-scoped values (request
// id, environment) out of the record's context through ContextExtractor
// callbacks:
//
//	log := logger.New(
//	    logger.WithEnvironment(environment.Production, "sessiond"),
//	    logger.WithContextExtractors(requestid.LoggerExtractor()),
//	)
//	log.InfoContext(ctx, "session saved", logger.SessionID(id))
//
// SessionID only keeps a short prefix of the identifier; session ids are
// credentials and must not end up in logs.
package logger
