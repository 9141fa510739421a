// Package logger builds log/slog loggers with context extraction and
// optional Sentry reporting.
//
// Every logger created here wraps its handler in a [LogHandlerDecorator],
// which runs [ContextExtractor] functions on each record. Extractors pull
// request-scoped values (request id, endpoint) out of the context passed to
// the *Context logging methods:
//
//	requestID := func(ctx context.Context) (slog.Attr, bool) {
//		if id, ok := ctx.Value(requestIDKey{}).(string); ok {
//			return slog.String("request_id", id), true
//		}
//		return slog.Attr{}, false
//	}
//
//	log := logger.New(requestID)
//	log.InfoContext(ctx, "request finished", slog.Int("status", 200))
//
// [NewWithOptions] selects level, format and destination. [NewWithSentry]
// tees records to Sentry and falls back to stdout-only logging when the DSN
// is empty or the SDK fails to initialize. [NewNope] discards everything
// and is the default for applications that configure no logger.
package logger
