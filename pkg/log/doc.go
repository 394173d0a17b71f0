// Package log provides the structured, context-aware logger used by the
// dscipc client and CLI.
//
// Loggers are passed explicitly or carried in a context:
//
//	logger := log.NewZapLogger(log.Config{Format: "logfmt", Level: log.LevelDebug})
//	ctx = log.SetContextLogger(ctx, logger.WithName("dscipc"))
//	log.FromContext(ctx).Info("wallet bound", "address", addr)
//
// When the context holds a valid OpenTelemetry span, SetContextLogger wraps
// the logger in a SpanLogger that also records every entry as a span event;
// Error and Fatal entries mark the span as failed.
package log
