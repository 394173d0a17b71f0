package log

// Logger is the structured logger used across the client.
type Logger interface {
	// Debug logs low-level details, e.g. every request sent to the daemon.
	Debug(msg string, keysAndValues ...any)
	// Info logs routine events such as a wallet being bound to a session.
	Info(msg string, keysAndValues ...any)
	// Warn logs failures the caller is expected to handle (rejected calls).
	Warn(msg string, keysAndValues ...any)
	// Error logs failures that prevent an operation from completing.
	Error(msg string, keysAndValues ...any)
	// Fatal logs an unrecoverable failure and may terminate the process.
	Fatal(msg string, keysAndValues ...any)
	// WithKV returns a logger carrying an extra key-value pair.
	WithKV(key string, value any) Logger
	// GetAllKV returns the persistent key-value pairs of this logger.
	GetAllKV() []any
	// WithName returns a logger with name appended to its hierarchy.
	WithName(name string) Logger
	// Name returns the logger's name.
	Name() string
	// AddCallerSkip returns a logger skipping extra stack frames when
	// reporting the caller; returns itself if unsupported.
	AddCallerSkip(skip int) Logger
}

// Level represents the severity of a log message.
type Level string

const (
	LevelDebug Level = "debug"
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
	LevelFatal Level = "fatal"
)

// SpanEventRecorder records log events onto a trace span.
type SpanEventRecorder interface {
	TraceID() string
	SpanID() string

	// RecordEvent records a named event; keysAndValues become attributes.
	RecordEvent(name string, keysAndValues ...any)
	// RecordError records a named event and marks the span as failed.
	RecordError(name string, keysAndValues ...any)
}
