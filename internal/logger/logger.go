package logger

// Logger defines the logging interface. Args are slog-style key/value pairs.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
	// With returns a Logger that adds args to every record.
	With(args ...any) Logger
}
