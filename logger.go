package indisocket

import "log/slog"

// Logger is the interface for structured logging.
// It is satisfied by *slog.Logger; applications can plug in their own.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// defaultLogger returns the default slog logger from the standard library.
func defaultLogger() Logger {
	return slog.Default()
}

// withFields returns a logger that carries the given key-value pairs on
// every entry. Loggers other than *slog.Logger are returned as they are.
func withFields(logger Logger, args ...any) Logger {
	if l, ok := logger.(*slog.Logger); ok {
		return l.With(args...)
	}
	return logger
}
