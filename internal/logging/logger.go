// Package logging defines a minimal structured-logging interface used
// across the project. Implementations can wrap slog, zap, zerolog, etc.
package logging

import "context"

// Logger is a context-aware, structured logger.
//
// The variadic args are interpreted as key–value pairs, e.g.:
//
//	log.Info(ctx, "starting server", "addr", addr, "env", env)
type Logger interface {
	// Debug logs a message at debug level.
	Debug(ctx context.Context, msg string, args ...any)

	// Info logs an informational message.
	Info(ctx context.Context, msg string, args ...any)

	// Warn logs a warning.
	Warn(ctx context.Context, msg string, args ...any)

	// Error logs an error message.
	Error(ctx context.Context, msg string, args ...any)

	// With returns a derived logger with the given key–value pairs
	// attached to every record.
	With(args ...any) Logger
}
