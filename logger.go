package oatmeal

import "log/slog"

// loggerComponent is the attribute defaultLogger stamps onto every
// record it emits, so a Port's own trace lines (scan/ingest resync
// events, gated LOGR toggle output) are distinguishable from an
// application's own logging when both share one slog handler.
const loggerComponent = "oatmeal"

// Logger is the narrow structured-logging contract a Port uses: its own
// internal Debug-level trace (frame accepted, frame dropped, resync —
// see port.go's scan/restartAt) and builtins.go's LOGR-gated
// Info/Warn/Error calls. It is shaped to be satisfied directly by
// *slog.Logger, so the standard-library default needs no adapter; a
// caller that wants the teacher pack's own zerolog stack instead reaches
// for oatmealzero.New rather than a bundled adapter living in core.
type Logger interface {
	// Debug logs a debug-level message with optional key-value pairs.
	Debug(msg string, args ...any)
	// Info logs an info-level message with optional key-value pairs.
	Info(msg string, args ...any)
	// Warn logs a warning-level message with optional key-value pairs.
	Warn(msg string, args ...any)
	// Error logs an error-level message with optional key-value pairs.
	Error(msg string, args ...any)
}

// defaultLogger returns slog.Default() tagged with loggerComponent, the
// Option a Port falls back to when the caller never calls WithLogger.
func defaultLogger() Logger {
	return slog.Default().With("component", loggerComponent)
}
