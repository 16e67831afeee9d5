// Package log provides a structured logging interface for ordboost pipeline runs.
//
// The Logger interface is slog-compatible so the backend can be switched; the
// default backend is zerolog (see zerolog.go). Attribute keys shared by every
// component live in attributes.go.
//
// Example usage:
//
//	logger := log.GetLoggerWithName("pipeline").With(
//	    log.RunIDKey, runID,
//	)
//	logger.Info("Training started",
//	    log.OperationKey, log.OperationFit,
//	    log.SamplesKey, 150,
//	    log.FeaturesKey, 4,
//	)
package log

import (
	"context"
)

// Logger defines a structured logging interface compatible with Go's log/slog.
//
// Fields are alternating key/value pairs. With returns a child logger whose
// fields are included in every subsequent record.
type Logger interface {
	// Debug logs detailed diagnostic information, such as per-iteration loss.
	Debug(msg string, fields ...any)

	// Info logs general operational information about a run.
	Info(msg string, fields ...any)

	// Warn logs conditions that do not stop the run, for example a booster
	// reaching its iteration limit before the loss plateaued.
	Warn(msg string, fields ...any)

	// Error logs an error condition. If the first field is an error it is
	// attached under the "error" key together with its stack trace.
	//
	// Example:
	//   logger.Error("Run aborted", err, log.PhaseKey, log.PhaseTraining)
	Error(msg string, fields ...any)

	// With returns a new Logger with the given fields pre-populated.
	With(fields ...any) Logger

	// Enabled reports whether the logger emits records at the given level.
	Enabled(ctx context.Context, level Level) bool
}

// Level represents a logging level, compatible with slog.Level.
type Level int

// Standard logging levels, values are compatible with slog.Level.
const (
	LevelDebug Level = -4
	LevelInfo  Level = 0
	LevelWarn  Level = 4
	LevelError Level = 8
)

// String returns the string representation of the log level.
func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// LoggerProvider creates and configures loggers. It allows tests to inject a
// capturing implementation.
type LoggerProvider interface {
	// GetLogger returns the default logger instance.
	GetLogger() Logger

	// GetLoggerWithName returns a logger tagged with a component name.
	GetLoggerWithName(name string) Logger

	// SetLevel sets the minimum log level for all loggers created by this provider.
	SetLevel(level Level)
}
