// Package logger provides the structured slog-based logger used across
// the application.
package logger

import (
	"log/slog"
	"os"
)

// LogLevel represents the available log levels
type LogLevel string

const (
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

// Logger wraps slog.Logger with application conventions
type Logger struct {
	*slog.Logger
}

// NewLogger creates a new structured logger writing to stderr at the
// specified level
func NewLogger(level LogLevel) *Logger {
	var slogLevel slog.Level
	switch level {
	case LogLevelDebug:
		slogLevel = slog.LevelDebug
	case LogLevelWarn:
		slogLevel = slog.LevelWarn
	case LogLevelError:
		slogLevel = slog.LevelError
	default:
		slogLevel = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level: slogLevel,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			// Short time format; full timestamps add noise in a terminal app
			if a.Key == slog.TimeKey {
				return slog.Attr{
					Key:   "time",
					Value: slog.StringValue(a.Value.Time().Format("15:04:05")),
				}
			}
			return a
		},
	}

	return &Logger{Logger: slog.New(slog.NewTextHandler(os.Stderr, opts))}
}

// NewDefaultLogger creates a logger with INFO level for general use
func NewDefaultLogger() *Logger {
	return NewLogger(LogLevelInfo)
}

// WithComponent creates a logger with a component context for better tracing
func (l *Logger) WithComponent(component string) *Logger {
	return &Logger{Logger: l.Logger.With("component", component)}
}

// WithSession creates a logger carrying the session name
func (l *Logger) WithSession(name string) *Logger {
	return &Logger{Logger: l.Logger.With("session", name)}
}

// InfoWithIcon logs an info message with an emoji prefix for user-facing output
func (l *Logger) InfoWithIcon(icon string, msg string, args ...any) {
	l.Info(icon+" "+msg, args...)
}

// WarnWithIcon logs a warning with an emoji prefix for user-facing output
func (l *Logger) WarnWithIcon(icon string, msg string, args ...any) {
	l.Warn(icon+" "+msg, args...)
}

// DebugWithIcon logs a debug message with an emoji prefix
func (l *Logger) DebugWithIcon(icon string, msg string, args ...any) {
	l.Debug(icon+" "+msg, args...)
}

// Default logger instance - single instance for the entire application
var Default = NewDefaultLogger()

// SetGlobalLogLevel replaces the global default logger with one at the
// given level. Component loggers created afterwards inherit it.
func SetGlobalLogLevel(level LogLevel) {
	Default = NewLogger(level)
}

// NewComponentLogger creates a new logger for a specific component
func NewComponentLogger(component string) *Logger {
	return Default.WithComponent(component)
}
