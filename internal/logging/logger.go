// Package logging wraps log/slog with collector-wide conventions: JSON output
// by default and request-ID extraction from the request context.
package logging

import (
	"context"
	"log/slog"
	"os"

	"github.com/commlogs-systems/commlogs-collector/internal/middleware"
)

// Logger is a thin wrapper over slog.Logger that knows how to pull contextual
// fields out of a context.Context.
type Logger struct {
	*slog.Logger
}

// New creates a Logger at the given level. format is "json" or "text"; the
// default is json.
func New(level slog.Level, format string) *Logger {
	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: level <= slog.LevelError,
	}

	var handler slog.Handler
	switch format {
	case "text":
		handler = slog.NewTextHandler(os.Stdout, opts)
	default:
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	return &Logger{Logger: slog.New(handler)}
}

// Default returns a Logger over slog.Default.
func Default() *Logger {
	return &Logger{Logger: slog.Default()}
}

// WithContext returns a plain slog.Logger carrying the request ID when the
// context has one.
func (l *Logger) WithContext(ctx context.Context) *slog.Logger {
	if reqID := middleware.GetRequestID(ctx); reqID != "" {
		return l.Logger.With(slog.String("request_id", reqID))
	}
	return l.Logger
}

// With returns a new Logger with the given attributes added.
func (l *Logger) With(args ...any) *Logger {
	return &Logger{Logger: l.Logger.With(args...)}
}

// ParseLevel converts "debug", "info", "warn" or "error" to a slog.Level,
// defaulting to info for anything else.
func ParseLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// SetDefault installs l as the process-wide default for slog and the log
// package.
func SetDefault(l *Logger) {
	slog.SetDefault(l.Logger)
}
