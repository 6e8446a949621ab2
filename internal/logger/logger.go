// Package logger wraps log/slog with a logger carried in the context.
package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
)

const requestIDKey = "request_id"

var defaultLogger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

type contextKey struct{}

var loggerKey = &contextKey{}

// Setup replaces the default logger with a JSON logger writing to w at the given level.
func Setup(w io.Writer, level string) *slog.Logger {
	defaultLogger = slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: ParseLevel(level)}))
	return defaultLogger
}

// ParseLevel maps debug/info/warn/error to a slog level, defaulting to info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// FromContext returns the logger from context, or the default logger.
func FromContext(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(loggerKey).(*slog.Logger); ok && l != nil {
		return l
	}
	return defaultLogger
}

// WithContext returns a new context that carries the given logger.
func WithContext(ctx context.Context, l *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, l)
}

// WithRequestID returns a new context whose logger includes the given request ID.
func WithRequestID(ctx context.Context, id string) context.Context {
	return WithContext(ctx, FromContext(ctx).With(requestIDKey, id))
}

// Error logs with error level. args are alternating key-value pairs (e.g. "error", err).
func Error(ctx context.Context, message string, args ...any) {
	FromContext(ctx).ErrorContext(ctx, message, args...)
}

// Warn logs with warn level.
func Warn(ctx context.Context, message string, args ...any) {
	FromContext(ctx).WarnContext(ctx, message, args...)
}

// Info logs with info level.
func Info(ctx context.Context, message string, args ...any) {
	FromContext(ctx).InfoContext(ctx, message, args...)
}

// Debug logs with debug level.
func Debug(ctx context.Context, message string, args ...any) {
	FromContext(ctx).DebugContext(ctx, message, args...)
}
