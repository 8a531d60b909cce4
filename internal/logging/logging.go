// Package logging builds the structured JSON loggers used across uxspec.
package logging

import (
	"io"
	"log/slog"
	"strings"
)

// New returns a JSON logger writing to w with a permanent "service" field.
func New(w io.Writer, service, level string) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: ParseLevel(level),
	}
	handler := slog.NewJSONHandler(w, opts).
		WithAttrs([]slog.Attr{
			slog.String("service", service),
		})
	return slog.New(handler)
}

// Setup installs New(w, service, level) as the default logger and returns it.
func Setup(w io.Writer, service, level string) *slog.Logger {
	logger := New(w, service, level)
	slog.SetDefault(logger)
	return logger
}

// ParseLevel maps debug, info, warn and error to slog levels. Anything else is info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
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
