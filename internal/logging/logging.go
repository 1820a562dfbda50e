// Package logging carries slog loggers through contexts and builds the
// per-component loggers used across the engine, adapters and server.
package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"strings"
)

type contextKey struct{}

// ContextWithLogger returns a derived context that carries the provided logger.
func ContextWithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	if ctx == nil || logger == nil {
		return ctx
	}
	return context.WithValue(ctx, contextKey{}, logger)
}

// FromContext extracts a logger previously attached to the context.
func FromContext(ctx context.Context) *slog.Logger {
	if ctx == nil {
		return nil
	}
	logger, _ := ctx.Value(contextKey{}).(*slog.Logger)
	return logger
}

// Default returns logger, or slog.Default when logger is nil.
func Default(logger *slog.Logger) *slog.Logger {
	if logger != nil {
		return logger
	}
	return slog.Default()
}

// Component picks the context logger, then base, then slog.Default, and
// tags it with the component and operation names.
func Component(ctx context.Context, base *slog.Logger, component, operation string, attrs ...any) *slog.Logger {
	logger := FromContext(ctx)
	if logger == nil {
		logger = Default(base)
	}

	pairs := []any{"component", component}
	if operation != "" {
		pairs = append(pairs, "operation", operation)
	}
	if len(attrs) > 0 {
		pairs = append(pairs, attrs...)
	}
	return logger.With(pairs...)
}

// ParseLevel maps debug, info, warn and error (case-insensitive) to a level.
func ParseLevel(value string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("logging: unknown level %q", value)
}

// NewJSON builds the JSON logger the server writes to stdout.
func NewJSON(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}))
}

// RedactURL keeps the scheme and host of a URL. Paths and query strings of
// calendar feeds often embed access tokens.
func RedactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "...(redacted)"
	}
	return u.Scheme + "://" + u.Host + "/...(redacted)"
}
