package http

import (
	"context"
	"log/slog"

	"github.com/example/timeline-engine/internal/logging"
)

func handlerLogger(ctx context.Context, fallback *slog.Logger, handlerName, operation string, attrs ...any) *slog.Logger {
	attrs = append([]any{"handler", handlerName}, attrs...)
	return logging.Component(ctx, fallback, "http", operation, attrs...)
}
