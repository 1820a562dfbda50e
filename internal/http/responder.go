package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/example/timeline-engine/internal/calendar"
	"github.com/example/timeline-engine/internal/logging"
)

var (
	errBadRequestBody = errors.New("invalid request body")
	errInvalidEventID = errors.New("invalid event id")
	errInvalidRange   = errors.New("start and end must be RFC3339 timestamps with start before end")
)

type responder struct {
	logger *slog.Logger
}

func newResponder(logger *slog.Logger) responder {
	return responder{logger: logging.Default(logger)}
}

func (r responder) writeJSON(ctx context.Context, w http.ResponseWriter, status int, payload any) {
	if w == nil {
		return
	}

	if status == http.StatusNoContent || payload == nil {
		w.WriteHeader(status)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		r.loggerFor(ctx).ErrorContext(ctx, "failed to encode response", "error", err)
	}
}

func (r responder) writeError(ctx context.Context, w http.ResponseWriter, status int, err error) {
	message := http.StatusText(status)
	if err != nil {
		if msg := strings.TrimSpace(err.Error()); msg != "" {
			message = msg
		}
		r.loggerFor(ctx).WarnContext(ctx, "request failed", "status", status, "error", err)
	}

	r.writeJSON(ctx, w, status, errorResponse{Message: message})
}

// handleAdapterError maps adapter errors onto statuses by kind.
func (r responder) handleAdapterError(ctx context.Context, w http.ResponseWriter, err error) {
	if err == nil {
		r.writeError(ctx, w, http.StatusInternalServerError, errors.New("unknown error"))
		return
	}

	kind := calendar.ErrorKind(err)
	status := statusForKind(kind)
	logger := r.loggerFor(ctx)
	if status >= http.StatusInternalServerError {
		logger.ErrorContext(ctx, "adapter call failed", "status", status, "error", err, "error_kind", kind)
	} else {
		logger.InfoContext(ctx, "adapter call rejected", "status", status, "error", err, "error_kind", kind)
	}

	message := err.Error()
	if status == http.StatusInternalServerError {
		message = "internal server error"
	}
	r.writeJSON(ctx, w, status, errorResponse{Message: message, ErrorKind: kind})
}

func statusForKind(kind string) int {
	switch kind {
	case "not_found":
		return http.StatusNotFound
	case "read_only":
		return http.StatusMethodNotAllowed
	case "invalid_range":
		return http.StatusUnprocessableEntity
	case "canceled":
		return http.StatusServiceUnavailable
	case "transport":
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func (r responder) loggerFor(ctx context.Context) *slog.Logger {
	if logger := logging.FromContext(ctx); logger != nil {
		return logger
	}
	return r.logger
}

type errorResponse struct {
	Message   string `json:"message"`
	ErrorKind string `json:"error_kind,omitempty"`
}
