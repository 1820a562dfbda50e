package calendar

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var (
	// ErrNotFound is returned when a mutation targets an unknown event id.
	ErrNotFound = errors.New("calendar: event not found")
	// ErrReadOnly is returned by adapters that project events rather than
	// store them.
	ErrReadOnly = errors.New("calendar: adapter is read-only")
	// ErrInvalidRange is returned when an event ends before it starts.
	ErrInvalidRange = errors.New("calendar: event ends before it starts")
)

// HTTPError reports a non-2xx response from a networked adapter.
type HTTPError struct {
	StatusCode int
	Status     string
}

// Error implements the error interface.
func (e *HTTPError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("calendar api error: %d %s", e.StatusCode, e.Status)
}

// Unwrap maps well-known statuses back onto the sentinel errors so callers
// can use errors.Is regardless of transport.
func (e *HTTPError) Unwrap() error {
	if e == nil {
		return nil
	}
	switch e.StatusCode {
	case 404:
		return ErrNotFound
	case 405:
		return ErrReadOnly
	case 422:
		return ErrInvalidRange
	}
	return nil
}

// NotFound wraps ErrNotFound with the missing identifier.
func NotFound(id string) error {
	return fmt.Errorf("%w: %s", ErrNotFound, id)
}

// ValidateTimes rejects an end before the start. Zero-length events are
// allowed.
func ValidateTimes(start, end time.Time) error {
	if end.Before(start) {
		return fmt.Errorf("%w: start %s, end %s", ErrInvalidRange, start.Format(time.RFC3339), end.Format(time.RFC3339))
	}
	return nil
}

// ErrorKind maps adapter errors to a stable label for logs and metrics.
func ErrorKind(err error) string {
	if err == nil {
		return ""
	}
	var httpErr *HTTPError
	switch {
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrReadOnly):
		return "read_only"
	case errors.Is(err, ErrInvalidRange):
		return "invalid_range"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	case errors.As(err, &httpErr):
		return "transport"
	}
	return "unexpected"
}
