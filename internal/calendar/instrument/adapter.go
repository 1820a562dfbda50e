// Package instrument decorates a calendar.Adapter with tracing, metrics and
// debug logging. Results and errors pass through unchanged.
package instrument

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/example/timeline-engine/internal/calendar"
	"github.com/example/timeline-engine/internal/logging"
	"github.com/example/timeline-engine/internal/metrics"
)

const instrumentationName = "github.com/example/timeline-engine/internal/calendar/instrument"

// Options configures the decorator. Every field is optional.
type Options struct {
	Metrics *metrics.Metrics
	// Tracer defaults to the global provider's tracer.
	Tracer trace.Tracer
	Logger *slog.Logger
}

// Adapter wraps another adapter.
type Adapter struct {
	name    string
	next    calendar.Adapter
	metrics *metrics.Metrics
	tracer  trace.Tracer
	logger  *slog.Logger
}

var _ calendar.Adapter = (*Adapter)(nil)

// Wrap instruments next under the label name.
func Wrap(name string, next calendar.Adapter, opts Options) *Adapter {
	tracer := opts.Tracer
	if tracer == nil {
		tracer = otel.Tracer(instrumentationName)
	}
	return &Adapter{
		name:    name,
		next:    next,
		metrics: opts.Metrics,
		tracer:  tracer,
		logger:  logging.Default(opts.Logger),
	}
}

// Unwrap returns the decorated adapter.
func (a *Adapter) Unwrap() calendar.Adapter {
	return a.next
}

func (a *Adapter) observe(ctx context.Context, op string, attrs ...attribute.KeyValue) (context.Context, func(err error, extra ...any)) {
	attrs = append([]attribute.KeyValue{attribute.String("calendar.adapter", a.name)}, attrs...)
	ctx, span := a.tracer.Start(ctx, "calendar."+op, trace.WithAttributes(attrs...))
	started := time.Now()

	return ctx, func(err error, extra ...any) {
		elapsed := time.Since(started)
		kind := calendar.ErrorKind(err)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, kind)
		}
		span.End()

		a.metrics.ObserveAdapterCall(a.name, op, kind, elapsed)

		logger := logging.Component(ctx, a.logger, "adapter", op, "adapter", a.name, "duration_ms", elapsed.Milliseconds())
		if err != nil {
			logger.Debug("adapter call failed", append([]any{"error", err, "error_kind", kind}, extra...)...)
			return
		}
		logger.Debug("adapter call completed", extra...)
	}
}

// FetchEvents delegates and records the range and result size.
func (a *Adapter) FetchEvents(ctx context.Context, r calendar.DateRange) ([]calendar.TimelineEvent, error) {
	ctx, done := a.observe(ctx, "fetch_events",
		attribute.String("calendar.range.start", r.Start.UTC().Format(time.RFC3339)),
		attribute.String("calendar.range.end", r.End.UTC().Format(time.RFC3339)))
	events, err := a.next.FetchEvents(ctx, r)
	done(err, "count", len(events))
	return events, err
}

// CreateEvent delegates.
func (a *Adapter) CreateEvent(ctx context.Context, in calendar.EventInput) (calendar.TimelineEvent, error) {
	ctx, done := a.observe(ctx, "create_event")
	ev, err := a.next.CreateEvent(ctx, in)
	done(err, "id", ev.ID)
	return ev, err
}

// UpdateEvent delegates.
func (a *Adapter) UpdateEvent(ctx context.Context, id string, p calendar.Patch) (calendar.TimelineEvent, error) {
	ctx, done := a.observe(ctx, "update_event", attribute.String("calendar.event.id", id))
	ev, err := a.next.UpdateEvent(ctx, id, p)
	done(err, "id", id)
	return ev, err
}

// DeleteEvent delegates.
func (a *Adapter) DeleteEvent(ctx context.Context, id string) error {
	ctx, done := a.observe(ctx, "delete_event", attribute.String("calendar.event.id", id))
	err := a.next.DeleteEvent(ctx, id)
	done(err, "id", id)
	return err
}
