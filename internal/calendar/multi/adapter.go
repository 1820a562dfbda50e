// Package multi combines a writable primary adapter with read-only overlays
// such as recurring schedules and subscribed feeds.
package multi

import (
	"context"
	"fmt"

	"github.com/example/timeline-engine/internal/calendar"
)

// Adapter fans reads out to every source and routes writes to the primary.
type Adapter struct {
	primary  calendar.Adapter
	overlays []calendar.Adapter
}

var _ calendar.Adapter = (*Adapter)(nil)

// New builds a composite. primary may be nil, in which case every mutation
// fails with calendar.ErrReadOnly.
func New(primary calendar.Adapter, overlays ...calendar.Adapter) *Adapter {
	kept := make([]calendar.Adapter, 0, len(overlays))
	for _, o := range overlays {
		if o != nil {
			kept = append(kept, o)
		}
	}
	return &Adapter{primary: primary, overlays: kept}
}

// FetchEvents concatenates the primary's events and then each overlay's, in
// order. The first failing source aborts the fetch.
func (a *Adapter) FetchEvents(ctx context.Context, r calendar.DateRange) ([]calendar.TimelineEvent, error) {
	out := make([]calendar.TimelineEvent, 0)
	sources := a.overlays
	if a.primary != nil {
		sources = append([]calendar.Adapter{a.primary}, a.overlays...)
	}
	for i, src := range sources {
		events, err := src.FetchEvents(ctx, r)
		if err != nil {
			return nil, fmt.Errorf("multi: source %d: %w", i, err)
		}
		out = append(out, events...)
	}
	return out, nil
}

// CreateEvent goes to the primary.
func (a *Adapter) CreateEvent(ctx context.Context, in calendar.EventInput) (calendar.TimelineEvent, error) {
	if a.primary == nil {
		return calendar.TimelineEvent{}, errNoPrimary()
	}
	return a.primary.CreateEvent(ctx, in)
}

// UpdateEvent goes to the primary.
func (a *Adapter) UpdateEvent(ctx context.Context, id string, p calendar.Patch) (calendar.TimelineEvent, error) {
	if a.primary == nil {
		return calendar.TimelineEvent{}, errNoPrimary()
	}
	return a.primary.UpdateEvent(ctx, id, p)
}

// DeleteEvent goes to the primary.
func (a *Adapter) DeleteEvent(ctx context.Context, id string) error {
	if a.primary == nil {
		return errNoPrimary()
	}
	return a.primary.DeleteEvent(ctx, id)
}

func errNoPrimary() error {
	return fmt.Errorf("%w: no writable source configured", calendar.ErrReadOnly)
}
