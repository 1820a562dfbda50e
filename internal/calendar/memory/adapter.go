// Package memory provides the in-process reference calendar adapter.
//
// Events live in an ordered slice; nothing is persisted. It backs demos and
// tests and defines the behavior the persistent adapters are checked against.
package memory

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/example/timeline-engine/internal/calendar"
	"github.com/example/timeline-engine/internal/palette"
)

var counter atomic.Uint64

// NewID returns "mem-<unix ms>-<n>". Identifiers are unique for the lifetime
// of the process only.
func NewID() string {
	return fmt.Sprintf("mem-%d-%d", time.Now().UnixMilli(), counter.Add(1))
}

// Options configures the adapter.
type Options struct {
	// ColorMap maps a category (or title) to a color.
	ColorMap map[string]string
	// AutoColor assigns Vivid palette colors by category or title.
	AutoColor bool
	// Accent switches auto-coloring to a palette generated from this color.
	Accent string
	// IDGenerator overrides NewID.
	IDGenerator func() string
}

// Adapter implements calendar.Adapter over an in-memory slice.
type Adapter struct {
	mu     sync.RWMutex
	events []calendar.TimelineEvent
	colors *palette.Resolver
	newID  func() string
}

// New seeds an adapter with a copy of initial.
func New(initial []calendar.TimelineEvent, opts Options) *Adapter {
	newID := opts.IDGenerator
	if newID == nil {
		newID = NewID
	}
	return &Adapter{
		events: calendar.CloneAll(initial),
		colors: palette.NewResolver(palette.ResolverOptions{
			ColorMap:  opts.ColorMap,
			AutoColor: opts.AutoColor,
			Accent:    opts.Accent,
		}),
		newID: newID,
	}
}

var _ calendar.Adapter = (*Adapter)(nil)

// FetchEvents returns the stored events overlapping r in insertion order.
func (a *Adapter) FetchEvents(ctx context.Context, r calendar.DateRange) ([]calendar.TimelineEvent, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	a.mu.RLock()
	defer a.mu.RUnlock()

	out := make([]calendar.TimelineEvent, 0)
	for _, ev := range a.events {
		if ev.Overlaps(r) {
			out = append(out, a.withColor(ev))
		}
	}
	return out, nil
}

// CreateEvent appends a new event under a fresh identifier.
func (a *Adapter) CreateEvent(ctx context.Context, in calendar.EventInput) (calendar.TimelineEvent, error) {
	if err := ctx.Err(); err != nil {
		return calendar.TimelineEvent{}, err
	}
	if err := calendar.ValidateTimes(in.Start, in.End); err != nil {
		return calendar.TimelineEvent{}, err
	}

	ev := in.WithID(a.newID())

	a.mu.Lock()
	a.events = append(a.events, ev)
	a.mu.Unlock()

	return a.withColor(ev), nil
}

// UpdateEvent merges p over the event with the given id.
func (a *Adapter) UpdateEvent(ctx context.Context, id string, p calendar.Patch) (calendar.TimelineEvent, error) {
	if err := ctx.Err(); err != nil {
		return calendar.TimelineEvent{}, err
	}
	a.mu.Lock()
	defer a.mu.Unlock()

	idx := a.indexLocked(id)
	if idx < 0 {
		return calendar.TimelineEvent{}, calendar.NotFound(id)
	}

	updated := p.Apply(a.events[idx])
	if err := calendar.ValidateTimes(updated.Start, updated.End); err != nil {
		return calendar.TimelineEvent{}, err
	}
	a.events[idx] = updated
	return a.withColor(updated), nil
}

// DeleteEvent removes the event with the given id, preserving order.
func (a *Adapter) DeleteEvent(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	a.mu.Lock()
	defer a.mu.Unlock()

	idx := a.indexLocked(id)
	if idx < 0 {
		return calendar.NotFound(id)
	}
	a.events = append(a.events[:idx], a.events[idx+1:]...)
	return nil
}

// Len returns the number of stored events.
func (a *Adapter) Len() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.events)
}

func (a *Adapter) indexLocked(id string) int {
	for i := range a.events {
		if a.events[i].ID == id {
			return i
		}
	}
	return -1
}

func (a *Adapter) withColor(ev calendar.TimelineEvent) calendar.TimelineEvent {
	out := ev.Clone()
	out.Color = a.colors.Resolve(ev.Color, ev.Category, ev.Title)
	return out
}
