package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/example/timeline-engine/internal/calendar"
)

// DragMode is the state of a pointer gesture.
type DragMode string

const (
	DragNone        DragMode = "none"
	DragCreate      DragMode = "create"
	DragMove        DragMode = "move"
	DragResizeStart DragMode = "resize-start"
	DragResizeEnd   DragMode = "resize-end"
)

// Edge names the side of an event being resized.
type Edge string

const (
	EdgeStart Edge = "start"
	EdgeEnd   Edge = "end"
)

// DragPayload is the tentative placement of the gesture.
type DragPayload struct {
	// EventID is empty while creating.
	EventID  string
	Start    time.Time
	End      time.Time
	DayIndex int
}

// ErrNoDrop is returned by ApplyDrop when there is nothing to commit.
var ErrNoDrop = errors.New("engine: nothing to drop")

// Drag tracks a single create, move or resize gesture. It never touches the
// event store; see ApplyDrop.
type Drag struct {
	notifier

	mu      sync.RWMutex
	mode    DragMode
	payload *DragPayload
}

// NewDrag returns an idle drag state.
func NewDrag() *Drag {
	return &Drag{mode: DragNone}
}

// Mode returns the current gesture mode.
func (d *Drag) Mode() DragMode {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.mode
}

// Active reports whether a gesture is in progress.
func (d *Drag) Active() bool {
	return d.Mode() != DragNone
}

// Payload returns a copy of the live payload.
func (d *Drag) Payload() (DragPayload, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.payload == nil {
		return DragPayload{}, false
	}
	return *d.payload, true
}

// BeginCreate starts drawing a new event, replacing any gesture in progress.
func (d *Drag) BeginCreate(start, end time.Time, dayIndex int) {
	d.begin(DragCreate, DragPayload{Start: start, End: end, DayIndex: dayIndex})
}

// BeginMove starts moving an existing event.
func (d *Drag) BeginMove(eventID string, start, end time.Time) {
	d.begin(DragMove, DragPayload{EventID: eventID, Start: start, End: end})
}

// BeginResize starts dragging one edge of an existing event. Any edge other
// than EdgeStart resizes the end.
func (d *Drag) BeginResize(eventID string, edge Edge, start, end time.Time) {
	mode := DragResizeEnd
	if edge == EdgeStart {
		mode = DragResizeStart
	}
	d.begin(mode, DragPayload{EventID: eventID, Start: start, End: end})
}

// UpdatePointer moves the tentative times, keeping the day index. It does
// nothing while idle.
func (d *Drag) UpdatePointer(start, end time.Time) {
	d.update(start, end, nil)
}

// UpdatePointerDay moves the tentative times and the day column.
func (d *Drag) UpdatePointerDay(start, end time.Time, dayIndex int) {
	d.update(start, end, &dayIndex)
}

// Commit ends the gesture and returns its final payload.
func (d *Drag) Commit() (DragPayload, bool) {
	d.mu.Lock()
	p := d.payload
	d.mode, d.payload = DragNone, nil
	d.mu.Unlock()
	d.notify()

	if p == nil {
		return DragPayload{}, false
	}
	return *p, true
}

// Cancel ends the gesture and discards its payload.
func (d *Drag) Cancel() {
	d.mu.Lock()
	d.mode, d.payload = DragNone, nil
	d.mu.Unlock()
	d.notify()
}

func (d *Drag) begin(mode DragMode, p DragPayload) {
	d.mu.Lock()
	d.mode, d.payload = mode, &p
	d.mu.Unlock()
	d.notify()
}

func (d *Drag) update(start, end time.Time, dayIndex *int) {
	d.mu.Lock()
	if d.payload == nil {
		d.mu.Unlock()
		return
	}
	next := *d.payload
	next.Start, next.End = start, end
	if dayIndex != nil {
		next.DayIndex = *dayIndex
	}
	d.payload = &next
	d.mu.Unlock()
	d.notify()
}

// ApplyDrop turns a committed gesture into a store call. A create adds draft
// placed at the payload times; a move or resize moves the event. The mode
// must be read before Commit resets it.
func ApplyDrop(ctx context.Context, store *EventStore, p DragPayload, mode DragMode, draft calendar.EventInput) (calendar.TimelineEvent, error) {
	switch mode {
	case DragCreate:
		draft.Start, draft.End = p.Start, p.End
		return store.Add(ctx, draft)
	case DragMove, DragResizeStart, DragResizeEnd:
		if p.EventID == "" {
			return calendar.TimelineEvent{}, fmt.Errorf("%w: %s without an event id", ErrNoDrop, mode)
		}
		if err := store.Move(ctx, p.EventID, p.Start, p.End); err != nil {
			return calendar.TimelineEvent{}, err
		}
		ev, _ := store.ByID(p.EventID)
		return ev, nil
	}
	return calendar.TimelineEvent{}, fmt.Errorf("%w: mode %q", ErrNoDrop, mode)
}
