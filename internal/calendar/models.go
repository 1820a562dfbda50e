package calendar

import (
	"maps"
	"time"
)

// TimelineEvent is a single event placed on the timeline.
type TimelineEvent struct {
	ID    string    `json:"id"`
	Title string    `json:"title"`
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
	// Color is resolved by adapters: explicit value, color map, auto palette.
	Color string `json:"color,omitempty"`
	// Category groups events (e.g. "wellness", "work") and keys auto-coloring.
	Category string `json:"category,omitempty"`
	// AllDay events render as a banner rather than a timed block.
	AllDay bool `json:"allDay,omitempty"`
	// Recurrence is an opaque rule string such as "FREQ=WEEKLY;BYDAY=MO".
	Recurrence string `json:"recurrence,omitempty"`
	// Editable reports whether the event may be moved or resized. Nil means
	// the source did not say.
	Editable *bool `json:"editable,omitempty"`
	// Data is an arbitrary payload from the source application.
	Data map[string]any `json:"data,omitempty"`
}

// EventInput carries the fields of a new event. The adapter assigns the ID.
type EventInput struct {
	Title      string         `json:"title"`
	Start      time.Time      `json:"start"`
	End        time.Time      `json:"end"`
	Color      string         `json:"color,omitempty"`
	Category   string         `json:"category,omitempty"`
	AllDay     bool           `json:"allDay,omitempty"`
	Recurrence string         `json:"recurrence,omitempty"`
	Editable   *bool          `json:"editable,omitempty"`
	Data       map[string]any `json:"data,omitempty"`
}

// Patch replaces the non-nil fields of an existing event.
type Patch struct {
	// ID is accepted so wire bodies decode cleanly but is never applied.
	ID         *string        `json:"id,omitempty"`
	Title      *string        `json:"title,omitempty"`
	Start      *time.Time     `json:"start,omitempty"`
	End        *time.Time     `json:"end,omitempty"`
	Color      *string        `json:"color,omitempty"`
	Category   *string        `json:"category,omitempty"`
	AllDay     *bool          `json:"allDay,omitempty"`
	Recurrence *string        `json:"recurrence,omitempty"`
	Editable   *bool          `json:"editable,omitempty"`
	Data       map[string]any `json:"data,omitempty"`
}

// DateRange is a half-open interval [Start, End).
type DateRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Overlaps reports whether [aStart, aEnd) and [bStart, bEnd) intersect. An
// interval ending exactly where the other begins does not overlap.
func Overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && aEnd.After(bStart)
}

// Overlaps reports whether the event intersects r.
func (e TimelineEvent) Overlaps(r DateRange) bool {
	return Overlaps(e.Start, e.End, r.Start, r.End)
}

// Duration returns End - Start.
func (e TimelineEvent) Duration() time.Duration {
	return e.End.Sub(e.Start)
}

// Clone returns a copy that shares no mutable state with e.
func (e TimelineEvent) Clone() TimelineEvent {
	out := e
	out.Data = cloneData(e.Data)
	if e.Editable != nil {
		v := *e.Editable
		out.Editable = &v
	}
	return out
}

// Input strips the identifier from e.
func (e TimelineEvent) Input() EventInput {
	return EventInput{
		Title:      e.Title,
		Start:      e.Start,
		End:        e.End,
		Color:      e.Color,
		Category:   e.Category,
		AllDay:     e.AllDay,
		Recurrence: e.Recurrence,
		Editable:   e.Editable,
		Data:       e.Data,
	}
}

// WithID builds the stored event for in under the given identifier.
func (in EventInput) WithID(id string) TimelineEvent {
	ev := TimelineEvent{
		ID:         id,
		Title:      in.Title,
		Start:      in.Start,
		End:        in.End,
		Color:      in.Color,
		Category:   in.Category,
		AllDay:     in.AllDay,
		Recurrence: in.Recurrence,
		Editable:   in.Editable,
		Data:       in.Data,
	}
	return ev.Clone()
}

// Apply merges p over ev. The identifier of ev is always kept.
func (p Patch) Apply(ev TimelineEvent) TimelineEvent {
	out := ev.Clone()
	if p.Title != nil {
		out.Title = *p.Title
	}
	if p.Start != nil {
		out.Start = *p.Start
	}
	if p.End != nil {
		out.End = *p.End
	}
	if p.Color != nil {
		out.Color = *p.Color
	}
	if p.Category != nil {
		out.Category = *p.Category
	}
	if p.AllDay != nil {
		out.AllDay = *p.AllDay
	}
	if p.Recurrence != nil {
		out.Recurrence = *p.Recurrence
	}
	if p.Editable != nil {
		v := *p.Editable
		out.Editable = &v
	}
	if p.Data != nil {
		out.Data = cloneData(p.Data)
	}
	out.ID = ev.ID
	return out
}

// TimesPatch builds a patch that only moves an event.
func TimesPatch(start, end time.Time) Patch {
	return Patch{Start: &start, End: &end}
}

func cloneData(data map[string]any) map[string]any {
	if data == nil {
		return nil
	}
	return maps.Clone(data)
}

// CloneAll copies a slice of events.
func CloneAll(events []TimelineEvent) []TimelineEvent {
	out := make([]TimelineEvent, len(events))
	for i, ev := range events {
		out[i] = ev.Clone()
	}
	return out
}
