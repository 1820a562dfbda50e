package testfixtures

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/example/timeline-engine/internal/calendar"
)

var eventCounter uint64

// referenceTime is Saturday 2025-03-01 09:00 UTC. Week-grid tests rely on it
// falling mid-week for both Monday and Sunday starts.
var referenceTime = time.Date(2025, time.March, 1, 9, 0, 0, 0, time.UTC)

// ReferenceTime returns the shared base instant for deterministic tests.
func ReferenceTime() time.Time {
	return referenceTime
}

// ReferenceRange returns the Monday-start week containing ReferenceTime.
func ReferenceRange() calendar.DateRange {
	start := time.Date(2025, time.February, 24, 0, 0, 0, 0, time.UTC)
	return calendar.DateRange{Start: start, End: start.AddDate(0, 0, 7)}
}

// EventFixture is a deterministic timeline event.
type EventFixture struct {
	ID       string
	Title    string
	Start    time.Time
	End      time.Time
	Color    string
	Category string
	AllDay   bool
	Editable *bool
	Data     map[string]any
}

// EventOption configures the generated event fixture.
type EventOption func(*EventFixture)

// NewEventFixture returns an hour-long event starting at ReferenceTime plus
// one hour per fixture created so far, wrapping after 24 so every fixture
// stays inside ReferenceRange.
func NewEventFixture(opts ...EventOption) EventFixture {
	idx := atomic.AddUint64(&eventCounter, 1)
	start := referenceTime.Add(time.Duration((idx-1)%24) * time.Hour)
	fixture := EventFixture{
		ID:    fmt.Sprintf("event-%03d", idx),
		Title: fmt.Sprintf("Event %03d", idx),
		Start: start,
		End:   start.Add(time.Hour),
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithEventID overrides the identifier.
func WithEventID(id string) EventOption {
	return func(f *EventFixture) {
		f.ID = id
	}
}

// WithEventTitle overrides the title.
func WithEventTitle(title string) EventOption {
	return func(f *EventFixture) {
		f.Title = title
	}
}

// WithEventTimes sets start and end.
func WithEventTimes(start, end time.Time) EventOption {
	return func(f *EventFixture) {
		f.Start = start
		f.End = end
	}
}

// WithEventCategory sets the category.
func WithEventCategory(category string) EventOption {
	return func(f *EventFixture) {
		f.Category = category
	}
}

// WithEventColor sets an explicit color.
func WithEventColor(color string) EventOption {
	return func(f *EventFixture) {
		f.Color = color
	}
}

// WithEventAllDay marks the event as all-day.
func WithEventAllDay() EventOption {
	return func(f *EventFixture) {
		f.AllDay = true
	}
}

// WithEventEditable sets the editable flag.
func WithEventEditable(editable bool) EventOption {
	return func(f *EventFixture) {
		f.Editable = &editable
	}
}

// WithEventData attaches a payload.
func WithEventData(data map[string]any) EventOption {
	return func(f *EventFixture) {
		f.Data = data
	}
}

// Event converts the fixture into a calendar event.
func (f EventFixture) Event() calendar.TimelineEvent {
	return calendar.TimelineEvent{
		ID:       f.ID,
		Title:    f.Title,
		Start:    f.Start,
		End:      f.End,
		Color:    f.Color,
		Category: f.Category,
		AllDay:   f.AllDay,
		Editable: f.Editable,
		Data:     f.Data,
	}.Clone()
}

// Input converts the fixture into a create request.
func (f EventFixture) Input() calendar.EventInput {
	return f.Event().Input()
}

// Events builds n consecutive fixtures.
func Events(n int, opts ...EventOption) []calendar.TimelineEvent {
	out := make([]calendar.TimelineEvent, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, NewEventFixture(opts...).Event())
	}
	return out
}
