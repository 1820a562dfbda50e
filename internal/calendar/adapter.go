package calendar

import "context"

// Adapter is the data-source contract the event store is written against.
// Memory, REST, SQL, recurring and feed-backed sources all implement it.
type Adapter interface {
	// FetchEvents returns the events overlapping r under the half-open rule.
	FetchEvents(ctx context.Context, r DateRange) ([]TimelineEvent, error)
	// CreateEvent stores a new event and returns it with its assigned id.
	CreateEvent(ctx context.Context, in EventInput) (TimelineEvent, error)
	// UpdateEvent merges p over the stored event. The returned id always
	// equals id. Unknown ids yield ErrNotFound.
	UpdateEvent(ctx context.Context, id string, p Patch) (TimelineEvent, error)
	// DeleteEvent removes the event. Unknown ids yield ErrNotFound.
	DeleteEvent(ctx context.Context, id string) error
}
