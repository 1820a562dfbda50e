package engine

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/example/timeline-engine/internal/calendar"
	"github.com/example/timeline-engine/internal/logging"
	"github.com/example/timeline-engine/internal/timeutil"
)

const storeComponent = "event_store"

// EventStore is the client-side event cache in front of a calendar.Adapter.
//
// Every mutation goes to the adapter first and only touches the cache once
// the adapter succeeded. Loads upsert by id and never evict, so loading
// several ranges accumulates their union.
type EventStore struct {
	notifier

	adapter calendar.Adapter
	logger  *slog.Logger

	mu       sync.RWMutex
	events   []calendar.TimelineEvent
	inFlight int
	lastErr  string
}

// NewEventStore builds a store over adapter using slog.Default.
func NewEventStore(adapter calendar.Adapter) *EventStore {
	return NewEventStoreWithLogger(adapter, nil)
}

// NewEventStoreWithLogger builds a store that logs through logger.
func NewEventStoreWithLogger(adapter calendar.Adapter, logger *slog.Logger) *EventStore {
	return &EventStore{adapter: adapter, logger: logger}
}

// Events returns a snapshot of the cache in insertion order.
func (s *EventStore) Events() []calendar.TimelineEvent {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return calendar.CloneAll(s.events)
}

// Len returns the number of cached events.
func (s *EventStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.events)
}

// Loading reports whether any load or mutation is in flight.
func (s *EventStore) Loading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.inFlight > 0
}

// LastError returns the message of the most recent failure, or "" when the
// most recently started operation has not failed.
func (s *EventStore) LastError() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastErr
}

// ForRange returns the cached events overlapping [start, end).
func (s *EventStore) ForRange(start, end time.Time) []calendar.TimelineEvent {
	r := calendar.DateRange{Start: start, End: end}
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]calendar.TimelineEvent, 0)
	for _, ev := range s.events {
		if ev.Overlaps(r) {
			out = append(out, ev.Clone())
		}
	}
	return out
}

// ForDay returns the cached events overlapping the calendar day containing
// date, in date's location.
func (s *EventStore) ForDay(date time.Time) []calendar.TimelineEvent {
	return s.ForRange(timeutil.StartOfDay(date), timeutil.EndOfDay(date))
}

// ByID looks an event up in the cache.
func (s *EventStore) ByID(id string) (calendar.TimelineEvent, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if idx := s.indexLocked(id); idx >= 0 {
		return s.events[idx].Clone(), true
	}
	return calendar.TimelineEvent{}, false
}

// Load fetches r from the adapter and upserts the result. Failures are
// recorded in LastError and logged; they are never returned.
func (s *EventStore) Load(ctx context.Context, r calendar.DateRange) {
	logger := logging.Component(ctx, s.logger, storeComponent, "load",
		"range_start", r.Start, "range_end", r.End)
	s.begin()

	fetched, err := s.adapter.FetchEvents(ctx, r)
	if err != nil {
		logger.Warn("load failed", "error", err, "error_kind", calendar.ErrorKind(err))
		s.finish(err, nil)
		return
	}

	s.finish(nil, func() {
		for _, ev := range fetched {
			s.upsertLocked(ev)
		}
	})
	logger.Debug("events loaded", "count", len(fetched))
}

// Add creates an event through the adapter and appends the stored result.
func (s *EventStore) Add(ctx context.Context, in calendar.EventInput) (calendar.TimelineEvent, error) {
	logger := logging.Component(ctx, s.logger, storeComponent, "add")
	s.begin()

	created, err := s.adapter.CreateEvent(ctx, in)
	if err != nil {
		logger.Warn("add failed", "error", err, "error_kind", calendar.ErrorKind(err))
		s.finish(err, nil)
		return calendar.TimelineEvent{}, err
	}

	s.finish(nil, func() {
		s.events = append(s.events, created.Clone())
	})
	logger.Debug("event added", "event_id", created.ID)
	return created, nil
}

// Update patches an event through the adapter. The returned record replaces
// the cached entry, or is appended when the id was not cached yet.
func (s *EventStore) Update(ctx context.Context, id string, p calendar.Patch) error {
	logger := logging.Component(ctx, s.logger, storeComponent, "update", "event_id", id)
	s.begin()

	updated, err := s.adapter.UpdateEvent(ctx, id, p)
	if err != nil {
		logger.Warn("update failed", "error", err, "error_kind", calendar.ErrorKind(err))
		s.finish(err, nil)
		return err
	}

	s.finish(nil, func() {
		s.upsertLocked(updated)
	})
	logger.Debug("event updated")
	return nil
}

// Remove deletes an event through the adapter and drops it from the cache.
func (s *EventStore) Remove(ctx context.Context, id string) error {
	logger := logging.Component(ctx, s.logger, storeComponent, "remove", "event_id", id)
	s.begin()

	if err := s.adapter.DeleteEvent(ctx, id); err != nil {
		logger.Warn("remove failed", "error", err, "error_kind", calendar.ErrorKind(err))
		s.finish(err, nil)
		return err
	}

	s.finish(nil, func() {
		if idx := s.indexLocked(id); idx >= 0 {
			s.events = append(s.events[:idx], s.events[idx+1:]...)
		}
	})
	logger.Debug("event removed")
	return nil
}

// Move reschedules an event. It is Update with a start/end patch.
func (s *EventStore) Move(ctx context.Context, id string, start, end time.Time) error {
	return s.Update(ctx, id, calendar.TimesPatch(start, end))
}

// begin marks an operation in flight and clears the previous error.
func (s *EventStore) begin() {
	s.mu.Lock()
	s.inFlight++
	s.lastErr = ""
	s.mu.Unlock()
	s.notify()
}

// finish records the outcome of an operation. apply runs under the write
// lock and is only given on success.
func (s *EventStore) finish(err error, apply func()) {
	s.mu.Lock()
	if err != nil {
		s.lastErr = err.Error()
	}
	if apply != nil {
		apply()
	}
	s.inFlight--
	s.mu.Unlock()
	s.notify()
}

func (s *EventStore) upsertLocked(ev calendar.TimelineEvent) {
	if idx := s.indexLocked(ev.ID); idx >= 0 {
		s.events[idx] = ev.Clone()
		return
	}
	s.events = append(s.events, ev.Clone())
}

func (s *EventStore) indexLocked(id string) int {
	for i := range s.events {
		if s.events[i].ID == id {
			return i
		}
	}
	return -1
}
