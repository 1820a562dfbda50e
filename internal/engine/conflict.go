package engine

import (
	"github.com/example/timeline-engine/internal/calendar"
)

// Conflict is an existing event that overlaps a candidate.
type Conflict struct {
	WithEventID string
	// Category is set when both events share the same non-empty category.
	Category string
}

// DetectConflicts returns the events in existing that overlap candidate
// under the half-open rule, in the order of existing. The candidate itself
// (same id) and all-day events on either side never conflict.
func DetectConflicts(existing []calendar.TimelineEvent, candidate calendar.TimelineEvent) []Conflict {
	if candidate.AllDay {
		return nil
	}
	span := calendar.DateRange{Start: candidate.Start, End: candidate.End}

	var conflicts []Conflict
	for _, ev := range existing {
		if ev.AllDay || (candidate.ID != "" && ev.ID == candidate.ID) {
			continue
		}
		if !ev.Overlaps(span) {
			continue
		}
		c := Conflict{WithEventID: ev.ID}
		if candidate.Category != "" && ev.Category == candidate.Category {
			c.Category = ev.Category
		}
		conflicts = append(conflicts, c)
	}
	return conflicts
}

// Conflicts checks candidate against the cache. Drop targets use it to warn
// before committing a move.
func (s *EventStore) Conflicts(candidate calendar.TimelineEvent) []Conflict {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return DetectConflicts(s.events, candidate)
}
