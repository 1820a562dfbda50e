package ics

import (
	"fmt"
	"slices"
	"time"

	"github.com/teambition/rrule-go"

	"github.com/example/timeline-engine/internal/calendar"
)

// DefaultMaxOccurrences caps the instances produced per recurring item and
// query.
const DefaultMaxOccurrences = 5000

// occurrence is one concrete instance of an item.
type occurrence struct {
	item       Item
	start, end time.Time
	// instance is false for non-recurring items, whose id is the UID.
	instance bool
}

// expand returns the occurrences of items that overlap r. Overrides
// (RECURRENCE-ID) replace the instance they point at.
func expand(items []Item, r calendar.DateRange, limit int) ([]occurrence, []error) {
	if limit <= 0 {
		limit = DefaultMaxOccurrences
	}

	overrides := make(map[string][]Item)
	for _, it := range items {
		if it.RecurrenceID != nil {
			overrides[it.UID] = append(overrides[it.UID], it)
		}
	}

	var (
		out  []occurrence
		errs []error
	)
	for _, it := range items {
		if it.RecurrenceID != nil {
			continue
		}
		if it.RRule == "" {
			if calendar.Overlaps(it.Start, it.End, r.Start, r.End) {
				out = append(out, occurrence{item: it, start: it.Start, end: it.End})
			}
			continue
		}

		occs, err := expandRecurring(it, overrides[it.UID], r, limit)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		out = append(out, occs...)
	}
	return out, errs
}

func expandRecurring(it Item, overrides []Item, r calendar.DateRange, limit int) ([]occurrence, error) {
	rule, err := rrule.StrToRRule(it.RRule)
	if err != nil {
		return nil, fmt.Errorf("ics: %s: parse RRULE %q: %w", it.UID, it.RRule, err)
	}
	rule.DTStart(it.Start)

	var set rrule.Set
	set.RRule(rule)
	for _, ex := range it.ExDates {
		set.ExDate(ex.In(it.Start.Location()))
	}

	loc := it.Start.Location()
	duration := it.Duration()
	// Instances starting up to one duration before the range can still
	// overlap it.
	from := r.Start.Add(-duration).In(loc)
	to := r.End.In(loc)

	starts := set.Between(from, to, true)
	if len(starts) > limit {
		starts = starts[:limit]
	}

	out := make([]occurrence, 0, len(starts))
	for _, start := range starts {
		if overridden(overrides, start) {
			continue
		}
		end := start.Add(duration)
		if it.AllDay {
			start = time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, loc)
			end = start.AddDate(0, 0, int(duration.Hours()/24+0.5))
		}
		if calendar.Overlaps(start, end, r.Start, r.End) {
			out = append(out, occurrence{item: it, start: start, end: end, instance: true})
		}
	}

	// Overrides are matched against r on their own times; the slot they
	// replace may lie outside r.
	for _, ov := range overrides {
		slot := ov.RecurrenceID.In(loc)
		if len(set.Between(slot, slot, true)) == 0 {
			continue
		}
		if !calendar.Overlaps(ov.Start, ov.End, r.Start, r.End) {
			continue
		}
		occ := occurrence{item: ov, start: ov.Start, end: ov.End, instance: true}
		// The instance keeps the id of the slot it replaces.
		occ.item.RecurrenceID = &slot
		out = append(out, occ)
	}

	slices.SortStableFunc(out, func(a, b occurrence) int {
		return a.start.Compare(b.start)
	})
	return out, nil
}

func overridden(overrides []Item, slot time.Time) bool {
	for _, ov := range overrides {
		if ov.RecurrenceID.Equal(slot) {
			return true
		}
	}
	return false
}

// id is the UID for single items and "<uid>--<start RFC3339>" for instances.
func (o occurrence) id() string {
	if !o.instance {
		return o.item.UID
	}
	slot := o.start
	if o.item.RecurrenceID != nil {
		slot = *o.item.RecurrenceID
	}
	return o.item.UID + "--" + slot.UTC().Format(time.RFC3339)
}
