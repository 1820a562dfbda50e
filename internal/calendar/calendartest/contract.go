// Package calendartest holds the behavioral suite every writable
// calendar.Adapter must pass.
package calendartest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/example/timeline-engine/internal/calendar"
)

// Factory returns a fresh, empty adapter for one subtest.
type Factory func(t *testing.T) calendar.Adapter

var base = time.Date(2025, time.March, 1, 9, 0, 0, 0, time.UTC)

func day() calendar.DateRange {
	start := time.Date(2025, time.March, 1, 0, 0, 0, 0, time.UTC)
	return calendar.DateRange{Start: start, End: start.AddDate(0, 0, 1)}
}

func input(title string, start time.Time, d time.Duration) calendar.EventInput {
	return calendar.EventInput{Title: title, Start: start, End: start.Add(d)}
}

// Run exercises create, fetch, update and delete against adapters built by
// newAdapter.
func Run(t *testing.T, newAdapter Factory) {
	t.Helper()

	t.Run("create then fetch", func(t *testing.T) {
		adapter := newAdapter(t)
		ctx := context.Background()

		editable := false
		in := input("Yoga", base, time.Hour)
		in.Category = "wellness"
		in.Editable = &editable
		in.Data = map[string]any{"room": "A"}

		created, err := adapter.CreateEvent(ctx, in)
		if err != nil {
			t.Fatalf("create: %v", err)
		}
		if created.ID == "" {
			t.Fatalf("create returned an empty id")
		}

		events, err := adapter.FetchEvents(ctx, day())
		if err != nil {
			t.Fatalf("fetch: %v", err)
		}
		if len(events) != 1 {
			t.Fatalf("expected 1 event, got %d", len(events))
		}
		got := events[0]
		if got.ID != created.ID || got.Title != "Yoga" || got.Category != "wellness" {
			t.Fatalf("unexpected event %+v", got)
		}
		if !got.Start.Equal(in.Start) || !got.End.Equal(in.End) {
			t.Fatalf("times changed: %v..%v", got.Start, got.End)
		}
		if got.Editable == nil || *got.Editable {
			t.Fatalf("editable flag lost: %v", got.Editable)
		}
		if got.Data["room"] != "A" {
			t.Fatalf("data lost: %v", got.Data)
		}
	})

	t.Run("ids are distinct", func(t *testing.T) {
		adapter := newAdapter(t)
		ctx := context.Background()
		seen := map[string]bool{}
		for i := 0; i < 5; i++ {
			ev, err := adapter.CreateEvent(ctx, input("Repeat", base, time.Hour))
			if err != nil {
				t.Fatalf("create: %v", err)
			}
			if seen[ev.ID] {
				t.Fatalf("duplicate id %q", ev.ID)
			}
			seen[ev.ID] = true
		}
	})

	t.Run("fetch is half open", func(t *testing.T) {
		adapter := newAdapter(t)
		ctx := context.Background()
		r := calendar.DateRange{Start: base, End: base.Add(time.Hour)}

		for _, in := range []calendar.EventInput{
			input("before", base.Add(-time.Hour), time.Hour),
			input("inside", base.Add(15*time.Minute), 30*time.Minute),
			input("after", base.Add(time.Hour), time.Hour),
		} {
			if _, err := adapter.CreateEvent(ctx, in); err != nil {
				t.Fatalf("create %s: %v", in.Title, err)
			}
		}

		events, err := adapter.FetchEvents(ctx, r)
		if err != nil {
			t.Fatalf("fetch: %v", err)
		}
		if len(events) != 1 || events[0].Title != "inside" {
			t.Fatalf("expected only the inside event, got %+v", events)
		}
	})

	t.Run("far dates round trip and match wide ranges", func(t *testing.T) {
		adapter := newAdapter(t)
		ctx := context.Background()
		far := time.Date(2300, time.January, 1, 9, 0, 0, 0, time.UTC)

		near, err := adapter.CreateEvent(ctx, input("near", base, time.Hour))
		if err != nil {
			t.Fatalf("create near: %v", err)
		}
		future, err := adapter.CreateEvent(ctx, input("future", far, time.Hour))
		if err != nil {
			t.Fatalf("create future: %v", err)
		}
		if !future.Start.Equal(far) {
			t.Fatalf("future start changed to %v", future.Start)
		}

		all, err := adapter.FetchEvents(ctx, calendar.DateRange{
			Start: time.Time{},
			End:   time.Date(9999, time.January, 1, 0, 0, 0, 0, time.UTC),
		})
		if err != nil {
			t.Fatalf("fetch all: %v", err)
		}
		if len(all) != 2 || all[0].ID != near.ID || all[1].ID != future.ID {
			t.Fatalf("expected both events over the widest range, got %+v", all)
		}
		if !all[1].Start.Equal(far) || !all[1].End.Equal(far.Add(time.Hour)) {
			t.Fatalf("future event read back as %v..%v", all[1].Start, all[1].End)
		}

		until, err := adapter.FetchEvents(ctx, calendar.DateRange{
			Start: time.Date(2000, time.January, 1, 0, 0, 0, 0, time.UTC),
			End:   time.Date(2300, time.January, 1, 0, 0, 0, 0, time.UTC),
		})
		if err != nil {
			t.Fatalf("fetch until 2300: %v", err)
		}
		if len(until) != 1 || until[0].ID != near.ID {
			t.Fatalf("expected only the near event, got %+v", until)
		}
	})

	t.Run("update merges and keeps id", func(t *testing.T) {
		adapter := newAdapter(t)
		ctx := context.Background()
		created, err := adapter.CreateEvent(ctx, input("Standup", base, 15*time.Minute))
		if err != nil {
			t.Fatalf("create: %v", err)
		}

		otherID := "not-" + created.ID
		title := "Daily standup"
		updated, err := adapter.UpdateEvent(ctx, created.ID, calendar.Patch{ID: &otherID, Title: &title})
		if err != nil {
			t.Fatalf("update: %v", err)
		}
		if updated.ID != created.ID || updated.Title != title || !updated.Start.Equal(created.Start) {
			t.Fatalf("unexpected update result %+v", updated)
		}

		moved, err := adapter.UpdateEvent(ctx, created.ID, calendar.TimesPatch(base.Add(time.Hour), base.Add(2*time.Hour)))
		if err != nil {
			t.Fatalf("move: %v", err)
		}
		if !moved.Start.Equal(base.Add(time.Hour)) || moved.Title != title {
			t.Fatalf("unexpected move result %+v", moved)
		}
	})

	t.Run("update rejects inverted times", func(t *testing.T) {
		adapter := newAdapter(t)
		ctx := context.Background()
		created, err := adapter.CreateEvent(ctx, input("Focus", base, time.Hour))
		if err != nil {
			t.Fatalf("create: %v", err)
		}
		earlier := base.Add(-time.Hour)
		if _, err := adapter.UpdateEvent(ctx, created.ID, calendar.Patch{End: &earlier}); !errors.Is(err, calendar.ErrInvalidRange) {
			t.Fatalf("expected ErrInvalidRange, got %v", err)
		}
		if _, err := adapter.CreateEvent(ctx, input("Backwards", base, -time.Minute)); !errors.Is(err, calendar.ErrInvalidRange) {
			t.Fatalf("expected ErrInvalidRange on create, got %v", err)
		}
	})

	t.Run("delete removes", func(t *testing.T) {
		adapter := newAdapter(t)
		ctx := context.Background()
		created, err := adapter.CreateEvent(ctx, input("Lunch", base.Add(3*time.Hour), time.Hour))
		if err != nil {
			t.Fatalf("create: %v", err)
		}
		if err := adapter.DeleteEvent(ctx, created.ID); err != nil {
			t.Fatalf("delete: %v", err)
		}
		events, err := adapter.FetchEvents(ctx, day())
		if err != nil {
			t.Fatalf("fetch: %v", err)
		}
		if len(events) != 0 {
			t.Fatalf("expected no events after delete, got %+v", events)
		}
	})

	t.Run("unknown id is not found", func(t *testing.T) {
		adapter := newAdapter(t)
		ctx := context.Background()
		title := "x"
		if _, err := adapter.UpdateEvent(ctx, "missing", calendar.Patch{Title: &title}); !errors.Is(err, calendar.ErrNotFound) {
			t.Fatalf("update: expected ErrNotFound, got %v", err)
		}
		if err := adapter.DeleteEvent(ctx, "missing"); !errors.Is(err, calendar.ErrNotFound) {
			t.Fatalf("delete: expected ErrNotFound, got %v", err)
		}
	})
}
