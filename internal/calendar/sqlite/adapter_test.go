package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/example/timeline-engine/internal/calendar"
	"github.com/example/timeline-engine/internal/calendar/calendartest"
	"github.com/example/timeline-engine/internal/testfixtures"
)

func openTestAdapter(t *testing.T, opts Options) *Adapter {
	t.Helper()
	ctx := context.Background()
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	adapter, err := Open(ctx, filepath.Join(t.TempDir(), "timeline.db"), opts)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = adapter.Close() })
	if err := adapter.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return adapter
}

func TestAdapterContract(t *testing.T) {
	calendartest.Run(t, func(t *testing.T) calendar.Adapter {
		return openTestAdapter(t, Options{})
	})
}

func TestMigrateIsIdempotent(t *testing.T) {
	adapter := openTestAdapter(t, Options{})
	if err := adapter.Migrate(context.Background()); err != nil {
		t.Fatalf("second migrate: %v", err)
	}

	var count int
	if err := adapter.db.QueryRow(`SELECT COUNT(*) FROM schema_migrations`).Scan(&count); err != nil {
		t.Fatalf("count migrations: %v", err)
	}
	if count != len(migrations) {
		t.Fatalf("expected %d recorded migrations, got %d", len(migrations), count)
	}
}

func TestFetchPreservesCreationOrder(t *testing.T) {
	ids := testfixtures.NewIDGenerator("sql")
	adapter := openTestAdapter(t, Options{IDGenerator: ids.NextFunc()})
	ctx := context.Background()

	ref := testfixtures.ReferenceTime()
	// Created out of chronological order on purpose.
	for _, offset := range []time.Duration{2 * time.Hour, 0, time.Hour} {
		in := testfixtures.NewEventFixture(testfixtures.WithEventTimes(ref.Add(offset), ref.Add(offset+30*time.Minute))).Input()
		if _, err := adapter.CreateEvent(ctx, in); err != nil {
			t.Fatalf("create: %v", err)
		}
	}

	events, err := adapter.FetchEvents(ctx, testfixtures.ReferenceRange())
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	want := []string{"sql-1", "sql-2", "sql-3"}
	for i, ev := range events {
		if ev.ID != want[i] {
			t.Fatalf("position %d: got %q, want %q", i, ev.ID, want[i])
		}
	}
}

func TestDataSurvivesReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "persist.db")

	first, err := Open(ctx, path, Options{Location: time.UTC})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := first.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	created, err := first.CreateEvent(ctx, testfixtures.NewEventFixture().Input())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := first.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	second, err := Open(ctx, path, Options{Location: time.UTC})
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer second.Close()

	events, err := second.FetchEvents(ctx, calendar.DateRange{Start: created.Start, End: created.End})
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(events) != 1 || events[0].ID != created.ID {
		t.Fatalf("expected persisted event %q, got %+v", created.ID, events)
	}
}

func TestAutoColorApplied(t *testing.T) {
	adapter := openTestAdapter(t, Options{ColorMap: map[string]string{"wellness": "#34d399"}})
	ctx := context.Background()

	in := testfixtures.NewEventFixture(testfixtures.WithEventCategory("wellness")).Input()
	created, err := adapter.CreateEvent(ctx, in)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.Color != "#34d399" {
		t.Fatalf("expected mapped color, got %q", created.Color)
	}
}

func TestOpenRequiresDSN(t *testing.T) {
	if _, err := Open(context.Background(), " ", Options{}); err == nil {
		t.Fatalf("expected error for empty dsn")
	}
}

func TestMigrateConvertsNanosecondColumns(t *testing.T) {
	ctx := context.Background()
	adapter, err := Open(ctx, filepath.Join(t.TempDir(), "legacy.db"), Options{Location: time.UTC})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = adapter.Close() })

	for _, stmt := range migrations[0].statements {
		if _, err := adapter.db.ExecContext(ctx, stmt); err != nil {
			t.Fatalf("legacy schema: %v", err)
		}
	}
	if _, err := adapter.db.ExecContext(ctx, `CREATE TABLE schema_migrations (
		version TEXT PRIMARY KEY, applied_at TEXT NOT NULL, execution_time_ms INTEGER)`); err != nil {
		t.Fatalf("schema_migrations: %v", err)
	}
	if _, err := adapter.db.ExecContext(ctx,
		`INSERT INTO schema_migrations (version, applied_at) VALUES (?, ?)`, migrations[0].version, "2025-01-01T00:00:00Z"); err != nil {
		t.Fatalf("record legacy migration: %v", err)
	}

	start := time.Date(2025, time.March, 1, 9, 0, 0, 123456789, time.UTC)
	old := time.Date(1960, time.June, 1, 12, 30, 0, 250000000, time.UTC)
	rows := []struct {
		id         string
		start, end time.Time
	}{
		{id: "recent", start: start, end: start.Add(time.Hour)},
		{id: "before-epoch", start: old, end: old.Add(time.Hour)},
	}
	for _, row := range rows {
		if _, err := adapter.db.ExecContext(ctx,
			`INSERT INTO events (id, title, start_ns, end_ns) VALUES (?, ?, ?, ?)`,
			row.id, row.id, row.start.UnixNano(), row.end.UnixNano()); err != nil {
			t.Fatalf("insert legacy row: %v", err)
		}
	}

	if err := adapter.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	events, err := adapter.FetchEvents(ctx, calendar.DateRange{Start: time.Time{}, End: time.Date(9999, time.January, 1, 0, 0, 0, 0, time.UTC)})
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(events) != len(rows) {
		t.Fatalf("expected %d events, got %d", len(rows), len(events))
	}
	for i, row := range rows {
		if events[i].ID != row.id || !events[i].Start.Equal(row.start) || !events[i].End.Equal(row.end) {
			t.Fatalf("row %s converted to %+v", row.id, events[i])
		}
	}
}

func TestRejectsYearsWithoutFixedWidthForm(t *testing.T) {
	adapter := openTestAdapter(t, Options{})
	start := time.Date(10000, time.January, 1, 0, 0, 0, 0, time.UTC)

	_, err := adapter.CreateEvent(context.Background(), calendar.EventInput{Title: "far", Start: start, End: start.Add(time.Hour)})
	if !errors.Is(err, calendar.ErrInvalidRange) {
		t.Fatalf("expected ErrInvalidRange, got %v", err)
	}
}
