package postgres

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/example/timeline-engine/internal/calendar"
	"github.com/example/timeline-engine/internal/calendar/calendartest"
)

type stubRow struct {
	scan func(dest ...any) error
}

func (r stubRow) Scan(dest ...any) error { return r.scan(dest...) }

type stubDB struct {
	execs    []string
	execTag  pgconn.CommandTag
	applied  bool
	beginErr error
	queryErr error
}

func (s *stubDB) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	s.execs = append(s.execs, sql)
	return s.execTag, nil
}

func (s *stubDB) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return nil, s.queryErr
}

func (s *stubDB) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	return stubRow{scan: func(dest ...any) error {
		if b, ok := dest[0].(*bool); ok {
			*b = s.applied
			return nil
		}
		return pgx.ErrNoRows
	}}
}

func (s *stubDB) BeginTx(ctx context.Context, opts pgx.TxOptions) (pgx.Tx, error) {
	return nil, s.beginErr
}

func TestMigrateSkipsAppliedVersions(t *testing.T) {
	t.Parallel()

	db := &stubDB{applied: true, beginErr: errors.New("unexpected transaction")}
	if err := New(db, Options{}).Migrate(context.Background()); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if len(db.execs) != 1 || !strings.Contains(db.execs[0], "schema_migrations") {
		t.Fatalf("expected only the tracking table statement, got %v", db.execs)
	}
}

func TestMigrateSurfacesTransactionErrors(t *testing.T) {
	t.Parallel()

	db := &stubDB{beginErr: errors.New("connection reset")}
	err := New(db, Options{}).Migrate(context.Background())
	if err == nil || !strings.Contains(err.Error(), "connection reset") {
		t.Fatalf("expected begin error, got %v", err)
	}
}

func TestEmbeddedMigrations(t *testing.T) {
	t.Parallel()

	names, err := migrationNames()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(names) == 0 || names[0] != "0001_events.sql" {
		t.Fatalf("unexpected migrations %v", names)
	}
}

func TestDeleteUnknownIDIsNotFound(t *testing.T) {
	t.Parallel()

	db := &stubDB{execTag: pgconn.NewCommandTag("DELETE 0")}
	err := New(db, Options{}).DeleteEvent(context.Background(), "missing")
	if !errors.Is(err, calendar.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestUpdateSurfacesBeginErrors(t *testing.T) {
	t.Parallel()

	db := &stubDB{beginErr: errors.New("begin failed")}
	title := "x"
	_, err := New(db, Options{}).UpdateEvent(context.Background(), "missing", calendar.Patch{Title: &title})
	if err == nil || !strings.Contains(err.Error(), "begin failed") {
		t.Fatalf("expected begin error, got %v", err)
	}
}

func TestCreateRejectsInvertedTimes(t *testing.T) {
	t.Parallel()

	db := &stubDB{}
	start := time.Date(2025, time.March, 1, 9, 0, 0, 0, time.UTC)
	_, err := New(db, Options{}).CreateEvent(context.Background(), calendar.EventInput{Title: "x", Start: start, End: start.Add(-time.Hour)})
	if !errors.Is(err, calendar.ErrInvalidRange) {
		t.Fatalf("expected ErrInvalidRange, got %v", err)
	}
	if len(db.execs) != 0 {
		t.Fatalf("invalid event reached the database")
	}
}

// TestAdapterContract runs against a real server when
// TIMELINE_TEST_POSTGRES_DSN is set. Each subtest truncates the table.
func TestAdapterContract(t *testing.T) {
	dsn := os.Getenv("TIMELINE_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("TIMELINE_TEST_POSTGRES_DSN not set")
	}

	ctx := context.Background()
	pool, err := Connect(ctx, dsn)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(pool.Close)

	if err := New(pool, Options{}).Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	calendartest.Run(t, func(t *testing.T) calendar.Adapter {
		if _, err := pool.Exec(ctx, `TRUNCATE events`); err != nil {
			t.Fatalf("truncate: %v", err)
		}
		return New(pool, Options{Location: time.UTC})
	})
}
