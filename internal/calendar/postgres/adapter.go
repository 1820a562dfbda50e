// Package postgres stores timeline events in PostgreSQL through pgx.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/example/timeline-engine/internal/calendar"
	"github.com/example/timeline-engine/internal/logging"
	"github.com/example/timeline-engine/internal/palette"
)

// DB is the subset of *pgxpool.Pool the adapter uses.
type DB interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	BeginTx(ctx context.Context, txOptions pgx.TxOptions) (pgx.Tx, error)
}

var _ DB = (*pgxpool.Pool)(nil)

// Options configures the adapter.
type Options struct {
	// Location is the zone returned events are expressed in. Nil means
	// time.Local.
	Location    *time.Location
	ColorMap    map[string]string
	AutoColor   bool
	Accent      string
	IDGenerator func() string
	Logger      *slog.Logger
}

// Adapter implements calendar.Adapter over the events table.
type Adapter struct {
	db       DB
	location *time.Location
	colors   *palette.Resolver
	newID    func() string
	logger   *slog.Logger
}

var _ calendar.Adapter = (*Adapter)(nil)

const selectColumns = `id, title, starts_at, ends_at, color, category, all_day, recurrence, editable, data`

// Connect opens a pool for dsn.
func Connect(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: ping: %w", err)
	}
	return pool, nil
}

// New builds an adapter over db. The caller owns db.
func New(db DB, opts Options) *Adapter {
	loc := opts.Location
	if loc == nil {
		loc = time.Local
	}
	newID := opts.IDGenerator
	if newID == nil {
		newID = uuid.NewString
	}
	return &Adapter{
		db:       db,
		location: loc,
		colors: palette.NewResolver(palette.ResolverOptions{
			ColorMap:  opts.ColorMap,
			AutoColor: opts.AutoColor,
			Accent:    opts.Accent,
		}),
		newID:  newID,
		logger: logging.Default(opts.Logger).With("component", "postgres_adapter"),
	}
}

// FetchEvents returns events overlapping r in creation order.
func (a *Adapter) FetchEvents(ctx context.Context, r calendar.DateRange) ([]calendar.TimelineEvent, error) {
	rows, err := a.db.Query(ctx,
		`SELECT `+selectColumns+` FROM events WHERE starts_at < $1 AND ends_at > $2 ORDER BY seq`,
		r.End, r.Start)
	if err != nil {
		return nil, fmt.Errorf("postgres: query events: %w", err)
	}
	defer rows.Close()

	events := make([]calendar.TimelineEvent, 0)
	for rows.Next() {
		ev, err := a.scan(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, a.withColor(ev))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: iterate events: %w", err)
	}
	return events, nil
}

// CreateEvent inserts a new row under a fresh identifier.
func (a *Adapter) CreateEvent(ctx context.Context, in calendar.EventInput) (calendar.TimelineEvent, error) {
	if err := calendar.ValidateTimes(in.Start, in.End); err != nil {
		return calendar.TimelineEvent{}, err
	}
	ev := in.WithID(a.newID())

	_, err := a.db.Exec(ctx,
		`INSERT INTO events (`+selectColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		ev.ID, ev.Title, ev.Start, ev.End, ev.Color, ev.Category, ev.AllDay, ev.Recurrence, ev.Editable, ev.Data)
	if err != nil {
		return calendar.TimelineEvent{}, fmt.Errorf("postgres: insert event: %w", err)
	}
	return a.withColor(a.normalize(ev)), nil
}

// UpdateEvent locks the row, merges p and writes it back.
func (a *Adapter) UpdateEvent(ctx context.Context, id string, p calendar.Patch) (calendar.TimelineEvent, error) {
	var updated calendar.TimelineEvent
	err := a.withTx(ctx, func(tx pgx.Tx) error {
		current, err := a.scan(tx.QueryRow(ctx, `SELECT `+selectColumns+` FROM events WHERE id = $1 FOR UPDATE`, id))
		if errors.Is(err, pgx.ErrNoRows) {
			return calendar.NotFound(id)
		}
		if err != nil {
			return err
		}

		updated = p.Apply(current)
		if err := calendar.ValidateTimes(updated.Start, updated.End); err != nil {
			return err
		}

		_, err = tx.Exec(ctx,
			`UPDATE events SET title = $2, starts_at = $3, ends_at = $4, color = $5, category = $6, all_day = $7, recurrence = $8, editable = $9, data = $10 WHERE id = $1`,
			id, updated.Title, updated.Start, updated.End, updated.Color, updated.Category, updated.AllDay, updated.Recurrence, updated.Editable, updated.Data)
		if err != nil {
			return fmt.Errorf("postgres: update event: %w", err)
		}
		return nil
	})
	if err != nil {
		return calendar.TimelineEvent{}, err
	}
	return a.withColor(a.normalize(updated)), nil
}

// DeleteEvent removes the row with the given id.
func (a *Adapter) DeleteEvent(ctx context.Context, id string) error {
	tag, err := a.db.Exec(ctx, `DELETE FROM events WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("postgres: delete event: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return calendar.NotFound(id)
	}
	return nil
}

func (a *Adapter) withTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := a.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("postgres: begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("postgres: commit: %w", err)
	}
	return nil
}

func (a *Adapter) scan(row pgx.Row) (calendar.TimelineEvent, error) {
	var ev calendar.TimelineEvent
	err := row.Scan(&ev.ID, &ev.Title, &ev.Start, &ev.End, &ev.Color, &ev.Category, &ev.AllDay, &ev.Recurrence, &ev.Editable, &ev.Data)
	if errors.Is(err, pgx.ErrNoRows) {
		return calendar.TimelineEvent{}, err
	}
	if err != nil {
		return calendar.TimelineEvent{}, fmt.Errorf("postgres: scan event: %w", err)
	}
	return a.normalize(ev), nil
}

func (a *Adapter) normalize(ev calendar.TimelineEvent) calendar.TimelineEvent {
	ev.Start = ev.Start.In(a.location)
	ev.End = ev.End.In(a.location)
	return ev
}

func (a *Adapter) withColor(ev calendar.TimelineEvent) calendar.TimelineEvent {
	ev.Color = a.colors.Resolve(ev.Color, ev.Category, ev.Title)
	return ev
}
