// Package sqlite stores timeline events in a SQLite database through
// database/sql and the pure-Go modernc.org/sqlite driver.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/example/timeline-engine/internal/calendar"
	"github.com/example/timeline-engine/internal/logging"
	"github.com/example/timeline-engine/internal/palette"
)

const selectColumns = `id, title, start_at, end_at, color, category, all_day, recurrence, editable, data`

// Adapter implements calendar.Adapter over an events table.
type Adapter struct {
	db       *sql.DB
	location *time.Location
	colors   *palette.Resolver
	newID    func() string
	logger   *slog.Logger
}

var _ calendar.Adapter = (*Adapter)(nil)

// Open connects to dsn (a file path, "file:" URI or ":memory:"). Call
// Migrate before first use.
func Open(ctx context.Context, dsn string, opts Options) (*Adapter, error) {
	opts = opts.withDefaults()
	db, err := openDB(ctx, dsn, opts)
	if err != nil {
		return nil, err
	}

	newID := opts.IDGenerator
	if newID == nil {
		newID = uuid.NewString
	}
	return &Adapter{
		db:       db,
		location: opts.Location,
		colors: palette.NewResolver(palette.ResolverOptions{
			ColorMap:  opts.ColorMap,
			AutoColor: opts.AutoColor,
			Accent:    opts.Accent,
		}),
		newID:  newID,
		logger: logging.Default(opts.Logger).With("component", "sqlite_adapter"),
	}, nil
}

// Close releases the database handle.
func (a *Adapter) Close() error {
	return a.db.Close()
}

// Ping checks the connection.
func (a *Adapter) Ping(ctx context.Context) error {
	return a.db.PingContext(ctx)
}

// FetchEvents returns events overlapping r in creation order.
func (a *Adapter) FetchEvents(ctx context.Context, r calendar.DateRange) ([]calendar.TimelineEvent, error) {
	rows, err := a.db.QueryContext(ctx,
		`SELECT `+selectColumns+` FROM events WHERE start_at < ? AND end_at > ? ORDER BY seq`,
		encodeBound(r.End), encodeBound(r.Start))
	if err != nil {
		return nil, fmt.Errorf("sqlite: query events: %w", err)
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
		return nil, fmt.Errorf("sqlite: iterate events: %w", err)
	}
	return events, nil
}

// CreateEvent inserts a new row under a fresh identifier.
func (a *Adapter) CreateEvent(ctx context.Context, in calendar.EventInput) (calendar.TimelineEvent, error) {
	if err := calendar.ValidateTimes(in.Start, in.End); err != nil {
		return calendar.TimelineEvent{}, err
	}
	ev := in.WithID(a.newID())

	args, err := rowArgs(ev)
	if err != nil {
		return calendar.TimelineEvent{}, err
	}
	if _, err := a.db.ExecContext(ctx,
		`INSERT INTO events (`+selectColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		append([]any{ev.ID}, args...)...); err != nil {
		return calendar.TimelineEvent{}, fmt.Errorf("sqlite: insert event: %w", err)
	}
	return a.withColor(a.normalize(ev)), nil
}

// UpdateEvent reads, merges and writes the row in one transaction.
func (a *Adapter) UpdateEvent(ctx context.Context, id string, p calendar.Patch) (calendar.TimelineEvent, error) {
	var updated calendar.TimelineEvent
	err := withTransaction(ctx, a.db, func(tx *sql.Tx) error {
		current, err := a.scan(tx.QueryRowContext(ctx, `SELECT `+selectColumns+` FROM events WHERE id = ?`, id))
		if errors.Is(err, sql.ErrNoRows) {
			return calendar.NotFound(id)
		}
		if err != nil {
			return err
		}

		updated = p.Apply(current)
		if err := calendar.ValidateTimes(updated.Start, updated.End); err != nil {
			return err
		}

		args, err := rowArgs(updated)
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx,
			`UPDATE events SET title = ?, start_at = ?, end_at = ?, color = ?, category = ?, all_day = ?, recurrence = ?, editable = ?, data = ? WHERE id = ?`,
			append(args, id)...)
		if err != nil {
			return fmt.Errorf("sqlite: update event: %w", err)
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
	res, err := a.db.ExecContext(ctx, `DELETE FROM events WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: delete event: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: delete event: %w", err)
	}
	if n == 0 {
		return calendar.NotFound(id)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func (a *Adapter) scan(s scanner) (calendar.TimelineEvent, error) {
	var (
		ev             calendar.TimelineEvent
		startAt, endAt string
		allDay         bool
		editable       sql.NullBool
		data           sql.NullString
	)
	if err := s.Scan(&ev.ID, &ev.Title, &startAt, &endAt, &ev.Color, &ev.Category, &allDay, &ev.Recurrence, &editable, &data); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return calendar.TimelineEvent{}, err
		}
		return calendar.TimelineEvent{}, fmt.Errorf("sqlite: scan event: %w", err)
	}

	var err error
	if ev.Start, err = decodeTime(startAt, a.location); err != nil {
		return calendar.TimelineEvent{}, fmt.Errorf("sqlite: decode start for %s: %w", ev.ID, err)
	}
	if ev.End, err = decodeTime(endAt, a.location); err != nil {
		return calendar.TimelineEvent{}, fmt.Errorf("sqlite: decode end for %s: %w", ev.ID, err)
	}
	ev.AllDay = allDay
	if editable.Valid {
		v := editable.Bool
		ev.Editable = &v
	}
	if data.Valid && data.String != "" {
		if err := json.Unmarshal([]byte(data.String), &ev.Data); err != nil {
			return calendar.TimelineEvent{}, fmt.Errorf("sqlite: decode data for %s: %w", ev.ID, err)
		}
	}
	return ev, nil
}

// rowArgs returns the column values after id in selectColumns order.
func rowArgs(ev calendar.TimelineEvent) ([]any, error) {
	var data sql.NullString
	if ev.Data != nil {
		encoded, err := json.Marshal(ev.Data)
		if err != nil {
			return nil, fmt.Errorf("sqlite: encode data for %s: %w", ev.ID, err)
		}
		data = sql.NullString{String: string(encoded), Valid: true}
	}
	var editable sql.NullBool
	if ev.Editable != nil {
		editable = sql.NullBool{Bool: *ev.Editable, Valid: true}
	}
	start, err := encodeTime(ev.Start)
	if err != nil {
		return nil, err
	}
	end, err := encodeTime(ev.End)
	if err != nil {
		return nil, err
	}
	return []any{ev.Title, start, end, ev.Color, ev.Category, ev.AllDay, ev.Recurrence, editable, data}, nil
}

// normalize expresses the event the way a later fetch would return it.
func (a *Adapter) normalize(ev calendar.TimelineEvent) calendar.TimelineEvent {
	ev.Start = ev.Start.In(a.location)
	ev.End = ev.End.In(a.location)
	return ev
}

func (a *Adapter) withColor(ev calendar.TimelineEvent) calendar.TimelineEvent {
	ev.Color = a.colors.Resolve(ev.Color, ev.Category, ev.Title)
	return ev
}
