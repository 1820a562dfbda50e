package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

type migration struct {
	version    string
	statements []string
}

var migrations = []migration{
	{
		version: "0001_events",
		statements: []string{
			`CREATE TABLE IF NOT EXISTS events (
				seq        INTEGER PRIMARY KEY AUTOINCREMENT,
				id         TEXT NOT NULL UNIQUE,
				title      TEXT NOT NULL,
				start_ns   INTEGER NOT NULL,
				end_ns     INTEGER NOT NULL,
				color      TEXT NOT NULL DEFAULT '',
				category   TEXT NOT NULL DEFAULT '',
				all_day    INTEGER NOT NULL DEFAULT 0,
				recurrence TEXT NOT NULL DEFAULT '',
				editable   INTEGER,
				data       TEXT,
				CHECK (end_ns >= start_ns)
			)`,
			`CREATE INDEX IF NOT EXISTS idx_events_range ON events (start_ns, end_ns)`,
		},
	},
	{
		// Nanosecond integers only cover 1678..2262; times move to
		// fixed-width UTC text (see timeLayout).
		version: "0002_text_times",
		statements: []string{
			`CREATE TABLE events_v2 (
				seq        INTEGER PRIMARY KEY AUTOINCREMENT,
				id         TEXT NOT NULL UNIQUE,
				title      TEXT NOT NULL,
				start_at   TEXT NOT NULL,
				end_at     TEXT NOT NULL,
				color      TEXT NOT NULL DEFAULT '',
				category   TEXT NOT NULL DEFAULT '',
				all_day    INTEGER NOT NULL DEFAULT 0,
				recurrence TEXT NOT NULL DEFAULT '',
				editable   INTEGER,
				data       TEXT,
				CHECK (end_at >= start_at)
			)`,
			`INSERT INTO events_v2 (seq, id, title, start_at, end_at, color, category, all_day, recurrence, editable, data)
			SELECT seq, id, title, ` + nsToText("start_ns") + `, ` + nsToText("end_ns") + `,
				color, category, all_day, recurrence, editable, data
			FROM events`,
			`DROP TABLE events`,
			`ALTER TABLE events_v2 RENAME TO events`,
			`CREATE INDEX IF NOT EXISTS idx_events_range ON events (start_at, end_at)`,
		},
	},
}

// nsToText renders a Unix nanosecond column in timeLayout. The nanosecond
// part is taken modulo 1e9 toward negative infinity so pre-1970 values
// stay correct.
func nsToText(col string) string {
	nanos := `((` + col + ` % 1000000000 + 1000000000) % 1000000000)`
	secs := `((` + col + ` - ` + nanos + `) / 1000000000)`
	return `strftime('%Y-%m-%dT%H:%M:%S', ` + secs + `, 'unixepoch') || '.' || printf('%09d', ` + nanos + `) || 'Z'`
}

// Migrate creates the schema. Applied versions are recorded in
// schema_migrations so repeated calls are no-ops.
func (a *Adapter) Migrate(ctx context.Context) error {
	if _, err := a.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
		version           TEXT PRIMARY KEY,
		applied_at        TEXT NOT NULL,
		execution_time_ms INTEGER
	)`); err != nil {
		return fmt.Errorf("sqlite: create schema_migrations: %w", err)
	}

	for _, m := range migrations {
		applied, err := a.isApplied(ctx, m.version)
		if err != nil {
			return err
		}
		if applied {
			continue
		}

		started := time.Now()
		err = withTransaction(ctx, a.db, func(tx *sql.Tx) error {
			for i, stmt := range m.statements {
				if _, err := tx.ExecContext(ctx, stmt); err != nil {
					return fmt.Errorf("sqlite: migration %s statement %d: %w", m.version, i+1, err)
				}
			}
			_, err := tx.ExecContext(ctx,
				`INSERT INTO schema_migrations (version, applied_at, execution_time_ms) VALUES (?, ?, ?)`,
				m.version, time.Now().UTC().Format(time.RFC3339), time.Since(started).Milliseconds())
			return err
		})
		if err != nil {
			return err
		}
		a.logger.Info("migration applied", "version", m.version, "duration_ms", time.Since(started).Milliseconds())
	}
	return nil
}

func (a *Adapter) isApplied(ctx context.Context, version string) (bool, error) {
	var one int
	err := a.db.QueryRowContext(ctx, `SELECT 1 FROM schema_migrations WHERE version = ?`, version).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("sqlite: check migration %s: %w", version, err)
	}
	return true, nil
}
