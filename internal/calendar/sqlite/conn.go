package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// Options configures the connection and the adapter built on it.
type Options struct {
	// BusyTimeout sets how long SQLite waits on a locked database.
	BusyTimeout time.Duration
	// JournalMode is applied through PRAGMA journal_mode (e.g. WAL).
	JournalMode string
	// Location is the zone returned events are expressed in. Nil means
	// time.Local.
	Location  *time.Location
	ColorMap  map[string]string
	AutoColor bool
	Accent    string
	// IDGenerator overrides uuid-based identifiers.
	IDGenerator func() string
	Logger      *slog.Logger
}

func (o Options) withDefaults() Options {
	if o.BusyTimeout <= 0 {
		o.BusyTimeout = 5 * time.Second
	}
	if o.JournalMode == "" {
		o.JournalMode = "WAL"
	}
	if o.Location == nil {
		o.Location = time.Local
	}
	return o
}

func openDB(ctx context.Context, dsn string, opts Options) (*sql.DB, error) {
	dsn = strings.TrimSpace(dsn)
	if dsn == "" {
		return nil, fmt.Errorf("sqlite: dsn is required")
	}
	if err := ensureDir(dsn); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open: %w", err)
	}
	// A single connection keeps PRAGMAs and :memory: databases consistent.
	db.SetMaxOpenConns(1)

	pragmas := []string{
		fmt.Sprintf("PRAGMA busy_timeout = %d", opts.BusyTimeout.Milliseconds()),
		"PRAGMA foreign_keys = ON",
	}
	if !isMemory(dsn) {
		pragmas = append(pragmas, "PRAGMA journal_mode = "+opts.JournalMode)
	}
	for _, pragma := range pragmas {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("sqlite: %s: %w", pragma, err)
		}
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: ping: %w", err)
	}
	return db, nil
}

func isMemory(dsn string) bool {
	return dsn == ":memory:" || strings.Contains(dsn, "mode=memory")
}

func ensureDir(dsn string) error {
	if isMemory(dsn) || strings.HasPrefix(dsn, "file:") {
		return nil
	}
	dir := filepath.Dir(dsn)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("sqlite: create directory %s: %w", dir, err)
	}
	return nil
}

// withTransaction runs fn in a transaction, rolling back when fn fails or
// panics.
func withTransaction(ctx context.Context, db *sql.DB, fn func(tx *sql.Tx) error) (err error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("sqlite: rollback failed (%v): %w", rbErr, err)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: commit: %w", err)
	}
	return nil
}
