package postgres

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

func migrationNames() ([]string, error) {
	entries, err := fs.ReadDir(migrationFiles, "migrations")
	if err != nil {
		return nil, fmt.Errorf("postgres: list migrations: %w", err)
	}
	var names []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)
	return names, nil
}

// Migrate applies the embedded migrations that schema_migrations does not
// list yet, each in its own transaction.
func (a *Adapter) Migrate(ctx context.Context) error {
	names, err := migrationNames()
	if err != nil {
		return err
	}

	const createTable = `CREATE TABLE IF NOT EXISTS schema_migrations (
        version TEXT PRIMARY KEY,
        applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`
	if _, err := a.db.Exec(ctx, createTable); err != nil {
		return fmt.Errorf("postgres: create schema_migrations: %w", err)
	}

	for _, name := range names {
		var applied bool
		if err := a.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM schema_migrations WHERE version=$1)`, name).Scan(&applied); err != nil {
			return fmt.Errorf("postgres: check migration %s: %w", name, err)
		}
		if applied {
			continue
		}
		if err := a.applyMigration(ctx, name); err != nil {
			return err
		}
		a.logger.Info("migration applied", "version", name)
	}
	return nil
}

func (a *Adapter) applyMigration(ctx context.Context, name string) error {
	contents, err := migrationFiles.ReadFile("migrations/" + name)
	if err != nil {
		return fmt.Errorf("postgres: read migration %s: %w", name, err)
	}
	return a.withTx(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, string(contents)); err != nil {
			return fmt.Errorf("postgres: apply migration %s: %w", name, err)
		}
		if _, err := tx.Exec(ctx, `INSERT INTO schema_migrations (version) VALUES ($1) ON CONFLICT (version) DO NOTHING`, name); err != nil {
			return fmt.Errorf("postgres: record migration %s: %w", name, err)
		}
		return nil
	})
}
