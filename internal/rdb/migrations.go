package rdb

import (
	"context"
	"database/sql"
	"fmt"
)

// migrations are applied in order; index+1 is the schema version.
var migrations = []string{
	// 1: scenarios
	`CREATE TABLE IF NOT EXISTS scenarios (
		id         TEXT PRIMARY KEY,
		title      TEXT NOT NULL,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_scenarios_updated ON scenarios(updated_at DESC);`,

	// 2: images
	`CREATE TABLE IF NOT EXISTS images (
		id         TEXT PRIMARY KEY,
		data_url   TEXT NOT NULL,
		created_at INTEGER NOT NULL
	);`,
}

// SchemaVersion is the version reached after all migrations.
var SchemaVersion = len(migrations)

// Migrate applies pending migrations and returns the resulting version.
// Safe to call repeatedly.
func (s *Store) Migrate(ctx context.Context) (int, error) {
	if _, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version    INTEGER PRIMARY KEY,
			applied_at INTEGER NOT NULL
		)`); err != nil {
		return 0, fmt.Errorf("create schema_migrations: %w", err)
	}

	var current int
	if err := s.db.QueryRowContext(ctx, `SELECT COALESCE(MAX(version), 0) FROM schema_migrations`).Scan(&current); err != nil {
		return 0, fmt.Errorf("read schema version: %w", err)
	}

	for i := current; i < len(migrations); i++ {
		version := i + 1
		err := withTx(ctx, s.db, func(tx *sql.Tx) error {
			if _, err := tx.ExecContext(ctx, migrations[i]); err != nil {
				return fmt.Errorf("migration %d: %w", version, err)
			}
			_, err := tx.ExecContext(ctx,
				`INSERT INTO schema_migrations (version, applied_at) VALUES (?, ?)`,
				version, s.timestamp())
			return err
		})
		if err != nil {
			return current, err
		}
		current = version
	}
	return current, nil
}
