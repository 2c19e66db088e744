// Package rdb provides the relational store for scenario metadata and images.
// Uses ncruces/go-sqlite3/driver which provides a database/sql interface.
package rdb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/ncruces/go-sqlite3"
	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"

	"github.com/hibohiboo/trpg-scenario-maker/internal/apperr"
)

// Store is the SQLite-backed relational store.
// A single connection serializes statements, as the worker does.
type Store struct {
	db  *sql.DB
	now func() time.Time

	Scenarios *ScenarioRepository
	Images    *ImageRepository
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the time source used for timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// OpenMemory opens a volatile in-memory store.
func OpenMemory(opts ...Option) (*Store, error) {
	return Open(":memory:", opts...)
}

// Open opens the store at dsn. Use ":memory:" for in-memory or
// "file:<path>" for persistent storage. Migrations are not run; call
// Migrate (the worker does this from its ready hook).
func Open(dsn string, opts ...Option) (*Store, error) {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open relational db: %w", err)
	}
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping relational db: %w", err)
	}

	s := &Store{db: db, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	s.Scenarios = &ScenarioRepository{db: db, now: s.timestamp}
	s.Images = &ImageRepository{db: db, now: s.timestamp}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// timestamp returns the current time in milliseconds.
func (s *Store) timestamp() int64 {
	return s.now().UnixMilli()
}

func fromMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}

func toMillis(t time.Time) int64 {
	return t.UnixMilli()
}

// isConstraint reports whether err is a SQLite constraint violation.
func isConstraint(err error) bool {
	return errors.Is(err, sqlite3.CONSTRAINT)
}

// withTx runs fn inside a transaction.
func withTx(ctx context.Context, db *sql.DB, fn func(tx *sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func conflictOr(err error, message string) error {
	if isConstraint(err) {
		return apperr.Conflict(message, err)
	}
	return fmt.Errorf("%s: %w", message, err)
}
