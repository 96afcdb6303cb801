// Package store persists admins, passphrases, sessions, categories, and
// contents behind a sqlx database handle. The backend is selected by the
// DSN scheme: postgres (pgx) and mysql for networked deployments, sqlite
// for development and tests.
package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

// Store manages the site's durable state.
type Store struct {
	db     *sqlx.DB
	driver string
}

// Open connects to the database identified by databaseURL and runs
// migrations. Pass ":memory:" for an in-memory SQLite store (tests).
func Open(databaseURL string) (*Store, error) {
	driver, dsn := dialect(databaseURL)

	db, err := sqlx.Connect(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if driver == "sqlite" {
		db.SetMaxOpenConns(1) // SQLite doesn't support concurrent writes
	}

	s := &Store{db: db, driver: driver}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate database: %w", err)
	}
	return s, nil
}

// dialect maps a database URL to a registered driver name and DSN.
func dialect(databaseURL string) (driver, dsn string) {
	switch {
	case strings.HasPrefix(databaseURL, "postgres://"),
		strings.HasPrefix(databaseURL, "postgresql://"):
		return "pgx", databaseURL
	case strings.HasPrefix(databaseURL, "mysql://"):
		return "mysql", strings.TrimPrefix(databaseURL, "mysql://")
	case databaseURL == ":memory:":
		return "sqlite", ":memory:"
	default:
		// file: DSNs and bare paths are SQLite.
		return "sqlite", strings.TrimPrefix(databaseURL, "file:")
	}
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping reports whether the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// rebind converts "?" placeholders to the driver's bindvar style.
func (s *Store) rebind(query string) string {
	return s.db.Rebind(query)
}
