package store

import (
	"errors"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
)

var (
	// ErrNotFound is returned when a requested record does not exist.
	ErrNotFound = errors.New("not found")
	// ErrDuplicate is returned when an insert would violate a unique key.
	ErrDuplicate = errors.New("duplicate")
)

// isDuplicate reports whether err is a unique-constraint violation from
// any of the supported drivers. Inserts pre-check for duplicates, but a
// concurrent writer can slip past the check; this maps the resulting
// constraint error back to ErrDuplicate instead of surfacing it as an
// internal failure.
func isDuplicate(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505" // unique_violation
	}
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return myErr.Number == 1062 // ER_DUP_ENTRY
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
