package repositories

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
)

// Sentinel errors shared by every store implementation, Postgres or in-memory.
var (
	// ErrNotFound is returned when a row, or a row it references, is missing.
	ErrNotFound = errors.New("record not found")
	// ErrConflict is returned when a write hits a unique index, including the
	// unordered pair index on friend_edges.
	ErrConflict = errors.New("record conflict")
	// ErrInvalid is returned when a check constraint rejects a write.
	ErrInvalid = errors.New("record invalid")
)

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
	pgCheckViolation      = "23514"
)

// mapWriteError turns Postgres constraint violations into the sentinels above.
// A foreign key violation means a referenced user does not exist.
func mapWriteError(op string, err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return fmt.Errorf("%s: %w", op, err)
	}
	switch pgErr.Code {
	case pgUniqueViolation:
		return ErrConflict
	case pgForeignKeyViolation:
		return ErrNotFound
	case pgCheckViolation:
		return fmt.Errorf("%s: %w: %s", op, ErrInvalid, pgErr.ConstraintName)
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
}
