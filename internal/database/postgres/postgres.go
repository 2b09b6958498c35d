// Package postgres provides the PostgreSQL-backed URL repository.
// It is the single source of truth for shortened URLs; the cache in front
// of it is an optimization and never replaces a store write.
package postgres

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"

	_ "github.com/jackc/pgx/v5/stdlib"
)

const uniqueViolationErrCode = "23505"

// uniqueViolation reports whether err is a unique constraint violation and,
// if so, which constraint was violated.
func uniqueViolation(err error) (constraint string, ok bool) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.SQLState() == uniqueViolationErrCode {
		return pgErr.ConstraintName, true
	}
	return "", false
}
