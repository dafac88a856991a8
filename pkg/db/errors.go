package db

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

const (
	pgUniqueViolation      = "23505"
	pgSerializationFailure = "40001"
	pgDeadlockDetected     = "40P01"
	sqliteBusyMessage      = "database is locked"
	sqliteUniqueMessage    = "UNIQUE constraint failed"
	postgresUniqueMessage  = "duplicate key value"
)

// IsUniqueViolation reports whether err is a unique constraint violation from
// Postgres or SQLite. When constraintName is provided, only that constraint matches.
func IsUniqueViolation(err error, constraintName string) bool {
	if err == nil {
		return false
	}

	if pgErr, ok := asPgError(err); ok {
		return pgErr.Code == pgUniqueViolation &&
			(constraintName == "" || pgErr.ConstraintName == constraintName)
	}

	msg := err.Error()
	unique := errors.Is(err, gorm.ErrDuplicatedKey) ||
		strings.Contains(msg, postgresUniqueMessage) ||
		strings.Contains(msg, sqliteUniqueMessage)
	return unique && (constraintName == "" || strings.Contains(msg, constraintName))
}

// IsRetryable reports whether a failed transaction may succeed when replayed: a
// Postgres deadlock or serialization failure, or a busy SQLite database.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if pgErr, ok := asPgError(err); ok {
		return pgErr.Code == pgSerializationFailure || pgErr.Code == pgDeadlockDetected
	}
	return strings.Contains(err.Error(), sqliteBusyMessage)
}

func asPgError(err error) (*pgconn.PgError, bool) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr, true
	}
	return nil, false
}
