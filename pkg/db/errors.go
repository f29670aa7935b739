package db

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

const (
	pgUniqueViolation      = "23505"
	pgSerializationFailure = "40001"
	pgDeadlockDetected     = "40P01"
	pgConnectionClass      = "08"
)

// IsUniqueViolation reports whether err is a Postgres unique-constraint
// violation, optionally matching a specific constraint name.
func IsUniqueViolation(err error, constraintName string) bool {
	code, constraint := pgErrorCode(err)
	if code != pgUniqueViolation {
		return false
	}
	if constraintName == "" {
		return true
	}
	return constraint == constraintName
}

// IsRetryableError reports whether err is a transient store-level failure
// worth re-running the whole transaction for. The decision is made on
// structured SQLSTATE codes, never on message text: serialization failures,
// deadlocks and connection-class errors retry; everything else does not.
func IsRetryableError(err error) bool {
	if err == nil {
		return false
	}
	code, _ := pgErrorCode(err)
	if code == "" {
		return false
	}
	if code == pgSerializationFailure || code == pgDeadlockDetected {
		return true
	}
	return strings.HasPrefix(code, pgConnectionClass)
}

func pgErrorCode(err error) (code, constraint string) {
	var pgxErr *pgconn.PgError
	if errors.As(err, &pgxErr) {
		return pgxErr.Code, pgxErr.ConstraintName
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code), pqErr.Constraint
	}
	return "", ""
}
