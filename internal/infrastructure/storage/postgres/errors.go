package postgres

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"

	"stockbi/internal/core/apperror"
)

// SQLSTATE codes the stores react to.
const (
	codeUniqueViolation      = "23505"
	codeSerializationFailure = "40001"
	codeDeadlockDetected     = "40P01"
	codeLockNotAvailable     = "55P03"
)

// IsUniqueViolation reports whether err is a unique constraint violation.
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == codeUniqueViolation
}

// IsLockConflict reports whether err means the transaction lost a lock
// race: lock timeout, deadlock or serialization failure.
func IsLockConflict(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	switch pgErr.Code {
	case codeSerializationFailure, codeDeadlockDetected, codeLockNotAvailable:
		return true
	}
	return false
}

// MapLockConflict converts lock races into a retryable ConcurrentModification.
func MapLockConflict(err error, entity string, entityID any) error {
	if IsLockConflict(err) {
		return apperror.NewConcurrentModification(entity, entityID).WithCause(err)
	}
	return err
}
