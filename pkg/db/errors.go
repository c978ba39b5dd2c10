package db

import (
	"strings"

	pkgerrors "github.com/angelmondragon/assettrack-backend/pkg/errors"
)

const (
	sqlStateUniqueViolation      = "23505"
	sqlStateSerializationFailure = "40001"
	sqlStateDeadlockDetected     = "40P01"
)

// IsTxConflict reports whether err aborted a transaction that is safe to
// replay: a serialization failure or a detected deadlock.
func IsTxConflict(err error) bool {
	code, _ := pkgerrors.SQLState(err)
	return code == sqlStateSerializationFailure || code == sqlStateDeadlockDetected
}

// IsUniqueViolation reports whether err is a unique constraint violation. When
// constraintName is set, the violated constraint (or the message for drivers
// that do not expose it) must reference that name.
func IsUniqueViolation(err error, constraintName string) bool {
	if err == nil {
		return false
	}

	if code, constraint := pkgerrors.SQLState(err); code != "" {
		if code != sqlStateUniqueViolation {
			return false
		}
		return constraintName == "" || constraint == constraintName
	}

	msg := err.Error()
	if !strings.Contains(msg, "duplicate key value") && !strings.Contains(msg, "UNIQUE constraint failed") {
		return false
	}
	return constraintName == "" || strings.Contains(msg, constraintName)
}
