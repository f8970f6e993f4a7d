package store

import (
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"
)

var (
	ErrNotFound = errors.New("record not found")

	// ErrUnavailable marks failures of the storage layer itself. Callers may
	// retry; nothing in this package does.
	ErrUnavailable = errors.New("storage unavailable")

	ErrDuplicateEmail          = errors.New("email already registered for event")
	ErrDuplicateRegistrationID = errors.New("registration id already in use")
	ErrAlreadyMarked           = errors.New("attendance already marked")
)

func unavailable(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrUnavailable, err)
}

// isDuplicate reports whether err is a unique constraint violation.
// TranslateError covers the drivers we ship; the message checks catch
// handles opened without it.
func isDuplicate(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "duplicate key value")
}
