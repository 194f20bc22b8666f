package service

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrInvalidCredentials = errors.New("invalid_credentials")
	ErrConflict           = errors.New("conflict")
	ErrForbidden          = errors.New("forbidden")
	ErrNotFound           = errors.New("not_found")
	ErrValidation         = errors.New("validation_failed")
	ErrPINNotSet          = errors.New("pin_not_set")
	ErrPINAlreadySet      = errors.New("pin_already_set")
	ErrOTPRequired        = errors.New("otp_required")
)

// LockedError reports a child access record locked out after too many
// failed PIN attempts. RetryAfter is how long until the lock expires.
type LockedError struct {
	RetryAfter time.Duration
}

func (e *LockedError) Error() string {
	return fmt.Sprintf("access locked, retry after %s", e.RetryAfter)
}

// PINMismatchError reports a failed PIN attempt along with how many
// attempts remain before the record is locked.
type PINMismatchError struct {
	Remaining int
}

func (e *PINMismatchError) Error() string {
	return fmt.Sprintf("pin mismatch, %d attempts remaining", e.Remaining)
}
