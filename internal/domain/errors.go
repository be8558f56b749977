package domain

import (
	"errors"
	"fmt"
)

var (
	ErrItemNotFound       = errors.New("item not found")
	ErrMembershipNotFound = errors.New("membership not found")
	ErrLoanNotFound       = errors.New("loan not found")
	ErrUserNotFound       = errors.New("user not found")
	ErrItemUnavailable    = errors.New("item is not available")
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// ValidationError reports malformed or out-of-policy input. The message is
// surfaced verbatim to the caller.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

// Validationf builds a ValidationError with a formatted message.
func Validationf(format string, args ...any) error {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

// UnpaidFineError blocks a return until the outstanding fine is settled.
// The loan stays open when this is returned.
type UnpaidFineError struct {
	Fine int64
}

func (e *UnpaidFineError) Error() string {
	return fmt.Sprintf("fine of %d must be paid before return", e.Fine)
}

// IsNotFound reports whether err is any of the missing-entity sentinels.
// A closed loan counts as not found for return purposes.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrItemNotFound) ||
		errors.Is(err, ErrMembershipNotFound) ||
		errors.Is(err, ErrLoanNotFound) ||
		errors.Is(err, ErrUserNotFound)
}
