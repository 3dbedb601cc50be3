package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound               = errors.New("resource not found")
	ErrForbidden              = errors.New("forbidden")
	ErrValidation             = errors.New("validation failed")
	ErrInsufficientBalance    = errors.New("insufficient balance")
	ErrAlreadyFinalized       = errors.New("transaction already finalized")
	ErrBackgroundAssetMissing = errors.New("background asset missing")
	ErrDuplicateKeyCollision  = errors.New("could not generate a unique certificate number")
	ErrGatewayUnreachable     = errors.New("payment gateway unreachable")
	ErrGatewayRejected        = errors.New("payment rejected by gateway")
	ErrQuotaExceeded          = errors.New("student quota exceeded")
	ErrInvalidTransition      = errors.New("invalid status transition")
)

// ValidationError carries the offending field. It matches ErrValidation with errors.Is.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// Invalid builds a ValidationError.
func Invalid(field, msg string) error {
	return &ValidationError{Field: field, Message: msg}
}
