package ledger

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound       = errors.New("ledger: not found")
	ErrInvalidInput   = errors.New("ledger: invalid input")
	ErrInvalidAmount  = errors.New("ledger: payment amount must be positive")
	ErrSettled        = errors.New("ledger: sale already settled")
	ErrStore          = errors.New("ledger: store failure")
	ErrMirrorDisabled = errors.New("ledger: cloud mirror not configured")
	ErrUnauthorized   = errors.New("ledger: unauthorized")
)

// ValidationError represents a rejected field on user input.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("ledger: validation failed for %s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error { return ErrInvalidInput }

func invalid(field, msg string) error {
	return &ValidationError{Field: field, Message: msg}
}

// StoreError wraps a storage failure so callers can match ErrStore.
func StoreError(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrStore, op, err)
}

// IsValidation reports whether err was a rejected input.
func IsValidation(err error) bool {
	return errors.Is(err, ErrInvalidInput) || errors.Is(err, ErrInvalidAmount) || errors.Is(err, ErrSettled)
}
