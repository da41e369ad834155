package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation is matched by every ValidationError.
	ErrValidation = errors.New("validation failed")

	// ErrOrderClosed is returned when a cancelled or refunded order is modified.
	ErrOrderClosed = errors.New("cannot update cancelled or refunded orders")

	// ErrRefundNotAllowed is returned when an order does not qualify for a refund.
	ErrRefundNotAllowed = errors.New("refund not allowed")
)

// ValidationError describes a rejected input field.
type ValidationError struct {
	Field  string
	Reason string
}

// NewValidationError builds a ValidationError for field.
func NewValidationError(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

func refundError(reason string) error {
	return fmt.Errorf("%w: %s", ErrRefundNotAllowed, reason)
}
