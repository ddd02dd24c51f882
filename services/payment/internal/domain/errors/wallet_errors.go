package errors

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	// ErrWithdrawalNotFound indicates that the withdrawal request does not exist
	ErrWithdrawalNotFound = errors.New("withdrawal request not found")

	// ErrInvalidWithdrawalTransition indicates a review action not allowed from the current status
	ErrInvalidWithdrawalTransition = errors.New("invalid withdrawal status transition")
)

// InsufficientBalanceError is returned when a wallet cannot cover a reservation
type InsufficientBalanceError struct {
	Requested decimal.Decimal
	Available decimal.Decimal
}

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("insufficient wallet balance: requested %s, available %s", e.Requested.String(), e.Available.String())
}

// NewInsufficientBalanceError creates a new InsufficientBalanceError
func NewInsufficientBalanceError(requested, available decimal.Decimal) *InsufficientBalanceError {
	return &InsufficientBalanceError{
		Requested: requested,
		Available: available,
	}
}

// ValidationError reports a missing or malformed input field
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

// NewValidationError creates a new ValidationError
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}
