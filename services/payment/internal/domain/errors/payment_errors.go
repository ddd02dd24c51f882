package errors

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

var (
	// ErrAttemptNotFound indicates that the payment attempt does not exist
	ErrAttemptNotFound = errors.New("payment attempt not found")

	// ErrItemNotFound indicates that the catalog has no such item
	ErrItemNotFound = errors.New("catalog item not found")

	// ErrInvalidAttemptTransition indicates a backwards or unknown status change
	ErrInvalidAttemptTransition = errors.New("invalid payment attempt status transition")

	// ErrPurchaseNotFound indicates that no purchase record exists for the attempt
	ErrPurchaseNotFound = errors.New("purchase record not found")

	// ErrInvalidWebhookSignature indicates a webhook delivery failed verification
	ErrInvalidWebhookSignature = errors.New("invalid webhook signature")

	// ErrOrderNotCancellable indicates the gateway order already succeeded or
	// is being processed
	ErrOrderNotCancellable = errors.New("gateway order cannot be cancelled")
)

// GatewayErrorCode classifies errors reported by the payment gateway
type GatewayErrorCode string

const (
	GatewayErrorNetwork    GatewayErrorCode = "network_error"
	GatewayErrorBadRequest GatewayErrorCode = "bad_request"
	GatewayErrorCancelled  GatewayErrorCode = "cancelled"
)

// GatewayError is a buyer-facing gateway failure. The buyer retries by
// starting a new attempt.
type GatewayError struct {
	Code        GatewayErrorCode
	Description string
	Cause       error
}

func (e *GatewayError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("gateway %s: %s: %v", e.Code, e.Description, e.Cause)
	}
	return fmt.Sprintf("gateway %s: %s", e.Code, e.Description)
}

func (e *GatewayError) Unwrap() error {
	return e.Cause
}

// NewGatewayError creates a new GatewayError
func NewGatewayError(code GatewayErrorCode, description string, cause error) *GatewayError {
	return &GatewayError{Code: code, Description: description, Cause: cause}
}

// InvalidGatewayResponseError is a success outcome missing required fields.
// It is never committed as success.
type InvalidGatewayResponseError struct {
	AttemptID uuid.UUID
	PaymentID string
	OrderID   string
	Reason    string
}

func (e *InvalidGatewayResponseError) Error() string {
	return fmt.Sprintf("invalid gateway response for attempt %s: %s (payment_id=%q, order_id=%q)",
		e.AttemptID, e.Reason, e.PaymentID, e.OrderID)
}

// ReconciliationGap is a succeeded payment whose ledger entries are incomplete.
type ReconciliationGap struct {
	AttemptID        uuid.UUID
	PurchaseRecordID *uuid.UUID
	Cause            error
}

func (e *ReconciliationGap) Error() string {
	if e.PurchaseRecordID == nil {
		return fmt.Sprintf("succeeded attempt %s has no purchase record: %v", e.AttemptID, e.Cause)
	}
	return fmt.Sprintf("purchase %s (attempt %s) has no settlement: %v", *e.PurchaseRecordID, e.AttemptID, e.Cause)
}

func (e *ReconciliationGap) Unwrap() error {
	return e.Cause
}
