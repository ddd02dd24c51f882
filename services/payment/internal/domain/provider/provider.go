package provider

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PaymentGateway is the server side of a hosted checkout. It registers an
// order the buyer's checkout pays against; the outcome arrives later through
// ParseWebhook (or the buyer app) and is fed to the payment session
// coordinator.
type PaymentGateway interface {
	// CreateOrder registers a payable order. Transport failures are returned
	// as domain GatewayError{network_error}; rejected requests as bad_request.
	CreateOrder(ctx context.Context, req *CreateOrderRequest) (*CreateOrderResponse, error)

	// ParseWebhook verifies and decodes a webhook delivery. Events that carry
	// no payment outcome return a result with Outcome == nil.
	ParseWebhook(ctx context.Context, payload []byte, signature string) (*WebhookResult, error)

	// CancelOrder cancels an open order so it can no longer be paid. Orders
	// the gateway already settled return ErrOrderNotCancellable.
	CancelOrder(ctx context.Context, orderID string) error

	// GetProviderName returns the provider name
	GetProviderName() string
}

// CreateOrderRequest describes the amount a buyer is about to pay
type CreateOrderRequest struct {
	AttemptID      uuid.UUID
	BuyerID        uuid.UUID
	Amount         decimal.Decimal
	Currency       string
	Receipt        string
	Description    string
	IdempotencyKey string
	Metadata       map[string]string
}

// CreateOrderResponse carries what the buyer app needs to open checkout
type CreateOrderResponse struct {
	OrderID        string `json:"order_id"`
	ClientSecret   string `json:"client_secret,omitempty"`
	PublishableKey string `json:"publishable_key,omitempty"`
}

// WebhookResult is a decoded webhook delivery. Decline is a failed payment
// try the buyer may still retry on the same order; it never closes the
// attempt.
type WebhookResult struct {
	EventID   string
	EventType string
	AttemptID *uuid.UUID
	Outcome   *GatewayOutcome
	Decline   *GatewayOutcome
	Raw       []byte
}

// OutcomeKind tags a gateway outcome
type OutcomeKind string

const (
	OutcomeSucceeded OutcomeKind = "succeeded"
	OutcomeFailed    OutcomeKind = "failed"
	OutcomeCancelled OutcomeKind = "cancelled"
)

// GatewayOutcome is the result of a checkout: Succeeded{PaymentID, OrderID},
// Failed{Code, Description} or Cancelled.
type GatewayOutcome struct {
	Kind        OutcomeKind `json:"kind"`
	PaymentID   string      `json:"payment_id,omitempty"`
	OrderID     string      `json:"order_id,omitempty"`
	Code        string      `json:"code,omitempty"`
	Description string      `json:"description,omitempty"`
}

// Succeeded builds a success outcome
func Succeeded(paymentID, orderID string) GatewayOutcome {
	return GatewayOutcome{Kind: OutcomeSucceeded, PaymentID: paymentID, OrderID: orderID}
}

// Failed builds a failure outcome
func Failed(code, description string) GatewayOutcome {
	return GatewayOutcome{Kind: OutcomeFailed, Code: code, Description: description}
}

// Cancelled builds a cancellation outcome
func Cancelled() GatewayOutcome {
	return GatewayOutcome{Kind: OutcomeCancelled}
}
