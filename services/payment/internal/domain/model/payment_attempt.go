package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AttemptStatus is the stored state of a payment attempt
type AttemptStatus string

const (
	AttemptStatusInitiated       AttemptStatus = "initiated"
	AttemptStatusAwaitingGateway AttemptStatus = "awaiting_gateway"
	AttemptStatusSucceeded       AttemptStatus = "succeeded"
	AttemptStatusFailed          AttemptStatus = "failed"
	AttemptStatusCancelled       AttemptStatus = "cancelled"
)

// AttemptLabelTimedOutLocally is shown to the buyer while a non-terminal
// attempt is past its local timeout. It is never stored.
const AttemptLabelTimedOutLocally = "timed_out_locally"

// IsTerminal reports whether the status can no longer change
func (s AttemptStatus) IsTerminal() bool {
	switch s {
	case AttemptStatusSucceeded, AttemptStatusFailed, AttemptStatusCancelled:
		return true
	}
	return false
}

// CanTransitionTo reports whether next is a forward move from s.
func (s AttemptStatus) CanTransitionTo(next AttemptStatus) bool {
	switch s {
	case AttemptStatusInitiated:
		return next == AttemptStatusAwaitingGateway || next.IsTerminal()
	case AttemptStatusAwaitingGateway:
		return next.IsTerminal()
	default:
		return false
	}
}

// PaymentAttempt is one buyer attempt to pay for an item
type PaymentAttempt struct {
	ID                 uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	BuyerID            uuid.UUID       `gorm:"type:uuid;not null;index" json:"buyer_id"`
	Item               ItemRef         `gorm:"embedded" json:"item"`
	AuthorID           *uuid.UUID      `gorm:"type:uuid" json:"author_id,omitempty"`
	Amount             decimal.Decimal `gorm:"type:decimal(15,2);not null" json:"amount"`
	Currency           string          `gorm:"size:3;not null" json:"currency"`
	Status             AttemptStatus   `gorm:"size:32;not null;index" json:"status"`
	Receipt            string          `gorm:"size:32;not null" json:"receipt"`
	GatewayOrderID     *string         `gorm:"size:100;index" json:"gateway_order_id,omitempty"`
	GatewayPaymentID   *string         `gorm:"size:100" json:"gateway_payment_id,omitempty"`
	FailureCode        *string         `gorm:"size:100" json:"failure_code,omitempty"`
	FailureDescription *string         `json:"failure_description,omitempty"`
	IdempotencyKey     uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex" json:"idempotency_key"`
	GatewayOpenedAt    *time.Time      `json:"gateway_opened_at,omitempty"`
	CreatedAt          time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt          time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
	ResolvedAt         *time.Time      `json:"resolved_at,omitempty"`
}

// TableName specifies the table name for GORM
func (PaymentAttempt) TableName() string {
	return "payment_attempts"
}
