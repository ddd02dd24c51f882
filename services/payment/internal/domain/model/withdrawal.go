package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// WithdrawalStatus is the review state of a withdrawal request
type WithdrawalStatus string

const (
	WithdrawalStatusPending   WithdrawalStatus = "pending"
	WithdrawalStatusApproved  WithdrawalStatus = "approved"
	WithdrawalStatusRejected  WithdrawalStatus = "rejected"
	WithdrawalStatusCompleted WithdrawalStatus = "completed"
)

// IsTerminal reports whether the request can no longer change
func (s WithdrawalStatus) IsTerminal() bool {
	return s == WithdrawalStatusRejected || s == WithdrawalStatusCompleted
}

// PayoutMethod is how an author wants to be paid
type PayoutMethod string

const (
	PayoutMethodBank PayoutMethod = "bank"
	PayoutMethodUPI  PayoutMethod = "upi"
)

// WithdrawalRequest is an author's request to move balance out of the wallet.
// Its amount is reserved from the wallet when the request is created.
type WithdrawalRequest struct {
	ID              uuid.UUID         `gorm:"type:uuid;primaryKey" json:"id"`
	AuthorID        uuid.UUID         `gorm:"type:uuid;not null;index" json:"author_id"`
	Amount          decimal.Decimal   `gorm:"type:decimal(15,2);not null" json:"amount"`
	Status          WithdrawalStatus  `gorm:"size:32;not null;index" json:"status"`
	PaymentMethod   PayoutMethod      `gorm:"size:16;not null" json:"payment_method"`
	PaymentDetails  datatypes.JSONMap `json:"payment_details"`
	RejectionReason *string           `json:"rejection_reason,omitempty"`
	CreatedAt       time.Time         `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time         `gorm:"autoUpdateTime" json:"updated_at"`
	ResolvedAt      *time.Time        `json:"resolved_at,omitempty"`
}

// TableName specifies the table name for GORM
func (WithdrawalRequest) TableName() string {
	return "withdrawal_requests"
}
