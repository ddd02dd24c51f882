package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PurchaseRecord grants a buyer access to an item. Append-only.
type PurchaseRecord struct {
	ID               uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	BuyerID          uuid.UUID       `gorm:"type:uuid;not null;index" json:"buyer_id"`
	Item             ItemRef         `gorm:"embedded" json:"item"`
	AuthorID         *uuid.UUID      `gorm:"type:uuid" json:"author_id,omitempty"`
	PaymentAttemptID uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex" json:"payment_attempt_id"`
	Amount           decimal.Decimal `gorm:"type:decimal(15,2);not null" json:"amount"`
	CreatedAt        time.Time       `gorm:"autoCreateTime;index" json:"created_at"`
}

// TableName specifies the table name for GORM
func (PurchaseRecord) TableName() string {
	return "purchase_records"
}

// NeedsSettlement reports whether the sale earns an author anything.
// Free items and subscription plans never produce a settlement.
func (p *PurchaseRecord) NeedsSettlement() bool {
	return p.Amount.IsPositive() && !p.Item.IsSubscription() && p.AuthorID != nil
}

// SaleSettlement is the tax/commission/author split of one purchase. Append-only.
type SaleSettlement struct {
	ID                 uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	PurchaseRecordID   uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex" json:"purchase_record_id"`
	GrossAmount        decimal.Decimal `gorm:"type:decimal(15,2);not null" json:"gross_amount"`
	GSTAmount          decimal.Decimal `gorm:"column:gst_amount;type:decimal(15,2);not null" json:"gst_amount"`
	PlatformCommission decimal.Decimal `gorm:"type:decimal(15,2);not null" json:"platform_commission"`
	AuthorEarnings     decimal.Decimal `gorm:"type:decimal(15,2);not null" json:"author_earnings"`
	AuthorID           uuid.UUID       `gorm:"type:uuid;not null;index" json:"author_id"`
	CreatedAt          time.Time       `gorm:"autoCreateTime" json:"created_at"`
}

// TableName specifies the table name for GORM
func (SaleSettlement) TableName() string {
	return "sale_settlements"
}
