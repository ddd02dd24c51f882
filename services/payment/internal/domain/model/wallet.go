package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Wallet is an author's running balance. Balance is what can be withdrawn
// right now; amounts reserved by open withdrawal requests are already
// deducted from it.
type Wallet struct {
	AuthorID       uuid.UUID       `gorm:"type:uuid;primaryKey" json:"author_id"`
	Balance        decimal.Decimal `gorm:"type:decimal(15,2);not null;default:0" json:"balance"`
	TotalEarnings  decimal.Decimal `gorm:"type:decimal(15,2);not null;default:0" json:"total_earnings"`
	TotalWithdrawn decimal.Decimal `gorm:"type:decimal(15,2);not null;default:0" json:"total_withdrawn"`
	CreatedAt      time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

// TableName specifies the table name for GORM
func (Wallet) TableName() string {
	return "wallets"
}

// WalletEntryType classifies a wallet journal entry
type WalletEntryType string

const (
	WalletEntryEarning     WalletEntryType = "earning"
	WalletEntryReservation WalletEntryType = "reservation"
	WalletEntryRelease     WalletEntryType = "release"
	WalletEntryPayout      WalletEntryType = "payout"
)

// WalletEntry journals one wallet mutation. (EntryType, ReferenceID) is
// unique, which makes every mutation idempotent per reference.
type WalletEntry struct {
	ID           uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	AuthorID     uuid.UUID       `gorm:"type:uuid;not null;index:idx_wallet_entries_author_created" json:"author_id"`
	EntryType    WalletEntryType `gorm:"size:32;not null;uniqueIndex:idx_wallet_entries_type_reference" json:"entry_type"`
	ReferenceID  uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_wallet_entries_type_reference" json:"reference_id"`
	Amount       decimal.Decimal `gorm:"type:decimal(15,2);not null" json:"amount"`
	BalanceAfter decimal.Decimal `gorm:"type:decimal(15,2);not null" json:"balance_after"`
	Description  string          `gorm:"not null" json:"description"`
	CreatedAt    time.Time       `gorm:"autoCreateTime;index:idx_wallet_entries_author_created" json:"created_at"`
}

// TableName specifies the table name for GORM
func (WalletEntry) TableName() string {
	return "wallet_entries"
}
