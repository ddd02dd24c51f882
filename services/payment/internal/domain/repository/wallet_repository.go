package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/wekeepgrowing/marketplace-backend/services/payment/internal/domain/model"
)

// WalletRepository applies balance mutations. Every mutation locks the
// author's wallet row for its duration and journals a WalletEntry keyed by
// (entry type, reference), so replays of the same reference are no-ops.
type WalletRepository interface {
	// Get returns the wallet, or a zero wallet if the author has none yet
	Get(ctx context.Context, authorID uuid.UUID) (*model.Wallet, error)

	// ApplyEarning credits settlement.AuthorEarnings to balance and total
	// earnings. applied=false means the settlement was already applied.
	ApplyEarning(ctx context.Context, settlement *model.SaleSettlement) (wallet *model.Wallet, applied bool, err error)

	// Reserve deducts amount from balance, or fails with
	// domain errors.InsufficientBalanceError leaving the balance untouched.
	Reserve(ctx context.Context, authorID uuid.UUID, amount decimal.Decimal, referenceID uuid.UUID) (*model.Wallet, error)

	// Release re-credits a previously reserved amount to balance
	Release(ctx context.Context, authorID uuid.UUID, amount decimal.Decimal, referenceID uuid.UUID) (*model.Wallet, error)

	// FinalizeWithdrawal adds amount to total withdrawn; balance is untouched
	FinalizeWithdrawal(ctx context.Context, authorID uuid.UUID, amount decimal.Decimal, referenceID uuid.UUID) (*model.Wallet, error)

	// ListEntries returns the wallet journal, newest first, and the total count
	ListEntries(ctx context.Context, authorID uuid.UUID, limit, offset int) ([]*model.WalletEntry, int64, error)
}
