package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/wekeepgrowing/marketplace-backend/services/payment/internal/domain/model"
)

// LedgerRepository persists purchase records and sale settlements. Both are
// append-only; inserts are idempotent on their unique keys.
type LedgerRepository interface {
	// CreatePurchase inserts the record unless one exists for the same
	// payment attempt, in which case the existing record is returned with
	// created=false.
	CreatePurchase(ctx context.Context, purchase *model.PurchaseRecord) (*model.PurchaseRecord, bool, error)

	// GetPurchaseByAttempt returns domain errors.ErrPurchaseNotFound when missing
	GetPurchaseByAttempt(ctx context.Context, attemptID uuid.UUID) (*model.PurchaseRecord, error)

	// CreateSettlement inserts the settlement unless one exists for the same
	// purchase record, in which case the existing one is returned with created=false.
	CreateSettlement(ctx context.Context, settlement *model.SaleSettlement) (*model.SaleSettlement, bool, error)

	// GetSettlementByPurchase returns nil, nil when the purchase has no settlement
	GetSettlementByPurchase(ctx context.Context, purchaseID uuid.UUID) (*model.SaleSettlement, error)

	// ListPurchasesWithoutSettlement returns paid author sales lacking a settlement
	ListPurchasesWithoutSettlement(ctx context.Context, limit int) ([]*model.PurchaseRecord, error)

	// ListPurchasesByBuyer returns a buyer's purchases, newest first
	ListPurchasesByBuyer(ctx context.Context, buyerID uuid.UUID, limit, offset int) ([]*model.PurchaseRecord, error)
}
