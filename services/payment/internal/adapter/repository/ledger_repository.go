package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	domainErrors "github.com/wekeepgrowing/marketplace-backend/services/payment/internal/domain/errors"
	"github.com/wekeepgrowing/marketplace-backend/services/payment/internal/domain/model"
	domainRepo "github.com/wekeepgrowing/marketplace-backend/services/payment/internal/domain/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ledgerRepository implements the LedgerRepository interface
type ledgerRepository struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewLedgerRepository creates a new ledger repository instance
func NewLedgerRepository(db *gorm.DB, logger *zap.Logger) domainRepo.LedgerRepository {
	return &ledgerRepository{
		db:     db,
		logger: logger,
	}
}

// CreatePurchase inserts a purchase record, ignoring duplicates per attempt
func (r *ledgerRepository) CreatePurchase(ctx context.Context, purchase *model.PurchaseRecord) (*model.PurchaseRecord, bool, error) {
	if purchase.ID == uuid.Nil {
		purchase.ID = uuid.New()
	}

	db := conn(ctx, r.db)
	res := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "payment_attempt_id"}},
		DoNothing: true,
	}).Create(purchase)
	if res.Error != nil {
		return nil, false, fmt.Errorf("failed to create purchase record: %w", res.Error)
	}

	if res.RowsAffected == 0 {
		var existing model.PurchaseRecord
		if err := db.Where("payment_attempt_id = ?", purchase.PaymentAttemptID).First(&existing).Error; err != nil {
			return nil, false, fmt.Errorf("failed to load existing purchase record: %w", err)
		}
		r.logger.Info("Purchase record already exists (idempotency)",
			zap.String("payment_attempt_id", purchase.PaymentAttemptID.String()),
			zap.String("purchase_id", existing.ID.String()))
		return &existing, false, nil
	}

	return purchase, true, nil
}

// GetPurchaseByAttempt retrieves the purchase record granted for an attempt
func (r *ledgerRepository) GetPurchaseByAttempt(ctx context.Context, attemptID uuid.UUID) (*model.PurchaseRecord, error) {
	var purchase model.PurchaseRecord
	err := conn(ctx, r.db).Where("payment_attempt_id = ?", attemptID).First(&purchase).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domainErrors.ErrPurchaseNotFound
		}
		return nil, fmt.Errorf("failed to get purchase record: %w", err)
	}
	return &purchase, nil
}

// CreateSettlement inserts a sale settlement, ignoring duplicates per purchase
func (r *ledgerRepository) CreateSettlement(ctx context.Context, settlement *model.SaleSettlement) (*model.SaleSettlement, bool, error) {
	if settlement.ID == uuid.Nil {
		settlement.ID = uuid.New()
	}

	db := conn(ctx, r.db)
	res := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "purchase_record_id"}},
		DoNothing: true,
	}).Create(settlement)
	if res.Error != nil {
		return nil, false, fmt.Errorf("failed to create sale settlement: %w", res.Error)
	}

	if res.RowsAffected == 0 {
		var existing model.SaleSettlement
		if err := db.Where("purchase_record_id = ?", settlement.PurchaseRecordID).First(&existing).Error; err != nil {
			return nil, false, fmt.Errorf("failed to load existing sale settlement: %w", err)
		}
		return &existing, false, nil
	}

	return settlement, true, nil
}

// GetSettlementByPurchase returns nil when the purchase is not settled yet
func (r *ledgerRepository) GetSettlementByPurchase(ctx context.Context, purchaseID uuid.UUID) (*model.SaleSettlement, error) {
	var settlement model.SaleSettlement
	err := conn(ctx, r.db).Where("purchase_record_id = ?", purchaseID).First(&settlement).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get sale settlement: %w", err)
	}
	return &settlement, nil
}

// ListPurchasesWithoutSettlement finds paid author sales missing their settlement
func (r *ledgerRepository) ListPurchasesWithoutSettlement(ctx context.Context, limit int) ([]*model.PurchaseRecord, error) {
	var purchases []*model.PurchaseRecord
	err := conn(ctx, r.db).
		Where("amount > 0").
		Where("author_id IS NOT NULL").
		Where("item_kind <> ?", model.ItemKindSubscriptionPlan).
		Where("NOT EXISTS (SELECT 1 FROM sale_settlements ss WHERE ss.purchase_record_id = purchase_records.id)").
		Order("created_at ASC").
		Limit(limit).
		Find(&purchases).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list unsettled purchases: %w", err)
	}
	return purchases, nil
}

// ListPurchasesByBuyer retrieves a buyer's purchases, newest first
func (r *ledgerRepository) ListPurchasesByBuyer(ctx context.Context, buyerID uuid.UUID, limit, offset int) ([]*model.PurchaseRecord, error) {
	var purchases []*model.PurchaseRecord
	err := conn(ctx, r.db).
		Where("buyer_id = ?", buyerID).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&purchases).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list purchase records: %w", err)
	}
	return purchases, nil
}
