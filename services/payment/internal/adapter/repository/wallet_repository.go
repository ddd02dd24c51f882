package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	domainErrors "github.com/wekeepgrowing/marketplace-backend/services/payment/internal/domain/errors"
	"github.com/wekeepgrowing/marketplace-backend/services/payment/internal/domain/model"
	domainRepo "github.com/wekeepgrowing/marketplace-backend/services/payment/internal/domain/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// walletRepository implements the WalletRepository interface
type walletRepository struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewWalletRepository creates a new wallet repository instance
func NewWalletRepository(db *gorm.DB, logger *zap.Logger) domainRepo.WalletRepository {
	return &walletRepository{
		db:     db,
		logger: logger,
	}
}

// walletChange applies one mutation to a locked wallet and returns the
// journal amount to record
type walletChange func(wallet *model.Wallet) (decimal.Decimal, error)

// Get retrieves an author's wallet
func (r *walletRepository) Get(ctx context.Context, authorID uuid.UUID) (*model.Wallet, error) {
	var wallet model.Wallet
	err := conn(ctx, r.db).Where("author_id = ?", authorID).First(&wallet).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// Return zero wallet if not found
			return &model.Wallet{
				AuthorID:       authorID,
				Balance:        decimal.Zero,
				TotalEarnings:  decimal.Zero,
				TotalWithdrawn: decimal.Zero,
			}, nil
		}
		r.logger.Error("Failed to get wallet",
			zap.String("author_id", authorID.String()),
			zap.Error(err))
		return nil, fmt.Errorf("failed to get wallet: %w", err)
	}
	return &wallet, nil
}

// ApplyEarning credits a settlement's author earnings exactly once
func (r *walletRepository) ApplyEarning(ctx context.Context, settlement *model.SaleSettlement) (*model.Wallet, bool, error) {
	description := fmt.Sprintf("Earnings from purchase %s", settlement.PurchaseRecordID)
	return r.mutate(ctx, settlement.AuthorID, model.WalletEntryEarning, settlement.ID, description,
		func(wallet *model.Wallet) (decimal.Decimal, error) {
			wallet.Balance = wallet.Balance.Add(settlement.AuthorEarnings)
			wallet.TotalEarnings = wallet.TotalEarnings.Add(settlement.AuthorEarnings)
			return settlement.AuthorEarnings, nil
		})
}

// Reserve holds amount for a withdrawal request
func (r *walletRepository) Reserve(ctx context.Context, authorID uuid.UUID, amount decimal.Decimal, referenceID uuid.UUID) (*model.Wallet, error) {
	description := fmt.Sprintf("Reserved for withdrawal %s", referenceID)
	wallet, _, err := r.mutate(ctx, authorID, model.WalletEntryReservation, referenceID, description,
		func(wallet *model.Wallet) (decimal.Decimal, error) {
			if wallet.Balance.LessThan(amount) {
				return decimal.Zero, domainErrors.NewInsufficientBalanceError(amount, wallet.Balance)
			}
			wallet.Balance = wallet.Balance.Sub(amount)
			return amount.Neg(), nil
		})
	return wallet, err
}

// Release returns a reserved amount to the balance
func (r *walletRepository) Release(ctx context.Context, authorID uuid.UUID, amount decimal.Decimal, referenceID uuid.UUID) (*model.Wallet, error) {
	description := fmt.Sprintf("Released from withdrawal %s", referenceID)
	wallet, _, err := r.mutate(ctx, authorID, model.WalletEntryRelease, referenceID, description,
		func(wallet *model.Wallet) (decimal.Decimal, error) {
			wallet.Balance = wallet.Balance.Add(amount)
			return amount, nil
		})
	return wallet, err
}

// FinalizeWithdrawal records a completed payout. The amount already left the
// balance when it was reserved, so the payout entry does not move it.
func (r *walletRepository) FinalizeWithdrawal(ctx context.Context, authorID uuid.UUID, amount decimal.Decimal, referenceID uuid.UUID) (*model.Wallet, error) {
	description := fmt.Sprintf("Paid out withdrawal %s", referenceID)
	wallet, _, err := r.mutate(ctx, authorID, model.WalletEntryPayout, referenceID, description,
		func(wallet *model.Wallet) (decimal.Decimal, error) {
			wallet.TotalWithdrawn = wallet.TotalWithdrawn.Add(amount)
			return amount, nil
		})
	return wallet, err
}

// ListEntries retrieves the wallet journal with pagination
func (r *walletRepository) ListEntries(ctx context.Context, authorID uuid.UUID, limit, offset int) ([]*model.WalletEntry, int64, error) {
	var entries []*model.WalletEntry
	var total int64

	query := conn(ctx, r.db).Model(&model.WalletEntry{}).Where("author_id = ?", authorID)

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count wallet entries: %w", err)
	}

	err := query.
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&entries).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list wallet entries: %w", err)
	}

	return entries, total, nil
}

// mutate locks the author's wallet row, skips the change when an entry for
// (entryType, referenceID) already exists, and otherwise applies change and
// journals it in the same transaction.
func (r *walletRepository) mutate(ctx context.Context, authorID uuid.UUID, entryType model.WalletEntryType, referenceID uuid.UUID, description string, change walletChange) (*model.Wallet, bool, error) {
	var wallet model.Wallet
	applied := false

	err := conn(ctx, r.db).Transaction(func(tx *gorm.DB) error {
		// Make sure the row exists, then lock it
		seed := model.Wallet{
			AuthorID:       authorID,
			Balance:        decimal.Zero,
			TotalEarnings:  decimal.Zero,
			TotalWithdrawn: decimal.Zero,
		}
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&seed).Error; err != nil {
			return fmt.Errorf("failed to create wallet: %w", err)
		}

		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("author_id = ?", authorID).
			First(&wallet).Error
		if err != nil {
			r.logger.Error("Failed to lock wallet row",
				zap.String("author_id", authorID.String()),
				zap.Error(err))
			return fmt.Errorf("failed to lock wallet: %w", err)
		}

		// Check for existing entry with same reference (idempotency)
		var existing int64
		err = tx.Model(&model.WalletEntry{}).
			Where("entry_type = ? AND reference_id = ?", entryType, referenceID).
			Count(&existing).Error
		if err != nil {
			return fmt.Errorf("failed to check wallet entry: %w", err)
		}
		if existing > 0 {
			r.logger.Info("Wallet mutation already applied (idempotency)",
				zap.String("author_id", authorID.String()),
				zap.String("entry_type", string(entryType)),
				zap.String("reference_id", referenceID.String()))
			return nil
		}

		amount, err := change(&wallet)
		if err != nil {
			return err
		}

		entry := &model.WalletEntry{
			ID:           uuid.New(),
			AuthorID:     authorID,
			EntryType:    entryType,
			ReferenceID:  referenceID,
			Amount:       amount,
			BalanceAfter: wallet.Balance,
			Description:  description,
		}
		if err := tx.Create(entry).Error; err != nil {
			return fmt.Errorf("failed to create wallet entry: %w", err)
		}

		if err := tx.Save(&wallet).Error; err != nil {
			r.logger.Error("Failed to update wallet",
				zap.String("author_id", authorID.String()),
				zap.String("new_balance", wallet.Balance.String()),
				zap.Error(err))
			return fmt.Errorf("failed to update wallet: %w", err)
		}

		applied = true
		return nil
	})
	if err != nil {
		var insufficient *domainErrors.InsufficientBalanceError
		if !errors.As(err, &insufficient) {
			r.logger.Error("Failed to apply wallet mutation",
				zap.String("author_id", authorID.String()),
				zap.String("entry_type", string(entryType)),
				zap.String("reference_id", referenceID.String()),
				zap.Error(err))
		}
		return nil, false, err
	}

	if applied {
		r.logger.Info("Wallet mutation applied",
			zap.String("author_id", authorID.String()),
			zap.String("entry_type", string(entryType)),
			zap.String("reference_id", referenceID.String()),
			zap.String("balance", wallet.Balance.String()),
			zap.String("total_earnings", wallet.TotalEarnings.String()),
			zap.String("total_withdrawn", wallet.TotalWithdrawn.String()))
	}

	return &wallet, applied, nil
}
