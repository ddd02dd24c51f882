package usecase

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	domainErrors "github.com/wekeepgrowing/marketplace-backend/services/payment/internal/domain/errors"
	"github.com/wekeepgrowing/marketplace-backend/services/payment/internal/domain/dto"
	"github.com/wekeepgrowing/marketplace-backend/services/payment/internal/domain/model"
	"github.com/wekeepgrowing/marketplace-backend/services/payment/internal/domain/repository"
	"go.uber.org/zap"
)

// WalletService exposes author wallets
type WalletService struct {
	wallets repository.WalletRepository
	logger  *zap.Logger
}

// NewWalletService creates a new wallet service
func NewWalletService(wallets repository.WalletRepository, logger *zap.Logger) *WalletService {
	return &WalletService{
		wallets: wallets,
		logger:  logger,
	}
}

// GetWallet returns the author's wallet, zeroed if it does not exist yet
func (s *WalletService) GetWallet(ctx context.Context, authorID uuid.UUID) (*model.Wallet, error) {
	return s.wallets.Get(ctx, authorID)
}

// History returns a page of the author's wallet journal
func (s *WalletService) History(ctx context.Context, authorID uuid.UUID, params dto.PageParams) (*dto.WalletEntryListResponse, error) {
	params.SetDefaults()

	entries, total, err := s.wallets.ListEntries(ctx, authorID, params.Limit, params.Offset)
	if err != nil {
		s.logger.Error("Failed to get wallet history",
			zap.String("author_id", authorID.String()),
			zap.Error(err))
		return nil, err
	}

	items := make([]dto.WalletEntryDTO, 0, len(entries))
	for _, e := range entries {
		items = append(items, dto.WalletEntryDTO{
			EntryType:    string(e.EntryType),
			Amount:       e.Amount.StringFixed(2),
			BalanceAfter: e.BalanceAfter.StringFixed(2),
			Description:  e.Description,
			CreatedAt:    e.CreatedAt,
		})
	}

	return &dto.WalletEntryListResponse{
		Entries:    items,
		Pagination: dto.NewPaginationInfo(total, params.Limit, params.Offset),
	}, nil
}

// ApplySettlement credits a settlement to its author's wallet once
func (s *WalletService) ApplySettlement(ctx context.Context, settlement *model.SaleSettlement) (*model.Wallet, bool, error) {
	if settlement.AuthorEarnings.IsNegative() {
		return nil, false, domainErrors.NewValidationError("author_earnings", "must not be negative")
	}
	return s.wallets.ApplyEarning(ctx, settlement)
}

// Reserve holds amount from the balance for referenceID
func (s *WalletService) Reserve(ctx context.Context, authorID uuid.UUID, amount decimal.Decimal, referenceID uuid.UUID) (*model.Wallet, error) {
	if err := requirePositive(amount); err != nil {
		return nil, err
	}
	return s.wallets.Reserve(ctx, authorID, amount, referenceID)
}

// Release returns a reserved amount to the balance
func (s *WalletService) Release(ctx context.Context, authorID uuid.UUID, amount decimal.Decimal, referenceID uuid.UUID) (*model.Wallet, error) {
	if err := requirePositive(amount); err != nil {
		return nil, err
	}
	return s.wallets.Release(ctx, authorID, amount, referenceID)
}

// FinalizeWithdrawal adds a paid-out amount to the lifetime withdrawn total
func (s *WalletService) FinalizeWithdrawal(ctx context.Context, authorID uuid.UUID, amount decimal.Decimal, referenceID uuid.UUID) (*model.Wallet, error) {
	if err := requirePositive(amount); err != nil {
		return nil, err
	}
	return s.wallets.FinalizeWithdrawal(ctx, authorID, amount, referenceID)
}

func requirePositive(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return domainErrors.NewValidationError("amount", "must be greater than zero")
	}
	return nil
}
