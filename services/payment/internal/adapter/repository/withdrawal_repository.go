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

// withdrawalRepository implements the WithdrawalRepository interface
type withdrawalRepository struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewWithdrawalRepository creates a new withdrawal repository instance
func NewWithdrawalRepository(db *gorm.DB, logger *zap.Logger) domainRepo.WithdrawalRepository {
	return &withdrawalRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a new withdrawal request
func (r *withdrawalRepository) Create(ctx context.Context, request *model.WithdrawalRequest) error {
	if request.ID == uuid.Nil {
		request.ID = uuid.New()
	}
	if err := conn(ctx, r.db).Create(request).Error; err != nil {
		r.logger.Error("Failed to create withdrawal request",
			zap.String("author_id", request.AuthorID.String()),
			zap.String("amount", request.Amount.String()),
			zap.Error(err))
		return fmt.Errorf("failed to create withdrawal request: %w", err)
	}
	return nil
}

// GetByID retrieves a withdrawal request by its ID
func (r *withdrawalRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.WithdrawalRequest, error) {
	return r.get(conn(ctx, r.db), id)
}

// GetForUpdate retrieves and locks a withdrawal request
func (r *withdrawalRepository) GetForUpdate(ctx context.Context, id uuid.UUID) (*model.WithdrawalRequest, error) {
	return r.get(conn(ctx, r.db).Clauses(clause.Locking{Strength: "UPDATE"}), id)
}

func (r *withdrawalRepository) get(db *gorm.DB, id uuid.UUID) (*model.WithdrawalRequest, error) {
	var request model.WithdrawalRequest
	if err := db.Where("id = ?", id).First(&request).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domainErrors.ErrWithdrawalNotFound
		}
		return nil, fmt.Errorf("failed to get withdrawal request: %w", err)
	}
	return &request, nil
}

// Save updates a withdrawal request
func (r *withdrawalRepository) Save(ctx context.Context, request *model.WithdrawalRequest) error {
	if err := conn(ctx, r.db).Save(request).Error; err != nil {
		return fmt.Errorf("failed to update withdrawal request: %w", err)
	}
	return nil
}

// List retrieves withdrawal requests matching the filter, newest first
func (r *withdrawalRepository) List(ctx context.Context, filter domainRepo.WithdrawalFilter) ([]*model.WithdrawalRequest, int64, error) {
	filter.SetDefaults()

	var requests []*model.WithdrawalRequest
	var total int64

	query := conn(ctx, r.db).Model(&model.WithdrawalRequest{})
	if filter.AuthorID != nil {
		query = query.Where("author_id = ?", *filter.AuthorID)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count withdrawal requests: %w", err)
	}

	err := query.
		Order("created_at DESC").
		Limit(filter.Limit).
		Offset(filter.Offset).
		Find(&requests).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list withdrawal requests: %w", err)
	}

	return requests, total, nil
}
