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

// paymentAttemptRepository implements the PaymentAttemptRepository interface
type paymentAttemptRepository struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewPaymentAttemptRepository creates a new payment attempt repository instance
func NewPaymentAttemptRepository(db *gorm.DB, logger *zap.Logger) domainRepo.PaymentAttemptRepository {
	return &paymentAttemptRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a new payment attempt
func (r *paymentAttemptRepository) Create(ctx context.Context, attempt *model.PaymentAttempt) error {
	if attempt.ID == uuid.Nil {
		attempt.ID = uuid.New()
	}
	if err := conn(ctx, r.db).Create(attempt).Error; err != nil {
		r.logger.Error("Failed to create payment attempt",
			zap.String("attempt_id", attempt.ID.String()),
			zap.String("buyer_id", attempt.BuyerID.String()),
			zap.Error(err))
		return fmt.Errorf("failed to create payment attempt: %w", err)
	}
	return nil
}

// GetByID retrieves a payment attempt by its ID
func (r *paymentAttemptRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.PaymentAttempt, error) {
	var attempt model.PaymentAttempt
	err := conn(ctx, r.db).Where("id = ?", id).First(&attempt).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domainErrors.ErrAttemptNotFound
		}
		return nil, fmt.Errorf("failed to get payment attempt: %w", err)
	}
	return &attempt, nil
}

// GetByGatewayOrderID retrieves the attempt a gateway order was created for
func (r *paymentAttemptRepository) GetByGatewayOrderID(ctx context.Context, orderID string) (*model.PaymentAttempt, error) {
	var attempt model.PaymentAttempt
	err := conn(ctx, r.db).Where("gateway_order_id = ?", orderID).First(&attempt).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domainErrors.ErrAttemptNotFound
		}
		return nil, fmt.Errorf("failed to get payment attempt by order: %w", err)
	}
	return &attempt, nil
}

// Mutate locks the attempt row for the duration of fn
func (r *paymentAttemptRepository) Mutate(ctx context.Context, id uuid.UUID, fn domainRepo.AttemptMutation) (*model.PaymentAttempt, bool, error) {
	var result *model.PaymentAttempt
	var changed bool

	err := conn(ctx, r.db).Transaction(func(tx *gorm.DB) error {
		var attempt model.PaymentAttempt
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", id).
			First(&attempt).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domainErrors.ErrAttemptNotFound
			}
			return fmt.Errorf("failed to lock payment attempt: %w", err)
		}

		before := attempt.Status
		changed, err = fn(&attempt)
		if err != nil {
			return err
		}
		if changed {
			if err := tx.Save(&attempt).Error; err != nil {
				return fmt.Errorf("failed to save payment attempt: %w", err)
			}
			r.logger.Info("Payment attempt updated",
				zap.String("attempt_id", attempt.ID.String()),
				zap.String("from_status", string(before)),
				zap.String("to_status", string(attempt.Status)))
		}

		result = &attempt
		return nil
	})
	if err != nil {
		return nil, false, err
	}

	return result, changed, nil
}

// ListSucceededWithoutPurchase finds succeeded attempts whose grant never landed
func (r *paymentAttemptRepository) ListSucceededWithoutPurchase(ctx context.Context, limit int) ([]*model.PaymentAttempt, error) {
	var attempts []*model.PaymentAttempt
	err := conn(ctx, r.db).
		Where("status = ?", model.AttemptStatusSucceeded).
		Where("NOT EXISTS (SELECT 1 FROM purchase_records pr WHERE pr.payment_attempt_id = payment_attempts.id)").
		Order("resolved_at ASC").
		Limit(limit).
		Find(&attempts).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list ungranted attempts: %w", err)
	}
	return attempts, nil
}
