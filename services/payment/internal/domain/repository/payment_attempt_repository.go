package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/wekeepgrowing/marketplace-backend/services/payment/internal/domain/model"
)

// AttemptMutation mutates a locked attempt in place and reports whether it
// changed and must be saved.
type AttemptMutation func(attempt *model.PaymentAttempt) (changed bool, err error)

// PaymentAttemptRepository defines persistence for payment attempts
type PaymentAttemptRepository interface {
	// Create inserts a new attempt. The idempotency key must be unique.
	Create(ctx context.Context, attempt *model.PaymentAttempt) error

	// GetByID returns domain errors.ErrAttemptNotFound when missing
	GetByID(ctx context.Context, id uuid.UUID) (*model.PaymentAttempt, error)

	// GetByGatewayOrderID finds the attempt a gateway order belongs to
	GetByGatewayOrderID(ctx context.Context, orderID string) (*model.PaymentAttempt, error)

	// Mutate locks the attempt row, applies fn and saves the result if fn
	// reports a change. Concurrent callers for one attempt are serialized.
	Mutate(ctx context.Context, id uuid.UUID, fn AttemptMutation) (*model.PaymentAttempt, bool, error)

	// ListSucceededWithoutPurchase returns succeeded attempts with no purchase record
	ListSucceededWithoutPurchase(ctx context.Context, limit int) ([]*model.PaymentAttempt, error)
}
