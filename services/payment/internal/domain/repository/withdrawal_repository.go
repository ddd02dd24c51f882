package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/wekeepgrowing/marketplace-backend/services/payment/internal/domain/model"
)

// WithdrawalFilter narrows withdrawal listings
type WithdrawalFilter struct {
	AuthorID *uuid.UUID
	Status   *model.WithdrawalStatus
	Limit    int
	Offset   int
}

// SetDefaults applies default pagination values
func (f *WithdrawalFilter) SetDefaults() {
	if f.Limit <= 0 || f.Limit > 100 {
		f.Limit = 20
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
}

// WithdrawalRepository persists withdrawal requests
type WithdrawalRepository interface {
	Create(ctx context.Context, request *model.WithdrawalRequest) error

	// GetByID returns domain errors.ErrWithdrawalNotFound when missing
	GetByID(ctx context.Context, id uuid.UUID) (*model.WithdrawalRequest, error)

	// GetForUpdate is GetByID with a row lock; call it inside a transaction
	GetForUpdate(ctx context.Context, id uuid.UUID) (*model.WithdrawalRequest, error)

	Save(ctx context.Context, request *model.WithdrawalRequest) error

	List(ctx context.Context, filter WithdrawalFilter) ([]*model.WithdrawalRequest, int64, error)
}
