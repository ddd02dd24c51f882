package provider

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/wekeepgrowing/marketplace-backend/services/payment/internal/domain/model"
)

// ItemPrice is the catalog's current price for an item
type ItemPrice struct {
	Amount   decimal.Decimal
	AuthorID *uuid.UUID
	IsFree   bool
	Title    string
}

// Catalog looks up prices. It returns domain errors.ErrItemNotFound for
// unknown items.
type Catalog interface {
	PriceOf(ctx context.Context, item model.ItemRef) (*ItemPrice, error)
}
