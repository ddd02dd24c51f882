package repository

import (
	"context"

	domainRepo "github.com/wekeepgrowing/marketplace-backend/services/payment/internal/domain/repository"
	"gorm.io/gorm"
)

type txKey struct{}

// gormTransactor implements the Transactor interface
type gormTransactor struct {
	db *gorm.DB
}

// NewTransactor creates a transactor that shares transactions with the
// repositories built on the same *gorm.DB
func NewTransactor(db *gorm.DB) domainRepo.Transactor {
	return &gormTransactor{db: db}
}

// WithinTransaction runs fn in a transaction. Nested calls become savepoints
// of the outer transaction.
func (t *gormTransactor) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return conn(ctx, t.db).Transaction(func(tx *gorm.DB) error {
		return fn(context.WithValue(ctx, txKey{}, tx))
	})
}

// conn returns the transaction carried by ctx, or db when there is none
func conn(ctx context.Context, db *gorm.DB) *gorm.DB {
	if tx, ok := ctx.Value(txKey{}).(*gorm.DB); ok {
		return tx.WithContext(ctx)
	}
	return db.WithContext(ctx)
}
