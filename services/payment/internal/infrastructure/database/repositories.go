package database

import (
	"github.com/wekeepgrowing/marketplace-backend/services/payment/internal/adapter/repository"
	domainRepo "github.com/wekeepgrowing/marketplace-backend/services/payment/internal/domain/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Repositories holds all repository instances
type Repositories struct {
	Transactor    domainRepo.Transactor
	Attempt       domainRepo.PaymentAttemptRepository
	Ledger        domainRepo.LedgerRepository
	Wallet        domainRepo.WalletRepository
	Withdrawal    domainRepo.WithdrawalRepository
	GatewayEvents domainRepo.GatewayEventRepository
}

// NewRepositories creates new repository instances with database connection
func NewRepositories(db *gorm.DB, logger *zap.Logger) *Repositories {
	return &Repositories{
		Transactor:    repository.NewTransactor(db),
		Attempt:       repository.NewPaymentAttemptRepository(db, logger),
		Ledger:        repository.NewLedgerRepository(db, logger),
		Wallet:        repository.NewWalletRepository(db, logger),
		Withdrawal:    repository.NewWithdrawalRepository(db, logger),
		GatewayEvents: repository.NewGatewayEventRepository(db, logger),
	}
}
