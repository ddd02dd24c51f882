package database

import (
	"github.com/wekeepgrowing/marketplace-backend/services/payment/internal/domain/model"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Migrate runs database migrations
func Migrate(db *gorm.DB, logger *zap.Logger) error {
	logger.Info("Running database migrations...")

	// Auto-migrate all models
	logger.Info("Running GORM auto-migrations...")
	err := db.AutoMigrate(
		&model.PaymentAttempt{},
		&model.PurchaseRecord{},
		&model.SaleSettlement{},
		&model.Wallet{},
		&model.WalletEntry{},
		&model.WithdrawalRequest{},
		&model.GatewayEvent{},
		&model.GatewayIncident{},
	)
	if err != nil {
		logger.Error("Failed to run migrations", zap.Error(err))
		return err
	}
	logger.Info("GORM auto-migrations completed successfully")

	if db.Dialector.Name() != "postgres" {
		logger.Info("Skipping PostgreSQL-specific migrations",
			zap.String("dialect", db.Dialector.Name()))
		return nil
	}

	// Create custom indexes and constraints
	logger.Info("Creating custom indexes...")
	if err := createCustomIndexes(db); err != nil {
		logger.Error("Failed to create custom indexes", zap.Error(err))
		return err
	}
	logger.Info("Custom indexes created successfully")

	logger.Info("Creating check constraints...")
	if err := createCheckConstraints(db, logger); err != nil {
		logger.Error("Failed to create check constraints", zap.Error(err))
		return err
	}
	logger.Info("Check constraints created successfully")

	logger.Info("Database migrations completed successfully")
	return nil
}

// createCustomIndexes creates partial indexes that GORM doesn't handle automatically
func createCustomIndexes(db *gorm.DB) error {
	statements := []string{
		// Reconcile scans for succeeded attempts
		`CREATE INDEX IF NOT EXISTS idx_payment_attempts_succeeded ON payment_attempts (resolved_at) WHERE status = 'succeeded'`,
		// Admin review queue
		`CREATE INDEX IF NOT EXISTS idx_withdrawal_requests_open ON withdrawal_requests (created_at) WHERE status IN ('pending', 'approved')`,
		// Webhook redelivery triage
		`CREATE INDEX IF NOT EXISTS idx_gateway_events_unprocessed ON gateway_events (created_at) WHERE status IN ('pending', 'failed')`,
	}

	for _, stmt := range statements {
		if err := db.Exec(stmt).Error; err != nil {
			return err
		}
	}
	return nil
}

// createCheckConstraints enforces the money invariants in the database as well
func createCheckConstraints(db *gorm.DB, logger *zap.Logger) error {
	constraints := []struct {
		table string
		name  string
		check string
	}{
		{"wallets", "chk_wallets_balance_non_negative", "balance >= 0"},
		{"sale_settlements", "chk_sale_settlements_sum", "gst_amount + platform_commission + author_earnings = gross_amount"},
		{"withdrawal_requests", "chk_withdrawal_requests_amount_positive", "amount > 0"},
		{"payment_attempts", "chk_payment_attempts_amount_non_negative", "amount >= 0"},
	}

	for _, c := range constraints {
		var exists bool
		db.Raw(`SELECT EXISTS (SELECT 1 FROM pg_constraint WHERE conname = ?)`, c.name).Scan(&exists)
		if exists {
			continue
		}
		if err := db.Exec("ALTER TABLE " + c.table + " ADD CONSTRAINT " + c.name + " CHECK (" + c.check + ")").Error; err != nil {
			logger.Error("Failed to create check constraint", zap.String("constraint", c.name), zap.Error(err))
			return err
		}
		logger.Info("Created check constraint", zap.String("constraint", c.name))
	}
	return nil
}
