// Package app wires configuration, storage and use cases for the payment
// service binaries.
package app

import (
	"fmt"

	"github.com/wekeepgrowing/marketplace-backend/pkg/messaging"
	"github.com/wekeepgrowing/marketplace-backend/services/payment/internal/adapter/catalog"
	"github.com/wekeepgrowing/marketplace-backend/services/payment/internal/adapter/notifier"
	"github.com/wekeepgrowing/marketplace-backend/services/payment/internal/config"
	"github.com/wekeepgrowing/marketplace-backend/services/payment/internal/domain/provider"
	"github.com/wekeepgrowing/marketplace-backend/services/payment/internal/infrastructure/crypto"
	"github.com/wekeepgrowing/marketplace-backend/services/payment/internal/infrastructure/database"
	stripeprovider "github.com/wekeepgrowing/marketplace-backend/services/payment/internal/infrastructure/provider/stripe"
	"github.com/wekeepgrowing/marketplace-backend/services/payment/internal/usecase"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// App holds the wired service graph
type App struct {
	Config *config.Config
	Logger *zap.Logger
	DB     *gorm.DB
	Repos  *database.Repositories
	Redis  messaging.RedisClient

	Ledger      *usecase.PurchaseLedger
	Sessions    *usecase.PaymentSessionService
	Wallets     *usecase.WalletService
	Withdrawals *usecase.WithdrawalService

	ownsDB bool
}

// New connects to the database and builds every use case. When migrate is
// set the schema is brought up to date first.
func New(cfg *config.Config, logger *zap.Logger, migrate bool) (*App, error) {
	db, err := database.NewConnection(&cfg.Database, logger)
	if err != nil {
		return nil, err
	}

	if migrate {
		if err := database.Migrate(db, logger); err != nil {
			_ = database.Close(db, logger)
			return nil, fmt.Errorf("failed to run database migrations: %w", err)
		}
	}

	a, err := NewWithDB(cfg, logger, db)
	if err != nil {
		_ = database.Close(db, logger)
		return nil, err
	}
	a.ownsDB = true
	return a, nil
}

// NewWithDB builds every use case over an open database. Close leaves db
// open.
func NewWithDB(cfg *config.Config, logger *zap.Logger, db *gorm.DB) (*App, error) {
	a := &App{
		Config: cfg,
		Logger: logger,
		DB:     db,
		Repos:  database.NewRepositories(db, logger),
	}

	items, err := catalog.LoadYAMLCatalog(cfg.Catalog.Path, logger)
	if err != nil {
		a.Close()
		return nil, err
	}

	gst, commission, err := cfg.Payment.Rates()
	if err != nil {
		a.Close()
		return nil, err
	}
	minWithdrawal, err := cfg.Payment.MinWithdrawalAmount()
	if err != nil {
		a.Close()
		return nil, err
	}

	notify := a.newNotifier()
	gateway := stripeprovider.NewStripeProvider(stripeprovider.Config{
		SecretKey:      cfg.Stripe.SecretKey,
		PublishableKey: cfg.Stripe.PublishableKey,
		WebhookSecret:  cfg.Stripe.WebhookSecret,
	}, logger)

	rates := usecase.SplitRates{GSTRate: gst, CommissionRate: commission}
	if err := rates.Validate(); err != nil {
		a.Close()
		return nil, err
	}

	a.Ledger = usecase.NewPurchaseLedger(a.Repos.Transactor, a.Repos.Attempt, a.Repos.Ledger, a.Repos.Wallet,
		notify, rates, cfg.Payment.ReconcileBatchSize, logger)
	a.Sessions = usecase.NewPaymentSessionService(a.Repos.Attempt, a.Repos.GatewayEvents, items, gateway, a.Ledger,
		usecase.PaymentSessionConfig{
			Currency:          cfg.Payment.Currency,
			LocalTimeout:      cfg.Payment.LocalTimeout,
			FreePaymentMarker: cfg.Payment.FreePaymentMarker,
		}, logger)
	a.Wallets = usecase.NewWalletService(a.Repos.Wallet, logger)
	var withdrawalOpts []usecase.WithdrawalOption
	if cfg.Payment.PayoutEncryptionKey != "" {
		enc, err := crypto.NewAESEncryptionService(cfg.Payment.PayoutEncryptionKey)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("invalid payment.payout_encryption_key: %w", err)
		}
		withdrawalOpts = append(withdrawalOpts, usecase.WithPayoutEncryption(enc))
	} else {
		logger.Warn("No payout encryption key configured, bank account numbers are stored unencrypted")
	}
	a.Withdrawals = usecase.NewWithdrawalService(a.Repos.Transactor, a.Repos.Withdrawal, a.Repos.Wallet,
		notify, minWithdrawal, logger, withdrawalOpts...)

	return a, nil
}

// newNotifier publishes to Redis when it is reachable and falls back to logs
func (a *App) newNotifier() provider.Notifier {
	if a.Config.Redis.Addr == "" {
		return notifier.NewLogNotifier(a.Logger)
	}

	client, err := messaging.NewRedisClient(a.Config.Redis.Addr, a.Config.Redis.Password, a.Config.Redis.DB)
	if err != nil {
		a.Logger.Warn("Redis unavailable, ledger events will only be logged",
			zap.String("addr", a.Config.Redis.Addr),
			zap.Error(err))
		return notifier.NewLogNotifier(a.Logger)
	}

	a.Redis = client
	return notifier.NewRedisNotifier(client, a.Config.Redis.Channel, a.Logger)
}

// Close releases the database and Redis connections
func (a *App) Close() {
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			a.Logger.Error("Failed to close redis client", zap.Error(err))
		}
	}
	if !a.ownsDB {
		return
	}
	if err := database.Close(a.DB, a.Logger); err != nil {
		a.Logger.Error("Failed to close database connection", zap.Error(err))
	}
}
