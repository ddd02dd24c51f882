package usecase

import (
	"context"
	"errors"
	"fmt"

	domainErrors "github.com/wekeepgrowing/marketplace-backend/services/payment/internal/domain/errors"
	"github.com/wekeepgrowing/marketplace-backend/services/payment/internal/domain/model"
	"github.com/wekeepgrowing/marketplace-backend/services/payment/internal/domain/provider"
	"github.com/wekeepgrowing/marketplace-backend/services/payment/internal/domain/repository"
	"go.uber.org/zap"
)

const defaultReconcileBatchSize = 100

// PurchaseGranter turns a succeeded attempt into a purchase grant
type PurchaseGranter interface {
	Grant(ctx context.Context, attempt *model.PaymentAttempt) (*GrantResult, error)
}

// GrantResult describes what a grant wrote
type GrantResult struct {
	Purchase *model.PurchaseRecord
	// Created is false when the attempt had already been granted
	Created bool
	// Settlement is nil for free items, subscription plans and gaps
	Settlement *model.SaleSettlement
	// Gap is set when the purchase was recorded but its settlement was not
	Gap *domainErrors.ReconciliationGap
}

// ReconcileReport summarizes one reconciliation pass
type ReconcileReport struct {
	ScannedAttempts    int                               `json:"scanned_attempts"`
	GrantedPurchases   int                               `json:"granted_purchases"`
	ScannedPurchases   int                               `json:"scanned_purchases"`
	AppliedSettlements int                               `json:"applied_settlements"`
	Gaps               []*domainErrors.ReconciliationGap `json:"-"`
	GapMessages        []string                          `json:"gaps,omitempty"`
}

func (r *ReconcileReport) addGap(gap *domainErrors.ReconciliationGap) {
	r.Gaps = append(r.Gaps, gap)
	r.GapMessages = append(r.GapMessages, gap.Error())
}

// PurchaseLedger records purchases and settles author earnings
type PurchaseLedger struct {
	transactor repository.Transactor
	attempts   repository.PaymentAttemptRepository
	ledger     repository.LedgerRepository
	wallets    *WalletService
	notifier   provider.Notifier
	rates      SplitRates
	batchSize  int
	logger     *zap.Logger
}

// NewPurchaseLedger creates a new purchase ledger
func NewPurchaseLedger(
	transactor repository.Transactor,
	attempts repository.PaymentAttemptRepository,
	ledger repository.LedgerRepository,
	wallets repository.WalletRepository,
	notifier provider.Notifier,
	rates SplitRates,
	batchSize int,
	logger *zap.Logger,
) *PurchaseLedger {
	if batchSize <= 0 {
		batchSize = defaultReconcileBatchSize
	}
	return &PurchaseLedger{
		transactor: transactor,
		attempts:   attempts,
		ledger:     ledger,
		wallets:    NewWalletService(wallets, logger),
		notifier:   notifier,
		rates:      rates,
		batchSize:  batchSize,
		logger:     logger,
	}
}

// Grant records the purchase for a succeeded attempt and settles the sale.
// The purchase record and the settlement commit together; if settling fails
// the purchase is still committed and the gap is reported in the result for
// Reconcile to close.
func (l *PurchaseLedger) Grant(ctx context.Context, attempt *model.PaymentAttempt) (*GrantResult, error) {
	if attempt.Status != model.AttemptStatusSucceeded {
		return nil, fmt.Errorf("cannot grant attempt %s in status %s: %w",
			attempt.ID, attempt.Status, domainErrors.ErrInvalidAttemptTransition)
	}

	result := &GrantResult{}

	err := l.transactor.WithinTransaction(ctx, func(txCtx context.Context) error {
		purchase, created, err := l.ledger.CreatePurchase(txCtx, &model.PurchaseRecord{
			BuyerID:          attempt.BuyerID,
			Item:             attempt.Item,
			AuthorID:         attempt.AuthorID,
			PaymentAttemptID: attempt.ID,
			Amount:           attempt.Amount,
		})
		if err != nil {
			return err
		}
		result.Purchase = purchase
		result.Created = created

		if !purchase.NeedsSettlement() {
			return nil
		}

		// Settle in a savepoint so a failure here keeps the purchase
		settlement, err := l.settleInTransaction(txCtx, purchase)
		if err != nil {
			purchaseID := purchase.ID
			result.Gap = &domainErrors.ReconciliationGap{
				AttemptID:        attempt.ID,
				PurchaseRecordID: &purchaseID,
				Cause:            err,
			}
			return nil
		}
		result.Settlement = settlement
		return nil
	})
	if err != nil {
		l.logger.Error("Failed to record purchase",
			zap.String("attempt_id", attempt.ID.String()),
			zap.String("buyer_id", attempt.BuyerID.String()),
			zap.String("item", attempt.Item.String()),
			zap.Error(err))
		return nil, &domainErrors.ReconciliationGap{AttemptID: attempt.ID, Cause: err}
	}

	if result.Gap != nil {
		l.logger.Warn("Purchase recorded without settlement",
			zap.String("attempt_id", attempt.ID.String()),
			zap.String("purchase_id", result.Purchase.ID.String()),
			zap.Error(result.Gap.Cause))
	}

	if result.Created && attempt.Item.IsSubscription() {
		revenue := ComputeSubscriptionSplit(attempt.Amount)
		l.logger.Info("Subscription revenue recorded",
			zap.String("purchase_id", result.Purchase.ID.String()),
			zap.String("platform_commission", revenue.PlatformCommission.String()))
	}

	if result.Created {
		l.logger.Info("Purchase granted",
			zap.String("attempt_id", attempt.ID.String()),
			zap.String("purchase_id", result.Purchase.ID.String()),
			zap.String("buyer_id", attempt.BuyerID.String()),
			zap.String("item", attempt.Item.String()),
			zap.String("amount", attempt.Amount.String()))

		l.notifier.Notify(ctx, provider.EventPurchaseGranted, map[string]interface{}{
			"purchase_id": result.Purchase.ID.String(),
			"buyer_id":    attempt.BuyerID.String(),
			"item_kind":   string(attempt.Item.Kind),
			"item_id":     attempt.Item.ID,
			"amount":      attempt.Amount.StringFixed(2),
		})
	}

	return result, nil
}

// Settle inserts the settlement for a purchase and credits the author's
// wallet in one transaction. It is idempotent.
func (l *PurchaseLedger) Settle(ctx context.Context, purchase *model.PurchaseRecord) (*model.SaleSettlement, error) {
	if !purchase.NeedsSettlement() {
		return nil, nil
	}
	return l.settleInTransaction(ctx, purchase)
}

func (l *PurchaseLedger) settleInTransaction(ctx context.Context, purchase *model.PurchaseRecord) (*model.SaleSettlement, error) {
	var settlement *model.SaleSettlement

	err := l.transactor.WithinTransaction(ctx, func(txCtx context.Context) error {
		split, err := ComputeSplit(purchase.Amount, l.rates)
		if err != nil {
			return fmt.Errorf("failed to split purchase %s: %w", purchase.ID, err)
		}

		stored, created, err := l.ledger.CreateSettlement(txCtx, &model.SaleSettlement{
			PurchaseRecordID:   purchase.ID,
			GrossAmount:        purchase.Amount,
			GSTAmount:          split.GSTAmount,
			PlatformCommission: split.PlatformCommission,
			AuthorEarnings:     split.AuthorEarnings,
			AuthorID:           *purchase.AuthorID,
		})
		if err != nil {
			return err
		}

		wallet, applied, err := l.wallets.ApplySettlement(txCtx, stored)
		if err != nil {
			return fmt.Errorf("failed to apply settlement to wallet: %w", err)
		}

		if created || applied {
			l.logger.Info("Sale settled",
				zap.String("purchase_id", purchase.ID.String()),
				zap.String("settlement_id", stored.ID.String()),
				zap.String("author_id", stored.AuthorID.String()),
				zap.String("gross_amount", stored.GrossAmount.String()),
				zap.String("gst_amount", stored.GSTAmount.String()),
				zap.String("platform_commission", stored.PlatformCommission.String()),
				zap.String("author_earnings", stored.AuthorEarnings.String()),
				zap.String("wallet_balance", wallet.Balance.String()))
		}

		settlement = stored
		return nil
	})
	if err != nil {
		return nil, err
	}

	return settlement, nil
}

// Reconcile repairs the ledger: it grants succeeded attempts that have no
// purchase record, then settles purchases that are missing their
// settlement. Failures on single rows are collected in the report and
// retried on the next pass.
func (l *PurchaseLedger) Reconcile(ctx context.Context) (*ReconcileReport, error) {
	report := &ReconcileReport{}

	attempts, err := l.attempts.ListSucceededWithoutPurchase(ctx, l.batchSize)
	if err != nil {
		return nil, fmt.Errorf("failed to scan ungranted attempts: %w", err)
	}
	report.ScannedAttempts = len(attempts)

	for _, attempt := range attempts {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		result, err := l.Grant(ctx, attempt)
		if err != nil {
			var gap *domainErrors.ReconciliationGap
			if !errors.As(err, &gap) {
				gap = &domainErrors.ReconciliationGap{AttemptID: attempt.ID, Cause: err}
			}
			report.addGap(gap)
			continue
		}
		if result.Created {
			report.GrantedPurchases++
		}
		if result.Settlement != nil {
			report.AppliedSettlements++
		}
		if result.Gap != nil {
			report.addGap(result.Gap)
		}
	}

	purchases, err := l.ledger.ListPurchasesWithoutSettlement(ctx, l.batchSize)
	if err != nil {
		return report, fmt.Errorf("failed to scan unsettled purchases: %w", err)
	}
	report.ScannedPurchases = len(purchases)

	for _, purchase := range purchases {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		if _, err := l.Settle(ctx, purchase); err != nil {
			purchaseID := purchase.ID
			report.addGap(&domainErrors.ReconciliationGap{
				AttemptID:        purchase.PaymentAttemptID,
				PurchaseRecordID: &purchaseID,
				Cause:            err,
			})
			continue
		}
		report.AppliedSettlements++
	}

	logFn := l.logger.Info
	if len(report.Gaps) > 0 {
		logFn = l.logger.Warn
	}
	logFn("Reconciliation pass finished",
		zap.Int("scanned_attempts", report.ScannedAttempts),
		zap.Int("granted_purchases", report.GrantedPurchases),
		zap.Int("scanned_purchases", report.ScannedPurchases),
		zap.Int("applied_settlements", report.AppliedSettlements),
		zap.Int("gaps", len(report.Gaps)))

	return report, nil
}
