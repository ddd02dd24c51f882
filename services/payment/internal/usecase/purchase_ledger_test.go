package usecase_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/wekeepgrowing/marketplace-backend/services/payment/internal/domain/model"
	"github.com/wekeepgrowing/marketplace-backend/services/payment/internal/domain/repository"
	"github.com/wekeepgrowing/marketplace-backend/services/payment/internal/usecase"
)

// flakyWalletRepository fails ApplyEarning while broken is set
type flakyWalletRepository struct {
	repository.WalletRepository
	broken bool
}

func (r *flakyWalletRepository) ApplyEarning(ctx context.Context, settlement *model.SaleSettlement) (*model.Wallet, bool, error) {
	if r.broken {
		return nil, false, errors.New("wallet store unavailable")
	}
	return r.WalletRepository.ApplyEarning(ctx, settlement)
}

// succeededAttempt stores a succeeded paid attempt without granting it
func succeededAttempt(t *testing.T, f *fixture, authorID *uuid.UUID, item model.ItemRef, amount string) *model.PaymentAttempt {
	t.Helper()
	now := time.Now()
	paymentID := "ch_" + uuid.NewString()[:8]
	attempt := &model.PaymentAttempt{
		ID:               uuid.New(),
		BuyerID:          uuid.New(),
		Item:             item,
		AuthorID:         authorID,
		Amount:           money(amount),
		Currency:         "INR",
		Status:           model.AttemptStatusSucceeded,
		Receipt:          "R" + uuid.NewString()[:8],
		GatewayPaymentID: &paymentID,
		IdempotencyKey:   uuid.New(),
		ResolvedAt:       &now,
	}
	require.NoError(t, f.repos.Attempt.Create(context.Background(), attempt))
	return attempt
}

func TestPurchaseLedger_Grant(t *testing.T) {
	ctx := context.Background()

	t.Run("grant is idempotent per attempt", func(t *testing.T) {
		f := newFixture(t)
		authorID := uuid.New()
		attempt := succeededAttempt(t, f, &authorID, book("b-1"), "200")

		first, err := f.ledger.Grant(ctx, attempt)
		require.NoError(t, err)
		assert.True(t, first.Created)
		require.NotNil(t, first.Settlement)
		assert.True(t, first.Settlement.AuthorEarnings.Equal(money("150")))

		second, err := f.ledger.Grant(ctx, attempt)
		require.NoError(t, err)
		assert.False(t, second.Created)
		assert.Equal(t, first.Purchase.ID, second.Purchase.ID)

		wallet, err := f.wallets.GetWallet(ctx, authorID)
		require.NoError(t, err)
		assert.True(t, wallet.Balance.Equal(money("150")))
		assert.Equal(t, 1, f.notifier.count("purchase_granted"))
	})

	t.Run("rejects attempts that did not succeed", func(t *testing.T) {
		f := newFixture(t)
		attempt := succeededAttempt(t, f, nil, book("b-2"), "10")
		attempt.Status = model.AttemptStatusFailed

		_, err := f.ledger.Grant(ctx, attempt)
		assert.Error(t, err)
	})

	t.Run("settlement failure keeps the purchase", func(t *testing.T) {
		f := newFixture(t)
		authorID := uuid.New()
		attempt := succeededAttempt(t, f, &authorID, book("b-3"), "1000")

		flaky := &flakyWalletRepository{WalletRepository: f.repos.Wallet, broken: true}
		ledger := usecase.NewPurchaseLedger(f.repos.Transactor, f.repos.Attempt, f.repos.Ledger, flaky,
			f.notifier, defaultRates, 50, zap.NewNop())

		result, err := ledger.Grant(ctx, attempt)
		require.NoError(t, err)
		assert.True(t, result.Created)
		assert.Nil(t, result.Settlement)
		require.NotNil(t, result.Gap)
		assert.Equal(t, result.Purchase.ID, *result.Gap.PurchaseRecordID)

		// The settlement insert was rolled back with the wallet update
		settlement, err := f.repos.Ledger.GetSettlementByPurchase(ctx, result.Purchase.ID)
		require.NoError(t, err)
		assert.Nil(t, settlement)

		_, err = f.repos.Ledger.GetPurchaseByAttempt(ctx, attempt.ID)
		require.NoError(t, err)

		// Reconcile closes the gap once the wallet store is back
		flaky.broken = false
		report, err := ledger.Reconcile(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, report.ScannedPurchases)
		assert.Equal(t, 1, report.AppliedSettlements)
		assert.Empty(t, report.Gaps)

		wallet, err := f.wallets.GetWallet(ctx, authorID)
		require.NoError(t, err)
		assert.True(t, wallet.Balance.Equal(money("750")))
	})
}

func TestPurchaseLedger_Reconcile(t *testing.T) {
	ctx := context.Background()

	t.Run("grants succeeded attempts without purchase", func(t *testing.T) {
		f := newFixture(t)
		authorID := uuid.New()
		succeededAttempt(t, f, &authorID, book("b-10"), "1000")
		succeededAttempt(t, f, &authorID, book("b-11"), "100")
		succeededAttempt(t, f, nil, model.ItemRef{Kind: model.ItemKindSubscriptionPlan, ID: "yearly"}, "999")

		report, err := f.ledger.Reconcile(ctx)
		require.NoError(t, err)
		assert.Equal(t, 3, report.ScannedAttempts)
		assert.Equal(t, 3, report.GrantedPurchases)
		assert.Equal(t, 2, report.AppliedSettlements)
		assert.Empty(t, report.Gaps)

		wallet, err := f.wallets.GetWallet(ctx, authorID)
		require.NoError(t, err)
		assert.True(t, wallet.Balance.Equal(money("825")))
		assert.True(t, wallet.TotalEarnings.Equal(money("825")))
	})

	t.Run("repeated passes change nothing", func(t *testing.T) {
		f := newFixture(t)
		authorID := uuid.New()
		succeededAttempt(t, f, &authorID, book("b-12"), "1000")

		_, err := f.ledger.Reconcile(ctx)
		require.NoError(t, err)

		for i := 0; i < 3; i++ {
			report, err := f.ledger.Reconcile(ctx)
			require.NoError(t, err)
			assert.Zero(t, report.ScannedAttempts)
			assert.Zero(t, report.ScannedPurchases)
		}

		wallet, err := f.wallets.GetWallet(ctx, authorID)
		require.NoError(t, err)
		assert.True(t, wallet.Balance.Equal(money("750")))
	})

	t.Run("settles purchases missing their settlement", func(t *testing.T) {
		f := newFixture(t)
		authorID := uuid.New()

		purchase, created, err := f.repos.Ledger.CreatePurchase(ctx, &model.PurchaseRecord{
			BuyerID:          uuid.New(),
			Item:             book("b-13"),
			AuthorID:         &authorID,
			PaymentAttemptID: uuid.New(),
			Amount:           money("333.33"),
		})
		require.NoError(t, err)
		require.True(t, created)

		report, err := f.ledger.Reconcile(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, report.AppliedSettlements)

		settlement, err := f.repos.Ledger.GetSettlementByPurchase(ctx, purchase.ID)
		require.NoError(t, err)
		require.NotNil(t, settlement)
		assert.True(t, settlement.GSTAmount.Add(settlement.PlatformCommission).Add(settlement.AuthorEarnings).Equal(money("333.33")))

		wallet, err := f.wallets.GetWallet(ctx, authorID)
		require.NoError(t, err)
		assert.True(t, wallet.Balance.Equal(settlement.AuthorEarnings))
	})

	t.Run("free purchases need no settlement", func(t *testing.T) {
		f := newFixture(t)
		authorID := uuid.New()

		_, _, err := f.repos.Ledger.CreatePurchase(ctx, &model.PurchaseRecord{
			BuyerID:          uuid.New(),
			Item:             book("b-14"),
			AuthorID:         &authorID,
			PaymentAttemptID: uuid.New(),
			Amount:           money("0"),
		})
		require.NoError(t, err)

		report, err := f.ledger.Reconcile(ctx)
		require.NoError(t, err)
		assert.Zero(t, report.ScannedPurchases)
	})
}

type countingReconciler struct {
	calls chan struct{}
}

func (r *countingReconciler) Reconcile(ctx context.Context) (*usecase.ReconcileReport, error) {
	select {
	case r.calls <- struct{}{}:
	default:
	}
	return &usecase.ReconcileReport{}, nil
}

func TestReconcileWorker(t *testing.T) {
	reconciler := &countingReconciler{calls: make(chan struct{}, 10)}
	worker := usecase.NewReconcileWorker(reconciler, 10*time.Millisecond, zap.NewNop())

	worker.Start(context.Background())
	defer worker.Stop()

	for i := 0; i < 2; i++ {
		select {
		case <-reconciler.calls:
		case <-time.After(2 * time.Second):
			t.Fatal("reconcile pass did not run")
		}
	}

	worker.Stop()
	worker.Stop()
}
