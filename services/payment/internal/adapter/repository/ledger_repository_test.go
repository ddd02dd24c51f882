package repository_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainErrors "github.com/wekeepgrowing/marketplace-backend/services/payment/internal/domain/errors"
	"github.com/wekeepgrowing/marketplace-backend/services/payment/internal/domain/model"
	"github.com/wekeepgrowing/marketplace-backend/services/payment/internal/testutil"
)

func TestLedgerRepository_CreatePurchase(t *testing.T) {
	ctx := context.Background()
	_, repos := testutil.NewTestRepositories(t)
	attemptID := uuid.New()

	purchase := func() *model.PurchaseRecord {
		return &model.PurchaseRecord{
			BuyerID:          uuid.New(),
			Item:             model.ItemRef{Kind: model.ItemKindAudioBook, ID: "ab-1"},
			PaymentAttemptID: attemptID,
			Amount:           decimal.NewFromInt(250),
		}
	}

	first, created, err := repos.Ledger.CreatePurchase(ctx, purchase())
	require.NoError(t, err)
	assert.True(t, created)

	second, created, err := repos.Ledger.CreatePurchase(ctx, purchase())
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, second.ID)

	stored, err := repos.Ledger.GetPurchaseByAttempt(ctx, attemptID)
	require.NoError(t, err)
	assert.Equal(t, first.ID, stored.ID)
	assert.Equal(t, model.ItemKindAudioBook, stored.Item.Kind)

	_, err = repos.Ledger.GetPurchaseByAttempt(ctx, uuid.New())
	assert.ErrorIs(t, err, domainErrors.ErrPurchaseNotFound)
}

func TestLedgerRepository_Settlements(t *testing.T) {
	ctx := context.Background()
	_, repos := testutil.NewTestRepositories(t)
	authorID := uuid.New()

	settled, _, err := repos.Ledger.CreatePurchase(ctx, &model.PurchaseRecord{
		BuyerID: uuid.New(), Item: model.ItemRef{Kind: model.ItemKindBook, ID: "b-1"},
		AuthorID: &authorID, PaymentAttemptID: uuid.New(), Amount: decimal.NewFromInt(100),
	})
	require.NoError(t, err)
	unsettled, _, err := repos.Ledger.CreatePurchase(ctx, &model.PurchaseRecord{
		BuyerID: uuid.New(), Item: model.ItemRef{Kind: model.ItemKindBook, ID: "b-2"},
		AuthorID: &authorID, PaymentAttemptID: uuid.New(), Amount: decimal.NewFromInt(100),
	})
	require.NoError(t, err)
	// Never need a settlement
	_, _, err = repos.Ledger.CreatePurchase(ctx, &model.PurchaseRecord{
		BuyerID: uuid.New(), Item: model.ItemRef{Kind: model.ItemKindSubscriptionPlan, ID: "monthly"},
		PaymentAttemptID: uuid.New(), Amount: decimal.NewFromInt(100),
	})
	require.NoError(t, err)
	_, _, err = repos.Ledger.CreatePurchase(ctx, &model.PurchaseRecord{
		BuyerID: uuid.New(), Item: model.ItemRef{Kind: model.ItemKindBook, ID: "free"},
		AuthorID: &authorID, PaymentAttemptID: uuid.New(), Amount: decimal.Zero,
	})
	require.NoError(t, err)

	settlement := &model.SaleSettlement{
		PurchaseRecordID:   settled.ID,
		GrossAmount:        decimal.NewFromInt(100),
		GSTAmount:          decimal.NewFromInt(5),
		PlatformCommission: decimal.NewFromInt(20),
		AuthorEarnings:     decimal.NewFromInt(75),
		AuthorID:           authorID,
	}
	first, created, err := repos.Ledger.CreateSettlement(ctx, settlement)
	require.NoError(t, err)
	assert.True(t, created)

	duplicate := *settlement
	duplicate.ID = uuid.Nil
	again, created, err := repos.Ledger.CreateSettlement(ctx, &duplicate)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, again.ID)

	missing, err := repos.Ledger.ListPurchasesWithoutSettlement(ctx, 10)
	require.NoError(t, err)
	require.Len(t, missing, 1)
	assert.Equal(t, unsettled.ID, missing[0].ID)

	none, err := repos.Ledger.GetSettlementByPurchase(ctx, unsettled.ID)
	require.NoError(t, err)
	assert.Nil(t, none)
}

func TestPaymentAttemptRepository(t *testing.T) {
	ctx := context.Background()
	_, repos := testutil.NewTestRepositories(t)
	orderID := "pi_123"

	attempt := &model.PaymentAttempt{
		BuyerID:        uuid.New(),
		Item:           model.ItemRef{Kind: model.ItemKindBook, ID: "b-1"},
		Amount:         decimal.NewFromInt(100),
		Currency:       "INR",
		Status:         model.AttemptStatusInitiated,
		Receipt:        "R1",
		GatewayOrderID: &orderID,
		IdempotencyKey: uuid.New(),
	}
	require.NoError(t, repos.Attempt.Create(ctx, attempt))

	byOrder, err := repos.Attempt.GetByGatewayOrderID(ctx, orderID)
	require.NoError(t, err)
	assert.Equal(t, attempt.ID, byOrder.ID)

	t.Run("unchanged mutation is not saved", func(t *testing.T) {
		_, changed, err := repos.Attempt.Mutate(ctx, attempt.ID, func(a *model.PaymentAttempt) (bool, error) {
			a.Status = model.AttemptStatusFailed
			return false, nil
		})
		require.NoError(t, err)
		assert.False(t, changed)

		stored, err := repos.Attempt.GetByID(ctx, attempt.ID)
		require.NoError(t, err)
		assert.Equal(t, model.AttemptStatusInitiated, stored.Status)
	})

	t.Run("succeeded attempts without purchase", func(t *testing.T) {
		now := time.Now()
		_, _, err := repos.Attempt.Mutate(ctx, attempt.ID, func(a *model.PaymentAttempt) (bool, error) {
			a.Status = model.AttemptStatusSucceeded
			a.ResolvedAt = &now
			return true, nil
		})
		require.NoError(t, err)

		ungranted, err := repos.Attempt.ListSucceededWithoutPurchase(ctx, 10)
		require.NoError(t, err)
		require.Len(t, ungranted, 1)

		_, _, err = repos.Ledger.CreatePurchase(ctx, &model.PurchaseRecord{
			BuyerID: attempt.BuyerID, Item: attempt.Item, PaymentAttemptID: attempt.ID, Amount: attempt.Amount,
		})
		require.NoError(t, err)

		ungranted, err = repos.Attempt.ListSucceededWithoutPurchase(ctx, 10)
		require.NoError(t, err)
		assert.Empty(t, ungranted)
	})

	t.Run("duplicate idempotency key", func(t *testing.T) {
		dup := *attempt
		dup.ID = uuid.New()
		assert.Error(t, repos.Attempt.Create(ctx, &dup))
	})

	_, err = repos.Attempt.GetByID(ctx, uuid.New())
	assert.ErrorIs(t, err, domainErrors.ErrAttemptNotFound)
}

func TestGatewayEventRepository(t *testing.T) {
	ctx := context.Background()
	_, repos := testutil.NewTestRepositories(t)

	event := &model.GatewayEvent{Provider: "stripe", ProviderEventID: "evt_1", EventType: "payment_intent.succeeded", Payload: []byte(`{}`)}
	_, created, err := repos.GatewayEvents.Record(ctx, event)
	require.NoError(t, err)
	assert.True(t, created)

	require.NoError(t, repos.GatewayEvents.MarkProcessed(ctx, "evt_1"))

	existing, created, err := repos.GatewayEvents.Record(ctx, &model.GatewayEvent{Provider: "stripe", ProviderEventID: "evt_1", EventType: "payment_intent.succeeded"})
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, model.GatewayEventStatusProcessed, existing.Status)
	assert.Equal(t, 1, existing.ProcessingAttempts)
}
