package usecase_test

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainErrors "github.com/wekeepgrowing/marketplace-backend/services/payment/internal/domain/errors"
	"github.com/wekeepgrowing/marketplace-backend/services/payment/internal/domain/dto"
	"github.com/wekeepgrowing/marketplace-backend/services/payment/internal/domain/model"
	"github.com/wekeepgrowing/marketplace-backend/services/payment/internal/domain/provider"
	"github.com/wekeepgrowing/marketplace-backend/services/payment/internal/domain/repository"
	"github.com/wekeepgrowing/marketplace-backend/services/payment/internal/infrastructure/crypto"
	"github.com/wekeepgrowing/marketplace-backend/services/payment/internal/usecase"
)

func upiInput(authorID uuid.UUID, amount string) usecase.WithdrawalInput {
	return usecase.WithdrawalInput{
		AuthorID: authorID,
		Amount:   money(amount),
		Method:   model.PayoutMethodUPI,
		UPI:      &dto.UPIDetails{UPIID: "author.name@okbank"},
	}
}

func bankInput(authorID uuid.UUID, amount string) usecase.WithdrawalInput {
	return usecase.WithdrawalInput{
		AuthorID: authorID,
		Amount:   money(amount),
		Method:   model.PayoutMethodBank,
		Bank: &dto.BankDetails{
			AccountName:   "A. Author",
			AccountNumber: "123456789012",
			IFSC:          "HDFC0001234",
			BankName:      "HDFC Bank",
		},
	}
}

func TestWithdrawalService_Request(t *testing.T) {
	ctx := context.Background()

	t.Run("reserves the amount", func(t *testing.T) {
		f := newFixture(t)
		authorID := uuid.New()
		f.fundWallet(t, authorID, "750")

		request, err := f.withdrawals.Request(ctx, bankInput(authorID, "500"))
		require.NoError(t, err)
		assert.Equal(t, model.WithdrawalStatusPending, request.Status)
		assert.Equal(t, "HDFC0001234", request.PaymentDetails["ifsc"])

		wallet, err := f.wallets.GetWallet(ctx, authorID)
		require.NoError(t, err)
		assert.True(t, wallet.Balance.Equal(money("250")))
		assert.True(t, wallet.TotalWithdrawn.IsZero())
	})

	t.Run("insufficient balance creates no request", func(t *testing.T) {
		f := newFixture(t)
		authorID := uuid.New()
		f.fundWallet(t, authorID, "100")

		_, err := f.withdrawals.Request(ctx, upiInput(authorID, "100.01"))

		var insufficient *domainErrors.InsufficientBalanceError
		require.ErrorAs(t, err, &insufficient)
		assert.True(t, insufficient.Available.Equal(money("100")))

		list, err := f.withdrawals.List(ctx, repository.WithdrawalFilter{AuthorID: &authorID})
		require.NoError(t, err)
		assert.Empty(t, list.Withdrawals)

		wallet, err := f.wallets.GetWallet(ctx, authorID)
		require.NoError(t, err)
		assert.True(t, wallet.Balance.Equal(money("100")))
	})

	t.Run("validates payout details", func(t *testing.T) {
		f := newFixture(t)
		authorID := uuid.New()
		f.fundWallet(t, authorID, "100")

		badIFSC := bankInput(authorID, "10")
		badIFSC.Bank.IFSC = "HDFC1234"

		shortAccount := bankInput(authorID, "10")
		shortAccount.Bank.AccountNumber = "123"

		missingUPI := upiInput(authorID, "10")
		missingUPI.UPI = nil

		badUPI := upiInput(authorID, "10")
		badUPI.UPI.UPIID = "not-a-upi-id"

		unknownMethod := upiInput(authorID, "10")
		unknownMethod.Method = "cash"

		zeroAmount := upiInput(authorID, "0")
		fractionalPaise := upiInput(authorID, "10.005")

		tests := []struct {
			name  string
			input usecase.WithdrawalInput
			field string
		}{
			{"invalid ifsc", badIFSC, "ifsc"},
			{"short account number", shortAccount, "account_number"},
			{"missing upi details", missingUPI, "upi"},
			{"invalid upi id", badUPI, "upi_id"},
			{"unknown method", unknownMethod, "payment_method"},
			{"zero amount", zeroAmount, "amount"},
			{"fractional paise", fractionalPaise, "amount"},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				_, err := f.withdrawals.Request(ctx, tt.input)

				var validationErr *domainErrors.ValidationError
				require.ErrorAs(t, err, &validationErr)
				assert.Equal(t, tt.field, validationErr.Field)
			})
		}

		wallet, err := f.wallets.GetWallet(ctx, authorID)
		require.NoError(t, err)
		assert.True(t, wallet.Balance.Equal(money("100")))
	})

	t.Run("concurrent requests never overdraw", func(t *testing.T) {
		f := newFixture(t)
		authorID := uuid.New()
		f.fundWallet(t, authorID, "100")

		var wg sync.WaitGroup
		errs := make([]error, 2)
		for i := range errs {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				_, errs[i] = f.withdrawals.Request(ctx, upiInput(authorID, "60"))
			}(i)
		}
		wg.Wait()

		succeeded := 0
		for _, err := range errs {
			if err == nil {
				succeeded++
				continue
			}
			var insufficient *domainErrors.InsufficientBalanceError
			assert.ErrorAs(t, err, &insufficient)
		}
		assert.Equal(t, 1, succeeded)

		wallet, err := f.wallets.GetWallet(ctx, authorID)
		require.NoError(t, err)
		assert.True(t, wallet.Balance.Equal(money("40")))
	})

	t.Run("minimum withdrawal", func(t *testing.T) {
		f := newFixture(t)
		authorID := uuid.New()
		f.fundWallet(t, authorID, "1000")

		service := usecase.NewWithdrawalService(f.repos.Transactor, f.repos.Withdrawal, f.repos.Wallet,
			f.notifier, money("100"), zapNop())

		_, err := service.Request(ctx, upiInput(authorID, "99.99"))
		var validationErr *domainErrors.ValidationError
		assert.ErrorAs(t, err, &validationErr)

		_, err = service.Request(ctx, upiInput(authorID, "100"))
		assert.NoError(t, err)
	})
}

func TestWithdrawalService_Review(t *testing.T) {
	ctx := context.Background()

	t.Run("approve then complete", func(t *testing.T) {
		f := newFixture(t)
		authorID := uuid.New()
		f.fundWallet(t, authorID, "750")

		request, err := f.withdrawals.Request(ctx, upiInput(authorID, "500"))
		require.NoError(t, err)

		approved, err := f.withdrawals.Approve(ctx, request.ID)
		require.NoError(t, err)
		assert.Equal(t, model.WithdrawalStatusApproved, approved.Status)
		assert.Nil(t, approved.ResolvedAt)

		completed, err := f.withdrawals.Complete(ctx, request.ID)
		require.NoError(t, err)
		assert.Equal(t, model.WithdrawalStatusCompleted, completed.Status)
		assert.NotNil(t, completed.ResolvedAt)

		wallet, err := f.wallets.GetWallet(ctx, authorID)
		require.NoError(t, err)
		assert.True(t, wallet.Balance.Equal(money("250")))
		assert.True(t, wallet.TotalEarnings.Equal(money("750")))
		assert.True(t, wallet.TotalWithdrawn.Equal(money("500")))

		// Completed is final
		_, err = f.withdrawals.Complete(ctx, request.ID)
		assert.ErrorIs(t, err, domainErrors.ErrInvalidWithdrawalTransition)
		_, err = f.withdrawals.Reject(ctx, request.ID, "too late")
		assert.ErrorIs(t, err, domainErrors.ErrInvalidWithdrawalTransition)

		wallet, err = f.wallets.GetWallet(ctx, authorID)
		require.NoError(t, err)
		assert.True(t, wallet.TotalWithdrawn.Equal(money("500")))

		assert.Equal(t, 1, f.notifier.count(provider.EventWithdrawalApproved))
		assert.Equal(t, 1, f.notifier.count(provider.EventWithdrawalCompleted))
	})

	t.Run("reject pending releases the reservation", func(t *testing.T) {
		f := newFixture(t)
		authorID := uuid.New()
		f.fundWallet(t, authorID, "750")

		request, err := f.withdrawals.Request(ctx, upiInput(authorID, "500"))
		require.NoError(t, err)

		rejected, err := f.withdrawals.Reject(ctx, request.ID, "KYC incomplete")
		require.NoError(t, err)
		assert.Equal(t, model.WithdrawalStatusRejected, rejected.Status)
		assert.Equal(t, "KYC incomplete", *rejected.RejectionReason)

		wallet, err := f.wallets.GetWallet(ctx, authorID)
		require.NoError(t, err)
		assert.True(t, wallet.Balance.Equal(money("750")))
		assert.True(t, wallet.TotalWithdrawn.IsZero())

		// A second rejection must not release twice
		_, err = f.withdrawals.Reject(ctx, request.ID, "again")
		assert.ErrorIs(t, err, domainErrors.ErrInvalidWithdrawalTransition)

		wallet, err = f.wallets.GetWallet(ctx, authorID)
		require.NoError(t, err)
		assert.True(t, wallet.Balance.Equal(money("750")))
		assert.Equal(t, 1, f.notifier.count(provider.EventWithdrawalRejected))
	})

	t.Run("reject approved releases the reservation", func(t *testing.T) {
		f := newFixture(t)
		authorID := uuid.New()
		f.fundWallet(t, authorID, "300")

		request, err := f.withdrawals.Request(ctx, bankInput(authorID, "300"))
		require.NoError(t, err)
		_, err = f.withdrawals.Approve(ctx, request.ID)
		require.NoError(t, err)

		_, err = f.withdrawals.Reject(ctx, request.ID, "bank account closed")
		require.NoError(t, err)

		wallet, err := f.wallets.GetWallet(ctx, authorID)
		require.NoError(t, err)
		assert.True(t, wallet.Balance.Equal(money("300")))
	})

	t.Run("complete requires approval", func(t *testing.T) {
		f := newFixture(t)
		authorID := uuid.New()
		f.fundWallet(t, authorID, "300")

		request, err := f.withdrawals.Request(ctx, upiInput(authorID, "100"))
		require.NoError(t, err)

		_, err = f.withdrawals.Complete(ctx, request.ID)
		assert.ErrorIs(t, err, domainErrors.ErrInvalidWithdrawalTransition)

		stored, err := f.withdrawals.Get(ctx, request.ID)
		require.NoError(t, err)
		assert.Equal(t, model.WithdrawalStatusPending, stored.Status)
	})

	t.Run("reject requires a reason", func(t *testing.T) {
		f := newFixture(t)

		_, err := f.withdrawals.Reject(ctx, uuid.New(), "  ")
		var validationErr *domainErrors.ValidationError
		assert.ErrorAs(t, err, &validationErr)
	})

	t.Run("unknown request", func(t *testing.T) {
		f := newFixture(t)

		_, err := f.withdrawals.Approve(ctx, uuid.New())
		assert.ErrorIs(t, err, domainErrors.ErrWithdrawalNotFound)
	})
}

func TestWithdrawalService_List(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	authorID, otherID := uuid.New(), uuid.New()
	f.fundWallet(t, authorID, "1000")
	f.fundWallet(t, otherID, "1000")

	for i := 0; i < 3; i++ {
		_, err := f.withdrawals.Request(ctx, upiInput(authorID, "10"))
		require.NoError(t, err)
	}
	other, err := f.withdrawals.Request(ctx, upiInput(otherID, "10"))
	require.NoError(t, err)
	_, err = f.withdrawals.Approve(ctx, other.ID)
	require.NoError(t, err)

	list, err := f.withdrawals.List(ctx, repository.WithdrawalFilter{AuthorID: &authorID, Limit: 2})
	require.NoError(t, err)
	assert.Len(t, list.Withdrawals, 2)
	assert.Equal(t, int64(3), list.Pagination.Total)
	assert.True(t, list.Pagination.HasMore)

	approved := model.WithdrawalStatusApproved
	list, err = f.withdrawals.List(ctx, repository.WithdrawalFilter{Status: &approved})
	require.NoError(t, err)
	require.Len(t, list.Withdrawals, 1)
	assert.Equal(t, other.ID, list.Withdrawals[0].ID)
}

func TestWithdrawalService_PayoutEncryption(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	enc, err := crypto.NewAESEncryptionService("000102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f")
	require.NoError(t, err)
	service := usecase.NewWithdrawalService(f.repos.Transactor, f.repos.Withdrawal, f.repos.Wallet,
		f.notifier, decimal.Zero, zapNop(), usecase.WithPayoutEncryption(enc))

	authorID := uuid.New()
	f.fundWallet(t, authorID, "750")

	request, err := service.Request(ctx, bankInput(authorID, "500"))
	require.NoError(t, err)

	stored, err := f.withdrawals.Get(ctx, request.ID)
	require.NoError(t, err)
	assert.NotContains(t, stored.PaymentDetails, "account_number")
	assert.Equal(t, "9012", stored.PaymentDetails["account_number_last4"])
	assert.Equal(t, "HDFC0001234", stored.PaymentDetails["ifsc"])

	_, details, err := service.PayoutDetails(ctx, request.ID)
	require.NoError(t, err)
	assert.Equal(t, "123456789012", details["account_number"])

	// Without the key the sealed number cannot be revealed
	_, _, err = f.withdrawals.PayoutDetails(ctx, request.ID)
	assert.Error(t, err)

	upi, err := service.Request(ctx, upiInput(authorID, "100"))
	require.NoError(t, err)
	_, details, err = f.withdrawals.PayoutDetails(ctx, upi.ID)
	require.NoError(t, err)
	assert.Equal(t, "author.name@okbank", details["upi_id"])
}
