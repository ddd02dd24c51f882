package usecase_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/wekeepgrowing/marketplace-backend/services/payment/internal/domain/model"
	"github.com/wekeepgrowing/marketplace-backend/services/payment/internal/domain/provider"
	"github.com/wekeepgrowing/marketplace-backend/services/payment/internal/infrastructure/database"
	"github.com/wekeepgrowing/marketplace-backend/services/payment/internal/testutil"
	"github.com/wekeepgrowing/marketplace-backend/services/payment/internal/usecase"
)

// MockCatalog is a mock implementation of Catalog
type MockCatalog struct {
	mock.Mock
}

func (m *MockCatalog) PriceOf(ctx context.Context, item model.ItemRef) (*provider.ItemPrice, error) {
	args := m.Called(ctx, item)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*provider.ItemPrice), args.Error(1)
}

// MockGateway is a mock implementation of PaymentGateway
type MockGateway struct {
	mock.Mock
}

func (m *MockGateway) CreateOrder(ctx context.Context, req *provider.CreateOrderRequest) (*provider.CreateOrderResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*provider.CreateOrderResponse), args.Error(1)
}

func (m *MockGateway) ParseWebhook(ctx context.Context, payload []byte, signature string) (*provider.WebhookResult, error) {
	args := m.Called(ctx, payload, signature)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*provider.WebhookResult), args.Error(1)
}

func (m *MockGateway) CancelOrder(ctx context.Context, orderID string) error {
	args := m.Called(ctx, orderID)
	return args.Error(0)
}

func (m *MockGateway) GetProviderName() string {
	return "mock"
}

// recordingNotifier keeps every notification for assertions
type recordingNotifier struct {
	mu     sync.Mutex
	events []provider.NotificationEvent
}

func (n *recordingNotifier) Notify(_ context.Context, event provider.NotificationEvent, _ map[string]interface{}) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, event)
}

func (n *recordingNotifier) count(event provider.NotificationEvent) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	c := 0
	for _, e := range n.events {
		if e == event {
			c++
		}
	}
	return c
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

var defaultRates = usecase.SplitRates{
	GSTRate:        decimal.RequireFromString("0.05"),
	CommissionRate: decimal.RequireFromString("0.20"),
}

type fixture struct {
	repos       *database.Repositories
	catalog     *MockCatalog
	gateway     *MockGateway
	notifier    *recordingNotifier
	clock       *fakeClock
	ledger      *usecase.PurchaseLedger
	sessions    *usecase.PaymentSessionService
	wallets     *usecase.WalletService
	withdrawals *usecase.WithdrawalService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	logger := zap.NewNop()
	_, repos := testutil.NewTestRepositories(t)

	f := &fixture{
		repos:    repos,
		catalog:  new(MockCatalog),
		gateway:  new(MockGateway),
		notifier: &recordingNotifier{},
		clock:    &fakeClock{now: time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)},
	}

	f.ledger = usecase.NewPurchaseLedger(repos.Transactor, repos.Attempt, repos.Ledger, repos.Wallet,
		f.notifier, defaultRates, 50, logger)
	f.sessions = usecase.NewPaymentSessionService(repos.Attempt, repos.GatewayEvents, f.catalog, f.gateway, f.ledger,
		usecase.PaymentSessionConfig{
			Currency:          "INR",
			LocalTimeout:      10 * time.Minute,
			FreePaymentMarker: "FREE",
			Now:               f.clock.Now,
		}, logger)
	f.wallets = usecase.NewWalletService(repos.Wallet, logger)
	f.withdrawals = usecase.NewWithdrawalService(repos.Transactor, repos.Withdrawal, repos.Wallet,
		f.notifier, decimal.Zero, logger)

	return f
}

// fundWallet credits amount to the author's wallet through a settlement
func (f *fixture) fundWallet(t *testing.T, authorID uuid.UUID, amount string) {
	t.Helper()
	_, applied, err := f.repos.Wallet.ApplyEarning(context.Background(), &model.SaleSettlement{
		ID:               uuid.New(),
		PurchaseRecordID: uuid.New(),
		AuthorEarnings:   decimal.RequireFromString(amount),
		AuthorID:         authorID,
	})
	require.NoError(t, err)
	require.True(t, applied)
}

func book(id string) model.ItemRef {
	return model.ItemRef{Kind: model.ItemKindBook, ID: id}
}

func money(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}
