package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/wekeepgrowing/marketplace-backend/services/payment/internal/adapter/catalog"
	"github.com/wekeepgrowing/marketplace-backend/services/payment/internal/adapter/notifier"
	"github.com/wekeepgrowing/marketplace-backend/services/payment/internal/config"
	domainErrors "github.com/wekeepgrowing/marketplace-backend/services/payment/internal/domain/errors"
	"github.com/wekeepgrowing/marketplace-backend/services/payment/internal/domain/provider"
	"github.com/wekeepgrowing/marketplace-backend/services/payment/internal/middleware/auth"
	"github.com/wekeepgrowing/marketplace-backend/services/payment/internal/testutil"
	"github.com/wekeepgrowing/marketplace-backend/services/payment/internal/usecase"
)

const (
	testJWTSecret = "test-secret"
	testSignature = "t=1,v1=valid"
	authorIDText  = "6f1c2a7e-3b4d-4c5e-9f60-718293a4b5c6"
)

const testCatalog = `
items:
  - kind: book
    id: b-1
    title: The Long Road
    price: "1000.00"
    author_id: ` + authorIDText + `
  - kind: audio_book
    id: ab-1
    title: Free Sample
    free: true
    author_id: ` + authorIDText + `
`

// fakeGateway issues deterministic orders and accepts JSON webhooks signed
// with testSignature
type fakeGateway struct {
	orderErr  error
	cancelErr error
	cancelled []string
}

type fakeWebhook struct {
	EventID   string    `json:"event_id"`
	AttemptID uuid.UUID `json:"attempt_id"`
	PaymentID string    `json:"payment_id"`
	OrderID   string    `json:"order_id"`
}

func (g *fakeGateway) CreateOrder(_ context.Context, req *provider.CreateOrderRequest) (*provider.CreateOrderResponse, error) {
	if g.orderErr != nil {
		return nil, g.orderErr
	}
	return &provider.CreateOrderResponse{
		OrderID:      "order_" + req.AttemptID.String(),
		ClientSecret: "secret_" + req.Receipt,
	}, nil
}

func (g *fakeGateway) ParseWebhook(_ context.Context, payload []byte, signature string) (*provider.WebhookResult, error) {
	if signature != testSignature {
		return nil, domainErrors.ErrInvalidWebhookSignature
	}
	var hook fakeWebhook
	if err := json.Unmarshal(payload, &hook); err != nil {
		return nil, err
	}
	outcome := provider.Succeeded(hook.PaymentID, hook.OrderID)
	return &provider.WebhookResult{
		EventID:   hook.EventID,
		EventType: "payment.succeeded",
		AttemptID: &hook.AttemptID,
		Outcome:   &outcome,
		Raw:       payload,
	}, nil
}

func (g *fakeGateway) CancelOrder(_ context.Context, orderID string) error {
	if g.cancelErr != nil {
		return g.cancelErr
	}
	g.cancelled = append(g.cancelled, orderID)
	return nil
}

func (g *fakeGateway) GetProviderName() string {
	return "fake"
}

type testServer struct {
	handler http.Handler
	gateway *fakeGateway
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	logger := zap.NewNop()
	_, repos := testutil.NewTestRepositories(t)

	items := catalog.NewYAMLCatalog(logger)
	require.NoError(t, items.Load([]byte(testCatalog)))

	gateway := &fakeGateway{}
	notify := notifier.NewLogNotifier(logger)
	rates := usecase.SplitRates{
		GSTRate:        decimal.RequireFromString("0.05"),
		CommissionRate: decimal.RequireFromString("0.20"),
	}

	ledger := usecase.NewPurchaseLedger(repos.Transactor, repos.Attempt, repos.Ledger, repos.Wallet, notify, rates, 50, logger)
	sessions := usecase.NewPaymentSessionService(repos.Attempt, repos.GatewayEvents, items, gateway, ledger,
		usecase.PaymentSessionConfig{Currency: "INR", LocalTimeout: 10 * time.Minute}, logger)

	cfg := &config.Config{}
	cfg.Service.Name = "payment"
	cfg.JWT.Secret = testJWTSecret

	server := NewServer(cfg, logger, Services{
		Sessions:    sessions,
		Ledger:      ledger,
		Wallets:     usecase.NewWalletService(repos.Wallet, logger),
		Withdrawals: usecase.NewWithdrawalService(repos.Transactor, repos.Withdrawal, repos.Wallet, notify, decimal.Zero, logger),
	})

	return &testServer{handler: server.Handler(), gateway: gateway}
}

func token(t *testing.T, userID uuid.UUID, role string) string {
	t.Helper()
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  userID.String(),
		"role": role,
		"exp":  time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte(testJWTSecret))
	require.NoError(t, err)
	return signed
}

func (s *testServer) do(t *testing.T, method, path, bearer string, body interface{}, headers ...string) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()

	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case []byte:
		reader = bytes.NewReader(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}

	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)

	var decoded map[string]interface{}
	if rec.Body.Len() > 0 {
		_ = json.Unmarshal(rec.Body.Bytes(), &decoded)
	}
	return rec, decoded
}

func TestServer_Health(t *testing.T) {
	s := newTestServer(t)

	rec, body := s.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "healthy", body["status"])
}

func TestServer_PurchaseFlow(t *testing.T) {
	s := newTestServer(t)
	buyer := uuid.New()
	author := uuid.MustParse(authorIDText)
	buyerToken := token(t, buyer, auth.RoleBuyer)

	rec, _ := s.do(t, http.MethodPost, "/api/v1/purchases", "", map[string]string{"item_kind": "book", "item_id": "b-1"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec, body := s.do(t, http.MethodPost, "/api/v1/purchases", buyerToken, map[string]string{"item_kind": "book", "item_id": "b-1"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	checkout := body["checkout"].(map[string]interface{})
	attemptID := checkout["attempt_id"].(string)
	orderID := checkout["order_id"].(string)
	assert.Equal(t, "1000.00", checkout["amount"])
	assert.Equal(t, "INR", checkout["currency"])

	rec, _ = s.do(t, http.MethodPost, "/api/v1/purchases/"+attemptID+"/opened", buyerToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec, body = s.do(t, http.MethodGet, "/api/v1/purchases/"+attemptID, buyerToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "awaiting_gateway", body["label"])

	rec, body = s.do(t, http.MethodGet, "/api/v1/purchases/"+attemptID, token(t, uuid.New(), auth.RoleBuyer), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "NOT_FOUND", body["code"])

	hook := fakeWebhook{EventID: "evt_1", AttemptID: uuid.MustParse(attemptID), PaymentID: "pay_1", OrderID: orderID}
	payload, err := json.Marshal(hook)
	require.NoError(t, err)

	rec, _ = s.do(t, http.MethodPost, "/api/v1/webhooks/stripe", "", payload)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, body = s.do(t, http.MethodPost, "/api/v1/webhooks/stripe", "", payload, "Stripe-Signature", "t=1,v1=forged")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "INVALID_ARGUMENT", body["code"])

	for i := 0; i < 2; i++ {
		rec, _ = s.do(t, http.MethodPost, "/api/v1/webhooks/stripe", "", payload, "Stripe-Signature", testSignature)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	}

	rec, body = s.do(t, http.MethodGet, "/api/v1/purchases/"+attemptID, buyerToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "succeeded", body["label"])

	rec, body = s.do(t, http.MethodGet, "/api/v1/wallet", token(t, author, auth.RoleAuthor), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "750.00", body["balance"])
	assert.Equal(t, "750.00", body["total_earnings"])

	rec, body = s.do(t, http.MethodGet, "/api/v1/wallet/entries", token(t, author, auth.RoleAuthor), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, body["entries"], 1)

	rec, _ = s.do(t, http.MethodGet, "/api/v1/wallet", buyerToken, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestServer_PurchaseErrors(t *testing.T) {
	s := newTestServer(t)
	buyerToken := token(t, uuid.New(), auth.RoleBuyer)

	tests := []struct {
		name     string
		body     map[string]string
		orderErr error
		status   int
		code     string
	}{
		{"unknown item", map[string]string{"item_kind": "book", "item_id": "missing"}, nil, http.StatusNotFound, "NOT_FOUND"},
		{"unknown kind", map[string]string{"item_kind": "video", "item_id": "b-1"}, nil, http.StatusBadRequest, "INVALID_ARGUMENT"},
		{
			"gateway rejected", map[string]string{"item_kind": "book", "item_id": "b-1"},
			domainErrors.NewGatewayError(domainErrors.GatewayErrorBadRequest, "card declined", nil),
			http.StatusPaymentRequired, "PAYMENT_FAILED",
		},
		{
			"gateway unreachable", map[string]string{"item_kind": "book", "item_id": "b-1"},
			errors.New("dial tcp: timeout"),
			http.StatusBadGateway, "GATEWAY_UNAVAILABLE",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s.gateway.orderErr = tt.orderErr
			rec, body := s.do(t, http.MethodPost, "/api/v1/purchases", buyerToken, tt.body)
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
			assert.Equal(t, tt.code, body["code"])
		})
	}
}

func TestServer_FreePurchaseAndClientOutcome(t *testing.T) {
	s := newTestServer(t)
	buyerToken := token(t, uuid.New(), auth.RoleBuyer)

	rec, body := s.do(t, http.MethodPost, "/api/v1/purchases", buyerToken, map[string]string{"item_kind": "audio_book", "item_id": "ab-1"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Nil(t, body["checkout"])
	attempt := body["attempt"].(map[string]interface{})
	assert.Equal(t, "succeeded", attempt["status"])

	rec, body = s.do(t, http.MethodPost, "/api/v1/purchases", buyerToken, map[string]string{"item_kind": "book", "item_id": "b-1"})
	require.Equal(t, http.StatusCreated, rec.Code)
	attemptID := body["attempt"].(map[string]interface{})["id"].(string)

	rec, _ = s.do(t, http.MethodPost, "/api/v1/purchases/"+attemptID+"/result", buyerToken, map[string]string{"outcome": "succeeded"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, body = s.do(t, http.MethodPost, "/api/v1/purchases/"+attemptID+"/result", buyerToken, map[string]string{"outcome": "cancelled"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, body["applied"])
	assert.Equal(t, []string{"order_" + attemptID}, s.gateway.cancelled)

	rec, body = s.do(t, http.MethodPost, "/api/v1/purchases/"+attemptID+"/result", buyerToken, map[string]string{"outcome": "failed", "code": "card_declined"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, false, body["applied"])
	assert.Equal(t, "cancelled", body["attempt"].(map[string]interface{})["status"])
}

func TestServer_ClientOutcomeWhilePaymentInFlight(t *testing.T) {
	s := newTestServer(t)
	buyerToken := token(t, uuid.New(), auth.RoleBuyer)
	s.gateway.cancelErr = fmt.Errorf("%w: processing", domainErrors.ErrOrderNotCancellable)

	rec, body := s.do(t, http.MethodPost, "/api/v1/purchases", buyerToken, map[string]string{"item_kind": "book", "item_id": "b-1"})
	require.Equal(t, http.StatusCreated, rec.Code)
	attemptID := body["attempt"].(map[string]interface{})["id"].(string)

	rec, body = s.do(t, http.MethodPost, "/api/v1/purchases/"+attemptID+"/result", buyerToken, map[string]string{"outcome": "cancelled"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, false, body["applied"])
	assert.Equal(t, "initiated", body["attempt"].(map[string]interface{})["status"])

	s.gateway.cancelErr = domainErrors.NewGatewayError(domainErrors.GatewayErrorNetwork, "timeout", nil)
	rec, _ = s.do(t, http.MethodPost, "/api/v1/purchases/"+attemptID+"/result", buyerToken, map[string]string{"outcome": "cancelled"})
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestServer_WithdrawalReview(t *testing.T) {
	s := newTestServer(t)
	buyer := uuid.New()
	author := uuid.MustParse(authorIDText)
	authorToken := token(t, author, auth.RoleAuthor)
	adminToken := token(t, uuid.New(), auth.RoleAdmin)

	// Fund the wallet with one sale: 750.00 author earnings
	buyerToken := token(t, buyer, auth.RoleBuyer)
	_, body := s.do(t, http.MethodPost, "/api/v1/purchases", buyerToken, map[string]string{"item_kind": "book", "item_id": "b-1"})
	checkout := body["checkout"].(map[string]interface{})
	payload, err := json.Marshal(fakeWebhook{
		EventID:   "evt_fund",
		AttemptID: uuid.MustParse(checkout["attempt_id"].(string)),
		PaymentID: "pay_fund",
		OrderID:   checkout["order_id"].(string),
	})
	require.NoError(t, err)
	rec, _ := s.do(t, http.MethodPost, "/api/v1/webhooks/stripe", "", payload, "Stripe-Signature", testSignature)
	require.Equal(t, http.StatusOK, rec.Code)

	upi := map[string]interface{}{
		"amount":         "300.00",
		"payment_method": "upi",
		"upi":            map[string]string{"upi_id": "author@okaxis"},
	}

	rec, _ = s.do(t, http.MethodPost, "/api/v1/withdrawals", buyerToken, upi)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec, body = s.do(t, http.MethodPost, "/api/v1/withdrawals", authorToken, map[string]interface{}{
		"amount":         "1000.00",
		"payment_method": "upi",
		"upi":            map[string]string{"upi_id": "author@okaxis"},
	})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "INSUFFICIENT_BALANCE", body["code"])

	rec, body = s.do(t, http.MethodPost, "/api/v1/withdrawals", authorToken, map[string]interface{}{
		"amount":         "abc",
		"payment_method": "upi",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "INVALID_ARGUMENT", body["code"])

	rec, body = s.do(t, http.MethodPost, "/api/v1/withdrawals", authorToken, upi)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	withdrawalID := body["id"].(string)
	assert.Equal(t, "pending", body["status"])

	rec, body = s.do(t, http.MethodGet, "/api/v1/wallet", authorToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "450.00", body["balance"])

	rec, body = s.do(t, http.MethodGet, "/api/v1/withdrawals?status=pending", authorToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, body["withdrawals"], 1)

	rec, _ = s.do(t, http.MethodPost, "/api/v1/admin/withdrawals/"+withdrawalID+"/approve", authorToken, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec, body = s.do(t, http.MethodGet, "/api/v1/admin/withdrawals/"+withdrawalID+"/payout", adminToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "author@okaxis", body["payment_details"].(map[string]interface{})["upi_id"])

	rec, _ = s.do(t, http.MethodPost, "/api/v1/admin/withdrawals/"+withdrawalID+"/complete", adminToken, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec, body = s.do(t, http.MethodPost, "/api/v1/admin/withdrawals/"+withdrawalID+"/approve", adminToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "approved", body["status"])

	rec, body = s.do(t, http.MethodPost, "/api/v1/admin/withdrawals/"+withdrawalID+"/approve", adminToken, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "FAILED_PRECONDITION", body["code"])

	rec, body = s.do(t, http.MethodPost, "/api/v1/admin/withdrawals/"+withdrawalID+"/complete", adminToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "completed", body["status"])

	rec, body = s.do(t, http.MethodGet, "/api/v1/wallet", authorToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "450.00", body["balance"])
	assert.Equal(t, "300.00", body["total_withdrawn"])

	rec, _ = s.do(t, http.MethodPost, "/api/v1/admin/withdrawals/"+uuid.NewString()+"/reject", adminToken, map[string]string{"reason": "duplicate"})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, body = s.do(t, http.MethodGet, "/api/v1/admin/withdrawals?author_id="+authorIDText, adminToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, body["withdrawals"], 1)

	rec, body = s.do(t, http.MethodPost, "/api/v1/admin/reconcile", adminToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 0, body["granted_purchases"])

	rec, body = s.do(t, http.MethodGet, "/api/v1/admin/incidents", adminToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, body["incidents"])
}
