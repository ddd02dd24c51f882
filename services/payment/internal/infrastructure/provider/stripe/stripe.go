package stripe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/paymentintent"
	"github.com/stripe/stripe-go/v79/webhook"
	domainErrors "github.com/wekeepgrowing/marketplace-backend/services/payment/internal/domain/errors"
	"github.com/wekeepgrowing/marketplace-backend/services/payment/internal/domain/model"
	"github.com/wekeepgrowing/marketplace-backend/services/payment/internal/domain/provider"
	"go.uber.org/zap"
)

const (
	providerName = "stripe"

	metadataAttemptID = "attempt_id"
	metadataBuyerID   = "buyer_id"
	metadataReceipt   = "receipt"

	errorCodeUnexpectedState = "payment_intent_unexpected_state"
)

// Config holds Stripe credentials
type Config struct {
	SecretKey      string
	PublishableKey string
	WebhookSecret  string
}

// StripeProvider implements the PaymentGateway interface with payment intents
type StripeProvider struct {
	config  Config
	intents *paymentintent.Client
	logger  *zap.Logger
}

// Option customizes a StripeProvider
type Option func(*StripeProvider)

// WithBackend replaces the Stripe API backend, e.g. to point at a test server
func WithBackend(backend stripe.Backend) Option {
	return func(p *StripeProvider) {
		p.intents.B = backend
	}
}

// NewStripeProvider creates a new Stripe provider
func NewStripeProvider(config Config, logger *zap.Logger, opts ...Option) *StripeProvider {
	p := &StripeProvider{
		config: config,
		intents: &paymentintent.Client{
			B:   stripe.GetBackend(stripe.APIBackend),
			Key: config.SecretKey,
		},
		logger: logger,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// GetProviderName returns the provider name
func (s *StripeProvider) GetProviderName() string {
	return providerName
}

// CreateOrder creates a payment intent the buyer's checkout confirms
func (s *StripeProvider) CreateOrder(ctx context.Context, req *provider.CreateOrderRequest) (*provider.CreateOrderResponse, error) {
	amount, err := model.MinorUnits(req.Amount, req.Currency)
	if err != nil {
		return nil, domainErrors.NewGatewayError(domainErrors.GatewayErrorBadRequest, "unsupported currency", err)
	}

	params := &stripe.PaymentIntentParams{
		Amount:      stripe.Int64(amount),
		Currency:    stripe.String(strings.ToLower(req.Currency)),
		Description: stripe.String(req.Description),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	params.Context = ctx
	if req.IdempotencyKey != "" {
		params.SetIdempotencyKey(req.IdempotencyKey)
	}
	for k, v := range req.Metadata {
		params.AddMetadata(k, v)
	}
	params.AddMetadata(metadataAttemptID, req.AttemptID.String())
	params.AddMetadata(metadataBuyerID, req.BuyerID.String())
	params.AddMetadata(metadataReceipt, req.Receipt)

	pi, err := s.intents.New(params)
	if err != nil {
		s.logger.Error("Failed to create payment intent",
			zap.String("attempt_id", req.AttemptID.String()),
			zap.String("amount", req.Amount.String()),
			zap.Error(err))
		return nil, toGatewayError(err)
	}

	s.logger.Info("Payment intent created",
		zap.String("attempt_id", req.AttemptID.String()),
		zap.String("payment_intent_id", pi.ID),
		zap.Int64("amount_minor", pi.Amount))

	return &provider.CreateOrderResponse{
		OrderID:        pi.ID,
		ClientSecret:   pi.ClientSecret,
		PublishableKey: s.config.PublishableKey,
	}, nil
}

// CancelOrder cancels a payment intent that has not been paid. Intents that
// already succeeded or are processing report ErrOrderNotCancellable.
func (s *StripeProvider) CancelOrder(ctx context.Context, orderID string) error {
	params := &stripe.PaymentIntentCancelParams{
		CancellationReason: stripe.String(string(stripe.PaymentIntentCancellationReasonAbandoned)),
	}
	params.Context = ctx

	if _, err := s.intents.Cancel(orderID, params); err != nil {
		var stripeErr *stripe.Error
		if errors.As(err, &stripeErr) && string(stripeErr.Code) == errorCodeUnexpectedState {
			if stripeErr.PaymentIntent != nil && stripeErr.PaymentIntent.Status == stripe.PaymentIntentStatusCanceled {
				return nil
			}
			s.logger.Info("Payment intent cannot be cancelled",
				zap.String("payment_intent_id", orderID),
				zap.String("reason", stripeErr.Msg))
			return fmt.Errorf("%w: %s", domainErrors.ErrOrderNotCancellable, stripeErr.Msg)
		}
		s.logger.Error("Failed to cancel payment intent",
			zap.String("payment_intent_id", orderID),
			zap.Error(err))
		return toGatewayError(err)
	}

	s.logger.Info("Payment intent cancelled", zap.String("payment_intent_id", orderID))
	return nil
}

// toGatewayError classifies Stripe client errors. Errors without an API
// response are transport failures.
func toGatewayError(err error) error {
	var stripeErr *stripe.Error
	if !errors.As(err, &stripeErr) {
		return domainErrors.NewGatewayError(domainErrors.GatewayErrorNetwork, "payment gateway unreachable", err)
	}

	switch {
	case stripeErr.HTTPStatusCode >= 500, stripeErr.HTTPStatusCode == 429, stripeErr.Type == stripe.ErrorTypeAPI:
		return domainErrors.NewGatewayError(domainErrors.GatewayErrorNetwork, stripeErr.Msg, err)
	default:
		return domainErrors.NewGatewayError(domainErrors.GatewayErrorBadRequest, stripeErr.Msg, err)
	}
}

// ParseWebhook verifies the Stripe-Signature header and maps payment intent
// events to gateway outcomes
func (s *StripeProvider) ParseWebhook(ctx context.Context, payload []byte, signature string) (*provider.WebhookResult, error) {
	event, err := webhook.ConstructEventWithOptions(
		payload,
		signature,
		s.config.WebhookSecret,
		webhook.ConstructEventOptions{
			IgnoreAPIVersionMismatch: true,
		},
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domainErrors.ErrInvalidWebhookSignature, err)
	}

	result := &provider.WebhookResult{
		EventID:   event.ID,
		EventType: string(event.Type),
		Raw:       payload,
	}

	switch event.Type {
	case stripe.EventTypePaymentIntentSucceeded,
		stripe.EventTypePaymentIntentPaymentFailed,
		stripe.EventTypePaymentIntentCanceled:
	default:
		return result, nil
	}

	var pi stripe.PaymentIntent
	if err := json.Unmarshal(event.Data.Raw, &pi); err != nil {
		return nil, fmt.Errorf("failed to parse payment intent: %w", err)
	}

	attemptID, err := uuid.Parse(pi.Metadata[metadataAttemptID])
	if err != nil {
		s.logger.Warn("Payment intent without attempt metadata",
			zap.String("event_id", event.ID),
			zap.String("payment_intent_id", pi.ID))
		return result, nil
	}
	result.AttemptID = &attemptID

	if event.Type == stripe.EventTypePaymentIntentPaymentFailed {
		code, description := "payment_failed", "Payment failed"
		if pi.LastPaymentError != nil {
			if pi.LastPaymentError.Code != "" {
				code = string(pi.LastPaymentError.Code)
			}
			if pi.LastPaymentError.Msg != "" {
				description = pi.LastPaymentError.Msg
			}
		}
		decline := provider.Failed(code, description)
		result.Decline = &decline

		s.logger.Info("Stripe payment declined",
			zap.String("event_id", event.ID),
			zap.String("attempt_id", attemptID.String()),
			zap.String("code", code))
		return result, nil
	}

	var outcome provider.GatewayOutcome
	switch event.Type {
	case stripe.EventTypePaymentIntentSucceeded:
		paymentID := ""
		if pi.LatestCharge != nil {
			paymentID = pi.LatestCharge.ID
		}
		outcome = provider.Succeeded(paymentID, pi.ID)

	case stripe.EventTypePaymentIntentCanceled:
		outcome = provider.Cancelled()
	}
	result.Outcome = &outcome

	s.logger.Info("Stripe webhook parsed",
		zap.String("event_id", event.ID),
		zap.String("event_type", string(event.Type)),
		zap.String("attempt_id", attemptID.String()),
		zap.String("outcome", string(outcome.Kind)))

	return result, nil
}
