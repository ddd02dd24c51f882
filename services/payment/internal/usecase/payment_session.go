package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/shopspring/decimal"
	domainErrors "github.com/wekeepgrowing/marketplace-backend/services/payment/internal/domain/errors"
	"github.com/wekeepgrowing/marketplace-backend/services/payment/internal/domain/model"
	"github.com/wekeepgrowing/marketplace-backend/services/payment/internal/domain/provider"
	"github.com/wekeepgrowing/marketplace-backend/services/payment/internal/domain/repository"
	"go.uber.org/zap"
)

const (
	receiptAlphabet = "0123456789ABCDEFGHJKLMNPQRSTUVWXYZ"
	receiptLength   = 12
)

// PaymentSessionConfig configures the payment session coordinator
type PaymentSessionConfig struct {
	Currency          string
	LocalTimeout      time.Duration
	FreePaymentMarker string
	// Now defaults to time.Now
	Now func() time.Time
}

// Checkout carries what the buyer app needs to open the gateway checkout
type Checkout struct {
	AttemptID      uuid.UUID `json:"attempt_id"`
	OrderID        string    `json:"order_id"`
	ClientSecret   string    `json:"client_secret,omitempty"`
	PublishableKey string    `json:"publishable_key,omitempty"`
	Amount         string    `json:"amount"`
	Currency       string    `json:"currency"`
	Receipt        string    `json:"receipt"`
}

// AttemptView is an attempt plus the label shown to the buyer
type AttemptView struct {
	Attempt         *model.PaymentAttempt `json:"attempt"`
	Label           string                `json:"label"`
	TimedOutLocally bool                  `json:"timed_out_locally"`
}

// PaymentSessionService drives payment attempts from initiation to a
// terminal outcome
type PaymentSessionService struct {
	attempts repository.PaymentAttemptRepository
	events   repository.GatewayEventRepository
	catalog  provider.Catalog
	gateway  provider.PaymentGateway
	granter  PurchaseGranter
	config   PaymentSessionConfig
	logger   *zap.Logger
}

// NewPaymentSessionService creates a new payment session coordinator
func NewPaymentSessionService(
	attempts repository.PaymentAttemptRepository,
	events repository.GatewayEventRepository,
	catalog provider.Catalog,
	gateway provider.PaymentGateway,
	granter PurchaseGranter,
	config PaymentSessionConfig,
	logger *zap.Logger,
) *PaymentSessionService {
	if config.Now == nil {
		config.Now = time.Now
	}
	if config.LocalTimeout <= 0 {
		config.LocalTimeout = 10 * time.Minute
	}
	if config.FreePaymentMarker == "" {
		config.FreePaymentMarker = "FREE"
	}
	return &PaymentSessionService{
		attempts: attempts,
		events:   events,
		catalog:  catalog,
		gateway:  gateway,
		granter:  granter,
		config:   config,
		logger:   logger,
	}
}

// Initiate starts a payment attempt for an item at its current catalog
// price. Free items are granted immediately and return no checkout.
func (s *PaymentSessionService) Initiate(ctx context.Context, buyerID uuid.UUID, item model.ItemRef) (*model.PaymentAttempt, *Checkout, error) {
	if buyerID == uuid.Nil {
		return nil, nil, domainErrors.NewValidationError("buyer_id", "is required")
	}
	if !item.Kind.Valid() {
		return nil, nil, domainErrors.NewValidationError("item_kind", fmt.Sprintf("unknown item kind %q", item.Kind))
	}
	if item.ID == "" {
		return nil, nil, domainErrors.NewValidationError("item_id", "is required")
	}

	price, err := s.catalog.PriceOf(ctx, item)
	if err != nil {
		if errors.Is(err, domainErrors.ErrItemNotFound) {
			return nil, nil, err
		}
		return nil, nil, fmt.Errorf("failed to look up price for %s: %w", item, err)
	}
	if price.Amount.IsNegative() {
		return nil, nil, fmt.Errorf("catalog returned negative price %s for %s", price.Amount, item)
	}

	receipt, err := gonanoid.Generate(receiptAlphabet, receiptLength)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to generate receipt: %w", err)
	}

	attempt := &model.PaymentAttempt{
		ID:             uuid.New(),
		BuyerID:        buyerID,
		Item:           item,
		Currency:       s.config.Currency,
		Receipt:        receipt,
		IdempotencyKey: uuid.New(),
	}
	if !item.IsSubscription() {
		attempt.AuthorID = price.AuthorID
	}

	if price.IsFree || price.Amount.IsZero() {
		return s.initiateFree(ctx, attempt)
	}
	return s.initiatePaid(ctx, attempt, price)
}

func (s *PaymentSessionService) initiateFree(ctx context.Context, attempt *model.PaymentAttempt) (*model.PaymentAttempt, *Checkout, error) {
	now := s.config.Now()
	marker := s.config.FreePaymentMarker

	attempt.Amount = decimal.Zero
	attempt.Status = model.AttemptStatusSucceeded
	attempt.GatewayPaymentID = &marker
	attempt.ResolvedAt = &now

	if err := s.attempts.Create(ctx, attempt); err != nil {
		return nil, nil, err
	}

	s.logger.Info("Free item claimed",
		zap.String("attempt_id", attempt.ID.String()),
		zap.String("buyer_id", attempt.BuyerID.String()),
		zap.String("item", attempt.Item.String()))

	s.grant(ctx, attempt)
	return attempt, nil, nil
}

func (s *PaymentSessionService) initiatePaid(ctx context.Context, attempt *model.PaymentAttempt, price *provider.ItemPrice) (*model.PaymentAttempt, *Checkout, error) {
	scale, err := model.CurrencyScale(attempt.Currency)
	if err != nil {
		return nil, nil, err
	}
	attempt.Amount = price.Amount.Round(scale)
	attempt.Status = model.AttemptStatusInitiated

	if err := s.attempts.Create(ctx, attempt); err != nil {
		return nil, nil, err
	}

	order, err := s.gateway.CreateOrder(ctx, &provider.CreateOrderRequest{
		AttemptID:      attempt.ID,
		BuyerID:        attempt.BuyerID,
		Amount:         attempt.Amount,
		Currency:       attempt.Currency,
		Receipt:        attempt.Receipt,
		Description:    price.Title,
		IdempotencyKey: attempt.IdempotencyKey.String(),
		Metadata: map[string]string{
			"item_kind": string(attempt.Item.Kind),
			"item_id":   attempt.Item.ID,
		},
	})
	if err != nil {
		s.logger.Warn("Gateway order creation failed",
			zap.String("attempt_id", attempt.ID.String()),
			zap.String("provider", s.gateway.GetProviderName()),
			zap.Error(err))

		var gatewayErr *domainErrors.GatewayError
		if errors.As(err, &gatewayErr) {
			return nil, nil, gatewayErr
		}
		return nil, nil, domainErrors.NewGatewayError(domainErrors.GatewayErrorNetwork, "payment gateway unavailable", err)
	}

	attempt, _, err = s.attempts.Mutate(ctx, attempt.ID, func(a *model.PaymentAttempt) (bool, error) {
		a.GatewayOrderID = &order.OrderID
		return true, nil
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to store gateway order: %w", err)
	}

	s.logger.Info("Payment attempt initiated",
		zap.String("attempt_id", attempt.ID.String()),
		zap.String("buyer_id", attempt.BuyerID.String()),
		zap.String("item", attempt.Item.String()),
		zap.String("amount", attempt.Amount.String()),
		zap.String("gateway_order_id", order.OrderID))

	return attempt, &Checkout{
		AttemptID:      attempt.ID,
		OrderID:        order.OrderID,
		ClientSecret:   order.ClientSecret,
		PublishableKey: order.PublishableKey,
		Amount:         attempt.Amount.StringFixed(scale),
		Currency:       attempt.Currency,
		Receipt:        attempt.Receipt,
	}, nil
}

// MarkGatewayOpened records that the buyer's checkout is open and starts the
// local timeout. Attempts past initiated are left alone.
func (s *PaymentSessionService) MarkGatewayOpened(ctx context.Context, attemptID uuid.UUID) (*model.PaymentAttempt, error) {
	attempt, _, err := s.attempts.Mutate(ctx, attemptID, func(a *model.PaymentAttempt) (bool, error) {
		if !a.Status.CanTransitionTo(model.AttemptStatusAwaitingGateway) {
			return false, nil
		}
		now := s.config.Now()
		a.Status = model.AttemptStatusAwaitingGateway
		a.GatewayOpenedAt = &now
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	return attempt, nil
}

// Status returns the attempt with its buyer-facing label
func (s *PaymentSessionService) Status(ctx context.Context, attemptID uuid.UUID) (*AttemptView, error) {
	attempt, err := s.attempts.GetByID(ctx, attemptID)
	if err != nil {
		return nil, err
	}
	return s.view(attempt), nil
}

// GetForBuyer returns the attempt only if it belongs to buyerID
func (s *PaymentSessionService) GetForBuyer(ctx context.Context, buyerID, attemptID uuid.UUID) (*AttemptView, error) {
	view, err := s.Status(ctx, attemptID)
	if err != nil {
		return nil, err
	}
	if view.Attempt.BuyerID != buyerID {
		return nil, domainErrors.ErrAttemptNotFound
	}
	return view, nil
}

func (s *PaymentSessionService) view(attempt *model.PaymentAttempt) *AttemptView {
	view := &AttemptView{Attempt: attempt, Label: string(attempt.Status)}
	if s.timedOutLocally(attempt) {
		view.Label = model.AttemptLabelTimedOutLocally
		view.TimedOutLocally = true
	}
	return view
}

func (s *PaymentSessionService) timedOutLocally(attempt *model.PaymentAttempt) bool {
	if attempt.Status.IsTerminal() || attempt.GatewayOpenedAt == nil {
		return false
	}
	return s.config.Now().Sub(*attempt.GatewayOpenedAt) >= s.config.LocalTimeout
}

// OnGatewayResult applies a gateway outcome. Outcomes for terminal attempts
// are ignored and reported with applied=false; a success for a failed or
// cancelled attempt is recorded as an incident. A success commits before the
// purchase is granted; grant failures are logged and left to Reconcile.
func (s *PaymentSessionService) OnGatewayResult(ctx context.Context, attemptID uuid.UUID, outcome provider.GatewayOutcome) (*model.PaymentAttempt, bool, error) {
	attempt, applied, err := s.attempts.Mutate(ctx, attemptID, func(a *model.PaymentAttempt) (bool, error) {
		if a.Status.IsTerminal() {
			return false, nil
		}
		return true, s.applyOutcome(a, outcome)
	})
	if err != nil {
		var invalid *domainErrors.InvalidGatewayResponseError
		if errors.As(err, &invalid) {
			s.recordIncident(ctx, invalid)
		}
		return nil, false, err
	}

	if !applied {
		if outcome.Kind == provider.OutcomeSucceeded && attempt.Status != model.AttemptStatusSucceeded {
			s.recordIncident(ctx, &domainErrors.InvalidGatewayResponseError{
				AttemptID: attempt.ID,
				PaymentID: outcome.PaymentID,
				OrderID:   outcome.OrderID,
				Reason:    fmt.Sprintf("gateway reported success for %s attempt", attempt.Status),
			})
			return attempt, false, nil
		}
		s.logger.Info("Ignoring gateway outcome for resolved attempt",
			zap.String("attempt_id", attemptID.String()),
			zap.String("status", string(attempt.Status)),
			zap.String("outcome", string(outcome.Kind)))
		return attempt, false, nil
	}

	s.logger.Info("Payment attempt resolved",
		zap.String("attempt_id", attempt.ID.String()),
		zap.String("status", string(attempt.Status)),
		zap.String("buyer_id", attempt.BuyerID.String()))

	if attempt.Status == model.AttemptStatusSucceeded {
		s.grant(ctx, attempt)
	}

	return attempt, true, nil
}

// applyOutcome moves a non-terminal attempt to the outcome's status
func (s *PaymentSessionService) applyOutcome(a *model.PaymentAttempt, outcome provider.GatewayOutcome) error {
	now := s.config.Now()
	from := a.Status

	switch outcome.Kind {
	case provider.OutcomeSucceeded:
		if outcome.PaymentID == "" {
			return &domainErrors.InvalidGatewayResponseError{
				AttemptID: a.ID,
				OrderID:   outcome.OrderID,
				Reason:    "missing gateway payment id",
			}
		}
		if outcome.OrderID != "" && a.GatewayOrderID != nil && *a.GatewayOrderID != outcome.OrderID {
			return &domainErrors.InvalidGatewayResponseError{
				AttemptID: a.ID,
				PaymentID: outcome.PaymentID,
				OrderID:   outcome.OrderID,
				Reason:    fmt.Sprintf("order id does not match attempt order %s", *a.GatewayOrderID),
			}
		}
		paymentID := outcome.PaymentID
		a.GatewayPaymentID = &paymentID
		if a.GatewayOrderID == nil && outcome.OrderID != "" {
			orderID := outcome.OrderID
			a.GatewayOrderID = &orderID
		}
		a.Status = model.AttemptStatusSucceeded

	case provider.OutcomeFailed:
		code, description := outcome.Code, outcome.Description
		a.FailureCode = &code
		a.FailureDescription = &description
		a.Status = model.AttemptStatusFailed

	case provider.OutcomeCancelled:
		a.Status = model.AttemptStatusCancelled

	default:
		return domainErrors.NewValidationError("outcome", fmt.Sprintf("unknown outcome %q", outcome.Kind))
	}

	if !from.CanTransitionTo(a.Status) {
		return fmt.Errorf("attempt %s from %s to %s: %w", a.ID, from, a.Status, domainErrors.ErrInvalidAttemptTransition)
	}
	a.ResolvedAt = &now
	return nil
}

// ReportClientOutcome accepts an outcome reported by the buyer's app. The
// app may only report failure or cancellation; success must come from the
// gateway. The gateway order is cancelled before the attempt closes; if the
// gateway refuses the cancel, the attempt stays open for the webhook.
func (s *PaymentSessionService) ReportClientOutcome(ctx context.Context, buyerID, attemptID uuid.UUID, outcome provider.GatewayOutcome) (*model.PaymentAttempt, bool, error) {
	if outcome.Kind != provider.OutcomeFailed && outcome.Kind != provider.OutcomeCancelled {
		return nil, false, domainErrors.NewValidationError("outcome", "only failed or cancelled outcomes can be reported by the client")
	}
	view, err := s.GetForBuyer(ctx, buyerID, attemptID)
	if err != nil {
		return nil, false, err
	}
	attempt := view.Attempt
	if attempt.Status.IsTerminal() {
		return attempt, false, nil
	}

	if attempt.GatewayOrderID != nil {
		if err := s.gateway.CancelOrder(ctx, *attempt.GatewayOrderID); err != nil {
			if errors.Is(err, domainErrors.ErrOrderNotCancellable) {
				s.logger.Info("Client outcome deferred to gateway",
					zap.String("attempt_id", attempt.ID.String()),
					zap.String("outcome", string(outcome.Kind)),
					zap.Error(err))
				return attempt, false, nil
			}

			s.logger.Warn("Failed to cancel gateway order",
				zap.String("attempt_id", attempt.ID.String()),
				zap.String("gateway_order_id", *attempt.GatewayOrderID),
				zap.Error(err))
			var gatewayErr *domainErrors.GatewayError
			if errors.As(err, &gatewayErr) {
				return nil, false, gatewayErr
			}
			return nil, false, domainErrors.NewGatewayError(domainErrors.GatewayErrorNetwork, "payment gateway unavailable", err)
		}
	}

	return s.OnGatewayResult(ctx, attemptID, outcome)
}

// recordDecline stores the gateway's reason for a declined payment try on an
// open attempt. The buyer may still retry on the same order, so the status
// is left as is.
func (s *PaymentSessionService) recordDecline(ctx context.Context, attemptID uuid.UUID, decline provider.GatewayOutcome) error {
	_, applied, err := s.attempts.Mutate(ctx, attemptID, func(a *model.PaymentAttempt) (bool, error) {
		if a.Status.IsTerminal() {
			return false, nil
		}
		code, description := decline.Code, decline.Description
		a.FailureCode = &code
		a.FailureDescription = &description
		return true, nil
	})
	if err != nil {
		return err
	}
	if applied {
		s.logger.Info("Gateway declined payment try",
			zap.String("attempt_id", attemptID.String()),
			zap.String("code", decline.Code))
	}
	return nil
}

// HandleWebhook verifies a gateway webhook delivery and applies its outcome.
// Redeliveries of processed events are ignored. Only errors worth a
// redelivery are returned after the signature check passed.
func (s *PaymentSessionService) HandleWebhook(ctx context.Context, payload []byte, signature string) error {
	result, err := s.gateway.ParseWebhook(ctx, payload, signature)
	if err != nil {
		return err
	}

	event, created, err := s.events.Record(ctx, &model.GatewayEvent{
		Provider:        s.gateway.GetProviderName(),
		ProviderEventID: result.EventID,
		EventType:       result.EventType,
		AttemptID:       result.AttemptID,
		Payload:         result.Raw,
	})
	if err != nil {
		return err
	}
	if !created && event.Status == model.GatewayEventStatusProcessed {
		s.logger.Info("Webhook event already processed",
			zap.String("event_id", result.EventID),
			zap.String("event_type", result.EventType))
		return nil
	}

	if result.Decline != nil && result.AttemptID != nil {
		if err := s.recordDecline(ctx, *result.AttemptID, *result.Decline); err != nil {
			if markErr := s.events.MarkFailed(ctx, result.EventID, err); markErr != nil {
				s.logger.Error("Failed to mark webhook event failed",
					zap.String("event_id", result.EventID),
					zap.Error(markErr))
			}
			if errors.Is(err, domainErrors.ErrAttemptNotFound) {
				return nil
			}
			return err
		}
		return s.events.MarkProcessed(ctx, result.EventID)
	}

	if result.Outcome == nil || result.AttemptID == nil {
		s.logger.Debug("Webhook event carries no payment outcome",
			zap.String("event_id", result.EventID),
			zap.String("event_type", result.EventType))
		return s.events.MarkProcessed(ctx, result.EventID)
	}

	_, _, err = s.OnGatewayResult(ctx, *result.AttemptID, *result.Outcome)
	if err != nil {
		if markErr := s.events.MarkFailed(ctx, result.EventID, err); markErr != nil {
			s.logger.Error("Failed to mark webhook event failed",
				zap.String("event_id", result.EventID),
				zap.Error(markErr))
		}

		var invalid *domainErrors.InvalidGatewayResponseError
		if errors.Is(err, domainErrors.ErrAttemptNotFound) || errors.As(err, &invalid) {
			s.logger.Warn("Webhook event cannot be applied",
				zap.String("event_id", result.EventID),
				zap.String("attempt_id", result.AttemptID.String()),
				zap.Error(err))
			return nil
		}
		return err
	}

	return s.events.MarkProcessed(ctx, result.EventID)
}

// ListIncidents returns recent gateway responses that need manual follow-up
func (s *PaymentSessionService) ListIncidents(ctx context.Context, limit int) ([]*model.GatewayIncident, error) {
	return s.events.ListIncidents(ctx, limit)
}

func (s *PaymentSessionService) recordIncident(ctx context.Context, invalid *domainErrors.InvalidGatewayResponseError) {
	s.logger.Error("Invalid gateway response",
		zap.String("attempt_id", invalid.AttemptID.String()),
		zap.String("gateway_payment_id", invalid.PaymentID),
		zap.String("gateway_order_id", invalid.OrderID),
		zap.String("reason", invalid.Reason))

	incident := &model.GatewayIncident{
		AttemptID: invalid.AttemptID,
		Reason:    invalid.Reason,
	}
	if invalid.PaymentID != "" {
		incident.GatewayPaymentID = &invalid.PaymentID
	}
	if invalid.OrderID != "" {
		incident.GatewayOrderID = &invalid.OrderID
	}
	if err := s.events.CreateIncident(ctx, incident); err != nil {
		s.logger.Error("Failed to persist gateway incident",
			zap.String("attempt_id", invalid.AttemptID.String()),
			zap.Error(err))
	}
}

// grant records the purchase for a succeeded attempt. The buyer has paid,
// so failures are only logged.
func (s *PaymentSessionService) grant(ctx context.Context, attempt *model.PaymentAttempt) {
	result, err := s.granter.Grant(ctx, attempt)
	if err != nil {
		s.logger.Error("Purchase grant failed, left for reconciliation",
			zap.String("attempt_id", attempt.ID.String()),
			zap.Error(err))
		return
	}
	if result.Gap != nil {
		s.logger.Warn("Purchase settlement pending reconciliation",
			zap.String("attempt_id", attempt.ID.String()),
			zap.Error(result.Gap))
	}
}
