package http

import (
	"io"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/wekeepgrowing/marketplace-backend/services/payment/internal/usecase"
	"go.uber.org/zap"
)

const maxWebhookBodyBytes = 65536

// WebhookHandler receives payment gateway webhook deliveries
type WebhookHandler struct {
	logger   *zap.Logger
	sessions *usecase.PaymentSessionService
}

// NewWebhookHandler creates a new webhook handler instance
func NewWebhookHandler(logger *zap.Logger, sessions *usecase.PaymentSessionService) *WebhookHandler {
	return &WebhookHandler{
		logger:   logger,
		sessions: sessions,
	}
}

// HandleStripe handles POST /api/v1/webhooks/stripe. A non-2xx response
// makes Stripe redeliver the event.
func (h *WebhookHandler) HandleStripe(c echo.Context) error {
	payload, err := io.ReadAll(io.LimitReader(c.Request().Body, maxWebhookBodyBytes))
	if err != nil {
		h.logger.Error("Failed to read webhook body", zap.Error(err))
		return c.NoContent(http.StatusServiceUnavailable)
	}

	signature := c.Request().Header.Get("Stripe-Signature")
	if signature == "" {
		return badRequest("missing Stripe-Signature header")
	}

	if err := h.sessions.HandleWebhook(c.Request().Context(), payload, signature); err != nil {
		return respondError(h.logger, err, "Failed to handle webhook")
	}

	return c.JSON(http.StatusOK, echo.Map{"received": true})
}
