package http

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/wekeepgrowing/marketplace-backend/services/payment/internal/domain/model"
	"github.com/wekeepgrowing/marketplace-backend/services/payment/internal/domain/provider"
	"github.com/wekeepgrowing/marketplace-backend/services/payment/internal/middleware/auth"
	"github.com/wekeepgrowing/marketplace-backend/services/payment/internal/usecase"
	"go.uber.org/zap"
)

// PurchaseHandler handles buyer-facing payment attempt requests
type PurchaseHandler struct {
	logger   *zap.Logger
	sessions *usecase.PaymentSessionService
}

// NewPurchaseHandler creates a new purchase handler instance
func NewPurchaseHandler(logger *zap.Logger, sessions *usecase.PaymentSessionService) *PurchaseHandler {
	return &PurchaseHandler{
		logger:   logger,
		sessions: sessions,
	}
}

// InitiatePurchaseRequest is the body of POST /purchases
type InitiatePurchaseRequest struct {
	ItemKind string `json:"item_kind"`
	ItemID   string `json:"item_id"`
}

// InitiatePurchaseResponse returns the attempt and, for paid items, the
// checkout parameters
type InitiatePurchaseResponse struct {
	Attempt  *model.PaymentAttempt `json:"attempt"`
	Checkout *usecase.Checkout     `json:"checkout,omitempty"`
}

// ClientOutcomeRequest is the body of POST /purchases/:id/result
type ClientOutcomeRequest struct {
	Outcome     string `json:"outcome"`
	Code        string `json:"code"`
	Description string `json:"description"`
}

// Initiate handles POST /api/v1/purchases
func (h *PurchaseHandler) Initiate(c echo.Context) error {
	buyerID, err := auth.GetUserID(c)
	if err != nil {
		return echo.ErrUnauthorized
	}

	var req InitiatePurchaseRequest
	if err := c.Bind(&req); err != nil {
		return badRequest("invalid request body")
	}

	item := model.ItemRef{Kind: model.ItemKind(req.ItemKind), ID: req.ItemID}
	attempt, checkout, err := h.sessions.Initiate(c.Request().Context(), buyerID, item)
	if err != nil {
		return respondError(h.logger, err, "Failed to initiate purchase",
			zap.String("buyer_id", buyerID.String()),
			zap.String("item", item.String()))
	}

	return c.JSON(http.StatusCreated, InitiatePurchaseResponse{
		Attempt:  attempt,
		Checkout: checkout,
	})
}

// MarkOpened handles POST /api/v1/purchases/:id/opened
func (h *PurchaseHandler) MarkOpened(c echo.Context) error {
	buyerID, attemptID, err := h.ownedAttempt(c)
	if err != nil {
		return err
	}

	attempt, err := h.sessions.MarkGatewayOpened(c.Request().Context(), attemptID)
	if err != nil {
		return respondError(h.logger, err, "Failed to mark checkout opened",
			zap.String("buyer_id", buyerID.String()),
			zap.String("attempt_id", attemptID.String()))
	}

	return c.JSON(http.StatusOK, attempt)
}

// Get handles GET /api/v1/purchases/:id
func (h *PurchaseHandler) Get(c echo.Context) error {
	buyerID, err := auth.GetUserID(c)
	if err != nil {
		return echo.ErrUnauthorized
	}
	attemptID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return badRequest("invalid attempt id")
	}

	view, err := h.sessions.GetForBuyer(c.Request().Context(), buyerID, attemptID)
	if err != nil {
		return respondError(h.logger, err, "Failed to get payment attempt",
			zap.String("attempt_id", attemptID.String()))
	}

	return c.JSON(http.StatusOK, view)
}

// ReportResult handles POST /api/v1/purchases/:id/result
func (h *PurchaseHandler) ReportResult(c echo.Context) error {
	buyerID, err := auth.GetUserID(c)
	if err != nil {
		return echo.ErrUnauthorized
	}
	attemptID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return badRequest("invalid attempt id")
	}

	var req ClientOutcomeRequest
	if err := c.Bind(&req); err != nil {
		return badRequest("invalid request body")
	}

	var outcome provider.GatewayOutcome
	switch provider.OutcomeKind(req.Outcome) {
	case provider.OutcomeFailed:
		outcome = provider.Failed(req.Code, req.Description)
	case provider.OutcomeCancelled:
		outcome = provider.Cancelled()
	default:
		return badRequest("outcome must be failed or cancelled")
	}

	attempt, applied, err := h.sessions.ReportClientOutcome(c.Request().Context(), buyerID, attemptID, outcome)
	if err != nil {
		return respondError(h.logger, err, "Failed to apply client outcome",
			zap.String("attempt_id", attemptID.String()))
	}

	return c.JSON(http.StatusOK, echo.Map{
		"attempt": attempt,
		"applied": applied,
	})
}

// ownedAttempt resolves the path attempt and checks the caller owns it
func (h *PurchaseHandler) ownedAttempt(c echo.Context) (uuid.UUID, uuid.UUID, error) {
	buyerID, err := auth.GetUserID(c)
	if err != nil {
		return uuid.Nil, uuid.Nil, echo.ErrUnauthorized
	}
	attemptID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, uuid.Nil, badRequest("invalid attempt id")
	}
	if _, err := h.sessions.GetForBuyer(c.Request().Context(), buyerID, attemptID); err != nil {
		return uuid.Nil, uuid.Nil, respondError(h.logger, err, "Payment attempt lookup failed",
			zap.String("attempt_id", attemptID.String()))
	}
	return buyerID, attemptID, nil
}
