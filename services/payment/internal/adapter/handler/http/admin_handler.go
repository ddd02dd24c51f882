package http

import (
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/wekeepgrowing/marketplace-backend/services/payment/internal/domain/model"
	"github.com/wekeepgrowing/marketplace-backend/services/payment/internal/middleware/auth"
	"github.com/wekeepgrowing/marketplace-backend/services/payment/internal/usecase"
	"go.uber.org/zap"
)

const defaultIncidentLimit = 50

// AdminHandler exposes withdrawal review and ledger maintenance to admins
type AdminHandler struct {
	logger      *zap.Logger
	withdrawals *usecase.WithdrawalService
	ledger      *usecase.PurchaseLedger
	sessions    *usecase.PaymentSessionService
}

// NewAdminHandler creates a new admin handler instance
func NewAdminHandler(
	logger *zap.Logger,
	withdrawals *usecase.WithdrawalService,
	ledger *usecase.PurchaseLedger,
	sessions *usecase.PaymentSessionService,
) *AdminHandler {
	return &AdminHandler{
		logger:      logger,
		withdrawals: withdrawals,
		ledger:      ledger,
		sessions:    sessions,
	}
}

// RejectWithdrawalRequest is the body of POST /admin/withdrawals/:id/reject
type RejectWithdrawalRequest struct {
	Reason string `json:"reason"`
}

// ListWithdrawals handles GET /api/v1/admin/withdrawals
func (h *AdminHandler) ListWithdrawals(c echo.Context) error {
	filter, err := parseWithdrawalFilter(c)
	if err != nil {
		return err
	}

	result, err := h.withdrawals.List(c.Request().Context(), filter)
	if err != nil {
		return respondError(h.logger, err, "Failed to list withdrawals")
	}

	return c.JSON(http.StatusOK, result)
}

// GetPayoutDetails handles GET /api/v1/admin/withdrawals/:id/payout
func (h *AdminHandler) GetPayoutDetails(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return badRequest("invalid withdrawal id")
	}

	request, details, err := h.withdrawals.PayoutDetails(c.Request().Context(), id)
	if err != nil {
		return respondError(h.logger, err, "Failed to get payout details",
			zap.String("withdrawal_id", id.String()))
	}

	return c.JSON(http.StatusOK, echo.Map{
		"withdrawal":      request,
		"payment_details": details,
	})
}

// ApproveWithdrawal handles POST /api/v1/admin/withdrawals/:id/approve
func (h *AdminHandler) ApproveWithdrawal(c echo.Context) error {
	return h.review(c, "approve", func(id uuid.UUID) (*model.WithdrawalRequest, error) {
		return h.withdrawals.Approve(c.Request().Context(), id)
	})
}

// RejectWithdrawal handles POST /api/v1/admin/withdrawals/:id/reject
func (h *AdminHandler) RejectWithdrawal(c echo.Context) error {
	var req RejectWithdrawalRequest
	if err := c.Bind(&req); err != nil {
		return badRequest("invalid request body")
	}
	return h.review(c, "reject", func(id uuid.UUID) (*model.WithdrawalRequest, error) {
		return h.withdrawals.Reject(c.Request().Context(), id, req.Reason)
	})
}

// CompleteWithdrawal handles POST /api/v1/admin/withdrawals/:id/complete
func (h *AdminHandler) CompleteWithdrawal(c echo.Context) error {
	return h.review(c, "complete", func(id uuid.UUID) (*model.WithdrawalRequest, error) {
		return h.withdrawals.Complete(c.Request().Context(), id)
	})
}

func (h *AdminHandler) review(c echo.Context, action string, apply func(uuid.UUID) (*model.WithdrawalRequest, error)) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return badRequest("invalid withdrawal id")
	}

	request, err := apply(id)
	if err != nil {
		return respondError(h.logger, err, "Withdrawal review failed",
			zap.String("action", action),
			zap.String("withdrawal_id", id.String()))
	}

	reviewer := ""
	if user, err := auth.GetUserFromContext(c); err == nil {
		reviewer = user.UserID.String()
	}
	h.logger.Info("Withdrawal reviewed",
		zap.String("action", action),
		zap.String("withdrawal_id", id.String()),
		zap.String("reviewer_id", reviewer),
		zap.String("status", string(request.Status)))

	return c.JSON(http.StatusOK, request)
}

// Reconcile handles POST /api/v1/admin/reconcile
func (h *AdminHandler) Reconcile(c echo.Context) error {
	report, err := h.ledger.Reconcile(c.Request().Context())
	if err != nil {
		return respondError(h.logger, err, "Reconciliation failed")
	}
	return c.JSON(http.StatusOK, report)
}

// ListIncidents handles GET /api/v1/admin/incidents
func (h *AdminHandler) ListIncidents(c echo.Context) error {
	limit := defaultIncidentLimit
	if limitStr := c.QueryParam("limit"); limitStr != "" {
		parsed, err := strconv.Atoi(limitStr)
		if err != nil || parsed < 1 {
			return badRequest("invalid limit parameter")
		}
		limit = parsed
	}

	incidents, err := h.sessions.ListIncidents(c.Request().Context(), limit)
	if err != nil {
		return respondError(h.logger, err, "Failed to list gateway incidents")
	}

	return c.JSON(http.StatusOK, echo.Map{"incidents": incidents})
}
