package http

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"github.com/wekeepgrowing/marketplace-backend/services/payment/internal/domain/dto"
	"github.com/wekeepgrowing/marketplace-backend/services/payment/internal/domain/model"
	"github.com/wekeepgrowing/marketplace-backend/services/payment/internal/domain/repository"
	"github.com/wekeepgrowing/marketplace-backend/services/payment/internal/middleware/auth"
	"github.com/wekeepgrowing/marketplace-backend/services/payment/internal/usecase"
	"go.uber.org/zap"
)

// WithdrawalHandler handles author withdrawal requests
type WithdrawalHandler struct {
	logger      *zap.Logger
	withdrawals *usecase.WithdrawalService
}

// NewWithdrawalHandler creates a new withdrawal handler instance
func NewWithdrawalHandler(logger *zap.Logger, withdrawals *usecase.WithdrawalService) *WithdrawalHandler {
	return &WithdrawalHandler{
		logger:      logger,
		withdrawals: withdrawals,
	}
}

// CreateWithdrawalRequest is the body of POST /withdrawals. Amount is a
// decimal string to avoid float rounding.
type CreateWithdrawalRequest struct {
	Amount string           `json:"amount"`
	Method string           `json:"payment_method"`
	Bank   *dto.BankDetails `json:"bank,omitempty"`
	UPI    *dto.UPIDetails  `json:"upi,omitempty"`
}

// Create handles POST /api/v1/withdrawals
func (h *WithdrawalHandler) Create(c echo.Context) error {
	authorID, err := auth.GetUserID(c)
	if err != nil {
		return echo.ErrUnauthorized
	}

	var req CreateWithdrawalRequest
	if err := c.Bind(&req); err != nil {
		return badRequest("invalid request body")
	}

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		return badRequest("amount must be a decimal string")
	}

	request, err := h.withdrawals.Request(c.Request().Context(), usecase.WithdrawalInput{
		AuthorID: authorID,
		Amount:   amount,
		Method:   model.PayoutMethod(req.Method),
		Bank:     req.Bank,
		UPI:      req.UPI,
	})
	if err != nil {
		return respondError(h.logger, err, "Failed to request withdrawal",
			zap.String("author_id", authorID.String()),
			zap.String("amount", req.Amount))
	}

	return c.JSON(http.StatusCreated, request)
}

// List handles GET /api/v1/withdrawals
func (h *WithdrawalHandler) List(c echo.Context) error {
	authorID, err := auth.GetUserID(c)
	if err != nil {
		return echo.ErrUnauthorized
	}

	filter, err := parseWithdrawalFilter(c)
	if err != nil {
		return err
	}
	filter.AuthorID = &authorID

	result, err := h.withdrawals.List(c.Request().Context(), filter)
	if err != nil {
		return respondError(h.logger, err, "Failed to list withdrawals",
			zap.String("author_id", authorID.String()))
	}

	return c.JSON(http.StatusOK, result)
}

// parseWithdrawalFilter reads status and pagination query parameters
func parseWithdrawalFilter(c echo.Context) (repository.WithdrawalFilter, error) {
	page, err := parsePageParams(c)
	if err != nil {
		return repository.WithdrawalFilter{}, err
	}

	filter := repository.WithdrawalFilter{
		Limit:  page.Limit,
		Offset: page.Offset,
	}

	if statusStr := c.QueryParam("status"); statusStr != "" {
		status := model.WithdrawalStatus(statusStr)
		switch status {
		case model.WithdrawalStatusPending, model.WithdrawalStatusApproved,
			model.WithdrawalStatusRejected, model.WithdrawalStatusCompleted:
			filter.Status = &status
		default:
			return filter, badRequest("invalid status parameter")
		}
	}

	if authorStr := c.QueryParam("author_id"); authorStr != "" {
		authorID, err := uuid.Parse(authorStr)
		if err != nil {
			return filter, badRequest("invalid author_id parameter")
		}
		filter.AuthorID = &authorID
	}

	return filter, nil
}
