package http

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/wekeepgrowing/marketplace-backend/services/payment/internal/domain/dto"
	"github.com/wekeepgrowing/marketplace-backend/services/payment/internal/middleware/auth"
	"github.com/wekeepgrowing/marketplace-backend/services/payment/internal/usecase"
	"go.uber.org/zap"
)

// WalletHandler serves the author's own wallet
type WalletHandler struct {
	logger  *zap.Logger
	wallets *usecase.WalletService
}

// NewWalletHandler creates a new wallet handler instance
func NewWalletHandler(logger *zap.Logger, wallets *usecase.WalletService) *WalletHandler {
	return &WalletHandler{
		logger:  logger,
		wallets: wallets,
	}
}

// GetWallet handles GET /api/v1/wallet
func (h *WalletHandler) GetWallet(c echo.Context) error {
	authorID, err := auth.GetUserID(c)
	if err != nil {
		return echo.ErrUnauthorized
	}

	wallet, err := h.wallets.GetWallet(c.Request().Context(), authorID)
	if err != nil {
		return respondError(h.logger, err, "Failed to get wallet",
			zap.String("author_id", authorID.String()))
	}

	return c.JSON(http.StatusOK, dto.NewWalletDTO(wallet))
}

// GetEntries handles GET /api/v1/wallet/entries
func (h *WalletHandler) GetEntries(c echo.Context) error {
	authorID, err := auth.GetUserID(c)
	if err != nil {
		return echo.ErrUnauthorized
	}

	params, err := parsePageParams(c)
	if err != nil {
		return err
	}

	history, err := h.wallets.History(c.Request().Context(), authorID, params)
	if err != nil {
		return respondError(h.logger, err, "Failed to get wallet entries",
			zap.String("author_id", authorID.String()))
	}

	return c.JSON(http.StatusOK, history)
}

// parsePageParams reads limit and offset query parameters
func parsePageParams(c echo.Context) (dto.PageParams, error) {
	var params dto.PageParams

	if limitStr := c.QueryParam("limit"); limitStr != "" {
		limit, err := strconv.Atoi(limitStr)
		if err != nil || limit < 1 {
			return params, badRequest("invalid limit parameter")
		}
		params.Limit = limit
	}

	if offsetStr := c.QueryParam("offset"); offsetStr != "" {
		offset, err := strconv.Atoi(offsetStr)
		if err != nil || offset < 0 {
			return params, badRequest("invalid offset parameter")
		}
		params.Offset = offset
	}

	return params, nil
}
