package http

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	pkgerrors "github.com/wekeepgrowing/marketplace-backend/pkg/errors"
	domainErrors "github.com/wekeepgrowing/marketplace-backend/services/payment/internal/domain/errors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestToAppError(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		code   string
		status int
	}{
		{"validation", domainErrors.NewValidationError("amount", "must be positive"), pkgerrors.ErrInvalidArgument, http.StatusBadRequest},
		{"item not found", fmt.Errorf("lookup: %w", domainErrors.ErrItemNotFound), pkgerrors.ErrNotFound, http.StatusNotFound},
		{"attempt not found", domainErrors.ErrAttemptNotFound, pkgerrors.ErrNotFound, http.StatusNotFound},
		{"withdrawal not found", domainErrors.ErrWithdrawalNotFound, pkgerrors.ErrNotFound, http.StatusNotFound},
		{"gateway rejected", domainErrors.NewGatewayError(domainErrors.GatewayErrorBadRequest, "card declined", nil), pkgerrors.ErrPaymentFailed, http.StatusPaymentRequired},
		{"gateway unreachable", domainErrors.NewGatewayError(domainErrors.GatewayErrorNetwork, "timeout", nil), pkgerrors.ErrGatewayUnavailable, http.StatusBadGateway},
		{"insufficient balance", domainErrors.NewInsufficientBalanceError(decimal.NewFromInt(10), decimal.NewFromInt(5)), pkgerrors.ErrInsufficientBalance, http.StatusUnprocessableEntity},
		{"bad transition", fmt.Errorf("approve: %w", domainErrors.ErrInvalidWithdrawalTransition), pkgerrors.ErrFailedPrecondition, http.StatusConflict},
		{"bad signature", fmt.Errorf("%w: no v1", domainErrors.ErrInvalidWebhookSignature), pkgerrors.ErrInvalidArgument, http.StatusBadRequest},
		{"unknown", errors.New("connection reset"), pkgerrors.ErrInternal, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			appErr := toAppError(tt.err)
			assert.Equal(t, tt.code, appErr.Code())
			assert.Equal(t, tt.status, pkgerrors.ToHTTPStatus(appErr.Code()))
			assert.ErrorIs(t, appErr, tt.err)
		})
	}
}

func TestToAppError_HidesInternalCause(t *testing.T) {
	appErr := toAppError(errors.New("pq: password authentication failed"))
	assert.Equal(t, "internal server error", appErr.Message())

	httpErr := pkgerrors.ToHTTPError(appErr)
	assert.NotContains(t, fmt.Sprint(httpErr.Message), "password")
}

func TestRespondError_LogLevel(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	logger := zap.New(core)

	_ = respondError(logger, domainErrors.NewValidationError("amount", "must be positive"), "bad input")
	_ = respondError(logger, errors.New("disk full"), "boom", zap.String("attempt_id", "a-1"))

	entries := logs.AllUntimed()
	if assert.Len(t, entries, 2) {
		assert.Equal(t, zapcore.WarnLevel, entries[0].Level)
		assert.Equal(t, pkgerrors.ErrInvalidArgument, entries[0].ContextMap()["error_code"])
		assert.Equal(t, zapcore.ErrorLevel, entries[1].Level)
		assert.Equal(t, "a-1", entries[1].ContextMap()["attempt_id"])
	}
}
