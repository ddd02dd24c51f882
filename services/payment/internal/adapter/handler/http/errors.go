package http

import (
	"errors"

	pkgerrors "github.com/wekeepgrowing/marketplace-backend/pkg/errors"
	domainErrors "github.com/wekeepgrowing/marketplace-backend/services/payment/internal/domain/errors"
	"go.uber.org/zap"
)

// toAppError maps domain failures onto application error codes.
func toAppError(err error) *pkgerrors.AppError {
	var appErr *pkgerrors.AppError
	if errors.As(err, &appErr) {
		return appErr
	}

	var validation *domainErrors.ValidationError
	if errors.As(err, &validation) {
		return pkgerrors.NewAppError(pkgerrors.ErrInvalidArgument, validation.Error(), err)
	}

	var insufficient *domainErrors.InsufficientBalanceError
	if errors.As(err, &insufficient) {
		return pkgerrors.NewAppError(pkgerrors.ErrInsufficientBalance, insufficient.Error(), err)
	}

	var gatewayErr *domainErrors.GatewayError
	if errors.As(err, &gatewayErr) {
		if gatewayErr.Code == domainErrors.GatewayErrorNetwork {
			return pkgerrors.NewAppError(pkgerrors.ErrGatewayUnavailable, "payment gateway unavailable, please retry", err)
		}
		return pkgerrors.NewAppError(pkgerrors.ErrPaymentFailed, gatewayErr.Description, err)
	}

	var invalid *domainErrors.InvalidGatewayResponseError
	if errors.As(err, &invalid) {
		return pkgerrors.NewAppError(pkgerrors.ErrGatewayUnavailable, "invalid gateway response", err)
	}

	switch {
	case errors.Is(err, domainErrors.ErrItemNotFound),
		errors.Is(err, domainErrors.ErrAttemptNotFound),
		errors.Is(err, domainErrors.ErrPurchaseNotFound),
		errors.Is(err, domainErrors.ErrWithdrawalNotFound):
		return pkgerrors.NewAppError(pkgerrors.ErrNotFound, unwrapMessage(err), err)
	case errors.Is(err, domainErrors.ErrInvalidWithdrawalTransition),
		errors.Is(err, domainErrors.ErrInvalidAttemptTransition):
		return pkgerrors.NewAppError(pkgerrors.ErrFailedPrecondition, err.Error(), err)
	case errors.Is(err, domainErrors.ErrInvalidWebhookSignature):
		return pkgerrors.NewAppError(pkgerrors.ErrInvalidArgument, domainErrors.ErrInvalidWebhookSignature.Error(), err)
	}

	return pkgerrors.NewAppError(pkgerrors.ErrInternal, "internal server error", err)
}

// unwrapMessage returns the innermost error text so lookups do not leak ids
func unwrapMessage(err error) string {
	for {
		next := errors.Unwrap(err)
		if next == nil {
			return err.Error()
		}
		err = next
	}
}

// respondError logs err and converts it into an echo HTTP error
func respondError(logger *zap.Logger, err error, msg string, fields ...zap.Field) error {
	appErr := toAppError(err)
	pkgerrors.LogError(logger, appErr, msg, fields...)
	return pkgerrors.ToHTTPError(appErr)
}

// badRequest builds an INVALID_ARGUMENT error for malformed input
func badRequest(message string) error {
	return pkgerrors.ToHTTPError(pkgerrors.NewAppError(pkgerrors.ErrInvalidArgument, message, nil))
}
