package errors

// Common error codes
const (
	ErrInternal        = "INTERNAL"
	ErrNotFound        = "NOT_FOUND"
	ErrInvalidArgument = "INVALID_ARGUMENT"
	ErrUnauthenticated = "UNAUTHENTICATED"
	ErrUnauthorized    = "UNAUTHORIZED"
	ErrConflict        = "CONFLICT"
	ErrTimeout         = "TIMEOUT"
	ErrNotImplemented  = "NOT_IMPLEMENTED"

	// Payment and ledger codes
	ErrPaymentFailed       = "PAYMENT_FAILED"
	ErrGatewayUnavailable  = "GATEWAY_UNAVAILABLE"
	ErrInsufficientBalance = "INSUFFICIENT_BALANCE"
	ErrFailedPrecondition  = "FAILED_PRECONDITION"
)
