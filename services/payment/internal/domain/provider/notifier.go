package provider

import "context"

// NotificationEvent names a ledger event worth telling a user about
type NotificationEvent string

const (
	EventPurchaseGranted     NotificationEvent = "purchase_granted"
	EventWithdrawalApproved  NotificationEvent = "withdrawal_approved"
	EventWithdrawalRejected  NotificationEvent = "withdrawal_rejected"
	EventWithdrawalCompleted NotificationEvent = "withdrawal_completed"
)

// Notifier is fire-and-forget: implementations log delivery failures and
// never block or fail the ledger operation that triggered them.
type Notifier interface {
	Notify(ctx context.Context, event NotificationEvent, payload map[string]interface{})
}
