// Package notifier publishes ledger events for the notification service.
package notifier

import (
	"context"
	"time"

	"github.com/wekeepgrowing/marketplace-backend/pkg/messaging"
	"github.com/wekeepgrowing/marketplace-backend/services/payment/internal/domain/provider"
	"go.uber.org/zap"
)

const publishTimeout = 3 * time.Second

// Event is the message published for each notification
type Event struct {
	Type       provider.NotificationEvent `json:"type"`
	Payload    map[string]interface{}     `json:"payload"`
	OccurredAt time.Time                  `json:"occurred_at"`
}

// RedisNotifier publishes notifications to a Redis channel
type RedisNotifier struct {
	publisher messaging.Publisher
	channel   string
	logger    *zap.Logger
}

// NewRedisNotifier creates a notifier publishing to channel
func NewRedisNotifier(publisher messaging.Publisher, channel string, logger *zap.Logger) *RedisNotifier {
	return &RedisNotifier{
		publisher: publisher,
		channel:   channel,
		logger:    logger,
	}
}

// Notify publishes the event. Failures are logged and dropped.
func (n *RedisNotifier) Notify(ctx context.Context, event provider.NotificationEvent, payload map[string]interface{}) {
	// Outlive a cancelled request context but not forever
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()

	err := n.publisher.Publish(ctx, n.channel, Event{
		Type:       event,
		Payload:    payload,
		OccurredAt: time.Now().UTC(),
	})
	if err != nil {
		n.logger.Warn("Failed to publish notification",
			zap.String("event", string(event)),
			zap.String("channel", n.channel),
			zap.Error(err))
		return
	}

	n.logger.Debug("Notification published",
		zap.String("event", string(event)),
		zap.String("channel", n.channel))
}

// LogNotifier only logs notifications. Used when Redis is not configured.
type LogNotifier struct {
	logger *zap.Logger
}

// NewLogNotifier creates a notifier that logs events
func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Notify(_ context.Context, event provider.NotificationEvent, payload map[string]interface{}) {
	n.logger.Info("Notification",
		zap.String("event", string(event)),
		zap.Any("payload", payload))
}
