package repository

import (
	"context"

	"github.com/wekeepgrowing/marketplace-backend/services/payment/internal/domain/model"
)

// GatewayEventRepository stores webhook deliveries and gateway incidents
type GatewayEventRepository interface {
	// Record stores the event. It returns the stored event and created=false
	// when the provider event id was seen before.
	Record(ctx context.Context, event *model.GatewayEvent) (*model.GatewayEvent, bool, error)

	MarkProcessed(ctx context.Context, providerEventID string) error

	MarkFailed(ctx context.Context, providerEventID string, processErr error) error

	CreateIncident(ctx context.Context, incident *model.GatewayIncident) error

	ListIncidents(ctx context.Context, limit int) ([]*model.GatewayIncident, error)
}
