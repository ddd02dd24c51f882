package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/wekeepgrowing/marketplace-backend/services/payment/internal/domain/model"
	domainRepo "github.com/wekeepgrowing/marketplace-backend/services/payment/internal/domain/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// gatewayEventRepository implements the GatewayEventRepository interface
type gatewayEventRepository struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewGatewayEventRepository creates a new gateway event repository instance
func NewGatewayEventRepository(db *gorm.DB, logger *zap.Logger) domainRepo.GatewayEventRepository {
	return &gatewayEventRepository{
		db:     db,
		logger: logger,
	}
}

// Record stores a webhook delivery once per provider event id
func (r *gatewayEventRepository) Record(ctx context.Context, event *model.GatewayEvent) (*model.GatewayEvent, bool, error) {
	if event.Status == "" {
		event.Status = model.GatewayEventStatusPending
	}

	db := conn(ctx, r.db)
	res := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "provider_event_id"}},
		DoNothing: true,
	}).Create(event)
	if res.Error != nil {
		return nil, false, fmt.Errorf("failed to record gateway event: %w", res.Error)
	}

	if res.RowsAffected == 0 {
		var existing model.GatewayEvent
		if err := db.Where("provider_event_id = ?", event.ProviderEventID).First(&existing).Error; err != nil {
			return nil, false, fmt.Errorf("failed to load gateway event: %w", err)
		}
		return &existing, false, nil
	}

	return event, true, nil
}

// MarkProcessed marks an event as processed
func (r *gatewayEventRepository) MarkProcessed(ctx context.Context, providerEventID string) error {
	now := time.Now()
	err := conn(ctx, r.db).Model(&model.GatewayEvent{}).
		Where("provider_event_id = ?", providerEventID).
		Updates(map[string]interface{}{
			"status":              model.GatewayEventStatusProcessed,
			"processed_at":        &now,
			"processing_attempts": gorm.Expr("processing_attempts + 1"),
			"last_error":          nil,
		}).Error
	if err != nil {
		return fmt.Errorf("failed to mark gateway event processed: %w", err)
	}
	return nil
}

// MarkFailed marks an event as failed so a redelivery processes it again
func (r *gatewayEventRepository) MarkFailed(ctx context.Context, providerEventID string, processErr error) error {
	msg := processErr.Error()
	err := conn(ctx, r.db).Model(&model.GatewayEvent{}).
		Where("provider_event_id = ?", providerEventID).
		Updates(map[string]interface{}{
			"status":              model.GatewayEventStatusFailed,
			"processing_attempts": gorm.Expr("processing_attempts + 1"),
			"last_error":          msg,
		}).Error
	if err != nil {
		return fmt.Errorf("failed to mark gateway event failed: %w", err)
	}
	return nil
}

// CreateIncident stores a gateway response that needs manual follow-up
func (r *gatewayEventRepository) CreateIncident(ctx context.Context, incident *model.GatewayIncident) error {
	if err := conn(ctx, r.db).Create(incident).Error; err != nil {
		r.logger.Error("Failed to create gateway incident",
			zap.String("attempt_id", incident.AttemptID.String()),
			zap.String("reason", incident.Reason),
			zap.Error(err))
		return fmt.Errorf("failed to create gateway incident: %w", err)
	}
	return nil
}

// ListIncidents retrieves the most recent gateway incidents
func (r *gatewayEventRepository) ListIncidents(ctx context.Context, limit int) ([]*model.GatewayIncident, error) {
	var incidents []*model.GatewayIncident
	err := conn(ctx, r.db).Order("created_at DESC").Limit(limit).Find(&incidents).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list gateway incidents: %w", err)
	}
	return incidents, nil
}
