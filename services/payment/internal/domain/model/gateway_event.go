package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// GatewayEventStatus represents the processing status of a gateway webhook
type GatewayEventStatus string

const (
	GatewayEventStatusPending   GatewayEventStatus = "pending"
	GatewayEventStatusProcessed GatewayEventStatus = "processed"
	GatewayEventStatusFailed    GatewayEventStatus = "failed"
)

// GatewayEvent records a webhook delivery so redeliveries are recognised.
type GatewayEvent struct {
	ID                 int64              `gorm:"primaryKey;autoIncrement" json:"id"`
	Provider           string             `gorm:"size:32;not null" json:"provider"`
	ProviderEventID    string             `gorm:"size:255;not null;uniqueIndex" json:"provider_event_id"`
	EventType          string             `gorm:"size:100;not null;index" json:"event_type"`
	AttemptID          *uuid.UUID         `gorm:"type:uuid;index" json:"attempt_id,omitempty"`
	Status             GatewayEventStatus `gorm:"size:32;not null;default:'pending';index" json:"status"`
	Payload            datatypes.JSON     `json:"payload"`
	ProcessingAttempts int                `gorm:"default:0" json:"processing_attempts"`
	LastError          *string            `json:"last_error,omitempty"`
	ProcessedAt        *time.Time         `json:"processed_at,omitempty"`
	CreatedAt          time.Time          `gorm:"autoCreateTime" json:"created_at"`
}

// TableName specifies the table name for GORM
func (GatewayEvent) TableName() string {
	return "gateway_events"
}

// GatewayIncident is a gateway response that could not be committed, kept for
// manual reconciliation.
type GatewayIncident struct {
	ID               int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	AttemptID        uuid.UUID `gorm:"type:uuid;not null;index" json:"attempt_id"`
	GatewayPaymentID *string   `gorm:"size:100" json:"gateway_payment_id,omitempty"`
	GatewayOrderID   *string   `gorm:"size:100" json:"gateway_order_id,omitempty"`
	Reason           string    `gorm:"not null" json:"reason"`
	CreatedAt        time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// TableName specifies the table name for GORM
func (GatewayIncident) TableName() string {
	return "gateway_incidents"
}
