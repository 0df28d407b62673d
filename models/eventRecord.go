package models

import (
	"context"
	"encoding/json"
	"time"

	"github.com/aurafoods/aura_backend/utils"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Outbox publish statuses for EventRecord.PublishStatus.
// Keep these as strings (DB values).
const (
	OutboxPublishStatusPending    = "PENDING"
	OutboxPublishStatusProcessing = "PROCESSING"
	OutboxPublishStatusSent       = "SENT"
	OutboxPublishStatusFailed     = "FAILED"
	OutboxPublishStatusDead       = "DEAD"
)

// Event topics consumed by the external workflow-automation tool.
const (
	EventTopicOrderCreated        = "order.created"
	EventTopicOrderStatusChanged  = "order.status_changed"
	EventTopicInventoryRestocked  = "inventory.restocked"
	EventTopicInventoryLowStock   = "inventory.low_stock"
	EventTopicSubscriptionPastDue = "subscription.past_due"
)

// EventRecord implements a transactional outbox: rows are written inside the
// caller's DB transaction and published asynchronously by the outbox
// dispatcher after commit.
type EventRecord struct {
	ID               int             `gorm:"primary_key" json:"id"`
	Topic            string          `gorm:"size:100;not null;index" json:"topic"`
	ReferenceId      int             `gorm:"not null;index" json:"reference_id"`
	ReferenceType    string          `gorm:"size:50;not null" json:"reference_type"`
	Payload          json.RawMessage `gorm:"type:json" json:"payload"`
	PublishStatus    string          `gorm:"size:20;not null;default:'PENDING';index" json:"publish_status"`
	PublishAttempts  int             `gorm:"not null;default:0" json:"publish_attempts"`
	LastPublishError *string         `gorm:"type:text" json:"last_publish_error"`
	NextAttemptAt    *time.Time      `json:"next_attempt_at"`
	LockedAt         *time.Time      `json:"locked_at"`
	LockedBy         *string         `gorm:"size:64" json:"locked_by"`
	PublishedAt      *time.Time      `json:"published_at"`
	PubSubMessageId  *string         `gorm:"size:128" json:"pub_sub_message_id"`
	CorrelationId    string          `gorm:"size:64" json:"correlation_id"`
	CreatedAt        time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

// PublishEvent enqueues an outbox row inside the caller's transaction.
// Publishing happens after commit; never call Pub/Sub from here.
func PublishEvent(ctx context.Context, tx *gorm.DB, topic string, referenceType string, referenceId int, payload interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	record := EventRecord{
		Topic:         topic,
		ReferenceId:   referenceId,
		ReferenceType: referenceType,
		Payload:       body,
		PublishStatus: OutboxPublishStatusPending,
		CorrelationId: correlationIdFromContextOrNew(ctx),
	}
	return tx.Create(&record).Error
}

func correlationIdFromContextOrNew(ctx context.Context) string {
	if ctx != nil {
		if v, ok := utils.GetCorrelationIdFromContext(ctx); ok && v != "" {
			return v
		}
	}
	return uuid.NewString()
}
