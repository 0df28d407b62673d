package models

import (
	"context"
	"encoding/json"
	"time"

	"github.com/aurafoods/aura_backend/config"
)

// InteractionLog is the omnichannel audit trail: webhook outcomes, payment
// failures, support touches. Append-only.
type InteractionLog struct {
	ID        int             `gorm:"primary_key" json:"id"`
	Channel   string          `gorm:"size:50;not null;index" json:"channel"`
	ProfileId *int            `gorm:"index" json:"profile_id"`
	Payload   json.RawMessage `gorm:"type:json" json:"payload"`
	CreatedAt time.Time       `gorm:"autoCreateTime" json:"created_at"`
}

func (InteractionLog) TableName() string { return "omni_interaction_logs" }

func LogInteraction(ctx context.Context, channel string, profileId *int, payload interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	db := config.GetDB()
	return db.WithContext(ctx).Create(&InteractionLog{
		Channel:   channel,
		ProfileId: profileId,
		Payload:   body,
	}).Error
}

func ListInteractions(ctx context.Context, channel *string, limit int) ([]*InteractionLog, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	db := config.GetDB()
	dbCtx := db.WithContext(ctx).Model(&InteractionLog{})
	if channel != nil && *channel != "" {
		dbCtx = dbCtx.Where("channel = ?", *channel)
	}
	var rows []*InteractionLog
	if err := dbCtx.Order("created_at DESC").Limit(limit).Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
