package models

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/aurafoods/aura_backend/config"
	"github.com/aurafoods/aura_backend/utils"
	"github.com/shopspring/decimal"
)

// Subscription is a recurring box. BoxConfig holds the chosen product ids
// as a JSON array; its length always equals the tier's slot count.
type Subscription struct {
	ID                   int                `gorm:"primary_key" json:"id"`
	ProfileId            int                `gorm:"not null;index" json:"profile_id"`
	Profile              *Profile           `gorm:"foreignKey:ProfileId" json:"profile,omitempty"`
	BoxSize              BoxSize            `gorm:"type:enum('starter','voyager','bunker');not null" json:"box_size"`
	BoxConfig            json.RawMessage    `gorm:"type:json" json:"box_config"`
	Status               SubscriptionStatus `gorm:"type:enum('active','paused','past_due','cancelled');not null;default:'active';index" json:"status"`
	MonthlyTotal         decimal.Decimal    `gorm:"type:decimal(10,2);not null" json:"monthly_total"`
	StripeSubscriptionId string             `gorm:"size:64;index" json:"stripe_subscription_id"`
	StripeCustomerId     string             `gorm:"size:64;index" json:"stripe_customer_id"`
	NextDeliveryDate     *time.Time         `json:"next_delivery_date"`
	PauseUntil           *time.Time         `json:"pause_until"`
	CancelledAt          *time.Time         `json:"cancelled_at"`
	CreatedAt            time.Time          `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt            time.Time          `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Subscription) TableName() string { return "aura_subscriptions" }

// BoxProductIds decodes the stored box configuration.
func (s *Subscription) BoxProductIds() ([]int, error) {
	var ids []int
	if len(s.BoxConfig) == 0 {
		return ids, nil
	}
	if err := json.Unmarshal(s.BoxConfig, &ids); err != nil {
		return nil, err
	}
	return ids, nil
}

// ValidateBoxConfig checks a tier/selection pair: the size must be a known
// tier and the number of selections must exactly fill its slots.
func ValidateBoxConfig(size BoxSize, productIds []int) error {
	slots, ok := BoxSlots(size)
	if !ok {
		return errors.New("unknown box size")
	}
	if len(productIds) != slots {
		return errors.New("box must fill every slot exactly")
	}
	for _, id := range productIds {
		if id <= 0 {
			return errors.New("invalid product id in box")
		}
	}
	return nil
}

func ListSubscriptionsByProfile(ctx context.Context, profileId int) ([]*Subscription, error) {
	db := config.GetDB()
	var rows []*Subscription
	if err := db.WithContext(ctx).Where("profile_id = ?", profileId).
		Order("created_at DESC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// fetchOwnedSubscription loads a subscription and enforces ownership.
func fetchOwnedSubscription(ctx context.Context, id int, profileId int) (*Subscription, error) {
	sub, err := utils.FetchModel[Subscription](ctx, id)
	if err != nil {
		return nil, err
	}
	if sub.ProfileId != profileId {
		return nil, utils.ErrorRecordNotFound
	}
	return sub, nil
}

// PauseSubscription moves an active subscription to paused. PauseUntil is
// optional; when set, the resume job clears it at that date.
func PauseSubscription(ctx context.Context, id int, profileId int, pauseUntil *time.Time) (*Subscription, error) {
	sub, err := fetchOwnedSubscription(ctx, id, profileId)
	if err != nil {
		return nil, err
	}
	if sub.Status != SubscriptionStatusActive {
		return nil, errors.New("only active subscriptions can be paused")
	}
	if pauseUntil != nil && pauseUntil.Before(time.Now()) {
		return nil, errors.New("pause_until must be in the future")
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Model(sub).Updates(map[string]interface{}{
		"Status":     SubscriptionStatusPaused,
		"PauseUntil": pauseUntil,
	}).Error; err != nil {
		return nil, err
	}
	sub.Status = SubscriptionStatusPaused
	sub.PauseUntil = pauseUntil
	return sub, nil
}

// ResumeSubscription moves a paused subscription back to active and clears
// pause_until. Subscriptions in any other state cannot be resumed.
func ResumeSubscription(ctx context.Context, id int, profileId int) (*Subscription, error) {
	sub, err := fetchOwnedSubscription(ctx, id, profileId)
	if err != nil {
		return nil, err
	}
	if sub.Status != SubscriptionStatusPaused {
		return nil, errors.New("only paused subscriptions can be resumed")
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Model(sub).Updates(map[string]interface{}{
		"Status":     SubscriptionStatusActive,
		"PauseUntil": nil,
	}).Error; err != nil {
		return nil, err
	}
	sub.Status = SubscriptionStatusActive
	sub.PauseUntil = nil
	return sub, nil
}

// CancelSubscription is terminal. The Stripe side is cancelled by the
// caller; the local row flips when the subscription.deleted event lands,
// but we set it here too so the UI reflects the cancel immediately.
func CancelSubscription(ctx context.Context, id int, profileId int) (*Subscription, error) {
	sub, err := fetchOwnedSubscription(ctx, id, profileId)
	if err != nil {
		return nil, err
	}
	if sub.Status == SubscriptionStatusCancelled {
		return sub, nil
	}

	now := time.Now().UTC()
	db := config.GetDB()
	if err := db.WithContext(ctx).Model(sub).Updates(map[string]interface{}{
		"Status":      SubscriptionStatusCancelled,
		"CancelledAt": &now,
		"PauseUntil":  nil,
	}).Error; err != nil {
		return nil, err
	}
	sub.Status = SubscriptionStatusCancelled
	sub.CancelledAt = &now
	sub.PauseUntil = nil
	return sub, nil
}

// UpdateBoxConfig swaps the product selection on a live subscription.
// Takes effect on the next renewal; the slot rule still applies.
func UpdateBoxConfig(ctx context.Context, id int, profileId int, productIds []int) (*Subscription, error) {
	sub, err := fetchOwnedSubscription(ctx, id, profileId)
	if err != nil {
		return nil, err
	}
	if sub.Status == SubscriptionStatusCancelled {
		return nil, errors.New("subscription is cancelled")
	}
	if err := ValidateBoxConfig(sub.BoxSize, productIds); err != nil {
		return nil, err
	}
	if _, err := GetProductsByIds(ctx, productIds); err != nil {
		return nil, err
	}

	raw, err := json.Marshal(productIds)
	if err != nil {
		return nil, err
	}
	db := config.GetDB()
	if err := db.WithContext(ctx).Model(sub).UpdateColumn("box_config", json.RawMessage(raw)).Error; err != nil {
		return nil, err
	}
	sub.BoxConfig = raw
	return sub, nil
}

// GetSubscriptionByStripeId resolves webhook events to local rows.
func GetSubscriptionByStripeId(ctx context.Context, stripeSubscriptionId string) (*Subscription, error) {
	db := config.GetDB()
	var sub Subscription
	if err := db.WithContext(ctx).Where("stripe_subscription_id = ?", stripeSubscriptionId).
		First(&sub).Error; err != nil {
		return nil, utils.ErrorRecordNotFound
	}
	return &sub, nil
}
