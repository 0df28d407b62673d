package models

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/aurafoods/aura_backend/config"
	"github.com/aurafoods/aura_backend/utils"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type GiftCard struct {
	ID               int             `gorm:"primary_key" json:"id"`
	Code             string          `gorm:"size:32;not null;unique" json:"code"`
	InitialBalance   decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"initial_balance"`
	RemainingBalance decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"remaining_balance"`
	PurchaserId      *int            `gorm:"index" json:"purchaser_id"`
	RedeemerId       *int            `gorm:"index" json:"redeemer_id"`
	RedeemedAt       *time.Time      `json:"redeemed_at"`
	CreatedAt        time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

// Usable reports whether the card can still be spent. Cards are single
// use; a recorded redeemer or a zero balance both consume them.
func (g *GiftCard) Usable() bool {
	return g.RedeemerId == nil && !g.RemainingBalance.IsZero()
}

type NewGiftCard struct {
	Amount      decimal.Decimal `json:"amount" binding:"required"`
	PurchaserId *int            `json:"purchaser_id"`
}

func CreateGiftCard(ctx context.Context, input *NewGiftCard) (*GiftCard, error) {
	if input.Amount.IsNegative() || input.Amount.IsZero() {
		return nil, errors.New("amount must be positive")
	}

	card := GiftCard{
		Code:             generateGiftCardCode(),
		InitialBalance:   input.Amount,
		RemainingBalance: input.Amount,
		PurchaserId:      input.PurchaserId,
	}
	db := config.GetDB()
	if err := db.WithContext(ctx).Create(&card).Error; err != nil {
		return nil, err
	}
	return &card, nil
}

func generateGiftCardCode() string {
	return "GIFT-" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:12])
}

// RedeemGiftCard transfers the full remaining balance to the profile's
// credits. Single use: the row is locked, the balance zeroed and the
// redeemer recorded in one transaction.
func RedeemGiftCard(ctx context.Context, code string, profileId int) (*GiftCard, error) {

	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return nil, errors.New("code is required")
	}

	db := config.GetDB()
	var card GiftCard

	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("code = ?", code).First(&card).Error; err != nil {
			return utils.ErrorRecordNotFound
		}
		if !card.Usable() {
			return errors.New("gift card already redeemed")
		}

		amount := card.RemainingBalance
		now := time.Now().UTC()
		if err := tx.Model(&card).Updates(map[string]interface{}{
			"RemainingBalance": decimal.Zero,
			"RedeemerId":       profileId,
			"RedeemedAt":       &now,
		}).Error; err != nil {
			return err
		}
		card.RemainingBalance = decimal.Zero
		card.RedeemerId = &profileId
		card.RedeemedAt = &now

		return AddProfileCredits(ctx, tx, profileId, amount)
	})
	if err != nil {
		return nil, err
	}

	// credits changed, drop the cached profile
	profile, perr := GetProfile(ctx, profileId)
	if perr == nil {
		if err := profile.RemoveInstanceRedis(); err != nil {
			return nil, err
		}
	}
	return &card, nil
}

// DebitGiftCardTx consumes a card inside the caller's transaction when a
// discounted checkout session completes. Returns the amount debited. A
// card that vanished or got redeemed between session creation and the
// webhook yields zero; the paid order is never failed over it.
func DebitGiftCardTx(ctx context.Context, tx *gorm.DB, code string, profileId int) (decimal.Decimal, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return decimal.Zero, nil
	}

	var card GiftCard
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("code = ?", code).First(&card).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return decimal.Zero, nil
	}
	if err != nil {
		return decimal.Zero, err
	}
	if !card.Usable() {
		return decimal.Zero, nil
	}

	amount := card.RemainingBalance
	now := time.Now().UTC()
	if err := tx.Model(&card).Updates(map[string]interface{}{
		"RemainingBalance": decimal.Zero,
		"RedeemerId":       profileId,
		"RedeemedAt":       &now,
	}).Error; err != nil {
		return decimal.Zero, err
	}
	return amount, nil
}

// GetGiftCardByCode is used by checkout to validate a card before the
// Stripe session is created. It does not consume the balance.
func GetGiftCardByCode(ctx context.Context, code string) (*GiftCard, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	db := config.GetDB()
	var card GiftCard
	if err := db.WithContext(ctx).Where("code = ?", code).First(&card).Error; err != nil {
		return nil, utils.ErrorRecordNotFound
	}
	return &card, nil
}
