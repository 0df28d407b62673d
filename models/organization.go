package models

import (
	"context"
	"time"

	"github.com/aurafoods/aura_backend/config"
	"github.com/aurafoods/aura_backend/utils"
	"github.com/shopspring/decimal"
)

// Organization is a dealer's business entity. The tier sets the default
// commission rate, snapshotted per transaction.
type Organization struct {
	ID             int             `gorm:"primary_key" json:"id"`
	Name           string          `gorm:"size:150;not null" json:"name" binding:"required"`
	DealerTier     DealerTier      `gorm:"type:enum('standard','silver','gold');not null;default:'standard'" json:"dealer_tier"`
	CommissionRate decimal.Decimal `gorm:"type:decimal(5,4);not null;default:0.05" json:"commission_rate"`
	CreatedAt      time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

// Default commission rates by tier.
var tierRates = map[DealerTier]decimal.Decimal{
	DealerTierStandard: decimal.NewFromFloat(0.05),
	DealerTierSilver:   decimal.NewFromFloat(0.08),
	DealerTierGold:     decimal.NewFromFloat(0.12),
}

func TierCommissionRate(tier DealerTier) decimal.Decimal {
	if rate, ok := tierRates[tier]; ok {
		return rate
	}
	return tierRates[DealerTierStandard]
}

func GetOrganization(ctx context.Context, id int) (*Organization, error) {
	return utils.FetchModel[Organization](ctx, id)
}

func UpdateOrganizationTier(ctx context.Context, id int, tier DealerTier) (*Organization, error) {
	org, err := utils.FetchModel[Organization](ctx, id)
	if err != nil {
		return nil, err
	}

	db := config.GetDB()
	rate := TierCommissionRate(tier)
	if err := db.WithContext(ctx).Model(org).Updates(map[string]interface{}{
		"DealerTier":     tier,
		"CommissionRate": rate,
	}).Error; err != nil {
		return nil, err
	}
	org.DealerTier = tier
	org.CommissionRate = rate
	return org, nil
}
