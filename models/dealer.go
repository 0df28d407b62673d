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
)

// Dealer links a profile to an organization and a referral code that
// attributes storefront orders for commission.
type Dealer struct {
	ID               int             `gorm:"primary_key" json:"id"`
	ProfileId        int             `gorm:"not null;unique" json:"profile_id"`
	Profile          *Profile        `gorm:"foreignKey:ProfileId" json:"profile,omitempty"`
	OrganizationId   int             `gorm:"not null;index" json:"organization_id"`
	Organization     *Organization   `gorm:"foreignKey:OrganizationId" json:"organization,omitempty"`
	ReferralCode     *string         `gorm:"size:32;unique" json:"referral_code"`
	Status           DealerStatus    `gorm:"type:enum('pending','active','disabled');not null;default:'pending';index" json:"status"`
	CommissionEarned decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"commission_earned"`
	CommissionPaid   decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"commission_paid"`
	CreatedAt        time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

type DealerApplication struct {
	OrganizationName string `json:"organization_name" binding:"required"`
}

// ApplyDealer creates a pending dealer with a fresh organization. The
// profile's role flips to dealer only on admin approval.
func ApplyDealer(ctx context.Context, profileId int, input *DealerApplication) (*Dealer, error) {

	name := strings.TrimSpace(input.OrganizationName)
	if name == "" {
		return nil, errors.New("organization name is required")
	}

	db := config.GetDB()

	var count int64
	if err := db.WithContext(ctx).Model(&Dealer{}).Where("profile_id = ?", profileId).Count(&count).Error; err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, errors.New("dealer application already exists")
	}

	var dealer Dealer
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		org := Organization{
			Name:           name,
			DealerTier:     DealerTierStandard,
			CommissionRate: TierCommissionRate(DealerTierStandard),
		}
		if err := tx.Create(&org).Error; err != nil {
			return err
		}
		dealer = Dealer{
			ProfileId:      profileId,
			OrganizationId: org.ID,
			Status:         DealerStatusPending,
		}
		return tx.Create(&dealer).Error
	})
	if err != nil {
		return nil, err
	}
	return &dealer, nil
}

// ApproveDealer activates a pending dealer, assigns the referral code and
// promotes the profile's role.
func ApproveDealer(ctx context.Context, dealerId int) (*Dealer, error) {
	dealer, err := utils.FetchModel[Dealer](ctx, dealerId, "Profile")
	if err != nil {
		return nil, err
	}
	if dealer.Status == DealerStatusActive {
		return dealer, nil
	}
	if dealer.Status == DealerStatusDisabled {
		return nil, errors.New("dealer is disabled")
	}

	code := generateReferralCode()
	db := config.GetDB()
	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(dealer).Updates(map[string]interface{}{
			"Status":       DealerStatusActive,
			"ReferralCode": code,
		}).Error; err != nil {
			return err
		}
		return tx.Model(&Profile{}).Where("id = ?", dealer.ProfileId).
			UpdateColumn("role", ProfileRoleDealer).Error
	})
	if err != nil {
		return nil, err
	}

	if dealer.Profile != nil {
		if err := dealer.Profile.RemoveInstanceRedis(); err != nil {
			return nil, err
		}
	}
	dealer.Status = DealerStatusActive
	dealer.ReferralCode = &code
	return dealer, nil
}

func generateReferralCode() string {
	return "AURA-" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
}

// GetDealerByReferralCode resolves checkout attribution. Only active
// dealers earn commission.
func GetDealerByReferralCode(ctx context.Context, code string) (*Dealer, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return nil, utils.ErrorRecordNotFound
	}
	db := config.GetDB()
	var dealer Dealer
	if err := db.WithContext(ctx).Preload("Organization").
		Where("referral_code = ? AND status = ?", code, DealerStatusActive).
		First(&dealer).Error; err != nil {
		return nil, utils.ErrorRecordNotFound
	}
	return &dealer, nil
}

func GetDealerByProfileId(ctx context.Context, profileId int) (*Dealer, error) {
	db := config.GetDB()
	var dealer Dealer
	if err := db.WithContext(ctx).Preload("Organization").
		Where("profile_id = ?", profileId).First(&dealer).Error; err != nil {
		return nil, utils.ErrorRecordNotFound
	}
	return &dealer, nil
}

func ListDealers(ctx context.Context, status *DealerStatus) ([]*Dealer, error) {
	db := config.GetDB()
	dbCtx := db.WithContext(ctx).Preload("Profile").Preload("Organization")
	if status != nil {
		dbCtx = dbCtx.Where("status = ?", *status)
	}
	var rows []*Dealer
	if err := dbCtx.Order("created_at DESC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// DealerSummary is the portal dashboard payload.
type DealerSummary struct {
	Dealer             *Dealer         `json:"dealer"`
	PendingCommission  decimal.Decimal `json:"pending_commission"`
	AttributedOrders   int64           `json:"attributed_orders"`
	CommissionRate     decimal.Decimal `json:"commission_rate"`
}

func GetDealerSummary(ctx context.Context, profileId int) (*DealerSummary, error) {
	dealer, err := GetDealerByProfileId(ctx, profileId)
	if err != nil {
		return nil, err
	}

	db := config.GetDB()
	var orderCount int64
	if err := db.WithContext(ctx).Model(&Order{}).
		Where("dealer_id = ?", dealer.ID).Count(&orderCount).Error; err != nil {
		return nil, err
	}

	rate := decimal.Zero
	if dealer.Organization != nil {
		rate = dealer.Organization.CommissionRate
	}
	return &DealerSummary{
		Dealer:            dealer,
		PendingCommission: dealer.CommissionEarned.Sub(dealer.CommissionPaid),
		AttributedOrders:  orderCount,
		CommissionRate:    rate,
	}, nil
}
