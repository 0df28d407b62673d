package models

import (
	"context"

	"github.com/aurafoods/aura_backend/config"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"time"
)

// CommissionTransaction records one dealer payout line per attributed
// order. Rate is snapshotted at order time; later tier changes do not
// rewrite history.
type CommissionTransaction struct {
	ID        int              `gorm:"primary_key" json:"id"`
	DealerId  int              `gorm:"not null;index" json:"dealer_id"`
	Dealer    *Dealer          `gorm:"foreignKey:DealerId" json:"dealer,omitempty"`
	OrderId   int              `gorm:"not null;index" json:"order_id"`
	Amount    decimal.Decimal  `gorm:"type:decimal(12,2);not null" json:"amount"`
	Rate      decimal.Decimal  `gorm:"type:decimal(5,4);not null" json:"rate"`
	Status    CommissionStatus `gorm:"type:enum('pending','paid');not null;default:'pending';index" json:"status"`
	PaidAt    *time.Time       `json:"paid_at"`
	CreatedAt time.Time        `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time        `gorm:"autoUpdateTime" json:"updated_at"`
}

// CreateCommissionTx writes the commission line and bumps the dealer's
// earned counter inside the caller's transaction.
func CreateCommissionTx(ctx context.Context, tx *gorm.DB, dealer *Dealer, orderId int, orderTotal decimal.Decimal) (*CommissionTransaction, error) {
	rate := TierCommissionRate(DealerTierStandard)
	if dealer.Organization != nil {
		rate = dealer.Organization.CommissionRate
	}
	amount := orderTotal.Mul(rate).Round(2)

	record := CommissionTransaction{
		DealerId: dealer.ID,
		OrderId:  orderId,
		Amount:   amount,
		Rate:     rate,
		Status:   CommissionStatusPending,
	}
	if err := tx.Create(&record).Error; err != nil {
		return nil, err
	}
	if err := tx.Model(&Dealer{}).Where("id = ?", dealer.ID).
		UpdateColumn("commission_earned", gorm.Expr("commission_earned + ?", amount)).Error; err != nil {
		return nil, err
	}
	return &record, nil
}

func ListCommissionsByDealer(ctx context.Context, dealerId int) ([]*CommissionTransaction, error) {
	db := config.GetDB()
	var rows []*CommissionTransaction
	if err := db.WithContext(ctx).Where("dealer_id = ?", dealerId).
		Order("created_at DESC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// MarkCommissionsPaid settles all pending lines for a dealer.
func MarkCommissionsPaid(ctx context.Context, dealerId int) (decimal.Decimal, error) {
	db := config.GetDB()

	var rows []*CommissionTransaction
	if err := db.WithContext(ctx).
		Where("dealer_id = ? AND status = ?", dealerId, CommissionStatusPending).
		Find(&rows).Error; err != nil {
		return decimal.Zero, err
	}

	total := decimal.Zero
	for _, row := range rows {
		total = total.Add(row.Amount)
	}
	if total.IsZero() {
		return decimal.Zero, nil
	}

	now := time.Now().UTC()
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&CommissionTransaction{}).
			Where("dealer_id = ? AND status = ?", dealerId, CommissionStatusPending).
			Updates(map[string]interface{}{"Status": CommissionStatusPaid, "PaidAt": &now}).Error; err != nil {
			return err
		}
		return tx.Model(&Dealer{}).Where("id = ?", dealerId).
			UpdateColumn("commission_paid", gorm.Expr("commission_paid + ?", total)).Error
	})
	if err != nil {
		return decimal.Zero, err
	}
	return total, nil
}
