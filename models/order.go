package models

import (
	"context"
	"encoding/json"
	"time"

	"github.com/aurafoods/aura_backend/config"
	"github.com/aurafoods/aura_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// OrderItem is one line of an order's items JSON.
type OrderItem struct {
	ProductId int             `json:"product_id"`
	Name      string          `json:"name"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

type Order struct {
	ID             int             `gorm:"primary_key" json:"id"`
	ProfileId      int             `gorm:"not null;index" json:"profile_id"`
	Profile        *Profile        `gorm:"foreignKey:ProfileId" json:"profile,omitempty"`
	SubscriptionId *int            `gorm:"index" json:"subscription_id"`
	DealerId       *int            `gorm:"index" json:"dealer_id"`
	Items          json.RawMessage `gorm:"type:json" json:"items"`
	Subtotal       decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"subtotal"`
	CreditsApplied decimal.Decimal `gorm:"type:decimal(10,2);not null;default:0" json:"credits_applied"`
	Total          decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"total"`
	Status         OrderStatus     `gorm:"type:enum('pending','processing','shipped','delivered','cancelled');not null;default:'pending';index" json:"status"`
	StripeSessionId string         `gorm:"size:64;index" json:"stripe_session_id"`
	StripeInvoiceId string         `gorm:"size:64;index" json:"stripe_invoice_id"`
	ShippedAt      *time.Time      `json:"shipped_at"`
	DeliveredAt    *time.Time      `json:"delivered_at"`
	CreatedAt      time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Order) TableName() string { return "aura_orders" }

func (o *Order) OrderItems() ([]OrderItem, error) {
	var items []OrderItem
	if len(o.Items) == 0 {
		return items, nil
	}
	if err := json.Unmarshal(o.Items, &items); err != nil {
		return nil, err
	}
	return items, nil
}

func ListOrdersByProfile(ctx context.Context, profileId int) ([]*Order, error) {
	db := config.GetDB()
	var rows []*Order
	if err := db.WithContext(ctx).Where("profile_id = ?", profileId).
		Order("created_at DESC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

type OrderFilter struct {
	Status *OrderStatus
	From   *time.Time
	To     *time.Time
	Limit  int
	Offset int
}

// ListOrders is the admin view, newest first.
func ListOrders(ctx context.Context, filter OrderFilter) ([]*Order, int64, error) {
	db := config.GetDB()
	dbCtx := db.WithContext(ctx).Model(&Order{})

	if filter.Status != nil {
		dbCtx = dbCtx.Where("status = ?", *filter.Status)
	}
	if filter.From != nil {
		dbCtx = dbCtx.Where("created_at >= ?", *filter.From)
	}
	if filter.To != nil {
		dbCtx = dbCtx.Where("created_at < ?", *filter.To)
	}

	var total int64
	if err := dbCtx.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	limit := filter.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	var rows []*Order
	if err := dbCtx.Preload("Profile").Order("created_at DESC").
		Limit(limit).Offset(filter.Offset).Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

func GetOrder(ctx context.Context, id int) (*Order, error) {
	return utils.FetchModel[Order](ctx, id, "Profile")
}

func GetOrderForProfile(ctx context.Context, id int, profileId int) (*Order, error) {
	order, err := utils.FetchModel[Order](ctx, id)
	if err != nil {
		return nil, err
	}
	if order.ProfileId != profileId {
		return nil, utils.ErrorRecordNotFound
	}
	return order, nil
}

// UpdateOrderStatus moves an order along the fulfilment path. Forward
// transitions only; the change is written together with its outbox event.
func UpdateOrderStatus(ctx context.Context, id int, to OrderStatus) (*Order, error) {
	order, err := utils.FetchModel[Order](ctx, id)
	if err != nil {
		return nil, err
	}
	if err := ValidateOrderTransition(order.Status, to); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	// Updates writes the map values back onto the struct, so the event
	// payload is built before it runs.
	updates, payload := statusChange(order, to, now)

	db := config.GetDB()
	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(order).Updates(updates).Error; err != nil {
			return err
		}
		return PublishEvent(ctx, tx, EventTopicOrderStatusChanged, "order", order.ID, payload)
	})
	if err != nil {
		return nil, err
	}

	order.Status = to
	switch to {
	case OrderStatusShipped:
		order.ShippedAt = &now
	case OrderStatusDelivered:
		order.DeliveredAt = &now
	}
	return order, nil
}

// statusChange builds the column updates and the outbox payload for a
// validated transition. The payload snapshots the order's current status
// as "from" so the published event reports the real prior state.
func statusChange(order *Order, to OrderStatus, now time.Time) (map[string]interface{}, map[string]interface{}) {
	updates := map[string]interface{}{"Status": to}
	switch to {
	case OrderStatusShipped:
		updates["ShippedAt"] = &now
	case OrderStatusDelivered:
		updates["DeliveredAt"] = &now
	}
	payload := map[string]interface{}{
		"order_id": order.ID,
		"from":     order.Status,
		"to":       to,
	}
	return updates, payload
}

// GetOrderByStripeInvoiceId guards against double-creating recurring orders.
func GetOrderByStripeInvoiceId(ctx context.Context, invoiceId string) (*Order, error) {
	db := config.GetDB()
	var order Order
	if err := db.WithContext(ctx).Where("stripe_invoice_id = ?", invoiceId).
		First(&order).Error; err != nil {
		return nil, utils.ErrorRecordNotFound
	}
	return &order, nil
}
