package models

import (
	"context"
	"errors"
	"time"

	"github.com/aurafoods/aura_backend/config"
	"github.com/aurafoods/aura_backend/utils"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const DefaultWarehouse = "main"

// Inventory tracks per-product stock, one row per product per warehouse.
type Inventory struct {
	ID               int        `gorm:"primary_key" json:"id"`
	ProductId        int        `gorm:"not null;index:uniq_inventory,unique" json:"product_id"`
	Warehouse        string     `gorm:"size:50;not null;default:'main';index:uniq_inventory,unique" json:"warehouse"`
	Product          *Product   `gorm:"foreignKey:ProductId" json:"product,omitempty"`
	Quantity         int        `gorm:"not null;default:0" json:"quantity"`
	ReservedQuantity int        `gorm:"not null;default:0" json:"reserved_quantity"`
	ReorderPoint     int        `gorm:"not null;default:10" json:"reorder_point"`
	LastRestockedAt  *time.Time `json:"last_restocked_at"`
	CreatedAt        time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

type RestockInput struct {
	ProductId int    `json:"product_id" binding:"required"`
	Quantity  int    `json:"quantity" binding:"required"`
	Warehouse string `json:"warehouse"`
}

// ListInventory returns inventory rows with their products, optionally
// filtered by product or warehouse.
func ListInventory(ctx context.Context, productId *int, warehouse *string) ([]*Inventory, error) {
	db := config.GetDB()
	dbCtx := db.WithContext(ctx).Preload("Product")
	if productId != nil {
		dbCtx = dbCtx.Where("product_id = ?", *productId)
	}
	if warehouse != nil && *warehouse != "" {
		dbCtx = dbCtx.Where("warehouse = ?", *warehouse)
	}
	var rows []*Inventory
	if err := dbCtx.Order("product_id").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// ListInventoryAlerts returns rows at or below their reorder point
// (available quantity, i.e. quantity minus reserved).
func ListInventoryAlerts(ctx context.Context) ([]*Inventory, error) {
	db := config.GetDB()
	var rows []*Inventory
	if err := db.WithContext(ctx).Preload("Product").
		Where("quantity - reserved_quantity <= reorder_point").
		Order("product_id").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// RestockInventory adds stock atomically: the row is locked, the counter
// bumped, and the restock event written to the outbox in one transaction.
// Creates the inventory row if the product has none yet.
func RestockInventory(ctx context.Context, input *RestockInput) (*Inventory, error) {

	if input.Quantity <= 0 {
		return nil, errors.New("quantity must be positive")
	}

	if err := utils.ValidateResourceId[Product](ctx, input.ProductId); err != nil {
		return nil, errors.New("product not found")
	}

	warehouse := input.Warehouse
	if warehouse == "" {
		warehouse = DefaultWarehouse
	}

	db := config.GetDB()
	var inv Inventory

	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("product_id = ? AND warehouse = ?", input.ProductId, warehouse).First(&inv).Error
		if err != nil {
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return err
			}
			inv = Inventory{ProductId: input.ProductId, Warehouse: warehouse}
			if err := tx.Create(&inv).Error; err != nil {
				return err
			}
		}

		now := time.Now().UTC()
		inv.Quantity += input.Quantity
		inv.LastRestockedAt = &now
		if err := tx.Model(&inv).Updates(map[string]interface{}{
			"Quantity":        inv.Quantity,
			"LastRestockedAt": inv.LastRestockedAt,
		}).Error; err != nil {
			return err
		}

		// keep the catalog's stock_level in step
		if err := tx.Model(&Product{}).Where("id = ?", input.ProductId).
			UpdateColumn("stock_level", inv.Quantity).Error; err != nil {
			return err
		}

		return PublishEvent(ctx, tx, EventTopicInventoryRestocked, "inventory", inv.ID, map[string]interface{}{
			"product_id": input.ProductId,
			"quantity":   input.Quantity,
			"new_total":  inv.Quantity,
		})
	})
	if err != nil {
		return nil, err
	}

	if err := removeCatalogRedis(); err != nil {
		return nil, err
	}
	return &inv, nil
}

// DecrementInventoryTx reserves stock for an order inside the caller's
// transaction. A low stock event is enqueued when the available quantity
// crosses the reorder point. Oversell is tolerated (quantity may go
// negative) so paid orders are never dropped; the alert surfaces it.
func DecrementInventoryTx(ctx context.Context, tx *gorm.DB, productId int, qty int) error {
	if qty <= 0 {
		return errors.New("quantity must be positive")
	}

	var inv Inventory
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("product_id = ? AND warehouse = ?", productId, DefaultWarehouse).First(&inv).Error
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		inv = Inventory{ProductId: productId, Warehouse: DefaultWarehouse}
		if err := tx.Create(&inv).Error; err != nil {
			return err
		}
	}

	wasAbove := inv.Quantity-inv.ReservedQuantity > inv.ReorderPoint
	inv.Quantity -= qty
	if err := tx.Model(&inv).UpdateColumn("quantity", inv.Quantity).Error; err != nil {
		return err
	}
	if err := tx.Model(&Product{}).Where("id = ?", productId).
		UpdateColumn("stock_level", inv.Quantity).Error; err != nil {
		return err
	}

	if wasAbove && inv.Quantity-inv.ReservedQuantity <= inv.ReorderPoint {
		return PublishEvent(ctx, tx, EventTopicInventoryLowStock, "inventory", inv.ID, map[string]interface{}{
			"product_id":    productId,
			"available":     inv.Quantity - inv.ReservedQuantity,
			"reorder_point": inv.ReorderPoint,
		})
	}
	return nil
}

type AlertSettingsInput struct {
	ProductId        int    `json:"product_id" binding:"required"`
	Warehouse        string `json:"warehouse"`
	ReorderPoint     *int   `json:"reorder_point"`
	ReservedQuantity *int   `json:"reserved_quantity"`
}

// UpdateAlertSettings tunes the alert threshold and reserved stock.
func UpdateAlertSettings(ctx context.Context, input *AlertSettingsInput) (*Inventory, error) {
	if input.ReorderPoint == nil && input.ReservedQuantity == nil {
		return nil, errors.New("nothing to update")
	}
	if input.ReorderPoint != nil && *input.ReorderPoint < 0 {
		return nil, errors.New("reorder point cannot be negative")
	}
	if input.ReservedQuantity != nil && *input.ReservedQuantity < 0 {
		return nil, errors.New("reserved quantity cannot be negative")
	}

	warehouse := input.Warehouse
	if warehouse == "" {
		warehouse = DefaultWarehouse
	}

	db := config.GetDB()
	var inv Inventory
	if err := db.WithContext(ctx).
		Where("product_id = ? AND warehouse = ?", input.ProductId, warehouse).
		First(&inv).Error; err != nil {
		return nil, utils.ErrorRecordNotFound
	}

	updates := map[string]interface{}{}
	if input.ReorderPoint != nil {
		updates["ReorderPoint"] = *input.ReorderPoint
		inv.ReorderPoint = *input.ReorderPoint
	}
	if input.ReservedQuantity != nil {
		updates["ReservedQuantity"] = *input.ReservedQuantity
		inv.ReservedQuantity = *input.ReservedQuantity
	}
	if err := db.WithContext(ctx).Model(&inv).Updates(updates).Error; err != nil {
		return nil, err
	}
	return &inv, nil
}
