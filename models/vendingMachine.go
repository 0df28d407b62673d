package models

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/aurafoods/aura_backend/config"
	"github.com/aurafoods/aura_backend/utils"
	"gorm.io/gorm/clause"
)

// VendingMachine is a B2B placement stocked with meal SKUs.
type VendingMachine struct {
	ID        int                  `gorm:"primary_key" json:"id"`
	Label     string               `gorm:"size:100;not null" json:"label" binding:"required"`
	Location  string               `gorm:"size:255;not null" json:"location" binding:"required"`
	DealerId  *int                 `gorm:"index" json:"dealer_id"`
	Dealer    *Dealer              `gorm:"foreignKey:DealerId" json:"dealer,omitempty"`
	Status    VendingMachineStatus `gorm:"type:enum('online','offline','maintenance');not null;default:'offline'" json:"status"`
	CreatedAt time.Time            `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time            `gorm:"autoUpdateTime" json:"updated_at"`
}

// VendingMachineInventory is per-machine slot stock.
type VendingMachineInventory struct {
	ID               int       `gorm:"primary_key" json:"id"`
	VendingMachineId int       `gorm:"not null;index:uniq_vm_slot,unique" json:"vending_machine_id"`
	SlotCode         string    `gorm:"size:10;not null;index:uniq_vm_slot,unique" json:"slot_code"`
	ProductId        int       `gorm:"not null;index" json:"product_id"`
	Product          *Product  `gorm:"foreignKey:ProductId" json:"product,omitempty"`
	Quantity         int       `gorm:"not null;default:0" json:"quantity"`
	Capacity         int       `gorm:"not null;default:10" json:"capacity"`
	CreatedAt        time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewVendingMachine struct {
	Label    string `json:"label" binding:"required"`
	Location string `json:"location" binding:"required"`
	DealerId *int   `json:"dealer_id"`
}

func CreateVendingMachine(ctx context.Context, input *NewVendingMachine) (*VendingMachine, error) {
	if input.DealerId != nil {
		if err := utils.ValidateResourceId[Dealer](ctx, *input.DealerId); err != nil {
			return nil, errors.New("dealer not found")
		}
	}
	machine := VendingMachine{
		Label:    strings.TrimSpace(input.Label),
		Location: strings.TrimSpace(input.Location),
		DealerId: input.DealerId,
		Status:   VendingMachineStatusOffline,
	}
	db := config.GetDB()
	if err := db.WithContext(ctx).Create(&machine).Error; err != nil {
		return nil, err
	}
	return &machine, nil
}

func ListVendingMachines(ctx context.Context) ([]*VendingMachine, error) {
	db := config.GetDB()
	var rows []*VendingMachine
	if err := db.WithContext(ctx).Preload("Dealer").Order("id").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func UpdateVendingMachineStatus(ctx context.Context, id int, status VendingMachineStatus) (*VendingMachine, error) {
	switch status {
	case VendingMachineStatusOnline, VendingMachineStatusOffline, VendingMachineStatusMaintenance:
	default:
		return nil, errors.New("invalid machine status")
	}
	machine, err := utils.FetchModel[VendingMachine](ctx, id)
	if err != nil {
		return nil, err
	}
	db := config.GetDB()
	if err := db.WithContext(ctx).Model(machine).UpdateColumn("status", status).Error; err != nil {
		return nil, err
	}
	machine.Status = status
	return machine, nil
}

type VendingSlotInput struct {
	SlotCode  string `json:"slot_code" binding:"required"`
	ProductId int    `json:"product_id" binding:"required"`
	Quantity  int    `json:"quantity"`
	Capacity  int    `json:"capacity"`
}

// UpsertVendingSlot assigns a product and stock level to a machine slot.
func UpsertVendingSlot(ctx context.Context, machineId int, input *VendingSlotInput) (*VendingMachineInventory, error) {
	if input.Quantity < 0 {
		return nil, errors.New("quantity cannot be negative")
	}
	if input.Capacity <= 0 {
		input.Capacity = 10
	}
	if input.Quantity > input.Capacity {
		return nil, errors.New("quantity exceeds slot capacity")
	}
	if err := utils.ValidateResourceId[VendingMachine](ctx, machineId); err != nil {
		return nil, errors.New("vending machine not found")
	}
	if err := utils.ValidateResourceId[Product](ctx, input.ProductId); err != nil {
		return nil, errors.New("product not found")
	}

	slot := VendingMachineInventory{
		VendingMachineId: machineId,
		SlotCode:         strings.ToUpper(strings.TrimSpace(input.SlotCode)),
		ProductId:        input.ProductId,
		Quantity:         input.Quantity,
		Capacity:         input.Capacity,
	}

	db := config.GetDB()
	err := db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "vending_machine_id"}, {Name: "slot_code"}},
		DoUpdates: clause.AssignmentColumns([]string{"product_id", "quantity", "capacity"}),
	}).Create(&slot).Error
	if err != nil {
		return nil, err
	}
	return &slot, nil
}

func ListVendingSlots(ctx context.Context, machineId int) ([]*VendingMachineInventory, error) {
	if err := utils.ValidateResourceId[VendingMachine](ctx, machineId); err != nil {
		return nil, errors.New("vending machine not found")
	}
	db := config.GetDB()
	var rows []*VendingMachineInventory
	if err := db.WithContext(ctx).Preload("Product").
		Where("vending_machine_id = ?", machineId).
		Order("slot_code").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
