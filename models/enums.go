package models

import "errors"

type ProfileRole string

const (
	ProfileRoleCustomer ProfileRole = "customer"
	ProfileRoleDealer   ProfileRole = "dealer"
	ProfileRoleAdmin    ProfileRole = "admin"
)

func ParseProfileRole(s string) (ProfileRole, error) {
	switch s {
	case "customer":
		return ProfileRoleCustomer, nil
	case "dealer":
		return ProfileRoleDealer, nil
	case "admin":
		return ProfileRoleAdmin, nil
	default:
		return "", errors.New("invalid profile role")
	}
}

type BoxSize string

const (
	BoxSizeStarter BoxSize = "starter"
	BoxSizeVoyager BoxSize = "voyager"
	BoxSizeBunker  BoxSize = "bunker"
)

// Slot counts per subscription tier.
var boxSlots = map[BoxSize]int{
	BoxSizeStarter: 6,
	BoxSizeVoyager: 12,
	BoxSizeBunker:  24,
}

func BoxSlots(size BoxSize) (int, bool) {
	n, ok := boxSlots[size]
	return n, ok
}

func AllBoxSizes() []BoxSize {
	return []BoxSize{BoxSizeStarter, BoxSizeVoyager, BoxSizeBunker}
}

type SubscriptionStatus string

const (
	SubscriptionStatusActive    SubscriptionStatus = "active"
	SubscriptionStatusPaused    SubscriptionStatus = "paused"
	SubscriptionStatusPastDue   SubscriptionStatus = "past_due"
	SubscriptionStatusCancelled SubscriptionStatus = "cancelled"
)

type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusShipped    OrderStatus = "shipped"
	OrderStatusDelivered  OrderStatus = "delivered"
	OrderStatusCancelled  OrderStatus = "cancelled"
)

// orderTransitions holds the allowed forward moves for admin status updates.
var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusPending:    {OrderStatusProcessing, OrderStatusCancelled},
	OrderStatusProcessing: {OrderStatusShipped, OrderStatusCancelled},
	OrderStatusShipped:    {OrderStatusDelivered},
}

func ValidateOrderTransition(from, to OrderStatus) error {
	for _, next := range orderTransitions[from] {
		if next == to {
			return nil
		}
	}
	return errors.New("invalid order status transition")
}

func ParseOrderStatus(s string) (OrderStatus, error) {
	switch s {
	case "pending", "processing", "shipped", "delivered", "cancelled":
		return OrderStatus(s), nil
	default:
		return "", errors.New("invalid order status")
	}
}

type DealerStatus string

const (
	DealerStatusPending  DealerStatus = "pending"
	DealerStatusActive   DealerStatus = "active"
	DealerStatusDisabled DealerStatus = "disabled"
)

type DealerTier string

const (
	DealerTierStandard DealerTier = "standard"
	DealerTierSilver   DealerTier = "silver"
	DealerTierGold     DealerTier = "gold"
)

type CommissionStatus string

const (
	CommissionStatusPending CommissionStatus = "pending"
	CommissionStatusPaid    CommissionStatus = "paid"
)

type VendingMachineStatus string

const (
	VendingMachineStatusOnline      VendingMachineStatus = "online"
	VendingMachineStatusOffline     VendingMachineStatus = "offline"
	VendingMachineStatusMaintenance VendingMachineStatus = "maintenance"
)
