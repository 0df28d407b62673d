package models

import (
	"testing"
	"time"
)

func TestStatusChangeKeepsPriorStatusInPayload(t *testing.T) {
	order := &Order{ID: 12, Status: OrderStatusProcessing}
	now := time.Now().UTC()

	updates, payload := statusChange(order, OrderStatusShipped, now)

	// gorm's Updates assigns the map values onto the struct; the payload
	// built beforehand must still carry the prior status.
	order.Status = OrderStatusShipped

	if payload["from"] != OrderStatusProcessing {
		t.Fatalf("expected from=processing, got %v", payload["from"])
	}
	if payload["to"] != OrderStatusShipped {
		t.Fatalf("expected to=shipped, got %v", payload["to"])
	}
	if payload["order_id"] != 12 {
		t.Fatalf("expected order_id=12, got %v", payload["order_id"])
	}
	if updates["Status"] != OrderStatusShipped {
		t.Fatalf("expected Status update, got %v", updates["Status"])
	}
	if _, ok := updates["ShippedAt"]; !ok {
		t.Fatal("expected ShippedAt to be set on ship")
	}
}

func TestStatusChangeSetsDeliveredAt(t *testing.T) {
	order := &Order{ID: 3, Status: OrderStatusShipped}
	updates, _ := statusChange(order, OrderStatusDelivered, time.Now().UTC())
	if _, ok := updates["DeliveredAt"]; !ok {
		t.Fatal("expected DeliveredAt to be set on delivery")
	}
	if _, ok := updates["ShippedAt"]; ok {
		t.Fatal("did not expect ShippedAt on delivery")
	}
}
