package models

import "testing"

func TestBoxSlots(t *testing.T) {
	cases := []struct {
		size  BoxSize
		slots int
	}{
		{BoxSizeStarter, 6},
		{BoxSizeVoyager, 12},
		{BoxSizeBunker, 24},
	}
	for _, tc := range cases {
		n, ok := BoxSlots(tc.size)
		if !ok {
			t.Fatalf("expected %s to be a known size", tc.size)
		}
		if n != tc.slots {
			t.Fatalf("expected %s to have %d slots, got %d", tc.size, tc.slots, n)
		}
	}
	if _, ok := BoxSlots(BoxSize("jumbo")); ok {
		t.Fatal("expected jumbo to be unknown")
	}
}

func TestValidateOrderTransition(t *testing.T) {
	allowed := []struct{ from, to OrderStatus }{
		{OrderStatusPending, OrderStatusProcessing},
		{OrderStatusPending, OrderStatusCancelled},
		{OrderStatusProcessing, OrderStatusShipped},
		{OrderStatusProcessing, OrderStatusCancelled},
		{OrderStatusShipped, OrderStatusDelivered},
	}
	for _, tc := range allowed {
		if err := ValidateOrderTransition(tc.from, tc.to); err != nil {
			t.Fatalf("expected %s -> %s to be allowed: %v", tc.from, tc.to, err)
		}
	}

	denied := []struct{ from, to OrderStatus }{
		{OrderStatusPending, OrderStatusShipped},
		{OrderStatusPending, OrderStatusDelivered},
		{OrderStatusShipped, OrderStatusCancelled},
		{OrderStatusDelivered, OrderStatusPending},
		{OrderStatusCancelled, OrderStatusProcessing},
	}
	for _, tc := range denied {
		if err := ValidateOrderTransition(tc.from, tc.to); err == nil {
			t.Fatalf("expected %s -> %s to be rejected", tc.from, tc.to)
		}
	}
}

func TestParseProfileRole(t *testing.T) {
	for _, s := range []string{"customer", "dealer", "admin"} {
		role, err := ParseProfileRole(s)
		if err != nil {
			t.Fatalf("expected %s to parse: %v", s, err)
		}
		if string(role) != s {
			t.Fatalf("expected %s, got %s", s, role)
		}
	}
	if _, err := ParseProfileRole("superuser"); err == nil {
		t.Fatal("expected superuser to be rejected")
	}
}

func TestParseOrderStatus(t *testing.T) {
	if _, err := ParseOrderStatus("shipped"); err != nil {
		t.Fatalf("expected shipped to parse: %v", err)
	}
	if _, err := ParseOrderStatus("teleported"); err == nil {
		t.Fatal("expected teleported to be rejected")
	}
}
