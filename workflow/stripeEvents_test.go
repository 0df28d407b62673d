package workflow

import (
	"encoding/json"
	"testing"

	"github.com/aurafoods/aura_backend/models"
	"github.com/aurafoods/aura_backend/stripe"
)

// NOTE: These tests are intentionally DB-free. They cover metadata parsing
// and status mapping; full webhook flows need MySQL and belong in an
// integration environment.

func TestParseProductIds(t *testing.T) {
	ids, err := parseProductIds("1,2, 3 ,2")
	if err != nil {
		t.Fatalf("parseProductIds: %v", err)
	}
	want := []int{1, 2, 3, 2}
	if len(ids) != len(want) {
		t.Fatalf("expected %v, got %v", want, ids)
	}
	for i := range want {
		if ids[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, ids)
		}
	}
}

func TestParseProductIdsRejectsGarbage(t *testing.T) {
	for _, csv := range []string{"", "  ", "1,abc", "one"} {
		if _, err := parseProductIds(csv); err == nil {
			t.Fatalf("expected error for %q", csv)
		}
	}
}

func TestStripeLockKeyPrefersSubscription(t *testing.T) {
	cases := []struct {
		object string
		want   string
	}{
		{`{"id":"in_1","subscription":"sub_1","customer":"cus_1"}`, "StripeLock:sub_1"},
		{`{"id":"cs_1","customer":"cus_1"}`, "StripeLock:cus_1"},
		{`{"id":"sub_2"}`, "StripeLock:sub_2"},
		{`{}`, "StripeLock:evt_1"},
	}
	for _, tc := range cases {
		event := &stripe.Event{Id: "evt_1"}
		event.Data.Object = json.RawMessage(tc.object)
		if got := stripeLockKey(event); got != tc.want {
			t.Fatalf("object %s: expected %s, got %s", tc.object, tc.want, got)
		}
	}
}

func TestMapStripeSubscriptionStatus(t *testing.T) {
	cases := map[string]models.SubscriptionStatus{
		"active":             models.SubscriptionStatusActive,
		"trialing":           models.SubscriptionStatusActive,
		"past_due":           models.SubscriptionStatusPastDue,
		"unpaid":             models.SubscriptionStatusPastDue,
		"canceled":           models.SubscriptionStatusCancelled,
		"incomplete_expired": models.SubscriptionStatusCancelled,
	}
	for in, want := range cases {
		if got := mapStripeSubscriptionStatus(in); got != want {
			t.Fatalf("expected %s -> %s, got %s", in, want, got)
		}
	}
}
