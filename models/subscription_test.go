package models

import (
	"encoding/json"
	"testing"
)

func TestValidateBoxConfigExactSlots(t *testing.T) {
	ids := make([]int, 6)
	for i := range ids {
		ids[i] = i + 1
	}
	if err := ValidateBoxConfig(BoxSizeStarter, ids); err != nil {
		t.Fatalf("expected 6 items to fill a starter box: %v", err)
	}

	if err := ValidateBoxConfig(BoxSizeStarter, ids[:5]); err == nil {
		t.Fatal("expected underfilled box to be rejected")
	}
	if err := ValidateBoxConfig(BoxSizeStarter, append(ids, 7)); err == nil {
		t.Fatal("expected overfilled box to be rejected")
	}
	if err := ValidateBoxConfig(BoxSize("jumbo"), ids); err == nil {
		t.Fatal("expected unknown size to be rejected")
	}
}

func TestValidateBoxConfigRejectsBadIds(t *testing.T) {
	ids := []int{1, 2, 3, 4, 5, 0}
	if err := ValidateBoxConfig(BoxSizeStarter, ids); err == nil {
		t.Fatal("expected zero product id to be rejected")
	}
}

func TestBoxProductIdsRoundTrip(t *testing.T) {
	want := []int{3, 1, 4, 1, 5, 9}
	raw, err := json.Marshal(want)
	if err != nil {
		t.Fatal(err)
	}
	sub := Subscription{BoxConfig: raw}
	got, err := sub.BoxProductIds()
	if err != nil {
		t.Fatalf("BoxProductIds: %v", err)
	}
	if len(got) != len(want) {
		t.Fatalf("expected %d ids, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}

	empty := Subscription{}
	if ids, err := empty.BoxProductIds(); err != nil || len(ids) != 0 {
		t.Fatalf("expected empty config to decode to nothing, got %v %v", ids, err)
	}
}
