package models

import (
	"strings"
	"testing"

	"github.com/shopspring/decimal"
)

func TestGiftCardUsable(t *testing.T) {
	fresh := GiftCard{RemainingBalance: decimal.NewFromInt(25)}
	if !fresh.Usable() {
		t.Fatal("expected a fresh card with balance to be usable")
	}

	redeemer := 5
	redeemed := GiftCard{RemainingBalance: decimal.NewFromInt(25), RedeemerId: &redeemer}
	if redeemed.Usable() {
		t.Fatal("expected a redeemed card to be unusable")
	}

	drained := GiftCard{RemainingBalance: decimal.Zero}
	if drained.Usable() {
		t.Fatal("expected a zero-balance card to be unusable")
	}
}

func TestGenerateGiftCardCode(t *testing.T) {
	code := generateGiftCardCode()
	if !strings.HasPrefix(code, "GIFT-") {
		t.Fatalf("expected GIFT- prefix, got %s", code)
	}
	if len(code) != len("GIFT-")+12 {
		t.Fatalf("unexpected code length: %s", code)
	}
	if code != strings.ToUpper(code) {
		t.Fatalf("expected uppercase code, got %s", code)
	}
}
