package config

import (
	"os"
	"strings"
)

// FulfillmentEventsDisabled turns off the outbox dispatcher's Pub/Sub
// publishing (rows still accumulate and can be replayed later).
//
// Set via env:
// - FULFILLMENT_EVENTS_DISABLED=true
func FulfillmentEventsDisabled() bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv("FULFILLMENT_EVENTS_DISABLED")))
	return v == "1" || v == "true" || v == "yes" || v == "y"
}

// AllowLegacyInventoryKey keeps the static INVENTORY_API_KEY bearer token
// accepted alongside signed service tokens during the automation-tool
// migration window.
//
// Set via env:
// - ALLOW_LEGACY_INVENTORY_KEY=true (default true when the key is set)
func AllowLegacyInventoryKey() bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv("ALLOW_LEGACY_INVENTORY_KEY")))
	if v == "" {
		return strings.TrimSpace(os.Getenv("INVENTORY_API_KEY")) != ""
	}
	return v == "1" || v == "true" || v == "yes" || v == "y"
}
