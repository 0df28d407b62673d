package workflow

import (
	"context"
	"encoding/json"
	"os"
	"testing"

	"github.com/aurafoods/aura_backend/config"
	"github.com/aurafoods/aura_backend/models"
	"github.com/aurafoods/aura_backend/stripe"
	"github.com/google/uuid"
)

// Needs MySQL (docker compose up); the rollback-vs-failure-marker
// behavior cannot be observed without a real transaction.
func TestProcessStripeEventPersistsFailureMarker(t *testing.T) {
	if os.Getenv("INTEGRATION_TESTS") != "1" {
		t.Skip("set INTEGRATION_TESTS=1 to run against MySQL")
	}
	if config.GetDB() == nil {
		config.ConnectDatabaseWithRetry()
		models.MigrateTable()
	}

	// Empty metadata makes handleCheckoutCompleted fail after the
	// idempotency claim, rolling the whole transaction back.
	eventId := "evt_itest_" + uuid.NewString()
	event := &stripe.Event{Id: eventId, Type: "checkout.session.completed"}
	event.Data.Object = json.RawMessage(`{"id":"cs_itest","metadata":{}}`)

	if err := ProcessStripeEvent(context.Background(), event); err == nil {
		t.Fatal("expected processing to fail")
	}

	var key models.IdempotencyKey
	err := config.GetDB().
		Where("handler_name = ? AND message_id = ?", stripeHandlerName, eventId).
		First(&key).Error
	if err != nil {
		t.Fatalf("expected a persisted idempotency row after rollback: %v", err)
	}
	if key.Status != models.IdempotencyStatusFailed {
		t.Fatalf("expected FAILED, got %s", key.Status)
	}
	if key.LastError == nil || *key.LastError == "" {
		t.Fatal("expected last_error to be recorded")
	}
}
