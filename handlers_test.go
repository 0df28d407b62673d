package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/aurafoods/aura_backend/appctx"
	"github.com/aurafoods/aura_backend/middlewares"
	"github.com/aurafoods/aura_backend/stripe"
	"github.com/gin-gonic/gin"
)

// NOTE: These tests exercise the request validation paths that must reject
// before any DB write happens; they run without MySQL or Redis.

func performJSON(handler gin.HandlerFunc, method, path string, body []byte, header map[string]string) *httptest.ResponseRecorder {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range header {
		req.Header.Set(k, v)
	}
	c.Request = req
	handler(c)
	return w
}

func TestStripeWebhookUnconfiguredSecret(t *testing.T) {
	t.Setenv("STRIPE_WEBHOOK_SECRET", "")

	w := performJSON(stripeWebhookHandler(), http.MethodPost, "/api/webhooks/stripe",
		[]byte(`{"id":"evt_1","type":"invoice.paid"}`), nil)
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d: %s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), "webhook not configured") {
		t.Fatalf("expected configuration error body, got %s", w.Body.String())
	}
}

func TestStripeWebhookRejectsMissingSignature(t *testing.T) {
	t.Setenv("STRIPE_WEBHOOK_SECRET", "whsec_test")

	w := performJSON(stripeWebhookHandler(), http.MethodPost, "/api/webhooks/stripe",
		[]byte(`{"id":"evt_1","type":"invoice.paid"}`), nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", w.Code, w.Body.String())
	}
}

func TestStripeWebhookRejectsBadSignature(t *testing.T) {
	t.Setenv("STRIPE_WEBHOOK_SECRET", "whsec_test")

	payload := []byte(`{"id":"evt_1","type":"invoice.paid"}`)
	header := stripe.SignPayload(payload, "whsec_wrong", time.Now())

	w := performJSON(stripeWebhookHandler(), http.MethodPost, "/api/webhooks/stripe",
		payload, map[string]string{"Stripe-Signature": header})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", w.Code, w.Body.String())
	}
}

func TestRestockRejectsNonPositiveQuantity(t *testing.T) {
	for _, quantity := range []int{0, -5} {
		body, _ := json.Marshal(map[string]interface{}{
			"product_id": 1,
			"quantity":   quantity,
		})
		w := performJSON(restockInventoryHandler(), http.MethodPost, "/api/inventory", body, nil)
		if w.Code != http.StatusBadRequest {
			t.Fatalf("quantity=%d: expected 400, got %d: %s", quantity, w.Code, w.Body.String())
		}
	}
}

func TestRestockRejectsMissingProductId(t *testing.T) {
	body := []byte(`{"quantity": 10}`)
	w := performJSON(restockInventoryHandler(), http.MethodPost, "/api/inventory", body, nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", w.Code, w.Body.String())
	}
}

func TestValidateBoxRejectsSlotMismatch(t *testing.T) {
	body, _ := json.Marshal(map[string]interface{}{
		"box_size":    "starter",
		"product_ids": []int{1, 2, 3}, // starter needs 6
	})
	w := performJSON(validateBoxHandler(), http.MethodPost, "/api/box/validate", body, nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", w.Code, w.Body.String())
	}

	var resp map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if valid, _ := resp["valid"].(bool); valid {
		t.Fatal("expected valid=false")
	}
}

func TestValidateBoxRejectsUnknownSize(t *testing.T) {
	body, _ := json.Marshal(map[string]interface{}{
		"box_size":    "jumbo",
		"product_ids": []int{1, 2, 3, 4, 5, 6},
	})
	w := performJSON(validateBoxHandler(), http.MethodPost, "/api/box/validate", body, nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", w.Code, w.Body.String())
	}
}

func withRole(c *gin.Context, role string) {
	ctx := context.WithValue(c.Request.Context(), appctx.ContextKeyRole, role)
	ctx = context.WithValue(ctx, appctx.ContextKeyUserId, 7)
	c.Request = c.Request.WithContext(ctx)
}

func TestRequireRoleBlocksAnonymous(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/api/admin/orders", nil)

	middlewares.RequireRole("admin")(c)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
}

func TestRequireRoleBlocksCustomer(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/api/admin/orders", nil)
	withRole(c, "customer")

	middlewares.RequireRole("admin")(c)
	if w.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", w.Code)
	}
}

func TestRequireRoleAdminPassesDealerGate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/api/dealer/summary", nil)
	withRole(c, "admin")

	middlewares.RequireRole("dealer")(c)
	if c.IsAborted() {
		t.Fatal("expected admin to pass the dealer gate")
	}
}

func TestInventoryAuthLegacyKeyFlag(t *testing.T) {
	t.Setenv("INVENTORY_API_KEY", "inv_key_1")

	t.Setenv("ALLOW_LEGACY_INVENTORY_KEY", "false")
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/api/inventory", nil)
	c.Request.Header.Set("Authorization", "Bearer inv_key_1")
	middlewares.InventoryAuthMiddleware()(c)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected static key rejected while flag is off, got %d", w.Code)
	}

	t.Setenv("ALLOW_LEGACY_INVENTORY_KEY", "true")
	w2 := httptest.NewRecorder()
	c2, _ := gin.CreateTestContext(w2)
	c2.Request = httptest.NewRequest(http.MethodGet, "/api/inventory", nil)
	c2.Request.Header.Set("Authorization", "Bearer inv_key_1")
	middlewares.InventoryAuthMiddleware()(c2)
	if c2.IsAborted() {
		t.Fatal("expected static key accepted while flag is on")
	}
}
