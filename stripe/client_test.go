package stripe

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestCreateCheckoutSession(t *testing.T) {
	var gotAuth, gotContentType string
	var gotForm map[string][]string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/v1/checkout/sessions" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		gotAuth = r.Header.Get("Authorization")
		gotContentType = r.Header.Get("Content-Type")
		if err := r.ParseForm(); err != nil {
			t.Fatalf("ParseForm: %v", err)
		}
		gotForm = r.PostForm
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"cs_test_1","url":"https://checkout.example/cs_test_1","amount_total":9900}`))
	}))
	defer server.Close()

	t.Setenv("STRIPE_API_BASE_URL", server.URL)
	t.Setenv("STRIPE_RATE_LIMIT_PER_MIN", "60000")

	client, err := NewClient("sk_test_123")
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}

	session, err := client.CreateCheckoutSession(context.Background(), &CheckoutSessionParams{
		CustomerEmail: "buyer@example.com",
		SuccessURL:    "https://shop.example/success",
		CancelURL:     "https://shop.example/cancel",
		Mode:          "subscription",
		LineItemName:  "Aura Starter Box",
		UnitAmount:    9900,
		Metadata: map[string]string{
			MetadataUserId:  "42",
			MetadataBoxSize: "starter",
		},
	})
	if err != nil {
		t.Fatalf("CreateCheckoutSession: %v", err)
	}

	if session.Id != "cs_test_1" {
		t.Fatalf("expected cs_test_1, got %s", session.Id)
	}
	if gotAuth != "Bearer sk_test_123" {
		t.Fatalf("expected bearer auth, got %q", gotAuth)
	}
	if gotContentType != "application/x-www-form-urlencoded" {
		t.Fatalf("expected form encoding, got %q", gotContentType)
	}
	if got := gotForm["line_items[0][price_data][unit_amount]"]; len(got) != 1 || got[0] != "9900" {
		t.Fatalf("expected unit_amount 9900, got %v", got)
	}
	if got := gotForm["line_items[0][price_data][recurring][interval]"]; len(got) != 1 || got[0] != "month" {
		t.Fatalf("expected monthly recurring, got %v", got)
	}
	if got := gotForm["metadata[userId]"]; len(got) != 1 || got[0] != "42" {
		t.Fatalf("expected userId metadata, got %v", got)
	}
}

func TestNewClientRequiresKey(t *testing.T) {
	if _, err := NewClient("  "); err == nil {
		t.Fatal("expected error for empty api key")
	}
}

func TestCreateCheckoutSessionAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusPaymentRequired)
		w.Write([]byte(`{"error":{"message":"card declined"}}`))
	}))
	defer server.Close()

	t.Setenv("STRIPE_API_BASE_URL", server.URL)
	t.Setenv("STRIPE_RATE_LIMIT_PER_MIN", "60000")

	client, err := NewClient("sk_test_123")
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	if _, err := client.CreateCheckoutSession(context.Background(), &CheckoutSessionParams{Mode: "payment"}); err == nil {
		t.Fatal("expected api error")
	}
}
