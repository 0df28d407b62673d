package stripe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

// Client talks to the Stripe REST API with form-encoded requests.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
	limiter <-chan time.Time
}

func NewClient(apiKey string) (*Client, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("stripe api key is empty")
	}
	baseURL := strings.TrimSpace(os.Getenv("STRIPE_API_BASE_URL"))
	if baseURL == "" {
		baseURL = "https://api.stripe.com"
	}
	rateLimitPerMin := int64(60)
	if v := strings.TrimSpace(os.Getenv("STRIPE_RATE_LIMIT_PER_MIN")); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil && n > 0 {
			rateLimitPerMin = n
		}
	}
	interval := time.Minute / time.Duration(rateLimitPerMin)

	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		http:    &http.Client{Timeout: 30 * time.Second},
		limiter: time.Tick(interval),
	}, nil
}

// CheckoutSessionParams describes the hosted checkout page to create.
// UnitAmount is in cents.
type CheckoutSessionParams struct {
	CustomerEmail string
	SuccessURL    string
	CancelURL     string
	Mode          string
	LineItemName  string
	UnitAmount    int64
	Currency      string
	Interval      string
	Metadata      map[string]string
}

// CreateCheckoutSession creates a hosted checkout session and returns it.
// Metadata round-trips through the checkout.session.completed webhook.
func (c *Client) CreateCheckoutSession(ctx context.Context, params *CheckoutSessionParams) (*CheckoutSession, error) {
	form := url.Values{}
	form.Set("mode", params.Mode)
	form.Set("success_url", params.SuccessURL)
	form.Set("cancel_url", params.CancelURL)
	if params.CustomerEmail != "" {
		form.Set("customer_email", params.CustomerEmail)
	}
	currency := params.Currency
	if currency == "" {
		currency = "usd"
	}
	form.Set("line_items[0][quantity]", "1")
	form.Set("line_items[0][price_data][currency]", currency)
	form.Set("line_items[0][price_data][unit_amount]", strconv.FormatInt(params.UnitAmount, 10))
	form.Set("line_items[0][price_data][product_data][name]", params.LineItemName)
	if params.Mode == "subscription" {
		interval := params.Interval
		if interval == "" {
			interval = "month"
		}
		form.Set("line_items[0][price_data][recurring][interval]", interval)
	}
	for k, v := range params.Metadata {
		form.Set("metadata["+k+"]", v)
	}

	body, err := c.postForm(ctx, "/v1/checkout/sessions", form)
	if err != nil {
		return nil, err
	}
	var session CheckoutSession
	if err := json.Unmarshal(body, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

// CancelSubscription cancels a subscription on the Stripe side. The local
// row is synced when the customer.subscription.deleted event arrives.
func (c *Client) CancelSubscription(ctx context.Context, subscriptionId string) error {
	if strings.TrimSpace(subscriptionId) == "" {
		return errors.New("subscription id is empty")
	}
	_, err := c.do(ctx, http.MethodDelete, "/v1/subscriptions/"+subscriptionId, nil)
	return err
}

func (c *Client) postForm(ctx context.Context, path string, form url.Values) ([]byte, error) {
	return c.do(ctx, http.MethodPost, path, strings.NewReader(form.Encode()))
}

func (c *Client) do(ctx context.Context, method string, path string, body io.Reader) ([]byte, error) {
	<-c.limiter
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("stripe api error %d: %s", resp.StatusCode, strings.TrimSpace(string(respBody)))
	}
	return respBody, nil
}
