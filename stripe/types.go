package stripe

import "encoding/json"

// Event is the envelope Stripe posts to the webhook endpoint.
type Event struct {
	Id      string `json:"id"`
	Type    string `json:"type"`
	Created int64  `json:"created"`
	Data    struct {
		Object json.RawMessage `json:"object"`
	} `json:"data"`
}

// CheckoutSession is the data.object of checkout.session.completed.
// AmountTotal is in cents.
type CheckoutSession struct {
	Id            string            `json:"id"`
	Customer      string            `json:"customer"`
	Subscription  string            `json:"subscription"`
	AmountTotal   int64             `json:"amount_total"`
	Currency      string            `json:"currency"`
	PaymentStatus string            `json:"payment_status"`
	Metadata      map[string]string `json:"metadata"`
	Url           string            `json:"url"`
}

// Metadata keys set at session creation and read back from the webhook.
const (
	MetadataUserId       = "userId"
	MetadataBoxSize      = "boxSize"
	MetadataProductIds   = "productIds"
	MetadataReferralCode = "referralCode"
	MetadataGiftCardCode = "giftCardCode"
)

// Subscription is the data.object of customer.subscription.* events.
type Subscription struct {
	Id                 string `json:"id"`
	Customer           string `json:"customer"`
	Status             string `json:"status"`
	CancelAtPeriodEnd  bool   `json:"cancel_at_period_end"`
	CurrentPeriodEnd   int64  `json:"current_period_end"`
	CurrentPeriodStart int64  `json:"current_period_start"`
}

// Invoice is the data.object of invoice.paid / invoice.payment_failed.
// AmountPaid and AmountDue are in cents.
type Invoice struct {
	Id            string `json:"id"`
	Customer      string `json:"customer"`
	Subscription  string `json:"subscription"`
	AmountPaid    int64  `json:"amount_paid"`
	AmountDue     int64  `json:"amount_due"`
	Status        string `json:"status"`
	BillingReason string `json:"billing_reason"`
}
