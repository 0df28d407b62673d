package workflow

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/aurafoods/aura_backend/config"
	"github.com/aurafoods/aura_backend/models"
	"github.com/aurafoods/aura_backend/stripe"
	"github.com/bsm/redislock"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const (
	stripeHandlerName = "stripe_webhook"
	stripeLockTTL     = 30 * time.Second
)

// ProcessStripeEvent applies one verified webhook event. Deliveries for the
// same subscription are serialized with a Redis lock, and all writes happen
// in a single transaction together with the idempotency claim, so a
// redelivered event id is a clean no-op and a mid-handler failure leaves
// nothing behind for the provider retry to trip over.
func ProcessStripeEvent(ctx context.Context, event *stripe.Event) error {
	db := config.GetDB()
	if db == nil {
		return errors.New("db is nil")
	}

	if locker := config.GetRedisLock(); locker != nil {
		lock, err := locker.Obtain(ctx, stripeLockKey(event), stripeLockTTL, &redislock.Options{
			RetryStrategy: redislock.LimitRetry(redislock.LinearBackoff(100*time.Millisecond), 50),
		})
		if err != nil {
			return fmt.Errorf("stripe event %s: lock: %w", event.Id, err)
		}
		defer lock.Release(context.WithoutCancel(ctx))
	}

	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		skip, err := BeginIdempotency(tx, stripeHandlerName, event.Id)
		if err != nil {
			return err
		}
		if skip {
			return nil
		}

		if err := applyStripeEvent(ctx, tx, event); err != nil {
			return err
		}
		return MarkIdempotencySucceeded(tx, stripeHandlerName, event.Id)
	})
	if err != nil && !errors.Is(err, ErrIdempotencyInProgress) {
		// The rollback above also discarded the STARTED claim; record the
		// failure on its own connection so operators can see it.
		if markErr := MarkIdempotencyFailed(db.WithContext(context.WithoutCancel(ctx)), stripeHandlerName, event.Id, err); markErr != nil {
			config.LogError(config.GetLogger(), "stripeEvents.go", "ProcessStripeEvent", "MarkIdempotencyFailed", event.Id, markErr)
		}
	}
	return err
}

// stripeLockKey picks the subscription (or customer) the event belongs to so
// that overlapping deliveries touching the same records queue up instead of
// deadlocking inside MySQL.
func stripeLockKey(event *stripe.Event) string {
	var obj struct {
		Subscription string `json:"subscription"`
		Customer     string `json:"customer"`
		Id           string `json:"id"`
	}
	_ = json.Unmarshal(event.Data.Object, &obj)
	switch {
	case obj.Subscription != "":
		return "StripeLock:" + obj.Subscription
	case obj.Customer != "":
		return "StripeLock:" + obj.Customer
	case obj.Id != "":
		return "StripeLock:" + obj.Id
	default:
		return "StripeLock:" + event.Id
	}
}

func applyStripeEvent(ctx context.Context, tx *gorm.DB, event *stripe.Event) error {
	switch event.Type {
	case "checkout.session.completed":
		var session stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Object, &session); err != nil {
			return err
		}
		return handleCheckoutCompleted(ctx, tx, &session)

	case "customer.subscription.created", "customer.subscription.updated":
		var sub stripe.Subscription
		if err := json.Unmarshal(event.Data.Object, &sub); err != nil {
			return err
		}
		return handleSubscriptionUpdated(ctx, tx, &sub)

	case "customer.subscription.deleted":
		var sub stripe.Subscription
		if err := json.Unmarshal(event.Data.Object, &sub); err != nil {
			return err
		}
		return handleSubscriptionDeleted(ctx, tx, &sub)

	case "invoice.paid":
		var invoice stripe.Invoice
		if err := json.Unmarshal(event.Data.Object, &invoice); err != nil {
			return err
		}
		return handleInvoicePaid(ctx, tx, &invoice)

	case "invoice.payment_failed":
		var invoice stripe.Invoice
		if err := json.Unmarshal(event.Data.Object, &invoice); err != nil {
			return err
		}
		return handleInvoicePaymentFailed(ctx, tx, &invoice)

	default:
		// Unknown types are acked; Stripe sends whatever the endpoint is
		// subscribed to.
		return nil
	}
}

// handleCheckoutCompleted turns a paid checkout session into a subscription
// and its first order, attributes the dealer, books commission and reserves
// inventory.
func handleCheckoutCompleted(ctx context.Context, tx *gorm.DB, session *stripe.CheckoutSession) error {

	profileId, err := strconv.Atoi(session.Metadata[stripe.MetadataUserId])
	if err != nil || profileId <= 0 {
		return fmt.Errorf("checkout session %s: bad userId metadata", session.Id)
	}
	boxSize := models.BoxSize(session.Metadata[stripe.MetadataBoxSize])
	productIds, err := parseProductIds(session.Metadata[stripe.MetadataProductIds])
	if err != nil {
		return fmt.Errorf("checkout session %s: %w", session.Id, err)
	}
	if err := models.ValidateBoxConfig(boxSize, productIds); err != nil {
		return fmt.Errorf("checkout session %s: %w", session.Id, err)
	}

	var profile models.Profile
	if err := tx.First(&profile, profileId).Error; err != nil {
		return fmt.Errorf("checkout session %s: profile %d not found", session.Id, profileId)
	}

	// AmountTotal is what Stripe actually charged, net of any gift card
	// discount the checkout handler applied to the session.
	total := decimal.NewFromInt(session.AmountTotal).Div(decimal.NewFromInt(100))

	boxConfig, err := json.Marshal(productIds)
	if err != nil {
		return err
	}
	nextDelivery := time.Now().UTC().AddDate(0, 0, 7)
	subscription := models.Subscription{
		ProfileId:            profileId,
		BoxSize:              boxSize,
		BoxConfig:            boxConfig,
		Status:               models.SubscriptionStatusActive,
		MonthlyTotal:         total,
		StripeSubscriptionId: session.Subscription,
		StripeCustomerId:     session.Customer,
		NextDeliveryDate:     &nextDelivery,
	}
	if err := tx.Create(&subscription).Error; err != nil {
		return err
	}

	if session.Customer != "" && profile.StripeCustomerId != session.Customer {
		if err := tx.Model(&profile).UpdateColumn("stripe_customer_id", session.Customer).Error; err != nil {
			return err
		}
	}

	items, err := buildOrderItems(tx, productIds)
	if err != nil {
		return err
	}
	itemsJSON, err := json.Marshal(items)
	if err != nil {
		return err
	}

	credits := decimal.Zero
	if code := strings.TrimSpace(session.Metadata[stripe.MetadataGiftCardCode]); code != "" {
		credits, err = models.DebitGiftCardTx(ctx, tx, code, profileId)
		if err != nil {
			return err
		}
	}

	order := models.Order{
		ProfileId:       profileId,
		SubscriptionId:  &subscription.ID,
		Items:           itemsJSON,
		Subtotal:        total.Add(credits),
		CreditsApplied:  credits,
		Total:           total,
		Status:          models.OrderStatusPending,
		StripeSessionId: session.Id,
	}

	// Dealer attribution via referral code; unknown codes don't fail the
	// order, the sale just goes unattributed.
	var dealer *models.Dealer
	if code := strings.TrimSpace(session.Metadata[stripe.MetadataReferralCode]); code != "" {
		var found models.Dealer
		err := tx.Preload("Organization").
			Where("referral_code = ? AND status = ?", strings.ToUpper(code), models.DealerStatusActive).
			First(&found).Error
		if err == nil {
			dealer = &found
			order.DealerId = &found.ID
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
	}

	if err := tx.Create(&order).Error; err != nil {
		return err
	}

	if dealer != nil {
		if _, err := models.CreateCommissionTx(ctx, tx, dealer, order.ID, order.Total); err != nil {
			return err
		}
	}

	for _, id := range productIds {
		if err := models.DecrementInventoryTx(ctx, tx, id, 1); err != nil {
			return err
		}
	}

	return models.PublishEvent(ctx, tx, models.EventTopicOrderCreated, "order", order.ID, map[string]interface{}{
		"order_id":        order.ID,
		"profile_id":      profileId,
		"subscription_id": subscription.ID,
		"total":           order.Total,
		"box_size":        boxSize,
	})
}

func parseProductIds(csv string) ([]int, error) {
	parts := strings.Split(csv, ",")
	ids := make([]int, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		id, err := strconv.Atoi(p)
		if err != nil {
			return nil, errors.New("bad productIds metadata")
		}
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		return nil, errors.New("empty productIds metadata")
	}
	return ids, nil
}

func buildOrderItems(tx *gorm.DB, productIds []int) ([]models.OrderItem, error) {
	counts := map[int]int{}
	order := []int{}
	for _, id := range productIds {
		if counts[id] == 0 {
			order = append(order, id)
		}
		counts[id]++
	}

	var products []*models.Product
	if err := tx.Where("id IN ?", order).Find(&products).Error; err != nil {
		return nil, err
	}
	byId := map[int]*models.Product{}
	for _, p := range products {
		byId[p.ID] = p
	}

	items := make([]models.OrderItem, 0, len(order))
	for _, id := range order {
		p, ok := byId[id]
		if !ok {
			return nil, fmt.Errorf("product %d not found", id)
		}
		items = append(items, models.OrderItem{
			ProductId: p.ID,
			Name:      p.Name,
			Quantity:  counts[id],
			UnitPrice: p.Price,
		})
	}
	return items, nil
}

func handleSubscriptionUpdated(ctx context.Context, tx *gorm.DB, sub *stripe.Subscription) error {
	var local models.Subscription
	err := tx.Where("stripe_subscription_id = ?", sub.Id).First(&local).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		// created events for sessions we haven't processed yet; the
		// checkout handler owns creation.
		return nil
	}
	if err != nil {
		return err
	}

	// Local pause state wins over provider status sync.
	if local.Status == models.SubscriptionStatusPaused {
		return nil
	}

	status := mapStripeSubscriptionStatus(sub.Status)
	if status == local.Status {
		return nil
	}
	updates := map[string]interface{}{"Status": status}
	if status == models.SubscriptionStatusCancelled {
		now := time.Now().UTC()
		updates["CancelledAt"] = &now
	}
	return tx.Model(&local).Updates(updates).Error
}

func handleSubscriptionDeleted(ctx context.Context, tx *gorm.DB, sub *stripe.Subscription) error {
	var local models.Subscription
	err := tx.Where("stripe_subscription_id = ?", sub.Id).First(&local).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if local.Status == models.SubscriptionStatusCancelled {
		return nil
	}
	now := time.Now().UTC()
	return tx.Model(&local).Updates(map[string]interface{}{
		"Status":      models.SubscriptionStatusCancelled,
		"CancelledAt": &now,
		"PauseUntil":  nil,
	}).Error
}

func mapStripeSubscriptionStatus(s string) models.SubscriptionStatus {
	switch s {
	case "active", "trialing":
		return models.SubscriptionStatusActive
	case "past_due", "unpaid":
		return models.SubscriptionStatusPastDue
	case "canceled", "incomplete_expired":
		return models.SubscriptionStatusCancelled
	default:
		return models.SubscriptionStatusActive
	}
}

// handleInvoicePaid creates the recurring order for a billing cycle. The
// very first invoice belongs to the checkout session and is skipped.
func handleInvoicePaid(ctx context.Context, tx *gorm.DB, invoice *stripe.Invoice) error {
	if invoice.BillingReason == "subscription_create" {
		return nil
	}

	var sub models.Subscription
	err := tx.Where("stripe_subscription_id = ?", invoice.Subscription).First(&sub).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	// Duplicate invoice delivery under a different event id.
	var count int64
	if err := tx.Model(&models.Order{}).Where("stripe_invoice_id = ?", invoice.Id).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	productIds, err := sub.BoxProductIds()
	if err != nil {
		return err
	}
	items, err := buildOrderItems(tx, productIds)
	if err != nil {
		return err
	}
	itemsJSON, err := json.Marshal(items)
	if err != nil {
		return err
	}

	total := decimal.NewFromInt(invoice.AmountPaid).Div(decimal.NewFromInt(100))
	order := models.Order{
		ProfileId:       sub.ProfileId,
		SubscriptionId:  &sub.ID,
		Items:           itemsJSON,
		Subtotal:        total,
		Total:           total,
		Status:          models.OrderStatusPending,
		StripeInvoiceId: invoice.Id,
	}

	// Dealer attribution sticks for the life of the subscription: the first
	// order carries the referral, every renewal books commission to the same
	// dealer while they stay active.
	dealer, err := attributedDealer(tx, sub.ID)
	if err != nil {
		return err
	}
	if dealer != nil {
		order.DealerId = &dealer.ID
	}

	if err := tx.Create(&order).Error; err != nil {
		return err
	}

	if dealer != nil {
		if _, err := models.CreateCommissionTx(ctx, tx, dealer, order.ID, order.Total); err != nil {
			return err
		}
	}

	for _, id := range productIds {
		if err := models.DecrementInventoryTx(ctx, tx, id, 1); err != nil {
			return err
		}
	}

	// A successful charge clears past_due and schedules the next box.
	nextDelivery := time.Now().UTC().AddDate(0, 0, 7)
	updates := map[string]interface{}{"NextDeliveryDate": &nextDelivery}
	if sub.Status == models.SubscriptionStatusPastDue {
		updates["Status"] = models.SubscriptionStatusActive
	}
	if err := tx.Model(&sub).Updates(updates).Error; err != nil {
		return err
	}

	return models.PublishEvent(ctx, tx, models.EventTopicOrderCreated, "order", order.ID, map[string]interface{}{
		"order_id":        order.ID,
		"profile_id":      sub.ProfileId,
		"subscription_id": sub.ID,
		"total":           order.Total,
		"recurring":       true,
	})
}

// attributedDealer finds the dealer credited on the subscription's earliest
// order, if they are still active.
func attributedDealer(tx *gorm.DB, subscriptionId int) (*models.Dealer, error) {
	var first models.Order
	err := tx.Where("subscription_id = ? AND dealer_id IS NOT NULL", subscriptionId).
		Order("id ASC").First(&first).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var dealer models.Dealer
	err = tx.Preload("Organization").
		Where("id = ? AND status = ?", *first.DealerId, models.DealerStatusActive).
		First(&dealer).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &dealer, nil
}

func handleInvoicePaymentFailed(ctx context.Context, tx *gorm.DB, invoice *stripe.Invoice) error {
	var sub models.Subscription
	err := tx.Where("stripe_subscription_id = ?", invoice.Subscription).First(&sub).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if sub.Status == models.SubscriptionStatusCancelled {
		return nil
	}

	if err := tx.Model(&sub).UpdateColumn("status", models.SubscriptionStatusPastDue).Error; err != nil {
		return err
	}

	payload, err := json.Marshal(map[string]interface{}{
		"subscription_id": sub.ID,
		"stripe_invoice":  invoice.Id,
		"amount_due":      invoice.AmountDue,
	})
	if err != nil {
		return err
	}
	if err := tx.Create(&models.InteractionLog{
		Channel:   "billing",
		ProfileId: &sub.ProfileId,
		Payload:   payload,
	}).Error; err != nil {
		return err
	}

	return models.PublishEvent(ctx, tx, models.EventTopicSubscriptionPastDue, "subscription", sub.ID, map[string]interface{}{
		"subscription_id": sub.ID,
		"profile_id":      sub.ProfileId,
		"stripe_invoice":  invoice.Id,
	})
}
