package main

import (
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/aurafoods/aura_backend/config"
	"github.com/aurafoods/aura_backend/models"
	"github.com/aurafoods/aura_backend/stripe"
	"github.com/aurafoods/aura_backend/utils"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

var (
	stripeClientOnce sync.Once
	stripeClient     *stripe.Client
	stripeClientErr  error
)

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func getStripeClient() (*stripe.Client, error) {
	stripeClientOnce.Do(func() {
		stripeClient, stripeClientErr = stripe.NewClient(os.Getenv("STRIPE_SECRET_KEY"))
	})
	return stripeClient, stripeClientErr
}

type checkoutRequest struct {
	BoxSize      string `json:"box_size" binding:"required"`
	ProductIds   []int  `json:"product_ids" binding:"required"`
	ReferralCode string `json:"referral_code"`
	GiftCardCode string `json:"gift_card_code"`
	SuccessURL   string `json:"success_url"`
	CancelURL    string `json:"cancel_url"`
}

// checkoutHandler validates the box server-side, prices it from the DB and
// creates the hosted checkout session. The order itself is only created
// when checkout.session.completed arrives.
func checkoutHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		logger := config.GetLogger()

		userId, _ := utils.GetUserIdFromContext(ctx)
		email, _ := utils.GetEmailFromContext(ctx)

		var req checkoutRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
			return
		}

		boxSize := models.BoxSize(strings.ToLower(strings.TrimSpace(req.BoxSize)))
		if err := models.ValidateBoxConfig(boxSize, req.ProductIds); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		products, err := models.GetProductsByIds(ctx, req.ProductIds)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		// Server-side pricing; the client never sends amounts.
		total := decimal.Zero
		for _, id := range req.ProductIds {
			total = total.Add(products[id].Price)
		}

		if code := strings.TrimSpace(req.ReferralCode); code != "" {
			if _, err := models.GetDealerByReferralCode(ctx, code); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "invalid referral code"})
				return
			}
		}
		// Gift cards are single use: the full balance discounts the session
		// and the webhook debits the card once the session completes.
		giftCredit := decimal.Zero
		if code := strings.TrimSpace(req.GiftCardCode); code != "" {
			card, err := models.GetGiftCardByCode(ctx, code)
			if err != nil || !card.Usable() {
				c.JSON(http.StatusBadRequest, gin.H{"error": "invalid gift card"})
				return
			}
			if card.RemainingBalance.GreaterThanOrEqual(total) {
				c.JSON(http.StatusBadRequest, gin.H{"error": "gift card covers the full box, redeem it for account credits instead"})
				return
			}
			giftCredit = card.RemainingBalance
		}

		client, err := getStripeClient()
		if err != nil {
			config.LogError(logger, "checkout.go", "checkoutHandler", "getStripeClient", nil, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "payments unavailable"})
			return
		}

		idStrings := make([]string, 0, len(req.ProductIds))
		for _, id := range req.ProductIds {
			idStrings = append(idStrings, strconv.Itoa(id))
		}
		metadata := map[string]string{
			stripe.MetadataUserId:     strconv.Itoa(userId),
			stripe.MetadataBoxSize:    string(boxSize),
			stripe.MetadataProductIds: strings.Join(idStrings, ","),
		}
		if req.ReferralCode != "" {
			metadata[stripe.MetadataReferralCode] = strings.ToUpper(strings.TrimSpace(req.ReferralCode))
		}
		if req.GiftCardCode != "" {
			metadata[stripe.MetadataGiftCardCode] = strings.ToUpper(strings.TrimSpace(req.GiftCardCode))
		}

		successURL := req.SuccessURL
		if successURL == "" {
			successURL = os.Getenv("CHECKOUT_SUCCESS_URL")
		}
		cancelURL := req.CancelURL
		if cancelURL == "" {
			cancelURL = os.Getenv("CHECKOUT_CANCEL_URL")
		}

		chargeTotal := total.Sub(giftCredit)
		unitAmount := chargeTotal.Mul(decimal.NewFromInt(100)).IntPart()
		session, err := client.CreateCheckoutSession(ctx, &stripe.CheckoutSessionParams{
			CustomerEmail: email,
			SuccessURL:    successURL,
			CancelURL:     cancelURL,
			Mode:          "subscription",
			LineItemName:  "Aura " + titleCase(string(boxSize)) + " Box",
			UnitAmount:    unitAmount,
			Currency:      "usd",
			Interval:      "month",
			Metadata:      metadata,
		})
		if err != nil {
			config.LogError(logger, "checkout.go", "checkoutHandler", "CreateCheckoutSession", metadata, err)
			c.JSON(http.StatusBadGateway, gin.H{"error": "could not create checkout session"})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"session_id":      session.Id,
			"url":             session.Url,
			"subtotal":        total,
			"credits_applied": giftCredit,
			"total":           chargeTotal,
		})
	}
}
