package main

import (
	"errors"
	"io"
	"net/http"
	"os"

	"github.com/aurafoods/aura_backend/config"
	"github.com/aurafoods/aura_backend/stripe"
	"github.com/aurafoods/aura_backend/workflow"
	"github.com/gin-gonic/gin"
)

const maxWebhookBodyBytes = 1 << 20 // 1MB, Stripe caps event payloads well below this

// stripeWebhookHandler verifies the signature before touching anything
// else: an invalid or missing signature is a 400 with zero DB writes.
// Processing errors return 500 so Stripe redelivers; the idempotency key
// on the event id makes redelivery safe.
func stripeWebhookHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		logger := config.GetLogger()

		secret := os.Getenv("STRIPE_WEBHOOK_SECRET")
		if secret == "" {
			config.LogError(logger, "webhooks.go", "stripeWebhookHandler", "config", nil, errors.New("missing STRIPE_WEBHOOK_SECRET"))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "webhook not configured"})
			return
		}

		body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBodyBytes+1))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "could not read body"})
			return
		}
		if int64(len(body)) > maxWebhookBodyBytes {
			c.JSON(http.StatusBadRequest, gin.H{"error": "payload too large"})
			return
		}

		event, err := stripe.ConstructEvent(body, c.GetHeader("Stripe-Signature"), secret)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid signature"})
			return
		}

		if err := workflow.ProcessStripeEvent(c.Request.Context(), event); err != nil {
			if errors.Is(err, workflow.ErrIdempotencyInProgress) {
				// Another delivery of the same event is mid-flight; let
				// Stripe retry later.
				c.JSON(http.StatusConflict, gin.H{"error": "event in progress"})
				return
			}
			config.LogError(logger, "webhooks.go", "stripeWebhookHandler", "ProcessStripeEvent "+event.Type, event.Id, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "event processing failed"})
			return
		}

		c.JSON(http.StatusOK, gin.H{"received": true})
	}
}
