package config

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"sync"
	"time"

	"cloud.google.com/go/pubsub"
	"github.com/joho/godotenv"
	"google.golang.org/api/option"
)

// FulfillmentEvent is the payload published for the external
// workflow-automation tool (order fulfillment, low-stock alerts).
type FulfillmentEvent struct {
	ID            int             `json:"id"`
	Topic         string          `json:"topic"`
	ReferenceId   int             `json:"reference_id"`
	ReferenceType string          `json:"reference_type"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Payload       json.RawMessage `json:"payload"`
	CorrelationId string          `json:"correlation_id"`
}

var (
	pubsubClient   *pubsub.Client
	pubsubClientMu sync.Mutex
)

func init() {
	// Load env from .env
	godotenv.Load()
}

func getPubSubProjectID() string {
	// Prefer explicit override.
	if v := os.Getenv("PUBSUB_PROJECT_ID"); v != "" {
		return v
	}
	// Cloud Run/Cloud Functions often set this.
	if v := os.Getenv("GOOGLE_CLOUD_PROJECT"); v != "" {
		return v
	}
	// Common fallback.
	if v := os.Getenv("GCP_PROJECT"); v != "" {
		return v
	}
	return ""
}

func getPubSubClient(ctx context.Context) (*pubsub.Client, error) {
	pubsubClientMu.Lock()
	if pubsubClient != nil {
		c := pubsubClient
		pubsubClientMu.Unlock()
		return c, nil
	}
	pubsubClientMu.Unlock()

	projectID := getPubSubProjectID()
	if projectID == "" {
		return nil, errors.New("PUBSUB_PROJECT_ID/GOOGLE_CLOUD_PROJECT not set")
	}

	credJSON := os.Getenv("PUBSUB_CREDENTIALS_JSON")

	var (
		c   *pubsub.Client
		err error
	)
	if credJSON != "" {
		c, err = pubsub.NewClient(ctx, projectID, option.WithCredentialsJSON([]byte(credJSON)))
	} else {
		// Uses Application Default Credentials.
		c, err = pubsub.NewClient(ctx, projectID)
	}
	if err != nil {
		return nil, err
	}

	pubsubClientMu.Lock()
	if pubsubClient == nil {
		pubsubClient = c
	} else {
		_ = c.Close()
		c = pubsubClient
	}
	pubsubClientMu.Unlock()
	return c, nil
}

func fulfillmentTopicName(topic string) string {
	prefix := strings.TrimSpace(os.Getenv("OUTBOX_TOPIC_PREFIX"))
	if prefix == "" {
		prefix = "aura"
	}
	// e.g. aura.order.created, aura.inventory.restocked
	return prefix + "." + topic
}

// PublishFulfillmentEventWithResult publishes one event and blocks until the
// server acks, returning the Pub/Sub message id. Called by the outbox
// dispatcher only; never call inside a DB transaction.
func PublishFulfillmentEventWithResult(ctx context.Context, event FulfillmentEvent) (string, error) {
	client, err := getPubSubClient(ctx)
	if err != nil {
		return "", err
	}

	data, err := json.Marshal(event)
	if err != nil {
		return "", err
	}

	t := client.Topic(fulfillmentTopicName(event.Topic))
	defer t.Stop()

	pubCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	result := t.Publish(pubCtx, &pubsub.Message{
		Data: data,
		Attributes: map[string]string{
			"topic":          event.Topic,
			"reference_type": event.ReferenceType,
			"reference_id":   fmt.Sprint(event.ReferenceId),
			"correlation_id": event.CorrelationId,
		},
	})
	id, err := result.Get(pubCtx)
	if err != nil {
		log.Printf("pubsub publish failed (topic=%s ref=%s/%d): %v", event.Topic, event.ReferenceType, event.ReferenceId, err)
		return "", err
	}
	return id, nil
}
