package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"cloud.google.com/go/pubsub"
	"github.com/joho/godotenv"
	"google.golang.org/api/option"
)

// ReconEvent is the wire shape published for every audit event. Consumers
// (notification service, websocket gateway) are responsible for push delivery
// and must dedupe on EventId: delivery is at-least-once.
type ReconEvent struct {
	EventId       int       `json:"event_id"`
	UnitId        int       `json:"unit_id"`
	EntityId      int       `json:"entity_id"`
	Period        string    `json:"period"`
	FromStatus    string    `json:"from_status"`
	ToStatus      string    `json:"to_status"`
	ActorName     string    `json:"actor_name"`
	Payload       []byte    `json:"payload"`
	OccurredAt    time.Time `json:"occurred_at"`
	CorrelationId string    `json:"correlation_id"`
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
	if v := os.Getenv("PUBSUB_PROJECT_ID"); v != "" {
		return v
	}
	if v := os.Getenv("GOOGLE_CLOUD_PROJECT"); v != "" {
		return v
	}
	if v := os.Getenv("GCP_PROJECT"); v != "" {
		return v
	}
	return ""
}

// GetPubSubClient returns a Pub/Sub client, initializing it on first use.
// Uses Application Default Credentials unless PUBSUB_CREDENTIALS_JSON is set.
func GetPubSubClient(baseCtx context.Context) (*pubsub.Client, error) {
	pubsubClientMu.Lock()
	defer pubsubClientMu.Unlock()
	if pubsubClient != nil {
		return pubsubClient, nil
	}

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
		c, err = pubsub.NewClient(baseCtx, projectID, option.WithCredentialsJSON([]byte(credJSON)))
	} else {
		c, err = pubsub.NewClient(baseCtx, projectID)
	}
	if err != nil {
		return nil, fmt.Errorf("pubsub client: %w", err)
	}
	pubsubClient = c
	return pubsubClient, nil
}

// ReconEventsTopic returns the configured topic for the reconciliation event
// stream, or "" when Pub/Sub publishing is disabled (dev/local).
func ReconEventsTopic() string {
	return os.Getenv("RECON_EVENTS_TOPIC")
}

// PublishReconEvent publishes one event and blocks for the server ack.
// Callers (the outbox dispatcher) own retry/backoff.
func PublishReconEvent(ctx context.Context, data []byte, correlationId string) (string, error) {
	topicName := ReconEventsTopic()
	if topicName == "" {
		return "", errors.New("RECON_EVENTS_TOPIC not set")
	}
	client, err := GetPubSubClient(ctx)
	if err != nil {
		return "", err
	}
	topic := client.Topic(topicName)
	result := topic.Publish(ctx, &pubsub.Message{
		Data: data,
		Attributes: map[string]string{
			"correlation_id": correlationId,
		},
	})
	return result.Get(ctx)
}
