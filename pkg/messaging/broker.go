package messaging

import (
	"context"
	"encoding/json"
	"time"
)

// Message is the envelope published for every outbox event.
type Message struct {
	ID          string          `json:"id"`
	Type        string          `json:"type"`
	AggregateID string          `json:"aggregate_id"`
	Payload     json.RawMessage `json:"payload"`
	OccurredAt  time.Time       `json:"occurred_at"`
}

// Broker defines the interface for message brokers
type Broker interface {
	Publish(ctx context.Context, topic string, msg Message) error
	// Subscribe delivers messages until ctx is done, then closes the channel.
	Subscribe(ctx context.Context, topic string) (<-chan Message, error)
	Close() error
}
