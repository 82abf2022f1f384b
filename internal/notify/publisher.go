package notify

import (
	"context"
	"fmt"

	"staybook/pkg/kafka"
)

const (
	eventSource        = "staybook"
	eventSchemaVersion = "1"
)

type KafkaPublisher struct {
	producer *kafka.Producer
}

func NewKafkaPublisher(producer *kafka.Producer) *KafkaPublisher {
	return &KafkaPublisher{producer: producer}
}

// Publish keys messages by aggregate id so each booking's events stay ordered
// within a partition.
func (p *KafkaPublisher) Publish(ctx context.Context, event Event) error {
	msg, err := kafka.NewMessage().
		WithKey(event.AggregateID).
		WithValue(event).
		WithEventType(event.Type).
		WithSource(eventSource).
		WithSchemaVersion(eventSchemaVersion).
		WithTimestamp(event.OccurredAt).
		Build()
	if err != nil {
		return fmt.Errorf("build %s message: %w", event.Type, err)
	}
	return p.producer.Publish(ctx, msg)
}

// NopPublisher drops events. Used when Kafka is disabled.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Event) error { return nil }
