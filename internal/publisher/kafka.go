package publisher

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"salespipe/internal/events"

	"github.com/segmentio/kafka-go"
)

// KafkaWriter is the slice of *kafka.Writer the publisher needs.
type KafkaWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

// KafkaPublisher forwards processed events to a Kafka topic. It is just
// another handler from the dispatcher's point of view; downstream consumers
// deduplicate on the event-id header.
type KafkaPublisher struct {
	writer KafkaWriter
}

func NewKafkaPublisher(writer KafkaWriter) *KafkaPublisher {
	return &KafkaPublisher{writer: writer}
}

// NewKafkaWriter builds the default writer, keyed so events for one
// aggregate land on one partition.
func NewKafkaWriter(brokers []string, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:     kafka.TCP(brokers...),
		Topic:    topic,
		Balancer: &kafka.Hash{},
	}
}

func (p *KafkaPublisher) Handle(ctx context.Context, evt events.Envelope) error {
	value, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("marshal event %s: %w", evt.EventID, err)
	}
	msg := kafka.Message{
		Key:   []byte(evt.AggregateID),
		Value: value,
		Time:  time.Now(),
		Headers: []kafka.Header{
			{Key: "event-id", Value: []byte(evt.EventID)},
			{Key: "event-type", Value: []byte(evt.EventType)},
			{Key: "tenant-id", Value: []byte(evt.TenantID)},
			{Key: "aggregate-type", Value: []byte(evt.AggregateType)},
			{Key: "aggregate-id", Value: []byte(evt.AggregateID)},
		},
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish event %s to kafka: %w", evt.EventID, err)
	}
	return nil
}
