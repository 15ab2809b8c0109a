package publisher

import (
	"context"
	"encoding/json"
	"fmt"

	"salespipe/internal/events"

	"github.com/redis/go-redis/v9"
)

// RedisPublisher fans processed events out over pub/sub so interested
// in-cluster listeners (UI pushers, sidecars) see them in near real time.
type RedisPublisher struct {
	client *redis.Client
}

func NewRedisPublisher(client *redis.Client) *RedisPublisher {
	return &RedisPublisher{client: client}
}

func (p *RedisPublisher) Handle(ctx context.Context, evt events.Envelope) error {
	payload, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("marshal event %s: %w", evt.EventID, err)
	}
	if err := p.client.Publish(ctx, routeChannel(evt), payload).Err(); err != nil {
		return fmt.Errorf("publish event %s to redis: %w", evt.EventID, err)
	}
	return nil
}

func routeChannel(evt events.Envelope) string {
	if evt.AggregateType == "" || evt.AggregateID == "" {
		return "channel:system:events"
	}
	return "channel:" + evt.AggregateType + ":" + evt.AggregateID
}
