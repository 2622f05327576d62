package bus

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/redis/go-redis/v9"

	"github.com/Selvababu93/realtime-inventory/internal/core/domain"
	"github.com/Selvababu93/realtime-inventory/internal/port"
)

const DefaultChannel = "inventory.events"

// RedisBus carries ChangeEvents over a single Redis pub/sub channel as
// JSON payloads. Delivery is at-most-once: a subscriber that is down
// loses everything published while it was away, and there is no
// replay. Payloads are bounded by the transport's message size limit.
type RedisBus struct {
	client  *redis.Client
	channel string
}

func NewRedisBus(client *redis.Client, channel string) *RedisBus {
	if channel == "" {
		channel = DefaultChannel
	}
	return &RedisBus{client: client, channel: channel}
}

func (b *RedisBus) Publish(ctx context.Context, event domain.ChangeEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	if err := b.client.Publish(ctx, b.channel, payload).Err(); err != nil {
		return fmt.Errorf("publish to %s: %w", b.channel, err)
	}
	return nil
}

func (b *RedisBus) Subscribe(ctx context.Context) (port.Subscription, error) {
	ps := b.client.Subscribe(ctx, b.channel)

	// Block until the SUBSCRIBE is confirmed so callers know events
	// from this point on will be seen.
	if _, err := ps.Receive(ctx); err != nil {
		ps.Close()
		return nil, fmt.Errorf("subscribe to %s: %w", b.channel, err)
	}

	events := make(chan domain.ChangeEvent, 64)
	go func() {
		defer close(events)
		for msg := range ps.Channel() {
			var ev domain.ChangeEvent
			if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
				log.Printf("[bus] dropping undecodable payload on %s: %v", b.channel, err)
				continue
			}
			events <- ev
		}
	}()

	return &redisSubscription{ps: ps, events: events}, nil
}

type redisSubscription struct {
	ps     *redis.PubSub
	events chan domain.ChangeEvent
}

func (s *redisSubscription) Events() <-chan domain.ChangeEvent { return s.events }

func (s *redisSubscription) Close() error { return s.ps.Close() }
