package port

import (
	"context"

	"github.com/Selvababu93/realtime-inventory/internal/core/domain"
)

// EventBus is a single named channel with fan-out to all current
// subscribers. Delivery is at-most-once: there is no backlog, and a
// subscriber sees nothing published before it subscribed.
type EventBus interface {
	// Publish delivers one event to every current subscriber. Events
	// from a single publisher arrive at a given subscriber in publish
	// order.
	Publish(ctx context.Context, event domain.ChangeEvent) error

	// Subscribe registers a new subscriber receiving events from this
	// moment on.
	Subscribe(ctx context.Context) (Subscription, error)
}

type Subscription interface {
	// Events yields incoming events. The channel is closed when the
	// subscription ends.
	Events() <-chan domain.ChangeEvent

	Close() error
}
