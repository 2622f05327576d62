package bus

import (
	"context"
	"sync"

	"github.com/Selvababu93/realtime-inventory/internal/core/domain"
	"github.com/Selvababu93/realtime-inventory/internal/port"
)

// MemoryBus fans events out to in-process subscribers. It backs
// single-node deployments where Redis would be dead weight, and every
// test that needs a bus. A subscriber that cannot keep up has events
// dropped rather than blocking publishers; the at-most-once contract
// already allows this.
type MemoryBus struct {
	mu   sync.RWMutex
	subs map[chan domain.ChangeEvent]struct{}
}

func NewMemoryBus() *MemoryBus {
	return &MemoryBus{subs: make(map[chan domain.ChangeEvent]struct{})}
}

func (b *MemoryBus) Publish(ctx context.Context, event domain.ChangeEvent) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for ch := range b.subs {
		select {
		case ch <- event:
		default:
		}
	}
	return nil
}

func (b *MemoryBus) Subscribe(ctx context.Context) (port.Subscription, error) {
	ch := make(chan domain.ChangeEvent, 64)
	b.mu.Lock()
	b.subs[ch] = struct{}{}
	b.mu.Unlock()
	return &memorySubscription{bus: b, ch: ch}, nil
}

func (b *MemoryBus) unsubscribe(ch chan domain.ChangeEvent) {
	b.mu.Lock()
	if _, ok := b.subs[ch]; ok {
		delete(b.subs, ch)
		close(ch)
	}
	b.mu.Unlock()
}

type memorySubscription struct {
	bus  *MemoryBus
	ch   chan domain.ChangeEvent
	once sync.Once
}

func (s *memorySubscription) Events() <-chan domain.ChangeEvent { return s.ch }

func (s *memorySubscription) Close() error {
	s.once.Do(func() { s.bus.unsubscribe(s.ch) })
	return nil
}
