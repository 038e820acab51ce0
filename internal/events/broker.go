package events

import (
	"sync"

	"github.com/Arcadia-Gaming-Lounge/service-booking/internal/domain/reservation"
	"go.uber.org/zap"
)

// subscriberBuffer is how many changes a slow subscriber may lag behind
// before further changes are dropped for it.
const subscriberBuffer = 16

// ChangeBroker fans reservation changes out to in-process subscribers, such as
// open availability streams.
type ChangeBroker struct {
	mu     sync.RWMutex
	subs   map[uint64]chan reservation.ChangedEvent
	nextID uint64
	logger *zap.Logger
}

// NewChangeBroker creates an empty broker.
func NewChangeBroker(logger *zap.Logger) *ChangeBroker {
	return &ChangeBroker{subs: make(map[uint64]chan reservation.ChangedEvent), logger: logger}
}

// Subscribe registers a subscriber. The returned cancel func unregisters it
// and closes the channel; it is safe to call more than once.
func (b *ChangeBroker) Subscribe() (<-chan reservation.ChangedEvent, func()) {
	ch := make(chan reservation.ChangedEvent, subscriberBuffer)

	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.subs[id] = ch
	b.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, id)
			b.mu.Unlock()
			close(ch)
		})
	}
}

// Publish delivers evt to every subscriber without blocking.
func (b *ChangeBroker) Publish(evt reservation.ChangedEvent) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for id, ch := range b.subs {
		select {
		case ch <- evt:
		default:
			b.logger.Warn("change subscriber lagging; event dropped",
				zap.Uint64("subscriber", id),
				zap.String("type", evt.Type),
			)
		}
	}
}

// Subscribers reports the number of open subscriptions.
func (b *ChangeBroker) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}
