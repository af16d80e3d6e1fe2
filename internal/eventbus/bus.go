package eventbus

import (
	"sync"

	"github.com/ami-notifications/notifier/internal/models"
	"github.com/rs/zerolog"
)

const DefaultBufferSize = 16

// Publisher is what producers of notification events depend on.
type Publisher interface {
	Publish(evt models.Event)
}

// Bus fans events out to live subscribers of the event's user. Delivery is
// at-most-once: a subscriber with a full buffer misses the event.
type Bus struct {
	mu         sync.RWMutex
	subs       map[string]map[*Subscription]struct{}
	bufferSize int
	logger     zerolog.Logger
}

func New(bufferSize int, logger zerolog.Logger) *Bus {
	if bufferSize <= 0 {
		bufferSize = DefaultBufferSize
	}
	return &Bus{
		subs:       make(map[string]map[*Subscription]struct{}),
		bufferSize: bufferSize,
		logger:     logger.With().Str("component", "event_bus").Logger(),
	}
}

type Subscription struct {
	bus    *Bus
	userID string
	ch     chan models.Event
	once   sync.Once
}

// C returns the event channel. It is closed after Close.
func (s *Subscription) C() <-chan models.Event {
	return s.ch
}

func (s *Subscription) Close() {
	s.once.Do(func() {
		s.bus.remove(s)
	})
}

func (b *Bus) Subscribe(userID string) *Subscription {
	sub := &Subscription{
		bus:    b,
		userID: userID,
		ch:     make(chan models.Event, b.bufferSize),
	}

	b.mu.Lock()
	set, ok := b.subs[userID]
	if !ok {
		set = make(map[*Subscription]struct{})
		b.subs[userID] = set
	}
	set[sub] = struct{}{}
	b.mu.Unlock()

	b.logger.Debug().Str("user_id", userID).Msg("subscriber attached")
	return sub
}

func (b *Bus) remove(sub *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if set, ok := b.subs[sub.userID]; ok {
		delete(set, sub)
		if len(set) == 0 {
			delete(b.subs, sub.userID)
		}
	}
	// Publish holds the read lock while sending, so closing here is safe.
	close(sub.ch)
}

// Publish never blocks.
func (b *Bus) Publish(evt models.Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for sub := range b.subs[evt.UserID] {
		select {
		case sub.ch <- evt:
		default:
			b.logger.Debug().
				Str("user_id", evt.UserID).
				Str("notification_id", evt.NotificationID).
				Str("event", string(evt.Kind)).
				Msg("subscriber buffer full, event dropped")
		}
	}
}

// Subscribers returns the number of live subscriptions for userID.
func (b *Bus) Subscribers(userID string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[userID])
}
