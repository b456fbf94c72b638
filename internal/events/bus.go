package events

import (
	"log/slog"
	"sync"

	"github.com/binbin1213/GAGA-Client/internal/metrics"
)

// Handler receives published events
type Handler func(Event)

// Bus fans events out to subscribers
type Bus struct {
	mu     sync.RWMutex
	subs   map[uint64]*subscriber
	nextID uint64
	log    *slog.Logger
}

type subscriber struct {
	channels map[Channel]bool // empty means all channels
	handler  Handler

	mu     sync.Mutex
	closed bool
}

func NewBus(log *slog.Logger) *Bus {
	if log == nil {
		log = slog.Default()
	}
	return &Bus{
		subs: make(map[uint64]*subscriber),
		log:  log.With(slog.String("component", "events")),
	}
}

// Subscribe registers h for the given channels, or for every channel when
// none is given. The returned Subscription must be unsubscribed once the
// handler is no longer wanted.
func (b *Bus) Subscribe(h Handler, channels ...Channel) *Subscription {
	sub := &subscriber{
		channels: make(map[Channel]bool, len(channels)),
		handler:  h,
	}
	for _, ch := range channels {
		sub.channels[ch] = true
	}

	b.mu.Lock()
	b.nextID++
	id := b.nextID
	b.subs[id] = sub
	b.mu.Unlock()

	return &Subscription{bus: b, id: id}
}

// Publish delivers e to every matching subscriber before returning.
// A subscriber never sees two events at once.
func (b *Bus) Publish(e Event) {
	metrics.EventsIngestedTotal.WithLabelValues(string(e.Channel)).Inc()

	b.mu.RLock()
	targets := make([]*subscriber, 0, len(b.subs))
	for _, sub := range b.subs {
		if len(sub.channels) == 0 || sub.channels[e.Channel] {
			targets = append(targets, sub)
		}
	}
	b.mu.RUnlock()

	for _, sub := range targets {
		sub.deliver(e)
	}
}

// Subscribers returns the number of live subscriptions
func (b *Bus) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

func (b *Bus) remove(id uint64) *subscriber {
	b.mu.Lock()
	defer b.mu.Unlock()
	sub := b.subs[id]
	delete(b.subs, id)
	return sub
}

func (s *subscriber) deliver(e Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.handler(e)
}

// Subscription is the handle returned by Subscribe
type Subscription struct {
	bus  *Bus
	id   uint64
	once sync.Once
}

// Unsubscribe stops delivery. It waits for an in-flight delivery to the same
// handler to finish, so it must not be called from inside that handler.
// Calls after the first are no-ops.
func (s *Subscription) Unsubscribe() {
	s.once.Do(func() {
		sub := s.bus.remove(s.id)
		if sub == nil {
			return
		}
		sub.mu.Lock()
		sub.closed = true
		sub.mu.Unlock()
	})
}
