package events

import (
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
)

const defaultCapacity = 1024

// Bus broadcasts events to all subscribers. Slow subscribers do not block
// publishers: when a subscriber's buffer is full the event is dropped and
// counted against that subscriber.
type Bus struct {
	mu     sync.RWMutex
	subs   map[*Subscriber]struct{}
	cap    int
	logger *zap.Logger
	closed bool
}

// Subscriber receives broadcast envelopes on C until Unsubscribe or bus
// close, after which C is closed.
type Subscriber struct {
	C       chan Envelope
	bus     *Bus
	dropped atomic.Int64
	once    sync.Once
}

func NewBus(logger *zap.Logger) *Bus {
	return NewBusWithCapacity(defaultCapacity, logger)
}

func NewBusWithCapacity(capacity int, logger *zap.Logger) *Bus {
	return &Bus{
		subs:   make(map[*Subscriber]struct{}),
		cap:    capacity,
		logger: logger,
	}
}

// Publish wraps the event in an envelope and fans it out. Publishing with
// no subscribers is a no-op.
func (b *Bus) Publish(e Event) {
	env := NewEnvelope(e)

	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return
	}

	for sub := range b.subs {
		select {
		case sub.C <- env:
		default:
			b.logger.Warn("event subscriber lagging, event dropped",
				zap.String("event_type", env.Type),
				zap.Int64("dropped_total", sub.dropped.Add(1)))
		}
	}

	b.logger.Debug("event published",
		zap.String("event_type", env.Type),
		zap.String("charge_point_id", e.ChargePoint()),
		zap.Int("subscribers", len(b.subs)))
}

// Subscribe registers a new subscriber.
func (b *Bus) Subscribe() *Subscriber {
	sub := &Subscriber{C: make(chan Envelope, b.cap)}
	sub.bus = b

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		close(sub.C)
		return sub
	}
	b.subs[sub] = struct{}{}
	b.logger.Info("event subscriber added", zap.Int("total", len(b.subs)))
	return sub
}

// SubscriberCount returns the number of active subscribers.
func (b *Bus) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// Close drops all subscribers and closes their channels.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for sub := range b.subs {
		sub.once.Do(func() { close(sub.C) })
	}
	b.subs = make(map[*Subscriber]struct{})
}

// Dropped reports how many events this subscriber has missed.
func (s *Subscriber) Dropped() int {
	return int(s.dropped.Load())
}

// Unsubscribe removes the subscriber from the bus and closes its channel.
func (s *Subscriber) Unsubscribe() {
	s.bus.mu.Lock()
	defer s.bus.mu.Unlock()
	if _, ok := s.bus.subs[s]; !ok {
		return
	}
	delete(s.bus.subs, s)
	s.once.Do(func() { close(s.C) })
}
