package events

import (
	"errors"
	"sync"
	"time"

	"infraops/internal/api"
	"infraops/pkg/logging"

	"github.com/google/uuid"
)

// ErrSubscriberStalled is returned by a subscriber whose delivery buffer is
// full. The bus treats it like any other delivery failure and drops the
// subscriber.
var ErrSubscriberStalled = errors.New("subscriber buffer full")

// errSubscriberClosed is returned after Close; it makes the bus prune the
// subscriber on the next publish.
var errSubscriberClosed = errors.New("subscriber closed")

// Subscriber receives published events. Send must not block: a subscriber
// that cannot accept an event returns an error and is removed from the bus.
type Subscriber interface {
	ID() string
	Send(event api.Event) error
}

// Bus fans events out to the current set of subscribers. Every event gets a
// unique id and a timestamp before delivery; each subscriber receives its
// own copy. Publish never blocks and never fails: undeliverable subscribers
// are pruned instead.
type Bus struct {
	mu          sync.RWMutex
	subscribers map[string]Subscriber
}

// NewBus creates an event bus with no subscribers.
func NewBus() *Bus {
	return &Bus{
		subscribers: make(map[string]Subscriber),
	}
}

// Subscribe attaches a subscriber. A subscriber with the same id replaces
// the earlier one.
func (b *Bus) Subscribe(subscriber Subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers[subscriber.ID()] = subscriber
	logging.Debug("Events", "Subscriber %s attached (%d total)", subscriber.ID(), len(b.subscribers))
}

// Unsubscribe detaches a subscriber by id. Detaching an unknown id is a
// no-op.
func (b *Bus) Unsubscribe(id string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.subscribers, id)
	logging.Debug("Events", "Subscriber %s detached (%d total)", id, len(b.subscribers))
}

// SubscriberCount returns the number of attached subscribers.
func (b *Bus) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}

// Publish stamps the event with an id and timestamp and delivers it to every
// subscriber. Subscribers whose Send fails are dropped so a dead consumer
// cannot pile up events or affect the others.
func (b *Bus) Publish(event api.Event) {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	b.mu.RLock()
	snapshot := make([]Subscriber, 0, len(b.subscribers))
	for _, subscriber := range b.subscribers {
		snapshot = append(snapshot, subscriber)
	}
	b.mu.RUnlock()

	var dead []string
	for _, subscriber := range snapshot {
		if err := subscriber.Send(event); err != nil {
			logging.Warn("Events", "Dropping subscriber %s: %v", subscriber.ID(), err)
			dead = append(dead, subscriber.ID())
		}
	}

	for _, id := range dead {
		b.Unsubscribe(id)
	}
}

// ChannelSubscriber delivers events over a buffered channel. Send drops the
// subscription rather than block when the buffer is full.
type ChannelSubscriber struct {
	id     string
	events chan api.Event

	mu     sync.Mutex
	closed bool
}

// NewChannelSubscriber creates a channel-backed subscriber with the given
// buffer size. A non-positive size gets a small default buffer.
func NewChannelSubscriber(buffer int) *ChannelSubscriber {
	if buffer <= 0 {
		buffer = 16
	}
	return &ChannelSubscriber{
		id:     uuid.NewString(),
		events: make(chan api.Event, buffer),
	}
}

// ID returns the subscriber's unique id.
func (s *ChannelSubscriber) ID() string {
	return s.id
}

// Events is the channel events arrive on. It is closed by Close.
func (s *ChannelSubscriber) Events() <-chan api.Event {
	return s.events
}

// Send delivers the event without blocking.
func (s *ChannelSubscriber) Send(event api.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return errSubscriberClosed
	}
	select {
	case s.events <- event:
		return nil
	default:
		return ErrSubscriberStalled
	}
}

// Close stops the subscriber. Callers should also Unsubscribe it; a closed
// subscriber left on the bus is pruned on the next publish.
func (s *ChannelSubscriber) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	close(s.events)
}
