package stream

import (
	"log"
	"sync"
	"time"
)

// EventType mirrors the change-feed diff kinds.
type EventType string

const (
	EventAdded    EventType = "added"
	EventModified EventType = "modified"
	EventRemoved  EventType = "removed"
	// EventError is terminal: the stream behind the topic failed and
	// subscribers should treat the subscription as broken.
	EventError EventType = "error"
)

// Event is one diff delivered to topic subscribers.
type Event struct {
	Topic     string      `json:"topic"`
	Type      EventType   `json:"type"`
	Entity    string      `json:"entity,omitempty"`
	Payload   interface{} `json:"payload,omitempty"`
	Error     string      `json:"error,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

// subscriberBuffer bounds how far a slow consumer can fall behind
// before newest events are dropped.
const subscriberBuffer = 64

// Subscription is a live handle on one or more topics. Cancel is
// idempotent; once it returns, no further events are delivered.
type Subscription struct {
	id     uint64
	topics []string
	broker *Broker

	mu      sync.Mutex
	closed  bool
	ch      chan Event
	dropped uint64
}

// Events returns the delivery channel. It is closed by Cancel.
func (s *Subscription) Events() <-chan Event {
	return s.ch
}

// Dropped reports how many events were discarded because the
// subscriber fell behind.
func (s *Subscription) Dropped() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dropped
}

// Cancel detaches the subscription from every topic and closes the
// event channel. Safe to call more than once; after the first call
// returns, deliver can no longer reach the channel.
func (s *Subscription) Cancel() {
	s.broker.remove(s)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	close(s.ch)
}

// deliver hands an event to the subscriber if still active. The
// subscription mutex serializes against Cancel, so a delivery can
// never race a channel close.
func (s *Subscription) deliver(e Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	select {
	case s.ch <- e:
	default:
		s.dropped++
		if s.dropped%100 == 1 {
			log.Printf("stream: subscriber %d lagging on %v (dropped %d)", s.id, s.topics, s.dropped)
		}
	}
}

// Broker is the in-process change feed. Services publish diffs after
// their writes commit; every Subscribe* operation and the WebSocket
// transport consume from here. Delivery is FIFO per topic in publish
// order; there is no ordering across topics.
type Broker struct {
	mu     sync.RWMutex
	topics map[string]map[uint64]*Subscription
	nextID uint64
}

func NewBroker() *Broker {
	return &Broker{
		topics: make(map[string]map[uint64]*Subscription),
	}
}

// Subscribe attaches to one or more topics.
func (b *Broker) Subscribe(topics ...string) *Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	sub := &Subscription{
		id:     b.nextID,
		topics: topics,
		broker: b,
		ch:     make(chan Event, subscriberBuffer),
	}
	for _, topic := range topics {
		subs, ok := b.topics[topic]
		if !ok {
			subs = make(map[uint64]*Subscription)
			b.topics[topic] = subs
		}
		subs[sub.id] = sub
	}
	return sub
}

// Publish fans an event out to every subscriber of the topic.
func (b *Broker) Publish(topic string, eventType EventType, entity string, payload interface{}) {
	event := Event{
		Topic:     topic,
		Type:      eventType,
		Entity:    entity,
		Payload:   payload,
		Timestamp: time.Now().UTC(),
	}

	b.mu.RLock()
	subs := make([]*Subscription, 0, len(b.topics[topic]))
	for _, sub := range b.topics[topic] {
		subs = append(subs, sub)
	}
	b.mu.RUnlock()

	for _, sub := range subs {
		sub.deliver(event)
	}
}

// Fail emits a terminal error event to a topic's subscribers so they
// can react (e.g. show "connection lost") instead of silently
// stopping.
func (b *Broker) Fail(topic string, err error) {
	event := Event{
		Topic:     topic,
		Type:      EventError,
		Error:     err.Error(),
		Timestamp: time.Now().UTC(),
	}

	b.mu.RLock()
	subs := make([]*Subscription, 0, len(b.topics[topic]))
	for _, sub := range b.topics[topic] {
		subs = append(subs, sub)
	}
	b.mu.RUnlock()

	for _, sub := range subs {
		sub.deliver(event)
	}
}

// SubscriberCount reports active subscriptions on a topic.
func (b *Broker) SubscriberCount(topic string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.topics[topic])
}

func (b *Broker) remove(sub *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, topic := range sub.topics {
		if subs, ok := b.topics[topic]; ok {
			delete(subs, sub.id)
			if len(subs) == 0 {
				delete(b.topics, topic)
			}
		}
	}
}
