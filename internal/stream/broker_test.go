package stream

import (
	"errors"
	"sync"
	"testing"
	"time"
)

func collect(sub *Subscription, n int, timeout time.Duration) []Event {
	events := make([]Event, 0, n)
	deadline := time.After(timeout)
	for len(events) < n {
		select {
		case e, ok := <-sub.Events():
			if !ok {
				return events
			}
			events = append(events, e)
		case <-deadline:
			return events
		}
	}
	return events
}

func TestPublishDeliversToSubscribers(t *testing.T) {
	b := NewBroker()
	topic := ThreadTopic(1, 2)

	sub := b.Subscribe(topic)
	defer sub.Cancel()

	b.Publish(topic, EventAdded, "message", map[string]string{"message_id": "m1"})
	b.Publish(topic, EventModified, "message", map[string]string{"message_id": "m1"})

	events := collect(sub, 2, time.Second)
	if len(events) != 2 {
		t.Fatalf("received %d events, want 2", len(events))
	}
	if events[0].Type != EventAdded || events[1].Type != EventModified {
		t.Errorf("event order = %q, %q; want added, modified", events[0].Type, events[1].Type)
	}
	if events[0].Topic != topic {
		t.Errorf("event topic = %q, want %q", events[0].Topic, topic)
	}
}

func TestPerTopicFIFOOrder(t *testing.T) {
	b := NewBroker()
	topic := FeedTopic(7)

	sub := b.Subscribe(topic)
	defer sub.Cancel()

	const n = 20
	for i := 0; i < n; i++ {
		b.Publish(topic, EventAdded, "post", i)
	}

	events := collect(sub, n, time.Second)
	if len(events) != n {
		t.Fatalf("received %d events, want %d", len(events), n)
	}
	for i, e := range events {
		if e.Payload.(int) != i {
			t.Fatalf("event %d payload = %v, want %d", i, e.Payload, i)
		}
	}
}

func TestCancelStopsDelivery(t *testing.T) {
	b := NewBroker()
	topic := ThreadTopic(1, 2)

	sub := b.Subscribe(topic)
	b.Publish(topic, EventAdded, "message", "before")

	// Drain the pre-cancel event.
	events := collect(sub, 1, time.Second)
	if len(events) != 1 {
		t.Fatalf("received %d events before cancel, want 1", len(events))
	}

	sub.Cancel()

	// Mutations after cancel must never reach the subscriber.
	b.Publish(topic, EventAdded, "message", "after")
	b.Publish(topic, EventRemoved, "message", "after")

	select {
	case e, ok := <-sub.Events():
		if ok {
			t.Fatalf("received event %+v after Cancel", e)
		}
		// Channel closed: expected.
	case <-time.After(100 * time.Millisecond):
		t.Fatal("channel not closed after Cancel")
	}

	if got := b.SubscriberCount(topic); got != 0 {
		t.Errorf("SubscriberCount = %d after cancel, want 0", got)
	}
}

func TestCancelIsIdempotent(t *testing.T) {
	b := NewBroker()
	sub := b.Subscribe(SummariesTopic(3))

	sub.Cancel()
	sub.Cancel() // must not panic on double close
}

func TestConcurrentPublishAndCancel(t *testing.T) {
	b := NewBroker()
	topic := FeedTopic(1)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		sub := b.Subscribe(topic)
		wg.Add(2)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				b.Publish(topic, EventAdded, "post", j)
			}
		}()
		go func(s *Subscription) {
			defer wg.Done()
			// Drain a little then cancel mid-stream.
			collect(s, 5, 50*time.Millisecond)
			s.Cancel()
		}(sub)
	}
	wg.Wait()

	if got := b.SubscriberCount(topic); got != 0 {
		t.Errorf("SubscriberCount = %d after all cancels, want 0", got)
	}
}

func TestSlowSubscriberDropsNewest(t *testing.T) {
	b := NewBroker()
	topic := ReplyCountTopic(9)

	sub := b.Subscribe(topic)
	defer sub.Cancel()

	// Overflow the buffer without draining.
	for i := 0; i < subscriberBuffer+10; i++ {
		b.Publish(topic, EventModified, "reply_count", i)
	}

	if sub.Dropped() != 10 {
		t.Errorf("Dropped = %d, want 10", sub.Dropped())
	}

	events := collect(sub, subscriberBuffer, time.Second)
	if len(events) != subscriberBuffer {
		t.Fatalf("received %d events, want %d", len(events), subscriberBuffer)
	}
	// Oldest events are kept; newest were dropped.
	if events[0].Payload.(int) != 0 {
		t.Errorf("first payload = %v, want 0", events[0].Payload)
	}
}

func TestFailEmitsTerminalError(t *testing.T) {
	b := NewBroker()
	topic := SummariesTopic(4)

	sub := b.Subscribe(topic)
	defer sub.Cancel()

	b.Fail(topic, errors.New("change feed disconnected"))

	events := collect(sub, 1, time.Second)
	if len(events) != 1 {
		t.Fatalf("received %d events, want 1", len(events))
	}
	if events[0].Type != EventError {
		t.Errorf("event type = %q, want %q", events[0].Type, EventError)
	}
	if events[0].Error != "change feed disconnected" {
		t.Errorf("event error = %q", events[0].Error)
	}
}

func TestMultiTopicSubscription(t *testing.T) {
	b := NewBroker()
	t1 := ThreadTopic(1, 2)
	t2 := SummariesTopic(1)

	sub := b.Subscribe(t1, t2)
	defer sub.Cancel()

	b.Publish(t1, EventAdded, "message", nil)
	b.Publish(t2, EventModified, "summary", nil)

	events := collect(sub, 2, time.Second)
	if len(events) != 2 {
		t.Fatalf("received %d events, want 2", len(events))
	}

	sub.Cancel()
	if b.SubscriberCount(t1) != 0 || b.SubscriberCount(t2) != 0 {
		t.Error("cancel did not detach from all topics")
	}
}
