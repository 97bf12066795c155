package eventbus

import (
	"testing"
	"time"
)

func TestSubscribePublishDeliver(t *testing.T) {
	bus := New()
	var got []Event
	bus.Subscribe(TopicPropertyAdded, func(ev Event) { got = append(got, ev) })

	bus.Publish(Event{Topic: TopicPropertyAdded, PropertyID: "p1"})
	if len(got) != 1 {
		t.Fatalf("expected 1 delivery, got %d", len(got))
	}
	if got[0].PropertyID != "p1" {
		t.Fatalf("unexpected property id %q", got[0].PropertyID)
	}
	if got[0].At.IsZero() {
		t.Fatal("publish should stamp the event time")
	}
}

func TestPublishIsTopicScoped(t *testing.T) {
	bus := New()
	var statusEvents, bookmarkEvents int
	bus.Subscribe(TopicStatusChanged, func(Event) { statusEvents++ })
	bus.Subscribe(TopicBookmarksChanged, func(Event) { bookmarkEvents++ })

	bus.Publish(Event{Topic: TopicStatusChanged, PropertyID: "p1"})
	bus.Publish(Event{Topic: TopicStatusChanged, PropertyID: "p2"})

	if statusEvents != 2 {
		t.Fatalf("expected 2 status deliveries, got %d", statusEvents)
	}
	if bookmarkEvents != 0 {
		t.Fatalf("bookmark subscriber should not fire, got %d", bookmarkEvents)
	}
}

func TestPublishWithoutSubscribersIsNoOp(t *testing.T) {
	bus := New()
	bus.Publish(Event{Topic: TopicNotesChanged, PropertyID: "p1"})
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	bus := New()
	var count int
	cancel := bus.Subscribe(TopicPropertyDeleted, func(Event) { count++ })

	bus.Publish(Event{Topic: TopicPropertyDeleted, PropertyID: "p1"})
	cancel()
	bus.Publish(Event{Topic: TopicPropertyDeleted, PropertyID: "p2"})

	if count != 1 {
		t.Fatalf("expected 1 delivery after unsubscribe, got %d", count)
	}
	if n := bus.SubscriberCount(TopicPropertyDeleted); n != 0 {
		t.Fatalf("expected 0 subscribers, got %d", n)
	}
	// calling cancel twice must be safe
	cancel()
}

func TestSynchronousOrderedDelivery(t *testing.T) {
	bus := New()
	var order []string
	bus.Subscribe(TopicFollowUpChanged, func(Event) { order = append(order, "first") })
	bus.Subscribe(TopicFollowUpChanged, func(Event) { order = append(order, "second") })

	bus.Publish(Event{Topic: TopicFollowUpChanged, PropertyID: "p1"})

	if len(order) != 2 || order[0] != "first" || order[1] != "second" {
		t.Fatalf("handlers ran out of order: %v", order)
	}
}

func TestSubscribeDuringDispatchDoesNotAffectCurrentPublish(t *testing.T) {
	bus := New()
	var lateDeliveries int
	bus.Subscribe(TopicClosedChanged, func(Event) {
		bus.Subscribe(TopicClosedChanged, func(Event) { lateDeliveries++ })
	})

	bus.Publish(Event{Topic: TopicClosedChanged, PropertyID: "p1"})
	if lateDeliveries != 0 {
		t.Fatalf("late subscriber saw the triggering event, deliveries=%d", lateDeliveries)
	}

	bus.Publish(Event{Topic: TopicClosedChanged, PropertyID: "p2"})
	if lateDeliveries == 0 {
		t.Fatal("late subscriber should see subsequent events")
	}
}

func TestExplicitTimestampPreserved(t *testing.T) {
	bus := New()
	at := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	var got Event
	bus.Subscribe(TopicUserNotesChanged, func(ev Event) { got = ev })
	bus.Publish(Event{Topic: TopicUserNotesChanged, UserID: "u1", At: at})
	if !got.At.Equal(at) {
		t.Fatalf("expected explicit timestamp preserved, got %v", got.At)
	}
}
