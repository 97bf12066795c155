// Package eventbus provides the in-process publish/subscribe channel used to
// keep independently mounted consumers consistent after a write. Delivery is
// synchronous and best-effort: there is no queue and no replay, so a
// subscriber registered after a publish must read fresh state on its own.
package eventbus

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"rentalcore/pkg/domain"
)

// Topic is a typed channel name on the bus.
type Topic string

// Topics published by the core. Subscribers are expected to re-pull full
// state rather than trust the event payload beyond the affected ids.
const (
	TopicPropertyAdded      Topic = "property:added"
	TopicPropertyUpdated    Topic = "property:updated"
	TopicPropertyDeleted    Topic = "property:deleted"
	TopicStatusChanged      Topic = "status:changed"
	TopicFollowUpChanged    Topic = "followUp:changed"
	TopicClosedChanged      Topic = "closed:changed"
	TopicBookmarksChanged   Topic = "bookmarks:changed"
	TopicNotesChanged       Topic = "notesChanged"
	TopicPrivateNotesChange Topic = "privateNotesChanged"
	TopicUserNotesChanged   Topic = "userNotesChanged"
)

// Event is the payload delivered to subscribers: the topic plus the affected
// ids, if any.
type Event struct {
	Topic      Topic
	PropertyID string
	UserID     string
	Actor      domain.Actor
	At         time.Time
}

// Handler consumes a published event. Handlers run synchronously on the
// publisher's goroutine, strictly after the triggering write and cache
// invalidation have completed.
type Handler func(Event)

type subscription struct {
	id      string
	handler Handler
}

// Bus is an in-process broker keyed by typed topics.
type Bus struct {
	mu   sync.Mutex
	subs map[Topic][]subscription
}

// New constructs an empty bus.
func New() *Bus {
	return &Bus{subs: make(map[Topic][]subscription)}
}

// Subscribe registers a handler for a topic and returns an unsubscribe
// function. Unsubscribing twice is a no-op.
func (b *Bus) Subscribe(topic Topic, handler Handler) func() {
	if handler == nil {
		return func() {}
	}
	id := uuid.NewString()
	b.mu.Lock()
	b.subs[topic] = append(b.subs[topic], subscription{id: id, handler: handler})
	b.mu.Unlock()
	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		current := b.subs[topic]
		for i, sub := range current {
			if sub.id == id {
				b.subs[topic] = append(current[:i:i], current[i+1:]...)
				return
			}
		}
	}
}

// Publish delivers the event to every subscriber of its topic, in
// subscription order. The subscriber list is snapshotted first so handlers
// may subscribe or unsubscribe without corrupting the dispatch.
func (b *Bus) Publish(event Event) {
	if event.At.IsZero() {
		event.At = time.Now().UTC()
	}
	b.mu.Lock()
	current := b.subs[event.Topic]
	snapshot := make([]subscription, len(current))
	copy(snapshot, current)
	b.mu.Unlock()
	for _, sub := range snapshot {
		sub.handler(event)
	}
}

// SubscriberCount reports the number of active subscriptions for a topic.
func (b *Bus) SubscriberCount(topic Topic) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs[topic])
}
