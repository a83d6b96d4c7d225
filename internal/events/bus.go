// Package events provides the in-process notification bus used to broadcast
// locale, auth, and document changes between components.
package events

import "sync"

// Well-known topics.
const (
	TopicLocaleChanged   = "locale:changed"
	TopicLocaleNewList   = "locale:new-list"
	TopicAuthLogin       = "auth:login"
	TopicAuthLogout      = "auth:logout"
	TopicAuthPopup       = "auth:popup"
	TopicDocumentCreated = "document:created"
	TopicDocumentUpdated = "document:updated"
	TopicDocumentDeleted = "document:deleted"
	TopicMessageShow     = "message:show"
)

// Event is a single notification delivered to subscribers.
type Event struct {
	Topic string
	Data  any
}

// Handler receives published events.
type Handler func(Event)

type subscription struct {
	id      uint64
	topic   string // empty matches every topic
	handler Handler
}

// Bus is a synchronous topic-based publisher.
//
// Handlers run on the publisher's goroutine in subscription order. A panic
// inside a handler propagates to the caller of Publish.
type Bus struct {
	mu     sync.RWMutex
	nextID uint64
	subs   []subscription
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{}
}

// Subscribe registers h for topic and returns a function that removes it.
// The returned function is safe to call more than once.
func (b *Bus) Subscribe(topic string, h Handler) func() {
	b.mu.Lock()
	b.nextID++
	id := b.nextID
	b.subs = append(b.subs, subscription{id: id, topic: topic, handler: h})
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { b.remove(id) })
	}
}

// SubscribeAll registers h for every topic.
func (b *Bus) SubscribeAll(h Handler) func() {
	return b.Subscribe("", h)
}

func (b *Bus) remove(id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, s := range b.subs {
		if s.id == id {
			b.subs = append(b.subs[:i:i], b.subs[i+1:]...)
			return
		}
	}
}

// Publish delivers data to every handler subscribed to topic.
// Handlers may subscribe or unsubscribe while being invoked; such changes
// take effect from the next Publish.
func (b *Bus) Publish(topic string, data any) {
	b.mu.RLock()
	matched := make([]Handler, 0, len(b.subs))
	for _, s := range b.subs {
		if s.topic == "" || s.topic == topic {
			matched = append(matched, s.handler)
		}
	}
	b.mu.RUnlock()

	ev := Event{Topic: topic, Data: data}
	for _, h := range matched {
		h(ev)
	}
}

// Len returns the number of active subscriptions.
func (b *Bus) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}
