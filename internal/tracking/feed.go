package tracking

import (
	"sort"
	"sync"
)

// Handler receives status events. Handlers run on the publisher's goroutine
// and must not block.
type Handler func(Event)

// Source is anything a listener can subscribe to for status events.
type Source interface {
	Subscribe(h Handler) *Subscription
}

// Feed fans events out to its current subscribers.
type Feed struct {
	mu       sync.Mutex
	handlers map[uint64]Handler
	nextID   uint64
}

func NewFeed() *Feed {
	return &Feed{handlers: make(map[uint64]Handler)}
}

// Subscribe registers h until the returned subscription is closed.
func (f *Feed) Subscribe(h Handler) *Subscription {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	f.handlers[f.nextID] = h
	return &Subscription{feed: f, id: f.nextID}
}

// Publish delivers ev synchronously to every subscriber in subscription
// order and returns how many received it.
func (f *Feed) Publish(ev Event) int {
	f.mu.Lock()
	ids := make([]uint64, 0, len(f.handlers))
	for id := range f.handlers {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	handlers := make([]Handler, 0, len(ids))
	for _, id := range ids {
		handlers = append(handlers, f.handlers[id])
	}
	f.mu.Unlock()

	for _, h := range handlers {
		h(ev)
	}
	return len(handlers)
}

// Len returns the number of live subscriptions.
func (f *Feed) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.handlers)
}

func (f *Feed) remove(id uint64) {
	f.mu.Lock()
	delete(f.handlers, id)
	f.mu.Unlock()
}

// Subscription is a handle on a registered handler. Close is idempotent.
type Subscription struct {
	feed *Feed
	id   uint64
	once sync.Once
}

func (s *Subscription) Close() {
	if s == nil {
		return
	}
	s.once.Do(func() {
		s.feed.remove(s.id)
	})
}
