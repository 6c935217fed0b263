// Package events publishes record changes made through the dispatcher.
// Event names follow "<slug>.<action>", e.g. "categories.created".
package events

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/artpar/anvil/core/record"
)

// Actions carried in event names.
const (
	ActionCreated = "created"
	ActionUpdated = "updated"
	ActionDeleted = "deleted"
)

// Event describes one committed change.
type Event struct {
	// Name is "<resource>.<action>".
	Name     string        `json:"name"`
	Resource string        `json:"resource"`
	Model    string        `json:"model"`
	Action   string        `json:"action"`
	ID       record.Value  `json:"id"`
	Data     record.Record `json:"data,omitempty"`
	Time     time.Time     `json:"time"`
}

// Name builds an event name from a resource slug and action.
func Name(resource, action string) string {
	return resource + "." + action
}

// Handler processes an event. Errors are logged and do not stop delivery.
type Handler func(ctx context.Context, event Event) error

type subscription struct {
	id      uint64
	handler Handler
}

// Bus is a synchronous publish/subscribe bus. It is safe for concurrent use.
type Bus struct {
	mu       sync.RWMutex
	handlers map[string][]subscription
	nextID   uint64
	logger   zerolog.Logger
}

// NewBus creates a new event bus.
func NewBus(logger zerolog.Logger) *Bus {
	return &Bus{
		handlers: make(map[string][]subscription),
		logger:   logger,
	}
}

// Subscribe registers handler for pattern and returns a function that
// removes it. Patterns:
//   - "categories.created" - exact match
//   - "categories.*" - every action on a resource
//   - "*" - all events
func (b *Bus) Subscribe(pattern string, handler Handler) (unsubscribe func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	id := b.nextID
	b.handlers[pattern] = append(b.handlers[pattern], subscription{id: id, handler: handler})

	var once sync.Once
	return func() {
		once.Do(func() { b.remove(pattern, id) })
	}
}

func (b *Bus) remove(pattern string, id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	subs := b.handlers[pattern]
	for i, s := range subs {
		if s.id == id {
			b.handlers[pattern] = append(subs[:i:i], subs[i+1:]...)
			break
		}
	}
	if len(b.handlers[pattern]) == 0 {
		delete(b.handlers, pattern)
	}
}

// Publish delivers event to every matching handler in registration order:
// exact subscribers, then resource wildcards, then global wildcards.
func (b *Bus) Publish(ctx context.Context, event Event) {
	matched := b.match(event.Name)

	b.logger.Debug().
		Str("event", event.Name).
		Str("model", event.Model).
		Int("handlers", len(matched)).
		Msg("event published")

	for _, handler := range matched {
		if err := handler(ctx, event); err != nil {
			b.logger.Error().
				Err(err).
				Str("event", event.Name).
				Msg("event handler error")
		}
	}
}

// match snapshots the handlers so they run without holding the lock.
func (b *Bus) match(name string) []Handler {
	b.mu.RLock()
	defer b.mu.RUnlock()

	var matched []Handler
	collect := func(pattern string) {
		for _, s := range b.handlers[pattern] {
			matched = append(matched, s.handler)
		}
	}

	collect(name)
	if prefix, _, ok := strings.Cut(name, "."); ok {
		collect(prefix + ".*")
	}
	collect("*")
	return matched
}

// HasSubscribers reports whether any handler would receive an event
// named name.
func (b *Bus) HasSubscribers(name string) bool {
	return len(b.match(name)) > 0
}
