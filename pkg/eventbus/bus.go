// Package eventbus dispatches domain events to in-process subscribers.
//
// A Bus satisfies the service Publisher interface: Publish wraps the payload
// into an entity.Event and hands it to every handler subscribed to its type,
// then to every handler subscribed to all events. Handlers run synchronously
// in subscription order; a panicking handler is logged and skipped.
package eventbus

import (
	"encoding/json"
	"sync"

	"github.com/Koyo-os/form-builder/internal/entity"
	"github.com/Koyo-os/form-builder/pkg/logger"
	"go.uber.org/zap"
)

type (
	Handler func(event entity.Event)

	subscription struct {
		id      uint64
		handler Handler
	}

	Bus struct {
		mu     sync.RWMutex
		nextID uint64
		byType map[string][]subscription
		all    []subscription
		logger *logger.Logger
	}
)

func New(logger *logger.Logger) *Bus {
	return &Bus{
		byType: make(map[string][]subscription),
		logger: logger,
	}
}

// Subscribe registers handler for one event type. The returned func removes it.
func (b *Bus) Subscribe(eventType string, handler Handler) func() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	id := b.nextID
	b.byType[eventType] = append(b.byType[eventType], subscription{id: id, handler: handler})

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()

		b.byType[eventType] = without(b.byType[eventType], id)
		if len(b.byType[eventType]) == 0 {
			delete(b.byType, eventType)
		}
	}
}

// SubscribeAll registers handler for every event type.
func (b *Bus) SubscribeAll(handler Handler) func() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	id := b.nextID
	b.all = append(b.all, subscription{id: id, handler: handler})

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()

		b.all = without(b.all, id)
	}
}

// Clear drops the handlers of eventType, or every handler when eventType is empty.
func (b *Bus) Clear(eventType string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if eventType == "" {
		b.byType = make(map[string][]subscription)
		b.all = nil
		return
	}

	delete(b.byType, eventType)
}

// Publish encodes payload as the body of a new event of type routingKey and dispatches it.
func (b *Bus) Publish(payload any, routingKey string) error {
	body, err := json.Marshal(payload)
	if err != nil {
		b.logger.Error("error encode event payload",
			zap.String("event_type", routingKey),
			zap.Error(err),
		)
		return err
	}

	b.Dispatch(*entity.NewEvent(routingKey, body))
	return nil
}

// Dispatch delivers an already built event.
func (b *Bus) Dispatch(event entity.Event) {
	b.mu.RLock()
	handlers := make([]subscription, 0, len(b.byType[event.Type])+len(b.all))
	handlers = append(handlers, b.byType[event.Type]...)
	handlers = append(handlers, b.all...)
	b.mu.RUnlock()

	for _, sub := range handlers {
		b.call(sub.handler, event)
	}
}

func (b *Bus) call(handler Handler, event entity.Event) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("event handler panicked",
				zap.String("event_type", event.Type),
				zap.String("event_id", event.ID),
				zap.Any("panic", r),
			)
		}
	}()

	handler(event)
}

func without(subs []subscription, id uint64) []subscription {
	out := subs[:0:0]
	for _, s := range subs {
		if s.id != id {
			out = append(out, s)
		}
	}
	return out
}
