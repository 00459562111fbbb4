package events

import (
	"context"
	"sync"
)

// EventHandler handles a published event.
type EventHandler func(context.Context, Event) error

// Unsubscribe detaches a handler. It is safe to call more than once.
type Unsubscribe func()

// Dispatcher interface allows event publication/subscription.
type Dispatcher interface {
	Publish(ctx context.Context, event Event) error
	Subscribe(eventType EventType, handler EventHandler) Unsubscribe
}

type subscription struct {
	id      uint64
	handler EventHandler
}

// inMemoryDispatcher is a simple synchronous dispatcher.
type inMemoryDispatcher struct {
	mu        sync.RWMutex
	nextID    uint64
	listeners map[EventType][]subscription
}

// NewInMemoryDispatcher creates a dispatcher instance.
func NewInMemoryDispatcher() Dispatcher {
	return &inMemoryDispatcher{
		listeners: make(map[EventType][]subscription),
	}
}

// Publish synchronously invokes handlers for the given event.
func (d *inMemoryDispatcher) Publish(ctx context.Context, event Event) error {
	d.mu.RLock()
	subs := append([]subscription{}, d.listeners[event.Type]...)
	d.mu.RUnlock()

	for _, sub := range subs {
		// one failing listener must not starve the others
		_ = sub.handler(ctx, event)
	}
	return nil
}

// Subscribe registers a handler for the given event type.
func (d *inMemoryDispatcher) Subscribe(eventType EventType, handler EventHandler) Unsubscribe {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.nextID++
	id := d.nextID
	d.listeners[eventType] = append(d.listeners[eventType], subscription{id: id, handler: handler})

	var once sync.Once
	return func() {
		once.Do(func() { d.remove(eventType, id) })
	}
}

func (d *inMemoryDispatcher) remove(eventType EventType, id uint64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	subs := d.listeners[eventType]
	for i, sub := range subs {
		if sub.id == id {
			d.listeners[eventType] = append(subs[:i:i], subs[i+1:]...)
			break
		}
	}
	if len(d.listeners[eventType]) == 0 {
		delete(d.listeners, eventType)
	}
}
