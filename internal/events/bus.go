package events

import (
	"github.com/kelindar/event"
)

// Bus wraps a kelindar/event dispatcher for render-event broadcasting.
type Bus struct {
	dispatcher *event.Dispatcher
}

// New creates a new event bus.
func New() *Bus {
	return &Bus{
		dispatcher: event.NewDispatcher(),
	}
}

// Publish delivers an event to all subscribers of its type.
// Usage: bus.Publish(CueEvent{...})
func (b *Bus) Publish(ev Event) {
	// The generic Publish needs the concrete type, hence the switch.
	switch e := ev.(type) {
	case CueEvent:
		event.Publish(b.dispatcher, e)
	case StateSyncEvent:
		event.Publish(b.dispatcher, e)
	case TransportChangedEvent:
		event.Publish(b.dispatcher, e)
	}
}

// Subscribe registers a handler function; the handler's parameter type
// selects which events it receives. Returns an unsubscribe function.
// Usage: unsub := bus.Subscribe(func(e CueEvent) { ... })
func (b *Bus) Subscribe(handler any) func() {
	switch h := handler.(type) {
	case func(CueEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(StateSyncEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(TransportChangedEvent):
		return event.Subscribe(b.dispatcher, h)
	default:
		return func() {}
	}
}
