package event

import (
	"time"

	"github.com/google/uuid"
)

// Reserved event types.
const (
	// Wildcard subscribes to every event type.
	Wildcard = "*"

	// TypeNewListener is triggered before a handler is registered.
	TypeNewListener = "newListener"

	// TypeRemoveListener is triggered after one or more handlers are removed.
	TypeRemoveListener = "removeListener"

	// TypeResize asks listeners to recalculate layout.
	TypeResize = "resize"

	// TypeDOMChanged is triggered after content is attached to a container.
	TypeDOMChanged = "domChanged"
)

// Event is the envelope passed to handlers.
// Only the external scheduling flag changes after creation.
type Event struct {
	ID        string
	Type      string
	Data      any
	Bubbles   bool
	External  bool
	Timestamp time.Time

	scheduledForExternal bool
}

// EventOption configures event creation.
type EventOption func(*Event)

// WithBubbles makes the event propagate to the dispatcher's parent.
func WithBubbles() EventOption {
	return func(e *Event) {
		e.Bubbles = true
	}
}

// WithExternal makes the event reach the external bus once.
func WithExternal() EventOption {
	return func(e *Event) {
		e.External = true
	}
}

// New creates an event with the given type and payload.
func New(eventType string, data any, opts ...EventOption) *Event {
	e := &Event{
		ID:        uuid.New().String(),
		Type:      eventType,
		Data:      data,
		Timestamp: time.Now(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// ScheduleForExternal reports whether this call is the first one for an
// External event. Every later call returns false.
func (e *Event) ScheduleForExternal() bool {
	if e.External && !e.scheduledForExternal {
		e.scheduledForExternal = true
		return true
	}
	return false
}

// ScheduledForExternal reports whether the event has already been routed
// towards the external bus.
func (e *Event) ScheduledForExternal() bool {
	return e.scheduledForExternal
}

// Handler processes an event.
type Handler func(evt *Event)

// ListenerID identifies one registration on a Dispatcher.
type ListenerID uint64

// ListenerInfo is the payload of newListener and removeListener events.
// ID is zero when every handler for Type was removed at once.
type ListenerInfo struct {
	Type string
	ID   ListenerID
}

// Emitter is anything events can be forwarded to.
type Emitter interface {
	Trigger(evt *Event)
}
