package event

import (
	"context"
	"slices"
	"sync"

	"github.com/randalmurphal/h5pruntime/pkg/h5p/observability"
)

// registration is one handler bound to one event type.
type registration struct {
	id      ListenerID
	handler Handler
}

// Dispatcher is a per-instance publish/subscribe registry.
//
// The lock only guards the registry; handlers run without it held, so they
// may call On, Off, or Trigger on the same dispatcher.
type Dispatcher struct {
	mu        sync.Mutex
	listeners map[string][]registration
	nextID    ListenerID

	parent   Emitter
	external Emitter
	loop     *loop
	metrics  observability.MetricsRecorder
}

// DispatcherOption configures a Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithParent sets the Emitter bubbling events are forwarded to.
func WithParent(parent Emitter) DispatcherOption {
	return func(d *Dispatcher) {
		d.parent = parent
	}
}

// WithExternalEmitter sets where External events are forwarded once.
// Dispatchers created by Bus.NewDispatcher already point at the bus.
func WithExternalEmitter(external Emitter) DispatcherOption {
	return func(d *Dispatcher) {
		d.external = external
	}
}

// WithMetrics records dispatch counts.
func WithMetrics(m observability.MetricsRecorder) DispatcherOption {
	return func(d *Dispatcher) {
		if m != nil {
			d.metrics = m
		}
	}
}

// NewDispatcher creates a standalone dispatcher.
// Most callers want Bus.NewDispatcher instead.
func NewDispatcher(opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		listeners: make(map[string][]registration),
		metrics:   observability.NoopMetrics{},
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// SetParent replaces the bubbling target.
func (d *Dispatcher) SetParent(parent Emitter) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.parent = parent
}

// Parent returns the bubbling target, or nil.
func (d *Dispatcher) Parent() Emitter {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.parent
}

// On registers h for eventType. A newListener event is triggered before the
// handler is added, so a newListener observer that calls On does not see
// its own registration.
func (d *Dispatcher) On(eventType string, h Handler) (ListenerID, error) {
	if h == nil {
		return 0, ErrNilHandler
	}
	id := d.allocateID()
	d.Trigger(New(TypeNewListener, ListenerInfo{Type: eventType, ID: id}))
	d.insert(eventType, id, h)
	return id, nil
}

// Once registers h for eventType and removes it before its first call.
func (d *Dispatcher) Once(eventType string, h Handler) (ListenerID, error) {
	if h == nil {
		return 0, ErrNilHandler
	}
	id := d.allocateID()
	wrapper := func(evt *Event) {
		d.Off(eventType, id)
		h(evt)
	}
	d.Trigger(New(TypeNewListener, ListenerInfo{Type: eventType, ID: id}))
	d.insert(eventType, id, wrapper)
	return id, nil
}

// Off removes the registration id from eventType and triggers
// removeListener. It does nothing when the registration does not exist.
func (d *Dispatcher) Off(eventType string, id ListenerID) {
	d.mu.Lock()
	regs, ok := d.listeners[eventType]
	if !ok {
		d.mu.Unlock()
		return
	}

	removed := false
	for i, r := range regs {
		if r.id == id {
			regs = slices.Delete(regs, i, i+1)
			removed = true
			break
		}
	}
	if len(regs) == 0 {
		delete(d.listeners, eventType)
	} else {
		d.listeners[eventType] = regs
	}
	d.mu.Unlock()

	if removed {
		d.Trigger(New(TypeRemoveListener, ListenerInfo{Type: eventType, ID: id}))
	}
}

// OffAll removes every handler for eventType and triggers removeListener
// carrying only the type.
func (d *Dispatcher) OffAll(eventType string) {
	d.mu.Lock()
	_, ok := d.listeners[eventType]
	delete(d.listeners, eventType)
	d.mu.Unlock()

	if ok {
		d.Trigger(New(TypeRemoveListener, ListenerInfo{Type: eventType}))
	}
}

// ListenerCount returns how many handlers are registered for eventType.
func (d *Dispatcher) ListenerCount(eventType string) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.listeners[eventType])
}

// Emit builds an event from its parts and triggers it.
func (d *Dispatcher) Emit(eventType string, data any, opts ...EventOption) *Event {
	evt := New(eventType, data, opts...)
	d.Trigger(evt)
	return evt
}

// TriggerWith replaces the payload of evt with data and triggers it.
func (d *Dispatcher) TriggerWith(evt *Event, data any) {
	if evt == nil {
		return
	}
	evt.Data = data
	d.Trigger(evt)
}

// Trigger dispatches evt. See the package documentation for the order.
func (d *Dispatcher) Trigger(evt *Event) {
	if evt == nil {
		return
	}
	if d.loop != nil {
		d.loop.enter()
		defer d.loop.exit()
	}

	scheduled := evt.ScheduleForExternal()

	typed := d.snapshot(evt.Type)
	for _, r := range typed {
		r.handler(evt)
	}

	wildcards := d.snapshot(Wildcard)
	for _, r := range wildcards {
		r.handler(evt)
	}

	d.metrics.RecordDispatch(context.Background(), evt.Type, len(typed)+len(wildcards))

	d.mu.Lock()
	parent, external := d.parent, d.external
	d.mu.Unlock()

	if evt.Bubbles && parent != nil {
		parent.Trigger(evt)
	}
	if scheduled && external != nil {
		external.Trigger(evt)
	}
}

func (d *Dispatcher) allocateID() ListenerID {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.nextID++
	return d.nextID
}

func (d *Dispatcher) insert(eventType string, id ListenerID, h Handler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.listeners[eventType] = append(d.listeners[eventType], registration{id: id, handler: h})
}

// snapshot copies the registrations for eventType.
func (d *Dispatcher) snapshot(eventType string) []registration {
	d.mu.Lock()
	defer d.mu.Unlock()

	regs := d.listeners[eventType]
	if len(regs) == 0 {
		return nil
	}
	out := make([]registration, len(regs))
	copy(out, regs)
	return out
}
