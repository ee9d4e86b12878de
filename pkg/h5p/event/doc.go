// Package event provides the publish/subscribe primitives every content
// instance is built on.
//
// # Overview
//
//   - Event: a type tag, an opaque payload, and two routing flags
//     (Bubbles, External)
//   - Dispatcher: per-instance registry with On/Once/Off/Trigger, a "*"
//     wildcard subscription, and bubbling to a parent Emitter
//   - Bus: the host-observable dispatcher every External event is funnelled
//     into, plus a deferred work queue that runs after the outermost
//     dispatch returns
//
// # Dispatch order
//
// Trigger runs, in order:
//
//  1. ScheduleForExternal on the event (flips once per event instance)
//  2. handlers registered for the literal type, on a snapshot
//  3. handlers registered for "*", on a snapshot taken after step 2
//  4. the parent's Trigger when the event bubbles
//  5. the external Emitter's Trigger when step 1 returned true
//
// Handlers added or removed while a dispatch is running do not change the
// set of handlers that dispatch reaches.
//
// # Usage
//
//	bus := event.NewBus(event.BusConfig{})
//	parent := bus.NewDispatcher()
//	child := bus.NewDispatcher(event.WithParent(parent))
//
//	bus.On("xAPI", func(e *event.Event) { ... })
//	child.Emit("xAPI", payload, event.WithBubbles(), event.WithExternal())
//
// Dispatch is synchronous. There is no cycle detection: a handler that
// triggers its own event type on the same dispatcher recurses.
package event
