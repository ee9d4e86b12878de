package event

import (
	"sync"

	"github.com/randalmurphal/h5pruntime/pkg/h5p/observability"
)

// BusConfig configures bus behavior.
type BusConfig struct {
	// Metrics records dispatches on the bus and on every dispatcher it creates.
	// Default: observability.NoopMetrics{}
	Metrics observability.MetricsRecorder
}

// Bus is the external dispatcher. Every dispatcher created through
// NewDispatcher forwards External events here exactly once, so host code can
// observe all activity in one place.
//
// A Bus also owns the deferred work queue shared by its dispatchers.
type Bus struct {
	*Dispatcher

	loop    *loop
	metrics observability.MetricsRecorder
}

// NewBus creates an external bus.
func NewBus(config BusConfig) *Bus {
	if config.Metrics == nil {
		config.Metrics = observability.NoopMetrics{}
	}
	l := &loop{}
	d := NewDispatcher(WithMetrics(config.Metrics))
	d.loop = l
	return &Bus{
		Dispatcher: d,
		loop:       l,
		metrics:    config.Metrics,
	}
}

// NewDispatcher creates a dispatcher whose External events reach this bus.
func (b *Bus) NewDispatcher(opts ...DispatcherOption) *Dispatcher {
	d := NewDispatcher(WithExternalEmitter(b), WithMetrics(b.metrics))
	d.loop = b.loop
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Defer runs fn once the outermost Trigger in progress on any dispatcher of
// this bus has returned. It runs fn immediately when nothing is dispatching.
func (b *Bus) Defer(fn func()) {
	b.loop.schedule(fn)
}

// loop tracks dispatch nesting and holds work deferred until it unwinds.
type loop struct {
	mu    sync.Mutex
	depth int
	queue []func()
}

func (l *loop) enter() {
	l.mu.Lock()
	l.depth++
	l.mu.Unlock()
}

func (l *loop) exit() {
	l.mu.Lock()
	l.depth--
	for l.depth == 0 && len(l.queue) > 0 {
		queue := l.queue
		l.queue = nil
		l.mu.Unlock()
		for _, fn := range queue {
			fn()
		}
		l.mu.Lock()
	}
	l.mu.Unlock()
}

func (l *loop) schedule(fn func()) {
	if fn == nil {
		return
	}
	l.mu.Lock()
	if l.depth > 0 {
		l.queue = append(l.queue, fn)
		l.mu.Unlock()
		return
	}
	l.mu.Unlock()
	fn()
}
