package event_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/randalmurphal/h5pruntime/pkg/h5p/event"
)

func TestOnRejectsNilHandler(t *testing.T) {
	d := event.NewDispatcher()

	_, err := d.On("resize", nil)
	assert.ErrorIs(t, err, event.ErrNilHandler)

	_, err = d.Once("resize", nil)
	assert.ErrorIs(t, err, event.ErrNilHandler)
}

func TestTriggerOrder(t *testing.T) {
	d := event.NewDispatcher()
	var calls []string

	_, _ = d.On(event.Wildcard, func(*event.Event) { calls = append(calls, "wild") })
	_, _ = d.On("x", func(*event.Event) { calls = append(calls, "first") })
	_, _ = d.On("x", func(*event.Event) { calls = append(calls, "second") })

	d.Emit("x", nil)

	assert.Equal(t, []string{"first", "second", "wild"}, calls)
}

func TestOffAllRemovesEveryHandler(t *testing.T) {
	d := event.NewDispatcher()
	count := 0
	for i := 0; i < 3; i++ {
		_, err := d.On("x", func(*event.Event) { count++ })
		require.NoError(t, err)
	}

	var removed []event.ListenerInfo
	_, _ = d.On(event.TypeRemoveListener, func(e *event.Event) {
		removed = append(removed, e.Data.(event.ListenerInfo))
	})

	d.OffAll("x")
	d.Emit("x", nil)

	assert.Equal(t, 0, count)
	assert.Equal(t, 0, d.ListenerCount("x"))
	require.Len(t, removed, 1)
	assert.Equal(t, event.ListenerInfo{Type: "x"}, removed[0])
}

func TestOffRemovesOneHandler(t *testing.T) {
	d := event.NewDispatcher()
	var calls []string

	a, _ := d.On("x", func(*event.Event) { calls = append(calls, "a") })
	_, _ = d.On("x", func(*event.Event) { calls = append(calls, "b") })

	var removed []event.ListenerInfo
	_, _ = d.On(event.TypeRemoveListener, func(e *event.Event) {
		removed = append(removed, e.Data.(event.ListenerInfo))
	})

	d.Off("x", a)
	d.Emit("x", nil)

	assert.Equal(t, []string{"b"}, calls)
	assert.Equal(t, []event.ListenerInfo{{Type: "x", ID: a}}, removed)
}

func TestOffUnknownTypeIsNoop(t *testing.T) {
	d := event.NewDispatcher()
	notified := false
	_, _ = d.On(event.TypeRemoveListener, func(*event.Event) { notified = true })

	d.Off("missing", 99)
	d.OffAll("missing")

	assert.False(t, notified)
}

func TestOnceFiresOnce(t *testing.T) {
	d := event.NewDispatcher()
	count := 0
	_, err := d.Once("x", func(*event.Event) { count++ })
	require.NoError(t, err)

	d.Emit("x", nil)
	d.Emit("x", nil)

	assert.Equal(t, 1, count)
	assert.Equal(t, 0, d.ListenerCount("x"))
}

func TestOnceReentrantTrigger(t *testing.T) {
	d := event.NewDispatcher()
	count := 0
	_, _ = d.Once("x", func(*event.Event) {
		count++
		d.Emit("x", nil)
	})

	d.Emit("x", nil)

	assert.Equal(t, 1, count)
}

func TestSnapshotDuringDispatch(t *testing.T) {
	d := event.NewDispatcher()
	var calls []string

	var second event.ListenerID
	_, _ = d.On("x", func(*event.Event) {
		calls = append(calls, "first")
		d.Off("x", second)
		_, _ = d.On("x", func(*event.Event) { calls = append(calls, "late") })
	})
	second, _ = d.On("x", func(*event.Event) { calls = append(calls, "second") })

	d.Emit("x", nil)
	assert.Equal(t, []string{"first", "second"}, calls)

	calls = nil
	d.Emit("x", nil)
	assert.Equal(t, []string{"first", "late"}, calls)
}

func TestNewListenerFiresBeforeInsert(t *testing.T) {
	d := event.NewDispatcher()
	var seen []event.ListenerInfo
	var countAtNotify int

	_, _ = d.On(event.TypeNewListener, func(e *event.Event) {
		info := e.Data.(event.ListenerInfo)
		seen = append(seen, info)
		countAtNotify = d.ListenerCount(info.Type)
	})

	id, err := d.On("x", func(*event.Event) {})
	require.NoError(t, err)

	require.Len(t, seen, 1)
	assert.Equal(t, event.ListenerInfo{Type: "x", ID: id}, seen[0])
	assert.Equal(t, 0, countAtNotify)
	assert.Equal(t, 1, d.ListenerCount("x"))
}

func TestNewListenerObserverMayRegister(t *testing.T) {
	d := event.NewDispatcher()
	registered := 0
	_, _ = d.On(event.TypeNewListener, func(e *event.Event) {
		if e.Data.(event.ListenerInfo).Type == "x" {
			registered++
			_, _ = d.On("y", func(*event.Event) {})
		}
	})

	_, _ = d.On("x", func(*event.Event) {})

	assert.Equal(t, 1, registered)
	assert.Equal(t, 1, d.ListenerCount("y"))
}

func TestTriggerWithReplacesPayload(t *testing.T) {
	d := event.NewDispatcher()
	var got any
	_, _ = d.On("x", func(e *event.Event) { got = e.Data })

	evt := event.New("x", "old")
	d.TriggerWith(evt, "new")

	assert.Equal(t, "new", got)
	assert.Equal(t, "new", evt.Data)
}

func TestBubblingReachesParentOnce(t *testing.T) {
	parent := event.NewDispatcher()
	child := event.NewDispatcher(event.WithParent(parent))

	count := 0
	var got *event.Event
	_, _ = parent.On("x", func(e *event.Event) {
		count++
		got = e
	})

	evt := child.Emit("x", nil, event.WithBubbles())

	assert.Equal(t, 1, count)
	assert.Same(t, evt, got)

	child.Emit("x", nil)
	assert.Equal(t, 1, count, "non-bubbling events stay local")
}

func TestSetParent(t *testing.T) {
	parent := event.NewDispatcher()
	child := event.NewDispatcher()
	assert.Nil(t, child.Parent())

	child.SetParent(parent)
	assert.Equal(t, event.Emitter(parent), child.Parent())
}
