package results_test

import (
	"bytes"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/randalmurphal/h5pruntime/pkg/h5p/event"
	"github.com/randalmurphal/h5pruntime/pkg/h5p/library"
	"github.com/randalmurphal/h5pruntime/pkg/h5p/results"
	"github.com/randalmurphal/h5pruntime/pkg/h5p/storage"
	"github.com/randalmurphal/h5pruntime/pkg/h5p/xapi"
)

type activity struct {
	id     int64
	sub    string
	parent xapi.Activity
}

func (a *activity) ContentID() int64 { return a.id }
func (a *activity) SubContentID() string { return a.sub }
func (a *activity) ParentActivity() xapi.Activity { return a.parent }
func (a *activity) LibraryInfo() (library.Info, bool) {
	return library.New("H5P.Column", 1, 16), true
}

func statement(verb string, inst *activity, score, maxScore float64, scored bool) *event.Event {
	evt := xapi.NewEvent(&xapi.Environment{SiteURL: "https://example.org"})
	evt.SetVerb(verb)
	evt.SetObject(inst)
	evt.SetContext(inst)
	if scored {
		evt.SetScoredResult(score, maxScore, nil)
	}
	return evt.Event
}

func newRecorder(t *testing.T, now time.Time) (*results.Recorder, *event.Bus, *bytes.Buffer) {
	t.Helper()
	logs := &bytes.Buffer{}
	rec := results.NewRecorder(results.Config{
		Store:  storage.NewMemoryStore(),
		Logger: slog.New(slog.NewJSONHandler(logs, nil)),
		Now:    func() time.Time { return now },
	})
	bus := event.NewBus(event.BusConfig{})
	require.NoError(t, rec.Subscribe(bus))
	return rec, bus, logs
}

func TestRecorderStoresTopLevelCompletion(t *testing.T) {
	now := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	rec, bus, logs := newRecorder(t, now)
	rec.MarkOpened(4, now.Add(-90*time.Second))

	bus.Trigger(statement(xapi.VerbCompleted, &activity{id: 4}, 15, 30, true))

	res, err := rec.Result(4)
	require.NoError(t, err)
	assert.Equal(t, results.Result{
		ContentID: 4,
		Score:     15,
		MaxScore:  30,
		Opened:    now.Add(-90 * time.Second),
		Finished:  now,
		Time:      90,
	}, res)
	assert.Contains(t, logs.String(), "15/30")
}

func TestRecorderIgnores(t *testing.T) {
	root := &activity{id: 4}
	tests := []struct {
		name string
		evt  *event.Event
	}{
		{name: "other verb", evt: statement(xapi.VerbProgressed, root, 1, 1, true)},
		{name: "child statement", evt: statement(xapi.VerbAnswered, &activity{id: 4, sub: "q", parent: root}, 1, 1, true)},
		{name: "no score", evt: statement(xapi.VerbCompleted, root, 0, 0, false)},
		{name: "no content id", evt: statement(xapi.VerbCompleted, &activity{}, 1, 1, true)},
		{name: "not xAPI", evt: event.New("resize", nil)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, bus, _ := newRecorder(t, time.Now())
			bus.Trigger(tt.evt)

			got, err := rec.Results()
			require.NoError(t, err)
			assert.Empty(t, got)
		})
	}
}

func TestRecorderWithoutOpened(t *testing.T) {
	now := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	rec, bus, _ := newRecorder(t, now)

	bus.Trigger(statement(xapi.VerbAnswered, &activity{id: 2}, 1, 1, true))

	res, err := rec.Result(2)
	require.NoError(t, err)
	assert.Equal(t, now, res.Opened)
	assert.Equal(t, int64(0), res.Time)
}

func TestRecorderResultsOrdered(t *testing.T) {
	rec, bus, _ := newRecorder(t, time.Now())

	for _, id := range []int64{10, 9, 100} {
		bus.Trigger(statement(xapi.VerbCompleted, &activity{id: id}, 1, 2, true))
	}
	bus.Trigger(statement(xapi.VerbCompleted, &activity{id: 9}, 2, 2, true))

	got, err := rec.Results()
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, []int64{9, 10, 100}, []int64{got[0].ContentID, got[1].ContentID, got[2].ContentID})
	assert.Equal(t, 2.0, got[0].Score)
}

func TestRecorderClose(t *testing.T) {
	rec, bus, _ := newRecorder(t, time.Now())

	require.NoError(t, rec.Close())
	assert.ErrorIs(t, rec.Close(), results.ErrNotSubscribed)

	bus.Trigger(statement(xapi.VerbCompleted, &activity{id: 1}, 1, 1, true))
	_, err := rec.Result(1)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}
