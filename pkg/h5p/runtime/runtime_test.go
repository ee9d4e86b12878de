package runtime_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/randalmurphal/h5pruntime/pkg/h5p/event"
	"github.com/randalmurphal/h5pruntime/pkg/h5p/runtime"
	"github.com/randalmurphal/h5pruntime/pkg/h5p/storage"
	"github.com/randalmurphal/h5pruntime/pkg/h5p/xapi"
)

// quiz is a small content type used across the runtime tests.
type quiz struct {
	*runtime.ContentType
	params struct {
		Title string `json:"title"`
	}
	extras runtime.Extras
	state  any
}

func (q *quiz) Attach(c runtime.Container) { c.SetText(q.params.Title) }
func (q *quiz) Title() string { return q.params.Title }
func (q *quiz) GetCurrentState() any { return q.state }

func newQuiz(_ context.Context, params json.RawMessage, _ int64, extras runtime.Extras) (runtime.Instance, error) {
	q := &quiz{ContentType: extras.Base, extras: extras}
	if err := json.Unmarshal(params, &q.params); err != nil {
		return nil, err
	}
	return q, nil
}

type fixture struct {
	rt     *runtime.Runtime
	env    *xapi.Environment
	errs   []error
	logs   *bytes.Buffer
	opened []int64
}

func newFixture(t *testing.T, saveFrequency int) *fixture {
	t.Helper()
	f := &fixture{logs: &bytes.Buffer{}}
	f.env = &xapi.Environment{
		SiteURL: "https://example.org",
		Contents: map[string]xapi.ContentInfo{
			"cid-1": {URL: "https://example.org/h5p/1", Title: "Quiz"},
		},
		Store: storage.NewMemoryStore(),
	}
	f.rt = runtime.New(runtime.Config{
		Env:           f.env,
		URL:           "https://example.org/h5p",
		SaveFrequency: saveFrequency,
		Logger:        slog.New(slog.NewJSONHandler(f.logs, nil)),
		OnError:       func(err error) { f.errs = append(f.errs, err) },
		OnOpened:      func(id int64, _ time.Time) { f.opened = append(f.opened, id) },
	})
	require.NoError(t, f.rt.Register("H5P.Quiz", newQuiz))
	return f
}

func quizDescriptor(title string) runtime.Descriptor {
	return runtime.Descriptor{
		Library: "H5P.Quiz 1.4",
		Params:  json.RawMessage(`{"title":"` + title + `"}`),
	}
}

func TestNewRunnableLibraryWithoutVersion(t *testing.T) {
	f := newFixture(t, 0)

	inst, err := f.rt.NewRunnable(context.Background(), runtime.Descriptor{
		Library: "BadLibrary",
		Params:  json.RawMessage(`{}`),
	}, 1)

	assert.Nil(t, inst)
	require.ErrorIs(t, err, runtime.ErrInvalidLibrary)

	var cerr *runtime.ConstructionError
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, "BadLibrary", cerr.Library)
	assert.Equal(t, int64(1), cerr.ContentID)

	assert.Empty(t, f.rt.Instances())
	assert.Empty(t, f.opened)
	require.Len(t, f.errs, 1)
	assert.Contains(t, f.logs.String(), "content instantiation failed")
}

func TestNewRunnableLogsDuration(t *testing.T) {
	logs := &bytes.Buffer{}
	rt := runtime.New(runtime.Config{
		Env:    &xapi.Environment{SiteURL: "https://example.org"},
		Logger: slog.New(slog.NewJSONHandler(logs, &slog.HandlerOptions{Level: slog.LevelDebug})),
	})
	require.NoError(t, rt.Register("H5P.Quiz", newQuiz))

	_, err := rt.NewRunnable(context.Background(), quizDescriptor("Capitals"), 1)
	require.NoError(t, err)

	var entry map[string]any
	dec := json.NewDecoder(logs)
	for dec.More() {
		var e map[string]any
		require.NoError(t, dec.Decode(&e))
		if e["msg"] == "content instance created" {
			entry = e
		}
	}
	require.NotNil(t, entry)
	assert.Equal(t, "H5P.Quiz 1.4", entry["library"])
	ms, ok := entry["duration_ms"].(float64)
	require.True(t, ok)
	assert.GreaterOrEqual(t, ms, 0.0)
}

func TestNewRunnableFailures(t *testing.T) {
	tests := []struct {
		name    string
		library string
		params  string
		ctor    runtime.Constructor
		wantErr error
	}{
		{name: "bad version", library: "H5P.Quiz one", params: `{}`, wantErr: runtime.ErrInvalidLibrary},
		{name: "array params", library: "H5P.Quiz 1.0", params: `[1,2]`, wantErr: runtime.ErrInvalidParams},
		{name: "string params", library: "H5P.Quiz 1.0", params: `"text"`, wantErr: runtime.ErrInvalidParams},
		{name: "empty params", library: "H5P.Quiz 1.0", params: ``, wantErr: runtime.ErrInvalidParams},
		{name: "broken params", library: "H5P.Quiz 1.0", params: `{"a":`, wantErr: runtime.ErrInvalidParams},
		{name: "unknown library", library: "H5P.Nope 1.0", params: `{}`, wantErr: runtime.ErrUnknownLibrary},
		{
			name:    "constructor error",
			library: "H5P.Custom 1.0",
			params:  `{}`,
			ctor: func(context.Context, json.RawMessage, int64, runtime.Extras) (runtime.Instance, error) {
				return nil, errors.New("missing media")
			},
			wantErr: runtime.ErrConstructor,
		},
		{
			name:    "constructor panic",
			library: "H5P.Custom 1.0",
			params:  `{}`,
			ctor: func(context.Context, json.RawMessage, int64, runtime.Extras) (runtime.Instance, error) {
				panic("boom")
			},
			wantErr: runtime.ErrConstructor,
		},
		{
			name:    "no content base",
			library: "H5P.Custom 1.0",
			params:  `{}`,
			ctor: func(context.Context, json.RawMessage, int64, runtime.Extras) (runtime.Instance, error) {
				return &quiz{}, nil
			},
			wantErr: runtime.ErrConstructor,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, 0)
			if tt.ctor != nil {
				require.NoError(t, f.rt.Register("H5P.Custom", tt.ctor))
			}

			inst, err := f.rt.NewRunnable(context.Background(), runtime.Descriptor{
				Library: tt.library,
				Params:  json.RawMessage(tt.params),
			}, 1)

			assert.Nil(t, inst)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Empty(t, f.rt.Instances())
			assert.Len(t, f.errs, 1)
		})
	}
}

func TestConstructorPanicKeepsStack(t *testing.T) {
	f := newFixture(t, 0)
	require.NoError(t, f.rt.Register("H5P.Custom", func(context.Context, json.RawMessage, int64, runtime.Extras) (runtime.Instance, error) {
		panic("boom")
	}))

	_, err := f.rt.NewRunnable(context.Background(), runtime.Descriptor{Library: "H5P.Custom 1.0", Params: json.RawMessage(`{}`)}, 1)

	var perr *runtime.PanicError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "boom", perr.Value)
	assert.NotEmpty(t, perr.Stack)
}

func TestNewRunnableBuildsContent(t *testing.T) {
	f := newFixture(t, 0)
	md := &runtime.Metadata{Title: "Quiz"}
	d := quizDescriptor("Capitals")
	d.Metadata = md

	inst, err := f.rt.NewRunnable(context.Background(), d, 1, runtime.Standalone())
	require.NoError(t, err)

	q := inst.(*quiz)
	c := inst.Content()
	assert.Equal(t, "Capitals", q.Title())
	assert.Equal(t, int64(1), c.ContentID())
	assert.Empty(t, c.SubContentID())
	assert.Nil(t, c.ParentInstance())
	assert.True(t, c.IsRoot())
	assert.Same(t, md, c.Metadata())
	assert.Same(t, f.rt, c.Runtime())

	info, ok := c.LibraryInfo()
	require.True(t, ok)
	assert.Equal(t, "H5P.Quiz", info.MachineName)
	assert.Equal(t, "H5P.Quiz-1.4", info.VersionedNameNoSpaces)
	assert.Equal(t, "https://example.org/h5p/libraries/H5P.Quiz-1.4/icon.svg", c.LibraryFilePath("icon.svg"))

	assert.Equal(t, []runtime.Instance{inst}, f.rt.Instances())
	assert.Equal(t, []int64{1}, f.opened)
	assert.Empty(t, f.errs)
}

func TestNewRunnableAttach(t *testing.T) {
	f := newFixture(t, 0)

	var seen []string
	var changed runtime.DOMChanged
	_, _ = f.rt.Bus().On(event.Wildcard, func(evt *event.Event) {
		seen = append(seen, evt.Type)
		if evt.Type == event.TypeDOMChanged {
			changed = evt.Data.(runtime.DOMChanged)
		}
	})

	target := runtime.NewElement("h5p-content")
	_, err := f.rt.NewRunnable(context.Background(), quizDescriptor("Capitals"), 1,
		runtime.AttachTo(target), runtime.Standalone())
	require.NoError(t, err)

	assert.True(t, target.HasClass(runtime.StandaloneClass))
	assert.Equal(t, "Capitals", target.Text())
	assert.Equal(t, []string{event.TypeDOMChanged}, seen)
	assert.Equal(t, "H5P.Quiz", changed.Library)
	assert.Equal(t, "newLibrary", changed.Key)
	assert.Same(t, target, changed.Target)
}

func TestNewRunnableResize(t *testing.T) {
	for name, skip := range map[string]bool{"resize": false, "skip resize": true} {
		t.Run(name, func(t *testing.T) {
			f := newFixture(t, 0)
			resized := 0
			require.NoError(t, f.rt.Register("H5P.Resizable", func(_ context.Context, _ json.RawMessage, _ int64, extras runtime.Extras) (runtime.Instance, error) {
				_, err := extras.Base.On(event.TypeResize, func(*event.Event) { resized++ })
				return &quiz{ContentType: extras.Base}, err
			}))

			opts := []runtime.RunnableOption{runtime.AttachTo(runtime.NewElement())}
			if skip {
				opts = append(opts, runtime.SkipResize())
			}
			_, err := f.rt.NewRunnable(context.Background(), runtime.Descriptor{
				Library: "H5P.Resizable 1.0",
				Params:  json.RawMessage(`{}`),
			}, 1, opts...)
			require.NoError(t, err)

			if skip {
				assert.Equal(t, 0, resized)
			} else {
				assert.Equal(t, 1, resized)
			}
		})
	}
}

func TestNoResizeWithoutAttach(t *testing.T) {
	f := newFixture(t, 0)
	resized := 0
	require.NoError(t, f.rt.Register("H5P.Resizable", func(_ context.Context, _ json.RawMessage, _ int64, extras runtime.Extras) (runtime.Instance, error) {
		_, err := extras.Base.On(event.TypeResize, func(*event.Event) { resized++ })
		return &quiz{ContentType: extras.Base}, err
	}))

	_, err := f.rt.NewRunnable(context.Background(), runtime.Descriptor{
		Library: "H5P.Resizable 1.0",
		Params:  json.RawMessage(`{}`),
	}, 1)
	require.NoError(t, err)
	assert.Equal(t, 0, resized)
}

func TestNewRunnableStandaloneClassRemoved(t *testing.T) {
	f := newFixture(t, 0)
	target := runtime.NewElement(runtime.StandaloneClass)

	_, err := f.rt.NewRunnable(context.Background(), quizDescriptor("Embedded"), 1, runtime.AttachTo(target))
	require.NoError(t, err)

	assert.False(t, target.HasClass(runtime.StandaloneClass))
}

func TestChildContent(t *testing.T) {
	f := newFixture(t, 0)
	ctx := context.Background()

	parent, err := f.rt.NewRunnable(ctx, quizDescriptor("Parent"), 1)
	require.NoError(t, err)

	d := quizDescriptor("Child")
	d.SubContentID = "sub-1"
	child, err := f.rt.NewRunnable(ctx, d, 1, runtime.WithParent(parent))
	require.NoError(t, err)

	assert.Equal(t, "sub-1", child.Content().SubContentID())
	assert.Same(t, parent, child.Content().ParentInstance())
	assert.Same(t, parent, child.(*quiz).extras.Parent)
	assert.Equal(t, []runtime.Instance{parent}, f.rt.Instances())
	assert.Equal(t, []int64{1}, f.opened)

	bubbled := 0
	_, _ = parent.Content().On("custom", func(*event.Event) { bubbled++ })
	child.Content().Emit("custom", nil, event.WithBubbles())
	child.Content().Emit("custom", nil)
	assert.Equal(t, 1, bubbled)
}

// legacy predates Extras and builds its own base.
type legacy struct {
	*runtime.ContentType
	extras runtime.Extras
}

func (l *legacy) Attach(runtime.Container) {}

func TestLegacyLibraryGetsEmptyExtras(t *testing.T) {
	f := newFixture(t, 0)
	require.NoError(t, f.rt.Register("H5P.CoursePresentation", func(_ context.Context, _ json.RawMessage, _ int64, extras runtime.Extras) (runtime.Instance, error) {
		return &legacy{ContentType: &runtime.ContentType{}, extras: extras}, nil
	}))

	for _, tt := range []struct {
		library string
		legacy  bool
	}{
		{library: "H5P.CoursePresentation 1.0", legacy: true},
		{library: "H5P.CoursePresentation 1.3", legacy: true},
		{library: "H5P.CoursePresentation 1.4", legacy: false},
	} {
		t.Run(tt.library, func(t *testing.T) {
			inst, err := f.rt.NewRunnable(context.Background(), runtime.Descriptor{
				Library:      tt.library,
				Params:       json.RawMessage(`{}`),
				SubContentID: "cp",
			}, 7, runtime.Standalone())
			require.NoError(t, err)

			l := inst.(*legacy)
			if tt.legacy {
				assert.Equal(t, runtime.Extras{}, l.extras)
			} else {
				assert.NotNil(t, l.extras.Base)
				assert.True(t, l.extras.Standalone)
			}

			c := inst.Content()
			assert.NotNil(t, c.Dispatcher)
			assert.Equal(t, int64(7), c.ContentID())
			assert.Equal(t, "cp", c.SubContentID())
			info, ok := c.LibraryInfo()
			require.True(t, ok)
			assert.Equal(t, tt.library, info.VersionedName)
		})
	}
}

func TestPreviousState(t *testing.T) {
	state := json.RawMessage(`{"answer":true}`)

	t.Run("ignored without save frequency", func(t *testing.T) {
		f := newFixture(t, 0)
		d := quizDescriptor("Q")
		d.UserDatas = &runtime.UserDatas{State: state}

		inst, err := f.rt.NewRunnable(context.Background(), d, 1)
		require.NoError(t, err)
		assert.Nil(t, inst.Content().PreviousState())
	})

	t.Run("descriptor state", func(t *testing.T) {
		f := newFixture(t, 30)
		d := quizDescriptor("Q")
		d.UserDatas = &runtime.UserDatas{State: state}

		inst, err := f.rt.NewRunnable(context.Background(), d, 1)
		require.NoError(t, err)
		assert.JSONEq(t, string(state), string(inst.Content().PreviousState()))
		assert.JSONEq(t, string(state), string(inst.(*quiz).extras.PreviousState))
	})

	t.Run("stored state", func(t *testing.T) {
		f := newFixture(t, 30)
		ctx := context.Background()

		first, err := f.rt.NewRunnable(ctx, quizDescriptor("Q"), 1)
		require.NoError(t, err)
		first.(*quiz).state = map[string]bool{"answer": false}
		require.NoError(t, f.rt.SaveState(ctx, first))

		second, err := f.rt.NewRunnable(ctx, quizDescriptor("Q"), 1)
		require.NoError(t, err)
		assert.JSONEq(t, `{"answer":false}`, string(second.Content().PreviousState()))

		require.NoError(t, f.rt.ClearState(1, ""))
		third, err := f.rt.NewRunnable(ctx, quizDescriptor("Q"), 1)
		require.NoError(t, err)
		assert.Nil(t, third.Content().PreviousState())
	})
}

func TestSaveStateErrors(t *testing.T) {
	ctx := context.Background()

	t.Run("unserializable state", func(t *testing.T) {
		f := newFixture(t, 30)
		inst, err := f.rt.NewRunnable(ctx, quizDescriptor("Q"), 1)
		require.NoError(t, err)
		inst.(*quiz).state = map[string]any{"ch": make(chan int)}

		err = f.rt.SaveState(ctx, inst)
		require.ErrorIs(t, err, runtime.ErrSerializeState)

		var serr *runtime.StateError
		require.ErrorAs(t, err, &serr)
		assert.Equal(t, "serialize", serr.Op)
		assert.Len(t, f.errs, 1)
		assert.Contains(t, f.logs.String(), "user data")
	})

	t.Run("no store", func(t *testing.T) {
		f := newFixture(t, 30)
		inst, err := f.rt.NewRunnable(ctx, quizDescriptor("Q"), 1)
		require.NoError(t, err)
		f.env.Store = nil
		inst.(*quiz).state = map[string]bool{"answer": true}

		assert.ErrorIs(t, f.rt.SaveState(ctx, inst), runtime.ErrNoStore)
	})

	t.Run("nothing to save", func(t *testing.T) {
		f := newFixture(t, 30)
		inst, err := f.rt.NewRunnable(ctx, quizDescriptor("Q"), 1)
		require.NoError(t, err)

		assert.NoError(t, f.rt.SaveState(ctx, inst))
		_, err = f.rt.LoadState(1, "")
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})
}

func TestParseDescriptor(t *testing.T) {
	d, err := runtime.ParseDescriptor([]byte(`{"library":"H5P.Quiz 1.4","params":{"title":"Q"},"metadata":{"title":"Quiz"}}`))
	require.NoError(t, err)
	assert.Equal(t, "H5P.Quiz 1.4", d.Library)
	assert.Equal(t, "Quiz", d.Metadata.Title)

	_, err = runtime.ParseDescriptor([]byte(`{"library":"H5P.Quiz"}`))
	assert.ErrorIs(t, err, runtime.ErrInvalidLibrary)

	_, err = runtime.ParseDescriptor([]byte(`not json`))
	assert.Error(t, err)
}
