package runtime

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"strings"
	"sync"
	"time"

	"github.com/randalmurphal/h5pruntime/pkg/h5p/event"
	"github.com/randalmurphal/h5pruntime/pkg/h5p/library"
	"github.com/randalmurphal/h5pruntime/pkg/h5p/observability"
	"github.com/randalmurphal/h5pruntime/pkg/h5p/storage"
	"github.com/randalmurphal/h5pruntime/pkg/h5p/xapi"
)

// StandaloneClass marks a container holding standalone content.
const StandaloneClass = "h5p-standalone"

// DOMChanged is the payload of the domChanged event.
type DOMChanged struct {
	Target  Container
	Library string
	Key     string
}

// Config configures a Runtime.
type Config struct {
	// Bus receives external events. Default: a new bus.
	Bus *event.Bus

	// Env is used to build xAPI statements and holds the user data store.
	Env *xapi.Environment

	// URL is the base URL of the host; libraries live under URL/libraries
	// unless LibrariesURL is set.
	URL          string
	LibrariesURL string

	// SaveFrequency in seconds. Zero disables restoring and saving state.
	SaveFrequency int

	Logger  *slog.Logger
	Metrics observability.MetricsRecorder
	Spans   observability.SpanManager

	// OnError receives every construction and user data failure.
	OnError func(error)

	// OnOpened is called when top-level content has been created.
	OnOpened func(contentID int64, at time.Time)
}

// Runtime creates content instances and tracks the top-level ones.
type Runtime struct {
	cfg      Config
	bus      *event.Bus
	registry *Registry
	logger   *slog.Logger
	metrics  observability.MetricsRecorder
	spans    observability.SpanManager

	mu        sync.Mutex
	instances []Instance
}

// New creates a runtime with an empty registry.
func New(cfg Config) *Runtime {
	r := &Runtime{
		cfg:      cfg,
		bus:      cfg.Bus,
		registry: NewRegistry(),
		logger:   cfg.Logger,
		metrics:  cfg.Metrics,
		spans:    cfg.Spans,
	}
	if r.logger == nil {
		r.logger = slog.Default()
	}
	if r.metrics == nil {
		r.metrics = observability.NoopMetrics{}
	}
	if r.spans == nil {
		r.spans = observability.NoopSpanManager{}
	}
	if r.bus == nil {
		r.bus = event.NewBus(event.BusConfig{Metrics: r.metrics})
	}
	return r
}

// Register adds a constructor to the runtime's registry.
func (r *Runtime) Register(machineName string, c Constructor) error {
	return r.registry.Register(machineName, c)
}

// Registry returns the constructor registry.
func (r *Runtime) Registry() *Registry {
	return r.registry
}

// Bus returns the external event bus.
func (r *Runtime) Bus() *event.Bus {
	return r.bus
}

// Env returns the xAPI environment, which may be nil.
func (r *Runtime) Env() *xapi.Environment {
	return r.cfg.Env
}

// Logger returns the runtime logger.
func (r *Runtime) Logger() *slog.Logger {
	return r.logger
}

// SaveFrequency returns the configured save frequency in seconds.
func (r *Runtime) SaveFrequency() int {
	return r.cfg.SaveFrequency
}

// LibraryPath returns the base URL of a library directory.
func (r *Runtime) LibraryPath(versionedNameNoSpaces string) string {
	if r.cfg.LibrariesURL != "" {
		return r.cfg.LibrariesURL + "/" + versionedNameNoSpaces
	}
	return r.cfg.URL + "/libraries/" + versionedNameNoSpaces
}

// Instances returns the top-level instances created so far.
func (r *Runtime) Instances() []Instance {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Instance, len(r.instances))
	copy(out, r.instances)
	return out
}

// Descriptor is serialized content: a library string plus params.
type Descriptor struct {
	Library      string          `json:"library"`
	Params       json.RawMessage `json:"params"`
	SubContentID string          `json:"subContentId,omitempty"`
	UserDatas    *UserDatas      `json:"userDatas,omitempty"`
	Metadata     *Metadata       `json:"metadata,omitempty"`
}

// UserDatas carries previously saved user data.
type UserDatas struct {
	State json.RawMessage `json:"state,omitempty"`
}

type runnableConfig struct {
	attachTo   Container
	skipResize bool
	parent     Instance
	standalone bool
}

// RunnableOption configures NewRunnable.
type RunnableOption func(*runnableConfig)

// AttachTo attaches the new instance to c.
func AttachTo(c Container) RunnableOption {
	return func(cfg *runnableConfig) {
		cfg.attachTo = c
	}
}

// SkipResize suppresses the resize event after attaching.
func SkipResize() RunnableOption {
	return func(cfg *runnableConfig) {
		cfg.skipResize = true
	}
}

// WithParent nests the new instance inside parent. Its events bubble to
// the parent and it is not listed in Instances.
func WithParent(parent Instance) RunnableOption {
	return func(cfg *runnableConfig) {
		cfg.parent = parent
	}
}

// Standalone marks the instance as root content.
func Standalone() RunnableOption {
	return func(cfg *runnableConfig) {
		cfg.standalone = true
	}
}

// legacyExtras reports whether lib predates the Extras argument.
func legacyExtras(info library.Info) bool {
	return info.MachineName == "H5P.CoursePresentation" && info.MajorVersion == 1 && info.MinorVersion <= 3
}

// NewRunnable creates, backfills and optionally attaches a content instance.
// Every failure is returned as *ConstructionError and also reported through
// the logger, metrics and the OnError callback.
func (r *Runtime) NewRunnable(ctx context.Context, d Descriptor, contentID int64, opts ...RunnableOption) (inst Instance, err error) {
	cfg := runnableConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}

	elapsed := observability.TimedOperation()
	ctx, span := r.spans.StartInstanceSpan(ctx, d.Library, contentID)
	defer func() {
		ms := elapsed()
		r.spans.EndSpanWithError(span, err)
		r.metrics.RecordInstance(ctx, d.Library, time.Duration(ms*float64(time.Millisecond)), err)
		if err != nil {
			r.report(d.Library, contentID, err)
			return
		}
		observability.LogInstanceCreated(r.logger, d.Library, contentID, ms)
	}()

	fail := func(sentinel, cause error) (Instance, error) {
		e := sentinel
		if cause != nil {
			e = fmt.Errorf("%w: %w", sentinel, cause)
		}
		return nil, &ConstructionError{Library: d.Library, ContentID: contentID, Err: e}
	}

	info, perr := library.Parse(d.Library)
	if perr != nil {
		return fail(ErrInvalidLibrary, perr)
	}
	if !isJSONObject(d.Params) {
		return fail(ErrInvalidParams, nil)
	}
	ctor, ok := r.registry.Lookup(info.MachineName)
	if !ok {
		return fail(ErrUnknownLibrary, nil)
	}

	extras := Extras{
		Parent:        cfg.parent,
		Standalone:    cfg.standalone,
		SubContentID:  d.SubContentID,
		PreviousState: r.previousState(d, contentID, cfg.parent),
		Metadata:      d.Metadata,
	}
	extras.Base = r.newContentType(contentID, info, extras)
	if legacyExtras(info) {
		extras = Extras{}
	}

	inst, cerr := construct(ctx, ctor, d.Params, contentID, extras)
	if cerr != nil {
		return fail(ErrConstructor, cerr)
	}
	if inst == nil || inst.Content() == nil {
		return fail(ErrConstructor, errors.New("instance has no content base"))
	}

	r.backfill(inst, contentID, info, d, cfg)

	if cfg.attachTo != nil {
		c := inst.Content()
		cfg.attachTo.ToggleClass(StandaloneClass, cfg.standalone)
		inst.Attach(cfg.attachTo)
		c.Emit(event.TypeDOMChanged, DOMChanged{
			Target:  cfg.attachTo,
			Library: info.MachineName,
			Key:     "newLibrary",
		}, event.WithBubbles(), event.WithExternal())
		if !cfg.skipResize {
			c.Emit(event.TypeResize, nil)
		}
	}

	if cfg.parent == nil {
		r.mu.Lock()
		r.instances = append(r.instances, inst)
		r.mu.Unlock()
		if r.cfg.OnOpened != nil {
			r.cfg.OnOpened(contentID, nowFrom(r.cfg.Env))
		}
	}
	return inst, nil
}

func construct(ctx context.Context, ctor Constructor, params json.RawMessage, contentID int64, extras Extras) (inst Instance, err error) {
	defer func() {
		if p := recover(); p != nil {
			inst = nil
			err = &PanicError{Value: p, Stack: string(debug.Stack())}
		}
	}()
	return ctor(ctx, params, contentID, extras)
}

func (r *Runtime) newContentType(contentID int64, info library.Info, extras Extras) *ContentType {
	c := &ContentType{
		contentID:     contentID,
		subContentID:  extras.SubContentID,
		parent:        extras.Parent,
		library:       info,
		hasLibrary:    true,
		metadata:      extras.Metadata,
		previousState: extras.PreviousState,
		standalone:    extras.Standalone,
		runtime:       r,
	}
	c.Dispatcher = r.bus.NewDispatcher(event.WithParent(parentEmitter(extras.Parent)))
	c.logger = observability.EnrichLogger(r.logger, contentID, extras.SubContentID, info.VersionedName)
	return c
}

// backfill sets identity fields the constructor left unset.
func (r *Runtime) backfill(inst Instance, contentID int64, info library.Info, d Descriptor, cfg runnableConfig) {
	c := inst.Content()
	if c.Dispatcher == nil {
		c.Dispatcher = r.bus.NewDispatcher()
	}
	if c.contentID == 0 {
		c.contentID = contentID
	}
	if c.subContentID == "" && d.SubContentID != "" {
		c.subContentID = d.SubContentID
	}
	if c.parent == nil && cfg.parent != nil {
		c.parent = cfg.parent
	}
	if c.parent != nil && c.Dispatcher.Parent() == nil {
		c.SetParent(parentEmitter(c.parent))
	}
	if !c.hasLibrary {
		c.library = info
		c.hasLibrary = true
	}
	if c.runtime == nil {
		c.runtime = r
		c.standalone = cfg.standalone
	}
	if c.logger == nil {
		c.logger = observability.EnrichLogger(r.logger, c.contentID, c.subContentID, c.library.VersionedName)
	}
	if c.self == nil {
		c.self = inst
	}
}

// parentEmitter returns the dispatcher events bubble to, or nil.
func parentEmitter(parent Instance) event.Emitter {
	if parent == nil || parent.Content() == nil || parent.Content().Dispatcher == nil {
		return nil
	}
	return parent.Content().Dispatcher
}

// previousState returns the state to restore. Descriptor state wins over
// stored state, which is only consulted for top-level content.
func (r *Runtime) previousState(d Descriptor, contentID int64, parent Instance) json.RawMessage {
	if r.cfg.SaveFrequency <= 0 {
		return nil
	}
	if d.UserDatas != nil && len(d.UserDatas.State) > 0 {
		return d.UserDatas.State
	}
	if parent != nil {
		return nil
	}
	state, err := r.LoadState(contentID, d.SubContentID)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) && !errors.Is(err, ErrNoStore) {
			r.reportState(&StateError{ContentID: contentID, SubContentID: d.SubContentID, Op: "load", Err: err})
		}
		return nil
	}
	return state
}

func (r *Runtime) report(lib string, contentID int64, err error) {
	observability.LogConstructionError(r.logger, lib, contentID, err)
	if r.cfg.OnError != nil {
		r.cfg.OnError(err)
	}
}

func isJSONObject(raw json.RawMessage) bool {
	t := bytes.TrimSpace(raw)
	return len(t) > 0 && t[0] == '{' && json.Valid(t)
}

// ParseDescriptor decodes a descriptor and checks its library string.
func ParseDescriptor(data []byte) (Descriptor, error) {
	var d Descriptor
	if err := json.Unmarshal(data, &d); err != nil {
		return Descriptor{}, fmt.Errorf("decode descriptor: %w", err)
	}
	if _, err := library.Parse(strings.TrimSpace(d.Library)); err != nil {
		return Descriptor{}, fmt.Errorf("%w: %w", ErrInvalidLibrary, err)
	}
	return d, nil
}
