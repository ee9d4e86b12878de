package runtime

import (
	"encoding/json"
	"log/slog"
	"time"

	"github.com/randalmurphal/h5pruntime/pkg/h5p/event"
	"github.com/randalmurphal/h5pruntime/pkg/h5p/library"
	"github.com/randalmurphal/h5pruntime/pkg/h5p/xapi"
)

// Instance is a piece of running content.
// Embedding *ContentType provides Content.
type Instance interface {
	Attach(c Container)
	Content() *ContentType
}

// Scorer reports a score.
type Scorer interface {
	GetScore() float64
	GetMaxScore() float64
}

// Stateful exposes user state worth saving. A nil state means nothing to save.
type Stateful interface {
	GetCurrentState() any
}

// Resettable content can be retried.
type Resettable interface {
	ResetTask()
}

// SolutionShower content can reveal its solutions.
type SolutionShower interface {
	ShowSolutions()
}

// AnswerReporter reports whether the user has answered.
type AnswerReporter interface {
	GetAnswerGiven() bool
}

// XAPIDataProvider describes the content and its answers as statements.
type XAPIDataProvider interface {
	GetXAPIData() *XAPIData
}

// Task overrides the machine-name based task classification.
type Task interface {
	IsTask() bool
}

// XAPIData is a statement plus the statements of child content.
type XAPIData struct {
	Statement *xapi.Statement `json:"statement"`
	Children  []*XAPIData     `json:"children,omitempty"`
}

// Metadata is the content metadata from the descriptor.
type Metadata struct {
	Title           string   `json:"title,omitempty"`
	License         string   `json:"license,omitempty"`
	LicenseVersion  string   `json:"licenseVersion,omitempty"`
	DefaultLanguage string   `json:"defaultLanguage,omitempty"`
	Authors         []Author `json:"authors,omitempty"`
}

// Author credits a contributor.
type Author struct {
	Name string `json:"name"`
	Role string `json:"role,omitempty"`
}

// Extras is passed to every non-legacy constructor.
type Extras struct {
	Parent        Instance
	Standalone    bool
	SubContentID  string
	PreviousState json.RawMessage
	Metadata      *Metadata

	// Base is the prepared content base the constructor should embed.
	Base *ContentType
}

// ContentType is the base every content type embeds.
type ContentType struct {
	*event.Dispatcher

	contentID     int64
	subContentID  string
	parent        Instance
	library       library.Info
	hasLibrary    bool
	metadata      *Metadata
	previousState json.RawMessage
	standalone    bool
	runtime       *Runtime
	self          Instance
	startTime     time.Time
	logger        *slog.Logger
}

// Content returns c. It lets embedding types satisfy Instance.
func (c *ContentType) Content() *ContentType {
	return c
}

// ContentID returns the content id.
func (c *ContentType) ContentID() int64 {
	return c.contentID
}

// SubContentID returns the sub-content id, or "" for top-level content.
func (c *ContentType) SubContentID() string {
	return c.subContentID
}

// ParentInstance returns the enclosing content, or nil.
func (c *ContentType) ParentInstance() Instance {
	return c.parent
}

// ParentActivity returns the parent as an xAPI activity, or nil.
func (c *ContentType) ParentActivity() xapi.Activity {
	if c.parent == nil || c.parent.Content() == nil {
		return nil
	}
	return c.parent.Content()
}

// LibraryInfo returns the library this content was created from.
func (c *ContentType) LibraryInfo() (library.Info, bool) {
	return c.library, c.hasLibrary
}

// Metadata returns the descriptor metadata, or nil.
func (c *ContentType) Metadata() *Metadata {
	return c.metadata
}

// PreviousState returns the restored user state, or nil.
func (c *ContentType) PreviousState() json.RawMessage {
	return c.previousState
}

// IsRoot reports whether the content was created standalone.
func (c *ContentType) IsRoot() bool {
	return c.standalone
}

// Runtime returns the runtime that created the content.
func (c *ContentType) Runtime() *Runtime {
	return c.runtime
}

// Logger returns a logger enriched with the content identity.
func (c *ContentType) Logger() *slog.Logger {
	if c.logger == nil {
		return slog.Default()
	}
	return c.logger
}

// LibraryFilePath returns the URL of path inside the content's library.
func (c *ContentType) LibraryFilePath(path string) string {
	base := ""
	if c.runtime != nil {
		base = c.runtime.LibraryPath(c.library.VersionedNameNoSpaces)
	}
	return base + "/" + path
}

// ActivityStartTime returns when SetActivityStarted was first called.
func (c *ContentType) ActivityStartTime() time.Time {
	return c.startTime
}

// SetActivityStarted starts the activity clock once. Registered content
// also reports an "attempted" statement.
func (c *ContentType) SetActivityStarted() {
	if !c.startTime.IsZero() {
		return
	}
	env := c.env()
	if _, ok := env.Content(c.contentID); ok && c.contentID != 0 {
		c.TriggerXAPI(xapi.VerbAttempted)
	}
	c.startTime = nowFrom(env)
}

// CreateXAPIEventTemplate builds a statement with actor and verb set.
// Non-nil fields of extra are copied in; object and context are filled
// from the content unless extra provides them.
func (c *ContentType) CreateXAPIEventTemplate(verb string, extra *xapi.Statement) *xapi.Event {
	evt := xapi.NewEvent(c.env())
	evt.SetActor()
	evt.SetVerb(verb)

	s := evt.Statement()
	if extra != nil {
		if extra.Actor != nil {
			s.Actor = extra.Actor
		}
		if extra.Verb != nil {
			s.Verb = extra.Verb
		}
		if extra.Object != nil {
			s.Object = extra.Object
		}
		if extra.Context != nil {
			s.Context = extra.Context
		}
		if extra.Result != nil {
			s.Result = extra.Result
		}
	}
	if s.Object == nil {
		evt.SetObject(c.activity())
	}
	if s.Context == nil {
		evt.SetContext(c.activity())
	}
	return evt
}

// TriggerXAPI triggers a statement with the given verb.
func (c *ContentType) TriggerXAPI(verb string) {
	c.Trigger(c.CreateXAPIEventTemplate(verb, nil).Event)
}

// TriggerXAPIScored triggers a scored statement.
func (c *ContentType) TriggerXAPIScored(score, maxScore float64, verb string, opts ...xapi.ResultOption) {
	evt := c.CreateXAPIEventTemplate(verb, nil)
	evt.SetScoredResult(score, maxScore, c.activity(), opts...)
	c.Trigger(evt.Event)
}

// TriggerXAPICompleted triggers a completed statement.
func (c *ContentType) TriggerXAPICompleted(score, maxScore float64, success bool) {
	c.TriggerXAPIScored(score, maxScore, xapi.VerbCompleted, xapi.WithCompletion(true), xapi.WithSuccess(success))
}

// ClearStoredState deletes the saved state of this content so a reset is
// not undone by the next load. It does nothing while user state is disabled.
// Failures are reported through the logger and OnError.
func (c *ContentType) ClearStoredState() {
	r := c.runtime
	if r == nil || r.SaveFrequency() <= 0 || r.store() == nil {
		return
	}
	if err := r.ClearState(c.contentID, c.subContentID); err != nil {
		_ = r.reportState(&StateError{ContentID: c.contentID, SubContentID: c.subContentID, Op: "clear", Err: err})
	}
}

// activity returns the outermost value describing this content, so title
// getters on the embedding type are found.
func (c *ContentType) activity() xapi.Activity {
	if a, ok := c.self.(xapi.Activity); ok {
		return a
	}
	return c
}

func (c *ContentType) env() *xapi.Environment {
	if c.runtime == nil {
		return nil
	}
	return c.runtime.cfg.Env
}

func nowFrom(env *xapi.Environment) time.Time {
	if env != nil && env.Now != nil {
		return env.Now()
	}
	return time.Now()
}
