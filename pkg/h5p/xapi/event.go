package xapi

import (
	"encoding/json"
	"errors"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/randalmurphal/h5pruntime/pkg/h5p/event"
	"github.com/randalmurphal/h5pruntime/pkg/h5p/library"
	"github.com/randalmurphal/h5pruntime/pkg/h5p/storage"
)

// EventType is the event type of every xAPI event.
const EventType = "xAPI"

// Extension and category URIs.
const (
	ExtensionContentID    = "http://h5p.org/x-api/h5p-local-content-id"
	ExtensionSubContentID = "http://h5p.org/x-api/h5p-subContentId"
	ExtensionEndingPoint  = "http://id.tincanapi.com/extension/ending-point"
	CategoryPrefix        = "http://h5p.org/libraries/"
)

// UserUUIDKey is the ScopeLocal key holding the anonymous actor id.
const UserUUIDKey = "H5PUserUUID"

const (
	objectTypeActivity = "Activity"
	objectTypeAgent    = "Agent"
	languageTag        = "en-US"
)

// Activity is something a statement can be about.
type Activity interface {
	ContentID() int64
	SubContentID() string
}

// Child is an activity nested inside another one.
// ParentActivity returns nil for top-level content.
type Child interface {
	ParentActivity() Activity
}

// Titled activities name themselves.
type Titled interface {
	Title() string
}

// Categorized activities know their library.
type Categorized interface {
	LibraryInfo() (library.Info, bool)
}

// Timed activities report when the user started them.
// The zero time means not started.
type Timed interface {
	ActivityStartTime() time.Time
}

// Data is the payload of an xAPI event.
type Data struct {
	Statement *Statement `json:"statement"`

	env                *Environment
	parentIsSubContent bool
}

// Event is an xAPI view over an *event.Event.
type Event struct {
	*event.Event
	data *Data
}

// NewEvent creates an xAPI event that bubbles and reaches the external bus.
func NewEvent(env *Environment) *Event {
	d := &Data{Statement: &Statement{}, env: env}
	return &Event{
		Event: event.New(EventType, d, event.WithBubbles(), event.WithExternal()),
		data:  d,
	}
}

// FromEvent returns the xAPI view of evt, or false when evt does not carry
// an xAPI statement.
func FromEvent(evt *event.Event) (*Event, bool) {
	if evt == nil || evt.Type != EventType {
		return nil, false
	}
	d, ok := evt.Data.(*Data)
	if !ok || d == nil || d.Statement == nil {
		return nil, false
	}
	return &Event{Event: evt, data: d}, true
}

// Statement returns the statement being built.
func (e *Event) Statement() *Statement {
	return e.data.Statement
}

// SetVerb sets a whitelisted verb by its short name.
// Unknown verbs are ignored and reported with false.
func (e *Event) SetVerb(verb string) bool {
	if !IsAllowedVerb(verb) {
		return false
	}
	e.data.Statement.Verb = &Verb{
		ID:      VerbPrefix + verb,
		Display: map[string]string{languageTag: verb},
	}
	return true
}

// SetVerbObject sets an arbitrary verb. The verb must have an id.
func (e *Event) SetVerbObject(v Verb) bool {
	if v.ID == "" {
		return false
	}
	e.data.Statement.Verb = &v
	return true
}

// Verb returns the short verb name, or the full id for verbs outside the
// adlnet namespace. It returns "" when no verb is set.
func (e *Event) Verb() string {
	v := e.data.Statement.Verb
	if v == nil {
		return ""
	}
	return strings.TrimPrefix(v.ID, VerbPrefix)
}

// FullVerb returns the verb object, or nil.
func (e *Event) FullVerb() *Verb {
	return e.data.Statement.Verb
}

// ResultOption adjusts a scored result.
type ResultOption func(*Result)

// WithCompletion overrides the completion flag.
func WithCompletion(completed bool) ResultOption {
	return func(r *Result) {
		r.Completion = &completed
	}
}

// WithSuccess sets the success flag.
func WithSuccess(success bool) ResultOption {
	return func(r *Result) {
		r.Success = &success
	}
}

// SetScoredResult records score out of maxScore. Scaled is rounded to four
// decimals and only set when maxScore is positive. inst may be nil; when it
// is Timed and started, the result carries the elapsed duration.
func (e *Event) SetScoredResult(score, maxScore float64, inst any, opts ...ResultOption) {
	floor := 0.0
	s := &Score{Min: &floor, Max: &maxScore, Raw: score}
	if maxScore > 0 {
		scaled := math.Round(score/maxScore*10000) / 10000
		s.Scaled = &scaled
	}
	e.setResult(s, inst, opts)
}

// SetRawScoredResult records a raw score without bounds.
func (e *Event) SetRawScoredResult(score float64, inst any, opts ...ResultOption) {
	e.setResult(&Score{Raw: score}, inst, opts)
}

func (e *Event) setResult(s *Score, inst any, opts []ResultOption) {
	verb := e.Verb()
	completed := verb == VerbCompleted || verb == VerbAnswered
	r := &Result{Score: s, Completion: &completed}
	for _, opt := range opts {
		opt(r)
	}
	if timed, ok := inst.(Timed); ok {
		if start := timed.ActivityStartTime(); !start.IsZero() {
			r.Duration = formatDuration(e.data.env.now().Sub(start))
		}
	}
	e.data.Statement.Result = r
}

// formatDuration renders d as an ISO 8601 duration in seconds with two
// decimals at most.
func formatDuration(d time.Duration) string {
	secs := math.Round(float64(d.Milliseconds())/10) / 100
	return "PT" + strconv.FormatFloat(secs, 'f', -1, 64) + "S"
}

// SetObject describes inst as the statement object.
func (e *Event) SetObject(inst Activity) {
	if inst == nil || inst.ContentID() == 0 {
		e.data.Statement.Object = &Object{Definition: &Definition{}}
		return
	}

	contentID := inst.ContentID()
	def := &Definition{
		Extensions: map[string]any{ExtensionContentID: contentID},
	}
	obj := &Object{
		ID:         activityID(e.data.env, inst),
		ObjectType: objectTypeActivity,
		Definition: def,
	}

	if sub := inst.SubContentID(); sub != "" {
		def.Extensions[ExtensionSubContentID] = sub
	} else if titled, ok := inst.(Titled); ok && titled.Title() != "" {
		def.Name = map[string]string{languageTag: titled.Title()}
	} else if c, ok := e.data.env.Content(contentID); ok && c.Title != "" {
		def.Name = map[string]string{languageTag: CreateTitle(c.Title, DefaultTitleLength)}
	}

	e.data.Statement.Object = obj
}

// SetContext records inst's parent activity and library category.
func (e *Event) SetContext(inst Activity) {
	if inst == nil {
		return
	}
	var sc *Context

	if child, ok := inst.(Child); ok {
		if parent := child.ParentActivity(); parent != nil && (parent.ContentID() != 0 || parent.SubContentID() != "") {
			sc = &Context{}
			sc.ContextActivities.Parent = []ActivityRef{{
				ID:         activityID(e.data.env, parent),
				ObjectType: objectTypeActivity,
			}}
			e.data.parentIsSubContent = parent.SubContentID() != ""
		}
	}

	if cat, ok := inst.(Categorized); ok {
		if info, ok := cat.LibraryInfo(); ok {
			if sc == nil {
				sc = &Context{}
			}
			sc.ContextActivities.Category = []ActivityRef{{
				ID:         CategoryPrefix + info.VersionedNameNoSpaces,
				ObjectType: objectTypeActivity,
			}}
		}
	}

	if sc != nil {
		e.data.Statement.Context = sc
	}
}

// SetActor sets the signed-in user, or an anonymous account whose id is
// kept in storage. When storage is unavailable the id is marked as not
// trackable and regenerated on every call.
func (e *Event) SetActor() {
	env := e.data.env
	if env != nil && env.User != nil {
		e.data.Statement.Actor = &Actor{
			Name:       env.User.Name,
			Mbox:       "mailto:" + env.User.Mail,
			ObjectType: objectTypeAgent,
		}
		return
	}

	home := ""
	if env != nil {
		home = env.SiteURL
	}
	e.data.Statement.Actor = &Actor{
		Account:    &Account{Name: anonymousID(env), HomePage: home},
		ObjectType: objectTypeAgent,
	}
}

func anonymousID(env *Environment) string {
	if env == nil || env.Store == nil {
		return "not-trackable-" + uuid.NewString()
	}
	data, err := env.Store.Load(storage.ScopeLocal, UserUUIDKey)
	if err == nil && len(data) > 0 {
		return string(data)
	}
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return "not-trackable-" + uuid.NewString()
	}
	id := uuid.NewString()
	if err := env.Store.Save(storage.ScopeLocal, UserUUIDKey, []byte(id)); err != nil {
		return "not-trackable-" + id
	}
	return id
}

// Score returns the raw score, if any.
func (e *Event) Score() (float64, bool) {
	r := e.data.Statement.Result
	if r == nil || r.Score == nil {
		return 0, false
	}
	return r.Score.Raw, true
}

// MaxScore returns the maximum score, if any.
func (e *Event) MaxScore() (float64, bool) {
	r := e.data.Statement.Result
	if r == nil || r.Score == nil || r.Score.Max == nil {
		return 0, false
	}
	return *r.Score.Max, true
}

// ContentID returns the local content id carried in the object extensions.
func (e *Event) ContentID() (int64, bool) {
	obj := e.data.Statement.Object
	if obj == nil || obj.Definition == nil {
		return 0, false
	}
	switch v := obj.Definition.Extensions[ExtensionContentID].(type) {
	case int64:
		return v, true
	case int:
		return int64(v), true
	case float64:
		return int64(v), true
	}
	return 0, false
}

// IsFromChild reports whether the event comes from top-level content or
// from a direct child of top-level content.
func (e *Event) IsFromChild() bool {
	ctx := e.data.Statement.Context
	if ctx == nil || len(ctx.ContextActivities.Parent) == 0 {
		return true
	}
	return !e.data.parentIsSubContent
}

// Lookup walks the statement as JSON and returns the value at path.
// Array elements are addressed by decimal index.
func (e *Event) Lookup(path ...string) (any, bool) {
	raw, err := json.Marshal(e.data.Statement)
	if err != nil {
		return nil, false
	}
	var cur any
	if err := json.Unmarshal(raw, &cur); err != nil {
		return nil, false
	}
	for _, seg := range path {
		switch node := cur.(type) {
		case map[string]any:
			v, ok := node[seg]
			if !ok {
				return nil, false
			}
			cur = v
		case []any:
			i, err := strconv.Atoi(seg)
			if err != nil || i < 0 || i >= len(node) {
				return nil, false
			}
			cur = node[i]
		default:
			return nil, false
		}
	}
	return cur, true
}

// activityID returns the statement id of inst: its content URL with the
// sub-content id appended as a query parameter.
func activityID(env *Environment, inst Activity) string {
	id := env.ContentURL(inst.ContentID())
	if sub := inst.SubContentID(); sub != "" {
		id += "?subContentId=" + sub
	}
	return id
}
