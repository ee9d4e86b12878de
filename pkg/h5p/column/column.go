// Package column implements H5P.Column, which stacks child content
// vertically and rolls the children's scores up into one completion.
package column

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"strings"

	"github.com/google/uuid"

	"github.com/randalmurphal/h5pruntime/pkg/h5p/event"
	"github.com/randalmurphal/h5pruntime/pkg/h5p/runtime"
	"github.com/randalmurphal/h5pruntime/pkg/h5p/xapi"
)

// MachineName is the library H5P.Column registers as.
const MachineName = "H5P.Column"

// Separator modes.
const (
	SeparatorAuto     = "auto"
	SeparatorEnabled  = "enabled"
	SeparatorDisabled = "disabled"
)

// CSS classes used by Attach.
const (
	ClassColumn  = "h5p-column"
	ClassContent = "h5p-column-content"
	ClassRuler   = "h5p-column-ruler"
	ClassTask    = "h5p-column-task"
)

// TaskLibraries produce scores unless the instance says otherwise through
// runtime.Task.
var TaskLibraries = []string{
	"H5P.ImageHotspotQuestion",
	"H5P.Blanks",
	"H5P.Essay",
	"H5P.SingleChoiceSet",
	"H5P.MultiChoice",
	"H5P.TrueFalse",
	"H5P.DragQuestion",
	"H5P.Summary",
	"H5P.DragText",
	"H5P.MarkTheWords",
	"H5P.MemoryGame",
	"H5P.QuestionSet",
	"H5P.InteractiveVideo",
	"H5P.CoursePresentation",
	"H5P.DocumentationTool",
	"H5P.MultiMediaChoice",
}

// Params are the column parameters.
type Params struct {
	Content []Item `json:"content"`
}

// Item is one child of the column.
type Item struct {
	Content      runtime.Descriptor `json:"content"`
	UseSeparator string             `json:"useSeparator,omitempty"`
}

type child struct {
	instance runtime.Instance
	machine  string
	task     bool
	// paramIndex is the position in params.content, which keys saved state.
	paramIndex int
	taskIndex  int
	separator  string
}

// Column is a content type holding a list of child instances.
type Column struct {
	*runtime.ContentType

	params   Params
	children []*child
	previous map[string]any

	// per task index
	results           []*xapi.Event
	numTasks          int
	numTasksCompleted int
	completed         bool

	bubblingUpwards bool
}

// Register adds H5P.Column to rt.
func Register(rt *runtime.Runtime) error {
	return rt.Register(MachineName, New)
}

// New is the H5P.Column constructor.
func New(ctx context.Context, raw json.RawMessage, contentID int64, extras runtime.Extras) (runtime.Instance, error) {
	if extras.Base == nil {
		return nil, fmt.Errorf("%s needs a content base", MachineName)
	}
	c := &Column{ContentType: extras.Base}
	if err := json.Unmarshal(raw, &c.params); err != nil {
		return nil, fmt.Errorf("decode %s params: %w", MachineName, err)
	}
	if err := c.restore(extras.PreviousState); err != nil {
		c.Logger().Warn("ignoring previous state", "error", err)
	}

	rt := c.Runtime()
	for i, item := range c.params.Content {
		d := item.Content
		if d.SubContentID == "" {
			d.SubContentID = uuid.NewString()
		}
		if state := c.previousChildState(i); state != nil {
			d.UserDatas = &runtime.UserDatas{State: state}
		}

		inst, err := rt.NewRunnable(ctx, d, contentID, runtime.WithParent(c), runtime.SkipResize())
		if err != nil {
			// already reported by the runtime
			continue
		}
		c.addChild(inst, i, d.Library, item.UseSeparator)
	}

	if _, err := c.On(event.TypeResize, c.bubbleDown); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Column) addChild(inst runtime.Instance, paramIndex int, libraryName, separator string) {
	machine, _, _ := strings.Cut(libraryName, " ")
	ch := &child{
		instance:   inst,
		machine:    machine,
		task:       isTask(inst, machine),
		paramIndex: paramIndex,
		taskIndex:  -1,
		separator:  separator,
	}
	if ch.task {
		ch.taskIndex = c.numTasks
		c.numTasks++
		c.results = append(c.results, nil)
		_, _ = inst.Content().On(xapi.EventType, c.trackScoring(ch.taskIndex))
	}
	_, _ = inst.Content().On(event.TypeResize, c.bubbleUp)
	c.children = append(c.children, ch)
}

func isTask(inst runtime.Instance, machine string) bool {
	if t, ok := inst.(runtime.Task); ok {
		return t.IsTask()
	}
	return slices.Contains(TaskLibraries, machine)
}

// trackScoring records the latest scored statement of one task.
func (c *Column) trackScoring(taskIndex int) event.Handler {
	return func(evt *event.Event) {
		x, ok := xapi.FromEvent(evt)
		if !ok {
			return
		}
		if _, ok := x.Score(); !ok {
			return
		}
		if c.results[taskIndex] == nil {
			c.numTasksCompleted++
		}
		c.results[taskIndex] = x

		progressed := c.CreateXAPIEventTemplate(xapi.VerbProgressed, nil)
		if def := progressed.Statement().Object.Definition; def != nil {
			if def.Extensions == nil {
				def.Extensions = map[string]any{}
			}
			def.Extensions[xapi.ExtensionEndingPoint] = taskIndex + 1
		}
		c.Trigger(progressed.Event)

		if c.numTasksCompleted == c.numTasks && !c.completed {
			c.completed = true
			c.Runtime().Bus().Defer(c.complete)
		}
	}
}

// complete triggers the aggregate completed statement.
func (c *Column) complete() {
	var score, maxScore float64
	for _, r := range c.results {
		if r == nil {
			continue
		}
		s, _ := r.Score()
		m, _ := r.MaxScore()
		score += s
		maxScore += m
	}
	c.Logger().Debug("column completed", "score", score, "max_score", maxScore)
	c.TriggerXAPIScored(score, maxScore, xapi.VerbCompleted, xapi.WithCompletion(true))
}

// bubbleUp relays a child resize to the column.
func (c *Column) bubbleUp(evt *event.Event) {
	c.bubblingUpwards = true
	c.Emit(event.TypeResize, evt.Data)
	c.bubblingUpwards = false
}

// bubbleDown relays a column resize to every child.
func (c *Column) bubbleDown(evt *event.Event) {
	if c.bubblingUpwards {
		return
	}
	for _, ch := range c.children {
		ch.instance.Content().Emit(event.TypeResize, evt.Data)
	}
}

// Children returns the child instances in order.
func (c *Column) Children() []runtime.Instance {
	out := make([]runtime.Instance, len(c.children))
	for i, ch := range c.children {
		out[i] = ch.instance
	}
	return out
}

// Tasks returns the number of children that count towards the score.
func (c *Column) Tasks() int {
	return c.numTasks
}

// TasksCompleted returns how many tasks have reported a score.
func (c *Column) TasksCompleted() int {
	return c.numTasksCompleted
}

// Completed reports whether the aggregate completion has been triggered.
func (c *Column) Completed() bool {
	return c.completed
}

// Title returns the metadata title, if any.
func (c *Column) Title() string {
	if md := c.Metadata(); md != nil {
		return xapi.CreateTitle(md.Title, xapi.DefaultTitleLength)
	}
	return ""
}

// Attach renders every child into its own wrapper.
func (c *Column) Attach(container runtime.Container) {
	container.AddClass(ClassColumn)
	container.Empty()

	var prev *child
	for _, ch := range c.children {
		if prev != nil && needsSeparator(prev, ch) {
			container.Append(ClassRuler)
		}
		classes := []string{ClassContent, libraryClass(ch.machine)}
		if ch.task {
			classes = append(classes, ClassTask)
		}
		ch.instance.Attach(container.Append(classes...))
		prev = ch
	}
}

func needsSeparator(prev, cur *child) bool {
	switch cur.separator {
	case SeparatorEnabled:
		return true
	case SeparatorDisabled:
		return false
	}
	return prev.task || cur.task
}

// libraryClass turns "H5P.AdvancedText" into "h5p-advancedtext".
func libraryClass(machine string) string {
	return strings.ToLower(strings.Replace(machine, ".", "-", 1))
}
