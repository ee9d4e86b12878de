package contenttypes

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/randalmurphal/h5pruntime/pkg/h5p/runtime"
	"github.com/randalmurphal/h5pruntime/pkg/h5p/xapi"
)

// TrueFalseName is the machine name of TrueFalse.
const TrueFalseName = "H5P.TrueFalse"

const (
	interactionActivity  = "http://adlnet.gov/expapi/activities/cmi.interaction"
	interactionTrueFalse = "true-false"
)

// TrueFalseParams are the TrueFalse parameters.
type TrueFalseParams struct {
	Question string `json:"question"`
	// Correct is "true" or "false".
	Correct   string `json:"correct"`
	Behaviour struct {
		EnableRetry           bool `json:"enableRetry"`
		EnableSolutionsButton bool `json:"enableSolutionsButton"`
	} `json:"behaviour"`
}

type trueFalseState struct {
	Answer *bool `json:"answer"`
}

// TrueFalse is a single true or false question worth one point.
type TrueFalse struct {
	*runtime.ContentType

	params          TrueFalseParams
	correct         bool
	answer          *bool
	showingSolution bool
	container       runtime.Container
}

// NewTrueFalse is the H5P.TrueFalse constructor.
func NewTrueFalse(_ context.Context, raw json.RawMessage, _ int64, extras runtime.Extras) (runtime.Instance, error) {
	t := &TrueFalse{ContentType: extras.Base}
	if err := json.Unmarshal(raw, &t.params); err != nil {
		return nil, fmt.Errorf("decode %s params: %w", TrueFalseName, err)
	}
	t.correct = t.params.Correct == "true"

	if len(extras.PreviousState) > 0 {
		var prev trueFalseState
		if err := json.Unmarshal(extras.PreviousState, &prev); err == nil {
			t.answer = prev.Answer
		}
	}
	return t, nil
}

// Attach implements runtime.Instance.
func (t *TrueFalse) Attach(c runtime.Container) {
	t.container = c
	c.AddClass("h5p-true-false")
	t.render()
	t.SetActivityStarted()
}

func (t *TrueFalse) render() {
	if t.container == nil {
		return
	}
	t.container.Empty()
	t.container.Append("h5p-question-introduction").SetText(xapi.StripMarkup(t.params.Question))

	status := t.container.Append("h5p-true-false-answer")
	switch {
	case t.answer == nil:
		status.SetText("unanswered")
	case *t.answer == t.correct:
		status.AddClass("h5p-correct")
		status.SetText(strconv.FormatBool(*t.answer))
	default:
		status.AddClass("h5p-wrong")
		status.SetText(strconv.FormatBool(*t.answer))
	}
	if t.showingSolution {
		t.container.Append("h5p-solution").SetText(strconv.FormatBool(t.correct))
	}
}

// Answer records the user's answer and reports it.
func (t *TrueFalse) Answer(value bool) {
	t.answer = &value
	t.render()

	evt := t.CreateXAPIEventTemplate(xapi.VerbAnswered, nil)
	t.describe(evt)
	correct := value == t.correct
	evt.SetScoredResult(t.GetScore(), t.GetMaxScore(), t,
		xapi.WithCompletion(true), xapi.WithSuccess(correct))
	evt.Statement().Result.Response = strconv.FormatBool(value)
	t.Trigger(evt.Event)
}

// describe adds the question definition to evt.
func (t *TrueFalse) describe(evt *xapi.Event) {
	def := evt.Statement().Object.Definition
	if def == nil {
		return
	}
	def.Type = interactionActivity
	def.InteractionType = interactionTrueFalse
	def.Description = map[string]string{"en-US": xapi.StripMarkup(t.params.Question)}
	def.CorrectResponsesPattern = []string{strconv.FormatBool(t.correct)}
}

// Title names the question in statements.
func (t *TrueFalse) Title() string {
	if md := t.Metadata(); md != nil && md.Title != "" {
		return xapi.CreateTitle(md.Title, xapi.DefaultTitleLength)
	}
	return xapi.CreateTitle(t.params.Question, xapi.DefaultTitleLength)
}

// GetScore returns 1 for a correct answer.
func (t *TrueFalse) GetScore() float64 {
	if t.answer != nil && *t.answer == t.correct {
		return 1
	}
	return 0
}

// GetMaxScore returns 1.
func (t *TrueFalse) GetMaxScore() float64 {
	return 1
}

// GetAnswerGiven reports whether the question has been answered.
func (t *TrueFalse) GetAnswerGiven() bool {
	return t.answer != nil
}

// ShowSolutions reveals the correct answer.
func (t *TrueFalse) ShowSolutions() {
	t.showingSolution = true
	t.render()
}

// ResetTask clears the answer.
func (t *TrueFalse) ResetTask() {
	t.answer = nil
	t.showingSolution = false
	t.render()
	t.ClearStoredState()
}

// GetCurrentState returns the answer, or nil when unanswered.
func (t *TrueFalse) GetCurrentState() any {
	if t.answer == nil {
		return nil
	}
	return trueFalseState{Answer: t.answer}
}

// GetXAPIData describes the question and the current answer.
func (t *TrueFalse) GetXAPIData() *runtime.XAPIData {
	evt := t.CreateXAPIEventTemplate(xapi.VerbAnswered, nil)
	t.describe(evt)
	if t.answer != nil {
		evt.SetScoredResult(t.GetScore(), t.GetMaxScore(), t,
			xapi.WithCompletion(true), xapi.WithSuccess(*t.answer == t.correct))
		evt.Statement().Result.Response = strconv.FormatBool(*t.answer)
	}
	return &runtime.XAPIData{Statement: evt.Statement()}
}
