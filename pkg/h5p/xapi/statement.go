// Package xapi builds Experience API statements for content events.
//
// An xAPI event is an event.Event of type "xAPI" that bubbles and reaches
// the external bus. Its payload is a *Data holding the statement, which
// callers fill in step by step:
//
//	evt := xapi.NewEvent(env)
//	evt.SetActor()
//	evt.SetVerb(xapi.VerbAnswered)
//	evt.SetObject(instance)
//	evt.SetContext(instance)
//	evt.SetScoredResult(7, 10, instance)
//
// Handlers receiving the plain *event.Event recover the view with FromEvent.
package xapi

// Statement is an xAPI statement.
type Statement struct {
	Actor   *Actor   `json:"actor,omitempty"`
	Verb    *Verb    `json:"verb,omitempty"`
	Object  *Object  `json:"object,omitempty"`
	Context *Context `json:"context,omitempty"`
	Result  *Result  `json:"result,omitempty"`
}

// Actor identifies who did something, by mailbox or by account.
type Actor struct {
	Name       string   `json:"name,omitempty"`
	Mbox       string   `json:"mbox,omitempty"`
	Account    *Account `json:"account,omitempty"`
	ObjectType string   `json:"objectType"`
}

// Account is an anonymous actor identity.
type Account struct {
	Name     string `json:"name"`
	HomePage string `json:"homePage"`
}

// Verb is what the actor did.
type Verb struct {
	ID      string            `json:"id"`
	Display map[string]string `json:"display,omitempty"`
}

// Object is the activity acted upon.
type Object struct {
	ID         string      `json:"id,omitempty"`
	ObjectType string      `json:"objectType,omitempty"`
	Definition *Definition `json:"definition,omitempty"`
}

// Definition describes an activity.
type Definition struct {
	Name                    map[string]string `json:"name,omitempty"`
	Description             map[string]string `json:"description,omitempty"`
	Type                    string            `json:"type,omitempty"`
	InteractionType         string            `json:"interactionType,omitempty"`
	CorrectResponsesPattern []string          `json:"correctResponsesPattern,omitempty"`
	Extensions              map[string]any    `json:"extensions,omitempty"`
}

// Context places the activity among its parents and categories.
type Context struct {
	ContextActivities ContextActivities `json:"contextActivities"`
}

// ContextActivities lists related activities.
type ContextActivities struct {
	Parent   []ActivityRef `json:"parent,omitempty"`
	Category []ActivityRef `json:"category,omitempty"`
}

// ActivityRef points at another activity.
type ActivityRef struct {
	ID         string `json:"id"`
	ObjectType string `json:"objectType"`
}

// Result is the outcome of the activity.
type Result struct {
	Score      *Score `json:"score,omitempty"`
	Completion *bool  `json:"completion,omitempty"`
	Success    *bool  `json:"success,omitempty"`
	Duration   string `json:"duration,omitempty"`
	Response   string `json:"response,omitempty"`
}

// Score is a result score. Min, Max and Scaled are absent when no maximum
// is known; Scaled is also absent when the maximum is zero.
type Score struct {
	Min    *float64 `json:"min,omitempty"`
	Max    *float64 `json:"max,omitempty"`
	Raw    float64  `json:"raw"`
	Scaled *float64 `json:"scaled,omitempty"`
}
