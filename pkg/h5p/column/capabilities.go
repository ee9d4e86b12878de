package column

import (
	"encoding/json"
	"fmt"

	"github.com/randalmurphal/h5pruntime/pkg/h5p/runtime"
	"github.com/randalmurphal/h5pruntime/pkg/h5p/xapi"
)

const interactionActivity = "http://adlnet.gov/expapi/activities/cmi.interaction"

// GetScore sums the scores of every child that has one.
func (c *Column) GetScore() float64 {
	var total float64
	for _, ch := range c.children {
		if s, ok := ch.instance.(runtime.Scorer); ok {
			total += s.GetScore()
		}
	}
	return total
}

// GetMaxScore sums the maximum scores of every child that has one.
func (c *Column) GetMaxScore() float64 {
	var total float64
	for _, ch := range c.children {
		if s, ok := ch.instance.(runtime.Scorer); ok {
			total += s.GetMaxScore()
		}
	}
	return total
}

// GetAnswerGiven reports whether every answering child has been answered.
func (c *Column) GetAnswerGiven() bool {
	for _, ch := range c.children {
		if a, ok := ch.instance.(runtime.AnswerReporter); ok && !a.GetAnswerGiven() {
			return false
		}
	}
	return true
}

// ShowSolutions reveals the solutions of every child.
func (c *Column) ShowSolutions() {
	for _, ch := range c.children {
		if s, ok := ch.instance.(runtime.SolutionShower); ok {
			s.ShowSolutions()
		}
	}
}

// ResetTask resets every child and the column's completion tracking, and
// drops the saved state.
func (c *Column) ResetTask() {
	for _, ch := range c.children {
		if r, ok := ch.instance.(runtime.Resettable); ok {
			r.ResetTask()
		}
	}
	c.Reset()
	c.previous = nil
	c.ClearStoredState()
}

// Reset forgets every recorded task result so the column can complete again.
func (c *Column) Reset() {
	for i := range c.results {
		c.results[i] = nil
	}
	c.numTasksCompleted = 0
	c.completed = false
}

// GetCurrentState merges child states into the previous state, indexed by
// position in params.content. Entries of children without state, including
// children that failed to build, are kept.
func (c *Column) GetCurrentState() any {
	state := make(map[string]any, len(c.previous)+1)
	for k, v := range c.previous {
		state[k] = v
	}

	var instances []any
	if prev, ok := c.previous["instances"].([]any); ok {
		instances = append(instances, prev...)
	}
	for len(instances) < len(c.params.Content) {
		instances = append(instances, nil)
	}
	for _, ch := range c.children {
		if s, ok := ch.instance.(runtime.Stateful); ok {
			instances[ch.paramIndex] = s.GetCurrentState()
		}
	}
	state["instances"] = instances
	return state
}

// GetXAPIData describes the column as a compound interaction with the
// statements of its children.
func (c *Column) GetXAPIData() *runtime.XAPIData {
	evt := c.CreateXAPIEventTemplate(xapi.VerbAnswered, nil)
	if def := evt.Statement().Object.Definition; def != nil {
		def.Type = interactionActivity
		def.InteractionType = "compound"
		title := c.Title()
		if title == "" {
			title = "Column"
		}
		def.Description = map[string]string{"en-US": title}
	}
	score, maxScore := c.GetScore(), c.GetMaxScore()
	evt.SetScoredResult(score, maxScore, c, xapi.WithCompletion(true), xapi.WithSuccess(score == maxScore))

	data := &runtime.XAPIData{Statement: evt.Statement()}
	for _, ch := range c.children {
		if p, ok := ch.instance.(runtime.XAPIDataProvider); ok {
			data.Children = append(data.Children, p.GetXAPIData())
		}
	}
	return data
}

// restore decodes the previous state.
func (c *Column) restore(raw json.RawMessage) error {
	if len(raw) == 0 {
		return nil
	}
	var prev map[string]any
	if err := json.Unmarshal(raw, &prev); err != nil {
		return fmt.Errorf("decode column state: %w", err)
	}
	c.previous = prev
	return nil
}

// previousChildState returns the saved state of child i, or nil.
func (c *Column) previousChildState(i int) json.RawMessage {
	prev, ok := c.previous["instances"].([]any)
	if !ok || i >= len(prev) || prev[i] == nil {
		return nil
	}
	raw, err := json.Marshal(prev[i])
	if err != nil {
		return nil
	}
	return raw
}
