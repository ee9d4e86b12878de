package runtime

import (
	"fmt"
	"io"
	"slices"
	"strings"
	"sync"
)

// Container is an attach target for content.
type Container interface {
	AddClass(class string)
	ToggleClass(class string, on bool)
	HasClass(class string) bool
	SetText(text string)
	Append(classes ...string) Container
	Empty()
}

// Element is an in-memory Container tree.
type Element struct {
	mu       sync.Mutex
	classes  []string
	text     string
	children []*Element
}

// NewElement creates an element with the given classes.
func NewElement(classes ...string) *Element {
	e := &Element{}
	for _, c := range classes {
		e.AddClass(c)
	}
	return e
}

// AddClass adds class unless present.
func (e *Element) AddClass(class string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if class != "" && !slices.Contains(e.classes, class) {
		e.classes = append(e.classes, class)
	}
}

// ToggleClass adds or removes class.
func (e *Element) ToggleClass(class string, on bool) {
	if on {
		e.AddClass(class)
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if i := slices.Index(e.classes, class); i >= 0 {
		e.classes = slices.Delete(e.classes, i, i+1)
	}
}

// HasClass reports whether the element carries class.
func (e *Element) HasClass(class string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return slices.Contains(e.classes, class)
}

// Classes returns a copy of the element's classes.
func (e *Element) Classes() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return slices.Clone(e.classes)
}

// SetText replaces the element's text.
func (e *Element) SetText(text string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.text = text
}

// Text returns the element's text.
func (e *Element) Text() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.text
}

// Append adds a child element and returns it.
func (e *Element) Append(classes ...string) Container {
	child := NewElement(classes...)
	e.mu.Lock()
	e.children = append(e.children, child)
	e.mu.Unlock()
	return child
}

// Children returns the element's children.
func (e *Element) Children() []*Element {
	e.mu.Lock()
	defer e.mu.Unlock()
	return slices.Clone(e.children)
}

// Empty removes text and children.
func (e *Element) Empty() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.text = ""
	e.children = nil
}

// Render writes the tree as indented lines of ".class.class text".
func (e *Element) Render(w io.Writer) error {
	return e.render(w, 0)
}

func (e *Element) render(w io.Writer, depth int) error {
	e.mu.Lock()
	line := strings.Repeat("  ", depth) + "." + strings.Join(e.classes, ".")
	if e.text != "" {
		line += " " + e.text
	}
	children := slices.Clone(e.children)
	e.mu.Unlock()

	if _, err := fmt.Fprintln(w, line); err != nil {
		return err
	}
	for _, c := range children {
		if err := c.render(w, depth+1); err != nil {
			return err
		}
	}
	return nil
}
