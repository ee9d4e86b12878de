package cli

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/randalmurphal/h5pruntime/pkg/h5p/contenttypes"
	"github.com/randalmurphal/h5pruntime/pkg/h5p/runtime"
)

var errNotAnswerable = errors.New("content cannot be answered")

// Answer is one scripted answer.
type Answer struct {
	// Path is the child index path from the root content; empty means the root.
	Path   []int `yaml:"path"`
	Answer bool  `yaml:"answer"`
}

// Script is an answers file.
type Script struct {
	Answers []Answer `yaml:"answers"`
	Reset   bool     `yaml:"reset"`
}

func loadScript(path string) (Script, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Script{}, fmt.Errorf("read answers: %w", err)
	}
	var s Script
	if err := yaml.Unmarshal(data, &s); err != nil {
		return Script{}, fmt.Errorf("parse answers: %w", err)
	}
	return s, nil
}

type container interface {
	Children() []runtime.Instance
}

// resolve follows path through nested content.
func resolve(root runtime.Instance, path []int) (runtime.Instance, error) {
	cur := root
	for depth, i := range path {
		c, ok := cur.(container)
		if !ok {
			return nil, fmt.Errorf("path %v: element %d has no children", path, depth)
		}
		children := c.Children()
		if i < 0 || i >= len(children) {
			return nil, fmt.Errorf("path %v: index %d out of range (%d children)", path, i, len(children))
		}
		cur = children[i]
	}
	return cur, nil
}

func (s Script) apply(root runtime.Instance) error {
	if s.Reset {
		if r, ok := root.(runtime.Resettable); ok {
			r.ResetTask()
		}
	}
	for _, a := range s.Answers {
		inst, err := resolve(root, a.Path)
		if err != nil {
			return err
		}
		tf, ok := inst.(*contenttypes.TrueFalse)
		if !ok {
			return fmt.Errorf("path %v: %w", a.Path, errNotAnswerable)
		}
		tf.Answer(a.Answer)
	}
	return nil
}
