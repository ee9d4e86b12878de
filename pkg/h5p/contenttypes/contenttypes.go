// Package contenttypes holds the content types shipped with the runtime.
package contenttypes

import (
	"errors"

	"github.com/randalmurphal/h5pruntime/pkg/h5p/runtime"
)

// Register adds every built-in content type to rt.
func Register(rt *runtime.Runtime) error {
	return errors.Join(
		rt.Register(AdvancedTextName, NewAdvancedText),
		rt.Register(TrueFalseName, NewTrueFalse),
	)
}
