package event

import "errors"

// ErrNilHandler is returned by On and Once when the handler is nil.
var ErrNilHandler = errors.New("event: handler must not be nil")
