package runtime

import (
	"errors"
	"fmt"
)

// Sentinel errors for content construction.
var (
	// ErrInvalidLibrary indicates a library string that is not "Name major.minor".
	ErrInvalidLibrary = errors.New("invalid library string")

	// ErrInvalidParams indicates params that are not a JSON object.
	ErrInvalidParams = errors.New("invalid library params")

	// ErrUnknownLibrary indicates no constructor is registered for the machine name.
	ErrUnknownLibrary = errors.New("unable to find constructor")

	// ErrConstructor indicates the constructor returned an error, panicked or
	// returned an instance without a content base.
	ErrConstructor = errors.New("constructor failed")

	// ErrNilConstructor indicates Register was called with a nil constructor.
	ErrNilConstructor = errors.New("constructor cannot be nil")
)

// Sentinel errors for user data.
var (
	// ErrSerializeState indicates the current state could not be encoded.
	ErrSerializeState = errors.New("failed to serialize state")

	// ErrNoStore indicates the environment has no storage configured.
	ErrNoStore = errors.New("no user data store configured")
)

// ConstructionError reports a failed NewRunnable call.
type ConstructionError struct {
	// Library is the library string from the descriptor.
	Library string
	// ContentID is the content the instance was meant for.
	ContentID int64
	// Err is the underlying error, wrapping one of the sentinels above.
	Err error
}

// Error implements the error interface.
func (e *ConstructionError) Error() string {
	return fmt.Sprintf("new runnable %q (content %d): %v", e.Library, e.ContentID, e.Err)
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *ConstructionError) Unwrap() error {
	return e.Err
}

// PanicError captures a constructor panic.
type PanicError struct {
	// Value is the value passed to panic().
	Value any
	// Stack is the stack trace at the point of panic.
	Stack string
}

// Error implements the error interface.
func (e *PanicError) Error() string {
	return fmt.Sprintf("constructor panicked: %v", e.Value)
}

// StateError wraps a user data failure.
type StateError struct {
	// ContentID and SubContentID identify the instance.
	ContentID    int64
	SubContentID string
	// Op is "save", "load" or "serialize".
	Op string
	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *StateError) Error() string {
	if e.SubContentID != "" {
		return fmt.Sprintf("state %s for content %d/%s: %v", e.Op, e.ContentID, e.SubContentID, e.Err)
	}
	return fmt.Sprintf("state %s for content %d: %v", e.Op, e.ContentID, e.Err)
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *StateError) Unwrap() error {
	return e.Err
}
