package runtime

import (
	"context"
	"encoding/json"
	"slices"
	"sync"
)

// Constructor builds a content instance from its params.
// extras.Base is nil only for legacy libraries that predate Extras.
type Constructor func(ctx context.Context, params json.RawMessage, contentID int64, extras Extras) (Instance, error)

// Registry maps machine names to constructors. It is safe for concurrent use.
type Registry struct {
	mu           sync.RWMutex
	constructors map[string]Constructor
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		constructors: make(map[string]Constructor),
	}
}

// Register adds or replaces the constructor for machineName.
func (r *Registry) Register(machineName string, c Constructor) error {
	if machineName == "" {
		return ErrInvalidLibrary
	}
	if c == nil {
		return ErrNilConstructor
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.constructors[machineName] = c
	return nil
}

// Lookup returns the constructor for machineName.
func (r *Registry) Lookup(machineName string) (Constructor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.constructors[machineName]
	return c, ok
}

// Has reports whether machineName is registered.
func (r *Registry) Has(machineName string) bool {
	_, ok := r.Lookup(machineName)
	return ok
}

// Libraries returns the registered machine names, sorted.
func (r *Registry) Libraries() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.constructors))
	for name := range r.constructors {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}
