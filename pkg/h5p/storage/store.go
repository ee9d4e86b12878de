// Package storage persists small opaque blobs for the runtime: the
// anonymous actor id, content user data, and recorded results.
package storage

import (
	"errors"
	"strconv"
	"time"
)

// Store persists values keyed by (scope, key).
// Implementations must be safe for concurrent use.
type Store interface {
	// Save stores data, overwriting any existing value for (scope, key).
	Save(scope, key string, data []byte) error

	// Load retrieves a value.
	// Returns ErrNotFound if it doesn't exist.
	Load(scope, key string) ([]byte, error)

	// List returns metadata for every value in scope, ordered by key.
	// Returns empty slice (not error) if scope has no values.
	List(scope string) ([]Info, error)

	// Delete removes one value.
	// Returns nil if it doesn't exist.
	Delete(scope, key string) error

	// DeleteScope removes every value in scope.
	DeleteScope(scope string) error

	// Close releases any resources (connections, files).
	Close() error
}

// Info provides metadata without loading the value.
type Info struct {
	Scope     string
	Key       string
	UpdatedAt time.Time
	Size      int64
}

// Sentinel errors for storage operations.
var (
	// ErrNotFound indicates a value doesn't exist.
	ErrNotFound = errors.New("storage: not found")

	// ErrStoreClosed indicates the store has been closed.
	ErrStoreClosed = errors.New("storage: store closed")
)

// Well-known scopes.
const (
	// ScopeLocal holds browser-local style values such as the anonymous actor id.
	ScopeLocal = "local"

	// ScopeResults holds finished content results.
	ScopeResults = "results"
)

// ContentScope returns the scope holding user data for one piece of content.
func ContentScope(contentID int64) string {
	return "cid-" + strconv.FormatInt(contentID, 10)
}

// UserDataKey returns the key for dataID of a (sub-)content.
// Main content uses subContentID "".
func UserDataKey(subContentID, dataID string) string {
	if subContentID == "" {
		subContentID = "0"
	}
	return subContentID + ":" + dataID
}
