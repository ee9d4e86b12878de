package storage

import (
	"sort"
	"sync"
	"time"
)

// MemoryStore keeps values in process memory.
// Data is lost when the process exits.
type MemoryStore struct {
	mu     sync.RWMutex
	data   map[string]map[string]storedValue // scope -> key -> value
	closed bool
}

type storedValue struct {
	data      []byte
	updatedAt time.Time
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		data: make(map[string]map[string]storedValue),
	}
}

// Save implements Store.
func (m *MemoryStore) Save(scope, key string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrStoreClosed
	}

	if m.data[scope] == nil {
		m.data[scope] = make(map[string]storedValue)
	}

	stored := make([]byte, len(data))
	copy(stored, data)

	m.data[scope][key] = storedValue{
		data:      stored,
		updatedAt: time.Now().UTC(),
	}
	return nil
}

// Load implements Store.
func (m *MemoryStore) Load(scope, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, ErrStoreClosed
	}

	v, ok := m.data[scope][key]
	if !ok {
		return nil, ErrNotFound
	}

	result := make([]byte, len(v.data))
	copy(result, v.data)
	return result, nil
}

// List implements Store.
func (m *MemoryStore) List(scope string) ([]Info, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, ErrStoreClosed
	}

	values := m.data[scope]
	infos := make([]Info, 0, len(values))
	for key, v := range values {
		infos = append(infos, Info{
			Scope:     scope,
			Key:       key,
			UpdatedAt: v.updatedAt,
			Size:      int64(len(v.data)),
		})
	}

	sort.Slice(infos, func(i, j int) bool {
		return infos[i].Key < infos[j].Key
	})
	return infos, nil
}

// Delete implements Store.
func (m *MemoryStore) Delete(scope, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrStoreClosed
	}

	delete(m.data[scope], key)
	return nil
}

// DeleteScope implements Store.
func (m *MemoryStore) DeleteScope(scope string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrStoreClosed
	}

	delete(m.data, scope)
	return nil
}

// Close implements Store.
func (m *MemoryStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.closed = true
	m.data = nil
	return nil
}
