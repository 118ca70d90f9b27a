// ABOUTME: Interface definitions for durable client-side key/value storage.
// ABOUTME: Defines the KV contract the session store persists through, plus change watching.
package storage

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// KV stores string values under short keys, durable across process restarts.
type KV interface {
	// Get returns the stored value and whether the key exists.
	Get(key string) (string, bool, error)

	// Set stores value under key, replacing any previous value.
	Set(key, value string) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(key string) error
}

// Watcher reports keys changed by writers outside this process.
type Watcher interface {
	// Watch blocks until ctx is done, calling fn with the name of each changed key.
	Watch(ctx context.Context, fn func(key string)) error
}

// validKey rejects keys that would escape the storage directory.
func validKey(key string) error {
	if key == "" || key == "." || key == ".." || strings.ContainsAny(key, `/\`) || strings.HasPrefix(key, tmpPrefix) {
		return fmt.Errorf("invalid storage key %q", key)
	}
	return nil
}

// MemoryKV is an in-memory KV, used for tests and ephemeral sessions.
type MemoryKV struct {
	mu     sync.Mutex
	values map[string]string
}

// NewMemoryKV creates an empty in-memory store.
func NewMemoryKV() *MemoryKV {
	return &MemoryKV{values: make(map[string]string)}
}

// Get returns the stored value and whether the key exists.
func (m *MemoryKV) Get(key string) (string, bool, error) {
	if err := validKey(key); err != nil {
		return "", false, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.values[key]
	return v, ok, nil
}

// Set stores value under key.
func (m *MemoryKV) Set(key, value string) error {
	if err := validKey(key); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
	return nil
}

// Delete removes key.
func (m *MemoryKV) Delete(key string) error {
	if err := validKey(key); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.values, key)
	return nil
}
