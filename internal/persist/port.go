package persist

import (
	"errors"
	"maps"
	"sync"
)

// ErrQuotaExceeded is returned when a write would exceed the store quota.
var ErrQuotaExceeded = errors.New("storage quota exceeded")

// Port is the key-value capability the settings store is bound to.
// Get reports ok=false for a missing key.
type Port interface {
	Get(key string) (value []byte, ok bool, err error)
	Set(key string, value []byte) error
	Remove(key string) error
}

// Memory is an in-memory Port. A positive quota bounds the total stored bytes.
type Memory struct {
	mu    sync.Mutex
	data  map[string][]byte
	quota int
	used  int
}

// NewMemory returns an unbounded in-memory store.
func NewMemory() *Memory {
	return NewMemoryWithQuota(0)
}

// NewMemoryWithQuota returns an in-memory store limited to quota bytes.
func NewMemoryWithQuota(quota int) *Memory {
	return &Memory{data: make(map[string][]byte), quota: quota}
}

// Get implements Port.
func (m *Memory) Get(key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	value, ok := m.data[key]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), value...), true, nil
}

// Set implements Port.
func (m *Memory) Set(key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	used := m.used - len(m.data[key]) + len(value)
	if m.quota > 0 && used > m.quota {
		return ErrQuotaExceeded
	}
	m.data[key] = append([]byte(nil), value...)
	m.used = used
	return nil
}

// Remove implements Port.
func (m *Memory) Remove(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.used -= len(m.data[key])
	delete(m.data, key)
	return nil
}

// Snapshot returns a copy of the stored keys and values.
func (m *Memory) Snapshot() map[string][]byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	return maps.Clone(m.data)
}
