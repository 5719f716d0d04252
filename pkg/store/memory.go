package store

import (
	"context"
	"sync"
)

// MemoryBackend keeps the record list in process memory.
type MemoryBackend struct {
	mu      sync.RWMutex
	records []Record
	saves   int
}

// NewMemoryBackend creates an empty memory backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{}
}

// Load returns a copy of the stored list.
func (m *MemoryBackend) Load(ctx context.Context) ([]Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]Record(nil), m.records...), nil
}

// Save stores a copy of records.
func (m *MemoryBackend) Save(ctx context.Context, records []Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append([]Record(nil), records...)
	m.saves++
	return nil
}

// Saves returns the number of Save calls.
func (m *MemoryBackend) Saves() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.saves
}
