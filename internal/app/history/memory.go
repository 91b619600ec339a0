package history

import (
	"context"
	"sync"
	"time"
)

// MemoryStore keeps records in process memory; they are lost on restart.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]Record
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]Record)}
}

// Begin implements Store.
func (m *MemoryStore) Begin(_ context.Context, channel string, startedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.records[channel] = Record{Channel: channel, StartedAt: startedAt}
	return nil
}

// Finish implements Store.
func (m *MemoryStore) Finish(_ context.Context, rec Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.records[rec.Channel] = rec
	return nil
}

// Get implements Store.
func (m *MemoryStore) Get(_ context.Context, channel string) (Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rec, ok := m.records[channel]
	if !ok {
		return Record{}, ErrNotFound
	}
	return rec, nil
}

// Reset implements Store.
func (m *MemoryStore) Reset(_ context.Context, channel string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.records, channel)
	return nil
}
