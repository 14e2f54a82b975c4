package store

import (
	"context"
	"sync"
)

// Memory keeps records in process memory.
type Memory struct {
	mu      sync.RWMutex
	records map[string]Entry
	order   []string
}

func NewMemory() *Memory {
	return &Memory{records: make(map[string]Entry)}
}

func (m *Memory) Put(_ context.Context, key string, e Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.records[key]; !ok {
		m.order = append(m.order, key)
	}
	m.records[key] = e
	return nil
}

func (m *Memory) Get(_ context.Context, key string) (Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.records[key]
	if !ok {
		return Entry{}, ErrNotFound
	}
	return e, nil
}

func (m *Memory) List(_ context.Context, prefix, date string) ([]Record, error) {
	m.mu.RLock()
	all := make([]Record, 0, len(m.order))
	for _, k := range m.order {
		all = append(all, Record{Key: k, Entry: m.records[k]})
	}
	m.mu.RUnlock()
	return filter(all, prefix, date), nil
}

func (m *Memory) Close() error { return nil }
