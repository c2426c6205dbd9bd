package storage

import (
	"context"
	"sync"

	"trenches/internal/domain"
)

// JournalCapacity bounds the event journal of the Redis and memory backends.
const JournalCapacity = 1000

// Memory is a process-local store. Nothing survives a restart.
type Memory struct {
	mu     sync.RWMutex
	state  map[string][]byte
	events []domain.MarketEvent
}

// NewMemory creates an empty store.
func NewMemory() *Memory {
	return &Memory{state: make(map[string][]byte)}
}

func (m *Memory) SaveState(_ context.Context, key string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state[key] = append([]byte(nil), data...)
	return nil
}

func (m *Memory) LoadState(_ context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.state[key]
	if !ok {
		return nil, domain.ErrStateNotFound
	}
	return append([]byte(nil), data...), nil
}

func (m *Memory) DeleteState(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.state, key)
	return nil
}

func (m *Memory) AppendEvents(_ context.Context, events []domain.MarketEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, events...)
	if over := len(m.events) - JournalCapacity; over > 0 {
		m.events = append([]domain.MarketEvent(nil), m.events[over:]...)
	}
	return nil
}

func (m *Memory) RecentEvents(_ context.Context, limit int) ([]domain.MarketEvent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if limit <= 0 {
		return nil, nil
	}
	start := max(len(m.events)-limit, 0)
	return append([]domain.MarketEvent(nil), m.events[start:]...), nil
}

func (m *Memory) Close() error { return nil }
