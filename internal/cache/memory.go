package cache

import (
	"context"
	"strings"
	"sync"
	"time"
)

type memoryItem struct {
	value   []byte
	expires time.Time
}

// Memory is the in-process Cache. Expired items are dropped lazily on Get
// and swept on Set.
type Memory struct {
	mu    sync.RWMutex
	items map[string]memoryItem
	clock func() time.Time
}

// NewMemory creates an empty in-memory cache.
func NewMemory() *Memory {
	return &Memory{
		items: make(map[string]memoryItem),
		clock: time.Now,
	}
}

func (m *Memory) Get(_ context.Context, key string) ([]byte, bool) {
	m.mu.RLock()
	item, ok := m.items[key]
	m.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if m.clock().After(item.expires) {
		m.mu.Lock()
		delete(m.items, key)
		m.mu.Unlock()
		return nil, false
	}
	return item.value, true
}

func (m *Memory) Set(_ context.Context, key string, value []byte, ttl time.Duration) {
	now := m.clock()
	m.mu.Lock()
	defer m.mu.Unlock()
	for k, item := range m.items {
		if now.After(item.expires) {
			delete(m.items, k)
		}
	}
	m.items[key] = memoryItem{value: value, expires: now.Add(ttl)}
}

func (m *Memory) DeleteByPrefix(_ context.Context, prefix string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for k := range m.items {
		if strings.HasPrefix(k, prefix) {
			delete(m.items, k)
		}
	}
}
