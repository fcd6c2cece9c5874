package store

import (
	"context"
	"sort"
	"strings"
	"sync"
)

// MemoryBackend keeps records in process memory with an optional byte quota,
// mirroring the size accounting of browser storage (key + value length).
type MemoryBackend struct {
	mu       sync.RWMutex
	data     map[string][]byte
	used     int
	maxBytes int // 0 = unlimited
	failSets int
}

var _ Backend = (*MemoryBackend)(nil)

func NewMemory(maxBytes int) *MemoryBackend {
	return &MemoryBackend{
		data:     make(map[string][]byte),
		maxBytes: maxBytes,
	}
}

func (m *MemoryBackend) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[key]
	if !ok {
		return nil, ErrKeyNotFound
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, nil
}

func (m *MemoryBackend) Set(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.failSets > 0 {
		m.failSets--
		return ErrQuotaExceeded
	}

	prev, existed := m.data[key]
	next := m.used + len(value)
	if existed {
		next -= len(prev)
	} else {
		next += len(key)
	}
	if m.maxBytes > 0 && next > m.maxBytes {
		return ErrQuotaExceeded
	}

	stored := make([]byte, len(value))
	copy(stored, value)
	m.data[key] = stored
	m.used = next
	return nil
}

func (m *MemoryBackend) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if v, ok := m.data[key]; ok {
		m.used -= len(key) + len(v)
		delete(m.data, key)
	}
	return nil
}

func (m *MemoryBackend) Keys(_ context.Context, prefix string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var keys []string
	for k := range m.data {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

// Usage returns the bytes currently accounted against the quota.
func (m *MemoryBackend) Usage() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.used
}

// FailNextSets makes the next n writes fail with ErrQuotaExceeded
// regardless of size, to simulate quota pressure.
func (m *MemoryBackend) FailNextSets(n int) {
	m.mu.Lock()
	m.failSets = n
	m.mu.Unlock()
}

func (m *MemoryBackend) Close() error { return nil }
