package dedup

import (
	"context"
	"strings"
	"sync"
	"time"
)

// MemoryRepository is an in-memory Repository used by unit tests and the
// noop deployment profile. TTLs are honored lazily on read.
type MemoryRepository struct {
	mu      sync.Mutex
	keys    map[string]memoryEntry
	history map[string][]string
	maxLens map[string]int64
}

type memoryEntry struct {
	value     interface{}
	expiresAt time.Time
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		keys:    make(map[string]memoryEntry),
		history: make(map[string][]string),
		maxLens: make(map[string]int64),
	}
}

func (m *MemoryRepository) SetNX(_ context.Context, key string, value interface{}, ttl time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e, ok := m.keys[key]; ok && !m.expired(e) {
		return false, nil
	}
	m.keys[key] = memoryEntry{value: value, expiresAt: time.Now().Add(ttl)}
	return true, nil
}

func (m *MemoryRepository) Exists(_ context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.keys[key]
	if !ok || m.expired(e) {
		delete(m.keys, key)
		return false, nil
	}
	return true, nil
}

func (m *MemoryRepository) PushHistory(_ context.Context, key, hash string, maxLen int64, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	list := append([]string{hash}, m.history[key]...)
	if int64(len(list)) > maxLen {
		list = list[:maxLen]
	}
	m.history[key] = list
	m.maxLens[key] = maxLen
	return nil
}

func (m *MemoryRepository) InHistory(_ context.Context, key, hash string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, h := range m.history[key] {
		if h == hash {
			return true, nil
		}
	}
	return false, nil
}

func (m *MemoryRepository) CountKeys(_ context.Context, prefix string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for k, e := range m.keys {
		if strings.HasPrefix(k, prefix) && !m.expired(e) {
			count++
		}
	}
	return count, nil
}

func (m *MemoryRepository) expired(e memoryEntry) bool {
	return !e.expiresAt.IsZero() && time.Now().After(e.expiresAt)
}

// MemoryCursorRepository is the in-memory counterpart of
// RedisCursorRepository.
type MemoryCursorRepository struct {
	mu         sync.Mutex
	watermarks map[string]time.Time
	recent     map[string]map[string]time.Time
}

func NewMemoryCursorRepository() *MemoryCursorRepository {
	return &MemoryCursorRepository{
		watermarks: make(map[string]time.Time),
		recent:     make(map[string]map[string]time.Time),
	}
}

func (m *MemoryCursorRepository) GetWatermark(_ context.Context, key string) (time.Time, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.watermarks[key], nil
}

func (m *MemoryCursorRepository) SetWatermark(_ context.Context, key string, ts time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.watermarks[key] = ts
	return nil
}

func (m *MemoryCursorRepository) AddRecentID(_ context.Context, key, id string, ts time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	set, ok := m.recent[key]
	if !ok {
		set = make(map[string]time.Time)
		m.recent[key] = set
	}
	set[id] = ts
	return nil
}

func (m *MemoryCursorRepository) HasRecentID(_ context.Context, key, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.recent[key][id]
	return ok, nil
}

func (m *MemoryCursorRepository) TrimRecentIDs(_ context.Context, key string, before time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var removed int64
	for id, ts := range m.recent[key] {
		if ts.Before(before) {
			delete(m.recent[key], id)
			removed++
		}
	}
	return removed, nil
}
