package cachestore

import (
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// MemoryConfig configures the bounded in-memory backend.
type MemoryConfig struct {
	// Capacity is the maximum number of entries (cache.memory.capacity,
	// default 1000). On insert past capacity, the least-recently-used
	// entry is evicted (spec.md §4.1, §8 "LRU eviction").
	Capacity int
	// TTL, if non-zero, expires every entry cache.ttl_seconds after
	// creation.
	TTL time.Duration
}

// Memory is the bounded LRU cache backend, built on
// hashicorp/golang-lru/v2 the way pkg/clients/cache_manager.go and
// pkg/intelligence/performance.go use it for their L1 tier.
type Memory struct {
	cache *lru.Cache[FP, *Item]
	ttl   func() time.Duration
	now   func() time.Time
}

// NewMemory creates a Memory backend with the given capacity (defaulting to
// 1000 if non-positive) and optional TTL.
func NewMemory(cfg MemoryConfig) *Memory {
	capacity := cfg.Capacity
	if capacity <= 0 {
		capacity = 1000
	}
	c, _ := lru.New[FP, *Item](capacity)
	ttl := cfg.TTL
	return &Memory{
		cache: c,
		ttl:   func() time.Duration { return ttl },
		now:   time.Now,
	}
}

// Get returns the value for fp, evicting it first if its TTL has elapsed.
func (m *Memory) Get(fp FP) (string, bool) {
	item, ok := m.cache.Get(fp)
	if !ok {
		return "", false
	}
	now := m.now()
	if item.Expired(now) {
		m.cache.Remove(fp)
		return "", false
	}
	item.LastAccess = now
	item.HitCount++
	return item.Value, true
}

// Set inserts or overwrites fp's value, evicting the LRU entry if at
// capacity. Invariant CreatedAt <= LastAccess holds since both are set to
// the same timestamp on creation.
func (m *Memory) Set(fp FP, value string) error {
	now := m.now()
	item := &Item{
		FP:         fp,
		Value:      value,
		CreatedAt:  now,
		LastAccess: now,
		SizeBytes:  int64(len(value)),
	}
	if ttl := m.ttl(); ttl > 0 {
		item.TTL = ttl
	}
	m.cache.Add(fp, item)
	return nil
}

func (m *Memory) Delete(fp FP) error {
	m.cache.Remove(fp)
	return nil
}

func (m *Memory) Clear() error {
	m.cache.Purge()
	return nil
}

func (m *Memory) Contains(fp FP) bool {
	_, ok := m.cache.Peek(fp)
	return ok
}

func (m *Memory) Keys() []FP {
	return m.cache.Keys()
}

// Len reports the current entry count, used by tests exercising the LRU
// eviction property (spec.md §8).
func (m *Memory) Len() int {
	return m.cache.Len()
}
