package cachestore

import (
	"sync"
)

// ThreadSafe wraps any Backend with a single mutex so all operations are
// linearizable with respect to it (spec.md §4.1). The lock is held for the
// whole wrapped backend call, including any disk I/O a Disk or Hybrid
// backend does inside Set; it is not held around whatever computed the
// value being set — callers that need to compute a value under
// single-flight do so before calling Set.
type ThreadSafe struct {
	mu      sync.Mutex
	backend Backend
}

// NewThreadSafe wraps backend with mutual exclusion.
func NewThreadSafe(backend Backend) *ThreadSafe {
	return &ThreadSafe{backend: backend}
}

func (t *ThreadSafe) Get(fp FP) (string, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.backend.Get(fp)
}

func (t *ThreadSafe) Set(fp FP, value string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.backend.Set(fp, value)
}

func (t *ThreadSafe) Delete(fp FP) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.backend.Delete(fp)
}

func (t *ThreadSafe) Clear() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.backend.Clear()
}

func (t *ThreadSafe) Contains(fp FP) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.backend.Contains(fp)
}

func (t *ThreadSafe) Keys() []FP {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.backend.Keys()
}
