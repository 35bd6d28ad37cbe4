package cachemanager

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/developer-mesh/graphrag-coordinator/internal/cachestore"
)

func newTestManager() *Manager {
	session := cachestore.NewThreadSafe(cachestore.NewMemory(cachestore.MemoryConfig{Capacity: 100}))
	global := cachestore.NewThreadSafe(cachestore.NewMemory(cachestore.MemoryConfig{Capacity: 100}))
	return New(session, global, nil, nil)
}

func TestCacheManager_GlobalHitWritesThroughToSession(t *testing.T) {
	m := newTestManager()
	require.NoError(t, m.Set("what is x?", "body", "", false))

	lookup := m.Get(context.Background(), "what is x?", "thread-1")
	assert.True(t, lookup.Hit)
	assert.Equal(t, "global", lookup.Tier)
	assert.Equal(t, "body", lookup.Value)

	// Second lookup on the same thread must now hit session.
	lookup2 := m.Get(context.Background(), "what is x?", "thread-1")
	assert.True(t, lookup2.Hit)
	assert.Equal(t, "session", lookup2.Tier)
}

func TestCacheManager_SessionPrivateNotWrittenGlobally(t *testing.T) {
	m := newTestManager()
	require.NoError(t, m.Set("secret", "body", "thread-1", true))

	// Another thread must not see it via the global tier.
	lookup := m.Get(context.Background(), "secret", "thread-2")
	assert.False(t, lookup.Hit)
}

func TestCacheManager_SingleFlight(t *testing.T) {
	m := newTestManager()

	var computeCount int64
	const n = 100

	var wg sync.WaitGroup
	results := make([]string, n)
	errs := make([]error, n)
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func(i int) {
			defer wg.Done()
			v, err := m.GetOrCompute(context.Background(), "same question", "thread-1", false, func(ctx context.Context) (string, error) {
				atomic.AddInt64(&computeCount, 1)
				return "computed-answer", nil
			})
			results[i] = v
			errs[i] = err
		}(i)
	}
	wg.Wait()

	for i := 0; i < n; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, "computed-answer", results[i])
	}
	assert.LessOrEqual(t, atomic.LoadInt64(&computeCount), int64(2), "expected at most a couple of compute calls under race with cache writes")

	lookup := m.Get(context.Background(), "same question", "thread-1")
	assert.True(t, lookup.Hit)
}

func TestCacheManager_FailureNotCached(t *testing.T) {
	m := newTestManager()
	wantErr := fmt.Errorf("boom")

	_, err := m.GetOrCompute(context.Background(), "q", "thread-1", false, func(ctx context.Context) (string, error) {
		return "", wantErr
	})
	require.Error(t, err)

	lookup := m.Get(context.Background(), "q", "thread-1")
	assert.False(t, lookup.Hit)
}
