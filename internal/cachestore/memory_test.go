package cachestore

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemory_SetGet(t *testing.T) {
	m := NewMemory(MemoryConfig{Capacity: 10})
	fp := NewFP("question")
	require.NoError(t, m.Set(fp, "answer"))

	v, ok := m.Get(fp)
	require.True(t, ok)
	assert.Equal(t, "answer", v)
}

func TestMemory_GetAfterSetReturnsMostRecent(t *testing.T) {
	m := NewMemory(MemoryConfig{Capacity: 10})
	fp := NewFP("q")
	require.NoError(t, m.Set(fp, "v1"))
	require.NoError(t, m.Set(fp, "v2"))

	v, ok := m.Get(fp)
	require.True(t, ok)
	assert.Equal(t, "v2", v)
}

func TestMemory_LRUEviction(t *testing.T) {
	capacity := 5
	extra := 3
	m := NewMemory(MemoryConfig{Capacity: capacity})

	var fps []FP
	for i := 0; i < capacity+extra; i++ {
		fp := NewFP(fmt.Sprintf("key-%d", i))
		fps = append(fps, fp)
		require.NoError(t, m.Set(fp, fmt.Sprintf("value-%d", i)))
	}

	// The first `extra` inserted keys must be the ones evicted.
	for i := 0; i < extra; i++ {
		assert.False(t, m.Contains(fps[i]), "expected key %d to be evicted", i)
	}
	for i := extra; i < capacity+extra; i++ {
		assert.True(t, m.Contains(fps[i]), "expected key %d to remain", i)
	}
	assert.Equal(t, capacity, m.Len())
}

func TestMemory_TTLExpiry(t *testing.T) {
	m := NewMemory(MemoryConfig{Capacity: 10, TTL: 10 * time.Millisecond})
	fp := NewFP("q")
	require.NoError(t, m.Set(fp, "v"))

	time.Sleep(20 * time.Millisecond)

	_, ok := m.Get(fp)
	assert.False(t, ok)
	assert.False(t, m.Contains(fp))
}

func TestMemory_DeleteAndClear(t *testing.T) {
	m := NewMemory(MemoryConfig{Capacity: 10})
	fp := NewFP("q")
	require.NoError(t, m.Set(fp, "v"))
	require.NoError(t, m.Delete(fp))
	_, ok := m.Get(fp)
	assert.False(t, ok)

	require.NoError(t, m.Set(fp, "v"))
	require.NoError(t, m.Clear())
	assert.Empty(t, m.Keys())
}
