// Package resilience provides the circuit breaker, retry, timeout, and
// bulkhead primitives (spec.md §5, §7), grounded on pkg/adapters/resilience.
// The coordinator wraps each retriever dispatch in a breaker and a timeout
// and a streamed run in a bulkhead; the LLM clients wrap their calls in retry.
package resilience

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// BulkheadConfig bounds concurrent executions through one gate.
type BulkheadConfig struct {
	Name           string
	MaxConcurrent  int
	MaxWaitingTime time.Duration
}

// Bulkhead limits how many callers may execute concurrently; it backs the
// coordinator's worker pool (coordinator.worker_pool_size).
type Bulkhead interface {
	Execute(ctx context.Context, fn func() (interface{}, error)) (interface{}, error)
	Name() string
	CurrentExecutions() int
	RemainingExecutions() int
}

type defaultBulkhead struct {
	config       BulkheadConfig
	semaphore    chan struct{}
	currentCount int
	mu           sync.Mutex
}

// NewBulkhead creates a bulkhead admitting at most config.MaxConcurrent
// simultaneous executions.
func NewBulkhead(config BulkheadConfig) Bulkhead {
	if config.MaxConcurrent <= 0 {
		config.MaxConcurrent = 4
	}
	return &defaultBulkhead{
		config:    config,
		semaphore: make(chan struct{}, config.MaxConcurrent),
	}
}

func (b *defaultBulkhead) Execute(ctx context.Context, fn func() (interface{}, error)) (interface{}, error) {
	ctxToUse := ctx
	if b.config.MaxWaitingTime > 0 {
		var cancel context.CancelFunc
		ctxToUse, cancel = context.WithTimeout(ctx, b.config.MaxWaitingTime)
		defer cancel()
	}

	select {
	case b.semaphore <- struct{}{}:
		b.incrementCount()
		defer func() {
			<-b.semaphore
			b.decrementCount()
		}()
		return fn()
	case <-ctxToUse.Done():
		return nil, fmt.Errorf("bulkhead %q rejected execution: %w", b.config.Name, ctxToUse.Err())
	}
}

func (b *defaultBulkhead) Name() string { return b.config.Name }

func (b *defaultBulkhead) CurrentExecutions() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.currentCount
}

func (b *defaultBulkhead) RemainingExecutions() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.config.MaxConcurrent - b.currentCount
}

func (b *defaultBulkhead) incrementCount() {
	b.mu.Lock()
	b.currentCount++
	b.mu.Unlock()
}

func (b *defaultBulkhead) decrementCount() {
	b.mu.Lock()
	b.currentCount--
	b.mu.Unlock()
}
