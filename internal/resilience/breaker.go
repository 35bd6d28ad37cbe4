package resilience

import (
	"context"
	"sync"
	"time"

	"github.com/sony/gobreaker"

	"github.com/developer-mesh/graphrag-coordinator/internal/observability"
)

// NewCircuitBreaker builds a circuit breaker so that repeated failures
// across retrievers trip it and short-circuit subsequent calls (spec.md §7
// "GraphStoreFailure"), grounded on
// pkg/services/service_helpers.go:CreateDefaultCircuitBreakerSettings.
func NewCircuitBreaker(name string, logger observability.Logger) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 3,
		Interval:    10 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 3 && failureRatio >= 0.6
		},
		OnStateChange: func(bname string, from gobreaker.State, to gobreaker.State) {
			if logger == nil {
				return
			}
			logger.Warn("circuit breaker state change", map[string]interface{}{
				"breaker": bname,
				"from":    from.String(),
				"to":      to.String(),
			})
		},
	})
}

// BreakerGroup hands out one circuit breaker per name, lazily created. A
// single Coordinator's BreakerGroup is shared by every concurrent
// ProcessQuery call (spec.md §5), so For must be safe for concurrent use,
// the same guarantee observability.PrometheusMetricsClient's identical
// map-cache pattern gives its counter/gauge/histogram maps.
type BreakerGroup struct {
	logger observability.Logger

	mu       sync.RWMutex
	breakers map[string]*gobreaker.CircuitBreaker
}

// NewBreakerGroup creates an empty group.
func NewBreakerGroup(logger observability.Logger) *BreakerGroup {
	return &BreakerGroup{logger: logger, breakers: make(map[string]*gobreaker.CircuitBreaker)}
}

// For returns (creating if needed) the breaker for name.
func (g *BreakerGroup) For(name string) *gobreaker.CircuitBreaker {
	g.mu.RLock()
	b, ok := g.breakers[name]
	g.mu.RUnlock()
	if ok {
		return b
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if b, ok := g.breakers[name]; ok {
		return b
	}
	b = NewCircuitBreaker(name, g.logger)
	g.breakers[name] = b
	return b
}

// Execute runs fn through the named breaker, translating gobreaker's result
// signature into a plain error-returning call suitable for context-bound
// operations.
func (g *BreakerGroup) Execute(ctx context.Context, name string, fn func(context.Context) (interface{}, error)) (interface{}, error) {
	return g.For(name).Execute(func() (interface{}, error) {
		return fn(ctx)
	})
}
