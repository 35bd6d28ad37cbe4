// Package cachemanager implements the two-tier cache façade from spec.md
// §4.3: a session cache (context-aware keyed) fronting a global cache
// (simple keyed), with at-most-one in-flight compute per fingerprint.
// Grounded on pkg/clients/cache_manager.go's L1/L2 + request-coalescing
// shape, but using golang.org/x/sync/singleflight for coalescing the way
// pkg/adapters/organization_tool_adapter.go already does for provider calls.
package cachemanager

import (
	"context"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/developer-mesh/graphrag-coordinator/internal/cachekey"
	"github.com/developer-mesh/graphrag-coordinator/internal/cachestore"
	"github.com/developer-mesh/graphrag-coordinator/internal/observability"
)

// SessionKeyStrategy fingerprints the session tier's (thread_id, question)
// pair. cachekey.ContextAware satisfies it directly; cachekey.Simple does
// through the simpleSessionKey adapter below, which ignores thread_id.
// cache.key_strategy selects between them at construction time.
type SessionKeyStrategy interface {
	FP(threadID, question string) cachestore.FP
}

// simpleSessionKey adapts cachekey.Simple (question-only fingerprinting) to
// SessionKeyStrategy by ignoring thread_id, for deployments that want one
// cache entry shared across all threads asking the same question.
type simpleSessionKey struct{ cachekey.Simple }

func (s simpleSessionKey) FP(_, question string) cachestore.FP { return s.Simple.FP(question) }

// SessionKeyStrategyByName resolves cache.key_strategy's enumerated values
// (spec.md §6) to a SessionKeyStrategy. context+keyword-aware is accepted as
// an alias for context-aware here: ContextKeywordAware additionally needs
// extracted keyword lists, which GetOrCompute's (question, thread_id) signature
// does not yet carry end to end, so it degrades to plain context-awareness
// until a keyword-aware call path is added.
func SessionKeyStrategyByName(name string) SessionKeyStrategy {
	switch name {
	case "simple":
		return simpleSessionKey{}
	case "context-aware", "context+keyword-aware", "":
		return cachekey.ContextAware{}
	default:
		return cachekey.ContextAware{}
	}
}

// Manager is the two-tier cache: session cache keyed per SessionKeyStrategy,
// global cache keyed by question alone.
type Manager struct {
	session cachestore.Backend
	global  cachestore.Backend

	sessionKey SessionKeyStrategy
	globalKey  cachekey.Simple

	group singleflight.Group

	logger  observability.Logger
	metrics observability.MetricsClient
}

// New builds a Manager over the given backends with the default
// context-aware session key strategy. Both backends should already be
// wrapped with cachestore.NewThreadSafe if they will be shared across
// goroutines, which they always are here.
func New(session, global cachestore.Backend, logger observability.Logger, metrics observability.MetricsClient) *Manager {
	return NewWithKeyStrategy(session, global, cachekey.ContextAware{}, logger, metrics)
}

// NewWithKeyStrategy builds a Manager with an explicit session key strategy,
// wiring cache.key_strategy (spec.md §6) to an actual fingerprinting choice.
func NewWithKeyStrategy(session, global cachestore.Backend, sessionKey SessionKeyStrategy, logger observability.Logger, metrics observability.MetricsClient) *Manager {
	if logger == nil {
		logger = observability.NoopLogger{}
	}
	if metrics == nil {
		metrics = observability.NoopMetricsClient{}
	}
	if sessionKey == nil {
		sessionKey = cachekey.ContextAware{}
	}
	return &Manager{session: session, global: global, sessionKey: sessionKey, logger: logger, metrics: metrics}
}

// Lookup is the outcome of Get: which tier (if any) produced a hit.
type Lookup struct {
	Value string
	Hit   bool
	Tier  string // "session", "global", or "" on miss
}

// Get implements spec.md §4.3's lookup sequence: session first; on session
// miss, global; on global hit, write through into session.
func (m *Manager) Get(ctx context.Context, question, threadID string) Lookup {
	sessionFP := m.sessionKey.FP(threadID, question)
	if v, ok := m.session.Get(sessionFP); ok {
		m.metrics.RecordCounter("cache.hit", 1, map[string]string{"tier": "session"})
		return Lookup{Value: v, Hit: true, Tier: "session"}
	}

	globalFP := m.globalKey.FP(question)
	if v, ok := m.global.Get(globalFP); ok {
		m.metrics.RecordCounter("cache.hit", 1, map[string]string{"tier": "global"})
		if err := m.session.Set(sessionFP, v); err != nil {
			m.logger.Warn("cache: session write-through failed", map[string]interface{}{"error": err.Error()})
		}
		return Lookup{Value: v, Hit: true, Tier: "global"}
	}

	m.metrics.RecordCounter("cache.miss", 1, nil)
	return Lookup{}
}

// Set writes to the session cache, and additionally to the global cache
// unless sessionPrivate is true (spec.md §4.3).
func (m *Manager) Set(question, value, threadID string, sessionPrivate bool) error {
	sessionFP := m.sessionKey.FP(threadID, question)
	if err := m.session.Set(sessionFP, value); err != nil {
		return err
	}
	if sessionPrivate {
		return nil
	}
	globalFP := m.globalKey.FP(question)
	return m.global.Set(globalFP, value)
}

// GetOrCompute implements the single-flight contract of spec.md §4.3: for a
// given fingerprint, only one compute() call is ever in flight; concurrent
// callers for the same question+thread block on its result and all observe
// the same value. On failure, no caching occurs and every waiter observes
// the failure (no negative caching).
func (m *Manager) GetOrCompute(ctx context.Context, question, threadID string, sessionPrivate bool, compute func(context.Context) (string, error)) (string, error) {
	if lookup := m.Get(ctx, question, threadID); lookup.Hit {
		return lookup.Value, nil
	}

	sessionFP := m.sessionKey.FP(threadID, question)
	flightKey := string(sessionFP)

	start := time.Now()
	v, err, shared := m.group.Do(flightKey, func() (interface{}, error) {
		value, err := compute(ctx)
		if err != nil {
			return "", err
		}
		if setErr := m.Set(question, value, threadID, sessionPrivate); setErr != nil {
			m.logger.Warn("cache: set after compute failed", map[string]interface{}{"error": setErr.Error()})
		}
		return value, nil
	})
	m.metrics.RecordOperation("cachemanager", "compute", err == nil, time.Since(start).Seconds(), map[string]string{
		"shared": boolString(shared),
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

func boolString(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
