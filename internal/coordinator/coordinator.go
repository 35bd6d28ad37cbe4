// Package coordinator implements the Coordinator (spec.md §4.8): the single
// component that drives the Planner, Retrievers, Thinking Engine, and
// Synthesizer for one query, in both blocking and streaming modes.
package coordinator

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/developer-mesh/graphrag-coordinator/internal/cachemanager"
	"github.com/developer-mesh/graphrag-coordinator/internal/evidence"
	"github.com/developer-mesh/graphrag-coordinator/internal/llm"
	"github.com/developer-mesh/graphrag-coordinator/internal/observability"
	"github.com/developer-mesh/graphrag-coordinator/internal/planner"
	"github.com/developer-mesh/graphrag-coordinator/internal/ragmodel"
	"github.com/developer-mesh/graphrag-coordinator/internal/resilience"
	"github.com/developer-mesh/graphrag-coordinator/internal/retriever"
	"github.com/developer-mesh/graphrag-coordinator/internal/synthesizer"
	"github.com/developer-mesh/graphrag-coordinator/internal/thinking"
)

// DefaultComplexityThreshold is plan.complexity_threshold's default.
const DefaultComplexityThreshold = 0.7

// DefaultWorkerPoolSize is coordinator.worker_pool_size's default.
const DefaultWorkerPoolSize = 4

// DefaultTotalTimeout is coordinator.total_timeout_seconds's default.
const DefaultTotalTimeout = 300 * time.Second

// Config holds the coordinator's tunable behavior (spec.md §6).
type Config struct {
	ComplexityThreshold float64
	WorkerPoolSize       int
	TotalTimeout         time.Duration
	RetrieverTimeout     resilience.TimeoutConfig
	MaxSearchIterations  int
}

// DefaultConfig returns the spec's documented defaults.
func DefaultConfig() Config {
	return Config{
		ComplexityThreshold: DefaultComplexityThreshold,
		WorkerPoolSize:       DefaultWorkerPoolSize,
		TotalTimeout:         DefaultTotalTimeout,
		RetrieverTimeout:     resilience.DefaultRetrieverTimeout(),
		MaxSearchIterations:  thinking.MaxSearchLimit,
	}
}

// Retrievers wires one adapter per task type.
type Retrievers struct {
	Local       retriever.Retriever
	Global      retriever.Retriever
	Exploration retriever.Retriever
	Chain       retriever.Retriever
}

func (r Retrievers) forType(t ragmodel.TaskType) (retriever.Retriever, bool) {
	switch t {
	case ragmodel.TaskLocalSearch:
		return r.Local, r.Local != nil
	case ragmodel.TaskGlobalSearch:
		return r.Global, r.Global != nil
	case ragmodel.TaskExploration:
		return r.Exploration, r.Exploration != nil
	case ragmodel.TaskChainExploration:
		return r.Chain, r.Chain != nil
	default:
		return nil, false
	}
}

// Coordinator drives one query end to end.
type Coordinator struct {
	Planner     *planner.Planner
	Retrievers  Retrievers
	Synthesizer *synthesizer.Synthesizer
	Cache       *cachemanager.Manager
	LLM         llm.Client // used to construct a fresh Thinking Engine per request

	Breakers *resilience.BreakerGroup
	Bulkhead resilience.Bulkhead

	Config Config
	Logger observability.Logger
	Metrics observability.MetricsClient
}

// New wires a Coordinator with sensible defaults for any nil dependency.
func New(p *planner.Planner, retrievers Retrievers, synth *synthesizer.Synthesizer, cache *cachemanager.Manager, client llm.Client, logger observability.Logger, metrics observability.MetricsClient) *Coordinator {
	if logger == nil {
		logger = observability.NoopLogger{}
	}
	if metrics == nil {
		metrics = observability.NoopMetricsClient{}
	}
	cfg := DefaultConfig()
	return &Coordinator{
		Planner:     p,
		Retrievers:  retrievers,
		Synthesizer: synth,
		Cache:       cache,
		LLM:         client,
		Breakers:    resilience.NewBreakerGroup(logger),
		Bulkhead:    resilience.NewBulkhead(resilience.BulkheadConfig{Name: "coordinator", MaxConcurrent: cfg.WorkerPoolSize}),
		Config:      cfg,
		Logger:      logger,
		Metrics:     metrics,
	}
}

// Response is process_query's return value.
type Response struct {
	Answer        string
	Plan          *ragmodel.RetrievalPlan
	Results       map[ragmodel.TaskType][]retriever.Result
	Thinking      string
	Trace         []ragmodel.TraceEvent
	Metrics       ragmodel.RunMetrics
	Evidence      evidence.Summary
	Contradictions []evidence.Contradiction
}

// allRetrieversFailedError signals every dispatched task failed; the
// coordinator surfaces a fixed user-visible message for it and does not
// cache the result (spec.md §4.8 "User-visible failure").
type allRetrieversFailedError struct {
	reasons []string
}

func (e *allRetrieversFailedError) Error() string {
	return fmt.Sprintf("all retrievers failed: %s", strings.Join(e.reasons, "; "))
}

// ProcessQuery runs the full sequence from spec.md §4.8 for question on
// behalf of threadID, with single-flight coalescing and cache write-through.
// Concurrent identical requests share one pipeline run (spec.md §8
// "Single-flight"); only the leader receives the full structured Response,
// since the Cache Manager's coalescing contract only guarantees a shared
// answer string, not shared trace/plan detail.
func (c *Coordinator) ProcessQuery(ctx context.Context, question, threadID string) (*Response, error) {
	return c.processQuery(ctx, question, threadID, nil)
}

// processQuery is the shared core of ProcessQuery and ProcessQueryStream.
// onEvent, when non-nil, is invoked synchronously the instant a pipeline
// stage emits its trace event, letting a caller forward live progress
// instead of waiting for the full Response and replaying its Trace
// afterward.
func (c *Coordinator) processQuery(ctx context.Context, question, threadID string, onEvent func(ragmodel.TraceEvent)) (*Response, error) {
	if lookup := c.Cache.Get(ctx, question, threadID); lookup.Hit {
		ev := newTraceEvent("cache_hit", "served from "+lookup.Tier+" cache", nil)
		if onEvent != nil {
			onEvent(ev)
		}
		return &Response{
			Answer: lookup.Value,
			Trace:  []ragmodel.TraceEvent{ev},
		}, nil
	}

	ctx, cancel := context.WithTimeout(ctx, c.Config.TotalTimeout)
	defer cancel()

	var full *Response
	answer, err := c.Cache.GetOrCompute(ctx, question, threadID, false, func(ctx context.Context) (string, error) {
		resp, runErr := c.runPipeline(ctx, question, threadID, onEvent)
		if runErr != nil {
			return "", runErr
		}
		full = resp
		return resp.Answer, nil
	})

	if err != nil {
		var failure *allRetrieversFailedError
		if asAllFailed(err, &failure) {
			message := fmt.Sprintf("Sorry, I cannot answer this question. Technical reason: %s", failure.Error())
			return &Response{Answer: message}, err
		}
		return nil, err
	}

	if full == nil {
		// A concurrent leader's compute was shared with us.
		return &Response{Answer: answer}, nil
	}
	return full, nil
}

func asAllFailed(err error, target **allRetrieversFailedError) bool {
	if af, ok := err.(*allRetrieversFailedError); ok {
		*target = af
		return true
	}
	return false
}

func newTraceEvent(eventType, description string, data map[string]interface{}) ragmodel.TraceEvent {
	return ragmodel.TraceEvent{Type: eventType, Description: description, Timestamp: time.Now(), Data: data}
}
