// Package ragerrors defines the tagged error kinds propagated through the
// coordinator (spec.md §7). Each kind wraps an underlying cause and carries
// enough context for the caller to decide whether to recover locally or
// surface failure to the user.
package ragerrors

import (
	"errors"
	"fmt"
)

// Sentinel errors for simple, cause-less conditions.
var (
	// ErrCancelled names a run cancelled before completion. The coordinator
	// itself surfaces cancellation as the context's own error, not as this
	// value.
	ErrCancelled = errors.New("retrieval run cancelled")

	// ErrNotFound names a clean cache miss. The cachestore backends report a
	// miss as a false second return value and do not return this error.
	ErrNotFound = errors.New("cache: not found")

	// ErrCircuitOpen names a tripped circuit breaker. resilience.BreakerGroup
	// returns gobreaker's own open-state error, not this value.
	ErrCircuitOpen = errors.New("circuit breaker open")
)

// PlannerParseFailure indicates the planner LLM call returned output that
// could not be parsed as a plan. Recovered locally by falling back to the
// default single-task plan.
type PlannerParseFailure struct {
	Cause error
}

func (e *PlannerParseFailure) Error() string {
	return fmt.Sprintf("planner: failed to parse plan: %v", e.Cause)
}

func (e *PlannerParseFailure) Unwrap() error { return e.Cause }

// RetrieverFailure indicates a single retriever invocation failed. Recovered
// locally: the task is marked errored in the trace and the remaining tasks
// continue.
type RetrieverFailure struct {
	TaskType string
	Cause    error
}

func (e *RetrieverFailure) Error() string {
	return fmt.Sprintf("retriever %s failed: %v", e.TaskType, e.Cause)
}

func (e *RetrieverFailure) Unwrap() error { return e.Cause }

// LLMFailure indicates an LLM call failed at a named stage. At the Thinking
// Engine boundary this is recovered by skipping the step; at the Synthesizer
// it is fatal to the request.
type LLMFailure struct {
	Stage string
	Cause error
}

func (e *LLMFailure) Error() string {
	return fmt.Sprintf("llm call failed at stage %q: %v", e.Stage, e.Cause)
}

func (e *LLMFailure) Unwrap() error { return e.Cause }

// GraphStoreFailure indicates a graph store query failed. Treated as a
// RetrieverFailure when isolated to one retriever; the coordinator trips a
// circuit breaker across repeated occurrences.
type GraphStoreFailure struct {
	Operation string
	Cause     error
}

func (e *GraphStoreFailure) Error() string {
	return fmt.Sprintf("graph store %s failed: %v", e.Operation, e.Cause)
}

func (e *GraphStoreFailure) Unwrap() error { return e.Cause }

// TimeoutFailure indicates a bounded operation exceeded its deadline. Treated
// as a RetrieverFailure by the coordinator.
type TimeoutFailure struct {
	Operation string
	Cause     error
}

func (e *TimeoutFailure) Error() string {
	return fmt.Sprintf("%s timed out: %v", e.Operation, e.Cause)
}

func (e *TimeoutFailure) Unwrap() error { return e.Cause }

// CacheFailure is never fatal: logged, and the request proceeds as a cache
// miss.
type CacheFailure struct {
	Operation string
	Cause     error
}

func (e *CacheFailure) Error() string {
	return fmt.Sprintf("cache %s failed: %v", e.Operation, e.Cause)
}

func (e *CacheFailure) Unwrap() error { return e.Cause }
