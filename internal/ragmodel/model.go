// Package ragmodel defines the shared data model for the retrieval-reasoning
// coordinator: plans, tasks, reasoning steps, and run context. Types here carry
// no behavior beyond small invariant-preserving constructors; the packages that
// own a given entity (planner, thinking, coordinator) mutate it.
package ragmodel

import (
	"time"

	"github.com/google/uuid"
)

// TaskType is the closed set of retrieval task kinds the coordinator dispatches.
type TaskType string

const (
	TaskLocalSearch     TaskType = "local_search"
	TaskGlobalSearch    TaskType = "global_search"
	TaskExploration     TaskType = "exploration"
	TaskChainExploration TaskType = "chain_exploration"
)

// Task is an immutable unit of retrieval work produced by the planner.
type Task struct {
	Type     TaskType `json:"type"`
	Query    string   `json:"query"`
	Priority int      `json:"priority"` // 1..5, higher runs first
	Entities []string `json:"entities,omitempty"`

	// Index preserves original plan order for stable tie-breaking when
	// sorting by descending priority.
	Index int `json:"-"`
}

// RetrievalPlan is the output of the planner: an ordered task list plus the
// complexity signal that gates the thinking engine.
type RetrievalPlan struct {
	Complexity           float64  `json:"complexity"`
	KnowledgeAreas       []string `json:"knowledge_areas"`
	KeyEntities          []string `json:"key_entities"`
	RequiresGlobalView   bool     `json:"requires_global_view"`
	RequiresPathTracking bool     `json:"requires_path_tracking"`
	HasTemporalAspects   bool     `json:"has_temporal_aspects"`
	Tasks                []Task   `json:"tasks"`
}

// SortedTasks returns a copy of p.Tasks ordered by descending priority with a
// stable tie-break on original insertion index (spec.md §3, §8 "Plan ordering").
func (p *RetrievalPlan) SortedTasks() []Task {
	tasks := make([]Task, len(p.Tasks))
	copy(tasks, p.Tasks)
	for i := range tasks {
		tasks[i].Index = i
	}
	// Stable sort: higher priority first, ties keep original index order.
	for i := 1; i < len(tasks); i++ {
		for j := i; j > 0 && less(tasks[j], tasks[j-1]); j-- {
			tasks[j], tasks[j-1] = tasks[j-1], tasks[j]
		}
	}
	return tasks
}

func less(a, b Task) bool {
	if a.Priority != b.Priority {
		return a.Priority > b.Priority
	}
	return a.Index < b.Index
}

// HypothesisStatus is the verification outcome of a Hypothesis.
type HypothesisStatus string

const (
	StatusPending    HypothesisStatus = "pending"
	StatusSupported  HypothesisStatus = "supported"
	StatusRejected   HypothesisStatus = "rejected"
	StatusUncertain  HypothesisStatus = "uncertain"
)

// Hypothesis is a candidate explanation proposed by the thinking engine.
type Hypothesis struct {
	Hypothesis string           `json:"hypothesis"`
	Reasoning  string           `json:"reasoning"`
	Status     HypothesisStatus `json:"status"`
}

// VerificationRecord is one entry of the verification chain: a hypothesis
// judged against retrieved evidence.
type VerificationRecord struct {
	Hypothesis       string           `json:"hypothesis"`
	VerificationText string           `json:"verification_text"`
	Status           HypothesisStatus `json:"status"`
}

// ReasoningStep is one append-only entry within a reasoning branch.
type ReasoningStep struct {
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
	Branch    string    `json:"branch"`
}

// TraceEvent is an append-only, externally observable execution trace entry.
type TraceEvent struct {
	Type        string                 `json:"type"`
	Description string                 `json:"description"`
	Timestamp   time.Time              `json:"timestamp"`
	Data        map[string]interface{} `json:"data,omitempty"`
}

// ExplorationStep is one hop of a chain-exploration walk.
type ExplorationStep struct {
	Step      int    `json:"step"`
	NodeID    string `json:"node_id"`
	Reasoning string `json:"reasoning"`
}

// ContentSnippet is a piece of retrieved text attached to a chain-exploration
// result.
type ContentSnippet struct {
	Text string `json:"text"`
}

// ChainExplorationResult is the structured result returned only by the
// chain_exploration retriever.
type ChainExplorationResult struct {
	ExplorationPath []ExplorationStep `json:"exploration_path"`
	Content         []ContentSnippet  `json:"content"`
}

// RunContext is the per-request state the coordinator exclusively owns for
// the duration of one query (spec.md §3, "Ownership"). CurrentQueryID
// identifies this run in logs and traces independently of the question
// text, which two different threads may ask verbatim.
type RunContext struct {
	ThreadID       string
	CurrentQueryID string
	Question       string
	StartTime      time.Time
	Plan           *RetrievalPlan
	ResultsByType  map[TaskType][]any
	ThinkingEnabled bool
	Metrics        RunMetrics
}

// RunMetrics accumulates per-run timing and counts surfaced in the final
// coordinator response.
type RunMetrics struct {
	TotalDuration   time.Duration
	TasksAttempted  int
	TasksFailed     int
	SearchIterations int
}

// NewRunContext starts a fresh run context for a question, stamping it with
// a fresh request id.
func NewRunContext(threadID, question string) *RunContext {
	return &RunContext{
		ThreadID:       threadID,
		CurrentQueryID: uuid.NewString(),
		Question:       question,
		StartTime:      time.Now(),
		ResultsByType:  make(map[TaskType][]any),
	}
}
