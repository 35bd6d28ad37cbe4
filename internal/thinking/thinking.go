// Package thinking implements the reasoning state machine (spec.md §4.5): a
// branching reasoning tree, a hypothesis/verification chain, and bounded
// iterative search-query generation. One Engine is constructed per request
// and owned exclusively by the Coordinator for that request's lifetime.
package thinking

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/developer-mesh/graphrag-coordinator/internal/llm"
	"github.com/developer-mesh/graphrag-coordinator/internal/ragerrors"
	"github.com/developer-mesh/graphrag-coordinator/internal/ragmodel"
)

// MainBranch is the always-present default reasoning branch.
const MainBranch = "main"

// MaxSearchLimit is thinking.max_search_iterations' default (spec.md §6).
const MaxSearchLimit = 5

const (
	BeginSearchQueryMarker  = "BEGIN_SEARCH_QUERY"
	EndSearchQueryMarker    = "END_SEARCH_QUERY"
	BeginSearchResultMarker = "BEGIN_SEARCH_RESULT"
	EndSearchResultMarker   = "END_SEARCH_RESULT"
	FinalAnswerMarker       = "FINAL_ANSWER_READY"
)

// NextQueryStatus is the outcome of GenerateNextQuery.
type NextQueryStatus string

const (
	StatusHasQuery    NextQueryStatus = "has_query"
	StatusNoQuery     NextQueryStatus = "no_query"
	StatusAnswerReady NextQueryStatus = "answer_ready"
	StatusEmpty       NextQueryStatus = "empty"
	StatusError       NextQueryStatus = "error"
)

// NextQueryResult is the return value of GenerateNextQuery.
type NextQueryResult struct {
	Status  NextQueryStatus
	Content string
	Queries []string
}

// Engine is the per-request reasoning state machine.
type Engine struct {
	LLM            llm.Client
	MaxSearchLimit int

	mu              sync.Mutex
	branches        map[string][]ragmodel.ReasoningStep
	currentBranch   string
	executedQueries map[string]struct{}
	searchCount     int
}

// New constructs an uninitialized Engine. Call Initialize before use.
func New(client llm.Client) *Engine {
	return &Engine{
		LLM:             client,
		MaxSearchLimit:  MaxSearchLimit,
		branches:        make(map[string][]ragmodel.ReasoningStep),
		currentBranch:   MainBranch,
		executedQueries: make(map[string]struct{}),
	}
}

// Initialize resets the reasoning trace, (re)creates the main branch, and
// seeds it with a step recording the incoming query.
func (e *Engine) Initialize(query string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.branches = map[string][]ragmodel.ReasoningStep{
		MainBranch: {{Content: "question: " + query, Timestamp: time.Now(), Branch: MainBranch}},
	}
	e.currentBranch = MainBranch
	e.executedQueries = make(map[string]struct{})
	e.searchCount = 0
}

func (e *Engine) appendStep(content string) {
	e.branches[e.currentBranch] = append(e.branches[e.currentBranch], newStep(content, e.currentBranch))
}

func newStep(content, branch string) ragmodel.ReasoningStep {
	return ragmodel.ReasoningStep{Content: content, Timestamp: time.Now(), Branch: branch}
}

// AppendStep records an externally-produced step (e.g. a coordinator
// summary of a retriever result) on the current branch.
func (e *Engine) AppendStep(content string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.appendStep(content)
}

// GenerateInitialThinking asks the LLM for an opening analysis of the
// seeded question and appends it as a step.
func (e *Engine) GenerateInitialThinking(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	e.mu.Lock()
	prompt := e.currentBranchText()
	e.mu.Unlock()

	resp, err := e.LLM.Invoke(ctx, []llm.Message{
		{Role: "system", Content: "Analyze the question below and outline an initial line of reasoning."},
		{Role: "user", Content: prompt},
	})
	if err != nil {
		return "", &ragerrors.LLMFailure{Stage: "generate_initial_thinking", Cause: err}
	}

	e.mu.Lock()
	e.appendStep(resp.Content)
	e.mu.Unlock()
	return resp.Content, nil
}

func (e *Engine) currentBranchText() string {
	var sb strings.Builder
	for _, step := range e.branches[e.currentBranch] {
		sb.WriteString(step.Content)
		sb.WriteString("\n")
	}
	return sb.String()
}

// GetFullThinking concatenates all steps of the current branch, stripping
// search-query/search-result markers, wrapped in <think>...</think>.
func (e *Engine) GetFullThinking() string {
	e.mu.Lock()
	defer e.mu.Unlock()

	var sb strings.Builder
	for _, step := range e.branches[e.currentBranch] {
		sb.WriteString(stripMarkers(step.Content))
		sb.WriteString("\n")
	}
	return "<think>" + strings.TrimSpace(sb.String()) + "</think>"
}

func stripMarkers(content string) string {
	replacer := strings.NewReplacer(
		BeginSearchQueryMarker, "",
		EndSearchQueryMarker, "",
		BeginSearchResultMarker, "",
		EndSearchResultMarker, "",
	)
	return strings.TrimSpace(replacer.Replace(content))
}

// PrepareTruncatedReasoning bounds prompt size: when the current branch has
// more than 5 steps, it keeps step 1, the last min(4, n-1) steps, and every
// middle step containing a search-query or search-result marker, joined in
// original order with "..." separators (spec.md §4.5).
func (e *Engine) PrepareTruncatedReasoning() string {
	e.mu.Lock()
	steps := e.branches[e.currentBranch]
	e.mu.Unlock()

	n := len(steps)
	if n <= 5 {
		return joinSteps(steps)
	}

	tailCount := 4
	if tailCount > n-1 {
		tailCount = n - 1
	}
	tailStart := n - tailCount

	keep := make(map[int]bool)
	keep[0] = true
	for i := tailStart; i < n; i++ {
		keep[i] = true
	}
	for i := 1; i < tailStart; i++ {
		if containsSearchMarker(steps[i].Content) {
			keep[i] = true
		}
	}

	var parts []string
	lastKept := -1
	for i := 0; i < n; i++ {
		if !keep[i] {
			continue
		}
		if lastKept >= 0 && i != lastKept+1 {
			parts = append(parts, "...")
		}
		parts = append(parts, steps[i].Content)
		lastKept = i
	}
	return strings.Join(parts, "\n")
}

func containsSearchMarker(content string) bool {
	return strings.Contains(content, BeginSearchQueryMarker) ||
		strings.Contains(content, BeginSearchResultMarker)
}

func joinSteps(steps []ragmodel.ReasoningStep) string {
	parts := make([]string, len(steps))
	for i, s := range steps {
		parts[i] = s.Content
	}
	return strings.Join(parts, "\n")
}

// HasExecutedQuery reports whether q (trimmed) has already been issued,
// using case-sensitive exact match.
func (e *Engine) HasExecutedQuery(q string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	_, ok := e.executedQueries[strings.TrimSpace(q)]
	return ok
}

// AddExecutedQuery records q (trimmed) as issued.
func (e *Engine) AddExecutedQuery(q string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.executedQueries[strings.TrimSpace(q)] = struct{}{}
}

// SearchCount returns the number of outbound searches issued so far.
func (e *Engine) SearchCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.searchCount
}

// GenerateNextQuery invokes the LLM under the iterative search protocol. If
// the search bound has already been reached, it forces answer_ready without
// an LLM call (spec.md §4.5 "Iterative search bound").
func (e *Engine) GenerateNextQuery(ctx context.Context) (NextQueryResult, error) {
	if err := ctx.Err(); err != nil {
		return NextQueryResult{Status: StatusError}, err
	}

	e.mu.Lock()
	limit := e.MaxSearchLimit
	if limit <= 0 {
		limit = MaxSearchLimit
	}
	reachedLimit := e.searchCount >= limit
	prompt := e.currentBranchText()
	e.mu.Unlock()

	if reachedLimit {
		return NextQueryResult{Status: StatusAnswerReady, Content: "search budget exhausted"}, nil
	}

	resp, err := e.LLM.Invoke(ctx, []llm.Message{
		{Role: "system", Content: nextQuerySystemPrompt},
		{Role: "user", Content: prompt},
	})
	if err != nil {
		return NextQueryResult{Status: StatusError}, &ragerrors.LLMFailure{Stage: "generate_next_query", Cause: err}
	}

	e.mu.Lock()
	e.appendStep(resp.Content)
	e.mu.Unlock()

	content := resp.Content
	if strings.TrimSpace(content) == "" {
		return NextQueryResult{Status: StatusEmpty}, nil
	}
	if strings.Contains(content, FinalAnswerMarker) {
		return NextQueryResult{Status: StatusAnswerReady, Content: content}, nil
	}

	queries := extractSearchQueries(content)
	if len(queries) == 0 {
		return NextQueryResult{Status: StatusNoQuery, Content: content}, nil
	}

	e.mu.Lock()
	e.searchCount++
	e.mu.Unlock()

	return NextQueryResult{Status: StatusHasQuery, Content: content, Queries: queries}, nil
}

const nextQuerySystemPrompt = `Decide whether you need another search to answer the question.
If you do, wrap exactly one search query between ` + BeginSearchQueryMarker + ` and ` + EndSearchQueryMarker + `.
If you already have enough information, respond with ` + FinalAnswerMarker + ` followed by your answer.`

func extractSearchQueries(content string) []string {
	var queries []string
	remaining := content
	for {
		start := strings.Index(remaining, BeginSearchQueryMarker)
		if start < 0 {
			break
		}
		remaining = remaining[start+len(BeginSearchQueryMarker):]
		end := strings.Index(remaining, EndSearchQueryMarker)
		if end < 0 {
			break
		}
		q := strings.TrimSpace(remaining[:end])
		if q != "" {
			queries = append(queries, q)
		}
		remaining = remaining[end+len(EndSearchQueryMarker):]
	}
	return queries
}

// RecordSearchResult appends a search-result step wrapped in markers so
// PrepareTruncatedReasoning can find it among truncated middle steps.
func (e *Engine) RecordSearchResult(query, result string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.appendStep(fmt.Sprintf("%s query=%q\n%s%s", BeginSearchResultMarker, query, result, EndSearchResultMarker))
}
