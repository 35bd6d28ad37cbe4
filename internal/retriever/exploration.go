package retriever

import (
	"context"
	"fmt"
	"strings"

	"github.com/developer-mesh/graphrag-coordinator/internal/llm"
	"github.com/developer-mesh/graphrag-coordinator/internal/observability"
)

// MaxExplorationIterations is the default bound on outbound searches an
// Exploration adapter will issue per call (spec.md §4.4, §4.5's
// MAX_SEARCH_LIMIT).
const MaxExplorationIterations = 5

// Exploration performs multi-round "deep research": it alternates between
// asking the LLM what to look up next and running that lookup through an
// inner retriever (normally LocalSearch), accumulating context until the LLM
// signals it has enough to answer or the iteration bound is hit. It may run
// independently of the Thinking Engine, or be driven by it; this adapter
// owns only its own bounded loop.
type Exploration struct {
	LLM           llm.Client
	Inner         Retriever
	MaxIterations int
	Logger        observability.Logger
}

func NewExploration(client llm.Client, inner Retriever, logger observability.Logger) *Exploration {
	if logger == nil {
		logger = observability.NoopLogger{}
	}
	return &Exploration{LLM: client, Inner: inner, MaxIterations: MaxExplorationIterations, Logger: logger}
}

func (e *Exploration) Search(ctx context.Context, input Input) (Result, error) {
	maxIter := e.MaxIterations
	if maxIter <= 0 {
		maxIter = MaxExplorationIterations
	}

	var accumulated strings.Builder
	fmt.Fprintf(&accumulated, "question: %s\n", input.Query)

	for round := 0; round < maxIter; round++ {
		decision, err := e.LLM.Invoke(ctx, []llm.Message{
			{Role: "system", Content: explorationSystemPrompt},
			{Role: "user", Content: accumulated.String()},
		})
		if err != nil {
			return Result{}, fmt.Errorf("retriever: exploration round %d failed: %w", round, err)
		}

		nextQuery, hasQuery := parseNextQuery(decision.Content)
		answer, hasAnswer := parseFinalAnswer(decision.Content)

		if hasAnswer && (!hasQuery || strings.Index(decision.Content, "FINAL_ANSWER:") < strings.Index(decision.Content, "NEXT_QUERY:")) {
			return Result{Text: answer}, nil
		}
		if hasQuery {
			res, err := e.Inner.Search(ctx, Input{Query: nextQuery})
			if err != nil {
				e.Logger.Warn("exploration: inner search failed", map[string]interface{}{"query": nextQuery, "error": err.Error()})
				fmt.Fprintf(&accumulated, "search %q failed\n", nextQuery)
				continue
			}
			fmt.Fprintf(&accumulated, "search %q found:\n%s\n", nextQuery, res.Text)
			continue
		}

		// Neither marker present: treat the raw response as the answer.
		return Result{Text: decision.Content}, nil
	}

	// Iteration bound exceeded: force one last answer-only call.
	final, err := e.LLM.Invoke(ctx, []llm.Message{
		{Role: "system", Content: explorationForceAnswerPrompt},
		{Role: "user", Content: accumulated.String()},
	})
	if err != nil {
		return Result{}, fmt.Errorf("retriever: exploration forced answer failed: %w", err)
	}
	return Result{Text: final.Content}, nil
}

const explorationSystemPrompt = `You are researching a question step by step. Respond with either
NEXT_QUERY: <a single follow-up search query>
or
FINAL_ANSWER: <your complete answer given the context so far>`

const explorationForceAnswerPrompt = `You have exhausted your search budget. Respond only with
FINAL_ANSWER: <your best answer given the context so far>`

func parseNextQuery(content string) (string, bool) {
	const marker = "NEXT_QUERY:"
	idx := strings.Index(content, marker)
	if idx < 0 {
		return "", false
	}
	return strings.TrimSpace(content[idx+len(marker):]), true
}

func parseFinalAnswer(content string) (string, bool) {
	const marker = "FINAL_ANSWER:"
	idx := strings.Index(content, marker)
	if idx < 0 {
		return "", false
	}
	return strings.TrimSpace(content[idx+len(marker):]), true
}
