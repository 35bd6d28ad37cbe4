// Package planner implements the Retrieval Planner (spec.md §4.6): a single
// LLM call that turns a question into a RetrievalPlan, with a deterministic
// complexity cross-check and a fixed fallback plan on parse failure.
package planner

import (
	"context"
	"encoding/json"
	"math"
	"strings"

	"github.com/developer-mesh/graphrag-coordinator/internal/llm"
	"github.com/developer-mesh/graphrag-coordinator/internal/observability"
	"github.com/developer-mesh/graphrag-coordinator/internal/ragerrors"
	"github.com/developer-mesh/graphrag-coordinator/internal/ragmodel"
)

// Planner derives a RetrievalPlan from a question via a single LLM call.
type Planner struct {
	LLM    llm.Client
	Logger observability.Logger
}

func New(client llm.Client, logger observability.Logger) *Planner {
	if logger == nil {
		logger = observability.NoopLogger{}
	}
	return &Planner{LLM: client, Logger: logger}
}

// planJSON mirrors the LLM's expected plan document shape.
type planJSON struct {
	Complexity           float64        `json:"complexity"`
	KnowledgeAreas       []string       `json:"knowledge_areas"`
	KeyEntities          []string       `json:"key_entities"`
	RequiresGlobalView   bool           `json:"requires_global_view"`
	RequiresPathTracking bool           `json:"requires_path_tracking"`
	HasTemporalAspects   bool           `json:"has_temporal_aspects"`
	Tasks                []taskJSON     `json:"tasks"`
}

type taskJSON struct {
	Type     string   `json:"type"`
	Query    string   `json:"query"`
	Priority int      `json:"priority"`
	Entities []string `json:"entities"`
}

// Plan asks the LLM for a retrieval plan for question. On parse failure it
// falls back to the default single-task plan (spec.md §4.6); the final
// complexity is max(LLM value, deterministic heuristic), clamped to [0,1].
func (p *Planner) Plan(ctx context.Context, question string) (*ragmodel.RetrievalPlan, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	heuristic := complexityHeuristic(question)

	resp, err := p.LLM.Invoke(ctx, []llm.Message{
		{Role: "system", Content: plannerSystemPrompt},
		{Role: "user", Content: question},
	})
	if err != nil {
		plan := defaultPlan(question)
		plan.Complexity = clamp01(math.Max(plan.Complexity, heuristic))
		return plan, nil
	}

	plan, parseErr := parsePlan(resp.Content)
	if parseErr != nil {
		failure := &ragerrors.PlannerParseFailure{Cause: parseErr}
		p.Logger.Warn("planner: falling back to default plan", map[string]interface{}{"error": failure.Error()})
		plan = defaultPlan(question)
	}

	plan.Complexity = clamp01(math.Max(plan.Complexity, heuristic))
	return plan, nil
}

const plannerSystemPrompt = `Analyze the question and respond with a JSON object:
{"complexity": 0..1, "knowledge_areas": [...], "key_entities": [...],
 "requires_global_view": bool, "requires_path_tracking": bool,
 "has_temporal_aspects": bool,
 "tasks": [{"type": "local_search"|"global_search"|"exploration"|"chain_exploration",
            "query": "...", "priority": 1..5, "entities": [...]}]}`

func defaultPlan(question string) *ragmodel.RetrievalPlan {
	return &ragmodel.RetrievalPlan{
		Complexity: 0.5,
		Tasks: []ragmodel.Task{
			{Type: ragmodel.TaskLocalSearch, Query: question, Priority: 3},
		},
	}
}

func parsePlan(content string) (*ragmodel.RetrievalPlan, error) {
	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start < 0 || end < start {
		return nil, errNoJSONObject
	}

	var raw planJSON
	if err := json.Unmarshal([]byte(content[start:end+1]), &raw); err != nil {
		return nil, err
	}
	if len(raw.Tasks) == 0 {
		return nil, errNoTasks
	}

	tasks := make([]ragmodel.Task, len(raw.Tasks))
	for i, t := range raw.Tasks {
		tasks[i] = ragmodel.Task{
			Type:     ragmodel.TaskType(t.Type),
			Query:    t.Query,
			Priority: t.Priority,
			Entities: t.Entities,
		}
	}

	return &ragmodel.RetrievalPlan{
		Complexity:           raw.Complexity,
		KnowledgeAreas:       raw.KnowledgeAreas,
		KeyEntities:          raw.KeyEntities,
		RequiresGlobalView:   raw.RequiresGlobalView,
		RequiresPathTracking: raw.RequiresPathTracking,
		HasTemporalAspects:   raw.HasTemporalAspects,
		Tasks:                tasks,
	}, nil
}

var (
	errNoJSONObject = planParseError("no JSON object found in planner response")
	errNoTasks      = planParseError("planner response contained no tasks")
)

type planParseError string

func (e planParseError) Error() string { return string(e) }

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

var comparativeMarkers = []string{"more", "most", "less", "least", "better", "best", "worse", "worst", "than"}

// complexityHeuristic scores question complexity deterministically from
// surface features: length, interrogative count, comma count, and
// comparative/superlative markers (spec.md §4.6).
func complexityHeuristic(question string) float64 {
	lower := strings.ToLower(question)
	words := strings.Fields(lower)

	var score float64
	if len(words) > 20 {
		score += 0.3
	} else if len(words) > 10 {
		score += 0.15
	}

	interrogativeSet := map[string]bool{
		"what": true, "why": true, "how": true, "when": true, "where": true, "who": true, "which": true,
	}
	interrogatives := 0
	for _, w := range words {
		if interrogativeSet[strings.Trim(w, ".,?!;:")] {
			interrogatives++
		}
	}
	if interrogatives > 1 {
		score += 0.2
	}

	commaCount := strings.Count(question, ",")
	if commaCount > 0 {
		score += math.Min(0.2, float64(commaCount)*0.1)
	}

	for _, marker := range comparativeMarkers {
		if strings.Contains(lower, marker) {
			score += 0.2
			break
		}
	}

	return clamp01(score)
}
