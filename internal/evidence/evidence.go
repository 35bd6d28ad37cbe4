// Package evidence implements the Evidence Tracker (spec.md §4.9): per-step
// evidence identifier bookkeeping for one query run, plus contradiction
// detection across the accumulated evidence.
package evidence

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/developer-mesh/graphrag-coordinator/internal/llm"
)

// ContradictionKind classifies a detected contradiction.
type ContradictionKind string

const (
	ContradictionNumerical ContradictionKind = "numerical"
	ContradictionSemantic  ContradictionKind = "semantic"
)

// Contradiction is one detected inconsistency between two evidence entries.
type Contradiction struct {
	Kind        ContradictionKind
	Entity      string
	EvidenceA   string
	EvidenceB   string
	Description string
}

// Entry is one piece of evidence attached to a reasoning step.
type Entry struct {
	StepIndex int
	ID        string // chunk ID, entity ID, or community ID
	Entity    string // context entity this evidence concerns, if known
	Text      string
	Value     *float64 // parsed numeric value, if Text is numeric evidence
}

// Summary is the result of GetSummary.
type Summary struct {
	StepsCount     int
	EvidenceCount  int
	DurationSeconds float64
	Confidence     float64
}

// Tracker accumulates evidence for a single query run. One Tracker is
// constructed per request, matching the Thinking Engine's per-request
// lifetime discipline.
type Tracker struct {
	QueryID   string
	StartTime time.Time

	mu      sync.Mutex
	entries []Entry
	steps   map[int]struct{}
}

func New(queryID string) *Tracker {
	return &Tracker{QueryID: queryID, StartTime: time.Now(), steps: make(map[int]struct{})}
}

// Record attaches evidence identifiers to a reasoning step.
func (t *Tracker) Record(stepIndex int, ids []string, entity, text string, value *float64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.steps[stepIndex] = struct{}{}
	for _, id := range ids {
		t.entries = append(t.entries, Entry{StepIndex: stepIndex, ID: id, Entity: entity, Text: text, Value: value})
	}
}

// GetSummary reports aggregate statistics for the run so far. Confidence is
// a simple heuristic: the fraction of steps carrying at least one evidence
// entry, since a step with no supporting evidence weakens overall
// confidence in the final answer.
func (t *Tracker) GetSummary() Summary {
	t.mu.Lock()
	defer t.mu.Unlock()

	stepsWithEvidence := make(map[int]struct{})
	for _, e := range t.entries {
		stepsWithEvidence[e.StepIndex] = struct{}{}
	}

	var confidence float64
	if len(t.steps) > 0 {
		confidence = float64(len(stepsWithEvidence)) / float64(len(t.steps))
	}

	return Summary{
		StepsCount:      len(t.steps),
		EvidenceCount:   len(t.entries),
		DurationSeconds: time.Since(t.StartTime).Seconds(),
		Confidence:      confidence,
	}
}

// DefaultNumericalThreshold is the default tolerance for flagging two
// numeric values about the same entity as contradictory.
const DefaultNumericalThreshold = 0.01

// DetectContradictions finds numerical contradictions deterministically and
// semantic contradictions via an LLM judgment call per same-entity text
// pair. threshold <= 0 uses DefaultNumericalThreshold.
func (t *Tracker) DetectContradictions(ctx context.Context, client llm.Client, threshold float64) ([]Contradiction, error) {
	if threshold <= 0 {
		threshold = DefaultNumericalThreshold
	}

	t.mu.Lock()
	entries := append([]Entry(nil), t.entries...)
	t.mu.Unlock()

	byEntity := make(map[string][]Entry)
	for _, e := range entries {
		if e.Entity == "" {
			continue
		}
		byEntity[e.Entity] = append(byEntity[e.Entity], e)
	}

	var out []Contradiction
	for entity, group := range byEntity {
		out = append(out, numericalContradictions(entity, group, threshold)...)

		if client == nil {
			continue
		}
		semantic, err := semanticContradictions(ctx, client, entity, group)
		if err != nil {
			return out, err
		}
		out = append(out, semantic...)
	}
	return out, nil
}

func numericalContradictions(entity string, group []Entry, threshold float64) []Contradiction {
	var out []Contradiction
	for i := 0; i < len(group); i++ {
		if group[i].Value == nil {
			continue
		}
		for j := i + 1; j < len(group); j++ {
			if group[j].Value == nil {
				continue
			}
			diff := *group[i].Value - *group[j].Value
			if diff < 0 {
				diff = -diff
			}
			if diff > threshold {
				out = append(out, Contradiction{
					Kind:      ContradictionNumerical,
					Entity:    entity,
					EvidenceA: group[i].ID,
					EvidenceB: group[j].ID,
					Description: "numeric values differ by more than the configured threshold",
				})
			}
		}
	}
	return out
}

func semanticContradictions(ctx context.Context, client llm.Client, entity string, group []Entry) ([]Contradiction, error) {
	var out []Contradiction
	for i := 0; i < len(group); i++ {
		if group[i].Text == "" {
			continue
		}
		for j := i + 1; j < len(group); j++ {
			if group[j].Text == "" {
				continue
			}
			if err := ctx.Err(); err != nil {
				return out, err
			}

			resp, err := client.Invoke(ctx, []llm.Message{
				{Role: "system", Content: "Do these two statements about the same entity assert incompatible claims? Answer yes or no."},
				{Role: "user", Content: group[i].Text + "\n---\n" + group[j].Text},
			})
			if err != nil {
				return out, err
			}
			if containsYes(resp.Content) {
				out = append(out, Contradiction{
					Kind:        ContradictionSemantic,
					Entity:      entity,
					EvidenceA:   group[i].ID,
					EvidenceB:   group[j].ID,
					Description: "LLM judged these evidence snippets incompatible",
				})
			}
		}
	}
	return out, nil
}

func containsYes(s string) bool {
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(s)), "y")
}
