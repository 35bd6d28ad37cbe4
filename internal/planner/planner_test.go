package planner

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/developer-mesh/graphrag-coordinator/internal/llm"
	"github.com/developer-mesh/graphrag-coordinator/internal/ragmodel"
)

func TestPlan_ParsesValidJSON(t *testing.T) {
	client := &llm.MockClient{Responses: []string{
		`{"complexity": 0.4, "tasks": [{"type": "local_search", "query": "q", "priority": 5}]}`,
	}}
	p := New(client, nil)

	plan, err := p.Plan(context.Background(), "a short question")
	require.NoError(t, err)
	require.Len(t, plan.Tasks, 1)
	assert.Equal(t, ragmodel.TaskLocalSearch, plan.Tasks[0].Type)
}

func TestPlan_FallsBackToDefaultOnParseFailure(t *testing.T) {
	client := &llm.MockClient{Responses: []string{"not json at all"}}
	p := New(client, nil)

	plan, err := p.Plan(context.Background(), "question")
	require.NoError(t, err)
	require.Len(t, plan.Tasks, 1)
	assert.Equal(t, ragmodel.TaskLocalSearch, plan.Tasks[0].Type)
	assert.Equal(t, "question", plan.Tasks[0].Query)
	assert.Equal(t, 3, plan.Tasks[0].Priority)
}

func TestPlan_FallsBackOnLLMError(t *testing.T) {
	client := &llm.MockClient{Err: assertErr("boom")}
	p := New(client, nil)

	plan, err := p.Plan(context.Background(), "question")
	require.NoError(t, err)
	require.Len(t, plan.Tasks, 1)
}

func TestPlan_ComplexityIsMaxOfLLMAndHeuristic(t *testing.T) {
	client := &llm.MockClient{Responses: []string{
		`{"complexity": 0.1, "tasks": [{"type": "local_search", "query": "q", "priority": 3}]}`,
	}}
	p := New(client, nil)

	longQuestion := "What is better, more efficient, or more reliable, and why, and how, and when does it matter, and where should it apply?"
	plan, err := p.Plan(context.Background(), longQuestion)
	require.NoError(t, err)
	assert.Greater(t, plan.Complexity, 0.1)
	assert.LessOrEqual(t, plan.Complexity, 1.0)
}

func TestPlan_ComplexityClampedToUnitInterval(t *testing.T) {
	client := &llm.MockClient{Responses: []string{
		`{"complexity": 5.0, "tasks": [{"type": "local_search", "query": "q", "priority": 3}]}`,
	}}
	p := New(client, nil)

	plan, err := p.Plan(context.Background(), "q")
	require.NoError(t, err)
	assert.Equal(t, 1.0, plan.Complexity)
}

type assertErr string

func (e assertErr) Error() string { return string(e) }
