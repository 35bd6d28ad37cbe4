package thinking

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/developer-mesh/graphrag-coordinator/internal/llm"
	"github.com/developer-mesh/graphrag-coordinator/internal/ragmodel"
)

func TestGenerateHypotheses_ParsesJSON(t *testing.T) {
	client := &llm.MockClient{Responses: []string{
		`[{"hypothesis": "A causes B", "reasoning": "timing correlates"}, {"hypothesis": "C causes B", "reasoning": "alt theory"}]`,
	}}
	e := New(client)
	e.Initialize("q")

	hyps, err := e.GenerateHypotheses(context.Background(), "initial analysis")
	require.NoError(t, err)
	require.Len(t, hyps, 2)
	assert.Equal(t, "A causes B", hyps[0].Hypothesis)
	assert.Equal(t, ragmodel.StatusPending, hyps[0].Status)
}

func TestGenerateHypotheses_FallsBackToRegex(t *testing.T) {
	client := &llm.MockClient{Responses: []string{
		"Hypothesis 1: A causes B Reason: timing correlates Hypothesis 2: C causes B Reason: alternate theory",
	}}
	e := New(client)
	e.Initialize("q")

	hyps, err := e.GenerateHypotheses(context.Background(), "initial analysis")
	require.NoError(t, err)
	require.Len(t, hyps, 2)
	assert.Equal(t, "A causes B", hyps[0].Hypothesis)
	assert.Equal(t, "timing correlates", hyps[0].Reasoning)
}

func TestGenerateHypotheses_GuaranteesAtLeastOne(t *testing.T) {
	client := &llm.MockClient{Responses: []string{"unstructured garbage response"}}
	e := New(client)
	e.Initialize("q")

	hyps, err := e.GenerateHypotheses(context.Background(), "initial analysis")
	require.NoError(t, err)
	require.Len(t, hyps, 1)
}

func TestVerifyHypothesis_ClassifiesStatus(t *testing.T) {
	client := &llm.MockClient{Responses: []string{
		"the evidence strongly backs this claim",
		"supported",
	}}
	e := New(client)
	e.Initialize("q")

	rec, err := e.VerifyHypothesis(context.Background(), ragmodel.Hypothesis{Hypothesis: "A causes B"})
	require.NoError(t, err)
	assert.Equal(t, ragmodel.StatusSupported, rec.Status)
	assert.Equal(t, "A causes B", rec.Hypothesis)
}

func TestUpdateThinkingBasedOnVerification_SummarizesCounts(t *testing.T) {
	client := &llm.MockClient{Responses: []string{"revised synthesis"}}
	e := New(client)
	e.Initialize("q")

	out, err := e.UpdateThinkingBasedOnVerification(context.Background(), []ragmodel.VerificationRecord{
		{Status: ragmodel.StatusSupported},
		{Status: ragmodel.StatusSupported},
		{Status: ragmodel.StatusRejected},
	})
	require.NoError(t, err)
	assert.Equal(t, "revised synthesis", out)
	assert.Contains(t, client.Captured[0][1].Content, "supported=2")
	assert.Contains(t, client.Captured[0][1].Content, "rejected=1")
}

func TestCounterFactualAnalysis_ReturnsToMain(t *testing.T) {
	client := &llm.MockClient{Responses: []string{"counter-argument text", "comparison conclusion"}}
	e := New(client)
	e.Initialize("q")

	out, err := e.CounterFactualAnalysis(context.Background(), "A causes B")
	require.NoError(t, err)
	assert.Equal(t, "comparison conclusion", out)
	assert.Equal(t, MainBranch, e.currentBranch)
}
