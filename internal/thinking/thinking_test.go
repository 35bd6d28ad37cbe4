package thinking

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/developer-mesh/graphrag-coordinator/internal/llm"
	"github.com/developer-mesh/graphrag-coordinator/internal/ragmodel"
)

func TestEngine_InitializeSeedsMainBranch(t *testing.T) {
	e := New(&llm.MockClient{})
	e.Initialize("what is the status")
	assert.Equal(t, MainBranch, e.currentBranch)
	assert.Len(t, e.branches[MainBranch], 1)
}

func TestEngine_GenerateNextQuery_ExtractsQuery(t *testing.T) {
	client := &llm.MockClient{Responses: []string{
		"I should check more. " + BeginSearchQueryMarker + " who founded the company " + EndSearchQueryMarker,
	}}
	e := New(client)
	e.Initialize("who runs the company")

	res, err := e.GenerateNextQuery(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StatusHasQuery, res.Status)
	assert.Equal(t, []string{"who founded the company"}, res.Queries)
	assert.Equal(t, 1, e.SearchCount())
}

func TestEngine_GenerateNextQuery_AnswerReadyMarker(t *testing.T) {
	client := &llm.MockClient{Responses: []string{FinalAnswerMarker + " here is the answer"}}
	e := New(client)
	e.Initialize("q")

	res, err := e.GenerateNextQuery(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StatusAnswerReady, res.Status)
}

func TestEngine_GenerateNextQuery_EmptyResponse(t *testing.T) {
	client := &llm.MockClient{Responses: []string{""}}
	e := New(client)
	e.Initialize("q")

	res, err := e.GenerateNextQuery(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StatusEmpty, res.Status)
}

func TestEngine_GenerateNextQuery_NoQueryWhenNoMarkers(t *testing.T) {
	client := &llm.MockClient{Responses: []string{"I am still thinking about this."}}
	e := New(client)
	e.Initialize("q")

	res, err := e.GenerateNextQuery(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StatusNoQuery, res.Status)
}

func TestEngine_SearchBoundForcesAnswerReady(t *testing.T) {
	responses := make([]string, MaxSearchLimit)
	for i := range responses {
		responses[i] = BeginSearchQueryMarker + " q" + EndSearchQueryMarker
	}
	client := &llm.MockClient{Responses: responses}
	e := New(client)
	e.MaxSearchLimit = MaxSearchLimit
	e.Initialize("q")

	for i := 0; i < MaxSearchLimit; i++ {
		res, err := e.GenerateNextQuery(context.Background())
		require.NoError(t, err)
		assert.Equal(t, StatusHasQuery, res.Status)
	}

	res, err := e.GenerateNextQuery(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StatusAnswerReady, res.Status)
	assert.Equal(t, MaxSearchLimit, e.SearchCount())
}

func TestEngine_HasAndAddExecutedQuery_CaseSensitiveExact(t *testing.T) {
	e := New(&llm.MockClient{})
	e.AddExecutedQuery("  Who founded Acme  ")
	assert.True(t, e.HasExecutedQuery("Who founded Acme"))
	assert.False(t, e.HasExecutedQuery("who founded acme"))
}

func TestEngine_PrepareTruncatedReasoning_KeepsAnchors(t *testing.T) {
	e := New(&llm.MockClient{})
	e.Initialize("q") // step 1
	for i := 0; i < 10; i++ {
		e.AppendStep("filler step")
	}
	e.AppendStep(BeginSearchQueryMarker + " marked middle step " + EndSearchQueryMarker)
	for i := 0; i < 3; i++ {
		e.AppendStep("more filler")
	}

	out := e.PrepareTruncatedReasoning()
	steps := e.branches[e.currentBranch]
	assert.Contains(t, out, steps[0].Content)
	for i := len(steps) - 4; i < len(steps); i++ {
		assert.Contains(t, out, steps[i].Content)
	}
	assert.Contains(t, out, "marked middle step")
}

func TestEngine_GetFullThinking_StripsMarkersAndWraps(t *testing.T) {
	e := New(&llm.MockClient{})
	e.Initialize("q")
	e.AppendStep(BeginSearchQueryMarker + " hello " + EndSearchQueryMarker)

	out := e.GetFullThinking()
	assert.True(t, len(out) > 0)
	assert.Contains(t, out, "<think>")
	assert.Contains(t, out, "</think>")
	assert.NotContains(t, out, BeginSearchQueryMarker)
	assert.NotContains(t, out, EndSearchQueryMarker)
}

func TestEngine_MergeBranches_IsIdempotent(t *testing.T) {
	e := New(&llm.MockClient{})
	e.Initialize("q")
	e.Branch("explore", MainBranch)
	e.AppendStep("explore-only step")
	e.SwitchBranch(MainBranch)

	ok1 := e.MergeBranches("explore", MainBranch)
	require.True(t, ok1)
	first := append([]string(nil), stepContents(e.branches[MainBranch])...)

	ok2 := e.MergeBranches("explore", MainBranch)
	require.True(t, ok2)
	second := stepContents(e.branches[MainBranch])

	assert.Equal(t, first, second)
}

func stepContents(steps []ragmodel.ReasoningStep) []string {
	out := make([]string, len(steps))
	for i, s := range steps {
		out[i] = s.Content
	}
	return out
}
