package retriever

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/developer-mesh/graphrag-coordinator/internal/llm"
)

type stubInnerRetriever struct {
	text string
	err  error
}

func (s *stubInnerRetriever) Search(ctx context.Context, input Input) (Result, error) {
	return Result{Text: s.text}, s.err
}

func TestExploration_StopsAtFirstFinalAnswer(t *testing.T) {
	client := &llm.MockClient{Responses: []string{"FINAL_ANSWER: done here"}}
	exp := NewExploration(client, &stubInnerRetriever{text: "context"}, nil)

	res, err := exp.Search(context.Background(), Input{Query: "q"})
	require.NoError(t, err)
	assert.Equal(t, "done here", res.Text)
	assert.Len(t, client.Captured, 1)
}

func TestExploration_RunsFollowUpSearchBeforeAnswering(t *testing.T) {
	client := &llm.MockClient{Responses: []string{
		"NEXT_QUERY: who founded it",
		"FINAL_ANSWER: founded by Jane",
	}}
	exp := NewExploration(client, &stubInnerRetriever{text: "Jane founded it in 2001"}, nil)

	res, err := exp.Search(context.Background(), Input{Query: "who runs the company"})
	require.NoError(t, err)
	assert.Equal(t, "founded by Jane", res.Text)
	assert.Len(t, client.Captured, 2)
}

func TestExploration_ForcesAnswerAtIterationBound(t *testing.T) {
	responses := make([]string, MaxExplorationIterations+1)
	for i := 0; i < MaxExplorationIterations; i++ {
		responses[i] = "NEXT_QUERY: keep digging"
	}
	responses[MaxExplorationIterations] = "FINAL_ANSWER: best guess"
	client := &llm.MockClient{Responses: responses}
	exp := NewExploration(client, &stubInnerRetriever{text: "more context"}, nil)
	exp.MaxIterations = MaxExplorationIterations

	res, err := exp.Search(context.Background(), Input{Query: "q"})
	require.NoError(t, err)
	assert.NotEmpty(t, res.Text)
	// MaxIterations loop calls + 1 forced final call.
	assert.Len(t, client.Captured, MaxExplorationIterations+1)
}
