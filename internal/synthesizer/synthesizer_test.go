package synthesizer

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/developer-mesh/graphrag-coordinator/internal/llm"
	"github.com/developer-mesh/graphrag-coordinator/internal/ragmodel"
)

func TestBuildPrompt_EmptyListsRenderNoRelevantResult(t *testing.T) {
	prompt := BuildPrompt(Input{Question: "q"})
	assert.Contains(t, prompt, "## local search\nno relevant result")
	assert.Contains(t, prompt, "## global search\nno relevant result")
	assert.Contains(t, prompt, "## exploration\nno relevant result")
	assert.Contains(t, prompt, "## chain exploration\nno relevant result")
}

func TestBuildPrompt_IncludesThinkingTextWhenPresent(t *testing.T) {
	prompt := BuildPrompt(Input{Question: "q", ThinkingText: "<think>reasoning here</think>"})
	assert.Contains(t, prompt, "## reasoning")
	assert.Contains(t, prompt, "reasoning here")
}

func TestBuildPrompt_OmitsReasoningSectionWhenThinkingDisabled(t *testing.T) {
	prompt := BuildPrompt(Input{Question: "q"})
	assert.NotContains(t, prompt, "## reasoning")
}

func TestBuildPrompt_ChainExplorationTruncatesToFirstFiveStepsAndThreeSnippets(t *testing.T) {
	steps := make([]ragmodel.ExplorationStep, 8)
	for i := range steps {
		steps[i] = ragmodel.ExplorationStep{Step: i + 1, NodeID: "n", Reasoning: "r"}
	}
	content := make([]ragmodel.ContentSnippet, 5)
	for i := range content {
		content[i] = ragmodel.ContentSnippet{Text: strings.Repeat("x", 300)}
	}

	prompt := BuildPrompt(Input{
		Question: "q",
		ChainResults: []*ragmodel.ChainExplorationResult{
			{ExplorationPath: steps, Content: content},
		},
	})

	assert.Equal(t, 5, strings.Count(prompt, "step "))
	assert.Equal(t, 3, strings.Count(prompt, strings.Repeat("x", 200)))
}

func TestSynthesize_InvokesLLMWithComposedPrompt(t *testing.T) {
	client := &llm.MockClient{Responses: []string{"final answer text"}}
	s := New(client)

	out, err := s.Synthesize(context.Background(), Input{Question: "q", LocalResults: []string{"some context"}})
	require.NoError(t, err)
	assert.Equal(t, "final answer text", out)
	require.Len(t, client.Captured, 1)
	assert.Contains(t, client.Captured[0][1].Content, "some context")
}

func TestSynthesize_LLMFailureIsFatal(t *testing.T) {
	client := &llm.MockClient{Err: assertErr("down")}
	s := New(client)

	_, err := s.Synthesize(context.Background(), Input{Question: "q"})
	assert.Error(t, err)
}

type assertErr string

func (e assertErr) Error() string { return string(e) }
