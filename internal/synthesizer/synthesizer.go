// Package synthesizer implements the Synthesizer (spec.md §4.7): a pure
// prompt-composition step over per-retriever-family results, plus one LLM
// call to produce the final answer text. It performs no graph or cache I/O.
package synthesizer

import (
	"context"
	"fmt"
	"strings"

	"github.com/developer-mesh/graphrag-coordinator/internal/llm"
	"github.com/developer-mesh/graphrag-coordinator/internal/ragerrors"
	"github.com/developer-mesh/graphrag-coordinator/internal/ragmodel"
)

// Input is everything the Synthesizer needs to compose its prompt.
type Input struct {
	Question       string
	LocalResults   []string
	GlobalResults  [][]string // one []string of community summaries per global_search task
	ExplorationResults []string
	ChainResults   []*ragmodel.ChainExplorationResult
	Plan           *ragmodel.RetrievalPlan
	ThinkingText   string // empty if thinking was disabled
}

// Synthesizer composes a single prompt and asks the LLM for the final
// answer.
type Synthesizer struct {
	LLM llm.Client
}

func New(client llm.Client) *Synthesizer {
	return &Synthesizer{LLM: client}
}

// Synthesize builds the prompt from in and invokes the LLM for a final
// answer. LLM failure here is fatal to the request (spec.md §7).
func (s *Synthesizer) Synthesize(ctx context.Context, in Input) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	prompt := BuildPrompt(in)
	resp, err := s.LLM.Invoke(ctx, []llm.Message{
		{Role: "system", Content: synthesisSystemPrompt},
		{Role: "user", Content: prompt},
	})
	if err != nil {
		return "", &ragerrors.LLMFailure{Stage: "synthesize", Cause: err}
	}
	return resp.Content, nil
}

const synthesisSystemPrompt = `Compose a final, well-grounded answer to the question using only the
retrieved context sections provided. Cite nothing not present in the
context.`

const noRelevantResult = "no relevant result"

// BuildPrompt formats in's sections into the single prompt text handed to
// the LLM: a section per retriever family, then the reasoning text if
// present. Empty retrieval lists render as "no relevant result"; chain
// exploration results render the first 5 path steps and first 3 content
// snippets, each truncated to 200 characters.
func BuildPrompt(in Input) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "question: %s\n\n", in.Question)

	sb.WriteString("## local search\n")
	sb.WriteString(formatStringList(in.LocalResults))
	sb.WriteString("\n\n")

	sb.WriteString("## global search\n")
	sb.WriteString(formatGlobalResults(in.GlobalResults))
	sb.WriteString("\n\n")

	sb.WriteString("## exploration\n")
	sb.WriteString(formatStringList(in.ExplorationResults))
	sb.WriteString("\n\n")

	sb.WriteString("## chain exploration\n")
	sb.WriteString(formatChainResults(in.ChainResults))
	sb.WriteString("\n")

	if strings.TrimSpace(in.ThinkingText) != "" {
		sb.WriteString("\n## reasoning\n")
		sb.WriteString(in.ThinkingText)
		sb.WriteString("\n")
	}

	return sb.String()
}

func formatStringList(items []string) string {
	nonEmpty := items[:0:0]
	for _, it := range items {
		if strings.TrimSpace(it) != "" {
			nonEmpty = append(nonEmpty, it)
		}
	}
	if len(nonEmpty) == 0 {
		return noRelevantResult
	}
	return strings.Join(nonEmpty, "\n---\n")
}

func formatGlobalResults(batches [][]string) string {
	var flat []string
	for _, batch := range batches {
		flat = append(flat, batch...)
	}
	return formatStringList(flat)
}

func formatChainResults(chains []*ragmodel.ChainExplorationResult) string {
	var any bool
	var sb strings.Builder
	for _, c := range chains {
		if c == nil || (len(c.ExplorationPath) == 0 && len(c.Content) == 0) {
			continue
		}
		any = true

		steps := c.ExplorationPath
		if len(steps) > 5 {
			steps = steps[:5]
		}
		for _, step := range steps {
			fmt.Fprintf(&sb, "step %d: node %s (%s)\n", step.Step, step.NodeID, step.Reasoning)
		}

		content := c.Content
		if len(content) > 3 {
			content = content[:3]
		}
		for _, snippet := range content {
			sb.WriteString(truncate(snippet.Text, 200))
			sb.WriteString("\n")
		}
		sb.WriteString("---\n")
	}
	if !any {
		return noRelevantResult
	}
	return sb.String()
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
