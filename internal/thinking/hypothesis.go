package thinking

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/developer-mesh/graphrag-coordinator/internal/llm"
	"github.com/developer-mesh/graphrag-coordinator/internal/ragerrors"
	"github.com/developer-mesh/graphrag-coordinator/internal/ragmodel"
)

// hypothesisJSON mirrors the LLM's expected JSON array element shape.
type hypothesisJSON struct {
	Hypothesis string `json:"hypothesis"`
	Reasoning  string `json:"reasoning"`
}

// hypothesisFallbackRe matches the regex fallback format: "Hypothesis N:
// ... Reason: ..." (spec.md §4.5), case-insensitive, reasoning may span to
// end of string or up to the next "Hypothesis" marker. The next marker is
// captured (group 3) so parseHypothesesRegex can resume matching from it.
var hypothesisFallbackRe = regexp.MustCompile(`(?is)Hypothesis\s*\d+\s*:\s*(.+?)\s*Reason\s*:\s*(.+?)(?:\s*(Hypothesis\s*\d+\s*:)|$)`)

// GenerateHypotheses asks the LLM for candidate explanations given the
// initial analysis. It expects a JSON array; on parse failure it falls back
// to a regex extractor. At least one hypothesis is always returned.
func (e *Engine) GenerateHypotheses(ctx context.Context, initial string) ([]ragmodel.Hypothesis, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	resp, err := e.LLM.Invoke(ctx, []llm.Message{
		{Role: "system", Content: hypothesesSystemPrompt},
		{Role: "user", Content: initial},
	})
	if err != nil {
		return nil, &ragerrors.LLMFailure{Stage: "generate_hypotheses", Cause: err}
	}

	hyps := parseHypothesesJSON(resp.Content)
	if len(hyps) == 0 {
		hyps = parseHypothesesRegex(resp.Content)
	}
	if len(hyps) == 0 {
		hyps = []ragmodel.Hypothesis{{
			Hypothesis: strings.TrimSpace(resp.Content),
			Reasoning:  "fallback: could not parse a structured hypothesis list",
			Status:     ragmodel.StatusPending,
		}}
	}

	e.mu.Lock()
	e.appendStep(resp.Content)
	e.mu.Unlock()

	return hyps, nil
}

const hypothesesSystemPrompt = `Given the analysis below, propose candidate hypotheses as a JSON array of
objects with "hypothesis" and "reasoning" fields. If you cannot produce
JSON, use the format "Hypothesis 1: <text> Reason: <text>" per candidate.`

func parseHypothesesJSON(content string) []ragmodel.Hypothesis {
	start := strings.Index(content, "[")
	end := strings.LastIndex(content, "]")
	if start < 0 || end < start {
		return nil
	}

	var raw []hypothesisJSON
	if err := json.Unmarshal([]byte(content[start:end+1]), &raw); err != nil {
		return nil
	}

	out := make([]ragmodel.Hypothesis, 0, len(raw))
	for _, h := range raw {
		if strings.TrimSpace(h.Hypothesis) == "" {
			continue
		}
		out = append(out, ragmodel.Hypothesis{
			Hypothesis: h.Hypothesis,
			Reasoning:  h.Reasoning,
			Status:     ragmodel.StatusPending,
		})
	}
	return out
}

func parseHypothesesRegex(content string) []ragmodel.Hypothesis {
	var out []ragmodel.Hypothesis
	rest := content
	for {
		m := hypothesisFallbackRe.FindStringSubmatchIndex(rest)
		if m == nil {
			break
		}
		out = append(out, ragmodel.Hypothesis{
			Hypothesis: strings.TrimSpace(rest[m[2]:m[3]]),
			Reasoning:  strings.TrimSpace(rest[m[4]:m[5]]),
			Status:     ragmodel.StatusPending,
		})
		if m[6] < 0 {
			break
		}
		rest = rest[m[6]:]
	}
	return out
}

// VerifyHypothesis runs a verification LLM call, then a second classifying
// call that assigns {supported, rejected, uncertain}, and appends the
// result to the verification chain implicitly via the returned record (the
// caller/coordinator owns the chain slice).
func (e *Engine) VerifyHypothesis(ctx context.Context, h ragmodel.Hypothesis) (ragmodel.VerificationRecord, error) {
	if err := ctx.Err(); err != nil {
		return ragmodel.VerificationRecord{}, err
	}

	resp, err := e.LLM.Invoke(ctx, []llm.Message{
		{Role: "system", Content: "Verify the following hypothesis against the available evidence and explain your reasoning."},
		{Role: "user", Content: fmt.Sprintf("Hypothesis: %s\nReasoning: %s", h.Hypothesis, h.Reasoning)},
	})
	if err != nil {
		return ragmodel.VerificationRecord{}, &ragerrors.LLMFailure{Stage: "verify_hypothesis", Cause: err}
	}

	status, err := e.classifyVerificationStatus(ctx, resp.Content)
	if err != nil {
		return ragmodel.VerificationRecord{}, err
	}

	e.mu.Lock()
	e.appendStep(resp.Content)
	e.mu.Unlock()

	return ragmodel.VerificationRecord{
		Hypothesis:       h.Hypothesis,
		VerificationText: resp.Content,
		Status:           status,
	}, nil
}

func (e *Engine) classifyVerificationStatus(ctx context.Context, verificationText string) (ragmodel.HypothesisStatus, error) {
	resp, err := e.LLM.Invoke(ctx, []llm.Message{
		{Role: "system", Content: `Classify the verification below as exactly one word: supported, rejected, or uncertain.`},
		{Role: "user", Content: verificationText},
	})
	if err != nil {
		return ragmodel.StatusUncertain, &ragerrors.LLMFailure{Stage: "classify_verification", Cause: err}
	}

	lower := strings.ToLower(resp.Content)
	switch {
	case strings.Contains(lower, "supported"):
		return ragmodel.StatusSupported, nil
	case strings.Contains(lower, "rejected"):
		return ragmodel.StatusRejected, nil
	default:
		return ragmodel.StatusUncertain, nil
	}
}

// UpdateThinkingBasedOnVerification summarizes verification counts by status
// and requests a revised synthesis from the LLM.
func (e *Engine) UpdateThinkingBasedOnVerification(ctx context.Context, vs []ragmodel.VerificationRecord) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	counts := map[ragmodel.HypothesisStatus]int{}
	for _, v := range vs {
		counts[v.Status]++
	}
	summary := fmt.Sprintf("supported=%d rejected=%d uncertain=%d",
		counts[ragmodel.StatusSupported], counts[ragmodel.StatusRejected], counts[ragmodel.StatusUncertain])

	resp, err := e.LLM.Invoke(ctx, []llm.Message{
		{Role: "system", Content: "Given the verification outcomes below, revise the working synthesis."},
		{Role: "user", Content: summary},
	})
	if err != nil {
		return "", &ragerrors.LLMFailure{Stage: "update_thinking_based_on_verification", Cause: err}
	}

	e.mu.Lock()
	e.appendStep(resp.Content)
	e.mu.Unlock()
	return resp.Content, nil
}

// CounterFactualAnalysis creates a fresh branch, runs a counter-analysis and
// a comparison LLM call, returns to main, and appends a conclusion step.
func (e *Engine) CounterFactualAnalysis(ctx context.Context, hypothesis string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	branchName := "counterfactual:" + hypothesis
	e.Branch(branchName, MainBranch)

	counter, err := e.LLM.Invoke(ctx, []llm.Message{
		{Role: "system", Content: "Argue the opposite of the following hypothesis as rigorously as possible."},
		{Role: "user", Content: hypothesis},
	})
	if err != nil {
		e.SwitchBranch(MainBranch)
		return "", &ragerrors.LLMFailure{Stage: "counter_factual_analysis", Cause: err}
	}
	e.AppendStep(counter.Content)

	comparison, err := e.LLM.Invoke(ctx, []llm.Message{
		{Role: "system", Content: "Compare the original hypothesis to the counter-argument and conclude which is better supported."},
		{Role: "user", Content: fmt.Sprintf("Hypothesis: %s\nCounter-argument: %s", hypothesis, counter.Content)},
	})
	if err != nil {
		e.SwitchBranch(MainBranch)
		return "", &ragerrors.LLMFailure{Stage: "counter_factual_analysis", Cause: err}
	}

	e.SwitchBranch(MainBranch)
	e.AppendStep("counterfactual conclusion: " + comparison.Content)
	return comparison.Content, nil
}
