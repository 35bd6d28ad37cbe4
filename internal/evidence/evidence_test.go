package evidence

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/developer-mesh/graphrag-coordinator/internal/llm"
)

func floatPtr(v float64) *float64 { return &v }

func TestTracker_GetSummary_CountsStepsAndEvidence(t *testing.T) {
	tr := New("q1")
	tr.Record(0, []string{"chunk-1", "entity-2"}, "Acme", "Acme revenue was 10", floatPtr(10))
	tr.Record(1, []string{"chunk-3"}, "Acme", "Acme revenue was 12", floatPtr(12))
	tr.Record(2, nil, "", "", nil)

	summary := tr.GetSummary()
	assert.Equal(t, 3, summary.StepsCount)
	assert.Equal(t, 3, summary.EvidenceCount)
	assert.InDelta(t, 2.0/3.0, summary.Confidence, 0.001)
}

func TestDetectContradictions_NumericalOverThreshold(t *testing.T) {
	tr := New("q1")
	tr.Record(0, []string{"a"}, "Acme", "revenue 10", floatPtr(10))
	tr.Record(1, []string{"b"}, "Acme", "revenue 12", floatPtr(12))

	contradictions, err := tr.DetectContradictions(context.Background(), nil, 1.0)
	require.NoError(t, err)
	require.Len(t, contradictions, 1)
	assert.Equal(t, ContradictionNumerical, contradictions[0].Kind)
}

func TestDetectContradictions_NumericalWithinThresholdIsNotFlagged(t *testing.T) {
	tr := New("q1")
	tr.Record(0, []string{"a"}, "Acme", "revenue 10.0", floatPtr(10.0))
	tr.Record(1, []string{"b"}, "Acme", "revenue 10.005", floatPtr(10.005))

	contradictions, err := tr.DetectContradictions(context.Background(), nil, 0.01)
	require.NoError(t, err)
	assert.Empty(t, contradictions)
}

func TestDetectContradictions_SemanticViaLLMJudgment(t *testing.T) {
	tr := New("q1")
	tr.Record(0, []string{"a"}, "Acme", "Acme is headquartered in Paris", nil)
	tr.Record(1, []string{"b"}, "Acme", "Acme is headquartered in Berlin", nil)

	client := &llm.MockClient{Responses: []string{"Yes, these are incompatible."}}
	contradictions, err := tr.DetectContradictions(context.Background(), client, 0)
	require.NoError(t, err)
	require.Len(t, contradictions, 1)
	assert.Equal(t, ContradictionSemantic, contradictions[0].Kind)
}
