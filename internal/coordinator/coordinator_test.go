package coordinator

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/developer-mesh/graphrag-coordinator/internal/cachemanager"
	"github.com/developer-mesh/graphrag-coordinator/internal/cachestore"
	"github.com/developer-mesh/graphrag-coordinator/internal/llm"
	"github.com/developer-mesh/graphrag-coordinator/internal/planner"
	"github.com/developer-mesh/graphrag-coordinator/internal/ragmodel"
	"github.com/developer-mesh/graphrag-coordinator/internal/retriever"
	"github.com/developer-mesh/graphrag-coordinator/internal/synthesizer"
)

type stubRetriever struct {
	result retriever.Result
	err    error
	calls  int32
}

func (s *stubRetriever) Search(ctx context.Context, input retriever.Input) (retriever.Result, error) {
	atomic.AddInt32(&s.calls, 1)
	return s.result, s.err
}

// sequenceRetriever returns its configured results in call order, for tests
// that need successive dispatches of the same task type to produce distinct
// evidence.
type sequenceRetriever struct {
	results []retriever.Result
	calls   int32
}

func (s *sequenceRetriever) Search(ctx context.Context, input retriever.Input) (retriever.Result, error) {
	idx := atomic.AddInt32(&s.calls, 1) - 1
	if int(idx) >= len(s.results) {
		return retriever.Result{}, nil
	}
	return s.results[idx], nil
}

// newTestCoordinator wires a Coordinator whose planning LLM (also reused by
// the Thinking Engine, since Coordinator.LLM feeds thinking.New) is scripted
// with planLLMResponses in call order, and whose Synthesizer LLM is scripted
// separately with synthResponses.
func newTestCoordinator(t *testing.T, planLLMResponses, synthResponses []string, local, global, exploration, chain retriever.Retriever) (*Coordinator, *llm.MockClient, *llm.MockClient) {
	t.Helper()
	planLLM := &llm.MockClient{Responses: planLLMResponses}
	synthLLM := &llm.MockClient{Responses: synthResponses}

	session := cachestore.NewThreadSafe(cachestore.NewMemory(cachestore.MemoryConfig{}))
	globalBackend := cachestore.NewThreadSafe(cachestore.NewMemory(cachestore.MemoryConfig{}))
	cache := cachemanager.New(session, globalBackend, nil, nil)

	p := planner.New(planLLM, nil)
	synth := synthesizer.New(synthLLM)

	retrievers := Retrievers{Local: local, Global: global, Exploration: exploration, Chain: chain}
	coord := New(p, retrievers, synth, cache, planLLM, nil, nil)
	return coord, planLLM, synthLLM
}

func TestProcessQuery_SimpleCachedHit(t *testing.T) {
	local := &stubRetriever{result: retriever.Result{Text: "local result"}}
	coord, _, synthLLM := newTestCoordinator(t,
		[]string{`{"complexity":0.1,"tasks":[{"type":"local_search","query":"q","priority":3}]}`},
		[]string{"first answer"}, local, nil, nil, nil)

	ctx := context.Background()
	require.NoError(t, coord.Cache.Set("What are the requirements?", "cached body", "thread-1", false))

	resp, err := coord.ProcessQuery(ctx, "What are the requirements?", "thread-1")
	require.NoError(t, err)
	assert.Equal(t, "cached body", resp.Answer)
	require.Len(t, resp.Trace, 1)
	assert.Equal(t, "cache_hit", resp.Trace[0].Type)
	assert.Equal(t, int32(0), atomic.LoadInt32(&local.calls))
	assert.Empty(t, synthLLM.Captured)
}

func TestProcessQuery_TwoLocalSearchTasksRunInPriorityOrder(t *testing.T) {
	local := &stubRetriever{result: retriever.Result{Text: "local hit"}}
	coord, _, _ := newTestCoordinator(t,
		[]string{`{"complexity":0.1,"tasks":[{"type":"local_search","query":"a","priority":5},{"type":"local_search","query":"b","priority":3}]}`},
		[]string{"synthesized answer"}, local, nil, nil, nil)

	resp, err := coord.ProcessQuery(context.Background(), "two tasks question", "thread-2")
	require.NoError(t, err)
	assert.Equal(t, "synthesized answer", resp.Answer)
	require.Len(t, resp.Results[ragmodel.TaskLocalSearch], 2)

	var startedQueries []interface{}
	for _, ev := range resp.Trace {
		if ev.Type == "task_started" {
			startedQueries = append(startedQueries, ev.Data["query"])
		}
	}
	assert.Equal(t, []interface{}{"a", "b"}, startedQueries)
}

func TestProcessQuery_ComplexityAboveThresholdEnablesThinkingEvents(t *testing.T) {
	local := &stubRetriever{result: retriever.Result{Text: "local hit"}}
	coord, _, _ := newTestCoordinator(t,
		[]string{
			`{"complexity":0.9,"tasks":[{"type":"local_search","query":"a","priority":3}]}`,
			"initial thinking text",
			"final thinking text",
		},
		[]string{"synthesized with reasoning"}, local, nil, nil, nil)

	resp, err := coord.ProcessQuery(context.Background(), "complex question", "thread-3")
	require.NoError(t, err)

	var sawInitial, sawFinal bool
	for _, ev := range resp.Trace {
		if ev.Type == "initial_thinking" {
			sawInitial = true
		}
		if ev.Type == "final_thinking" {
			sawFinal = true
		}
	}
	assert.True(t, sawInitial)
	assert.True(t, sawFinal)
	assert.Contains(t, resp.Thinking, "<think>")
	assert.NotContains(t, resp.Answer, "<think>")
}

func TestProcessQuery_RetrieverFailureIsolation(t *testing.T) {
	local := &stubRetriever{result: retriever.Result{Text: "local ok"}}
	exploration := &stubRetriever{result: retriever.Result{Text: "exploration ok"}}
	failingGlobal := &stubRetriever{err: assertErr("graph store down")}

	coord, _, _ := newTestCoordinator(t,
		[]string{`{"complexity":0.1,"tasks":[{"type":"local_search","query":"a","priority":5},{"type":"global_search","query":"b","priority":4},{"type":"exploration","query":"c","priority":3}]}`},
		[]string{"final synthesis"}, local, failingGlobal, exploration, nil)

	resp, err := coord.ProcessQuery(context.Background(), "failure isolation question", "thread-4")
	require.NoError(t, err)
	assert.Equal(t, "final synthesis", resp.Answer)

	var sawGlobalError bool
	for _, ev := range resp.Trace {
		if ev.Type == "global_search_error" {
			sawGlobalError = true
		}
	}
	assert.True(t, sawGlobalError)
}

func TestProcessQuery_AllRetrieversFailReturnsUserVisibleMessage(t *testing.T) {
	failing := &stubRetriever{err: assertErr("down")}
	coord, _, _ := newTestCoordinator(t,
		[]string{`{"complexity":0.1,"tasks":[{"type":"local_search","query":"a","priority":3}]}`},
		nil, failing, nil, nil, nil)

	resp, err := coord.ProcessQuery(context.Background(), "doomed question", "thread-5")
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Contains(t, resp.Answer, "Sorry, I cannot answer this question.")
}

func TestProcessQuery_SingleFlightUnderConcurrentIdenticalQueries(t *testing.T) {
	local := &stubRetriever{result: retriever.Result{Text: "local hit"}}
	coord, planLLM, _ := newTestCoordinator(t,
		[]string{`{"complexity":0.1,"tasks":[{"type":"local_search","query":"a","priority":3}]}`},
		[]string{"shared answer"}, local, nil, nil, nil)

	var wg sync.WaitGroup
	answers := make([]string, 50)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			resp, err := coord.ProcessQuery(context.Background(), "identical concurrent question", "thread-shared")
			require.NoError(t, err)
			answers[idx] = resp.Answer
		}(i)
	}
	wg.Wait()

	for _, a := range answers {
		assert.Equal(t, "shared answer", a)
	}
	assert.Equal(t, int32(1), atomic.LoadInt32(&local.calls))
	assert.Len(t, planLLM.Captured, 1)
}

func TestProcessQuery_EvidenceTrackedAndContradictionDetected(t *testing.T) {
	local := &sequenceRetriever{results: []retriever.Result{
		{Text: "the contract was signed in 2019", EvidenceIDs: []string{"chunk-1"}},
		{Text: "the contract was never signed", EvidenceIDs: []string{"chunk-2"}},
	}}

	coord, _, _ := newTestCoordinator(t,
		[]string{
			`{"complexity":0.1,"tasks":[` +
				`{"type":"local_search","query":"a","priority":5,"entities":["acme"]},` +
				`{"type":"local_search","query":"b","priority":4,"entities":["acme"]}]}`,
			"yes",
		},
		[]string{"final synthesis"}, local, nil, nil, nil)

	resp, err := coord.ProcessQuery(context.Background(), "did acme sign the contract", "thread-evidence")
	require.NoError(t, err)

	assert.Equal(t, 2, resp.Evidence.StepsCount)
	assert.Equal(t, 2, resp.Evidence.EvidenceCount)
	assert.Equal(t, 1.0, resp.Evidence.Confidence)

	require.Len(t, resp.Contradictions, 1)
	assert.Equal(t, "acme", resp.Contradictions[0].Entity)
	assert.Equal(t, "semantic", string(resp.Contradictions[0].Kind))
}

func TestProcessQueryStream_MarkersArriveBeforeFinal(t *testing.T) {
	local := &stubRetriever{result: retriever.Result{Text: "local hit"}}
	coord, _, _ := newTestCoordinator(t,
		[]string{`{"complexity":0.1,"tasks":[{"type":"local_search","query":"a","priority":3}]}`},
		[]string{"streamed answer"}, local, nil, nil, nil)

	ch, err := coord.ProcessQueryStream(context.Background(), "stream this question", "thread-stream")
	require.NoError(t, err)

	var markers []ProgressMarker
	for m := range ch {
		markers = append(markers, m)
	}

	require.NotEmpty(t, markers)
	last := markers[len(markers)-1]
	assert.True(t, last.Final)
	assert.Equal(t, "streamed answer", last.Answer)

	for _, m := range markers[:len(markers)-1] {
		assert.False(t, m.Final)
	}
	assert.Greater(t, len(markers), 1, "expected intermediate progress markers before the final one")
	assert.Equal(t, "planning", markers[0].Stage)
}

type assertErr string

func (e assertErr) Error() string { return string(e) }
