package coordinator

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/developer-mesh/graphrag-coordinator/internal/evidence"
	"github.com/developer-mesh/graphrag-coordinator/internal/observability"
	"github.com/developer-mesh/graphrag-coordinator/internal/ragmodel"
	"github.com/developer-mesh/graphrag-coordinator/internal/resilience"
	"github.com/developer-mesh/graphrag-coordinator/internal/retriever"
	"github.com/developer-mesh/graphrag-coordinator/internal/synthesizer"
	"github.com/developer-mesh/graphrag-coordinator/internal/thinking"
)

// graphStoreBreakerKey is the single circuit breaker name every retriever
// dispatch shares (spec.md §7 "GraphStoreFailure"): repeated failures
// across different retriever types within one request must trip the same
// breaker and short-circuit the retrievers still to come, which a breaker
// keyed per task type can never observe since each type dispatches at most
// once or twice per request.
const graphStoreBreakerKey = "graph_store"

// runPipeline executes steps 1-8 of spec.md §4.8 and returns the fully
// populated, cache-ready Response (its Answer already sanitized). onEvent,
// when non-nil, is called synchronously the instant each trace event is
// produced, so a streaming caller observes progress between stages rather
// than only after runPipeline returns.
func (c *Coordinator) runPipeline(ctx context.Context, question, threadID string, onEvent func(ragmodel.TraceEvent)) (*Response, error) {
	start := time.Now()
	run := ragmodel.NewRunContext(threadID, question)
	evidenceTracker := evidence.New(run.CurrentQueryID)

	var trace []ragmodel.TraceEvent
	emit := func(eventType, description string, data map[string]interface{}) {
		ev := newTraceEvent(eventType, description, data)
		trace = append(trace, ev)
		if onEvent != nil {
			onEvent(ev)
		}
	}

	// Step 1: planning.
	emit("planning", "deriving retrieval plan", map[string]interface{}{"query_id": run.CurrentQueryID})
	plan, err := c.Planner.Plan(ctx, question)
	if err != nil {
		return nil, err
	}
	run.Plan = plan

	// Step 2: complexity-gated thinking.
	var engine *thinking.Engine
	if plan.Complexity > c.Config.ComplexityThreshold {
		engine = thinking.New(c.LLM)
		if c.Config.MaxSearchIterations > 0 {
			engine.MaxSearchLimit = c.Config.MaxSearchIterations
		}
		engine.Initialize(question)
		run.ThinkingEnabled = true
		emit("initial_thinking", "thinking engine initialized", map[string]interface{}{"complexity": plan.Complexity})
		if _, thinkErr := engine.GenerateInitialThinking(ctx); thinkErr != nil {
			c.Logger.Warn("coordinator: initial thinking generation failed", map[string]interface{}{"error": thinkErr.Error()})
		}
	}

	// Step 3: stable sort by descending priority.
	tasks := plan.SortedTasks()

	// Step 4: dispatch tasks in order, isolating failures. chain_exploration
	// tasks with no supplied entities are deferred to step 5, since they
	// depend on prior results.
	results := make(map[ragmodel.TaskType][]retriever.Result)
	var deferredChainTasks []ragmodel.Task
	for _, task := range tasks {
		if task.Type == ragmodel.TaskChainExploration && len(task.Entities) == 0 {
			deferredChainTasks = append(deferredChainTasks, task)
			continue
		}

		run.Metrics.TasksAttempted++
		emit("task_started", string(task.Type)+" started", map[string]interface{}{"query": task.Query})

		res, taskErr := c.dispatch(ctx, task)
		if taskErr != nil {
			run.Metrics.TasksFailed++
			emit(string(task.Type)+"_error", taskErr.Error(), nil)
			emit("task_error", string(task.Type)+" failed", map[string]interface{}{"error": taskErr.Error()})
			continue
		}

		results[task.Type] = append(results[task.Type], res)
		emit("task_completed", string(task.Type)+" completed", nil)
		evidenceTracker.Record(task.Index, res.EvidenceIDs, strings.Join(task.Entities, ","), res.Text, nil)

		if engine != nil {
			engine.AppendStep(summarizeResult(task.Type, res))
		}
	}

	// Step 5: chain_exploration entity backfill.
	for _, chainTask := range deferredChainTasks {
		run.Metrics.TasksAttempted++
		entities := deriveEntitiesFromResults(results)
		if len(entities) == 0 {
			emit("chain_exploration_skipped", "no entities available for chain exploration", nil)
			run.Metrics.TasksFailed++
			continue
		}

		chainTask.Entities = entities
		res, chainErr := c.dispatch(ctx, chainTask)
		if chainErr != nil {
			run.Metrics.TasksFailed++
			emit("chain_exploration_error", chainErr.Error(), nil)
			continue
		}
		results[ragmodel.TaskChainExploration] = append(results[ragmodel.TaskChainExploration], res)
		emit("chain_exploration_completed", "chain exploration completed", nil)
		evidenceTracker.Record(chainTask.Index, res.EvidenceIDs, strings.Join(chainTask.Entities, ","), res.Text, nil)
		if engine != nil {
			engine.AppendStep(summarizeResult(chainTask.Type, res))
		}
	}

	// Step 6: final thinking update.
	var thinkingText string
	if engine != nil {
		emit("final_thinking", "requesting final reasoning update", nil)
		if _, updErr := engine.UpdateThinkingBasedOnVerification(ctx, nil); updErr != nil {
			c.Logger.Warn("coordinator: final thinking update failed", map[string]interface{}{"error": updErr.Error()})
		}
		thinkingText = engine.GetFullThinking()
	}

	if run.Metrics.TasksAttempted > 0 && run.Metrics.TasksFailed == run.Metrics.TasksAttempted {
		return nil, &allRetrieversFailedError{reasons: traceErrorReasons(trace)}
	}

	// Step 6.5: evidence summary and cross-retriever contradiction check
	// (spec.md §4.9). A failure here degrades to an empty contradiction
	// list rather than failing the run, since evidence review is a quality
	// signal on top of the answer, not a precondition for producing one.
	contradictions, contErr := evidenceTracker.DetectContradictions(ctx, c.LLM, 0)
	if contErr != nil {
		c.Logger.Warn("coordinator: contradiction detection failed", map[string]interface{}{"error": contErr.Error()})
	}
	evidenceSummary := evidenceTracker.GetSummary()
	emit("evidence_summary", fmt.Sprintf("tracked %d evidence entries across %d steps", evidenceSummary.EvidenceCount, evidenceSummary.StepsCount), map[string]interface{}{
		"confidence":      evidenceSummary.Confidence,
		"contradictions": len(contradictions),
	})

	// Step 7: synthesis.
	emit("synthesizing", "composing final answer", nil)
	answer, synthErr := c.Synthesizer.Synthesize(ctx, buildSynthInput(question, plan, results, thinkingText))
	if synthErr != nil {
		return nil, synthErr
	}
	answer = sanitizeFinalAnswer(answer)

	// Step 8: record wall time.
	run.Metrics.TotalDuration = time.Since(start)

	return &Response{
		Answer:        answer,
		Plan:          plan,
		Results:       results,
		Thinking:      thinkingText,
		Trace:         trace,
		Metrics:       run.Metrics,
		Evidence:      evidenceSummary,
		Contradictions: contradictions,
	}, nil
}

// dispatch runs one task through its adapter, wrapped in the shared
// graph-store circuit breaker and the retriever timeout-with-grace-period.
func (c *Coordinator) dispatch(ctx context.Context, task ragmodel.Task) (result retriever.Result, err error) {
	adapter, ok := c.Retrievers.forType(task.Type)
	if !ok {
		return retriever.Result{}, fmt.Errorf("coordinator: no retriever wired for task type %q", task.Type)
	}

	input := retriever.Input{Query: task.Query, Entities: task.Entities}

	ctx, span := observability.StartSpan(ctx, "retriever."+string(task.Type))
	defer func() { observability.EndSpan(span, err) }()

	out, err := c.Breakers.Execute(ctx, graphStoreBreakerKey, func(ctx context.Context) (interface{}, error) {
		return resilience.ExecuteWithTimeout(ctx, c.Config.RetrieverTimeout, func(ctx context.Context) (retriever.Result, error) {
			return adapter.Search(ctx, input)
		})
	})
	if err != nil {
		return retriever.Result{}, err
	}
	return out.(retriever.Result), nil
}

func summarizeResult(taskType ragmodel.TaskType, res retriever.Result) string {
	switch taskType {
	case ragmodel.TaskGlobalSearch:
		return fmt.Sprintf("%s returned %d community summaries", taskType, len(res.GlobalSummaries))
	case ragmodel.TaskChainExploration:
		if res.Chain != nil {
			return fmt.Sprintf("%s walked %d hops", taskType, len(res.Chain.ExplorationPath))
		}
		return string(taskType) + " returned no chain"
	default:
		return fmt.Sprintf("%s result: %s", taskType, truncateForStep(res.Text, 400))
	}
}

func truncateForStep(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

func deriveEntitiesFromResults(results map[ragmodel.TaskType][]retriever.Result) []string {
	var text string
	for _, list := range results {
		for _, r := range list {
			text += r.Text + "\n"
		}
	}
	entities := retriever.ExtractEntities(text)
	if len(entities) > retriever.DefaultSeedEntityLimit {
		entities = entities[:retriever.DefaultSeedEntityLimit]
	}
	return entities
}

func traceErrorReasons(trace []ragmodel.TraceEvent) []string {
	var reasons []string
	for _, ev := range trace {
		if ev.Type == "task_error" {
			reasons = append(reasons, ev.Description)
		}
	}
	return reasons
}

func buildSynthInput(question string, plan *ragmodel.RetrievalPlan, results map[ragmodel.TaskType][]retriever.Result, thinkingText string) synthesizer.Input {
	in := synthesizer.Input{Question: question, Plan: plan, ThinkingText: thinkingText}

	for _, r := range results[ragmodel.TaskLocalSearch] {
		in.LocalResults = append(in.LocalResults, r.Text)
	}
	for _, r := range results[ragmodel.TaskGlobalSearch] {
		in.GlobalResults = append(in.GlobalResults, r.GlobalSummaries)
	}
	for _, r := range results[ragmodel.TaskExploration] {
		in.ExplorationResults = append(in.ExplorationResults, r.Text)
	}
	for _, r := range results[ragmodel.TaskChainExploration] {
		in.ChainResults = append(in.ChainResults, r.Chain)
	}
	return in
}
