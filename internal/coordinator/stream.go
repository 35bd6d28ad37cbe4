package coordinator

import (
	"context"

	"github.com/developer-mesh/graphrag-coordinator/internal/ragmodel"
)

// ProgressMarker is one emitted event of process_query_stream: either a
// structured progress marker or, for the last element, the final answer.
type ProgressMarker struct {
	Stage    string
	Progress float64
	Message  string
	Final    bool
	Answer   string
}

// ProcessQueryStream runs the pipeline through the coordinator's worker
// pool and emits a ProgressMarker on ch the instant each stage emits its
// trace event — not, as a naive replay of the finished Response's Trace
// would, only after the whole run completes (spec.md §4.8 "Streaming
// mode": "partial progress markers between each stage"). The
// pipeline itself runs in the background goroutine below, so the caller
// reading ch observes markers in real time while later stages are still in
// flight. The channel is closed when the run finishes, successfully or not.
func (c *Coordinator) ProcessQueryStream(ctx context.Context, question, threadID string) (<-chan ProgressMarker, error) {
	ch := make(chan ProgressMarker, 16)

	send := func(m ProgressMarker) {
		select {
		case ch <- m:
		case <-ctx.Done():
		}
	}

	go func() {
		defer close(ch)

		onEvent := func(ev ragmodel.TraceEvent) {
			send(ProgressMarker{Stage: ev.Type, Progress: 0.5, Message: ev.Description})
		}

		out, err := c.Bulkhead.Execute(ctx, func() (interface{}, error) {
			return c.processQuery(ctx, question, threadID, onEvent)
		})
		resp, _ := out.(*Response)

		if err != nil {
			answer := ""
			if resp != nil {
				answer = resp.Answer
			}
			send(ProgressMarker{Stage: "error", Progress: 1.0, Message: err.Error(), Final: true, Answer: answer})
			return
		}

		send(ProgressMarker{Stage: "done", Progress: 1.0, Final: true, Answer: resp.Answer})
	}()

	return ch, nil
}
