package retriever

import (
	"context"
	"fmt"

	"github.com/developer-mesh/graphrag-coordinator/internal/graphstore"
)

// GlobalSearch answers broad, corpus-level questions by scanning pre-computed
// community summaries (the graph's "map" phase outputs) and returning them
// in relevance order for the synthesizer to reduce (spec.md §4.4).
type GlobalSearch struct {
	Graph graphstore.Store
}

func NewGlobalSearch(graph graphstore.Store) *GlobalSearch {
	return &GlobalSearch{Graph: graph}
}

func (g *GlobalSearch) Search(ctx context.Context, input Input) (Result, error) {
	rows, err := g.Graph.Query(ctx, globalCommunitySummaryCypher, map[string]interface{}{
		"query": input.Query,
	})
	if err != nil {
		return Result{}, fmt.Errorf("retriever: global_search community scan failed: %w", err)
	}

	summaries := make([]string, 0, len(rows))
	var ids []string
	for _, row := range rows {
		if s, ok := row["summary"].(string); ok && s != "" {
			summaries = append(summaries, s)
		}
		if id, ok := row["id"].(string); ok && id != "" {
			ids = append(ids, id)
		}
	}
	return Result{GlobalSummaries: summaries, EvidenceIDs: ids}, nil
}

// globalCommunitySummaryCypher ranks community summaries by a full-text score
// against the query; a graph store with a full-text index on Community.summary
// is assumed, matching the teacher's convention of pushing relevance ranking
// down into the store rather than the application layer.
const globalCommunitySummaryCypher = `
CALL db.index.fulltext.queryNodes("communitySummaryIndex", $query) YIELD node, score
RETURN node.id AS id, node.summary AS summary
ORDER BY score DESC
`
