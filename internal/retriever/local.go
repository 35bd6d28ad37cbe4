package retriever

import (
	"context"
	"fmt"
	"strings"

	"github.com/developer-mesh/graphrag-coordinator/internal/graphstore"
	"github.com/developer-mesh/graphrag-coordinator/internal/llm"
	"github.com/developer-mesh/graphrag-coordinator/internal/observability"
	"github.com/developer-mesh/graphrag-coordinator/internal/vectorstore"
)

// LocalSearch answers narrow, entity-grounded questions by embedding the
// query, pulling the nearest chunks from the vector index, then expanding
// each hit one hop through the property graph for its directly connected
// entities and relationships (spec.md §4.4).
type LocalSearch struct {
	Graph    graphstore.Store
	Vectors  vectorstore.Store
	Embedder llm.Embedder
	TopK     int
	Logger   observability.Logger
}

// NewLocalSearch wires a LocalSearch adapter, defaulting TopK to 8 and the
// logger to a no-op sink if unset.
func NewLocalSearch(graph graphstore.Store, vectors vectorstore.Store, embedder llm.Embedder, logger observability.Logger) *LocalSearch {
	if logger == nil {
		logger = observability.NoopLogger{}
	}
	return &LocalSearch{Graph: graph, Vectors: vectors, Embedder: embedder, TopK: 8, Logger: logger}
}

func (l *LocalSearch) Search(ctx context.Context, input Input) (Result, error) {
	topK := l.TopK
	if topK <= 0 {
		topK = 8
	}

	vecs, err := l.Embedder.Embed(ctx, []string{input.Query})
	if err != nil {
		return Result{}, fmt.Errorf("retriever: local_search embed failed: %w", err)
	}

	hits, err := l.Vectors.SearchSimilar(ctx, vecs[0], topK)
	if err != nil {
		return Result{}, fmt.Errorf("retriever: local_search vector query failed: %w", err)
	}
	if len(hits) == 0 {
		return Result{Text: "no relevant result"}, nil
	}

	var sb strings.Builder
	var ids []string
	for _, hit := range hits {
		rows, err := l.Graph.Query(ctx, localChunkExpansionCypher, map[string]interface{}{"chunkID": hit.ID})
		if err != nil {
			l.Logger.Warn("local_search: graph expansion failed", map[string]interface{}{"chunk_id": hit.ID, "error": err.Error()})
			continue
		}
		writeChunkSection(&sb, hit, rows)
		ids = append(ids, hit.ID)
	}

	text := strings.TrimSpace(sb.String())
	if text == "" {
		return Result{Text: "no relevant result"}, nil
	}
	return Result{Text: text, EvidenceIDs: ids}, nil
}

const localChunkExpansionCypher = `
MATCH (c:Chunk {id: $chunkID})
OPTIONAL MATCH (c)-[:MENTIONS]->(e:Entity)
OPTIONAL MATCH (e)-[r:RELATES_TO]->(other:Entity)
RETURN c.text AS chunk_text, collect(DISTINCT e.name) AS entities, collect(DISTINCT r.type) AS relationships
`

func writeChunkSection(sb *strings.Builder, hit vectorstore.Hit, rows []graphstore.Row) {
	fmt.Fprintf(sb, "[chunk %s, score %.3f]\n", hit.ID, hit.Score)
	for _, row := range rows {
		if text, ok := row["chunk_text"].(string); ok && text != "" {
			sb.WriteString(text)
			sb.WriteString("\n")
		}
		if entities, ok := row["entities"].([]interface{}); ok && len(entities) > 0 {
			sb.WriteString("entities: ")
			sb.WriteString(joinInterfaces(entities))
			sb.WriteString("\n")
		}
		if rels, ok := row["relationships"].([]interface{}); ok && len(rels) > 0 {
			sb.WriteString("relationships: ")
			sb.WriteString(joinInterfaces(rels))
			sb.WriteString("\n")
		}
	}
	sb.WriteString("\n")
}

func joinInterfaces(vs []interface{}) string {
	parts := make([]string, 0, len(vs))
	for _, v := range vs {
		if s, ok := v.(string); ok && s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, ", ")
}
