package retriever

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/developer-mesh/graphrag-coordinator/internal/graphstore"
	"github.com/developer-mesh/graphrag-coordinator/internal/llm"
	"github.com/developer-mesh/graphrag-coordinator/internal/ragmodel"
)

// DefaultChainMaxSteps is chain_exploration.max_steps' default (spec.md §6).
const DefaultChainMaxSteps = 3

// DefaultSeedEntityLimit is chain_exploration.seed_entity_limit's default.
const DefaultSeedEntityLimit = 3

// ChainExploration performs a bounded graph walk that starts at the first
// seed entity (the seed list is cut to SeedEntityLimit; the other seeds are
// not walked), choosing the next hop at each step by embedding similarity to
// the query among each node's one-hop neighbors, with a keyword-overlap
// fallback when no embedder is configured (spec.md §4.4).
type ChainExploration struct {
	Graph          graphstore.Store
	Embedder       llm.Embedder
	MaxSteps       int
	SeedEntityLimit int
}

func NewChainExploration(graph graphstore.Store, embedder llm.Embedder) *ChainExploration {
	return &ChainExploration{
		Graph:           graph,
		Embedder:        embedder,
		MaxSteps:        DefaultChainMaxSteps,
		SeedEntityLimit: DefaultSeedEntityLimit,
	}
}

func (c *ChainExploration) Search(ctx context.Context, input Input) (Result, error) {
	maxSteps := c.MaxSteps
	if maxSteps <= 0 {
		maxSteps = DefaultChainMaxSteps
	}
	limit := c.SeedEntityLimit
	if limit <= 0 {
		limit = DefaultSeedEntityLimit
	}

	seeds := input.Entities
	if len(seeds) > limit {
		seeds = seeds[:limit]
	}
	if len(seeds) == 0 {
		return Result{Chain: &ragmodel.ChainExplorationResult{}}, nil
	}

	queryVec, haveVec := c.embedQuery(ctx, input.Query)

	var path []ragmodel.ExplorationStep
	var content []ragmodel.ContentSnippet
	visited := make(map[string]struct{})

	current := seeds[0]
	for step := 1; step <= maxSteps; step++ {
		if _, already := visited[current]; already {
			break
		}
		visited[current] = struct{}{}

		neighbors, err := c.Graph.Query(ctx, chainNeighborCypher, map[string]interface{}{"nodeID": current})
		if err != nil {
			return Result{}, fmt.Errorf("retriever: chain_exploration step %d failed: %w", step, err)
		}

		text := neighborText(neighbors, current)
		path = append(path, ragmodel.ExplorationStep{
			Step:      step,
			NodeID:    current,
			Reasoning: fmt.Sprintf("visited %s via %d neighbor(s)", current, len(neighbors)),
		})
		if text != "" {
			content = append(content, ragmodel.ContentSnippet{Text: text})
		}

		next, ok := chooseNextHop(neighbors, current, input.Query, queryVec, haveVec, visited)
		if !ok {
			break
		}
		current = next
	}

	ids := make([]string, len(path))
	for i, step := range path {
		ids[i] = step.NodeID
	}
	return Result{Chain: &ragmodel.ChainExplorationResult{ExplorationPath: path, Content: content}, EvidenceIDs: ids}, nil
}

func (c *ChainExploration) embedQuery(ctx context.Context, query string) ([]float32, bool) {
	if c.Embedder == nil {
		return nil, false
	}
	vecs, err := c.Embedder.Embed(ctx, []string{query})
	if err != nil || len(vecs) == 0 {
		return nil, false
	}
	return vecs[0], true
}

const chainNeighborCypher = `
MATCH (n:Entity {id: $nodeID})-[:RELATES_TO]-(neighbor:Entity)
RETURN neighbor.id AS id, neighbor.name AS name, neighbor.summary AS summary, neighbor.embedding AS embedding
`

func neighborText(rows []graphstore.Row, nodeID string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "node %s neighbors: ", nodeID)
	names := make([]string, 0, len(rows))
	for _, row := range rows {
		if name, ok := row["name"].(string); ok && name != "" {
			names = append(names, name)
		}
	}
	sb.WriteString(strings.Join(names, ", "))
	return sb.String()
}

// chooseNextHop ranks candidate neighbors by embedding similarity to the
// query when a query vector is available, otherwise by keyword overlap
// between the neighbor's summary and the query, and returns the
// highest-scoring unvisited neighbor.
func chooseNextHop(rows []graphstore.Row, currentID, query string, queryVec []float32, haveVec bool, visited map[string]struct{}) (string, bool) {
	type candidate struct {
		id    string
		score float64
	}

	var candidates []candidate
	for _, row := range rows {
		id, _ := row["id"].(string)
		if id == "" || id == currentID {
			continue
		}
		if _, seen := visited[id]; seen {
			continue
		}

		var score float64
		if haveVec {
			if emb, ok := toFloat32Slice(row["embedding"]); ok {
				score = cosineSimilarity(queryVec, emb)
			}
		} else {
			summary, _ := row["summary"].(string)
			score = keywordOverlapScore(query, summary)
		}
		candidates = append(candidates, candidate{id: id, score: score})
	}

	if len(candidates) == 0 {
		return "", false
	}
	sort.Slice(candidates, func(i, j int) bool { return candidates[i].score > candidates[j].score })
	return candidates[0].id, true
}

func toFloat32Slice(v interface{}) ([]float32, bool) {
	switch vv := v.(type) {
	case []float32:
		return vv, true
	case []float64:
		out := make([]float32, len(vv))
		for i, f := range vv {
			out[i] = float32(f)
		}
		return out, true
	case []interface{}:
		out := make([]float32, 0, len(vv))
		for _, e := range vv {
			switch f := e.(type) {
			case float64:
				out = append(out, float32(f))
			case float32:
				out = append(out, f)
			default:
				return nil, false
			}
		}
		return out, true
	default:
		return nil, false
	}
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(b) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

func keywordOverlapScore(query, summary string) float64 {
	if summary == "" {
		return 0
	}
	queryWords := strings.Fields(strings.ToLower(query))
	summaryLower := strings.ToLower(summary)
	var hits float64
	for _, w := range queryWords {
		if strings.Contains(summaryLower, w) {
			hits++
		}
	}
	return hits
}
