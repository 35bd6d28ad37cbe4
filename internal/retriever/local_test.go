package retriever

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/developer-mesh/graphrag-coordinator/internal/graphstore"
	"github.com/developer-mesh/graphrag-coordinator/internal/llm"
	"github.com/developer-mesh/graphrag-coordinator/internal/vectorstore"
)

type stubVectorStore struct {
	hits []vectorstore.Hit
	err  error
}

func (s *stubVectorStore) SearchSimilar(ctx context.Context, embedding []float32, k int) ([]vectorstore.Hit, error) {
	return s.hits, s.err
}

func TestLocalSearch_NoHitsReturnsNoRelevantResult(t *testing.T) {
	ls := NewLocalSearch(&graphstore.MockStore{}, &stubVectorStore{}, &llm.MockEmbedder{Dim: 4}, nil)
	res, err := ls.Search(context.Background(), Input{Query: "anything"})
	require.NoError(t, err)
	assert.Equal(t, "no relevant result", res.Text)
}

func TestLocalSearch_ExpandsHitsThroughGraph(t *testing.T) {
	graph := &graphstore.MockStore{
		QueryFunc: func(ctx context.Context, cypher string, params map[string]interface{}) ([]graphstore.Row, error) {
			return []graphstore.Row{{
				"chunk_text":    "Acme shipped widget v2.",
				"entities":      []interface{}{"Acme", "widget v2"},
				"relationships": []interface{}{"MANUFACTURES"},
			}}, nil
		},
	}
	vectors := &stubVectorStore{hits: []vectorstore.Hit{{ID: "chunk-1", Score: 0.9}}}

	ls := NewLocalSearch(graph, vectors, &llm.MockEmbedder{Dim: 4}, nil)
	res, err := ls.Search(context.Background(), Input{Query: "what does acme make"})
	require.NoError(t, err)
	assert.Contains(t, res.Text, "Acme shipped widget v2.")
	assert.Contains(t, res.Text, "Acme, widget v2")
	assert.Contains(t, res.Text, "MANUFACTURES")
}
