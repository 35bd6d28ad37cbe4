// Package vectorstore implements the vector similarity search surface used
// by local_search's retrieval of nearby chunks, backed by Postgres + pgvector the way
// pkg/repository/vector/repository.go is backed by sqlx + pgvector.
package vectorstore

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// Hit is one nearest-neighbor search result.
type Hit struct {
	ID       string
	Score    float32
	Metadata map[string]interface{}
}

// Store is the embedding similarity search surface.
type Store interface {
	SearchSimilar(ctx context.Context, embedding []float32, k int) ([]Hit, error)
}

// PGVectorStore runs cosine-distance nearest-neighbor queries against a
// pgvector-enabled Postgres table, grounded on
// pkg/repository/vector/repository.go's sqlx + pgvector shape.
type PGVectorStore struct {
	db    *sqlx.DB
	table string
}

// NewPGVectorStore wraps an existing *sqlx.DB connection.
func NewPGVectorStore(db *sqlx.DB, table string) *PGVectorStore {
	if table == "" {
		table = "embeddings"
	}
	return &PGVectorStore{db: db, table: table}
}

type pgvectorRow struct {
	ID       string  `db:"id"`
	Distance float64 `db:"distance"`
}

// SearchSimilar orders rows by cosine distance (pgvector's `<=>` operator)
// to the query embedding and returns the nearest k.
func (s *PGVectorStore) SearchSimilar(ctx context.Context, embedding []float32, k int) ([]Hit, error) {
	query := fmt.Sprintf(
		`SELECT id, embedding <=> $1 AS distance FROM %s ORDER BY embedding <=> $1 LIMIT $2`, s.table)

	var rows []pgvectorRow
	if err := sqlx.SelectContext(ctx, s.db, &rows, query, formatVector(embedding), k); err != nil {
		return nil, fmt.Errorf("vectorstore: similarity search failed: %w", err)
	}

	hits := make([]Hit, len(rows))
	for i, r := range rows {
		hits[i] = Hit{ID: r.ID, Score: float32(1 - r.Distance)}
	}
	return hits, nil
}

// formatVector renders a []float32 in pgvector's literal input syntax,
// e.g. "[0.1,0.2,0.3]".
func formatVector(v []float32) string {
	out := make([]byte, 0, len(v)*8+2)
	out = append(out, '[')
	for i, f := range v {
		if i > 0 {
			out = append(out, ',')
		}
		out = fmt.Appendf(out, "%g", f)
	}
	out = append(out, ']')
	return string(out)
}
