// Package graphstore defines the read-only property graph interface the
// retrievers query through (spec.md §6 "Graph store interface"), and a
// Neo4j-backed implementation grounded on
// evalgo-org-eve/db/repository/neo4j.go's driver + session-per-call shape.
package graphstore

import "context"

// Row is one tabular result row from a Cypher-like query.
type Row map[string]interface{}

// VectorHit is one result of a native vector index search.
type VectorHit struct {
	ID    string
	Score float32
}

// Store is the read-only query surface retrievers and the chain-exploration
// walk use. The core never issues writes.
type Store interface {
	// Query runs a Cypher-like query with named parameters and returns
	// tabular rows.
	Query(ctx context.Context, cypher string, params map[string]interface{}) ([]Row, error)

	// VectorSearch runs a k-nearest-neighbor search against a named native
	// vector index.
	VectorSearch(ctx context.Context, indexName string, queryVector []float32, k int) ([]VectorHit, error)

	// Close releases pooled connections.
	Close(ctx context.Context) error
}
