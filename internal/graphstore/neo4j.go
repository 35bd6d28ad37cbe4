package graphstore

import (
	"context"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// Neo4jStore implements Store against a Neo4j property graph, the same
// driver + session-per-call pattern as
// evalgo-org-eve/db/repository/neo4j.go's Neo4jRepository, generalized from
// that file's single hard-coded Action/REQUIRES schema to arbitrary
// caller-supplied Cypher.
type Neo4jStore struct {
	driver neo4j.DriverWithContext
}

// Config bounds the driver's connection pool (spec.md §5, default 10).
type Config struct {
	URI              string
	Username         string
	Password         string
	MaxConnectionPool int
}

// NewNeo4jStore connects to uri and verifies connectivity before returning.
func NewNeo4jStore(ctx context.Context, cfg Config) (*Neo4jStore, error) {
	maxPool := cfg.MaxConnectionPool
	if maxPool <= 0 {
		maxPool = 10
	}
	driver, err := neo4j.NewDriverWithContext(cfg.URI, neo4j.BasicAuth(cfg.Username, cfg.Password, ""),
		func(c *neo4j.Config) { c.MaxConnectionPoolSize = maxPool })
	if err != nil {
		return nil, fmt.Errorf("graphstore: create neo4j driver: %w", err)
	}
	if err := driver.VerifyConnectivity(ctx); err != nil {
		return nil, fmt.Errorf("graphstore: connect to neo4j: %w", err)
	}
	return &Neo4jStore{driver: driver}, nil
}

// Query runs cypher with params in a read transaction and projects every
// returned record into a Row by column name.
func (s *Neo4jStore) Query(ctx context.Context, cypher string, params map[string]interface{}) ([]Row, error) {
	session := s.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
	defer session.Close(ctx)

	result, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (interface{}, error) {
		cursor, err := tx.Run(ctx, cypher, params)
		if err != nil {
			return nil, err
		}
		var rows []Row
		for cursor.Next(ctx) {
			record := cursor.Record()
			row := make(Row, len(record.Keys))
			for _, key := range record.Keys {
				v, _ := record.Get(key)
				row[key] = v
			}
			rows = append(rows, row)
		}
		return rows, cursor.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("graphstore: query failed: %w", err)
	}
	return result.([]Row), nil
}

// VectorSearch calls Neo4j's db.index.vector.queryNodes procedure against
// the named index.
func (s *Neo4jStore) VectorSearch(ctx context.Context, indexName string, queryVector []float32, k int) ([]VectorHit, error) {
	session := s.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
	defer session.Close(ctx)

	result, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (interface{}, error) {
		cursor, err := tx.Run(ctx,
			`CALL db.index.vector.queryNodes($indexName, $k, $vector) YIELD node, score
			 RETURN node.id AS id, score`,
			map[string]interface{}{"indexName": indexName, "k": k, "vector": toFloat64Slice(queryVector)})
		if err != nil {
			return nil, err
		}
		var hits []VectorHit
		for cursor.Next(ctx) {
			record := cursor.Record()
			id, _ := record.Get("id")
			score, _ := record.Get("score")
			idStr, _ := id.(string)
			scoreF, _ := score.(float64)
			hits = append(hits, VectorHit{ID: idStr, Score: float32(scoreF)})
		}
		return hits, cursor.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("graphstore: vector search failed: %w", err)
	}
	return result.([]VectorHit), nil
}

func (s *Neo4jStore) Close(ctx context.Context) error {
	return s.driver.Close(ctx)
}

func toFloat64Slice(v []float32) []float64 {
	out := make([]float64, len(v))
	for i, f := range v {
		out[i] = float64(f)
	}
	return out
}
