package graphstore

import "context"

// MockStore is a simple in-memory Store for tests, grounded on
// pkg/repository/vector/mock.go's in-memory Repository pattern.
type MockStore struct {
	QueryFunc  func(ctx context.Context, cypher string, params map[string]interface{}) ([]Row, error)
	VectorFunc func(ctx context.Context, indexName string, queryVector []float32, k int) ([]VectorHit, error)
}

func (m *MockStore) Query(ctx context.Context, cypher string, params map[string]interface{}) ([]Row, error) {
	if m.QueryFunc == nil {
		return nil, nil
	}
	return m.QueryFunc(ctx, cypher, params)
}

func (m *MockStore) VectorSearch(ctx context.Context, indexName string, queryVector []float32, k int) ([]VectorHit, error) {
	if m.VectorFunc == nil {
		return nil, nil
	}
	return m.VectorFunc(ctx, indexName, queryVector, k)
}

func (m *MockStore) Close(ctx context.Context) error { return nil }
