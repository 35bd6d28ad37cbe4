package llm

import "context"

// MockClient is a scripted Client for tests: each call to Invoke consumes
// the next response in Responses (or returns Err if set).
type MockClient struct {
	Responses []string
	Err       error
	calls     int
	Captured  [][]Message
}

func (m *MockClient) Invoke(ctx context.Context, messages []Message) (Response, error) {
	m.Captured = append(m.Captured, messages)
	if m.Err != nil {
		return Response{}, m.Err
	}
	if m.calls >= len(m.Responses) {
		return Response{Content: ""}, nil
	}
	resp := m.Responses[m.calls]
	m.calls++
	return Response{Content: resp}, nil
}

// MockEmbedder returns a fixed-dimension zero vector per input; sufficient
// for tests that only exercise control flow, not similarity ranking.
type MockEmbedder struct {
	Dim int
}

func (m *MockEmbedder) Dimension() int { return m.Dim }

func (m *MockEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = make([]float32, m.Dim)
	}
	return out, nil
}
