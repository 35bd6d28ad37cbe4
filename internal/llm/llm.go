// Package llm defines the text-in/text-out LLM interface and the
// text-in/vector-out embedding interface from spec.md §6, plus a thin
// OpenAI-compatible implementation of each. Grounded on
// Tangerg-lynx/ai's extensions/models/openai package, which wraps
// github.com/openai/openai-go/v3 the same way.
package llm

import (
	"context"
	"fmt"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"github.com/developer-mesh/graphrag-coordinator/internal/resilience"
)

// Message is one turn of a chat-style prompt.
type Message struct {
	Role    string // "system", "user", "assistant"
	Content string
}

// Response is the result of one LLM invocation.
type Response struct {
	Content string
}

// Client is the invoke(messages) -> {content} interface consumed by the
// planner, thinking engine, and synthesizer. Implementations must tolerate
// prompts exceeding 8k tokens (spec.md §6).
type Client interface {
	Invoke(ctx context.Context, messages []Message) (Response, error)
}

// Embedder is the embed(text) -> vector interface consumed by retrievers
// doing similarity search (spec.md §6).
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	Dimension() int
}

// OpenAIClient implements Client against an OpenAI-compatible chat
// completions endpoint.
type OpenAIClient struct {
	api   openai.Client
	model string
}

// NewOpenAIClient builds a chat client for model (e.g. "gpt-4o-mini"),
// optionally pointed at a compatible endpoint via opts (same
// option.RequestOption mechanism Tangerg-lynx/ai's Api wrapper uses).
func NewOpenAIClient(apiKey, model string, opts ...option.RequestOption) *OpenAIClient {
	allOpts := append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)
	return &OpenAIClient{api: openai.NewClient(allOpts...), model: model}
}

func (c *OpenAIClient) Invoke(ctx context.Context, messages []Message) (Response, error) {
	params := openai.ChatCompletionNewParams{
		Model:    c.model,
		Messages: toOpenAIMessages(messages),
	}
	return resilience.RetryWithResult(ctx, resilience.DefaultRetryConfig(), func() (Response, error) {
		resp, err := c.api.Chat.Completions.New(ctx, params)
		if err != nil {
			return Response{}, fmt.Errorf("llm: chat completion failed: %w", err)
		}
		if len(resp.Choices) == 0 {
			return Response{}, fmt.Errorf("llm: chat completion returned no choices")
		}
		return Response{Content: resp.Choices[0].Message.Content}, nil
	})
}

func toOpenAIMessages(messages []Message) []openai.ChatCompletionMessageParamUnion {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case "system":
			out = append(out, openai.SystemMessage(m.Content))
		case "assistant":
			out = append(out, openai.AssistantMessage(m.Content))
		default:
			out = append(out, openai.UserMessage(m.Content))
		}
	}
	return out
}

// OpenAIEmbedder implements Embedder against the embeddings endpoint.
type OpenAIEmbedder struct {
	api       openai.Client
	model     string
	dimension int
}

// NewOpenAIEmbedder builds an embedder for model with a fixed output
// dimension (e.g. 1536 for text-embedding-3-small).
func NewOpenAIEmbedder(apiKey, model string, dimension int, opts ...option.RequestOption) *OpenAIEmbedder {
	allOpts := append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)
	return &OpenAIEmbedder{api: openai.NewClient(allOpts...), model: model, dimension: dimension}
}

func (e *OpenAIEmbedder) Dimension() int { return e.dimension }

func (e *OpenAIEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	return resilience.RetryWithResult(ctx, resilience.DefaultRetryConfig(), func() ([][]float32, error) {
		resp, err := e.api.Embeddings.New(ctx, openai.EmbeddingNewParams{
			Model: e.model,
			Input: openai.EmbeddingNewParamsInputUnion{OfArrayOfStrings: texts},
		})
		if err != nil {
			return nil, fmt.Errorf("llm: embedding request failed: %w", err)
		}
		out := make([][]float32, len(resp.Data))
		for i, d := range resp.Data {
			vec := make([]float32, len(d.Embedding))
			for j, f := range d.Embedding {
				vec[j] = float32(f)
			}
			out[i] = vec
		}
		return out, nil
	})
}
