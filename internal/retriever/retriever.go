// Package retriever implements the four retrieval adapters from spec.md
// §4.4 behind a uniform search contract. Each adapter is idempotent and
// side-effect-free with respect to the graph store; the coordinator treats
// them as opaque.
package retriever

import (
	"context"

	"github.com/developer-mesh/graphrag-coordinator/internal/ragmodel"
)

// Input is the uniform request shape every retriever accepts.
type Input struct {
	Query    string
	Keywords []string
	Entities []string
}

// Result is the uniform response shape. Exactly one of Text,
// GlobalSummaries, or Chain is populated, depending on which retriever
// produced it. EvidenceIDs names the chunk/entity/community identifiers the
// result was grounded on, for the coordinator's evidence tracker (spec.md
// §4.9); it may be empty for retrievers with no stable per-item identifier
// to report.
type Result struct {
	Text            string
	GlobalSummaries []string
	Chain           *ragmodel.ChainExplorationResult
	EvidenceIDs     []string
}

// Retriever is the search(input) -> result contract (spec.md §6).
type Retriever interface {
	Search(ctx context.Context, input Input) (Result, error)
}
