// Package cachekey implements the three fingerprinting strategies from
// spec.md §4.2: simple, context-aware, and context+keyword-aware. Each
// produces a stable FP (fingerprint) string from request inputs.
package cachekey

import (
	"sort"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"

	"github.com/developer-mesh/graphrag-coordinator/internal/cachestore"
)

// Strategy derives a fingerprint from request inputs.
type Strategy interface {
	// Name identifies the strategy for logging/metrics.
	Name() string
}

// Simple fingerprints on the question alone.
type Simple struct{}

func (Simple) Name() string { return "simple" }

// FP computes hash(normalize(question)).
func (Simple) FP(question string) cachestore.FP {
	return cachestore.NewFP(normalize(question))
}

// ContextAware fingerprints on (thread_id, question): the session cache key.
type ContextAware struct{}

func (ContextAware) Name() string { return "context-aware" }

// FP computes hash(thread_id ‖ normalize(question)).
func (ContextAware) FP(threadID, question string) cachestore.FP {
	return cachestore.NewFP(threadID + "\x1f" + normalize(question))
}

// ContextKeywordAware additionally folds in sorted low/high-level keyword
// lists, for retrievers whose result depends on extracted keywords.
type ContextKeywordAware struct{}

func (ContextKeywordAware) Name() string { return "context+keyword-aware" }

// FP computes hash(thread_id ‖ normalize(question) ‖ join(sorted(keys))).
func (ContextKeywordAware) FP(threadID, question string, lowLevel, highLevel []string) cachestore.FP {
	keys := make([]string, 0, len(lowLevel)+len(highLevel))
	keys = append(keys, lowLevel...)
	keys = append(keys, highLevel...)
	sort.Strings(keys)
	return cachestore.NewFP(threadID + "\x1f" + normalize(question) + "\x1f" + strings.Join(keys, ","))
}

// normalize applies Unicode NFKC, trims, collapses internal whitespace, and
// lower-cases ASCII letters only, preserving non-ASCII characters verbatim
// (spec.md §4.2 "Normalization").
func normalize(s string) string {
	s = norm.NFKC.String(s)
	s = strings.TrimSpace(s)
	s = collapseWhitespace(s)
	return lowerASCII(s)
}

func collapseWhitespace(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	prevSpace := false
	for _, r := range s {
		if unicode.IsSpace(r) {
			if !prevSpace {
				b.WriteRune(' ')
			}
			prevSpace = true
			continue
		}
		prevSpace = false
		b.WriteRune(r)
	}
	return b.String()
}

func lowerASCII(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'A' && c <= 'Z' {
			b[i] = c + ('a' - 'A')
		}
	}
	return string(b)
}
