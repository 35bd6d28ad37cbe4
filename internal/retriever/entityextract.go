package retriever

import (
	"regexp"
	"strings"
)

// Regexes grounded on the whitespace/punctuation patterns in
// pkg/embedding/cache/query_normalizer.go, generalized from normalization to
// extraction: quoted phrases, bracketed phrases, capitalized bigrams/
// trigrams, and explicit "entity:" tags (spec.md §4.8 step 5). A tag's value
// is the token after the colon plus up to two following capitalized words.
var (
	quotedPhraseRe  = regexp.MustCompile(`"([^"]{1,60})"`)
	bracketPhraseRe = regexp.MustCompile(`\[([^\]]{1,60})\]`)
	capWordRe       = regexp.MustCompile(`\p{Lu}[\p{L}'-]*`)
	entityTagRe     = regexp.MustCompile(`(?:(?i:entity)|实体)\s*[:：]\s*([^\s,;:.，；。\[\]"]+(?:[ \t]+\p{Lu}[^\s,;:.，；。\[\]"]*){0,2})`)
)

// ExtractEntities applies the regex-based entity extraction heuristic to
// text, deduplicating and filtering results to length 2..30 runes. Order of
// the returned slice is unspecified beyond "first seen wins" on duplicates.
func ExtractEntities(text string) []string {
	seen := make(map[string]struct{})
	var out []string

	add := func(candidate string) {
		c := strings.TrimSpace(candidate)
		n := len([]rune(c))
		if n < 2 || n > 30 {
			return
		}
		key := strings.ToLower(c)
		if _, ok := seen[key]; ok {
			return
		}
		seen[key] = struct{}{}
		out = append(out, c)
	}

	for _, m := range quotedPhraseRe.FindAllStringSubmatch(text, -1) {
		add(m[1])
	}
	for _, m := range bracketPhraseRe.FindAllStringSubmatch(text, -1) {
		add(m[1])
	}
	for _, m := range entityTagRe.FindAllStringSubmatch(text, -1) {
		add(m[1])
	}
	for _, phrase := range capitalizedRuns(text) {
		add(phrase)
	}

	return out
}

// capitalizedRuns finds runs of 2-3 consecutive capitalized words
// ("New York", "Acme Corp Inc") by scanning capWordRe matches and grouping
// ones adjacent in the source text (separated only by a single space).
func capitalizedRuns(text string) []string {
	locs := capWordRe.FindAllStringIndex(text, -1)
	if len(locs) == 0 {
		return nil
	}

	var phrases []string
	i := 0
	for i < len(locs) {
		start := locs[i][0]
		end := locs[i][1]
		runLen := 1
		j := i + 1
		for j < len(locs) && runLen < 3 && adjacentBySingleSpace(text, end, locs[j][0]) {
			end = locs[j][1]
			runLen++
			j++
		}
		if runLen >= 2 {
			phrases = append(phrases, text[start:end])
		}
		i = j
	}
	return phrases
}

func adjacentBySingleSpace(text string, end, nextStart int) bool {
	return nextStart-end == 1 && text[end] == ' '
}
