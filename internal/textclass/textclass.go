// Package textclass implements the shared keyword-lexicon review classifier
// used by the persona and core-fun analyzers.
//
// A lexicon is an ordered list of categories, each carrying a weighted keyword
// list. Classification scans review text case-insensitively for keyword
// occurrences using plain substring matching, not word-boundary matching,
// which keeps behavior deterministic on noisy, multilingual input at the cost
// of occasional over-matching ("art" matches "party"). Keywords should be
// chosen with that in mind.
//
// Results are multi-label: one review can score in several categories. Ties
// are broken by category declaration order (first declared wins) so repeated
// runs over the same input produce byte-identical output.
package textclass

import (
	"strings"
)

// Keyword is a single lexicon term with its match weight.
// A zero weight is treated as 1.
type Keyword struct {
	Term   string  `json:"term"`
	Weight float64 `json:"weight,omitempty"`
}

// Entry binds one category to its weighted keyword list.
type Entry struct {
	Category string    `json:"category"`
	Keywords []Keyword `json:"keywords"`
}

// Lexicon is a named, ordered category → keyword mapping. Entry order is
// significant: it is the tie-break for Primary.
type Lexicon struct {
	Name    string  `json:"name"`
	Entries []Entry `json:"entries"`
}

// Classification is the per-category result of scanning one review.
type Classification struct {
	Category string   `json:"category"`
	Score    float64  `json:"score"`
	Matched  []string `json:"matched_keywords"`
}

// Classify scans text against every category of the lexicon and returns one
// classification per category, in declaration order. Empty or whitespace-only
// text yields zero scores for every category; it never fails.
func Classify(text string, lex Lexicon) []Classification {
	results := make([]Classification, 0, len(lex.Entries))
	lowered := strings.ToLower(strings.TrimSpace(text))

	for _, entry := range lex.Entries {
		c := Classification{Category: entry.Category}
		if lowered != "" {
			for _, kw := range entry.Keywords {
				term := strings.ToLower(kw.Term)
				if term == "" || !strings.Contains(lowered, term) {
					continue
				}
				weight := kw.Weight
				if weight == 0 {
					weight = 1
				}
				c.Score += weight * float64(strings.Count(lowered, term))
				c.Matched = append(c.Matched, kw.Term)
			}
		}
		results = append(results, c)
	}
	return results
}

// Primary picks the single highest-scoring classification. Ties go to the
// earliest declared category. The second return is false when no category
// matched at all (every score is zero).
func Primary(results []Classification) (Classification, bool) {
	best := Classification{}
	found := false
	for _, c := range results {
		if c.Score > best.Score {
			best = c
			found = true
		}
	}
	return best, found
}

// TotalScore sums the scores across all categories of one review.
func TotalScore(results []Classification) float64 {
	total := 0.0
	for _, c := range results {
		total += c.Score
	}
	return total
}
