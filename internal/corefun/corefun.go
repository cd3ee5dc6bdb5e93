// Package corefun classifies reviews into "what makes this game fun"
// categories and folds them into an overall fun score.
//
// Each category carries a keyword lexicon and a weight in the overall
// composite. A category's 0–100 score is its weighted match density
// (matches per review), scaled so that two weighted matches per review
// saturate at 100. The overall fun score runs the category scores through
// the shared scoring framework and the default grade scale.
//
// Weaknesses are the lowest-scoring categories that still have enough
// evidence to mean something: a category below the minimum match count is
// excluded rather than reported as a weakness with zero evidence. Highlight
// excerpts are verbatim quotes from matched reviews, truncated, never
// fabricated; a batch with no matching review text yields no highlights.
package corefun

import (
	"fmt"
	"sort"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/signalfox/gamepulse/internal/models"
	"github.com/signalfox/gamepulse/internal/scoring"
	"github.com/signalfox/gamepulse/internal/textclass"
)

// saturationDensity is the weighted matches-per-review at which a category
// score reaches 100.
const saturationDensity = 2.0

// maxHighlights bounds the positive and negative excerpt lists separately.
const maxHighlights = 3

// maxExcerptRunes bounds the length of a single highlight excerpt.
const maxExcerptRunes = 160

// weaknessScoreCeiling is the score below which a category with enough
// evidence counts as a weakness.
const weaknessScoreCeiling = 40.0

// CategorySpec configures one fun-driver category.
type CategorySpec struct {
	Category string              `json:"category"`
	Weight   float64             `json:"weight"`
	Keywords []textclass.Keyword `json:"keywords"`
}

// DefaultCategories is the stock fun-driver set. Weights sum to 1.0.
var DefaultCategories = []CategorySpec{
	{
		Category: "combat",
		Weight:   0.20,
		Keywords: []textclass.Keyword{
			{Term: "combat"}, {Term: "fight"}, {Term: "gunplay", Weight: 2},
			{Term: "boss"}, {Term: "weapon"},
		},
	},
	{
		Category: "exploration",
		Weight:   0.15,
		Keywords: []textclass.Keyword{
			{Term: "explor"}, {Term: "open world"}, {Term: "discover"},
			{Term: "secrets"}, {Term: "map"},
		},
	},
	{
		Category: "story",
		Weight:   0.20,
		Keywords: []textclass.Keyword{
			{Term: "story"}, {Term: "writing"}, {Term: "characters"},
			{Term: "narrative", Weight: 2}, {Term: "ending"},
		},
	},
	{
		Category: "progression",
		Weight:   0.15,
		Keywords: []textclass.Keyword{
			{Term: "progression"}, {Term: "level up"}, {Term: "unlock"},
			{Term: "skill tree", Weight: 2}, {Term: "loot"},
		},
	},
	{
		Category: "social",
		Weight:   0.15,
		Keywords: []textclass.Keyword{
			{Term: "multiplayer"}, {Term: "co-op", Weight: 2}, {Term: "coop", Weight: 2},
			{Term: "with friends"}, {Term: "community"},
		},
	},
	{
		Category: "presentation",
		Weight:   0.15,
		Keywords: []textclass.Keyword{
			{Term: "graphics"}, {Term: "art style", Weight: 2}, {Term: "soundtrack"},
			{Term: "music"}, {Term: "atmosphere"},
		},
	},
}

// CategoryScore is the aggregated evidence for one category over a batch.
type CategoryScore struct {
	Category   string  `json:"category"`
	Score      float64 `json:"score"`
	Matches    int     `json:"matches"`
	Percentage float64 `json:"percentage"`
}

// Highlight is a verbatim excerpt from a matched review.
type Highlight struct {
	Category string `json:"category"`
	Excerpt  string `json:"excerpt"`
	Positive bool   `json:"positive"`
}

// Result is the core-fun analysis over one review batch.
type Result struct {
	ID       string `json:"id"`
	GameID   string `json:"game_id"`
	GameName string `json:"game_name"`
	Version  string `json:"version"`

	TotalReviews int             `json:"total_reviews"`
	Categories   []CategoryScore `json:"categories"`
	PrimaryFun   string          `json:"primary_fun,omitempty"`
	Weaknesses   []string        `json:"weaknesses"`

	OverallFun models.ScoreBreakdown `json:"overall_fun"`

	PositiveHighlights []Highlight `json:"positive_highlights"`
	NegativeHighlights []Highlight `json:"negative_highlights"`

	AnalyzedAt time.Time `json:"analyzed_at"`
}

const resultVersion = "corefun/1"

// Analyzer classifies review batches against a fixed category configuration.
type Analyzer struct {
	specs      []CategorySpec
	lex        textclass.Lexicon
	weights    scoring.Weights
	minMatches int
}

// New creates an Analyzer. A nil category set selects DefaultCategories;
// minMatches ≤ 0 selects the default of 3. Category weights are validated
// here, once, through the scoring framework.
func New(categories []CategorySpec, minMatches int) (*Analyzer, error) {
	if categories == nil {
		categories = DefaultCategories
	}
	if minMatches <= 0 {
		minMatches = 3
	}

	weights := make(scoring.Weights, len(categories))
	entries := make([]textclass.Entry, len(categories))
	for i, spec := range categories {
		if spec.Category == "" {
			return nil, fmt.Errorf("corefun config error: category %d has no name", i)
		}
		weights[spec.Category] = spec.Weight
		entries[i] = textclass.Entry{Category: spec.Category, Keywords: spec.Keywords}
	}
	if err := weights.Validate(); err != nil {
		return nil, err
	}

	return &Analyzer{
		specs:      categories,
		lex:        textclass.Lexicon{Name: "corefun", Entries: entries},
		weights:    weights,
		minMatches: minMatches,
	}, nil
}

// Analyze classifies every review and aggregates the fun-driver profile.
// An empty batch fails with models.NoDataError.
func (a *Analyzer) Analyze(gameID, gameName string, reviews []models.ReviewRecord) (Result, error) {
	if len(reviews) == 0 {
		return Result{}, models.NoDataError{Subject: gameID, Reason: "empty review batch"}
	}

	weighted := make(map[string]float64, len(a.specs))
	matches := make(map[string]int, len(a.specs))
	var positives, negatives []Highlight

	for _, review := range reviews {
		classifications := textclass.Classify(review.Text, a.lex)

		best, matched := textclass.Primary(classifications)
		for _, c := range classifications {
			if c.Score == 0 {
				continue
			}
			weighted[c.Category] += c.Score
			matches[c.Category] += len(c.Matched)
		}
		if !matched {
			continue
		}

		// Highlight the review under its top category only.
		h := Highlight{
			Category: best.Category,
			Excerpt:  truncate(review.Text),
			Positive: review.Recommended,
		}
		if review.Recommended && len(positives) < maxHighlights {
			positives = append(positives, h)
		} else if !review.Recommended && len(negatives) < maxHighlights {
			negatives = append(negatives, h)
		}
	}

	total := len(reviews)
	components := make(map[string]float64, len(a.specs))
	categories := make([]CategoryScore, 0, len(a.specs))
	totalMatches := 0
	for _, count := range matches {
		totalMatches += count
	}
	for _, spec := range a.specs {
		density := weighted[spec.Category] / float64(total)
		score := scoring.Normalize(density, 0, saturationDensity)
		components[spec.Category] = score

		pct := 0.0
		if totalMatches > 0 {
			pct = float64(matches[spec.Category]) / float64(totalMatches) * 100
		}
		categories = append(categories, CategoryScore{
			Category:   spec.Category,
			Score:      score,
			Matches:    matches[spec.Category],
			Percentage: pct,
		})
	}

	breakdown, err := scoring.Compose(components, a.weights, scoring.DefaultGradeScale)
	if err != nil {
		return Result{}, err
	}

	return Result{
		ID:                 uuid.New().String(),
		GameID:             gameID,
		GameName:           gameName,
		Version:            resultVersion,
		TotalReviews:       total,
		Categories:         categories,
		PrimaryFun:         primaryFun(categories),
		Weaknesses:         a.weaknesses(categories),
		OverallFun:         breakdown,
		PositiveHighlights: positives,
		NegativeHighlights: negatives,
		AnalyzedAt:         time.Now(),
	}, nil
}

// primaryFun is the top category by score, ties broken by declaration order.
// Empty when nothing matched at all.
func primaryFun(categories []CategoryScore) string {
	best := ""
	bestScore := 0.0
	for _, c := range categories {
		if c.Score > bestScore {
			best = c.Category
			bestScore = c.Score
		}
	}
	return best
}

// weaknesses returns up to two of the lowest-scoring categories that carry
// at least minMatches of evidence and score below the ceiling. Categories
// with too little signal are excluded entirely.
func (a *Analyzer) weaknesses(categories []CategoryScore) []string {
	candidates := make([]CategoryScore, 0, len(categories))
	for _, c := range categories {
		if c.Matches >= a.minMatches && c.Score < weaknessScoreCeiling {
			candidates = append(candidates, c)
		}
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Score < candidates[j].Score
	})
	if len(candidates) > 2 {
		candidates = candidates[:2]
	}
	out := make([]string, len(candidates))
	for i, c := range candidates {
		out[i] = c.Category
	}
	return out
}

// truncate bounds an excerpt to maxExcerptRunes, appending an ellipsis when
// text was cut. Truncation is rune-aware so multilingual reviews are never
// split mid-character.
func truncate(text string) string {
	if utf8.RuneCountInString(text) <= maxExcerptRunes {
		return text
	}
	runes := []rune(text)
	return string(runes[:maxExcerptRunes]) + "…"
}
