// Package persona classifies reviewers into behavioral tiers from review
// text and playtime, and aggregates the batch into a tier distribution.
//
// The tier set is configuration, not business logic: each tier declares a
// keyword list (scanned by the shared text classifier) and a playtime-hour
// bucket. Per review, the text signal decides the tier; when the text is
// ambiguous (no keyword matched, or the top two tiers tie) the playtime
// bucket breaks the tie. Classification is multi-label internally but only
// the top tier per review enters the aggregated distribution.
//
// The analyzer never fetches reviews itself. An empty batch is a
// models.NoDataError, not a zeroed result.
package persona

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/signalfox/gamepulse/internal/models"
	"github.com/signalfox/gamepulse/internal/textclass"
)

// TierSpec configures one behavioral tier: its keyword lexicon entry and the
// playtime bucket [MinHours, MaxHours) it owns. Declaration order is the
// tie-break everywhere.
type TierSpec struct {
	Tier     string             `json:"tier"`
	MinHours float64            `json:"min_hours"`
	MaxHours float64            `json:"max_hours"` // 0 means unbounded
	Keywords []textclass.Keyword `json:"keywords"`
}

// DefaultTiers is the stock tier set. Keyword lists are deliberately short
// and literal; matching is substring-based and language-blind.
var DefaultTiers = []TierSpec{
	{
		Tier:     "casual",
		MinHours: 0,
		MaxHours: 20,
		Keywords: []textclass.Keyword{
			{Term: "casual"}, {Term: "relax"}, {Term: "chill"},
			{Term: "short session"}, {Term: "pick up and play"}, {Term: "easy to learn"},
		},
	},
	{
		Tier:     "regular",
		MinHours: 20,
		MaxHours: 100,
		Keywords: []textclass.Keyword{
			{Term: "with friends"}, {Term: "every weekend"}, {Term: "after work"},
			{Term: "good fun"}, {Term: "keeps me coming back"},
		},
	},
	{
		Tier:     "dedicated",
		MinHours: 100,
		MaxHours: 500,
		Keywords: []textclass.Keyword{
			{Term: "grind"}, {Term: "addicted"}, {Term: "every day"},
			{Term: "hundreds of hours"}, {Term: "min-max", Weight: 2}, {Term: "build"},
		},
	},
	{
		Tier:     "hardcore",
		MinHours: 500,
		MaxHours: 0,
		Keywords: []textclass.Keyword{
			{Term: "hardcore"}, {Term: "speedrun", Weight: 2}, {Term: "competitive"},
			{Term: "ranked"}, {Term: "thousand hours"}, {Term: "no life"},
		},
	},
}

// TierShare is one slice of the aggregated distribution.
type TierShare struct {
	Tier       string  `json:"tier"`
	Count      int     `json:"count"`
	Percentage float64 `json:"percentage"`
}

// Result is the persona analysis over one review batch.
type Result struct {
	ID       string `json:"id"`
	GameID   string `json:"game_id"`
	GameName string `json:"game_name"`
	Version  string `json:"version"`

	TotalReviews  int         `json:"total_reviews"`
	Distribution  []TierShare `json:"distribution"`
	PrimaryTier   string      `json:"primary_tier"`
	SecondaryTier string      `json:"secondary_tier,omitempty"`

	// Keywords holds up to three representative matched terms per tier,
	// ordered by match frequency.
	Keywords map[string][]string `json:"keywords"`

	AvgPlaytimeHours float64   `json:"avg_playtime_hours"`
	AnalyzedAt       time.Time `json:"analyzed_at"`
}

const resultVersion = "persona/1"

// Analyzer classifies review batches against a fixed tier configuration.
type Analyzer struct {
	tiers []TierSpec
	lex   textclass.Lexicon
}

// New creates an Analyzer. A nil tier set selects DefaultTiers.
func New(tiers []TierSpec) (*Analyzer, error) {
	if tiers == nil {
		tiers = DefaultTiers
	}
	if len(tiers) < 2 {
		return nil, fmt.Errorf("persona config error: need at least 2 tiers, got %d", len(tiers))
	}
	entries := make([]textclass.Entry, len(tiers))
	for i, spec := range tiers {
		if spec.Tier == "" {
			return nil, fmt.Errorf("persona config error: tier %d has no name", i)
		}
		entries[i] = textclass.Entry{Category: spec.Tier, Keywords: spec.Keywords}
	}
	return &Analyzer{
		tiers: tiers,
		lex:   textclass.Lexicon{Name: "persona", Entries: entries},
	}, nil
}

// Analyze classifies every review in the batch and aggregates the tier
// distribution. An empty batch fails with models.NoDataError.
func (a *Analyzer) Analyze(gameID, gameName string, reviews []models.ReviewRecord) (Result, error) {
	if len(reviews) == 0 {
		return Result{}, models.NoDataError{Subject: gameID, Reason: "empty review batch"}
	}

	counts := make(map[string]int, len(a.tiers))
	termCounts := make(map[string]map[string]int, len(a.tiers))
	totalHours := 0.0

	for _, review := range reviews {
		totalHours += review.PlaytimeHours

		classifications := textclass.Classify(review.Text, a.lex)
		tier := a.resolveTier(classifications, review.PlaytimeHours)
		counts[tier]++

		for _, c := range classifications {
			if c.Score == 0 {
				continue
			}
			if termCounts[c.Category] == nil {
				termCounts[c.Category] = make(map[string]int)
			}
			for _, term := range c.Matched {
				termCounts[c.Category][term]++
			}
		}
	}

	total := len(reviews)
	distribution := make([]TierShare, 0, len(a.tiers))
	for _, spec := range a.tiers {
		count := counts[spec.Tier]
		distribution = append(distribution, TierShare{
			Tier:       spec.Tier,
			Count:      count,
			Percentage: float64(count) / float64(total) * 100,
		})
	}

	primary, secondary := topTwo(distribution)

	return Result{
		ID:               uuid.New().String(),
		GameID:           gameID,
		GameName:         gameName,
		Version:          resultVersion,
		TotalReviews:     total,
		Distribution:     distribution,
		PrimaryTier:      primary,
		SecondaryTier:    secondary,
		Keywords:         representativeTerms(termCounts),
		AvgPlaytimeHours: totalHours / float64(total),
		AnalyzedAt:       time.Now(),
	}, nil
}

// resolveTier picks the tier for one review. Text signal wins outright;
// playtime decides when the text is ambiguous (no match, or the top two
// scores tie across different tiers).
func (a *Analyzer) resolveTier(classifications []textclass.Classification, hours float64) string {
	best, ok := textclass.Primary(classifications)
	if !ok {
		return a.playtimeTier(hours)
	}

	// A tie between distinct tiers at the top score is ambiguous text.
	ties := 0
	for _, c := range classifications {
		if c.Score == best.Score {
			ties++
		}
	}
	if ties > 1 {
		return a.playtimeTier(hours)
	}
	return best.Category
}

// playtimeTier buckets hours into a tier. Hours at or past a tier's MaxHours
// fall into the next tier; the last matching bucket wins for unbounded tiers.
func (a *Analyzer) playtimeTier(hours float64) string {
	for _, spec := range a.tiers {
		if hours >= spec.MinHours && (spec.MaxHours == 0 || hours < spec.MaxHours) {
			return spec.Tier
		}
	}
	// No bucket claimed the value (gaps in config); fall back to the first tier.
	return a.tiers[0].Tier
}

// topTwo finds the two highest-count tiers, ties broken by declaration order.
func topTwo(distribution []TierShare) (primary, secondary string) {
	first, second := -1, -1
	for i, share := range distribution {
		switch {
		case first == -1 || share.Count > distribution[first].Count:
			second = first
			first = i
		case second == -1 || share.Count > distribution[second].Count:
			second = i
		}
	}
	primary = distribution[first].Tier
	if second >= 0 && distribution[second].Count > 0 {
		secondary = distribution[second].Tier
	}
	return primary, secondary
}

// representativeTerms keeps up to three matched terms per tier, ordered by
// frequency descending then term ascending for determinism.
func representativeTerms(termCounts map[string]map[string]int) map[string][]string {
	out := make(map[string][]string, len(termCounts))
	for tier, terms := range termCounts {
		list := make([]string, 0, len(terms))
		for term := range terms {
			list = append(list, term)
		}
		sort.Slice(list, func(i, j int) bool {
			if terms[list[i]] != terms[list[j]] {
				return terms[list[i]] > terms[list[j]]
			}
			return list[i] < list[j]
		})
		if len(list) > 3 {
			list = list[:3]
		}
		out[tier] = list
	}
	return out
}
