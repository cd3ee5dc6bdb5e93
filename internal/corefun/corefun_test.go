package corefun

import (
	"encoding/json"
	"errors"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/signalfox/gamepulse/internal/models"
	"github.com/signalfox/gamepulse/internal/scoring"
	"github.com/signalfox/gamepulse/internal/textclass"
)

func mustAnalyzer(t *testing.T) *Analyzer {
	t.Helper()
	a, err := New(nil, 0)
	if err != nil {
		t.Fatalf("failed to create analyzer: %v", err)
	}
	return a
}

func combatHeavyBatch() []models.ReviewRecord {
	return []models.ReviewRecord{
		{Text: "The combat is incredible, every fight feels earned", Recommended: true, PlaytimeHours: 40},
		{Text: "Best gunplay in years, boss design is superb", Recommended: true, PlaytimeHours: 80},
		{Text: "Combat loop carries the whole game", Recommended: true, PlaytimeHours: 25},
		{Text: "The story is forgettable and flat", Recommended: false, PlaytimeHours: 10},
		{Text: "Weak story overall", Recommended: false, PlaytimeHours: 15},
		{Text: "Did not enjoy the story at all", Recommended: false, PlaytimeHours: 5},
	}
}

func TestNewValidatesWeights(t *testing.T) {
	bad := []CategorySpec{
		{Category: "combat", Weight: 0.5},
		{Category: "story", Weight: 0.6},
	}
	_, err := New(bad, 3)
	if err == nil {
		t.Fatal("expected error for weights not summing to 1")
	}
	var cfgErr scoring.ConfigError
	if !errors.As(err, &cfgErr) {
		t.Errorf("expected ConfigError, got %T", err)
	}
}

func TestNewRejectsUnnamedCategory(t *testing.T) {
	if _, err := New([]CategorySpec{{Category: "", Weight: 1.0}}, 3); err == nil {
		t.Error("expected error for unnamed category")
	}
}

func TestAnalyzeEmptyBatchFails(t *testing.T) {
	a := mustAnalyzer(t)
	_, err := a.Analyze("app-1", "Game", nil)
	var noData models.NoDataError
	if !errors.As(err, &noData) {
		t.Errorf("expected models.NoDataError, got %v", err)
	}
}

func TestAnalyzePrimaryFun(t *testing.T) {
	a := mustAnalyzer(t)
	result, err := a.Analyze("app-1", "Game", combatHeavyBatch())
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	if result.PrimaryFun != "combat" {
		t.Errorf("primary fun = %s, want combat", result.PrimaryFun)
	}
	if result.TotalReviews != 6 {
		t.Errorf("total reviews = %d, want 6", result.TotalReviews)
	}
	if err := result.OverallFun.Validate(); err != nil {
		t.Errorf("overall fun breakdown should validate: %v", err)
	}
}

func TestAnalyzeWeaknessNeedsEvidence(t *testing.T) {
	a := mustAnalyzer(t)
	result, err := a.Analyze("app-1", "Game", combatHeavyBatch())
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}

	// story has 3 matches (evidence) and a low score → must appear as a
	// weakness. exploration has zero matches → must NOT appear even though
	// its score is zero.
	hasStory, hasExploration := false, false
	for _, w := range result.Weaknesses {
		if w == "story" {
			hasStory = true
		}
		if w == "exploration" {
			hasExploration = true
		}
	}
	if !hasStory {
		t.Errorf("weaknesses = %v, want story included", result.Weaknesses)
	}
	if hasExploration {
		t.Errorf("weaknesses = %v, exploration has zero evidence and must be excluded", result.Weaknesses)
	}
}

func TestAnalyzeHighlights(t *testing.T) {
	a := mustAnalyzer(t)
	batch := combatHeavyBatch()
	result, err := a.Analyze("app-1", "Game", batch)
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}

	if len(result.PositiveHighlights) == 0 || len(result.PositiveHighlights) > 3 {
		t.Fatalf("positive highlights = %d, want 1–3", len(result.PositiveHighlights))
	}
	if len(result.NegativeHighlights) == 0 || len(result.NegativeHighlights) > 3 {
		t.Fatalf("negative highlights = %d, want 1–3", len(result.NegativeHighlights))
	}

	// Every excerpt must be a verbatim prefix of some input review.
	for _, h := range append(result.PositiveHighlights, result.NegativeHighlights...) {
		verbatim := false
		for _, review := range batch {
			if strings.HasPrefix(review.Text, strings.TrimSuffix(h.Excerpt, "…")) {
				verbatim = true
			}
		}
		if !verbatim {
			t.Errorf("highlight %q is not a verbatim excerpt of any review", h.Excerpt)
		}
		if h.Excerpt == "" {
			t.Error("highlight excerpt must not be empty")
		}
	}
}

func TestAnalyzeHighlightTruncation(t *testing.T) {
	a := mustAnalyzer(t)
	long := strings.Repeat("the combat is amazing ", 30) // well over 160 runes
	result, err := a.Analyze("app-1", "Game", []models.ReviewRecord{
		{Text: long, Recommended: true},
	})
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	if len(result.PositiveHighlights) != 1 {
		t.Fatalf("expected 1 highlight, got %d", len(result.PositiveHighlights))
	}
	excerpt := result.PositiveHighlights[0].Excerpt
	if got := len([]rune(excerpt)); got > maxExcerptRunes+1 {
		t.Errorf("excerpt length %d runes exceeds bound", got)
	}
	if !strings.HasSuffix(excerpt, "…") {
		t.Error("truncated excerpt should end with ellipsis")
	}
}

func TestAnalyzeNoMatchesNoFabrication(t *testing.T) {
	a := mustAnalyzer(t)
	result, err := a.Analyze("app-1", "Game", []models.ReviewRecord{
		{Text: "zzzz qqqq", Recommended: true},
		{Text: "", Recommended: false},
	})
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	if len(result.PositiveHighlights) != 0 || len(result.NegativeHighlights) != 0 {
		t.Error("no matched review text means no highlights, ever")
	}
	if result.PrimaryFun != "" {
		t.Errorf("primary fun = %q, want empty when nothing matched", result.PrimaryFun)
	}
	if len(result.Weaknesses) != 0 {
		t.Errorf("weaknesses = %v, want none without evidence", result.Weaknesses)
	}
	if result.OverallFun.CompositeScore != 0 {
		t.Errorf("overall fun = %v, want 0", result.OverallFun.CompositeScore)
	}
}

func TestAnalyzeCategoryPercentages(t *testing.T) {
	a := mustAnalyzer(t)
	result, err := a.Analyze("app-1", "Game", combatHeavyBatch())
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	sum := 0.0
	for _, c := range result.Categories {
		sum += c.Percentage
	}
	if math.Abs(sum-100) > 0.1 {
		t.Errorf("category percentages sum to %v, want 100±0.1", sum)
	}
}

func TestAnalyzeScoreBounds(t *testing.T) {
	a := mustAnalyzer(t)
	saturated := make([]models.ReviewRecord, 5)
	for i := range saturated {
		saturated[i] = models.ReviewRecord{
			Text:        "combat fight gunplay boss weapon story narrative characters writing ending",
			Recommended: true,
		}
	}
	result, err := a.Analyze("app-1", "Game", saturated)
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	for _, c := range result.Categories {
		if c.Score < 0 || c.Score > 100 {
			t.Errorf("%s score %v out of [0,100]", c.Category, c.Score)
		}
	}
	if result.OverallFun.CompositeScore < 0 || result.OverallFun.CompositeScore > 100 {
		t.Errorf("composite %v out of [0,100]", result.OverallFun.CompositeScore)
	}
}

func TestAnalyzeDeterministic(t *testing.T) {
	a := mustAnalyzer(t)
	batch := combatHeavyBatch()

	first, err := a.Analyze("app-1", "Game", batch)
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	second, err := a.Analyze("app-1", "Game", batch)
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}

	first.ID, second.ID = "", ""
	first.AnalyzedAt, second.AnalyzedAt = time.Time{}, time.Time{}
	a1, _ := json.Marshal(first)
	b1, _ := json.Marshal(second)
	if string(a1) != string(b1) {
		t.Error("Analyze must be byte-identical across runs on the same input")
	}
}

func TestCustomLexicon(t *testing.T) {
	specs := []CategorySpec{
		{Category: "building", Weight: 0.5, Keywords: []textclass.Keyword{{Term: "build"}, {Term: "base"}}},
		{Category: "survival", Weight: 0.5, Keywords: []textclass.Keyword{{Term: "surviv"}, {Term: "hunger"}}},
	}
	a, err := New(specs, 1)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	result, err := a.Analyze("app-2", "Game", []models.ReviewRecord{
		{Text: "I love to build elaborate bases", Recommended: true},
	})
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	if result.PrimaryFun != "building" {
		t.Errorf("primary fun = %s, want building", result.PrimaryFun)
	}
}
