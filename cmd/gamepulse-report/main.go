// gamepulse-report runs the full analyzer suite once over a JSON telemetry
// bundle and prints a human-readable report. It is the offline counterpart
// of the polling service, useful for backtesting exported data.
package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"sort"
	"strings"

	"github.com/signalfox/gamepulse/internal/corefun"
	"github.com/signalfox/gamepulse/internal/correlation"
	"github.com/signalfox/gamepulse/internal/models"
	"github.com/signalfox/gamepulse/internal/persona"
	"github.com/signalfox/gamepulse/internal/retention"
	"github.com/signalfox/gamepulse/internal/trending"
	"github.com/signalfox/gamepulse/internal/volatility"
)

// Bundle is the JSON input document. Sections left empty are skipped.
type Bundle struct {
	GameID   string `json:"game_id"`
	GameName string `json:"game_name"`

	Trending *trending.Input `json:"trending,omitempty"`

	CCUSeries  []models.MetricPoint `json:"ccu_series,omitempty"`
	CurrentCCU float64              `json:"current_ccu"`
	PeakCCU    float64              `json:"peak_ccu"`
	Hourly     map[int]float64      `json:"hourly,omitempty"`

	Retention *retention.Input `json:"retention,omitempty"`

	Reviews []models.ReviewRecord `json:"reviews,omitempty"`

	DailyMetrics []correlation.DailyMetric `json:"daily_metrics,omitempty"`
	RangeDays    int                       `json:"range_days"`
}

var inputPath = flag.String("input", "", "Path to JSON telemetry bundle")

func main() {
	flag.Parse()

	if *inputPath == "" {
		log.Fatal("usage: gamepulse-report -input bundle.json")
	}

	data, err := os.ReadFile(*inputPath)
	if err != nil {
		log.Fatalf("Failed to read input: %v", err)
	}

	var bundle Bundle
	if err := json.Unmarshal(data, &bundle); err != nil {
		log.Fatalf("Failed to parse input: %v", err)
	}
	if bundle.GameID == "" {
		log.Fatal("Input bundle is missing game_id")
	}

	header(fmt.Sprintf("MARKET SIGNAL REPORT: %s (%s)", bundle.GameName, bundle.GameID))

	runTrending(&bundle)
	runVolatility(&bundle)
	runRetention(&bundle)
	runReviewAnalysis(&bundle)
	runCorrelation(&bundle)
}

func header(title string) {
	fmt.Println(strings.Repeat("=", 80))
	fmt.Println(title)
	fmt.Println(strings.Repeat("=", 80))
	fmt.Println()
}

func section(title string) {
	fmt.Println(strings.Repeat("-", 80))
	fmt.Println(title)
	fmt.Println(strings.Repeat("-", 80))
}

func sortedKeys(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func runTrending(bundle *Bundle) {
	if bundle.Trending == nil {
		return
	}
	section("TRENDING")

	scorer, err := trending.New(nil)
	if err != nil {
		log.Fatalf("Trending scorer: %v", err)
	}

	in := *bundle.Trending
	if in.GameID == "" {
		in.GameID = bundle.GameID
		in.GameName = bundle.GameName
	}

	res, err := scorer.Analyze(in)
	if err != nil {
		fmt.Printf("  analysis failed: %v\n\n", err)
		return
	}

	fmt.Printf("  Composite: %.1f  Grade: %s\n", res.Breakdown.CompositeScore, res.Breakdown.Grade)
	for _, name := range sortedKeys(res.Breakdown.ComponentScores) {
		fmt.Printf("    %-10s %.1f (weight %.2f)\n", name, res.Breakdown.ComponentScores[name], res.Breakdown.Weights[name])
	}
	for _, signal := range res.Signals {
		fmt.Printf("  • %s\n", signal)
	}
	fmt.Println()
}

func runVolatility(bundle *Bundle) {
	if len(bundle.CCUSeries) == 0 && bundle.CurrentCCU == 0 {
		return
	}
	section("CCU VOLATILITY")

	res, err := volatility.Analyze(volatility.Input{
		GameID:     bundle.GameID,
		GameName:   bundle.GameName,
		Series:     bundle.CCUSeries,
		CurrentCCU: bundle.CurrentCCU,
		PeakCCU:    bundle.PeakCCU,
		Hourly:     bundle.Hourly,
	})
	if err != nil {
		fmt.Printf("  analysis failed: %v\n\n", err)
		return
	}

	fmt.Printf("  Band: %s  CV: %.1f%%  Stability: %.1f  Trend: %s  (n=%d)\n",
		res.Band, res.CV, res.StabilityScore, res.Trend, res.SampleSize)
	if res.PeakHoursAvailable {
		fmt.Printf("  Peak hours (UTC): %v\n", res.PeakHours)
	}
	if res.WeekendRatioAvailable {
		fmt.Printf("  Weekend/weekday CCU ratio: %.2f\n", res.WeekendRatio)
	}
	for _, rec := range res.Recommendations {
		fmt.Printf("  • %s\n", rec)
	}
	fmt.Println()
}

func runRetention(bundle *Bundle) {
	if bundle.Retention == nil {
		return
	}
	section("RETENTION")

	in := *bundle.Retention
	if in.GameID == "" {
		in.GameID = bundle.GameID
		in.GameName = bundle.GameName
	}

	res, err := retention.Analyze(in)
	if err != nil {
		fmt.Printf("  analysis failed: %v\n\n", err)
		return
	}

	fmt.Printf("  Index: %.1f  Grade: %s  Engagement: %.1f  Health: %s\n",
		res.RetentionIndex, res.Grade, res.EngagementScore, res.Health)
	fmt.Printf("  Player base: %s (active ratio %.3f, owner midpoint %.0f)\n",
		res.PlayerBase, res.ActiveRatio, res.OwnerMidpoint)
	for _, signal := range res.Signals {
		fmt.Printf("  • %s\n", signal)
	}
	fmt.Println()
}

func runReviewAnalysis(bundle *Bundle) {
	if len(bundle.Reviews) == 0 {
		return
	}

	section("PLAYER PERSONA")
	personaAnalyzer, err := persona.New(nil)
	if err != nil {
		log.Fatalf("Persona analyzer: %v", err)
	}
	printPersona(personaAnalyzer, bundle)

	section("CORE FUN FACTOR")
	funAnalyzer, err := corefun.New(nil, 0)
	if err != nil {
		log.Fatalf("Core-fun analyzer: %v", err)
	}
	printCoreFun(funAnalyzer, bundle)
}

func printPersona(analyzer *persona.Analyzer, bundle *Bundle) {
	res, err := analyzer.Analyze(bundle.GameID, bundle.GameName, bundle.Reviews)
	if err != nil {
		var noData models.NoDataError
		if errors.As(err, &noData) {
			fmt.Printf("  skipped: %v\n\n", err)
			return
		}
		log.Fatalf("Persona analysis: %v", err)
	}

	fmt.Printf("  Primary tier: %s", res.PrimaryTier)
	if res.SecondaryTier != "" {
		fmt.Printf("  (secondary: %s)", res.SecondaryTier)
	}
	fmt.Printf("  avg playtime %.1fh over %d reviews\n", res.AvgPlaytimeHours, res.TotalReviews)
	for _, share := range res.Distribution {
		fmt.Printf("    %-10s %5.1f%% (%d)", share.Tier, share.Percentage, share.Count)
		if terms := res.Keywords[share.Tier]; len(terms) > 0 {
			fmt.Printf("  [%s]", strings.Join(terms, ", "))
		}
		fmt.Println()
	}
	fmt.Println()
}

func printCoreFun(analyzer *corefun.Analyzer, bundle *Bundle) {
	res, err := analyzer.Analyze(bundle.GameID, bundle.GameName, bundle.Reviews)
	if err != nil {
		var noData models.NoDataError
		if errors.As(err, &noData) {
			fmt.Printf("  skipped: %v\n\n", err)
			return
		}
		log.Fatalf("Core-fun analysis: %v", err)
	}

	fmt.Printf("  Overall fun: %.1f  Grade: %s", res.OverallFun.CompositeScore, res.OverallFun.Grade)
	if res.PrimaryFun != "" {
		fmt.Printf("  Primary: %s", res.PrimaryFun)
	}
	fmt.Println()
	for _, cat := range res.Categories {
		fmt.Printf("    %-14s score %5.1f  matches %3d (%.1f%%)\n",
			cat.Category, cat.Score, cat.Matches, cat.Percentage)
	}
	if len(res.Weaknesses) > 0 {
		fmt.Printf("  Weaknesses: %s\n", strings.Join(res.Weaknesses, ", "))
	}
	for _, h := range res.PositiveHighlights {
		fmt.Printf("  + %q\n", h.Excerpt)
	}
	for _, h := range res.NegativeHighlights {
		fmt.Printf("  - %q\n", h.Excerpt)
	}
	fmt.Println()
}

func runCorrelation(bundle *Bundle) {
	if len(bundle.DailyMetrics) == 0 {
		return
	}
	section("STREAMING CORRELATION")

	rangeDays := bundle.RangeDays
	if rangeDays == 0 {
		rangeDays = len(bundle.DailyMetrics)
	}

	res, err := correlation.Analyze(bundle.GameName, bundle.GameID, bundle.DailyMetrics, rangeDays)
	if err != nil {
		fmt.Printf("  analysis failed: %v\n\n", err)
		return
	}
	if res.Message != "" {
		fmt.Printf("  %s\n\n", res.Message)
		return
	}

	for _, pair := range sortedKeys(res.PairwiseCorrelations) {
		fmt.Printf("    %-16s r = %+.3f\n", pair, res.PairwiseCorrelations[pair])
	}
	fmt.Printf("  Optimal lag: %dh  (r at lag %+.3f, confidence %.2f)\n",
		res.OptimalLagHours, res.CorrelationAtLag, res.ConfidenceScore)
	fmt.Printf("  Elasticity: %.3f (confidence %.2f) over %d days\n",
		res.Elasticity, res.ElasticityConfidence, res.SampleSize)
	fmt.Println()
}
