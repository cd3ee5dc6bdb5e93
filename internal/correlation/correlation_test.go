package correlation

import (
	"math"
	"testing"
	"time"
)

func day(i int) time.Time {
	return time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, i)
}

func buildSeries(ccu, viewers []float64) []DailyMetric {
	series := make([]DailyMetric, len(ccu))
	for i := range ccu {
		series[i] = DailyMetric{
			Date:       day(i),
			CCUAvg:     ccu[i],
			CCUPeak:    ccu[i] * 1.5,
			ViewersAvg: viewers[i],
			StreamsAvg: viewers[i] / 10,
		}
	}
	return series
}

func TestPearson(t *testing.T) {
	tests := []struct {
		name string
		x, y []float64
		want float64
	}{
		{name: "perfect positive", x: []float64{1, 2, 3, 4}, y: []float64{10, 20, 30, 40}, want: 1},
		{name: "perfect negative", x: []float64{1, 2, 3, 4}, y: []float64{40, 30, 20, 10}, want: -1},
		{name: "zero variance in x", x: []float64{5, 5, 5}, y: []float64{1, 2, 3}, want: 0},
		{name: "zero variance in y", x: []float64{1, 2, 3}, y: []float64{7, 7, 7}, want: 0},
		{name: "mismatched lengths", x: []float64{1, 2}, y: []float64{1, 2, 3}, want: 0},
		{name: "too short", x: []float64{1}, y: []float64{1}, want: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Pearson(tt.x, tt.y)
			if math.IsNaN(got) {
				t.Fatal("Pearson must never return NaN")
			}
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("Pearson = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAnalyzeInsufficientData(t *testing.T) {
	for _, series := range [][]DailyMetric{nil, {}, buildSeries([]float64{100, 200}, []float64{10, 20})} {
		result, err := Analyze("Game", "app-1", series, 7)
		if err != nil {
			t.Fatalf("insufficient data must not be an error, got %v", err)
		}
		if result.Message == "" {
			t.Error("insufficient-data result must carry a message")
		}
		for pair, corr := range result.PairwiseCorrelations {
			if corr != 0 {
				t.Errorf("pair %s = %v, want 0", pair, corr)
			}
		}
		if result.ConfidenceScore != 0 || result.Elasticity != 0 {
			t.Error("insufficient-data result must be fully zeroed")
		}
	}
}

func TestAnalyzeConstantCCU(t *testing.T) {
	series := buildSeries(
		[]float64{5000, 5000, 5000, 5000, 5000, 5000, 5000},
		[]float64{100, 250, 90, 400, 120, 300, 80},
	)
	result, err := Analyze("Game", "app-2", series, 7)
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	for pair, corr := range result.PairwiseCorrelations {
		if math.IsNaN(corr) {
			t.Fatalf("pair %s is NaN", pair)
		}
		if pair == PairViewersCCU || pair == PairStreamsCCU {
			if corr != 0 {
				t.Errorf("pair %s = %v, want 0 for constant CCU", pair, corr)
			}
		}
	}
	if math.IsNaN(result.CorrelationAtLag) || math.IsNaN(result.Elasticity) {
		t.Error("lag correlation and elasticity must never be NaN")
	}
}

func TestAnalyzeStrongCorrelation(t *testing.T) {
	// Viewers and CCU move in lockstep with no lag.
	viewers := []float64{100, 200, 150, 400, 300, 500, 250, 350, 450, 180}
	ccu := make([]float64, len(viewers))
	for i, v := range viewers {
		ccu[i] = v * 50
	}
	result, err := Analyze("Game", "app-3", buildSeries(ccu, viewers), 10)
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}

	if math.Abs(result.PairwiseCorrelations[PairViewersCCU]-1) > 1e-9 {
		t.Errorf("viewers↔ccu = %v, want 1", result.PairwiseCorrelations[PairViewersCCU])
	}
	if result.OptimalLagHours != 0 {
		t.Errorf("optimal lag = %dh, want 0 for synchronous series", result.OptimalLagHours)
	}
	if math.Abs(result.CorrelationAtLag-1) > 1e-9 {
		t.Errorf("correlation at lag = %v, want 1", result.CorrelationAtLag)
	}
	if result.ConfidenceScore <= 0 || result.ConfidenceScore > 1 {
		t.Errorf("confidence = %v, want in (0,1]", result.ConfidenceScore)
	}
	// CCU = 50×viewers is elasticity 1 in percent terms.
	if math.Abs(result.Elasticity-1) > 1e-6 {
		t.Errorf("elasticity = %v, want 1", result.Elasticity)
	}
}

func TestAnalyzeLaggedCorrelation(t *testing.T) {
	// CCU follows viewers with a one-day delay.
	viewers := []float64{100, 500, 100, 100, 400, 100, 100, 300, 100, 100, 600, 100}
	ccu := make([]float64, len(viewers))
	ccu[0] = 1000
	for i := 1; i < len(viewers); i++ {
		ccu[i] = viewers[i-1] * 10
	}
	result, err := Analyze("Game", "app-4", buildSeries(ccu, viewers), 14)
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	if result.OptimalLagHours != 24 {
		t.Errorf("optimal lag = %dh, want 24", result.OptimalLagHours)
	}
	if math.Abs(result.CorrelationAtLag) < 0.9 {
		t.Errorf("correlation at lag = %v, want strong", result.CorrelationAtLag)
	}
}

func TestAnalyzeLagBoundedByHalfSeries(t *testing.T) {
	// 4 points → lag search limited to 2 days regardless of maxLagDays.
	result, err := Analyze("Game", "app-5", buildSeries(
		[]float64{100, 120, 90, 150},
		[]float64{10, 30, 20, 40},
	), 7)
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	if result.OptimalLagHours > 2*24 {
		t.Errorf("lag %dh exceeds half-series bound", result.OptimalLagHours)
	}
}

func TestAnalyzeEchoesSeries(t *testing.T) {
	series := buildSeries([]float64{100, 200, 300}, []float64{10, 20, 30})
	result, err := Analyze("Game", "app-6", series, 7)
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	if len(result.DailySeries) != 2 {
		t.Fatalf("expected 2 echoed series, got %d", len(result.DailySeries))
	}
	if len(result.DailySeries[0]) != 3 || result.DailySeries[0][1].Value != 200 {
		t.Errorf("echoed CCU series wrong: %+v", result.DailySeries[0])
	}
	if result.DailySeries[1][2].Value != 30 {
		t.Errorf("echoed viewers series wrong: %+v", result.DailySeries[1])
	}
}

func TestConfidenceScaling(t *testing.T) {
	small := confidence(0.9, 3)
	large := confidence(0.9, 30)
	if small >= large {
		t.Errorf("confidence should grow with sample size: %v vs %v", small, large)
	}
	if got := confidence(0.9, 100); math.Abs(got-0.9) > 1e-9 {
		t.Errorf("size factor should saturate at 1: got %v", got)
	}
	if got := confidence(0.5, 0); got != 0 {
		t.Errorf("confidence with no samples = %v, want 0", got)
	}
}
