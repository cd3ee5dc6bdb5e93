package volatility

import (
	"math"
	"testing"
	"time"

	"github.com/signalfox/gamepulse/internal/models"
)

func seriesOf(values ...float64) []models.MetricPoint {
	base := time.Now().Add(-time.Duration(len(values)) * time.Hour)
	points := make([]models.MetricPoint, len(values))
	for i, v := range values {
		points[i] = models.MetricPoint{Timestamp: base.Add(time.Duration(i) * time.Hour), Value: v}
	}
	return points
}

// pointAt pins a sample to a fixed weekday for weekend-ratio tests.
func pointAt(day time.Time, value float64) models.MetricPoint {
	return models.MetricPoint{Timestamp: day, Value: value}
}

func TestWeekendWeekdayRatio(t *testing.T) {
	// 2026-08-28 is a Friday, 2026-08-29 a Saturday.
	friday := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)
	saturday := time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)

	series := []models.MetricPoint{
		pointAt(friday, 100),
		pointAt(saturday, 150),
	}
	ratio, ok := weekendWeekdayRatio(series)
	if !ok {
		t.Fatal("ratio should be available with samples on both sides")
	}
	if math.Abs(ratio-1.5) > 1e-9 {
		t.Errorf("ratio = %v, want 1.5", ratio)
	}

	// Weekday-only series cannot produce a ratio
	if _, ok := weekendWeekdayRatio([]models.MetricPoint{pointAt(friday, 100)}); ok {
		t.Error("ratio must be unavailable without weekend samples")
	}
	// Zero weekday mean cannot produce a ratio
	zeroed := []models.MetricPoint{pointAt(friday, 0), pointAt(saturday, 50)}
	if _, ok := weekendWeekdayRatio(zeroed); ok {
		t.Error("ratio must be unavailable when the weekday mean is 0")
	}
}

func TestMean(t *testing.T) {
	if got := Mean([]float64{100, 120, 90, 150, 130}); got != 118 {
		t.Errorf("Mean = %v, want 118", got)
	}
	if got := Mean(nil); got != 0 {
		t.Errorf("Mean(nil) = %v, want 0", got)
	}
}

func TestStdDev(t *testing.T) {
	// Deviations from 118: -18, 2, -28, 32, 12 → Σd² = 2280, /4 = 570.
	want := math.Sqrt(570)
	if got := StdDev([]float64{100, 120, 90, 150, 130}); math.Abs(got-want) > 1e-9 {
		t.Errorf("StdDev = %v, want %v", got, want)
	}
	if got := StdDev([]float64{42}); got != 0 {
		t.Errorf("StdDev of single point = %v, want 0", got)
	}
}

func TestCVConstantSeriesIsZero(t *testing.T) {
	for _, series := range [][]float64{
		{500, 500, 500},
		{1, 1, 1, 1, 1, 1, 1},
		{0.5, 0.5},
	} {
		if got := CoefficientOfVariation(series); got != 0 {
			t.Errorf("CV(%v) = %v, want 0", series, got)
		}
	}
}

func TestCVZeroMeanIsZero(t *testing.T) {
	if got := CoefficientOfVariation([]float64{0, 0, 0}); got != 0 {
		t.Errorf("CV of zero series = %v, want 0 (not NaN)", got)
	}
}

func TestBandFor(t *testing.T) {
	tests := []struct {
		cv   float64
		want Band
	}{
		{0, BandStable}, {14.99, BandStable},
		{15, BandModerate}, {29.99, BandModerate},
		{30, BandVolatile}, {49.99, BandVolatile},
		{50, BandExtreme}, {200, BandExtreme},
	}
	for _, tt := range tests {
		if got := BandFor(tt.cv); got != tt.want {
			t.Errorf("BandFor(%v) = %v, want %v", tt.cv, got, tt.want)
		}
	}
}

// Documented end-to-end scenario: [100,120,90,150,130] → CV ≈ 20.2%,
// band moderate, stability ≈ 79.8.
func TestAnalyzeEndToEnd(t *testing.T) {
	result, err := Analyze(Input{
		GameID:   "app-570",
		GameName: "Dota 2",
		Series:   seriesOf(100, 120, 90, 150, 130),
	})
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}

	wantCV := math.Sqrt(570) / 118 * 100 // ≈ 20.23
	if math.Abs(result.CV-wantCV) > 1e-9 {
		t.Errorf("CV = %v, want %v", result.CV, wantCV)
	}
	if result.Band != BandModerate {
		t.Errorf("band = %v, want moderate", result.Band)
	}
	if math.Abs(result.StabilityScore-(100-wantCV)) > 1e-9 {
		t.Errorf("stability = %v, want %v", result.StabilityScore, 100-wantCV)
	}
	if result.SampleSize != 5 {
		t.Errorf("sample size = %d, want 5", result.SampleSize)
	}
}

func TestAnalyzeConstantSeries(t *testing.T) {
	result, err := Analyze(Input{
		GameID: "app-1",
		Series: seriesOf(800, 800, 800, 800),
	})
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	if result.CV != 0 {
		t.Errorf("CV = %v, want exactly 0", result.CV)
	}
	if result.StabilityScore != 100 {
		t.Errorf("stability = %v, want exactly 100", result.StabilityScore)
	}
	if result.Band != BandStable {
		t.Errorf("band = %v, want stable", result.Band)
	}
	if result.Trend != TrendStable {
		t.Errorf("trend = %v, want stable", result.Trend)
	}
}

func TestAnalyzeSinglePointDegrades(t *testing.T) {
	result, err := Analyze(Input{
		GameID:     "app-2",
		Series:     seriesOf(900),
		CurrentCCU: 900,
		PeakCCU:    1000,
	})
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	if result.SampleSize != 2 {
		t.Errorf("expected substituted [current, peak] series, sample size = %d", result.SampleSize)
	}
	// current/peak = 0.9 > 0.7 → growing under the fallback thresholds.
	if result.Trend != TrendGrowing {
		t.Errorf("trend = %v, want growing", result.Trend)
	}
	found := false
	for _, sig := range result.Signals {
		if sig == "estimate from current/peak only, no hourly history" {
			found = true
		}
	}
	if !found {
		t.Errorf("substituted series must be flagged as an estimate, signals = %v", result.Signals)
	}
}

func TestAnalyzeEmptySeriesZeroCCU(t *testing.T) {
	result, err := Analyze(Input{GameID: "app-3"})
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	if result.CV != 0 || math.IsNaN(result.CV) {
		t.Errorf("CV = %v, want 0", result.CV)
	}
	if result.Trend != TrendStable {
		t.Errorf("trend = %v, want stable for zero current/peak", result.Trend)
	}
}

func TestAnalyzeTrend(t *testing.T) {
	tests := []struct {
		name   string
		series []float64
		want   Trend
	}{
		{name: "growing", series: []float64{100, 100, 100, 100, 100, 150, 150, 150, 150, 150}, want: TrendGrowing},
		{name: "declining", series: []float64{150, 150, 150, 150, 150, 100, 100, 100, 100, 100}, want: TrendDeclining},
		{name: "flat", series: []float64{100, 102, 99, 101, 100, 100, 98, 103, 100, 101}, want: TrendStable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := Analyze(Input{GameID: "app-4", Series: seriesOf(tt.series...)})
			if err != nil {
				t.Fatalf("Analyze failed: %v", err)
			}
			if result.Trend != tt.want {
				t.Errorf("trend = %v, want %v", result.Trend, tt.want)
			}
		})
	}
}

func TestAnalyzePeakHours(t *testing.T) {
	result, err := Analyze(Input{
		GameID: "app-5",
		Series: seriesOf(100, 120, 110),
		Hourly: map[int]float64{9: 500, 20: 1500, 21: 1400, 22: 1450, 3: 200},
	})
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	if !result.PeakHoursAvailable {
		t.Fatal("peak hours should be available when hourly input is supplied")
	}
	want := []int{20, 22, 21}
	if len(result.PeakHours) != 3 {
		t.Fatalf("PeakHours = %v, want 3 entries", result.PeakHours)
	}
	for i, h := range want {
		if result.PeakHours[i] != h {
			t.Errorf("PeakHours[%d] = %d, want %d", i, result.PeakHours[i], h)
		}
	}
}

func TestAnalyzePeakHoursUnavailable(t *testing.T) {
	result, err := Analyze(Input{GameID: "app-6", Series: seriesOf(100, 110, 120)})
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	if result.PeakHoursAvailable || len(result.PeakHours) != 0 {
		t.Errorf("peak hours must be reported unavailable without hourly input, got %v", result.PeakHours)
	}
}

func TestAnalyzeDeterministic(t *testing.T) {
	in := Input{GameID: "app-7", Series: seriesOf(100, 140, 90, 160, 120)}
	a, err := Analyze(in)
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	b, err := Analyze(in)
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	if a.CV != b.CV || a.Band != b.Band || a.Trend != b.Trend || len(a.Recommendations) != len(b.Recommendations) {
		t.Error("Analyze must be deterministic for identical input")
	}
}

func TestAnalyzeRejectsInvalidInput(t *testing.T) {
	if _, err := Analyze(Input{}); err == nil {
		t.Error("expected error for missing game ID")
	}
	if _, err := Analyze(Input{GameID: "x", Hourly: map[int]float64{24: 10}}); err == nil {
		t.Error("expected error for out-of-range hourly bucket")
	}
}
