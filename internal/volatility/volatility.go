// Package volatility measures how unstable a game's concurrent-player count
// is over time, using the coefficient of variation:
//
//	CV = σ/μ × 100
//
// σ is the sample standard deviation of the series (Bessel correction,
// divide by n−1) and μ its mean; CV is 0 when the mean is 0. The scale-free
// percentage makes games of very different sizes comparable. Bands:
//
//	CV < 15  stable
//	CV < 30  moderate
//	CV < 50  volatile
//	CV ≥ 50  extreme
//
// Stability score is max(0, 100 − CV). A series shorter than two points
// degrades to the two-point series [current, peak] rather than failing.
// Peak-hour figures are computed only from optional hourly-bucketed input;
// when that input is absent they are reported as unavailable, never
// estimated from synthetic filler, which would break determinism.
package volatility

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/signalfox/gamepulse/internal/models"
)

// Band is the coarse volatility classification derived from CV.
type Band string

const (
	BandStable   Band = "stable"
	BandModerate Band = "moderate"
	BandVolatile Band = "volatile"
	BandExtreme  Band = "extreme"
)

// Trend is the coarse direction of the player base over the series.
type Trend string

const (
	TrendGrowing   Trend = "growing"
	TrendStable    Trend = "stable"
	TrendDeclining Trend = "declining"
)

// Input is one game's CCU history plus its current headline numbers.
// Hourly optionally maps hour-of-day (0–23) to average CCU for that hour;
// when empty, peak-hour fields of the result are marked unavailable.
type Input struct {
	GameID     string               `json:"game_id"`
	GameName   string               `json:"game_name"`
	Series     []models.MetricPoint `json:"series"`
	CurrentCCU float64              `json:"current_ccu"`
	PeakCCU    float64              `json:"peak_ccu"`
	Hourly     map[int]float64      `json:"hourly,omitempty"`
}

// Validate checks the input for nonsense values.
func (in *Input) Validate() error {
	if in.GameID == "" {
		return errors.New("game ID must not be empty")
	}
	if in.CurrentCCU < 0 || in.PeakCCU < 0 {
		return errors.New("CCU values must not be negative")
	}
	for hour := range in.Hourly {
		if hour < 0 || hour > 23 {
			return fmt.Errorf("hourly bucket %d out of range 0–23", hour)
		}
	}
	return nil
}

// Result is the volatility analysis for one game.
type Result struct {
	ID       string `json:"id"`
	GameID   string `json:"game_id"`
	GameName string `json:"game_name"`
	Version  string `json:"version"`

	Mean           float64 `json:"mean"`
	StdDev         float64 `json:"std_dev"`
	CV             float64 `json:"cv"`
	Band           Band    `json:"band"`
	StabilityScore float64 `json:"stability_score"`
	Trend          Trend   `json:"trend"`
	SampleSize     int     `json:"sample_size"`

	// PeakHours is the top three hours of day by average CCU, descending.
	// Only populated when hourly input was supplied.
	PeakHours          []int `json:"peak_hours,omitempty"`
	PeakHoursAvailable bool  `json:"peak_hours_available"`

	// WeekendRatio is mean weekend CCU over mean weekday CCU. Only
	// populated when the series covers both weekday and weekend samples.
	WeekendRatio          float64 `json:"weekend_ratio,omitempty"`
	WeekendRatioAvailable bool    `json:"weekend_ratio_available"`

	Signals         []string  `json:"signals"`
	Recommendations []string  `json:"recommendations"`
	AnalyzedAt      time.Time `json:"analyzed_at"`
}

const resultVersion = "volatility/1"

// Mean returns the arithmetic mean of the series, 0 for an empty series.
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// StdDev returns the sample standard deviation (divide by n−1), 0 when the
// series has fewer than two points. A snapshot series is a sample of a game's
// player activity rather than the full population, so Bessel's correction
// applies; for [100,120,90,150,130] this puts the CV near 20.2 instead of the
// population figure of 18.1.
func StdDev(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}
	mean := Mean(values)
	variance := 0.0
	for _, v := range values {
		diff := v - mean
		variance += diff * diff
	}
	variance /= float64(len(values) - 1)
	return math.Sqrt(variance)
}

// CoefficientOfVariation returns σ/μ as a percentage, 0 when the mean is 0.
func CoefficientOfVariation(values []float64) float64 {
	mean := Mean(values)
	if mean == 0 {
		return 0
	}
	return StdDev(values) / mean * 100
}

// BandFor maps a CV percentage onto its volatility band.
func BandFor(cv float64) Band {
	switch {
	case cv < 15:
		return BandStable
	case cv < 30:
		return BandModerate
	case cv < 50:
		return BandVolatile
	default:
		return BandExtreme
	}
}

// Analyze computes the volatility profile of one game's CCU series.
func Analyze(in Input) (Result, error) {
	if err := in.Validate(); err != nil {
		return Result{}, fmt.Errorf("invalid volatility input: %w", err)
	}

	values := models.Values(in.Series)
	substituted := false
	if len(values) < 2 {
		// No usable history: degrade to the two headline observations.
		values = []float64{in.CurrentCCU, in.PeakCCU}
		substituted = true
	}

	mean := Mean(values)
	sd := StdDev(values)
	cv := 0.0
	if mean != 0 {
		cv = sd / mean * 100
	}
	band := BandFor(cv)
	stability := math.Max(0, 100-cv)
	trend := classifyTrend(in, substituted, values)

	peakHours, peakAvailable := topHours(in.Hourly)
	weekendRatio, weekendAvailable := weekendWeekdayRatio(in.Series)

	return Result{
		ID:                    uuid.New().String(),
		GameID:                in.GameID,
		GameName:              in.GameName,
		Version:               resultVersion,
		Mean:                  mean,
		StdDev:                sd,
		CV:                    cv,
		Band:                  band,
		StabilityScore:        stability,
		Trend:                 trend,
		SampleSize:            len(values),
		PeakHours:             peakHours,
		PeakHoursAvailable:    peakAvailable,
		WeekendRatio:          weekendRatio,
		WeekendRatioAvailable: weekendAvailable,
		Signals:               buildSignals(cv, band, trend, substituted),
		Recommendations:       recommendations(band, trend),
		AnalyzedAt:            time.Now(),
	}, nil
}

// weekendWeekdayRatio compares mean weekend CCU against mean weekday CCU.
// Reported as unavailable unless the series carries at least one sample on
// each side and the weekday mean is nonzero.
func weekendWeekdayRatio(series []models.MetricPoint) (float64, bool) {
	var weekendSum, weekdaySum float64
	var weekendN, weekdayN int
	for _, p := range series {
		switch p.Timestamp.UTC().Weekday() {
		case time.Saturday, time.Sunday:
			weekendSum += p.Value
			weekendN++
		default:
			weekdaySum += p.Value
			weekdayN++
		}
	}
	if weekendN == 0 || weekdayN == 0 {
		return 0, false
	}
	weekdayMean := weekdaySum / float64(weekdayN)
	if weekdayMean == 0 {
		return 0, false
	}
	return (weekendSum / float64(weekendN)) / weekdayMean, true
}

// classifyTrend compares the mean of the most recent five points against the
// mean of the earliest five. With fewer than two real history points it falls
// back to the current/peak ratio.
func classifyTrend(in Input, substituted bool, values []float64) Trend {
	if substituted {
		if in.PeakCCU == 0 {
			return TrendStable
		}
		ratio := in.CurrentCCU / in.PeakCCU
		switch {
		case ratio > 0.7:
			return TrendGrowing
		case ratio < 0.3:
			return TrendDeclining
		default:
			return TrendStable
		}
	}

	n := len(values)
	window := 5
	if window > n {
		window = n
	}
	early := Mean(values[:window])
	recent := Mean(values[n-window:])
	if early == 0 {
		if recent > 0 {
			return TrendGrowing
		}
		return TrendStable
	}
	ratio := recent / early
	switch {
	case ratio > 1.1:
		return TrendGrowing
	case ratio < 0.9:
		return TrendDeclining
	default:
		return TrendStable
	}
}

// topHours returns up to the three busiest hours of day, descending by
// average CCU, ties broken by earlier hour for determinism.
func topHours(hourly map[int]float64) ([]int, bool) {
	if len(hourly) == 0 {
		return nil, false
	}
	hours := make([]int, 0, len(hourly))
	for h := range hourly {
		hours = append(hours, h)
	}
	sort.Slice(hours, func(i, j int) bool {
		if hourly[hours[i]] != hourly[hours[j]] {
			return hourly[hours[i]] > hourly[hours[j]]
		}
		return hours[i] < hours[j]
	})
	if len(hours) > 3 {
		hours = hours[:3]
	}
	return hours, true
}

func buildSignals(cv float64, band Band, trend Trend, substituted bool) []string {
	signals := []string{fmt.Sprintf("CV %.1f%% (%s)", cv, band)}
	switch trend {
	case TrendGrowing:
		signals = append(signals, "player base growing")
	case TrendDeclining:
		signals = append(signals, "player base declining")
	}
	if substituted {
		signals = append(signals, "estimate from current/peak only, no hourly history")
	}
	return signals
}

// recommendations is a fixed lookup keyed by band and trend. No randomness:
// the same inputs always produce the same advice.
func recommendations(band Band, trend Trend) []string {
	var recs []string
	switch band {
	case BandStable:
		recs = append(recs, "player counts are steady; safe baseline for forecasting")
	case BandModerate:
		recs = append(recs, "moderate swings; compare against event and sale calendar")
	case BandVolatile:
		recs = append(recs, "high swings; investigate content cadence or regional peaks")
	case BandExtreme:
		recs = append(recs, "extreme swings; verify data quality before drawing conclusions")
	}
	switch trend {
	case TrendGrowing:
		recs = append(recs, "growth trend; monitor whether new players are retained")
	case TrendDeclining:
		recs = append(recs, "decline trend; check churn drivers in recent reviews")
	}
	return recs
}
