// Package correlation relates streaming viewership to concurrent players
// through lagged Pearson correlation and a crude elasticity estimate.
//
// Three pairs are correlated over an aligned daily series: average viewers
// against average CCU, stream count against average CCU, and average viewers
// against daily review count. A zero-variance series correlates at exactly
// 0, never NaN: "no detectable relationship" is a legitimate
// analytic outcome.
//
// The lag search shifts the viewers series forward 0..3 days (bounded by
// half the series length) and reports the lag, in hours, that maximizes the
// absolute correlation with CCU. Elasticity is the OLS slope of day-over-day
// percent changes: % change in CCU per % change in viewers. Both carry a
// confidence heuristic that scales with sample size and magnitude.
//
// Fewer than MinSamples points yields a valid all-zero result with a
// human-readable message instead of an error.
package correlation

import (
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/signalfox/gamepulse/internal/models"
)

// MinSamples is the minimum number of aligned daily points required for any
// correlation to be attempted.
const MinSamples = 3

// maxLagDays bounds the lag search.
const maxLagDays = 3

// confidenceSaturationN is the sample size at which the size factor of the
// confidence heuristic reaches 1.
const confidenceSaturationN = 30

// DailyMetric is one aligned day of game and streaming telemetry.
type DailyMetric struct {
	Date        time.Time `json:"date"`
	CCUAvg      float64   `json:"ccu_avg"`
	CCUPeak     float64   `json:"ccu_peak"`
	ViewersAvg  float64   `json:"viewers_avg"`
	StreamsAvg  float64   `json:"streams_avg"`
	ReviewCount int       `json:"review_count"`
}

// Pair names used as keys of Result.PairwiseCorrelations.
const (
	PairViewersCCU     = "viewers_ccu"
	PairStreamsCCU     = "streams_ccu"
	PairViewersReviews = "viewers_reviews"
)

// Result is the streaming correlation analysis for one game.
type Result struct {
	ID       string `json:"id"`
	GameID   string `json:"game_id"`
	GameName string `json:"game_name"`
	Version  string `json:"version"`

	PairwiseCorrelations map[string]float64 `json:"pairwise_correlations"`

	OptimalLagHours  int     `json:"optimal_lag_hours"`
	CorrelationAtLag float64 `json:"correlation_at_lag"`
	ConfidenceScore  float64 `json:"confidence_score"`

	Elasticity           float64 `json:"elasticity"`
	ElasticityConfidence float64 `json:"elasticity_confidence"`

	SampleSize int    `json:"sample_size"`
	RangeDays  int    `json:"range_days"`
	Message    string `json:"message,omitempty"`

	// DailySeries echoes the aligned input back as plain metric series
	// (CCU average, then viewers average) for downstream serialization.
	DailySeries [][]models.MetricPoint `json:"daily_series"`

	AnalyzedAt time.Time `json:"analyzed_at"`
}

const resultVersion = "correlation/1"

// Pearson computes the Pearson correlation coefficient of two equal-length
// series. It returns 0, not NaN, when either series has zero variance or
// the series are shorter than two points.
func Pearson(x, y []float64) float64 {
	n := len(x)
	if n != len(y) || n < 2 {
		return 0
	}

	meanX, meanY := mean(x), mean(y)
	var cov, varX, varY float64
	for i := 0; i < n; i++ {
		dx := x[i] - meanX
		dy := y[i] - meanY
		cov += dx * dy
		varX += dx * dx
		varY += dy * dy
	}
	if varX == 0 || varY == 0 {
		return 0
	}
	return cov / math.Sqrt(varX*varY)
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// Analyze computes the correlation profile of one game over an aligned daily
// series. Insufficient data is a soft outcome: the result is zeroed and
// carries a message, but err is nil.
func Analyze(gameName, gameID string, series []DailyMetric, rangeDays int) (Result, error) {
	result := Result{
		ID:       uuid.New().String(),
		GameID:   gameID,
		GameName: gameName,
		Version:  resultVersion,
		PairwiseCorrelations: map[string]float64{
			PairViewersCCU:     0,
			PairStreamsCCU:     0,
			PairViewersReviews: 0,
		},
		SampleSize: len(series),
		RangeDays:  rangeDays,
		AnalyzedAt: time.Now(),
	}

	if len(series) < MinSamples {
		result.Message = fmt.Sprintf("insufficient data: need at least %d daily points, got %d", MinSamples, len(series))
		return result, nil
	}

	ccu := make([]float64, len(series))
	viewers := make([]float64, len(series))
	streams := make([]float64, len(series))
	reviews := make([]float64, len(series))
	ccuPoints := make([]models.MetricPoint, len(series))
	viewerPoints := make([]models.MetricPoint, len(series))
	for i, day := range series {
		ccu[i] = day.CCUAvg
		viewers[i] = day.ViewersAvg
		streams[i] = day.StreamsAvg
		reviews[i] = float64(day.ReviewCount)
		ccuPoints[i] = models.MetricPoint{Timestamp: day.Date, Value: day.CCUAvg}
		viewerPoints[i] = models.MetricPoint{Timestamp: day.Date, Value: day.ViewersAvg}
	}

	result.PairwiseCorrelations[PairViewersCCU] = Pearson(viewers, ccu)
	result.PairwiseCorrelations[PairStreamsCCU] = Pearson(streams, ccu)
	result.PairwiseCorrelations[PairViewersReviews] = Pearson(viewers, reviews)

	lagDays, lagCorr := optimalLag(viewers, ccu)
	result.OptimalLagHours = lagDays * 24
	result.CorrelationAtLag = lagCorr
	result.ConfidenceScore = confidence(lagCorr, len(series)-lagDays)

	slope, pairs := elasticity(viewers, ccu)
	result.Elasticity = slope
	result.ElasticityConfidence = confidence(clampUnit(slope), pairs)

	result.DailySeries = [][]models.MetricPoint{ccuPoints, viewerPoints}
	return result, nil
}

// optimalLag shifts the viewers series forward by 0..maxLagDays days
// (bounded by half the series length) against CCU and returns the lag with
// the highest absolute correlation. Ties go to the smaller lag.
func optimalLag(viewers, ccu []float64) (bestLag int, bestCorr float64) {
	limit := maxLagDays
	if half := len(ccu) / 2; limit > half {
		limit = half
	}

	bestCorr = Pearson(viewers, ccu)
	for lag := 1; lag <= limit; lag++ {
		// Viewers on day i against CCU on day i+lag.
		n := len(ccu) - lag
		if n < 2 {
			break
		}
		corr := Pearson(viewers[:n], ccu[lag:])
		if math.Abs(corr) > math.Abs(bestCorr) {
			bestCorr = corr
			bestLag = lag
		}
	}
	return bestLag, bestCorr
}

// elasticity estimates the % change in CCU per % change in viewers via the
// OLS slope over paired day-over-day percent changes. Days with a zero
// previous value are skipped. Returns 0 with zero pairs when fewer than two
// usable pairs exist.
func elasticity(viewers, ccu []float64) (slope float64, pairs int) {
	var dv, dc []float64
	for i := 1; i < len(ccu); i++ {
		if viewers[i-1] == 0 || ccu[i-1] == 0 {
			continue
		}
		dv = append(dv, (viewers[i]-viewers[i-1])/viewers[i-1]*100)
		dc = append(dc, (ccu[i]-ccu[i-1])/ccu[i-1]*100)
	}
	if len(dv) < 2 {
		return 0, 0
	}

	meanV, meanC := mean(dv), mean(dc)
	var cov, varV float64
	for i := range dv {
		cov += (dv[i] - meanV) * (dc[i] - meanC)
		varV += (dv[i] - meanV) * (dv[i] - meanV)
	}
	if varV == 0 {
		return 0, len(dv)
	}
	return cov / varV, len(dv)
}

// confidence combines magnitude with a sample-size factor: |value| scaled by
// min(1, n/confidenceSaturationN), clamped to [0,1].
func confidence(value float64, n int) float64 {
	if n <= 0 {
		return 0
	}
	sizeFactor := math.Min(1, float64(n)/confidenceSaturationN)
	c := math.Abs(value) * sizeFactor
	if c > 1 {
		return 1
	}
	return c
}

func clampUnit(v float64) float64 {
	if v > 1 {
		return 1
	}
	if v < -1 {
		return -1
	}
	return v
}
