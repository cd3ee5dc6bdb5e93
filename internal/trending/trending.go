// Package trending combines four raw market signals into a single composite
// trending score and grade for a game:
//
//	composite = ccu×0.40 + reviews×0.30 + price×0.15 + news×0.15
//
// Each sub-score is mapped to 0–100 first. CCU growth is percentage change
// clamped to ±50% (the documented saturation points), review velocity is
// percentage change clamped to [−30%, +100%], the price signal is a discount
// tier table, and news frequency is a step function of recent item count.
// Zero-baseline cases return explicit neutral-or-positive defaults instead
// of dividing by zero.
//
// The weight table is a business constant but configurable; it is validated
// once when the scorer is constructed, never per call.
package trending

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/signalfox/gamepulse/internal/models"
	"github.com/signalfox/gamepulse/internal/scoring"
)

// Component names used in the weight table and score breakdown.
const (
	ComponentCCU     = "ccu"
	ComponentReviews = "reviews"
	ComponentPrice   = "price"
	ComponentNews    = "news"
)

// DefaultWeights is the stock weight table: CCU growth dominates, review
// velocity second, price and news split the remainder.
var DefaultWeights = scoring.Weights{
	ComponentCCU:     0.40,
	ComponentReviews: 0.30,
	ComponentPrice:   0.15,
	ComponentNews:    0.15,
}

// Input carries the raw signals for one game over the comparison window.
type Input struct {
	GameID   string `json:"game_id"`
	GameName string `json:"game_name"`

	CurrentCCU  int `json:"current_ccu"`
	PreviousCCU int `json:"previous_ccu"`

	RecentReviews   int `json:"recent_reviews"`
	PreviousReviews int `json:"previous_reviews"`

	CurrentPrice    float64 `json:"current_price"`
	PreviousPrice   float64 `json:"previous_price"`
	IsOnSale        bool    `json:"is_on_sale"`
	DiscountPercent float64 `json:"discount_percent"`

	NewsCount int `json:"news_count"`
}

// Validate checks that the input carries no nonsense values.
func (in *Input) Validate() error {
	if in.GameID == "" {
		return errors.New("game ID must not be empty")
	}
	if in.CurrentCCU < 0 || in.PreviousCCU < 0 {
		return errors.New("CCU counts must not be negative")
	}
	if in.RecentReviews < 0 || in.PreviousReviews < 0 {
		return errors.New("review counts must not be negative")
	}
	if in.CurrentPrice < 0 || in.PreviousPrice < 0 {
		return errors.New("prices must not be negative")
	}
	if in.DiscountPercent < 0 || in.DiscountPercent > 100 {
		return errors.New("discount percent must be between 0 and 100")
	}
	if in.NewsCount < 0 {
		return errors.New("news count must not be negative")
	}
	return nil
}

// Result is the trending analysis for one game. It is created fresh on every
// call and owned by the caller.
type Result struct {
	ID         string                `json:"id"`
	GameID     string                `json:"game_id"`
	GameName   string                `json:"game_name"`
	Version    string                `json:"version"`
	Breakdown  models.ScoreBreakdown `json:"breakdown"`
	Signals    []string              `json:"signals"`
	AnalyzedAt time.Time             `json:"analyzed_at"`
}

// resultVersion identifies the scoring contract a result was produced under.
const resultVersion = "trending/1"

// Scorer computes trending scores under a fixed, pre-validated weight table.
type Scorer struct {
	weights scoring.Weights
	scale   scoring.GradeScale
}

// New creates a Scorer. A nil weight table selects DefaultWeights. The table
// is validated here, once; an invalid table is a scoring.ConfigError.
func New(weights scoring.Weights) (*Scorer, error) {
	if weights == nil {
		weights = DefaultWeights
	}
	if err := weights.Validate(); err != nil {
		return nil, err
	}
	for _, name := range []string{ComponentCCU, ComponentReviews, ComponentPrice, ComponentNews} {
		if _, ok := weights[name]; !ok {
			return nil, scoring.ConfigError{Field: name, Reason: "weight table is missing a trending component"}
		}
	}
	return &Scorer{weights: weights, scale: scoring.DefaultGradeScale}, nil
}

// Analyze computes the composite trending score for one game.
func (s *Scorer) Analyze(in Input) (Result, error) {
	if err := in.Validate(); err != nil {
		return Result{}, fmt.Errorf("invalid trending input: %w", err)
	}

	ccuScore, ccuGrowth := CCUGrowthScore(in.CurrentCCU, in.PreviousCCU)
	reviewScore, reviewGrowth := ReviewVelocityScore(in.RecentReviews, in.PreviousReviews)
	priceScore := PriceSignalScore(in.CurrentPrice, in.PreviousPrice, in.IsOnSale, in.DiscountPercent)
	newsScore := NewsFrequencyScore(in.NewsCount)

	components := map[string]float64{
		ComponentCCU:     ccuScore,
		ComponentReviews: reviewScore,
		ComponentPrice:   priceScore,
		ComponentNews:    newsScore,
	}

	breakdown, err := scoring.Compose(components, s.weights, s.scale)
	if err != nil {
		return Result{}, err
	}

	return Result{
		ID:         uuid.New().String(),
		GameID:     in.GameID,
		GameName:   in.GameName,
		Version:    resultVersion,
		Breakdown:  breakdown,
		Signals:    buildSignals(in, ccuScore, ccuGrowth, reviewScore, reviewGrowth, newsScore),
		AnalyzedAt: time.Now(),
	}, nil
}

// CCUGrowthScore maps concurrent-player growth onto 0–100. Percentage change
// is clamped to [−50%, +50%] and mapped linearly, so +50% or more saturates
// at 100 and −50% or less at 0. A zero previous count scores 100 when players
// are present now and a neutral 50 when they are not. The raw growth
// percentage is returned alongside for signal text.
func CCUGrowthScore(current, previous int) (score, growthPct float64) {
	if previous == 0 {
		if current > 0 {
			return 100, 0
		}
		return 50, 0
	}
	growthPct = (float64(current) - float64(previous)) / float64(previous) * 100
	return scoring.Normalize(growthPct, -50, 50), growthPct
}

// ReviewVelocityScore maps review-count growth onto 0–100, clamped to
// [−30%, +100%]. A zero previous-period baseline scores 80 when any new
// reviews arrived (new activity on a quiet title) and 50 otherwise.
func ReviewVelocityScore(recent, previous int) (score, growthPct float64) {
	if previous == 0 {
		if recent > 0 {
			return 80, 0
		}
		return 50, 0
	}
	growthPct = (float64(recent) - float64(previous)) / float64(previous) * 100
	return scoring.Normalize(growthPct, -30, 100), growthPct
}

// PriceSignalScore scores the price/discount signal. On-sale games score by
// discount tier; a price increase without a sale reads as negative momentum;
// everything else is neutral.
func PriceSignalScore(currentPrice, previousPrice float64, onSale bool, discountPercent float64) float64 {
	if onSale {
		switch {
		case discountPercent >= 75:
			return 100
		case discountPercent >= 50:
			return 90
		case discountPercent >= 30:
			return 80
		case discountPercent >= 10:
			return 60
		default:
			return 55
		}
	}
	if currentPrice > previousPrice && previousPrice > 0 {
		return 30
	}
	return 50
}

// NewsFrequencyScore is a step function of the recent news-item count.
func NewsFrequencyScore(count int) float64 {
	switch {
	case count >= 6:
		return 100
	case count >= 3:
		return 80
	case count >= 1:
		return 60
	default:
		return 30
	}
}

// buildSignals derives 1–4 short human-readable tags from threshold
// crossings. At least one signal is always emitted.
func buildSignals(in Input, ccuScore, ccuGrowth, reviewScore, reviewGrowth, newsScore float64) []string {
	var signals []string

	if ccuScore >= 80 {
		if in.PreviousCCU == 0 {
			signals = append(signals, "player base appearing from zero")
		} else {
			signals = append(signals, fmt.Sprintf("CCU surge %+.1f%%", ccuGrowth))
		}
	} else if ccuScore <= 20 {
		signals = append(signals, fmt.Sprintf("CCU decline %+.1f%%", ccuGrowth))
	}

	if reviewScore >= 80 {
		if in.PreviousReviews == 0 {
			signals = append(signals, "review activity starting up")
		} else {
			signals = append(signals, fmt.Sprintf("review velocity %+.1f%%", reviewGrowth))
		}
	}

	if in.IsOnSale && in.DiscountPercent >= 30 {
		signals = append(signals, fmt.Sprintf("deep discount %.0f%% off", in.DiscountPercent))
	}

	if newsScore >= 80 {
		signals = append(signals, fmt.Sprintf("high news activity (%d items)", in.NewsCount))
	}

	if len(signals) == 0 {
		signals = append(signals, "no strong momentum signals")
	}
	if len(signals) > 4 {
		signals = signals[:4]
	}
	return signals
}
