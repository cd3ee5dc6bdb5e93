// Package scoring implements the composite scoring framework shared by every
// analyzer in the engine: normalize raw values onto a 0–100 scale, combine
// sub-scores through a validated weight table, and map the composite onto a
// letter grade.
//
// The arithmetic is deliberately boring and fully deterministic:
//
//	composite = Σ(componentScore × weight)
//
// Weight tables must sum to 1.0 (±1e-6). That invariant is validated once at
// configuration load via Weights.Validate, not on every call; the framework
// never silently renormalizes a bad table.
package scoring

import (
	"fmt"
	"math"

	"github.com/signalfox/gamepulse/internal/models"
)

// weightTolerance is the permitted deviation of a weight table's sum from 1.0.
const weightTolerance = 1e-6

// ConfigError reports an invalid scoring configuration (bad weight table or
// a component without a matching weight). It is fatal: callers should fail
// fast at startup rather than analyze with a broken table.
type ConfigError struct {
	Field  string
	Reason string
}

func (e ConfigError) Error() string {
	return fmt.Sprintf("scoring config error: %s: %s", e.Field, e.Reason)
}

// Weights maps component names to their share of the composite score.
type Weights map[string]float64

// Validate checks that the table is non-empty, has no negative entries, and
// sums to 1.0 within tolerance. Call this once when configuration is loaded.
func (w Weights) Validate() error {
	if len(w) == 0 {
		return ConfigError{Field: "weights", Reason: "weight table must not be empty"}
	}
	sum := 0.0
	for name, weight := range w {
		if weight < 0 {
			return ConfigError{Field: name, Reason: fmt.Sprintf("weight must not be negative, got %v", weight)}
		}
		sum += weight
	}
	if math.Abs(sum-1.0) > weightTolerance {
		return ConfigError{Field: "weights", Reason: fmt.Sprintf("weights must sum to 1.0, got %v", sum)}
	}
	return nil
}

// Normalize maps value onto [0,100] by linear interpolation between min and
// max, clamping outside the range. The degenerate case min == max returns the
// neutral midpoint 50 instead of dividing by zero.
func Normalize(value, min, max float64) float64 {
	if min == max {
		return 50
	}
	score := (value - min) / (max - min) * 100
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

// GradeScale holds the lower cutoff of each grade above D. A score maps to
// the highest grade whose cutoff it meets, so cutoffs must be descending.
type GradeScale struct {
	S float64
	A float64
	B float64
	C float64
}

// DefaultGradeScale is the global grade boundary set shared by all scorers
// unless a component documents its own cutoffs.
var DefaultGradeScale = GradeScale{S: 85, A: 70, B: 50, C: 30}

// Grade maps a 0–100 score onto a letter grade.
func (g GradeScale) Grade(score float64) models.Grade {
	switch {
	case score >= g.S:
		return models.GradeS
	case score >= g.A:
		return models.GradeA
	case score >= g.B:
		return models.GradeB
	case score >= g.C:
		return models.GradeC
	default:
		return models.GradeD
	}
}

// WeightedComposite combines component sub-scores into a single 0–100 value.
// Every component must have a matching key in the weight table; a missing
// weight is a ConfigError. The weight table itself is assumed to have been
// validated at load time.
func WeightedComposite(components map[string]float64, weights Weights) (float64, error) {
	composite := 0.0
	for name, score := range components {
		weight, ok := weights[name]
		if !ok {
			return 0, ConfigError{Field: name, Reason: "component has no matching weight"}
		}
		composite += score * weight
	}
	return composite, nil
}

// Compose builds the full score breakdown for a set of component sub-scores:
// the weighted composite plus its grade under the given scale.
func Compose(components map[string]float64, weights Weights, scale GradeScale) (models.ScoreBreakdown, error) {
	composite, err := WeightedComposite(components, weights)
	if err != nil {
		return models.ScoreBreakdown{}, err
	}

	// Copy both maps so the breakdown does not alias caller-owned state.
	scores := make(map[string]float64, len(components))
	for name, score := range components {
		scores[name] = score
	}
	table := make(map[string]float64, len(weights))
	for name, weight := range weights {
		table[name] = weight
	}

	return models.ScoreBreakdown{
		ComponentScores: scores,
		Weights:         table,
		CompositeScore:  composite,
		Grade:           scale.Grade(composite),
	}, nil
}
