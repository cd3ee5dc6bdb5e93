package models

import "errors"

// Grade is a coarse letter bucket derived from a 0–100 composite score.
type Grade string

const (
	GradeS Grade = "S"
	GradeA Grade = "A"
	GradeB Grade = "B"
	GradeC Grade = "C"
	GradeD Grade = "D"
)

// ScoreBreakdown is the shared output shape of every composite scorer.
// ComponentScores holds each sub-score on the 0–100 scale, Weights the
// weight applied to it, and CompositeScore the weighted sum.
type ScoreBreakdown struct {
	ComponentScores map[string]float64 `json:"component_scores"`
	Weights         map[string]float64 `json:"weights"`
	CompositeScore  float64            `json:"composite_score"`
	Grade           Grade              `json:"grade"`
}

// Validate checks the internal consistency of a score breakdown.
func (b *ScoreBreakdown) Validate() error {
	if b.CompositeScore < 0.0 || b.CompositeScore > 100.0 {
		return errors.New("composite score must be between 0 and 100")
	}
	for name, score := range b.ComponentScores {
		if score < 0.0 || score > 100.0 {
			return errors.New("component score must be between 0 and 100: " + name)
		}
		if _, ok := b.Weights[name]; !ok {
			return errors.New("component has no matching weight: " + name)
		}
	}
	switch b.Grade {
	case GradeS, GradeA, GradeB, GradeC, GradeD:
	default:
		return errors.New("grade must be one of S, A, B, C, D")
	}
	return nil
}
