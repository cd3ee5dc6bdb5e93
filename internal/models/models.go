// Package models defines the core domain entities for the gamepulse analytics engine.
// These models represent raw telemetry observations, review records, and the shared
// score breakdown returned by the composite scorers. Input models include built-in
// validation to ensure data integrity before it reaches the analyzers.
//
// Terminology:
//   - CCU: concurrent users connected to a game at a point in time.
//   - Composite score: a single 0–100 value produced by weighting sub-scores.
//   - Grade: a coarse letter bucket (S/A/B/C/D) derived from a composite score.
//
// Every analysis result in this module is a plain immutable value record: it is
// created fresh on each invocation, owned by the caller, JSON-serializable, and
// free of cyclic references so it can cross process boundaries unmodified.
package models

import (
	"errors"
	"time"
)

// MetricPoint is a single time-stamped numeric observation (CCU, viewers, streams).
// It has no identity beyond timestamp+value.
type MetricPoint struct {
	Timestamp time.Time `json:"timestamp"`
	Value     float64   `json:"value"`
}

// Validate checks that a metric point is usable as analyzer input.
func (p *MetricPoint) Validate() error {
	if p.Timestamp.IsZero() {
		return errors.New("metric point timestamp must not be zero")
	}
	if p.Timestamp.After(time.Now()) {
		return errors.New("metric point timestamp must not be in the future")
	}
	if p.Value < 0 {
		return errors.New("metric point value must not be negative")
	}
	return nil
}

// Values extracts the raw values of a series, preserving order.
func Values(points []MetricPoint) []float64 {
	out := make([]float64, len(points))
	for i, p := range points {
		out[i] = p.Value
	}
	return out
}
