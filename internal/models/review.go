package models

import "errors"

// ReviewRecord is a single player review as fetched from the review provider.
// Records arrive in batches (typically ≤200 per analysis run) and are never
// mutated by the analyzers.
type ReviewRecord struct {
	Text          string  `json:"text"`
	Recommended   bool    `json:"recommended"`
	PlaytimeHours float64 `json:"playtime_hours"`
	HelpfulVotes  int     `json:"helpful_votes,omitempty"`
}

// Validate checks that all review fields are valid.
func (r *ReviewRecord) Validate() error {
	if r.PlaytimeHours < 0 {
		return errors.New("playtime hours must not be negative")
	}
	if r.HelpfulVotes < 0 {
		return errors.New("helpful votes must not be negative")
	}
	return nil
}
