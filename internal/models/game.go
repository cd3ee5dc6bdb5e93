package models

import (
	"fmt"
	"time"
)

// Game represents a tracked game and its rolling telemetry summary
type Game struct {
	AppID       string    `json:"app_id"`
	Name        string    `json:"name"`
	CurrentCCU  int       `json:"current_ccu"`
	PeakCCU     int       `json:"peak_ccu"`
	LastUpdated time.Time `json:"last_updated"`
	AddedAt     time.Time `json:"added_at"`
}

// Validate checks that the game has valid field values
func (g *Game) Validate() error {
	if g.AppID == "" {
		return fmt.Errorf("game app ID cannot be empty")
	}
	if g.CurrentCCU < 0 {
		return fmt.Errorf("game current CCU cannot be negative")
	}
	if g.PeakCCU < 0 {
		return fmt.Errorf("game peak CCU cannot be negative")
	}
	return nil
}

// CCUSnapshot represents one concurrent-player observation for a game
type CCUSnapshot struct {
	AppID         string    `json:"app_id"`
	CCU           int       `json:"ccu"`
	ReviewsGained int       `json:"reviews_gained,omitempty"`
	Timestamp     time.Time `json:"timestamp"`
}

// Validate checks that the snapshot has valid field values
func (s *CCUSnapshot) Validate() error {
	if s.AppID == "" {
		return fmt.Errorf("snapshot app ID cannot be empty")
	}
	if s.CCU < 0 {
		return fmt.Errorf("snapshot CCU cannot be negative")
	}
	if s.Timestamp.IsZero() {
		return fmt.Errorf("snapshot timestamp cannot be zero")
	}
	return nil
}

// StreamSnapshot represents one streaming-audience observation for a game
type StreamSnapshot struct {
	AppID     string    `json:"app_id"`
	Viewers   int       `json:"viewers"`
	Streams   int       `json:"streams"`
	Timestamp time.Time `json:"timestamp"`
}

// Validate checks that the snapshot has valid field values
func (s *StreamSnapshot) Validate() error {
	if s.AppID == "" {
		return fmt.Errorf("stream snapshot app ID cannot be empty")
	}
	if s.Viewers < 0 || s.Streams < 0 {
		return fmt.Errorf("stream snapshot counts cannot be negative")
	}
	if s.Timestamp.IsZero() {
		return fmt.Errorf("stream snapshot timestamp cannot be zero")
	}
	return nil
}
