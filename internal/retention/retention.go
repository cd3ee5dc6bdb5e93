// Package retention measures how much of a game's lifetime engagement is
// still happening now:
//
//	retention index = recentAvgPlaytime / lifetimeAvgPlaytime × 100
//
// (0 when the lifetime average is 0). The index grades on its own scale
// (S ≥ 80, A ≥ 50, B ≥ 30, C ≥ 15, D otherwise), distinct from the generic
// framework thresholds, because even a healthy live game rarely keeps its
// recent window near its lifetime average.
//
// An engagement score folds in the active-player ratio, review positivity,
// and lifetime playtime depth:
//
//	engagement = min(activeRatio×30, 30) + positiveRate×0.3 + playtimeScore×0.4
//
// where activeRatio = CCU/ownerMidpoint×100 (its contribution is capped),
// positiveRate is the positive-review percentage, and playtimeScore treats
// 50 lifetime hours as 100 points. Health status averages retention index
// and engagement through five bands.
package retention

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/signalfox/gamepulse/internal/models"
	"github.com/signalfox/gamepulse/internal/scoring"
)

// GradeScale is the retention-specific grade boundary set.
var GradeScale = scoring.GradeScale{S: 80, A: 50, B: 30, C: 15}

// Health is the coarse classification of retention + engagement combined.
type Health string

const (
	HealthThriving  Health = "thriving"
	HealthHealthy   Health = "healthy"
	HealthStable    Health = "stable"
	HealthDeclining Health = "declining"
	HealthCritical  Health = "critical"
)

// PlayerBase is the coarse classification of the CCU/owner ratio.
type PlayerBase string

const (
	PlayerBaseHighlyActive PlayerBase = "highly_active"
	PlayerBaseActive       PlayerBase = "active"
	PlayerBaseSteady       PlayerBase = "steady"
	PlayerBaseDormant      PlayerBase = "dormant"
)

// Input carries one game's playtime, ownership, and review-count telemetry.
// Playtime figures are minutes, as the provider reports them. OwnersRange is
// the provider's "min .. max" estimate string (e.g. "20,000,000 .. 50,000,000").
type Input struct {
	GameID   string `json:"game_id"`
	GameName string `json:"game_name"`

	LifetimeAvgMinutes    float64 `json:"lifetime_avg_minutes"`
	LifetimeMedianMinutes float64 `json:"lifetime_median_minutes"`
	RecentAvgMinutes      float64 `json:"recent_avg_minutes"`
	RecentMedianMinutes   float64 `json:"recent_median_minutes"`

	OwnersRange     string `json:"owners_range"`
	CurrentCCU      int    `json:"current_ccu"`
	PositiveReviews int    `json:"positive_reviews"`
	NegativeReviews int    `json:"negative_reviews"`
}

// Validate checks the input for nonsense values.
func (in *Input) Validate() error {
	if in.GameID == "" {
		return errors.New("game ID must not be empty")
	}
	if in.LifetimeAvgMinutes < 0 || in.LifetimeMedianMinutes < 0 ||
		in.RecentAvgMinutes < 0 || in.RecentMedianMinutes < 0 {
		return errors.New("playtime minutes must not be negative")
	}
	if in.CurrentCCU < 0 {
		return errors.New("current CCU must not be negative")
	}
	if in.PositiveReviews < 0 || in.NegativeReviews < 0 {
		return errors.New("review counts must not be negative")
	}
	return nil
}

// Result is the retention analysis for one game.
type Result struct {
	ID       string `json:"id"`
	GameID   string `json:"game_id"`
	GameName string `json:"game_name"`
	Version  string `json:"version"`

	RetentionIndex  float64      `json:"retention_index"`
	Grade           models.Grade `json:"grade"`
	EngagementScore float64      `json:"engagement_score"`
	Health          Health       `json:"health"`

	// AvgMedianRatio is lifetime average over lifetime median playtime; high
	// values signal heavy-user dependency. RecentAvgMedianRatio is the same
	// ratio over the recent window, showing whether current activity is
	// carried by a few heavy users. Both are 0 when their median is 0.
	AvgMedianRatio       float64 `json:"avg_median_ratio"`
	RecentAvgMedianRatio float64 `json:"recent_avg_median_ratio"`

	OwnerMidpoint float64    `json:"owner_midpoint"`
	ActiveRatio   float64    `json:"active_ratio"`
	PlayerBase    PlayerBase `json:"player_base"`

	Signals    []string  `json:"signals"`
	AnalyzedAt time.Time `json:"analyzed_at"`
}

const resultVersion = "retention/1"

// ParseOwnersRange parses a "min .. max" owner-count estimate into its
// midpoint. Thousands separators are stripped. Malformed input returns 0
// rather than an error: a missing owner estimate is a neutral signal.
func ParseOwnersRange(s string) float64 {
	parts := strings.Split(s, "..")
	if len(parts) != 2 {
		return 0
	}
	lo, err1 := parseCount(parts[0])
	hi, err2 := parseCount(parts[1])
	if err1 != nil || err2 != nil || lo < 0 || hi < lo {
		return 0
	}
	return (lo + hi) / 2
}

func parseCount(s string) (float64, error) {
	cleaned := strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	return strconv.ParseFloat(cleaned, 64)
}

// Index returns the retention index, 0 when the lifetime average is 0
// regardless of the recent-window value.
func Index(recentAvgMinutes, lifetimeAvgMinutes float64) float64 {
	if lifetimeAvgMinutes == 0 {
		return 0
	}
	return recentAvgMinutes / lifetimeAvgMinutes * 100
}

// EngagementScore combines active-player ratio, review positivity, and
// playtime depth onto a 0–100 scale. The exact arithmetic is part of the
// contract: activeRatio×30 capped at 30, positiveRate×0.3, playtimeScore×0.4.
func EngagementScore(activeRatio, positiveRate, lifetimeAvgMinutes float64) float64 {
	active := math.Min(activeRatio*30, 30)

	// 50 lifetime hours ⇒ playtimeScore 100.
	playtimeScore := math.Min(lifetimeAvgMinutes/60/50*100, 100)

	return active + positiveRate*0.3 + playtimeScore*0.4
}

// HealthFor maps the average of retention index and engagement score onto
// the five health bands.
func HealthFor(retentionIndex, engagement float64) Health {
	avg := (retentionIndex + engagement) / 2
	switch {
	case avg >= 70:
		return HealthThriving
	case avg >= 50:
		return HealthHealthy
	case avg >= 30:
		return HealthStable
	case avg >= 15:
		return HealthDeclining
	default:
		return HealthCritical
	}
}

// classifyPlayerBase buckets the active-player percentage (CCU as a percent
// of owner midpoint). A large live game keeps roughly 1%+ of owners online.
func classifyPlayerBase(activeRatio float64) PlayerBase {
	switch {
	case activeRatio >= 1.0:
		return PlayerBaseHighlyActive
	case activeRatio >= 0.2:
		return PlayerBaseActive
	case activeRatio >= 0.05:
		return PlayerBaseSteady
	default:
		return PlayerBaseDormant
	}
}

// Analyze computes the retention profile for one game.
func Analyze(in Input) (Result, error) {
	if err := in.Validate(); err != nil {
		return Result{}, fmt.Errorf("invalid retention input: %w", err)
	}

	index := Index(in.RecentAvgMinutes, in.LifetimeAvgMinutes)

	ownerMid := ParseOwnersRange(in.OwnersRange)
	activeRatio := 0.0
	if ownerMid > 0 {
		activeRatio = float64(in.CurrentCCU) / ownerMid * 100
	}

	positiveRate := 0.0
	if total := in.PositiveReviews + in.NegativeReviews; total > 0 {
		positiveRate = float64(in.PositiveReviews) / float64(total) * 100
	}

	engagement := EngagementScore(activeRatio, positiveRate, in.LifetimeAvgMinutes)

	avgMedianRatio := 0.0
	if in.LifetimeMedianMinutes > 0 {
		avgMedianRatio = in.LifetimeAvgMinutes / in.LifetimeMedianMinutes
	}
	recentRatio := 0.0
	if in.RecentMedianMinutes > 0 {
		recentRatio = in.RecentAvgMinutes / in.RecentMedianMinutes
	}

	health := HealthFor(index, engagement)
	base := classifyPlayerBase(activeRatio)

	return Result{
		ID:                   uuid.New().String(),
		GameID:               in.GameID,
		GameName:             in.GameName,
		Version:              resultVersion,
		RetentionIndex:       index,
		Grade:                GradeScale.Grade(index),
		EngagementScore:      engagement,
		Health:               health,
		AvgMedianRatio:       avgMedianRatio,
		RecentAvgMedianRatio: recentRatio,
		OwnerMidpoint:        ownerMid,
		ActiveRatio:          activeRatio,
		PlayerBase:           base,
		Signals:              buildSignals(index, health, base, avgMedianRatio, recentRatio),
		AnalyzedAt:           time.Now(),
	}, nil
}

func buildSignals(index float64, health Health, base PlayerBase, avgMedianRatio, recentRatio float64) []string {
	signals := []string{fmt.Sprintf("retention index %.1f (%s)", index, health)}
	switch base {
	case PlayerBaseHighlyActive:
		signals = append(signals, "unusually large share of owners playing")
	case PlayerBaseDormant:
		signals = append(signals, "owned but rarely played")
	}
	if avgMedianRatio >= 3 {
		signals = append(signals, fmt.Sprintf("heavy-user dependency (avg/median %.1fx)", avgMedianRatio))
	}
	if recentRatio >= 3 {
		signals = append(signals, fmt.Sprintf("recent activity carried by heavy users (avg/median %.1fx)", recentRatio))
	}
	return signals
}
