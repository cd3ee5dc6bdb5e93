package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/signalfox/gamepulse/internal/config"
	"github.com/signalfox/gamepulse/internal/corefun"
	"github.com/signalfox/gamepulse/internal/correlation"
	"github.com/signalfox/gamepulse/internal/logger"
	"github.com/signalfox/gamepulse/internal/models"
	"github.com/signalfox/gamepulse/internal/persona"
	"github.com/signalfox/gamepulse/internal/retention"
	"github.com/signalfox/gamepulse/internal/steam"
	"github.com/signalfox/gamepulse/internal/storage"
	"github.com/signalfox/gamepulse/internal/telegram"
	"github.com/signalfox/gamepulse/internal/trending"
	"github.com/signalfox/gamepulse/internal/twitch"
	"github.com/signalfox/gamepulse/internal/volatility"
)

var configPath = flag.String("config", "configs/config.yaml", "Path to configuration file")

// analyzers bundles the analyzers that carry per-process configuration.
// Stateless analyzers (volatility, retention, correlation) are plain functions.
type analyzers struct {
	trending *trending.Scorer
	persona  *persona.Analyzer
	corefun  *corefun.Analyzer
}

// prevObservation carries the prior cycle's raw readings for delta signals
type prevObservation struct {
	ccu           int
	totalReviews  int
	reviewsGained int
	priceCents    int
}

func main() {
	flag.Parse()

	// Optional .env for local development
	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	logger.Init(cfg.Logging.Level, cfg.Logging.Format)
	logger.Info("Configuration loaded from %s", *configPath)

	store := storage.New(
		cfg.Storage.MaxGames,
		cfg.Storage.MaxSnapshotsPerGame,
		cfg.Storage.ResultTTL,
		cfg.Storage.FilePath,
	)
	if err := store.Load(); err != nil {
		logger.Warn("Failed to restore persisted state, starting fresh: %v", err)
	}
	defer func() {
		if err := store.Save(); err != nil {
			logger.Error("Failed to persist state on shutdown: %v", err)
		}
	}()

	steamClient := steam.NewClient(cfg.Steam)

	var twitchClient *twitch.Client
	if cfg.Twitch.Enabled {
		twitchClient = twitch.NewClient(cfg.Twitch, os.Getenv("GAMEPULSE_TWITCH_TOKEN"))
		logger.Info("Twitch client initialized")
	} else {
		logger.Debug("Twitch metrics disabled")
	}

	var telegramClient *telegram.Client
	if cfg.Telegram.Enabled {
		telegramClient, err = telegram.NewClient(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Telegram.MaxRetries, cfg.Telegram.RetryDelayBase)
		if err != nil {
			logger.Fatal("Failed to initialize Telegram client: %v", err)
		}
		logger.Info("Telegram client initialized")
	} else {
		logger.Debug("Telegram notifications disabled")
	}

	// Analyzer configuration is validated once at startup; a bad weight
	// table is fatal here rather than per cycle.
	ana, err := buildAnalyzers(cfg)
	if err != nil {
		logger.Fatal("Invalid analyzer configuration: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		logger.Info("Shutdown signal received, cleaning up...")
		cancel()
	}()

	logger.Info("Starting analysis service (apps: %d, interval: %v, correlation window: %dd)",
		len(cfg.Analysis.TrackedApps), cfg.Analysis.PollInterval, cfg.Analysis.CorrelationDays)

	ticker := time.NewTicker(cfg.Analysis.PollInterval)
	defer ticker.Stop()

	consecutiveFailures := 0
	prev := make(map[string]prevObservation)

	handleCycleResult := func(err error) {
		if err != nil {
			consecutiveFailures++
			logger.Error("Analysis cycle failed: %v", err)
			if consecutiveFailures == 1 && telegramClient != nil {
				if sendErr := telegramClient.SendError(consecutiveFailures, err); sendErr != nil {
					logger.Warn("Failed to send error notification: %v", sendErr)
				}
			}
		} else {
			if consecutiveFailures > 0 && telegramClient != nil {
				if sendErr := telegramClient.SendRecovery(); sendErr != nil {
					logger.Warn("Failed to send recovery notification: %v", sendErr)
				}
			}
			consecutiveFailures = 0
		}
	}

	// Run the first cycle immediately rather than waiting a full interval
	handleCycleResult(runCycle(ctx, cfg, steamClient, twitchClient, telegramClient, store, ana, prev, time.Now()))

	for {
		select {
		case <-ctx.Done():
			logger.Info("Service stopped")
			return

		case tickTime := <-ticker.C:
			handleCycleResult(runCycle(ctx, cfg, steamClient, twitchClient, telegramClient, store, ana, prev, tickTime))

			store.RotateSnapshots()
			store.RotateGames()
			if pruned := store.PruneResults(); pruned > 0 {
				logger.Debug("Pruned %d expired cached results", pruned)
			}
		}
	}
}

func buildAnalyzers(cfg *config.Config) (*analyzers, error) {
	trendingScorer, err := trending.New(cfg.Analysis.TrendingWeights)
	if err != nil {
		return nil, err
	}
	personaAnalyzer, err := persona.New(nil)
	if err != nil {
		return nil, err
	}
	corefunAnalyzer, err := corefun.New(nil, cfg.Analysis.CoreFunMinMatches)
	if err != nil {
		return nil, err
	}
	return &analyzers{
		trending: trendingScorer,
		persona:  personaAnalyzer,
		corefun:  corefunAnalyzer,
	}, nil
}

// runCycle fetches fresh telemetry for every tracked app, records it, and
// runs the full analyzer suite. Per-game failures are logged and skipped so
// one bad app does not starve the rest; the cycle fails only when every
// tracked app fails.
func runCycle(
	ctx context.Context,
	cfg *config.Config,
	steamClient *steam.Client,
	twitchClient *twitch.Client,
	telegramClient *telegram.Client,
	store *storage.Storage,
	ana *analyzers,
	prev map[string]prevObservation,
	cycleTime time.Time,
) error {
	startTime := time.Now()
	logger.Info("Starting analysis cycle")

	var digests []telegram.Digest
	succeeded := 0
	var lastErr error

	for _, appID := range cfg.Analysis.TrackedApps {
		digest, err := analyzeApp(ctx, cfg, steamClient, twitchClient, store, ana, prev, appID, cycleTime)
		if err != nil {
			logger.Warn("Analysis failed for app %s: %v", appID, err)
			lastErr = err
			continue
		}
		succeeded++
		if digest != nil {
			digests = append(digests, *digest)
		}
	}

	if succeeded == 0 && lastErr != nil {
		return fmt.Errorf("all %d tracked apps failed: %w", len(cfg.Analysis.TrackedApps), lastErr)
	}

	if len(digests) > 0 && telegramClient != nil {
		sort.Slice(digests, func(i, j int) bool {
			return digests[i].Composite > digests[j].Composite
		})
		if err := telegramClient.SendDigest(digests); err != nil {
			logger.Error("Failed to send digest: %v", err)
		} else {
			logger.Info("Sent digest with %d games", len(digests))
		}
	}

	logger.Info("Analysis cycle completed in %v (%d/%d apps)", time.Since(startTime), succeeded, len(cfg.Analysis.TrackedApps))
	return nil
}

func analyzeApp(
	ctx context.Context,
	cfg *config.Config,
	steamClient *steam.Client,
	twitchClient *twitch.Client,
	store *storage.Storage,
	ana *analyzers,
	prev map[string]prevObservation,
	appID string,
	cycleTime time.Time,
) (*telegram.Digest, error) {
	ccu, err := steamClient.FetchPlayerCount(ctx, appID)
	if err != nil {
		return nil, fmt.Errorf("player count: %w", err)
	}

	details, err := steamClient.FetchAppDetails(ctx, appID)
	if err != nil {
		return nil, fmt.Errorf("app details: %w", err)
	}

	reviews, summary, err := steamClient.FetchReviews(ctx, appID, cfg.Analysis.ReviewBatchSize)
	if err != nil {
		return nil, fmt.Errorf("reviews: %w", err)
	}

	newsSince := cycleTime.Add(-7 * 24 * time.Hour)
	newsCount, err := steamClient.FetchNewsCount(ctx, appID, newsSince)
	if err != nil {
		logger.Warn("News fetch failed for app %s, scoring without it: %v", appID, err)
		newsCount = 0
	}

	// Record the observation before analyzing so the series includes it.
	// Snapshots are stamped with the tick time, keeping sample spacing
	// independent of per-cycle processing latency.
	game := &models.Game{
		AppID:       appID,
		Name:        details.Name,
		CurrentCCU:  ccu,
		PeakCCU:     ccu,
		LastUpdated: cycleTime,
	}
	if err := store.UpsertGame(game); err != nil {
		return nil, fmt.Errorf("record game: %w", err)
	}

	prevObs, hasPrev := prev[appID]
	if !hasPrev {
		prevObs = prevObservation{ccu: ccu, totalReviews: summary.TotalReviews, priceCents: details.PriceCents}
	}
	// Review velocity compares consecutive per-cycle gains, not the
	// all-time total against a gain.
	reviewsGained := summary.TotalReviews - prevObs.totalReviews
	if reviewsGained < 0 {
		reviewsGained = 0
	}
	prev[appID] = prevObservation{
		ccu:           ccu,
		totalReviews:  summary.TotalReviews,
		reviewsGained: reviewsGained,
		priceCents:    details.PriceCents,
	}

	snap := &models.CCUSnapshot{AppID: appID, CCU: ccu, ReviewsGained: reviewsGained, Timestamp: cycleTime}
	if err := store.AddSnapshot(snap); err != nil {
		logger.Warn("Failed to record CCU snapshot for app %s: %v", appID, err)
	}

	if twitchClient != nil {
		stats, err := twitchClient.FetchStreamStats(ctx, appID)
		if err != nil {
			logger.Warn("Twitch fetch failed for app %s: %v", appID, err)
		} else {
			streamSnap := &models.StreamSnapshot{AppID: appID, Viewers: stats.ViewerCount, Streams: stats.StreamCount, Timestamp: cycleTime}
			if err := store.AddStreamSnapshot(streamSnap); err != nil {
				logger.Warn("Failed to record stream snapshot for app %s: %v", appID, err)
			}
		}
	}

	// Trending
	trendingIn := trending.Input{
		GameID:          appID,
		GameName:        details.Name,
		CurrentCCU:      ccu,
		PreviousCCU:     prevObs.ccu,
		RecentReviews:   reviewsGained,
		PreviousReviews: prevObs.reviewsGained,
		CurrentPrice:    float64(details.PriceCents) / 100,
		PreviousPrice:   float64(prevObs.priceCents) / 100,
		IsOnSale:        details.OnSale,
		DiscountPercent: details.DiscountPercent,
		NewsCount:       newsCount,
	}
	trendingRes, err := ana.trending.Analyze(trendingIn)
	if err != nil {
		return nil, fmt.Errorf("trending: %w", err)
	}
	store.PutResult("trending:"+appID, trendingRes)

	// Volatility over the correlation window's CCU series
	window := time.Duration(cfg.Analysis.CorrelationDays) * 24 * time.Hour
	series := store.SeriesInWindow(appID, window)
	peakCCU := ccu
	if stored, err := store.GetGame(appID); err == nil && stored.PeakCCU > peakCCU {
		peakCCU = stored.PeakCCU
	}
	volRes, err := volatility.Analyze(volatility.Input{
		GameID:     appID,
		GameName:   details.Name,
		Series:     series,
		CurrentCCU: float64(ccu),
		PeakCCU:    float64(peakCCU),
		Hourly:     hourlyAverages(store.GetSnapshotsInWindow(appID, window)),
	})
	if err != nil {
		return nil, fmt.Errorf("volatility: %w", err)
	}
	store.PutResult("volatility:"+appID, volRes)

	// Retention
	retRes, err := retention.Analyze(retention.Input{
		GameID:                appID,
		GameName:              details.Name,
		LifetimeAvgMinutes:    summary.LifetimeAvgMinutes,
		LifetimeMedianMinutes: summary.LifetimeMedianMinutes,
		RecentAvgMinutes:      summary.RecentAvgMinutes,
		RecentMedianMinutes:   summary.RecentMedianMinutes,
		CurrentCCU:            ccu,
		PositiveReviews:       summary.TotalPositive,
		NegativeReviews:       summary.TotalNegative,
	})
	if err != nil {
		return nil, fmt.Errorf("retention: %w", err)
	}
	store.PutResult("retention:"+appID, retRes)

	// Review text analyzers tolerate empty batches
	var noData models.NoDataError
	if personaRes, err := ana.persona.Analyze(appID, details.Name, reviews); err != nil {
		if !errors.As(err, &noData) {
			return nil, fmt.Errorf("persona: %w", err)
		}
		logger.Debug("Persona skipped for app %s: %v", appID, err)
	} else {
		store.PutResult("persona:"+appID, personaRes)
	}
	if funRes, err := ana.corefun.Analyze(appID, details.Name, reviews); err != nil {
		if !errors.As(err, &noData) {
			return nil, fmt.Errorf("corefun: %w", err)
		}
		logger.Debug("Core-fun skipped for app %s: %v", appID, err)
	} else {
		store.PutResult("corefun:"+appID, funRes)
	}

	// Streaming correlation, when daily history exists
	daily := buildDailyMetrics(
		store.GetSnapshotsInWindow(appID, window),
		store.GetStreamSnapshotsInWindow(appID, window),
	)
	corrRes, err := correlation.Analyze(details.Name, appID, daily, cfg.Analysis.CorrelationDays)
	if err != nil {
		return nil, fmt.Errorf("correlation: %w", err)
	}
	if corrRes.Message != "" {
		logger.Debug("Correlation degraded for app %s: %s", appID, corrRes.Message)
	}
	store.PutResult("correlation:"+appID, corrRes)

	logger.Info("Analyzed %s (%s): trending %.1f (%s), volatility %s, retention %s",
		details.Name, appID,
		trendingRes.Breakdown.CompositeScore, trendingRes.Breakdown.Grade,
		volRes.Band, retRes.Health)

	if gradeAtLeast(trendingRes.Breakdown.Grade, models.Grade(cfg.Analysis.DigestMinGrade)) {
		return &telegram.Digest{
			GameName:  details.Name,
			Composite: trendingRes.Breakdown.CompositeScore,
			Grade:     trendingRes.Breakdown.Grade,
			Signals:   trendingRes.Signals,
		}, nil
	}
	return nil, nil
}

// hourlyAverages buckets CCU snapshots by hour of day. It returns nil until
// a full day of distinct hours has been observed, so peak-hour estimates are
// never derived from a sliver of the day.
func hourlyAverages(snapshots []models.CCUSnapshot) map[int]float64 {
	sums := make(map[int]float64)
	counts := make(map[int]int)
	for _, snap := range snapshots {
		hour := snap.Timestamp.UTC().Hour()
		sums[hour] += float64(snap.CCU)
		counts[hour]++
	}
	if len(sums) < 24 {
		return nil
	}
	averages := make(map[int]float64, len(sums))
	for hour, sum := range sums {
		averages[hour] = sum / float64(counts[hour])
	}
	return averages
}

// buildDailyMetrics aggregates raw snapshots into per-day metrics aligned on
// UTC calendar days. Days without any CCU observation are dropped, and once
// stream data exists at all, days without a stream observation are dropped
// too so gaps do not read as zero viewership.
func buildDailyMetrics(ccu []models.CCUSnapshot, streams []models.StreamSnapshot) []correlation.DailyMetric {
	type dayAgg struct {
		ccuSum      float64
		ccuCount    int
		ccuPeak     float64
		reviews     int
		viewerSum   float64
		streamSum   float64
		streamCount int
	}

	days := make(map[string]*dayAgg)
	order := []string{}

	dayKey := func(t time.Time) string {
		return t.UTC().Format("2006-01-02")
	}

	for _, snap := range ccu {
		key := dayKey(snap.Timestamp)
		agg, ok := days[key]
		if !ok {
			agg = &dayAgg{}
			days[key] = agg
			order = append(order, key)
		}
		agg.ccuSum += float64(snap.CCU)
		agg.ccuCount++
		agg.reviews += snap.ReviewsGained
		if float64(snap.CCU) > agg.ccuPeak {
			agg.ccuPeak = float64(snap.CCU)
		}
	}

	for _, snap := range streams {
		if agg, ok := days[dayKey(snap.Timestamp)]; ok {
			agg.viewerSum += float64(snap.Viewers)
			agg.streamSum += float64(snap.Streams)
			agg.streamCount++
		}
	}

	sort.Strings(order)

	metrics := make([]correlation.DailyMetric, 0, len(order))
	for _, key := range order {
		agg := days[key]
		if len(streams) > 0 && agg.streamCount == 0 {
			continue
		}
		date, _ := time.Parse("2006-01-02", key)
		m := correlation.DailyMetric{
			Date:        date,
			CCUAvg:      agg.ccuSum / float64(agg.ccuCount),
			CCUPeak:     agg.ccuPeak,
			ReviewCount: agg.reviews,
		}
		if agg.streamCount > 0 {
			m.ViewersAvg = agg.viewerSum / float64(agg.streamCount)
			m.StreamsAvg = agg.streamSum / float64(agg.streamCount)
		}
		metrics = append(metrics, m)
	}
	return metrics
}

var gradeRank = map[models.Grade]int{
	models.GradeS: 4,
	models.GradeA: 3,
	models.GradeB: 2,
	models.GradeC: 1,
	models.GradeD: 0,
}

func gradeAtLeast(grade, floor models.Grade) bool {
	return gradeRank[grade] >= gradeRank[floor]
}
