// Package storage provides thread-safe in-memory storage with file-based persistence.
// It manages tracked games, CCU snapshot history, and a TTL cache of analysis
// results, with rotation to prevent unbounded memory growth.
//
// Data is persisted to a JSON file with atomic writes and restored on
// application restart. Cached analysis results are transient and never
// persisted.
package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/signalfox/gamepulse/internal/models"
)

// Storage provides thread-safe in-memory storage with file-based persistence
type Storage struct {
	games     map[string]*models.Game
	snapshots map[string][]models.CCUSnapshot
	streams   map[string][]models.StreamSnapshot
	results   map[string]cachedResult
	mu        sync.RWMutex

	// Configuration
	maxGames            int
	maxSnapshotsPerGame int
	resultTTL           time.Duration
	filePath            string
}

type cachedResult struct {
	value     interface{}
	expiresAt time.Time
}

// PersistenceFile represents the file structure for JSON persistence
type PersistenceFile struct {
	Version   string                             `json:"version"`
	SavedAt   time.Time                          `json:"saved_at"`
	Games     map[string]*models.Game            `json:"games"`
	Snapshots map[string][]models.CCUSnapshot    `json:"snapshots"`
	Streams   map[string][]models.StreamSnapshot `json:"streams"`
}

// New creates a new Storage instance. If filePath is empty, an
// OS-appropriate tmp directory is used.
func New(maxGames, maxSnapshotsPerGame int, resultTTL time.Duration, filePath string) *Storage {
	if filePath == "" {
		filePath = filepath.Join(os.TempDir(), "gamepulse", "data.json")
	}

	return &Storage{
		games:               make(map[string]*models.Game),
		snapshots:           make(map[string][]models.CCUSnapshot),
		streams:             make(map[string][]models.StreamSnapshot),
		results:             make(map[string]cachedResult),
		maxGames:            maxGames,
		maxSnapshotsPerGame: maxSnapshotsPerGame,
		resultTTL:           resultTTL,
		filePath:            filePath,
	}
}

// UpsertGame adds a game to storage or refreshes an existing entry
func (s *Storage) UpsertGame(game *models.Game) error {
	if err := game.Validate(); err != nil {
		return fmt.Errorf("invalid game: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.games[game.AppID]; ok {
		if game.AddedAt.IsZero() {
			game.AddedAt = existing.AddedAt
		}
		if game.PeakCCU < existing.PeakCCU {
			game.PeakCCU = existing.PeakCCU
		}
	} else if game.AddedAt.IsZero() {
		game.AddedAt = time.Now()
	}

	s.games[game.AppID] = game
	return nil
}

// GetGame retrieves a game by app ID
func (s *Storage) GetGame(appID string) (*models.Game, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	game, exists := s.games[appID]
	if !exists {
		return nil, fmt.Errorf("game not found: %s", appID)
	}
	return game, nil
}

// GetAllGames returns all tracked games
func (s *Storage) GetAllGames() []*models.Game {
	s.mu.RLock()
	defer s.mu.RUnlock()

	games := make([]*models.Game, 0, len(s.games))
	for _, game := range s.games {
		games = append(games, game)
	}
	return games
}

// AddSnapshot records a CCU observation for a tracked game
func (s *Storage) AddSnapshot(snapshot *models.CCUSnapshot) error {
	if err := snapshot.Validate(); err != nil {
		return fmt.Errorf("invalid snapshot: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.games[snapshot.AppID]; !exists {
		return fmt.Errorf("game not found: %s", snapshot.AppID)
	}

	s.snapshots[snapshot.AppID] = append(s.snapshots[snapshot.AppID], *snapshot)
	return nil
}

// GetSnapshots retrieves all snapshots for a game, oldest first
func (s *Storage) GetSnapshots(appID string) []models.CCUSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snapshots, exists := s.snapshots[appID]
	if !exists {
		return []models.CCUSnapshot{}
	}

	out := make([]models.CCUSnapshot, len(snapshots))
	copy(out, snapshots)
	return out
}

// GetSnapshotsInWindow retrieves snapshots within a time window for a game,
// sorted by timestamp ascending
func (s *Storage) GetSnapshotsInWindow(appID string, window time.Duration) []models.CCUSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snapshots, exists := s.snapshots[appID]
	if !exists {
		return []models.CCUSnapshot{}
	}

	now := time.Now()
	var filtered []models.CCUSnapshot
	for _, snapshot := range snapshots {
		if now.Sub(snapshot.Timestamp) <= window {
			filtered = append(filtered, snapshot)
		}
	}

	sort.Slice(filtered, func(i, j int) bool {
		return filtered[i].Timestamp.Before(filtered[j].Timestamp)
	})

	return filtered
}

// AddStreamSnapshot records a streaming-audience observation for a tracked game
func (s *Storage) AddStreamSnapshot(snapshot *models.StreamSnapshot) error {
	if err := snapshot.Validate(); err != nil {
		return fmt.Errorf("invalid stream snapshot: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.games[snapshot.AppID]; !exists {
		return fmt.Errorf("game not found: %s", snapshot.AppID)
	}

	s.streams[snapshot.AppID] = append(s.streams[snapshot.AppID], *snapshot)
	return nil
}

// GetStreamSnapshotsInWindow retrieves stream snapshots within a time window
// for a game, sorted by timestamp ascending
func (s *Storage) GetStreamSnapshotsInWindow(appID string, window time.Duration) []models.StreamSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snapshots, exists := s.streams[appID]
	if !exists {
		return []models.StreamSnapshot{}
	}

	now := time.Now()
	var filtered []models.StreamSnapshot
	for _, snapshot := range snapshots {
		if now.Sub(snapshot.Timestamp) <= window {
			filtered = append(filtered, snapshot)
		}
	}

	sort.Slice(filtered, func(i, j int) bool {
		return filtered[i].Timestamp.Before(filtered[j].Timestamp)
	})

	return filtered
}

// SeriesInWindow returns the snapshots in the window as metric points,
// ready for the analyzers.
func (s *Storage) SeriesInWindow(appID string, window time.Duration) []models.MetricPoint {
	snapshots := s.GetSnapshotsInWindow(appID, window)
	points := make([]models.MetricPoint, 0, len(snapshots))
	for _, snap := range snapshots {
		points = append(points, models.MetricPoint{
			Timestamp: snap.Timestamp,
			Value:     float64(snap.CCU),
		})
	}
	return points
}

// PutResult caches an analysis result under a key until the TTL expires
func (s *Storage) PutResult(key string, value interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.results[key] = cachedResult{
		value:     value,
		expiresAt: time.Now().Add(s.resultTTL),
	}
}

// GetResult retrieves a cached analysis result. Expired entries are
// removed and reported as missing.
func (s *Storage) GetResult(key string) (interface{}, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, exists := s.results[key]
	if !exists {
		return nil, false
	}
	if time.Now().After(entry.expiresAt) {
		delete(s.results, key)
		return nil, false
	}
	return entry.value, true
}

// PruneResults drops all expired cache entries
func (s *Storage) PruneResults() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	pruned := 0
	for key, entry := range s.results {
		if now.After(entry.expiresAt) {
			delete(s.results, key)
			pruned++
		}
	}
	return pruned
}

// Save persists storage state to file
func (s *Storage) Save() error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	dir := filepath.Dir(s.filePath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}

	data := PersistenceFile{
		Version:   "1.0",
		SavedAt:   time.Now(),
		Games:     s.games,
		Snapshots: s.snapshots,
		Streams:   s.streams,
	}

	jsonData, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal data: %w", err)
	}

	// Write to temporary file first (atomic write)
	tempPath := s.filePath + ".tmp"
	if err := os.WriteFile(tempPath, jsonData, 0o644); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}

	if err := os.Rename(tempPath, s.filePath); err != nil {
		_ = os.Remove(tempPath)
		return fmt.Errorf("failed to rename file: %w", err)
	}

	return nil
}

// Load restores storage state from file
func (s *Storage) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Clean up any stale temp files from previous crashes
	tempPath := s.filePath + ".tmp"
	if _, err := os.Stat(tempPath); err == nil {
		_ = os.Remove(tempPath)
	}

	if _, err := os.Stat(s.filePath); os.IsNotExist(err) {
		// No file to load, start fresh
		return nil
	}

	jsonData, err := os.ReadFile(s.filePath)
	if err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}

	var data PersistenceFile
	if err := json.Unmarshal(jsonData, &data); err != nil {
		return fmt.Errorf("failed to unmarshal data: %w", err)
	}

	s.games = data.Games
	if s.games == nil {
		s.games = make(map[string]*models.Game)
	}

	s.snapshots = data.Snapshots
	if s.snapshots == nil {
		s.snapshots = make(map[string][]models.CCUSnapshot)
	}

	s.streams = data.Streams
	if s.streams == nil {
		s.streams = make(map[string][]models.StreamSnapshot)
	}

	// Cached results are transient, start empty
	s.results = make(map[string]cachedResult)

	return nil
}

// RotateSnapshots removes old snapshots exceeding the per-game limit
func (s *Storage) RotateSnapshots() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for appID, snapshots := range s.snapshots {
		if len(snapshots) > s.maxSnapshotsPerGame {
			start := len(snapshots) - s.maxSnapshotsPerGame
			s.snapshots[appID] = snapshots[start:]
		}
	}
	for appID, snapshots := range s.streams {
		if len(snapshots) > s.maxSnapshotsPerGame {
			start := len(snapshots) - s.maxSnapshotsPerGame
			s.streams[appID] = snapshots[start:]
		}
	}
}

// RotateGames removes the least recently updated games when exceeding the limit
func (s *Storage) RotateGames() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.games) <= s.maxGames {
		return
	}

	type gameWithTime struct {
		appID       string
		lastUpdated time.Time
	}

	var gameList []gameWithTime
	for appID, game := range s.games {
		gameList = append(gameList, gameWithTime{appID: appID, lastUpdated: game.LastUpdated})
	}

	sort.Slice(gameList, func(i, j int) bool {
		return gameList[i].lastUpdated.Before(gameList[j].lastUpdated)
	})

	toRemove := len(s.games) - s.maxGames
	for i := 0; i < toRemove; i++ {
		appID := gameList[i].appID
		delete(s.games, appID)
		delete(s.snapshots, appID)
		delete(s.streams, appID)
	}
}
