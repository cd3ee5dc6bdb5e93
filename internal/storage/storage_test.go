package storage

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/signalfox/gamepulse/internal/models"
)

func newTestStorage(t *testing.T) *Storage {
	t.Helper()
	return New(10, 5, time.Hour, filepath.Join(t.TempDir(), "data.json"))
}

func testGame(appID string) *models.Game {
	return &models.Game{
		AppID:       appID,
		Name:        "Test Game " + appID,
		CurrentCCU:  1000,
		PeakCCU:     5000,
		LastUpdated: time.Now(),
	}
}

func TestUpsertAndGetGame(t *testing.T) {
	s := newTestStorage(t)

	if err := s.UpsertGame(testGame("730")); err != nil {
		t.Fatalf("UpsertGame() error = %v", err)
	}

	game, err := s.GetGame("730")
	if err != nil {
		t.Fatalf("GetGame() error = %v", err)
	}
	if game.Name != "Test Game 730" {
		t.Errorf("Name = %q", game.Name)
	}
	if game.AddedAt.IsZero() {
		t.Error("AddedAt should be set on first upsert")
	}

	if _, err := s.GetGame("999"); err == nil {
		t.Error("GetGame() expected error for unknown app")
	}
}

func TestUpsertGamePreservesPeakAndAddedAt(t *testing.T) {
	s := newTestStorage(t)

	first := testGame("730")
	first.PeakCCU = 9000
	if err := s.UpsertGame(first); err != nil {
		t.Fatalf("UpsertGame() error = %v", err)
	}
	addedAt := first.AddedAt

	update := testGame("730")
	update.PeakCCU = 2000
	if err := s.UpsertGame(update); err != nil {
		t.Fatalf("UpsertGame() error = %v", err)
	}

	game, _ := s.GetGame("730")
	if game.PeakCCU != 9000 {
		t.Errorf("PeakCCU = %d, want retained 9000", game.PeakCCU)
	}
	if !game.AddedAt.Equal(addedAt) {
		t.Error("AddedAt should survive updates")
	}
}

func TestUpsertGameInvalid(t *testing.T) {
	s := newTestStorage(t)
	if err := s.UpsertGame(&models.Game{AppID: ""}); err == nil {
		t.Error("UpsertGame() expected error for empty app ID")
	}
}

func TestAddSnapshotRequiresGame(t *testing.T) {
	s := newTestStorage(t)

	snap := &models.CCUSnapshot{AppID: "730", CCU: 1200, Timestamp: time.Now()}
	if err := s.AddSnapshot(snap); err == nil {
		t.Error("AddSnapshot() expected error for untracked game")
	}

	if err := s.UpsertGame(testGame("730")); err != nil {
		t.Fatalf("UpsertGame() error = %v", err)
	}
	if err := s.AddSnapshot(snap); err != nil {
		t.Errorf("AddSnapshot() error = %v", err)
	}
}

func TestGetSnapshotsInWindow(t *testing.T) {
	s := newTestStorage(t)
	if err := s.UpsertGame(testGame("730")); err != nil {
		t.Fatalf("UpsertGame() error = %v", err)
	}

	now := time.Now()
	stamps := []time.Time{
		now.Add(-3 * time.Hour),
		now.Add(-30 * time.Minute),
		now.Add(-10 * time.Minute),
	}
	// Insert out of order to verify sorting
	for _, i := range []int{2, 0, 1} {
		snap := &models.CCUSnapshot{AppID: "730", CCU: 100 * (i + 1), Timestamp: stamps[i]}
		if err := s.AddSnapshot(snap); err != nil {
			t.Fatalf("AddSnapshot() error = %v", err)
		}
	}

	got := s.GetSnapshotsInWindow("730", time.Hour)
	if len(got) != 2 {
		t.Fatalf("got %d snapshots in window, want 2", len(got))
	}
	if !got[0].Timestamp.Before(got[1].Timestamp) {
		t.Error("snapshots not sorted ascending")
	}
	if got[0].CCU != 200 || got[1].CCU != 300 {
		t.Errorf("CCU values = %d, %d, want 200, 300", got[0].CCU, got[1].CCU)
	}
}

func TestSeriesInWindow(t *testing.T) {
	s := newTestStorage(t)
	if err := s.UpsertGame(testGame("730")); err != nil {
		t.Fatalf("UpsertGame() error = %v", err)
	}
	snap := &models.CCUSnapshot{AppID: "730", CCU: 1500, Timestamp: time.Now().Add(-time.Minute)}
	if err := s.AddSnapshot(snap); err != nil {
		t.Fatalf("AddSnapshot() error = %v", err)
	}

	points := s.SeriesInWindow("730", time.Hour)
	if len(points) != 1 {
		t.Fatalf("got %d points, want 1", len(points))
	}
	if points[0].Value != 1500.0 {
		t.Errorf("Value = %v, want 1500", points[0].Value)
	}
}

func TestResultCacheTTL(t *testing.T) {
	s := New(10, 5, 50*time.Millisecond, filepath.Join(t.TempDir(), "data.json"))

	s.PutResult("trending:730", "cached")

	if v, ok := s.GetResult("trending:730"); !ok || v != "cached" {
		t.Errorf("GetResult() = %v, %v, want cached, true", v, ok)
	}
	if _, ok := s.GetResult("missing"); ok {
		t.Error("GetResult() should miss for unknown key")
	}

	time.Sleep(60 * time.Millisecond)

	if _, ok := s.GetResult("trending:730"); ok {
		t.Error("GetResult() should miss after TTL expiry")
	}
}

func TestPruneResults(t *testing.T) {
	s := New(10, 5, 10*time.Millisecond, filepath.Join(t.TempDir(), "data.json"))
	s.PutResult("a", 1)
	s.PutResult("b", 2)

	time.Sleep(20 * time.Millisecond)

	if pruned := s.PruneResults(); pruned != 2 {
		t.Errorf("PruneResults() = %d, want 2", pruned)
	}
}

func TestSaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.json")
	s := New(10, 5, time.Hour, path)

	if err := s.UpsertGame(testGame("730")); err != nil {
		t.Fatalf("UpsertGame() error = %v", err)
	}
	snap := &models.CCUSnapshot{AppID: "730", CCU: 1200, Timestamp: time.Now()}
	if err := s.AddSnapshot(snap); err != nil {
		t.Fatalf("AddSnapshot() error = %v", err)
	}
	s.PutResult("key", "transient")

	if err := s.Save(); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	restored := New(10, 5, time.Hour, path)
	if err := restored.Load(); err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	game, err := restored.GetGame("730")
	if err != nil {
		t.Fatalf("GetGame() after load error = %v", err)
	}
	if game.CurrentCCU != 1000 {
		t.Errorf("CurrentCCU = %d, want 1000", game.CurrentCCU)
	}
	if got := restored.GetSnapshots("730"); len(got) != 1 {
		t.Errorf("got %d snapshots after load, want 1", len(got))
	}
	// Cached results never survive a restart
	if _, ok := restored.GetResult("key"); ok {
		t.Error("cached result should not be persisted")
	}
}

func TestLoadMissingFileStartsFresh(t *testing.T) {
	s := New(10, 5, time.Hour, filepath.Join(t.TempDir(), "missing.json"))
	if err := s.Load(); err != nil {
		t.Errorf("Load() error = %v, want nil for missing file", err)
	}
}

func TestRotateSnapshots(t *testing.T) {
	s := newTestStorage(t)
	if err := s.UpsertGame(testGame("730")); err != nil {
		t.Fatalf("UpsertGame() error = %v", err)
	}

	base := time.Now().Add(-time.Hour)
	for i := 0; i < 8; i++ {
		snap := &models.CCUSnapshot{AppID: "730", CCU: i + 1, Timestamp: base.Add(time.Duration(i) * time.Minute)}
		if err := s.AddSnapshot(snap); err != nil {
			t.Fatalf("AddSnapshot() error = %v", err)
		}
	}

	s.RotateSnapshots()

	got := s.GetSnapshots("730")
	if len(got) != 5 {
		t.Fatalf("got %d snapshots after rotation, want 5", len(got))
	}
	// The most recent snapshots survive
	if got[0].CCU != 4 || got[4].CCU != 8 {
		t.Errorf("kept CCUs %d..%d, want 4..8", got[0].CCU, got[4].CCU)
	}
}

func TestRotateGames(t *testing.T) {
	s := New(2, 5, time.Hour, filepath.Join(t.TempDir(), "data.json"))

	for i, appID := range []string{"100", "200", "300"} {
		g := testGame(appID)
		g.LastUpdated = time.Now().Add(time.Duration(i) * time.Minute)
		if err := s.UpsertGame(g); err != nil {
			t.Fatalf("UpsertGame() error = %v", err)
		}
	}

	s.RotateGames()

	if len(s.GetAllGames()) != 2 {
		t.Fatalf("got %d games after rotation, want 2", len(s.GetAllGames()))
	}
	// The least recently updated game is evicted
	if _, err := s.GetGame("100"); err == nil {
		t.Error("oldest game should have been rotated out")
	}
	if _, err := s.GetGame("300"); err != nil {
		t.Error("newest game should survive rotation")
	}
}
