package filestore

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"code-lottery-go/internal/models"
	"code-lottery-go/internal/store"
)

func setupStore(t *testing.T, mode PublishMode) (*Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "data.json")
	s, err := Open(path, Options{PublishMode: mode})
	if err != nil {
		t.Fatalf("Failed to open store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s, path
}

func sampleState(marker string) *models.State {
	st := models.NewState()
	st.Pool(models.TierRegistration).Available = []string{"REG-" + marker + "-1", "REG-" + marker + "-2"}
	st.Pool(models.TierGold).Available = []string{"GOLD-" + marker}
	st.Pool(models.TierBlue).Used["BLUE-"+marker] = models.UsedRecord{
		UserID:     "1001",
		ConsumedAt: time.Date(2025, 3, 3, 10, 0, 0, 0, time.UTC),
	}
	code := "REG-" + marker + "-0"
	st.Users["1001"] = &models.UserAccount{
		Registered:       true,
		RegistrationCode: &code,
		TotalDraws:       3,
		WeekDraws:        1,
		PityCounter:      2,
		LastWeekReset:    time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC),
		LastDayReset:     time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC),
	}
	st.Blacklist["2002"] = struct{}{}
	note := "maintenance at " + marker
	st.Announcement = &note
	st.History = []models.HistoryEntry{{ID: "h1", UserID: "1001", Tier: models.TierBlue, CodeDigest: "BLUE****"}}
	return st
}

func TestStore_LoadMissingIsFresh(t *testing.T) {
	s, _ := setupStore(t, ModeReplace)

	st, report, err := s.Load(context.Background())
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if !report.Fresh {
		t.Error("Expected fresh report for missing files")
	}
	if st.Config != models.DefaultLotteryConfig() {
		t.Errorf("Expected default config, got %+v", st.Config)
	}
	if len(st.Pools) != len(models.AllTiers) {
		t.Errorf("Expected %d pools, got %d", len(models.AllTiers), len(st.Pools))
	}
}

func TestStore_SaveLoadRoundTrip(t *testing.T) {
	s, _ := setupStore(t, ModeReplace)
	ctx := context.Background()

	if err := s.Save(ctx, sampleState("a")); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	st, report, err := s.Load(ctx)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if report.Fresh || report.Recovered || len(report.Warnings) != 0 {
		t.Errorf("Expected clean load, got %+v", report)
	}

	if got := st.Pool(models.TierRegistration).Available; len(got) != 2 || got[0] != "REG-a-1" {
		t.Errorf("Unexpected registration pool: %v", got)
	}
	if _, ok := st.Pool(models.TierBlue).Used["BLUE-a"]; !ok {
		t.Error("Expected used record to survive round trip")
	}
	u := st.Users["1001"]
	if u == nil || !u.Registered || u.RegistrationCode == nil || *u.RegistrationCode != "REG-a-0" {
		t.Fatalf("Unexpected user: %+v", u)
	}
	if u.PityCounter != 2 || u.TotalDraws != 3 {
		t.Errorf("Unexpected counters: %+v", u)
	}
	if _, ok := st.Blacklist["2002"]; !ok {
		t.Error("Expected blacklist entry")
	}
	if st.Announcement == nil || *st.Announcement != "maintenance at a" {
		t.Errorf("Unexpected announcement: %v", st.Announcement)
	}
	if len(st.History) != 1 {
		t.Errorf("Expected 1 history entry, got %d", len(st.History))
	}
}

func TestStore_NoTempFilesLeftBehind(t *testing.T) {
	s, path := setupStore(t, ModeReplace)
	ctx := context.Background()

	for _, m := range []string{"a", "b", "c"} {
		if err := s.Save(ctx, sampleState(m)); err != nil {
			t.Fatalf("Save failed: %v", err)
		}
	}

	entries, err := os.ReadDir(filepath.Dir(path))
	if err != nil {
		t.Fatalf("ReadDir failed: %v", err)
	}
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), ".tmp") || strings.HasSuffix(e.Name(), ".link") {
			t.Errorf("Unexpected leftover file %s", e.Name())
		}
	}
}

func TestStore_RecoversFromInterruptedBackupPublish(t *testing.T) {
	s, path := setupStore(t, ModeBackup)
	ctx := context.Background()

	if err := s.Save(ctx, sampleState("a")); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if err := s.Save(ctx, sampleState("b")); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	// Crash after the live file was moved to the backup and while the
	// replacement was only partly written.
	if err := os.Remove(BackupPath(path)); err != nil {
		t.Fatalf("Failed to remove backup: %v", err)
	}
	if err := os.Rename(path, BackupPath(path)); err != nil {
		t.Fatalf("Failed to move live file: %v", err)
	}
	if err := os.WriteFile(path, []byte(`{"pools": {"gold": {"avail`), 0o644); err != nil {
		t.Fatalf("Failed to write truncated file: %v", err)
	}

	st, report, err := s.Load(ctx)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if !report.Recovered {
		t.Error("Expected recovery from backup")
	}
	if got := st.Pool(models.TierGold).Available; len(got) != 1 || got[0] != "GOLD-b" {
		t.Errorf("Expected last committed state, got gold pool %v", got)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read repaired file: %v", err)
	}
	if !json.Valid(data) {
		t.Error("Expected live file to be repaired")
	}
}

func TestStore_ReplaceModeKeepsPreviousVersion(t *testing.T) {
	s, path := setupStore(t, ModeReplace)
	ctx := context.Background()

	if err := s.Save(ctx, sampleState("a")); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if err := s.Save(ctx, sampleState("b")); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	if err := os.WriteFile(path, nil, 0o644); err != nil {
		t.Fatalf("Failed to truncate live file: %v", err)
	}

	st, report, err := s.Load(ctx)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if !report.Recovered {
		t.Error("Expected recovery from backup")
	}
	if got := st.Pool(models.TierGold).Available; len(got) != 1 || got[0] != "GOLD-a" {
		t.Errorf("Expected previous version, got gold pool %v", got)
	}

	// The repair must not overwrite the good backup with the damaged file.
	bak, err := os.ReadFile(BackupPath(path))
	if err != nil {
		t.Fatalf("Failed to read backup: %v", err)
	}
	if !json.Valid(bak) {
		t.Error("Expected backup to stay readable after repair")
	}
}

func TestStore_BothFilesCorrupted(t *testing.T) {
	s, path := setupStore(t, ModeReplace)

	if err := os.WriteFile(path, []byte("not json"), 0o644); err != nil {
		t.Fatalf("Failed to write live file: %v", err)
	}
	if err := os.WriteFile(BackupPath(path), []byte("{broken"), 0o644); err != nil {
		t.Fatalf("Failed to write backup file: %v", err)
	}

	_, _, err := s.Load(context.Background())
	if !errors.Is(err, store.ErrCorrupted) {
		t.Fatalf("Expected ErrCorrupted, got %v", err)
	}
}

func TestStore_SchemaValidation(t *testing.T) {
	s, path := setupStore(t, ModeReplace)

	raw := `{
  "pools": {
    "gold": {"available": ["G1", "G1", "B1", " "], "used": {}},
    "blue": {"available": [], "used": {"B1": {"userId": "1", "consumedAt": "2025-01-01T00:00:00Z", "revoked": false}}},
    "ruby": {"available": ["R1"], "used": {}}
  },
  "users": {
    "1": {"registered": true, "registrationCode": null, "totalDraws": -4, "weekDraws": 0, "dayDraws": 0, "pityCounter": -1,
          "lastWeekReset": "2025-01-06T00:00:00Z", "lastDayReset": "2025-01-06T00:00:00Z"}
  },
  "config": {
    "weights": {"gold": "abc", "purple": -3, "blue": "40", "event": 2.0},
    "pityThreshold": 0,
    "pityTier": "diamond",
    "weeklyLimit": -1,
    "dailyLimit": 2,
    "eventPool": {"enabled": true, "name": "spring", "expiresAt": "next tuesday"}
  },
  "blacklist": ["9"],
  "announcement": null,
  "history": []
}`
	if err := os.WriteFile(path, []byte(raw), 0o644); err != nil {
		t.Fatalf("Failed to write state: %v", err)
	}

	st, report, err := s.Load(context.Background())
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(report.Warnings) == 0 {
		t.Error("Expected validation warnings")
	}

	cfg := st.Config
	def := models.DefaultLotteryConfig()
	if cfg.Weights.Gold != def.Weights.Gold {
		t.Errorf("Expected gold weight reset to %d, got %d", def.Weights.Gold, cfg.Weights.Gold)
	}
	if cfg.Weights.Purple != def.Weights.Purple {
		t.Errorf("Expected purple weight reset to %d, got %d", def.Weights.Purple, cfg.Weights.Purple)
	}
	if cfg.Weights.Blue != 40 {
		t.Errorf("Expected numeric string accepted, got %d", cfg.Weights.Blue)
	}
	if cfg.Weights.Event != 2 {
		t.Errorf("Expected integral float accepted, got %d", cfg.Weights.Event)
	}
	if cfg.PityThreshold != def.PityThreshold || cfg.PityTier != def.PityTier || cfg.WeeklyLimit != def.WeeklyLimit {
		t.Errorf("Expected invalid fields reset, got %+v", cfg)
	}
	if cfg.DailyLimit != 2 {
		t.Errorf("Expected valid daily limit kept, got %d", cfg.DailyLimit)
	}
	if cfg.EventPool.Enabled {
		t.Error("Expected event pool disabled on unparseable expiry")
	}

	if got := st.Pool(models.TierGold).Available; len(got) != 1 || got[0] != "G1" {
		t.Errorf("Expected deduplicated gold pool [G1], got %v", got)
	}
	if _, ok := st.Pools[models.Tier("ruby")]; ok {
		t.Error("Expected unknown pool dropped")
	}
	u := st.Users["1"]
	if u.TotalDraws != 0 || u.PityCounter != 0 {
		t.Errorf("Expected negative counters clamped, got %+v", u)
	}

	// The corrected document was written back.
	_, report, err = s.Load(context.Background())
	if err != nil {
		t.Fatalf("Reload failed: %v", err)
	}
	if len(report.Warnings) != 0 {
		t.Errorf("Expected repaired file to load cleanly, got %v", report.Warnings)
	}
}

func TestStore_SecondOpenOnSamePathFails(t *testing.T) {
	first, path := setupStore(t, ModeReplace)

	if _, err := Open(path, Options{PublishMode: ModeReplace}); !errors.Is(err, store.ErrLocked) {
		t.Fatalf("Expected ErrLocked while the first store is open, got %v", err)
	}

	if err := first.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	second, err := Open(path, Options{PublishMode: ModeReplace})
	if err != nil {
		t.Fatalf("Expected Open to succeed after Close, got %v", err)
	}
	defer second.Close()

	if err := second.Save(context.Background(), sampleState("b")); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if err := first.Save(context.Background(), sampleState("a")); !errors.Is(err, store.ErrPersistence) {
		t.Fatalf("Expected closed store to reject saves, got %v", err)
	}
}

func TestStore_SaveFailureIsPersistenceError(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "blocker")
	if err := os.WriteFile(blocker, []byte("x"), 0o644); err != nil {
		t.Fatalf("Failed to write blocker: %v", err)
	}

	s := &Store{path: filepath.Join(blocker, "data.json"), mode: ModeReplace}
	err := s.Save(context.Background(), models.NewState())
	if !errors.Is(err, store.ErrPersistence) {
		t.Fatalf("Expected ErrPersistence, got %v", err)
	}
}

func TestStore_SaveHonorsCancelledContext(t *testing.T) {
	s, path := setupStore(t, ModeReplace)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := s.Save(ctx, models.NewState()); !errors.Is(err, store.ErrPersistence) {
		t.Fatalf("Expected ErrPersistence, got %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("Expected no file written")
	}
}

func TestParseEventExpiry(t *testing.T) {
	got, err := ParseEventExpiry("2025-06-30")
	if err != nil {
		t.Fatalf("ParseEventExpiry failed: %v", err)
	}
	if got.Hour() != 23 || got.Minute() != 59 || got.Day() != 30 {
		t.Errorf("Expected end of day, got %v", got)
	}

	if _, err := ParseEventExpiry("2025-06-30T12:00:00Z"); err != nil {
		t.Errorf("Expected RFC3339 accepted: %v", err)
	}
	if _, err := ParseEventExpiry("soon"); err == nil {
		t.Error("Expected error for unparseable expiry")
	}
}

func TestParsePublishMode(t *testing.T) {
	cases := map[string]PublishMode{"": ModeAuto, "auto": ModeAuto, "Replace": ModeReplace, " backup ": ModeBackup}
	for in, want := range cases {
		got, err := ParsePublishMode(in)
		if err != nil || got != want {
			t.Errorf("ParsePublishMode(%q) = %v, %v; want %v", in, got, err, want)
		}
	}
	if _, err := ParsePublishMode("rsync"); err == nil {
		t.Error("Expected error for unknown mode")
	}
}
