package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"code-lottery-go/internal/models"
)

func writeGroups(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "groups.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("Failed to write groups file: %v", err)
	}
	return path
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("GROUPS_FILE", filepath.Join(t.TempDir(), "missing.yaml"))

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Storage.StatePath != "data/data.json" {
		t.Errorf("Unexpected state path %q", cfg.Storage.StatePath)
	}
	if cfg.Membership.TTL != 30*24*time.Hour {
		t.Errorf("Expected 30 day TTL, got %v", cfg.Membership.TTL)
	}
	if cfg.Lottery.HistoryLimit != 100 {
		t.Errorf("Expected history limit 100, got %d", cfg.Lottery.HistoryLimit)
	}
	if cfg.Scheduler.RetryBackoff != time.Minute {
		t.Errorf("Expected 60s backoff, got %v", cfg.Scheduler.RetryBackoff)
	}
	if len(cfg.Membership.TargetGroups) != 0 {
		t.Errorf("Expected no target groups, got %v", cfg.Membership.TargetGroups)
	}
}

func TestLoad_FromEnvironmentAndGroups(t *testing.T) {
	t.Setenv("STATE_FILE", "/var/lib/lottery/state.json")
	t.Setenv("STATE_PUBLISH_MODE", "backup")
	t.Setenv("MEMBERSHIP_TTL", "48h")
	t.Setenv("LOTTERY_TEST_MODE", "true")
	t.Setenv("LOTTERY_ESCALATION_ORDER", "purple, blue ,gold,event")
	t.Setenv("GROUPS_FILE", writeGroups(t, "target_groups:\n  - \"1001\"\n  - \"1002\"\n  - \"1001\"\nskip_group_check: true\n"))

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Storage.StatePath != "/var/lib/lottery/state.json" || cfg.Storage.PublishMode != "backup" {
		t.Errorf("Unexpected storage config %+v", cfg.Storage)
	}
	if cfg.Membership.TTL != 48*time.Hour {
		t.Errorf("Expected 48h TTL, got %v", cfg.Membership.TTL)
	}
	if !cfg.Lottery.TestMode {
		t.Error("Expected test mode")
	}
	order, err := cfg.Lottery.Order()
	if err != nil {
		t.Fatalf("Order failed: %v", err)
	}
	want := []models.Tier{models.TierPurple, models.TierBlue, models.TierGold, models.TierEvent}
	for i := range want {
		if order[i] != want[i] {
			t.Errorf("Expected escalation order %v, got %v", want, order)
			break
		}
	}
	if len(cfg.Membership.TargetGroups) != 2 || !cfg.Membership.SkipCheck {
		t.Errorf("Unexpected membership config %+v", cfg.Membership)
	}
}

func TestLoad_InvalidValues(t *testing.T) {
	cases := map[string]string{
		"MEMBERSHIP_TTL":           "soon",
		"STATE_PUBLISH_MODE":       "copy",
		"LOTTERY_HISTORY_LIMIT":    "0",
		"RESET_RETRY_BACKOFF":      "-1s",
		"LOTTERY_ESCALATION_ORDER": "blue,gold,gold,event",
	}
	for key, value := range cases {
		t.Run(key, func(t *testing.T) {
			t.Setenv("GROUPS_FILE", filepath.Join(t.TempDir(), "missing.yaml"))
			t.Setenv(key, value)
			if _, err := Load(); err == nil {
				t.Errorf("Expected error for %s=%s", key, value)
			}
		})
	}
}

func TestLoadGroups_RejectsEmptyEntries(t *testing.T) {
	path := writeGroups(t, "target_groups:\n  - \"\"\n")
	if _, err := LoadGroups(path); err == nil {
		t.Error("Expected error for empty group id")
	}

	path = writeGroups(t, "target_groups: [\n")
	if _, err := LoadGroups(path); err == nil {
		t.Error("Expected parse error")
	}
}
