package database

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"code-lottery-go/internal/models"
)

func setupAuditTestDB(t *testing.T, retain int) (*Service, func()) {
	cfg := models.DatabaseConfig{
		Path:          filepath.Join(t.TempDir(), "audit.db"),
		MaxOpenConns:  2,
		MaxIdleConns:  1,
		PingTimeout:   time.Second,
		RetainEntries: retain,
	}
	service, err := NewService(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}

	cleanup := func() {
		service.Close()
	}
	return service, cleanup
}

func TestNewService_InvalidConfig(t *testing.T) {
	cases := []models.DatabaseConfig{
		{Path: "", MaxOpenConns: 1, PingTimeout: time.Second},
		{Path: "x.db", MaxOpenConns: 0, PingTimeout: time.Second},
		{Path: "x.db", MaxOpenConns: 1, MaxIdleConns: -1, PingTimeout: time.Second},
		{Path: "x.db", MaxOpenConns: 1, PingTimeout: 0},
		{Path: "x.db", MaxOpenConns: 1, PingTimeout: time.Second, RetainEntries: -1},
	}
	for i, cfg := range cases {
		if _, err := NewService(context.Background(), cfg); err == nil {
			t.Errorf("case %d: expected config error", i)
		}
	}
}

func TestAppend_RecentNewestFirst(t *testing.T) {
	service, cleanup := setupAuditTestDB(t, 0)
	defer cleanup()
	ctx := context.Background()

	base := time.Date(2025, 3, 5, 12, 0, 0, 0, time.UTC)
	for i, action := range []string{"register", "draw", "draw"} {
		err := service.Append(ctx, models.AuditEntry{
			Action: action,
			UserID: "42",
			Detail: "tier=blue",
			Time:   base.Add(time.Duration(i) * time.Minute),
		})
		if err != nil {
			t.Fatalf("Append failed: %v", err)
		}
	}

	entries, err := service.Recent(ctx, 2)
	if err != nil {
		t.Fatalf("Recent failed: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("Expected 2 entries, got %d", len(entries))
	}
	if entries[0].Action != "draw" || !entries[0].Time.Equal(base.Add(2*time.Minute)) {
		t.Errorf("Expected newest draw first, got %+v", entries[0])
	}
	if entries[0].ID == "" {
		t.Error("Expected generated id")
	}

	all, err := service.Recent(ctx, 0)
	if err != nil {
		t.Fatalf("Recent failed: %v", err)
	}
	if len(all) != 3 {
		t.Errorf("Expected 3 entries, got %d", len(all))
	}
}

func TestCountByAction(t *testing.T) {
	service, cleanup := setupAuditTestDB(t, 0)
	defer cleanup()
	ctx := context.Background()

	for _, action := range []string{"draw", "draw", "register", "blacklist_add"} {
		if err := service.Append(ctx, models.AuditEntry{Action: action}); err != nil {
			t.Fatalf("Append failed: %v", err)
		}
	}

	counts, err := service.CountByAction(ctx)
	if err != nil {
		t.Fatalf("CountByAction failed: %v", err)
	}
	if counts["draw"] != 2 || counts["register"] != 1 || counts["blacklist_add"] != 1 {
		t.Errorf("Unexpected counts: %v", counts)
	}
}

func TestAppend_PrunesToRetention(t *testing.T) {
	service, cleanup := setupAuditTestDB(t, 3)
	defer cleanup()
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		if err := service.Append(ctx, models.AuditEntry{Action: "draw", UserID: string(rune('a' + i))}); err != nil {
			t.Fatalf("Append failed: %v", err)
		}
	}

	entries, err := service.Recent(ctx, 0)
	if err != nil {
		t.Fatalf("Recent failed: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("Expected 3 retained entries, got %d", len(entries))
	}
	if entries[0].UserID != "e" || entries[2].UserID != "c" {
		t.Errorf("Expected newest entries kept, got %+v", entries)
	}
}

func TestAppend_SanitizesDetail(t *testing.T) {
	service, cleanup := setupAuditTestDB(t, 0)
	defer cleanup()
	ctx := context.Background()

	long := "line one\nline two " + strings.Repeat("x", 400)
	if err := service.Append(ctx, models.AuditEntry{Action: "announcement_set", Detail: long}); err != nil {
		t.Fatalf("Append failed: %v", err)
	}
	if err := service.Append(ctx, models.AuditEntry{}); err == nil {
		t.Error("Expected error for missing action")
	}

	entries, err := service.ForUser(ctx, "", 1)
	if err != nil {
		t.Fatalf("ForUser failed: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("Expected 1 entry, got %d", len(entries))
	}
	detail := entries[0].Detail
	if strings.Contains(detail, "\n") {
		t.Error("Expected newlines removed")
	}
	if len([]rune(detail)) != maxDetailLength || !strings.HasSuffix(detail, "...") {
		t.Errorf("Expected detail truncated to %d runes, got %d", maxDetailLength, len([]rune(detail)))
	}
}
