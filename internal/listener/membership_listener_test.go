package listener

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"code-lottery-go/internal/membership"
	"code-lottery-go/internal/models"
)

func setupListener(t *testing.T, debounce time.Duration) (*MembershipListener, *membership.Cache, chan models.GroupMessage, string) {
	path := filepath.Join(t.TempDir(), "group_members.json")
	cache, err := membership.NewCache(membership.Options{
		Path:         path,
		TargetGroups: []string{"g1"},
		FlushEvery:   1000,
	})
	if err != nil {
		t.Fatalf("Failed to create cache: %v", err)
	}
	t.Cleanup(func() { _ = cache.Close() })
	source := make(chan models.GroupMessage)
	l := NewMembershipListener(MembershipListenerConfig{
		Cache:         cache,
		Source:        source,
		SweepInterval: time.Hour,
		Debounce:      debounce,
	})
	return l, cache, source, path
}

func TestMembershipListener_ObserveAndLeave(t *testing.T) {
	l, cache, source, path := setupListener(t, 0)
	l.Start(context.Background())

	source <- models.GroupMessage{GroupID: "g1", UserID: "a", Kind: models.GroupEventMessage}
	source <- models.GroupMessage{GroupID: "g1", UserID: "b", Kind: models.GroupEventJoin}
	source <- models.GroupMessage{GroupID: "g2", UserID: "c", Kind: models.GroupEventMessage}
	source <- models.GroupMessage{GroupID: "g1", UserID: "b", Kind: models.GroupEventLeave}
	l.Stop()

	if !cache.IsMember("g1", "a") {
		t.Error("Expected a to be a member of g1")
	}
	if cache.IsMember("g1", "b") {
		t.Error("Expected b to be forgotten after leaving")
	}
	if cache.IsMember("g2", "c") {
		t.Error("Expected non-target group to be ignored")
	}

	// Stop flushes the cache.
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Expected cache file after stop: %v", err)
	}
	var persisted map[string]map[string]string
	if err := json.Unmarshal(data, &persisted); err != nil {
		t.Fatalf("Failed to parse cache file: %v", err)
	}
	if _, ok := persisted["g1"]["a"]; !ok || len(persisted["g1"]) != 1 {
		t.Errorf("Unexpected persisted cache: %v", persisted)
	}
}

func TestMembershipListener_Debounce(t *testing.T) {
	l, _, _, _ := setupListener(t, time.Minute)
	at := time.Date(2025, 3, 5, 12, 0, 0, 0, time.UTC)

	if l.isRecent("g1", "a", at) {
		t.Error("First observation must not be debounced")
	}
	if !l.isRecent("g1", "a", at.Add(30*time.Second)) {
		t.Error("Expected repeat within window to be debounced")
	}
	if l.isRecent("g1", "a", at.Add(2*time.Minute)) {
		t.Error("Expected observation after window to pass")
	}

	l.forget("g1", "a")
	if l.isRecent("g1", "a", at.Add(2*time.Minute+time.Second)) {
		t.Error("Expected forgotten pair to pass")
	}
}

func TestMembershipListener_StopIsIdempotent(t *testing.T) {
	l, _, _, _ := setupListener(t, 0)
	l.Start(context.Background())
	l.Stop()
	l.Stop()

	select {
	case <-l.Done():
	default:
		t.Error("Expected done channel closed")
	}
}

func TestReadFeed(t *testing.T) {
	input := strings.Join([]string{
		`{"group":"g1","user":"a","kind":"message","at":"2025-03-05T12:00:00Z"}`,
		``,
		`not json`,
		`{"group":"g1","user":"b"}`,
		`{"group":"g1","user":"c","kind":"wave"}`,
		`{"group":"g1","user":"a","kind":"LEAVE"}`,
	}, "\n")

	out := make(chan models.GroupMessage, 10)
	if err := ReadFeed(context.Background(), strings.NewReader(input), out); err != nil {
		t.Fatalf("ReadFeed failed: %v", err)
	}

	var got []models.GroupMessage
	for msg := range out {
		got = append(got, msg)
	}
	if len(got) != 3 {
		t.Fatalf("Expected 3 observations, got %d: %+v", len(got), got)
	}
	if got[1].Kind != models.GroupEventMessage {
		t.Errorf("Expected default kind message, got %s", got[1].Kind)
	}
	if got[2].Kind != models.GroupEventLeave {
		t.Errorf("Expected leave, got %s", got[2].Kind)
	}
	if got[0].At.IsZero() {
		t.Error("Expected timestamp parsed")
	}
}
