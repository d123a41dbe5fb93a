package common

import (
	"testing"
	"time"
)

func TestFormatTime(t *testing.T) {
	if got := FormatTime(time.Time{}); got != "never" {
		t.Errorf("Expected never for zero time, got %q", got)
	}
	if got := FormatTimePtr(nil); got != "never" {
		t.Errorf("Expected never for nil time, got %q", got)
	}

	ts := time.Date(2025, 3, 5, 14, 30, 0, 0, time.Local)
	if got := FormatTimePtr(&ts); got != "2025-03-05 14:30:00" {
		t.Errorf("Unexpected formatted time %q", got)
	}
}

func TestFormatLimit(t *testing.T) {
	if got := FormatLimit(0); got != "unlimited" {
		t.Errorf("Expected unlimited, got %q", got)
	}
	if got := FormatLimit(3); got != "3" {
		t.Errorf("Expected 3, got %q", got)
	}
}
