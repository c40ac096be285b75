package server

import (
	"testing"
	"time"
)

func TestCronImportDate(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 6, 15, 5, 0, 0, 0, time.UTC)
	got := cronImportDate(now)
	want := time.Date(2025, 6, 14, 5, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("cronImportDate(%s) = %s, want %s", now.Format("2006-01-02"), got.Format("2006-01-02"), want.Format("2006-01-02"))
	}

	// 跨月边界
	now = time.Date(2025, 3, 1, 5, 0, 0, 0, time.UTC)
	if got := cronImportDate(now); got.Month() != time.February || got.Day() != 28 {
		t.Fatalf("cronImportDate(2025-03-01) = %s, want 2025-02-28", got.Format("2006-01-02"))
	}
}
