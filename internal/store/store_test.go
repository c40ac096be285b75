package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/ybotman/calendaradmin-sub000/internal/model"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	st, err := New(filepath.Join(t.TempDir(), "calendaradmin.db"))
	if err != nil {
		t.Fatalf("init store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func sampleResult(runID string) *model.RunResult {
	start := time.Date(2026, 7, 5, 6, 0, 0, 0, time.UTC)
	return &model.RunResult{
		RunID:            runID,
		Date:             "2026-07-05",
		DryRun:           false,
		State:            model.StateDone,
		StartTime:        start,
		EndTime:          start.Add(42 * time.Second),
		Duration:         42 * time.Second,
		BTCEvents:        model.BTCEventCounts{Total: 12, Processed: 12},
		EntityResolution: model.ResolutionCounts{Success: 11, Failure: 1},
		Validation:       model.ValidationCounts{Valid: 11},
		TTEvents:         model.TTEventCounts{Created: 11, Deleted: 3},
	}
}

func TestSaveRunAndListRuns(t *testing.T) {
	st := newTestStore(t)

	assessment := &model.Assessment{CanProceed: true}
	if err := st.SaveRun(sampleResult("r_aaaa0001"), assessment); err != nil {
		t.Fatalf("save run: %v", err)
	}
	if err := st.SaveRun(sampleResult("r_aaaa0002"), assessment); err != nil {
		t.Fatalf("save run: %v", err)
	}

	runs, err := st.ListRuns(10)
	if err != nil {
		t.Fatalf("list runs: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("runs = %d, want 2", len(runs))
	}

	// 时间倒序：最近一次在前
	if runs[0].RunID != "r_aaaa0002" {
		t.Fatalf("first run = %s, want r_aaaa0002", runs[0].RunID)
	}

	got := runs[0]
	if got.Date != "2026-07-05" || got.State != string(model.StateDone) {
		t.Fatalf("row = %+v", got)
	}
	if got.BTCTotal != 12 || got.Created != 11 || got.Deleted != 3 {
		t.Fatalf("counters = %+v", got)
	}
	if !got.CanProceed {
		t.Fatal("canProceed not persisted")
	}
	if got.DurationMs != 42000 {
		t.Fatalf("durationMs = %d", got.DurationMs)
	}
}

func TestSaveRun_NilAssessment(t *testing.T) {
	st := newTestStore(t)

	result := sampleResult("r_failed01")
	result.State = model.StateFailed
	result.Error = "抓取 BTC 活动失败"

	if err := st.SaveRun(result, nil); err != nil {
		t.Fatalf("save run: %v", err)
	}

	runs, err := st.ListRuns(1)
	if err != nil {
		t.Fatalf("list runs: %v", err)
	}
	if len(runs) != 1 {
		t.Fatalf("runs = %d, want 1", len(runs))
	}
	if runs[0].CanProceed {
		t.Fatal("failed run must not be marked canProceed")
	}
	if runs[0].Error == "" {
		t.Fatal("error message not persisted")
	}
}

func TestSaveRun_DuplicateRunIDRejected(t *testing.T) {
	st := newTestStore(t)

	if err := st.SaveRun(sampleResult("r_dup00001"), nil); err != nil {
		t.Fatalf("save run: %v", err)
	}
	if err := st.SaveRun(sampleResult("r_dup00001"), nil); err == nil {
		t.Fatal("expected unique constraint violation")
	}
}

func TestListRuns_DefaultLimit(t *testing.T) {
	st := newTestStore(t)
	if _, err := st.ListRuns(0); err != nil {
		t.Fatalf("list runs with zero limit: %v", err)
	}
}
