package store

import (
	"fmt"
	"time"

	"github.com/ybotman/calendaradmin-sub000/internal/model"
)

// RunRow 运行日志单行（API 展示用）
type RunRow struct {
	RunID       string    `json:"runId"`
	Date        string    `json:"date"`
	DryRun      bool      `json:"dryRun"`
	State       string    `json:"state"`
	BTCTotal    int       `json:"btcTotal"`
	Created     int       `json:"created"`
	Deleted     int       `json:"deleted"`
	Failed      int       `json:"failed"`
	CanProceed  bool      `json:"canProceed"`
	Error       string    `json:"error,omitempty"`
	StartedAt   time.Time `json:"startedAt"`
	CompletedAt time.Time `json:"completedAt"`
	DurationMs  int64     `json:"durationMs"`
}

// SaveRun 持久化一次运行的结果与放行判定
func (s *Store) SaveRun(result *model.RunResult, assessment *model.Assessment) error {
	canProceed := 0
	if assessment != nil && assessment.CanProceed {
		canProceed = 1
	}
	dryRun := 0
	if result.DryRun {
		dryRun = 1
	}

	_, err := s.db.Exec(`
		INSERT INTO import_runs (
			run_id, date, dry_run, state,
			btc_total, btc_processed,
			resolution_success, resolution_failure,
			validation_valid, validation_invalid,
			tt_created, tt_deleted, tt_failed,
			can_proceed, error_message,
			started_at, completed_at, duration_ms
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		result.RunID, result.Date, dryRun, string(result.State),
		result.BTCEvents.Total, result.BTCEvents.Processed,
		result.EntityResolution.Success, result.EntityResolution.Failure,
		result.Validation.Valid, result.Validation.Invalid,
		result.TTEvents.Created, result.TTEvents.Deleted, result.TTEvents.Failed,
		canProceed, result.Error,
		result.StartTime.UTC().Format(time.RFC3339), result.EndTime.UTC().Format(time.RFC3339),
		result.Duration.Milliseconds(),
	)
	if err != nil {
		return fmt.Errorf("failed to save import run: %w", err)
	}
	return nil
}

// ListRuns 按时间倒序列出最近的运行
func (s *Store) ListRuns(limit int) ([]RunRow, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.Query(`
		SELECT run_id, date, dry_run, state,
		       btc_total, tt_created, tt_deleted, tt_failed,
		       can_proceed, error_message, started_at, completed_at, duration_ms
		FROM import_runs
		ORDER BY id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query import runs: %w", err)
	}
	defer rows.Close()

	var out []RunRow
	for rows.Next() {
		var (
			r                  RunRow
			dryRun, canProceed int
			startedAt, doneAt  string
		)
		if err := rows.Scan(&r.RunID, &r.Date, &dryRun, &r.State,
			&r.BTCTotal, &r.Created, &r.Deleted, &r.Failed,
			&canProceed, &r.Error, &startedAt, &doneAt, &r.DurationMs); err != nil {
			return nil, fmt.Errorf("failed to scan import run: %w", err)
		}
		r.DryRun = dryRun == 1
		r.CanProceed = canProceed == 1
		r.StartedAt, _ = time.Parse(time.RFC3339, startedAt)
		r.CompletedAt, _ = time.Parse(time.RFC3339, doneAt)
		out = append(out, r)
	}
	return out, rows.Err()
}
