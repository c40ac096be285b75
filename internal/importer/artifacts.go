package importer

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ybotman/calendaradmin-sub000/internal/model"
	"github.com/ybotman/calendaradmin-sub000/internal/writer"
)

// artifactSet 一次运行的全部落盘产物。无论运行成败都完整落盘，
// 供事后复盘与放行判定复核。
type artifactSet struct {
	RawPages  []json.RawMessage      // 源侧原始分页响应
	Existing  []model.TTEvent        // 删除前的目标侧快照
	Processed []*writer.CreateOutcome
	Failed    []model.FailedEvent
	Unmatched model.UnmatchedReport
	Result    *model.RunResult
	Assess    *model.Assessment
}

// Flush 将产物集写入 <outputDir>/<date>/ 下的固定文件名集合。
// 单个文件写失败仅记录，不中断其余文件。返回产物目录路径。
func (a *artifactSet) Flush(outputDir, date string) (string, []error) {
	dir := filepath.Join(outputDir, date)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return dir, []error{fmt.Errorf("创建产物目录失败: %w", err)}
	}

	var errs []error
	write := func(name string, v interface{}) {
		if err := writeJSON(filepath.Join(dir, name), v); err != nil {
			errs = append(errs, err)
		}
	}

	write("btc_raw.json", a.RawPages)
	write("tt_existing_events.json", a.Existing)
	write("processed_events.json", a.Processed)
	write("failed_events.json", a.Failed)
	write("unmatched_entities.json", a.Unmatched)
	if a.Result != nil {
		write("run_result.json", a.Result)
	}
	if a.Assess != nil {
		write("assessment.json", a.Assess)
	}

	return dir, errs
}

// writeJSON 缩进序列化后整文件写入
func writeJSON(path string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("序列化 %s 失败: %w", filepath.Base(path), err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("写入 %s 失败: %w", filepath.Base(path), err)
	}
	return nil
}
