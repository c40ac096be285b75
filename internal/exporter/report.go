package exporter

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/ybotman/calendaradmin-sub000/internal/model"
)

// WriteRunReport 生成单次运行的 Excel 报告（汇总 / 失败活动 / 未匹配实体
// 三个 Sheet），供运营人员复核导入质量。返回生成文件路径。
func WriteRunReport(dir string, result *model.RunResult, assessment *model.Assessment,
	failed []model.FailedEvent, unmatched model.UnmatchedReport) (string, error) {

	f := excelize.NewFile()
	defer f.Close()

	if err := fillSummarySheet(f, result, assessment); err != nil {
		return "", err
	}
	if err := fillFailedSheet(f, failed); err != nil {
		return "", err
	}
	if err := fillUnmatchedSheet(f, unmatched); err != nil {
		return "", err
	}

	path := filepath.Join(dir, fmt.Sprintf("import_report_%s.xlsx", result.Date))
	if err := f.SaveAs(path); err != nil {
		return "", fmt.Errorf("保存报告失败: %w", err)
	}
	return path, nil
}

func fillSummarySheet(f *excelize.File, result *model.RunResult, assessment *model.Assessment) error {
	const sheet = "汇总"
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return err
	}

	rows := [][]interface{}{
		{"运行 ID", result.RunID},
		{"目标日期", result.Date},
		{"Dry Run", result.DryRun},
		{"状态", string(result.State)},
		{"BTC 活动总数", result.BTCEvents.Total},
		{"已处理", result.BTCEvents.Processed},
		{"实体解析成功", result.EntityResolution.Success},
		{"实体解析失败", result.EntityResolution.Failure},
		{"校验通过", result.Validation.Valid},
		{"校验失败", result.Validation.Invalid},
		{"TT 已创建", result.TTEvents.Created},
		{"TT 已删除", result.TTEvents.Deleted},
		{"TT 写入失败", result.TTEvents.Failed},
		{"耗时", result.Duration.String()},
	}
	if assessment != nil {
		rows = append(rows,
			[]interface{}{"实体解析率", fmt.Sprintf("%.1f%%", assessment.EntityResolutionRate*100)},
			[]interface{}{"校验通过率", fmt.Sprintf("%.1f%%", assessment.ValidationRate*100)},
			[]interface{}{"总体成功率", fmt.Sprintf("%.1f%%", assessment.OverallRate*100)},
			[]interface{}{"放行判定", assessment.CanProceed},
			[]interface{}{"整改建议", strings.Join(assessment.Recommendations, "；")},
		)
	}

	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return err
		}
	}
	return nil
}

func fillFailedSheet(f *excelize.File, failed []model.FailedEvent) error {
	const sheet = "失败活动"
	if _, err := f.NewSheet(sheet); err != nil {
		return err
	}

	header := []interface{}{"BTC ID", "标题", "阶段", "原因", "违反规则"}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return err
	}
	for i, fe := range failed {
		row := []interface{}{fe.BTCID, fe.Title, string(fe.Stage), fe.Reason, strings.Join(fe.Violations, "; ")}
		if err := f.SetSheetRow(sheet, fmt.Sprintf("A%d", i+2), &row); err != nil {
			return err
		}
	}
	return nil
}

func fillUnmatchedSheet(f *excelize.File, unmatched model.UnmatchedReport) error {
	const sheet = "未匹配实体"
	if _, err := f.NewSheet(sheet); err != nil {
		return err
	}

	header := []interface{}{"类型", "名称"}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return err
	}

	row := 2
	write := func(kind string, names []string) error {
		for _, name := range names {
			r := []interface{}{kind, name}
			if err := f.SetSheetRow(sheet, fmt.Sprintf("A%d", row), &r); err != nil {
				return err
			}
			row++
		}
		return nil
	}
	if err := write("场地", unmatched.Venues); err != nil {
		return err
	}
	if err := write("组织者", unmatched.Organizers); err != nil {
		return err
	}
	return write("分类", unmatched.Categories)
}
