package assessor

import (
	"fmt"
	"time"

	"github.com/ybotman/calendaradmin-sub000/internal/model"
)

// 放行判定阈值（固定）
const (
	ThresholdEntityResolution = 0.90
	ThresholdValidation       = 0.95
	ThresholdOverall          = 0.85
)

// Assess 根据运行计数计算质量指标并给出放行判定。纯函数，不做 I/O。
func Assess(result *model.RunResult) *model.Assessment {
	a := &model.Assessment{
		RunID: result.RunID,
		Date:  result.Date,
		Thresholds: model.AssessmentThresholds{
			EntityResolution: ThresholdEntityResolution,
			Validation:       ThresholdValidation,
			Overall:          ThresholdOverall,
		},
		AssessedAt: time.Now().UTC(),
	}

	a.EntityResolutionRate = rate(result.EntityResolution.Success, result.BTCEvents.Total)
	a.ValidationRate = rate(result.Validation.Valid, result.EntityResolution.Success)
	a.OverallRate = rate(result.TTEvents.Created, result.BTCEvents.Total)

	if a.EntityResolutionRate < ThresholdEntityResolution {
		a.Recommendations = append(a.Recommendations, fmt.Sprintf(
			"实体解析率 %.1f%% 低于阈值 %.0f%%：检查未匹配实体报告，在 TT 补录缺失的场地/组织者后重跑",
			a.EntityResolutionRate*100, ThresholdEntityResolution*100))
	}
	if a.ValidationRate < ThresholdValidation {
		a.Recommendations = append(a.Recommendations, fmt.Sprintf(
			"校验通过率 %.1f%% 低于阈值 %.0f%%：检查失败活动列表中的字段缺失与日期问题",
			a.ValidationRate*100, ThresholdValidation*100))
	}
	if a.OverallRate < ThresholdOverall {
		a.Recommendations = append(a.Recommendations, fmt.Sprintf(
			"总体成功率 %.1f%% 低于阈值 %.0f%%：检查 TT 写入失败记录（apiError 分类）并确认认证与限流状况",
			a.OverallRate*100, ThresholdOverall*100))
	}

	a.CanProceed = len(a.Recommendations) == 0
	return a
}

// rate 分母为零时视为满分（空批次不应阻断放行）
func rate(num, den int) float64 {
	if den <= 0 {
		return 1.0
	}
	return float64(num) / float64(den)
}
