package model

import "time"

// RunState 导入运行状态机
type RunState string

const (
	StateIdle               RunState = "idle"
	StateExtracting         RunState = "extracting"
	StateDeleting           RunState = "deleting"
	StatePerEventProcessing RunState = "per_event_processing"
	StateFinalizing         RunState = "finalizing"
	StateDone               RunState = "done"
	StateFailed             RunState = "failed"
)

// FailureStage 单条活动失败所在阶段
type FailureStage string

const (
	StageEntityResolution FailureStage = "entity_resolution"
	StageValidation       FailureStage = "validation"
	StageProcessing       FailureStage = "processing"
)

// BTCEventCounts 源侧活动计数
type BTCEventCounts struct {
	Total     int `json:"total"`
	Processed int `json:"processed"`
}

// ResolutionCounts 实体解析计数
type ResolutionCounts struct {
	Success int `json:"success"`
	Failure int `json:"failure"`
}

// ValidationCounts 校验计数
type ValidationCounts struct {
	Valid   int `json:"valid"`
	Invalid int `json:"invalid"`
}

// TTEventCounts 目标侧写入计数
type TTEventCounts struct {
	Created int `json:"created"`
	Deleted int `json:"deleted"`
	Failed  int `json:"failed"`
}

// RunResult 一次导入运行的汇总结果（落盘为本次运行的正式产物）
type RunResult struct {
	RunID            string           `json:"runId"`
	Date             string           `json:"date"` // 目标日期 "2006-01-02"
	DryRun           bool             `json:"dryRun"`
	State            RunState         `json:"state"`
	StartTime        time.Time        `json:"startTime"`
	EndTime          time.Time        `json:"endTime"`
	Duration         time.Duration    `json:"duration"`
	BTCEvents        BTCEventCounts   `json:"btcEvents"`
	EntityResolution ResolutionCounts `json:"entityResolution"`
	Validation       ValidationCounts `json:"validation"`
	TTEvents         TTEventCounts    `json:"ttEvents"`
	Error            string           `json:"error,omitempty"`
}

// FailedEvent 单条活动的失败记录（按阶段归档，不中断批次）
type FailedEvent struct {
	BTCID      int          `json:"btcId"`
	Title      string       `json:"title"`
	Stage      FailureStage `json:"stage"`
	Reason     string       `json:"reason"`
	Violations []string     `json:"violations,omitempty"`
	Warnings   []string     `json:"warnings,omitempty"`
}

// UnmatchedSummary 未匹配实体计数
type UnmatchedSummary struct {
	Venues     int `json:"venues"`
	Organizers int `json:"organizers"`
	Categories int `json:"categories"`
}

// UnmatchedReport 未匹配实体报告（整个运行期间从未解析成功的名称）
type UnmatchedReport struct {
	Venues     []string         `json:"venues"`
	Organizers []string         `json:"organizers"`
	Categories []string         `json:"categories"`
	Summary    UnmatchedSummary `json:"summary"`
}

// AssessmentThresholds 放行判定阈值
type AssessmentThresholds struct {
	EntityResolution float64 `json:"entityResolution"`
	Validation       float64 `json:"validation"`
	Overall          float64 `json:"overall"`
}

// Assessment 运行质量的放行判定（go/no-go）
type Assessment struct {
	RunID                string               `json:"runId"`
	Date                 string               `json:"date"`
	CanProceed           bool                 `json:"canProceed"`
	EntityResolutionRate float64              `json:"entityResolutionRate"`
	ValidationRate       float64              `json:"validationRate"`
	OverallRate          float64              `json:"overallRate"`
	Thresholds           AssessmentThresholds `json:"thresholds"`
	Recommendations      []string             `json:"recommendations,omitempty"`
	AssessedAt           time.Time            `json:"assessedAt"`
}
