package writer

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/ybotman/calendaradmin-sub000/internal/model"
	"github.com/ybotman/calendaradmin-sub000/internal/retry"
	"github.com/ybotman/calendaradmin-sub000/internal/ttclient"
	"github.com/ybotman/calendaradmin-sub000/internal/validator"
)

// Writer TT 平台写入器：删除阶段 + 创建阶段，支持 dry-run 模拟
type Writer struct {
	tt     *ttclient.Client
	dryRun bool
}

// New 创建写入器
func New(tt *ttclient.Client, dryRun bool) *Writer {
	return &Writer{tt: tt, dryRun: dryRun}
}

// DeleteResult 删除阶段结果
type DeleteResult struct {
	Existing []model.TTEvent `json:"existing"` // 删除前快照
	Deleted  int             `json:"deleted"`
	Failed   int             `json:"failed"`
	DryRun   bool            `json:"dryRun"`
}

// DeleteByDate 删除目标日期内现存的 TT 活动（替换语义的删除阶段）。
// 单条删除失败仅记录并跳过；dry-run 只上报将删数量，不做任何变更。
func (w *Writer) DeleteByDate(ctx context.Context, day time.Time) (*DeleteResult, error) {
	existing, err := w.tt.QueryEventsByDate(ctx, day)
	if err != nil {
		return nil, fmt.Errorf("failed to query existing events for %s: %w", day.Format("2006-01-02"), err)
	}

	result := &DeleteResult{Existing: existing, DryRun: w.dryRun}

	if w.dryRun {
		log.Printf("[dry-run] 将删除 %d 条现存活动（未执行）", len(existing))
		return result, nil
	}

	for _, ev := range existing {
		if ev.ID == "" {
			continue
		}
		if err := w.tt.DeleteEvent(ctx, ev.ID); err != nil {
			// 删除尽力而为：失败记录后继续
			log.Printf("删除活动 %s 失败: %v", ev.ID, err)
			result.Failed++
			continue
		}
		result.Deleted++
	}

	return result, nil
}

// CreateStatus 创建阶段结果状态
type CreateStatus string

const (
	StatusCreated          CreateStatus = "created"
	StatusDryRun           CreateStatus = "dry_run"
	StatusValidationFailed CreateStatus = "validation_failed"
	StatusAPIError         CreateStatus = "api_error"
)

// APIError 远程失败的结构化描述（与重试层分类一致）
type APIError struct {
	Type    string `json:"type"`
	Message string `json:"message"`
	Status  int    `json:"status,omitempty"`
}

// CreateOutcome 创建阶段的单条结果。失败时仍返回占位记录，
// 使编排层的逐条计数保持一致。
type CreateOutcome struct {
	Status      CreateStatus    `json:"status"`
	Event       *model.TTEvent  `json:"event,omitempty"` // created 时为平台规范记录
	SyntheticID string          `json:"syntheticId,omitempty"`
	APIError    *APIError       `json:"apiError,omitempty"`
	ShouldRetry bool            `json:"shouldRetry,omitempty"`
	Violations  []string        `json:"violations,omitempty"`
	ImportedAt  time.Time       `json:"importedAt,omitempty"`
	DryRun      bool            `json:"dryRun,omitempty"`
}

// Created 是否计入创建成功（dry-run 的模拟创建同样计入）
func (o *CreateOutcome) Created() bool {
	return o.Status == StatusCreated || o.Status == StatusDryRun
}

// CreateEvent 创建单条活动。远程调用前做二次必填/日期校验（纵深防御），
// 校验失败返回 validation_failed 占位且不触达 TT。
func (w *Writer) CreateEvent(ctx context.Context, ev *model.TTEvent) *CreateOutcome {
	if errs := validator.ValidateEvent(ev); len(errs) > 0 {
		return &CreateOutcome{
			Status:      StatusValidationFailed,
			Event:       ev,
			SyntheticID: syntheticID("validation_failed"),
			Violations:  errs,
		}
	}

	if w.dryRun {
		return &CreateOutcome{
			Status:      StatusDryRun,
			Event:       ev,
			SyntheticID: syntheticID("dry_run"),
			ImportedAt:  time.Now().UTC(),
			DryRun:      true,
		}
	}

	created, err := w.tt.CreateEvent(ctx, ev)
	if err != nil {
		return failedOutcome(ev, err)
	}

	return &CreateOutcome{
		Status:     StatusCreated,
		Event:      created,
		ImportedAt: time.Now().UTC(),
	}
}

// failedOutcome 将远程失败转为带分类注解的占位结果
func failedOutcome(ev *model.TTEvent, err error) *CreateOutcome {
	apiErr := &APIError{Type: string(retry.ErrNetwork), Message: err.Error()}
	var rerr *retry.Error
	if errors.As(err, &rerr) {
		apiErr.Type = string(rerr.Type)
		apiErr.Status = rerr.Status
	}

	return &CreateOutcome{
		Status:      StatusAPIError,
		Event:       ev,
		SyntheticID: syntheticID(apiErr.Type),
		APIError:    apiErr,
		ShouldRetry: retryable(apiErr.Type),
	}
}

// retryable 与重试层口径一致的可重试分类
func retryable(errType string) bool {
	switch retry.ErrorType(errType) {
	case retry.ErrRateLimited, retry.ErrServer, retry.ErrNetwork:
		return true
	default:
		return false
	}
}

// syntheticID 以错误类型为前缀的合成标识
func syntheticID(prefix string) string {
	return fmt.Sprintf("%s-%s", prefix, uuid.New().String()[:8])
}
