package importer

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/ybotman/calendaradmin-sub000/internal/archive"
	"github.com/ybotman/calendaradmin-sub000/internal/assessor"
	"github.com/ybotman/calendaradmin-sub000/internal/btcclient"
	"github.com/ybotman/calendaradmin-sub000/internal/exporter"
	"github.com/ybotman/calendaradmin-sub000/internal/mapper"
	"github.com/ybotman/calendaradmin-sub000/internal/metrics"
	"github.com/ybotman/calendaradmin-sub000/internal/model"
	"github.com/ybotman/calendaradmin-sub000/internal/resolver"
	"github.com/ybotman/calendaradmin-sub000/internal/store"
	"github.com/ybotman/calendaradmin-sub000/internal/validator"
	"github.com/ybotman/calendaradmin-sub000/internal/writer"
)

// Coordinator 导入协调器：抓取 → 按日删除 → 逐条解析/映射/校验/写入 →
// 产物落盘与放行判定。单条活动失败不中断批次。
type Coordinator struct {
	btc      *btcclient.Client
	resolver *resolver.Resolver
	mapper   *mapper.Mapper
	writer   *writer.Writer

	// 以下依赖均可为 nil，对应能力降级为跳过
	store    *store.Store
	metrics  *metrics.Metrics
	archiver *archive.S3Archiver

	outputDir   string
	exportExcel bool
}

// Deps 协调器依赖集合
type Deps struct {
	BTC      *btcclient.Client
	Resolver *resolver.Resolver
	Mapper   *mapper.Mapper
	Writer   *writer.Writer

	Store    *store.Store
	Metrics  *metrics.Metrics
	Archiver *archive.S3Archiver

	OutputDir   string
	ExportExcel bool
}

// NewCoordinator 创建导入协调器
func NewCoordinator(deps Deps) *Coordinator {
	return &Coordinator{
		btc:         deps.BTC,
		resolver:    deps.Resolver,
		mapper:      deps.Mapper,
		writer:      deps.Writer,
		store:       deps.Store,
		metrics:     deps.Metrics,
		archiver:    deps.Archiver,
		outputDir:   deps.OutputDir,
		exportExcel: deps.ExportExcel,
	}
}

// ImportOptions 导入选项
type ImportOptions struct {
	Date   time.Time // 目标日期（按天替换）
	DryRun bool
}

// ProgressEvent 进度事件
type ProgressEvent struct {
	Type      string      `json:"type"`      // start/state/info/warning/event_done/error/done
	Message   string      `json:"message"`   // 事件消息
	Data      interface{} `json:"data"`      // 附加数据
	Timestamp time.Time   `json:"timestamp"` // 时间戳
}

// Import 执行导入，返回进度通道。通道在运行结束后关闭。
func (c *Coordinator) Import(ctx context.Context, opts ImportOptions) <-chan ProgressEvent {
	progressChan := make(chan ProgressEvent, 100)

	go func() {
		defer close(progressChan)
		c.doImport(ctx, opts, progressChan)
	}()

	return progressChan
}

// Run 同步执行导入并返回运行结果（CLI 入口使用）
func (c *Coordinator) Run(ctx context.Context, opts ImportOptions) (*model.RunResult, *model.Assessment) {
	progressChan := make(chan ProgressEvent, 100)
	go func() {
		for ev := range progressChan {
			log.Printf("[%s] %s", ev.Type, ev.Message)
		}
	}()
	result, assessment := c.doImport(ctx, opts, progressChan)
	close(progressChan)
	return result, assessment
}

// doImport 执行导入状态机
func (c *Coordinator) doImport(ctx context.Context, opts ImportOptions, progressChan chan ProgressEvent) (*model.RunResult, *model.Assessment) {
	date := opts.Date.Format("2006-01-02")
	result := &model.RunResult{
		RunID:     "r_" + uuid.New().String()[:8],
		Date:      date,
		DryRun:    opts.DryRun,
		State:     model.StateIdle,
		StartTime: time.Now(),
	}

	artifacts := &artifactSet{Result: result}
	var assessment *model.Assessment

	// 产物无条件落盘：失败运行同样留痕
	defer func() {
		artifacts.Unmatched = c.resolver.Cache().UnmatchedReport()
		artifacts.Assess = assessment
		dir, errs := artifacts.Flush(c.outputDir, date)
		for _, err := range errs {
			c.sendProgress(progressChan, ProgressEvent{
				Type:      "warning",
				Message:   fmt.Sprintf("产物落盘失败: %v", err),
				Timestamp: time.Now(),
			})
		}
		c.finalizeAux(ctx, dir, result, assessment, artifacts, progressChan)
	}()

	c.sendProgress(progressChan, ProgressEvent{
		Type:    "start",
		Message: fmt.Sprintf("开始导入 %s 的活动", date),
		Data: map[string]interface{}{
			"run_id":  result.RunID,
			"date":    date,
			"dry_run": opts.DryRun,
		},
		Timestamp: time.Now(),
	})

	// 阶段一：抓取源侧活动
	c.setState(result, model.StateExtracting, progressChan)
	events, rawPages, err := c.btc.FetchEvents(ctx, opts.Date, opts.Date)
	if err != nil {
		c.fail(result, progressChan, fmt.Sprintf("抓取 BTC 活动失败: %v", err))
		return result, nil
	}
	artifacts.RawPages = rawPages
	result.BTCEvents.Total = len(events)

	c.sendProgress(progressChan, ProgressEvent{
		Type:      "info",
		Message:   fmt.Sprintf("抓取到 %d 条活动", len(events)),
		Data:      map[string]int{"total": len(events)},
		Timestamp: time.Now(),
	})

	// 分类缓存预热：失败仅告警，逐条处理时会按需再查
	if cats, err := c.btc.FetchCategories(ctx); err != nil {
		c.sendProgress(progressChan, ProgressEvent{
			Type:      "warning",
			Message:   fmt.Sprintf("抓取源侧分类失败，跳过缓存预热: %v", err),
			Timestamp: time.Now(),
		})
	} else {
		names := make([]string, 0, len(cats))
		for _, cat := range cats {
			names = append(names, cat.Name)
		}
		c.resolver.PrewarmCategories(ctx, names)
	}

	// 阶段二：按日删除（替换语义）。查询失败降级为告警，当日视为无现存活动。
	c.setState(result, model.StateDeleting, progressChan)
	deleted, err := c.writer.DeleteByDate(ctx, opts.Date)
	if err != nil {
		c.sendProgress(progressChan, ProgressEvent{
			Type:      "warning",
			Message:   fmt.Sprintf("查询现存活动失败，跳过删除阶段: %v", err),
			Timestamp: time.Now(),
		})
	} else {
		artifacts.Existing = deleted.Existing
		result.TTEvents.Deleted = deleted.Deleted
		c.sendProgress(progressChan, ProgressEvent{
			Type:    "info",
			Message: fmt.Sprintf("现存 %d 条，已删除 %d 条，失败 %d 条", len(deleted.Existing), deleted.Deleted, deleted.Failed),
			Data: map[string]interface{}{
				"existing": len(deleted.Existing),
				"deleted":  deleted.Deleted,
				"failed":   deleted.Failed,
			},
			Timestamp: time.Now(),
		})
	}

	// 阶段三：逐条处理
	c.setState(result, model.StatePerEventProcessing, progressChan)
	importedAt := time.Now()
	for i := range events {
		c.processEvent(ctx, &events[i], importedAt, result, artifacts, progressChan)
		result.BTCEvents.Processed++
	}

	// 阶段四：收尾与放行判定
	c.setState(result, model.StateFinalizing, progressChan)
	result.EndTime = time.Now()
	result.Duration = result.EndTime.Sub(result.StartTime)
	result.State = model.StateDone
	assessment = assessor.Assess(result)

	c.sendProgress(progressChan, ProgressEvent{
		Type:    "done",
		Message: fmt.Sprintf("导入完成：创建 %d / 失败 %d / 放行 %v", result.TTEvents.Created, result.TTEvents.Failed, assessment.CanProceed),
		Data: map[string]interface{}{
			"result":     result,
			"assessment": assessment,
		},
		Timestamp: time.Now(),
	})

	return result, assessment
}

// processEvent 处理单条活动。panic 被就地吸收并记为 processing 阶段失败，
// 保证批次推进。
func (c *Coordinator) processEvent(ctx context.Context, ev *model.BTCEvent, importedAt time.Time,
	result *model.RunResult, artifacts *artifactSet, progressChan chan ProgressEvent) {

	defer func() {
		if r := recover(); r != nil {
			result.TTEvents.Failed++
			artifacts.Failed = append(artifacts.Failed, model.FailedEvent{
				BTCID:  ev.ID,
				Title:  ev.Title,
				Stage:  model.StageProcessing,
				Reason: fmt.Sprintf("panic: %v", r),
			})
			c.sendProgress(progressChan, ProgressEvent{
				Type:      "error",
				Message:   fmt.Sprintf("活动 %d 处理异常: %v", ev.ID, r),
				Timestamp: time.Now(),
			})
		}
	}()

	// 实体解析
	resolved := c.resolver.ResolveEvent(ctx, ev)
	c.observeFallbacks(&resolved)
	if !resolved.Resolved {
		result.EntityResolution.Failure++
		artifacts.Failed = append(artifacts.Failed, model.FailedEvent{
			BTCID:    ev.ID,
			Title:    ev.Title,
			Stage:    model.StageEntityResolution,
			Reason:   "实体解析未产出完整结果",
			Warnings: resolved.Warnings,
		})
		c.sendProgress(progressChan, ProgressEvent{
			Type:      "warning",
			Message:   fmt.Sprintf("活动 %d 实体解析失败: %s", ev.ID, ev.Title),
			Timestamp: time.Now(),
		})
		return
	}
	result.EntityResolution.Success++

	// 映射。日期无法解析视同校验失败。
	mapped, err := c.mapper.MapEvent(ev, &resolved, importedAt)
	if err != nil {
		result.Validation.Invalid++
		artifacts.Failed = append(artifacts.Failed, model.FailedEvent{
			BTCID:  ev.ID,
			Title:  ev.Title,
			Stage:  model.StageValidation,
			Reason: err.Error(),
		})
		return
	}

	// 校验
	if violations := validator.ValidateEvent(mapped); len(violations) > 0 {
		result.Validation.Invalid++
		artifacts.Failed = append(artifacts.Failed, model.FailedEvent{
			BTCID:      ev.ID,
			Title:      ev.Title,
			Stage:      model.StageValidation,
			Reason:     "平台记录校验未通过",
			Violations: violations,
		})
		return
	}
	result.Validation.Valid++

	// 写入
	outcome := c.writer.CreateEvent(ctx, mapped)
	artifacts.Processed = append(artifacts.Processed, outcome)

	if !outcome.Created() {
		result.TTEvents.Failed++
		reason := "创建失败"
		if outcome.APIError != nil {
			reason = fmt.Sprintf("%s: %s", outcome.APIError.Type, outcome.APIError.Message)
		}
		artifacts.Failed = append(artifacts.Failed, model.FailedEvent{
			BTCID:      ev.ID,
			Title:      ev.Title,
			Stage:      model.StageProcessing,
			Reason:     reason,
			Violations: outcome.Violations,
		})
		c.sendProgress(progressChan, ProgressEvent{
			Type:      "warning",
			Message:   fmt.Sprintf("活动 %d 写入失败: %s", ev.ID, reason),
			Timestamp: time.Now(),
		})
		return
	}

	result.TTEvents.Created++
	c.sendProgress(progressChan, ProgressEvent{
		Type:    "event_done",
		Message: fmt.Sprintf("活动 %d 已写入: %s", ev.ID, ev.Title),
		Data: map[string]interface{}{
			"btc_id": ev.ID,
			"status": outcome.Status,
		},
		Timestamp: time.Now(),
	})
}

// finalizeAux 运行落库、Excel 报告与归档等旁路收尾，全部尽力而为
func (c *Coordinator) finalizeAux(ctx context.Context, dir string, result *model.RunResult,
	assessment *model.Assessment, artifacts *artifactSet, progressChan chan ProgressEvent) {

	if c.metrics != nil {
		c.metrics.ObserveRun(result)
	}

	if c.store != nil {
		if err := c.store.SaveRun(result, assessment); err != nil {
			c.sendProgress(progressChan, ProgressEvent{
				Type:      "warning",
				Message:   fmt.Sprintf("运行记录落库失败: %v", err),
				Timestamp: time.Now(),
			})
		}
	}

	if c.exportExcel {
		path, err := exporter.WriteRunReport(dir, result, assessment, artifacts.Failed, artifacts.Unmatched)
		if err != nil {
			c.sendProgress(progressChan, ProgressEvent{
				Type:      "warning",
				Message:   fmt.Sprintf("生成 Excel 报告失败: %v", err),
				Timestamp: time.Now(),
			})
		} else {
			c.sendProgress(progressChan, ProgressEvent{
				Type:      "info",
				Message:   fmt.Sprintf("Excel 报告已生成: %s", path),
				Timestamp: time.Now(),
			})
		}
	}

	if c.archiver != nil {
		if err := c.archiver.ArchiveDir(ctx, dir, result.Date); err != nil {
			c.sendProgress(progressChan, ProgressEvent{
				Type:      "warning",
				Message:   fmt.Sprintf("产物归档失败: %v", err),
				Timestamp: time.Now(),
			})
		}
	}
}

// observeFallbacks 上报兜底解析指标
func (c *Coordinator) observeFallbacks(resolved *model.ResolvedEntities) {
	if c.metrics == nil {
		return
	}
	if resolved.Venue.IsFallback() {
		c.metrics.ObserveFallback("venue")
	}
	if resolved.Organizer.IsFallback() {
		c.metrics.ObserveFallback("organizer")
	}
	if resolved.CategoryFirst.IsFallback() {
		c.metrics.ObserveFallback("category")
	}
	if resolved.Geography.IsErrorFallbackGeography {
		c.metrics.ObserveFallback("geography")
	}
}

// setState 推进状态机并广播
func (c *Coordinator) setState(result *model.RunResult, state model.RunState, progressChan chan ProgressEvent) {
	result.State = state
	c.sendProgress(progressChan, ProgressEvent{
		Type:      "state",
		Message:   fmt.Sprintf("进入阶段: %s", state),
		Data:      map[string]string{"state": string(state)},
		Timestamp: time.Now(),
	})
}

// fail 将运行标记为失败并广播
func (c *Coordinator) fail(result *model.RunResult, progressChan chan ProgressEvent, msg string) {
	result.State = model.StateFailed
	result.Error = msg
	result.EndTime = time.Now()
	result.Duration = result.EndTime.Sub(result.StartTime)
	c.sendProgress(progressChan, ProgressEvent{
		Type:      "error",
		Message:   msg,
		Timestamp: time.Now(),
	})
}

// sendProgress 发送进度事件
func (c *Coordinator) sendProgress(ch chan ProgressEvent, event ProgressEvent) {
	select {
	case ch <- event:
	default:
		// 通道已满，丢弃事件
	}
}
