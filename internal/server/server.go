package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/robfig/cron/v3"

	"github.com/ybotman/calendaradmin-sub000/internal/archive"
	"github.com/ybotman/calendaradmin-sub000/internal/btcclient"
	"github.com/ybotman/calendaradmin-sub000/internal/config"
	"github.com/ybotman/calendaradmin-sub000/internal/importer"
	"github.com/ybotman/calendaradmin-sub000/internal/metrics"
	"github.com/ybotman/calendaradmin-sub000/internal/retry"
	"github.com/ybotman/calendaradmin-sub000/internal/store"
)

// Server HTTP 服务：手动触发导入（SSE 进度流）、运行历史查询、指标暴露
type Server struct {
	router   *gin.Engine
	cfg      *config.AppConfig
	btc      *btcclient.Client
	store    *store.Store
	metrics  *metrics.Metrics
	archiver *archive.S3Archiver
	cron     *cron.Cron
}

// New 创建服务器。st / m / arch 允许为 nil，对应端点降级。
func New(cfg *config.AppConfig, st *store.Store, m *metrics.Metrics, arch *archive.S3Archiver) *Server {
	if !cfg.Server.DevMode {
		gin.SetMode(gin.ReleaseMode)
	}

	exec := retry.NewExecutor(retry.Config{
		MaxRetries:   cfg.Retry.MaxRetries,
		InitialDelay: time.Duration(cfg.Retry.InitialDelayMs) * time.Millisecond,
		MaxDelay:     time.Duration(cfg.Retry.MaxDelayMs) * time.Millisecond,
	})

	s := &Server{
		router:   gin.Default(),
		cfg:      cfg,
		btc:      btcclient.New(cfg.BTC.BaseURL, cfg.BTCTimeout(), cfg.BTC.PageSize, exec),
		store:    st,
		metrics:  m,
		archiver: arch,
	}

	s.setupRoutes()
	return s
}

// setupRoutes 设置路由
func (s *Server) setupRoutes() {
	// CORS
	s.router.Use(func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	})

	api := s.router.Group("/api")
	{
		api.POST("/import", s.Import)
		api.GET("/runs", s.ListRuns)
		api.GET("/source/organizers", s.ListSourceOrganizers)
		api.GET("/health", s.Health)
	}

	s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))
}

// Import 触发一次导入 (SSE 流式响应)
// POST /api/import?date=2025-07-04&dry_run=true
func (s *Server) Import(c *gin.Context) {
	dateStr := c.DefaultQuery("date", time.Now().Format("2006-01-02"))
	date, err := time.Parse("2006-01-02", dateStr)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("无效的日期: %s", dateStr)})
		return
	}

	dryRun := s.cfg.Import.DryRun
	if v := c.Query("dry_run"); v != "" {
		dryRun = v == "true" || v == "1"
	}

	// 设置 SSE 响应头
	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	flusher, ok := c.Writer.(http.Flusher)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "不支持流式响应"})
		return
	}

	// 每次请求装配独立流水线，未匹配报告仅反映本次运行
	coordinator := importer.Build(s.cfg, s.store, s.metrics, s.archiver, dryRun)

	progressChan := coordinator.Import(c.Request.Context(), importer.ImportOptions{
		Date:   date,
		DryRun: dryRun,
	})

	// 流式发送进度事件
	for event := range progressChan {
		eventData, err := json.Marshal(event)
		if err != nil {
			continue
		}
		fmt.Fprintf(c.Writer, "data: %s\n\n", eventData)
		flusher.Flush()
	}
}

// ListRuns 查询最近运行历史
// GET /api/runs?limit=20
func (s *Server) ListRuns(c *gin.Context) {
	if s.store == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "运行日志未启用"})
		return
	}

	limit := 50
	if v := c.Query("limit"); v != "" {
		fmt.Sscanf(v, "%d", &limit)
	}

	runs, err := s.store.ListRuns(limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"runs": runs})
}

// ListSourceOrganizers 列出源侧组织者（运营核对未匹配实体用）
// GET /api/source/organizers
func (s *Server) ListSourceOrganizers(c *gin.Context) {
	organizers, err := s.btc.FetchOrganizers(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"organizers": organizers})
}

// Health 健康检查
// GET /api/health
func (s *Server) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

// cronImportDate 定时任务导入前一天已结束的日期
func cronImportDate(now time.Time) time.Time {
	return now.AddDate(0, 0, -1)
}

// StartCron 按配置启动定时导入（import_cron 为空则不启用）
func (s *Server) StartCron() error {
	expr := s.cfg.Server.ImportCron
	if expr == "" {
		return nil
	}

	s.cron = cron.New()
	_, err := s.cron.AddFunc(expr, func() {
		date := cronImportDate(time.Now())
		log.Printf("定时导入触发: %s", date.Format("2006-01-02"))
		coordinator := importer.Build(s.cfg, s.store, s.metrics, s.archiver, s.cfg.Import.DryRun)
		result, assessment := coordinator.Run(context.Background(), importer.ImportOptions{Date: date, DryRun: s.cfg.Import.DryRun})
		canProceed := assessment != nil && assessment.CanProceed
		log.Printf("定时导入完成: run=%s state=%s created=%d 放行=%v",
			result.RunID, result.State, result.TTEvents.Created, canProceed)
	})
	if err != nil {
		return fmt.Errorf("failed to schedule import cron %q: %w", expr, err)
	}

	s.cron.Start()
	log.Printf("定时导入已启用: %s", expr)
	return nil
}

// Run 启动服务器
func (s *Server) Run(addr string) error {
	return s.router.Run(addr)
}

// Stop 停止后台任务
func (s *Server) Stop() {
	if s.cron != nil {
		s.cron.Stop()
	}
}
