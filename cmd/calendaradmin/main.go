package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/ybotman/calendaradmin-sub000/internal/archive"
	"github.com/ybotman/calendaradmin-sub000/internal/config"
	"github.com/ybotman/calendaradmin-sub000/internal/importer"
	"github.com/ybotman/calendaradmin-sub000/internal/metrics"
	"github.com/ybotman/calendaradmin-sub000/internal/server"
	"github.com/ybotman/calendaradmin-sub000/internal/store"
)

var (
	date    = flag.String("date", "", "导入目标日期 YYYY-MM-DD (默认今天)")
	dryRun  = flag.Bool("dry-run", false, "dry-run 模式：不触达 TT 写接口")
	serve   = flag.Bool("serve", false, "以 HTTP 服务方式运行")
	port    = flag.Int("port", 0, "服务端口 (config.toml 优先；仅当未显式配置 port 时生效)")
	devMode = flag.Bool("dev", false, "开发模式")
)

func main() {
	flag.Parse()

	fmt.Println("==========================================")
	fmt.Println("  CalendarAdmin - BTC → TT 活动导入工具")
	fmt.Println("==========================================")

	// .env 不存在时静默跳过
	_ = godotenv.Load()

	// 加载配置
	cfg, info, err := config.LoadConfigWithInfo()
	if err != nil {
		log.Printf("加载配置失败，使用默认配置: %v", err)
		cfg = config.DefaultConfig()
		info = config.LoadConfigInfo{}
	}

	// 命令行参数覆盖配置
	if *port > 0 && !info.PortSpecified {
		cfg.Server.Port = *port
	}
	if *devMode {
		cfg.Server.DevMode = true
	}
	if *dryRun {
		cfg.Import.DryRun = true
	}

	// 运行日志库（失败降级为不落库）
	var st *store.Store
	if dataDir, err := config.EnsureDataDir(cfg); err != nil {
		log.Printf("创建数据目录失败，运行日志不启用: %v", err)
	} else {
		st, err = store.New(filepath.Join(dataDir, "calendaradmin.db"))
		if err != nil {
			log.Printf("初始化运行日志库失败，运行日志不启用: %v", err)
			st = nil
		} else {
			defer st.Close()
		}
	}

	// S3 归档（未配置 bucket 则不启用）
	var arch *archive.S3Archiver
	if cfg.Archive.S3Bucket != "" {
		arch, err = archive.NewS3Archiver(context.Background(), cfg.Archive.S3Bucket, cfg.Archive.S3Region, cfg.Archive.Prefix)
		if err != nil {
			log.Printf("初始化 S3 归档失败，归档不启用: %v", err)
			arch = nil
		}
	}

	m := metrics.New(nil)

	if *serve {
		runServer(cfg, st, m, arch)
		return
	}

	runOnce(cfg, st, m, arch)
}

// runOnce 执行单次导入后退出，放行判定失败时返回非零退出码
func runOnce(cfg *config.AppConfig, st *store.Store, m *metrics.Metrics, arch *archive.S3Archiver) {
	target := time.Now()
	if *date != "" {
		parsed, err := time.Parse("2006-01-02", *date)
		if err != nil {
			log.Fatalf("无效的日期 %q: %v", *date, err)
		}
		target = parsed
	}

	if cfg.Import.DryRun {
		fmt.Println("[dry-run] 本次运行不会触达 TT 写接口")
	}
	fmt.Printf("导入目标日期: %s\n", target.Format("2006-01-02"))

	coordinator := importer.Build(cfg, st, m, arch, cfg.Import.DryRun)
	result, assessment := coordinator.Run(context.Background(), importer.ImportOptions{
		Date:   target,
		DryRun: cfg.Import.DryRun,
	})

	fmt.Printf("\n运行 %s 结束: 状态=%s 抓取=%d 创建=%d 删除=%d 失败=%d 耗时=%s\n",
		result.RunID, result.State,
		result.BTCEvents.Total, result.TTEvents.Created, result.TTEvents.Deleted, result.TTEvents.Failed,
		result.Duration.Round(time.Millisecond))

	if assessment == nil {
		fmt.Println("放行判定: 无（运行失败）")
		os.Exit(1)
	}

	fmt.Printf("放行判定: 解析率=%.1f%% 校验率=%.1f%% 总体=%.1f%% → 放行=%v\n",
		assessment.EntityResolutionRate*100, assessment.ValidationRate*100,
		assessment.OverallRate*100, assessment.CanProceed)
	for _, rec := range assessment.Recommendations {
		fmt.Printf("  - %s\n", rec)
	}

	if !assessment.CanProceed {
		os.Exit(1)
	}
}

// runServer 以 HTTP 服务方式运行，直到收到终止信号
func runServer(cfg *config.AppConfig, st *store.Store, m *metrics.Metrics, arch *archive.S3Archiver) {
	srv := server.New(cfg, st, m, arch)

	if err := srv.StartCron(); err != nil {
		log.Printf("定时导入启动失败: %v", err)
	}

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	go func() {
		fmt.Printf("服务启动中，监听端口 %d ...\n", cfg.Server.Port)
		if err := srv.Run(addr); err != nil {
			log.Fatalf("服务启动失败: %v", err)
		}
	}()

	fmt.Println("\n按 Ctrl+C 停止服务...")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	fmt.Println("\n正在关闭服务...")
	srv.Stop()
}
