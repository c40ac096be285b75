package importer

import (
	"time"

	"github.com/ybotman/calendaradmin-sub000/internal/archive"
	"github.com/ybotman/calendaradmin-sub000/internal/btcclient"
	"github.com/ybotman/calendaradmin-sub000/internal/config"
	"github.com/ybotman/calendaradmin-sub000/internal/mapper"
	"github.com/ybotman/calendaradmin-sub000/internal/metrics"
	"github.com/ybotman/calendaradmin-sub000/internal/resolver"
	"github.com/ybotman/calendaradmin-sub000/internal/retry"
	"github.com/ybotman/calendaradmin-sub000/internal/store"
	"github.com/ybotman/calendaradmin-sub000/internal/ttclient"
	"github.com/ybotman/calendaradmin-sub000/internal/writer"
)

// Build 按配置装配一条完整流水线。每次调用产生独立的解析缓存，
// 因此未匹配报告只反映本次运行。st / m / arch 允许为 nil。
func Build(cfg *config.AppConfig, st *store.Store, m *metrics.Metrics, arch *archive.S3Archiver, dryRun bool) *Coordinator {
	exec := retry.NewExecutor(retry.Config{
		MaxRetries:   cfg.Retry.MaxRetries,
		InitialDelay: time.Duration(cfg.Retry.InitialDelayMs) * time.Millisecond,
		MaxDelay:     time.Duration(cfg.Retry.MaxDelayMs) * time.Millisecond,
	})

	btc := btcclient.New(cfg.BTC.BaseURL, cfg.BTCTimeout(), cfg.BTC.PageSize, exec)
	tt := ttclient.New(cfg.TT.BaseURL, cfg.TT.AppID, cfg.TT.AuthToken, cfg.TTTimeout(), exec)
	res := resolver.New(tt, resolver.NewCache(), cfg.Location)

	return NewCoordinator(Deps{
		BTC:         btc,
		Resolver:    res,
		Mapper:      mapper.New(cfg.TT.AppID, nil),
		Writer:      writer.New(tt, dryRun),
		Store:       st,
		Metrics:     m,
		Archiver:    arch,
		OutputDir:   cfg.Import.OutputDir,
		ExportExcel: true,
	})
}
