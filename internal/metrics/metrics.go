package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/ybotman/calendaradmin-sub000/internal/model"
)

// Metrics 导入流水线指标集合
type Metrics struct {
	runsTotal      *prometheus.CounterVec
	eventsTotal    *prometheus.CounterVec
	fallbacksTotal *prometheus.CounterVec
	runDuration    prometheus.Summary
}

// New 创建并注册指标；registry 为 nil 时使用默认注册表
func New(registry *prometheus.Registry) *Metrics {
	m := &Metrics{
		runsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "calendaradmin",
			Name:      "import_runs_total",
			Help:      "Import runs by terminal state",
		}, []string{"state", "dry_run"}),
		eventsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "calendaradmin",
			Name:      "events_total",
			Help:      "Per-event outcomes of the import pipeline",
		}, []string{"outcome"}),
		fallbacksTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "calendaradmin",
			Name:      "resolution_fallbacks_total",
			Help:      "Entity resolutions that fell back to sentinel values",
		}, []string{"entity"}),
		runDuration: prometheus.NewSummary(prometheus.SummaryOpts{
			Namespace: "calendaradmin",
			Name:      "run_duration_seconds",
			Help:      "Time spent per import run",
		}),
	}

	if registry != nil {
		registry.MustRegister(m.runsTotal, m.eventsTotal, m.fallbacksTotal, m.runDuration)
	} else {
		prometheus.MustRegister(m.runsTotal, m.eventsTotal, m.fallbacksTotal, m.runDuration)
	}
	return m
}

// ObserveRun 按运行结果记录运行级指标
func (m *Metrics) ObserveRun(result *model.RunResult) {
	if m == nil || result == nil {
		return
	}
	dry := "false"
	if result.DryRun {
		dry = "true"
	}
	m.runsTotal.WithLabelValues(string(result.State), dry).Inc()
	m.runDuration.Observe(result.Duration.Seconds())

	m.eventsTotal.WithLabelValues("created").Add(float64(result.TTEvents.Created))
	m.eventsTotal.WithLabelValues("failed").Add(float64(result.TTEvents.Failed))
	m.eventsTotal.WithLabelValues("invalid").Add(float64(result.Validation.Invalid))
	m.eventsTotal.WithLabelValues("unresolved").Add(float64(result.EntityResolution.Failure))
}

// ObserveFallback 记录一次实体兜底（entity: venue|organizer|category|geography）
func (m *Metrics) ObserveFallback(entity string) {
	if m == nil {
		return
	}
	m.fallbacksTotal.WithLabelValues(entity).Inc()
}
