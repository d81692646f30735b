// Package metrics 提供 Prometheus 指标：HTTP 请求指标与流水线、对账、模型调用的领域指标.
//
// Example:
//
//	if err := metrics.InitMetrics(cfg.Metrics); err != nil {
//		log.Fatal(err)
//	}
//
//	metrics.PipelineRuns.WithLabelValues(metrics.ResultCompleted).Inc()
package metrics

import (
	"net/http"
	_ "net/http/pprof" // 自动注册pprof端点
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/yeisme/eduaccess/pkg/configs"
)

const namespace = "eduaccess"

// 流水线结果标签.
const (
	ResultCompleted = "completed"
	ResultFailed    = "failed"
	ResultSkipped   = "skipped" // 已被其他运行抢占
)

// 全局指标变量.
var (
	// RequestCounter HTTP请求计数器.
	RequestCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	// RequestDuration HTTP请求持续时间.
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	// ActiveConnections 正在处理的请求数.
	ActiveConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_connections",
			Help:      "Number of in-flight HTTP requests",
		},
	)

	// PipelineRuns 流水线运行次数，按结果区分.
	PipelineRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pipeline_runs_total",
			Help:      "Material processing runs by result",
		},
		[]string{"result"},
	)

	// PipelineDuration 流水线耗时.
	PipelineDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "pipeline_duration_seconds",
			Help:      "Material processing duration in seconds",
			Buckets:   []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300, 600},
		},
	)

	// RegistryScans 对账子任务次数.
	RegistryScans = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "registry_scan_total",
			Help:      "Registry reconciliation sub-scans by scan and status",
		},
		[]string{"scan", "status"},
	)

	// AIRequests 模型调用次数.
	AIRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ai_requests_total",
			Help:      "Generative model calls by provider and result",
		},
		[]string{"provider", "result"},
	)

	// registry Prometheus注册表.
	registry = prometheus.NewRegistry()

	registerOnce sync.Once
)

// InitMetrics 初始化Metrics，重复调用只注册一次.
func InitMetrics(config configs.MetricsConfig) error {
	if !config.Enabled {
		return nil
	}

	registerOnce.Do(func() {
		if config.RuntimeMetrics {
			registry.MustRegister(
				collectors.NewGoCollector(),
				collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
			)
		}

		registry.MustRegister(
			RequestCounter, RequestDuration, ActiveConnections,
			PipelineRuns, PipelineDuration, RegistryScans, AIRequests,
		)
	})

	return nil
}

// StartMetricsServer 在 engine 上挂载指标与 pprof 端点.
func StartMetricsServer(config configs.MetricsConfig, engine *gin.Engine) error {
	if !config.Enabled {
		return nil
	}

	path := config.Path
	if path == "" {
		path = "/metrics"
	}

	engine.GET(path, gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))

	if config.Pprof {
		engine.GET("/debug/pprof/*any", gin.WrapH(http.DefaultServeMux))
	}

	return nil
}

// GetRegistry 获取Prometheus注册表.
func GetRegistry() *prometheus.Registry {
	return registry
}
