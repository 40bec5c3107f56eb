// Package metrics 提供监控指标功能.
// 支持Prometheus标准，收集HTTP和分块流水线指标.
//
// Example:
//
//	import "github.com/khaznati/chunkvault/pkg/metrics"
//
//	err := metrics.InitMetrics(config.Metrics)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	// 记录指标
//	metrics.RequestCounter.WithLabelValues("GET", "/api/v1/files").Inc()
//	metrics.ChunkOpCounter.WithLabelValues("put", "s3", "ok").Inc()
package metrics

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/khaznati/chunkvault/pkg/configs"
)

// 全局指标变量.
var (
	// RequestCounter HTTP请求计数器.
	RequestCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint"},
	)

	// RequestDuration HTTP请求持续时间.
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	// ChunkOpCounter 分块操作计数器，按操作、后端和结果分类.
	ChunkOpCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chunk_operations_total",
			Help: "Total number of chunk operations by op, backend and result",
		},
		[]string{"op", "backend", "result"},
	)

	// ChunkOpDuration 分块操作持续时间.
	ChunkOpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "chunk_operation_duration_seconds",
			Help:    "Chunk operation duration in seconds",
			Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		},
		[]string{"op", "backend"},
	)

	// ThrottleEvents 后端限流事件计数器.
	ThrottleEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "backend_throttle_events_total",
			Help: "Total number of throttling responses from the object backend",
		},
		[]string{"backend"},
	)

	// TransferBytes 上传/下载传输字节计数器.
	TransferBytes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "transfer_bytes_total",
			Help: "Total bytes transferred through the chunk pipeline",
		},
		[]string{"direction"},
	)

	// ActiveUploads 进行中的上传会话数.
	ActiveUploads = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "active_upload_sessions",
			Help: "Number of upload sessions currently in progress",
		},
	)

	// registry Prometheus注册表.
	registry = prometheus.NewRegistry()
)

// InitMetrics 初始化Metrics.
func InitMetrics(config configs.MetricsConfig) error {
	if !config.Enabled {
		return nil
	}

	// 注册标准收集器
	if config.RuntimeMetrics {
		registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}

	// 注册自定义指标
	registry.MustRegister(
		RequestCounter,
		RequestDuration,
		ChunkOpCounter,
		ChunkOpDuration,
		ThrottleEvents,
		TransferBytes,
		ActiveUploads,
	)

	return nil
}

// RegisterMetricsRoute 在给定引擎上暴露指标端点.
func RegisterMetricsRoute(config configs.MetricsConfig, engine *gin.Engine) {
	if !config.Enabled {
		return
	}

	endpoint := config.Endpoint
	if endpoint == "" {
		endpoint = "/metrics"
	}

	engine.GET(endpoint, gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))
}

// GetRegistry 获取Prometheus注册表.
func GetRegistry() *prometheus.Registry {
	return registry
}

// NewCounter 创建新的计数器指标.
func NewCounter(name, help string, labels []string) *prometheus.CounterVec {
	counter := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: name,
			Help: help,
		},
		labels,
	)
	registry.MustRegister(counter)

	return counter
}

// NewGauge 创建新的仪表盘指标.
func NewGauge(name, help string, labels []string) *prometheus.GaugeVec {
	gauge := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: name,
			Help: help,
		},
		labels,
	)
	registry.MustRegister(gauge)

	return gauge
}

// NewHistogram 创建新的直方图指标.
func NewHistogram(name, help string, labels []string) *prometheus.HistogramVec {
	histogram := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    name,
			Help:    help,
			Buckets: prometheus.DefBuckets,
		},
		labels,
	)
	registry.MustRegister(histogram)

	return histogram
}
