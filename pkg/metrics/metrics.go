// Package metrics 提供 Prometheus 指标集合与指标服务
package metrics

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics 指标集合
type Metrics struct {
	// HTTP 请求计数（按方法、路径、状态码）
	HTTPRequestsTotal *prometheus.CounterVec
	// HTTP 请求耗时
	HTTPRequestDuration *prometheus.HistogramVec

	// 调度次数（按时间周期）
	DispatchTotal *prometheus.CounterVec
	// 单次调度内失败的机器人流水线数
	PipelineFailuresTotal prometheus.Counter
	// 机器人流水线耗时
	PipelineDuration prometheus.Histogram

	// 价格解析请求（按数据源层级与结果）
	PriceResolveTotal *prometheus.CounterVec

	// 回测事件发布计数（按事件类型）
	BacktestEventsTotal *prometheus.CounterVec
	// 当前活跃的事件订阅数
	ActiveSubscriptions prometheus.Gauge
	// 运行中的回测数
	RunningBacktests prometheus.Gauge
}

// New 创建并注册指标实例
func New(serviceName string) *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tradingbot",
			Subsystem: serviceName,
			Name:      "http_requests_total",
			Help:      "Total HTTP requests",
		}, []string{"method", "path", "status"}),
		HTTPRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "tradingbot",
			Subsystem: serviceName,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "path"}),
		DispatchTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tradingbot",
			Subsystem: serviceName,
			Name:      "dispatch_total",
			Help:      "Total execution dispatches by time horizon",
		}, []string{"horizon"}),
		PipelineFailuresTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "tradingbot",
			Subsystem: serviceName,
			Name:      "pipeline_failures_total",
			Help:      "Total failed bot execution pipelines",
		}),
		PipelineDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "tradingbot",
			Subsystem: serviceName,
			Name:      "pipeline_duration_seconds",
			Help:      "Bot execution pipeline duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}),
		PriceResolveTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tradingbot",
			Subsystem: serviceName,
			Name:      "price_resolve_total",
			Help:      "Price resolution attempts by source and result",
		}, []string{"source", "result"}),
		BacktestEventsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tradingbot",
			Subsystem: serviceName,
			Name:      "backtest_events_total",
			Help:      "Backtest events published by type",
		}, []string{"type"}),
		ActiveSubscriptions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "tradingbot",
			Subsystem: serviceName,
			Name:      "event_subscriptions_active",
			Help:      "Number of active event bus subscriptions",
		}),
		RunningBacktests: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "tradingbot",
			Subsystem: serviceName,
			Name:      "backtests_running",
			Help:      "Number of currently running backtests",
		}),
	}

	prometheus.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.DispatchTotal,
		m.PipelineFailuresTotal,
		m.PipelineDuration,
		m.PriceResolveTotal,
		m.BacktestEventsTotal,
		m.ActiveSubscriptions,
		m.RunningBacktests,
	)

	return m
}

// StartHTTPServer 启动 Prometheus 指标服务
func StartHTTPServer(port int, path string) {
	if path == "" {
		path = "/metrics"
	}

	mux := http.NewServeMux()
	mux.Handle(path, promhttp.Handler())

	go func() {
		_ = http.ListenAndServe(fmt.Sprintf(":%d", port), mux)
	}()
}
