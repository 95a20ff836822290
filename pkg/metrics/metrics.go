package metrics

import (
	"io"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
)

// 全局 Registry，供 API 注册与暴露
var DefaultRegistry = prometheus.NewRegistry()

func init() {
	DefaultRegistry.MustRegister(
		StreamsTotal, StreamEventsTotal, StreamErrorsTotal,
		StreamDuration, ActiveStreams,
		MarketRequestsTotal, ToolDuration,
	)
}

// StreamsTotal 流式请求总数（按结束方式）
var StreamsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "advisor_streams_total",
		Help: "流式分析请求总数（按结束方式）",
	},
	[]string{"outcome"}, // final | error | eof | disconnected
)

// StreamEventsTotal 写出的 SSE 事件数
var StreamEventsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "advisor_stream_events_total",
		Help: "写出的 SSE 事件数",
	},
	[]string{"type"}, // agent | final | error
)

// StreamErrorsTotal 按错误分类统计（含流开始前的 400/500）
var StreamErrorsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "advisor_stream_errors_total",
		Help: "流式请求错误数（按分类）",
	},
	[]string{"category"},
)

// StreamDuration 单次流式请求耗时（秒）
var StreamDuration = prometheus.NewHistogram(
	prometheus.HistogramOpts{
		Name:    "advisor_stream_duration_seconds",
		Help:    "单次流式请求耗时（秒）",
		Buckets: []float64{0.5, 1, 2.5, 5, 10, 20, 30, 45, 60, 90},
	},
)

// ActiveStreams 当前打开的流
var ActiveStreams = prometheus.NewGauge(
	prometheus.GaugeOpts{
		Name: "advisor_active_streams",
		Help: "当前打开的 SSE 流数量",
	},
)

// MarketRequestsTotal 行情查询次数（cache 命中 / 上游）
var MarketRequestsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "advisor_market_requests_total",
		Help: "行情查询次数",
	},
	[]string{"source"}, // cache | upstream | error
)

// ToolDuration Advisor 工具调用耗时（秒）
var ToolDuration = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "advisor_tool_duration_seconds",
		Help:    "Advisor 工具调用耗时（秒）",
		Buckets: prometheus.DefBuckets,
	},
	[]string{"tool"},
)

// WritePrometheus 将 Prometheus 文本格式写入 w（供 Hertz 等复用）
func WritePrometheus(w io.Writer) error {
	metrics, err := DefaultRegistry.Gather()
	if err != nil {
		return err
	}
	enc := expfmt.NewEncoder(w, expfmt.NewFormat(expfmt.TypeTextPlain))
	for _, mf := range metrics {
		if err := enc.Encode(mf); err != nil {
			return err
		}
	}
	return nil
}
