package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Namespace 指标命名空间
const Namespace = "mailx"

// 远程操作标签
const (
	OpGetKeys  = "get_keys"
	OpFindNode = "find_node"
	OpRetrieve = "retrieve"
	OpExpand   = "expand"
)

// Metrics mailx 指标集合
type Metrics struct {
	registry *prometheus.Registry

	// RemoteQueryFailures 被吞掉的逐节点失败，按操作分类
	RemoteQueryFailures *prometheus.CounterVec

	// CrawledNodes 爬取发现的节点
	CrawledNodes prometheus.Counter

	// HarvestedKeys 收割到的键
	HarvestedKeys prometheus.Counter

	// PollerReports 轮询器上报次数，按数据源分类
	PollerReports *prometheus.CounterVec
}

// New 创建带独立 Registry 的指标集合
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		RemoteQueryFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "remote_query_failures_total",
			Help:      "Per-peer remote query failures that were absorbed",
		}, []string{"op"}),
		CrawledNodes: factory.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "crawl_nodes_total",
			Help:      "Node IDs discovered by crawls",
		}),
		HarvestedKeys: factory.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "harvested_keys_total",
			Help:      "Distinct keys collected by harvest runs",
		}),
		PollerReports: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "poller_reports_total",
			Help:      "Changes reported by pollers",
		}, []string{"source"}),
	}
}

// Handler 返回 /metrics 处理器
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ============================================================================
//                              记录方法
// ============================================================================

// RemoteQueryFailed 记录一次被吞掉的远程失败
func (m *Metrics) RemoteQueryFailed(op string) {
	if m == nil {
		return
	}
	m.RemoteQueryFailures.WithLabelValues(op).Inc()
}

// NodesCrawled 记录一次爬取发现的节点数
func (m *Metrics) NodesCrawled(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.CrawledNodes.Add(float64(n))
}

// KeysHarvested 记录一次收割得到的键数
func (m *Metrics) KeysHarvested(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.HarvestedKeys.Add(float64(n))
}

// PollerReported 记录一次轮询上报
func (m *Metrics) PollerReported(source string) {
	if m == nil {
		return
	}
	m.PollerReports.WithLabelValues(source).Inc()
}
