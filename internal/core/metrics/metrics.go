// Package metrics 提供 Prometheus 指标
//
// 所有方法对 nil 接收者安全，组件可以在未启用指标时直接调用。
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "dx"

// 状态结果标签
const (
	ResultRequested = "requested"
	ResultReceived  = "received"
	ResultTimeout   = "timeout"
	ResultOther     = "other"
)

// Metrics dx 指标集合
type Metrics struct {
	registry *prometheus.Registry

	statusResults     *prometheus.CounterVec
	connectionsClosed prometheus.Counter
	registryPeers     prometheus.Gauge
	dhtQueries        *prometheus.CounterVec
	discoveryEvents   *prometheus.CounterVec
}

// New 创建并注册指标
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		statusResults: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "status_results_total",
			Help:      "Status handler results by kind.",
		}, []string{"result"}),
		connectionsClosed: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "status_connections_closed_total",
			Help:      "Connections closed after reaching the failure threshold.",
		}),
		registryPeers: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "registry_peers",
			Help:      "Number of watched peers in the registry.",
		}),
		dhtQueries: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dht_queries_total",
			Help:      "DHT queries by kind and outcome.",
		}, []string{"kind", "outcome"}),
		discoveryEvents: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "discovery_events_total",
			Help:      "Local discovery events by kind.",
		}, []string{"kind"}),
	}
}

// StatusResult 记录一次状态结果
func (m *Metrics) StatusResult(result string) {
	if m == nil {
		return
	}
	m.statusResults.WithLabelValues(result).Inc()
}

// ConnectionClosed 记录一次因失败阈值关闭的连接
func (m *Metrics) ConnectionClosed() {
	if m == nil {
		return
	}
	m.connectionsClosed.Inc()
}

// SetRegistryPeers 设置注册表节点数
func (m *Metrics) SetRegistryPeers(n int) {
	if m == nil {
		return
	}
	m.registryPeers.Set(float64(n))
}

// DHTQuery 记录一次 DHT 查询
func (m *Metrics) DHTQuery(kind, outcome string) {
	if m == nil {
		return
	}
	m.dhtQueries.WithLabelValues(kind, outcome).Inc()
}

// DiscoveryEvent 记录一次发现事件
func (m *Metrics) DiscoveryEvent(kind string) {
	if m == nil {
		return
	}
	m.discoveryEvents.WithLabelValues(kind).Inc()
}

// Registry 返回底层注册表
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler 返回 /metrics HTTP 处理器
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
