// Package metrics 提供 syncmesh 的 Prometheus 指标
//
// 所有方法对 nil *Metrics 安全，关闭指标时组件无需判空。
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Namespace 指标命名空间
const Namespace = "syncmesh"

// 结果标签
const (
	OutcomeOK        = "ok"
	OutcomeFailed    = "failed"
	OutcomeDropped   = "dropped"
	OutcomeDuplicate = "duplicate"
	OutcomeForeign   = "foreign"
	OutcomeRejected  = "rejected"
	OutcomeMalformed = "malformed"
	OutcomeError     = "error"
)

// Metrics 指标集合
type Metrics struct {
	DialAttempts *prometheus.CounterVec

	OpsEnqueued  prometheus.Counter
	OpsBroadcast prometheus.Counter
	OpDeliveries *prometheus.CounterVec
	OpsReceived  *prometheus.CounterVec
	QueueDepth   prometheus.Gauge
	Invariants   prometheus.Counter

	Requests        *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	InFlight        prometheus.Gauge

	Heartbeats *prometheus.CounterVec

	ConnectedPeers prometheus.Gauge
}

// New 在 reg 上注册全部指标；reg 为 nil 时返回 nil（关闭指标）
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		return nil
	}
	f := promauto.With(reg)
	return &Metrics{
		DialAttempts: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace, Subsystem: "discovery",
			Name: "dial_attempts_total",
			Help: "Dial attempts by outcome",
		}, []string{"outcome"}),

		OpsEnqueued: f.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace, Subsystem: "broadcast",
			Name: "operations_enqueued_total",
			Help: "Local operations accepted into the outbound queue",
		}),
		OpsBroadcast: f.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace, Subsystem: "broadcast",
			Name: "operations_sent_total",
			Help: "Operations fanned out to peers",
		}),
		OpDeliveries: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace, Subsystem: "broadcast",
			Name: "deliveries_total",
			Help: "Per-peer operation deliveries by outcome",
		}, []string{"outcome"}),
		OpsReceived: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace, Subsystem: "dispatcher",
			Name: "operations_received_total",
			Help: "Inbound operations by outcome",
		}, []string{"outcome"}),
		QueueDepth: f.NewGauge(prometheus.GaugeOpts{
			Namespace: Namespace, Subsystem: "broadcast",
			Name: "queue_depth",
			Help: "Operations waiting in the outbound queue",
		}),
		Invariants: f.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "invariant_violations_total",
			Help:      "Failures encoding well-formed local values",
		}),

		Requests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace, Subsystem: "dispatcher",
			Name: "requests_total",
			Help: "Inbound requests by kind and outcome",
		}, []string{"kind", "outcome"}),
		RequestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: Namespace, Subsystem: "dispatcher",
			Name:    "request_duration_seconds",
			Help:    "Inbound request handling latency",
			Buckets: prometheus.DefBuckets,
		}, []string{"kind"}),
		InFlight: f.NewGauge(prometheus.GaugeOpts{
			Namespace: Namespace, Subsystem: "dispatcher",
			Name: "in_flight",
			Help: "Inbound streams being handled",
		}),

		Heartbeats: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace, Subsystem: "liveness",
			Name: "heartbeats_total",
			Help: "Heartbeats by direction and outcome",
		}, []string{"direction", "outcome"}),

		ConnectedPeers: f.NewGauge(prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "connected_peers",
			Help:      "Currently connected peers",
		}),
	}
}

// ============================================================================
//                              记录方法（nil 安全）
// ============================================================================

// Dial 记录一次拨号
func (m *Metrics) Dial(outcome string) {
	if m == nil {
		return
	}
	m.DialAttempts.WithLabelValues(outcome).Inc()
}

// Enqueued 记录入队
func (m *Metrics) Enqueued() {
	if m == nil {
		return
	}
	m.OpsEnqueued.Inc()
}

// SetQueueDepth 更新队列深度
func (m *Metrics) SetQueueDepth(n int) {
	if m == nil {
		return
	}
	m.QueueDepth.Set(float64(n))
}

// Broadcast 记录一次扇出及每个节点的结果
func (m *Metrics) Broadcast(ok, failed int) {
	if m == nil {
		return
	}
	m.OpsBroadcast.Inc()
	m.OpDeliveries.WithLabelValues(OutcomeOK).Add(float64(ok))
	m.OpDeliveries.WithLabelValues(OutcomeFailed).Add(float64(failed))
}

// Invariant 记录不变量违例
func (m *Metrics) Invariant() {
	if m == nil {
		return
	}
	m.Invariants.Inc()
}

// Received 记录入站操作
func (m *Metrics) Received(outcome string) {
	if m == nil {
		return
	}
	m.OpsReceived.WithLabelValues(outcome).Inc()
}

// Request 记录一次入站请求
func (m *Metrics) Request(kind, outcome string, seconds float64) {
	if m == nil {
		return
	}
	m.Requests.WithLabelValues(kind, outcome).Inc()
	m.RequestDuration.WithLabelValues(kind).Observe(seconds)
}

// AddInFlight 调整处理中流数
func (m *Metrics) AddInFlight(delta int) {
	if m == nil {
		return
	}
	m.InFlight.Add(float64(delta))
}

// Heartbeat 记录心跳
func (m *Metrics) Heartbeat(direction, outcome string) {
	if m == nil {
		return
	}
	m.Heartbeats.WithLabelValues(direction, outcome).Inc()
}

// SetConnected 更新已连接节点数
func (m *Metrics) SetConnected(n int) {
	if m == nil {
		return
	}
	m.ConnectedPeers.Set(float64(n))
}
