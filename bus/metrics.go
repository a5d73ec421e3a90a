package bus

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/PolyTorus/polytorus-sub000/types"
)

// Metrics is the bus's running in-memory tally. AverageLatency is an
// incremental mean over publish durations.
type Metrics struct {
	TotalMessages  uint64
	PerType        map[types.MessageType]uint64
	PerPriority    map[types.MessagePriority]uint64
	AverageLatency time.Duration
}

// record updates the tally. Caller holds the bus lock.
func (m *Metrics) record(msg types.ModularMessage, latency time.Duration) {
	m.TotalMessages++
	m.PerType[msg.Type]++
	m.PerPriority[msg.Priority]++
	n := time.Duration(m.TotalMessages)
	m.AverageLatency += (latency - m.AverageLatency) / n
}

// Metrics returns a snapshot of the running tally.
func (b *Bus) Metrics() Metrics {
	b.mu.RLock()
	defer b.mu.RUnlock()

	snap := Metrics{
		TotalMessages:  b.metrics.TotalMessages,
		PerType:        make(map[types.MessageType]uint64, len(b.metrics.PerType)),
		PerPriority:    make(map[types.MessagePriority]uint64, len(b.metrics.PerPriority)),
		AverageLatency: b.metrics.AverageLatency,
	}
	for k, v := range b.metrics.PerType {
		snap.PerType[k] = v
	}
	for k, v := range b.metrics.PerPriority {
		snap.PerPriority[k] = v
	}
	return snap
}

// promMetrics exports the same counters to prometheus.
type promMetrics struct {
	messages *prometheus.CounterVec
	latency  prometheus.Histogram
}

func newPromMetrics(reg prometheus.Registerer) *promMetrics {
	p := &promMetrics{
		messages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "polytorus",
			Subsystem: "bus",
			Name:      "messages_total",
			Help:      "Messages published, by type and priority.",
		}, []string{"type", "priority"}),
		latency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "polytorus",
			Subsystem: "bus",
			Name:      "publish_latency_seconds",
			Help:      "Publish fan-out latency.",
			Buckets:   prometheus.ExponentialBuckets(1e-6, 10, 6),
		}),
	}
	reg.MustRegister(p.messages, p.latency)
	return p
}

func (p *promMetrics) observe(msg types.ModularMessage, latency time.Duration) {
	p.messages.WithLabelValues(msg.Type.String(), msg.Priority.String()).Inc()
	p.latency.Observe(latency.Seconds())
}
