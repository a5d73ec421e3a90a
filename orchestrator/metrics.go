package orchestrator

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/PolyTorus/polytorus-sub000/types"
)

// Metrics is a snapshot of the orchestrator's counters.
type Metrics struct {
	BlocksProcessed    uint64
	LastBlockHeight    int64
	AverageBlockTimeMs float64
	EventsDispatched   uint64
}

type promMetrics struct {
	blocks    prometheus.Counter
	blockTime prometheus.Histogram
	events    *prometheus.CounterVec
}

// WithRegisterer registers the orchestrator's collectors with reg.
// Without this option no Prometheus metrics are exported.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(o *Orchestrator) {
		pm := &promMetrics{
			blocks: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "polytorus_orchestrator_blocks_total",
				Help: "Blocks driven through the full pipeline.",
			}),
			blockTime: prometheus.NewHistogram(prometheus.HistogramOpts{
				Name:    "polytorus_orchestrator_block_seconds",
				Help:    "Wall-clock time per block, mine through finalize.",
				Buckets: prometheus.ExponentialBuckets(0.001, 4, 10),
			}),
			events: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "polytorus_orchestrator_events_total",
				Help: "Dispatched orchestrator events by kind.",
			}, []string{"kind"}),
		}
		reg.MustRegister(pm.blocks, pm.blockTime, pm.events)
		o.prom = pm
	}
}

// recordBlock folds one processed block into the running counters.
func (o *Orchestrator) recordBlock(block *types.Block, elapsed time.Duration) {
	o.mu.Lock()
	o.metrics.BlocksProcessed++
	o.metrics.LastBlockHeight = block.Height
	ms := float64(elapsed.Microseconds()) / 1000
	n := float64(o.metrics.BlocksProcessed)
	o.metrics.AverageBlockTimeMs += (ms - o.metrics.AverageBlockTimeMs) / n
	o.mu.Unlock()

	if o.prom != nil {
		o.prom.blocks.Inc()
		o.prom.blockTime.Observe(elapsed.Seconds())
	}
}

// Metrics returns a copy of the current counters.
func (o *Orchestrator) Metrics() Metrics {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.metrics
}
