package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// EngineMetrics counts the transaction engine's lifecycle outcomes.
type EngineMetrics struct {
	submitted    *prometheus.CounterVec
	finalized    *prometheus.CounterVec
	failed       *prometheus.CounterVec
	rejected     *prometheus.CounterVec
	cacheRefresh *prometheus.CounterVec
	inflight     prometheus.Gauge
}

var (
	engineOnce     sync.Once
	engineRegistry *EngineMetrics
)

// Engine returns the process-wide engine metrics, registering them on first
// use.
func Engine() *EngineMetrics {
	engineOnce.Do(func() {
		engineRegistry = &EngineMetrics{
			submitted: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "lendboard_tx_submitted_total",
				Help: "Count of call units handed to the signer by action.",
			}, []string{"action"}),
			finalized: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "lendboard_tx_finalized_total",
				Help: "Count of operations the ledger finalized successfully by action.",
			}, []string{"action"}),
			failed: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "lendboard_tx_failed_total",
				Help: "Count of operations that ended in error by action and stage.",
			}, []string{"action", "stage"}),
			rejected: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "lendboard_tx_rejected_total",
				Help: "Count of operations rejected by pre-flight validation by action.",
			}, []string{"action"}),
			cacheRefresh: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "lendboard_cache_refresh_total",
				Help: "Count of cache invalidation waves by wave.",
			}, []string{"wave"}),
			inflight: prometheus.NewGauge(prometheus.GaugeOpts{
				Name: "lendboard_tx_inflight",
				Help: "Whether an operation is currently in flight.",
			}),
		}
		prometheus.MustRegister(
			engineRegistry.submitted,
			engineRegistry.finalized,
			engineRegistry.failed,
			engineRegistry.rejected,
			engineRegistry.cacheRefresh,
			engineRegistry.inflight,
		)
	})
	return engineRegistry
}

func (m *EngineMetrics) ObserveSubmitted(action string) {
	if m == nil {
		return
	}
	m.submitted.WithLabelValues(action).Inc()
}

func (m *EngineMetrics) ObserveFinalized(action string) {
	if m == nil {
		return
	}
	m.finalized.WithLabelValues(action).Inc()
}

func (m *EngineMetrics) ObserveFailed(action, stage string) {
	if m == nil {
		return
	}
	if stage == "" {
		stage = "unknown"
	}
	m.failed.WithLabelValues(action, stage).Inc()
}

func (m *EngineMetrics) ObserveRejected(action string) {
	if m == nil {
		return
	}
	m.rejected.WithLabelValues(action).Inc()
}

func (m *EngineMetrics) ObserveCacheRefresh(wave string) {
	if m == nil {
		return
	}
	m.cacheRefresh.WithLabelValues(wave).Inc()
}

func (m *EngineMetrics) SetInflight(active bool) {
	if m == nil {
		return
	}
	if active {
		m.inflight.Set(1)
		return
	}
	m.inflight.Set(0)
}
