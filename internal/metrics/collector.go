package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// #region collector

// Collector holds the engine's Prometheus metrics. A nil *Collector is valid
// and records nothing.
type Collector struct {
	requests     *prometheus.CounterVec
	duration     prometheus.Histogram
	softFailures *prometheus.CounterVec
	snapshotRPCs *prometheus.CounterVec
}

// NewCollector registers the metrics on reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	f := promauto.With(reg)
	return &Collector{
		requests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "entity_profile_requests_total",
			Help: "Entity profile requests by terminal outcome.",
		}, []string{"outcome"}),
		duration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "entity_profile_duration_seconds",
			Help:    "Time from request to terminal delivery.",
			Buckets: prometheus.DefBuckets,
		}),
		softFailures: f.NewCounterVec(prometheus.CounterOpts{
			Name: "entity_profile_soft_failures_total",
			Help: "Sub-operation failures that degraded a profile instead of failing it.",
		}, []string{"branch"}),
		snapshotRPCs: f.NewCounterVec(prometheus.CounterOpts{
			Name: "entity_snapshot_rpc_total",
			Help: "Snapshot requests sent to nodes by outcome.",
		}, []string{"node", "outcome"}),
	}
}

// #endregion collector

// #region observe

// ObserveRequest records one terminal delivery.
func (c *Collector) ObserveRequest(outcome string, elapsed time.Duration) {
	if c == nil {
		return
	}
	c.requests.WithLabelValues(outcome).Inc()
	c.duration.Observe(elapsed.Seconds())
}

// ObserveSoftFailure records a degraded branch.
func (c *Collector) ObserveSoftFailure(branch string) {
	if c == nil {
		return
	}
	c.softFailures.WithLabelValues(branch).Inc()
}

// ObserveSnapshotRPC records one node answer.
func (c *Collector) ObserveSnapshotRPC(node, outcome string) {
	if c == nil {
		return
	}
	c.snapshotRPCs.WithLabelValues(node, outcome).Inc()
}

// #endregion observe
