// Package metrics exposes prometheus collectors for the editor core.
//
// Collectors are registered on the Registerer passed to New, never on the
// global default registry, so several editors (or tests) can each own a set.
// A nil *Metrics is valid and records nothing.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Namespace prefixes every metric name.
const Namespace = "inkwell"

// Metrics holds the editor collectors.
type Metrics struct {
	commits           *prometheus.CounterVec
	rollbacks         prometheus.Counter
	reconcilePasses   prometheus.Counter
	hostMutations     *prometheus.CounterVec
	reconcileFaults   prometheus.Counter
	reconcileDuration prometheus.Histogram
	nodes             prometheus.Gauge
}

// New creates the collectors and registers them on reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		commits: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "commits_total",
			Help:      "Committed transactions by source (update or set_state).",
		}, []string{"source"}),
		rollbacks: f.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "rollbacks_total",
			Help:      "Transactions abandoned because the mutator or commit failed.",
		}),
		reconcilePasses: f.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "reconcile_passes_total",
			Help:      "Reconciliation passes run against an attached host.",
		}),
		hostMutations: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "host_mutations_total",
			Help:      "Host mutations issued by the reconciler, by operation.",
		}, []string{"op"}),
		reconcileFaults: f.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "reconcile_faults_total",
			Help:      "Reconciliation passes that reported a fault.",
		}),
		reconcileDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "reconcile_duration_seconds",
			Help:      "Time spent patching the host per pass.",
			Buckets:   prometheus.ExponentialBuckets(0.00005, 4, 8),
		}),
		nodes: f.NewGauge(prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "document_nodes",
			Help:      "Nodes in the latest committed snapshot, root included.",
		}),
	}
}

// Commit records a committed transaction.
func (m *Metrics) Commit(source string, nodes int) {
	if m == nil {
		return
	}
	m.commits.WithLabelValues(source).Inc()
	m.nodes.Set(float64(nodes))
}

// Rollback records an abandoned transaction.
func (m *Metrics) Rollback() {
	if m == nil {
		return
	}
	m.rollbacks.Inc()
}

// HostMutations holds per-operation counts for one reconciliation pass.
type HostMutations struct {
	Created   int
	Updated   int
	Moved     int
	Removed   int
	Selection bool
}

// Reconcile records one reconciliation pass.
func (m *Metrics) Reconcile(d time.Duration, muts HostMutations, fault bool) {
	if m == nil {
		return
	}
	m.reconcilePasses.Inc()
	m.reconcileDuration.Observe(d.Seconds())
	m.hostMutations.WithLabelValues("create").Add(float64(muts.Created))
	m.hostMutations.WithLabelValues("update").Add(float64(muts.Updated))
	m.hostMutations.WithLabelValues("move").Add(float64(muts.Moved))
	m.hostMutations.WithLabelValues("remove").Add(float64(muts.Removed))
	if muts.Selection {
		m.hostMutations.WithLabelValues("select").Inc()
	}
	if fault {
		m.reconcileFaults.Inc()
	}
}
