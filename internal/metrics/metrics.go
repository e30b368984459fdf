// Package metrics exposes prometheus instrumentation for the mirror.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the mirror's prometheus collectors.
type Metrics struct {
	registry *prometheus.Registry

	PruneRuns      *prometheus.CounterVec
	BuildsKept     prometheus.Gauge
	BuildsRemoved  prometheus.Counter
	DeleteFailures prometheus.Counter
	SyncedBuilds   prometheus.Counter
	SyncFailures   prometheus.Counter
}

// New creates the collectors on a private registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		PruneRuns: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "relicmirror_prune_runs_total",
			Help: "Prune passes by mode and result.",
		}, []string{"mode", "result"}),
		BuildsKept: factory.NewGauge(prometheus.GaugeOpts{
			Name: "relicmirror_builds_kept",
			Help: "Size of the canonical build list after the last prune pass.",
		}),
		BuildsRemoved: factory.NewCounter(prometheus.CounterOpts{
			Name: "relicmirror_builds_removed_total",
			Help: "Builds whose artifacts were deleted.",
		}),
		DeleteFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "relicmirror_delete_failures_total",
			Help: "Artifact deletions that failed after retries.",
		}),
		SyncedBuilds: factory.NewCounter(prometheus.CounterOpts{
			Name: "relicmirror_synced_builds_total",
			Help: "New builds added to the canonical list by mirror sync.",
		}),
		SyncFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "relicmirror_sync_failures_total",
			Help: "Builds that failed to materialize during mirror sync.",
		}),
	}
}

// Registry returns the registry backing the /metrics endpoint.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// PruneRunFinished records the outcome of one prune pass.
func (m *Metrics) PruneRunFinished(dryRun, ok bool) {
	mode := "live"
	if dryRun {
		mode = "dry-run"
	}
	result := "success"
	if !ok {
		result = "failure"
	}
	m.PruneRuns.WithLabelValues(mode, result).Inc()
}
