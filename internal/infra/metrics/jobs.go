package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func init() { register(sweepItemsTotal, sweepDuration) }

var (
	sweepItemsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reconcile_sweep_items_total",
			Help: "Records handled by the reconcilers, labeled by sweep and result.",
		},
		[]string{"sweep", "result"}, // result: 'deactivated', 'success', 'failure', 'error', ...
	)

	sweepDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "reconcile_sweep_duration_seconds",
			Help:    "Wall time of one reconciler pass.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"sweep"},
	)
)

func IncSweepItem(sweep, result string) {
	sweepItemsTotal.WithLabelValues(norm(sweep), norm(result)).Inc()
}

func ObserveSweep(sweep string, started time.Time) {
	sweepDuration.WithLabelValues(norm(sweep)).Observe(time.Since(started).Seconds())
}
