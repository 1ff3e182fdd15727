package services

import "github.com/prometheus/client_golang/prometheus"

var (
	// dedupEvents counts handled events by kind (forward|link) and outcome
	// (new|duplicate|race|error).
	dedupEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "slowpoke_dedup_events_total",
			Help: "Dedup decisions by event kind and outcome.",
		},
		[]string{"kind", "outcome"},
	)

	// replies counts duplicate replies by type (asset|notice|failed|skipped).
	replies = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "slowpoke_replies_total",
			Help: "Replies sent for duplicates.",
		},
		[]string{"type"},
	)

	sweepRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "slowpoke_sweeps_total",
			Help: "Retention sweeps by result (ok|partial|skipped|failed).",
		},
		[]string{"result"},
	)

	sweepPurged = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "slowpoke_sweep_purged_rows_total",
			Help: "Rows removed by retention sweeps.",
		},
	)

	sweepTenantFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "slowpoke_sweep_tenant_failures_total",
			Help: "Tenants that failed to purge during a sweep.",
		},
	)

	sweepDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "slowpoke_sweep_duration_seconds",
			Help:    "Duration of a full retention sweep.",
			Buckets: []float64{.01, .05, .1, .5, 1, 5, 15, 60, 300},
		},
	)
)

func init() {
	prometheus.MustRegister(dedupEvents, replies, sweepRuns, sweepPurged, sweepTenantFailures, sweepDuration)
}
