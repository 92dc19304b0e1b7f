// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	WorkerJobsCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_completed_total",
			Help: "Total number of jobs completed by worker",
		},
		[]string{"task_type"},
	)

	WorkerJobsFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_failed_total",
			Help: "Total number of jobs failed by worker",
		},
		[]string{"task_type", "error_code"},
	)

	WorkerJobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "worker_job_duration_seconds",
			Help: "Duration of job processing in seconds",
		},
		[]string{"task_type"},
	)

	WorkerJobsActive = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "worker_jobs_active",
			Help: "Number of active jobs per worker",
		},
		[]string{"task_type"},
	)

	PairingRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pairing_runs_total",
			Help: "Pairing runs by scoring model and outcome",
		},
		[]string{"model", "status"},
	)

	PairingPairs = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pairing_pairs_total",
			Help: "Pairs examined, by outcome (accepted or skip reason)",
		},
		[]string{"outcome"},
	)

	PairingRunDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pairing_run_duration_seconds",
			Help:    "Engine time per pairing run, excluding snapshot loading",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 12),
		},
		[]string{"model"},
	)

	PairingAcceptedRisk = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "pairing_accepted_risk",
			Help:    "Risk score of accepted pairs",
			Buckets: prometheus.LinearBuckets(0, 10, 11),
		},
	)

	SnapshotLoads = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pairing_snapshot_loads_total",
			Help: "Snapshot loads by outcome",
		},
		[]string{"status"},
	)
)

// RecordPairOutcomes adds one run's per-outcome pair counts.
func RecordPairOutcomes(accepted int, skipped map[string]int) {
	if accepted > 0 {
		PairingPairs.WithLabelValues("accepted").Add(float64(accepted))
	}
	for reason, n := range skipped {
		PairingPairs.WithLabelValues(reason).Add(float64(n))
	}
}
