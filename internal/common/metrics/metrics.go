// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	OptimizationRunsCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "optimizer_runs_completed_total",
			Help: "Total number of completed optimization runs",
		},
		[]string{"trip_id"},
	)

	OptimizationRunsFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "optimizer_runs_failed_total",
			Help: "Total number of failed optimization runs",
		},
		[]string{"stage", "error_type"},
	)

	StageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "optimizer_stage_duration_seconds",
			Help: "Duration of pipeline stage execution in seconds",
		},
		[]string{"stage"},
	)

	RetryAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "optimizer_retry_attempts_total",
			Help: "Total number of retry attempts per stage",
		},
		[]string{"stage"},
	)
)
