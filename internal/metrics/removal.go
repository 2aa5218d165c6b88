package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// RunStatuses are the label values of LastRunStatus.
var RunStatuses = []string{"ok", "declined", "error"}

// Removal metrics
var (
	// RemovedTotal counts objects removed, by kind (file or directory)
	RemovedTotal *prometheus.CounterVec

	// DeclinedTotal counts objects left in place because the user said no
	DeclinedTotal prometheus.Counter

	// ErrorsTotal counts removal failures that produced a diagnostic
	ErrorsTotal prometheus.Counter

	// SkippedTotal counts objects refused on structural grounds, by reason
	SkippedTotal *prometheus.CounterVec

	// RunDuration tracks how long a whole invocation takes
	RunDuration prometheus.Histogram

	// LastRunTimestamp records the Unix time the last run finished
	LastRunTimestamp prometheus.Gauge

	// LastRunStatus is 1 for the aggregate status of the last run, 0 otherwise
	LastRunStatus *prometheus.GaugeVec
)

func initRemovalMetrics() {
	RemovedTotal = NewCounterVec(
		"rmfd_removed_total",
		"Total number of filesystem objects removed.",
		[]string{"kind"},
	)

	DeclinedTotal = NewCounter(
		"rmfd_declined_total",
		"Total number of objects the user declined to remove.",
	)

	ErrorsTotal = NewCounter(
		"rmfd_errors_total",
		"Total number of objects that could not be removed.",
	)

	SkippedTotal = NewCounterVec(
		"rmfd_skipped_total",
		"Total number of objects refused without an attempt, by reason.",
		[]string{"reason"},
	)

	RunDuration = NewDurationHistogram(
		"rmfd_run_duration_seconds",
		"Duration of rmfd invocations in seconds.",
	)

	LastRunTimestamp = NewGauge(
		"rmfd_last_run_timestamp",
		"Unix timestamp of the last completed run.",
	)

	LastRunStatus = NewGaugeVec(
		"rmfd_last_run_status",
		"Aggregate status of the last run (1 = this status).",
		[]string{"status"},
	)
}

func registerRemovalMetrics() {
	Registry.MustRegister(
		RemovedTotal,
		DeclinedTotal,
		ErrorsTotal,
		SkippedTotal,
		RunDuration,
		LastRunTimestamp,
		LastRunStatus,
	)
}

// RecordRun stores the outcome of a run that started at start.
func RecordRun(start time.Time, status string) {
	Init()
	now := time.Now()
	RunDuration.Observe(now.Sub(start).Seconds())
	LastRunTimestamp.Set(float64(now.Unix()))
	for _, s := range RunStatuses {
		v := 0.0
		if s == status {
			v = 1
		}
		LastRunStatus.WithLabelValues(s).Set(v)
	}
}
