// Package metrics exposes Prometheus metrics for loading and analysis runs.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "tna"

var (
	// DaysLoaded is the number of days held by the store after the last load.
	DaysLoaded = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "days_loaded",
		Help:      "Number of days held in the store",
	})

	// LoadDuration tracks how long a store load takes.
	LoadDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "load_duration_seconds",
		Help:      "Time spent loading price history",
		Buckets:   []float64{.005, .01, .05, .1, .25, .5, 1, 2.5, 5, 10},
	})

	// LoadFailures counts failed loads by error kind.
	LoadFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "load_failures_total",
		Help:      "Failed loads by kind",
	}, []string{"kind"})

	// AveragesWritten counts moving averages stored on days.
	AveragesWritten = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "averages_written_total",
		Help:      "Moving averages written by period",
	}, []string{"period"})

	// ComputeDuration tracks the time spent on one period.
	ComputeDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "compute_duration_seconds",
		Help:      "Time spent computing moving averages",
		Buckets:   []float64{.0001, .0005, .001, .005, .01, .05, .1, .5},
	}, []string{"period"})

	// RunsTotal counts analysis runs by outcome.
	RunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "runs_total",
		Help:      "Analysis runs by outcome",
	}, []string{"outcome"})

	// LastRunTimestamp is the unix time of the last successful run.
	LastRunTimestamp = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "last_run_timestamp_seconds",
		Help:      "Unix time of the last successful run",
	})

	// BuildInfo exposes version labels.
	BuildInfo = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "build_info",
		Help:      "Build information",
	}, []string{"version", "commit", "build_date"})
)

// SetBuildInfo publishes the build labels.
func SetBuildInfo(version, commit, buildDate string) {
	BuildInfo.WithLabelValues(version, commit, buildDate).Set(1)
}
