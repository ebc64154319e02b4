package aggregator

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	workspacesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rumcount_workspaces_total",
			Help: "Total number of workspaces resolved by outcome",
		},
		[]string{"status"},
	)

	organizationsUnavailableTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "rumcount_organizations_unavailable_total",
			Help: "Total number of organizations whose workspaces could not be listed",
		},
	)

	runDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "rumcount_run_duration_seconds",
			Help:    "Duration of complete collection runs",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600, 1800},
		},
	)
)
