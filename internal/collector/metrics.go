package collector

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	apiRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rumcount_api_requests_total",
			Help: "Total number of Terraform API requests by response status class",
		},
		[]string{"status"}, // 2xx, 4xx, 5xx, 429, error
	)

	apiRateLimitedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "rumcount_api_rate_limited_total",
			Help: "Total number of 429 responses that were retried",
		},
	)

	apiPagesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "rumcount_api_pages_total",
			Help: "Total number of paginated list pages fetched",
		},
	)

	apiRequestDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "rumcount_api_request_duration_seconds",
			Help:    "Duration of single Terraform API requests",
			Buckets: prometheus.DefBuckets,
		},
	)
)

func statusClass(status int) string {
	switch {
	case status == 429:
		return "429"
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}
