package apiclient

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RequestsTotal counts Send calls.
	// Labels: method, status_class (2xx, 4xx, 5xx, network, cancelled)
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "daybook",
			Subsystem: "api",
			Name:      "requests_total",
			Help:      "Total number of API requests by outcome class",
		},
		[]string{"method", "status_class"},
	)

	// RequestDuration tracks round-trip time, including rate limiter waits.
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "daybook",
			Subsystem: "api",
			Name:      "request_duration_seconds",
			Help:      "Duration of API requests in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method"},
	)

	// CredentialInvalidations counts tokens cleared after a 401.
	CredentialInvalidations = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "daybook",
			Subsystem: "api",
			Name:      "credential_invalidations_total",
			Help:      "Total number of stored tokens cleared after an unauthorized response",
		},
	)
)

func statusClass(code int) string {
	return strconv.Itoa(code/100) + "xx"
}
