package submission

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// SubmissionsTotal counts finished runs.
// Labels: state (succeeded, failed), reason (failure reason or "none")
var SubmissionsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "daybook",
		Name:      "submissions_total",
		Help:      "Total number of finished submissions by terminal state and reason",
	},
	[]string{"state", "reason"},
)
