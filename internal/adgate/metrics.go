package adgate

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// LoadOutcomes counts terminal load events.
	// Labels: state (loaded, failed)
	LoadOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "daybook",
			Subsystem: "ads",
			Name:      "load_outcomes_total",
			Help:      "Total number of ad loads by resulting state",
		},
		[]string{"state"},
	)

	// ShowOutcomes counts show attempts.
	// Labels: outcome (reward_earned, failed_to_show, dismissed)
	ShowOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "daybook",
			Subsystem: "ads",
			Name:      "show_outcomes_total",
			Help:      "Total number of ad show attempts by outcome",
		},
		[]string{"outcome"},
	)
)
