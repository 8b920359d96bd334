package runner

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CapturesTotal tracks run-and-capture invocations by outcome
	// (command_success, command_failure, capture_failure).
	CapturesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "swarmctl",
			Subsystem: "runner",
			Name:      "captures_total",
			Help:      "Total number of run-and-capture invocations by outcome",
		},
		[]string{"outcome"},
	)

	// CaptureDuration tracks wall-clock time of the captured command,
	// not including ledger write/append.
	CaptureDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "swarmctl",
			Subsystem: "runner",
			Name:      "capture_duration_seconds",
			Help:      "Duration of the captured command's execution",
			Buckets:   prometheus.DefBuckets,
		},
	)
)
