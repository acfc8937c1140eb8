// internal/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	EvaluationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "evaluations_total",
			Help: "Total number of evaluation submissions by outcome",
		},
		[]string{"form", "result"},
	)

	ValidationFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "evaluation_validation_failures_total",
			Help: "Rejected submissions by violated invariant",
		},
		[]string{"reason"},
	)

	EvaluationScoreHistogram = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "evaluation_total_score",
			Help:    "Distribution of declared total scores",
			Buckets: prometheus.LinearBuckets(0, 10, 11),
		},
		[]string{"form"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"path", "method", "status"},
	)
)
