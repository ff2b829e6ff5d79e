// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	FunnelStepViews = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "funnel_step_views_total",
			Help: "Total number of funnel step views",
		},
		[]string{"funnel_type", "step"},
	)

	FunnelStepCompletions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "funnel_step_completions_total",
			Help: "Total number of funnel step completions",
		},
		[]string{"funnel_type", "step"},
	)

	FunnelSubmissions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "funnel_submissions_total",
			Help: "Total number of lead submissions by outcome",
		},
		[]string{"funnel_type", "status"},
	)

	FunnelSubmissionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "funnel_submission_duration_seconds",
			Help: "Duration of the submission pipeline in seconds",
		},
		[]string{"funnel_type"},
	)

	FunnelConversionEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "funnel_conversion_events_total",
			Help: "Total number of conversion events sent to tracking sinks",
		},
		[]string{"funnel_type", "status"},
	)
)
