package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Retry executor metrics
	RetryAttemptsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "groupctl_retry_attempts_total",
			Help: "Total number of API call attempts by call and outcome",
		},
		[]string{"call", "outcome"},
	)

	RetryExhaustedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "groupctl_retry_exhausted_total",
			Help: "Total number of calls that gave up without an acceptable response",
		},
		[]string{"call"},
	)

	// Poll engine metrics
	PollIterationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "groupctl_poll_iterations_total",
			Help: "Total number of poll iterations by activity and verdict",
		},
		[]string{"activity", "verdict"},
	)

	PollWaitDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "groupctl_poll_wait_duration_seconds",
			Help:    "Time spent waiting for a group to reach a terminal state",
			Buckets: []float64{5, 15, 30, 60, 120, 300, 600, 900},
		},
		[]string{"activity"},
	)

	// Workflow metrics
	WorkflowsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "groupctl_workflow_total",
			Help: "Total number of workflows by operation and final state",
		},
		[]string{"operation", "state"},
	)

	WorkflowDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "groupctl_workflow_duration_seconds",
			Help:    "Workflow duration in seconds",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600, 900, 1800},
		},
		[]string{"operation"},
	)

	CompensationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "groupctl_compensations_total",
			Help: "Total number of compensating deletes after a failed create, by result",
		},
		[]string{"result"},
	)
)

func init() {
	// Register all metrics
	prometheus.MustRegister(RetryAttemptsTotal)
	prometheus.MustRegister(RetryExhaustedTotal)
	prometheus.MustRegister(PollIterationsTotal)
	prometheus.MustRegister(PollWaitDuration)
	prometheus.MustRegister(WorkflowsTotal)
	prometheus.MustRegister(WorkflowDuration)
	prometheus.MustRegister(CompensationsTotal)
}

// Handler returns the Prometheus HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}
