/*
Package metrics provides Prometheus metrics and health endpoints for groupctl.

All collectors are registered on the default registry at package init and
exposed by Handler. Labels stay low-cardinality: group names and routes are
never used as label values.

# Metrics

Retry executor:

	groupctl_retry_attempts_total{call, outcome}
	    outcome is "success", "status_<code>", or an error class
	    (transient, permanent, unknown, panic)
	groupctl_retry_exhausted_total{call}

Poll engine:

	groupctl_poll_iterations_total{activity, verdict}
	groupctl_poll_wait_duration_seconds{activity}

Workflows:

	groupctl_workflow_total{operation, state}
	groupctl_workflow_duration_seconds{operation}
	groupctl_compensations_total{result}

# Health

HealthChecker tracks named components. Health is unhealthy as soon as one
component is; Readiness only looks at the components declared critical.
Mux serves /metrics, /health, /ready and /live on one handler:

	h := metrics.NewHealthChecker(version, "credentials")
	h.Set("credentials", true, "")
	go http.ListenAndServe(":9090", h.Mux())

# Timing

	timer := metrics.NewTimer()
	defer timer.ObserveDurationVec(metrics.WorkflowDuration, "create")
*/
package metrics
