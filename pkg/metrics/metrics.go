package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// AuthAttempts records bearer-token checks by result.
	AuthAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "estatehub_auth_attempts_total",
			Help: "Total number of authentication attempts",
		},
		[]string{"result"},
	)

	// PermissionChecks counts platform permission evaluations (allow|deny|error).
	PermissionChecks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "estatehub_permission_checks_total",
			Help: "Total number of platform permission checks",
		},
		[]string{"permission", "result"},
	)

	// AuthorizationDecisions counts organization and ownership decisions (allow|deny|error).
	AuthorizationDecisions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "estatehub_authorization_decisions_total",
			Help: "Total number of organization and ownership authorization decisions",
		},
		[]string{"check", "result"},
	)

	// PropertyOperations counts property service outcomes by operation and result (success|failure).
	PropertyOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "estatehub_property_operations_total",
			Help: "Total number of property service operations",
		},
		[]string{"operation", "result"},
	)

	// BlobDeleteFailures counts best-effort object storage deletions that failed.
	BlobDeleteFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "estatehub_blob_delete_failures_total",
			Help: "Object storage deletions that failed and were ignored",
		},
	)

	// APILatency measures HTTP request latencies.
	APILatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "estatehub_api_latency_seconds",
			Help:    "API endpoint latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)

// MaintenanceRuns counts background maintenance job runs by job and result.
var MaintenanceRuns = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "estatehub_maintenance_runs_total",
		Help: "Total number of maintenance job runs",
	},
	[]string{"job", "result"},
)
