// Package metrics defines all custom Prometheus metrics for the edusuite
// auth service. It is the single source of truth for metric names, labels,
// and help strings. Metrics register themselves with the default registry
// at init via promauto.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "edusuite_auth"

// ── Gate metrics ──────────────────────────────────────────────────────────────

// GateDecisionsTotal counts per-request gate outcomes.
// Labels:
//   - decision: "allow", "deny_unauthenticated", or "deny_inactive"
//   - route_class: "public", "protected", or "default"
var GateDecisionsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "gate_decisions_total",
		Help:      "Total number of request gate decisions, by decision and route class.",
	},
	[]string{"decision", "route_class"},
)

// GateLookupDuration measures the combined session-resolution and
// profile-lookup time for a single gated request.
var GateLookupDuration = promauto.NewHistogram(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "gate_lookup_duration_seconds",
		Help:      "Duration of session resolution plus profile lookup per gated request.",
		Buckets:   prometheus.DefBuckets,
	},
)

// ── Auth operation metrics ────────────────────────────────────────────────────

// SignInsTotal counts sign-in attempts.
// Label:
//   - outcome: "success", "invalid_credentials", "locked_out", "inactive", or "error"
var SignInsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "sign_ins_total",
		Help:      "Total number of sign-in attempts, by outcome.",
	},
	[]string{"outcome"},
)

// SignUpsTotal counts registration attempts.
// Label:
//   - outcome: "success", "exists", "weak_password", "profile_failed", or "error"
var SignUpsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "sign_ups_total",
		Help:      "Total number of registration attempts, by outcome.",
	},
	[]string{"outcome"},
)

// SessionsRefreshedTotal counts refresh-token rotations performed by the
// provider, including those triggered transparently by the gate.
var SessionsRefreshedTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "sessions_refreshed_total",
		Help:      "Total number of successful refresh-token rotations.",
	},
)

// ── Audit pipeline metrics ────────────────────────────────────────────────────

// AuditEventsTotal counts audit entries that completed persistence.
// Label:
//   - kind: the auth event kind (e.g. "signed_in", "access_denied")
var AuditEventsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "audit_events_total",
		Help:      "Total number of audit entries successfully persisted.",
	},
	[]string{"kind"},
)

// AuditErrorsTotal counts audit entries that failed persistence.
var AuditErrorsTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "audit_errors_total",
		Help:      "Total number of audit entries that failed to persist.",
	},
)

// AuditQueueDepth tracks the events waiting in each dispatcher worker.
// Label:
//   - worker_id: numeric worker index
var AuditQueueDepth = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "audit_queue_depth",
		Help:      "Current number of audit events pending in each dispatcher worker channel.",
	},
	[]string{"worker_id"},
)
