// Package metrics defines the Prometheus collectors for authentication.
// Collectors register with the default registry on import and are served
// from /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	namespace = "stockkeeper"
	subsystem = "auth"
)

var (
	// LoginAttemptsTotal counts login attempts by credential method and outcome.
	LoginAttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "login_attempts_total",
			Help:      "Total number of login attempts by method and outcome",
		},
		[]string{"method", "outcome"}, // method: fixed_code, totp, none; outcome: success, invalid_code, ...
	)

	// LockoutsTotal counts transitions into the locked state.
	LockoutsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "lockouts_total",
			Help:      "Total number of accounts locked after repeated failures",
		},
	)

	// SessionsIssuedTotal counts minted session tokens by kind.
	SessionsIssuedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "sessions_issued_total",
			Help:      "Total number of session tokens issued by kind",
		},
		[]string{"kind"}, // kind: login, provisional
	)

	// CredentialChangesTotal counts administrative credential writes by action.
	CredentialChangesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "credential_changes_total",
			Help:      "Total number of credential writes by action",
		},
		[]string{"action"}, // action: setup, create, change, enroll
	)
)

// RecordLogin records one login attempt.
func RecordLogin(method, outcome string) {
	if method == "" {
		method = "none"
	}
	LoginAttemptsTotal.WithLabelValues(method, outcome).Inc()
}

// RecordLockout records an account becoming locked.
func RecordLockout() {
	LockoutsTotal.Inc()
}

// RecordSessionIssued records a minted session token.
func RecordSessionIssued(kind string) {
	SessionsIssuedTotal.WithLabelValues(kind).Inc()
}

// RecordCredentialChange records a credential write.
func RecordCredentialChange(action string) {
	CredentialChangesTotal.WithLabelValues(action).Inc()
}
