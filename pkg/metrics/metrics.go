// Package metrics defines and registers all custom Prometheus metrics for the
// authcore service. It is the single source of truth for metric names,
// labels, and help strings.
//
// Metrics are registered with the default Prometheus registry at package
// init through promauto; HTTP request metrics come from echoprometheus.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "authcore"

// ── Authentication ────────────────────────────────────────────────────────────

// LoginAttemptsTotal counts login attempts.
// Label:
//   - result: "success", "invalid_credentials", "disabled" or "error"
var LoginAttemptsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "login_attempts_total",
		Help:      "Total number of login attempts, by result.",
	},
	[]string{"result"},
)

// RegistrationsTotal counts registration attempts.
// Label:
//   - result: "success", "duplicate_username", "duplicate_email" or "error"
var RegistrationsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "registrations_total",
		Help:      "Total number of registration attempts, by result.",
	},
	[]string{"result"},
)

// TokensIssuedTotal counts signed tokens, by role.
var TokensIssuedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "tokens_issued_total",
		Help:      "Total number of tokens issued, by role.",
	},
	[]string{"role"},
)

// TokenValidationsTotal counts token validation outcomes.
// Label:
//   - result: "valid", "missing", "invalid" or "expired"
var TokenValidationsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "token_validations_total",
		Help:      "Total number of token validations, by result.",
	},
	[]string{"result"},
)

// ── Authorization ─────────────────────────────────────────────────────────────

// AuthorizationDecisionsTotal counts policy decisions made at the HTTP gate.
// Labels:
//   - operation: e.g. "Task.Delete"
//   - decision: "allow" or "deny"
var AuthorizationDecisionsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "authorization_decisions_total",
		Help:      "Total number of authorization decisions, by operation and decision.",
	},
	[]string{"operation", "decision"},
)

// ── Credential lifecycle ──────────────────────────────────────────────────────

// PasswordChangesTotal counts password change attempts.
// Label:
//   - result: "success", "password_mismatch", "confirmation_mismatch", "conflict" or "error"
var PasswordChangesTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "password_changes_total",
		Help:      "Total number of password change attempts, by result.",
	},
	[]string{"result"},
)

// PasswordHashDuration measures bcrypt hashing and verification time.
// Label:
//   - op: "hash" or "verify"
var PasswordHashDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "password_hash_duration_seconds",
		Help:      "Duration of password hashing and verification.",
		Buckets:   []float64{.01, .025, .05, .1, .25, .5, 1},
	},
	[]string{"op"},
)

// RateLimitedTotal counts requests rejected by the rate limiter, by route.
var RateLimitedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "rate_limited_total",
		Help:      "Total number of requests rejected by the rate limiter, by route.",
	},
	[]string{"route"},
)
