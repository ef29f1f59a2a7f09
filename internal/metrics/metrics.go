// Package metrics defines the guard's Prometheus collectors. They register with the
// default registry via promauto and are served on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Login outcomes
const (
	OutcomeSuccess     = "success"
	OutcomeInvalid     = "invalid_credentials"
	OutcomeBanned      = "banned"
	OutcomeEscalated   = "escalated"
	OutcomeBadRequest  = "bad_request"
	OutcomeServerError = "error"
)

var (
	// LoginAttempts counts admin login requests by outcome
	LoginAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gatekeeper_login_attempts_total",
			Help: "Total number of admin login attempts by outcome",
		},
		[]string{"outcome"},
	)

	// BansIssued counts escalations written to the ban ledger
	BansIssued = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "gatekeeper_bans_issued_total",
			Help: "Total number of address bans written to the ledger",
		},
	)

	// BanLedgerFaults counts ledger operations that failed against the durable store
	BanLedgerFaults = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gatekeeper_ban_ledger_faults_total",
			Help: "Total number of ban ledger store faults by operation",
		},
		[]string{"operation"},
	)

	// TrackedAddresses reports the attempt tracker size after each sweep
	TrackedAddresses = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "gatekeeper_tracked_addresses",
			Help: "Number of addresses with an in-memory failure count",
		},
	)

	// RateLimiterRejections counts requests rejected by the coarse login throttle
	RateLimiterRejections = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "gatekeeper_rate_limiter_rejections_total",
			Help: "Total number of login requests rejected by the rate limiter",
		},
	)
)
