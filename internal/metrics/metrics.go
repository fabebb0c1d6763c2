// Package metrics holds the Prometheus instruments for the auth service.
// Counters are created unregistered so unit tests can exercise code paths
// that increment them without touching a registry; main registers them once
// via Init.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	RegistrationsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "auth_registrations_total",
		Help: "Number of successfully registered accounts.",
	})

	LoginSuccessTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "auth_login_success_total",
		Help: "Number of successful logins.",
	})

	LoginFailureTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "auth_login_failure_total",
		Help: "Number of rejected logins, including attempts on locked accounts.",
	})

	AccountLockoutsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "auth_account_lockouts_total",
		Help: "Number of accounts locked after repeated login failures.",
	})

	TokenRefreshTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "auth_token_refresh_total",
		Help: "Number of successful refresh rotations.",
	})

	RefreshReuseDetectedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "auth_refresh_reuse_detected_total",
		Help: "Number of refresh attempts with an already rotated token.",
	})

	SessionsRevokedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "auth_sessions_revoked_total",
		Help: "Number of session revocation operations.",
	})
)

// Init registers every instrument with the given registry.
func Init(reg prometheus.Registerer) {
	reg.MustRegister(
		RegistrationsTotal,
		LoginSuccessTotal,
		LoginFailureTotal,
		AccountLockoutsTotal,
		TokenRefreshTotal,
		RefreshReuseDetectedTotal,
		SessionsRevokedTotal,
	)
}
