// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 UEAdmission Contributors

package auth

import "github.com/prometheus/client_golang/prometheus"

// Transition labels.
const (
	TransitionLogin   = "login"
	TransitionLogout  = "logout"
	TransitionExpired = "expired"
	TransitionRestore = "restore"
)

// Login outcome labels.
const (
	OutcomeSuccess         = "success"
	OutcomeInvalid         = "invalid_credentials"
	OutcomeAlreadyLoggedIn = "already_logged_in"
	OutcomeRateLimited     = "rate_limited"
	OutcomeError           = "error"
)

// StateTransitions counts installed auth states by cause.
// Use RegisterMetrics to register this with a Prometheus registry.
var StateTransitions = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "ueadmission_auth_transitions_total",
		Help: "Total number of auth state transitions by kind",
	},
	[]string{"kind"},
)

// ListenerPanics counts listeners that panicked during notification.
var ListenerPanics = prometheus.NewCounter(
	prometheus.CounterOpts{
		Name: "ueadmission_auth_listener_panics_total",
		Help: "Total number of auth state listeners that panicked",
	},
)

// LoginAttempts counts LoginService attempts by outcome.
var LoginAttempts = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "ueadmission_auth_login_attempts_total",
		Help: "Total number of login attempts by outcome",
	},
	[]string{"outcome"},
)

// RegisterMetrics registers auth metrics with reg.
// Panics if registration fails (following prometheus convention).
func RegisterMetrics(reg prometheus.Registerer) {
	reg.MustRegister(StateTransitions)
	reg.MustRegister(ListenerPanics)
	reg.MustRegister(LoginAttempts)
}
