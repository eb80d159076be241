// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 UEAdmission Contributors

package session

import "github.com/prometheus/client_golang/prometheus"

// Channel labels.
const (
	ChannelPreferences = "preferences"
	ChannelBlob        = "blob"
)

// Operation labels.
const (
	OpSave  = "save"
	OpLoad  = "load"
	OpClear = "clear"
)

// PersistenceFailures counts failed channel operations.
// Use RegisterMetrics to register this with a Prometheus registry.
var PersistenceFailures = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "ueadmission_session_persistence_failures_total",
		Help: "Total number of failed session persistence operations by channel",
	},
	[]string{"channel", "operation"},
)

// SessionLoads counts Load calls by the channel that produced the session
// ("none" when neither did).
var SessionLoads = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "ueadmission_session_loads_total",
		Help: "Total number of session loads by source channel",
	},
	[]string{"source"},
)

// RegisterMetrics registers session metrics with reg.
// Panics if registration fails (following prometheus convention).
func RegisterMetrics(reg prometheus.Registerer) {
	reg.MustRegister(PersistenceFailures)
	reg.MustRegister(SessionLoads)
}

func recordFailure(channel, op string) {
	PersistenceFailures.WithLabelValues(channel, op).Inc()
}
