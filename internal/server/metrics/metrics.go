// Package metrics exposes Prometheus counters for registrations and SRP
// handshake steps.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "srpkeeper"

// Handshake steps.
const (
	StepInit   = "init"
	StepVerify = "verify"
)

// Outcomes.
const (
	OutcomeSuccess            = "success"
	OutcomeDecoy              = "decoy"
	OutcomeUnknownAccount     = "unknown_account"
	OutcomeInvalidEphemeral   = "invalid_ephemeral"
	OutcomeSessionMissing     = "session_missing"
	OutcomeInvalidCredentials = "invalid_credentials"
	OutcomeDuplicate          = "duplicate"
	OutcomeInvalid            = "invalid"
	OutcomeError              = "error"
)

// Metrics is safe to use as a nil pointer, in which case nothing is recorded.
type Metrics struct {
	handshakes    *prometheus.CounterVec
	registrations *prometheus.CounterVec
}

// New registers the counters with reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		handshakes: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "handshakes_total",
			Help:      "SRP handshake steps by outcome.",
		}, []string{"step", "outcome"}),
		registrations: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "registrations_total",
			Help:      "Account registrations by outcome.",
		}, []string{"outcome"}),
	}
}

func (m *Metrics) Handshake(step, outcome string) {
	if m == nil {
		return
	}
	m.handshakes.WithLabelValues(step, outcome).Inc()
}

func (m *Metrics) Registration(outcome string) {
	if m == nil {
		return
	}
	m.registrations.WithLabelValues(outcome).Inc()
}
