// Package metrics exposes Prometheus collectors for engine activity and a
// hooks adapter that feeds them.
package metrics

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/aretw0/lattice/pkg/domain"
)

// Collectors holds the engine-level Prometheus instruments.
type Collectors struct {
	Evaluations  *prometheus.CounterVec
	EvalDuration *prometheus.HistogramVec
	RemoteChecks *prometheus.CounterVec
	RemoteDelay  *prometheus.HistogramVec
}

// NewCollectors builds the instrument set and registers it with reg.
// Passing prometheus.DefaultRegisterer wires the process-global registry.
func NewCollectors(reg prometheus.Registerer) *Collectors {
	c := &Collectors{
		Evaluations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lattice_evaluations_total",
				Help: "Total number of validation passes",
			},
			[]string{"schema_id", "scope", "valid"},
		),
		EvalDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name: "lattice_evaluation_duration_seconds",
				Help: "Duration of validation passes",
			},
			[]string{"schema_id", "scope"},
		),
		RemoteChecks: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lattice_remote_checks_total",
				Help: "Total number of remote rule round trips",
			},
			[]string{"schema_id", "check", "outcome"},
		),
		RemoteDelay: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name: "lattice_remote_check_duration_seconds",
				Help: "Duration of remote rule round trips",
			},
			[]string{"schema_id", "check"},
		),
	}
	reg.MustRegister(c.Evaluations, c.EvalDuration, c.RemoteChecks, c.RemoteDelay)
	return c
}

// Hooks returns lifecycle hooks that record each event into the collectors.
func (c *Collectors) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnEvaluation: func(_ context.Context, e *domain.EvaluationEvent) {
			valid := "false"
			if e.Valid {
				valid = "true"
			}
			c.Evaluations.WithLabelValues(e.SchemaID, string(e.Scope), valid).Inc()
			c.EvalDuration.WithLabelValues(e.SchemaID, string(e.Scope)).Observe(e.Duration.Seconds())
		},
		OnRemoteCheck: func(_ context.Context, e *domain.RemoteCheckEvent) {
			c.RemoteChecks.WithLabelValues(e.SchemaID, e.Check, string(e.Outcome)).Inc()
			c.RemoteDelay.WithLabelValues(e.SchemaID, e.Check).Observe(e.Duration.Seconds())
		},
	}
}
