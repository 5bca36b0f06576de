package metrics

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/lattice/pkg/domain"
)

func TestHooksRecordEvaluationEvents(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollectors(reg)
	hooks := c.Hooks()

	hooks.OnEvaluation(context.Background(), &domain.EvaluationEvent{
		SchemaID: "signup",
		Scope:    domain.ScopeFull,
		Valid:    true,
		Duration: 3 * time.Millisecond,
	})
	hooks.OnEvaluation(context.Background(), &domain.EvaluationEvent{
		SchemaID: "signup",
		Scope:    domain.ScopeField,
		FieldID:  "email",
		Valid:    false,
		Duration: time.Millisecond,
	})

	full := testutil.ToFloat64(c.Evaluations.WithLabelValues("signup", "full", "true"))
	assert.Equal(t, 1.0, full)
	scoped := testutil.ToFloat64(c.Evaluations.WithLabelValues("signup", "field", "false"))
	assert.Equal(t, 1.0, scoped)
}

func TestHooksRecordRemoteCheckEvents(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollectors(reg)
	hooks := c.Hooks()

	for i := 0; i < 3; i++ {
		hooks.OnRemoteCheck(context.Background(), &domain.RemoteCheckEvent{
			SchemaID: "signup",
			Check:    "unique_email",
			FieldID:  "email",
			Outcome:  domain.OutcomeValid,
			Duration: 20 * time.Millisecond,
		})
	}

	count := testutil.ToFloat64(c.RemoteChecks.WithLabelValues("signup", "unique_email", "valid"))
	require.Equal(t, 3.0, count)
}
