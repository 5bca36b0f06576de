package runtime

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/lattice/pkg/domain"
	"github.com/aretw0/lattice/pkg/ports"
	"github.com/aretw0/lattice/pkg/schema"
)

func staticChecker(status domain.OutcomeStatus, msg string) ports.RemoteRuleChecker {
	return ports.RemoteRuleCheckerFunc(func(ctx context.Context, req ports.RemoteCheckRequest) (domain.RuleOutcome, error) {
		return domain.RuleOutcome{Status: status, Message: msg}, nil
	})
}

func validBooking() domain.Snapshot {
	return domain.Snapshot{
		"country":    "us",
		"zip":        "12345",
		"email":      "ada@example.com",
		"start_date": "2026-05-01",
		"end_date":   "2026-05-03",
		"nights":     2,
	}
}

func TestValidateAllHappyPath(t *testing.T) {
	e, err := NewEngine(testSchema(), WithChecker(staticChecker(domain.OutcomeValid, "")))
	require.NoError(t, err)

	results := e.ValidateAll(context.Background(), validBooking(), schema.TriggerSubmit)
	assert.True(t, results.IsValid)
	assert.Empty(t, results.FieldErrors)
	assert.Empty(t, results.Pending)
}

func TestValidateAllRequired(t *testing.T) {
	e, err := NewEngine(testSchema())
	require.NoError(t, err)

	t.Run("missing required field fails", func(t *testing.T) {
		results := e.ValidateAll(context.Background(), domain.Snapshot{}, schema.TriggerChange)
		assert.False(t, results.IsValid)
		assert.Equal(t, []string{"this field is required"}, results.ErrorsFor("country"))
	})

	t.Run("required failure short-circuits later rules", func(t *testing.T) {
		// zip is required and carries a pattern rule; an empty zip reports
		// only the required failure.
		results := e.ValidateAll(context.Background(), domain.Snapshot{"country": "us"}, schema.TriggerChange)
		assert.Len(t, results.ErrorsFor("zip"), 1)
	})

	t.Run("hidden required field is excluded", func(t *testing.T) {
		// With country=ca the zip field is not rendered, so its required
		// rule never runs and it cannot block the form.
		results := e.ValidateAll(context.Background(), domain.Snapshot{"country": "ca"}, schema.TriggerChange)
		assert.Empty(t, results.ErrorsFor("zip"))
	})
}

func TestValidateAllRules(t *testing.T) {
	e, err := NewEngine(testSchema())
	require.NoError(t, err)
	ctx := context.Background()

	t.Run("pattern", func(t *testing.T) {
		data := validBooking()
		data["zip"] = "abcde"
		results := e.ValidateAll(ctx, data, schema.TriggerChange)
		assert.Equal(t, []string{"five digits"}, results.ErrorsFor("zip"))
	})

	t.Run("range", func(t *testing.T) {
		data := validBooking()
		data["nights"] = 0
		results := e.ValidateAll(ctx, data, schema.TriggerChange)
		assert.Equal(t, []string{"out of range"}, results.ErrorsFor("nights"))
	})

	t.Run("expression", func(t *testing.T) {
		data := validBooking()
		data["nights"] = 45
		results := e.ValidateAll(ctx, data, schema.TriggerChange)
		assert.Equal(t, []string{"stay too long"}, results.ErrorsFor("nights"))
	})

	t.Run("expression consults other fields", func(t *testing.T) {
		data := validBooking()
		data["country"] = "other"
		data["nights"] = 45
		results := e.ValidateAll(ctx, data, schema.TriggerChange)
		assert.Empty(t, results.ErrorsFor("nights"))
	})

	t.Run("length on a visible dependent", func(t *testing.T) {
		data := validBooking()
		data["nights"] = 20
		data["discount_code"] = "ab"
		results := e.ValidateAll(ctx, data, schema.TriggerChange)
		assert.Equal(t, []string{"4 to 12 characters"}, results.ErrorsFor("discount_code"))
	})
}

func TestValidateAllCrossField(t *testing.T) {
	e, err := NewEngine(testSchema())
	require.NoError(t, err)
	ctx := context.Background()

	t.Run("violation attaches to the declaring field", func(t *testing.T) {
		data := validBooking()
		data["end_date"] = "2026-04-20"
		results := e.ValidateAll(ctx, data, schema.TriggerChange)
		assert.Equal(t, []string{"ends before it starts"}, results.ErrorsFor("end_date"))
		assert.Empty(t, results.ErrorsFor("start_date"))
	})

	t.Run("skipped while either side is empty", func(t *testing.T) {
		data := validBooking()
		delete(data, "start_date")
		results := e.ValidateAll(ctx, data, schema.TriggerChange)
		assert.Empty(t, results.ErrorsFor("end_date"))
	})
}

func TestValidateTriggerGating(t *testing.T) {
	e, err := NewEngine(testSchema(), WithChecker(staticChecker(domain.OutcomeValid, "")))
	require.NoError(t, err)
	ctx := context.Background()

	data := validBooking()
	data["email"] = "not-an-email"

	t.Run("blur rule silent on change", func(t *testing.T) {
		results := e.ValidateAll(ctx, data, schema.TriggerChange)
		assert.Empty(t, results.ErrorsFor("email"))
	})

	t.Run("blur rule fires on blur", func(t *testing.T) {
		results := e.ValidateAll(ctx, data, schema.TriggerBlur)
		assert.Equal(t, []string{"invalid email"}, results.ErrorsFor("email"))
	})

	t.Run("blur rule fires on submit", func(t *testing.T) {
		results := e.ValidateAll(ctx, data, schema.TriggerSubmit)
		assert.Equal(t, []string{"invalid email"}, results.ErrorsFor("email"))
	})
}

func TestValidateValueOverride(t *testing.T) {
	e, err := NewEngine(testSchema())
	require.NoError(t, err)

	// country=ca asserts nights=7; the caller-supplied 100 would fail the
	// range rule, so a pass proves the override was validated instead.
	data := domain.Snapshot{"country": "ca", "nights": 100}
	results := e.ValidateAll(context.Background(), data, schema.TriggerChange)
	assert.Empty(t, results.ErrorsFor("nights"))
	assert.Equal(t, 100, data["nights"], "caller snapshot must stay untouched")
}

func TestValidateRemote(t *testing.T) {
	ctx := context.Background()

	t.Run("no checker degrades to pending", func(t *testing.T) {
		e, err := NewEngine(testSchema())
		require.NoError(t, err)
		results := e.ValidateAll(ctx, validBooking(), schema.TriggerBlur)
		assert.Equal(t, []string{"email"}, results.Pending)
		assert.False(t, results.IsValid)
	})

	t.Run("pending passes under the permissive policy", func(t *testing.T) {
		e, err := NewEngine(testSchema(), WithRemotePolicy(RemoteAllows))
		require.NoError(t, err)
		results := e.ValidateAll(ctx, validBooking(), schema.TriggerBlur)
		assert.Equal(t, []string{"email"}, results.Pending)
		assert.True(t, results.IsValid)
	})

	t.Run("invalid outcome records the backend message", func(t *testing.T) {
		e, err := NewEngine(testSchema(), WithChecker(staticChecker(domain.OutcomeInvalid, "already registered")))
		require.NoError(t, err)
		results := e.ValidateAll(ctx, validBooking(), schema.TriggerBlur)
		assert.Equal(t, []string{"already registered"}, results.ErrorsFor("email"))
	})

	t.Run("checker error degrades to pending", func(t *testing.T) {
		failing := ports.RemoteRuleCheckerFunc(func(ctx context.Context, req ports.RemoteCheckRequest) (domain.RuleOutcome, error) {
			return domain.RuleOutcome{}, errors.New("backend down")
		})
		e, err := NewEngine(testSchema(), WithChecker(failing))
		require.NoError(t, err)
		results := e.ValidateAll(ctx, validBooking(), schema.TriggerBlur)
		assert.Equal(t, []string{"email"}, results.Pending)
		assert.False(t, results.IsValid)
	})

	t.Run("overlapping passes each record their own verdict", func(t *testing.T) {
		// The first pass's check is held in flight until a second full pass
		// has come and gone. The slow pass must still come back invalid: a
		// superseded check may be discarded by the caller, but it must never
		// settle as valid.
		var mu sync.Mutex
		calls := 0
		started := make(chan struct{})
		release := make(chan struct{})
		slow := ports.RemoteRuleCheckerFunc(func(ctx context.Context, req ports.RemoteCheckRequest) (domain.RuleOutcome, error) {
			mu.Lock()
			calls++
			first := calls == 1
			mu.Unlock()
			if first {
				close(started)
				<-release
			}
			return domain.RuleOutcome{Status: domain.OutcomeInvalid, Message: "already registered"}, nil
		})
		e, err := NewEngine(testSchema(), WithChecker(slow))
		require.NoError(t, err)

		firstDone := make(chan domain.ValidationResults, 1)
		go func() {
			firstDone <- e.ValidateAll(ctx, validBooking(), schema.TriggerBlur)
		}()

		<-started
		second := e.ValidateAll(ctx, validBooking(), schema.TriggerBlur)
		assert.Equal(t, []string{"already registered"}, second.ErrorsFor("email"))

		close(release)
		first := <-firstDone
		assert.False(t, first.IsValid)
		assert.Equal(t, []string{"already registered"}, first.ErrorsFor("email"))
		assert.Empty(t, first.Pending)
	})
}

func TestValidateField(t *testing.T) {
	e, err := NewEngine(testSchema())
	require.NoError(t, err)
	ctx := context.Background()

	t.Run("scoped to the field and its dependents", func(t *testing.T) {
		data := validBooking()
		data["zip"] = "abcde"      // out of scope, must not be reported
		data["end_date"] = "2026-04-20" // dependent of start_date
		results, err := e.ValidateField(ctx, "start_date", data, schema.TriggerBlur)
		require.NoError(t, err)
		assert.Empty(t, results.ErrorsFor("zip"))
		assert.Equal(t, []string{"ends before it starts"}, results.ErrorsFor("end_date"))
	})

	t.Run("matches a full pass on the evaluated subset", func(t *testing.T) {
		data := validBooking()
		data["nights"] = 45
		scoped, err := e.ValidateField(ctx, "country", data, schema.TriggerChange)
		require.NoError(t, err)
		full := e.ValidateAll(ctx, data, schema.TriggerChange)

		for _, id := range append(e.Dependents("country"), "country") {
			assert.Equal(t, full.ErrorsFor(id), scoped.ErrorsFor(id), "field %s", id)
		}
	})

	t.Run("unknown field is rejected", func(t *testing.T) {
		_, err := e.ValidateField(ctx, "nope", validBooking(), schema.TriggerChange)
		var serr *schema.SchemaError
		require.ErrorAs(t, err, &serr)
		assert.Equal(t, schema.ErrUnknownFieldReference, serr.Kind)
	})
}

func TestEvaluateCombinesBothPasses(t *testing.T) {
	e, err := NewEngine(testSchema(), WithChecker(staticChecker(domain.OutcomeValid, "")))
	require.NoError(t, err)

	out := e.Evaluate(context.Background(), validBooking(), schema.TriggerSubmit)
	assert.True(t, out.Validation.IsValid)
	assert.True(t, out.Conditional.Fields["zip"].Rendered())
	assert.False(t, out.Conditional.Fields["discount_code"].Rendered())
}

func TestEvaluationHooks(t *testing.T) {
	var evals []*domain.EvaluationEvent
	var checks []*domain.RemoteCheckEvent
	hooks := domain.LifecycleHooks{
		OnEvaluation:  func(_ context.Context, ev *domain.EvaluationEvent) { evals = append(evals, ev) },
		OnRemoteCheck: func(_ context.Context, ev *domain.RemoteCheckEvent) { checks = append(checks, ev) },
	}
	e, err := NewEngine(testSchema(), WithChecker(staticChecker(domain.OutcomeValid, "")), WithHooks(hooks))
	require.NoError(t, err)

	e.ValidateAll(context.Background(), validBooking(), schema.TriggerSubmit)
	require.Len(t, evals, 1)
	assert.Equal(t, domain.ScopeFull, evals[0].Scope)
	assert.True(t, evals[0].Valid)
	require.Len(t, checks, 1)
	assert.Equal(t, "unique_email", checks[0].Check)
	assert.Equal(t, domain.OutcomeValid, checks[0].Outcome)
}
