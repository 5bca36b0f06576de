package runtime

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/lattice/pkg/schema"
)

func fptr(v float64) *float64 { return &v }
func iptr(v int) *int         { return &v }

// testSchema is a booking form exercising every dependency source: field
// visibility, section visibility via logic rules, cross-field rules,
// expression identifiers, and an explicit depends_on.
func testSchema() *schema.Schema {
	return &schema.Schema{
		ID: "booking",
		Sections: []schema.Section{
			{
				ID:    "contact",
				Order: 1,
				Fields: []schema.Field{
					{
						ID:       "country",
						Type:     schema.FieldSelect,
						Required: true,
						Options: &schema.OptionSet{
							Static: []schema.Option{{Value: "us"}, {Value: "ca"}, {Value: "other"}},
						},
					},
					{
						ID:       "zip",
						Type:     schema.FieldText,
						Required: true,
						Visible:  &schema.Condition{Field: "country", Cmp: schema.CmpEq, Value: "us"},
						Rules: schema.Rules{
							schema.PatternRule{Pattern: `^\d{5}$`, Message: "five digits"},
						},
					},
					{
						ID:   "email",
						Type: schema.FieldText,
						Rules: schema.Rules{
							schema.PatternRule{Pattern: `^[^@\s]+@[^@\s]+$`, On: schema.TriggerBlur, Message: "invalid email"},
							schema.RemoteRule{Check: "unique_email", On: schema.TriggerBlur},
						},
					},
				},
			},
			{
				ID:    "stay",
				Order: 2,
				Fields: []schema.Field{
					{ID: "start_date", Type: schema.FieldDateTime},
					{
						ID:   "end_date",
						Type: schema.FieldDateTime,
						Rules: schema.Rules{
							schema.CrossFieldRule{Operator: schema.CmpGte, Other: "start_date", Message: "ends before it starts"},
						},
					},
					{
						ID:   "nights",
						Type: schema.FieldNumber,
						Rules: schema.Rules{
							schema.RangeRule{Min: fptr(1), Max: fptr(60)},
							schema.ExprRule{Expr: `value <= 30 || country == "other"`, Message: "stay too long"},
						},
					},
					{
						ID:      "discount_code",
						Type:    schema.FieldText,
						Visible: &schema.Condition{Field: "nights", Cmp: schema.CmpGt, Value: 14},
						Rules: schema.Rules{
							schema.LengthRule{Min: iptr(4), Max: iptr(12), Message: "4 to 12 characters"},
						},
					},
				},
			},
		},
		Logic: []schema.LogicRule{
			{
				ID:     "hide-email-abroad",
				When:   &schema.Condition{Field: "country", Cmp: schema.CmpEq, Value: "other"},
				Target: "email",
				Effect: schema.EffectHide,
			},
			{
				ID:     "default-week",
				When:   &schema.Condition{Field: "country", Cmp: schema.CmpEq, Value: "ca"},
				Target: "nights",
				Effect: schema.EffectSetValue,
				Value:  7,
			},
		},
	}
}

func TestGraphDependencies(t *testing.T) {
	e, err := NewEngine(testSchema())
	require.NoError(t, err)
	g := e.Graph()

	t.Run("visibility contributes an edge", func(t *testing.T) {
		assert.Equal(t, []string{"country"}, g.DependsOn("zip"))
	})

	t.Run("cross-field rule contributes an edge", func(t *testing.T) {
		assert.Equal(t, []string{"start_date"}, g.DependsOn("end_date"))
	})

	t.Run("logic rule target depends on its condition", func(t *testing.T) {
		assert.Equal(t, []string{"country"}, g.DependsOn("email"))
	})

	t.Run("expression identifiers contribute edges", func(t *testing.T) {
		assert.Equal(t, []string{"country"}, g.DependsOn("nights"))
	})

	t.Run("fields never depend on themselves", func(t *testing.T) {
		for _, id := range g.Fields() {
			assert.NotContains(t, g.DependsOn(id), id)
		}
	})
}

func TestGraphDependents(t *testing.T) {
	e, err := NewEngine(testSchema())
	require.NoError(t, err)
	g := e.Graph()

	t.Run("transitive closure in evaluation order", func(t *testing.T) {
		// discount_code is only reachable through nights.
		assert.Equal(t, []string{"zip", "email", "nights", "discount_code"}, g.Dependents("country"))
	})

	t.Run("leaf fields have no dependents", func(t *testing.T) {
		assert.Empty(t, g.Dependents("discount_code"))
	})

	t.Run("changed field is excluded", func(t *testing.T) {
		assert.NotContains(t, g.Dependents("start_date"), "start_date")
		assert.Equal(t, []string{"end_date"}, g.Dependents("start_date"))
	})
}

func TestGraphDeterministic(t *testing.T) {
	a, err := NewEngine(testSchema())
	require.NoError(t, err)
	b, err := NewEngine(testSchema())
	require.NoError(t, err)

	if diff := cmp.Diff(a.Graph().Edges(), b.Graph().Edges()); diff != "" {
		t.Fatalf("graphs differ between builds:\n%s", diff)
	}
	assert.Equal(t, a.Graph().Dependents("country"), b.Graph().Dependents("country"))
}

func TestGraphUnknownReference(t *testing.T) {
	s := testSchema()
	s.Sections[1].Fields[2].Rules = schema.Rules{
		schema.ExprRule{Expr: "bogus > 1"},
	}

	_, err := NewEngine(s)
	require.Error(t, err)
	var serr *schema.SchemaError
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, schema.ErrUnknownFieldReference, serr.Kind)
	assert.Equal(t, "nights", serr.FieldID)
}
