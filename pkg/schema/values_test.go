package schema_test

import (
	"testing"

	"github.com/aretw0/lattice/pkg/schema"
	"github.com/stretchr/testify/assert"
)

func TestIsEmpty(t *testing.T) {
	assert.True(t, schema.IsEmpty(nil))
	assert.True(t, schema.IsEmpty(""))
	assert.True(t, schema.IsEmpty("   "))
	assert.True(t, schema.IsEmpty([]any{}))
	assert.True(t, schema.IsEmpty(map[string]any{}))

	// Zero and false are values, not absence.
	assert.False(t, schema.IsEmpty(0))
	assert.False(t, schema.IsEmpty(false))
	assert.False(t, schema.IsEmpty("0"))
}

func TestCheckValue(t *testing.T) {
	t.Run("empty values always pass the shape check", func(t *testing.T) {
		f := schema.Field{ID: "n", Type: schema.FieldNumber}
		assert.NoError(t, f.CheckValue(nil))
		assert.NoError(t, f.CheckValue(""))
	})

	t.Run("number accepts numerics and numeric strings", func(t *testing.T) {
		f := schema.Field{ID: "n", Type: schema.FieldNumber}
		assert.NoError(t, f.CheckValue(42))
		assert.NoError(t, f.CheckValue(3.14))
		assert.NoError(t, f.CheckValue("7"))
		assert.Error(t, f.CheckValue("seven"))
	})

	t.Run("datetime accepts RFC3339 and plain dates", func(t *testing.T) {
		f := schema.Field{ID: "d", Type: schema.FieldDateTime}
		assert.NoError(t, f.CheckValue("2024-02-01"))
		assert.NoError(t, f.CheckValue("2024-02-01T10:00:00Z"))
		assert.Error(t, f.CheckValue("yesterday"))
	})

	t.Run("color requires hex notation", func(t *testing.T) {
		f := schema.Field{ID: "c", Type: schema.FieldColor}
		assert.NoError(t, f.CheckValue("#a1b2c3"))
		assert.Error(t, f.CheckValue("red"))
	})

	t.Run("richtext rejects markup the policy strips", func(t *testing.T) {
		f := schema.Field{ID: "r", Type: schema.FieldRichText}
		assert.NoError(t, f.CheckValue("<p>hello <strong>world</strong></p>"))
		assert.Error(t, f.CheckValue(`<script>alert(1)</script>`))
	})

	t.Run("json requires a valid document", func(t *testing.T) {
		f := schema.Field{ID: "j", Type: schema.FieldJSON}
		assert.NoError(t, f.CheckValue(`{"a": 1}`))
		assert.NoError(t, f.CheckValue(map[string]any{"a": 1}))
		assert.Error(t, f.CheckValue(`{"a":`))
	})

	t.Run("select without custom values enforces options", func(t *testing.T) {
		f := schema.Field{
			ID:   "country",
			Type: schema.FieldSelect,
			Options: &schema.OptionSet{
				Static: []schema.Option{{Value: "US"}, {Value: "DE"}},
			},
		}
		assert.NoError(t, f.CheckValue("US"))
		assert.Error(t, f.CheckValue("FR"))

		f.Options.AllowCustom = true
		assert.NoError(t, f.CheckValue("FR"))
	})

	t.Run("multiselect checks each element", func(t *testing.T) {
		f := schema.Field{
			ID:   "tags",
			Type: schema.FieldMultiSelect,
			Options: &schema.OptionSet{
				Static: []schema.Option{{Value: "a"}, {Value: "b"}},
			},
		}
		assert.NoError(t, f.CheckValue([]any{"a", "b"}))
		assert.Error(t, f.CheckValue([]any{"a", "z"}))
	})
}
