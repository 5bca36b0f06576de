package dsl

import "github.com/aretw0/lattice/pkg/schema"

// Leaf comparison constructors. Each returns a single-node condition tree
// ready to compose with All, Any and Not.

func Eq(field string, value any) *schema.Condition {
	return &schema.Condition{Field: field, Cmp: schema.CmpEq, Value: value}
}

func Ne(field string, value any) *schema.Condition {
	return &schema.Condition{Field: field, Cmp: schema.CmpNe, Value: value}
}

func Gt(field string, value any) *schema.Condition {
	return &schema.Condition{Field: field, Cmp: schema.CmpGt, Value: value}
}

func Gte(field string, value any) *schema.Condition {
	return &schema.Condition{Field: field, Cmp: schema.CmpGte, Value: value}
}

func Lt(field string, value any) *schema.Condition {
	return &schema.Condition{Field: field, Cmp: schema.CmpLt, Value: value}
}

func Lte(field string, value any) *schema.Condition {
	return &schema.Condition{Field: field, Cmp: schema.CmpLte, Value: value}
}

func In(field string, values ...any) *schema.Condition {
	return &schema.Condition{Field: field, Cmp: schema.CmpIn, Value: values}
}

func NotIn(field string, values ...any) *schema.Condition {
	return &schema.Condition{Field: field, Cmp: schema.CmpNotIn, Value: values}
}

func Empty(field string) *schema.Condition {
	return &schema.Condition{Field: field, Cmp: schema.CmpEmpty}
}

func NotEmpty(field string) *schema.Condition {
	return &schema.Condition{Field: field, Cmp: schema.CmpNotEmpty}
}

func Contains(field string, value any) *schema.Condition {
	return &schema.Condition{Field: field, Cmp: schema.CmpContains, Value: value}
}

// All is true when every child condition is true.
func All(children ...*schema.Condition) *schema.Condition {
	return &schema.Condition{All: children}
}

// Any is true when at least one child condition is true.
func Any(children ...*schema.Condition) *schema.Condition {
	return &schema.Condition{Any: children}
}

// Not negates a condition.
func Not(c *schema.Condition) *schema.Condition {
	return &schema.Condition{Not: c}
}
