package runtime

import (
	"strings"

	"github.com/aretw0/lattice/pkg/domain"
	"github.com/aretw0/lattice/pkg/schema"
)

// evalCondition resolves a condition tree against the snapshot. A nil
// condition is vacuously true. Composite nodes short-circuit: all stops at
// the first false child, any at the first true child.
//
// Errors are structural (unknown comparator, depth overflow); they surface
// so the caller can fail closed rather than guess a verdict.
func evalCondition(c *schema.Condition, data domain.Snapshot, depth int) (bool, error) {
	if c == nil {
		return true, nil
	}
	if depth > schema.MaxConditionDepth {
		return false, &schema.ExpressionError{Reason: "condition nesting exceeds maximum depth"}
	}

	switch {
	case len(c.All) > 0:
		for _, child := range c.All {
			ok, err := evalCondition(child, data, depth+1)
			if err != nil {
				return false, err
			}
			if !ok {
				return false, nil
			}
		}
		return true, nil
	case len(c.Any) > 0:
		for _, child := range c.Any {
			ok, err := evalCondition(child, data, depth+1)
			if err != nil {
				return false, err
			}
			if ok {
				return true, nil
			}
		}
		return false, nil
	case c.Not != nil:
		ok, err := evalCondition(c.Not, data, depth+1)
		if err != nil {
			return false, err
		}
		return !ok, nil
	}

	return compare(data.Value(c.Field), c.Cmp, c.Value, c.Field)
}

// compare applies a leaf comparator. An empty actual value only ever
// satisfies the empty comparator; every other comparison against an empty
// value is false, so conditions never match on absent data by accident.
func compare(actual any, cmp schema.Comparator, want any, fieldID string) (bool, error) {
	if schema.IsEmpty(actual) {
		return cmp == schema.CmpEmpty, nil
	}

	switch cmp {
	case schema.CmpEmpty:
		return false, nil
	case schema.CmpNotEmpty:
		return true, nil
	case schema.CmpEq:
		return looseEqual(actual, want), nil
	case schema.CmpNe:
		return !looseEqual(actual, want), nil
	case schema.CmpGt, schema.CmpGte, schema.CmpLt, schema.CmpLte:
		return ordered(actual, cmp, want), nil
	case schema.CmpIn:
		items, _ := schema.AsList(want)
		for _, item := range items {
			if looseEqual(actual, item) {
				return true, nil
			}
		}
		return false, nil
	case schema.CmpNotIn:
		items, _ := schema.AsList(want)
		for _, item := range items {
			if looseEqual(actual, item) {
				return false, nil
			}
		}
		return true, nil
	case schema.CmpContains:
		if list, ok := schema.AsList(actual); ok {
			for _, item := range list {
				if looseEqual(item, want) {
					return true, nil
				}
			}
			return false, nil
		}
		return strings.Contains(schema.AsString(actual), schema.AsString(want)), nil
	}

	return false, &schema.ExpressionError{FieldID: fieldID, Reason: "unknown comparator " + string(cmp)}
}

// looseEqual compares numerically when both sides parse as numbers, so that
// 5, 5.0 and "5" coming from different transports agree. Everything else
// falls back to string equality.
func looseEqual(a, b any) bool {
	an, aok := schema.AsNumber(a)
	bn, bok := schema.AsNumber(b)
	if aok && bok {
		return an == bn
	}
	return schema.AsString(a) == schema.AsString(b)
}

// ordered compares numerically when possible, otherwise lexicographically.
// Lexicographic order is what makes ISO date strings comparable without a
// dedicated date type.
func ordered(actual any, cmp schema.Comparator, want any) bool {
	an, aok := schema.AsNumber(actual)
	bn, bok := schema.AsNumber(want)
	if aok && bok {
		switch cmp {
		case schema.CmpGt:
			return an > bn
		case schema.CmpGte:
			return an >= bn
		case schema.CmpLt:
			return an < bn
		case schema.CmpLte:
			return an <= bn
		}
		return false
	}

	as, ws := schema.AsString(actual), schema.AsString(want)
	switch cmp {
	case schema.CmpGt:
		return as > ws
	case schema.CmpGte:
		return as >= ws
	case schema.CmpLt:
		return as < ws
	case schema.CmpLte:
		return as <= ws
	}
	return false
}
