package schema

import (
	"fmt"
	"regexp"
)

// Validate performs the structural checks that must hold before an engine
// can be built from the schema: unique field IDs, resolvable field
// references, known field types, well-formed rules and condition trees.
// The first failure is returned as a *SchemaError.
func (s *Schema) Validate() error {
	if s.ID == "" {
		return &SchemaError{Kind: ErrInvalidRule, Detail: "schema id is required"}
	}

	ids := map[string]bool{}
	for _, sec := range s.Sections {
		for _, f := range sec.Fields {
			if f.ID == "" {
				return &SchemaError{Kind: ErrInvalidRule, Detail: fmt.Sprintf("section %q has a field without an id", sec.ID)}
			}
			if ids[f.ID] {
				return &SchemaError{Kind: ErrDuplicateFieldID, FieldID: f.ID, Detail: "field id declared more than once"}
			}
			ids[f.ID] = true
		}
	}

	for _, sec := range s.Sections {
		if err := checkCondition(sec.Visible, "", ids); err != nil {
			return err
		}
		for _, f := range sec.Fields {
			if !f.Type.Known() {
				return &SchemaError{Kind: ErrUnknownFieldType, FieldID: f.ID, Detail: fmt.Sprintf("unknown field type %q", f.Type)}
			}
			if err := checkCondition(f.Visible, f.ID, ids); err != nil {
				return err
			}
			for _, dep := range f.DependsOn {
				if !ids[dep] {
					return &SchemaError{Kind: ErrUnknownFieldReference, FieldID: f.ID, Detail: fmt.Sprintf("depends_on references unknown field %q", dep)}
				}
			}
			for i, r := range f.Rules {
				if err := checkRule(r, f.ID, i, ids); err != nil {
					return err
				}
			}
		}
	}

	for i, g := range s.Rules {
		if g.Rule == nil {
			return &SchemaError{Kind: ErrInvalidRule, FieldID: g.Target, Detail: fmt.Sprintf("global rule %d has no rule body", i)}
		}
		if !ids[g.Target] {
			return &SchemaError{Kind: ErrUnknownFieldReference, FieldID: g.Target, Detail: fmt.Sprintf("global rule %d targets unknown field", i)}
		}
		if err := checkRule(g.Rule, g.Target, i, ids); err != nil {
			return err
		}
	}

	for i, lr := range s.Logic {
		if !ids[lr.Target] {
			return &SchemaError{Kind: ErrUnknownFieldReference, FieldID: lr.Target, Detail: fmt.Sprintf("logic rule %d targets unknown field", i)}
		}
		if !lr.Effect.Known() {
			return &SchemaError{Kind: ErrInvalidRule, FieldID: lr.Target, Detail: fmt.Sprintf("logic rule %d has unknown effect %q", i, lr.Effect)}
		}
		if lr.When == nil {
			return &SchemaError{Kind: ErrInvalidCondition, FieldID: lr.Target, Detail: fmt.Sprintf("logic rule %d has no condition", i)}
		}
		if err := checkCondition(lr.When, lr.Target, ids); err != nil {
			return err
		}
	}

	for id := range s.Defaults {
		if !ids[id] {
			return &SchemaError{Kind: ErrUnknownFieldReference, FieldID: id, Detail: "default value set for unknown field"}
		}
	}

	return nil
}

func checkCondition(c *Condition, fieldID string, ids map[string]bool) error {
	if c == nil {
		return nil
	}
	if err := c.check(1); err != nil {
		detail := err.Error()
		if ee, ok := err.(*ExpressionError); ok {
			detail = ee.Reason
		}
		return &SchemaError{Kind: ErrInvalidCondition, FieldID: fieldID, Detail: detail}
	}
	for _, ref := range c.FieldRefs() {
		if !ids[ref] {
			return &SchemaError{Kind: ErrUnknownFieldReference, FieldID: fieldID, Detail: fmt.Sprintf("condition references unknown field %q", ref)}
		}
	}
	return nil
}

func checkRule(r Rule, fieldID string, idx int, ids map[string]bool) error {
	switch t := r.(type) {
	case PatternRule:
		if _, err := regexp.Compile(t.Pattern); err != nil {
			return &SchemaError{Kind: ErrInvalidRule, FieldID: fieldID, Detail: fmt.Sprintf("rule %d: pattern does not compile: %v", idx, err)}
		}
	case RangeRule:
		if t.Min != nil && t.Max != nil && *t.Min > *t.Max {
			return &SchemaError{Kind: ErrInvalidRule, FieldID: fieldID, Detail: fmt.Sprintf("rule %d: min is greater than max", idx)}
		}
	case LengthRule:
		if t.Min != nil && t.Max != nil && *t.Min > *t.Max {
			return &SchemaError{Kind: ErrInvalidRule, FieldID: fieldID, Detail: fmt.Sprintf("rule %d: min length is greater than max length", idx)}
		}
	case CrossFieldRule:
		if !ids[t.Other] {
			return &SchemaError{Kind: ErrUnknownFieldReference, FieldID: fieldID, Detail: fmt.Sprintf("rule %d: crossfield references unknown field %q", idx, t.Other)}
		}
		switch t.Operator {
		case CmpEmpty, CmpNotEmpty:
			return &SchemaError{Kind: ErrInvalidRule, FieldID: fieldID, Detail: fmt.Sprintf("rule %d: operator %q is not a binary comparator", idx, t.Operator)}
		}
	case RequiredRule, ExprRule, RemoteRule:
		// Expression compilation is verified when the engine is built.
	case nil:
		return &SchemaError{Kind: ErrInvalidRule, FieldID: fieldID, Detail: fmt.Sprintf("rule %d is nil", idx)}
	}
	return nil
}
