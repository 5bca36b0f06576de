package dsl

import (
	"fmt"

	"github.com/aretw0/lattice/pkg/schema"
)

// FormBuilder manages the schema construction.
type FormBuilder struct {
	s        schema.Schema
	sections []*SectionBuilder
}

// NewForm creates a new schema builder.
func NewForm(id string) *FormBuilder {
	return &FormBuilder{s: schema.Schema{ID: id}}
}

// Name sets the human readable schema name.
func (b *FormBuilder) Name(name string) *FormBuilder {
	b.s.Name = name
	return b
}

// Description sets the schema description.
func (b *FormBuilder) Description(desc string) *FormBuilder {
	b.s.Description = desc
	return b
}

// Version sets the schema version string.
func (b *FormBuilder) Version(v string) *FormBuilder {
	b.s.Version = v
	return b
}

// Default sets a schema level default, applied on top of field defaults.
func (b *FormBuilder) Default(fieldID string, value any) *FormBuilder {
	if b.s.Defaults == nil {
		b.s.Defaults = map[string]any{}
	}
	b.s.Defaults[fieldID] = value
	return b
}

// Section creates a new section. Sections keep their declaration order.
// If the section already exists, it returns the existing builder.
func (b *FormBuilder) Section(id string) *SectionBuilder {
	for _, sb := range b.sections {
		if sb.sec.ID == id {
			return sb
		}
	}
	sb := &SectionBuilder{
		sec:  schema.Section{ID: id, Order: len(b.sections)},
		form: b,
	}
	b.sections = append(b.sections, sb)
	return sb
}

// Rule attaches a schema level rule to a target field.
func (b *FormBuilder) Rule(target string, rule schema.Rule) *FormBuilder {
	b.s.Rules = append(b.s.Rules, schema.GlobalRule{Target: target, Rule: rule})
	return b
}

// Logic appends a conditional logic rule. Rules apply in declaration
// order; for the same target and effect the last one wins.
func (b *FormBuilder) Logic(id string, when *schema.Condition, target string, effect schema.EffectKind) *LogicBuilder {
	b.s.Logic = append(b.s.Logic, schema.LogicRule{
		ID:     id,
		When:   when,
		Target: target,
		Effect: effect,
	})
	return &LogicBuilder{form: b, idx: len(b.s.Logic) - 1}
}

// Build compiles and validates the schema.
func (b *FormBuilder) Build() (*schema.Schema, error) {
	out := b.s
	out.Sections = make([]schema.Section, 0, len(b.sections))
	for _, sb := range b.sections {
		out.Sections = append(out.Sections, sb.sec)
	}
	if err := out.Validate(); err != nil {
		return nil, fmt.Errorf("failed to build schema: %w", err)
	}
	return &out, nil
}

// SectionBuilder provides a fluent API for configuring a section.
type SectionBuilder struct {
	sec  schema.Section
	form *FormBuilder
}

// Title sets the section title.
func (s *SectionBuilder) Title(title string) *SectionBuilder {
	s.sec.Title = title
	return s
}

// VisibleWhen gates the whole section on a condition.
func (s *SectionBuilder) VisibleWhen(c *schema.Condition) *SectionBuilder {
	s.sec.Visible = c
	return s
}

// Field creates a new field in the section.
// If the field already exists, it returns the existing builder.
func (s *SectionBuilder) Field(id string, typ schema.FieldType) *FieldBuilder {
	for i := range s.sec.Fields {
		if s.sec.Fields[i].ID == id {
			return &FieldBuilder{section: s, idx: i}
		}
	}
	s.sec.Fields = append(s.sec.Fields, schema.Field{ID: id, Type: typ})
	return &FieldBuilder{section: s, idx: len(s.sec.Fields) - 1}
}

// FieldBuilder provides a fluent API for configuring a field.
type FieldBuilder struct {
	section *SectionBuilder
	idx     int
}

func (f *FieldBuilder) field() *schema.Field {
	return &f.section.sec.Fields[f.idx]
}

// Label sets the display label.
func (f *FieldBuilder) Label(label string) *FieldBuilder {
	f.field().Label = label
	return f
}

// Required marks the field as required.
func (f *FieldBuilder) Required() *FieldBuilder {
	f.field().Required = true
	return f
}

// Default sets the field default value.
func (f *FieldBuilder) Default(v any) *FieldBuilder {
	f.field().Default = v
	return f
}

// Options declares the static choices for select-like fields.
func (f *FieldBuilder) Options(opts ...schema.Option) *FieldBuilder {
	fld := f.field()
	if fld.Options == nil {
		fld.Options = &schema.OptionSet{}
	}
	fld.Options.Static = append(fld.Options.Static, opts...)
	return f
}

// AllowCustom accepts values outside the static option list.
func (f *FieldBuilder) AllowCustom() *FieldBuilder {
	fld := f.field()
	if fld.Options == nil {
		fld.Options = &schema.OptionSet{}
	}
	fld.Options.AllowCustom = true
	return f
}

// VisibleWhen gates the field on a condition.
func (f *FieldBuilder) VisibleWhen(c *schema.Condition) *FieldBuilder {
	f.field().Visible = c
	return f
}

// DependsOn declares explicit dependencies beyond those inferred from
// conditions and rules.
func (f *FieldBuilder) DependsOn(fieldIDs ...string) *FieldBuilder {
	fld := f.field()
	fld.DependsOn = append(fld.DependsOn, fieldIDs...)
	return f
}

// Rules attaches validation rules to the field.
func (f *FieldBuilder) Rules(rules ...schema.Rule) *FieldBuilder {
	fld := f.field()
	fld.Rules = append(fld.Rules, rules...)
	return f
}

// LogicBuilder configures the payload of a logic rule.
type LogicBuilder struct {
	form *FormBuilder
	idx  int
}

// Value sets the value payload for set_value and set_error effects.
func (l *LogicBuilder) Value(v any) *LogicBuilder {
	l.form.s.Logic[l.idx].Value = v
	return l
}

// Options sets the option payload for the set_options effect.
func (l *LogicBuilder) Options(opts ...schema.Option) *LogicBuilder {
	rule := &l.form.s.Logic[l.idx]
	rule.Options = append(rule.Options, opts...)
	return l
}
