package schema

import "sort"

// FieldType is the closed enumeration of input kinds a form can declare.
type FieldType string

const (
	FieldText          FieldType = "text"
	FieldNumber        FieldType = "number"
	FieldDateTime      FieldType = "datetime"
	FieldSelect        FieldType = "select"
	FieldMultiSelect   FieldType = "multiselect"
	FieldRadio         FieldType = "radio"
	FieldCheckbox      FieldType = "checkbox"
	FieldCheckboxGroup FieldType = "checkbox_group"
	FieldSlider        FieldType = "slider"
	FieldRating        FieldType = "rating"
	FieldFile          FieldType = "file"
	FieldColor         FieldType = "color"
	FieldRichText      FieldType = "richtext"
	FieldJSON          FieldType = "json"
	FieldArray         FieldType = "array"
)

var fieldTypes = map[FieldType]bool{
	FieldText: true, FieldNumber: true, FieldDateTime: true,
	FieldSelect: true, FieldMultiSelect: true, FieldRadio: true,
	FieldCheckbox: true, FieldCheckboxGroup: true, FieldSlider: true,
	FieldRating: true, FieldFile: true, FieldColor: true,
	FieldRichText: true, FieldJSON: true, FieldArray: true,
}

// Known reports whether t is part of the closed field type set.
func (t FieldType) Known() bool { return fieldTypes[t] }

// Option is a single selectable choice for select-like fields.
type Option struct {
	Value any    `json:"value" yaml:"value"`
	Label string `json:"label,omitempty" yaml:"label,omitempty"`
}

// OptionSet declares the static choices of a field and whether values
// outside that list are accepted.
type OptionSet struct {
	Static      []Option `json:"static,omitempty" yaml:"static,omitempty"`
	AllowCustom bool     `json:"allow_custom,omitempty" yaml:"allow_custom,omitempty"`
}

// Field models a single input inside a section. IDs are unique across the
// whole schema, not just within the owning section, because cross-field
// rules and conditions reference them globally.
type Field struct {
	ID        string     `json:"id" yaml:"id"`
	Type      FieldType  `json:"type" yaml:"type"`
	Label     string     `json:"label,omitempty" yaml:"label,omitempty"`
	Required  bool       `json:"required,omitempty" yaml:"required,omitempty"`
	Default   any        `json:"default,omitempty" yaml:"default,omitempty"`
	Options   *OptionSet `json:"options,omitempty" yaml:"options,omitempty"`
	Rules     Rules      `json:"rules,omitempty" yaml:"rules,omitempty"`
	Visible   *Condition `json:"visible,omitempty" yaml:"visible,omitempty"`
	DependsOn []string   `json:"depends_on,omitempty" yaml:"depends_on,omitempty"`
}

// Section groups fields for presentation and evaluation ordering.
type Section struct {
	ID      string     `json:"id" yaml:"id"`
	Title   string     `json:"title,omitempty" yaml:"title,omitempty"`
	Order   int        `json:"order" yaml:"order"`
	Visible *Condition `json:"visible,omitempty" yaml:"visible,omitempty"`
	Fields  []Field    `json:"fields" yaml:"fields"`
}

// Metadata carries descriptive flags that do not affect evaluation.
type Metadata struct {
	Tags       []string `json:"tags,omitempty" yaml:"tags,omitempty"`
	Difficulty string   `json:"difficulty,omitempty" yaml:"difficulty,omitempty"`
	Audience   string   `json:"audience,omitempty" yaml:"audience,omitempty"`
	Active     bool     `json:"active,omitempty" yaml:"active,omitempty"`
	Template   bool     `json:"template,omitempty" yaml:"template,omitempty"`
}

// EffectKind enumerates what a logic rule does to its target field.
type EffectKind string

const (
	EffectShow       EffectKind = "show"
	EffectHide       EffectKind = "hide"
	EffectEnable     EffectKind = "enable"
	EffectDisable    EffectKind = "disable"
	EffectSetValue   EffectKind = "set_value"
	EffectSetOptions EffectKind = "set_options"
	EffectSetError   EffectKind = "set_error"
)

var effectKinds = map[EffectKind]bool{
	EffectShow: true, EffectHide: true, EffectEnable: true,
	EffectDisable: true, EffectSetValue: true, EffectSetOptions: true,
	EffectSetError: true,
}

// Known reports whether k is a recognized effect kind.
func (k EffectKind) Known() bool { return effectKinds[k] }

// LogicRule applies an effect to a target field while its condition holds.
// Effects are reported to the caller through ConditionalResult; the engine
// never writes them back into the data snapshot it was given.
type LogicRule struct {
	ID      string     `json:"id,omitempty" yaml:"id,omitempty"`
	When    *Condition `json:"when" yaml:"when"`
	Target  string     `json:"target" yaml:"target"`
	Effect  EffectKind `json:"effect" yaml:"effect"`
	Value   any        `json:"value,omitempty" yaml:"value,omitempty"`
	Options []Option   `json:"options,omitempty" yaml:"options,omitempty"`
}

// GlobalRule binds a schema-level validation rule to the field that should
// carry its error message.
type GlobalRule struct {
	Target string `json:"target" yaml:"target"`
	Rule   Rule   `json:"rule" yaml:"rule"`
}

// Schema is the immutable description of a form. Once handed to an engine
// it must not be mutated; the engine only ever reads it.
type Schema struct {
	ID          string         `json:"id" yaml:"id"`
	Name        string         `json:"name,omitempty" yaml:"name,omitempty"`
	Description string         `json:"description,omitempty" yaml:"description,omitempty"`
	Version     string         `json:"version,omitempty" yaml:"version,omitempty"`
	Sections    []Section      `json:"sections" yaml:"sections"`
	Rules       []GlobalRule   `json:"rules,omitempty" yaml:"rules,omitempty"`
	Logic       []LogicRule    `json:"logic,omitempty" yaml:"logic,omitempty"`
	Defaults    map[string]any `json:"defaults,omitempty" yaml:"defaults,omitempty"`
	Meta        Metadata       `json:"meta,omitempty" yaml:"meta,omitempty"`
}

// SortedSections returns the sections ordered by their Order attribute.
// Ties keep the original list position (stable sort) so evaluation order
// stays deterministic.
func (s *Schema) SortedSections() []Section {
	out := make([]Section, len(s.Sections))
	copy(out, s.Sections)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Order < out[j].Order })
	return out
}

// Fields returns every field flattened in evaluation order: section order
// first, then field declaration order.
func (s *Schema) Fields() []Field {
	var out []Field
	for _, sec := range s.SortedSections() {
		out = append(out, sec.Fields...)
	}
	return out
}

// Field looks up a field by ID.
func (s *Schema) Field(id string) (Field, bool) {
	for _, sec := range s.Sections {
		for _, f := range sec.Fields {
			if f.ID == id {
				return f, true
			}
		}
	}
	return Field{}, false
}

// SectionOf returns the section owning the given field.
func (s *Schema) SectionOf(fieldID string) (Section, bool) {
	for _, sec := range s.Sections {
		for _, f := range sec.Fields {
			if f.ID == fieldID {
				return sec, true
			}
		}
	}
	return Section{}, false
}
