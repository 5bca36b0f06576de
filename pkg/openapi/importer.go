// Package openapi imports form schemas from OpenAPI 3 documents. Object
// schemas under components.schemas become sections whose properties map to
// fields, with validation keywords translated into rules.
package openapi

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/aretw0/lattice/pkg/schema"
)

// Importer converts OpenAPI component schemas into form schemas.
type Importer struct {
	allowExternalRefs bool
	trigger           schema.Trigger
}

// Option adjusts importer behavior.
type Option func(*Importer)

// WithExternalRefs lets the loader follow $ref targets outside the document.
func WithExternalRefs() Option {
	return func(i *Importer) { i.allowExternalRefs = true }
}

// WithTrigger sets the trigger attached to every imported rule. The zero
// value means rules fire on change.
func WithTrigger(t schema.Trigger) Option {
	return func(i *Importer) { i.trigger = t }
}

// NewImporter constructs an Importer.
func NewImporter(opts ...Option) *Importer {
	imp := &Importer{}
	for _, opt := range opts {
		opt(imp)
	}
	return imp
}

// Import parses an OpenAPI document and builds a form schema whose sections
// are the named components. When components is empty every object schema
// under components.schemas is imported, ordered by name. Property names must
// be unique across the selected components because field IDs are global.
func (i *Importer) Import(ctx context.Context, id string, doc []byte, components ...string) (*schema.Schema, error) {
	if len(doc) == 0 {
		return nil, errors.New("openapi import: document payload is empty")
	}

	loader := &openapi3.Loader{
		Context:               ctx,
		IsExternalRefsAllowed: i.allowExternalRefs,
	}
	spec, err := loader.LoadFromData(doc)
	if err != nil {
		return nil, fmt.Errorf("openapi import: load document: %w", err)
	}
	if err := spec.Validate(ctx, openapi3.DisableExamplesValidation()); err != nil {
		return nil, fmt.Errorf("openapi import: validate: %w", err)
	}

	named, err := i.selectComponents(spec, components)
	if err != nil {
		return nil, err
	}

	out := &schema.Schema{ID: id}
	if spec.Info != nil {
		out.Name = spec.Info.Title
		out.Description = spec.Info.Description
		out.Version = spec.Info.Version
	}

	for order, name := range named {
		ref := spec.Components.Schemas[name]
		section, err := i.buildSection(name, order, ref)
		if err != nil {
			return nil, err
		}
		out.Sections = append(out.Sections, section)
	}

	if err := out.Validate(); err != nil {
		return nil, fmt.Errorf("openapi import: imported schema invalid: %w", err)
	}
	return out, nil
}

func (i *Importer) selectComponents(spec *openapi3.T, components []string) ([]string, error) {
	if spec.Components == nil || len(spec.Components.Schemas) == 0 {
		return nil, errors.New("openapi import: document declares no component schemas")
	}
	if len(components) > 0 {
		for _, name := range components {
			if _, ok := spec.Components.Schemas[name]; !ok {
				return nil, fmt.Errorf("openapi import: component %q not found", name)
			}
		}
		return components, nil
	}
	var named []string
	for name, ref := range spec.Components.Schemas {
		if ref != nil && ref.Value != nil && ref.Value.Type.Is(openapi3.TypeObject) {
			named = append(named, name)
		}
	}
	if len(named) == 0 {
		return nil, errors.New("openapi import: no object schemas to import")
	}
	sort.Strings(named)
	return named, nil
}

func (i *Importer) buildSection(name string, order int, ref *openapi3.SchemaRef) (schema.Section, error) {
	if ref == nil || ref.Value == nil {
		return schema.Section{}, fmt.Errorf("openapi import: component %q has no schema", name)
	}
	src := ref.Value
	if !src.Type.Is(openapi3.TypeObject) {
		return schema.Section{}, fmt.Errorf("openapi import: component %q is not an object schema", name)
	}

	section := schema.Section{
		ID:    sectionID(name),
		Title: titleOr(src.Title, name),
		Order: order,
	}

	required := make(map[string]bool, len(src.Required))
	for _, prop := range src.Required {
		required[prop] = true
	}

	names := make([]string, 0, len(src.Properties))
	for prop := range src.Properties {
		names = append(names, prop)
	}
	sort.Strings(names)

	for _, prop := range names {
		field, err := i.buildField(prop, src.Properties[prop], required[prop])
		if err != nil {
			return schema.Section{}, fmt.Errorf("openapi import: component %q: %w", name, err)
		}
		section.Fields = append(section.Fields, field)
	}
	return section, nil
}

func (i *Importer) buildField(name string, ref *openapi3.SchemaRef, required bool) (schema.Field, error) {
	if ref == nil || ref.Value == nil {
		return schema.Field{}, fmt.Errorf("property %q has no schema", name)
	}
	src := ref.Value

	field := schema.Field{
		ID:       name,
		Label:    titleOr(src.Title, name),
		Required: required,
		Default:  src.Default,
	}

	field.Type = fieldType(src)
	if len(src.Enum) > 0 {
		field.Options = &schema.OptionSet{Static: enumOptions(src.Enum)}
	}

	field.Rules = i.propertyRules(src)
	return field, nil
}

// fieldType maps the property's JSON type and format onto the closed field
// type set. Unrecognized combinations fall back to text.
func fieldType(src *openapi3.Schema) schema.FieldType {
	switch {
	case src.Type.Is(openapi3.TypeBoolean):
		return schema.FieldCheckbox
	case src.Type.Is(openapi3.TypeNumber), src.Type.Is(openapi3.TypeInteger):
		return schema.FieldNumber
	case src.Type.Is(openapi3.TypeArray):
		if src.Items != nil && src.Items.Value != nil && len(src.Items.Value.Enum) > 0 {
			return schema.FieldMultiSelect
		}
		return schema.FieldArray
	case src.Type.Is(openapi3.TypeObject):
		return schema.FieldJSON
	case src.Type.Is(openapi3.TypeString):
		switch src.Format {
		case "date", "date-time":
			return schema.FieldDateTime
		}
		if len(src.Enum) > 0 {
			return schema.FieldSelect
		}
		return schema.FieldText
	default:
		if len(src.Enum) > 0 {
			return schema.FieldSelect
		}
		return schema.FieldText
	}
}

func (i *Importer) propertyRules(src *openapi3.Schema) schema.Rules {
	var rules schema.Rules

	if src.Pattern != "" {
		rules = append(rules, schema.PatternRule{
			On:      i.trigger,
			Pattern: src.Pattern,
		})
	}
	if src.Min != nil || src.Max != nil {
		// Range bounds are inclusive. Exclusive integer bounds tighten by
		// one; exclusive float bounds import as inclusive.
		integer := src.Type.Is(openapi3.TypeInteger)
		rule := schema.RangeRule{On: i.trigger}
		if src.Min != nil {
			min := *src.Min
			if src.ExclusiveMin && integer {
				min++
			}
			rule.Min = &min
		}
		if src.Max != nil {
			max := *src.Max
			if src.ExclusiveMax && integer {
				max--
			}
			rule.Max = &max
		}
		rules = append(rules, rule)
	}
	if src.MinLength != 0 || src.MaxLength != nil {
		rule := schema.LengthRule{On: i.trigger}
		if src.MinLength != 0 {
			min := int(src.MinLength)
			rule.Min = &min
		}
		if src.MaxLength != nil {
			max := int(*src.MaxLength)
			rule.Max = &max
		}
		rules = append(rules, rule)
	}
	return rules
}

func enumOptions(enum []any) []schema.Option {
	opts := make([]schema.Option, 0, len(enum))
	for _, value := range enum {
		opts = append(opts, schema.Option{Value: value, Label: schema.AsString(value)})
	}
	return opts
}

func sectionID(name string) string {
	var b strings.Builder
	b.Grow(len(name))
	for idx, r := range name {
		switch {
		case r >= 'A' && r <= 'Z':
			if idx > 0 {
				b.WriteByte('_')
			}
			b.WriteRune(r + ('a' - 'A'))
		case r == '-' || r == ' ':
			b.WriteByte('_')
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

func titleOr(title, fallback string) string {
	if title != "" {
		return title
	}
	return fallback
}
