package schema

import (
	"encoding/json"
	"fmt"

	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

// Rules is a rule list that knows how to (de)serialize the closed Rule
// union. Documents carry rules as flat objects tagged by "kind".
type Rules []Rule

// ruleEnvelope is the loose document form of a rule. Numeric bounds are
// decoded as floats and narrowed per kind.
type ruleEnvelope struct {
	Kind     RuleKind   `json:"kind" mapstructure:"kind"`
	Trigger  Trigger    `json:"trigger,omitempty" mapstructure:"trigger"`
	Message  string     `json:"message,omitempty" mapstructure:"message"`
	Pattern  string     `json:"pattern,omitempty" mapstructure:"pattern"`
	Min      *float64   `json:"min,omitempty" mapstructure:"min"`
	Max      *float64   `json:"max,omitempty" mapstructure:"max"`
	Expr     string     `json:"expr,omitempty" mapstructure:"expr"`
	Operator Comparator `json:"operator,omitempty" mapstructure:"operator"`
	Other    string     `json:"other,omitempty" mapstructure:"other"`
	Check    string     `json:"check,omitempty" mapstructure:"check"`
}

// DecodeRule converts a loose rule document (as produced by JSON or YAML
// decoding) into its typed variant.
func DecodeRule(raw map[string]any) (Rule, error) {
	var env ruleEnvelope
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &env,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return nil, err
	}
	if err := dec.Decode(raw); err != nil {
		return nil, fmt.Errorf("rule: %w", err)
	}
	return env.toRule()
}

func (env ruleEnvelope) toRule() (Rule, error) {
	if env.Trigger != "" && !env.Trigger.Known() {
		return nil, fmt.Errorf("rule: unknown trigger %q", env.Trigger)
	}

	switch env.Kind {
	case RuleRequired:
		return RequiredRule{On: env.Trigger, Message: env.Message}, nil
	case RulePattern:
		if env.Pattern == "" {
			return nil, fmt.Errorf("rule: pattern rule is missing its pattern")
		}
		return PatternRule{On: env.Trigger, Message: env.Message, Pattern: env.Pattern}, nil
	case RuleRange:
		if env.Min == nil && env.Max == nil {
			return nil, fmt.Errorf("rule: range rule needs min or max")
		}
		return RangeRule{On: env.Trigger, Message: env.Message, Min: env.Min, Max: env.Max}, nil
	case RuleLength:
		if env.Min == nil && env.Max == nil {
			return nil, fmt.Errorf("rule: length rule needs min or max")
		}
		var minLen, maxLen *int
		if env.Min != nil {
			v := int(*env.Min)
			minLen = &v
		}
		if env.Max != nil {
			v := int(*env.Max)
			maxLen = &v
		}
		return LengthRule{On: env.Trigger, Message: env.Message, Min: minLen, Max: maxLen}, nil
	case RuleExpr:
		if env.Expr == "" {
			return nil, fmt.Errorf("rule: expr rule is missing its expression")
		}
		return ExprRule{On: env.Trigger, Message: env.Message, Expr: env.Expr}, nil
	case RuleCrossField:
		if env.Other == "" {
			return nil, fmt.Errorf("rule: crossfield rule is missing the other field")
		}
		if !env.Operator.Known() {
			return nil, fmt.Errorf("rule: crossfield rule has unknown operator %q", env.Operator)
		}
		return CrossFieldRule{On: env.Trigger, Message: env.Message, Operator: env.Operator, Other: env.Other}, nil
	case RuleRemote:
		if env.Check == "" {
			return nil, fmt.Errorf("rule: remote rule is missing its check identifier")
		}
		return RemoteRule{On: env.Trigger, Message: env.Message, Check: env.Check}, nil
	default:
		return nil, fmt.Errorf("rule: unknown kind %q", env.Kind)
	}
}

// envelopeOf flattens a typed rule back into its document form, emitting
// only the keys meaningful for the variant.
func envelopeOf(r Rule) map[string]any {
	out := map[string]any{"kind": string(r.Kind())}
	if r.When() != TriggerChange {
		out["trigger"] = string(r.When())
	}
	if r.ErrorMessage() != "" {
		out["message"] = r.ErrorMessage()
	}
	switch t := r.(type) {
	case PatternRule:
		out["pattern"] = t.Pattern
	case RangeRule:
		if t.Min != nil {
			out["min"] = *t.Min
		}
		if t.Max != nil {
			out["max"] = *t.Max
		}
	case LengthRule:
		if t.Min != nil {
			out["min"] = *t.Min
		}
		if t.Max != nil {
			out["max"] = *t.Max
		}
	case ExprRule:
		out["expr"] = t.Expr
	case CrossFieldRule:
		out["operator"] = string(t.Operator)
		out["other"] = t.Other
	case RemoteRule:
		out["check"] = t.Check
	}
	return out
}

// MarshalJSON serializes each rule as its tagged document form.
func (rs Rules) MarshalJSON() ([]byte, error) {
	docs := make([]map[string]any, len(rs))
	for i, r := range rs {
		if r == nil {
			return nil, fmt.Errorf("rule %d: nil rule", i)
		}
		docs[i] = envelopeOf(r)
	}
	return json.Marshal(docs)
}

// UnmarshalJSON deserializes tagged rule documents into typed variants.
func (rs *Rules) UnmarshalJSON(data []byte) error {
	var docs []map[string]any
	if err := json.Unmarshal(data, &docs); err != nil {
		return err
	}
	out := make(Rules, 0, len(docs))
	for i, doc := range docs {
		r, err := DecodeRule(doc)
		if err != nil {
			return fmt.Errorf("rule %d: %w", i, err)
		}
		out = append(out, r)
	}
	*rs = out
	return nil
}

// MarshalYAML mirrors the JSON document form.
func (rs Rules) MarshalYAML() (any, error) {
	docs := make([]map[string]any, len(rs))
	for i, r := range rs {
		if r == nil {
			return nil, fmt.Errorf("rule %d: nil rule", i)
		}
		docs[i] = envelopeOf(r)
	}
	return docs, nil
}

// UnmarshalYAML mirrors the JSON document form.
func (rs *Rules) UnmarshalYAML(node *yaml.Node) error {
	var docs []map[string]any
	if err := node.Decode(&docs); err != nil {
		return err
	}
	out := make(Rules, 0, len(docs))
	for i, doc := range docs {
		r, err := DecodeRule(doc)
		if err != nil {
			return fmt.Errorf("rule %d: %w", i, err)
		}
		out = append(out, r)
	}
	*rs = out
	return nil
}

// globalRuleDoc is the document form of a schema-level rule.
type globalRuleDoc struct {
	Target string         `json:"target" yaml:"target"`
	Rule   map[string]any `json:"rule" yaml:"rule"`
}

// MarshalJSON serializes the bound rule in its tagged form.
func (g GlobalRule) MarshalJSON() ([]byte, error) {
	if g.Rule == nil {
		return nil, fmt.Errorf("global rule %q: nil rule", g.Target)
	}
	return json.Marshal(globalRuleDoc{Target: g.Target, Rule: envelopeOf(g.Rule)})
}

// UnmarshalJSON deserializes the bound rule from its tagged form.
func (g *GlobalRule) UnmarshalJSON(data []byte) error {
	var doc globalRuleDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return err
	}
	r, err := DecodeRule(doc.Rule)
	if err != nil {
		return fmt.Errorf("global rule %q: %w", doc.Target, err)
	}
	g.Target = doc.Target
	g.Rule = r
	return nil
}

// MarshalYAML mirrors the JSON document form.
func (g GlobalRule) MarshalYAML() (any, error) {
	if g.Rule == nil {
		return nil, fmt.Errorf("global rule %q: nil rule", g.Target)
	}
	return globalRuleDoc{Target: g.Target, Rule: envelopeOf(g.Rule)}, nil
}

// UnmarshalYAML mirrors the JSON document form.
func (g *GlobalRule) UnmarshalYAML(node *yaml.Node) error {
	var doc globalRuleDoc
	if err := node.Decode(&doc); err != nil {
		return err
	}
	r, err := DecodeRule(doc.Rule)
	if err != nil {
		return fmt.Errorf("global rule %q: %w", doc.Target, err)
	}
	g.Target = doc.Target
	g.Rule = r
	return nil
}

// ParseJSON decodes and structurally validates a JSON schema document.
func ParseJSON(data []byte) (*Schema, error) {
	var s Schema
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("schema: decode json: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// ParseYAML decodes and structurally validates a YAML schema document.
func ParseYAML(data []byte) (*Schema, error) {
	var s Schema
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("schema: decode yaml: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}
