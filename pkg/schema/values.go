package schema

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"
)

// richTextPolicy allows the markup a richtext field may carry. Values that
// do not survive sanitization unchanged are rejected.
var richTextPolicy = bluemonday.UGCPolicy()

var colorPattern = regexp.MustCompile(`^#(?:[0-9a-fA-F]{3}|[0-9a-fA-F]{6}|[0-9a-fA-F]{8})$`)

// IsEmpty reports whether a snapshot value counts as empty/undefined.
// Missing keys, nil, blank strings, and zero-length lists or maps are empty.
// Numbers and booleans are never empty, including zero and false.
func IsEmpty(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(t) == ""
	case []any:
		return len(t) == 0
	case []string:
		return len(t) == 0
	case map[string]any:
		return len(t) == 0
	default:
		return false
	}
}

// AsNumber coerces a value to float64. Strings are parsed; booleans and
// composites do not coerce.
func AsNumber(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case float32:
		return float64(t), true
	case int:
		return float64(t), true
	case int32:
		return float64(t), true
	case int64:
		return float64(t), true
	case uint:
		return float64(t), true
	case uint64:
		return float64(t), true
	case json.Number:
		f, err := t.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		return f, err == nil
	default:
		return 0, false
	}
}

// AsString renders a value for comparison and display purposes.
func AsString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case []byte:
		return string(t)
	default:
		return fmt.Sprint(v)
	}
}

// AsList coerces a value to a slice of items.
func AsList(v any) ([]any, bool) {
	switch t := v.(type) {
	case []any:
		return t, true
	case []string:
		out := make([]any, len(t))
		for i, s := range t {
			out[i] = s
		}
		return out, true
	default:
		return nil, false
	}
}

// CheckValue verifies that a non-empty value structurally fits the field
// type. It is a shape check, not a business rule: empty values pass here
// and are handled by required rules.
func (f Field) CheckValue(v any) error {
	if IsEmpty(v) {
		return nil
	}

	switch f.Type {
	case FieldText, FieldFile:
		if _, ok := v.(string); !ok {
			return fmt.Errorf("expected string, got %T", v)
		}
	case FieldNumber, FieldSlider, FieldRating:
		if _, ok := AsNumber(v); !ok {
			return fmt.Errorf("expected number, got %T", v)
		}
	case FieldDateTime:
		s, ok := v.(string)
		if !ok {
			return fmt.Errorf("expected date/time string, got %T", v)
		}
		if !parseableTime(s) {
			return fmt.Errorf("not a recognized date/time: %q", s)
		}
	case FieldCheckbox:
		switch v.(type) {
		case bool, string:
		default:
			return fmt.Errorf("expected boolean, got %T", v)
		}
	case FieldMultiSelect, FieldCheckboxGroup, FieldArray:
		if _, ok := AsList(v); !ok {
			return fmt.Errorf("expected list, got %T", v)
		}
	case FieldColor:
		s, ok := v.(string)
		if !ok || !colorPattern.MatchString(s) {
			return fmt.Errorf("expected hex color like #rrggbb")
		}
	case FieldRichText:
		s, ok := v.(string)
		if !ok {
			return fmt.Errorf("expected markup string, got %T", v)
		}
		if richTextPolicy.Sanitize(s) != s {
			return fmt.Errorf("contains disallowed markup")
		}
	case FieldJSON:
		switch t := v.(type) {
		case string:
			if !json.Valid([]byte(t)) {
				return fmt.Errorf("not valid JSON")
			}
		case map[string]any, []any:
			// already structured
		default:
			return fmt.Errorf("expected JSON document, got %T", v)
		}
	case FieldSelect, FieldRadio:
		// Any scalar is acceptable; option membership is a rule concern.
	}

	return f.checkOptions(v)
}

// checkOptions enforces static option membership for select-like fields
// that do not allow custom values.
func (f Field) checkOptions(v any) error {
	if f.Options == nil || f.Options.AllowCustom || len(f.Options.Static) == 0 {
		return nil
	}

	switch f.Type {
	case FieldSelect, FieldRadio:
		if !optionMember(f.Options.Static, v) {
			return fmt.Errorf("value %v is not among the declared options", v)
		}
	case FieldMultiSelect, FieldCheckboxGroup:
		items, ok := AsList(v)
		if !ok {
			return nil
		}
		for _, item := range items {
			if !optionMember(f.Options.Static, item) {
				return fmt.Errorf("value %v is not among the declared options", item)
			}
		}
	}
	return nil
}

func optionMember(opts []Option, v any) bool {
	for _, opt := range opts {
		if AsString(opt.Value) == AsString(v) {
			return true
		}
	}
	return false
}

func parseableTime(s string) bool {
	for _, layout := range []string{time.RFC3339, "2006-01-02", "15:04", "15:04:05"} {
		if _, err := time.Parse(layout, s); err == nil {
			return true
		}
	}
	return false
}
