package schema

import "sort"

// Comparator enumerates the leaf operators a condition may use.
type Comparator string

const (
	CmpEq       Comparator = "eq"
	CmpNe       Comparator = "ne"
	CmpGt       Comparator = "gt"
	CmpGte      Comparator = "gte"
	CmpLt       Comparator = "lt"
	CmpLte      Comparator = "lte"
	CmpIn       Comparator = "in"
	CmpNotIn    Comparator = "nin"
	CmpEmpty    Comparator = "empty"
	CmpNotEmpty Comparator = "notempty"
	CmpContains Comparator = "contains"
)

var comparators = map[Comparator]bool{
	CmpEq: true, CmpNe: true, CmpGt: true, CmpGte: true,
	CmpLt: true, CmpLte: true, CmpIn: true, CmpNotIn: true,
	CmpEmpty: true, CmpNotEmpty: true, CmpContains: true,
}

// Known reports whether c is a recognized comparator.
func (c Comparator) Known() bool { return comparators[c] }

// MaxConditionDepth caps the nesting of condition trees. Deeper trees are
// rejected at load time and again at evaluation time.
const MaxConditionDepth = 64

// Condition is a tagged tree node. Exactly one arm must be populated:
// All (conjunction), Any (disjunction), Not (negation), or a leaf
// comparison (Field + Cmp, with Value for binary comparators).
type Condition struct {
	All []*Condition `json:"all,omitempty" yaml:"all,omitempty"`
	Any []*Condition `json:"any,omitempty" yaml:"any,omitempty"`
	Not *Condition   `json:"not,omitempty" yaml:"not,omitempty"`

	Field string     `json:"field,omitempty" yaml:"field,omitempty"`
	Cmp   Comparator `json:"cmp,omitempty" yaml:"cmp,omitempty"`
	Value any        `json:"value,omitempty" yaml:"value,omitempty"`
}

// IsLeaf reports whether the node is a field comparison.
func (c *Condition) IsLeaf() bool {
	return len(c.All) == 0 && len(c.Any) == 0 && c.Not == nil
}

// FieldRefs returns the deduplicated, sorted set of field IDs the condition
// reads. A nil condition references nothing.
func (c *Condition) FieldRefs() []string {
	seen := map[string]bool{}
	c.collectRefs(seen)
	out := make([]string, 0, len(seen))
	for id := range seen {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

func (c *Condition) collectRefs(seen map[string]bool) {
	if c == nil {
		return
	}
	if c.Field != "" {
		seen[c.Field] = true
	}
	for _, child := range c.All {
		child.collectRefs(seen)
	}
	for _, child := range c.Any {
		child.collectRefs(seen)
	}
	c.Not.collectRefs(seen)
}

// check validates the structural shape of the tree: one arm per node,
// known comparators, and bounded depth.
func (c *Condition) check(depth int) error {
	if c == nil {
		return nil
	}
	if depth > MaxConditionDepth {
		return &ExpressionError{Reason: "condition tree exceeds maximum depth"}
	}

	arms := 0
	if len(c.All) > 0 {
		arms++
	}
	if len(c.Any) > 0 {
		arms++
	}
	if c.Not != nil {
		arms++
	}
	if c.Field != "" || c.Cmp != "" {
		arms++
	}
	if arms != 1 {
		return &ExpressionError{Reason: "condition node must have exactly one of all/any/not/comparison"}
	}

	if c.IsLeaf() {
		if c.Field == "" {
			return &ExpressionError{Reason: "comparison is missing a field reference"}
		}
		if !c.Cmp.Known() {
			return &ExpressionError{Reason: "unknown comparator " + string(c.Cmp)}
		}
		return nil
	}

	for _, child := range c.All {
		if err := child.check(depth + 1); err != nil {
			return err
		}
	}
	for _, child := range c.Any {
		if err := child.check(depth + 1); err != nil {
			return err
		}
	}
	if c.Not != nil {
		return c.Not.check(depth + 1)
	}
	return nil
}
