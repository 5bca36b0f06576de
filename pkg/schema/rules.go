package schema

// Trigger declares the earliest event at which a rule is allowed to fire.
type Trigger string

const (
	TriggerChange Trigger = "change"
	TriggerBlur   Trigger = "blur"
	TriggerSubmit Trigger = "submit"
)

var triggerRank = map[Trigger]int{
	TriggerChange: 0,
	TriggerBlur:   1,
	TriggerSubmit: 2,
}

// FiresOn reports whether a rule with this policy runs for the given
// invocation. Change rules fire everywhere, blur rules fire on blur and
// submit, and submit rules fire only on submit.
func (t Trigger) FiresOn(invocation Trigger) bool {
	return triggerRank[invocation] >= triggerRank[t.orChange()]
}

// Known reports whether t is a recognized trigger.
func (t Trigger) Known() bool {
	_, ok := triggerRank[t]
	return ok
}

func (t Trigger) orChange() Trigger {
	if t == "" {
		return TriggerChange
	}
	return t
}

// RuleKind tags the closed set of validation rule variants.
type RuleKind string

const (
	RuleRequired   RuleKind = "required"
	RulePattern    RuleKind = "pattern"
	RuleRange      RuleKind = "range"
	RuleLength     RuleKind = "length"
	RuleExpr       RuleKind = "expr"
	RuleCrossField RuleKind = "crossfield"
	RuleRemote     RuleKind = "remote"
)

// Rule is the contract every validation rule variant implements. The set of
// implementations is closed; the engine type-switches over it without any
// runtime shape probing.
type Rule interface {
	// Kind identifies the variant.
	Kind() RuleKind
	// When returns the trigger policy (defaulting to on-change).
	When() Trigger
	// ErrorMessage returns the caller-supplied message, or "" for the
	// variant default.
	ErrorMessage() string
}

// RequiredRule fails when the field value is empty.
type RequiredRule struct {
	On      Trigger `json:"trigger,omitempty" mapstructure:"trigger"`
	Message string  `json:"message,omitempty" mapstructure:"message"`
}

func (r RequiredRule) Kind() RuleKind       { return RuleRequired }
func (r RequiredRule) When() Trigger        { return r.On.orChange() }
func (r RequiredRule) ErrorMessage() string { return r.Message }

// PatternRule fails when the string form of the value does not match the
// anchored regular expression.
type PatternRule struct {
	On      Trigger `json:"trigger,omitempty" mapstructure:"trigger"`
	Message string  `json:"message,omitempty" mapstructure:"message"`
	Pattern string  `json:"pattern" mapstructure:"pattern"`
}

func (r PatternRule) Kind() RuleKind       { return RulePattern }
func (r PatternRule) When() Trigger        { return r.On.orChange() }
func (r PatternRule) ErrorMessage() string { return r.Message }

// RangeRule bounds a numeric value. Nil bounds are open.
type RangeRule struct {
	On      Trigger  `json:"trigger,omitempty" mapstructure:"trigger"`
	Message string   `json:"message,omitempty" mapstructure:"message"`
	Min     *float64 `json:"min,omitempty" mapstructure:"min"`
	Max     *float64 `json:"max,omitempty" mapstructure:"max"`
}

func (r RangeRule) Kind() RuleKind       { return RuleRange }
func (r RangeRule) When() Trigger        { return r.On.orChange() }
func (r RangeRule) ErrorMessage() string { return r.Message }

// LengthRule bounds the length of a string or the element count of a list.
type LengthRule struct {
	On      Trigger `json:"trigger,omitempty" mapstructure:"trigger"`
	Message string  `json:"message,omitempty" mapstructure:"message"`
	Min     *int    `json:"min,omitempty" mapstructure:"min"`
	Max     *int    `json:"max,omitempty" mapstructure:"max"`
}

func (r LengthRule) Kind() RuleKind       { return RuleLength }
func (r LengthRule) When() Trigger        { return r.On.orChange() }
func (r LengthRule) ErrorMessage() string { return r.Message }

// ExprRule evaluates a compiled expression against the data snapshot.
// The environment exposes every field value by ID plus "value" for the
// field under validation. The expression must yield a boolean.
type ExprRule struct {
	On      Trigger `json:"trigger,omitempty" mapstructure:"trigger"`
	Message string  `json:"message,omitempty" mapstructure:"message"`
	Expr    string  `json:"expr" mapstructure:"expr"`
}

func (r ExprRule) Kind() RuleKind       { return RuleExpr }
func (r ExprRule) When() Trigger        { return r.On.orChange() }
func (r ExprRule) ErrorMessage() string { return r.Message }

// CrossFieldRule compares the field value with another field's value from
// the same snapshot. Failures attach to the field the rule is declared on
// (or the GlobalRule target), never to the field it reads.
type CrossFieldRule struct {
	On       Trigger    `json:"trigger,omitempty" mapstructure:"trigger"`
	Message  string     `json:"message,omitempty" mapstructure:"message"`
	Operator Comparator `json:"operator" mapstructure:"operator"`
	Other    string     `json:"other" mapstructure:"other"`
}

func (r CrossFieldRule) Kind() RuleKind       { return RuleCrossField }
func (r CrossFieldRule) When() Trigger        { return r.On.orChange() }
func (r CrossFieldRule) ErrorMessage() string { return r.Message }

// RemoteRule delegates to an external checker (for example a uniqueness
// lookup). Its outcome settles asynchronously; an unavailable checker
// degrades to an unknown outcome instead of silently passing.
type RemoteRule struct {
	On      Trigger `json:"trigger,omitempty" mapstructure:"trigger"`
	Message string  `json:"message,omitempty" mapstructure:"message"`
	Check   string  `json:"check" mapstructure:"check"`
}

func (r RemoteRule) Kind() RuleKind       { return RuleRemote }
func (r RemoteRule) When() Trigger        { return r.On.orChange() }
func (r RemoteRule) ErrorMessage() string { return r.Message }
