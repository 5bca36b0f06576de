package runtime

import (
	"fmt"
	"log/slog"
	"regexp"
	"sort"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/ast"
	"github.com/expr-lang/expr/vm"

	"github.com/aretw0/lattice/internal/logging"
	"github.com/aretw0/lattice/pkg/domain"
	"github.com/aretw0/lattice/pkg/ports"
	"github.com/aretw0/lattice/pkg/schema"
)

// RemotePolicy decides how unsettled remote checks affect the submit verdict.
type RemotePolicy int

const (
	// RemoteBlocks treats pending remote checks as not-yet-valid: IsValid
	// stays false until every check settles. This is the default.
	RemoteBlocks RemotePolicy = iota
	// RemoteAllows lets a form pass with checks still pending; callers that
	// tolerate eventual rejection opt into it.
	RemoteAllows
)

// valueIdentifier is the name the field's own value is bound to inside
// expression rules. It never contributes a graph edge.
const valueIdentifier = "value"

// compiledRule pairs a rule with whatever was pre-compiled for it at build
// time, so evaluation never re-parses patterns or expressions.
type compiledRule struct {
	rule schema.Rule
	re   *regexp.Regexp
	prog *vm.Program
}

// compiledField is a field with its effective rule list: the field's own
// rules first, then schema-level rules targeting it, in declaration order.
type compiledField struct {
	field schema.Field
	rules []compiledRule
}

// Engine evaluates snapshots against a single schema. It is immutable after
// construction, so a single Engine is safe for concurrent use: form
// instances sharing it share no mutable state.
type Engine struct {
	schema *schema.Schema
	graph  *Graph

	fields []compiledField
	index  map[string]int

	checker ports.RemoteRuleChecker
	policy  RemotePolicy
	logger  *slog.Logger
	hooks   domain.LifecycleHooks
}

// Option adjusts engine construction.
type Option func(*Engine)

// WithChecker wires the backend used by remote rules. Without one, every
// remote rule resolves to unknown and lands in the pending set.
func WithChecker(c ports.RemoteRuleChecker) Option {
	return func(e *Engine) { e.checker = c }
}

// WithRemotePolicy overrides how pending remote checks gate the verdict.
func WithRemotePolicy(p RemotePolicy) Option {
	return func(e *Engine) { e.policy = p }
}

// WithLogger sets the engine logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithHooks registers lifecycle observers, e.g. a metrics recorder.
func WithHooks(h domain.LifecycleHooks) Option {
	return func(e *Engine) { e.hooks = h }
}

// NewEngine validates the schema, compiles its patterns and expressions, and
// derives the dependency graph. A schema that fails any structural check is
// rejected here, never at evaluation time.
func NewEngine(s *schema.Schema, opts ...Option) (*Engine, error) {
	if s == nil {
		return nil, fmt.Errorf("runtime: nil schema")
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}

	e := &Engine{
		schema: s,
		index:  map[string]int{},
		policy: RemoteBlocks,
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}

	globals := map[string][]schema.Rule{}
	for _, gr := range s.Rules {
		globals[gr.Target] = append(globals[gr.Target], gr.Rule)
	}

	exprDeps := map[string][]string{}
	for _, f := range s.Fields() {
		cf := compiledField{field: f}
		all := append(append([]schema.Rule{}, f.Rules...), globals[f.ID]...)
		for _, r := range all {
			cr := compiledRule{rule: r}
			switch v := r.(type) {
			case schema.PatternRule:
				re, err := regexp.Compile(v.Pattern)
				if err != nil {
					return nil, &schema.SchemaError{
						Kind:    schema.ErrInvalidRule,
						FieldID: f.ID,
						Detail:  fmt.Sprintf("pattern %q: %v", v.Pattern, err),
					}
				}
				cr.re = re
			case schema.ExprRule:
				prog, err := expr.Compile(v.Expr, expr.AllowUndefinedVariables(), expr.AsBool())
				if err != nil {
					return nil, &schema.SchemaError{
						Kind:    schema.ErrInvalidRule,
						FieldID: f.ID,
						Detail:  fmt.Sprintf("expression %q: %v", v.Expr, err),
					}
				}
				cr.prog = prog
				exprDeps[f.ID] = append(exprDeps[f.ID], exprIdentifiers(prog)...)
			}
			cf.rules = append(cf.rules, cr)
		}
		e.index[f.ID] = len(e.fields)
		e.fields = append(e.fields, cf)
	}

	g, err := buildGraph(s, exprDeps)
	if err != nil {
		return nil, err
	}
	e.graph = g

	e.logger.Debug("engine built",
		"schema", s.ID,
		"fields", len(e.fields),
		"logic_rules", len(s.Logic))
	return e, nil
}

// Schema returns the schema this engine was built for.
func (e *Engine) Schema() *schema.Schema { return e.schema }

// Graph exposes the derived dependency graph.
func (e *Engine) Graph() *Graph { return e.graph }

// Dependents returns the fields to re-evaluate when fieldID changes,
// excluding fieldID itself.
func (e *Engine) Dependents(fieldID string) []string {
	return e.graph.Dependents(fieldID)
}

// exprIdentifiers walks a compiled program's AST and collects the variable
// names it reads, minus the bound value identifier. Sorted and deduplicated.
func exprIdentifiers(prog *vm.Program) []string {
	c := &identCollector{seen: map[string]bool{}}
	tree := prog.Node()
	ast.Walk(&tree, c)
	sort.Strings(c.names)
	return c.names
}

type identCollector struct {
	seen  map[string]bool
	names []string
}

func (c *identCollector) Visit(node *ast.Node) {
	id, ok := (*node).(*ast.IdentifierNode)
	if !ok {
		return
	}
	if id.Value == valueIdentifier || c.seen[id.Value] {
		return
	}
	c.seen[id.Value] = true
	c.names = append(c.names, id.Value)
}
