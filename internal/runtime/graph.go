package runtime

import (
	"fmt"
	"sort"

	"github.com/aretw0/lattice/pkg/schema"
)

// Graph maps each field to the set of fields whose change requires it to be
// re-evaluated. It is derived once per schema and cached alongside it; data
// changes never mutate it.
type Graph struct {
	deps  map[string]map[string]bool // field -> fields it reads
	order []string                   // evaluation order (section order, then field order)
	rank  map[string]int
}

// buildGraph derives the dependency graph from a structurally valid schema.
// exprDeps carries the identifiers referenced by compiled expression rules,
// keyed by the field the rule is attached to.
//
// Failure modes mirror load-time schema errors: an expression identifier
// that is not a field ID aborts construction with UnknownFieldReference.
func buildGraph(s *schema.Schema, exprDeps map[string][]string) (*Graph, error) {
	g := &Graph{
		deps: map[string]map[string]bool{},
		rank: map[string]int{},
	}

	ids := map[string]bool{}
	for _, f := range s.Fields() {
		ids[f.ID] = true
		g.deps[f.ID] = map[string]bool{}
		g.rank[f.ID] = len(g.order)
		g.order = append(g.order, f.ID)
	}

	// add records that field depends on each referenced id, excluding the
	// field itself: a field is never its own dependent.
	add := func(field string, refs ...string) error {
		for _, ref := range refs {
			if ref == field {
				continue
			}
			if !ids[ref] {
				return &schema.SchemaError{
					Kind:    schema.ErrUnknownFieldReference,
					FieldID: field,
					Detail:  fmt.Sprintf("dependency on unknown field %q", ref),
				}
			}
			g.deps[field][ref] = true
		}
		return nil
	}

	for _, sec := range s.SortedSections() {
		secRefs := sec.Visible.FieldRefs()
		for _, f := range sec.Fields {
			// Section visibility gates every field it contains.
			if err := add(f.ID, secRefs...); err != nil {
				return nil, err
			}
			if err := add(f.ID, f.Visible.FieldRefs()...); err != nil {
				return nil, err
			}
			if err := add(f.ID, f.DependsOn...); err != nil {
				return nil, err
			}
			for _, r := range f.Rules {
				if cf, ok := r.(schema.CrossFieldRule); ok {
					if err := add(f.ID, cf.Other); err != nil {
						return nil, err
					}
				}
			}
			if err := add(f.ID, exprDeps[f.ID]...); err != nil {
				return nil, err
			}
		}
	}

	for _, gr := range s.Rules {
		if cf, ok := gr.Rule.(schema.CrossFieldRule); ok {
			if err := add(gr.Target, cf.Other); err != nil {
				return nil, err
			}
		}
	}

	for _, lr := range s.Logic {
		if err := add(lr.Target, lr.When.FieldRefs()...); err != nil {
			return nil, err
		}
	}

	return g, nil
}

// DependsOn returns the sorted set of fields the given field reads.
func (g *Graph) DependsOn(fieldID string) []string {
	set := g.deps[fieldID]
	out := make([]string, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Dependents returns every field that must be re-evaluated when the given
// field changes, following reverse edges transitively (an override on a
// direct dependent can cascade further). The changed field itself is never
// included. Order follows the schema evaluation order, so repeated calls
// are deterministic.
func (g *Graph) Dependents(changed string) []string {
	visited := map[string]bool{changed: true}
	queue := []string{changed}
	var out []string

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		for _, id := range g.order {
			if visited[id] {
				continue
			}
			if g.deps[id][current] {
				visited[id] = true
				queue = append(queue, id)
				out = append(out, id)
			}
		}
	}

	sort.Slice(out, func(i, j int) bool { return g.rank[out[i]] < g.rank[out[j]] })
	return out
}

// Fields returns the evaluation order of all fields in the graph.
func (g *Graph) Fields() []string {
	out := make([]string, len(g.order))
	copy(out, g.order)
	return out
}

// Edges flattens the graph into a sorted, comparable form, mainly for
// tests asserting that two builds of the same schema are identical.
func (g *Graph) Edges() map[string][]string {
	out := make(map[string][]string, len(g.deps))
	for id := range g.deps {
		out[id] = g.DependsOn(id)
	}
	return out
}
