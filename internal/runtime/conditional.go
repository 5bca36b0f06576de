package runtime

import (
	"github.com/aretw0/lattice/pkg/domain"
	"github.com/aretw0/lattice/pkg/schema"
)

// ConditionalState computes visibility, enablement and overrides for every
// section and field from a full read of the snapshot. Sections evaluate in
// their declared order, fields within them likewise, then logic rules apply
// in declaration order so later rules win on the same target.
//
// An expression fault never aborts the pass: the affected target is hidden
// and disabled, and the fault is reported alongside the state.
func (e *Engine) ConditionalState(data domain.Snapshot) domain.ConditionalState {
	state := domain.ConditionalState{
		Fields:   map[string]domain.ConditionalResult{},
		Sections: map[string]bool{},
		Faults:   map[string]string{},
	}

	for _, sec := range e.schema.SortedSections() {
		secVisible, err := evalCondition(sec.Visible, data, 1)
		if err != nil {
			secVisible = false
			state.Faults[sec.ID] = err.Error()
			e.logger.Warn("section visibility failed closed", "section", sec.ID, "error", err)
		}
		state.Sections[sec.ID] = secVisible

		for _, f := range sec.Fields {
			res := domain.ConditionalResult{
				Visible:        true,
				SectionVisible: secVisible,
				Enabled:        true,
			}
			visible, err := evalCondition(f.Visible, data, 1)
			if err != nil {
				state.Faults[f.ID] = err.Error()
				res.Visible = false
				res.Enabled = false
				e.logger.Warn("field visibility failed closed", "field", f.ID, "error", err)
			} else {
				res.Visible = visible
			}
			state.Fields[f.ID] = res
		}
	}

	for _, lr := range e.schema.Logic {
		res, ok := state.Fields[lr.Target]
		if !ok {
			continue
		}
		matched, err := evalCondition(lr.When, data, 1)
		if err != nil {
			state.Faults[lr.Target] = err.Error()
			res.Visible = false
			res.Enabled = false
			state.Fields[lr.Target] = res
			e.logger.Warn("logic rule failed closed", "rule", lr.ID, "target", lr.Target, "error", err)
			continue
		}
		if !matched {
			continue
		}

		switch lr.Effect {
		case schema.EffectShow:
			res.Visible = true
		case schema.EffectHide:
			res.Visible = false
		case schema.EffectEnable:
			res.Enabled = true
		case schema.EffectDisable:
			res.Enabled = false
		case schema.EffectSetValue:
			res.HasValueOverride = true
			res.ValueOverride = lr.Value
		case schema.EffectSetOptions:
			res.OptionsOverride = append([]schema.Option(nil), lr.Options...)
		case schema.EffectSetError:
			res.ErrorOverride = schema.AsString(lr.Value)
		}
		state.Fields[lr.Target] = res
	}

	return state
}
