// Package merge decides, per source record, whether to create a target
// record, patch an existing one or leave it alone. Decisions are taken
// field by field according to each mapping's strategy and never depend on
// another mapping's outcome.
package merge

import (
	"github.com/tobiasrohr/FInal-merger/pkg/errors"
	"github.com/tobiasrohr/FInal-merger/pkg/mapping"
	"github.com/tobiasrohr/FInal-merger/pkg/records"
)

// Engine computes verdicts.
type Engine interface {
	// Decide returns the verdict for source against target, which is nil
	// when the source has no match.
	Decide(source records.Record, target *records.Record, mappings []mapping.Mapping) Verdict
}

type engine struct {
	transforms *mapping.Registry
	optionSet  OptionSet
}

// New creates a merge engine.
func New(opts ...Option) (Engine, error) {
	o, err := defaultOptions().apply(opts...)
	if err != nil {
		return nil, err
	}
	return &engine{transforms: o.transforms, optionSet: o.optionSet}, nil
}

// Decide implements Engine.
func (e *engine) Decide(source records.Record, target *records.Record, mappings []mapping.Mapping) Verdict {
	v := Verdict{Name: source.Name, Patch: records.Patch{}}

	for _, m := range mappings {
		d := FieldDecision{Source: m.Source, Target: m.Target, Strategy: m.Strategy}

		if m.Strategy == mapping.Skip {
			d.Outcome = FieldSkipped
			v.Decisions = append(v.Decisions, d)
			continue
		}

		value, err := e.value(source, m)
		if err != nil {
			d.Outcome = FieldExcluded
			d.Reason = err.Error()
			v.Decisions = append(v.Decisions, d)
			continue
		}
		d.Value = value.Text

		if target == nil {
			if value.IsEmpty() {
				d.Outcome = FieldNoValue
			} else {
				d.Outcome = FieldSet
				v.Patch[m.Target] = value
			}
			v.Decisions = append(v.Decisions, d)
			continue
		}

		current, _ := target.Get(m.Target)
		d.Previous = current.Text
		d.Outcome = decideField(m.Strategy, current, value)
		if d.Outcome == FieldSet {
			v.Patch[m.Target] = value
		}
		v.Decisions = append(v.Decisions, d)
	}

	switch {
	case target == nil:
		v.Action = ActionCreate
	case len(v.Patch) > 0:
		v.Action = ActionUpdate
	default:
		v.Action = ActionSkip
		v.Reason = ReasonAlreadyCorrect
	}
	return v
}

// decideField applies a strategy to one existing target field. A field is
// only set when the result differs from what the target already holds.
func decideField(strategy mapping.Strategy, current, value records.Value) FieldOutcome {
	switch strategy {
	case mapping.Overwrite:
		if value.Equal(current) {
			return FieldUnchanged
		}
		return FieldSet
	default:
		if !current.IsEmpty() {
			return FieldKept
		}
		if value.IsEmpty() {
			return FieldNoValue
		}
		return FieldSet
	}
}

// value computes the transformed and, where requested, option-resolved
// value of a mapping.
func (e *engine) value(source records.Record, m mapping.Mapping) (records.Value, error) {
	value, err := e.transforms.Apply(source, m)
	if err != nil {
		return records.Value{}, err
	}
	if m.ResolveOptions && !value.IsEmpty() {
		resolved, err := e.optionSet.resolve(m.Target, value)
		if err != nil {
			if errors.Is(err, mapping.ErrNoValue) {
				return records.Value{}, nil
			}
			return records.Value{}, err
		}
		return resolved, nil
	}
	return value, nil
}
