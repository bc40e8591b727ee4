package merge

import (
	"github.com/tobiasrohr/FInal-merger/pkg/mapping"
	"github.com/tobiasrohr/FInal-merger/pkg/records"
)

// Action is the verdict for one source record.
type Action string

// Verdict actions.
const (
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionSkip   Action = "skip"
)

// FieldOutcome describes what happened to one mapped field.
type FieldOutcome string

// Field outcomes.
const (
	// FieldSet means the field is part of the patch or create payload.
	FieldSet FieldOutcome = "set"
	// FieldUnchanged means the target already holds the resulting value.
	FieldUnchanged FieldOutcome = "unchanged"
	// FieldKept means only_if_empty left a non-empty target alone.
	FieldKept FieldOutcome = "kept"
	// FieldSkipped means the mapping uses the skip strategy.
	FieldSkipped FieldOutcome = "skipped"
	// FieldNoValue means the source had nothing to write.
	FieldNoValue FieldOutcome = "no_value"
	// FieldExcluded means the transform or option resolution failed.
	FieldExcluded FieldOutcome = "excluded"
)

// FieldDecision records the decision taken for one mapping.
type FieldDecision struct {
	Source   records.FieldID  `json:"source,omitempty"`
	Target   records.FieldID  `json:"target"`
	Strategy mapping.Strategy `json:"strategy"`
	Outcome  FieldOutcome     `json:"outcome"`
	Value    string           `json:"value,omitempty"`
	Previous string           `json:"previous,omitempty"`
	Reason   string           `json:"reason,omitempty"`
}

// Verdict is the merge engine's answer for one source record.
type Verdict struct {
	Action Action
	// Name is the item name used when creating.
	Name      string
	Patch     records.Patch
	Decisions []FieldDecision
	Reason    string
}

// Reasons attached to skip verdicts.
const (
	ReasonAlreadyCorrect = "already correct"
	ReasonNothingToWrite = "no mapped values"
)

// Excluded returns the decisions whose field was dropped because of a
// transform or resolution failure.
func (v Verdict) Excluded() []FieldDecision {
	var out []FieldDecision
	for _, d := range v.Decisions {
		if d.Outcome == FieldExcluded {
			out = append(out, d)
		}
	}
	return out
}
