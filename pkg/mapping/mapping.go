// Package mapping declares how source columns are carried over to target
// columns: which field feeds which, under what merge strategy, and through
// which value transform.
package mapping

import (
	"fmt"
	"strings"

	"github.com/tobiasrohr/FInal-merger/pkg/errors"
	"github.com/tobiasrohr/FInal-merger/pkg/index"
	"github.com/tobiasrohr/FInal-merger/pkg/records"
)

// Strategy governs whether and when a target field may be written.
type Strategy string

// Merge strategies.
const (
	// OnlyIfEmpty fills a target field only while it is empty.
	OnlyIfEmpty Strategy = "only_if_empty"
	// Overwrite always writes the source value, including empty values.
	Overwrite Strategy = "overwrite"
	// Skip never touches the target field.
	Skip Strategy = "skip"
)

// ParseStrategy validates a strategy name. The empty string selects
// OnlyIfEmpty.
func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(strings.ToLower(strings.TrimSpace(s))) {
	case "", OnlyIfEmpty:
		return OnlyIfEmpty, nil
	case Overwrite:
		return Overwrite, nil
	case Skip:
		return Skip, nil
	}
	return "", errors.NewValidationError("strategy", s, "must be one of only_if_empty, overwrite, skip")
}

// Mapping carries one source field to one target field.
type Mapping struct {
	Source    records.FieldID `json:"source" yaml:"source" toml:"source"`
	Target    records.FieldID `json:"target" yaml:"target" toml:"target"`
	Strategy  Strategy        `json:"strategy,omitempty" yaml:"strategy,omitempty" toml:"strategy"`
	Transform string          `json:"transform,omitempty" yaml:"transform,omitempty" toml:"transform"`

	// Params feed transforms that read more than one column.
	Params map[string]string `json:"params,omitempty" yaml:"params,omitempty" toml:"params"`

	// Values translates source labels for the map_values transform.
	Values map[string]string `json:"values,omitempty" yaml:"values,omitempty" toml:"values"`

	// ResolveOptions marks a dropdown or status target whose labels must be
	// replaced by the board's option IDs.
	ResolveOptions bool `json:"resolve_options,omitempty" yaml:"resolve_options,omitempty" toml:"resolve_options"`

	Description string `json:"description,omitempty" yaml:"description,omitempty" toml:"description"`
}

// String renders the mapping for logs.
func (m Mapping) String() string {
	s := fmt.Sprintf("%s->%s (%s)", m.Source, m.Target, m.Strategy)
	if m.Transform != "" {
		s += " via " + m.Transform
	}
	return s
}

// FollowUp configures bookkeeping on the source board once an item has
// been merged: moving it into a group and linking it to its target item.
type FollowUp struct {
	// DuplicateGroup receives source items that matched an existing target.
	DuplicateGroup string `json:"duplicate_group,omitempty" yaml:"duplicate_group,omitempty" toml:"duplicate_group"`

	// NewGroup receives source items that were copied as new targets.
	NewGroup string `json:"new_group,omitempty" yaml:"new_group,omitempty" toml:"new_group"`

	// LinkColumn is a board relation column on the source board that is
	// pointed at the target item.
	LinkColumn records.FieldID `json:"link_column,omitempty" yaml:"link_column,omitempty" toml:"link_column"`
}

// Enabled reports whether any bookkeeping is configured.
func (f FollowUp) Enabled() bool {
	return f.DuplicateGroup != "" || f.NewGroup != "" || f.LinkColumn != ""
}

// Spec is a complete mapping file.
type Spec struct {
	SourceBoard string       `json:"source_board,omitempty" yaml:"source_board,omitempty" toml:"source_board"`
	TargetBoard string       `json:"target_board,omitempty" yaml:"target_board,omitempty" toml:"target_board"`
	Identity    index.Config `json:"identity" yaml:"identity" toml:"identity"`
	FollowUp    FollowUp     `json:"follow_up,omitempty" yaml:"follow_up,omitempty" toml:"follow_up"`
	Mappings    []Mapping    `json:"mappings" yaml:"mappings" toml:"mappings"`
}

// Normalize fills defaults in place: the empty strategy becomes
// OnlyIfEmpty.
func (s *Spec) Normalize() error {
	for i := range s.Mappings {
		strategy, err := ParseStrategy(string(s.Mappings[i].Strategy))
		if err != nil {
			return fmt.Errorf("mapping %d: %w", i, err)
		}
		s.Mappings[i].Strategy = strategy
	}
	return nil
}

// Validate rejects specs that cannot be executed. Two mappings writing the
// same target field are rejected because mappings must stay independent.
func (s *Spec) Validate(transforms *Registry) error {
	if len(s.Mappings) == 0 {
		return errors.NewValidationError("mappings", nil, "at least one mapping is required")
	}
	seen := make(map[records.FieldID]int, len(s.Mappings))
	for i, m := range s.Mappings {
		if m.Target == "" {
			return errors.NewValidationError(fmt.Sprintf("mappings[%d].target", i), nil, "target field is required")
		}
		if m.Source == "" && m.Transform == "" {
			return errors.NewValidationError(fmt.Sprintf("mappings[%d].source", i), nil, "source field is required without a transform")
		}
		if _, err := ParseStrategy(string(m.Strategy)); err != nil {
			return err
		}
		if m.Transform != "" && !transforms.Has(m.Transform) {
			return errors.NewValidationError(fmt.Sprintf("mappings[%d].transform", i), m.Transform, "unknown transform")
		}
		if prev, dup := seen[m.Target]; dup {
			return errors.NewValidationError("target", m.Target,
				fmt.Sprintf("mapped by both mappings[%d] and mappings[%d]", prev, i))
		}
		seen[m.Target] = i
	}
	return nil
}

// OptionTargets lists target fields whose labels need option resolution.
func (s *Spec) OptionTargets() []records.FieldID {
	var out []records.FieldID
	for _, m := range s.Mappings {
		if m.ResolveOptions && m.Strategy != Skip {
			out = append(out, m.Target)
		}
	}
	return out
}
