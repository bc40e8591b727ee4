package merge

import (
	"encoding/json"
	"strings"

	"github.com/tobiasrohr/FInal-merger/pkg/errors"
	"github.com/tobiasrohr/FInal-merger/pkg/mapping"
	"github.com/tobiasrohr/FInal-merger/pkg/records"
)

// OptionSet resolves dropdown labels to option IDs per target column.
// Labels are matched case-insensitively.
type OptionSet map[records.FieldID]map[string]string

// Add registers the options of one column.
func (s OptionSet) Add(column records.FieldID, options []records.Option) {
	table := make(map[string]string, len(options))
	for _, o := range options {
		table[strings.ToLower(strings.TrimSpace(o.Label))] = o.ID
	}
	s[column] = table
}

// resolve replaces the labels of v by option IDs of column. An unknown
// label fails the whole field.
func (s OptionSet) resolve(column records.FieldID, v records.Value) (records.Value, error) {
	table, ok := s[column]
	if !ok {
		return records.Value{}, errors.NewNotFoundError("option set for column", string(column))
	}

	labels := valueLabels(v)
	ids := make([]string, 0, len(labels))
	for _, label := range labels {
		id, ok := table[strings.ToLower(label)]
		if !ok {
			return records.Value{}, errors.NewValidationError(string(column), label, "unknown option label "+label)
		}
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		return records.Value{}, mapping.ErrNoValue
	}

	raw, err := json.Marshal(map[string][]string{"ids": ids})
	if err != nil {
		return records.Value{}, err
	}
	return records.Value{Text: strings.Join(labels, ", "), Raw: raw, Type: "dropdown"}, nil
}

func valueLabels(v records.Value) []string {
	var payload struct {
		Labels []string `json:"labels"`
	}
	if len(v.Raw) > 0 && json.Unmarshal(v.Raw, &payload) == nil && len(payload.Labels) > 0 {
		return payload.Labels
	}
	var labels []string
	for _, part := range strings.Split(v.Text, ",") {
		if part = strings.TrimSpace(part); part != "" {
			labels = append(labels, part)
		}
	}
	return labels
}

type options struct {
	transforms *mapping.Registry
	optionSet  OptionSet
}

func defaultOptions() *options {
	return &options{
		transforms: mapping.NewRegistry(),
		optionSet:  OptionSet{},
	}
}

// Option configures an Engine.
type Option func(*options) error

func (o *options) apply(opts ...Option) (*options, error) {
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, err
		}
	}
	return o, nil
}

// WithTransforms sets the transform registry.
func WithTransforms(reg *mapping.Registry) Option {
	return func(o *options) error {
		if reg == nil {
			return &errors.ValidationError{Field: "transforms", Message: "cannot be nil"}
		}
		o.transforms = reg
		return nil
	}
}

// WithOptionSet sets the option tables used for label resolution.
func WithOptionSet(set OptionSet) Option {
	return func(o *options) error {
		if set == nil {
			return &errors.ValidationError{Field: "option_set", Message: "cannot be nil"}
		}
		o.optionSet = set
		return nil
	}
}
