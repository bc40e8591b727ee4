package executor

import (
	"github.com/tobiasrohr/FInal-merger/pkg/errors"
	"github.com/tobiasrohr/FInal-merger/pkg/mapping"
	"github.com/tobiasrohr/FInal-merger/pkg/retry"
	"github.com/tobiasrohr/FInal-merger/pkg/runlog"
)

type options struct {
	gate       *retry.Gate
	recorder   Recorder
	transforms *mapping.Registry
	runID      string
}

func defaultOptions() *options {
	return &options{
		gate:       &retry.Gate{},
		recorder:   nopRecorder{},
		transforms: mapping.NewRegistry(),
		runID:      runlog.NewRunID(),
	}
}

// Option configures an Executor.
type Option func(*options) error

func (o *options) apply(opts ...Option) (*options, error) {
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, err
		}
	}
	return o, nil
}

// WithGate shares a cooldown gate, normally the one the API client uses.
func WithGate(g *retry.Gate) Option {
	return func(o *options) error {
		if g == nil {
			return &errors.ValidationError{Field: "gate", Message: "cannot be nil"}
		}
		o.gate = g
		return nil
	}
}

// WithRecorder sets the progress recorder.
func WithRecorder(r Recorder) Option {
	return func(o *options) error {
		if r == nil {
			return &errors.ValidationError{Field: "recorder", Message: "cannot be nil"}
		}
		o.recorder = r
		return nil
	}
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

// WithRunID fixes the run ID instead of generating one.
func WithRunID(id string) Option {
	return func(o *options) error {
		if id == "" {
			return &errors.ValidationError{Field: "run_id", Message: "cannot be empty"}
		}
		o.runID = id
		return nil
	}
}
