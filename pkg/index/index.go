// Package index builds a read-only lookup structure over the target board
// so that source items can be matched to existing target items along
// several identity dimensions.
//
// Matching is a logical OR across dimensions, evaluated in a fixed priority
// order. Keys shared by several target items are kept as sets so that
// ambiguous matches surface instead of being resolved arbitrarily.
package index

import (
	"sort"

	"github.com/tobiasrohr/FInal-merger/pkg/normalize"
	"github.com/tobiasrohr/FInal-merger/pkg/records"
)

// Dimension names one identity basis.
type Dimension string

// Identity dimensions in lookup priority order.
const (
	DimensionEmail     Dimension = "email"
	DimensionReference Dimension = "reference"
	DimensionComposite Dimension = "composite"
	DimensionName      Dimension = "name"
)

// Priority is the order in which primary dimensions are consulted. The name
// dimension is a fallback outside this order.
var Priority = []Dimension{DimensionEmail, DimensionReference, DimensionComposite}

// Config selects the identity columns. Empty column IDs disable a
// dimension; the name fallback is opt-in.
type Config struct {
	EmailColumn     records.FieldID `json:"email_column,omitempty" yaml:"email_column,omitempty" toml:"email_column"`
	ReferenceColumn records.FieldID `json:"reference_column,omitempty" yaml:"reference_column,omitempty" toml:"reference_column"`
	CompositeColumn records.FieldID `json:"composite_column,omitempty" yaml:"composite_column,omitempty" toml:"composite_column"`
	NameFallback    bool            `json:"name_fallback,omitempty" yaml:"name_fallback,omitempty" toml:"name_fallback"`
}

// Enabled returns the configured primary dimensions in priority order.
func (c Config) Enabled() []Dimension {
	var dims []Dimension
	if c.EmailColumn != "" {
		dims = append(dims, DimensionEmail)
	}
	if c.ReferenceColumn != "" {
		dims = append(dims, DimensionReference)
	}
	if c.CompositeColumn != "" {
		dims = append(dims, DimensionComposite)
	}
	return dims
}

// Columns returns the configured identity columns.
func (c Config) Columns() []records.FieldID {
	var cols []records.FieldID
	for _, id := range []records.FieldID{c.EmailColumn, c.ReferenceColumn, c.CompositeColumn} {
		if id != "" {
			cols = append(cols, id)
		}
	}
	return cols
}

// Keys extracts the normalized identity keys of a record. Dimensions
// without a value are absent from the result.
func (c Config) Keys(r records.Record) map[Dimension]string {
	keys := make(map[Dimension]string, 4)
	if c.EmailColumn != "" {
		if v, ok := r.Get(c.EmailColumn); ok {
			if key, ok := normalize.EmailValue(v); ok {
				keys[DimensionEmail] = key
			}
		}
	}
	if c.ReferenceColumn != "" {
		if v, ok := r.Get(c.ReferenceColumn); ok {
			if key, ok := normalize.ReferenceValue(v); ok {
				keys[DimensionReference] = key
			}
		}
	}
	if c.CompositeColumn != "" {
		if key, ok := normalize.Composite(r.Text(c.CompositeColumn), r.Name); ok {
			keys[DimensionComposite] = key
		}
	}
	if c.NameFallback {
		if key := normalize.PersonName(r.Name); key != "" {
			keys[DimensionName] = key
		}
	}
	return keys
}

// Index maps each dimension's normalized keys to the target IDs that carry
// them. It is never mutated after Build.
type Index struct {
	config  Config
	byKey   map[Dimension]map[string][]string
	targets map[string]records.Record
	order   []string
}

// Build indexes every target under each of its non-empty identity keys in a
// single pass.
func Build(targets []records.Record, cfg Config) *Index {
	idx := &Index{
		config:  cfg,
		byKey:   make(map[Dimension]map[string][]string, 4),
		targets: make(map[string]records.Record, len(targets)),
		order:   make([]string, 0, len(targets)),
	}
	for _, t := range targets {
		if _, dup := idx.targets[t.ID]; dup {
			continue
		}
		idx.targets[t.ID] = t
		idx.order = append(idx.order, t.ID)
		for dim, key := range cfg.Keys(t) {
			sub := idx.byKey[dim]
			if sub == nil {
				sub = make(map[string][]string)
				idx.byKey[dim] = sub
			}
			sub[key] = append(sub[key], t.ID)
		}
	}
	return idx
}

// Config returns the identity configuration the index was built with.
func (idx *Index) Config() Config {
	return idx.config
}

// Len returns the number of indexed target records.
func (idx *Index) Len() int {
	return len(idx.targets)
}

// Target returns an indexed target record.
func (idx *Index) Target(id string) (records.Record, bool) {
	r, ok := idx.targets[id]
	return r, ok
}

// Candidates returns the target IDs stored under key in dim.
func (idx *Index) Candidates(dim Dimension, key string) []string {
	ids := idx.byKey[dim][key]
	out := make([]string, len(ids))
	copy(out, ids)
	return out
}

// Stats summarizes key coverage per dimension.
type Stats struct {
	Targets    int                    `json:"targets" yaml:"targets"`
	Keys       map[Dimension]int      `json:"keys" yaml:"keys"`
	Collisions map[Dimension][]string `json:"collisions,omitempty" yaml:"collisions,omitempty"`
}

// Stats reports how many keys each dimension holds and which keys are
// shared by more than one target.
func (idx *Index) Stats() Stats {
	s := Stats{
		Targets:    len(idx.targets),
		Keys:       make(map[Dimension]int, len(idx.byKey)),
		Collisions: make(map[Dimension][]string),
	}
	for dim, sub := range idx.byKey {
		s.Keys[dim] = len(sub)
		for key, ids := range sub {
			if len(ids) > 1 {
				s.Collisions[dim] = append(s.Collisions[dim], key)
			}
		}
		sort.Strings(s.Collisions[dim])
	}
	return s
}
