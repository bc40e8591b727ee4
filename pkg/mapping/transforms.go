package mapping

import (
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/tobiasrohr/FInal-merger/pkg/constants"
	"github.com/tobiasrohr/FInal-merger/pkg/errors"
	"github.com/tobiasrohr/FInal-merger/pkg/normalize"
	"github.com/tobiasrohr/FInal-merger/pkg/records"
)

// ErrNoValue is returned by transforms whose input yields no usable value.
// The merge engine excludes the field instead of failing the record.
var ErrNoValue = errors.New("transform produced no value")

// TransformFunc derives a target value from a source record.
type TransformFunc func(src records.Record, m Mapping) (records.Value, error)

// Registry holds named transforms.
type Registry struct {
	mu    sync.RWMutex
	funcs map[string]TransformFunc
}

// NewRegistry returns a registry preloaded with the built-in transforms.
func NewRegistry() *Registry {
	r := &Registry{funcs: make(map[string]TransformFunc)}
	r.Register("parse_salary", parseSalary)
	r.Register("parse_number", parseNumber)
	r.Register("calculate_salary", calculateSalary)
	r.Register("map_values", mapValues)
	r.Register("lowercase", lowercase)
	r.Register("email", email)
	r.Register("reference", reference)
	return r
}

// Register adds or replaces a transform.
func (r *Registry) Register(name string, fn TransformFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.funcs[name] = fn
}

// Has reports whether name is registered.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.funcs[name]
	return ok
}

// Names returns the registered transform names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.funcs))
	for name := range r.funcs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Apply computes the value a mapping produces for src. Without a transform
// the source value is copied as is.
func (r *Registry) Apply(src records.Record, m Mapping) (records.Value, error) {
	if m.Transform == "" {
		v, _ := src.Get(m.Source)
		return v, nil
	}
	r.mu.RLock()
	fn, ok := r.funcs[m.Transform]
	r.mu.RUnlock()
	if !ok {
		return records.Value{}, errors.NewValidationError("transform", m.Transform, "unknown transform")
	}
	return fn(src, m)
}

func parseSalary(src records.Record, m Mapping) (records.Value, error) {
	amount, ok := normalize.Salary(src.Text(m.Source))
	if !ok {
		return records.Value{}, ErrNoValue
	}
	return numberValue(float64(amount)), nil
}

func parseNumber(src records.Record, m Mapping) (records.Value, error) {
	n, ok := normalize.Number(src.Text(m.Source))
	if !ok {
		return records.Value{}, ErrNoValue
	}
	return numberValue(n), nil
}

// calculateSalary prefers a yearly figure and falls back to a monthly
// figure scaled to a year. Columns come from params "yearly_column" and
// "monthly_column"; Source is used as the yearly column when unset.
func calculateSalary(src records.Record, m Mapping) (records.Value, error) {
	yearly := records.FieldID(m.Params["yearly_column"])
	if yearly == "" {
		yearly = m.Source
	}
	if yearly != "" {
		if amount, ok := normalize.Salary(src.Text(yearly)); ok {
			return numberValue(float64(amount)), nil
		}
	}
	if monthly := records.FieldID(m.Params["monthly_column"]); monthly != "" {
		if amount, ok := normalize.Salary(src.Text(monthly)); ok {
			return numberValue(float64(amount * constants.SalaryMonthsPerYear)), nil
		}
	}
	return records.Value{}, ErrNoValue
}

// mapValues translates comma separated source labels through the
// mapping's value table, case-insensitively. Unknown labels are dropped.
func mapValues(src records.Record, m Mapping) (records.Value, error) {
	text := src.Text(m.Source)
	if text == "" || normalize.IsPlaceholder(text) {
		return records.Value{}, ErrNoValue
	}

	table := make(map[string]string, len(m.Values))
	for from, to := range m.Values {
		table[strings.ToLower(strings.TrimSpace(from))] = to
	}

	var labels []string
	seen := make(map[string]bool)
	for _, part := range strings.Split(text, ",") {
		to, ok := table[strings.ToLower(strings.TrimSpace(part))]
		if !ok || to == "" || seen[to] {
			continue
		}
		seen[to] = true
		labels = append(labels, to)
	}
	if len(labels) == 0 {
		return records.Value{}, ErrNoValue
	}
	return records.LabelsValue(labels...), nil
}

func lowercase(src records.Record, m Mapping) (records.Value, error) {
	v, _ := src.Get(m.Source)
	return records.TextValue(strings.ToLower(strings.TrimSpace(v.Text))), nil
}

func email(src records.Record, m Mapping) (records.Value, error) {
	v, _ := src.Get(m.Source)
	addr, ok := normalize.EmailValue(v)
	if !ok {
		return records.Value{}, ErrNoValue
	}
	return records.Value{Text: addr, Type: "email"}, nil
}

func reference(src records.Record, m Mapping) (records.Value, error) {
	v, _ := src.Get(m.Source)
	ref, ok := normalize.ReferenceValue(v)
	if !ok {
		return records.Value{}, ErrNoValue
	}
	return records.TextValue(ref), nil
}

func numberValue(f float64) records.Value {
	return records.Value{Text: strconv.FormatFloat(f, 'f', -1, 64), Type: "numbers"}
}
