package mapping_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tobiasrohr/FInal-merger/pkg/mapping"
	"github.com/tobiasrohr/FInal-merger/pkg/records"
)

func source(fields map[records.FieldID]string) records.Record {
	r := records.Record{ID: "s1", Name: "Jane", Fields: map[records.FieldID]records.Value{}}
	for k, v := range fields {
		r.Fields[k] = records.TextValue(v)
	}
	return r
}

func TestApplyWithoutTransformCopies(t *testing.T) {
	reg := mapping.NewRegistry()
	v, err := reg.Apply(source(map[records.FieldID]string{"phone": "555-1212"}), mapping.Mapping{Source: "phone", Target: "phone"})
	require.NoError(t, err)
	assert.Equal(t, "555-1212", v.Text)

	v, err = reg.Apply(source(nil), mapping.Mapping{Source: records.NameField, Target: "name"})
	require.NoError(t, err)
	assert.Equal(t, "Jane", v.Text)
}

func TestParseSalaryTransform(t *testing.T) {
	reg := mapping.NewRegistry()
	m := mapping.Mapping{Source: "salary", Target: "salary", Transform: "parse_salary"}

	v, err := reg.Apply(source(map[records.FieldID]string{"salary": "€ 45.000"}), m)
	require.NoError(t, err)
	assert.Equal(t, "45000", v.Text)
	assert.Equal(t, "numbers", v.Type)

	_, err = reg.Apply(source(map[records.FieldID]string{"salary": "n/a"}), m)
	assert.ErrorIs(t, err, mapping.ErrNoValue)
}

func TestCalculateSalary(t *testing.T) {
	reg := mapping.NewRegistry()
	m := mapping.Mapping{
		Target:    "salary",
		Transform: "calculate_salary",
		Params:    map[string]string{"yearly_column": "yearly", "monthly_column": "monthly"},
	}

	v, err := reg.Apply(source(map[records.FieldID]string{"yearly": "60.000", "monthly": "2000"}), m)
	require.NoError(t, err)
	assert.Equal(t, "60000", v.Text)

	v, err = reg.Apply(source(map[records.FieldID]string{"monthly": "2.000 €"}), m)
	require.NoError(t, err)
	assert.Equal(t, "36000", v.Text)

	_, err = reg.Apply(source(nil), m)
	assert.ErrorIs(t, err, mapping.ErrNoValue)
}

func TestMapValues(t *testing.T) {
	reg := mapping.NewRegistry()
	m := mapping.Mapping{
		Source:    "languages",
		Target:    "languages",
		Transform: "map_values",
		Values:    map[string]string{"Deutsch": "German", "englisch": "English", "DE": "German"},
	}

	v, err := reg.Apply(source(map[records.FieldID]string{"languages": "deutsch, Englisch, de, Klingonisch"}), m)
	require.NoError(t, err)
	assert.Equal(t, "German, English", v.Text)
	assert.JSONEq(t, `{"labels":["German","English"]}`, string(v.Raw))

	_, err = reg.Apply(source(map[records.FieldID]string{"languages": "Bitte wählen"}), m)
	assert.ErrorIs(t, err, mapping.ErrNoValue)

	_, err = reg.Apply(source(map[records.FieldID]string{"languages": "Klingonisch"}), m)
	assert.ErrorIs(t, err, mapping.ErrNoValue)
}

func TestSimpleTransforms(t *testing.T) {
	reg := mapping.NewRegistry()
	src := source(map[records.FieldID]string{"mail": " Jane@X.com ", "link": "https://example.com/c/4711", "hours": "37,5"})

	v, err := reg.Apply(src, mapping.Mapping{Source: "mail", Target: "m", Transform: "email"})
	require.NoError(t, err)
	assert.Equal(t, "jane@x.com", v.Text)

	v, err = reg.Apply(src, mapping.Mapping{Source: "mail", Target: "m", Transform: "lowercase"})
	require.NoError(t, err)
	assert.Equal(t, "jane@x.com", v.Text)

	v, err = reg.Apply(src, mapping.Mapping{Source: "link", Target: "r", Transform: "reference"})
	require.NoError(t, err)
	assert.Equal(t, "4711", v.Text)

	v, err = reg.Apply(src, mapping.Mapping{Source: "hours", Target: "h", Transform: "parse_number"})
	require.NoError(t, err)
	assert.Equal(t, "37.5", v.Text)
}

func TestRegistryCustomTransform(t *testing.T) {
	reg := mapping.NewRegistry()
	reg.Register("constant", func(records.Record, mapping.Mapping) (records.Value, error) {
		return records.TextValue("fixed"), nil
	})
	assert.True(t, reg.Has("constant"))
	assert.Contains(t, reg.Names(), "parse_salary")

	_, err := reg.Apply(source(nil), mapping.Mapping{Target: "x", Transform: "missing"})
	assert.Error(t, err)
}
