package records_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tobiasrohr/FInal-merger/pkg/records"
)

func TestValueIsEmpty(t *testing.T) {
	assert.True(t, records.Value{}.IsEmpty())
	assert.True(t, records.TextValue("   ").IsEmpty())
	assert.True(t, records.Value{Raw: json.RawMessage(`{"url":"x"}`)}.IsEmpty())
	assert.False(t, records.TextValue("555-1212").IsEmpty())
}

func TestValueEqual(t *testing.T) {
	assert.True(t, records.TextValue(" a ").Equal(records.TextValue("a")))
	assert.False(t, records.TextValue("a").Equal(records.TextValue("b")))
}

func TestRecordGet(t *testing.T) {
	r := records.Record{
		ID:     "1",
		Name:   "Jane Doe",
		Fields: map[records.FieldID]records.Value{"phone": records.TextValue(" 555 ")},
	}

	name, ok := r.Get(records.NameField)
	assert.True(t, ok)
	assert.Equal(t, "Jane Doe", name.Text)

	assert.Equal(t, "555", r.Text("phone"))
	assert.Equal(t, "", r.Text("missing"))
}

func TestLabelsValue(t *testing.T) {
	v := records.LabelsValue("Deutsch", "Englisch")
	assert.Equal(t, "Deutsch, Englisch", v.Text)
	assert.JSONEq(t, `{"labels":["Deutsch","Englisch"]}`, string(v.Raw))
}

func TestPatchFieldsSorted(t *testing.T) {
	p := records.Patch{
		"phone": records.TextValue("1"),
		"email": records.TextValue("2"),
	}
	assert.Equal(t, []records.FieldID{"email", "phone"}, p.Fields())
	assert.Equal(t, map[string]string{"email": "2", "phone": "1"}, p.Texts())
	assert.Nil(t, records.Patch{}.Texts())
}
