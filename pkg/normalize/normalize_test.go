package normalize_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tobiasrohr/FInal-merger/pkg/normalize"
	"github.com/tobiasrohr/FInal-merger/pkg/records"
)

func TestEmail(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
		ok   bool
	}{
		{"case and whitespace", "  A@B.com ", "a@b.com", true},
		{"plain", "jane@x.com", "jane@x.com", true},
		{"embedded in text", "Mail: Jane.Doe@Example.org (privat)", "jane.doe@example.org", true},
		{"json email field", `{"email":"Jane@X.com","text":"Jane"}`, "jane@x.com", true},
		{"json text field", `{"text":"jane@x.com"}`, "jane@x.com", true},
		{"empty", "   ", "", false},
		{"no address", "keine Angabe", "", false},
		{"json without address", `{"text":"n/a"}`, "", false},
		{"broken json", `{"email":`, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := normalize.Email(tt.raw)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEmailValue(t *testing.T) {
	v := records.Value{Raw: json.RawMessage(`{"email":"Jane@X.com","text":""}`)}
	got, ok := normalize.EmailValue(v)
	assert.True(t, ok)
	assert.Equal(t, "jane@x.com", got)

	_, ok = normalize.EmailValue(records.Value{})
	assert.False(t, ok)
}

func TestReference(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
		ok   bool
	}{
		{"alphanumeric token", "HF4U-100", "HF4U-100", true},
		{"token case folded", " hf4u-100 ", "HF4U-100", true},
		{"plain number", "13986", "13986", true},
		{"url", "https://portal.example.com/candidates/13986/profile", "13986", true},
		{"url picks longest run", "https://example.com/v2/item/4711", "4711", true},
		{"free text", "Kandidat Nr. 4711 (alt)", "4711", true},
		{"json text wins", `{"url":"https://example.com/1","text":"13986"}`, "13986", true},
		{"json url fallback", `{"url":"https://example.com/candidates/555","text":""}`, "555", true},
		{"json text without number uses url", `{"url":"https://example.com/c/77","text":"Profil"}`, "77", true},
		{"word without digits", "Profil", "", false},
		{"empty", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := normalize.Reference(tt.raw)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestReferenceValuePrefersPayload(t *testing.T) {
	v := records.Value{
		Text: "Profil - https://example.com/c/1",
		Raw:  json.RawMessage(`{"url":"https://example.com/c/1","text":"HF4U-100"}`),
	}
	got, ok := normalize.ReferenceValue(v)
	assert.True(t, ok)
	assert.Equal(t, "HF4U-100", got)
}

func TestSalary(t *testing.T) {
	tests := []struct {
		raw  string
		want int64
		ok   bool
	}{
		{"€ 45.000", 45000, true},
		{"45.000 EUR", 45000, true},
		{"45000", 45000, true},
		{"100K", 100000, true},
		{"ca. 100k in VZ", 100000, true},
		{"75,5K", 75500, true},
		{"$1,200,000", 1200000, true},
		{"45.000,50 €", 45000, true},
		{"40.000 - 50.000", 50000, true},
		{"n/a", 0, false},
		{"", 0, false},
		{"€", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, ok := normalize.Salary(tt.raw)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSalaryNeverPanics(t *testing.T) {
	inputs := []string{"K", "kk", ",,,", "...", "1.2.3.4.5", "99999999999999999999999999", "€€€ 1,", "🙂 12k"}
	for _, in := range inputs {
		assert.NotPanics(t, func() { normalize.Salary(in) }, in)
	}
}

func TestNumber(t *testing.T) {
	got, ok := normalize.Number("37,5 Stunden")
	assert.True(t, ok)
	assert.InDelta(t, 37.5, got, 0.001)

	for _, in := range []string{"keine", "Bitte wählen", "-", ""} {
		_, ok := normalize.Number(in)
		assert.False(t, ok, in)
	}
	assert.True(t, normalize.IsPlaceholder(" N/A "))
}

func TestPersonName(t *testing.T) {
	tests := map[string]string{
		"  Jürgen Müller-Lüdenscheidt ": "juergen mueller luedenscheidt",
		"Straße, Anna":                  "strasse anna",
		"José  Álvarez":                 "jose alvarez",
		"O'Brien (Sean)":                "o brien sean",
		"":                              "",
	}
	for in, want := range tests {
		assert.Equal(t, want, normalize.PersonName(in), in)
	}
}

func TestComposite(t *testing.T) {
	key, ok := normalize.Composite(" EXT-7 ", "Jane   Doe")
	assert.True(t, ok)
	assert.Equal(t, "ext-7|jane doe", key)

	_, ok = normalize.Composite("", "Jane")
	assert.False(t, ok)
	_, ok = normalize.Composite("EXT-7", " ")
	assert.False(t, ok)
}
