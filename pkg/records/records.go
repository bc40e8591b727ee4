// Package records defines the board item data model shared by the
// normalizer, the duplicate index, the merge engine and API collaborators.
package records

import (
	"encoding/json"
	"sort"
	"strings"
)

// FieldID identifies a board column.
type FieldID string

// NameField is the pseudo column addressing an item's display name.
const NameField FieldID = "name"

// Value is a single column value as reported by the board API: the visible
// text and the raw JSON payload. Either may be absent.
type Value struct {
	Text string          `json:"text,omitempty" yaml:"text,omitempty"`
	Raw  json.RawMessage `json:"value,omitempty" yaml:"value,omitempty"`
	Type string          `json:"type,omitempty" yaml:"type,omitempty"`
}

// TextValue builds a Value carrying only display text.
func TextValue(text string) Value {
	return Value{Text: text}
}

// LabelsValue builds a dropdown value from labels.
func LabelsValue(labels ...string) Value {
	raw, _ := json.Marshal(map[string][]string{"labels": labels})
	return Value{Text: strings.Join(labels, ", "), Raw: raw, Type: "dropdown"}
}

// RelationValue builds a board relation value linking the given items.
func RelationValue(itemIDs ...string) Value {
	raw, _ := json.Marshal(map[string][]string{"item_ids": itemIDs})
	return Value{Text: strings.Join(itemIDs, ", "), Raw: raw, Type: "board_relation"}
}

// IsEmpty reports whether the value has no visible text. Raw JSON without
// text counts as empty: the API keeps stale payloads on cleared columns.
func (v Value) IsEmpty() bool {
	return strings.TrimSpace(v.Text) == ""
}

// Equal compares the visible text of two values after trimming.
func (v Value) Equal(other Value) bool {
	return strings.TrimSpace(v.Text) == strings.TrimSpace(other.Text)
}

// Record is an item on either board. Source and target IDs live in
// unrelated namespaces.
type Record struct {
	ID     string            `json:"id" yaml:"id"`
	Name   string            `json:"name" yaml:"name"`
	Fields map[FieldID]Value `json:"fields,omitempty" yaml:"fields,omitempty"`
}

// Get returns the value of a field. NameField resolves to the display name.
func (r Record) Get(id FieldID) (Value, bool) {
	if id == NameField {
		return TextValue(r.Name), r.Name != ""
	}
	v, ok := r.Fields[id]
	return v, ok
}

// Text returns the trimmed visible text of a field, or "".
func (r Record) Text(id FieldID) string {
	v, _ := r.Get(id)
	return strings.TrimSpace(v.Text)
}

// Option is one choice of a dropdown or status column.
type Option struct {
	Label string `json:"label" yaml:"label"`
	ID    string `json:"id" yaml:"id"`
}

// Patch is a set of target field assignments.
type Patch map[FieldID]Value

// Fields returns the patched field IDs in sorted order.
func (p Patch) Fields() []FieldID {
	ids := make([]FieldID, 0, len(p))
	for id := range p {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Texts flattens the patch to field ID to text, the form persisted in the
// run log and compared by the validator.
func (p Patch) Texts() map[string]string {
	if len(p) == 0 {
		return nil
	}
	out := make(map[string]string, len(p))
	for id, v := range p {
		out[string(id)] = v.Text
	}
	return out
}
