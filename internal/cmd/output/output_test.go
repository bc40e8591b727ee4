package output

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tobiasrohr/FInal-merger/pkg/errors"
	"github.com/tobiasrohr/FInal-merger/pkg/executor"
	"github.com/tobiasrohr/FInal-merger/pkg/index"
	"github.com/tobiasrohr/FInal-merger/pkg/records"
	"github.com/tobiasrohr/FInal-merger/pkg/runlog"
	"github.com/tobiasrohr/FInal-merger/pkg/validator"
)

func TestParseFormat(t *testing.T) {
	for _, s := range []string{"table", "WIDE", " json ", "yaml"} {
		_, err := ParseFormat(s)
		assert.NoError(t, err, s)
	}
	_, err := ParseFormat("csv")
	assert.True(t, errors.IsValidationError(err))
}

func TestPrintSummary(t *testing.T) {
	s := executor.Summary{RunID: "r1", Created: 3, Updated: 2, Skipped: 4, Ambiguous: 1}

	var table bytes.Buffer
	require.NoError(t, Print(&table, FormatTable, s, SummaryTable(s)))
	assert.Contains(t, table.String(), "Already processed")
	assert.Contains(t, table.String(), "r1")

	var js bytes.Buffer
	require.NoError(t, Print(&js, FormatJSON, s, SummaryTable(s)))
	assert.Contains(t, js.String(), `"created": 3`)

	var ym bytes.Buffer
	require.NoError(t, Print(&ym, FormatYAML, map[string]int{"created": 3}, nil))
	assert.Equal(t, "created: 3\n", ym.String())
}

func TestReportTable(t *testing.T) {
	r := validator.Report{
		Eligible: 3, Sampled: 2, Confirmed: 1, Mismatched: 1,
		Items: []validator.ItemResult{
			{SourceID: "s1", TargetID: "t1", Action: runlog.ActionCreated, Status: validator.StatusConfirmed},
			{SourceID: "s2", TargetID: "t2", Action: runlog.ActionUpdated, Status: validator.StatusMismatched,
				Mismatches: []validator.FieldMismatch{{Field: "phone", Expected: "1", Actual: "2"}}},
		},
	}

	narrow := ReportTable(r)(false)
	require.Len(t, narrow.Rows, 2)
	assert.Equal(t, "s2", narrow.Rows[0][0])
	assert.Equal(t, "sampled 2 of 3", narrow.Rows[1][0])

	wide := ReportTable(r)(true)
	assert.Len(t, wide.Rows, 3)
}

func TestIndexTable(t *testing.T) {
	s := index.Stats{
		Targets:    4,
		Keys:       map[index.Dimension]int{index.DimensionReference: 2, index.DimensionEmail: 3},
		Collisions: map[index.Dimension][]string{index.DimensionReference: {"HF4U100"}},
	}
	d := IndexTable(s)(true)
	require.Len(t, d.Rows, 3)
	assert.Equal(t, string(index.DimensionEmail), d.Rows[0][0])
	assert.Equal(t, []string{string(index.DimensionReference), "2", "1", "HF4U100"}, d.Rows[1])
}

func TestTableFallbacks(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewFormatter(FormatTable).Format(&buf, records.Option{Label: "German", ID: "3"}))
	out := buf.String()
	assert.Contains(t, strings.ToLower(out), "label")
	assert.Contains(t, out, "German")

	buf.Reset()
	require.NoError(t, NewFormatter(FormatTable).Format(&buf, []string{"a"}))
	assert.Equal(t, "[\n  \"a\"\n]", strings.TrimSpace(buf.String()))
}

func TestReportMarkdown(t *testing.T) {
	r := validator.Report{Board: "T", Eligible: 3, Sampled: 2, Confirmed: 1, Mismatched: 1, Items: []validator.ItemResult{
		{SourceID: "s1", TargetID: "t1", Status: validator.StatusConfirmed},
		{SourceID: "s2", TargetID: "t2", Status: validator.StatusMismatched,
			Mismatches: []validator.FieldMismatch{{Field: "phone", Expected: "111", Actual: "000"}}},
	}}

	var buf bytes.Buffer
	require.NoError(t, ReportMarkdown(&buf, r))
	doc := buf.String()
	assert.True(t, strings.HasPrefix(doc, "# Validation of board T"))
	assert.Contains(t, doc, "Confirmed: 1 (50.0%)")
	assert.Contains(t, doc, "## Mismatched fields")
	assert.Contains(t, doc, "`111`")
	assert.NotContains(t, doc, "Missing targets")
}
