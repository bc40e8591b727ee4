package validate_test

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tobiasrohr/FInal-merger/cmd/boardmerge/cmd/validate"
	"github.com/tobiasrohr/FInal-merger/internal/appcontext"
	"github.com/tobiasrohr/FInal-merger/pkg/board"
	"github.com/tobiasrohr/FInal-merger/pkg/errors"
	"github.com/tobiasrohr/FInal-merger/pkg/records"
	"github.com/tobiasrohr/FInal-merger/pkg/runlog"
	"github.com/tobiasrohr/FInal-merger/pkg/validator"
)

func writeLog(t *testing.T, entries ...runlog.Entry) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "run.jsonl")
	l, err := runlog.Open(path)
	require.NoError(t, err)
	require.NoError(t, l.Append(entries...))
	require.NoError(t, l.Close())
	return path
}

func TestValidateCommand(t *testing.T) {
	mem := board.NewMemory()
	mem.Put("T",
		records.Record{ID: "t1", Name: "Jane", Fields: map[records.FieldID]records.Value{"phone": records.TextValue("555")}},
		records.Record{ID: "t2", Name: "Max", Fields: map[records.FieldID]records.Value{"phone": records.TextValue("000")}},
	)
	logPath := writeLog(t,
		runlog.Entry{RunID: "r", SourceID: "s1", TargetID: "t1", Action: runlog.ActionUpdated, Patch: map[string]string{"phone": "555"}},
		runlog.Entry{RunID: "r", SourceID: "s2", TargetID: "t2", Action: runlog.ActionCreated, Patch: map[string]string{"phone": "111"}},
		runlog.Entry{RunID: "r", SourceID: "s3", TargetID: "t9", Action: runlog.ActionCreated},
		runlog.Entry{RunID: "r", SourceID: "s4", Action: runlog.ActionSkipped},
	)

	cmd := validate.NewCommand(&appcontext.Mock{Client: mem, Format: "json"})
	var out, stderr bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&stderr)
	reportPath := filepath.Join(t.TempDir(), "report.md")
	cmd.SetArgs([]string{"--log", logPath, "--target", "T", "--sample-size", "0", "--report", reportPath})
	require.NoError(t, cmd.ExecuteContext(context.Background()))

	var report validator.Report
	require.NoError(t, json.Unmarshal(out.Bytes(), &report))
	assert.Equal(t, 3, report.Eligible)
	assert.Equal(t, 1, report.Confirmed)
	assert.Equal(t, 1, report.Mismatched)
	assert.Equal(t, 1, report.Missing)

	var mismatches []validator.FieldMismatch
	for _, it := range report.Items {
		mismatches = append(mismatches, it.Mismatches...)
	}
	want := []validator.FieldMismatch{{Field: "phone", Expected: "111", Actual: "000"}}
	if diff := cmp.Diff(want, mismatches); diff != "" {
		t.Errorf("mismatches (-want +got):\n%s", diff)
	}
	assert.Contains(t, stderr.String(), "no longer exist")
	assert.Zero(t, mem.Stats().Batches, "validation never writes")

	md, err := os.ReadFile(reportPath)
	require.NoError(t, err)
	assert.Contains(t, string(md), "## Missing targets")
}

func TestValidateCommandNeedsTarget(t *testing.T) {
	logPath := writeLog(t, runlog.Entry{RunID: "r", SourceID: "s1", Action: runlog.ActionSkipped})
	cmd := validate.NewCommand(&appcontext.Mock{Client: board.NewMemory()})
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"--log", logPath})
	assert.True(t, errors.IsSetup(cmd.ExecuteContext(context.Background())))
}
