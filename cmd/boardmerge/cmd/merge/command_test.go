package merge_test

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tobiasrohr/FInal-merger/cmd/boardmerge/cmd/merge"
	"github.com/tobiasrohr/FInal-merger/internal/appcontext"
	"github.com/tobiasrohr/FInal-merger/pkg/board"
	"github.com/tobiasrohr/FInal-merger/pkg/errors"
	"github.com/tobiasrohr/FInal-merger/pkg/executor"
	"github.com/tobiasrohr/FInal-merger/pkg/index"
	"github.com/tobiasrohr/FInal-merger/pkg/records"
	"github.com/tobiasrohr/FInal-merger/pkg/runlog"
)

const mappingYAML = `
source_board: "S"
target_board: "T"
identity:
  email_column: email
mappings:
  - {source: phone, target: phone}
  - {source: email, target: email}
`

func item(id, name string, fields map[records.FieldID]string) records.Record {
	r := records.Record{ID: id, Name: name, Fields: map[records.FieldID]records.Value{}}
	for k, v := range fields {
		r.Fields[k] = records.TextValue(v)
	}
	return r
}

func setup(t *testing.T) (*appcontext.Mock, *board.Memory, string) {
	t.Helper()
	mem := board.NewMemory()
	mem.Put("T", item("t1", "Jane", map[records.FieldID]string{"email": "jane@x.com"}))
	mem.Put("S",
		item("s1", "Jane", map[records.FieldID]string{"email": "JANE@x.com ", "phone": "555-1212"}),
		item("s2", "Max", map[records.FieldID]string{"email": "max@x.com", "phone": "1"}),
	)
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "mapping.yaml"), []byte(mappingYAML), 0o644))
	return &appcontext.Mock{Client: mem, Format: "json"}, mem, dir
}

func execute(t *testing.T, app *appcontext.Mock, args ...string) (string, error) {
	t.Helper()
	cmd := merge.NewCommand(app)
	var out, stderr bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestMergeCommand(t *testing.T) {
	app, mem, dir := setup(t)
	logPath := filepath.Join(dir, "run.jsonl")
	metricsPath := filepath.Join(dir, "run.prom")

	out, err := execute(t, app, "--mapping", filepath.Join(dir, "mapping.yaml"), "--log", logPath, "--metrics-file", metricsPath)
	require.NoError(t, err)

	var summary executor.Summary
	require.NoError(t, json.Unmarshal([]byte(out), &summary))
	assert.Equal(t, 1, summary.Created)
	assert.Equal(t, 1, summary.Updated)

	jane := mem.Items("T")[0]
	assert.Equal(t, "555-1212", jane.Text("phone"))
	assert.Len(t, mem.Items("T"), 2)

	entries, err := runlog.ReadFile(logPath)
	require.NoError(t, err)
	assert.Len(t, entries, 2)

	prom, err := os.ReadFile(metricsPath)
	require.NoError(t, err)
	assert.Contains(t, string(prom), "boardmerge_items_total")

	// Second run resumes and changes nothing.
	mem.ResetStats()
	out, err = execute(t, app, "--mapping", filepath.Join(dir, "mapping.yaml"), "--log", logPath)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal([]byte(out), &summary))
	assert.Equal(t, 2, summary.AlreadyProcessed)
	assert.Equal(t, 0, mem.Stats().Batches)
}

func TestMergeCommandPerItemErrorsSucceed(t *testing.T) {
	app, mem, dir := setup(t)
	mem.FailItem("s2", errors.New("column is locked"))

	out, err := execute(t, app, "--mapping", filepath.Join(dir, "mapping.yaml"), "--log", filepath.Join(dir, "run.jsonl"))
	require.NoError(t, err)

	var summary executor.Summary
	require.NoError(t, json.Unmarshal([]byte(out), &summary))
	assert.Equal(t, 1, summary.Errors)
}

func TestMergeCommandSetupErrors(t *testing.T) {
	app, _, dir := setup(t)
	mappingPath := filepath.Join(dir, "mapping.yaml")

	_, err := execute(t, app, "--mapping", filepath.Join(dir, "missing.yaml"), "--log", filepath.Join(dir, "a.jsonl"))
	assert.True(t, errors.IsSetup(err))

	_, err = execute(t, app, "--mapping", mappingPath, "--log", filepath.Join(dir, "b.jsonl"), "--batch-size", "51")
	assert.True(t, errors.IsSetup(err))

	_, err = execute(t, app, "--mapping", mappingPath, "--log", filepath.Join(dir, "c.jsonl"), "--target", "S")
	assert.True(t, errors.IsValidationError(err))

	_, err = execute(t, app, "--mapping", mappingPath, "--log", filepath.Join(dir, "d.jsonl"), "--index", filepath.Join(dir, "none.json"))
	assert.True(t, errors.IsSetup(err))

	_, err = execute(t, app, "--mapping", mappingPath)
	assert.Error(t, err, "--log is required")
}

func TestMergeCommandDryRun(t *testing.T) {
	app, mem, dir := setup(t)
	logPath := filepath.Join(dir, "dry.jsonl")

	_, err := execute(t, app, "--mapping", filepath.Join(dir, "mapping.yaml"), "--log", logPath, "--dry-run")
	require.NoError(t, err)
	assert.Len(t, mem.Items("T"), 1)
	assert.Equal(t, 0, mem.Stats().Batches)

	_, err = execute(t, app, "--mapping", filepath.Join(dir, "mapping.yaml"), "--log", logPath)
	assert.True(t, errors.IsSetup(err))
}

func TestMergeCommandRejectsUnknownIdentityColumn(t *testing.T) {
	app, mem, dir := setup(t)
	logPath := filepath.Join(dir, "run.jsonl")

	_, err := execute(t, app, "--mapping", filepath.Join(dir, "mapping.yaml"), "--log", logPath, "--email-column", "e_mial")
	require.Error(t, err)
	assert.True(t, errors.IsSetup(err))
	assert.Contains(t, err.Error(), "e_mial")

	assert.Len(t, mem.Items("T"), 1, "no duplicate may be created")
	assert.Zero(t, mem.Stats().Batches)
	_, statErr := os.Stat(logPath)
	assert.True(t, os.IsNotExist(statErr))
}

func TestMergeCommandChecksSourceColumnsOfIndex(t *testing.T) {
	app, mem, dir := setup(t)
	mem.Put("T", item("t2", "Bob", map[records.FieldID]string{"ref": "HF4U-1"}))
	idxPath := filepath.Join(dir, "target.idx.json")
	cfg := index.Config{EmailColumn: "email", ReferenceColumn: "ref"}
	require.NoError(t, index.Build(mem.Items("T"), cfg).SaveFile(idxPath, "T"))

	_, err := execute(t, app, "--mapping", filepath.Join(dir, "mapping.yaml"), "--log", filepath.Join(dir, "run.jsonl"), "--index", idxPath)
	require.Error(t, err)
	assert.True(t, errors.IsSetup(err))
	assert.Contains(t, err.Error(), "source board S has no column ref")
	assert.Len(t, mem.Items("T"), 2)
}

const followUpYAML = `
source_board: "S"
target_board: "T"
identity:
  email_column: email
follow_up:
  duplicate_group: duplicates
  new_group: copied
mappings:
  - {source: phone, target: phone}
`

func TestMergeCommandMovesSourceItems(t *testing.T) {
	app, mem, dir := setup(t)
	mappingPath := filepath.Join(dir, "follow.yaml")
	require.NoError(t, os.WriteFile(mappingPath, []byte(followUpYAML), 0o644))

	out, err := execute(t, app, "--mapping", mappingPath, "--log", filepath.Join(dir, "run.jsonl"))
	require.NoError(t, err)

	var summary executor.Summary
	require.NoError(t, json.Unmarshal([]byte(out), &summary))
	assert.Equal(t, 2, summary.FollowUps)
	assert.Equal(t, "duplicates", mem.Group("S", "s1"))
	assert.Equal(t, "copied", mem.Group("S", "s2"))
}

func TestMergeCommandRejectsUnknownLinkColumn(t *testing.T) {
	app, mem, dir := setup(t)
	mappingPath := filepath.Join(dir, "link.yaml")
	content := strings.Replace(followUpYAML, "new_group: copied", "new_group: copied\n  link_column: target_item", 1)
	require.NoError(t, os.WriteFile(mappingPath, []byte(content), 0o644))

	_, err := execute(t, app, "--mapping", mappingPath, "--log", filepath.Join(dir, "run.jsonl"))
	assert.True(t, errors.IsSetup(err))
	assert.Contains(t, err.Error(), "target_item")
	assert.Zero(t, mem.Stats().Batches)
}
