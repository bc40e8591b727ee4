package index_test

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	indexcmd "github.com/tobiasrohr/FInal-merger/cmd/boardmerge/cmd/index"
	"github.com/tobiasrohr/FInal-merger/internal/appcontext"
	"github.com/tobiasrohr/FInal-merger/pkg/board"
	"github.com/tobiasrohr/FInal-merger/pkg/errors"
	"github.com/tobiasrohr/FInal-merger/pkg/index"
	"github.com/tobiasrohr/FInal-merger/pkg/records"
)

func targets() *board.Memory {
	mem := board.NewMemory()
	mem.SetPageSize(1)
	mem.Put("T",
		records.Record{ID: "t1", Name: "Jane", Fields: map[records.FieldID]records.Value{"email": records.TextValue("jane@x.com")}},
		records.Record{ID: "t2", Name: "Bob", Fields: map[records.FieldID]records.Value{"ref": records.TextValue("HF4U-100")}},
		records.Record{ID: "t3", Name: "Bobby", Fields: map[records.FieldID]records.Value{"ref": records.TextValue("hf4u-100")}},
	)
	return mem
}

func run(t *testing.T, app appcontext.Interface, args ...string) (string, error) {
	t.Helper()
	cmd := indexcmd.NewCommand(app)
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestBuildAndLoad(t *testing.T) {
	app := &appcontext.Mock{Client: targets(), Format: "table"}
	out := filepath.Join(t.TempDir(), "target.idx.json")

	_, err := run(t, app, "build", "--target", "T", "--email-column", "email", "--reference-column", "ref", "--out", out)
	require.NoError(t, err)

	idx, err := indexcmd.Load(out, "T")
	require.NoError(t, err)
	assert.Equal(t, 3, idx.Len())

	match := idx.Lookup(records.Record{ID: "s", Fields: map[records.FieldID]records.Value{"ref": records.TextValue("HF4U-100")}})
	assert.Equal(t, index.StatusAmbiguous, match.Status)
	assert.Equal(t, []string{"t2", "t3"}, match.Candidates)

	_, err = indexcmd.Load(out, "OTHER")
	assert.True(t, errors.IsSetup(err))

	shown, err := run(t, app, "show", out)
	require.NoError(t, err)
	assert.Contains(t, shown, "reference")
}

func TestBuildRequiresIdentity(t *testing.T) {
	app := &appcontext.Mock{Client: targets()}
	_, err := run(t, app, "build", "--target", "T", "--out", filepath.Join(t.TempDir(), "x.json"))
	assert.True(t, errors.IsValidationError(err))

	_, err = run(t, app, "build", "--email-column", "email", "--out", filepath.Join(t.TempDir(), "x.json"))
	assert.True(t, errors.IsSetup(err))
}

func TestBuildRejectsUnknownColumn(t *testing.T) {
	mem := targets()
	app := &appcontext.Mock{Client: mem}
	out := filepath.Join(t.TempDir(), "target.idx.json")

	_, err := run(t, app, "build", "--target", "T", "--email-column", "e_mial", "--out", out)
	require.Error(t, err)
	assert.True(t, errors.IsSetup(err))
	assert.Contains(t, err.Error(), "target board T has no column e_mial")
	assert.Zero(t, mem.Stats().Fetches, "items are not read when a column is missing")
	assert.NoFileExists(t, out)
}
