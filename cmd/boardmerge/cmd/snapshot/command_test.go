package snapshot

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tobiasrohr/FInal-merger/pkg/board"
	"github.com/tobiasrohr/FInal-merger/pkg/errors"
	"github.com/tobiasrohr/FInal-merger/pkg/records"
)

func live() *board.Memory {
	mem := board.NewMemory()
	mem.SetPageSize(2)
	mem.Put("T",
		records.Record{ID: "1", Name: "A", Fields: map[records.FieldID]records.Value{"email": records.TextValue("a@x.com")}},
		records.Record{ID: "2", Name: "B"},
		records.Record{ID: "3", Name: "C"},
	)
	mem.SetOptions("S", "status", records.Option{Label: "Done", ID: "1"}, records.Option{Label: "Stuck", ID: "2"})
	return mem
}

func TestExportRoundTrip(t *testing.T) {
	ctx := context.Background()
	src := live()

	mem, err := Export(ctx, src, []string{"T"}, []string{"S:status"})
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "boards.json")
	require.NoError(t, write(mem, path, []string{"T", "S"}))

	loaded, err := board.LoadSnapshot(path)
	require.NoError(t, err)
	if diff := cmp.Diff(src.Items("T"), loaded.Items("T")); diff != "" {
		t.Errorf("items differ (-live +snapshot):\n%s", diff)
	}

	liveCols, err := src.Columns(ctx, "T")
	require.NoError(t, err)
	cols, err := loaded.Columns(ctx, "T")
	require.NoError(t, err)
	if diff := cmp.Diff(liveCols, cols); diff != "" {
		t.Errorf("columns differ (-live +snapshot):\n%s", diff)
	}

	opts, err := loaded.FetchMetadata(ctx, "S", "status")
	require.NoError(t, err)
	assert.Equal(t, []records.Option{{Label: "Done", ID: "1"}, {Label: "Stuck", ID: "2"}}, opts)
}

func TestExportRejectsBadOptionSpec(t *testing.T) {
	_, err := Export(context.Background(), live(), nil, []string{"S"})
	assert.True(t, errors.IsValidationError(err))

	_, err = Export(context.Background(), live(), nil, []string{"S:missing"})
	assert.Error(t, err)
}
