package board_test

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tobiasrohr/FInal-merger/pkg/board"
	"github.com/tobiasrohr/FInal-merger/pkg/errors"
	"github.com/tobiasrohr/FInal-merger/pkg/records"
)

var _ board.Client = (*board.Memory)(nil)

func item(id, name string) records.Record {
	return records.Record{ID: id, Name: name, Fields: map[records.FieldID]records.Value{}}
}

func TestFetchAllPages(t *testing.T) {
	m := board.NewMemory()
	m.SetPageSize(2)
	m.Put("b1", item("1", "a"), item("2", "b"), item("3", "c"))

	var sizes []int
	var ids []string
	err := m.FetchAll(context.Background(), "b1", func(page []records.Record) error {
		sizes = append(sizes, len(page))
		for _, r := range page {
			ids = append(ids, r.ID)
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []int{2, 1}, sizes)
	assert.Equal(t, []string{"1", "2", "3"}, ids)
	assert.Equal(t, 2, m.Stats().Fetches)

	err = m.FetchAll(context.Background(), "missing", func([]records.Record) error { return nil })
	assert.True(t, errors.IsNotFound(err))
}

func TestApplyBatch(t *testing.T) {
	ctx := context.Background()
	m := board.NewMemory()
	m.Put("t", item("10", "Jane"))
	m.FailItem("s3", errors.New("column locked"))

	out, err := m.ApplyBatch(ctx, "t", []board.Operation{
		{SourceID: "s1", Name: "New", Patch: records.Patch{"phone": records.TextValue("1")}},
		{SourceID: "s2", ItemID: "10", Patch: records.Patch{"phone": records.TextValue("2")}},
		{SourceID: "s3", ItemID: "10", Patch: records.Patch{"phone": records.TextValue("3")}},
		{SourceID: "s4", ItemID: "99"},
	})
	require.NoError(t, err)
	require.Len(t, out, 4)
	assert.NotEmpty(t, out[0].ItemID)
	assert.NoError(t, out[0].Err)
	assert.Equal(t, "10", out[1].ItemID)
	assert.Error(t, out[2].Err)
	assert.True(t, errors.IsNotFound(out[3].Err))

	got, err := m.FetchItems(ctx, "t", []string{"10", out[0].ItemID, "gone"})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "2", got[0].Text("phone"))
	assert.Equal(t, "New", got[1].Name)

	stats := m.Stats()
	assert.Equal(t, 1, stats.Batches)
	assert.Equal(t, 2, stats.Mutations)
}

func TestInjectedBatchFailure(t *testing.T) {
	m := board.NewMemory()
	m.Put("t", item("10", "Jane"))
	m.FailBatches(errors.NewRateLimitError("memory", 0, "slow down"))

	ops := []board.Operation{{SourceID: "s1", ItemID: "10", Patch: records.Patch{"x": records.TextValue("y")}}}
	_, err := m.ApplyBatch(context.Background(), "t", ops)
	assert.True(t, errors.IsRateLimited(err))

	out, err := m.ApplyBatch(context.Background(), "t", ops)
	require.NoError(t, err)
	assert.NoError(t, out[0].Err)
}

func TestBatchSizeLimit(t *testing.T) {
	m := board.NewMemory()
	ops := make([]board.Operation, 51)
	_, err := m.ApplyBatch(context.Background(), "t", ops)
	assert.True(t, errors.IsValidationError(err))
}

func TestFetchMetadata(t *testing.T) {
	m := board.NewMemory()
	m.SetOptions("t", "lang", records.Option{Label: "German", ID: "1"})

	opts, err := m.FetchMetadata(context.Background(), "t", "lang")
	require.NoError(t, err)
	assert.Equal(t, []records.Option{{Label: "German", ID: "1"}}, opts)

	_, err = m.FetchMetadata(context.Background(), "t", "other")
	assert.True(t, errors.IsNotFound(err))
}

func TestSnapshotRoundTrip(t *testing.T) {
	m := board.NewMemory()
	m.Put("t", records.Record{ID: "1", Name: "Jane", Fields: map[records.FieldID]records.Value{"email": records.TextValue("jane@x.com")}})
	m.SetOptions("t", "lang", records.Option{Label: "German", ID: "1"})

	var buf bytes.Buffer
	require.NoError(t, m.WriteSnapshot(&buf, "t"))

	loaded, err := board.ReadSnapshot(&buf)
	require.NoError(t, err)
	assert.Equal(t, m.Items("t"), loaded.Items("t"))
	opts, err := loaded.FetchMetadata(context.Background(), "t", "lang")
	require.NoError(t, err)
	assert.Len(t, opts, 1)
}

func TestSnapshotKeepsColumnsAndGroups(t *testing.T) {
	ctx := context.Background()
	m := board.NewMemory()
	m.Put("t", item("1", "Jane"))
	m.SetColumns("t", board.Column{ID: "email", Title: "E-Mail", Type: "email"})
	_, err := m.ApplyBatch(ctx, "t", []board.Operation{{SourceID: "s1", ItemID: "1", GroupID: "done"}})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, m.WriteSnapshot(&buf, "t"))
	loaded, err := board.ReadSnapshot(&buf)
	require.NoError(t, err)

	cols, err := loaded.Columns(ctx, "t")
	require.NoError(t, err)
	assert.Equal(t, []board.Column{{ID: "email", Title: "E-Mail", Type: "email"}}, cols)
	assert.Equal(t, "done", loaded.Group("t", "1"))
}

func TestApplyBatchMovesToGroup(t *testing.T) {
	ctx := context.Background()
	m := board.NewMemory()
	m.Put("s", item("1", "Jane"))

	out, err := m.ApplyBatch(ctx, "s", []board.Operation{
		{SourceID: "1", ItemID: "1", GroupID: "duplicates", Patch: records.Patch{"link": records.RelationValue("900")}},
		{SourceID: "2", Name: "Max", GroupID: "copied"},
	})
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, "duplicates", m.Group("s", "1"))
	assert.Equal(t, "copied", m.Group("s", out[1].ItemID))
	assert.Equal(t, "900", m.Items("s")[0].Text("link"))
	assert.Empty(t, m.Group("missing", "1"))
}

func TestColumns(t *testing.T) {
	ctx := context.Background()
	m := board.NewMemory()
	m.Put("t", records.Record{ID: "1", Name: "Jane", Fields: map[records.FieldID]records.Value{
		"email": records.TextValue("jane@x.com"),
		"lang":  records.LabelsValue("German"),
	}})
	m.SetOptions("t", "status", records.Option{Label: "Done", ID: "1"})

	cols, err := m.Columns(ctx, "t")
	require.NoError(t, err)
	assert.Equal(t, []board.Column{
		{ID: "email", Title: "email"},
		{ID: "lang", Title: "lang", Type: "dropdown"},
		{ID: "name", Title: "name", Type: "name"},
		{ID: "status", Title: "status", Type: "dropdown"},
	}, cols)
	assert.Equal(t, 1, m.Stats().Metadata)

	m.SetColumns("t", board.Column{ID: "email", Title: "E-Mail", Type: "email"})
	cols, err = m.Columns(ctx, "t")
	require.NoError(t, err)
	assert.Len(t, cols, 1)

	_, err = m.Columns(ctx, "missing")
	assert.True(t, errors.IsNotFound(err))
}

func TestRequireColumns(t *testing.T) {
	ctx := context.Background()
	m := board.NewMemory()
	m.Put("t", records.Record{ID: "1", Name: "Jane", Fields: map[records.FieldID]records.Value{"email": records.TextValue("jane@x.com")}})

	require.NoError(t, board.RequireColumns(ctx, m, "t", "target", "email", records.NameField, ""))
	require.NoError(t, board.RequireColumns(ctx, m, "missing", "target"), "nothing to check needs no call")

	err := board.RequireColumns(ctx, m, "t", "target", "email", "e_mial", "ref")
	assert.True(t, errors.IsSetup(err))
	assert.Contains(t, err.Error(), "e_mial, ref")

	err = board.RequireColumns(ctx, m, "missing", "source", "email")
	assert.True(t, errors.IsSetup(err))
	assert.True(t, errors.IsNotFound(err))
}
