package index_test

import (
	"bytes"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tobiasrohr/FInal-merger/pkg/errors"
	"github.com/tobiasrohr/FInal-merger/pkg/index"
	"github.com/tobiasrohr/FInal-merger/pkg/records"
)

const (
	emailCol = records.FieldID("email")
	refCol   = records.FieldID("hf4u")
	extCol   = records.FieldID("candidate_id")
)

var cfg = index.Config{
	EmailColumn:     emailCol,
	ReferenceColumn: refCol,
	CompositeColumn: extCol,
}

func item(id, name string, fields map[records.FieldID]string) records.Record {
	r := records.Record{ID: id, Name: name, Fields: map[records.FieldID]records.Value{}}
	for k, v := range fields {
		r.Fields[k] = records.TextValue(v)
	}
	return r
}

func TestBuildSkipsEmptyKeys(t *testing.T) {
	idx := index.Build([]records.Record{
		item("t1", "Jane", map[records.FieldID]string{emailCol: "jane@x.com"}),
		item("t2", "John", map[records.FieldID]string{emailCol: "  ", refCol: ""}),
	}, cfg)

	stats := idx.Stats()
	assert.Equal(t, 2, stats.Targets)
	assert.Equal(t, 1, stats.Keys[index.DimensionEmail])
	assert.Zero(t, stats.Keys[index.DimensionReference])
	assert.Empty(t, idx.Candidates(index.DimensionEmail, ""))
}

func TestLookupEmailCaseInsensitive(t *testing.T) {
	idx := index.Build([]records.Record{
		item("t1", "Jane", map[records.FieldID]string{emailCol: "a@b.com"}),
	}, cfg)

	res := idx.Lookup(item("s1", "Jane", map[records.FieldID]string{emailCol: "  A@B.com "}))
	assert.Equal(t, index.StatusMatched, res.Status)
	assert.Equal(t, index.DimensionEmail, res.Dimension)
	assert.Equal(t, "t1", res.TargetID)
}

func TestLookupPriority(t *testing.T) {
	idx := index.Build([]records.Record{
		item("t1", "Jane", map[records.FieldID]string{emailCol: "jane@x.com", refCol: "HF4U-1"}),
		item("t2", "Other", map[records.FieldID]string{refCol: "HF4U-2"}),
	}, cfg)

	t.Run("reference when email missing", func(t *testing.T) {
		res := idx.Lookup(item("s1", "X", map[records.FieldID]string{refCol: "hf4u-2"}))
		assert.Equal(t, index.StatusMatched, res.Status)
		assert.Equal(t, index.DimensionReference, res.Dimension)
		assert.Equal(t, "t2", res.TargetID)
	})

	t.Run("agreeing dimensions", func(t *testing.T) {
		res := idx.Lookup(item("s2", "X", map[records.FieldID]string{emailCol: "jane@x.com", refCol: "HF4U-1"}))
		assert.Equal(t, index.StatusMatched, res.Status)
		assert.Equal(t, index.DimensionEmail, res.Dimension)
		assert.Equal(t, "t1", res.TargetID)
	})

	t.Run("disagreeing dimensions are ambiguous", func(t *testing.T) {
		res := idx.Lookup(item("s3", "X", map[records.FieldID]string{emailCol: "jane@x.com", refCol: "HF4U-2"}))
		assert.Equal(t, index.StatusAmbiguous, res.Status)
		assert.Equal(t, []string{"t1", "t2"}, res.Candidates)
		assert.Empty(t, res.TargetID)
	})

	t.Run("no match", func(t *testing.T) {
		res := idx.Lookup(item("s4", "X", map[records.FieldID]string{emailCol: "nobody@x.com"}))
		assert.Equal(t, index.StatusNoMatch, res.Status)
	})
}

func TestLookupSharedReferenceIsAmbiguous(t *testing.T) {
	idx := index.Build([]records.Record{
		item("t1", "A", map[records.FieldID]string{refCol: "HF4U-100"}),
		item("t2", "B", map[records.FieldID]string{refCol: "HF4U-100"}),
	}, cfg)

	res := idx.Lookup(item("s1", "C", map[records.FieldID]string{refCol: "HF4U-100"}))
	assert.Equal(t, index.StatusAmbiguous, res.Status)
	assert.Equal(t, index.DimensionReference, res.Dimension)
	assert.Equal(t, []string{"t1", "t2"}, res.Candidates)
	assert.Equal(t, []string{"HF4U-100"}, idx.Stats().Collisions[index.DimensionReference])

	err := res.Err("s1")
	require.Error(t, err)
	assert.True(t, errors.IsAmbiguous(err))
	var amb *errors.AmbiguousMatchError
	require.ErrorAs(t, err, &amb)
	assert.Equal(t, "s1", amb.SourceID)
	assert.Equal(t, []string{"t1", "t2"}, amb.Candidates)

	assert.NoError(t, idx.Lookup(item("s2", "D", map[records.FieldID]string{refCol: "OTHER"})).Err("s2"))
}

func TestConfigColumns(t *testing.T) {
	assert.Equal(t, []records.FieldID{emailCol, refCol, extCol}, cfg.Columns())
	assert.Empty(t, index.Config{NameFallback: true}.Columns())
}

func TestLookupComposite(t *testing.T) {
	idx := index.Build([]records.Record{
		item("t1", "Jane Doe", map[records.FieldID]string{extCol: "EXT-7"}),
	}, cfg)

	res := idx.Lookup(item("s1", "jane  doe", map[records.FieldID]string{extCol: "ext-7"}))
	assert.Equal(t, index.StatusMatched, res.Status)
	assert.Equal(t, index.DimensionComposite, res.Dimension)
}

func TestLookupNameFallback(t *testing.T) {
	withName := cfg
	withName.NameFallback = true
	idx := index.Build([]records.Record{
		item("t1", "Jürgen Müller", nil),
		item("t2", "Anna Schmidt", nil),
		item("t3", "Anna Schmidt", nil),
	}, withName)

	t.Run("used when source has no email or reference", func(t *testing.T) {
		res := idx.Lookup(item("s1", "juergen mueller", nil))
		assert.Equal(t, index.StatusMatched, res.Status)
		assert.Equal(t, index.DimensionName, res.Dimension)
		assert.Equal(t, "t1", res.TargetID)
	})

	t.Run("skipped when source carries an email", func(t *testing.T) {
		res := idx.Lookup(item("s2", "Jürgen Müller", map[records.FieldID]string{emailCol: "jm@x.com"}))
		assert.Equal(t, index.StatusNoMatch, res.Status)
	})

	t.Run("duplicates are ambiguous", func(t *testing.T) {
		res := idx.Lookup(item("s3", "Anna Schmidt", nil))
		assert.Equal(t, index.StatusAmbiguous, res.Status)
		assert.Equal(t, []string{"t2", "t3"}, res.Candidates)
	})
}

func TestLookupIsReadOnly(t *testing.T) {
	idx := index.Build([]records.Record{
		item("t1", "Jane", map[records.FieldID]string{emailCol: "jane@x.com"}),
	}, cfg)
	before := idx.Stats()

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			idx.Lookup(item("s", "Jane", map[records.FieldID]string{emailCol: "JANE@x.com"}))
		}()
	}
	wg.Wait()

	assert.Equal(t, before, idx.Stats())
	assert.Equal(t, 1, idx.Len())
}

func TestSaveLoadRoundTrip(t *testing.T) {
	idx := index.Build([]records.Record{
		item("t1", "Jane", map[records.FieldID]string{emailCol: "jane@x.com", refCol: "HF4U-1"}),
		item("t2", "John", map[records.FieldID]string{refCol: "HF4U-2"}),
	}, cfg)

	path := filepath.Join(t.TempDir(), "out", "index.json")
	require.NoError(t, idx.SaveFile(path, "target-1"))

	loaded, boardID, err := index.LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "target-1", boardID)
	assert.Equal(t, cfg, loaded.Config())
	assert.Equal(t, idx.Stats(), loaded.Stats())

	res := loaded.Lookup(item("s1", "X", map[records.FieldID]string{refCol: "HF4U-2"}))
	assert.Equal(t, "t2", res.TargetID)

	target, ok := loaded.Target("t1")
	require.True(t, ok)
	assert.Equal(t, "jane@x.com", target.Text(emailCol))
}

func TestLoadRejectsUnknownVersion(t *testing.T) {
	_, _, err := index.Load(bytes.NewBufferString(`{"version": 99, "targets": []}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "version")
}

func TestLoadFileMissing(t *testing.T) {
	_, _, err := index.LoadFile(filepath.Join(t.TempDir(), "nope.json"))
	require.Error(t, err)
}
