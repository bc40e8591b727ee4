package board

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"sync"

	"github.com/tobiasrohr/FInal-merger/pkg/constants"
	"github.com/tobiasrohr/FInal-merger/pkg/errors"
	"github.com/tobiasrohr/FInal-merger/pkg/records"
)

// Memory is an in-memory Client. It backs tests and dry runs against board
// snapshots, counts every call and can inject failures.
type Memory struct {
	mu       sync.Mutex
	boards   map[string]*memBoard
	pageSize int
	nextID   int

	batchErrs []error
	itemErrs  map[string]error
	stats     MemoryStats
}

type memBoard struct {
	order   []string
	items   map[string]records.Record
	options map[records.FieldID][]records.Option
	columns []Column
	groups  map[string]string
}

// MemoryStats counts calls made against a Memory client.
type MemoryStats struct {
	Fetches   int
	Metadata  int
	Batches   int
	Mutations int
}

// Calls returns the total number of API calls.
func (s MemoryStats) Calls() int {
	return s.Fetches + s.Metadata + s.Batches
}

// NewMemory returns an empty in-memory client.
func NewMemory() *Memory {
	return &Memory{
		boards:   make(map[string]*memBoard),
		pageSize: constants.DefaultPageSize,
		itemErrs: make(map[string]error),
	}
}

// SetPageSize changes the page size of FetchAll.
func (m *Memory) SetPageSize(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if n > 0 {
		m.pageSize = n
	}
}

func (m *Memory) board(id string) *memBoard {
	b, ok := m.boards[id]
	if !ok {
		b = &memBoard{
			items:   make(map[string]records.Record),
			options: make(map[records.FieldID][]records.Option),
			groups:  make(map[string]string),
		}
		m.boards[id] = b
	}
	return b
}

// Put adds or replaces items on a board.
func (m *Memory) Put(boardID string, items ...records.Record) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b := m.board(boardID)
	for _, it := range items {
		if _, ok := b.items[it.ID]; !ok {
			b.order = append(b.order, it.ID)
		}
		b.items[it.ID] = clone(it)
	}
}

// SetOptions sets the options of a column.
func (m *Memory) SetOptions(boardID string, column records.FieldID, options ...records.Option) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.board(boardID).options[column] = options
}

// SetColumns declares the columns of a board. Without declared columns,
// Columns derives them from the item fields and option sets.
func (m *Memory) SetColumns(boardID string, columns ...Column) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.board(boardID).columns = append([]Column(nil), columns...)
}

// Group returns the group an item was last moved to, or "".
func (m *Memory) Group(boardID, itemID string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if b, ok := m.boards[boardID]; ok {
		return b.groups[itemID]
	}
	return ""
}

// Items returns a snapshot of a board's items in insertion order.
func (m *Memory) Items(boardID string) []records.Record {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.boards[boardID]
	if !ok {
		return nil
	}
	out := make([]records.Record, 0, len(b.order))
	for _, id := range b.order {
		out = append(out, clone(b.items[id]))
	}
	return out
}

// FailBatches makes the next len(errs) ApplyBatch calls fail with errs in
// order.
func (m *Memory) FailBatches(errs ...error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.batchErrs = append(m.batchErrs, errs...)
}

// FailItem makes every operation for sourceID fail with err.
func (m *Memory) FailItem(sourceID string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.itemErrs[sourceID] = err
}

// Stats returns the call counters.
func (m *Memory) Stats() MemoryStats {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stats
}

// ResetStats zeroes the call counters.
func (m *Memory) ResetStats() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stats = MemoryStats{}
}

// FetchAll implements Client.
func (m *Memory) FetchAll(ctx context.Context, boardID string, fn func([]records.Record) error) error {
	m.mu.Lock()
	b, ok := m.boards[boardID]
	if !ok {
		m.mu.Unlock()
		return errors.NewNotFoundError("board", boardID)
	}
	var pages [][]records.Record
	for start := 0; start < len(b.order); start += m.pageSize {
		end := min(start+m.pageSize, len(b.order))
		page := make([]records.Record, 0, end-start)
		for _, id := range b.order[start:end] {
			page = append(page, clone(b.items[id]))
		}
		pages = append(pages, page)
	}
	m.mu.Unlock()

	for _, page := range pages {
		if err := ctx.Err(); err != nil {
			return err
		}
		m.mu.Lock()
		m.stats.Fetches++
		m.mu.Unlock()
		if err := fn(page); err != nil {
			return err
		}
	}
	return nil
}

// FetchMetadata implements Client.
func (m *Memory) FetchMetadata(_ context.Context, boardID string, column records.FieldID) ([]records.Option, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stats.Metadata++
	b, ok := m.boards[boardID]
	if !ok {
		return nil, errors.NewNotFoundError("board", boardID)
	}
	opts, ok := b.options[column]
	if !ok {
		return nil, errors.NewNotFoundError("column", string(column))
	}
	return append([]records.Option(nil), opts...), nil
}

// ApplyBatch implements Client.
func (m *Memory) ApplyBatch(ctx context.Context, boardID string, ops []Operation) ([]Outcome, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(ops) > constants.MaxBatchSize {
		return nil, errors.NewValidationError("ops", len(ops), fmt.Sprintf("batch exceeds %d operations", constants.MaxBatchSize))
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.stats.Batches++
	if len(m.batchErrs) > 0 {
		err := m.batchErrs[0]
		m.batchErrs = m.batchErrs[1:]
		return nil, err
	}
	b, ok := m.boards[boardID]
	if !ok {
		return nil, errors.NewNotFoundError("board", boardID)
	}

	out := make([]Outcome, len(ops))
	for i, op := range ops {
		out[i] = Outcome{SourceID: op.SourceID}
		if err, ok := m.itemErrs[op.SourceID]; ok {
			out[i].Err = &errors.ItemError{ItemID: op.SourceID, Operation: op.Kind(), Err: err}
			continue
		}
		if op.IsCreate() {
			m.stats.Mutations++
			m.nextID++
			id := fmt.Sprintf("mem-%d", m.nextID)
			rec := records.Record{ID: id, Name: op.Name, Fields: make(map[records.FieldID]records.Value, len(op.Patch))}
			for f, v := range op.Patch {
				rec.Fields[f] = v
			}
			b.order = append(b.order, id)
			b.items[id] = rec
			if op.GroupID != "" {
				b.groups[id] = op.GroupID
			}
			out[i].ItemID = id
			continue
		}
		rec, ok := b.items[op.ItemID]
		if !ok {
			out[i].Err = &errors.ItemError{ItemID: op.ItemID, Operation: op.Kind(), Err: errors.NewNotFoundError("item", op.ItemID)}
			continue
		}
		m.stats.Mutations++
		if rec.Fields == nil {
			rec.Fields = make(map[records.FieldID]records.Value, len(op.Patch))
		}
		for f, v := range op.Patch {
			rec.Fields[f] = v
		}
		b.items[op.ItemID] = rec
		if op.GroupID != "" {
			b.groups[op.ItemID] = op.GroupID
		}
		out[i].ItemID = op.ItemID
	}
	return out, nil
}

// FetchItems implements Client.
func (m *Memory) FetchItems(ctx context.Context, boardID string, ids []string) ([]records.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stats.Fetches++
	b, ok := m.boards[boardID]
	if !ok {
		return nil, errors.NewNotFoundError("board", boardID)
	}
	out := make([]records.Record, 0, len(ids))
	for _, id := range ids {
		if rec, ok := b.items[id]; ok {
			out = append(out, clone(rec))
		}
	}
	return out, nil
}

// Columns implements Client.
func (m *Memory) Columns(ctx context.Context, boardID string) ([]Column, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stats.Metadata++
	b, ok := m.boards[boardID]
	if !ok {
		return nil, errors.NewNotFoundError("board", boardID)
	}
	if len(b.columns) > 0 {
		return append([]Column(nil), b.columns...), nil
	}

	seen := map[records.FieldID]string{records.NameField: "name"}
	for _, it := range b.items {
		for id, v := range it.Fields {
			if _, ok := seen[id]; !ok || seen[id] == "" {
				seen[id] = v.Type
			}
		}
	}
	for id := range b.options {
		if _, ok := seen[id]; !ok {
			seen[id] = "dropdown"
		}
	}
	out := make([]Column, 0, len(seen))
	for id, typ := range seen {
		out = append(out, Column{ID: id, Title: string(id), Type: typ})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func clone(r records.Record) records.Record {
	c := r
	if r.Fields != nil {
		c.Fields = make(map[records.FieldID]records.Value, len(r.Fields))
		for k, v := range r.Fields {
			c.Fields[k] = v
		}
	}
	return c
}

// Snapshot is the on-disk form of a set of boards.
type Snapshot struct {
	Boards map[string]BoardSnapshot `json:"boards"`
}

// BoardSnapshot is one exported board.
type BoardSnapshot struct {
	Items   []records.Record                     `json:"items"`
	Options map[records.FieldID][]records.Option `json:"options,omitempty"`
	Columns []Column                             `json:"columns,omitempty"`
	Groups  map[string]string                    `json:"groups,omitempty"`
}

// ReadSnapshot loads boards exported as JSON into a new Memory client.
func ReadSnapshot(r io.Reader) (*Memory, error) {
	var snap Snapshot
	if err := json.NewDecoder(r).Decode(&snap); err != nil {
		return nil, errors.WrapParse("json", "snapshot", err)
	}
	m := NewMemory()
	for id, b := range snap.Boards {
		m.Put(id, b.Items...)
		for col, opts := range b.Options {
			m.SetOptions(id, col, opts...)
		}
		if len(b.Columns) > 0 {
			m.SetColumns(id, b.Columns...)
		}
		for item, group := range b.Groups {
			m.board(id).groups[item] = group
		}
	}
	return m, nil
}

// LoadSnapshot reads a snapshot file.
func LoadSnapshot(path string) (*Memory, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NewConfigError("snapshot", "snapshot "+path+" does not exist", err)
		}
		return nil, errors.WrapIO("open", path, err)
	}
	defer f.Close()
	return ReadSnapshot(f)
}

// WriteSnapshot exports the given boards as JSON.
func (m *Memory) WriteSnapshot(w io.Writer, boardIDs ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	snap := Snapshot{Boards: make(map[string]BoardSnapshot, len(boardIDs))}
	for _, id := range boardIDs {
		b, ok := m.boards[id]
		if !ok {
			continue
		}
		bs := BoardSnapshot{Options: b.options, Columns: b.columns}
		if len(b.groups) > 0 {
			bs.Groups = b.groups
		}
		for _, itemID := range b.order {
			bs.Items = append(bs.Items, b.items[itemID])
		}
		snap.Boards[id] = bs
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(snap)
}
