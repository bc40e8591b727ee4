package monday

import (
	"context"
	"encoding/json"
	"sort"
	"strconv"

	gocache "github.com/patrickmn/go-cache"

	"github.com/tobiasrohr/FInal-merger/pkg/board"
	"github.com/tobiasrohr/FInal-merger/pkg/errors"
	"github.com/tobiasrohr/FInal-merger/pkg/records"
)

const columnsQuery = `query ($board: [ID!]) {
  boards(ids: $board) {
    columns { id title type settings_str }
  }
}`

// Column describes one board column.
type Column = board.Column

// Columns implements board.Client. Results are cached per client for
// constants.ColumnCacheTTL.
func (c *Client) Columns(ctx context.Context, boardID string) ([]Column, error) {
	if err := invalidBoard(boardID); err != nil {
		return nil, err
	}
	if cached, ok := c.columns.Get(boardID); ok {
		return cached.([]Column), nil
	}

	var out struct {
		Boards []struct {
			Columns []Column `json:"columns"`
		} `json:"boards"`
	}
	if err := c.read(ctx, "columns", columnsQuery, map[string]any{"board": []string{boardID}}, &out); err != nil {
		return nil, err
	}
	if len(out.Boards) == 0 {
		return nil, errors.NewNotFoundError("board", boardID)
	}
	cols := out.Boards[0].Columns

	c.columns.Set(boardID, cols, gocache.DefaultExpiration)
	return cols, nil
}

func (c *Client) columnTypes(ctx context.Context, boardID string) (map[records.FieldID]string, error) {
	cols, err := c.Columns(ctx, boardID)
	if err != nil {
		return nil, err
	}
	types := make(map[records.FieldID]string, len(cols))
	for _, col := range cols {
		types[col.ID] = col.Type
	}
	return types, nil
}

// FetchMetadata implements board.Client.
func (c *Client) FetchMetadata(ctx context.Context, boardID string, columnID records.FieldID) ([]records.Option, error) {
	cols, err := c.Columns(ctx, boardID)
	if err != nil {
		return nil, err
	}
	for _, col := range cols {
		if col.ID == columnID {
			return ParseOptions(col.Settings)
		}
	}
	return nil, errors.NewNotFoundError("column", string(columnID))
}

// ParseOptions reads the labels of a status or dropdown column from its
// settings_str. Dropdowns list {id, name} objects; status columns map an
// index to a label string.
func ParseOptions(settings string) ([]records.Option, error) {
	if settings == "" {
		return nil, nil
	}
	var s struct {
		Labels json.RawMessage `json:"labels"`
	}
	if err := json.Unmarshal([]byte(settings), &s); err != nil {
		return nil, errors.WrapParse("json", "settings_str", err)
	}
	if len(s.Labels) == 0 || string(s.Labels) == "null" {
		return nil, nil
	}

	var list []struct {
		ID   json.Number `json:"id"`
		Name string      `json:"name"`
	}
	if err := json.Unmarshal(s.Labels, &list); err == nil {
		out := make([]records.Option, 0, len(list))
		for _, l := range list {
			out = append(out, records.Option{Label: l.Name, ID: l.ID.String()})
		}
		return out, nil
	}

	var dict map[string]json.RawMessage
	if err := json.Unmarshal(s.Labels, &dict); err != nil {
		return nil, errors.WrapParse("json", "settings_str labels", err)
	}
	out := make([]records.Option, 0, len(dict))
	for id, raw := range dict {
		var label string
		if json.Unmarshal(raw, &label) != nil {
			var named struct {
				Name string `json:"name"`
			}
			if json.Unmarshal(raw, &named) != nil {
				continue
			}
			label = named.Name
		}
		if label == "" {
			continue
		}
		out = append(out, records.Option{Label: label, ID: id})
	}
	sort.Slice(out, func(i, j int) bool {
		a, errA := strconv.Atoi(out[i].ID)
		b, errB := strconv.Atoi(out[j].ID)
		if errA == nil && errB == nil {
			return a < b
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}
