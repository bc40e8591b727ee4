package monday

import (
	"context"
	"encoding/json"

	"github.com/tobiasrohr/FInal-merger/pkg/constants"
	"github.com/tobiasrohr/FInal-merger/pkg/errors"
	"github.com/tobiasrohr/FInal-merger/pkg/logging"
	"github.com/tobiasrohr/FInal-merger/pkg/records"
)

const itemFields = `id name column_values { id text value type }`

const itemsPageQuery = `query ($board: [ID!], $limit: Int!, $cursor: String) {
  boards(ids: $board) {
    items_page(limit: $limit, cursor: $cursor) {
      cursor
      items { ` + itemFields + ` }
    }
  }
}`

const itemsByIDQuery = `query ($ids: [ID!], $limit: Int!) {
  items(ids: $ids, limit: $limit) { ` + itemFields + ` }
}`

type apiItem struct {
	ID           string           `json:"id"`
	Name         string           `json:"name"`
	ColumnValues []apiColumnValue `json:"column_values"`
}

type apiColumnValue struct {
	ID    string  `json:"id"`
	Text  *string `json:"text"`
	Value *string `json:"value"`
	Type  string  `json:"type"`
}

func (it apiItem) record() records.Record {
	r := records.Record{ID: it.ID, Name: it.Name, Fields: make(map[records.FieldID]records.Value, len(it.ColumnValues))}
	for _, cv := range it.ColumnValues {
		v := records.Value{Type: cv.Type}
		if cv.Text != nil {
			v.Text = *cv.Text
		}
		if cv.Value != nil && json.Valid([]byte(*cv.Value)) {
			v.Raw = json.RawMessage(*cv.Value)
		}
		r.Fields[records.FieldID(cv.ID)] = v
	}
	return r
}

// FetchAll implements board.Client. Pages follow the API's cursor.
func (c *Client) FetchAll(ctx context.Context, boardID string, fn func([]records.Record) error) error {
	if err := invalidBoard(boardID); err != nil {
		return err
	}
	log := logging.FromContext(ctx)

	var cursor *string
	for page := 1; ; page++ {
		var out struct {
			Boards []struct {
				ItemsPage struct {
					Cursor *string   `json:"cursor"`
					Items  []apiItem `json:"items"`
				} `json:"items_page"`
			} `json:"boards"`
		}
		vars := map[string]any{"board": []string{boardID}, "limit": c.pageSize, "cursor": cursor}
		if err := c.read(ctx, "items_page", itemsPageQuery, vars, &out); err != nil {
			return err
		}
		if len(out.Boards) == 0 {
			return errors.NewNotFoundError("board", boardID)
		}
		ip := out.Boards[0].ItemsPage

		recs := make([]records.Record, 0, len(ip.Items))
		for _, it := range ip.Items {
			recs = append(recs, it.record())
		}
		log.Debug().Str("board", boardID).Int("page", page).Int("items", len(recs)).Msg("fetched page")
		if len(recs) > 0 {
			if err := fn(recs); err != nil {
				return err
			}
		}
		if ip.Cursor == nil || *ip.Cursor == "" {
			return nil
		}
		cursor = ip.Cursor
	}
}

// FetchItems implements board.Client.
func (c *Client) FetchItems(ctx context.Context, boardID string, ids []string) ([]records.Record, error) {
	if err := invalidBoard(boardID); err != nil {
		return nil, err
	}
	out := make([]records.Record, 0, len(ids))
	for start := 0; start < len(ids); start += constants.FetchItemsChunk {
		chunk := ids[start:min(start+constants.FetchItemsChunk, len(ids))]
		var resp struct {
			Items []apiItem `json:"items"`
		}
		vars := map[string]any{"ids": chunk, "limit": len(chunk)}
		if err := c.read(ctx, "items", itemsByIDQuery, vars, &resp); err != nil {
			return nil, err
		}
		for _, it := range resp.Items {
			out = append(out, it.record())
		}
	}
	return out, nil
}
