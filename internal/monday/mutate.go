package monday

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/tobiasrohr/FInal-merger/pkg/board"
	"github.com/tobiasrohr/FInal-merger/pkg/constants"
	"github.com/tobiasrohr/FInal-merger/pkg/errors"
	"github.com/tobiasrohr/FInal-merger/pkg/records"
)

// ApplyBatch implements board.Client. All operations go out as aliased
// mutations of a single request.
func (c *Client) ApplyBatch(ctx context.Context, boardID string, ops []board.Operation) ([]board.Outcome, error) {
	if err := invalidBoard(boardID); err != nil {
		return nil, err
	}
	if len(ops) == 0 {
		return nil, nil
	}
	if len(ops) > constants.MaxBatchSize {
		return nil, errors.NewValidationError("ops", len(ops), fmt.Sprintf("batch exceeds %d operations", constants.MaxBatchSize))
	}
	types, err := c.columnTypes(ctx, boardID)
	if err != nil {
		return nil, err
	}
	if err := c.gate.Wait(ctx); err != nil {
		return nil, err
	}

	query, vars, err := buildMutation(boardID, ops, types)
	if err != nil {
		return nil, err
	}
	resp, err := c.exec(ctx, "apply_batch", query, vars)
	if err != nil {
		return nil, err
	}

	var data map[string]*struct {
		ID string `json:"id"`
	}
	if err := resp.decodeData(&data); err != nil {
		return nil, err
	}
	failed := make(map[string]string, len(resp.Errors))
	for _, e := range resp.Errors {
		failed[e.alias()] = e.Message
	}

	out := make([]board.Outcome, len(ops))
	for i, op := range ops {
		out[i] = board.Outcome{SourceID: op.SourceID}
		var id string
		for _, alias := range []string{opAlias(i), moveAlias(i)} {
			if msg := failed[alias]; msg != "" {
				out[i].Err = &errors.ItemError{ItemID: op.SourceID, Operation: op.Kind(), Err: &errors.APIError{Service: serviceName, Message: msg}}
				break
			}
			if res := data[alias]; res != nil && res.ID != "" && id == "" {
				id = res.ID
			}
		}
		switch {
		case out[i].Err != nil:
		case id == "":
			out[i].Err = &errors.ItemError{ItemID: op.SourceID, Operation: op.Kind(), Err: errors.New("no item ID returned")}
		default:
			out[i].ItemID = id
		}
	}
	return out, nil
}

func opAlias(i int) string   { return "op" + strconv.Itoa(i) }
func moveAlias(i int) string { return "mv" + strconv.Itoa(i) }

func buildMutation(boardID string, ops []board.Operation, types map[records.FieldID]string) (string, map[string]any, error) {
	vars := map[string]any{"board": boardID}
	var params, body strings.Builder
	params.WriteString("$board: ID!")

	for i, op := range ops {
		values, err := encodePatch(op.Patch, types)
		if err != nil {
			return "", nil, err
		}
		n := strconv.Itoa(i)
		if op.GroupID != "" {
			vars["g"+n] = op.GroupID
			fmt.Fprintf(&params, ", $g%s: String!", n)
		}
		if op.IsCreate() {
			vars["n"+n] = op.Name
			vars["v"+n] = values
			group := ""
			if op.GroupID != "" {
				group = ", group_id: $g" + n
			}
			fmt.Fprintf(&params, ", $n%s: String!, $v%s: JSON", n, n)
			fmt.Fprintf(&body, "  %s: create_item(board_id: $board%s, item_name: $n%s, column_values: $v%s, create_labels_if_missing: true) { id }\n", opAlias(i), group, n, n)
			continue
		}

		vars["i"+n] = op.ItemID
		fmt.Fprintf(&params, ", $i%s: ID!", n)
		if len(op.Patch) > 0 || op.GroupID == "" {
			vars["v"+n] = values
			fmt.Fprintf(&params, ", $v%s: JSON!", n)
			fmt.Fprintf(&body, "  %s: change_multiple_column_values(board_id: $board, item_id: $i%s, column_values: $v%s, create_labels_if_missing: true) { id }\n", opAlias(i), n, n)
		}
		if op.GroupID != "" {
			fmt.Fprintf(&body, "  %s: move_item_to_group(item_id: $i%s, group_id: $g%s) { id }\n", moveAlias(i), n, n)
		}
	}
	return "mutation (" + params.String() + ") {\n" + body.String() + "}", vars, nil
}

// encodePatch renders a patch as the JSON string the column_values argument
// expects.
func encodePatch(p records.Patch, types map[records.FieldID]string) (string, error) {
	values := make(map[string]any, len(p))
	for id, v := range p {
		values[string(id)] = EncodeValue(types[id], v)
	}
	data, err := json.Marshal(values)
	if err != nil {
		return "", errors.WrapParse("json", "column values", err)
	}
	return string(data), nil
}

// EncodeValue converts a value to the column_values payload for a target
// column of the given type. An empty value clears the column.
func EncodeValue(columnType string, v records.Value) any {
	text := strings.TrimSpace(v.Text)
	raw := rawObject(v.Raw)

	if text == "" {
		switch columnType {
		case "", "text", "name", "numbers", "numeric":
			return ""
		}
		return map[string]any{}
	}

	switch columnType {
	case "long_text", "long-text":
		return map[string]any{"text": text}
	case "email":
		return map[string]any{"email": text, "text": text}
	case "phone":
		return map[string]any{"phone": text}
	case "link":
		if url, ok := raw["url"].(string); ok && url != "" {
			linkText, _ := raw["text"].(string)
			return map[string]any{"url": url, "text": linkText}
		}
		return map[string]any{"url": text, "text": text}
	case "date":
		if date, ok := raw["date"].(string); ok && date != "" {
			out := map[string]any{"date": date}
			if t, ok := raw["time"].(string); ok && t != "" {
				out["time"] = t
			}
			return out
		}
		return map[string]any{"date": text}
	case "dropdown":
		if ids := stringIDs(raw); len(ids) > 0 {
			return map[string]any{"ids": ids}
		}
		return map[string]any{"labels": splitLabels(raw, text)}
	case "board_relation":
		return map[string]any{"item_ids": itemIDs(raw, text)}
	case "status", "color":
		if ids := stringIDs(raw); len(ids) > 0 {
			if n, err := strconv.Atoi(ids[0]); err == nil {
				return map[string]any{"index": n}
			}
		}
		return map[string]any{"label": text}
	default:
		return text
	}
}

func rawObject(raw json.RawMessage) map[string]any {
	if len(raw) == 0 {
		return nil
	}
	var obj map[string]any
	if json.Unmarshal(raw, &obj) != nil {
		return nil
	}
	return obj
}

// stringIDs returns option IDs resolved by this tool. They are encoded as
// strings; the API itself reports dropdown IDs as numbers, so IDs copied
// from a source board are never mistaken for target IDs.
func stringIDs(raw map[string]any) []string {
	list, ok := raw["ids"].([]any)
	if !ok {
		return nil
	}
	ids := make([]string, 0, len(list))
	for _, v := range list {
		s, ok := v.(string)
		if !ok {
			return nil
		}
		ids = append(ids, s)
	}
	return ids
}

// itemIDs reads linked item IDs from a board relation value. The API takes
// them as numbers.
func itemIDs(raw map[string]any, text string) []any {
	var ids []string
	if list, ok := raw["item_ids"].([]any); ok {
		for _, v := range list {
			switch id := v.(type) {
			case string:
				ids = append(ids, id)
			case float64:
				ids = append(ids, strconv.FormatFloat(id, 'f', -1, 64))
			}
		}
	}
	if len(ids) == 0 {
		for _, part := range strings.Split(text, ",") {
			if part = strings.TrimSpace(part); part != "" {
				ids = append(ids, part)
			}
		}
	}
	out := make([]any, 0, len(ids))
	for _, id := range ids {
		if n, err := strconv.ParseInt(id, 10, 64); err == nil {
			out = append(out, n)
		} else {
			out = append(out, id)
		}
	}
	return out
}

func splitLabels(raw map[string]any, text string) []string {
	if list, ok := raw["labels"].([]any); ok {
		labels := make([]string, 0, len(list))
		for _, v := range list {
			if s, ok := v.(string); ok && s != "" {
				labels = append(labels, s)
			}
		}
		if len(labels) > 0 {
			return labels
		}
	}
	var labels []string
	for _, part := range strings.Split(text, ",") {
		if part = strings.TrimSpace(part); part != "" {
			labels = append(labels, part)
		}
	}
	return labels
}
