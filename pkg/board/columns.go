package board

import (
	"context"
	"fmt"
	"strings"

	"github.com/tobiasrohr/FInal-merger/pkg/errors"
	"github.com/tobiasrohr/FInal-merger/pkg/records"
)

// RequireColumns checks that every given column exists on a board. The
// name pseudo column and empty IDs are always accepted. A board that cannot
// be read or lacks any of the columns yields a ConfigError naming all
// missing columns.
func RequireColumns(ctx context.Context, c Client, boardID, role string, ids ...records.FieldID) error {
	var want []records.FieldID
	for _, id := range ids {
		if id != "" && id != records.NameField {
			want = append(want, id)
		}
	}
	if len(want) == 0 {
		return nil
	}

	cols, err := c.Columns(ctx, boardID)
	if err != nil {
		return errors.NewConfigError("columns", fmt.Sprintf("cannot read columns of %s board %s", role, boardID), err)
	}
	have := make(map[records.FieldID]struct{}, len(cols))
	for _, col := range cols {
		have[col.ID] = struct{}{}
	}
	var missing []string
	for _, id := range want {
		if _, ok := have[id]; !ok {
			missing = append(missing, string(id))
		}
	}
	if len(missing) > 0 {
		return errors.NewConfigError("columns",
			fmt.Sprintf("%s board %s has no column %s", role, boardID, strings.Join(missing, ", ")), nil)
	}
	return nil
}
