package index

import (
	"context"

	"github.com/tobiasrohr/FInal-merger/pkg/board"
	"github.com/tobiasrohr/FInal-merger/pkg/errors"
	"github.com/tobiasrohr/FInal-merger/pkg/index"
	"github.com/tobiasrohr/FInal-merger/pkg/logging"
	"github.com/tobiasrohr/FInal-merger/pkg/records"
)

// Build checks that the target board has every identity column, then reads
// all of its items and indexes them.
func Build(ctx context.Context, client board.Client, target string, cfg index.Config) (*index.Index, error) {
	if err := board.RequireColumns(ctx, client, target, "target", cfg.Columns()...); err != nil {
		return nil, err
	}
	var items []records.Record
	pages := 0
	err := client.FetchAll(ctx, target, func(page []records.Record) error {
		pages++
		items = append(items, page...)
		logging.FromContext(ctx).Debug().Int("page", pages).Int("items", len(items)).Msg("target page fetched")
		return nil
	})
	if err != nil {
		return nil, errors.NewConfigError("index", "cannot read target board "+target, err)
	}
	return index.Build(items, cfg), nil
}

// Load reads an index file and checks that it was built for target.
func Load(path, target string) (*index.Index, error) {
	idx, boardID, err := index.LoadFile(path)
	if err != nil {
		return nil, err
	}
	if boardID != "" && target != "" && boardID != target {
		return nil, errors.NewConfigError("index",
			"index "+path+" was built for board "+boardID+", not "+target, nil)
	}
	return idx, nil
}
