// Package board defines the narrow interface through which reconciliation
// talks to a work-management board API, and an in-memory implementation.
package board

import (
	"context"

	"github.com/tobiasrohr/FInal-merger/pkg/records"
)

// Client is the board API collaborator.
type Client interface {
	// FetchAll streams every item of a board to fn, one page at a time,
	// in stable order. An error from fn stops the stream and is returned.
	FetchAll(ctx context.Context, boardID string, fn func(page []records.Record) error) error

	// FetchMetadata returns the options of a dropdown or status column.
	FetchMetadata(ctx context.Context, boardID string, columnID records.FieldID) ([]records.Option, error)

	// ApplyBatch creates or updates items. It returns one outcome per
	// operation, in order, unless the whole batch failed. A rejected
	// batch due to rate limiting yields an error for which
	// errors.IsRateLimited is true and no outcomes.
	ApplyBatch(ctx context.Context, boardID string, ops []Operation) ([]Outcome, error)

	// FetchItems returns the current state of the given items. Items that
	// no longer exist are omitted.
	FetchItems(ctx context.Context, boardID string, ids []string) ([]records.Record, error)

	// Columns lists the columns of a board.
	Columns(ctx context.Context, boardID string) ([]Column, error)
}

// Column describes one board column.
type Column struct {
	ID       records.FieldID `json:"id"`
	Title    string          `json:"title"`
	Type     string          `json:"type"`
	Settings string          `json:"settings_str,omitempty"`
}

// Operation is one create or update. An empty ItemID means create.
type Operation struct {
	// SourceID correlates the operation with its source item.
	SourceID string
	ItemID   string
	Name     string
	Patch    records.Patch
	// GroupID, when set, moves the item into that group.
	GroupID string
}

// IsCreate reports whether the operation creates a new item.
func (o Operation) IsCreate() bool { return o.ItemID == "" }

// Kind returns "create" or "update".
func (o Operation) Kind() string {
	if o.IsCreate() {
		return "create"
	}
	return "update"
}

// Outcome is the result of one operation. ItemID is the created or updated
// item when Err is nil.
type Outcome struct {
	SourceID string
	ItemID   string
	Err      error
}
