// Package snapshot implements the snapshot command, which exports boards to
// a file that --snapshot runs read instead of the API.
package snapshot

import (
	"context"
	"os"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tobiasrohr/FInal-merger/internal/appcontext"
	"github.com/tobiasrohr/FInal-merger/pkg/board"
	"github.com/tobiasrohr/FInal-merger/pkg/constants"
	"github.com/tobiasrohr/FInal-merger/pkg/errors"
	"github.com/tobiasrohr/FInal-merger/pkg/logging"
	"github.com/tobiasrohr/FInal-merger/pkg/records"
)

// NewCommand creates the snapshot command.
func NewCommand(app appcontext.Interface) *cobra.Command {
	var (
		boards  []string
		options []string
		out     string
	)
	cmd := &cobra.Command{
		Use:     "snapshot",
		GroupID: "management",
		Short:   "Export boards for offline dry runs",
		Long: `Snapshot reads every item and column of the given boards, and the option
sets of the given columns, and writes them to a JSON file. Commands run
with --snapshot read that file instead of calling the API.`,
		Example: `  boardmerge snapshot --board 111 --board 222 --options 222:dropdown4 --out boards.json`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, err := app.Monday()
			if err != nil {
				return err
			}
			ctx := logging.WithLogger(cmd.Context(), app.Logger())
			mem, err := Export(ctx, client, boards, options)
			if err != nil {
				return err
			}
			ids := append([]string(nil), boards...)
			for _, spec := range options {
				if id, _, _ := strings.Cut(spec, ":"); !slices.Contains(ids, id) {
					ids = append(ids, id)
				}
			}
			return write(mem, out, ids)
		},
	}
	cmd.Flags().StringArrayVar(&boards, "board", nil, "Board ID to export (repeatable)")
	cmd.Flags().StringArrayVar(&options, "options", nil, "BOARD:COLUMN whose option set to export (repeatable)")
	cmd.Flags().StringVar(&out, "out", "", "Snapshot file to write")
	_ = cmd.MarkFlagRequired("board")
	_ = cmd.MarkFlagRequired("out")
	return cmd
}

// Export copies boards, their columns and column option sets from client
// into memory.
func Export(ctx context.Context, client board.Client, boards, options []string) (*board.Memory, error) {
	mem := board.NewMemory()
	for _, id := range boards {
		n := 0
		err := client.FetchAll(ctx, id, func(page []records.Record) error {
			mem.Put(id, page...)
			n += len(page)
			return nil
		})
		if err != nil {
			return nil, err
		}
		cols, err := client.Columns(ctx, id)
		if err != nil {
			return nil, err
		}
		mem.SetColumns(id, cols...)
		logging.FromContext(ctx).Info().Str("board", id).Int("items", n).Int("columns", len(cols)).Msg("board exported")
	}
	for _, spec := range options {
		id, column, ok := strings.Cut(spec, ":")
		if !ok || id == "" || column == "" {
			return nil, errors.NewValidationError("options", spec, "must be BOARD:COLUMN")
		}
		opts, err := client.FetchMetadata(ctx, id, records.FieldID(column))
		if err != nil {
			return nil, err
		}
		mem.SetOptions(id, records.FieldID(column), opts...)
	}
	return mem, nil
}

func write(mem *board.Memory, path string, boards []string) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, constants.FilePermissions)
	if err != nil {
		return errors.WrapIO("create", path, err)
	}
	if err := mem.WriteSnapshot(f, boards...); err != nil {
		_ = f.Close()
		return errors.WrapIO("write", path, err)
	}
	if err := f.Close(); err != nil {
		return errors.WrapIO("close", path, err)
	}
	return nil
}
