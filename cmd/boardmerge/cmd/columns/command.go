// Package columns implements the columns command, which lists board columns
// and the option sets of dropdown and status columns.
package columns

import (
	"github.com/spf13/cobra"

	"github.com/tobiasrohr/FInal-merger/internal/appcontext"
	"github.com/tobiasrohr/FInal-merger/internal/cmd/cmdutil"
	"github.com/tobiasrohr/FInal-merger/internal/cmd/output"
	"github.com/tobiasrohr/FInal-merger/pkg/records"
)

// NewCommand creates the columns command.
func NewCommand(app appcontext.Interface) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "columns BOARD [COLUMN]",
		GroupID: "management",
		Short:   "List the columns of a board or the options of one column",
		Long: `Without COLUMN, columns prints the ID, title and type of every column of
BOARD. With COLUMN, it prints the option labels and IDs that label
resolution uses for that dropdown or status column.`,
		Example: `  boardmerge columns 123
  boardmerge columns 123 dropdown4 -o json`,
		Args: cobra.RangeArgs(1, 2),
	}
	snapshot := cmdutil.AddSnapshotFlag(cmd)

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		boardID := args[0]
		client, err := app.Board(*snapshot)
		if err != nil {
			return err
		}
		if len(args) == 2 {
			opts, err := client.FetchMetadata(cmd.Context(), boardID, records.FieldID(args[1]))
			if err != nil {
				return err
			}
			return cmdutil.Print(cmd, app.OutputFormat(), opts, output.OptionsTable(opts))
		}

		cols, err := client.Columns(cmd.Context(), boardID)
		if err != nil {
			return err
		}
		return cmdutil.Print(cmd, app.OutputFormat(), cols, output.ColumnsTable(cols))
	}
	return cmd
}
