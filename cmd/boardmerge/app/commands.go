package app

import (
	"github.com/spf13/cobra"

	"github.com/tobiasrohr/FInal-merger/cmd/boardmerge/cmd/columns"
	"github.com/tobiasrohr/FInal-merger/cmd/boardmerge/cmd/index"
	"github.com/tobiasrohr/FInal-merger/cmd/boardmerge/cmd/merge"
	"github.com/tobiasrohr/FInal-merger/cmd/boardmerge/cmd/snapshot"
	"github.com/tobiasrohr/FInal-merger/cmd/boardmerge/cmd/validate"
)

func (a *App) registerCommands(rootCmd *cobra.Command) {
	// Core commands
	rootCmd.AddCommand(index.NewCommand(a))
	rootCmd.AddCommand(merge.NewCommand(a))
	rootCmd.AddCommand(validate.NewCommand(a))

	// Management commands
	rootCmd.AddCommand(columns.NewCommand(a))
	rootCmd.AddCommand(snapshot.NewCommand(a))

	rootCmd.AddCommand(a.newVersionCommand())
}

func (a *App) newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			cmd.Printf("boardmerge %s\n", a.version)
			if a.config.Verbose {
				cmd.Printf("  commit:   %s\n", a.commit)
				cmd.Printf("  built:    %s\n", a.date)
				cmd.Printf("  built by: %s\n", a.builtBy)
			}
		},
	}
}
