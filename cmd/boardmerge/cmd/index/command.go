// Package index implements the index command, which builds and inspects
// duplicate index artifacts.
package index

import (
	"github.com/spf13/cobra"

	"github.com/tobiasrohr/FInal-merger/internal/appcontext"
	"github.com/tobiasrohr/FInal-merger/internal/cmd/cmdutil"
	"github.com/tobiasrohr/FInal-merger/internal/cmd/output"
	"github.com/tobiasrohr/FInal-merger/pkg/errors"
	"github.com/tobiasrohr/FInal-merger/pkg/index"
	"github.com/tobiasrohr/FInal-merger/pkg/logging"
	"github.com/tobiasrohr/FInal-merger/pkg/mapping"
)

// NewCommand creates the index command.
func NewCommand(app appcontext.Interface) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "index",
		GroupID: "core",
		Short:   "Build and inspect duplicate index artifacts",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}
	cmd.AddCommand(newBuildCommand(app))
	cmd.AddCommand(newShowCommand(app))
	return cmd
}

func newBuildCommand(app appcontext.Interface) *cobra.Command {
	var target, mappingPath, out string
	cmd := &cobra.Command{
		Use:   "build",
		Short: "Index the target board by its identity columns",
		Long: `Build reads every item of the target board once, extracts the normalized
identity keys and writes the index to a file that merge runs can reuse.

Identity columns come from --mapping and can be overridden by flags.`,
		Example: `  boardmerge index build --target 123 --email-column email --reference-column text7 --out target.idx.json
  boardmerge index build --mapping mapping.yaml --out target.idx.json`,
		Args: cobra.NoArgs,
	}
	ident := cmdutil.AddIdentityFlags(cmd)
	snapshot := cmdutil.AddSnapshotFlag(cmd)
	cmd.Flags().StringVar(&target, "target", "", "Target board ID")
	cmd.Flags().StringVar(&mappingPath, "mapping", "", "Mapping file providing the target board and identity columns")
	cmd.Flags().StringVar(&out, "out", "", "Index file to write")
	_ = cmd.MarkFlagRequired("out")

	cmd.RunE = func(cmd *cobra.Command, _ []string) error {
		var cfg index.Config
		if mappingPath != "" {
			spec, err := mapping.LoadFile(mappingPath, mapping.NewRegistry())
			if err != nil {
				return err
			}
			cfg = spec.Identity
			target = cmdutil.First(target, spec.TargetBoard)
		}
		cfg = ident.Apply(cmd, cfg)
		if target == "" {
			return errors.NewConfigError("index", "--target or a mapping with target_board is required", nil)
		}
		if err := cmdutil.RequireIdentity(cfg); err != nil {
			return err
		}

		client, err := app.Board(*snapshot)
		if err != nil {
			return err
		}
		ctx := logging.WithBoard(logging.WithLogger(cmd.Context(), app.Logger()), "target", target)
		idx, err := Build(ctx, client, target, cfg)
		if err != nil {
			return err
		}
		if err := idx.SaveFile(out, target); err != nil {
			return err
		}
		logging.FromContext(ctx).Info().Str("file", out).Int("targets", idx.Len()).Msg("index written")

		stats := idx.Stats()
		return cmdutil.Print(cmd, app.OutputFormat(), stats, output.IndexTable(stats))
	}
	return cmd
}

func newShowCommand(app appcontext.Interface) *cobra.Command {
	return &cobra.Command{
		Use:   "show FILE",
		Short: "Show key coverage and collisions of an index file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			idx, boardID, err := index.LoadFile(args[0])
			if err != nil {
				return err
			}
			app.Logger().Debug().Str("board", boardID).Int("targets", idx.Len()).Msg("index loaded")
			stats := idx.Stats()
			return cmdutil.Print(cmd, app.OutputFormat(), stats, output.IndexTable(stats))
		},
	}
}
