// Package merge implements the merge command, the entry point of a
// reconciliation run.
package merge

import (
	"github.com/spf13/cobra"

	indexcmd "github.com/tobiasrohr/FInal-merger/cmd/boardmerge/cmd/index"
	"github.com/tobiasrohr/FInal-merger/internal/appcontext"
	"github.com/tobiasrohr/FInal-merger/internal/cmd/alerts"
	"github.com/tobiasrohr/FInal-merger/internal/cmd/cmdutil"
	"github.com/tobiasrohr/FInal-merger/internal/cmd/output"
	"github.com/tobiasrohr/FInal-merger/pkg/board"
	"github.com/tobiasrohr/FInal-merger/pkg/errors"
	"github.com/tobiasrohr/FInal-merger/pkg/executor"
	"github.com/tobiasrohr/FInal-merger/pkg/index"
	"github.com/tobiasrohr/FInal-merger/pkg/logging"
	"github.com/tobiasrohr/FInal-merger/pkg/mapping"
)

type options struct {
	source      string
	target      string
	mappingPath string
	indexPath   string
	logPath     string
	metricsFile string
	limit       int
	batchSize   int
	dryRun      bool
}

// NewCommand creates the merge command.
func NewCommand(app appcontext.Interface) *cobra.Command {
	o := &options{}
	cmd := &cobra.Command{
		Use:     "merge",
		GroupID: "core",
		Short:   "Merge source board items into the target board",
		Long: `Merge streams the source board, matches every item against the target
index and creates, updates or skips it according to the mapping file.

Every decision is appended to the run log. Items already in the log are
skipped, so an interrupted run resumes where it stopped. Per-item errors are
logged and do not fail the command.

With a follow_up block in the mapping, merged source items are moved to the
duplicate or new group and linked to their target item. Identity columns
and the link column are checked on both boards before anything is read.`,
		Example: `  boardmerge merge --mapping mapping.yaml --log run.jsonl --dry-run
  boardmerge merge --mapping mapping.yaml --index target.idx.json --log run.jsonl --limit 500
  boardmerge merge --snapshot boards.json --mapping mapping.yaml --log dry.jsonl --dry-run`,
		Args: cobra.NoArgs,
	}
	ident := cmdutil.AddIdentityFlags(cmd)
	snapshot := cmdutil.AddSnapshotFlag(cmd)
	cmd.Flags().StringVar(&o.source, "source", "", "Source board ID (default: source_board of the mapping)")
	cmd.Flags().StringVar(&o.target, "target", "", "Target board ID (default: target_board of the mapping)")
	cmd.Flags().StringVar(&o.mappingPath, "mapping", "", "Mapping file (.yaml, .toml or .json)")
	cmd.Flags().StringVar(&o.indexPath, "index", "", "Prebuilt index file (default: index the target board now)")
	cmd.Flags().StringVar(&o.logPath, "log", "", "Run log to append to and resume from")
	cmd.Flags().StringVar(&o.metricsFile, "metrics-file", "", "Write Prometheus metrics to this file when the run ends")
	cmd.Flags().IntVar(&o.limit, "limit", 0, "Process at most N new items (0 means all)")
	cmd.Flags().IntVar(&o.batchSize, "batch-size", 0, "Operations per API call, at most 50")
	cmd.Flags().BoolVar(&o.dryRun, "dry-run", false, "Decide and log without writing to the target board")
	_ = cmd.MarkFlagRequired("mapping")
	_ = cmd.MarkFlagRequired("log")

	cmd.RunE = func(cmd *cobra.Command, _ []string) error {
		return run(cmd, app, o, ident, *snapshot)
	}
	return cmd
}

func run(cmd *cobra.Command, app appcontext.Interface, o *options, ident *cmdutil.IdentityFlags, snapshot string) error {
	transforms := mapping.NewRegistry()
	spec, err := mapping.LoadFile(o.mappingPath, transforms)
	if err != nil {
		return err
	}
	source := cmdutil.First(o.source, spec.SourceBoard)
	target := cmdutil.First(o.target, spec.TargetBoard)
	if source == "" || target == "" {
		return errors.NewConfigError("merge", "source and target boards are required, by flag or in the mapping", nil)
	}
	if source == target {
		return errors.NewValidationError("target", target, "source and target must be different boards")
	}
	batchSize := o.batchSize
	if !cmd.Flags().Changed("batch-size") {
		batchSize = app.BatchSize()
	}

	client, err := app.Board(snapshot)
	if err != nil {
		return err
	}
	ctx := logging.WithLogger(cmd.Context(), app.Logger())

	var idx *index.Index
	if o.indexPath != "" {
		if idx, err = indexcmd.Load(o.indexPath, target); err == nil {
			err = board.RequireColumns(ctx, client, target, "target", idx.Config().Columns()...)
		}
	} else {
		cfg := ident.Apply(cmd, spec.Identity)
		if err = cmdutil.RequireIdentity(cfg); err == nil {
			idx, err = indexcmd.Build(logging.WithBoard(ctx, "target", target), client, target, cfg)
		}
	}
	if err != nil {
		return err
	}
	sourceColumns := append(idx.Config().Columns(), spec.FollowUp.LinkColumn)
	if err := board.RequireColumns(ctx, client, source, "source", sourceColumns...); err != nil {
		return err
	}

	ex, err := executor.New(client, idx, executor.Config{
		SourceBoard: source,
		TargetBoard: target,
		Mappings:    spec.Mappings,
		Limit:       o.limit,
		DryRun:      o.dryRun,
		LogPath:     o.logPath,
		BatchSize:   batchSize,
		FollowUp:    spec.FollowUp,
	},
		executor.WithGate(app.Gate()),
		executor.WithRecorder(app.Metrics()),
		executor.WithTransforms(transforms),
	)
	if err != nil {
		return err
	}

	summary, runErr := ex.Run(ctx)
	if o.metricsFile != "" {
		if err := app.Metrics().WriteFile(o.metricsFile); err != nil {
			app.Logger().Warn().Err(err).Str("file", o.metricsFile).Msg("metrics not written")
		}
	}
	if runErr == nil || !errors.IsSetup(runErr) {
		if err := cmdutil.Print(cmd, app.OutputFormat(), summary, output.SummaryTable(summary)); err != nil && runErr == nil {
			return err
		}
		_ = alerts.Write(cmd.ErrOrStderr(), alerts.LevelSuccess, alerts.ForSummary(summary, o.logPath)...)
	}
	return runErr
}
