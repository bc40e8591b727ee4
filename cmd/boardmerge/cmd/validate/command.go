// Package validate implements the validate command, which spot-checks a run
// log against the live target board.
package validate

import (
	"github.com/spf13/cobra"

	"github.com/tobiasrohr/FInal-merger/internal/appcontext"
	"github.com/tobiasrohr/FInal-merger/internal/cmd/alerts"
	"github.com/tobiasrohr/FInal-merger/internal/cmd/cmdutil"
	"github.com/tobiasrohr/FInal-merger/internal/cmd/output"
	"github.com/tobiasrohr/FInal-merger/pkg/errors"
	"github.com/tobiasrohr/FInal-merger/pkg/logging"
	"github.com/tobiasrohr/FInal-merger/pkg/mapping"
	"github.com/tobiasrohr/FInal-merger/pkg/runlog"
	"github.com/tobiasrohr/FInal-merger/pkg/validator"
)

// NewCommand creates the validate command.
func NewCommand(app appcontext.Interface) *cobra.Command {
	var (
		logPath     string
		target      string
		mappingPath string
		sampleSize  int
		seed        uint64
		concurrency int
		reportPath  string
	)
	cmd := &cobra.Command{
		Use:     "validate",
		GroupID: "core",
		Short:   "Check a sample of logged writes against the target board",
		Long: `Validate samples created and updated entries of a run log, re-reads the
target items and compares every logged field with its live value.

It reports confirmed, mismatched and missing items and never changes the
board. Dry-run entries are ignored.`,
		Example: `  boardmerge validate --log run.jsonl --target 123
  boardmerge validate --log run.jsonl --mapping mapping.yaml --sample-size 0 -o wide
  boardmerge validate --log run.jsonl --target 123 --report validation.md`,
		Args: cobra.NoArgs,
	}
	snapshot := cmdutil.AddSnapshotFlag(cmd)
	cmd.Flags().StringVar(&logPath, "log", "", "Run log to validate")
	cmd.Flags().StringVar(&target, "target", "", "Target board ID")
	cmd.Flags().StringVar(&mappingPath, "mapping", "", "Mapping file providing the target board")
	cmd.Flags().IntVar(&sampleSize, "sample-size", 0, "Entries to check, 0 for all (default from config)")
	cmd.Flags().Uint64Var(&seed, "seed", 0, "Seed for reproducible sampling")
	cmd.Flags().IntVar(&concurrency, "concurrency", 0, "Parallel item fetches")
	cmd.Flags().StringVar(&reportPath, "report", "", "Also write the report as Markdown to this file")
	_ = cmd.MarkFlagRequired("log")

	cmd.RunE = func(cmd *cobra.Command, _ []string) error {
		if mappingPath != "" && target == "" {
			spec, err := mapping.LoadFile(mappingPath, mapping.NewRegistry())
			if err != nil {
				return err
			}
			target = spec.TargetBoard
		}
		if target == "" {
			return errors.NewConfigError("validate", "--target or a mapping with target_board is required", nil)
		}
		if !cmd.Flags().Changed("sample-size") {
			sampleSize = app.SampleSize()
		}

		entries, err := runlog.ReadFile(logPath)
		if err != nil {
			return err
		}
		client, err := app.Board(*snapshot)
		if err != nil {
			return err
		}

		opts := []validator.Option{validator.WithConcurrency(concurrency)}
		if cmd.Flags().Changed("seed") {
			opts = append(opts, validator.WithSeed(seed))
		}
		ctx := logging.WithBoard(logging.WithLogger(cmd.Context(), app.Logger()), "target", target)
		report, err := validator.Validate(ctx, client, target, entries, sampleSize, opts...)
		if err != nil {
			return err
		}
		if reportPath != "" {
			if err := output.WriteReportMarkdown(reportPath, report); err != nil {
				return err
			}
		}
		if err := cmdutil.Print(cmd, app.OutputFormat(), report, output.ReportTable(report)); err != nil {
			return err
		}
		return alerts.Write(cmd.ErrOrStderr(), alerts.LevelSuccess, alerts.ForReport(report)...)
	}
	return cmd
}
