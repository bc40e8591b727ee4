package app

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tobiasrohr/FInal-merger/pkg/errors"
)

// Exit codes. Per-item errors are recorded in the run log and never change
// the exit code.
const (
	ExitOK          = 0
	ExitFailure     = 1
	ExitInterrupted = 130
)

// Execute runs the CLI with args.
func (a *App) Execute(ctx context.Context, args []string) error {
	rootCmd := a.createRootCommand()
	rootCmd.SetArgs(args)
	return rootCmd.ExecuteContext(ctx)
}

func (a *App) createRootCommand() *cobra.Command {
	var configFile string
	rootCmd := &cobra.Command{
		Use:     "boardmerge",
		Short:   "Reconcile two monday.com boards",
		Version: a.version,
		Long: `boardmerge finds which items of a source board already exist in a target
board, fills their empty fields and creates the items that are genuinely new.

Runs are rate limited, batched and recorded in an append-only run log, so a
run can be interrupted and restarted at any time. The API token is read from
MONDAY_API_TOKEN.`,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setupCommand(cmd, configFile)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddGroup(&cobra.Group{ID: "core", Title: "Core Commands:"})
	rootCmd.AddGroup(&cobra.Group{ID: "management", Title: "Management Commands:"})

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file (default is $HOME/.boardmerge.yaml)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "verbose output (shortcut for --log-level=debug)")
	rootCmd.PersistentFlags().BoolP("quiet", "q", false, "minimal output (shortcut for --log-level=warn)")
	rootCmd.PersistentFlags().Bool("no-color", false, "disable colored output")
	rootCmd.PersistentFlags().StringP("format", "o", "", "output format: table, wide, json, yaml")
	rootCmd.PersistentFlags().String("log-level", "", "log level: trace, debug, info, warn, error (overrides -v/-q)")

	rootCmd.SetVersionTemplate("boardmerge {{.Version}}\n")
	a.registerCommands(rootCmd)
	return rootCmd
}

// setupCommand applies the config file and flags before any command runs.
func (a *App) setupCommand(cmd *cobra.Command, configFile string) error {
	if configFile != "" {
		config, err := LoadConfig(configFile)
		if err != nil {
			return err
		}
		a.config = config
	}

	flags := cmd.Flags()
	verbose, _ := flags.GetBool("verbose")
	quiet, _ := flags.GetBool("quiet")
	noColor, _ := flags.GetBool("no-color")
	format, _ := flags.GetString("format")
	logLevel, _ := flags.GetString("log-level")
	a.config.UpdateFromFlags(verbose, quiet, noColor, format, logLevel)

	logger := NewLogger(a.config, a.stderr)
	a.logger = &logger
	return nil
}

// ExitCode maps a command error to the process exit status.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return ExitOK
	case errors.Is(err, context.Canceled):
		return ExitInterrupted
	default:
		return ExitFailure
	}
}

// ExitOnError prints err and exits with its exit code. It returns when err
// is nil.
func ExitOnError(err error) {
	if err == nil {
		return
	}
	prefix := "Error"
	if errors.IsSetup(err) {
		prefix = "Setup error"
	}
	_, _ = fmt.Fprintf(os.Stderr, "%s: %v\n", prefix, err)
	os.Exit(ExitCode(err))
}
