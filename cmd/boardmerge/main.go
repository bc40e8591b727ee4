// Package main provides the entry point for the boardmerge CLI.
package main

import (
	"context"
	"os"

	"github.com/tobiasrohr/FInal-merger/cmd/boardmerge/app"
	"github.com/tobiasrohr/FInal-merger/pkg/constants"
)

// Version information populated by goreleaser.
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
	builtBy = "unknown"
)

func main() {
	application, err := app.New(version, commit, date, builtBy)
	if err != nil {
		app.ExitOnError(err)
	}

	ctx, cancel := app.ContextWithSignals(context.Background())
	defer cancel()

	err = application.Execute(ctx, os.Args[1:])

	// The signal context may be cancelled already.
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), constants.ShutdownTimeout)
	if shutdownErr := application.Shutdown(shutdownCtx); shutdownErr != nil {
		application.Logger().Error().Err(shutdownErr).Msg("shutdown error")
	}
	shutdownCancel()
	cancel()

	app.ExitOnError(err)
}
