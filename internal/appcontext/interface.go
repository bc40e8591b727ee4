// Package appcontext provides the application context interface shared by
// all commands.
package appcontext

import (
	"github.com/rs/zerolog"

	"github.com/tobiasrohr/FInal-merger/internal/metrics"
	"github.com/tobiasrohr/FInal-merger/internal/monday"
	"github.com/tobiasrohr/FInal-merger/pkg/board"
	"github.com/tobiasrohr/FInal-merger/pkg/retry"
)

// Interface defines what commands need from the application. The App in
// cmd/boardmerge/app implements it; tests use Mock.
type Interface interface {
	// Monday returns the API client, creating it on first use. A missing
	// token is an authentication error.
	Monday() (*monday.Client, error)

	// Board returns the in-memory board loaded from snapshot when it is
	// set, and the API client otherwise.
	Board(snapshot string) (board.Client, error)

	// Gate is the rate-limit cooldown shared by every API caller.
	Gate() *retry.Gate

	// Metrics holds the counters of this invocation.
	Metrics() *metrics.Metrics

	Logger() *zerolog.Logger

	// OutputFormat returns the configured output format.
	OutputFormat() string

	// BatchSize and SampleSize are configured defaults for merge and
	// validate.
	BatchSize() int
	SampleSize() int

	Version() string
	Commit() string
	Date() string
	BuiltBy() string
}
