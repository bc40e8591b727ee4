// Package app holds the configuration, logger and lazily created API client
// shared by the boardmerge commands.
package app

import (
	"context"
	"io"
	"os"
	"sync"

	"github.com/rs/zerolog"

	"github.com/tobiasrohr/FInal-merger/internal/appcontext"
	"github.com/tobiasrohr/FInal-merger/internal/metrics"
	"github.com/tobiasrohr/FInal-merger/internal/monday"
	"github.com/tobiasrohr/FInal-merger/pkg/board"
	"github.com/tobiasrohr/FInal-merger/pkg/errors"
	"github.com/tobiasrohr/FInal-merger/pkg/retry"
)

var _ appcontext.Interface = (*App)(nil)

// App is the boardmerge application.
type App struct {
	version string
	commit  string
	date    string
	builtBy string

	config *Config
	logger *zerolog.Logger
	stderr io.Writer

	// One gate and one metrics registry per invocation, shared by the API
	// client and the executor.
	gate    retry.Gate
	metrics *metrics.Metrics

	mu     sync.Mutex
	client *monday.Client
}

// Option configures an App.
type Option func(*App) error

// WithConfig replaces the loaded configuration.
func WithConfig(config *Config) Option {
	return func(a *App) error {
		if config == nil {
			return errors.NewConfigError("app", "config must not be nil", nil)
		}
		a.config = config
		return nil
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *zerolog.Logger) Option {
	return func(a *App) error {
		a.logger = logger
		return nil
	}
}

// WithStderr redirects warnings.
func WithStderr(w io.Writer) Option {
	return func(a *App) error {
		a.stderr = w
		return nil
	}
}

// WithMondayClient injects an API client.
func WithMondayClient(c *monday.Client) Option {
	return func(a *App) error {
		a.client = c
		return nil
	}
}

// New creates the application with configuration from ~/.boardmerge.yaml,
// .env files and the environment. Flags, including --config, are applied
// when a command runs.
func New(version, commit, date, builtBy string, opts ...Option) (*App, error) {
	a := &App{
		version: version,
		commit:  commit,
		date:    date,
		builtBy: builtBy,
		stderr:  os.Stderr,
		metrics: metrics.New(),
	}
	for _, opt := range opts {
		if err := opt(a); err != nil {
			return nil, err
		}
	}
	if a.config == nil {
		config, err := LoadConfig("")
		if err != nil {
			return nil, err
		}
		a.config = config
	}
	if a.logger == nil {
		logger := NewLogger(a.config, a.stderr)
		a.logger = &logger
	}
	return a, nil
}

// Config returns the application configuration.
func (a *App) Config() *Config { return a.config }

// Logger implements appcontext.Interface.
func (a *App) Logger() *zerolog.Logger { return a.logger }

// OutputFormat implements appcontext.Interface.
func (a *App) OutputFormat() string { return a.config.Format }

// BatchSize implements appcontext.Interface.
func (a *App) BatchSize() int { return a.config.BatchSize }

// SampleSize implements appcontext.Interface.
func (a *App) SampleSize() int { return a.config.SampleSize }

// Gate implements appcontext.Interface.
func (a *App) Gate() *retry.Gate { return &a.gate }

// Metrics implements appcontext.Interface.
func (a *App) Metrics() *metrics.Metrics { return a.metrics }

// Version implements appcontext.Interface.
func (a *App) Version() string { return a.version }

// Commit implements appcontext.Interface.
func (a *App) Commit() string { return a.commit }

// Date implements appcontext.Interface.
func (a *App) Date() string { return a.date }

// BuiltBy implements appcontext.Interface.
func (a *App) BuiltBy() string { return a.builtBy }

// Monday returns the API client, creating it on first use.
func (a *App) Monday() (*monday.Client, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.client != nil {
		return a.client, nil
	}
	if a.config.Monday.Token == "" {
		return nil, errors.NewAuthenticationError("monday", "token",
			TokenEnv+" is not set", errors.ErrAPIKeyRequired)
	}
	c, err := monday.New(a.config.Monday,
		monday.WithGate(&a.gate),
		monday.WithObserver(a.metrics.ObserveRequest),
		monday.WithLogger(a.logger),
	)
	if err != nil {
		return nil, err
	}
	a.client = c
	return c, nil
}

// Board returns an in-memory board loaded from snapshot, or the API
// client when snapshot is empty.
func (a *App) Board(snapshot string) (board.Client, error) {
	if snapshot != "" {
		m, err := board.LoadSnapshot(snapshot)
		if err != nil {
			return nil, err
		}
		a.logger.Info().Str("snapshot", snapshot).Msg("using board snapshot, no API calls are made")
		return m, nil
	}
	return a.Monday()
}

// Shutdown releases resources after a command. It is safe to call more
// than once.
func (a *App) Shutdown(_ context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.client != nil {
		a.client.CloseIdleConnections()
	}
	return nil
}
