package appcontext

import (
	"github.com/rs/zerolog"

	"github.com/tobiasrohr/FInal-merger/internal/metrics"
	"github.com/tobiasrohr/FInal-merger/internal/monday"
	"github.com/tobiasrohr/FInal-merger/pkg/board"
	"github.com/tobiasrohr/FInal-merger/pkg/errors"
	"github.com/tobiasrohr/FInal-merger/pkg/retry"
)

var _ Interface = (*Mock)(nil)

// Mock implements Interface for command tests. Board serves Client for
// every snapshot argument; Monday fails unless MondayFunc is set.
type Mock struct {
	Client     board.Client
	MondayFunc func() (*monday.Client, error)
	Format     string
	Batch      int
	Sample     int

	gate    retry.Gate
	metrics *metrics.Metrics
	logger  *zerolog.Logger
}

// Monday implements Interface.
func (m *Mock) Monday() (*monday.Client, error) {
	if m.MondayFunc != nil {
		return m.MondayFunc()
	}
	return nil, errors.NewAuthenticationError("monday", "token", "no API client in tests", errors.ErrAPIKeyRequired)
}

// Board implements Interface.
func (m *Mock) Board(string) (board.Client, error) {
	if m.Client == nil {
		return nil, errors.NewConfigError("board", "no board client configured", nil)
	}
	return m.Client, nil
}

// Gate implements Interface.
func (m *Mock) Gate() *retry.Gate { return &m.gate }

// Metrics implements Interface.
func (m *Mock) Metrics() *metrics.Metrics {
	if m.metrics == nil {
		m.metrics = metrics.New()
	}
	return m.metrics
}

// Logger implements Interface.
func (m *Mock) Logger() *zerolog.Logger {
	if m.logger == nil {
		l := zerolog.Nop()
		m.logger = &l
	}
	return m.logger
}

// OutputFormat implements Interface.
func (m *Mock) OutputFormat() string {
	if m.Format == "" {
		return "json"
	}
	return m.Format
}

// BatchSize implements Interface.
func (m *Mock) BatchSize() int { return m.Batch }

// SampleSize implements Interface.
func (m *Mock) SampleSize() int { return m.Sample }

// Version implements Interface.
func (m *Mock) Version() string { return "test" }

// Commit implements Interface.
func (m *Mock) Commit() string { return "none" }

// Date implements Interface.
func (m *Mock) Date() string { return "unknown" }

// BuiltBy implements Interface.
func (m *Mock) BuiltBy() string { return "test" }
