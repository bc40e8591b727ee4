// Package monday implements board.Client on top of the monday.com GraphQL
// API.
package monday

import (
	"context"
	"net/http"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/tobiasrohr/FInal-merger/internal/transport"
	"github.com/tobiasrohr/FInal-merger/pkg/board"
	"github.com/tobiasrohr/FInal-merger/pkg/constants"
	"github.com/tobiasrohr/FInal-merger/pkg/errors"
	"github.com/tobiasrohr/FInal-merger/pkg/logging"
	"github.com/tobiasrohr/FInal-merger/pkg/retry"
)

// API defaults.
const (
	DefaultEndpoint   = "https://api.monday.com/v2"
	DefaultAPIVersion = "2024-10"
	serviceName       = "monday"
)

var _ board.Client = (*Client)(nil)

// Config holds connection settings.
type Config struct {
	Endpoint          string        `mapstructure:"endpoint"`
	Token             string        `mapstructure:"token"`
	APIVersion        string        `mapstructure:"api_version"`
	AuthScheme        string        `mapstructure:"auth_scheme"`
	RequestsPerMinute int           `mapstructure:"requests_per_minute"`
	Timeout           time.Duration `mapstructure:"timeout"`
	PageSize          int           `mapstructure:"page_size"`
	Retry             retry.Policy  `mapstructure:"retry"`
}

// DefaultConfig returns the default connection settings without a token.
func DefaultConfig() Config {
	return Config{
		Endpoint:          DefaultEndpoint,
		APIVersion:        DefaultAPIVersion,
		RequestsPerMinute: constants.DefaultRequestsPerMinute,
		Timeout:           constants.DefaultHTTPTimeout,
		PageSize:          constants.DefaultPageSize,
		Retry:             retry.DefaultPolicy(),
	}
}

// Observer is told about every GraphQL request.
type Observer func(operation string, elapsed time.Duration, err error)

// Client talks to the monday.com API.
type Client struct {
	http     *transport.Client
	endpoint string
	pageSize int
	policy   retry.Policy
	gate     *retry.Gate
	observe  Observer
	columns  *gocache.Cache
	breaker  *gobreaker.CircuitBreaker
}

// Option configures a Client.
type Option func(*clientOptions)

type clientOptions struct {
	gate       *retry.Gate
	httpClient *http.Client
	observer   Observer
	logger     *zerolog.Logger
}

// WithGate shares a cooldown gate with other callers.
func WithGate(g *retry.Gate) Option {
	return func(o *clientOptions) { o.gate = g }
}

// WithHTTPClient replaces the HTTP client, mainly for tests.
func WithHTTPClient(hc *http.Client) Option {
	return func(o *clientOptions) { o.httpClient = hc }
}

// WithObserver registers a request observer.
func WithObserver(fn Observer) Option {
	return func(o *clientOptions) { o.observer = fn }
}

// WithLogger sets the logger for client events that happen outside any
// request, such as the circuit breaker opening.
func WithLogger(l *zerolog.Logger) Option {
	return func(o *clientOptions) { o.logger = l }
}

// New creates a client. A missing token is an authentication error.
func New(cfg Config, opts ...Option) (*Client, error) {
	o := &clientOptions{}
	for _, opt := range opts {
		opt(o)
	}

	def := DefaultConfig()
	if cfg.Endpoint == "" {
		cfg.Endpoint = def.Endpoint
	}
	if cfg.APIVersion == "" {
		cfg.APIVersion = def.APIVersion
	}
	if cfg.RequestsPerMinute <= 0 {
		cfg.RequestsPerMinute = def.RequestsPerMinute
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = def.PageSize
	}
	if cfg.Retry == (retry.Policy{}) {
		cfg.Retry = def.Retry
	}
	if err := cfg.Retry.Validate(); err != nil {
		return nil, err
	}

	hc := o.httpClient
	if hc == nil {
		hc = &http.Client{Timeout: cfg.Timeout}
	}
	limiter := rate.NewLimiter(rate.Limit(float64(cfg.RequestsPerMinute)/60), constants.BurstSize)
	tc, err := transport.New(serviceName, transport.ParseAuth(cfg.AuthScheme), cfg.Token,
		transport.WithHTTPClient(hc),
		transport.WithLimiter(limiter),
		transport.WithHeader("API-Version", cfg.APIVersion),
	)
	if err != nil {
		return nil, err
	}

	gate := o.gate
	if gate == nil {
		gate = &retry.Gate{}
	}
	return &Client{
		breaker:  newBreaker(o),
		http:     tc,
		endpoint: cfg.Endpoint,
		pageSize: cfg.PageSize,
		policy:   cfg.Retry,
		gate:     gate,
		observe:  o.observer,
		columns:  gocache.New(constants.ColumnCacheTTL, 2*constants.ColumnCacheTTL),
	}, nil
}

// newBreaker trips after consecutive server failures. Rate limits and
// per-request errors do not count: the gate handles the former and the
// caller the latter.
func newBreaker(o *clientOptions) *gobreaker.CircuitBreaker {
	logger := o.logger
	if logger == nil {
		logger = logging.Default()
	}
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        serviceName,
		MaxRequests: 1,
		Timeout:     constants.BreakerCooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= constants.BreakerFailureThreshold
		},
		IsSuccessful: func(err error) bool {
			return err == nil || !errors.Is(err, errors.ErrUnavailable)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn().Str("service", name).Str("from", from.String()).Str("to", to.String()).Msg("circuit breaker state changed")
		},
	})
}

// CloseIdleConnections releases pooled HTTP connections.
func (c *Client) CloseIdleConnections() { c.http.CloseIdleConnections() }

// read runs a query with retries on rate limits.
func (c *Client) read(ctx context.Context, operation, query string, vars map[string]any, out any) error {
	return retry.Do(ctx, c.policy, c.gate, nil, func(ctx context.Context) error {
		resp, err := c.exec(ctx, operation, query, vars)
		if err != nil {
			return err
		}
		if len(resp.Errors) > 0 {
			return resp.Errors[0].asError()
		}
		return resp.decodeData(out)
	})
}

func invalidBoard(boardID string) error {
	if boardID == "" {
		return errors.NewValidationError("board_id", boardID, "board ID is required")
	}
	return nil
}
