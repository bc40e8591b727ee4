package transport

import (
	"bytes"
	"context"
	"net/http"

	"golang.org/x/time/rate"

	"github.com/tobiasrohr/FInal-merger/pkg/constants"
	"github.com/tobiasrohr/FInal-merger/pkg/errors"
)

// DefaultHTTPTimeout is the default timeout for HTTP requests.
var DefaultHTTPTimeout = constants.DefaultHTTPTimeout

// Client sends authenticated, paced HTTP requests to one service.
type Client struct {
	service string
	http    *http.Client
	auth    Authenticator
	token   string
	limiter *rate.Limiter
	headers http.Header
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithLimiter paces requests through l. A nil limiter disables pacing.
func WithLimiter(l *rate.Limiter) Option {
	return func(c *Client) { c.limiter = l }
}

// WithHeader adds a header to every request.
func WithHeader(key, value string) Option {
	return func(c *Client) { c.headers.Set(key, value) }
}

// New creates a transport client for service. An empty token is rejected
// unless auth is NoAuth.
func New(service string, auth Authenticator, token string, opts ...Option) (*Client, error) {
	if auth == nil {
		auth = &HeaderAuth{}
	}
	if _, none := auth.(*NoAuth); !none && token == "" {
		return nil, &errors.AuthenticationError{
			Service: service,
			Method:  "api_token",
			Message: "no API token configured",
			Err:     errors.ErrAPIKeyRequired,
		}
	}
	c := &Client{
		service: service,
		http:    &http.Client{Timeout: DefaultHTTPTimeout},
		auth:    auth,
		token:   token,
		limiter: rate.NewLimiter(rate.Limit(float64(constants.DefaultRequestsPerMinute)/60), constants.BurstSize),
		headers: make(http.Header),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Service returns the service name used in errors.
func (c *Client) Service() string { return c.service }

// CloseIdleConnections closes keep-alive connections of the underlying
// HTTP client.
func (c *Client) CloseIdleConnections() { c.http.CloseIdleConnections() }

// Do waits for the limiter, applies authentication and common headers and
// performs req.
func (c *Client) Do(ctx context.Context, req *http.Request) (*http.Response, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}
	req = req.WithContext(ctx)
	c.auth.Apply(req, c.token)
	for k, vs := range c.headers {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	req.Header.Set("Accept", "application/json")
	if req.Method == http.MethodPost || req.Method == http.MethodPut || req.Method == http.MethodPatch {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, &errors.APIError{Service: c.service, Endpoint: req.URL.String(), Message: "request failed", Err: errors.Join(errors.ErrUnavailable, err)}
	}
	return resp, nil
}

// Post sends a JSON body to url.
func (c *Client) Post(ctx context.Context, url string, body []byte) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, errors.WrapResource("create", "request", "POST "+url, err)
	}
	return c.Do(ctx, req)
}
