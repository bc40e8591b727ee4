package monday

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/sony/gobreaker"

	"github.com/tobiasrohr/FInal-merger/internal/transport"
	"github.com/tobiasrohr/FInal-merger/pkg/constants"
	"github.com/tobiasrohr/FInal-merger/pkg/errors"
	"github.com/tobiasrohr/FInal-merger/pkg/logging"
)

type request struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

type response struct {
	Data         json.RawMessage `json:"data"`
	Errors       []gqlError      `json:"errors"`
	ErrorCode    string          `json:"error_code"`
	ErrorMessage string          `json:"error_message"`
	StatusCode   int             `json:"status_code"`
}

type gqlError struct {
	Message    string `json:"message"`
	Path       []any  `json:"path"`
	Extensions struct {
		Code           string `json:"code"`
		RetryInSeconds int    `json:"retry_in_seconds"`
	} `json:"extensions"`
}

// rateLimitCodes are the error codes monday.com uses for budget and rate
// violations.
var rateLimitCodes = map[string]bool{
	"complexityexception":         true,
	"complexity_budget_exhausted": true,
	"ratelimitexceeded":           true,
	"rate_limit_exceeded":         true,
	"ip_rate_limit_exceeded":      true,
	"maxconcurrencyexceeded":      true,
	"max_concurrency_exceeded":    true,
}

var resetInRe = regexp.MustCompile(`(?i)reset in (\d+) seconds?`)

func isRateLimit(code, message string) bool {
	if rateLimitCodes[strings.ToLower(code)] {
		return true
	}
	msg := strings.ToLower(message)
	return strings.Contains(msg, "complexity budget exhausted") || strings.Contains(msg, "rate limit")
}

func retryHint(seconds int, message string) time.Duration {
	if seconds > 0 {
		return time.Duration(seconds) * time.Second
	}
	if m := resetInRe.FindStringSubmatch(message); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil {
			return time.Duration(n) * time.Second
		}
	}
	return constants.DefaultRetryAfter
}

func (e gqlError) alias() string {
	if len(e.Path) == 0 {
		return ""
	}
	s, _ := e.Path[0].(string)
	return s
}

func (e gqlError) asError() error {
	if isRateLimit(e.Extensions.Code, e.Message) {
		return errors.NewRateLimitError(serviceName, retryHint(e.Extensions.RetryInSeconds, e.Message), e.Message)
	}
	return &errors.APIError{Service: serviceName, Message: e.Message}
}

func (r *response) decodeData(out any) error {
	if out == nil || len(r.Data) == 0 || string(r.Data) == "null" {
		return nil
	}
	if err := json.Unmarshal(r.Data, out); err != nil {
		return errors.WrapParse("json", "graphql data", err)
	}
	return nil
}

// exec sends one GraphQL request. Request-level failures, including rate
// limits reported in the body and errors not tied to a path, are returned
// as errors. Path-scoped errors stay in the response.
func (c *Client) exec(ctx context.Context, operation, query string, vars map[string]any) (*response, error) {
	start := time.Now()
	var resp *response
	v, err := c.breaker.Execute(func() (any, error) {
		return c.send(ctx, query, vars)
	})
	switch {
	case err == nil:
		resp = v.(*response)
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		err = &errors.APIError{Service: serviceName, Message: "requests suspended after repeated server failures", Err: errors.Join(errors.ErrCircuitOpen, err)}
	}
	if c.observe != nil {
		c.observe(operation, time.Since(start), err)
	}
	if err != nil {
		logging.FromContext(ctx).Debug().Err(err).Str("operation", operation).Msg("monday request failed")
	}
	return resp, err
}

func (c *Client) send(ctx context.Context, query string, vars map[string]any) (*response, error) {
	body, err := json.Marshal(request{Query: query, Variables: vars})
	if err != nil {
		return nil, errors.WrapParse("json", "graphql request", err)
	}
	httpResp, err := c.http.Post(ctx, c.endpoint, body)
	if err != nil {
		return nil, err
	}
	var resp response
	if err := transport.DecodeResponse(httpResp, serviceName, &resp); err != nil {
		return nil, err
	}

	if resp.ErrorCode != "" || resp.ErrorMessage != "" {
		if isRateLimit(resp.ErrorCode, resp.ErrorMessage) {
			return nil, errors.NewRateLimitError(serviceName, retryHint(0, resp.ErrorMessage), resp.ErrorMessage)
		}
		return nil, &errors.APIError{Service: serviceName, StatusCode: resp.StatusCode, Message: fmt.Sprintf("%s: %s", resp.ErrorCode, resp.ErrorMessage)}
	}

	scoped := resp.Errors[:0]
	for _, e := range resp.Errors {
		if isRateLimit(e.Extensions.Code, e.Message) {
			return nil, e.asError()
		}
		if e.alias() == "" {
			return nil, e.asError()
		}
		scoped = append(scoped, e)
	}
	resp.Errors = scoped
	return &resp, nil
}
