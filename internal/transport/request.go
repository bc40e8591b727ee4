package transport

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/tobiasrohr/FInal-merger/pkg/constants"
	"github.com/tobiasrohr/FInal-merger/pkg/errors"
	"github.com/tobiasrohr/FInal-merger/pkg/logging"
)

// DecodeResponse checks the status of resp and decodes its JSON body into
// target. A 429 becomes a RateLimitError carrying the Retry-After hint;
// other non-2xx statuses become an APIError.
func DecodeResponse(resp *http.Response, service string, target any) error {
	defer func() {
		if err := resp.Body.Close(); err != nil {
			logging.Warn().Err(err).Str("service", service).Msg("failed to close response body")
		}
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.WrapIO("read", "response body", err)
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		return errors.NewRateLimitError(service, ParseRetryAfter(resp.Header.Get("Retry-After")), snippet(body))
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := errors.NewAPIError(service, resp.StatusCode, snippet(body))
		if resp.Request != nil && resp.Request.URL != nil {
			apiErr.Endpoint = resp.Request.URL.String()
		}
		return apiErr
	}

	if err := json.Unmarshal(body, target); err != nil {
		return errors.WrapParse("json", "response", err)
	}
	return nil
}

// ParseRetryAfter reads a Retry-After header given in seconds or as an
// HTTP date. A missing or unreadable header yields the default cooldown.
func ParseRetryAfter(v string) time.Duration {
	v = strings.TrimSpace(v)
	if v == "" {
		return constants.DefaultRetryAfter
	}
	if secs, err := strconv.Atoi(v); err == nil && secs >= 0 {
		return time.Duration(secs) * time.Second
	}
	if at, err := http.ParseTime(v); err == nil {
		if d := time.Until(at); d > 0 {
			return d
		}
		return 0
	}
	return constants.DefaultRetryAfter
}

func snippet(body []byte) string {
	const limit = 300
	s := strings.TrimSpace(string(body))
	if len(s) > limit {
		return s[:limit] + "..."
	}
	return s
}
