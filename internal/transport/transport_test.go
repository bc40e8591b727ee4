package transport

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tobiasrohr/FInal-merger/pkg/constants"
	"github.com/tobiasrohr/FInal-merger/pkg/errors"
)

func TestAuthenticators(t *testing.T) {
	tests := []struct {
		name   string
		auth   Authenticator
		header string
		want   string
	}{
		{"raw header", &HeaderAuth{}, "Authorization", "tok"},
		{"custom header", &HeaderAuth{Header: "X-Api-Key"}, "X-Api-Key", "tok"},
		{"bearer", &BearerAuth{}, "Authorization", "Bearer tok"},
		{"none", &NoAuth{}, "Authorization", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := &http.Request{Header: make(http.Header)}
			tt.auth.Apply(req, "tok")
			assert.Equal(t, tt.want, req.Header.Get(tt.header))
		})
	}

	u, _ := url.Parse("https://example.com/v2?existing=1")
	req := &http.Request{URL: u, Header: make(http.Header)}
	(&QueryAuth{Param: "key"}).Apply(req, "tok")
	assert.Equal(t, "tok", req.URL.Query().Get("key"))
	assert.Equal(t, "1", req.URL.Query().Get("existing"))
	(&QueryAuth{Param: "key"}).Apply(&http.Request{Header: make(http.Header)}, "tok")
}

func TestParseAuth(t *testing.T) {
	assert.IsType(t, &HeaderAuth{}, ParseAuth(""))
	assert.IsType(t, &HeaderAuth{}, ParseAuth("raw"))
	assert.IsType(t, &BearerAuth{}, ParseAuth("bearer"))
	assert.IsType(t, &NoAuth{}, ParseAuth("none"))
	q, ok := ParseAuth("query:token").(*QueryAuth)
	require.True(t, ok)
	assert.Equal(t, "token", q.Param)
}

func TestNewRequiresToken(t *testing.T) {
	_, err := New("monday", &HeaderAuth{}, "")
	assert.ErrorIs(t, err, errors.ErrAPIKeyRequired)
	assert.True(t, errors.IsSetup(err))

	_, err = New("monday", &NoAuth{}, "")
	assert.NoError(t, err)
}

func TestClientPost(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "secret", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, "2024-10", r.Header.Get("API-Version"))
		body, _ := io.ReadAll(r.Body)
		assert.JSONEq(t, `{"q":1}`, string(body))
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	c, err := New("monday", &HeaderAuth{}, "secret", WithHeader("API-Version", "2024-10"), WithLimiter(nil))
	require.NoError(t, err)

	resp, err := c.Post(context.Background(), srv.URL, []byte(`{"q":1}`))
	require.NoError(t, err)
	var out struct{ OK bool }
	require.NoError(t, DecodeResponse(resp, c.Service(), &out))
	assert.True(t, out.OK)
}

func TestDecodeResponseErrors(t *testing.T) {
	mk := func(status int, header http.Header, body string) *http.Response {
		if header == nil {
			header = make(http.Header)
		}
		return &http.Response{StatusCode: status, Header: header, Body: io.NopCloser(strings.NewReader(body))}
	}

	err := DecodeResponse(mk(http.StatusTooManyRequests, http.Header{"Retry-After": []string{"7"}}, "slow"), "monday", &struct{}{})
	assert.True(t, errors.IsRateLimited(err))
	assert.Equal(t, 7*time.Second, errors.RetryAfter(err))

	err = DecodeResponse(mk(http.StatusTooManyRequests, nil, ""), "monday", &struct{}{})
	assert.Equal(t, constants.DefaultRetryAfter, errors.RetryAfter(err))

	err = DecodeResponse(mk(http.StatusUnauthorized, nil, "bad token"), "monday", &struct{}{})
	assert.ErrorIs(t, err, errors.ErrAPIKeyInvalid)

	err = DecodeResponse(mk(http.StatusBadGateway, nil, "oops"), "monday", &struct{}{})
	assert.ErrorIs(t, err, errors.ErrUnavailable)

	err = DecodeResponse(mk(http.StatusOK, nil, "{not json"), "monday", &struct{}{})
	var perr *errors.ParseError
	assert.ErrorAs(t, err, &perr)
}

func TestParseRetryAfter(t *testing.T) {
	assert.Equal(t, 30*time.Second, ParseRetryAfter("30"))
	assert.Equal(t, constants.DefaultRetryAfter, ParseRetryAfter(""))
	assert.Equal(t, constants.DefaultRetryAfter, ParseRetryAfter("soon"))
	past := time.Now().Add(-time.Hour).UTC().Format(http.TimeFormat)
	assert.Zero(t, ParseRetryAfter(past))
}
