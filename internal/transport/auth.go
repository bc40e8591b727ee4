package transport

import (
	"net/http"
	"net/url"
)

// Authenticator applies a credential to outgoing requests.
type Authenticator interface {
	Apply(req *http.Request, token string)
}

// NoAuth sends requests without credentials.
type NoAuth struct{}

// Apply implements Authenticator.
func (a *NoAuth) Apply(_ *http.Request, _ string) {}

// BearerAuth sends "Authorization: Bearer <token>".
type BearerAuth struct{}

// Apply implements Authenticator.
func (a *BearerAuth) Apply(req *http.Request, token string) {
	req.Header.Set("Authorization", "Bearer "+token)
}

// HeaderAuth sends the raw token in a header, Authorization by default.
// monday.com personal tokens are sent this way.
type HeaderAuth struct {
	Header string
}

// Apply implements Authenticator.
func (a *HeaderAuth) Apply(req *http.Request, token string) {
	header := a.Header
	if header == "" {
		header = "Authorization"
	}
	req.Header.Set(header, token)
}

// QueryAuth sends the token as a query parameter.
type QueryAuth struct {
	Param string
}

// Apply implements Authenticator.
func (a *QueryAuth) Apply(req *http.Request, token string) {
	if req.URL == nil {
		return
	}
	query := req.URL.Query()
	query.Set(a.Param, token)
	req.URL.RawQuery = query.Encode()
}

// ParseAuth returns the authenticator for a scheme name: "raw" (default),
// "bearer", "none" or "query:<param>".
func ParseAuth(scheme string) Authenticator {
	switch {
	case scheme == "bearer":
		return &BearerAuth{}
	case scheme == "none":
		return &NoAuth{}
	case len(scheme) > len("query:") && scheme[:len("query:")] == "query:":
		return &QueryAuth{Param: url.QueryEscape(scheme[len("query:"):])}
	default:
		return &HeaderAuth{}
	}
}
