package api

import (
	"fmt"
	"net/http"
)

// TokenSource supplies the bearer token for outbound requests.  The
// session store implements it with admin-over-user precedence; an empty
// token means the request goes out anonymous.
type TokenSource interface {
	BearerToken() (string, error)
}

// StaticToken is a TokenSource for a fixed token, mostly useful in tests.
type StaticToken string

func (t StaticToken) BearerToken() (string, error) {
	return string(t), nil
}

/* authTransport intercepts every outbound request and attaches the
Authorization header.  It is the single place tokens touch the wire; no
individual call site sets its own credentials. */
type authTransport struct {
	next   http.RoundTripper
	tokens TokenSource
}

func (t *authTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	token, err := t.tokens.BearerToken()
	if err != nil {
		return nil, err
	}

	if token != "" {
		// Clone before mutating; RoundTrippers must not modify the caller's request.
		req = req.Clone(req.Context())
		req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", token))
	}

	return t.next.RoundTrip(req)
}
