// ABOUTME: Request-signing round tripper that attaches the bearer credential.
// ABOUTME: Reads the token by reference on every request; there is no second setter.
package api

import (
	"net/http"

	"github.com/google/uuid"
)

// TokenSource supplies the current bearer credential. An empty string means
// the request goes out unsigned.
type TokenSource interface {
	Token() string
}

// StaticToken is a fixed TokenSource, handy for one-off calls and tests.
type StaticToken string

// Token returns the fixed token.
func (t StaticToken) Token() string { return string(t) }

// signingTransport stamps Authorization and X-Request-ID on outgoing requests.
type signingTransport struct {
	base   http.RoundTripper
	tokens TokenSource
}

// RoundTrip implements http.RoundTripper. The caller's request is cloned,
// never mutated.
func (t *signingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	signed := req.Clone(req.Context())
	if t.tokens != nil {
		if token := t.tokens.Token(); token != "" {
			signed.Header.Set("Authorization", "Bearer "+token)
		}
	}
	if signed.Header.Get("X-Request-ID") == "" {
		signed.Header.Set("X-Request-ID", uuid.NewString())
	}
	return t.base.RoundTrip(signed)
}
