package anthropicclaude

import (
	"fmt"
	"net/http"

	"golang.org/x/oauth2"
)

// AuthScheme selects how the upstream credential is presented.
type AuthScheme string

const (
	// AuthSchemeAPIKey sends the credential in the X-Api-Key header.
	AuthSchemeAPIKey AuthScheme = "api_key"
	// AuthSchemeBearer sends the credential as an OAuth bearer token.
	AuthSchemeBearer AuthScheme = "bearer"
)

// oauthBetaHeader enables OAuth access tokens on the Messages API.
const oauthBetaHeader = "oauth-2025-04-20"

// NewAuthTransport returns a RoundTripper that authenticates requests with
// tokens from ts. A nil base uses http.DefaultTransport.
func NewAuthTransport(scheme AuthScheme, ts oauth2.TokenSource, base http.RoundTripper) (http.RoundTripper, error) {
	if ts == nil {
		return nil, fmt.Errorf("token source cannot be nil")
	}
	if base == nil {
		base = http.DefaultTransport
	}

	switch scheme {
	case AuthSchemeBearer:
		return &oauth2.Transport{
			Source: ts,
			Base:   &headerTransport{base: base, header: "Anthropic-Beta", value: oauthBetaHeader},
		}, nil
	case AuthSchemeAPIKey, "":
		return &apiKeyTransport{source: ts, base: base}, nil
	default:
		return nil, fmt.Errorf("unsupported auth scheme %q", scheme)
	}
}

// apiKeyTransport sets the X-Api-Key header from the token source.
type apiKeyTransport struct {
	source oauth2.TokenSource
	base   http.RoundTripper
}

func (t *apiKeyTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	token, err := t.source.Token()
	if err != nil {
		return nil, fmt.Errorf("retrieve api key: %w", err)
	}

	// RoundTrippers must not modify the caller's request.
	req = req.Clone(req.Context())
	req.Header.Del("Authorization")
	req.Header.Set("X-Api-Key", token.AccessToken)
	return t.base.RoundTrip(req)
}

// headerTransport appends a fixed header value.
type headerTransport struct {
	base   http.RoundTripper
	header string
	value  string
}

func (t *headerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	req.Header.Add(t.header, t.value)
	return t.base.RoundTrip(req)
}
