package tokensource

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/oauth2"
)

// ErrNoCredential is returned when the store holds no credential.
var ErrNoCredential = errors.New("no upstream credential stored, run 'claudine auth login'")

// DefaultTTL is how long a credential read from the store is reused.
const DefaultTTL = 5 * time.Minute

type options struct {
	ttl     time.Duration
	timeout time.Duration
}

// Option configures New.
type Option func(*options)

// WithTTL sets how long a credential read from the store is reused.
func WithTTL(ttl time.Duration) Option {
	return func(o *options) {
		o.ttl = ttl
	}
}

// WithReadTimeout bounds a single store read.
func WithReadTimeout(timeout time.Duration) Option {
	return func(o *options) {
		o.timeout = timeout
	}
}

// New returns a token source serving the credential held by store.
// The result is safe for concurrent use.
func New(store Store, opts ...Option) oauth2.TokenSource {
	o := options{ttl: DefaultTTL, timeout: 10 * time.Second}
	for _, opt := range opts {
		opt(&o)
	}

	return oauth2.ReuseTokenSource(nil, &storeTokenSource{store: store, opts: o})
}

// storeTokenSource reads the credential on every call. ReuseTokenSource
// caches its result until Expiry.
type storeTokenSource struct {
	store Store
	opts  options
}

// Token implements oauth2.TokenSource.
func (s *storeTokenSource) Token() (*oauth2.Token, error) {
	// oauth2.TokenSource has no context parameter.
	ctx, cancel := context.WithTimeout(context.Background(), s.opts.timeout)
	defer cancel()

	credential, err := s.store.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("read upstream credential: %w", err)
	}
	if credential == "" {
		return nil, ErrNoCredential
	}

	return &oauth2.Token{
		AccessToken: credential,
		TokenType:   "Bearer",
		Expiry:      time.Now().Add(s.opts.ttl),
	}, nil
}
