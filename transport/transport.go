// Package transport wraps outbound API calls with the bearer credential and a
// bounded silent-refresh policy: a request that comes back 401 triggers at
// most one refresh and one resubmission, and concurrent 401s share a single
// refresh call.
package transport

import (
	"context"
	"io"
	"net/http"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/jrsteele09/go-auth-client/tokenstore"
)

// RefreshFunc obtains a new access token using the ambient refresh credential.
// It must bypass this transport, otherwise a rejected refresh would recurse.
type RefreshFunc func(ctx context.Context) (string, error)

var _ http.RoundTripper = (*AuthTransport)(nil)

// AuthTransport is the request interception layer. The "already retried"
// state is local to each RoundTrip call, so it can never leak between
// unrelated requests.
type AuthTransport struct {
	base    http.RoundTripper
	tokens  tokenstore.Repo
	refresh RefreshFunc
	group   singleflight.Group
	log     zerolog.Logger
}

// Option defines a function type to modify the AuthTransport instance.
type Option func(*AuthTransport)

// WithLogger sets the transport's logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(t *AuthTransport) {
		t.log = logger.With().Str("component", "transport").Logger()
	}
}

// WithBase sets the underlying RoundTripper (defaults to http.DefaultTransport).
func WithBase(base http.RoundTripper) Option {
	return func(t *AuthTransport) {
		t.base = base
	}
}

// New creates an AuthTransport.
func New(tokens tokenstore.Repo, refresh RefreshFunc, options ...Option) (*AuthTransport, error) {
	if tokens == nil {
		return nil, errors.New("[transport.New] tokens repo is required")
	}
	if refresh == nil {
		return nil, errors.New("[transport.New] refresh func is required")
	}

	transport := &AuthTransport{
		base:    http.DefaultTransport,
		tokens:  tokens,
		refresh: refresh,
		log:     zerolog.Nop(),
	}
	for _, opt := range options {
		opt(transport)
	}
	return transport, nil
}

// RoundTrip attaches the stored access token when one exists (anonymous calls
// pass through unmodified) and, on a 401, refreshes once and resubmits once.
// A second 401 from the resubmitted request propagates as-is, bounding the
// protocol to one refresh per originating request.
func (t *AuthTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	requestID := uuid.New().String()

	token, err := t.tokens.Read()
	if err != nil {
		t.log.Warn().Err(err).Str("request_id", requestID).Msg("token store read failed, sending anonymously")
		token = ""
	}

	resp, err := t.base.RoundTrip(withBearer(req, token))
	if err != nil || resp.StatusCode != http.StatusUnauthorized {
		return resp, err
	}

	if req.GetBody == nil && req.Body != nil {
		// The body has been consumed and cannot be replayed.
		return resp, nil
	}

	newToken, refreshErr := t.sharedRefresh(req.Context())
	if refreshErr != nil {
		t.log.Debug().Err(refreshErr).Str("request_id", requestID).Msg("refresh failed, propagating original 401")
		if clearErr := t.tokens.Clear(); clearErr != nil {
			t.log.Warn().Err(clearErr).Msg("failed to clear token store after refresh failure")
		}
		// The original authorization failure is what the caller sees,
		// never the refresh error.
		return resp, nil
	}

	drain(resp)
	t.log.Debug().Str("request_id", requestID).Msg("retrying request with refreshed token")

	retry := withBearer(req, newToken)
	if req.GetBody != nil {
		body, bodyErr := req.GetBody()
		if bodyErr != nil {
			return nil, bodyErr
		}
		retry.Body = body
	}
	return t.base.RoundTrip(retry)
}

// sharedRefresh collapses concurrent refresh triggers into one backend call;
// every waiter observes the same outcome. The new token is persisted before
// any waiter resumes.
func (t *AuthTransport) sharedRefresh(ctx context.Context) (string, error) {
	v, err, _ := t.group.Do("refresh", func() (any, error) {
		token, err := t.refresh(ctx)
		if err != nil {
			return nil, err
		}
		if err := t.tokens.Write(token); err != nil {
			return nil, err
		}
		return token, nil
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

// withBearer clones the request, attaching the Authorization header when a
// token is present. RoundTrippers must not mutate the caller's request.
func withBearer(req *http.Request, token string) *http.Request {
	out := req.Clone(req.Context())
	if token != "" {
		out.Header.Set("Authorization", "Bearer "+token)
	}
	return out
}

func drain(resp *http.Response) {
	io.Copy(io.Discard, resp.Body) //nolint:errcheck
	resp.Body.Close()
}
