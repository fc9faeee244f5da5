// Package authapi is the thin request layer for the remote authentication
// server. Every operation is a single request/response pair: retry policy
// lives in the transport layer, never here.
package authapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	apperrors "github.com/jrsteele09/go-auth-client/internal/errors"
	"github.com/jrsteele09/go-auth-client/users"
)

// Credentials is the payload returned by login and register.
type Credentials struct {
	User         users.User `json:"user"`
	Token        string     `json:"token"`
	RefreshToken string     `json:"refresh_token,omitempty"`
}

// RefreshResult is the payload returned by the refresh endpoint. RefreshToken
// is set when the server rotates the refresh credential.
type RefreshResult struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
}

// Client issues the authentication operations against the remote server.
type Client struct {
	baseURL    string
	httpClient *http.Client
	log        zerolog.Logger
}

// ClientOption defines a function type to modify the Client instance.
type ClientOption func(*Client)

// WithLogger sets the client's logger.
func WithLogger(logger zerolog.Logger) ClientOption {
	return func(c *Client) {
		c.log = logger.With().Str("component", "authapi").Logger()
	}
}

// New creates an auth backend client. httpClient decides whether calls go
// through the interception layer: pass a plain client for the refresh and
// session-recovery paths, an intercepted one for general API traffic.
func New(baseURL string, httpClient *http.Client, options ...ClientOption) (*Client, error) {
	if baseURL == "" {
		return nil, errors.New("[authapi.New] baseURL is required")
	}
	if httpClient == nil {
		return nil, errors.New("[authapi.New] httpClient is required")
	}

	client := &Client{
		baseURL:    baseURL,
		httpClient: httpClient,
		log:        zerolog.Nop(),
	}
	for _, opt := range options {
		opt(client)
	}
	return client, nil
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token,omitempty"`
}

type userResponse struct {
	User users.User `json:"user"`
}

// Login authenticates with email and password.
func (c *Client) Login(ctx context.Context, email, password string) (*Credentials, error) {
	var out Credentials
	err := c.do(ctx, http.MethodPost, "/auth/login", "", loginRequest{Email: email, Password: password}, &out, func(status int) error {
		if status == http.StatusBadRequest || status == http.StatusUnauthorized {
			return apperrors.ErrInvalidCredentials
		}
		return apperrors.ErrInternal
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Register creates a new account and returns its first session credentials.
func (c *Client) Register(ctx context.Context, name, email, password string) (*Credentials, error) {
	var out Credentials
	err := c.do(ctx, http.MethodPost, "/auth/register", "", registerRequest{Name: name, Email: email, Password: password}, &out, func(status int) error {
		switch status {
		case http.StatusConflict:
			return apperrors.ErrUserExists
		case http.StatusBadRequest:
			return apperrors.ErrValidation
		default:
			return apperrors.ErrInternal
		}
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Refresh exchanges the refresh credential for a new access token. The
// credential is sent in the body when the caller holds one; otherwise the
// server is expected to find it in a same-origin cookie.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (*RefreshResult, error) {
	var out RefreshResult
	err := c.do(ctx, http.MethodPost, "/auth/refresh", "", refreshRequest{RefreshToken: refreshToken}, &out, func(status int) error {
		return apperrors.ErrRefreshInvalid
	})
	if err != nil {
		return nil, err
	}
	if out.AccessToken == "" {
		return nil, apperrors.Wrapf(apperrors.ErrRefreshInvalid, "refresh returned no access token")
	}
	return &out, nil
}

// Me fetches the profile of the user the access token belongs to.
func (c *Client) Me(ctx context.Context, accessToken string) (*users.User, error) {
	var out userResponse
	err := c.do(ctx, http.MethodGet, "/auth/me", accessToken, nil, &out, func(status int) error {
		if status == http.StatusUnauthorized {
			return apperrors.ErrUnauthorized
		}
		return apperrors.ErrInternal
	})
	if err != nil {
		return nil, err
	}
	return &out.User, nil
}

// Logout asks the server to invalidate the session. Failures are returned so
// the caller can log them, but the session engine never lets them block
// client-side teardown.
func (c *Client) Logout(ctx context.Context, accessToken string) error {
	return c.do(ctx, http.MethodPost, "/auth/logout", accessToken, nil, nil, func(status int) error {
		return apperrors.ErrInternal
	})
}

// do performs a single JSON request. classify maps a non-2xx status onto the
// error taxonomy; the server's message field is preserved on the HTTPError.
func (c *Client) do(ctx context.Context, method, path, bearer string, in, out any, classify func(status int) error) error {
	var bodyReader io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	c.log.Debug().Str("method", method).Str("path", path).Msg("auth API request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s %s: %v", apperrors.ErrNetwork, method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &HTTPError{
			Status:  resp.StatusCode,
			Message: decodeMessage(resp.Body),
			Kind:    classify(resp.StatusCode),
		}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// decodeMessage pulls the server's message field out of an error body on a
// best-effort basis; anything unparseable yields an empty message.
func decodeMessage(r io.Reader) string {
	var body struct {
		Message string `json:"message"`
	}
	if err := json.NewDecoder(r).Decode(&body); err != nil {
		return ""
	}
	return body.Message
}
