package authapi

import (
	"context"
	"fmt"
	"net/http"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	apperrors "github.com/jrsteele09/go-auth-client/internal/errors"
	"github.com/jrsteele09/go-auth-client/users"
)

// UserService issues profile operations. Unlike Client, it is meant to run on
// an intercepted http.Client that injects the bearer credential and performs
// the silent refresh-and-retry, so no operation takes an explicit token.
type UserService struct {
	client *Client
}

// NewUserService creates a UserService on top of an intercepted http.Client.
func NewUserService(baseURL string, httpClient *http.Client, options ...ClientOption) (*UserService, error) {
	client, err := New(baseURL, httpClient, options...)
	if err != nil {
		return nil, errors.Wrap(err, "[NewUserService]")
	}
	return &UserService{client: client}, nil
}

// WithUserLogger sets the service logger.
func WithUserLogger(logger zerolog.Logger) ClientOption {
	return func(c *Client) {
		c.log = logger.With().Str("component", "userapi").Logger()
	}
}

// UpdateProfileRequest carries the mutable profile fields.
type UpdateProfileRequest struct {
	Name string `json:"name,omitempty"`
}

// Profile fetches the current user's profile.
func (s *UserService) Profile(ctx context.Context) (*users.User, error) {
	var out userResponse
	err := s.client.do(ctx, http.MethodGet, "/users/me", "", nil, &out, classifyProfile)
	if err != nil {
		return nil, err
	}
	return &out.User, nil
}

// UpdateProfile updates the current user's profile and returns the new record.
func (s *UserService) UpdateProfile(ctx context.Context, update UpdateProfileRequest) (*users.User, error) {
	var out userResponse
	err := s.client.do(ctx, http.MethodPut, "/users/me", "", update, &out, classifyProfile)
	if err != nil {
		return nil, err
	}
	return &out.User, nil
}

// GetByID fetches a user by ID (admin use).
func (s *UserService) GetByID(ctx context.Context, id string) (*users.User, error) {
	var out userResponse
	err := s.client.do(ctx, http.MethodGet, fmt.Sprintf("/users/%s", id), "", nil, &out, func(status int) error {
		switch status {
		case http.StatusUnauthorized:
			return apperrors.ErrUnauthorized
		case http.StatusNotFound:
			return apperrors.ErrNotFound
		default:
			return apperrors.ErrInternal
		}
	})
	if err != nil {
		return nil, err
	}
	return &out.User, nil
}

func classifyProfile(status int) error {
	if status == http.StatusUnauthorized {
		return apperrors.ErrUnauthorized
	}
	return apperrors.ErrInternal
}
