package devserver_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/jrsteele09/go-auth-client/authapi"
	"github.com/jrsteele09/go-auth-client/devserver"
	apperrors "github.com/jrsteele09/go-auth-client/internal/errors"
)

const (
	testName     = "John Doe"
	testEmail    = "john.doe@example.com"
	testPassword = "Password123"
)

func setupServer(t *testing.T, cfg devserver.Config) *authapi.Client {
	t.Helper()
	server := httptest.NewServer(devserver.New(cfg, zerolog.Nop()))
	t.Cleanup(server.Close)

	client, err := authapi.New(server.URL, server.Client())
	require.NoError(t, err)
	return client
}

func TestRegisterThenLogin(t *testing.T) {
	client := setupServer(t, devserver.Config{})
	ctx := context.Background()

	creds, err := client.Register(ctx, testName, testEmail, testPassword)
	require.NoError(t, err)
	require.Equal(t, testName, creds.User.Name)
	require.Equal(t, testEmail, creds.User.Email)
	require.NotEmpty(t, creds.Token)
	require.NotEmpty(t, creds.RefreshToken)

	loggedIn, err := client.Login(ctx, testEmail, testPassword)
	require.NoError(t, err)
	require.Equal(t, creds.User.ID, loggedIn.User.ID)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	client := setupServer(t, devserver.Config{})
	ctx := context.Background()

	_, err := client.Register(ctx, testName, testEmail, testPassword)
	require.NoError(t, err)

	_, err = client.Register(ctx, "Other", testEmail, testPassword)
	require.ErrorIs(t, err, apperrors.ErrUserExists)
}

func TestRegisterWeakPassword(t *testing.T) {
	client := setupServer(t, devserver.Config{})

	_, err := client.Register(context.Background(), testName, testEmail, "weak")
	require.ErrorIs(t, err, apperrors.ErrValidation)
}

func TestLoginWrongPassword(t *testing.T) {
	client := setupServer(t, devserver.Config{})
	ctx := context.Background()

	_, err := client.Register(ctx, testName, testEmail, testPassword)
	require.NoError(t, err)

	_, err = client.Login(ctx, testEmail, "Wrong12345")
	require.ErrorIs(t, err, apperrors.ErrInvalidCredentials)
	require.Equal(t, "invalid email or password", authapi.Message(err, "login failed"))
}

func TestMeWithIssuedToken(t *testing.T) {
	client := setupServer(t, devserver.Config{})
	ctx := context.Background()

	creds, err := client.Register(ctx, testName, testEmail, testPassword)
	require.NoError(t, err)

	user, err := client.Me(ctx, creds.Token)
	require.NoError(t, err)
	require.Equal(t, creds.User.ID, user.ID)
}

func TestMeRejectsGarbageToken(t *testing.T) {
	client := setupServer(t, devserver.Config{})

	_, err := client.Me(context.Background(), "not-a-token")
	require.ErrorIs(t, err, apperrors.ErrUnauthorized)
}

func TestMeRejectsExpiredToken(t *testing.T) {
	client := setupServer(t, devserver.Config{AccessTTL: time.Minute})
	ctx := context.Background()

	creds, err := client.Register(ctx, testName, testEmail, testPassword)
	require.NoError(t, err)

	devserver.NowTimeFunc = func() time.Time { return time.Now().Add(2 * time.Minute) }
	t.Cleanup(func() { devserver.NowTimeFunc = time.Now })

	_, err = client.Me(ctx, creds.Token)
	require.ErrorIs(t, err, apperrors.ErrUnauthorized)
}

func TestRefreshRotatesToken(t *testing.T) {
	client := setupServer(t, devserver.Config{})
	ctx := context.Background()

	creds, err := client.Register(ctx, testName, testEmail, testPassword)
	require.NoError(t, err)

	result, err := client.Refresh(ctx, creds.RefreshToken)
	require.NoError(t, err)
	require.NotEmpty(t, result.AccessToken)
	require.NotEmpty(t, result.RefreshToken)
	require.NotEqual(t, creds.RefreshToken, result.RefreshToken)

	// The redeemed token is revoked: replay must fail.
	_, err = client.Refresh(ctx, creds.RefreshToken)
	require.ErrorIs(t, err, apperrors.ErrRefreshInvalid)

	// The rotated token still works.
	_, err = client.Refresh(ctx, result.RefreshToken)
	require.NoError(t, err)
}

func TestRefreshWithoutCredential(t *testing.T) {
	client := setupServer(t, devserver.Config{})

	_, err := client.Refresh(context.Background(), "")
	require.ErrorIs(t, err, apperrors.ErrRefreshInvalid)
}

func TestLogoutRevokesRefreshToken(t *testing.T) {
	client := setupServer(t, devserver.Config{})
	ctx := context.Background()

	creds, err := client.Register(ctx, testName, testEmail, testPassword)
	require.NoError(t, err)

	require.NoError(t, client.Logout(ctx, creds.Token))

	_, err = client.Refresh(ctx, creds.RefreshToken)
	require.ErrorIs(t, err, apperrors.ErrRefreshInvalid)
}

func TestLogoutSucceedsAnonymously(t *testing.T) {
	client := setupServer(t, devserver.Config{})
	require.NoError(t, client.Logout(context.Background(), ""))
}

func TestValidatePasswordStrength(t *testing.T) {
	tests := []struct {
		name     string
		password string
		wantErr  bool
	}{
		{"valid", "Password123", false},
		{"too short", "Pw1", true},
		{"no uppercase", "password123", true},
		{"no lowercase", "PASSWORD123", true},
		{"no number", "PasswordAbc", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := devserver.ValidatePasswordStrength(tt.password)
			if tt.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestUpdateProfile(t *testing.T) {
	server := httptest.NewServer(devserver.New(devserver.Config{}, zerolog.Nop()))
	t.Cleanup(server.Close)

	client, err := authapi.New(server.URL, server.Client())
	require.NoError(t, err)
	ctx := context.Background()

	creds, err := client.Register(ctx, testName, testEmail, testPassword)
	require.NoError(t, err)

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, server.URL+"/users/me",
		jsonBody(t, map[string]string{"name": "Johnny"}))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+creds.Token)

	resp, err := server.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	user, err := client.Me(ctx, creds.Token)
	require.NoError(t, err)
	require.Equal(t, "Johnny", user.Name)
}

func jsonBody(t *testing.T, v any) io.Reader {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	return bytes.NewReader(data)
}
