package session_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jrsteele09/go-auth-client/authapi"
	apperrors "github.com/jrsteele09/go-auth-client/internal/errors"
	"github.com/jrsteele09/go-auth-client/session"
	"github.com/jrsteele09/go-auth-client/session/backendfake"
	"github.com/jrsteele09/go-auth-client/tokenstore/repofake"
	"github.com/jrsteele09/go-auth-client/users"
)

const (
	testEmail    = "a@b.com"
	testPassword = "pw"
)

var testUser = users.User{ID: "1", Name: "A", Email: testEmail, Role: users.RoleUser}

type testFixture struct {
	backend *backendfake.FakeBackend
	tokens  *repofake.FakeTokenRepo
	engine  *session.Engine
}

func setupTestFixture(t *testing.T, configure func(backend *backendfake.FakeBackend, tokens *repofake.FakeTokenRepo)) *testFixture {
	t.Helper()

	backend := backendfake.NewFakeBackend()
	tokens := repofake.NewFakeTokenRepo()
	if configure != nil {
		configure(backend, tokens)
	}

	engine, err := session.New(backend, tokens)
	require.NoError(t, err)

	return &testFixture{backend: backend, tokens: tokens, engine: engine}
}

func TestNewRequiresDependencies(t *testing.T) {
	_, err := session.New(nil, repofake.NewFakeTokenRepo())
	require.Error(t, err)

	_, err = session.New(backendfake.NewFakeBackend(), nil)
	require.Error(t, err)
}

func TestLoginSuccess(t *testing.T) {
	f := setupTestFixture(t, func(b *backendfake.FakeBackend, _ *repofake.FakeTokenRepo) {
		b.LoginFn = func(email, password string) (*authapi.Credentials, error) {
			require.Equal(t, testEmail, email)
			require.Equal(t, testPassword, password)
			return &authapi.Credentials{User: testUser, Token: "T1"}, nil
		}
	})

	require.NoError(t, f.engine.Login(context.Background(), testEmail, testPassword))

	s := f.engine.Snapshot()
	require.Equal(t, session.StatusAuthenticated, s.Status)
	require.NotNil(t, s.User)
	require.Equal(t, "A", s.User.Name)
	require.Equal(t, "T1", s.AccessToken)
	require.Empty(t, s.LastError)

	stored, err := f.tokens.Read()
	require.NoError(t, err)
	require.Equal(t, "T1", stored)
}

func TestLoginFailureSetsLastErrorAndReturnsError(t *testing.T) {
	f := setupTestFixture(t, func(b *backendfake.FakeBackend, _ *repofake.FakeTokenRepo) {
		b.LoginFn = func(string, string) (*authapi.Credentials, error) {
			return nil, &authapi.HTTPError{
				Status:  401,
				Message: "invalid email or password",
				Kind:    apperrors.ErrInvalidCredentials,
			}
		}
	})

	err := f.engine.Login(context.Background(), testEmail, "wrong")
	require.ErrorIs(t, err, apperrors.ErrInvalidCredentials)

	s := f.engine.Snapshot()
	require.Equal(t, session.StatusUnauthenticated, s.Status)
	require.Nil(t, s.User)
	require.Equal(t, "invalid email or password", s.LastError)
}

func TestLoginClearsPreviousError(t *testing.T) {
	f := setupTestFixture(t, func(b *backendfake.FakeBackend, _ *repofake.FakeTokenRepo) {
		b.LoginFn = func(string, string) (*authapi.Credentials, error) {
			return nil, apperrors.ErrInvalidCredentials
		}
	})

	require.Error(t, f.engine.Login(context.Background(), testEmail, "wrong"))
	require.NotEmpty(t, f.engine.Snapshot().LastError)

	f.backend.LoginFn = func(string, string) (*authapi.Credentials, error) {
		return &authapi.Credentials{User: testUser, Token: "T1"}, nil
	}
	require.NoError(t, f.engine.Login(context.Background(), testEmail, testPassword))
	require.Empty(t, f.engine.Snapshot().LastError)
}

func TestRegisterSuccessPersistsBothTokens(t *testing.T) {
	f := setupTestFixture(t, func(b *backendfake.FakeBackend, _ *repofake.FakeTokenRepo) {
		b.RegisterFn = func(name, email, password string) (*authapi.Credentials, error) {
			return &authapi.Credentials{User: testUser, Token: "T1", RefreshToken: "R1"}, nil
		}
	})

	require.NoError(t, f.engine.Register(context.Background(), "A", testEmail, "Password1"))

	s := f.engine.Snapshot()
	require.True(t, s.Authenticated())
	require.Equal(t, "T1", s.AccessToken)

	access, _ := f.tokens.Read()
	refresh, _ := f.tokens.ReadRefresh()
	require.Equal(t, "T1", access)
	require.Equal(t, "R1", refresh)
}

func TestRegisterValidationFailure(t *testing.T) {
	f := setupTestFixture(t, func(b *backendfake.FakeBackend, _ *repofake.FakeTokenRepo) {
		b.RegisterFn = func(string, string, string) (*authapi.Credentials, error) {
			return nil, &authapi.HTTPError{Status: 409, Message: "email already registered", Kind: apperrors.ErrUserExists}
		}
	})

	err := f.engine.Register(context.Background(), "A", testEmail, "Password1")
	require.ErrorIs(t, err, apperrors.ErrUserExists)
	require.Equal(t, "email already registered", f.engine.Snapshot().LastError)
}

func TestLogoutIdempotentFromUnauthenticated(t *testing.T) {
	f := setupTestFixture(t, nil)

	f.engine.Logout(context.Background())
	first := f.engine.Snapshot()
	require.Equal(t, session.StatusUnauthenticated, first.Status)
	require.Nil(t, first.User)
	require.Empty(t, first.AccessToken)

	f.engine.Logout(context.Background())
	require.Equal(t, first, f.engine.Snapshot())
}

func TestLogoutSwallowsServerFailure(t *testing.T) {
	// Scenario E: the server-side logout call fails but the client session
	// still resets unconditionally.
	f := setupTestFixture(t, func(b *backendfake.FakeBackend, _ *repofake.FakeTokenRepo) {
		b.LoginFn = func(string, string) (*authapi.Credentials, error) {
			return &authapi.Credentials{User: testUser, Token: "T1", RefreshToken: "R1"}, nil
		}
		b.LogoutFn = func(string) error {
			return apperrors.ErrNetwork
		}
	})

	require.NoError(t, f.engine.Login(context.Background(), testEmail, testPassword))
	f.engine.Logout(context.Background())

	s := f.engine.Snapshot()
	require.Equal(t, session.StatusUnauthenticated, s.Status)
	require.Nil(t, s.User)
	require.Empty(t, s.AccessToken)

	access, _ := f.tokens.Read()
	refresh, _ := f.tokens.ReadRefresh()
	require.Empty(t, access)
	require.Empty(t, refresh)
}

func TestCheckAuthFreshClientResolvesLoggedOut(t *testing.T) {
	// Scenario A: no stored token and the server rejects the refresh. This is
	// the expected "never logged in" outcome, not an error.
	f := setupTestFixture(t, func(b *backendfake.FakeBackend, _ *repofake.FakeTokenRepo) {
		b.RefreshFn = func(string) (*authapi.RefreshResult, error) {
			return nil, apperrors.ErrRefreshInvalid
		}
	})

	s := f.engine.CheckAuth(context.Background())

	require.Equal(t, session.StatusUnauthenticated, s.Status)
	require.Nil(t, s.User)
	require.Empty(t, s.AccessToken)
	require.Equal(t, 1, f.backend.RefreshCalls)
	require.Equal(t, 0, f.backend.MeCalls)
	require.Equal(t, 0, f.backend.LogoutCalls)
}

func TestCheckAuthWithValidStoredToken(t *testing.T) {
	f := setupTestFixture(t, func(b *backendfake.FakeBackend, tokens *repofake.FakeTokenRepo) {
		require.NoError(t, tokens.Write("T0"))
		b.MeFn = func(token string) (*users.User, error) {
			require.Equal(t, "T0", token)
			u := testUser
			return &u, nil
		}
	})

	s := f.engine.CheckAuth(context.Background())

	require.True(t, s.Authenticated())
	require.Equal(t, "T0", s.AccessToken)
	require.Equal(t, 0, f.backend.RefreshCalls)
	require.Equal(t, 1, f.backend.MeCalls)
}

func TestCheckAuthRecoversRejectedToken(t *testing.T) {
	// Scenario C: the stored token is rejected, one refresh mints a working
	// replacement, and the profile fetch succeeds on the retry.
	f := setupTestFixture(t, func(b *backendfake.FakeBackend, tokens *repofake.FakeTokenRepo) {
		require.NoError(t, tokens.Write("T_old"))
		require.NoError(t, tokens.WriteRefresh("R1"))
		b.MeFn = func(token string) (*users.User, error) {
			if token != "T_new" {
				return nil, apperrors.ErrUnauthorized
			}
			u := testUser
			return &u, nil
		}
		b.RefreshFn = func(refreshToken string) (*authapi.RefreshResult, error) {
			require.Equal(t, "R1", refreshToken)
			return &authapi.RefreshResult{AccessToken: "T_new", RefreshToken: "R2"}, nil
		}
	})

	s := f.engine.CheckAuth(context.Background())

	require.True(t, s.Authenticated())
	require.Equal(t, "T_new", s.AccessToken)
	require.Equal(t, 1, f.backend.RefreshCalls)
	require.Equal(t, 2, f.backend.MeCalls)

	access, _ := f.tokens.Read()
	refresh, _ := f.tokens.ReadRefresh()
	require.Equal(t, "T_new", access)
	require.Equal(t, "R2", refresh)
}

func TestCheckAuthTerminalRefreshFailure(t *testing.T) {
	// Scenario D: stored token rejected and the refresh credential is dead.
	// Full teardown, server logout attempted and its failure swallowed.
	f := setupTestFixture(t, func(b *backendfake.FakeBackend, tokens *repofake.FakeTokenRepo) {
		require.NoError(t, tokens.Write("T_old"))
		b.MeFn = func(string) (*users.User, error) {
			return nil, apperrors.ErrUnauthorized
		}
		b.RefreshFn = func(string) (*authapi.RefreshResult, error) {
			return nil, apperrors.ErrRefreshInvalid
		}
		b.LogoutFn = func(string) error {
			return apperrors.ErrNetwork
		}
	})

	s := f.engine.CheckAuth(context.Background())

	require.Equal(t, session.StatusUnauthenticated, s.Status)
	require.Nil(t, s.User)
	require.Empty(t, s.AccessToken)
	require.Equal(t, 1, f.backend.LogoutCalls)

	access, _ := f.tokens.Read()
	require.Empty(t, access)
}

func TestCheckAuthBounds(t *testing.T) {
	// Worst case: no stored token, every refresh succeeds, every profile
	// fetch fails. The algorithm must stop at two of each.
	f := setupTestFixture(t, func(b *backendfake.FakeBackend, _ *repofake.FakeTokenRepo) {
		b.RefreshFn = func(string) (*authapi.RefreshResult, error) {
			return &authapi.RefreshResult{AccessToken: "T_next"}, nil
		}
		b.MeFn = func(string) (*users.User, error) {
			return nil, apperrors.ErrUnauthorized
		}
	})

	s := f.engine.CheckAuth(context.Background())

	require.Equal(t, session.StatusUnauthenticated, s.Status)
	require.Equal(t, 2, f.backend.RefreshCalls)
	require.Equal(t, 2, f.backend.MeCalls)
}

func TestBootstrapRunsCheckAuthOnce(t *testing.T) {
	f := setupTestFixture(t, func(b *backendfake.FakeBackend, _ *repofake.FakeTokenRepo) {
		b.RefreshFn = func(string) (*authapi.RefreshResult, error) {
			return nil, apperrors.ErrRefreshInvalid
		}
	})

	f.engine.Bootstrap(context.Background())
	f.engine.Bootstrap(context.Background())

	require.Equal(t, 1, f.backend.RefreshCalls)
}

func TestUserImpliesToken(t *testing.T) {
	// After any successful resolution, user != absent implies a token that
	// matches what was persisted.
	f := setupTestFixture(t, func(b *backendfake.FakeBackend, _ *repofake.FakeTokenRepo) {
		b.LoginFn = func(string, string) (*authapi.Credentials, error) {
			return &authapi.Credentials{User: testUser, Token: "T1"}, nil
		}
	})

	require.NoError(t, f.engine.Login(context.Background(), testEmail, testPassword))

	s := f.engine.Snapshot()
	require.NotNil(t, s.User)
	require.NotEmpty(t, s.AccessToken)
	stored, _ := f.tokens.Read()
	require.Equal(t, stored, s.AccessToken)
}

func TestSnapshotDoesNotAliasEngineState(t *testing.T) {
	f := setupTestFixture(t, func(b *backendfake.FakeBackend, _ *repofake.FakeTokenRepo) {
		b.LoginFn = func(string, string) (*authapi.Credentials, error) {
			return &authapi.Credentials{User: testUser, Token: "T1"}, nil
		}
	})

	require.NoError(t, f.engine.Login(context.Background(), testEmail, testPassword))

	s := f.engine.Snapshot()
	s.User.Name = "mutated"
	require.Equal(t, "A", f.engine.Snapshot().User.Name)
}
