// Package session owns the client's session state machine: login, register,
// logout, and the bounded startup-recovery algorithm. All state mutations go
// through the Engine; collaborators only ever see snapshots.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/jrsteele09/go-auth-client/authapi"
	"github.com/jrsteele09/go-auth-client/tokenstore"
	"github.com/jrsteele09/go-auth-client/users"
)

const defaultCallTimeout = 15 * time.Second

// Backend is the slice of the auth API the engine drives. authapi.Client
// implements it; tests substitute a scriptable fake.
type Backend interface {
	Login(ctx context.Context, email, password string) (*authapi.Credentials, error)
	Register(ctx context.Context, name, email, password string) (*authapi.Credentials, error)
	Refresh(ctx context.Context, refreshToken string) (*authapi.RefreshResult, error)
	Me(ctx context.Context, accessToken string) (*users.User, error)
	Logout(ctx context.Context, accessToken string) error
}

var _ Backend = (*authapi.Client)(nil)

// Engine owns the one Session per running client.
type Engine struct {
	lock    sync.Mutex
	session Session

	backend Backend
	tokens  tokenstore.Repo
	timeout time.Duration
	log     zerolog.Logger

	bootstrapOnce sync.Once
}

// Option defines a function type to modify the Engine instance.
type Option func(*Engine)

// WithLogger sets the engine's logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(e *Engine) {
		e.log = logger.With().Str("component", "session").Logger()
	}
}

// WithCallTimeout bounds each backend call so a stalled refresh or profile
// fetch cannot hold the session in Recovering indefinitely.
func WithCallTimeout(timeout time.Duration) Option {
	return func(e *Engine) {
		e.timeout = timeout
	}
}

// New creates an Engine, recovering any access token from the durable store so
// the session survives a restart. The recovered session starts Idle: the token
// is unproven until CheckAuth or the first intercepted call exercises it.
func New(backend Backend, tokens tokenstore.Repo, options ...Option) (*Engine, error) {
	if backend == nil {
		return nil, errors.New("[session.New] backend is required")
	}
	if tokens == nil {
		return nil, errors.New("[session.New] tokens repo is required")
	}

	engine := &Engine{
		backend: backend,
		tokens:  tokens,
		timeout: defaultCallTimeout,
		log:     zerolog.Nop(),
	}
	for _, opt := range options {
		opt(engine)
	}

	token, err := tokens.Read()
	if err != nil {
		engine.log.Warn().Err(err).Msg("could not recover stored token, starting logged out")
		token = ""
	}
	engine.session = Session{Status: StatusIdle, AccessToken: token}

	return engine, nil
}

// Snapshot returns a copy of the current session.
func (e *Engine) Snapshot() Session {
	e.lock.Lock()
	defer e.lock.Unlock()
	return e.session.clone()
}

// Login authenticates with email and password. On failure the error is both
// recorded in Session.LastError and returned, so state-driven UIs and direct
// callers can each react.
func (e *Engine) Login(ctx context.Context, email, password string) error {
	return e.authenticate(ctx, "login failed", func(ctx context.Context) (*authapi.Credentials, error) {
		return e.backend.Login(ctx, email, password)
	})
}

// Register creates an account and logs it in. Failure handling is identical
// to Login.
func (e *Engine) Register(ctx context.Context, name, email, password string) error {
	return e.authenticate(ctx, "registration failed", func(ctx context.Context) (*authapi.Credentials, error) {
		return e.backend.Register(ctx, name, email, password)
	})
}

// authenticate runs the shared login/register state transitions. The deferred
// commit guarantees the Authenticating state is released on every path.
func (e *Engine) authenticate(ctx context.Context, fallbackMsg string, call func(ctx context.Context) (*authapi.Credentials, error)) (err error) {
	e.commit(func(s *Session) {
		s.Status = StatusAuthenticating
		s.LastError = ""
	})

	var creds *authapi.Credentials
	defer func() {
		e.commit(func(s *Session) {
			if creds != nil {
				user := creds.User
				*s = Session{User: &user, AccessToken: creds.Token, Status: StatusAuthenticated}
				return
			}
			s.Status = StatusUnauthenticated
			s.LastError = authapi.Message(err, fallbackMsg)
		})
	}()

	callCtx, cancel := e.callContext(ctx)
	defer cancel()

	creds, err = call(callCtx)
	if err != nil {
		e.log.Debug().Err(err).Msg(fallbackMsg)
		return err
	}

	e.persistTokens(creds.Token, creds.RefreshToken)
	return nil
}

// Logout tears the session down. The server-side invalidation is best effort:
// its failure is logged and swallowed, and the local reset happens regardless,
// so this operation never fails from the caller's perspective.
func (e *Engine) Logout(ctx context.Context) {
	token := e.Snapshot().AccessToken

	callCtx, cancel := e.callContext(ctx)
	defer cancel()
	if err := e.backend.Logout(callCtx, token); err != nil {
		e.log.Warn().Err(err).Msg("server logout failed, clearing local session anyway")
	}

	if err := e.tokens.Clear(); err != nil {
		e.log.Warn().Err(err).Msg("failed to clear token store")
	}
	e.commit(func(s *Session) {
		*s = Session{Status: StatusUnauthenticated}
	})
}

// Bootstrap runs CheckAuth exactly once for the process lifetime, however many
// callers race it, and returns the resulting session. Callers that gate
// protected work on the outcome should use this rather than CheckAuth.
func (e *Engine) Bootstrap(ctx context.Context) Session {
	e.bootstrapOnce.Do(func() { e.CheckAuth(ctx) })
	return e.Snapshot()
}

// CheckAuth recovers the session on startup (and re-validates it on demand).
// It issues at most two refresh calls and two profile fetches, then resolves
// deterministically to Authenticated or a fully reset logged-out state. It
// never reports an error: a failed recovery is the expected "never logged in"
// outcome, not a fault.
func (e *Engine) CheckAuth(ctx context.Context) Session {
	e.commit(func(s *Session) {
		s.Status = StatusRecovering
	})

	token := e.Snapshot().AccessToken
	if token == "" {
		stored, err := e.tokens.Read()
		if err != nil {
			e.log.Warn().Err(err).Msg("token store read failed during recovery")
		}
		token = stored
	}

	if token == "" {
		refreshed, err := e.refresh(ctx)
		if err != nil {
			// No token and no refresh credential: never logged in.
			e.log.Debug().Err(err).Msg("no session to recover")
			e.commit(func(s *Session) {
				*s = Session{Status: StatusUnauthenticated}
			})
			return e.Snapshot()
		}
		token = refreshed
	}

	if user, err := e.me(ctx, token); err == nil {
		e.commit(func(s *Session) {
			*s = Session{User: user, AccessToken: token, Status: StatusAuthenticated}
		})
		return e.Snapshot()
	}

	// The token was rejected: one more refresh, one more profile fetch.
	refreshed, err := e.refresh(ctx)
	if err == nil {
		if user, meErr := e.me(ctx, refreshed); meErr == nil {
			e.commit(func(s *Session) {
				*s = Session{User: user, AccessToken: refreshed, Status: StatusAuthenticated}
			})
			return e.Snapshot()
		}
	}

	// Unrecoverable client-side: full teardown.
	e.log.Debug().Msg("session recovery failed, logging out")
	e.Logout(ctx)
	return e.Snapshot()
}

// refresh exchanges the stored refresh credential for a new access token and
// persists the result (including a rotated refresh token when one is issued).
func (e *Engine) refresh(ctx context.Context) (string, error) {
	refreshToken, err := e.tokens.ReadRefresh()
	if err != nil {
		e.log.Warn().Err(err).Msg("refresh token read failed, relying on ambient credential")
		refreshToken = ""
	}

	callCtx, cancel := e.callContext(ctx)
	defer cancel()

	result, err := e.backend.Refresh(callCtx, refreshToken)
	if err != nil {
		return "", err
	}

	e.persistTokens(result.AccessToken, result.RefreshToken)
	return result.AccessToken, nil
}

func (e *Engine) me(ctx context.Context, token string) (*users.User, error) {
	callCtx, cancel := e.callContext(ctx)
	defer cancel()
	return e.backend.Me(callCtx, token)
}

// persistTokens writes tokens through the durable store. Persistence failures
// are logged rather than failing the operation: the in-memory session is still
// valid, it just will not survive a restart.
func (e *Engine) persistTokens(access, refresh string) {
	if err := e.tokens.Write(access); err != nil {
		e.log.Error().Err(err).Msg("failed to persist access token")
	}
	if refresh != "" {
		if err := e.tokens.WriteRefresh(refresh); err != nil {
			e.log.Error().Err(err).Msg("failed to persist refresh token")
		}
	}
}

// commit applies a mutation atomically: other operations observe the session
// before or after it, never a partial interleaving of field writes.
func (e *Engine) commit(mutate func(*Session)) {
	e.lock.Lock()
	defer e.lock.Unlock()
	mutate(&e.session)
}

func (e *Engine) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if e.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, e.timeout)
}
