package cli

import (
	"context"
	"net/http"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/jrsteele09/go-auth-client/authapi"
	"github.com/jrsteele09/go-auth-client/internal/config"
	"github.com/jrsteele09/go-auth-client/session"
	"github.com/jrsteele09/go-auth-client/tokenstore"
	"github.com/jrsteele09/go-auth-client/tokenstore/filestore"
	"github.com/jrsteele09/go-auth-client/tokenstore/sqlitestore"
	"github.com/jrsteele09/go-auth-client/transport"
)

// app wires the session SDK for the CLI: durable token store, raw auth client
// for the engine, and an intercepted client for profile traffic.
type app struct {
	cfg     config.Config
	log     zerolog.Logger
	tokens  tokenstore.Repo
	engine  *session.Engine
	userSvc *authapi.UserService
}

func newApp() (*app, error) {
	cfg := config.New()

	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
	if cfg.GetEnv() == "DEV" {
		logger = logger.Level(zerolog.DebugLevel)
	} else {
		logger = logger.Level(zerolog.WarnLevel)
	}

	tokens, err := newTokenStore(cfg, logger)
	if err != nil {
		return nil, errors.Wrap(err, "[newApp] token store")
	}

	// The engine drives the raw client: session recovery manages its own
	// refreshes and must not be second-guessed by the interception layer.
	raw, err := authapi.New(cfg.GetAPIBaseURL(), &http.Client{Timeout: cfg.GetRequestTimeout()}, authapi.WithLogger(logger))
	if err != nil {
		return nil, errors.Wrap(err, "[newApp] auth client")
	}

	engine, err := session.New(raw, tokens,
		session.WithLogger(logger),
		session.WithCallTimeout(cfg.GetRequestTimeout()),
	)
	if err != nil {
		return nil, errors.Wrap(err, "[newApp] session engine")
	}

	authTransport, err := transport.New(tokens, refreshFunc(raw, tokens), transport.WithLogger(logger))
	if err != nil {
		return nil, errors.Wrap(err, "[newApp] transport")
	}

	userSvc, err := authapi.NewUserService(cfg.GetAPIBaseURL(), &http.Client{
		Transport: authTransport,
		Timeout:   cfg.GetRequestTimeout(),
	}, authapi.WithUserLogger(logger))
	if err != nil {
		return nil, errors.Wrap(err, "[newApp] user service")
	}

	return &app{
		cfg:     cfg,
		log:     logger,
		tokens:  tokens,
		engine:  engine,
		userSvc: userSvc,
	}, nil
}

func newTokenStore(cfg config.Config, logger zerolog.Logger) (tokenstore.Repo, error) {
	switch cfg.GetTokenStoreBackend() {
	case "sqlite":
		if err := os.MkdirAll(cfg.GetDataFolder(), 0o700); err != nil {
			return nil, err
		}
		return sqlitestore.New(filepath.Join(cfg.GetDataFolder(), "credentials.db"), logger)
	default:
		return filestore.New(cfg.GetDataFolder(), logger)
	}
}

// refreshFunc builds the transport's refresh callback on the raw client,
// persisting a rotated refresh token when the server issues one. The access
// token itself is persisted by the transport after a successful refresh.
func refreshFunc(raw *authapi.Client, tokens tokenstore.Repo) transport.RefreshFunc {
	return func(ctx context.Context) (string, error) {
		refreshToken, err := tokens.ReadRefresh()
		if err != nil {
			refreshToken = ""
		}
		result, err := raw.Refresh(ctx, refreshToken)
		if err != nil {
			return "", err
		}
		if result.RefreshToken != "" {
			if err := tokens.WriteRefresh(result.RefreshToken); err != nil {
				return "", err
			}
		}
		return result.AccessToken, nil
	}
}
