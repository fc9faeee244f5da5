// Package devserver is an in-memory authentication backend implementing the
// HTTP contract the client speaks: login, register, refresh, profile, and
// logout. It backs local development and the end-to-end tests; it is not a
// production server.
package devserver

import (
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

// Config carries the tunables the dev server needs.
type Config struct {
	TokenSecret string
	AccessTTL   time.Duration
	RefreshTTL  time.Duration
}

func (c Config) withDefaults() Config {
	if c.TokenSecret == "" {
		c.TokenSecret = "dev-secret-do-not-deploy"
	}
	if c.AccessTTL == 0 {
		c.AccessTTL = 15 * time.Minute
	}
	if c.RefreshTTL == 0 {
		c.RefreshTTL = 7 * 24 * time.Hour
	}
	return c
}

// Server wires the account store and token managers behind an http.Handler.
type Server struct {
	mux      *http.ServeMux
	accounts *AccountRepo
	tokens   *TokenManager
	refresh  *RefreshManager
	log      zerolog.Logger
}

// New creates a dev auth server.
func New(cfg Config, logger zerolog.Logger) *Server {
	cfg = cfg.withDefaults()
	s := &Server{
		mux:      http.NewServeMux(),
		accounts: NewAccountRepo(),
		tokens:   NewTokenManager(cfg.TokenSecret, cfg.AccessTTL),
		refresh:  NewRefreshManager(cfg.RefreshTTL),
		log:      logger.With().Str("component", "devserver").Logger(),
	}
	s.initRoutes()
	return s
}

func (s *Server) initRoutes() {
	s.mux.HandleFunc("POST /auth/login", s.LoginHandler())
	s.mux.HandleFunc("POST /auth/register", s.RegisterHandler())
	s.mux.HandleFunc("POST /auth/refresh", s.RefreshHandler())
	s.mux.HandleFunc("POST /auth/logout", s.LogoutHandler())
	s.mux.HandleFunc("GET /auth/me", s.MeHandler())
	s.mux.HandleFunc("GET /users/me", s.MeHandler())
	s.mux.HandleFunc("PUT /users/me", s.UpdateProfileHandler())
	s.mux.HandleFunc("GET /users/{id}", s.GetUserHandler())
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// Accounts exposes the account repo so tests and the CLI can seed users.
func (s *Server) Accounts() *AccountRepo {
	return s.accounts
}
