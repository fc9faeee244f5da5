package devserver

import (
	"encoding/json"
	"net/http"
	"strings"

	apperrors "github.com/jrsteele09/go-auth-client/internal/errors"
	"github.com/jrsteele09/go-auth-client/users"
)

const refreshCookieName = "refresh_token"

type credentialsResponse struct {
	User         users.User `json:"user"`
	Token        string     `json:"token"`
	RefreshToken string     `json:"refresh_token,omitempty"`
}

type refreshResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
}

type userResponse struct {
	User users.User `json:"user"`
}

// LoginHandler authenticates an email/password pair and issues a fresh
// access/refresh token pair. The refresh token is returned in the body and
// mirrored in an HttpOnly cookie, so both client variants work against it.
func (s *Server) LoginHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Email    string `json:"email"`
			Password string `json:"password"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			s.writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		account, err := s.accounts.Authenticate(req.Email, req.Password)
		if err != nil {
			s.writeError(w, http.StatusUnauthorized, "invalid email or password")
			return
		}

		s.issueSession(w, account)
	}
}

// RegisterHandler creates an account and logs it straight in.
func (s *Server) RegisterHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Name     string `json:"name"`
			Email    string `json:"email"`
			Password string `json:"password"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			s.writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		account, err := s.accounts.Create(req.Name, req.Email, req.Password)
		switch {
		case apperrors.Is(err, apperrors.ErrUserExists):
			s.writeError(w, http.StatusConflict, "email already registered")
			return
		case apperrors.Is(err, apperrors.ErrValidation):
			s.writeError(w, http.StatusBadRequest, err.Error())
			return
		case err != nil:
			s.writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		s.issueSession(w, account)
	}
}

// RefreshHandler redeems a refresh token (body field or ambient cookie) for a
// new access token, rotating the refresh token in the process.
func (s *Server) RefreshHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			RefreshToken string `json:"refresh_token"`
		}
		// The body may legitimately be empty for cookie-based clients.
		_ = json.NewDecoder(r.Body).Decode(&req)

		token := req.RefreshToken
		if token == "" {
			if cookie, err := r.Cookie(refreshCookieName); err == nil {
				token = cookie.Value
			}
		}
		if token == "" {
			s.writeError(w, http.StatusUnauthorized, "missing refresh token")
			return
		}

		userID, rotated, err := s.refresh.Redeem(token)
		if err != nil {
			s.log.Debug().Err(err).Msg("refresh rejected")
			s.writeError(w, http.StatusUnauthorized, "invalid refresh token")
			return
		}

		account, err := s.accounts.Get(userID)
		if err != nil {
			s.writeError(w, http.StatusUnauthorized, "invalid refresh token")
			return
		}

		accessToken, err := s.tokens.Issue(account)
		if err != nil {
			s.writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		s.setRefreshCookie(w, rotated)
		s.writeJSON(w, http.StatusOK, refreshResponse{AccessToken: accessToken, RefreshToken: rotated})
	}
}

// LogoutHandler revokes the caller's refresh token. It succeeds even for
// anonymous callers: logout must never fail the client's teardown.
func (s *Server) LogoutHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if userID, err := s.authenticate(r); err == nil {
			s.refresh.Revoke(userID)
		}
		s.setRefreshCookie(w, "")
		w.WriteHeader(http.StatusNoContent)
	}
}

// MeHandler returns the profile of the token's owner.
func (s *Server) MeHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		account, ok := s.requireAccount(w, r)
		if !ok {
			return
		}
		s.writeJSON(w, http.StatusOK, userResponse{User: account.User()})
	}
}

// UpdateProfileHandler updates the caller's display name.
func (s *Server) UpdateProfileHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		account, ok := s.requireAccount(w, r)
		if !ok {
			return
		}

		var req struct {
			Name string `json:"name"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			s.writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		updated, err := s.accounts.UpdateName(account.ID, req.Name)
		if err != nil {
			s.writeError(w, http.StatusNotFound, "user not found")
			return
		}
		s.writeJSON(w, http.StatusOK, userResponse{User: updated.User()})
	}
}

// GetUserHandler returns a user by ID. Admin-ish; the dev server only checks
// that the caller is authenticated.
func (s *Server) GetUserHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, ok := s.requireAccount(w, r); !ok {
			return
		}
		account, err := s.accounts.Get(r.PathValue("id"))
		if err != nil {
			s.writeError(w, http.StatusNotFound, "user not found")
			return
		}
		s.writeJSON(w, http.StatusOK, userResponse{User: account.User()})
	}
}

// issueSession writes the login/register success payload.
func (s *Server) issueSession(w http.ResponseWriter, account *Account) {
	accessToken, err := s.tokens.Issue(account)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	refreshToken := s.refresh.Create(account.ID)

	s.setRefreshCookie(w, refreshToken)
	s.writeJSON(w, http.StatusOK, credentialsResponse{
		User:         account.User(),
		Token:        accessToken,
		RefreshToken: refreshToken,
	})
}

// authenticate extracts and verifies the bearer token, returning the user ID.
func (s *Server) authenticate(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		return "", apperrors.ErrUnauthorized
	}
	return s.tokens.Verify(strings.TrimPrefix(header, "Bearer "))
}

func (s *Server) requireAccount(w http.ResponseWriter, r *http.Request) (*Account, bool) {
	userID, err := s.authenticate(r)
	if err != nil {
		s.writeError(w, http.StatusUnauthorized, "invalid or expired token")
		return nil, false
	}
	account, err := s.accounts.Get(userID)
	if err != nil {
		s.writeError(w, http.StatusUnauthorized, "invalid or expired token")
		return nil, false
	}
	return account, true
}

func (s *Server) setRefreshCookie(w http.ResponseWriter, token string) {
	cookie := &http.Cookie{
		Name:     refreshCookieName,
		Value:    token,
		Path:     "/auth",
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	}
	if token == "" {
		cookie.MaxAge = -1
	}
	http.SetCookie(w, cookie)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.log.Error().Err(err).Msg("failed to encode response")
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"message": message})
}
