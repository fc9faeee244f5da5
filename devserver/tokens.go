package devserver

import (
	"fmt"
	"sync"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	apperrors "github.com/jrsteele09/go-auth-client/internal/errors"
)

// NowTimeFunc returns the current time. It can be overridden in tests.
var NowTimeFunc = time.Now

// TokenManager issues and verifies HS256 access tokens.
type TokenManager struct {
	secret    []byte
	accessTTL time.Duration
}

func NewTokenManager(secret string, accessTTL time.Duration) *TokenManager {
	return &TokenManager{secret: []byte(secret), accessTTL: accessTTL}
}

// Issue creates a signed access token for the account.
func (m *TokenManager) Issue(account *Account) (string, error) {
	now := NowTimeFunc()
	claims := jwtlib.MapClaims{
		"sub":   account.ID,
		"email": account.Email,
		"name":  account.Name,
		"role":  string(account.Role),
		"iat":   now.Unix(),
		"exp":   now.Add(m.accessTTL).Unix(),
		"jti":   uuid.New().String(),
	}
	token := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign access token: %w", err)
	}
	return signed, nil
}

// Verify parses the access token and returns the subject (account ID).
func (m *TokenManager) Verify(tokenStr string) (string, error) {
	token, err := jwtlib.Parse(tokenStr, func(t *jwtlib.Token) (any, error) {
		if _, ok := t.Method.(*jwtlib.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return m.secret, nil
	}, jwtlib.WithTimeFunc(func() time.Time { return NowTimeFunc() }))
	if err != nil {
		return "", apperrors.Wrapf(apperrors.ErrUnauthorized, "parse access token: %s", err.Error())
	}
	sub, err := token.Claims.GetSubject()
	if err != nil || sub == "" {
		return "", apperrors.ErrUnauthorized
	}
	return sub, nil
}

// StoredRefreshToken is a server-side refresh token record.
type StoredRefreshToken struct {
	Token  string
	UserID string
	Iat    time.Time
}

// RefreshManager handles refresh token creation, validation, and rotation.
// One refresh token per user: issuing a new one revokes the previous.
type RefreshManager struct {
	lock    sync.Mutex
	byToken map[string]*StoredRefreshToken
	byUser  map[string]string // userID -> current token
	ttl     time.Duration
}

func NewRefreshManager(ttl time.Duration) *RefreshManager {
	return &RefreshManager{
		byToken: make(map[string]*StoredRefreshToken),
		byUser:  make(map[string]string),
		ttl:     ttl,
	}
}

// Create generates a new refresh token for the user, revoking any existing one.
func (m *RefreshManager) Create(userID string) string {
	m.lock.Lock()
	defer m.lock.Unlock()
	return m.createLocked(userID)
}

func (m *RefreshManager) createLocked(userID string) string {
	if existing, ok := m.byUser[userID]; ok {
		delete(m.byToken, existing)
	}
	token := uuid.New().String()
	m.byToken[token] = &StoredRefreshToken{Token: token, UserID: userID, Iat: NowTimeFunc()}
	m.byUser[userID] = token
	return token
}

// Redeem validates and rotates the refresh token: the presented token is
// revoked and a replacement issued atomically, so a replayed token fails.
func (m *RefreshManager) Redeem(token string) (userID, rotated string, err error) {
	m.lock.Lock()
	defer m.lock.Unlock()

	stored, ok := m.byToken[token]
	if !ok {
		return "", "", apperrors.ErrRefreshInvalid
	}
	if NowTimeFunc().Sub(stored.Iat) > m.ttl {
		delete(m.byToken, token)
		delete(m.byUser, stored.UserID)
		return "", "", apperrors.Wrapf(apperrors.ErrRefreshInvalid, "refresh token expired")
	}

	return stored.UserID, m.createLocked(stored.UserID), nil
}

// Revoke removes the user's refresh token, if any.
func (m *RefreshManager) Revoke(userID string) {
	m.lock.Lock()
	defer m.lock.Unlock()
	if token, ok := m.byUser[userID]; ok {
		delete(m.byToken, token)
		delete(m.byUser, userID)
	}
}
