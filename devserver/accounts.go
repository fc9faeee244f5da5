package devserver

import (
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	apperrors "github.com/jrsteele09/go-auth-client/internal/errors"
	"github.com/jrsteele09/go-auth-client/users"
)

// Account is a server-side user record. Only the derived users.User view ever
// crosses the wire.
type Account struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string // never serialized
	Role         users.RoleType
	DateJoined   time.Time
	LastLogin    time.Time
}

// User returns the client-facing profile view of the account.
func (a *Account) User() users.User {
	return users.User{
		ID:    a.ID,
		Name:  a.Name,
		Email: a.Email,
		Role:  a.Role,
	}
}

// AccountRepo is an in-memory account store keyed by lower-cased email.
type AccountRepo struct {
	lock    sync.RWMutex
	byEmail map[string]*Account
	byID    map[string]*Account
	nowTime func() time.Time
}

func NewAccountRepo() *AccountRepo {
	return &AccountRepo{
		byEmail: make(map[string]*Account),
		byID:    make(map[string]*Account),
		nowTime: time.Now,
	}
}

// Create registers a new account, hashing the password with bcrypt.
func (r *AccountRepo) Create(name, email, password string) (*Account, error) {
	if err := ValidatePasswordStrength(password); err != nil {
		return nil, apperrors.Wrapf(apperrors.ErrValidation, "%s", err.Error())
	}
	if !strings.Contains(email, "@") {
		return nil, apperrors.Wrapf(apperrors.ErrValidation, "invalid email address")
	}

	hash, err := HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	r.lock.Lock()
	defer r.lock.Unlock()

	key := strings.ToLower(email)
	if _, exists := r.byEmail[key]; exists {
		return nil, apperrors.ErrUserExists
	}

	account := &Account{
		ID:           uuid.New().String(),
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Role:         users.RoleUser,
		DateJoined:   r.nowTime(),
	}
	r.byEmail[key] = account
	r.byID[account.ID] = account
	return account, nil
}

// Authenticate verifies the email/password pair.
func (r *AccountRepo) Authenticate(email, password string) (*Account, error) {
	r.lock.Lock()
	defer r.lock.Unlock()

	account, ok := r.byEmail[strings.ToLower(email)]
	if !ok || !CheckPasswordHash(password, account.PasswordHash) {
		return nil, apperrors.ErrInvalidCredentials
	}
	account.LastLogin = r.nowTime()
	return account, nil
}

// Get returns an account by ID.
func (r *AccountRepo) Get(id string) (*Account, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()
	account, ok := r.byID[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return account, nil
}

// UpdateName changes the account's display name.
func (r *AccountRepo) UpdateName(id, name string) (*Account, error) {
	r.lock.Lock()
	defer r.lock.Unlock()
	account, ok := r.byID[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	if name != "" {
		account.Name = name
	}
	return account, nil
}

// ValidatePasswordStrength checks if password meets security requirements:
// - At least 8 characters long
// - Contains uppercase and lowercase letters
// - Contains at least one number
func ValidatePasswordStrength(password string) error {
	if len(password) < 8 {
		return fmt.Errorf("password must be at least 8 characters long")
	}

	var (
		hasUpper  bool
		hasLower  bool
		hasNumber bool
	)

	for _, char := range password {
		if unicode.IsUpper(char) {
			hasUpper = true
		} else if unicode.IsLower(char) {
			hasLower = true
		} else if unicode.IsDigit(char) {
			hasNumber = true
		}
	}

	if !hasUpper {
		return fmt.Errorf("password must contain at least one uppercase letter")
	}
	if !hasLower {
		return fmt.Errorf("password must contain at least one lowercase letter")
	}
	if !hasNumber {
		return fmt.Errorf("password must contain at least one number")
	}

	return nil
}

func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(bytes), err
}

func CheckPasswordHash(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}
