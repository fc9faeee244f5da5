package backendfake

import (
	"context"
	"sync"

	"github.com/pkg/errors"

	"github.com/jrsteele09/go-auth-client/authapi"
	"github.com/jrsteele09/go-auth-client/session"
	"github.com/jrsteele09/go-auth-client/users"
)

var _ session.Backend = (*FakeBackend)(nil)

// FakeBackend is a scriptable session.Backend that counts calls. Unscripted
// operations fail, so a test only exercises the paths it declares.
type FakeBackend struct {
	lock sync.Mutex

	LoginFn    func(email, password string) (*authapi.Credentials, error)
	RegisterFn func(name, email, password string) (*authapi.Credentials, error)
	RefreshFn  func(refreshToken string) (*authapi.RefreshResult, error)
	MeFn       func(accessToken string) (*users.User, error)
	LogoutFn   func(accessToken string) error

	LoginCalls    int
	RegisterCalls int
	RefreshCalls  int
	MeCalls       int
	LogoutCalls   int
}

func NewFakeBackend() *FakeBackend {
	return &FakeBackend{}
}

func (b *FakeBackend) Login(_ context.Context, email, password string) (*authapi.Credentials, error) {
	b.lock.Lock()
	b.LoginCalls++
	fn := b.LoginFn
	b.lock.Unlock()
	if fn == nil {
		return nil, errors.New("unexpected Login call")
	}
	return fn(email, password)
}

func (b *FakeBackend) Register(_ context.Context, name, email, password string) (*authapi.Credentials, error) {
	b.lock.Lock()
	b.RegisterCalls++
	fn := b.RegisterFn
	b.lock.Unlock()
	if fn == nil {
		return nil, errors.New("unexpected Register call")
	}
	return fn(name, email, password)
}

func (b *FakeBackend) Refresh(_ context.Context, refreshToken string) (*authapi.RefreshResult, error) {
	b.lock.Lock()
	b.RefreshCalls++
	fn := b.RefreshFn
	b.lock.Unlock()
	if fn == nil {
		return nil, errors.New("unexpected Refresh call")
	}
	return fn(refreshToken)
}

func (b *FakeBackend) Me(_ context.Context, accessToken string) (*users.User, error) {
	b.lock.Lock()
	b.MeCalls++
	fn := b.MeFn
	b.lock.Unlock()
	if fn == nil {
		return nil, errors.New("unexpected Me call")
	}
	return fn(accessToken)
}

func (b *FakeBackend) Logout(_ context.Context, accessToken string) error {
	b.lock.Lock()
	b.LogoutCalls++
	fn := b.LogoutFn
	b.lock.Unlock()
	if fn == nil {
		return nil
	}
	return fn(accessToken)
}
