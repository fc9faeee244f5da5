package repofake

import (
	"sync"

	"github.com/jrsteele09/go-auth-client/tokenstore"
)

var _ tokenstore.Repo = (*FakeTokenRepo)(nil)

// FakeTokenRepo is an in-memory tokenstore.Repo for tests.
type FakeTokenRepo struct {
	access  string
	refresh string
	lock    sync.RWMutex

	// Optional error injection
	ReadErr  error
	WriteErr error
	ClearErr error
}

func NewFakeTokenRepo() *FakeTokenRepo {
	return &FakeTokenRepo{}
}

func (tr *FakeTokenRepo) Read() (string, error) {
	tr.lock.RLock()
	defer tr.lock.RUnlock()
	if tr.ReadErr != nil {
		return "", tr.ReadErr
	}
	return tr.access, nil
}

func (tr *FakeTokenRepo) Write(token string) error {
	tr.lock.Lock()
	defer tr.lock.Unlock()
	if tr.WriteErr != nil {
		return tr.WriteErr
	}
	tr.access = token
	return nil
}

func (tr *FakeTokenRepo) ReadRefresh() (string, error) {
	tr.lock.RLock()
	defer tr.lock.RUnlock()
	if tr.ReadErr != nil {
		return "", tr.ReadErr
	}
	return tr.refresh, nil
}

func (tr *FakeTokenRepo) WriteRefresh(token string) error {
	tr.lock.Lock()
	defer tr.lock.Unlock()
	if tr.WriteErr != nil {
		return tr.WriteErr
	}
	tr.refresh = token
	return nil
}

func (tr *FakeTokenRepo) Clear() error {
	tr.lock.Lock()
	defer tr.lock.Unlock()
	if tr.ClearErr != nil {
		return tr.ClearErr
	}
	tr.access = ""
	tr.refresh = ""
	return nil
}
