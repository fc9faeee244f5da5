// Package filestore persists credentials as a JSON file in the client's data
// folder, the closest analogue to a browser's named localStorage slot.
package filestore

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/jrsteele09/go-auth-client/tokenstore"
)

const credentialsFile = "credentials.json"

var _ tokenstore.Repo = (*Store)(nil)

// Store reads and writes a single credentials file. Writes go through a
// temp-file rename so a crash never leaves a half-written slot behind.
type Store struct {
	path string
	lock sync.Mutex
	log  zerolog.Logger
}

type storedCredentials struct {
	AccessToken  string `json:"access_token,omitempty"`
	RefreshToken string `json:"refresh_token,omitempty"`
}

// New creates a Store rooted at dataFolder, creating the folder if needed.
func New(dataFolder string, logger zerolog.Logger) (*Store, error) {
	if dataFolder == "" {
		return nil, errors.New("[filestore.New] dataFolder is required")
	}
	if err := os.MkdirAll(dataFolder, 0o700); err != nil {
		return nil, errors.Wrap(err, "[filestore.New] create data folder")
	}
	return &Store{
		path: filepath.Join(dataFolder, credentialsFile),
		log:  logger.With().Str("component", "tokenstore").Logger(),
	}, nil
}

func (s *Store) Read() (string, error) {
	s.lock.Lock()
	defer s.lock.Unlock()
	creds, err := s.load()
	if err != nil {
		return "", err
	}
	return creds.AccessToken, nil
}

func (s *Store) Write(token string) error {
	s.lock.Lock()
	defer s.lock.Unlock()
	creds, err := s.load()
	if err != nil {
		return err
	}
	creds.AccessToken = token
	return s.save(creds)
}

func (s *Store) ReadRefresh() (string, error) {
	s.lock.Lock()
	defer s.lock.Unlock()
	creds, err := s.load()
	if err != nil {
		return "", err
	}
	return creds.RefreshToken, nil
}

func (s *Store) WriteRefresh(token string) error {
	s.lock.Lock()
	defer s.lock.Unlock()
	creds, err := s.load()
	if err != nil {
		return err
	}
	creds.RefreshToken = token
	return s.save(creds)
}

func (s *Store) Clear() error {
	s.lock.Lock()
	defer s.lock.Unlock()
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, "[filestore Clear] remove credentials file")
	}
	s.log.Debug().Msg("cleared stored credentials")
	return nil
}

// load must be called with the lock held. A missing file is the absent slot.
func (s *Store) load() (storedCredentials, error) {
	var creds storedCredentials
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return creds, nil
		}
		return creds, errors.Wrap(err, "[filestore load] read credentials file")
	}
	if err := json.Unmarshal(data, &creds); err != nil {
		// A corrupt file is treated as the absent slot rather than wedging
		// every operation that reads it.
		s.log.Warn().Err(err).Msg("corrupt credentials file, treating as empty")
		return storedCredentials{}, nil
	}
	return creds, nil
}

// save must be called with the lock held.
func (s *Store) save(creds storedCredentials) error {
	data, err := json.Marshal(creds)
	if err != nil {
		return errors.Wrap(err, "[filestore save] marshal credentials")
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return errors.Wrap(err, "[filestore save] write temp file")
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return errors.Wrap(err, "[filestore save] rename temp file")
	}
	return nil
}
