// Package sqlitestore persists credentials in a SQLite database, for clients
// that already carry a local database and want the token slot inside it.
package sqlitestore

import (
	"database/sql"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/jrsteele09/go-auth-client/tokenstore"

	_ "modernc.org/sqlite"
)

const (
	slotAccess  = "access"
	slotRefresh = "refresh"
)

var _ tokenstore.Repo = (*Store)(nil)

// Store implements tokenstore.Repo on a single-table SQLite database.
type Store struct {
	db  *sql.DB
	log zerolog.Logger
}

// New opens (or creates) a SQLite database at dbPath. Use ":memory:" for an
// in-memory database (useful in tests; it does not survive a restart).
func New(dbPath string, logger zerolog.Logger) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", dbPath, err)
	}

	// WAL mode keeps concurrent readers from blocking the writer.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma wal: %w", err)
	}
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS credentials (
		slot  TEXT PRIMARY KEY,
		token TEXT NOT NULL
	)`); err != nil {
		db.Close()
		return nil, fmt.Errorf("create credentials table: %w", err)
	}

	return &Store{
		db:  db,
		log: logger.With().Str("component", "tokenstore").Logger(),
	}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Read() (string, error) {
	return s.read(slotAccess)
}

func (s *Store) Write(token string) error {
	return s.write(slotAccess, token)
}

func (s *Store) ReadRefresh() (string, error) {
	return s.read(slotRefresh)
}

func (s *Store) WriteRefresh(token string) error {
	return s.write(slotRefresh, token)
}

func (s *Store) Clear() error {
	if _, err := s.db.Exec(`DELETE FROM credentials`); err != nil {
		return fmt.Errorf("clear credentials: %w", err)
	}
	s.log.Debug().Msg("cleared stored credentials")
	return nil
}

func (s *Store) read(slot string) (string, error) {
	var token string
	err := s.db.QueryRow(`SELECT token FROM credentials WHERE slot = ?`, slot).Scan(&token)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read %s slot: %w", slot, err)
	}
	return token, nil
}

func (s *Store) write(slot, token string) error {
	_, err := s.db.Exec(`INSERT INTO credentials (slot, token) VALUES (?, ?)
		ON CONFLICT(slot) DO UPDATE SET token = excluded.token`, slot, token)
	if err != nil {
		return fmt.Errorf("write %s slot: %w", slot, err)
	}
	return nil
}
