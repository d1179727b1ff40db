// Package store persists users, sessions, and the message log in BadgerDB.
// It also provides the production session resolver used by the relay.
package store

import (
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
	"github.com/rs/zerolog"
)

var (
	// ErrUserExists is returned when registering an already-taken username.
	ErrUserExists = errors.New("store: username already exists")
	// ErrInvalidCredentials is returned on unknown user or wrong password.
	ErrInvalidCredentials = errors.New("store: invalid username or password")
	// ErrNotFound is returned when a looked-up record does not exist.
	ErrNotFound = errors.New("store: not found")
)

// Store wraps a Badger database holding all durable relay state.
type Store struct {
	db  *badger.DB
	log zerolog.Logger
}

// Open opens (creating if needed) the database under dir.
func Open(dir string, log zerolog.Logger) (*Store, error) {
	opts := badger.DefaultOptions(dir).WithLoggingLevel(badger.ERROR)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger at %s: %w", dir, err)
	}
	return &Store{db: db, log: log}, nil
}

// Close flushes and closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}
