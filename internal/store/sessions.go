package store

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/nexuschat/relay/internal/identity"
)

// Session ties an opaque token to a user. The username is denormalized into
// the record so resolution is a single lookup.
type Session struct {
	Token     string    `json:"token"`
	UserID    string    `json:"user_id"`
	Username  string    `json:"username"`
	CreatedAt time.Time `json:"created_at"`
}

func sessionKey(token string) []byte {
	return []byte("session:" + token)
}

func newSessionToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate session token: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// CreateSession issues a fresh opaque token for the user and persists it.
func (s *Store) CreateSession(user User) (Session, error) {
	token, err := newSessionToken()
	if err != nil {
		return Session{}, err
	}

	sess := Session{
		Token:     token,
		UserID:    user.ID,
		Username:  user.Username,
		CreatedAt: time.Now().UTC(),
	}
	data, err := json.Marshal(sess)
	if err != nil {
		return Session{}, fmt.Errorf("encode session: %w", err)
	}

	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(sessionKey(token), data)
	})
	if err != nil {
		return Session{}, err
	}
	return sess, nil
}

// Resolve implements identity.Resolver. Empty, unknown, and unreadable
// tokens all degrade to the anonymous identity; resolution never fails a
// connection. A session revoked after a connection opened is not re-checked
// for the life of that connection.
func (s *Store) Resolve(_ context.Context, token string) (identity.Identity, bool) {
	if token == "" {
		return identity.Anonymous(), false
	}

	var sess Session
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(sessionKey(token))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &sess)
		})
	})
	if err != nil {
		if !errors.Is(err, badger.ErrKeyNotFound) {
			s.log.Error().Err(err).Msg("session lookup failed, treating as anonymous")
		}
		return identity.Anonymous(), false
	}
	return identity.Identity{UserID: sess.UserID, Name: sess.Username}, true
}
