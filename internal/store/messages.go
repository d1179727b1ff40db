package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/samber/lo"

	"github.com/nexuschat/relay/internal/identity"
)

const messagePrefix = "msg:"

// Message is one persisted chat message. Records are append-only; UserID and
// Author are empty for anonymous senders.
type Message struct {
	ID      string    `json:"id"`
	Content string    `json:"content"`
	UserID  string    `json:"user_id,omitempty"`
	Author  string    `json:"author,omitempty"`
	At      time.Time `json:"at"`
}

// messageKey is "msg:{unixnano %019d}:{uuid}". The zero-padded timestamp
// makes a forward prefix scan chronological; the uuid disambiguates two
// messages landing on the same nanosecond.
func messageKey(at time.Time, id string) []byte {
	return fmt.Appendf(nil, "%s%019d:%s", messagePrefix, at.UnixNano(), id)
}

// SaveMessage implements relay.MessageSink with a single write attempt.
// A context already done fails fast without touching the database; once the
// write has started, the caller waits at most until the context is done
// while the attempt itself runs to completion in the background.
func (s *Store) SaveMessage(ctx context.Context, content string, from identity.Identity) error {
	msg := Message{
		ID:      uuid.NewString(),
		Content: content,
		At:      time.Now().UTC(),
	}
	if !from.IsAnonymous() {
		msg.UserID = from.UserID
		msg.Author = from.Name
	}

	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode message: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	err = awaitWrite(ctx, func() error {
		return s.db.Update(func(txn *badger.Txn) error {
			return txn.Set(messageKey(msg.At, msg.ID), data)
		})
	})
	if err != nil {
		return fmt.Errorf("write message: %w", err)
	}
	return nil
}

// awaitWrite runs write in its own goroutine and stops waiting once ctx is
// done. Badger has no cancellation path of its own, so a stalled write keeps
// running in the background; there is still at most one attempt, the caller
// just stops being blocked on it.
func awaitWrite(ctx context.Context, write func() error) error {
	done := make(chan error, 1)
	go func() {
		done <- write()
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RecentMessages returns up to limit messages, oldest first. A limit of zero
// or less returns the full log.
func (s *Store) RecentMessages(limit int) ([]Message, error) {
	var out []Message
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(messagePrefix)
		// Seek past the newest possible key, then walk backwards.
		seek := append([]byte(messagePrefix), 0xff)
		for it.Seek(seek); it.ValidForPrefix(prefix); it.Next() {
			if limit > 0 && len(out) == limit {
				break
			}
			var msg Message
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &msg)
			})
			if err != nil {
				return err
			}
			out = append(out, msg)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return lo.Reverse(out), nil
}
