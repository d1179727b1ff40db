package bot

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nexuschat/relay/internal/identity"
	"github.com/nexuschat/relay/internal/relay"
)

func TestReply(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"greeting", "Hello there", "Hello alice, how can I assist you?"},
		{"greeting mid-sentence", "well hello again", "Hello alice, how can I assist you?"},
		{"wellbeing", "How are you today?", "I'm just a bot, but I'm doing great! Thanks for asking."},
		{"fallback", "the weather is nice", "That's interesting! Tell me more."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Reply(tt.content, "alice"))
		})
	}
}

type recordingSink struct {
	mu    sync.Mutex
	saved []string
}

func (r *recordingSink) SaveMessage(_ context.Context, content string, _ identity.Identity) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.saved = append(r.saved, content)
	return nil
}

type captureTransport struct {
	mu   sync.Mutex
	sent []string
}

func (c *captureTransport) Send(frame string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, frame)
	return nil
}

func (c *captureTransport) Receive() (string, error) { select {} }
func (c *captureTransport) Close() error             { return nil }

func (c *captureTransport) frames() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	cp := make([]string, len(c.sent))
	copy(cp, c.sent)
	return cp
}

func TestObserveBroadcastsAndPersistsReply(t *testing.T) {
	reg := relay.NewRegistry(zerolog.Nop())
	caster := relay.NewBroadcaster(reg, zerolog.Nop())
	sink := &recordingSink{}

	ct := &captureTransport{}
	member := relay.NewConn(ct, identity.Anonymous(), zerolog.Nop())
	reg.Register(member)
	go member.WritePump()

	b := New(caster, sink, zerolog.Nop())
	b.Observe("hello", identity.Identity{UserID: "u-1", Name: "alice"})

	deadline := time.Now().Add(2 * time.Second)
	for len(ct.frames()) == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	require.Equal(t, []string{"ChatBot says: Hello alice, how can I assist you?"}, ct.frames())

	sink.mu.Lock()
	defer sink.mu.Unlock()
	assert.Equal(t, []string{"Hello alice, how can I assist you?"}, sink.saved)
}

func TestObserveIgnoresItsOwnMessages(t *testing.T) {
	reg := relay.NewRegistry(zerolog.Nop())
	caster := relay.NewBroadcaster(reg, zerolog.Nop())
	sink := &recordingSink{}

	b := New(caster, sink, zerolog.Nop())
	b.Observe("hello", identity.Identity{UserID: "bot", Name: "ChatBot"})

	sink.mu.Lock()
	defer sink.mu.Unlock()
	assert.Empty(t, sink.saved)
}
