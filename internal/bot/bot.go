// Package bot implements a canned auto-responder that joins the relay as
// its own identity.
package bot

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/nexuschat/relay/internal/identity"
	"github.com/nexuschat/relay/internal/relay"
)

const persistTimeout = 2 * time.Second

// Bot replies to chat messages with canned responses. Its replies are
// persisted and broadcast like any other message.
type Bot struct {
	caster *relay.Broadcaster
	sink   relay.MessageSink
	id     identity.Identity
	log    zerolog.Logger
}

// New creates the bot bound to a broadcaster and message sink.
func New(caster *relay.Broadcaster, sink relay.MessageSink, log zerolog.Logger) *Bot {
	return &Bot{
		caster: caster,
		sink:   sink,
		id:     identity.Identity{UserID: "bot", Name: "ChatBot"},
		log:    log,
	}
}

// Reply returns the canned response for one message.
func Reply(content, author string) string {
	lower := strings.ToLower(content)
	switch {
	case strings.Contains(lower, "hello"):
		return fmt.Sprintf("Hello %s, how can I assist you?", author)
	case strings.Contains(lower, "how are you"):
		return "I'm just a bot, but I'm doing great! Thanks for asking."
	default:
		return "That's interesting! Tell me more."
	}
}

// Observe handles one chat message that was just broadcast. It is wired as a
// session listener; messages from the bot itself are ignored so it never
// replies to its own output.
func (b *Bot) Observe(content string, from identity.Identity) {
	if from.UserID == b.id.UserID {
		return
	}

	reply := Reply(content, from.Name)

	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	if err := b.sink.SaveMessage(ctx, reply, b.id); err != nil {
		b.log.Error().Err(err).Msg("bot reply not persisted")
	}
	cancel()

	b.caster.Broadcast(relay.SayFrame(b.id, reply))
}
