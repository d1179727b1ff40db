package relay

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/nexuschat/relay/internal/identity"
)

// defaultPersistTimeout bounds how long one session waits on the message
// store before giving up and broadcasting anyway.
const defaultPersistTimeout = 2 * time.Second

// MessageSink persists chat messages. Persistence is best effort: at most
// one attempt per message, failures reported to the caller.
type MessageSink interface {
	SaveMessage(ctx context.Context, content string, from identity.Identity) error
}

// Listener is notified after a chat message has been broadcast. Listeners
// run synchronously on the sending session's loop, so time a listener spends
// delays only that sender's next read, never delivery to other sessions.
type Listener func(content string, from identity.Identity)

// Session is the per-connection control loop. One instance runs per client,
// from registration through termination. Every exit path out of the active
// loop reaches termination via deregistration exactly once.
type Session struct {
	conn           *Conn
	registry       *Registry
	caster         *Broadcaster
	sink           MessageSink
	listeners      []Listener
	persistTimeout time.Duration
	log            zerolog.Logger
}

// NewSession builds the control loop for an already-authenticated connection.
func NewSession(conn *Conn, registry *Registry, caster *Broadcaster, sink MessageSink, log zerolog.Logger) *Session {
	return &Session{
		conn:           conn,
		registry:       registry,
		caster:         caster,
		sink:           sink,
		persistTimeout: defaultPersistTimeout,
		log:            log.With().Str("conn_id", conn.ID()).Str("user", conn.Identity().Name).Logger(),
	}
}

// SetPersistTimeout overrides the bounded wait applied to each persist call.
func (s *Session) SetPersistTimeout(d time.Duration) {
	if d > 0 {
		s.persistTimeout = d
	}
}

// OnMessage registers a listener invoked after each broadcast chat message.
func (s *Session) OnMessage(l Listener) {
	s.listeners = append(s.listeners, l)
}

// Run registers the connection and pumps inbound messages until the
// transport closes, then deregisters and announces the departure. It blocks
// for the life of the connection; callers run it in its own goroutine.
func (s *Session) Run() {
	go s.conn.WritePump()

	s.registry.Register(s.conn)
	defer s.terminate()

	for {
		content, err := s.conn.Receive()
		if err != nil {
			s.log.Debug().Err(err).Msg("connection closed")
			return
		}
		s.handleMessage(content)
	}
}

// handleMessage persists one inbound message and fans it out. Persistence
// and broadcast are independent: a store failure is logged and never
// suppresses the broadcast, and the bounded wait keeps a slow store from
// stalling anything beyond this sender's own loop.
func (s *Session) handleMessage(content string) {
	from := s.conn.Identity()

	ctx, cancel := context.WithTimeout(context.Background(), s.persistTimeout)
	if err := s.sink.SaveMessage(ctx, content, from); err != nil {
		s.log.Error().Err(err).Msg("message not persisted")
	}
	cancel()

	s.caster.Broadcast(SayFrame(from, content))

	for _, l := range s.listeners {
		l(content, from)
	}
}

// terminate runs exactly once per session: deregister first, then announce
// the departure so no peer sees the notice while the member is still visible.
func (s *Session) terminate() {
	s.registry.Deregister(s.conn)
	s.conn.Close()
	s.caster.Broadcast(DepartureFrame(s.conn.Identity()))
	s.log.Debug().Msg("session terminated")
}
