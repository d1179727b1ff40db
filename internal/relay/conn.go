package relay

import (
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/nexuschat/relay/internal/identity"
)

// sendBufferSize bounds the per-connection outbound queue. A recipient that
// falls this far behind starts losing frames, which its own session loop
// treats as a termination signal.
const sendBufferSize = 256

// Conn is one live connection to a client. Membership is owned by the
// Registry; the underlying transport is owned by the Session that created it.
// The identity is captured at connect time and immutable thereafter.
type Conn struct {
	id        string
	identity  identity.Identity
	transport Transport
	send      chan string
	done      chan struct{}
	closeOnce sync.Once
	log       zerolog.Logger
}

// NewConn wraps a transport with a unique handle and the identity resolved
// for it at connect time.
func NewConn(transport Transport, id identity.Identity, log zerolog.Logger) *Conn {
	handle := uuid.NewString()
	return &Conn{
		id:        handle,
		identity:  id,
		transport: transport,
		send:      make(chan string, sendBufferSize),
		done:      make(chan struct{}),
		log:       log.With().Str("conn_id", handle).Logger(),
	}
}

// ID returns the unique connection handle.
func (c *Conn) ID() string { return c.id }

// Identity returns the identity captured at connect time.
func (c *Conn) Identity() identity.Identity { return c.identity }

// Deliver queues one frame for the client without blocking. It returns false
// when the connection is closed or its outbound queue is full; the caller
// must treat that as a signal, not a command — cleanup belongs to this
// connection's own session loop.
func (c *Conn) Deliver(frame string) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.send <- frame:
		return true
	default:
		return false
	}
}

// WritePump drains the outbound queue onto the transport. Run it in its own
// goroutine; it returns once the connection closes or a write fails.
func (c *Conn) WritePump() {
	defer c.Close()
	for {
		select {
		case frame := <-c.send:
			if err := c.transport.Send(frame); err != nil {
				c.log.Debug().Err(err).Msg("write failed, closing connection")
				return
			}
		case <-c.done:
			return
		}
	}
}

// Receive blocks until the next inbound message or transport closure.
func (c *Conn) Receive() (string, error) {
	return c.transport.Receive()
}

// Close tears the connection down, unblocking a pending Receive. Safe to
// call from any goroutine, any number of times.
func (c *Conn) Close() {
	c.closeOnce.Do(func() {
		close(c.done)
		if err := c.transport.Close(); err != nil {
			c.log.Debug().Err(err).Msg("transport close")
		}
	})
}
