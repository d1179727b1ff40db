package relay

// Transport is one duplex, message-oriented channel to a client. The relay is
// agnostic to framing below "one message is one opaque text unit"; any
// transport realizing this contract can carry a session.
type Transport interface {
	// Send writes one frame to the client.
	Send(frame string) error
	// Receive blocks until the next inbound message or until the transport
	// is closed, in which case it returns an error. Closing the transport
	// from either side must unblock a pending Receive promptly.
	Receive() (string, error)
	// Close tears the transport down. Safe to call more than once.
	Close() error
}
