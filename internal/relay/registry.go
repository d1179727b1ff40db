// Package relay implements the connection registry, broadcast fan-out, and
// per-connection session loop that make up the core of the chat relay.
package relay

import (
	"fmt"
	"sync"

	"github.com/rs/zerolog"
)

// Registry tracks the live set of connections. Register, Deregister, and
// Snapshot are safe to call from any number of concurrent session loops; a
// snapshot never observes a half-inserted or half-removed member.
type Registry struct {
	mu    sync.RWMutex
	conns map[string]*Conn
	log   zerolog.Logger
}

// NewRegistry creates an empty registry.
func NewRegistry(log zerolog.Logger) *Registry {
	return &Registry{
		conns: make(map[string]*Conn),
		log:   log,
	}
}

// Register adds a connection to the live set. Registering the same handle
// twice is a programming defect and panics rather than being papered over.
func (r *Registry) Register(c *Conn) {
	r.mu.Lock()
	if _, ok := r.conns[c.ID()]; ok {
		r.mu.Unlock()
		panic(fmt.Sprintf("relay: connection %s registered twice", c.ID()))
	}
	r.conns[c.ID()] = c
	total := len(r.conns)
	r.mu.Unlock()

	r.log.Info().
		Str("conn_id", c.ID()).
		Str("user", c.Identity().Name).
		Int("total", total).
		Msg("connection registered")
}

// Deregister removes a connection if present. It is a no-op when the handle
// is already absent, so concurrent failure paths can both run cleanup.
func (r *Registry) Deregister(c *Conn) {
	r.mu.Lock()
	_, ok := r.conns[c.ID()]
	if ok {
		delete(r.conns, c.ID())
	}
	total := len(r.conns)
	r.mu.Unlock()

	if ok {
		r.log.Info().
			Str("conn_id", c.ID()).
			Str("user", c.Identity().Name).
			Int("total", total).
			Msg("connection deregistered")
	}
}

// Snapshot returns a point-in-time copy of the membership for one broadcast
// delivery pass. The returned slice is owned by the caller.
func (r *Registry) Snapshot() []*Conn {
	r.mu.RLock()
	defer r.mu.RUnlock()

	conns := make([]*Conn, 0, len(r.conns))
	for _, c := range r.conns {
		conns = append(conns, c)
	}
	return conns
}

// Len returns the current number of registered connections.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}

// CloseAll closes every registered connection. Each session loop observes
// its own transport closure and runs its normal termination path; CloseAll
// itself does not mutate membership.
func (r *Registry) CloseAll() {
	for _, c := range r.Snapshot() {
		c.Close()
	}
}
