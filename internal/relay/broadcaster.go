package relay

import (
	"sync"

	"github.com/rs/zerolog"
)

// Broadcaster fans a rendered frame out to every registered connection.
// Invocations are serialized, so delivery to any fixed recipient preserves
// the global order of Broadcast calls even when producers are concurrent.
type Broadcaster struct {
	mu       sync.Mutex
	registry *Registry
	log      zerolog.Logger
}

// NewBroadcaster creates a broadcaster reading membership from registry.
func NewBroadcaster(registry *Registry, log zerolog.Logger) *Broadcaster {
	return &Broadcaster{
		registry: registry,
		log:      log,
	}
}

// Broadcast delivers frame to every connection in a membership snapshot
// taken at call time, exactly one attempt per member. A failed delivery is
// swallowed locally: the recipient is likely already terminating and its own
// session loop handles cleanup. Delivery is a non-blocking enqueue onto each
// recipient's write pump, so a slow recipient never stalls the others or
// blocks registration of unrelated connections.
func (b *Broadcaster) Broadcast(frame string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	conns := b.registry.Snapshot()
	for _, c := range conns {
		if !c.Deliver(frame) {
			b.log.Debug().
				Str("conn_id", c.ID()).
				Msg("frame not delivered, recipient is closing or backed up")
		}
	}
	b.log.Debug().Int("recipients", len(conns)).Msg("frame broadcast")
}
