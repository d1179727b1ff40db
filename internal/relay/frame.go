package relay

import (
	"fmt"

	"github.com/nexuschat/relay/internal/identity"
)

// Frame rendering is a wire contract: existing clients parse these exact
// strings, so the formats must not change.

// SayFrame renders the broadcast frame for one chat message.
func SayFrame(from identity.Identity, content string) string {
	return fmt.Sprintf("%s says: %s", from.Name, content)
}

// DepartureFrame renders the notice broadcast when a connection leaves.
func DepartureFrame(from identity.Identity) string {
	return fmt.Sprintf("%s has disconnected.", from.Name)
}
