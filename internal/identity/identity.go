// Package identity defines the principal attached to a connection and the
// contract for resolving session tokens into one.
package identity

import "context"

// AnonymousName is the display name used when a connection carries no
// resolvable session. It is part of the broadcast wire contract.
const AnonymousName = "Anonymous"

// Identity is the principal resolved for one connection. It is captured once
// at connect time and never re-resolved for the life of the connection.
type Identity struct {
	// UserID is the opaque internal user reference. Empty for anonymous.
	UserID string
	// Name is the display name shown in broadcast frames.
	Name string
}

// Anonymous returns the sentinel identity used for unauthenticated connections.
func Anonymous() Identity {
	return Identity{Name: AnonymousName}
}

// IsAnonymous reports whether the identity refers to no stored user.
func (id Identity) IsAnonymous() bool {
	return id.UserID == ""
}

// Resolver maps an opaque session token to an identity. Implementations must
// accept empty or invalid tokens and report absence instead of failing: the
// second return value is false and the anonymous identity is returned.
type Resolver interface {
	Resolve(ctx context.Context, token string) (Identity, bool)
}
