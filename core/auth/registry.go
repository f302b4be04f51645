package auth

import (
	"context"
	"time"
)

// SessionRegistry records revoked session tokens (by token ID) until they
// expire on their own. Verification stays stateless; revocation is the one
// piece of session state the server keeps.
type SessionRegistry interface {
	// Revoke marks a token ID as revoked until its expiry.
	Revoke(ctx context.Context, jti string, until time.Time) error

	// IsRevoked reports whether a token ID has been revoked.
	IsRevoked(ctx context.Context, jti string) (bool, error)
}
