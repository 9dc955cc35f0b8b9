// Package session stores the ephemeral CSRF state that binds an
// authorization redirect to its eventual callback. One session per
// provider; writing a new one supersedes any in-flight attempt.
package session

import "context"

// Store holds at most one live AuthorizationSession token per provider,
// plus a tombstone of the last consumed token so replayed callbacks can
// be told apart from forged ones. Implementations must make Put atomic
// per provider (last writer wins).
type Store interface {
	// Put records token as the provider's live session, replacing any
	// previous one.
	Put(ctx context.Context, providerID, token string) error

	// Get returns the provider's live token, or ok=false when none
	// exists or it has expired.
	Get(ctx context.Context, providerID string) (token string, ok bool, err error)

	// Consume invalidates the live session and tombstones the token so
	// a replay of the same value is detectable.
	Consume(ctx context.Context, providerID, token string) error

	// Consumed reports whether token matches the provider's most
	// recently consumed session.
	Consumed(ctx context.Context, providerID, token string) (bool, error)
}
