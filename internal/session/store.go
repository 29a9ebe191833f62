// Package session implements server-side operator sessions: opaque random
// tokens with sliding expiry, backed by an in-memory store or Redis.
package session

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

// CookieName is the cookie carrying the opaque session token.
const CookieName = "creepminer"

const tokenBytes = 32

// Store holds live operator sessions. A token present in the store is always
// non-expired at the instant of a successful Valid call; expired entries are
// evicted, never reported as valid.
type Store interface {
	// Create registers a new session and returns its opaque token.
	Create(ctx context.Context) (string, error)

	// Valid reports whether token identifies a live session. A hit slides
	// the expiry deadline forward; an expired entry is evicted.
	Valid(ctx context.Context, token string) bool

	// Destroy evicts the session, if present.
	Destroy(ctx context.Context, token string)

	// Close stops background sweeping and releases resources.
	Close() error
}

// newToken returns a cryptographically random, unguessable token.
func newToken() (string, error) {
	b := make([]byte, tokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate session token: %w", err)
	}
	return hex.EncodeToString(b), nil
}
